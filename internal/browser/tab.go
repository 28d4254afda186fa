package browser

import (
	"context"
	"fmt"

	"github.com/go-rod/rod"
	"github.com/go-rod/stealth"
)

// Tab is one stealth page navigated to a URL. It belongs to a single
// snapshot and must be closed by its owner.
type Tab struct {
	Page    *rod.Page
	PageURL string
	router  *rod.HijackRouter
}

// OpenTab starts the browser if needed, opens a stealth page, installs
// resource blocking and navigates to pageURL. Navigation is bounded by the
// configured NavigateTimeout; a load that does not settle in time is logged
// and the page is used as is.
func (m *Manager) OpenTab(ctx context.Context, pageURL string) (*Tab, error) {
	b, err := m.Start(ctx)
	if err != nil {
		return nil, err
	}

	page, err := stealth.Page(b)
	if err != nil {
		return nil, fmt.Errorf("browser: create tab: %w", err)
	}
	t := &Tab{Page: page, PageURL: pageURL}
	if len(m.cfg.ResourceBlocking) > 0 {
		t.router = blockResources(page, m.cfg.ResourceBlocking)
	}

	navCtx, cancel := context.WithTimeout(ctx, m.cfg.NavigateTimeout)
	defer cancel()

	if err := page.Context(navCtx).Navigate(pageURL); err != nil {
		_ = t.Close()
		return nil, fmt.Errorf("browser: navigate %s: %w", pageURL, err)
	}
	if err := page.Context(navCtx).WaitLoad(); err != nil {
		m.cfg.Logger.Warn("browser: wait load", "url", pageURL, "error", err)
	}
	return t, nil
}

// HTML serialises the current document as outer HTML.
func (t *Tab) HTML(ctx context.Context) ([]byte, error) {
	res, err := t.Page.Context(ctx).Eval(`() => document.documentElement.outerHTML`)
	if err != nil {
		return nil, fmt.Errorf("browser: outer html: %w", err)
	}
	return []byte(res.Value.Str()), nil
}

// Close stops request interception and closes the page.
func (t *Tab) Close() error {
	if t.router != nil {
		_ = t.router.Stop()
		t.router = nil
	}
	if t.Page == nil {
		return nil
	}
	err := t.Page.Close()
	t.Page = nil
	return err
}
