// Package axsnap turns a page into a snapshot. It picks the acquisition
// path (static HTML or a live browser tab), runs the walker over the
// matching document adapter and wraps the tree in a snapshot envelope.
//
// The browser is started on first use and kept until Close.
package axsnap

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-rod/rod"

	"github.com/hazyhaar/axtree/axtree"
	"github.com/hazyhaar/axtree/dom"
	"github.com/hazyhaar/axtree/dom/cdpdom"
	"github.com/hazyhaar/axtree/dom/htmldom"
	"github.com/hazyhaar/axtree/internal/browser"
	"github.com/hazyhaar/axtree/internal/config"
	"github.com/hazyhaar/axtree/internal/fetcher"
	"github.com/hazyhaar/axtree/internal/safeurl"
	"github.com/hazyhaar/axtree/snapshot"
)

// ErrNoBody is returned when the document has no <body> to walk.
var ErrNoBody = errors.New("axsnap: document has no body")

// Snapshotter produces snapshots. It is safe for concurrent use.
type Snapshotter struct {
	cfg    *config.Config
	fetch  *fetcher.Fetcher
	mgr    *browser.Manager
	logger *slog.Logger
}

// New creates a Snapshotter. A nil cfg uses config.Default.
func New(cfg *config.Config, logger *slog.Logger) *Snapshotter {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = slog.Default()
	}
	blockPrivate := cfg.Fetch.BlockPrivate
	fetch := fetcher.New(
		fetcher.WithURLValidator(func(ctx context.Context, u string) error {
			return safeurl.Check(ctx, u, blockPrivate)
		}),
		fetcher.WithUserAgent(cfg.Fetch.UserAgent),
		fetcher.WithTimeout(cfg.Fetch.Timeout),
		fetcher.WithLogger(logger),
	)
	mgr := browser.NewManager(browser.Config{
		RemoteURL:        cfg.Browser.Remote,
		Mode:             browser.ParseMode(cfg.Browser.Stealth),
		ResourceBlocking: cfg.Browser.ResourceBlocking,
		XvfbDisplay:      cfg.Browser.XvfbDisplay,
		NavigateTimeout:  cfg.Browser.NavigateTimeout,
		Logger:           logger,
	})
	return &Snapshotter{cfg: cfg, fetch: fetch, mgr: mgr, logger: logger}
}

// Close releases the browser if one was started.
func (s *Snapshotter) Close() error {
	return s.mgr.Close()
}

func (s *Snapshotter) walker(styles dom.StyleSource, layout dom.LayoutSource) *axtree.Walker {
	return axtree.New(axtree.Config{
		Attribute: s.cfg.Attribute,
		Styles:    styles,
		Layout:    layout,
		MaxDepth:  s.cfg.MaxDepth,
		Logger:    s.logger,
	})
}

func (s *Snapshotter) finish(snap *snapshot.Snapshot) *snapshot.Snapshot {
	if s.cfg.Prune {
		snap.Prune()
	}
	s.logger.Info("axsnap: snapshot",
		"id", snap.ID, "url", snap.PageURL, "source", snap.Source, "nodes", snap.Nodes)
	return snap
}

// FromHTML walks static HTML. Visibility comes from the document's own
// style sheets; there is no layout, so nodes carry no bounding box. The
// stamped document is returned in Snapshot.Annotated.
func (s *Snapshotter) FromHTML(ctx context.Context, pageURL string, html []byte) (*snapshot.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("axsnap: %w", err)
	}
	doc, err := htmldom.ParseBytes(html)
	if errors.Is(err, htmldom.ErrNoBody) {
		return nil, ErrNoBody
	}
	if err != nil {
		return nil, fmt.Errorf("axsnap: parse: %w", err)
	}

	styles := htmldom.NewStyles(doc, htmldom.WithStylesLogger(s.logger))
	tree := s.walker(styles, dom.NoLayout{}).Generate(doc.Body())

	snap := snapshot.New(pageURL, snapshot.SourceStatic, s.cfg.Attribute, tree)
	snap.HTMLHash = snapshot.HashHTML(html)

	var buf bytes.Buffer
	if err := doc.Render(&buf); err != nil {
		return nil, fmt.Errorf("axsnap: render: %w", err)
	}
	snap.Annotated = buf.Bytes()
	return s.finish(snap), nil
}

// FromURL acquires pageURL according to the configured mode. In auto mode
// the page is fetched over HTTP first and the browser is used only when
// the fetch fails or the HTML looks like a client-rendered shell.
func (s *Snapshotter) FromURL(ctx context.Context, pageURL string) (*snapshot.Snapshot, error) {
	if err := safeurl.Check(ctx, pageURL, s.cfg.Fetch.BlockPrivate); err != nil {
		return nil, fmt.Errorf("axsnap: %w", err)
	}
	switch s.cfg.Mode {
	case config.ModeBrowser:
		return s.browse(ctx, pageURL)
	case config.ModeStatic:
		res, err := s.fetch.Fetch(ctx, pageURL)
		if err != nil {
			return nil, fmt.Errorf("axsnap: %w", err)
		}
		if res.StatusCode < 200 || res.StatusCode >= 300 {
			return nil, fmt.Errorf("axsnap: fetch %s: status %d", pageURL, res.StatusCode)
		}
		return s.FromHTML(ctx, pageURL, res.Body)
	}

	res, err := s.fetch.Fetch(ctx, pageURL)
	switch {
	case err != nil:
		s.logger.Warn("axsnap: fetch failed, escalating to browser", "url", pageURL, "error", err)
	case res.Sufficient:
		return s.FromHTML(ctx, pageURL, res.Body)
	default:
		s.logger.Info("axsnap: static content insufficient, escalating to browser",
			"url", pageURL, "status", res.StatusCode)
	}
	return s.browse(ctx, pageURL)
}

func (s *Snapshotter) browse(ctx context.Context, pageURL string) (*snapshot.Snapshot, error) {
	tab, err := s.mgr.OpenTab(ctx, pageURL)
	if err != nil {
		return nil, fmt.Errorf("axsnap: %w", err)
	}
	defer func() {
		if err := tab.Close(); err != nil {
			s.logger.Debug("axsnap: close tab", "url", pageURL, "error", err)
		}
	}()

	if s.cfg.Fetch.BlockPrivate {
		if err := s.checkLanding(ctx, tab); err != nil {
			return nil, err
		}
	}

	snap, err := s.Page(ctx, tab.Page, pageURL)
	if err != nil {
		return nil, err
	}
	s.verifyStamps(ctx, tab, snap)
	s.annotateLive(ctx, tab, snap)
	return snap, nil
}

// checkLanding vets the URL the tab ended up on after redirects.
func (s *Snapshotter) checkLanding(ctx context.Context, tab *browser.Tab) error {
	info, err := tab.Page.Context(ctx).Info()
	if err != nil {
		return fmt.Errorf("axsnap: page info: %w", err)
	}
	if err := safeurl.Check(ctx, info.URL, true); err != nil {
		return fmt.Errorf("axsnap: landed on %s: %w", info.URL, err)
	}
	return nil
}

// verifyStamps looks the root id up in the live page. A miss means the
// page rewrote its DOM during the walk; the snapshot is still returned.
func (s *Snapshotter) verifyStamps(ctx context.Context, tab *browser.Tab, snap *snapshot.Snapshot) {
	if snap.Tree == nil || strings.HasPrefix(snap.Tree.Name, "#") {
		return // only elements carry stamps
	}
	if _, err := cdpdom.Locate(ctx, tab.Page, s.cfg.Attribute, snap.Tree.ID); err != nil {
		s.logger.Warn("axsnap: root stamp not found in live page", "url", snap.PageURL, "id", snap.Tree.ID, "error", err)
	}
}

// annotateLive fills Annotated with the stamped live document. A failed
// read leaves it empty.
func (s *Snapshotter) annotateLive(ctx context.Context, tab *browser.Tab, snap *snapshot.Snapshot) {
	html, err := tab.HTML(ctx)
	if err != nil {
		s.logger.Warn("axsnap: annotated html unavailable", "url", snap.PageURL, "error", err)
		return
	}
	snap.Annotated = html
}

// Page walks a live page the caller owns. The page keeps its correlation
// attributes afterwards, so cdpdom.Locate can find elements by node id.
func (s *Snapshotter) Page(ctx context.Context, page *rod.Page, pageURL string) (*snapshot.Snapshot, error) {
	doc, err := cdpdom.Load(ctx, page, s.logger)
	if errors.Is(err, cdpdom.ErrNoBody) {
		return nil, ErrNoBody
	}
	if err != nil {
		return nil, fmt.Errorf("axsnap: %w", err)
	}
	tree := s.walker(doc.Styles(), doc.Layout()).Generate(doc.Body())
	return s.finish(snapshot.New(pageURL, snapshot.SourceBrowser, s.cfg.Attribute, tree)), nil
}
