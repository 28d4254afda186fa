package fetcher

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hazyhaar/axtree/internal/safeurl"
)

var article = `<!DOCTYPE html><html><head><title>T</title></head><body><main><p>` +
	strings.Repeat("Plain readable article text for the sufficiency check. ", 10) +
	`</p></main></body></html>`

func TestFetch(t *testing.T) {
	// WHAT: Fetch sends the configured user agent and returns body and content type.
	// WHY: Sites vary markup by user agent.
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		switch r.URL.Path {
		case "/missing":
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(article))
		default:
			_, _ = w.Write([]byte(article))
		}
	}))
	defer srv.Close()

	f := New(WithUserAgent("test-agent"))
	res, err := f.Fetch(context.Background(), srv.URL+"/page")
	if err != nil {
		t.Fatal(err)
	}
	if gotUA != "test-agent" {
		t.Errorf("user agent: %q", gotUA)
	}
	if res.StatusCode != http.StatusOK || !res.Sufficient {
		t.Errorf("status %d sufficient %v", res.StatusCode, res.Sufficient)
	}
	if string(res.Body) != article {
		t.Error("body mismatch")
	}
	if !strings.HasPrefix(res.ContentType, "text/html") {
		t.Errorf("content type: %q", res.ContentType)
	}

	res, err = f.Fetch(context.Background(), srv.URL+"/missing")
	if err != nil {
		t.Fatal(err)
	}
	if res.Sufficient {
		t.Error("non-2xx response should not be sufficient")
	}
}

func TestFetchDefaults(t *testing.T) {
	f := New(WithUserAgent(""), WithTimeout(0))
	if f.ua != DefaultUserAgent {
		t.Errorf("empty user agent should keep default, got %q", f.ua)
	}
	if f.client.Timeout == 0 {
		t.Error("zero timeout should keep default")
	}
}

func TestFetchBadURL(t *testing.T) {
	if _, err := New().Fetch(context.Background(), "://nope"); err == nil {
		t.Error("expected an error for a malformed URL")
	}
}

func TestFetchRedirectToPrivate(t *testing.T) {
	// WHAT: A redirect to a private address is refused by the URL validator.
	// WHY: An open redirect on a public page must not reach internal services.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "http://10.255.255.1/admin", http.StatusFound)
	}))
	defer srv.Close()

	// The test server itself is loopback, so only the first URL is let through.
	var checked []string
	validate := func(ctx context.Context, u string) error {
		checked = append(checked, u)
		if len(checked) == 1 {
			return nil
		}
		return safeurl.Check(ctx, u, true)
	}

	_, err := New(WithURLValidator(validate)).Fetch(context.Background(), srv.URL+"/start")
	if !errors.Is(err, safeurl.ErrPrivate) {
		t.Fatalf("got %v, want safeurl.ErrPrivate", err)
	}
	if len(checked) != 2 || checked[1] != "http://10.255.255.1/admin" {
		t.Errorf("validated URLs: %v", checked)
	}
}

func TestFetchValidatesFirstURL(t *testing.T) {
	// WHAT: The validator runs on the initial URL before any request.
	// WHY: The redirect hook alone never sees the first hop.
	refused := errors.New("refused")
	_, err := New(WithURLValidator(func(context.Context, string) error { return refused })).
		Fetch(context.Background(), "http://example.com/")
	if !errors.Is(err, refused) {
		t.Errorf("got %v, want the validator error", err)
	}
}

func TestFetchTooManyRedirects(t *testing.T) {
	// WHAT: Redirect chains longer than MaxRedirects fail.
	// WHY: Redirect loops must not hang a snapshot.
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		http.Redirect(w, r, r.URL.Path+"x", http.StatusFound)
	}))
	defer srv.Close()

	_, err := New().Fetch(context.Background(), srv.URL+"/loop")
	if err == nil || !strings.Contains(err.Error(), "too many redirects") {
		t.Fatalf("got %v, want a redirect limit error", err)
	}
	if hits != MaxRedirects {
		t.Errorf("requests: got %d, want %d", hits, MaxRedirects)
	}
}
