package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	c := Default()
	if c.Attribute != DefaultAttribute || c.MaxDepth != DefaultMaxDepth || c.Mode != ModeAuto {
		t.Errorf("defaults: %+v", c)
	}
	if c.Browser.Stealth != "headless" || c.Browser.XvfbDisplay != ":99" {
		t.Errorf("browser defaults: %+v", c.Browser)
	}
	if err := c.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestParse(t *testing.T) {
	// WHAT: YAML fields override defaults and nested fetch settings are read.
	// WHY: Config files are the main way to tune a deployment.
	c, err := Parse([]byte(`
attribute: data-snap
max_depth: 64
mode: browser
prune: true
fetch:
  user_agent: bot/1
  timeout: 5s
browser:
  remote: ws://127.0.0.1:9222/devtools/browser/x
  stealth: headful
  resource_blocking: [media, fonts]
  navigate_timeout: 1m
`))
	if err != nil {
		t.Fatal(err)
	}
	if c.Attribute != "data-snap" || c.MaxDepth != 64 || c.Mode != ModeBrowser || !c.Prune {
		t.Errorf("top level: %+v", c)
	}
	if c.Fetch.UserAgent != "bot/1" || c.Fetch.Timeout != 5*time.Second {
		t.Errorf("fetch: %+v", c.Fetch)
	}
	if c.Browser.Stealth != "headful" || c.Browser.NavigateTimeout != time.Minute {
		t.Errorf("browser: %+v", c.Browser)
	}
	if len(c.Browser.ResourceBlocking) != 2 {
		t.Errorf("resource blocking: %v", c.Browser.ResourceBlocking)
	}
	if c.Browser.XvfbDisplay != DefaultXvfbDisplay {
		t.Errorf("unset xvfb display should default, got %q", c.Browser.XvfbDisplay)
	}
}

func TestParseInvalid(t *testing.T) {
	// WHAT: Invalid values fail validation with the field name in the error.
	// WHY: A bad config must fail at startup, not mid-snapshot.
	tests := []struct {
		yaml string
		want string
	}{
		{"mode: sometimes", "mode"},
		{"max_depth: -3", "max_depth"},
		{"attribute: 'data ax'", "attribute"},
		{"attribute: 'a=b'", "attribute"},
		{"browser:\n  stealth: invisible", "browser.stealth"},
		{"browser:\n  resource_blocking: [scripts]", "browser.resource_blocking"},
		{"mode: [list]", ""},
	}
	for _, tt := range tests {
		_, err := Parse([]byte(tt.yaml))
		if err == nil {
			t.Errorf("%q: expected an error", tt.yaml)
			continue
		}
		if !strings.Contains(err.Error(), tt.want) {
			t.Errorf("%q: error %q should name %q", tt.yaml, err, tt.want)
		}
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "axtree.yaml")
	if err := os.WriteFile(path, []byte("mode: static\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	c, err := LoadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if c.Mode != ModeStatic || c.Attribute != DefaultAttribute {
		t.Errorf("loaded: %+v", c)
	}

	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("missing file should fail")
	}
}
