package fetcher

import (
	"strings"
	"testing"
)

func TestIsSufficient(t *testing.T) {
	// WHAT: Client-rendered shells are detected and prose pages pass.
	// WHY: Auto mode decides between HTTP and browser on this.
	prose := strings.Repeat("Lorem ipsum dolor sit amet, consectetur adipiscing elit. ", 8)
	tests := []struct {
		name string
		html string
		want bool
	}{
		{"static article", `<!DOCTYPE html><html><head><title>Test</title></head><body><main><article><h1>Title</h1><p>` +
			prose + `</p></article></main></body></html>`, true},
		{"spa shell", `<!DOCTYPE html><html><head><meta charset="utf-8"><title>App</title></head><body>
<div id="root"></div>
<script src="/static/js/main.chunk.js"></script>
<script>` + strings.Repeat("window.__STATE__ = {};", 20) + `</script>
</body></html>`, false},
		{"mount point with prose", `<html><body><p>` + prose + `</p><div id="__next"></div></body></html>`, false},
		{"too short", `<html><body>hi</body></html>`, false},
		{"empty body", `<!DOCTYPE html><html><head></head><body></body></html>` + strings.Repeat(" ", 300), false},
		{"script heavy", `<html><body><p>short</p><script>` + strings.Repeat("var a = 'some text';", 200) + `</script></body></html>`, false},
	}
	for _, tt := range tests {
		if got := IsSufficient([]byte(tt.html)); got != tt.want {
			t.Errorf("%s: got %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestTextMarkupRatio(t *testing.T) {
	text, markup := textMarkupRatio([]byte(`<div>Hello World</div>`))
	if text != len("HelloWorld") {
		t.Errorf("text: got %d, want %d", text, len("HelloWorld"))
	}
	if markup != len("<div></div>") {
		t.Errorf("markup: got %d, want %d", markup, len("<div></div>"))
	}
}

func TestTextMarkupRatioSkipsRawText(t *testing.T) {
	src := `<p>ab</p><SCRIPT type="x">var c = "<p>d</p>";</SCRIPT><p>ef</p>`
	text, markup := textMarkupRatio([]byte(src))
	if text != 4 {
		t.Errorf("text: got %d, want 4 (script body is markup)", text)
	}
	if text+markup != len(src) {
		t.Errorf("every byte should be counted once: text %d markup %d len %d", text, markup, len(src))
	}
}
