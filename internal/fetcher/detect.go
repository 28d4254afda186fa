package fetcher

import (
	"bytes"
	"strings"
)

// Thresholds of the sufficiency heuristic.
const (
	minBytes = 256
	minText  = 200
	minRatio = 0.10
)

// spaShells are markers of a client-rendered page whose static body is an
// empty mount point.
var spaShells = [][]byte{
	[]byte(`<div id="root"></div>`),
	[]byte(`<div id="app"></div>`),
	[]byte(`<div id="__next"></div>`),
	[]byte(`<div id="__nuxt"></div>`),
	[]byte("<noscript>you need to enable javascript"),
	[]byte("<noscript>enable javascript"),
}

// IsSufficient reports whether static HTML carries enough visible text that
// walking it without a browser gives a meaningful tree.
func IsSufficient(html []byte) bool {
	if len(html) < minBytes {
		return false
	}

	textLen, markupLen := textMarkupRatio(html)
	total := textLen + markupLen
	if total == 0 {
		return false
	}

	if float64(textLen)/float64(total) < minRatio || textLen < minText {
		return false
	}

	lower := bytes.ToLower(html)
	for _, m := range spaShells {
		if bytes.Contains(lower, m) {
			return false
		}
	}
	return true
}

// textMarkupRatio counts non-whitespace text bytes against markup bytes.
// Script and style bodies count as markup.
func textMarkupRatio(html []byte) (text, markup int) {
	inTag := false
	raw := "" // closing tag of the raw-text element being skipped

	s := string(html)
	i := 0
	for i < len(s) {
		if raw != "" {
			idx := strings.Index(strings.ToLower(s[i:]), raw)
			if idx == -1 {
				markup += len(s) - i
				break
			}
			i += idx
			end := strings.IndexByte(s[i:], '>')
			if end < 0 {
				end = len(s) - i - 1
			}
			markup += idx + end + 1
			i += end + 1
			raw = ""
			inTag = false
			continue
		}

		ch := s[i]
		if ch == '<' {
			inTag = true
			markup++
			rest := strings.ToLower(s[i:min(i+8, len(s))])
			switch {
			case strings.HasPrefix(rest, "<script"):
				raw = "</script"
			case strings.HasPrefix(rest, "<style"):
				raw = "</style"
			}
			i++
			continue
		}
		if ch == '>' {
			inTag = false
			markup++
			i++
			continue
		}
		switch {
		case inTag:
			markup++
		case ch != ' ' && ch != '\t' && ch != '\n' && ch != '\r':
			text++
		}
		i++
	}
	return text, markup
}
