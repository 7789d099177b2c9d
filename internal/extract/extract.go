// Package extract normalizes mime-typed payloads into chunkable plain text.
//
// Extraction is the pre-step of ingestion: binary or markup formats are
// reduced to text before chunking is attempted. Unsupported mime types are
// rejected with ErrUnsupportedFormat so callers can distinguish "no
// extraction path" from a chunking failure.
package extract

import (
	"bytes"
	"errors"
	"fmt"
	"mime"
	"strings"
	"unicode/utf8"

	readability "github.com/go-shiori/go-readability"
	"golang.org/x/net/html"
)

// ErrUnsupportedFormat indicates the mime type has no text-extraction path.
var ErrUnsupportedFormat = errors.New("extraction not supported")

// Text converts content of the given mime type into plain text.
//
// Supported: text/plain, text/markdown, text/html, application/json, and an
// empty mime type (treated as plain text). Mime type parameters
// (e.g. "; charset=utf-8") are ignored.
func Text(content []byte, mimeType string) (string, error) {
	mediaType := mimeType
	if mediaType != "" {
		parsed, _, err := mime.ParseMediaType(mimeType)
		if err != nil {
			return "", fmt.Errorf("%w: malformed mime type %q", ErrUnsupportedFormat, mimeType)
		}
		mediaType = parsed
	}

	switch mediaType {
	case "", "text/plain", "text/markdown", "text/x-markdown", "application/json":
		if !utf8.Valid(content) {
			return "", fmt.Errorf("%w: %q payload is not valid UTF-8", ErrUnsupportedFormat, mediaType)
		}
		return string(content), nil

	case "text/html", "application/xhtml+xml":
		return htmlText(content)

	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, mediaType)
	}
}

// htmlText extracts readable text from an HTML document.
// Readability strips boilerplate (nav, ads); when it cannot identify an
// article we fall back to a plain text walk of the DOM.
func htmlText(content []byte) (string, error) {
	article, err := readability.FromReader(bytes.NewReader(content), nil)
	if err == nil && strings.TrimSpace(article.TextContent) != "" {
		return strings.TrimSpace(article.TextContent), nil
	}

	node, err := html.Parse(bytes.NewReader(content))
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML: %w", err)
	}

	var b strings.Builder
	collectText(node, &b)
	return strings.TrimSpace(b.String()), nil
}

func collectText(n *html.Node, b *strings.Builder) {
	if n.Type == html.ElementNode {
		switch n.Data {
		case "script", "style", "noscript":
			return
		}
	}
	if n.Type == html.TextNode {
		text := strings.TrimSpace(n.Data)
		if text != "" {
			b.WriteString(text)
			b.WriteString("\n")
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, b)
	}
}
