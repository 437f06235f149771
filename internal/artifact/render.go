package artifact

import (
	"bytes"
	"fmt"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"
)

// Format selects how a scan artifact is served.
type Format string

const (
	FormatMarkdown Format = "md"
	FormatHTML     Format = "html"
)

// ParseFormat maps a query value onto a Format. Empty defaults to markdown.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case "", FormatMarkdown:
		return FormatMarkdown, nil
	case FormatHTML:
		return FormatHTML, nil
	default:
		return "", fmt.Errorf("unknown artifact format: %q", s)
	}
}

// ContentType returns the response content type for f.
func (f Format) ContentType() string {
	if f == FormatHTML {
		return "text/html; charset=utf-8"
	}
	return "text/markdown; charset=utf-8"
}

// Scanned text keeps its line breaks; raw HTML in the source is escaped.
var md = goldmark.New(
	goldmark.WithRendererOptions(html.WithHardWraps()),
)

// RenderHTML converts a markdown artifact into an HTML fragment.
func RenderHTML(source []byte) ([]byte, error) {
	var buf bytes.Buffer
	if err := md.Convert(source, &buf); err != nil {
		return nil, fmt.Errorf("rendering artifact: %w", err)
	}
	return buf.Bytes(), nil
}

// Summary counts the blocks of a markdown artifact. Each extracted chunk is
// one paragraph-level block.
type Summary struct {
	Blocks int `json:"blocks"`
	Chars  int `json:"chars"`
}

// Summarize parses source and reports its top-level block count.
func Summarize(source []byte) Summary {
	doc := md.Parser().Parse(text.NewReader(source))
	blocks := 0
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		if n.Type() == ast.TypeBlock {
			blocks++
		}
	}
	return Summary{Blocks: blocks, Chars: len([]rune(string(source)))}
}
