package web

import (
	"bytes"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

// Sheet cells are typed by hand, so a newline inside a cell is meant as a
// line break, not a paragraph continuation.
var (
	eventsMarkdown = goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithRendererOptions(html.WithHardWraps(), html.WithUnsafe()),
	)
	eventsPolicy = bluemonday.UGCPolicy().AddTargetBlankToFullyQualifiedLinks(true)
)

// RenderMarkdown converts the Markdown in a programEvents cell to sanitized
// HTML. Blank input yields "".
func RenderMarkdown(src string) string {
	if strings.TrimSpace(src) == "" {
		return ""
	}

	var buf bytes.Buffer
	if err := eventsMarkdown.Convert([]byte(src), &buf); err != nil {
		return eventsPolicy.Sanitize(src)
	}

	return eventsPolicy.Sanitize(buf.String())
}
