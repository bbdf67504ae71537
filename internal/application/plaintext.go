package application

import (
	"bytes"
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

var (
	mdRenderer   goldmark.Markdown
	tagStripper  *bluemonday.Policy
	newlineNormalizer = strings.NewReplacer("\r\n", "\n")
)

func init() {
	mdRenderer = goldmark.New(
		goldmark.WithExtensions(extension.GFM),
	)

	tagStripper = bluemonday.StrictPolicy()
}

// commentPlaintext reduces a markdown comment body to plain text for the
// scoring prompt. Rendering through goldmark first normalizes GFM constructs
// (links, emphasis, code spans) before the tag stripper removes all markup.
// Returns the input unchanged when rendering fails.
func commentPlaintext(src string) string {
	if src == "" {
		return ""
	}

	var buf bytes.Buffer
	if err := mdRenderer.Convert([]byte(newlineNormalizer.Replace(src)), &buf); err != nil {
		return strings.TrimSpace(src)
	}

	stripped := tagStripper.Sanitize(buf.String())

	return strings.TrimSpace(html.UnescapeString(stripped))
}
