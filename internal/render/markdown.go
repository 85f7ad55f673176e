// Package render turns model replies into HTML that is safe to drop into the chat page.
package render

import (
	"bytes"
	"fmt"
	"html"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// Markdown converts markdown to sanitized HTML. The zero value is not usable; use NewMarkdown.
type Markdown struct {
	md     goldmark.Markdown
	policy *bluemonday.Policy
}

func NewMarkdown() *Markdown {
	policy := bluemonday.UGCPolicy()
	policy.AllowAttrs("class").Matching(bluemonday.SpaceSeparatedTokens).OnElements("code", "pre")
	return &Markdown{
		md:     goldmark.New(goldmark.WithExtensions(extension.GFM)),
		policy: policy,
	}
}

func (m *Markdown) HTML(src string) (string, error) {
	var buf bytes.Buffer
	if err := m.md.Convert([]byte(src), &buf); err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	return m.policy.Sanitize(buf.String()), nil
}

// SafeHTML renders src and falls back to escaped plain text if conversion fails.
func (m *Markdown) SafeHTML(src string) string {
	out, err := m.HTML(src)
	if err != nil {
		return "<p>" + html.EscapeString(src) + "</p>"
	}
	return out
}
