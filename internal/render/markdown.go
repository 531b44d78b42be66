// Package render turns review bodies written in Markdown into sanitized HTML.
package render

import (
	"bytes"
	stdhtml "html"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

// Markdown renders user-written Markdown to HTML that is safe to embed.
type Markdown struct {
	md     goldmark.Markdown
	policy *bluemonday.Policy
}

// NewMarkdown creates a renderer supporting GitHub-flavored Markdown. Raw
// HTML in the source is dropped and links get rel="nofollow noreferrer".
func NewMarkdown() *Markdown {
	policy := bluemonday.UGCPolicy()
	policy.AddTargetBlankToFullyQualifiedLinks(true)
	policy.RequireNoReferrerOnLinks(true)

	return &Markdown{
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithRendererOptions(
				html.WithHardWraps(),
				html.WithXHTML(),
			),
		),
		policy: policy,
	}
}

// Render converts source to sanitized HTML. An empty source renders to "".
func (m *Markdown) Render(source string) string {
	if source == "" {
		return ""
	}

	var buf bytes.Buffer
	if err := m.md.Convert([]byte(source), &buf); err != nil {
		return "<p>" + stdhtml.EscapeString(source) + "</p>"
	}
	return string(m.policy.SanitizeBytes(buf.Bytes()))
}
