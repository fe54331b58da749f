// Package markdown renders assistant replies for the web UI.
package markdown

import (
	"github.com/microcosm-cc/bluemonday"
	"github.com/russross/blackfriday"
)

// Renderer converts markdown to sanitized HTML. It is safe for concurrent use.
type Renderer struct {
	policy *bluemonday.Policy
}

// NewRenderer creates a Renderer that allows user-generated-content markup.
func NewRenderer() *Renderer {
	return &Renderer{policy: bluemonday.UGCPolicy()}
}

// Render returns text as sanitized HTML.
func (r *Renderer) Render(text string) string {
	if text == "" {
		return ""
	}
	unsafe := blackfriday.MarkdownCommon([]byte(text))
	return string(r.policy.SanitizeBytes(unsafe))
}
