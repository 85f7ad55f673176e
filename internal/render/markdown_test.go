package render

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarkdownRendersFormatting(t *testing.T) {
	out, err := NewMarkdown().HTML("**bold** and `code`\n\n- one\n- two")
	require.NoError(t, err)
	assert.Contains(t, out, "<strong>bold</strong>")
	assert.Contains(t, out, "<code>code</code>")
	assert.Contains(t, out, "<li>one</li>")
}

func TestMarkdownStripsScripts(t *testing.T) {
	out := NewMarkdown().SafeHTML("hi <script>alert(1)</script> <a href=\"javascript:alert(1)\">x</a>")
	assert.NotContains(t, out, "<script")
	assert.NotContains(t, out, "javascript:")
}

func TestMarkdownKeepsFenceLanguageClass(t *testing.T) {
	out := NewMarkdown().SafeHTML("```go\nfmt.Println(1)\n```")
	assert.Contains(t, out, `class="language-go"`)
}
