package etl

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeContent(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			"simple paragraph",
			"<p>Hello world</p>",
			"Hello world",
		},
		{
			"br becomes newline",
			"<p>line one<br>line two</p>",
			"line one\nline two",
		},
		{
			"paragraphs separated by blank line collapse",
			"<p>first</p><p>second</p>",
			"first\n\nsecond",
		},
		{
			"links keep their text",
			`<p>read <a href="https://example.com">this post</a> today</p>`,
			"read this post today",
		},
		{
			"mentions and hashtags keep their text",
			`<p><span class="h-card"><a href="https://x/@bob" class="u-url mention">@<span>bob</span></a></span> see <a href="https://x/tags/go" class="mention hashtag">#<span>go</span></a></p>`,
			"@bob see #go",
		},
		{
			"script and style dropped",
			"<p>safe</p><script>alert(1)</script><style>p{}</style>",
			"safe",
		},
		{
			"empty input",
			"",
			"",
		},
		{
			"plain text passes through",
			"just words",
			"just words",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeContent(tt.in))
		})
	}
}
