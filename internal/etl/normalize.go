package etl

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

var blankRunPattern = regexp.MustCompile(`\n\s*\n`)

// NormalizeContent converts Mastodon status HTML to normalized plain text.
// Links, mentions and hashtags survive as their text; <br> and <p> become
// newlines; runs of blank lines collapse to one.
func NormalizeContent(content string) string {
	if content == "" {
		return ""
	}

	doc, err := html.Parse(strings.NewReader(content))
	if err != nil {
		// Malformed enough that the tokenizer gave up; better raw than lost
		return strings.TrimSpace(content)
	}

	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			b.WriteString(n.Data)
		case html.ElementNode:
			switch n.Data {
			case "br":
				b.WriteString("\n")
				return
			case "script", "style":
				return
			case "p":
				b.WriteString("\n")
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if n.Type == html.ElementNode && n.Data == "p" {
			b.WriteString("\n")
		}
	}
	walk(doc)

	text := blankRunPattern.ReplaceAllString(b.String(), "\n\n")
	return strings.TrimSpace(text)
}
