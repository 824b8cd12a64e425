package automation

import (
	"strings"

	"golang.org/x/net/html"
)

// blockElements get a line break of their own when flattening, so list items
// and paragraphs in a response survive as separate lines.
var blockElements = map[string]bool{
	"p": true, "div": true, "li": true, "ul": true, "ol": true,
	"pre": true, "br": true, "h1": true, "h2": true, "h3": true,
	"h4": true, "h5": true, "h6": true, "blockquote": true, "tr": true,
}

var skippedElements = map[string]bool{
	"script": true, "style": true, "noscript": true, "svg": true,
}

// flattenHTML reduces a response node's inner HTML to plain text, dropping
// scripts, styles and markup while keeping block structure as line breaks.
func flattenHTML(raw string) string {
	doc, err := html.Parse(strings.NewReader(raw))
	if err != nil {
		return ""
	}

	var b strings.Builder
	flattenNode(doc, &b)
	return tidyLines(b.String())
}

func flattenNode(n *html.Node, b *strings.Builder) {
	switch n.Type {
	case html.CommentNode:
		return
	case html.ElementNode:
		if skippedElements[strings.ToLower(n.Data)] {
			return
		}
	case html.TextNode:
		text := strings.TrimSpace(n.Data)
		if text != "" {
			if b.Len() > 0 && !strings.HasSuffix(b.String(), "\n") {
				b.WriteByte(' ')
			}
			b.WriteString(text)
		}
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		flattenNode(c, b)
	}

	if n.Type == html.ElementNode && blockElements[strings.ToLower(n.Data)] && b.Len() > 0 {
		b.WriteByte('\n')
	}
}

// tidyLines trims per-line whitespace and collapses runs of blank lines.
func tidyLines(s string) string {
	lines := strings.Split(s, "\n")
	var out []string
	blank := false
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			if !blank && len(out) > 0 {
				out = append(out, "")
			}
			blank = true
			continue
		}
		blank = false
		out = append(out, line)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}
