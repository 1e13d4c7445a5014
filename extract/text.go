package extract

import (
	"html"
	"regexp"
	"strings"

	nethtml "golang.org/x/net/html"
)

// Elements whose whole subtree is boilerplate or non-text
var skipElements = map[string]bool{
	"script":   true,
	"style":    true,
	"nav":      true,
	"header":   true,
	"footer":   true,
	"noscript": true,
	"template": true,
	"svg":      true,
	"iframe":   true,
}

// Elements rendered inline; everything else is treated as a block and
// separated from its neighbours by whitespace.
var inlineElements = map[string]bool{
	"a": true, "abbr": true, "b": true, "bdi": true, "bdo": true, "cite": true,
	"code": true, "data": true, "em": true, "i": true, "kbd": true, "mark": true,
	"q": true, "s": true, "samp": true, "small": true, "span": true, "strong": true,
	"sub": true, "sup": true, "time": true, "u": true, "var": true, "label": true,
}

var tagRe = regexp.MustCompile(`<[^>]*>`)

// Text converts an HTML payload into a single-line plain-text corpus.
// Boilerplate blocks and comments are dropped, entities decoded and
// whitespace collapsed. Malformed markup never fails; the parser repairs
// what it can and the rest passes through as text.
func Text(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return ""
	}

	root, err := nethtml.Parse(strings.NewReader(raw))
	if err != nil {
		return collapseWhitespace(html.UnescapeString(tagRe.ReplaceAllString(raw, " ")))
	}

	var b strings.Builder
	writeText(root, &b)
	return collapseWhitespace(b.String())
}

func writeText(n *nethtml.Node, b *strings.Builder) {
	switch n.Type {
	case nethtml.CommentNode, nethtml.DoctypeNode:
		return
	case nethtml.TextNode:
		b.WriteString(n.Data)
		return
	case nethtml.ElementNode:
		if skipElements[n.Data] {
			return
		}
	}

	block := n.Type == nethtml.ElementNode && !inlineElements[n.Data]
	if block {
		b.WriteByte(' ')
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		writeText(c, b)
	}
	if block {
		b.WriteByte(' ')
	}
}

// collapseWhitespace trims s and replaces every whitespace run (including
// non-breaking spaces) with a single space.
func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
