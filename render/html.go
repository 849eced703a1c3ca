package render

import (
	"bytes"
	"fmt"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// HTML serializes blocks as an HTML fragment wrapped in a markdown-body div.
func HTML(blocks []Block) (string, error) {
	var buf bytes.Buffer
	if err := html.Render(&buf, Fragment(blocks)); err != nil {
		return "", fmt.Errorf("failed to render html: %w", err)
	}
	return buf.String(), nil
}

// Document serializes blocks as a standalone printable page.
func Document(title string, blocks []Block) (string, error) {
	head := element(atom.Head)
	meta := element(atom.Meta)
	meta.Attr = []html.Attribute{{Key: "charset", Val: "utf-8"}}
	head.AppendChild(meta)
	titleNode := element(atom.Title)
	titleNode.AppendChild(textNode(title))
	head.AppendChild(titleNode)

	body := element(atom.Body)
	h1 := element(atom.H1)
	h1.AppendChild(textNode(title))
	body.AppendChild(h1)
	body.AppendChild(Fragment(blocks))

	root := element(atom.Html)
	root.AppendChild(head)
	root.AppendChild(body)

	doc := &html.Node{Type: html.DocumentNode}
	doc.AppendChild(&html.Node{Type: html.DoctypeNode, Data: "html"})
	doc.AppendChild(root)

	var buf bytes.Buffer
	if err := html.Render(&buf, doc); err != nil {
		return "", fmt.Errorf("failed to render document: %w", err)
	}
	return buf.String(), nil
}

// Fragment builds the node tree for blocks without serializing it.
func Fragment(blocks []Block) *html.Node {
	container := element(atom.Div, "markdown-body")
	for _, b := range blocks {
		container.AppendChild(blockNode(b))
	}
	return container
}

func blockNode(b Block) *html.Node {
	switch b.Kind {
	case BlockHeading2:
		return withSpans(element(atom.H2), b.Spans)
	case BlockHeading3:
		return withSpans(element(atom.H3), b.Spans)
	case BlockListItem:
		item := element(atom.Div, "list-item")
		bullet := element(atom.Span, "bullet")
		bullet.AppendChild(textNode("•"))
		item.AppendChild(bullet)
		item.AppendChild(withSpans(element(atom.Div), b.Spans))
		return item
	case BlockBlank:
		return element(atom.Div, "spacer")
	default:
		return withSpans(element(atom.P), b.Spans)
	}
}

func withSpans(parent *html.Node, spans []Span) *html.Node {
	for _, s := range spans {
		switch s.Kind {
		case SpanBold:
			strong := element(atom.Strong)
			strong.AppendChild(textNode(s.Text))
			parent.AppendChild(strong)
		case SpanLink:
			a := element(atom.A)
			a.Attr = []html.Attribute{
				{Key: "href", Val: s.URL},
				{Key: "target", Val: "_blank"},
				{Key: "rel", Val: "noopener noreferrer"},
			}
			a.AppendChild(textNode(s.Text))
			parent.AppendChild(a)
		default:
			parent.AppendChild(textNode(s.Text))
		}
	}
	return parent
}

func element(a atom.Atom, class ...string) *html.Node {
	n := &html.Node{Type: html.ElementNode, DataAtom: a, Data: a.String()}
	if len(class) > 0 {
		n.Attr = append(n.Attr, html.Attribute{Key: "class", Val: class[0]})
	}
	return n
}

func textNode(s string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: s}
}
