// Package render turns model generated Markdown-subset text into a flat
// sequence of typed blocks and inline spans.
//
// Only a small subset is understood: "## " and "### " headings, "* " and
// "- " list items, blank lines and paragraphs. Every input line yields exactly
// one block; consecutive list items are not grouped.
package render

import "strings"

type BlockKind string

const (
	BlockHeading2  BlockKind = "heading2"
	BlockHeading3  BlockKind = "heading3"
	BlockListItem  BlockKind = "listItem"
	BlockBlank     BlockKind = "blank"
	BlockParagraph BlockKind = "paragraph"
)

const (
	prefixHeading2 = "## "
	prefixHeading3 = "### "
	prefixBullet   = "* "
	prefixDash     = "- "
)

// Block is one rendered line. Text and Spans are empty for BlockBlank.
type Block struct {
	Kind  BlockKind `json:"kind"`
	Text  string    `json:"text,omitempty"`
	Spans []Span    `json:"spans,omitempty"`
}

// Render splits text on "\n" and classifies every line. A "\r" before the
// separator is kept as part of the line.
func Render(text string) []Block {
	lines := strings.Split(text, "\n")
	blocks := make([]Block, 0, len(lines))
	for _, line := range lines {
		blocks = append(blocks, classify(line))
	}
	return blocks
}

func classify(line string) Block {
	var kind BlockKind
	var text string
	switch {
	case strings.HasPrefix(line, prefixHeading2):
		kind, text = BlockHeading2, line[len(prefixHeading2):]
	case strings.HasPrefix(line, prefixHeading3):
		kind, text = BlockHeading3, line[len(prefixHeading3):]
	case strings.HasPrefix(line, prefixBullet), strings.HasPrefix(line, prefixDash):
		kind, text = BlockListItem, line[len(prefixBullet):]
	case strings.TrimSpace(line) == "":
		return Block{Kind: BlockBlank}
	default:
		kind, text = BlockParagraph, line
	}
	return Block{Kind: kind, Text: text, Spans: Inline(text)}
}

// PlainText returns the visible text of all blocks, one line per block.
func PlainText(blocks []Block) string {
	var sb strings.Builder
	for i, b := range blocks {
		if i > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(Visible(b.Spans))
	}
	return sb.String()
}

// Headings returns the visible text of every heading block in order.
func Headings(blocks []Block) []string {
	var headings []string
	for _, b := range blocks {
		if b.Kind == BlockHeading2 || b.Kind == BlockHeading3 {
			headings = append(headings, Visible(b.Spans))
		}
	}
	return headings
}
