package render

import (
	"regexp"
	"strings"
)

type SpanKind string

const (
	SpanText SpanKind = "text"
	SpanBold SpanKind = "bold"
	SpanLink SpanKind = "link"
)

// Span is an inline fragment of a block. For SpanLink, Text holds the label.
type Span struct {
	Kind SpanKind `json:"kind"`
	Text string   `json:"text"`
	URL  string   `json:"url,omitempty"`
}

var (
	// Lazy and non-nested: the label may still contain "]" when no "(" follows it.
	linkPattern = regexp.MustCompile(`\[(.*?)\]\((.*?)\)`)
	boldPattern = regexp.MustCompile(`\*\*(.*?)\*\*`)
)

// Inline extracts links first and then bold runs from the text between links.
// Link labels and urls are never split further. Unmatched markup is left as
// plain text.
func Inline(text string) []Span {
	var spans []Span
	last := 0
	for _, m := range linkPattern.FindAllStringSubmatchIndex(text, -1) {
		spans = appendBold(spans, text[last:m[0]])
		spans = append(spans, Span{Kind: SpanLink, Text: text[m[2]:m[3]], URL: text[m[4]:m[5]]})
		last = m[1]
	}
	return appendBold(spans, text[last:])
}

func appendBold(spans []Span, segment string) []Span {
	last := 0
	for _, m := range boldPattern.FindAllStringSubmatchIndex(segment, -1) {
		spans = appendText(spans, segment[last:m[0]])
		spans = append(spans, Span{Kind: SpanBold, Text: segment[m[2]:m[3]]})
		last = m[1]
	}
	return appendText(spans, segment[last:])
}

func appendText(spans []Span, s string) []Span {
	if s == "" {
		return spans
	}
	return append(spans, Span{Kind: SpanText, Text: s})
}

// Visible concatenates the displayed text of spans, dropping link urls.
func Visible(spans []Span) string {
	var sb strings.Builder
	for _, s := range spans {
		sb.WriteString(s.Text)
	}
	return sb.String()
}

// Links returns every link span of the given blocks in document order.
func Links(blocks []Block) []Span {
	var links []Span
	for _, b := range blocks {
		for _, s := range b.Spans {
			if s.Kind == SpanLink {
				links = append(links, s)
			}
		}
	}
	return links
}
