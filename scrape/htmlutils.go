package scrape

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// selectNode returns the first element matching a CSS selector.
func selectNode(doc *goquery.Document, selector string) (sel *goquery.Selection, err error) {
	// cascadia panics on some malformed selectors
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("invalid selector '%s': %v", selector, r)
		}
	}()
	sel = doc.Find(selector).First()
	if sel.Length() == 0 {
		return nil, fmt.Errorf("element matching selector '%s' not found", selector)
	}
	return sel, nil
}

func extractTitle(doc *goquery.Document) string {
	return strings.TrimSpace(doc.Find("head > title").First().Text())
}

func metaContent(doc *goquery.Document, name string) string {
	content, _ := doc.Find(fmt.Sprintf(`meta[name="%s"]`, name)).First().Attr("content")
	return strings.TrimSpace(content)
}

func extractMetaDescription(doc *goquery.Document) string {
	return metaContent(doc, "description")
}

// extractMetaKeywords splits the comma separated keywords meta tag.
func extractMetaKeywords(doc *goquery.Document) []string {
	var keywords []string
	for _, keyword := range strings.Split(metaContent(doc, "keywords"), ",") {
		if trimmed := strings.TrimSpace(keyword); trimmed != "" {
			keywords = append(keywords, trimmed)
		}
	}
	return keywords
}
