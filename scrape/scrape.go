package scrape

import (
	"context"
	"fmt"
	"net/http"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/PuerkitoBio/goquery"
	"github.com/foomo/travelguide-mcp/service/vo"
)

const DefaultSelector = "body"

// Scrape downloads url, summarizes the page and converts the first element
// matching selector to Markdown.
func Scrape(ctx context.Context, client *http.Client, url, selector string) (*vo.SourceSummary, vo.Markdown, error) {
	if client == nil {
		client = http.DefaultClient
	}
	if selector == "" {
		selector = DefaultSelector
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "text/html")

	resp, err := client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("failed to download HTML: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("HTTP request failed with status: %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("failed to parse HTML: %w", err)
	}

	summary := &vo.SourceSummary{
		URL:         resp.Request.URL.String(),
		Title:       extractTitle(doc),
		Description: extractMetaDescription(doc),
		Keywords:    extractMetaKeywords(doc),
	}

	selected, err := selectNode(doc, selector)
	if err != nil {
		return nil, "", err
	}

	markdownBytes, err := htmltomarkdown.ConvertNode(selected.Nodes[0])
	if err != nil {
		return nil, "", fmt.Errorf("failed to convert HTML to markdown: %w", err)
	}

	return summary, vo.Markdown(markdownBytes), nil
}
