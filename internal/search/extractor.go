package search

import (
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"dompeassist/internal/models"
)

const (
	ProviderResultLimit = 4
	ProbeResultLimit    = 10
)

// Extractor turns a search-results page into ordered records.
type Extractor interface {
	Extract(html io.Reader) ([]models.ExtractedResult, error)
}

// HTMLExtractor reads the DuckDuckGo HTML layout. Limit caps accepted records;
// zero or less means no cap.
type HTMLExtractor struct {
	Limit int
}

func (e HTMLExtractor) Extract(html io.Reader) ([]models.ExtractedResult, error) {
	doc, err := goquery.NewDocumentFromReader(html)
	if err != nil {
		return nil, fmt.Errorf("parse results page: %w", err)
	}

	results := make([]models.ExtractedResult, 0)
	doc.Find("#links .result").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		if e.Limit > 0 && len(results) >= e.Limit {
			return false
		}
		link := sel.Find(".result__a").First()
		title := strings.TrimSpace(link.Text())
		href, _ := link.Attr("href")
		href = strings.TrimSpace(href)
		if title == "" || href == "" {
			return true
		}
		results = append(results, models.ExtractedResult{
			Title:      title,
			Snippet:    strings.TrimSpace(sel.Find(".result__snippet").First().Text()),
			URL:        href,
			DisplayURL: strings.TrimSpace(sel.Find(".result__url").First().Text()),
		})
		return true
	})
	return results, nil
}
