package search

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"dompeassist/internal/logger"
	"dompeassist/internal/models"
)

const (
	DefaultEndpoint        = "https://duckduckgo.com/html/"
	DefaultCompanyName     = "Dompé Pharmaceuticals"
	DefaultOfficialSiteURL = "https://www.dompe.com/en"
	DefaultTimeout         = 10 * time.Second

	sourceWebSearch = "Web Search"
	sourceError     = "error"

	googleSearchURL = "https://www.google.com/search"
	maxBodySize     = 2 << 20

	userAgent      = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"
	acceptHeader   = "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8"
	acceptLanguage = "en-US,en;q=0.5"
)

// Searcher is what the answer pipeline needs from a search backend.
type Searcher interface {
	Search(ctx context.Context, query string) models.SearchResult
}

type Options struct {
	Endpoint        string
	CompanyName     string
	OfficialSiteURL string
	ResultLimit     int
	Timeout         time.Duration
	HTTPClient      *http.Client
	Extractor       Extractor
}

// Provider scrapes the configured results page. Search never fails: problems
// are reported through a fallback SearchResult.
type Provider struct {
	endpoint     string
	company      string
	officialSite string
	client       *http.Client
	extractor    Extractor
}

func NewProvider(opts Options) *Provider {
	if opts.Endpoint == "" {
		opts.Endpoint = DefaultEndpoint
	}
	if opts.CompanyName == "" {
		opts.CompanyName = DefaultCompanyName
	}
	if opts.OfficialSiteURL == "" {
		opts.OfficialSiteURL = DefaultOfficialSiteURL
	}
	if opts.ResultLimit <= 0 {
		opts.ResultLimit = ProviderResultLimit
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: opts.Timeout}
	}
	if opts.Extractor == nil {
		opts.Extractor = HTMLExtractor{Limit: opts.ResultLimit}
	}
	return &Provider{
		endpoint:     opts.Endpoint,
		company:      opts.CompanyName,
		officialSite: opts.OfficialSiteURL,
		client:       opts.HTTPClient,
		extractor:    opts.Extractor,
	}
}

func (p *Provider) Search(ctx context.Context, query string) models.SearchResult {
	searchQuery := RewriteQuery(query, p.company)
	log := logger.WithCtx(ctx).With(zap.String("query", searchQuery))

	results, err := p.Fetch(ctx, searchQuery)
	if err != nil {
		log.Warn("web search failed", zap.Error(err))
		return p.errorResult(query, err)
	}
	log.Debug("web search completed", zap.Int("results", len(results)))

	if len(results) == 0 {
		return models.SearchResult{
			Source:        sourceWebSearch,
			AbstractText:  fmt.Sprintf("Limited information found about \"%s\". You may want to try a more specific query.", searchQuery),
			AbstractURL:   nil,
			RelatedTopics: p.fallbackTopics(searchQuery),
		}
	}

	abstract := results[0].Snippet
	if abstract == "" {
		abstract = fmt.Sprintf("Search results for \"%s\"", searchQuery)
	}
	first := results[0].URL
	topics := make([]models.RelatedTopic, 0, len(results))
	for _, r := range results {
		topics = append(topics, models.RelatedTopic{Text: r.Title, URL: r.URL})
	}
	return models.SearchResult{
		Source:        sourceWebSearch,
		AbstractText:  abstract,
		AbstractURL:   &first,
		RelatedTopics: topics,
	}
}

// Fetch issues the query as-is and returns the extracted records.
func (p *Provider) Fetch(ctx context.Context, query string) ([]models.ExtractedResult, error) {
	target, err := url.Parse(p.endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid endpoint: %w", err)
	}
	params := target.Query()
	params.Set("q", query)
	target.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", acceptHeader)
	req.Header.Set("Accept-Language", acceptLanguage)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search request: %s", resp.Status)
	}
	return p.extractor.Extract(io.LimitReader(resp.Body, maxBodySize))
}

func (p *Provider) errorResult(query string, err error) models.SearchResult {
	return models.SearchResult{
		Source:        sourceError,
		AbstractText:  fmt.Sprintf("Error searching for \"%s\". This might be due to connectivity issues or rate limiting. %s", query, err.Error()),
		AbstractURL:   nil,
		RelatedTopics: p.fallbackTopics(query + " " + p.company),
	}
}

func (p *Provider) fallbackTopics(googleQuery string) []models.RelatedTopic {
	return []models.RelatedTopic{
		{Text: "Visit Dompé's official website", URL: p.officialSite},
		{Text: "Search for this topic on Google", URL: googleSearchURL + "?" + url.Values{"q": {googleQuery}}.Encode()},
	}
}
