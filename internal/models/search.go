package models

// SearchResult is the payload produced for one web search and returned to the UI.
type SearchResult struct {
	Source        string         `json:"source"`
	AbstractText  string         `json:"abstractText"`
	AbstractURL   *string        `json:"abstractURL"`
	RelatedTopics []RelatedTopic `json:"relatedTopics"`
}

type RelatedTopic struct {
	Text string `json:"text"`
	URL  string `json:"url"`
}

// ExtractedResult is a single record scraped from a results page.
type ExtractedResult struct {
	Title      string `json:"text"`
	Snippet    string `json:"snippet"`
	URL        string `json:"url"`
	DisplayURL string `json:"displayUrl"`
}
