package assistant

import (
	"fmt"
	"strings"

	"dompeassist/internal/models"
)

// renderSearchContext formats a search result as the system turn appended
// before the final answer.
func renderSearchContext(res models.SearchResult) string {
	abstractURL := "N/A"
	if res.AbstractURL != nil && *res.AbstractURL != "" {
		abstractURL = *res.AbstractURL
	}
	topics := make([]string, 0, len(res.RelatedTopics))
	for _, topic := range res.RelatedTopics {
		topics = append(topics, fmt.Sprintf("- %s (%s)", topic.Text, topic.URL))
	}

	var sb strings.Builder
	sb.WriteString("Here is some additional information from a web search that might help answer the question:\n\n")
	fmt.Fprintf(&sb, "Source: %s\n", res.Source)
	fmt.Fprintf(&sb, "Abstract: %s\n", res.AbstractText)
	fmt.Fprintf(&sb, "URL: %s\n", abstractURL)
	fmt.Fprintf(&sb, "Related Topics:\n%s\n\n", strings.Join(topics, "\n"))
	sb.WriteString("Incorporate this information naturally in your response if relevant, and include the source URL.")
	return sb.String()
}
