package assistant

import "strings"

const (
	clarificationToken = "NEEDS_CLARIFICATION"
	negativeToken      = "NO"
)

// NeedsSearch reads the knowledge-check reply. Any occurrence of "NO" in the
// upper-cased reply counts as a negative answer, including words like "KNOW"
// or "NOT". A blank or unexpected reply without it skips the search.
func NeedsSearch(reply string) bool {
	return strings.Contains(strings.ToUpper(reply), negativeToken)
}

// NeedsClarification reads the clarity-check reply.
func NeedsClarification(reply string) bool {
	return strings.Contains(strings.ToUpper(reply), clarificationToken)
}
