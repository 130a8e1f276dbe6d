package search

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// fold lower-cases s and strips combining marks, so "Dompé" matches "dompe".
func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(out)
}

// RewriteQuery scopes a query to the company unless it already names it.
func RewriteQuery(query, company string) string {
	company = strings.TrimSpace(company)
	if company == "" {
		return query
	}
	token := fold(strings.Fields(company)[0])
	if strings.Contains(fold(query), token) {
		return query
	}
	return query + " " + company
}
