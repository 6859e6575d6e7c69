package provider

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// CleanText reduces an HTML fragment to plain text with collapsed whitespace.
func CleanText(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return collapseSpaces(s)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return collapseSpaces(s)
	}

	return collapseSpaces(doc.Text())
}

// NormalizeCategory title-cases all-lowercase categories ("technology" ->
// "Technology") and leaves anything already cased alone ("AI", "Tech").
func NormalizeCategory(category string) string {
	category = collapseSpaces(category)
	if category == "" || category != strings.ToLower(category) {
		return category
	}
	// Casers are stateful; one per call.
	return cases.Title(language.English).String(category)
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
