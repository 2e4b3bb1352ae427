package scoring

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var (
	punctuation = regexp.MustCompile("[`!@#$%^&*()_+\\-=\\[\\]{};':\"\\\\|,.<>/?~]+")
	whitespace  = regexp.MustCompile(`\s+`)
)

// invisibleSelector lists elements whose text never renders.
const invisibleSelector = "script, style, noscript, template"

// CleanText lower-cases s, replaces punctuation runs with a space and
// collapses whitespace.
func CleanText(s string) string {
	s = strings.ToLower(s)
	s = punctuation.ReplaceAllString(s, " ")
	s = whitespace.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// ParseDocument parses html best-effort. Unparseable input yields a page with
// no structure and no text rather than an error.
func ParseDocument(html string) *Subject {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return &Subject{Tokens: map[string]struct{}{}}
	}
	doc.Find(invisibleSelector).Remove()
	s := newTextSubject(doc.Text())
	s.Doc = doc
	return s
}

// LinkSubject prepares a URL for predicate evaluation.
func LinkSubject(rawURL, suffix string) *Subject {
	s := newTextSubject(rawURL)
	s.Suffix = strings.ToLower(suffix)
	return s
}
