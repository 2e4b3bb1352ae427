package frontier

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// DefaultMaxURLLength drops pathological URLs before they are scheduled.
const DefaultMaxURLLength = 2048

// ExtractLinks returns the distinct absolute http(s) URLs of every anchor in
// doc, without fragments, in document order. Relative links resolve against
// the document's <base href> when present, otherwise against base.
func ExtractLinks(doc *goquery.Document, base string) []string {
	if doc == nil {
		return nil
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return nil
	}
	if href, ok := doc.Find("base[href]").First().Attr("href"); ok {
		if declared, err := baseURL.Parse(strings.TrimSpace(href)); err == nil &&
			(declared.Scheme == "http" || declared.Scheme == "https") {
			baseURL = declared
		}
	}
	var out []string
	seen := make(map[string]struct{})
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		if abs, ok := Canonicalize(baseURL, href); ok {
			if _, dup := seen[abs]; !dup {
				seen[abs] = struct{}{}
				out = append(out, abs)
			}
		}
	})
	return out
}

// Canonicalize resolves href against base and keeps it only when it is a
// crawlable http(s) URL within DefaultMaxURLLength.
func Canonicalize(base *url.URL, href string) (string, bool) {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return "", false
	}
	ref, err := url.Parse(href)
	if err != nil {
		return "", false
	}
	abs := ref
	if base != nil {
		abs = base.ResolveReference(ref)
	}
	if abs.Scheme != "http" && abs.Scheme != "https" {
		return "", false
	}
	if abs.Host == "" {
		return "", false
	}
	abs.Fragment = ""
	abs.RawFragment = ""
	s := abs.String()
	if len(s) > DefaultMaxURLLength {
		return "", false
	}
	return s, true
}
