package breaker

import "strings"

// patternList matches registrable domains against exact entries and suffix
// wildcards ("*.gov.uk" or ".gov.uk").
type patternList struct {
	exact    map[string]struct{}
	suffixes []string
}

func newPatternList(patterns []string) *patternList {
	list := &patternList{exact: make(map[string]struct{})}
	for _, raw := range patterns {
		value := strings.TrimSpace(strings.ToLower(raw))
		switch {
		case value == "":
		case strings.HasPrefix(value, "*."):
			list.addSuffix(strings.TrimPrefix(value, "*."))
		case strings.HasPrefix(value, "."):
			list.addSuffix(strings.TrimPrefix(value, "."))
		default:
			list.exact[value] = struct{}{}
		}
	}
	return list
}

func (l *patternList) addSuffix(suffix string) {
	if suffix == "" {
		return
	}
	for _, existing := range l.suffixes {
		if existing == suffix {
			return
		}
	}
	l.suffixes = append(l.suffixes, suffix)
}

// Matches reports whether domain, or any parent of it, is listed. Exact
// entries also cover subdomains, so "sky.com" blocks "news.sky.com".
func (l *patternList) Matches(domain string) bool {
	if l == nil {
		return false
	}
	domain = strings.TrimSpace(strings.ToLower(domain))
	if domain == "" {
		return false
	}
	for d := domain; d != ""; {
		if _, ok := l.exact[d]; ok {
			return true
		}
		dot := strings.IndexByte(d, '.')
		if dot < 0 {
			break
		}
		d = d[dot+1:]
	}
	for _, suffix := range l.suffixes {
		if domain == suffix || strings.HasSuffix(domain, "."+suffix) {
			return true
		}
	}
	return false
}

func (l *patternList) Len() int {
	if l == nil {
		return 0
	}
	return len(l.exact) + len(l.suffixes)
}
