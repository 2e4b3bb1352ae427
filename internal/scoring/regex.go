package scoring

import (
	"fmt"
	"regexp"
	"strings"
)

// Regex matches when every pattern group finds at least one occurrence in the
// lower-cased raw subject.
type Regex struct {
	weights Weights
	groups  []*regexp.Regexp
	source  [][]string
}

// NewRegex compiles each group into a single alternation.
func NewRegex(w Weights, groups ...[]string) (*Regex, error) {
	if len(groups) == 0 {
		return nil, fmt.Errorf("regex predicate needs at least one group")
	}
	compiled := make([]*regexp.Regexp, 0, len(groups))
	for i, group := range groups {
		if len(group) == 0 {
			return nil, fmt.Errorf("regex group %d is empty", i)
		}
		alts := make([]string, len(group))
		for j, term := range group {
			alts[j] = "(?:" + term + ")"
		}
		re, err := regexp.Compile(strings.Join(alts, "|"))
		if err != nil {
			return nil, fmt.Errorf("compile regex group %d: %w", i, err)
		}
		compiled = append(compiled, re)
	}
	return &Regex{weights: w, groups: compiled, source: groups}, nil
}

// MustRegex is NewRegex for static tables; it panics on a bad pattern.
func MustRegex(w Weights, groups ...[]string) *Regex {
	p, err := NewRegex(w, groups...)
	if err != nil {
		panic(err)
	}
	return p
}

// Any is shorthand for a regex group literal.
func Any(terms ...string) []string {
	return terms
}

// Weights implements Predicate.
func (p *Regex) Weights() Weights { return p.weights }

// Name implements Predicate.
func (p *Regex) Name() string {
	parts := make([]string, len(p.source))
	for i, group := range p.source {
		parts[i] = "{" + strings.Join(group, "|") + "}"
	}
	return "Regex(" + strings.Join(parts, " ") + ")"
}

func (p *Regex) evaluate(s *Subject) bool {
	for _, re := range p.groups {
		if !re.MatchString(s.Raw) {
			return false
		}
	}
	return true
}

// DomainSuffix matches the exact public suffix of the subject, e.g. "org.uk".
type DomainSuffix struct {
	weights Weights
	suffix  string
}

// NewDomainSuffix builds a suffix predicate. A leading dot is ignored.
func NewDomainSuffix(w Weights, suffix string) *DomainSuffix {
	suffix = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(suffix)), ".")
	return &DomainSuffix{weights: w, suffix: suffix}
}

// Weights implements Predicate.
func (p *DomainSuffix) Weights() Weights { return p.weights }

// Name implements Predicate.
func (p *DomainSuffix) Name() string { return "DomainSuffix(" + p.suffix + ")" }

func (p *DomainSuffix) evaluate(s *Subject) bool {
	return s.Suffix != "" && s.Suffix == p.suffix
}
