package scoring

import (
	"fmt"
	"math"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Weights carries the contribution of a matching predicate.
type Weights struct {
	Constant float64
	Scaling  float64
	Alias    string
	Topic    int
}

// W returns weights with the given additive constant and a unit scale.
func W(constant float64) Weights {
	return Weights{Constant: constant, Scaling: 1}
}

// Veto returns weights that reject the subject outright.
func Veto() Weights {
	return W(math.Inf(-1))
}

// Scale sets the multiplicative weight.
func (w Weights) Scale(s float64) Weights {
	w.Scaling = s
	return w
}

// As sets the provenance alias.
func (w Weights) As(alias string) Weights {
	w.Alias = alias
	return w
}

// OnTopic assigns the predicate to a topic group. Zero means no topic.
func (w Weights) OnTopic(topic int) Weights {
	w.Topic = topic
	return w
}

// IsVeto reports whether a match short-circuits the score to its minimum.
func (w Weights) IsVeto() bool {
	return math.IsInf(w.Constant, -1)
}

// Predicate is a single weighted signal. The set of implementations is
// closed: KeywordToken, KeywordSearch, KeywordPhrase, Regex, DomainSuffix and
// Structural.
type Predicate interface {
	Weights() Weights
	// Name identifies the predicate in provenance output when it has no alias.
	Name() string
	evaluate(s *Subject) bool
}

// Label returns the alias of p, or its name when no alias is configured.
func Label(p Predicate) string {
	if alias := p.Weights().Alias; alias != "" {
		return alias
	}
	return p.Name()
}

// Subject is everything a predicate may inspect. Scorers build one per call.
type Subject struct {
	// Doc is nil when scoring a URL.
	Doc *goquery.Document
	// Raw is the lower-cased, otherwise unmodified text.
	Raw string
	// Text is Raw with punctuation collapsed to single spaces.
	Text   string
	Words  []string
	Tokens map[string]struct{}
	// Suffix is empty when no public suffix could be resolved.
	Suffix string
}

func newTextSubject(raw string) *Subject {
	raw = strings.ToLower(raw)
	text := CleanText(raw)
	words := strings.Fields(text)
	return &Subject{
		Raw:    raw,
		Text:   text,
		Words:  words,
		Tokens: tokenSet(words),
	}
}

func tokenSet(words []string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

// KeywordSet is an alternation of keywords. It is satisfied when at least
// RequiredOccurrences distinct members are found.
type KeywordSet struct {
	Words               []string
	RequiredOccurrences int
}

// Set builds a keyword set satisfied by any one member.
func Set(words ...string) KeywordSet {
	return SetN(1, words...)
}

// SetN builds a keyword set satisfied by n distinct members.
func SetN(n int, words ...string) KeywordSet {
	if n < 1 {
		n = 1
	}
	normalized := make([]string, 0, len(words))
	seen := make(map[string]struct{}, len(words))
	for _, w := range words {
		w = strings.ToLower(strings.TrimSpace(w))
		if w == "" {
			continue
		}
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		normalized = append(normalized, w)
	}
	return KeywordSet{Words: normalized, RequiredOccurrences: n}
}

func (k KeywordSet) satisfied(contains func(string) bool) bool {
	found := 0
	for _, w := range k.Words {
		if contains(w) {
			found++
			if found >= k.RequiredOccurrences {
				return true
			}
		}
	}
	return false
}

func allSatisfied(sets []KeywordSet, contains func(string) bool) bool {
	if len(sets) == 0 {
		return false
	}
	for _, set := range sets {
		if !set.satisfied(contains) {
			return false
		}
	}
	return true
}

func describeSets(kind string, sets []KeywordSet) string {
	parts := make([]string, 0, len(sets))
	for _, set := range sets {
		first := ""
		if len(set.Words) > 0 {
			first = set.Words[0]
		}
		parts = append(parts, fmt.Sprintf("{%s ...}", first))
	}
	return kind + "(" + strings.Join(parts, " ") + ")"
}
