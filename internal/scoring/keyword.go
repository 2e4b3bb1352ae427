package scoring

import "strings"

// KeywordToken matches exact members of the subject's token set.
type KeywordToken struct {
	weights Weights
	sets    []KeywordSet
}

// NewKeywordToken builds a token-membership predicate. Every set must be satisfied.
func NewKeywordToken(w Weights, sets ...KeywordSet) *KeywordToken {
	return &KeywordToken{weights: w, sets: sets}
}

// Weights implements Predicate.
func (p *KeywordToken) Weights() Weights { return p.weights }

// Name implements Predicate.
func (p *KeywordToken) Name() string { return describeSets("KeywordToken", p.sets) }

func (p *KeywordToken) evaluate(s *Subject) bool {
	return allSatisfied(p.sets, func(w string) bool {
		_, ok := s.Tokens[w]
		return ok
	})
}

// KeywordSearch matches keywords anywhere in the lower-cased subject text,
// so a stem such as "abus" catches "abuse" and "abusive".
type KeywordSearch struct {
	weights Weights
	sets    []KeywordSet
}

// NewKeywordSearch builds a substring-containment predicate.
func NewKeywordSearch(w Weights, sets ...KeywordSet) *KeywordSearch {
	return &KeywordSearch{weights: w, sets: sets}
}

// Weights implements Predicate.
func (p *KeywordSearch) Weights() Weights { return p.weights }

// Name implements Predicate.
func (p *KeywordSearch) Name() string { return describeSets("KeywordSearch", p.sets) }

func (p *KeywordSearch) evaluate(s *Subject) bool {
	return allSatisfied(p.sets, func(w string) bool {
		return strings.Contains(s.Raw, w)
	})
}

// KeywordPhrase matches multi-word phrases against consecutive subject words.
// Phrases are cleaned the same way page text is, so "Women's Aid" is stored
// as "women s aid".
type KeywordPhrase struct {
	weights  Weights
	sets     []KeywordSet
	maxWords int
}

// NewKeywordPhrase builds a whole-phrase predicate.
func NewKeywordPhrase(w Weights, sets ...KeywordSet) *KeywordPhrase {
	maxWords := 1
	cleaned := make([]KeywordSet, 0, len(sets))
	for _, set := range sets {
		phrases := make([]string, 0, len(set.Words))
		for _, phrase := range set.Words {
			phrase = CleanText(phrase)
			if phrase == "" {
				continue
			}
			if n := len(strings.Fields(phrase)); n > maxWords {
				maxWords = n
			}
			phrases = append(phrases, phrase)
		}
		cleaned = append(cleaned, SetN(set.RequiredOccurrences, phrases...))
	}
	return &KeywordPhrase{weights: w, sets: cleaned, maxWords: maxWords}
}

// Weights implements Predicate.
func (p *KeywordPhrase) Weights() Weights { return p.weights }

// Name implements Predicate.
func (p *KeywordPhrase) Name() string { return describeSets("KeywordPhrase", p.sets) }

func (p *KeywordPhrase) evaluate(s *Subject) bool {
	present := p.ngrams(s.Words)
	return allSatisfied(p.sets, func(w string) bool {
		_, ok := present[w]
		return ok
	})
}

func (p *KeywordPhrase) ngrams(words []string) map[string]struct{} {
	out := make(map[string]struct{}, len(words)*p.maxWords)
	var b strings.Builder
	for i := range words {
		b.Reset()
		for n := 0; n < p.maxWords && i+n < len(words); n++ {
			if n > 0 {
				b.WriteByte(' ')
			}
			b.WriteString(words[i+n])
			out[b.String()] = struct{}{}
		}
	}
	return out
}
