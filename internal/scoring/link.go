package scoring

import "fmt"

// SuffixResolver extracts the public suffix of a URL, e.g. "org.uk".
type SuffixResolver interface {
	PublicSuffix(rawURL string) (string, error)
}

// LinkConfig tunes the link scorer.
type LinkConfig struct {
	Percentile90 float64
	// ParentFactor scales the parent page's score into the link's raw score.
	ParentFactor float64
}

// LinkScorer scores discovered URLs before they are fetched.
type LinkScorer struct {
	cfg         LinkConfig
	calibration Calibration
	resolver    SuffixResolver
	predicates  []Predicate
}

// NewLinkScorer validates the calibration. A nil resolver disables
// DomainSuffix predicates.
func NewLinkScorer(cfg LinkConfig, resolver SuffixResolver, predicates []Predicate) (*LinkScorer, error) {
	cal := Percentile90(cfg.Percentile90)
	if err := cal.Validate(); err != nil {
		return nil, fmt.Errorf("link scorer: %w", err)
	}
	ps := make([]Predicate, len(predicates))
	copy(ps, predicates)
	return &LinkScorer{cfg: cfg, calibration: cal, resolver: resolver, predicates: ps}, nil
}

// Score rates rawURL, propagating a share of the parent page's score.
func (s *LinkScorer) Score(rawURL string, parentScore float64) Score {
	suffix := ""
	if s.resolver != nil {
		if sfx, err := s.resolver.PublicSuffix(rawURL); err == nil {
			suffix = sfx
		}
	}
	subject := LinkSubject(rawURL, suffix)

	var b Builder
	for _, p := range s.predicates {
		if !p.evaluate(subject) {
			continue
		}
		b.Compound(p)
		if b.Vetoed() {
			break
		}
	}
	b.Apply(s.cfg.ParentFactor*parentScore, 1)
	return b.Score(s.calibration)
}
