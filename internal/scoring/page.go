package scoring

import "fmt"

// PageConfig tunes the page scorer.
type PageConfig struct {
	// Percentile90 is the raw score expected at the 90th percentile.
	Percentile90 float64
	// WordCountFactor is multiplied by the token count and added after the
	// predicates. Negative values penalise long pages.
	WordCountFactor float64
	// TopicCountFactor is multiplied by the number of distinct topics among
	// matched predicates.
	TopicCountFactor float64
}

// PageScorer scores fetched HTML documents.
type PageScorer struct {
	cfg         PageConfig
	calibration Calibration
	predicates  []Predicate
}

// NewPageScorer validates the calibration and freezes the predicate order.
func NewPageScorer(cfg PageConfig, predicates []Predicate) (*PageScorer, error) {
	cal := Percentile90(cfg.Percentile90)
	if err := cal.Validate(); err != nil {
		return nil, fmt.Errorf("page scorer: %w", err)
	}
	ps := make([]Predicate, len(predicates))
	copy(ps, predicates)
	return &PageScorer{cfg: cfg, calibration: cal, predicates: ps}, nil
}

// Predicates returns the configured predicates in evaluation order.
func (s *PageScorer) Predicates() []Predicate {
	out := make([]Predicate, len(s.predicates))
	copy(out, s.predicates)
	return out
}

// Score parses html and scores it.
func (s *PageScorer) Score(html string) Score {
	return s.ScoreSubject(ParseDocument(html))
}

// ScoreSubject scores an already parsed page.
func (s *PageScorer) ScoreSubject(subject *Subject) Score {
	var b Builder
	topics := make(map[int]struct{})
	for _, p := range s.predicates {
		if !p.evaluate(subject) {
			continue
		}
		b.Compound(p)
		if b.Vetoed() {
			break
		}
		if t := p.Weights().Topic; t != 0 {
			topics[t] = struct{}{}
		}
	}
	b.Apply(float64(len(subject.Tokens))*s.cfg.WordCountFactor, 1)
	b.Apply(float64(len(topics))*s.cfg.TopicCountFactor, 1)
	return b.Score(s.calibration)
}
