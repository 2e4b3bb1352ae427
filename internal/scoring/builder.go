package scoring

// Score is the normalised outcome of one scoring call.
type Score struct {
	Value float64
	// Matched lists the matching predicates in evaluation order.
	Matched []Predicate
	// Vetoed is set when a veto predicate forced the minimum score.
	Vetoed bool
}

// Labels returns the alias or name of each matched predicate.
func (s Score) Labels() []string {
	out := make([]string, len(s.Matched))
	for i, p := range s.Matched {
		out[i] = Label(p)
	}
	return out
}

// Builder compounds predicate weights sequentially. The zero value is ready
// to use.
type Builder struct {
	value   float64
	matched []Predicate
	vetoed  bool
}

// Compound records a matched predicate and folds in its weights. A veto
// freezes the builder.
func (b *Builder) Compound(p Predicate) {
	if b.vetoed {
		return
	}
	b.matched = append(b.matched, p)
	w := p.Weights()
	if w.IsVeto() {
		b.vetoed = true
		return
	}
	b.Apply(w.Constant, w.Scaling)
}

// Apply performs value = (value + constant) * scaling. Contextual
// adjustments go through here too.
func (b *Builder) Apply(constant, scaling float64) {
	if b.vetoed {
		return
	}
	b.value = (b.value + constant) * scaling
}

// Raw returns the accumulated value before normalisation.
func (b *Builder) Raw() float64 { return b.value }

// Vetoed reports whether a veto predicate has matched.
func (b *Builder) Vetoed() bool { return b.vetoed }

// Score normalises the accumulated value. The calibration must already be valid.
func (b *Builder) Score(c Calibration) Score {
	matched := make([]Predicate, len(b.matched))
	copy(matched, b.matched)
	if b.vetoed {
		return Score{Value: MinScore, Matched: matched, Vetoed: true}
	}
	return Score{Value: c.apply(b.value), Matched: matched}
}
