// Package heuristics holds the tuned predicate tables for domestic-violence
// support services.
package heuristics

import (
	"github.com/JakeFAU/dvsvc-crawler/internal/scoring"
)

// Link scorer tuning.
const (
	LinkPercentile90 = 25
	LinkParentFactor = 0.2
)

var (
	w     = scoring.W
	group = scoring.Any
	re    = scoring.MustRegex
)

// LinkPredicates returns the URL predicates in evaluation order. Word weights
// are lower than on pages because a URL offers far less context.
func LinkPredicates() []scoring.Predicate {
	return []scoring.Predicate{
		re(w(2), group("victim")),
		re(w(2), group("rape")),
		re(w(3), group("abus")),
		re(w(3), group("assault", "assaulted"), group("sexual")),
		re(w(2), group("surviv")),
		re(w(1), group("homeless")),
		re(w(2), group("shelter")),
		re(w(2), group("refuge")),
		re(w(6), group("domestic"), group("violence", "abuse", "abuser")),
		re(w(1), group("agenc")),
		re(w(1), group("organisation", "organization")),
		re(w(2), group("neglect"), group("partner", "child")),
		re(w(4), group("crisis"), group("line", "centre")),
		re(w(3), group("crisis"), group("abuse", "volence")),
		re(w(2), group("lgbt", "grsm")),
		re(w(2), group("emergency")),
		re(w(2), group("advisor")),
		re(w(1), group("counsel")),
		re(w(2), group("empower")),
		re(w(2), group("woman", "women")),
		re(w(1), group("ptsd")),
		re(w(1), group("therapy", "therapist")),
		re(w(1), group("service"), group("violence", "line", "abuse")),
		re(w(1), group("communit")),
		re(w(1), group("relationship")),
		re(w(1), group("coalition")),
		re(w(2), group("violence")),
		re(w(3), group("harass")),
		re(w(3), group("sanctuar")),
		re(w(2), group("haven", "havens")),
		re(w(2), group("neglect")),
		re(w(2), group("trust")),
		re(w(1), group("house", "housing")),
		re(w(3), group("charit")),
		re(w(2), group("foundation")),
		re(w(4), group("marriage"), group("force")),
		re(w(4), group("trauma")),
		re(w(2), group("confidential")),
		re(w(3), group("helpline")),
		// Top-level and second-level domains.
		re(w(0).Scale(0.6), group(`\.co\.uk($|/)`)),
		re(w(0).Scale(0.8), group(`\.ac\.uk($|/)`)),
		re(w(5).Scale(1.2), group(`\.gov\.uk($|/)`)),
		re(w(5).Scale(1.2), group(`\.gov\.scot($|/)`)),
		re(w(2).Scale(1.4), group(`\.org($|/)`)),
		re(w(5).Scale(1.4), group(`\.org\.uk($|/)`)),
		re(w(-5).Scale(0.8), group(`\.com($|/)`)),
		re(w(-3).Scale(0.8), group(`\.co.uk($|/)`)),
		// Out of region.
		re(scoring.Veto(), group(`\.gov($|/)`)),
		re(scoring.Veto(), group(`\.edu($|/)`)),
		re(scoring.Veto(), group(`\.au($|/)`)),
		re(scoring.Veto(), group(`\.nz($|/)`)),
		re(scoring.Veto(), group(`\.ie($|/)`)),
		re(scoring.Veto(), group(`\.ca($|/)`)),
		re(scoring.Veto(), group(`\.us($|/)`)),
		re(scoring.Veto(), group(`\.jm($|/)`)),
		re(scoring.Veto(), group(`\.bb($|/)`)),
		re(scoring.Veto(), group(`\.tt($|/)`)),
		re(scoring.Veto(), group(`\.ng($|/)`)),
		re(scoring.Veto(), group(`\.gy($|/)`)),
		re(scoring.Veto(), group(`\.bz($|/)`)),
	}
}
