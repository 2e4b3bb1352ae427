// Package scoring turns weighted predicates into bounded relevance scores.
//
// A scorer owns an ordered list of predicates. Each matching predicate is
// compounded into a running value with (value + constant) * scale, so
// declaration order matters. The accumulated value is mapped into the open
// interval (-1, 1) by a logistic curve fitted through a calibration point.
//
// Scorers hold no mutable state after construction and are safe for
// concurrent use.
package scoring
