package scoring

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// DocumentTest is a boolean check over a parsed page.
type DocumentTest interface {
	Matches(doc *goquery.Document) bool
	String() string
}

// Structural matches when its DocumentTest passes. It never matches a URL subject.
type Structural struct {
	weights Weights
	test    DocumentTest
}

// NewStructural wraps a document test as a predicate.
func NewStructural(w Weights, test DocumentTest) *Structural {
	return &Structural{weights: w, test: test}
}

// Weights implements Predicate.
func (p *Structural) Weights() Weights { return p.weights }

// Name implements Predicate.
func (p *Structural) Name() string { return "Structural(" + p.test.String() + ")" }

func (p *Structural) evaluate(s *Subject) bool {
	if s.Doc == nil || p.test == nil {
		return false
	}
	return p.test.Matches(s.Doc)
}

// QuickExitCounting selects how bucket hits on one element add to the total.
type QuickExitCounting int

const (
	// CountGated adds one for a primary bucket hit and lets the secondary
	// buckets add one each only on an element that hit the primary bucket.
	CountGated QuickExitCounting = iota
	// CountPerElement adds one for every element that hits any bucket.
	CountPerElement
	// CountPerBucket adds one for every bucket an element hits, up to three.
	CountPerBucket
)

// ParseQuickExitCounting maps a configuration string to a counting rule.
func ParseQuickExitCounting(s string) (QuickExitCounting, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "gated":
		return CountGated, nil
	case "per_element", "element":
		return CountPerElement, nil
	case "per_bucket", "bucket":
		return CountPerBucket, nil
	default:
		return 0, fmt.Errorf("unknown quick exit counting rule %q", s)
	}
}

func (c QuickExitCounting) String() string {
	switch c {
	case CountPerElement:
		return "per_element"
	case CountPerBucket:
		return "per_bucket"
	default:
		return "gated"
	}
}

// DefaultNecessaryMatches is the quick-exit count a page needs to match.
const DefaultNecessaryMatches = 2

// Quick-exit vocabulary. The buckets are disjoint.
var (
	QuickExitActions = []string{"close", "exit", "leave", "hide"}
	QuickExitUrgency = []string{"now", "quick", "quickly", "emergency", "instant", "instantly", "fast"}
	QuickExitTargets = []string{"site", "website", "page", "webpage", "history", "visit"}
)

// quickExitSelectors are queried separately, so an anchor carrying an onclick
// handler is inspected twice.
var quickExitSelectors = []string{"a", "button", "[onclick]"}

// QuickExit detects a discoverable "leave this site" control.
type QuickExit struct {
	Counting         QuickExitCounting
	NecessaryMatches int
	buckets          [3]map[string]struct{}
}

// NewQuickExit builds the detector with the standard vocabulary.
func NewQuickExit(counting QuickExitCounting, necessaryMatches int) *QuickExit {
	if necessaryMatches <= 0 {
		necessaryMatches = DefaultNecessaryMatches
	}
	return &QuickExit{
		Counting:         counting,
		NecessaryMatches: necessaryMatches,
		buckets: [3]map[string]struct{}{
			tokenSet(QuickExitActions),
			tokenSet(QuickExitUrgency),
			tokenSet(QuickExitTargets),
		},
	}
}

func (q *QuickExit) String() string {
	return fmt.Sprintf("quick-exit %s >= %d", q.Counting, q.NecessaryMatches)
}

// Matches implements DocumentTest.
func (q *QuickExit) Matches(doc *goquery.Document) bool {
	return q.Count(doc) >= q.NecessaryMatches
}

// Count returns the raw match count under the configured rule.
func (q *QuickExit) Count(doc *goquery.Document) int {
	if doc == nil {
		return 0
	}
	total := 0
	for _, sel := range quickExitSelectors {
		doc.Find(sel).Each(func(_ int, el *goquery.Selection) {
			total += q.countElement(strings.Fields(strings.ToLower(el.Text())))
		})
	}
	return total
}

func (q *QuickExit) countElement(words []string) int {
	var hits [3]bool
	for _, w := range words {
		for i, bucket := range q.buckets {
			if _, ok := bucket[w]; ok {
				hits[i] = true
			}
		}
	}
	switch q.Counting {
	case CountPerElement:
		if hits[0] || hits[1] || hits[2] {
			return 1
		}
		return 0
	case CountPerBucket:
		n := 0
		for _, hit := range hits {
			if hit {
				n++
			}
		}
		return n
	default:
		if !hits[0] {
			return 0
		}
		n := 1
		if hits[1] {
			n++
		}
		if hits[2] {
			n++
		}
		return n
	}
}
