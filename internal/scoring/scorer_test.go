package scoring

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

type stubSuffixes map[string]string

func (s stubSuffixes) PublicSuffix(rawURL string) (string, error) {
	if sfx, ok := s[rawURL]; ok {
		return sfx, nil
	}
	return "", errors.New("unresolved")
}

func newTestPageScorer(t *testing.T, cfg PageConfig) *PageScorer {
	t.Helper()
	scorer, err := NewPageScorer(cfg, []Predicate{
		NewKeywordToken(W(10).Scale(1.5).As("DOMESTIC-ABUSE"), Set("domestic"), Set("violence", "abuse")),
		NewKeywordToken(W(8).As("HELPLINE").OnTopic(2), Set("helpline", "hotline")),
		NewKeywordToken(W(-10).As("SUB-NEWS"), SetN(2, "news", "headline", "editor"), SetN(2, "weather", "sport", "politics")),
		NewStructural(W(10).As("QUICK-EXIT").OnTopic(3), NewQuickExit(CountGated, 2)),
	})
	require.NoError(t, err)
	return scorer
}

func TestPageScorerKeywordsRaiseScore(t *testing.T) {
	t.Parallel()

	scorer := newTestPageScorer(t, PageConfig{Percentile90: 30, WordCountFactor: -0.01})
	relevant := scorer.Score(`<html><body><h1>Domestic abuse support</h1><p>Call our team.</p></body></html>`)
	plain := scorer.Score(`<html><body><h1>Domestic flights support</h1><p>Call our team.</p></body></html>`)

	require.Greater(t, relevant.Value, plain.Value)
	require.Equal(t, []string{"DOMESTIC-ABUSE"}, relevant.Labels())
	require.Empty(t, plain.Matched)
}

func TestPageScorerWordCountPenalty(t *testing.T) {
	t.Parallel()

	scorer := newTestPageScorer(t, PageConfig{Percentile90: 30, WordCountFactor: -0.5})
	score := scorer.Score(`<p>one two three four</p>`)

	want, err := Normalize(4*-0.5, Percentile90(30))
	require.NoError(t, err)
	require.Equal(t, want, score.Value)
}

func TestPageScorerTopicAdjustment(t *testing.T) {
	t.Parallel()

	scorer := newTestPageScorer(t, PageConfig{Percentile90: 30, TopicCountFactor: 1})
	html := `<p>call our helpline</p><button>Exit site</button><a href="/">Leave now</a>`
	score := scorer.Score(html)
	require.Equal(t, []string{"HELPLINE", "QUICK-EXIT"}, score.Labels())

	want, err := Normalize((8+10)+2, Percentile90(30))
	require.NoError(t, err)
	require.Equal(t, want, score.Value)
}

func TestPageScorerIgnoresScriptText(t *testing.T) {
	t.Parallel()

	scorer := newTestPageScorer(t, PageConfig{Percentile90: 30})
	score := scorer.Score(`<script>var domestic = "abuse";</script><style>.helpline{}</style><p>hello</p>`)
	require.Empty(t, score.Matched)
	require.Zero(t, score.Value)
}

func TestPageScorerIsDeterministic(t *testing.T) {
	t.Parallel()

	scorer := newTestPageScorer(t, PageConfig{Percentile90: 30, WordCountFactor: -0.01})
	html := `<div><p>Domestic violence helpline</p><p>News headline: weather and sport</p><button>Quick exit</button></div>`
	first := scorer.Score(html)
	second := scorer.Score(html)
	require.Equal(t, math.Float64bits(first.Value), math.Float64bits(second.Value))
	require.Equal(t, first.Labels(), second.Labels())
}

func TestPageScorerMalformedHTML(t *testing.T) {
	t.Parallel()

	scorer := newTestPageScorer(t, PageConfig{Percentile90: 30})
	score := scorer.Score(`<div><p>domestic <b>abuse</p></span><<>`)
	require.Equal(t, []string{"DOMESTIC-ABUSE"}, score.Labels())
	require.Greater(t, score.Value, 0.0)
	require.Less(t, score.Value, 1.0)
}

func TestNewPageScorerRejectsCalibration(t *testing.T) {
	t.Parallel()

	_, err := NewPageScorer(PageConfig{Percentile90: 0}, nil)
	require.ErrorIs(t, err, ErrInvalidCalibration)
	_, err = NewLinkScorer(LinkConfig{Percentile90: -3}, nil, nil)
	require.ErrorIs(t, err, ErrInvalidCalibration)
}

func TestLinkScorerParentContribution(t *testing.T) {
	t.Parallel()

	scorer, err := NewLinkScorer(LinkConfig{Percentile90: 25, ParentFactor: 0.2}, nil, []Predicate{
		MustRegex(W(3), Any("abus")),
	})
	require.NoError(t, err)

	withParent := scorer.Score("https://example.org/abuse", 0.9)
	want, err := Normalize(3+0.2*0.9, Percentile90(25))
	require.NoError(t, err)
	require.Equal(t, want, withParent.Value)

	orphan := scorer.Score("https://example.org/abuse", 0)
	require.Greater(t, withParent.Value, orphan.Value)
}

func TestLinkScorerSuffixPredicates(t *testing.T) {
	t.Parallel()

	resolver := stubSuffixes{
		"https://www.example.org.uk/page": "org.uk",
		"https://www.example.com/page":    "com",
	}
	scorer, err := NewLinkScorer(LinkConfig{Percentile90: 25}, resolver, []Predicate{
		NewDomainSuffix(W(5).Scale(1.4).As("ORG-UK"), "org.uk"),
	})
	require.NoError(t, err)

	require.Equal(t, []string{"ORG-UK"}, scorer.Score("https://www.example.org.uk/page", 0).Labels())
	require.Empty(t, scorer.Score("https://www.example.com/page", 0).Matched)
	require.Empty(t, scorer.Score("https://unknown.invalid/", 0).Matched)
}

func TestLinkScorerVeto(t *testing.T) {
	t.Parallel()

	scorer, err := NewLinkScorer(LinkConfig{Percentile90: 25, ParentFactor: 0.2}, nil, []Predicate{
		MustRegex(W(6), Any("domestic")),
		MustRegex(Veto(), Any(`\.gov($|/)`)),
		MustRegex(W(2).Scale(1.4), Any(`\.org($|/)`)),
	})
	require.NoError(t, err)

	score := scorer.Score("https://domestic.agency.gov/", 0.99)
	require.True(t, score.Vetoed)
	require.Equal(t, MinScore, score.Value)
	require.Len(t, score.Matched, 2)
}
