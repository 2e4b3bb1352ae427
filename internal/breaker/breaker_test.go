package breaker

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBadResponsesThreshold(t *testing.T) {
	t.Parallel()

	b := New(Config{MaxBadResponses: 10}, nil)
	for i := 1; i <= 9; i++ {
		require.True(t, b.ShouldAllow("example.org"))
		b.RecordOutcome("example.org", false)
	}
	require.False(t, b.Blacklisted("example.org"), "9th failure must not blacklist")

	require.True(t, b.ShouldAllow("example.org"))
	b.RecordOutcome("example.org", false)
	require.True(t, b.Blacklisted("example.org"), "10th failure must blacklist")
	require.False(t, b.ShouldAllow("example.org"))

	status := b.Status("example.org")
	require.Equal(t, 10, status.Requests)
	require.Equal(t, 10, status.BadResponses)
	require.Equal(t, ReasonBadResponses, status.Reason)
}

func TestSuccessesNeverBlacklist(t *testing.T) {
	t.Parallel()

	b := New(Config{}, nil)
	for i := 0; i < 100; i++ {
		require.True(t, b.ShouldAllow("womensaid.org.uk"))
		b.RecordOutcome("womensaid.org.uk", true)
	}
	require.False(t, b.Blacklisted("womensaid.org.uk"))
	require.Zero(t, b.Status("womensaid.org.uk").BadResponses)
}

func TestMaxRequestsThreshold(t *testing.T) {
	t.Parallel()

	b := New(Config{MaxRequests: 3}, nil)
	require.True(t, b.ShouldAllow("example.com"))
	require.True(t, b.ShouldAllow("example.com"))
	require.True(t, b.ShouldAllow("example.com"))
	require.False(t, b.ShouldAllow("example.com"))
	require.Equal(t, ReasonRequests, b.Status("example.com").Reason)
	require.Equal(t, 3, b.Status("example.com").Requests)

	require.True(t, b.ShouldAllow("other.com"))
}

func TestBlacklistIsPermanent(t *testing.T) {
	t.Parallel()

	b := New(Config{MaxBadResponses: 1}, nil)
	b.RecordOutcome("Example.ORG", false)
	for i := 0; i < 20; i++ {
		b.RecordOutcome("example.org", true)
		require.False(t, b.ShouldAllow("example.org"))
	}
	require.True(t, b.Blacklisted("example.org."))
}

func TestStaticBlacklist(t *testing.T) {
	t.Parallel()

	b := New(Config{Static: []string{"bbc.co.uk", "*.gov", " Wikipedia.org "}}, nil)
	require.Equal(t, 3, b.StaticSize())
	for _, d := range []string{"bbc.co.uk", "whitehouse.gov", "wikipedia.org", "en.wikipedia.org"} {
		require.False(t, b.ShouldAllow(d), d)
		require.True(t, b.Blacklisted(d), d)
	}
	require.True(t, b.ShouldAllow("scotborders.gov.uk"))
	require.Equal(t, ReasonStatic, b.Status("bbc.co.uk").Reason)
	require.Empty(t, b.Status("bbc.co.uk").Requests)
}

func TestEmptyDomainIsNotGated(t *testing.T) {
	t.Parallel()

	b := New(Config{MaxRequests: 1}, nil)
	for i := 0; i < 5; i++ {
		require.True(t, b.ShouldAllow(""))
		b.RecordOutcome("", false)
	}
	require.Empty(t, b.Snapshot())
}

func TestListenerFiresOnce(t *testing.T) {
	t.Parallel()

	b := New(Config{MaxBadResponses: 2}, nil)
	var mu sync.Mutex
	var events []Reason
	b.OnBlacklist(func(domain string, reason Reason) {
		mu.Lock()
		defer mu.Unlock()
		require.Equal(t, "example.org", domain)
		events = append(events, reason)
	})
	for i := 0; i < 5; i++ {
		b.RecordOutcome("example.org", false)
	}
	require.Equal(t, []Reason{ReasonBadResponses}, events)
}

func TestConcurrentFailuresCrossThresholdExactlyOnce(t *testing.T) {
	t.Parallel()

	const workers = 64
	b := New(Config{MaxBadResponses: DefaultMaxBadResponses}, nil)
	var mu sync.Mutex
	trips := 0
	b.OnBlacklist(func(string, Reason) {
		mu.Lock()
		trips++
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			b.ShouldAllow("flaky.org")
			b.RecordOutcome("flaky.org", false)
			b.ShouldAllow("steady.org")
			b.RecordOutcome("steady.org", true)
		}()
	}
	wg.Wait()

	require.Equal(t, 1, trips)
	require.Equal(t, workers, b.Status("flaky.org").BadResponses)
	require.True(t, b.Blacklisted("flaky.org"))
	require.False(t, b.Blacklisted("steady.org"))
	require.Equal(t, workers, b.Status("steady.org").Requests)

	snap := b.Snapshot()
	require.Len(t, snap, 2)
	require.Equal(t, "flaky.org", snap[0].Domain)
	require.Equal(t, "steady.org", snap[1].Domain)
}
