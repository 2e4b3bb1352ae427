package progress

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

var testRun = uuid.MustParse("0190d8a2-0000-7000-8000-0000000000aa")

func fetchDone(url string) Event {
	return Event{Stage: StageFetchDone, URL: url, Domain: "example.org.uk", StatusClass: Status2xx}
}

func TestHubRoutesStagesToSubscribers(t *testing.T) {
	t.Parallel()

	everything := &recordingSink{}
	blacklist := &recordingSink{}
	hub := NewHub(testRun, Config{FlushEvery: time.Minute}, All(everything), Only(blacklist, StageBlacklisted))

	hub.Emit(Event{Stage: StageRunStart})
	hub.Emit(fetchDone("https://www.example.org.uk/"))
	hub.Emit(Event{Stage: StageBlacklisted, Domain: "spam.com", Note: "bad_responses"})
	hub.Emit(Event{Stage: StageRunDone})
	require.NoError(t, hub.Close(context.Background()))

	require.Equal(t, []Stage{StageRunStart, StageFetchDone, StageBlacklisted, StageRunDone}, everything.stages())
	require.Equal(t, []Stage{StageBlacklisted}, blacklist.stages())
	require.True(t, everything.closed() && blacklist.closed())
}

func TestHubStampsRunAndTime(t *testing.T) {
	t.Parallel()

	at := time.Date(2024, 3, 9, 12, 0, 0, 0, time.UTC)
	sink := &recordingSink{}
	hub := NewHub(testRun, Config{Now: func() time.Time { return at }}, All(sink))

	other := UUIDToBytes(uuid.MustParse("0190d8a2-0000-7000-8000-0000000000bb"))
	earlier := at.Add(-time.Hour)
	hub.Emit(Event{Stage: StageRunStart})
	hub.Emit(Event{Stage: StageItemized, URL: "https://www.example.org.uk/refuge", RunID: other, TS: earlier})
	require.NoError(t, hub.Close(context.Background()))

	events := sink.all()
	require.Len(t, events, 2)
	require.Equal(t, testRun, events[0].RunUUID())
	require.Equal(t, at, events[0].TS)
	require.Equal(t, other, events[1].RunID)
	require.Equal(t, earlier, events[1].TS)
}

func TestHubDeliversWhenBatchFills(t *testing.T) {
	t.Parallel()

	sink := &recordingSink{}
	hub := NewHub(testRun, Config{BatchSize: 2, FlushEvery: time.Minute}, All(sink))
	defer func() { require.NoError(t, hub.Close(context.Background())) }()

	hub.Emit(fetchDone("https://a.example.org.uk/"))
	hub.Emit(fetchDone("https://b.example.org.uk/"))
	require.Eventually(t, func() bool {
		batches := sink.batchSizes()
		return len(batches) == 1 && batches[0] == 2
	}, time.Second, 5*time.Millisecond)
}

func TestHubDeliversOnInterval(t *testing.T) {
	t.Parallel()

	sink := &recordingSink{}
	hub := NewHub(testRun, Config{BatchSize: 100, FlushEvery: 20 * time.Millisecond}, All(sink))
	defer func() { require.NoError(t, hub.Close(context.Background())) }()

	hub.Emit(Event{Stage: StageBatchFlushed, Domain: "example.org.uk", Items: 3})
	require.Eventually(t, func() bool { return len(sink.all()) == 1 }, time.Second, 5*time.Millisecond)
}

func TestHubShedsRequestEventsButKeepsMilestones(t *testing.T) {
	t.Parallel()

	sink := &recordingSink{}
	hub := newHub(testRun, Config{Buffer: 1, FlushEvery: time.Minute}, All(sink))

	hub.Emit(fetchDone("https://a.example.org.uk/"))
	hub.Emit(fetchDone("https://b.example.org.uk/"))
	hub.Emit(Event{Stage: StageRejected, URL: "https://www.facebook.com/", Domain: "facebook.com"})
	hub.Emit(Event{Stage: StageBlacklisted, Domain: "spam.com"})
	hub.Emit(Event{Stage: StageRunDone})

	go hub.run()
	require.NoError(t, hub.Close(context.Background()))

	require.Equal(t, []Stage{StageFetchDone, StageBlacklisted, StageRunDone}, sink.stages())
	tally := hub.Tally()
	require.Equal(t, Tally{Emitted: 2, Dropped: 1}, tally[StageFetchDone])
	require.Equal(t, Tally{Emitted: 1, Dropped: 1}, tally[StageRejected])
	require.Equal(t, Tally{Emitted: 1}, tally[StageBlacklisted])
	require.Equal(t, Tally{Emitted: 1}, tally[StageRunDone])
	require.EqualValues(t, 2, hub.Dropped())
}

func TestHubDiscardsInvalidAndLateEvents(t *testing.T) {
	t.Parallel()

	sink := &recordingSink{}
	hub := NewHub(testRun, Config{}, All(sink))

	hub.Emit(Event{Stage: StageBatchFlushed})
	hub.Emit(Event{Stage: "PAGE_SCORED"})
	require.NoError(t, hub.Close(context.Background()))
	hub.Emit(Event{Stage: StageRunDone})

	require.Empty(t, sink.all())
	require.Zero(t, hub.Tally()[StageRunDone].Emitted)
}

func TestHubSinkErrorsDoNotStopDelivery(t *testing.T) {
	t.Parallel()

	healthy := &recordingSink{}
	hub := NewHub(testRun, Config{}, All(&recordingSink{err: errors.New("topic gone")}), All(healthy))

	hub.Emit(Event{Stage: StageRunStart})
	require.NoError(t, hub.Close(context.Background()))
	require.Equal(t, []Stage{StageRunStart}, healthy.stages())
}

func TestHubCloseHonoursContext(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	stuck := &recordingSink{block: release}
	hub := NewHub(testRun, Config{SinkTimeout: time.Minute}, All(stuck))
	hub.Emit(Event{Stage: StageRunStart})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := hub.Close(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	close(release)
	require.NoError(t, hub.Close(context.Background()))
	require.Equal(t, []Stage{StageRunStart}, stuck.stages())
}

func TestNilHubIsInert(t *testing.T) {
	t.Parallel()

	var hub *Hub
	hub.Emit(Event{Stage: StageRunStart})
	require.Zero(t, hub.Dropped())
	require.NoError(t, hub.Close(context.Background()))
}

func TestMilestones(t *testing.T) {
	t.Parallel()

	for _, s := range Stages() {
		want := false
		for _, m := range Milestones() {
			if m == s {
				want = true
			}
		}
		require.Equal(t, want, s.Milestone(), "stage %s", s)
	}
}

func TestEventValidate(t *testing.T) {
	t.Parallel()

	valid := fetchDone("https://www.example.org.uk/help")
	valid.RunID = UUIDToBytes(testRun)
	valid.TS = time.Unix(1, 0)

	tests := []struct {
		name    string
		mutate  func(*Event)
		wantErr bool
	}{
		{name: "valid fetch", mutate: func(*Event) {}},
		{name: "missing run", mutate: func(e *Event) { e.RunID = [16]byte{} }, wantErr: true},
		{name: "missing ts", mutate: func(e *Event) { e.TS = time.Time{} }, wantErr: true},
		{name: "fetch without class", mutate: func(e *Event) { e.StatusClass = "" }, wantErr: true},
		{name: "fetch without url", mutate: func(e *Event) { e.URL = "" }, wantErr: true},
		{name: "rejection without url", mutate: func(e *Event) { e.Stage = StageRejected; e.URL = "" }, wantErr: true},
		{name: "batch without domain", mutate: func(e *Event) { e.Stage = StageBatchFlushed; e.Domain = "" }, wantErr: true},
		{name: "unknown stage", mutate: func(e *Event) { e.Stage = "NOPE" }, wantErr: true},
		{name: "negative duration", mutate: func(e *Event) { e.Dur = -time.Second }, wantErr: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			evt := valid
			tc.mutate(&evt)
			err := evt.Validate()
			if (err != nil) != tc.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestClassifyStatus(t *testing.T) {
	t.Parallel()

	require.Equal(t, Status2xx, ClassifyStatus(204))
	require.Equal(t, Status3xx, ClassifyStatus(302))
	require.Equal(t, Status4xx, ClassifyStatus(404))
	require.Equal(t, Status5xx, ClassifyStatus(503))
	require.Equal(t, StatusOther, ClassifyStatus(-1))
}

type recordingSink struct {
	mu       sync.Mutex
	batches  [][]Event
	err      error
	block    chan struct{}
	isClosed bool
}

func (s *recordingSink) Consume(_ context.Context, batch []Event) error {
	if s.block != nil {
		<-s.block
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.batches = append(s.batches, batch)
	return nil
}

func (s *recordingSink) Close(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.isClosed = true
	return nil
}

func (s *recordingSink) all() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Event
	for _, b := range s.batches {
		out = append(out, b...)
	}
	return out
}

func (s *recordingSink) stages() []Stage {
	var out []Stage
	for _, evt := range s.all() {
		out = append(out, evt.Stage)
	}
	return out
}

func (s *recordingSink) batchSizes() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]int, len(s.batches))
	for i, b := range s.batches {
		out[i] = len(b)
	}
	return out
}

func (s *recordingSink) closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isClosed
}
