package progress_test

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/JakeFAU/dvsvc-crawler/internal/progress"
)

// batchTotals counts the pages the crawl handed to storage in batches.
type batchTotals struct {
	batches int
	pages   int
}

func (b *batchTotals) Consume(_ context.Context, events []progress.Event) error {
	for _, evt := range events {
		b.batches++
		b.pages += evt.Items
	}
	return nil
}

func (b *batchTotals) Close(context.Context) error { return nil }

// A sink subscribed to one stage never sees fetch traffic.
func ExampleOnly() {
	totals := &batchTotals{}
	run := uuid.MustParse("0190d8a2-0000-7000-8000-000000000001")
	hub := progress.NewHub(run, progress.Config{FlushEvery: time.Minute},
		progress.Only(totals, progress.StageBatchFlushed))

	hub.Emit(progress.Event{
		Stage:       progress.StageFetchDone,
		URL:         "https://www.example.org.uk/refuge",
		StatusClass: progress.Status2xx,
	})
	hub.Emit(progress.Event{Stage: progress.StageBatchFlushed, Domain: "example.org.uk", Items: 3})
	hub.Emit(progress.Event{Stage: progress.StageBatchFlushed, Domain: "example.co.uk", Items: 2})
	if err := hub.Close(context.Background()); err != nil {
		panic(err)
	}

	fmt.Printf("batches=%d pages=%d\n", totals.batches, totals.pages)
	// Output:
	// batches=2 pages=5
}

func ExampleHub_Tally() {
	run := uuid.MustParse("0190d8a2-0000-7000-8000-000000000002")
	hub := progress.NewHub(run, progress.Config{})

	hub.Emit(progress.Event{Stage: progress.StageRejected, URL: "https://www.facebook.com/", Domain: "facebook.com"})
	hub.Emit(progress.Event{Stage: progress.StageRejected, URL: "https://www.bbc.co.uk/", Domain: "bbc.co.uk"})
	hub.Emit(progress.Event{Stage: progress.StageBlacklisted, Domain: "spam.com", Note: "bad_responses"})
	if err := hub.Close(context.Background()); err != nil {
		panic(err)
	}

	tally := hub.Tally()
	fmt.Println(tally[progress.StageRejected].Emitted, tally[progress.StageBlacklisted].Emitted)
	// Output:
	// 2 1
}
