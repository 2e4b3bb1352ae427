package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/dvsvc-crawler/internal/frontier"
	"github.com/JakeFAU/dvsvc-crawler/internal/scoring"
)

var (
	queued  = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	crawled = time.Date(2024, 3, 1, 9, 5, 0, 0, time.UTC)
)

func newMockStore(t *testing.T) (*ItemStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	store, err := NewItemStoreWithPool(mock, "", "")
	require.NoError(t, err)
	return store, mock
}

func sampleItem(link string, pscore float64, lscore *float64) frontier.CrawlItem {
	item := frontier.CrawlItem{
		Link:        link,
		PageScore:   scoring.Score{Value: pscore},
		TimeQueued:  queued,
		TimeCrawled: crawled,
	}
	if lscore != nil {
		item.LinkScore = &scoring.Score{Value: *lscore}
	}
	return item
}

func TestItemizeInsertsUnbatchedRow(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	lscore := 0.4
	item := sampleItem("https://www.refuge.org.uk/", 0.97, &lscore)

	mock.ExpectQuery("INSERT INTO crawl_item").
		WithArgs(item.Link, 0.97, &lscore, &queued, &crawled, (*int64)(nil)).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(11)))

	require.NoError(t, store.Itemize(context.Background(), item))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestItemizeSeedHasNullLinkScore(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	item := sampleItem("https://www.scotborders.gov.uk/directory/21/domestic_abuse_services", 0.96, nil)
	item.TimeQueued = time.Time{}

	mock.ExpectQuery("INSERT INTO crawl_item").
		WithArgs(item.Link, 0.96, (*float64)(nil), (*time.Time)(nil), &crawled, (*int64)(nil)).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(1)))

	require.NoError(t, store.Itemize(context.Background(), item))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFlushBatchWritesBatchThenItems(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	batched := crawled.Add(time.Minute)
	batch := frontier.Batch{
		Domain: "womensaid.org.uk",
		Items: []frontier.CrawlItem{
			sampleItem("https://womensaid.org.uk/a", 0.85, nil),
			sampleItem("https://womensaid.org.uk/b", 0.9, nil),
		},
		TimeBatched: batched,
	}
	batchID := int64(7)

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO crawl_item_batch").
		WithArgs(batched).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(batchID))
	for i, item := range batch.Items {
		mock.ExpectQuery("INSERT INTO crawl_item \\(").
			WithArgs(item.Link, item.PageScore.Value, (*float64)(nil), &queued, &crawled, &batchID).
			WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(100 + i)))
	}
	mock.ExpectCommit()

	require.NoError(t, store.FlushBatch(context.Background(), batch))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFlushBatchRollsBackOnItemFailure(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	batch := frontier.Batch{
		Items:       []frontier.CrawlItem{sampleItem("https://womensaid.org.uk/a", 0.85, nil)},
		TimeBatched: crawled,
	}

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO crawl_item_batch").
		WithArgs(crawled).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(3)))
	mock.ExpectQuery("INSERT INTO crawl_item \\(").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	err := store.FlushBatch(context.Background(), batch)
	require.Error(t, err)
	require.Contains(t, err.Error(), "disk full")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFlushBatchBeginFailure(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	mock.ExpectBegin().WillReturnError(errors.New("no connection"))

	err := store.FlushBatch(context.Background(), frontier.Batch{TimeBatched: crawled})
	require.ErrorContains(t, err, "begin batch")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnsureSchema(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS crawl_item_batch").
		WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))

	require.NoError(t, store.EnsureSchema(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNewItemStoreWithPoolValidation(t *testing.T) {
	t.Parallel()

	_, err := NewItemStoreWithPool(nil, "", "")
	require.Error(t, err)

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	_, err = NewItemStoreWithPool(mock, "items; DROP TABLE x", "")
	require.ErrorContains(t, err, "invalid table name")

	var zero *ItemStore
	require.ErrorIs(t, zero.Itemize(context.Background(), frontier.CrawlItem{}), ErrNotConfigured)
}

func TestNewItemStoreRequiresDSN(t *testing.T) {
	t.Parallel()

	_, err := NewItemStore(context.Background(), Config{})
	require.ErrorContains(t, err, "database.url is required")
}
