package clientdb

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/epic-swf/stfmon/internal/common/database"
	"github.com/epic-swf/stfmon/internal/common/serviceerrors"
	"github.com/epic-swf/stfmon/internal/stfclient/metrics"
	"github.com/epic-swf/stfmon/internal/stfclient/model"
)

func withClientDb(t *testing.T, action func(c *ClientDb) error) {
	t.Helper()
	if !database.TestDbAvailable() {
		t.Skip("no test database available")
	}
	err := database.WithTestDb(Migrations(), func(db *pgxpool.Pool) error {
		return action(New(db, metrics.Get()))
	})
	require.NoError(t, err)
}

func testTf(runNumber int32, sizeBytes int64) *model.TfMetadata {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &model.TfMetadata{
		FileID:     uuid.New(),
		RunNumber:  runNumber,
		TfNumber:   1,
		FileURL:    "file:///data/" + uuid.NewString() + ".stf",
		SizeBytes:  sizeBytes,
		Checksum:   "abc123",
		Status:     "processed",
		CreatedAt:  now.Add(-time.Second),
		ReceivedAt: now,
	}
}

func TestUpsertInsertsAndIncrements(t *testing.T) {
	withClientDb(t, func(c *ClientDb) error {
		ctx := context.Background()
		tf := testTf(100123, 4096)

		inserted, err := c.Upsert(ctx, tf)
		require.NoError(t, err)
		assert.True(t, inserted)

		run, err := c.GetRun(ctx, 100123)
		require.NoError(t, err)
		assert.Equal(t, int64(1), run.TotalTfs)
		assert.Equal(t, int64(4096), run.TotalBytes)
		return nil
	})
}

func TestUpsertDuplicateLeavesAggregatesAlone(t *testing.T) {
	withClientDb(t, func(c *ClientDb) error {
		ctx := context.Background()
		tf := testTf(100123, 4096)

		inserted, err := c.Upsert(ctx, tf)
		require.NoError(t, err)
		assert.True(t, inserted)

		// Replay the same notification several times, with a field change
		// the upsert should apply.
		tf.Status = "done"
		for i := 0; i < 3; i++ {
			inserted, err = c.Upsert(ctx, tf)
			require.NoError(t, err)
			assert.False(t, inserted)
		}

		run, err := c.GetRun(ctx, 100123)
		require.NoError(t, err)
		assert.Equal(t, int64(1), run.TotalTfs)
		assert.Equal(t, int64(4096), run.TotalBytes)

		count, err := c.CountDistinctFiles(ctx, 100123)
		require.NoError(t, err)
		assert.Equal(t, run.TotalTfs, count)
		return nil
	})
}

func TestAggregateInvariantAcrossRuns(t *testing.T) {
	withClientDb(t, func(c *ClientDb) error {
		ctx := context.Background()

		var expectedBytes int64
		for i := 0; i < 5; i++ {
			tf := testTf(1, 100)
			expectedBytes += tf.SizeBytes
			_, err := c.Upsert(ctx, tf)
			require.NoError(t, err)
			// Replay each message once.
			_, err = c.Upsert(ctx, tf)
			require.NoError(t, err)
		}
		for i := 0; i < 3; i++ {
			_, err := c.Upsert(ctx, testTf(2, 200))
			require.NoError(t, err)
		}

		for _, runNumber := range []int32{1, 2} {
			run, err := c.GetRun(ctx, runNumber)
			require.NoError(t, err)
			count, err := c.CountDistinctFiles(ctx, runNumber)
			require.NoError(t, err)
			assert.Equal(t, count, run.TotalTfs, "run %d", runNumber)
		}

		run, err := c.GetRun(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, int64(5), run.TotalTfs)
		assert.Equal(t, expectedBytes, run.TotalBytes)
		return nil
	})
}

func TestGetRunNotFound(t *testing.T) {
	withClientDb(t, func(c *ClientDb) error {
		_, err := c.GetRun(context.Background(), 999999)
		var notFound *serviceerrors.ErrNotFound
		assert.ErrorAs(t, err, &notFound)
		return nil
	})
}

func TestConcurrentUpsertsForNewRun(t *testing.T) {
	withClientDb(t, func(c *ClientDb) error {
		ctx := context.Background()
		const workers = 8

		// All workers race to create the same run row inside their upsert
		// transaction; the losers must still commit their tf_metadata row.
		g, gctx := errgroup.WithContext(ctx)
		for i := 0; i < workers; i++ {
			g.Go(func() error {
				_, err := c.Upsert(gctx, testTf(100123, 100))
				return err
			})
		}
		require.NoError(t, g.Wait())

		run, err := c.GetRun(ctx, 100123)
		require.NoError(t, err)
		assert.Equal(t, int64(workers), run.TotalTfs)
		assert.Equal(t, int64(workers*100), run.TotalBytes)

		count, err := c.CountDistinctFiles(ctx, 100123)
		require.NoError(t, err)
		assert.Equal(t, run.TotalTfs, count)
		return nil
	})
}

func TestSummaries(t *testing.T) {
	withClientDb(t, func(c *ClientDb) error {
		ctx := context.Background()
		_, err := c.Upsert(ctx, testTf(2, 200))
		require.NoError(t, err)
		_, err = c.Upsert(ctx, testTf(1, 100))
		require.NoError(t, err)

		summaries, err := c.Summaries(ctx)
		require.NoError(t, err)
		assert.Equal(t, []RunSummary{
			{RunNumber: 1, TotalTfs: 1, TotalBytes: 100},
			{RunNumber: 2, TotalTfs: 1, TotalBytes: 200},
		}, summaries)
		return nil
	})
}
