// Package clientdb is the consumer's local store. The upsert and the
// aggregate increment share one transaction: total_tfs can never drift
// from the count of distinct file_id rows, even under duplicate replay or
// a crash between the two writes.
package clientdb

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/pkg/errors"

	"github.com/epic-swf/stfmon/internal/common/serviceerrors"
	"github.com/epic-swf/stfmon/internal/stfclient/metrics"
	"github.com/epic-swf/stfmon/internal/stfclient/model"
)

type ClientDb struct {
	db      *pgxpool.Pool
	metrics *metrics.Metrics
}

func New(db *pgxpool.Pool, m *metrics.Metrics) *ClientDb {
	return &ClientDb{db: db, metrics: m}
}

// Upsert records one inbound notification. If the file_id is new the row
// is inserted and the run's aggregates are incremented; if it already
// exists only mutable fields are updated and the counters are left alone.
// Returns whether a new row was created.
func (c *ClientDb) Upsert(ctx context.Context, tf *model.TfMetadata) (bool, error) {
	var inserted bool
	err := c.db.BeginTxFunc(ctx, pgx.TxOptions{}, func(tx pgx.Tx) error {
		if err := getOrCreateRun(ctx, tx, tf.RunNumber, tf.CreatedAt); err != nil {
			return err
		}

		// xmax = 0 distinguishes a fresh insert from a conflict-update;
		// only a first-seen file_id may bump the aggregates.
		err := tx.QueryRow(ctx,
			`INSERT INTO tf_metadata
			 (file_id, run_number, tf_number, file_url, size_bytes, checksum, status, created_at, received_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			 ON CONFLICT (file_id) DO UPDATE
			 SET status = EXCLUDED.status,
			     checksum = EXCLUDED.checksum,
			     received_at = EXCLUDED.received_at
			 RETURNING (xmax = 0)`,
			tf.FileID, tf.RunNumber, tf.TfNumber, tf.FileURL, tf.SizeBytes,
			tf.Checksum, tf.Status, tf.CreatedAt, tf.ReceivedAt).Scan(&inserted)
		if err != nil {
			return errors.WithStack(err)
		}
		if !inserted {
			return nil
		}

		_, err = tx.Exec(ctx,
			`UPDATE runs
			 SET total_tfs = total_tfs + 1, total_bytes = total_bytes + $2
			 WHERE run_number = $1`,
			tf.RunNumber, tf.SizeBytes)
		return errors.WithStack(err)
	})
	if err != nil {
		return false, err
	}
	c.metrics.RecordTfIngested(inserted)
	return inserted, nil
}

// getOrCreateRun inserts the run row if absent, with start_time defaulted
// from the message. ON CONFLICT absorbs races between concurrent clients
// without aborting the surrounding transaction; the first insert's start
// time wins.
func getOrCreateRun(ctx context.Context, tx pgx.Tx, runNumber int32, startTime time.Time) error {
	_, err := tx.Exec(ctx,
		`INSERT INTO runs (run_number, start_time) VALUES ($1, $2)
		 ON CONFLICT (run_number) DO NOTHING`,
		runNumber, startTime)
	return errors.WithStack(err)
}

// RunSummary is one line of the shutdown summary.
type RunSummary struct {
	RunNumber  int32
	TotalTfs   int64
	TotalBytes int64
}

// Summaries returns per-run aggregates, ordered by run number.
func (c *ClientDb) Summaries(ctx context.Context) ([]RunSummary, error) {
	rows, err := c.db.Query(ctx,
		`SELECT run_number, total_tfs, total_bytes FROM runs ORDER BY run_number`)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer rows.Close()

	var summaries []RunSummary
	for rows.Next() {
		var s RunSummary
		if err := rows.Scan(&s.RunNumber, &s.TotalTfs, &s.TotalBytes); err != nil {
			return nil, errors.WithStack(err)
		}
		summaries = append(summaries, s)
	}
	return summaries, errors.WithStack(rows.Err())
}

// GetRun loads a single run row.
func (c *ClientDb) GetRun(ctx context.Context, runNumber int32) (*model.Run, error) {
	run := &model.Run{}
	err := c.db.QueryRow(ctx,
		`SELECT run_number, total_tfs, total_bytes, start_time, end_time FROM runs WHERE run_number = $1`,
		runNumber).
		Scan(&run.RunNumber, &run.TotalTfs, &run.TotalBytes, &run.StartTime, &run.EndTime)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errors.WithStack(&serviceerrors.ErrNotFound{Type: "run", Value: fmt.Sprint(runNumber)})
	}
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return run, nil
}

// CountDistinctFiles recounts tf_metadata rows for a run. Used by tests to
// check the aggregate invariant and available to operators as a
// consistency probe.
func (c *ClientDb) CountDistinctFiles(ctx context.Context, runNumber int32) (int64, error) {
	var count int64
	err := c.db.QueryRow(ctx,
		`SELECT COUNT(DISTINCT file_id) FROM tf_metadata WHERE run_number = $1`, runNumber).Scan(&count)
	return count, errors.WithStack(err)
}
