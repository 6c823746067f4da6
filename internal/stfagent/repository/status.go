// Package repository provides the read side of the producer database:
// per-run status counts for operator visibility. Failed files and files
// stalled in processed show up here without anyone reading logs.
package repository

import (
	"context"
	"database/sql"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"github.com/epic-swf/stfmon/internal/common/config"
	"github.com/epic-swf/stfmon/internal/common/database"
)

var (
	stfFileTable = goqu.T("stf_files")

	stfFile_runNumber = goqu.I("stf_files.run_number")
	stfFile_sizeBytes = goqu.I("stf_files.size_bytes")
)

// RunStatusCounts is one row of the status query: file counts by status
// plus totals for a single run.
type RunStatusCounts struct {
	RunNumber  int32 `db:"run_number"`
	Registered int64 `db:"registered"`
	Processing int64 `db:"processing"`
	Processed  int64 `db:"processed"`
	Failed     int64 `db:"failed"`
	Done       int64 `db:"done"`
	TotalFiles int64 `db:"total_files"`
	TotalBytes int64 `db:"total_bytes"`
}

type StatusRepository struct {
	goquDb *goqu.Database
}

func NewStatusRepository(db *sql.DB) *StatusRepository {
	return &StatusRepository{goquDb: goqu.New("postgres", db)}
}

// OpenStatusRepository opens a database/sql connection to the producer
// database for read-only queries.
func OpenStatusRepository(cfg config.PostgresConfig) (*StatusRepository, error) {
	db, err := sql.Open("postgres", database.CreateConnectionString(cfg.Connection))
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	return NewStatusRepository(db), nil
}

// StatusCounts returns per-run file counts grouped by status. When
// runNumber is nil all runs are returned, most recent first.
func (r *StatusRepository) StatusCounts(ctx context.Context, runNumber *int32) ([]*RunStatusCounts, error) {
	ds := r.goquDb.
		From(stfFileTable).
		Select(
			stfFile_runNumber,
			goqu.L("COUNT(*) FILTER (WHERE stf_files.status = 'registered')").As("registered"),
			goqu.L("COUNT(*) FILTER (WHERE stf_files.status = 'processing')").As("processing"),
			goqu.L("COUNT(*) FILTER (WHERE stf_files.status = 'processed')").As("processed"),
			goqu.L("COUNT(*) FILTER (WHERE stf_files.status = 'failed')").As("failed"),
			goqu.L("COUNT(*) FILTER (WHERE stf_files.status = 'done')").As("done"),
			goqu.COUNT(goqu.Star()).As("total_files"),
			goqu.COALESCE(goqu.SUM(stfFile_sizeBytes), 0).As("total_bytes")).
		GroupBy(stfFile_runNumber).
		Order(stfFile_runNumber.Desc())
	if runNumber != nil {
		ds = ds.Where(stfFile_runNumber.Eq(*runNumber))
	}

	query, args, err := ds.Prepared(true).ToSQL()
	if err != nil {
		return nil, err
	}

	rows, err := r.goquDb.Db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			logrus.Errorf("Failed to close SQL rows: %v", err)
		}
	}()

	var result []*RunStatusCounts
	for rows.Next() {
		row := &RunStatusCounts{}
		err := rows.Scan(
			&row.RunNumber, &row.Registered, &row.Processing, &row.Processed,
			&row.Failed, &row.Done, &row.TotalFiles, &row.TotalBytes)
		if err != nil {
			return nil, err
		}
		result = append(result, row)
	}
	return result, rows.Err()
}
