// Package ledger is the single source of truth for which STF files have
// been processed. Registration is idempotent: the file_url unique
// constraint makes re-delivery of discovery candidates safe without any
// global lock.
package ledger

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/pkg/errors"

	"github.com/epic-swf/stfmon/internal/common/serviceerrors"
	"github.com/epic-swf/stfmon/internal/stfagent/metrics"
	"github.com/epic-swf/stfmon/internal/stfagent/model"
)

type Ledger struct {
	db      *pgxpool.Pool
	metrics *metrics.Metrics
}

func New(db *pgxpool.Pool, m *metrics.Metrics) *Ledger {
	return &Ledger{db: db, metrics: m}
}

// Exists reports whether a file with the given URL has already been
// ingested. The sampler consults this before the probability trial so that
// continuous-mode rescans never double-sample.
func (l *Ledger) Exists(ctx context.Context, fileURL string) (bool, error) {
	var exists bool
	err := l.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM stf_files WHERE file_url = $1)`, fileURL).Scan(&exists)
	if err != nil {
		l.metrics.RecordDBError(metrics.DBOperationRead)
		return false, errors.WithStack(err)
	}
	return exists, nil
}

// GetOrCreateRun ensures a run row exists for runNumber. The start time is
// best-effort (the candidate's creation time); authoritative run boundaries
// are set externally. Concurrent callers race safely on the run_number
// unique constraint.
func (l *Ledger) GetOrCreateRun(ctx context.Context, runNumber int32, startTime time.Time) (*model.Run, error) {
	_, err := l.db.Exec(ctx,
		`INSERT INTO runs (run_number, start_time, conditions) VALUES ($1, $2, $3)
		 ON CONFLICT (run_number) DO NOTHING`,
		runNumber, startTime, `{"auto_created": true}`)
	if err != nil {
		l.metrics.RecordDBError(metrics.DBOperationInsert)
		return nil, errors.WithStack(err)
	}

	run := &model.Run{}
	err = l.db.QueryRow(ctx,
		`SELECT run_number, start_time, end_time FROM runs WHERE run_number = $1`, runNumber).
		Scan(&run.RunNumber, &run.StartTime, &run.EndTime)
	if err != nil {
		l.metrics.RecordDBError(metrics.DBOperationRead)
		return nil, errors.WithStack(err)
	}
	return run, nil
}

// Register inserts a new file row in status registered. Returns false with
// a nil error when the file_url already exists: a duplicate is not an
// error, it means another scan got there first.
func (l *Ledger) Register(ctx context.Context, file *model.StfFile) (bool, error) {
	if _, err := l.GetOrCreateRun(ctx, file.RunNumber, file.CreationTime); err != nil {
		return false, err
	}

	var metadata *string
	if file.Metadata != nil {
		encoded, err := json.Marshal(file.Metadata)
		if err != nil {
			return false, errors.WithStack(err)
		}
		metadata = nullIfEmpty(string(encoded))
	}

	tag, err := l.db.Exec(ctx,
		`INSERT INTO stf_files
		 (file_id, run_number, stf_identifier, file_url, size_bytes, checksum, creation_time, status, metadata)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 ON CONFLICT (file_url) DO NOTHING`,
		file.FileID, file.RunNumber, file.StfIdentifier, file.FileURL,
		file.SizeBytes, file.Checksum, file.CreationTime, string(file.Status), metadata)
	if err != nil {
		l.metrics.RecordDBError(metrics.DBOperationInsert)
		return false, errors.WithStack(err)
	}
	created := tag.RowsAffected() > 0
	if created {
		l.metrics.RecordFileRegistered()
	}
	return created, nil
}

// UpdateStatus moves a file to a new status, enforcing the transition
// table. The current status is read and checked inside a transaction so
// concurrent mutators cannot produce an illegal transition.
func (l *Ledger) UpdateStatus(ctx context.Context, fileID uuid.UUID, to model.FileStatus) error {
	err := l.db.BeginTxFunc(ctx, pgx.TxOptions{}, func(tx pgx.Tx) error {
		var current string
		err := tx.QueryRow(ctx,
			`SELECT status FROM stf_files WHERE file_id = $1 FOR UPDATE`, fileID).Scan(&current)
		if errors.Is(err, pgx.ErrNoRows) {
			return errors.WithStack(&serviceerrors.ErrNotFound{Type: "stf file", Value: fileID.String()})
		}
		if err != nil {
			return errors.WithStack(err)
		}
		from := model.FileStatus(current)
		if !from.CanTransition(to) {
			return errors.Errorf("illegal status transition %s -> %s for file %s", from, to, fileID)
		}
		_, err = tx.Exec(ctx,
			`UPDATE stf_files SET status = $1, status_time = now() WHERE file_id = $2`,
			string(to), fileID)
		return errors.WithStack(err)
	})
	if err != nil {
		l.metrics.RecordDBError(metrics.DBOperationUpdate)
	}
	return err
}

func (l *Ledger) MarkProcessing(ctx context.Context, fileID uuid.UUID) error {
	return l.UpdateStatus(ctx, fileID, model.FileProcessing)
}

func (l *Ledger) MarkProcessed(ctx context.Context, fileID uuid.UUID) error {
	return l.UpdateStatus(ctx, fileID, model.FileProcessed)
}

func (l *Ledger) MarkFailed(ctx context.Context, fileID uuid.UUID) error {
	l.metrics.RecordFileFailed()
	return l.UpdateStatus(ctx, fileID, model.FileFailed)
}

func (l *Ledger) MarkDone(ctx context.Context, fileID uuid.UUID) error {
	return l.UpdateStatus(ctx, fileID, model.FileDone)
}

// SetChecksum records the checksum computed during metadata extraction.
func (l *Ledger) SetChecksum(ctx context.Context, fileID uuid.UUID, checksum string) error {
	_, err := l.db.Exec(ctx,
		`UPDATE stf_files SET checksum = $1 WHERE file_id = $2`, checksum, fileID)
	if err != nil {
		l.metrics.RecordDBError(metrics.DBOperationUpdate)
		return errors.WithStack(err)
	}
	return nil
}

// GetFile loads a file row by id.
func (l *Ledger) GetFile(ctx context.Context, fileID uuid.UUID) (*model.StfFile, error) {
	file := &model.StfFile{}
	var status string
	err := l.db.QueryRow(ctx,
		`SELECT file_id, run_number, stf_identifier, file_url, size_bytes, checksum, creation_time, status
		 FROM stf_files WHERE file_id = $1`, fileID).
		Scan(&file.FileID, &file.RunNumber, &file.StfIdentifier, &file.FileURL,
			&file.SizeBytes, &file.Checksum, &file.CreationTime, &status)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errors.WithStack(&serviceerrors.ErrNotFound{Type: "stf file", Value: fileID.String()})
	}
	if err != nil {
		l.metrics.RecordDBError(metrics.DBOperationRead)
		return nil, errors.WithStack(err)
	}
	file.Status = model.FileStatus(status)
	return file, nil
}

// StalledFiles returns files that have sat in processed for at least
// minAge since the last status change. Judging by status_time rather than
// creation_time keeps freshly processed files out of the re-dispatch pass
// while their first dispatch is still in flight.
func (l *Ledger) StalledFiles(ctx context.Context, minAge time.Duration, limit int) ([]*model.StfFile, error) {
	rows, err := l.db.Query(ctx,
		`SELECT file_id, run_number, stf_identifier, file_url, size_bytes, checksum, creation_time, status
		 FROM stf_files
		 WHERE status = $1 AND status_time < $2
		 ORDER BY status_time
		 LIMIT $3`,
		string(model.FileProcessed), time.Now().Add(-minAge), limit)
	if err != nil {
		l.metrics.RecordDBError(metrics.DBOperationRead)
		return nil, errors.WithStack(err)
	}
	defer rows.Close()

	var files []*model.StfFile
	for rows.Next() {
		file := &model.StfFile{}
		var status string
		err := rows.Scan(&file.FileID, &file.RunNumber, &file.StfIdentifier, &file.FileURL,
			&file.SizeBytes, &file.Checksum, &file.CreationTime, &status)
		if err != nil {
			return nil, errors.WithStack(err)
		}
		file.Status = model.FileStatus(status)
		files = append(files, file)
	}
	return files, errors.WithStack(rows.Err())
}

// RecordDispatch appends one audit row for a publish attempt. Records are
// immutable; retries append further rows.
func (l *Ledger) RecordDispatch(ctx context.Context, record *model.DispatchRecord) error {
	_, err := l.db.Exec(ctx,
		`INSERT INTO dispatch_records (dispatch_id, file_id, dispatch_time, payload, success, error_message)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		record.DispatchID, record.FileID, record.DispatchTime, nullIfEmpty(string(record.Payload)),
		record.Success, nullIfEmpty(record.ErrorMessage))
	if err != nil {
		l.metrics.RecordDBError(metrics.DBOperationInsert)
		return errors.WithStack(err)
	}
	return nil
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
