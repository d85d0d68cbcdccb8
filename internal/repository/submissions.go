package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/joseph-ayodele/cert-verifier/constants"
	"github.com/joseph-ayodele/cert-verifier/internal/entity"
)

const submissionsTable = "submissions"

// SubmissionRepository reads and seeds submission records. The review
// workflow that owns these rows lives outside this service; Insert exists for
// imports and tests.
type SubmissionRepository interface {
	FindByHash(ctx context.Context, hash string, statuses ...constants.SubmissionStatus) (*entity.SubmissionRecord, error)
	// StatusByID returns the current status of a row; ok is false when the
	// row no longer exists.
	StatusByID(ctx context.Context, id int64) (status constants.SubmissionStatus, ok bool, err error)
	Insert(ctx context.Context, rec entity.SubmissionRecord) error
}

type submissionRepo struct {
	db     *DB
	logger *slog.Logger
}

func NewSubmissionRepository(db *DB, logger *slog.Logger) SubmissionRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &submissionRepo{db: db, logger: logger}
}

// FindByHash returns the newest record with the hash and one of statuses.
func (r *submissionRepo) FindByHash(ctx context.Context, hash string, statuses ...constants.SubmissionStatus) (*entity.SubmissionRecord, error) {
	if len(statuses) == 0 {
		return nil, nil
	}
	b := entsql.Dialect(r.db.dialect)
	t := b.Table(submissionsTable)
	args := make([]any, len(statuses))
	for i, s := range statuses {
		args[i] = string(s)
	}
	query, qargs := b.Select(
		t.C("id"), t.C("owner_id"), t.C("filename"), t.C("content_hash"), t.C("status"), t.C("reviewer_id"),
	).
		From(t).
		Where(entsql.And(
			entsql.EQ(t.C("content_hash"), hash),
			entsql.In(t.C("status"), args...),
		)).
		OrderBy(entsql.Desc(t.C("id"))).
		Limit(1).
		Query()

	rows := &entsql.Rows{}
	if err := r.db.drv.Query(ctx, query, qargs, rows); err != nil {
		r.logger.Error("failed to query submissions by hash", "hash", hash, "error", err)
		return nil, fmt.Errorf("query submissions: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("query submissions: %w", err)
		}
		return nil, nil
	}
	var (
		rec      entity.SubmissionRecord
		status   string
		reviewer sql.NullString
	)
	if err := rows.Scan(&rec.ID, &rec.OwnerID, &rec.Filename, &rec.ContentHash, &status, &reviewer); err != nil {
		return nil, fmt.Errorf("scan submission: %w", err)
	}
	rec.Status = constants.SubmissionStatus(status)
	if reviewer.Valid {
		v := reviewer.String
		rec.ReviewerID = &v
	}
	return &rec, nil
}

func (r *submissionRepo) StatusByID(ctx context.Context, id int64) (constants.SubmissionStatus, bool, error) {
	b := entsql.Dialect(r.db.dialect)
	t := b.Table(submissionsTable)
	query, args := b.Select(t.C("status")).
		From(t).
		Where(entsql.EQ(t.C("id"), id)).
		Query()

	rows := &entsql.Rows{}
	if err := r.db.drv.Query(ctx, query, args, rows); err != nil {
		r.logger.Error("failed to query submission status", "id", id, "error", err)
		return "", false, fmt.Errorf("query submission status: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return "", false, fmt.Errorf("query submission status: %w", err)
		}
		return "", false, nil
	}
	var status string
	if err := rows.Scan(&status); err != nil {
		return "", false, fmt.Errorf("scan submission status: %w", err)
	}
	return constants.SubmissionStatus(status), true, nil
}

func (r *submissionRepo) Insert(ctx context.Context, rec entity.SubmissionRecord) error {
	var reviewer any
	if rec.ReviewerID != nil {
		reviewer = *rec.ReviewerID
	}
	query, args := entsql.Dialect(r.db.dialect).
		Insert(submissionsTable).
		Columns("owner_id", "filename", "content_hash", "status", "reviewer_id").
		Values(rec.OwnerID, rec.Filename, rec.ContentHash, string(rec.Status), reviewer).
		Query()
	if err := r.db.drv.Exec(ctx, query, args, nil); err != nil {
		r.logger.Error("failed to insert submission", "hash", rec.ContentHash, "error", err)
		return fmt.Errorf("insert submission: %w", err)
	}
	return nil
}
