package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"notice/internal/apperr"
	"notice/internal/model"
)

const queueColumns = `id, url, status, priority, retry_count, max_retries, last_error, submitted_by, created_at, updated_at`

func scanQueueEntry(row interface{ Scan(...any) error }) (model.QueueEntry, error) {
	var e model.QueueEntry
	var lastErr sql.NullString
	var submitter uuid.NullUUID
	err := row.Scan(&e.ID, &e.URL, &e.Status, &e.Priority, &e.RetryCount,
		&e.MaxRetries, &lastErr, &submitter, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return model.QueueEntry{}, err
	}
	e.LastError = strPtr(lastErr)
	if submitter.Valid {
		id := submitter.UUID
		e.SubmittedBy = &id
	}
	return e, nil
}

// EnqueueURL adds a URL to the crawl queue. A duplicate URL is a no-op
// and returns nil without error.
func (s *Store) EnqueueURL(ctx context.Context, rawURL string, priority int32, submittedBy *uuid.UUID) (*model.QueueEntry, error) {
	var submitter uuid.NullUUID
	if submittedBy != nil {
		submitter = uuid.NullUUID{UUID: *submittedBy, Valid: true}
	}

	row := s.DB.QueryRowContext(ctx, `
		INSERT INTO crawl_queue (url, priority, submitted_by)
		VALUES ($1, $2, $3)
		ON CONFLICT (url) DO NOTHING
		RETURNING `+queueColumns,
		rawURL, priority, submitter)

	entry, err := scanQueueEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.KindDatabase, "enqueue url", err)
	}
	return &entry, nil
}

// EnqueueBatch inserts many URLs at one priority, skipping duplicates.
// Returns the number of new rows.
func (s *Store) EnqueueBatch(ctx context.Context, urls []string, priority int32) (int64, error) {
	if len(urls) == 0 {
		return 0, nil
	}

	var inserted int64
	for _, u := range urls {
		res, err := s.DB.ExecContext(ctx, `
			INSERT INTO crawl_queue (url, priority)
			VALUES ($1, $2)
			ON CONFLICT (url) DO NOTHING`, u, priority)
		if err != nil {
			return inserted, apperr.Wrap(apperr.KindDatabase, "enqueue batch", err)
		}
		if n, err := res.RowsAffected(); err == nil {
			inserted += n
		}
	}
	return inserted, nil
}

// DequeueNext atomically claims the highest-priority, oldest pending
// entry and transitions it to in_progress. FOR UPDATE SKIP LOCKED keeps
// concurrent workers from blocking on or double-claiming the same row.
// Returns nil when the queue has no eligible rows.
func (s *Store) DequeueNext(ctx context.Context) (*model.QueueEntry, error) {
	row := s.DB.QueryRowContext(ctx, `
		UPDATE crawl_queue
		SET status = $1, updated_at = NOW()
		WHERE id = (
			SELECT id FROM crawl_queue
			WHERE status = $2
			ORDER BY priority DESC, created_at ASC
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING `+queueColumns,
		model.QueueStatusInProgress, model.QueueStatusPending)

	entry, err := scanQueueEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.KindDatabase, "dequeue next", err)
	}
	return &entry, nil
}

// MarkCompleted records a terminal success for a queue entry.
func (s *Store) MarkCompleted(ctx context.Context, id uuid.UUID) error {
	_, err := s.DB.ExecContext(ctx,
		`UPDATE crawl_queue SET status = $2, updated_at = NOW() WHERE id = $1`,
		id, model.QueueStatusCompleted)
	return apperr.Wrap(apperr.KindDatabase, "mark completed", err)
}

// MarkFailed increments the retry counter and records the error. The
// entry goes back to pending unless retries are exhausted, in which
// case it becomes failed.
func (s *Store) MarkFailed(ctx context.Context, id uuid.UUID, reason string) error {
	_, err := s.DB.ExecContext(ctx, `
		UPDATE crawl_queue
		SET retry_count = retry_count + 1,
		    last_error = $2,
		    updated_at = NOW(),
		    status = CASE
		        WHEN retry_count + 1 >= max_retries THEN 'failed'
		        ELSE 'pending'
		    END
		WHERE id = $1`, id, reason)
	return apperr.Wrap(apperr.KindDatabase, "mark failed", err)
}

// ResetStale moves in_progress entries back to pending. Called once at
// startup: no worker can have survived a restart.
func (s *Store) ResetStale(ctx context.Context) (int64, error) {
	res, err := s.DB.ExecContext(ctx,
		`UPDATE crawl_queue SET status = $1, updated_at = NOW() WHERE status = $2`,
		model.QueueStatusPending, model.QueueStatusInProgress)
	if err != nil {
		return 0, apperr.Wrap(apperr.KindDatabase, "reset stale", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// URLIsKnown reports whether a URL exists in either the crawl queue or
// the document store. Used to suppress re-enqueue of discovered links.
func (s *Store) URLIsKnown(ctx context.Context, rawURL string) (bool, error) {
	var known bool
	err := s.DB.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM crawl_queue WHERE url = $1)
		    OR EXISTS (SELECT 1 FROM documents WHERE url = $1)`, rawURL).Scan(&known)
	return known, apperr.Wrap(apperr.KindDatabase, "url is known", err)
}

// QueueStats returns per-status counts for the crawl queue.
func (s *Store) QueueStats(ctx context.Context) (model.QueueStats, error) {
	var st model.QueueStats
	err := s.DB.QueryRowContext(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE status = 'pending'),
			COUNT(*) FILTER (WHERE status = 'in_progress'),
			COUNT(*) FILTER (WHERE status = 'completed'),
			COUNT(*) FILTER (WHERE status = 'failed')
		FROM crawl_queue`).Scan(&st.Pending, &st.InProgress, &st.Completed, &st.Failed)
	return st, apperr.Wrap(apperr.KindDatabase, "queue stats", err)
}
