package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"notice/internal/apperr"
	"notice/internal/model"
)

const docColumns = `id, url, domain, title, raw_content, summary, status, quality_score, created_at, updated_at`

func scanDocument(row interface{ Scan(...any) error }) (model.Document, error) {
	var d model.Document
	var title, summary sql.NullString
	err := row.Scan(&d.ID, &d.URL, &d.Domain, &title, &d.RawContent, &summary,
		&d.Status, &d.QualityScore, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return model.Document{}, err
	}
	d.Title = strPtr(title)
	d.Summary = strPtr(summary)
	return d, nil
}

// InsertDocument stores a new document row. The domain is derived from the
// URL once at insert. A duplicate URL yields a Conflict error.
func (s *Store) InsertDocument(ctx context.Context, docURL string, title *string, rawContent string, quality float64) (model.Document, error) {
	if rawContent == "" {
		return model.Document{}, apperr.New(apperr.KindValidation, "raw content cannot be empty")
	}

	domain, err := ExtractDomain(docURL)
	if err != nil {
		return model.Document{}, err
	}

	row := s.DB.QueryRowContext(ctx, `
		INSERT INTO documents (url, domain, title, raw_content, quality_score)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+docColumns,
		docURL, domain, nullStr(title), rawContent, clampQuality(quality))

	doc, err := scanDocument(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return model.Document{}, apperr.Newf(apperr.KindConflict, "document already exists: %s", docURL)
		}
		return model.Document{}, apperr.Wrap(apperr.KindDatabase, "insert document", err)
	}
	return doc, nil
}

// GetDocumentByID fetches a document by primary key.
func (s *Store) GetDocumentByID(ctx context.Context, id uuid.UUID) (model.Document, error) {
	row := s.DB.QueryRowContext(ctx, `SELECT `+docColumns+` FROM documents WHERE id = $1`, id)
	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Document{}, apperr.Newf(apperr.KindNotFound, "document %s not found", id)
	}
	if err != nil {
		return model.Document{}, apperr.Wrap(apperr.KindDatabase, "get document", err)
	}
	return doc, nil
}

// GetDocumentByURL fetches a document by canonical URL. Returns
// (nil, nil) when absent so callers can branch without error checks.
func (s *Store) GetDocumentByURL(ctx context.Context, docURL string) (*model.Document, error) {
	row := s.DB.QueryRowContext(ctx, `SELECT `+docColumns+` FROM documents WHERE url = $1`, docURL)
	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.KindDatabase, "get document by url", err)
	}
	return &doc, nil
}

// UpdateSummary sets the summary and transitions status to summarized.
func (s *Store) UpdateSummary(ctx context.Context, id uuid.UUID, summary string) (model.Document, error) {
	row := s.DB.QueryRowContext(ctx, `
		UPDATE documents
		SET summary = $2, status = $3, updated_at = NOW()
		WHERE id = $1
		RETURNING `+docColumns,
		id, summary, model.DocStatusSummarized)

	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Document{}, apperr.Newf(apperr.KindNotFound, "document %s not found", id)
	}
	if err != nil {
		return model.Document{}, apperr.Wrap(apperr.KindDatabase, "update summary", err)
	}
	return doc, nil
}

// MarkSummaryFailed records a terminal summarization failure.
func (s *Store) MarkSummaryFailed(ctx context.Context, id uuid.UUID) error {
	_, err := s.DB.ExecContext(ctx,
		`UPDATE documents SET status = $2, updated_at = NOW() WHERE id = $1`,
		id, model.DocStatusFailed)
	return apperr.Wrap(apperr.KindDatabase, "mark summary failed", err)
}

// ListDocuments returns a page of documents without raw content,
// newest first.
func (s *Store) ListDocuments(ctx context.Context, limit, offset int64) ([]model.DocumentListItem, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT id, url, domain, title, summary, status, created_at, updated_at
		FROM documents
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindDatabase, "list documents", err)
	}
	defer rows.Close()

	items := make([]model.DocumentListItem, 0, limit)
	for rows.Next() {
		var it model.DocumentListItem
		var title, summary sql.NullString
		if err := rows.Scan(&it.ID, &it.URL, &it.Domain, &title, &summary,
			&it.Status, &it.CreatedAt, &it.UpdatedAt); err != nil {
			return nil, apperr.Wrap(apperr.KindDatabase, "scan document row", err)
		}
		it.Title = strPtr(title)
		it.Summary = strPtr(summary)
		items = append(items, it)
	}
	return items, apperr.Wrap(apperr.KindDatabase, "iterate documents", rows.Err())
}

// ListDocumentsFull returns a page of full documents including raw
// content, for index resynchronization.
func (s *Store) ListDocumentsFull(ctx context.Context, limit, offset int64) ([]model.Document, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT `+docColumns+`
		FROM documents
		ORDER BY created_at ASC
		LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindDatabase, "list documents full", err)
	}
	defer rows.Close()

	docs := make([]model.Document, 0, limit)
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, apperr.Wrap(apperr.KindDatabase, "scan document row", err)
		}
		docs = append(docs, doc)
	}
	return docs, apperr.Wrap(apperr.KindDatabase, "iterate documents", rows.Err())
}

// CountDocuments returns the total number of stored documents.
func (s *Store) CountDocuments(ctx context.Context) (int64, error) {
	var n int64
	err := s.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents`).Scan(&n)
	return n, apperr.Wrap(apperr.KindDatabase, "count documents", err)
}

func clampQuality(q float64) float64 {
	if q < 0.5 {
		return 0.5
	}
	if q > 3.0 {
		return 3.0
	}
	return q
}
