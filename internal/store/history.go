package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"notice/internal/apperr"
	"notice/internal/model"
)

// RecordSearch appends one row to the search history.
func (s *Store) RecordSearch(ctx context.Context, userID *uuid.UUID, sessionID *string, query, intent string, resultsCount int32) error {
	var user uuid.NullUUID
	if userID != nil {
		user = uuid.NullUUID{UUID: *userID, Valid: true}
	}

	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO search_history (user_id, session_id, query, intent, results_count)
		VALUES ($1, $2, $3, $4, $5)`,
		user, nullStr(sessionID), query, intent, resultsCount)
	return apperr.Wrap(apperr.KindDatabase, "record search", err)
}

// ListHistory returns recent history entries for a session, newest first.
func (s *Store) ListHistory(ctx context.Context, sessionID string, limit int64) ([]model.HistoryEntry, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT id, user_id, session_id, query, intent, results_count, created_at
		FROM search_history
		WHERE session_id = $1
		ORDER BY created_at DESC
		LIMIT $2`, sessionID, limit)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindDatabase, "list history", err)
	}
	defer rows.Close()

	entries := make([]model.HistoryEntry, 0, limit)
	for rows.Next() {
		var e model.HistoryEntry
		var user uuid.NullUUID
		var session sql.NullString
		if err := rows.Scan(&e.ID, &user, &session, &e.Query, &e.Intent,
			&e.ResultsCount, &e.CreatedAt); err != nil {
			return nil, apperr.Wrap(apperr.KindDatabase, "scan history row", err)
		}
		if user.Valid {
			id := user.UUID
			e.UserID = &id
		}
		e.SessionID = strPtr(session)
		entries = append(entries, e)
	}
	return entries, apperr.Wrap(apperr.KindDatabase, "iterate history", rows.Err())
}
