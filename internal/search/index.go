package search

import (
	"context"

	"github.com/google/uuid"

	"notice/internal/model"
)

// Payload is the projection of a document row sent to the full-text
// index. Kept separate from model.Document so displayed fields can
// change without touching storage writes.
type Payload struct {
	ID           uuid.UUID `json:"id"`
	URL          string    `json:"url"`
	Domain       string    `json:"domain"`
	Title        *string   `json:"title"`
	RawContent   string    `json:"raw_content"`
	Summary      *string   `json:"summary"`
	Status       string    `json:"status"`
	QualityScore float64   `json:"quality_score"`
}

// PayloadFromDocument projects a document row into its index payload.
func PayloadFromDocument(d model.Document) Payload {
	return Payload{
		ID:           d.ID,
		URL:          d.URL,
		Domain:       d.Domain,
		Title:        d.Title,
		RawContent:   d.RawContent,
		Summary:      d.Summary,
		Status:       d.Status,
		QualityScore: d.QualityScore,
	}
}

// Index is the abstract full-text search capability. The Meilisearch
// client implements it; tests substitute in-memory fakes.
type Index interface {
	// Configure applies searchable/displayed/filterable fields, ranking
	// rules, and synonyms. Idempotent.
	Configure(ctx context.Context) error
	// AddDocuments upserts a batch by id and waits for the index task
	// to apply, reporting task failure as an error.
	AddDocuments(ctx context.Context, docs []Payload) error
	// DeleteDocument removes one document by id.
	DeleteDocument(ctx context.Context, id uuid.UUID) error
	// Search returns ranked hits and an estimated total for pagination.
	Search(ctx context.Context, query string, limit, offset int64) ([]model.SearchResult, int64, error)
	// DocumentCount reports how many documents the index holds.
	DocumentCount(ctx context.Context) (int64, error)
	// Health verifies the index service is reachable.
	Health(ctx context.Context) error
}
