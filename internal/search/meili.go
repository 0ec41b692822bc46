package search

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/meilisearch/meilisearch-go"

	"notice/internal/apperr"
	"notice/internal/model"
)

const (
	// How long AddDocuments waits for the index task to apply.
	applyTimeout = 30 * time.Second
	pollInterval = 100 * time.Millisecond

	cropRawContent = "raw_content:300"
	cropSummary    = "summary:200"
)

// MeiliIndex implements Index on a Meilisearch instance.
type MeiliIndex struct {
	client meilisearch.ServiceManager
	index  meilisearch.IndexManager
	uid    string
}

// NewMeiliIndex creates a client for the given Meilisearch endpoint.
func NewMeiliIndex(url, apiKey, indexUID string) *MeiliIndex {
	var opts []meilisearch.Option
	if apiKey != "" {
		opts = append(opts, meilisearch.WithAPIKey(apiKey))
	}
	client := meilisearch.New(url, opts...)
	return &MeiliIndex{
		client: client,
		index:  client.Index(indexUID),
		uid:    indexUID,
	}
}

// settings returns the full index configuration: field priorities,
// ranking rules including quality_score, and the synonym table.
func settings() *meilisearch.Settings {
	return &meilisearch.Settings{
		SearchableAttributes: []string{"title", "summary", "raw_content", "url", "domain"},
		DisplayedAttributes:  []string{"id", "url", "domain", "title", "summary", "status", "quality_score"},
		FilterableAttributes: []string{"domain", "status"},
		SortableAttributes:   []string{"quality_score"},
		RankingRules: []string{
			"words",
			"typo",
			"proximity",
			"attribute",
			"sort",
			"quality_score:desc",
			"exactness",
		},
		Synonyms: Synonyms(),
	}
}

// Configure applies the index settings. Safe to call on every startup.
func (m *MeiliIndex) Configure(ctx context.Context) error {
	task, err := m.index.UpdateSettingsWithContext(ctx, settings())
	if err != nil {
		return apperr.Wrap(apperr.KindSearch, "update index settings", err)
	}
	return m.waitForTask(ctx, task.TaskUID)
}

// AddDocuments upserts a batch by id and waits for the apply task.
func (m *MeiliIndex) AddDocuments(ctx context.Context, docs []Payload) error {
	if len(docs) == 0 {
		return nil
	}
	task, err := m.index.AddDocumentsWithContext(ctx, docs, "id")
	if err != nil {
		return apperr.Wrap(apperr.KindSearch, "add documents", err)
	}
	return m.waitForTask(ctx, task.TaskUID)
}

// DeleteDocument removes a document from the index.
func (m *MeiliIndex) DeleteDocument(ctx context.Context, id uuid.UUID) error {
	task, err := m.index.DeleteDocumentWithContext(ctx, id.String())
	if err != nil {
		return apperr.Wrap(apperr.KindSearch, "delete document", err)
	}
	return m.waitForTask(ctx, task.TaskUID)
}

// meiliHit is the subset of a search hit we decode. The _formatted
// object carries the cropped snippets.
type meiliHit struct {
	ID        uuid.UUID `json:"id"`
	URL       string    `json:"url"`
	Domain    string    `json:"domain"`
	Title     *string   `json:"title"`
	Summary   *string   `json:"summary"`
	Score     *float64  `json:"_rankingScore"`
	Formatted struct {
		RawContent string  `json:"raw_content"`
		Summary    *string `json:"summary"`
	} `json:"_formatted"`
}

// Search runs a ranked query with cropped snippets and highlights.
func (m *MeiliIndex) Search(ctx context.Context, query string, limit, offset int64) ([]model.SearchResult, int64, error) {
	resp, err := m.index.SearchWithContext(ctx, query, &meilisearch.SearchRequest{
		Limit:                 limit,
		Offset:                offset,
		AttributesToCrop:      []string{cropRawContent, cropSummary},
		AttributesToHighlight: []string{"title", "summary"},
		ShowRankingScore:      true,
	})
	if err != nil {
		return nil, 0, apperr.Wrap(apperr.KindSearch, "search", err)
	}

	results := make([]model.SearchResult, 0, len(resp.Hits))
	for _, raw := range resp.Hits {
		buf, err := json.Marshal(raw)
		if err != nil {
			continue
		}
		var hit meiliHit
		if err := json.Unmarshal(buf, &hit); err != nil {
			continue
		}
		results = append(results, model.SearchResult{
			ID:      hit.ID,
			URL:     hit.URL,
			Domain:  hit.Domain,
			Title:   hit.Title,
			Snippet: snippetFor(hit),
			Score:   hit.Score,
		})
	}

	return results, resp.EstimatedTotalHits, nil
}

// snippetFor prefers the cropped raw content, then the summary.
func snippetFor(hit meiliHit) string {
	if hit.Formatted.RawContent != "" {
		return hit.Formatted.RawContent
	}
	if hit.Formatted.Summary != nil && *hit.Formatted.Summary != "" {
		return *hit.Formatted.Summary
	}
	if hit.Summary != nil && *hit.Summary != "" {
		return *hit.Summary
	}
	return "No preview available"
}

// DocumentCount reports the number of indexed documents.
func (m *MeiliIndex) DocumentCount(ctx context.Context) (int64, error) {
	stats, err := m.index.GetStatsWithContext(ctx)
	if err != nil {
		return 0, apperr.Wrap(apperr.KindSearch, "index stats", err)
	}
	return stats.NumberOfDocuments, nil
}

// Health verifies the Meilisearch instance responds.
func (m *MeiliIndex) Health(ctx context.Context) error {
	if _, err := m.client.HealthWithContext(ctx); err != nil {
		return apperr.Wrap(apperr.KindSearch, "meilisearch health", err)
	}
	return nil
}

func (m *MeiliIndex) waitForTask(ctx context.Context, taskUID int64) error {
	ctx, cancel := context.WithTimeout(ctx, applyTimeout)
	defer cancel()

	task, err := m.index.WaitForTaskWithContext(ctx, taskUID, pollInterval)
	if err != nil {
		return apperr.Wrap(apperr.KindSearch, "wait for index task", err)
	}
	if task.Status == meilisearch.TaskStatusFailed {
		return apperr.Newf(apperr.KindSearch, "index task %d failed", taskUID)
	}
	return nil
}
