package model

import (
	"time"

	"github.com/google/uuid"
)

// Document statuses. A document starts as indexed and either gains a
// summary or records a terminal summarization failure. Status never
// moves backwards.
const (
	DocStatusIndexed    = "indexed"
	DocStatusSummarized = "summarized"
	DocStatusFailed     = "failed"
)

// Queue entry statuses.
const (
	QueueStatusPending    = "pending"
	QueueStatusInProgress = "in_progress"
	QueueStatusCompleted  = "completed"
	QueueStatusFailed     = "failed"
)

// Queue priorities by origin of the URL.
const (
	PriorityUserSubmission = 0
	PriorityDiscoveredLink = -1
	PriorityColdQuery      = 10
)

// Document is the authoritative row for one crawled URL.
type Document struct {
	ID           uuid.UUID `json:"id"`
	URL          string    `json:"url"`
	Domain       string    `json:"domain"`
	Title        *string   `json:"title"`
	RawContent   string    `json:"raw_content"`
	Summary      *string   `json:"summary"`
	Status       string    `json:"status"`
	QualityScore float64   `json:"quality_score"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// DocumentListItem is the lightweight listing shape without raw content.
type DocumentListItem struct {
	ID        uuid.UUID `json:"id"`
	URL       string    `json:"url"`
	Domain    string    `json:"domain"`
	Title     *string   `json:"title"`
	Summary   *string   `json:"summary"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// QueueEntry is one row of the durable crawl queue.
type QueueEntry struct {
	ID          uuid.UUID  `json:"id"`
	URL         string     `json:"url"`
	Status      string     `json:"status"`
	Priority    int32      `json:"priority"`
	RetryCount  int32      `json:"retry_count"`
	MaxRetries  int32      `json:"max_retries"`
	LastError   *string    `json:"last_error"`
	SubmittedBy *uuid.UUID `json:"submitted_by"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// QueueStats is the per-status row count of the crawl queue.
type QueueStats struct {
	Pending    int64 `json:"pending"`
	InProgress int64 `json:"in_progress"`
	Completed  int64 `json:"completed"`
	Failed     int64 `json:"failed"`
}

// ScrapedPage is the output of a successful fetch-and-extract pass.
type ScrapedPage struct {
	URL       string
	Title     *string
	Text      string
	RawHTML   string
	FetchedAt time.Time
}

// SearchResult is one ranked hit returned to API clients.
type SearchResult struct {
	ID      uuid.UUID `json:"id"`
	URL     string    `json:"url"`
	Domain  string    `json:"domain"`
	Title   *string   `json:"title"`
	Snippet string    `json:"snippet"`
	Score   *float64  `json:"score"`
}

// InstantAnswer is returned instead of ranked documents when the query
// is a computation.
type InstantAnswer struct {
	Kind  string `json:"kind"`
	Value string `json:"value"`
}

// SearchResponse is the full query pipeline response.
type SearchResponse struct {
	Query         string         `json:"query"`
	Results       []SearchResult `json:"results"`
	Total         int64          `json:"total"`
	InstantAnswer *InstantAnswer `json:"instant_answer"`
	AIAnswer      *string        `json:"ai_answer"`
}

// HistoryEntry is one recorded query.
type HistoryEntry struct {
	ID           uuid.UUID  `json:"id"`
	UserID       *uuid.UUID `json:"user_id"`
	SessionID    *string    `json:"session_id"`
	Query        string     `json:"query"`
	Intent       string     `json:"intent"`
	ResultsCount int32      `json:"results_count"`
	CreatedAt    time.Time  `json:"created_at"`
}
