package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"notice/internal/answer"
	"notice/internal/apperr"
	"notice/internal/metrics"
	"notice/internal/model"
	"notice/internal/search"
	"notice/internal/store"
)

const (
	defaultLimit = 20
	maxLimit     = 100

	// Result count below which background discovery kicks in.
	coldQueryThreshold = 3
	// Top hits handed to the answerer as context.
	ragContextSize = 5

	discoveryTimeout = 15 * time.Second
)

// Backend is the slice of the row store the pipeline needs: cold-query
// enqueue and history recording.
type Backend interface {
	EnqueueURL(ctx context.Context, rawURL string, priority int32, submittedBy *uuid.UUID) (*model.QueueEntry, error)
	RecordSearch(ctx context.Context, userID *uuid.UUID, sessionID *string, query, intent string, resultsCount int32) error
}

// Answerer produces a grounded natural-language answer from retrieved
// snippets.
type Answerer interface {
	Answer(ctx context.Context, query string, contexts []string) (string, error)
}

// Discoverer finds candidate URLs for queries the index cannot serve.
type Discoverer interface {
	FindURLs(ctx context.Context, query string) ([]string, error)
}

// Pipeline runs a query end to end: classification, instant answers,
// index search, cold-query discovery, and RAG.
type Pipeline struct {
	Store     Backend
	Index     search.Index
	Answers   *answer.Evaluator
	Answerer  Answerer
	Discovery Discoverer
	Log       *slog.Logger
}

// Request is one parsed search invocation.
type Request struct {
	Query     string
	Limit     int64
	Offset    int64
	SessionID *string
	UserID    *uuid.UUID
}

// Run executes the pipeline. Index and answerer failures degrade the
// response rather than failing it; only an empty query is an error.
func (p *Pipeline) Run(ctx context.Context, req Request) (model.SearchResponse, error) {
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return model.SearchResponse{}, apperr.New(apperr.KindValidation, "query cannot be empty")
	}

	limit := req.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	offset := req.Offset
	if offset < 0 {
		offset = 0
	}

	intent := answer.Classify(query)
	metrics.RecordQuery(intent.Kind)

	if intent.Kind != answer.KindSearch {
		if ia, err := p.Answers.Evaluate(ctx, intent); err == nil && ia != nil {
			p.recordHistory(ctx, req, query, intent.Kind, 0)
			return model.SearchResponse{
				Query:         query,
				Results:       []model.SearchResult{},
				InstantAnswer: ia,
			}, nil
		} else if err != nil {
			// A failed evaluation falls through to regular search.
			p.Log.Warn("instant answer failed", "query", query, "kind", intent.Kind, "error", err)
		}
	}

	results, total, err := p.Index.Search(ctx, query, limit, offset)
	if err != nil {
		p.Log.Warn("index search failed", "query", query, "error", err)
		results, total = nil, 0
	}
	if results == nil {
		results = []model.SearchResult{}
	}

	if len(results) < coldQueryThreshold && p.Discovery != nil {
		go p.discover(query)
	}

	var aiAnswer *string
	if len(results) >= 1 && p.Answerer != nil {
		if ans := p.answerFromResults(ctx, query, results); ans != "" {
			aiAnswer = &ans
		}
	}

	p.recordHistory(ctx, req, query, answer.KindSearch, len(results))

	return model.SearchResponse{
		Query:    query,
		Results:  results,
		Total:    total,
		AIAnswer: aiAnswer,
	}, nil
}

func (p *Pipeline) answerFromResults(ctx context.Context, query string, results []model.SearchResult) string {
	n := len(results)
	if n > ragContextSize {
		n = ragContextSize
	}
	contexts := make([]string, 0, n)
	for _, r := range results[:n] {
		title := ""
		if r.Title != nil {
			title = *r.Title
		}
		contexts = append(contexts, fmt.Sprintf("Title: %s\nURL: %s\nSnippet: %s", title, r.URL, r.Snippet))
	}

	ans, err := p.Answerer.Answer(ctx, query, contexts)
	if err != nil {
		p.Log.Warn("answer generation failed", "query", query, "error", err)
		return ""
	}
	return ans
}

// discover runs cold-query URL discovery in the background and
// enqueues what it finds at elevated priority. Detached from the
// request context: the response has already been sent.
func (p *Pipeline) discover(query string) {
	ctx, cancel := context.WithTimeout(context.Background(), discoveryTimeout)
	defer cancel()

	urls, err := p.Discovery.FindURLs(ctx, query)
	if err != nil {
		p.Log.Warn("cold query discovery failed", "query", query, "error", err)
		return
	}
	for _, u := range urls {
		canonical, err := store.CanonicalizeURL(u)
		if err != nil {
			p.Log.Warn("discovered url rejected", "url", u, "error", err)
			continue
		}
		if _, err := p.Store.EnqueueURL(ctx, canonical, model.PriorityColdQuery, nil); err != nil {
			p.Log.Warn("enqueue discovered url failed", "url", canonical, "error", err)
		}
	}
}

func (p *Pipeline) recordHistory(ctx context.Context, req Request, query, intent string, count int) {
	err := p.Store.RecordSearch(ctx, req.UserID, req.SessionID, query, intent, int32(count))
	if err != nil {
		p.Log.Warn("record search history failed", "query", query, "error", err)
	}
}
