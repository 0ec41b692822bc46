package crawler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"notice/internal/model"
	"notice/internal/search"
)

type fakeStore struct {
	mu       sync.Mutex
	queue    []*model.QueueEntry
	docs     map[string]model.Document
	known    map[string]bool
	enqueued []struct {
		url      string
		priority int32
	}
	summaryFailed []uuid.UUID
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		docs:  make(map[string]model.Document),
		known: make(map[string]bool),
	}
}

func (f *fakeStore) addEntry(rawURL string, maxRetries int32) *model.QueueEntry {
	f.mu.Lock()
	defer f.mu.Unlock()
	e := &model.QueueEntry{
		ID:         uuid.New(),
		URL:        rawURL,
		Status:     model.QueueStatusPending,
		MaxRetries: maxRetries,
	}
	f.queue = append(f.queue, e)
	return e
}

func (f *fakeStore) DequeueNext(context.Context) (*model.QueueEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range f.queue {
		if e.Status == model.QueueStatusPending {
			e.Status = model.QueueStatusInProgress
			return e, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) MarkCompleted(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range f.queue {
		if e.ID == id {
			e.Status = model.QueueStatusCompleted
		}
	}
	return nil
}

func (f *fakeStore) MarkFailed(_ context.Context, id uuid.UUID, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range f.queue {
		if e.ID == id {
			e.RetryCount++
			e.LastError = &reason
			if e.RetryCount >= e.MaxRetries {
				e.Status = model.QueueStatusFailed
			} else {
				e.Status = model.QueueStatusPending
			}
		}
	}
	return nil
}

func (f *fakeStore) URLIsKnown(_ context.Context, rawURL string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.known[rawURL] {
		return true, nil
	}
	_, ok := f.docs[rawURL]
	return ok, nil
}

func (f *fakeStore) EnqueueURL(_ context.Context, rawURL string, priority int32, _ *uuid.UUID) (*model.QueueEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.enqueued = append(f.enqueued, struct {
		url      string
		priority int32
	}{rawURL, priority})
	return &model.QueueEntry{ID: uuid.New(), URL: rawURL, Priority: priority}, nil
}

func (f *fakeStore) GetDocumentByURL(_ context.Context, docURL string) (*model.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if d, ok := f.docs[docURL]; ok {
		return &d, nil
	}
	return nil, nil
}

func (f *fakeStore) InsertDocument(_ context.Context, docURL string, title *string, rawContent string, quality float64) (model.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d := model.Document{
		ID:           uuid.New(),
		URL:          docURL,
		Title:        title,
		RawContent:   rawContent,
		Status:       model.DocStatusIndexed,
		QualityScore: quality,
	}
	f.docs[docURL] = d
	return d, nil
}

func (f *fakeStore) UpdateSummary(_ context.Context, id uuid.UUID, summary string) (model.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for url, d := range f.docs {
		if d.ID == id {
			d.Summary = &summary
			d.Status = model.DocStatusSummarized
			f.docs[url] = d
			return d, nil
		}
	}
	return model.Document{}, nil
}

func (f *fakeStore) MarkSummaryFailed(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.summaryFailed = append(f.summaryFailed, id)
	for url, d := range f.docs {
		if d.ID == id {
			d.Status = model.DocStatusFailed
			f.docs[url] = d
		}
	}
	return nil
}

type recordingIndex struct {
	mu    sync.Mutex
	added []search.Payload
}

func (r *recordingIndex) Configure(context.Context) error { return nil }

func (r *recordingIndex) AddDocuments(_ context.Context, docs []search.Payload) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.added = append(r.added, docs...)
	return nil
}

func (r *recordingIndex) DeleteDocument(context.Context, uuid.UUID) error { return nil }

func (r *recordingIndex) Search(context.Context, string, int64, int64) ([]model.SearchResult, int64, error) {
	return nil, 0, nil
}

func (r *recordingIndex) DocumentCount(context.Context) (int64, error) { return 0, nil }
func (r *recordingIndex) Health(context.Context) error                 { return nil }

type fixedSummarizer struct {
	summary string
	err     error
}

func (s *fixedSummarizer) Summarize(context.Context, string) (string, error) {
	return s.summary, s.err
}

type countingHandler struct {
	mu     sync.Mutex
	robots string
	counts map[string]int
}

func (h *countingHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	if h.counts == nil {
		h.counts = make(map[string]int)
	}
	h.counts[r.URL.Path]++
	h.mu.Unlock()

	switch r.URL.Path {
	case "/robots.txt":
		if h.robots == "" {
			http.NotFound(w, r)
			return
		}
		io.WriteString(w, h.robots)
	case "/dead":
		http.Error(w, "boom", http.StatusInternalServerError)
	default:
		w.Header().Set("Content-Type", "text/html")
		io.WriteString(w, `<html><head><title>Sample Page</title></head><body>
			<p>A paragraph of readable body text for extraction.</p>
			<a href="/next">Next</a>
			<a href="/other">Other</a>
		</body></html>`)
	}
}

func (h *countingHandler) count(path string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.counts[path]
}

func newTestPool(t *testing.T, srv *httptest.Server, st *fakeStore, idx search.Index, sum Summarizer) *Pool {
	t.Helper()
	return NewPool(Deps{
		Store:         st,
		Index:         idx,
		Scraper:       NewScraper(srv.Client(), "NoticeBot/0.1", 1<<20),
		Robots:        NewRobotsCache(srv.Client(), "NoticeBot/0.1"),
		Pacer:         NewDomainPacer(0),
		Summarizer:    sum,
		Log:           slog.New(slog.NewTextHandler(io.Discard, nil)),
		Workers:       1,
		IdlePoll:      10 * time.Millisecond,
		DiscoverLinks: true,
	})
}

func TestIngest_StoresIndexesAndSummarizes(t *testing.T) {
	handler := &countingHandler{}
	srv := httptest.NewServer(handler)
	defer srv.Close()

	st := newFakeStore()
	idx := &recordingIndex{}
	pool := newTestPool(t, srv, st, idx, &fixedSummarizer{summary: "A short summary."})

	doc, links, err := pool.Ingest(context.Background(), srv.URL+"/page")
	if err != nil {
		t.Fatalf("Ingest returned error: %v", err)
	}

	if doc.Status != model.DocStatusSummarized {
		t.Errorf("expected summarized status, got %q", doc.Status)
	}
	if doc.Summary == nil || *doc.Summary != "A short summary." {
		t.Errorf("summary not persisted: %v", doc.Summary)
	}
	if doc.Title == nil || *doc.Title != "Sample Page" {
		t.Errorf("title not extracted: %v", doc.Title)
	}

	stored, _ := st.GetDocumentByURL(context.Background(), srv.URL+"/page")
	if stored == nil || stored.Status != model.DocStatusSummarized {
		t.Errorf("store not updated: %+v", stored)
	}

	// Indexed once on insert, once more after the summary lands.
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if len(idx.added) != 2 {
		t.Fatalf("expected 2 index upserts, got %d", len(idx.added))
	}
	if idx.added[1].Summary == nil {
		t.Error("re-index after summarization must carry the summary")
	}

	want := []string{srv.URL + "/next", srv.URL + "/other"}
	if len(links) != len(want) || links[0] != want[0] || links[1] != want[1] {
		t.Errorf("unexpected links %v, want %v", links, want)
	}
}

func TestIngest_RecrawlSuppression(t *testing.T) {
	handler := &countingHandler{}
	srv := httptest.NewServer(handler)
	defer srv.Close()

	st := newFakeStore()
	existing, err := st.InsertDocument(context.Background(), srv.URL+"/page", nil, "already stored", 1.0)
	if err != nil {
		t.Fatalf("seed document: %v", err)
	}

	pool := newTestPool(t, srv, st, &recordingIndex{}, &fixedSummarizer{summary: "unused"})

	doc, links, err := pool.Ingest(context.Background(), srv.URL+"/page")
	if err != nil {
		t.Fatalf("Ingest returned error: %v", err)
	}
	if doc.ID != existing.ID {
		t.Errorf("expected the stored document back, got %v", doc.ID)
	}
	if len(links) != 0 {
		t.Errorf("suppressed re-crawl must discover no links, got %v", links)
	}
	if n := handler.count("/page"); n != 0 {
		t.Errorf("page must not be fetched again, got %d fetches", n)
	}
}

func TestIngest_RobotsBlocked(t *testing.T) {
	handler := &countingHandler{robots: "User-agent: *\nDisallow: /private\n"}
	srv := httptest.NewServer(handler)
	defer srv.Close()

	st := newFakeStore()
	pool := newTestPool(t, srv, st, &recordingIndex{}, &fixedSummarizer{summary: "unused"})

	_, _, err := pool.Ingest(context.Background(), srv.URL+"/private/page")
	if err == nil || !strings.Contains(err.Error(), "blocked by robots.txt") {
		t.Fatalf("expected robots block, got %v", err)
	}
	if n := handler.count("/private/page"); n != 0 {
		t.Errorf("blocked page must not be fetched, got %d fetches", n)
	}
}

func TestIngest_SummarizeFailureKeepsDocument(t *testing.T) {
	handler := &countingHandler{}
	srv := httptest.NewServer(handler)
	defer srv.Close()

	st := newFakeStore()
	idx := &recordingIndex{}
	pool := newTestPool(t, srv, st, idx, &fixedSummarizer{err: context.DeadlineExceeded})

	doc, _, err := pool.Ingest(context.Background(), srv.URL+"/page")
	if err != nil {
		t.Fatalf("summarization failure must not fail ingest: %v", err)
	}
	if doc.Status != model.DocStatusFailed {
		t.Errorf("expected failed summary status, got %q", doc.Status)
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	if len(st.summaryFailed) != 1 || st.summaryFailed[0] != doc.ID {
		t.Errorf("summary failure not recorded: %v", st.summaryFailed)
	}
	if _, ok := st.docs[srv.URL+"/page"]; !ok {
		t.Error("document must remain stored")
	}
}

func TestCrawl_EnqueuesOnlyUnknownLinks(t *testing.T) {
	handler := &countingHandler{}
	srv := httptest.NewServer(handler)
	defer srv.Close()

	st := newFakeStore()
	st.known[srv.URL+"/next"] = true
	pool := newTestPool(t, srv, st, &recordingIndex{}, &fixedSummarizer{summary: "s"})

	if _, err := pool.Crawl(context.Background(), srv.URL+"/page"); err != nil {
		t.Fatalf("Crawl returned error: %v", err)
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	if len(st.enqueued) != 1 {
		t.Fatalf("expected 1 enqueue, got %v", st.enqueued)
	}
	if st.enqueued[0].url != srv.URL+"/other" {
		t.Errorf("unexpected enqueued url %q", st.enqueued[0].url)
	}
	if st.enqueued[0].priority != model.PriorityDiscoveredLink {
		t.Errorf("expected priority %d, got %d", model.PriorityDiscoveredLink, st.enqueued[0].priority)
	}
}

func TestPool_RetriesUntilFailed(t *testing.T) {
	handler := &countingHandler{}
	srv := httptest.NewServer(handler)
	defer srv.Close()

	st := newFakeStore()
	entry := st.addEntry(srv.URL+"/dead", 3)
	pool := newTestPool(t, srv, st, &recordingIndex{}, &fixedSummarizer{summary: "unused"})

	pool.Start(context.Background())
	defer pool.Stop()

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		st.mu.Lock()
		status := entry.Status
		st.mu.Unlock()
		if status == model.QueueStatusFailed {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	if entry.Status != model.QueueStatusFailed {
		t.Fatalf("expected failed entry, got %q", entry.Status)
	}
	if entry.RetryCount != 3 {
		t.Errorf("expected retry_count 3, got %d", entry.RetryCount)
	}
	if entry.LastError == nil || *entry.LastError == "" {
		t.Error("last error must be recorded")
	}
	if got := pool.Status().Failed; got != 3 {
		t.Errorf("pool must count each failed attempt, got %d", got)
	}
}

func TestPool_CompletesQueuedEntry(t *testing.T) {
	handler := &countingHandler{}
	srv := httptest.NewServer(handler)
	defer srv.Close()

	st := newFakeStore()
	entry := st.addEntry(srv.URL+"/page", 3)
	pool := newTestPool(t, srv, st, &recordingIndex{}, &fixedSummarizer{summary: "s"})

	pool.Start(context.Background())
	defer pool.Stop()

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		st.mu.Lock()
		status := entry.Status
		st.mu.Unlock()
		if status == model.QueueStatusCompleted {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	st.mu.Lock()
	status := entry.Status
	_, stored := st.docs[srv.URL+"/page"]
	enqueued := len(st.enqueued)
	st.mu.Unlock()

	if status != model.QueueStatusCompleted {
		t.Fatalf("expected completed entry, got %q", status)
	}
	if !stored {
		t.Error("document must be stored")
	}
	if enqueued != 2 {
		t.Errorf("expected 2 discovered links enqueued, got %d", enqueued)
	}
	if got := pool.Status().Processed; got != 1 {
		t.Errorf("expected 1 processed, got %d", got)
	}
}
