package crawler

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"notice/internal/apperr"
	"notice/internal/metrics"
	"notice/internal/model"
	"notice/internal/search"
	"notice/internal/store"
	"notice/internal/textutil"
)

// summarizeInputBytes caps the text handed to the summarizer.
const summarizeInputBytes = 8000

// Summarizer condenses page text into a short summary.
type Summarizer interface {
	Summarize(ctx context.Context, text string) (string, error)
}

// Backend is the slice of the row store the workers need: queue
// claiming and bookkeeping plus document writes.
type Backend interface {
	DequeueNext(ctx context.Context) (*model.QueueEntry, error)
	MarkCompleted(ctx context.Context, id uuid.UUID) error
	MarkFailed(ctx context.Context, id uuid.UUID, reason string) error
	URLIsKnown(ctx context.Context, rawURL string) (bool, error)
	EnqueueURL(ctx context.Context, rawURL string, priority int32, submittedBy *uuid.UUID) (*model.QueueEntry, error)
	GetDocumentByURL(ctx context.Context, docURL string) (*model.Document, error)
	InsertDocument(ctx context.Context, docURL string, title *string, rawContent string, quality float64) (model.Document, error)
	UpdateSummary(ctx context.Context, id uuid.UUID, summary string) (model.Document, error)
	MarkSummaryFailed(ctx context.Context, id uuid.UUID) error
}

// Deps is the shared context handed to every worker. All fields are
// safe for concurrent use; mutation lives inside the components.
type Deps struct {
	Store      Backend
	Index      search.Index
	Scraper    *Scraper
	Robots     *RobotsCache
	Pacer      *DomainPacer
	Summarizer Summarizer
	Log        *slog.Logger

	Workers       int
	IdlePoll      time.Duration
	DiscoverLinks bool
}

// PoolStatus is the runtime snapshot reported by the crawler status
// endpoint.
type PoolStatus struct {
	Running         bool  `json:"running"`
	Workers         int   `json:"workers"`
	Processed       int64 `json:"processed"`
	Failed          int64 `json:"failed"`
	LinksDiscovered int64 `json:"links_discovered"`
}

// Pool runs N workers that drain the crawl queue.
type Pool struct {
	deps Deps

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup

	running   atomic.Bool
	processed atomic.Int64
	failed    atomic.Int64
	links     atomic.Int64
}

func NewPool(deps Deps) *Pool {
	if deps.Workers <= 0 {
		deps.Workers = 2
	}
	if deps.IdlePoll <= 0 {
		deps.IdlePoll = 5 * time.Second
	}
	return &Pool{deps: deps}
}

// Start launches the worker goroutines. Calling Start on a running pool
// is a no-op.
func (p *Pool) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running.Load() {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.running.Store(true)

	for i := 0; i < p.deps.Workers; i++ {
		p.wg.Add(1)
		go p.run(ctx, i)
	}
	p.deps.Log.Info("crawler pool started", "workers", p.deps.Workers)
}

// Stop cancels the workers and waits for in-flight entries to finish.
func (p *Pool) Stop() {
	p.mu.Lock()
	cancel := p.cancel
	p.cancel = nil
	p.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	p.wg.Wait()
	p.running.Store(false)
	p.deps.Log.Info("crawler pool stopped",
		"processed", p.processed.Load(), "failed", p.failed.Load())
}

// Status reports the pool's counters.
func (p *Pool) Status() PoolStatus {
	return PoolStatus{
		Running:         p.running.Load(),
		Workers:         p.deps.Workers,
		Processed:       p.processed.Load(),
		Failed:          p.failed.Load(),
		LinksDiscovered: p.links.Load(),
	}
}

func (p *Pool) run(ctx context.Context, id int) {
	defer p.wg.Done()
	log := p.deps.Log.With("worker", id)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		entry, err := p.deps.Store.DequeueNext(ctx)
		if err != nil {
			log.Error("dequeue failed", "error", err)
			if !p.idle(ctx) {
				return
			}
			continue
		}
		if entry == nil {
			if !p.idle(ctx) {
				return
			}
			continue
		}

		p.processEntry(ctx, log, entry)
	}
}

// idle sleeps one poll interval. Returns false when cancelled.
func (p *Pool) idle(ctx context.Context) bool {
	timer := time.NewTimer(p.deps.IdlePoll)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func (p *Pool) processEntry(ctx context.Context, log *slog.Logger, entry *model.QueueEntry) {
	doc, links, err := p.Ingest(ctx, entry.URL)
	if err != nil {
		log.Warn("crawl failed", "url", entry.URL, "error", err)
		if mErr := p.deps.Store.MarkFailed(ctx, entry.ID, err.Error()); mErr != nil {
			log.Error("mark failed errored", "id", entry.ID, "error", mErr)
		}
		p.failed.Add(1)
		metrics.RecordCrawl("failed")
		return
	}

	if err := p.deps.Store.MarkCompleted(ctx, entry.ID); err != nil {
		log.Error("mark completed errored", "id", entry.ID, "error", err)
	}
	p.processed.Add(1)
	metrics.RecordCrawl("completed")
	log.Info("crawled", "url", entry.URL, "doc", doc.ID, "links", len(links))

	p.enqueueLinks(ctx, links)
}

// Crawl ingests one URL synchronously and enqueues its discovered
// links, leaving the stores in the same state a queue-driven crawl
// would.
func (p *Pool) Crawl(ctx context.Context, rawURL string) (model.Document, error) {
	doc, links, err := p.Ingest(ctx, rawURL)
	if err != nil {
		return model.Document{}, err
	}
	p.enqueueLinks(ctx, links)
	return doc, nil
}

func (p *Pool) enqueueLinks(ctx context.Context, links []string) {
	p.links.Add(int64(len(links)))
	for _, link := range links {
		known, err := p.deps.Store.URLIsKnown(ctx, link)
		if err != nil || known {
			continue
		}
		if _, err := p.deps.Store.EnqueueURL(ctx, link, model.PriorityDiscoveredLink, nil); err != nil {
			p.deps.Log.Warn("enqueue discovered link failed", "url", link, "error", err)
		}
	}
}

// Ingest runs the full pipeline for one URL: robots check, politeness
// delay, duplicate suppression, scrape, store, index, summarize. It is
// shared by the worker loop and the synchronous crawl endpoint so both
// leave the stores in the same state. Returns the stored document and
// the same-domain links discovered on the page.
func (p *Pool) Ingest(ctx context.Context, rawURL string) (model.Document, []string, error) {
	canonical, err := store.CanonicalizeURL(rawURL)
	if err != nil {
		return model.Document{}, nil, err
	}

	if !p.deps.Robots.Allowed(ctx, canonical) {
		return model.Document{}, nil, apperr.Newf(apperr.KindCrawler, "blocked by robots.txt: %s", canonical)
	}

	domain, err := store.ExtractDomain(canonical)
	if err != nil {
		return model.Document{}, nil, err
	}
	if err := p.deps.Pacer.Wait(ctx, domain); err != nil {
		return model.Document{}, nil, err
	}

	// Re-crawl suppression: an already stored URL is a success with no
	// new link discovery.
	if existing, err := p.deps.Store.GetDocumentByURL(ctx, canonical); err != nil {
		return model.Document{}, nil, err
	} else if existing != nil {
		return *existing, nil, nil
	}

	page, err := p.deps.Scraper.Scrape(ctx, canonical)
	if err != nil {
		return model.Document{}, nil, err
	}

	var links []string
	if p.deps.DiscoverLinks {
		links, _ = ExtractLinks(page.RawHTML, canonical)
	}

	quality := QualityScore(canonical, page.Title, page.Text)

	doc, err := p.deps.Store.InsertDocument(ctx, canonical, page.Title, page.Text, quality)
	if err != nil {
		return model.Document{}, nil, err
	}

	// The row store is the source of truth; a missed upsert is
	// reconciled later by resync.
	if err := p.deps.Index.AddDocuments(ctx, []search.Payload{search.PayloadFromDocument(doc)}); err != nil {
		p.deps.Log.Warn("index upsert failed", "doc", doc.ID, "error", err)
	}

	doc = p.summarize(ctx, doc)
	return doc, links, nil
}

// summarize generates and persists a short summary, then re-indexes.
// Failures leave the document in the failed summary state; they never
// fail the ingest.
func (p *Pool) summarize(ctx context.Context, doc model.Document) model.Document {
	input := textutil.TruncateUTF8(doc.RawContent, summarizeInputBytes)

	summary, err := p.deps.Summarizer.Summarize(ctx, input)
	if err != nil || summary == "" {
		p.deps.Log.Warn("summarize failed", "doc", doc.ID, "error", err)
		if mErr := p.deps.Store.MarkSummaryFailed(ctx, doc.ID); mErr != nil {
			p.deps.Log.Error("mark summary failed errored", "doc", doc.ID, "error", mErr)
		}
		doc.Status = model.DocStatusFailed
		return doc
	}

	updated, err := p.deps.Store.UpdateSummary(ctx, doc.ID, summary)
	if err != nil {
		p.deps.Log.Error("update summary errored", "doc", doc.ID, "error", err)
		return doc
	}

	if err := p.deps.Index.AddDocuments(ctx, []search.Payload{search.PayloadFromDocument(updated)}); err != nil {
		p.deps.Log.Warn("index upsert failed", "doc", updated.ID, "error", err)
	}
	return updated
}
