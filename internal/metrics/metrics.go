package metrics

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Simple Prometheus-style metrics for the API and the crawler.
// This is intentionally minimal and in-memory only.

var (
	mu             sync.RWMutex
	requestsTotal  = make(map[reqKey]int64)
	latencyMsSum   = make(map[latKey]int64)
	latencyMsCount = make(map[latKey]int64)

	crawlsTotal  = make(map[string]int64)
	queriesTotal = make(map[string]int64)
	llmCalls     = make(map[llmKey]int64)
)

type reqKey struct {
	Method string
	Path   string
	Status int
}

type latKey struct {
	Method string
	Path   string
}

type llmKey struct {
	Op      string
	Success string
}

// RecordRequest increments the request counter and records latency.
func RecordRequest(method, path string, status int, latencyMs int64) {
	mu.Lock()
	defer mu.Unlock()

	requestsTotal[reqKey{Method: method, Path: path, Status: status}]++

	lk := latKey{Method: method, Path: path}
	latencyMsSum[lk] += latencyMs
	latencyMsCount[lk]++
}

// RecordCrawl counts one processed queue entry by outcome
// (completed, failed, skipped).
func RecordCrawl(result string) {
	mu.Lock()
	defer mu.Unlock()
	crawlsTotal[result]++
}

// RecordQuery counts one search pipeline invocation by intent.
func RecordQuery(intent string) {
	mu.Lock()
	defer mu.Unlock()
	queriesTotal[intent]++
}

// RecordLLM counts one generation call by operation
// (summarize, answer) and outcome.
func RecordLLM(op string, success bool) {
	mu.Lock()
	defer mu.Unlock()

	s := "false"
	if success {
		s = "true"
	}
	llmCalls[llmKey{Op: op, Success: s}]++
}

// Export returns Prometheus-style metrics text.
func Export() string {
	mu.RLock()
	defer mu.RUnlock()

	var b strings.Builder

	b.WriteString("# HELP notice_http_requests_total Total HTTP requests\n")
	b.WriteString("# TYPE notice_http_requests_total counter\n")

	// Sort keys for stable output
	var reqKeys []reqKey
	for k := range requestsTotal {
		reqKeys = append(reqKeys, k)
	}
	sort.Slice(reqKeys, func(i, j int) bool {
		if reqKeys[i].Method != reqKeys[j].Method {
			return reqKeys[i].Method < reqKeys[j].Method
		}
		if reqKeys[i].Path != reqKeys[j].Path {
			return reqKeys[i].Path < reqKeys[j].Path
		}
		return reqKeys[i].Status < reqKeys[j].Status
	})

	for _, k := range reqKeys {
		fmt.Fprintf(&b, "notice_http_requests_total{method=\"%s\",path=\"%s\",status=\"%d\"} %d\n",
			k.Method, k.Path, k.Status, requestsTotal[k])
	}

	b.WriteString("# HELP notice_http_request_duration_ms_sum Total request duration in milliseconds\n")
	b.WriteString("# TYPE notice_http_request_duration_ms_sum counter\n")
	b.WriteString("# HELP notice_http_request_duration_ms_count Request count for latency metric\n")
	b.WriteString("# TYPE notice_http_request_duration_ms_count counter\n")

	var latKeys []latKey
	for k := range latencyMsSum {
		latKeys = append(latKeys, k)
	}
	sort.Slice(latKeys, func(i, j int) bool {
		if latKeys[i].Method != latKeys[j].Method {
			return latKeys[i].Method < latKeys[j].Method
		}
		return latKeys[i].Path < latKeys[j].Path
	})

	for _, k := range latKeys {
		fmt.Fprintf(&b, "notice_http_request_duration_ms_sum{method=\"%s\",path=\"%s\"} %d\n",
			k.Method, k.Path, latencyMsSum[k])
		fmt.Fprintf(&b, "notice_http_request_duration_ms_count{method=\"%s\",path=\"%s\"} %d\n",
			k.Method, k.Path, latencyMsCount[k])
	}

	b.WriteString("# HELP notice_crawls_total Processed crawl queue entries by outcome\n")
	b.WriteString("# TYPE notice_crawls_total counter\n")
	for _, k := range sortedKeys(crawlsTotal) {
		fmt.Fprintf(&b, "notice_crawls_total{result=\"%s\"} %d\n", k, crawlsTotal[k])
	}

	b.WriteString("# HELP notice_queries_total Search pipeline invocations by intent\n")
	b.WriteString("# TYPE notice_queries_total counter\n")
	for _, k := range sortedKeys(queriesTotal) {
		fmt.Fprintf(&b, "notice_queries_total{intent=\"%s\"} %d\n", k, queriesTotal[k])
	}

	b.WriteString("# HELP notice_llm_calls_total Generation API calls by operation and outcome\n")
	b.WriteString("# TYPE notice_llm_calls_total counter\n")

	var llmKeys []llmKey
	for k := range llmCalls {
		llmKeys = append(llmKeys, k)
	}
	sort.Slice(llmKeys, func(i, j int) bool {
		if llmKeys[i].Op != llmKeys[j].Op {
			return llmKeys[i].Op < llmKeys[j].Op
		}
		return llmKeys[i].Success < llmKeys[j].Success
	})

	for _, k := range llmKeys {
		fmt.Fprintf(&b, "notice_llm_calls_total{op=\"%s\",success=\"%s\"} %d\n",
			k.Op, k.Success, llmCalls[k])
	}

	return b.String()
}

func sortedKeys(m map[string]int64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Reset clears all counters. Test helper.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	requestsTotal = make(map[reqKey]int64)
	latencyMsSum = make(map[latKey]int64)
	latencyMsCount = make(map[latKey]int64)
	crawlsTotal = make(map[string]int64)
	queriesTotal = make(map[string]int64)
	llmCalls = make(map[llmKey]int64)
}
