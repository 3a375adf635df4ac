package metrics

import (
	"sync"
	"time"
)

const sampleSize = 1000

// Snapshot is the read-only view served by the health endpoint
type Snapshot struct {
	UptimeSeconds     float64        `json:"uptime_seconds"`
	TotalRequests     int64          `json:"total_requests"`
	TotalErrors       int64          `json:"total_errors"`
	ErrorRate         float64        `json:"error_rate"`
	AvgResponseTime   float64        `json:"avg_response_time"`
	APIFailures       map[string]int `json:"api_failures"`
	ErrorsByType      map[string]int `json:"errors_by_type"`
	RequestsPerMinute int            `json:"requests_per_minute"`
}

// Recorder keeps process-wide counters and a bounded ring of recent latencies
type Recorder struct {
	mu        sync.Mutex
	start     time.Time
	requests  int64
	errors    int64
	failures  map[string]int
	errTypes  map[string]int
	durations []time.Duration
	stamps    []time.Time
	next      int
	now       func() time.Time
}

func NewRecorder() *Recorder {
	r := &Recorder{
		failures: make(map[string]int),
		errTypes: make(map[string]int),
		now:      time.Now,
	}
	r.start = r.now()
	return r
}

func (r *Recorder) RecordRequest(d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.requests++
	now := r.now()
	if len(r.durations) < sampleSize {
		r.durations = append(r.durations, d)
		r.stamps = append(r.stamps, now)
		return
	}
	r.durations[r.next] = d
	r.stamps[r.next] = now
	r.next = (r.next + 1) % sampleSize
}

func (r *Recorder) RecordError(kind string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.errors++
	if kind == "" {
		kind = "general"
	}
	r.errTypes[kind]++
}

// RecordAPIFailure counts one failed upstream attempt for provider
func (r *Recorder) RecordAPIFailure(provider string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures[provider]++
}

func (r *Recorder) APIFailures(provider string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.failures[provider]
}

func (r *Recorder) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	s := Snapshot{
		UptimeSeconds: now.Sub(r.start).Seconds(),
		TotalRequests: r.requests,
		TotalErrors:   r.errors,
		APIFailures:   make(map[string]int, len(r.failures)),
		ErrorsByType:  make(map[string]int, len(r.errTypes)),
	}

	denom := r.requests
	if denom < 1 {
		denom = 1
	}
	s.ErrorRate = float64(r.errors) / float64(denom)

	if len(r.durations) > 0 {
		var total time.Duration
		for _, d := range r.durations {
			total += d
		}
		s.AvgResponseTime = (total / time.Duration(len(r.durations))).Seconds()
	}

	for _, ts := range r.stamps {
		if now.Sub(ts) < time.Minute {
			s.RequestsPerMinute++
		}
	}
	for k, v := range r.failures {
		s.APIFailures[k] = v
	}
	for k, v := range r.errTypes {
		s.ErrorsByType[k] = v
	}
	return s
}
