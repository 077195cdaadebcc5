// Package metrics counts the client's outbound API calls and exposes them through expvar
// and a small JSON handler for the watch command's debug listener.
package metrics

import (
	"encoding/json"
	"expvar"
	"net/http"
	"strconv"
	"sync"
	"time"
)

const (
	// Debug endpoints served on BB_DEBUG_ADDR
	StatsPath     = "/stats"
	DebugVarsPath = "/debug/vars"
)

var (
	st       = newState()
	initOnce sync.Once
)

// Init publishes the expvar variables. Safe to call more than once.
func Init() {
	initOnce.Do(publish)
}

func publish() {
	expvar.Publish("bb_started_at", expvar.Func(func() any {
		st.mu.Lock()
		defer st.mu.Unlock()
		return st.startedAt.Format(time.RFC3339)
	}))
	expvar.Publish("bb_total_requests", expvar.Func(func() any {
		st.mu.Lock()
		defer st.mu.Unlock()
		return st.totalReq
	}))
	expvar.Publish("bb_total_errors", expvar.Func(func() any {
		st.mu.Lock()
		defer st.mu.Unlock()
		return st.totalErr
	}))
	expvar.Publish("bb_transport_failures", expvar.Func(func() any {
		st.mu.Lock()
		defer st.mu.Unlock()
		return st.transportFail
	}))
	expvar.Publish("bb_requests_by_method_status", expvar.Func(func() any {
		st.mu.Lock()
		defer st.mu.Unlock()
		return st.methodStatusLocked()
	}))
	expvar.Publish("bb_request_duration_ms_buckets", expvar.Func(func() any {
		st.mu.Lock()
		defer st.mu.Unlock()
		out := make(map[string]map[string]int64, len(st.durationBuckets))
		for m, inner := range st.durationBuckets {
			o2 := make(map[string]int64, len(inner))
			for bucket, c := range inner {
				o2[bucket] = c
			}
			out[m] = o2
		}
		return out
	}))
	expvar.Publish("bb_requests_last_10m", expvar.Func(func() any {
		st.mu.Lock()
		defer st.mu.Unlock()
		out := make([]int64, len(st.perMinute))
		copy(out, st.perMinute[:])
		return out
	}))
}

// Instrument wraps an http.RoundTripper to record request count, status codes,
// latency buckets and requests-per-minute. A nil next means http.DefaultTransport.
func Instrument(next http.RoundTripper) http.RoundTripper {
	if next == nil {
		next = http.DefaultTransport
	}
	return roundTripperFunc(func(r *http.Request) (*http.Response, error) {
		start := time.Now()
		res, err := next.RoundTrip(r)
		status := 0
		if err == nil {
			status = res.StatusCode
		}
		st.record(r.Method, status, time.Since(start))
		return res, err
	})
}

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

// Stats is a point-in-time view of the counters.
type Stats struct {
	StartedAt                 string                      `json:"started_at"`
	UptimeSeconds             int64                       `json:"uptime_seconds"`
	TotalRequests             int64                       `json:"total_requests"`
	TotalErrors               int64                       `json:"total_errors"`
	TransportFailures         int64                       `json:"transport_failures"`
	AverageLatencyMs          float64                     `json:"avg_latency_ms"`
	RequestsPerMinuteLast10m  []int64                     `json:"requests_last_10m_newest_first"`
	RequestsByMethodAndStatus map[string]map[string]int64 `json:"requests_by_method_status"`
}

// Snapshot returns the current counters.
func Snapshot() Stats {
	now := time.Now()
	st.mu.Lock()
	defer st.mu.Unlock()

	st.rotateLocked(now)
	avgLatencyMs := float64(0)
	if st.totalReq > 0 {
		avgLatencyMs = float64(st.totalLatency.Milliseconds()) / float64(st.totalReq)
	}
	rpm := make([]int64, len(st.perMinute))
	copy(rpm, st.perMinute[:])

	return Stats{
		StartedAt:                 st.startedAt.Format(time.RFC3339),
		UptimeSeconds:             int64(now.Sub(st.startedAt).Seconds()),
		TotalRequests:             st.totalReq,
		TotalErrors:               st.totalErr,
		TransportFailures:         st.transportFail,
		AverageLatencyMs:          avgLatencyMs,
		RequestsPerMinuteLast10m:  rpm,
		RequestsByMethodAndStatus: st.methodStatusLocked(),
	}
}

// StatsHandler writes Snapshot as JSON.
func StatsHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(Snapshot())
}

// Reset clears every counter.
func Reset() {
	fresh := newState()
	st.mu.Lock()
	defer st.mu.Unlock()
	st.startedAt = fresh.startedAt
	st.totalReq, st.totalErr, st.transportFail = 0, 0, 0
	st.totalLatency = 0
	st.byMethodStatus = fresh.byMethodStatus
	st.durationBuckets = fresh.durationBuckets
	st.perMinute = [10]int64{}
	st.lastMinute = time.Time{}
}

type metricsState struct {
	mu sync.Mutex

	startedAt time.Time

	totalReq      int64
	totalErr      int64
	transportFail int64
	totalLatency  time.Duration

	// method -> statusCode -> count; status 0 is a transport failure
	byMethodStatus map[string]map[int]int64
	// method -> bucketLabel -> count
	durationBuckets map[string]map[string]int64

	// Newest minute is perMinute[0], oldest is perMinute[9]
	perMinute  [10]int64
	lastMinute time.Time
}

func newState() *metricsState {
	return &metricsState{
		startedAt:       time.Now(),
		byMethodStatus:  make(map[string]map[int]int64),
		durationBuckets: make(map[string]map[string]int64),
	}
}

func (s *metricsState) record(method string, statusCode int, d time.Duration) {
	now := time.Now()
	if method == "" {
		method = http.MethodGet
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.totalReq++
	switch {
	case statusCode == 0:
		s.transportFail++
		s.totalErr++
	case statusCode < 200 || statusCode > 299:
		s.totalErr++
	}
	s.totalLatency += d

	if _, ok := s.byMethodStatus[method]; !ok {
		s.byMethodStatus[method] = make(map[int]int64)
	}
	s.byMethodStatus[method][statusCode]++

	bucket := bucketLabel(d)
	if _, ok := s.durationBuckets[method]; !ok {
		s.durationBuckets[method] = make(map[string]int64)
	}
	s.durationBuckets[method][bucket]++

	s.rotateLocked(now)
	s.perMinute[0]++
}

// rotateLocked shifts the per-minute ring so perMinute[0] is the current minute.
func (s *metricsState) rotateLocked(now time.Time) {
	currMinute := now.Truncate(time.Minute)
	if s.lastMinute.IsZero() {
		s.lastMinute = currMinute
		return
	}
	delta := int(currMinute.Sub(s.lastMinute) / time.Minute)
	if delta <= 0 {
		return
	}
	if delta >= len(s.perMinute) {
		s.perMinute = [10]int64{}
	} else {
		for i := len(s.perMinute) - 1; i >= delta; i-- {
			s.perMinute[i] = s.perMinute[i-delta]
		}
		for i := 0; i < delta; i++ {
			s.perMinute[i] = 0
		}
	}
	s.lastMinute = currMinute
}

func (s *metricsState) methodStatusLocked() map[string]map[string]int64 {
	out := make(map[string]map[string]int64, len(s.byMethodStatus))
	for m, inner := range s.byMethodStatus {
		o2 := make(map[string]int64, len(inner))
		for code, c := range inner {
			o2[strconv.Itoa(code)] = c
		}
		out[m] = o2
	}
	return out
}

var bucketBounds = []time.Duration{
	10 * time.Millisecond,
	25 * time.Millisecond,
	50 * time.Millisecond,
	100 * time.Millisecond,
	250 * time.Millisecond,
	500 * time.Millisecond,
	1000 * time.Millisecond,
	2500 * time.Millisecond,
	5000 * time.Millisecond,
}

func bucketLabel(d time.Duration) string {
	for _, b := range bucketBounds {
		if d <= b {
			return "le_" + strconv.FormatInt(b.Milliseconds(), 10) + "ms"
		}
	}
	return "gt_5000ms"
}
