package observability

import (
	"strconv"
	"sync"
	"time"
)

// Metrics provides basic in-memory counters.
type Metrics struct {
	mu                 sync.Mutex
	requestCount       map[string]int64
	errorCount         map[string]int64
	dispatchDelivered  int64
	dispatchFailed     int64
	sessionsCommitted  int64
	sessionsCancelled  int64
	sessionsEvicted    int64
}

// NewMetrics initializes metrics storage.
func NewMetrics() *Metrics {
	return &Metrics{
		requestCount: make(map[string]int64),
		errorCount:   make(map[string]int64),
	}
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	key := pathKey(path, method, status)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestCount[key]++
}

// RecordError increments error counters.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	key := path + "|" + method + "|" + code
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorCount[key]++
}

// RecordDispatch tallies a notification delivery outcome.
func (m *Metrics) RecordDispatch(delivered bool) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if delivered {
		m.dispatchDelivered++
	} else {
		m.dispatchFailed++
	}
}

// RecordSessionOutcome tallies how an intake session ended.
func (m *Metrics) RecordSessionOutcome(outcome string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	switch outcome {
	case "committed":
		m.sessionsCommitted++
	case "cancelled":
		m.sessionsCancelled++
	case "evicted":
		m.sessionsEvicted++
	}
}

// Snapshot holds a point-in-time copy of the counters for the dashboard.
type Snapshot struct {
	DispatchDelivered int64 `json:"dispatch_delivered"`
	DispatchFailed    int64 `json:"dispatch_failed"`
	SessionsCommitted int64 `json:"sessions_committed"`
	SessionsCancelled int64 `json:"sessions_cancelled"`
	SessionsEvicted   int64 `json:"sessions_evicted"`
}

// SnapshotCounters returns current dispatch and session counters.
func (m *Metrics) SnapshotCounters() Snapshot {
	if m == nil {
		return Snapshot{}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return Snapshot{
		DispatchDelivered: m.dispatchDelivered,
		DispatchFailed:    m.dispatchFailed,
		SessionsCommitted: m.sessionsCommitted,
		SessionsCancelled: m.sessionsCancelled,
		SessionsEvicted:   m.sessionsEvicted,
	}
}

func pathKey(path, method string, status int) string {
	return path + "|" + method + "|" + strconv.Itoa(status)
}
