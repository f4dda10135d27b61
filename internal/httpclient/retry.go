package httpclient

import (
	"net/http"
	"sync"
	"time"
)

// retryPolicy controls the Client's retry/backoff behavior on
// transient failures (§7: transport errors, 429/5xx).
type retryPolicy struct {
	maxRetries     int
	initialBackoff time.Duration
	maxBackoff     time.Duration
	backoffFactor  float64
}

func defaultRetryPolicy(maxRetries int) retryPolicy {
	return retryPolicy{
		maxRetries:     maxRetries,
		initialBackoff: 1 * time.Second,
		maxBackoff:     30 * time.Second,
		backoffFactor:  2.0,
	}
}

// shouldRetry reports whether a response/error pair is worth retrying.
func (p retryPolicy) shouldRetry(statusCode int, err error) bool {
	if err != nil {
		return true
	}
	switch statusCode {
	case http.StatusTooManyRequests, http.StatusInternalServerError,
		http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

func (p retryPolicy) backoff(attempt int) time.Duration {
	d := p.initialBackoff
	for i := 0; i < attempt; i++ {
		d = time.Duration(float64(d) * p.backoffFactor)
		if d > p.maxBackoff {
			return p.maxBackoff
		}
	}
	return d
}

// hostBackoffTracker records consecutive per-host failures so
// recordFailure can push a host's next-attempt time further out on
// repeated trouble — distinct from (and in addition to) the
// politeness enforcer's next_fetch_time, which spaces every fetch
// attempt by crawl-delay. This tracks transport/server trouble,
// not crawl-delay.
type hostBackoffTracker struct {
	mu    sync.Mutex
	hosts map[string]*hostState
}

type hostState struct {
	consecutiveFails int
	backoffUntil     time.Time
}

func newHostBackoffTracker() *hostBackoffTracker {
	return &hostBackoffTracker{hosts: make(map[string]*hostState)}
}

// stateLocked returns host's state, creating it if absent. Callers
// must hold t.mu.
func (t *hostBackoffTracker) stateLocked(host string) *hostState {
	s, ok := t.hosts[host]
	if !ok {
		s = &hostState{}
		t.hosts[host] = s
	}
	return s
}

func (t *hostBackoffTracker) recordFailure(policy retryPolicy, host string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := t.stateLocked(host)
	s.consecutiveFails++
	s.backoffUntil = time.Now().Add(policy.backoff(s.consecutiveFails))
}

func (t *hostBackoffTracker) recordSuccess(host string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := t.stateLocked(host)
	s.consecutiveFails = 0
	s.backoffUntil = time.Time{}
}

func (t *hostBackoffTracker) inBackoff(host string) (bool, time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := t.stateLocked(host)
	if time.Now().Before(s.backoffUntil) {
		return true, time.Until(s.backoffUntil)
	}
	return false, 0
}
