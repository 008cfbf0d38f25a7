package dynamock

import (
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"
)

const (
	pruneInterval = time.Minute
	// Entries idle for this many windows are pruned. Anything idle for at
	// least one window is admissible again, so pruning at a multiple of the
	// window never changes an admit/reject decision.
	pruneAfterWindows = 10
)

// Limiter is a fixed-cooldown per-client gate: one accepted request per
// window per client identifier, however many arrive during the cooldown.
// Exempt paths bypass it entirely, including the timestamp bookkeeping.
type Limiter struct {
	window int64
	exempt map[string]struct{}

	mu   sync.Mutex
	last map[string]int64

	stopCh    chan struct{}
	stoppedCh chan struct{}
}

// NewLimiter creates a limiter with the given cooldown window in seconds and
// exempt path set. It starts a background goroutine that prunes idle entries
// so sustained unique-client traffic does not grow the map forever; call
// Stop when the limiter is no longer needed.
func NewLimiter(windowSeconds int, exemptPaths []string) *Limiter {
	exempt := make(map[string]struct{}, len(exemptPaths))
	for _, p := range exemptPaths {
		if p != "" {
			exempt[p] = struct{}{}
		}
	}

	l := &Limiter{
		window:    int64(windowSeconds),
		exempt:    exempt,
		last:      make(map[string]int64),
		stopCh:    make(chan struct{}),
		stoppedCh: make(chan struct{}),
	}

	go l.prune()

	return l
}

// Allow decides whether a request from id for path at time now (unix seconds)
// is admitted. On rejection it returns the seconds remaining until the
// client's cooldown elapses. Rejections do not refresh the cooldown.
func (l *Limiter) Allow(id, path string, now int64) (bool, int64) {
	if _, ok := l.exempt[path]; ok {
		return true, 0
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	last, seen := l.last[id]
	if !seen || now-last >= l.window {
		l.last[id] = now
		return true, 0
	}
	return false, l.window - (now - last)
}

// Stop terminates the pruning goroutine.
func (l *Limiter) Stop() {
	close(l.stopCh)
	<-l.stoppedCh
}

func (l *Limiter) prune() {
	ticker := time.NewTicker(pruneInterval)
	defer ticker.Stop()
	defer close(l.stoppedCh)

	for {
		select {
		case <-ticker.C:
			l.removeIdleEntries(time.Now().Unix())
		case <-l.stopCh:
			return
		}
	}
}

func (l *Limiter) removeIdleEntries(now int64) {
	cutoff := l.window * pruneAfterWindows

	l.mu.Lock()
	defer l.mu.Unlock()

	for id, last := range l.last {
		if now-last >= cutoff {
			delete(l.last, id)
		}
	}
}

type rateLimitError struct {
	Error             string `json:"error"`
	RetryAfterSeconds int64  `json:"retry_after_seconds"`
}

// Middleware gates every request through the limiter, keyed by the client's
// remote address. If the client identifier cannot be determined the request
// is admitted; availability outweighs strict limiting.
func (l *Limiter) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id := clientID(c.Request())
			if id == "" {
				log.Warnf("no client identifier for %s %s, admitting", c.Request().Method, c.Request().URL.Path)
				return next(c)
			}

			ok, retryAfter := l.Allow(id, c.Request().URL.Path, time.Now().Unix())
			if ok {
				return next(c)
			}

			c.Response().Header().Set("Retry-After", strconv.FormatInt(retryAfter, 10))
			return c.JSON(http.StatusTooManyRequests, rateLimitError{
				Error:             "Too many requests",
				RetryAfterSeconds: retryAfter,
			})
		}
	}
}

// clientID extracts the client IP from the request's remote address, falling
// back to the whole address when it has no port.
func clientID(req *http.Request) string {
	host, _, err := net.SplitHostPort(req.RemoteAddr)
	if err != nil {
		return req.RemoteAddr
	}
	return host
}
