// Package security implements the relay's access gate: address blocking on
// repeated failures, a scanner/probe classifier, an endpoint allow-list and
// per-address rate limits. The checks are cheap local-state heuristics meant
// to keep the relay responsive under scanning and flooding, not a rigorous
// defense. All state lives in memory and resets on restart.
package security

import (
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/time/rate"

	"github.com/blindrelay/go-blindrelay-server/metrics"
)

// EndpointClass groups endpoints sharing one per-address request budget.
type EndpointClass string

const (
	ClassRelay  EndpointClass = "relay"  // send, poll, consume
	ClassStatus EndpointClass = "status" // status
	ClassHealth EndpointClass = "health" // health checks
)

const (
	limiterCacheSize = 10000
	cleanupInterval  = time.Minute
)

// paths probed by scanners and admin-panel bruteforcers; matched as
// lowercase substrings
var suspiciousPaths = []string{
	"/admin", "/wp-admin", "/phpmyadmin", "/mysql",
	"/login", "/ssh", "/.env", "/config", "/backup",
	"/wp-login", "/administrator", "/panel", "/cpanel",
}

var suspiciousAgents = []string{"scanner", "bot", "crawler", "sqlmap", "nikto", "nmap"}

var sqlPatterns = []string{"union", "select", "drop", "insert", "delete", "'", "\"", ";"}

// the only paths a client may reach; everything else is answered as not
// found without touching a handler
var allowedEndpoints = map[string]bool{
	"/":               true,
	"/api/v1/send":    true,
	"/api/v1/poll":    true,
	"/api/v1/consume": true,
	"/api/v1/status":  true,
	"/api/v1/health":  true,
	"/health":         true,
	"/metrics":        true,
}

// Config carries the gate's tunables. Zero budgets disable rate limiting
// for that class.
type Config struct {
	MaxFailedAttempts int
	BlockDuration     time.Duration
	RelayPerMinute    int
	StatusPerMinute   int
	HealthPerMinute   int
}

type failureRecord struct {
	count        int
	lastFailure  time.Time
	blockedUntil time.Time
}

// Stats is the gate's observable state for the status endpoint.
type Stats struct {
	BlockedAddresses    int
	TrackedFailures     int
	SuspiciousRejected  int64
	RateLimitedRejected int64
	MaxFailedAttempts   int
	BlockDuration       time.Duration
}

// AccessGate tracks per-address failure counts and request budgets. All
// methods are safe for concurrent use.
type AccessGate struct {
	cfg Config

	mu          sync.Mutex
	failures    map[string]*failureRecord
	lastCleanup time.Time

	limiters *lru.Cache[string, *rate.Limiter]

	suspiciousRejected  atomic.Int64
	rateLimitedRejected atomic.Int64

	logger log.Logger
}

func NewAccessGate(logger log.Logger, cfg Config) *AccessGate {
	cache, cErr := lru.New[string, *rate.Limiter](limiterCacheSize)
	if cErr != nil {
		panic(cErr)
	}
	return &AccessGate{
		cfg:         cfg,
		failures:    make(map[string]*failureRecord),
		lastCleanup: time.Now(),
		limiters:    cache,
		logger:      logger,
	}
}

// IsBlocked reports whether address is inside an active block window.
// Blocks expire on their own; there is no explicit unblock.
func (g *AccessGate) IsBlocked(address string) bool {
	now := time.Now()
	g.mu.Lock()
	defer g.mu.Unlock()
	g.cleanupLocked(now)

	rec, ok := g.failures[address]
	return ok && now.Before(rec.blockedUntil)
}

// RecordFailure increments the address's failure counter. Crossing the
// threshold starts (or extends) a block for the configured duration.
func (g *AccessGate) RecordFailure(address string) {
	now := time.Now()
	g.mu.Lock()
	defer g.mu.Unlock()
	g.cleanupLocked(now)

	rec, ok := g.failures[address]
	if !ok {
		rec = &failureRecord{}
		g.failures[address] = rec
	}
	rec.count++
	rec.lastFailure = now

	if rec.count >= g.cfg.MaxFailedAttempts {
		wasBlocked := now.Before(rec.blockedUntil)
		rec.blockedUntil = now.Add(g.cfg.BlockDuration)
		if !wasBlocked {
			level.Warn(g.logger).Log("msg", "address blocked", "address", address, "failures", rec.count, "duration", g.cfg.BlockDuration)
		}
	}
}

// RecordSuspicious counts a request rejected by the classifier or the
// endpoint allow-list and registers it as a failure for the address.
func (g *AccessGate) RecordSuspicious(address string) {
	g.suspiciousRejected.Add(1)
	metrics.SuspiciousRequestsMetricsCount.Inc()
	g.RecordFailure(address)
}

// IsSuspicious flags requests whose path or client agent matches known
// scanner signatures, or whose path carries raw SQL metacharacters. It is a
// substring heuristic; false positives are acceptable.
func (g *AccessGate) IsSuspicious(path, userAgent string) bool {
	lowerPath := strings.ToLower(path)
	for _, probe := range suspiciousPaths {
		if strings.Contains(lowerPath, probe) {
			return true
		}
	}

	lowerAgent := strings.ToLower(userAgent)
	for _, agent := range suspiciousAgents {
		if strings.Contains(lowerAgent, agent) {
			return true
		}
	}

	for _, pattern := range sqlPatterns {
		if strings.Contains(lowerPath, pattern) {
			return true
		}
	}
	return false
}

// IsAllowedEndpoint reports whether the request targets one of the relay's
// own endpoints. POST requests must declare a JSON body. The check is an
// exact path match, so traversal tricks fall through to not-found.
func (g *AccessGate) IsAllowedEndpoint(method, path, contentType string) bool {
	if !allowedEndpoints[path] {
		return false
	}
	if method == "POST" && !strings.HasPrefix(contentType, "application/json") {
		return false
	}
	return true
}

// Allow consumes one token from the address's budget for the endpoint
// class, reporting false when the budget is exhausted. Limiters are cached
// per class and address; eviction under cache pressure resets a budget,
// which only ever errs toward allowing.
func (g *AccessGate) Allow(class EndpointClass, address string) bool {
	budget := g.budgetFor(class)
	if budget <= 0 {
		return true
	}

	key := string(class) + ":" + address
	rl, ok := g.limiters.Get(key)
	if !ok {
		rl = rate.NewLimiter(rate.Every(time.Minute/time.Duration(budget)), budget)
		g.limiters.Add(key, rl)
	}
	if !rl.Allow() {
		g.rateLimitedRejected.Add(1)
		metrics.RateLimitedRequestsMetricsCount.Inc()
		return false
	}
	return true
}

func (g *AccessGate) budgetFor(class EndpointClass) int {
	switch class {
	case ClassRelay:
		return g.cfg.RelayPerMinute
	case ClassStatus:
		return g.cfg.StatusPerMinute
	case ClassHealth:
		return g.cfg.HealthPerMinute
	}
	return 0
}

// Stats returns a snapshot for the status endpoint.
func (g *AccessGate) Stats() Stats {
	now := time.Now()
	g.mu.Lock()
	defer g.mu.Unlock()
	g.cleanupLocked(now)

	blocked := 0
	for _, rec := range g.failures {
		if now.Before(rec.blockedUntil) {
			blocked++
		}
	}
	return Stats{
		BlockedAddresses:    blocked,
		TrackedFailures:     len(g.failures),
		SuspiciousRejected:  g.suspiciousRejected.Load(),
		RateLimitedRejected: g.rateLimitedRejected.Load(),
		MaxFailedAttempts:   g.cfg.MaxFailedAttempts,
		BlockDuration:       g.cfg.BlockDuration,
	}
}

// cleanupLocked drops records whose block expired and whose last failure
// fell out of the window, so a reformed address starts from zero. Runs at
// most once per cleanupInterval; callers hold g.mu.
func (g *AccessGate) cleanupLocked(now time.Time) {
	if now.Sub(g.lastCleanup) < cleanupInterval {
		return
	}
	g.lastCleanup = now

	for address, rec := range g.failures {
		if now.Before(rec.blockedUntil) {
			continue
		}
		if now.Sub(rec.lastFailure) > g.cfg.BlockDuration {
			delete(g.failures, address)
		}
	}
}
