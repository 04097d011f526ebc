// Package storage implements the relay's in-memory envelope store: a
// token-partitioned, TTL-expiring mailbox map. Nothing here survives a
// restart; the relay holds ciphertext only as long as delivery needs.
package storage

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/robfig/cron/v3"

	"github.com/blindrelay/go-blindrelay-server/metrics"
	"github.com/blindrelay/go-blindrelay-server/types"
)

// shardCount spreads mailboxes over independent locks so concurrent sends to
// different tokens do not serialize on a single mutex. Power of two.
const shardCount = 32

type shard struct {
	mu        sync.RWMutex
	mailboxes map[string][]*types.Envelope
}

// Stats is a read-only aggregate over the whole store.
type Stats struct {
	TotalEnvelopes  int
	ActiveMailboxes int
	Uptime          time.Duration
}

// MailboxStore maps routing tokens to ordered envelope queues. All methods
// are safe for concurrent use; mutations on a mailbox are atomic with
// respect to each other and to the background evictor.
type MailboxStore struct {
	shards         [shardCount]*shard
	maxPerMailbox  int // 0 disables the per-token cap
	maxTotal       int // 0 disables the global cap
	totalEnvelopes atomic.Int64
	startTime      time.Time

	logger  log.Logger
	evictor *cron.Cron
}

func NewMailboxStore(logger log.Logger, maxPerMailbox, maxTotal int) *MailboxStore {
	s := &MailboxStore{
		maxPerMailbox: maxPerMailbox,
		maxTotal:      maxTotal,
		startTime:     time.Now(),
		logger:        logger,
	}
	for i := range s.shards {
		s.shards[i] = &shard{mailboxes: make(map[string][]*types.Envelope)}
	}
	return s
}

func (s *MailboxStore) shardFor(token string) *shard {
	return s.shards[xxhash.Sum64String(token)&(shardCount-1)]
}

// Store appends the envelope to its token's mailbox, creating the mailbox if
// absent. The caller (the API layer) has already assigned messageId,
// receivedAt and an effective TTL. The only failure mode is capacity:
// breaching a configured limit returns ErrStorageExhausted and leaves the
// store untouched.
func (s *MailboxStore) Store(envelope *types.Envelope) error {
	if s.maxTotal > 0 && int(s.totalEnvelopes.Load()) >= s.maxTotal {
		return types.ErrStorageExhausted
	}

	sh := s.shardFor(envelope.Token)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	box := sh.mailboxes[envelope.Token]
	if s.maxPerMailbox > 0 && len(box) >= s.maxPerMailbox {
		return types.ErrStorageExhausted
	}
	sh.mailboxes[envelope.Token] = append(box, envelope)

	s.totalEnvelopes.Add(1)
	metrics.EnvelopesStoredMetricsCount.Inc()
	metrics.StoredEnvelopesGauge.Inc()
	return nil
}

// Fetch returns the non-expired envelopes for token whose receivedAt is
// strictly after since (pass the zero time for no filter), in arrival order.
// With destructive set, the returned envelopes are removed from the mailbox
// in the same atomic step, so a consume can neither re-deliver nor lose an
// envelope. Expired envelopes discovered during the scan are dropped
// regardless of destructive. Unknown tokens yield an empty slice.
func (s *MailboxStore) Fetch(token string, since time.Time, destructive bool) []*types.Envelope {
	sh := s.shardFor(token)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	box, ok := sh.mailboxes[token]
	if !ok {
		return []*types.Envelope{}
	}

	now := time.Now()
	fetched := []*types.Envelope{}
	remaining := box[:0]
	expired := 0

	for _, env := range box {
		if env.Expired(now) {
			expired++
			continue
		}
		if !since.IsZero() && !env.ReceivedAt.After(since) {
			remaining = append(remaining, env)
			continue
		}
		fetched = append(fetched, env)
		if !destructive {
			remaining = append(remaining, env)
		}
	}

	if len(remaining) == 0 {
		delete(sh.mailboxes, token)
	} else {
		sh.mailboxes[token] = remaining
	}

	removed := expired
	if destructive {
		removed += len(fetched)
		metrics.EnvelopesDeliveredMetricsCount.Add(float64(len(fetched)))
	}
	if removed > 0 {
		s.totalEnvelopes.Add(int64(-removed))
		metrics.StoredEnvelopesGauge.Sub(float64(removed))
	}
	if expired > 0 {
		metrics.EnvelopesExpiredMetricsCount.Add(float64(expired))
	}

	// receivedAt is assigned before the shard lock is taken, so concurrent
	// stores can land out of timestamp order; the stable sort restores FIFO
	// with insertion order breaking ties
	sort.SliceStable(fetched, func(i, j int) bool {
		return fetched[i].ReceivedAt.Before(fetched[j].ReceivedAt)
	})
	return fetched
}

// EvictExpired sweeps every mailbox, removing envelopes whose TTL elapsed
// before now and deleting mailboxes left empty. It is the backstop that
// bounds memory even when nobody ever polls. Returns the number of
// envelopes removed.
func (s *MailboxStore) EvictExpired(now time.Time) int {
	evicted := 0
	for _, sh := range s.shards {
		sh.mu.Lock()
		for token, box := range sh.mailboxes {
			remaining := box[:0]
			for _, env := range box {
				if env.Expired(now) {
					evicted++
					continue
				}
				remaining = append(remaining, env)
			}
			if len(remaining) == 0 {
				delete(sh.mailboxes, token)
			} else {
				sh.mailboxes[token] = remaining
			}
		}
		sh.mu.Unlock()
	}

	if evicted > 0 {
		s.totalEnvelopes.Add(int64(-evicted))
		metrics.EnvelopesExpiredMetricsCount.Add(float64(evicted))
		metrics.StoredEnvelopesGauge.Sub(float64(evicted))
	}
	metrics.ActiveMailboxesGauge.Set(float64(s.countMailboxes()))
	return evicted
}

// Stats returns the live aggregate used by the status endpoint.
func (s *MailboxStore) Stats() Stats {
	return Stats{
		TotalEnvelopes:  int(s.totalEnvelopes.Load()),
		ActiveMailboxes: s.countMailboxes(),
		Uptime:          time.Since(s.startTime),
	}
}

func (s *MailboxStore) countMailboxes() int {
	count := 0
	for _, sh := range s.shards {
		sh.mu.RLock()
		count += len(sh.mailboxes)
		sh.mu.RUnlock()
	}
	return count
}

// StartEvictor schedules the periodic expiry sweep. The task is owned by the
// store: it starts here and stops with Stop, and a panic inside one sweep is
// recovered and logged rather than killing the schedule.
func (s *MailboxStore) StartEvictor(every time.Duration) error {
	if s.evictor != nil {
		return nil
	}
	c := cron.New(cron.WithChain(cron.Recover(cronLogger{s.logger})))
	_, err := c.AddFunc(fmt.Sprintf("@every %s", every), func() {
		if n := s.EvictExpired(time.Now()); n > 0 {
			s.logger.Log("msg", "evicted expired envelopes", "count", n)
		}
	})
	if err != nil {
		return err
	}
	c.Start()
	s.evictor = c
	return nil
}

// Stop halts the background evictor and waits for an in-flight sweep.
func (s *MailboxStore) Stop() {
	if s.evictor == nil {
		return
	}
	ctx := s.evictor.Stop()
	<-ctx.Done()
	s.evictor = nil
}

// cronLogger adapts the go-kit logger to the cron.Logger interface so sweep
// panics surface in the relay's own log stream.
type cronLogger struct {
	logger log.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	level.Info(c.logger).Log(append([]interface{}{"msg", msg}, keysAndValues...)...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	level.Error(c.logger).Log(append([]interface{}{"msg", msg, "err", err}, keysAndValues...)...)
}
