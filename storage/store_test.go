package storage

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/go-kit/log"
	"github.com/stretchr/testify/assert"

	"github.com/blindrelay/go-blindrelay-server/types"
)

const (
	tokenA = "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	tokenB = "bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
)

func newTestStore() *MailboxStore {
	return NewMailboxStore(log.NewNopLogger(), 0, 0)
}

func testEnvelope(token, id string, age, ttl time.Duration) *types.Envelope {
	return &types.Envelope{
		MessageID:       id,
		Token:           token,
		Ciphertext:      "deadbeef" + id,
		Nonce:           "cafebabe" + id,
		SenderPublicKey: "0123456789abcdef",
		ReceivedAt:      time.Now().Add(-age),
		TTL:             ttl,
	}
}

func TestStoreAndPollRoundTrip(t *testing.T) {
	store := newTestStore()
	env := testEnvelope(tokenA, "m1", 0, time.Hour)
	if err := store.Store(env); err != nil {
		t.Fatalf("store failed: %v", err)
	}

	fetched := store.Fetch(tokenA, time.Time{}, false)
	if len(fetched) != 1 {
		t.Fatalf("expected 1 envelope, got %d", len(fetched))
	}
	assert.Equal(t, env.Ciphertext, fetched[0].Ciphertext)
	assert.Equal(t, env.Nonce, fetched[0].Nonce)
	assert.Equal(t, env.SenderPublicKey, fetched[0].SenderPublicKey)
	assert.Equal(t, env.MessageID, fetched[0].MessageID)

	// poll is non-destructive, so a repeated poll sees the same set
	again := store.Fetch(tokenA, time.Time{}, false)
	if len(again) != 1 {
		t.Fatalf("repeated poll expected 1 envelope, got %d", len(again))
	}
	assert.Equal(t, fetched[0].MessageID, again[0].MessageID)
}

func TestFetchUnknownToken(t *testing.T) {
	store := newTestStore()
	fetched := store.Fetch(tokenB, time.Time{}, false)
	if fetched == nil {
		t.Fatal("expected empty slice, got nil")
	}
	if len(fetched) != 0 {
		t.Fatalf("expected no envelopes, got %d", len(fetched))
	}
}

func TestConsumeExactlyOnce(t *testing.T) {
	store := newTestStore()
	for i := 0; i < 3; i++ {
		if err := store.Store(testEnvelope(tokenA, fmt.Sprintf("m%d", i), 0, time.Hour)); err != nil {
			t.Fatalf("store failed: %v", err)
		}
	}

	first := store.Fetch(tokenA, time.Time{}, true)
	if len(first) != 3 {
		t.Fatalf("first consume expected 3 envelopes, got %d", len(first))
	}
	second := store.Fetch(tokenA, time.Time{}, true)
	if len(second) != 0 {
		t.Fatalf("second consume expected 0 envelopes, got %d", len(second))
	}
	assert.Equal(t, 0, store.Stats().TotalEnvelopes)
}

func TestFetchSinceFilter(t *testing.T) {
	store := newTestStore()
	old := testEnvelope(tokenA, "old", 30*time.Second, time.Hour)
	mid := testEnvelope(tokenA, "mid", 20*time.Second, time.Hour)
	fresh := testEnvelope(tokenA, "fresh", 10*time.Second, time.Hour)
	for _, env := range []*types.Envelope{old, mid, fresh} {
		if err := store.Store(env); err != nil {
			t.Fatalf("store failed: %v", err)
		}
	}

	// strictly-after filter: an envelope received exactly at since is excluded
	fetched := store.Fetch(tokenA, mid.ReceivedAt, false)
	if len(fetched) != 1 {
		t.Fatalf("expected 1 envelope after since, got %d", len(fetched))
	}
	assert.Equal(t, "fresh", fetched[0].MessageID)
}

func TestConsumeWithSinceKeepsOlder(t *testing.T) {
	store := newTestStore()
	old := testEnvelope(tokenA, "old", 30*time.Second, time.Hour)
	fresh := testEnvelope(tokenA, "fresh", 10*time.Second, time.Hour)
	if err := store.Store(old); err != nil {
		t.Fatalf("store failed: %v", err)
	}
	if err := store.Store(fresh); err != nil {
		t.Fatalf("store failed: %v", err)
	}

	consumed := store.Fetch(tokenA, old.ReceivedAt, true)
	if len(consumed) != 1 {
		t.Fatalf("expected 1 consumed envelope, got %d", len(consumed))
	}
	assert.Equal(t, "fresh", consumed[0].MessageID)

	// the filtered-out envelope was never returned, so it must still be there
	left := store.Fetch(tokenA, time.Time{}, false)
	if len(left) != 1 {
		t.Fatalf("expected 1 remaining envelope, got %d", len(left))
	}
	assert.Equal(t, "old", left[0].MessageID)
}

func TestExpiryBoundary(t *testing.T) {
	store := newTestStore()
	live := testEnvelope(tokenA, "live", 5*time.Second, 10*time.Second)
	dead := testEnvelope(tokenA, "dead", 15*time.Second, 10*time.Second)
	if err := store.Store(live); err != nil {
		t.Fatalf("store failed: %v", err)
	}
	if err := store.Store(dead); err != nil {
		t.Fatalf("store failed: %v", err)
	}

	fetched := store.Fetch(tokenA, time.Time{}, false)
	if len(fetched) != 1 {
		t.Fatalf("expected only the live envelope, got %d", len(fetched))
	}
	assert.Equal(t, "live", fetched[0].MessageID)

	// the expired envelope is dropped during the scan, not merely hidden
	assert.Equal(t, 1, store.Stats().TotalEnvelopes)
}

func TestZeroTTLNeverExpires(t *testing.T) {
	store := newTestStore()
	if err := store.Store(testEnvelope(tokenA, "m1", 48*time.Hour, 0)); err != nil {
		t.Fatalf("store failed: %v", err)
	}
	fetched := store.Fetch(tokenA, time.Time{}, false)
	if len(fetched) != 1 {
		t.Fatalf("expected envelope without TTL to survive, got %d", len(fetched))
	}
}

func TestCrossTokenIsolation(t *testing.T) {
	store := newTestStore()
	if err := store.Store(testEnvelope(tokenA, "m1", 0, time.Hour)); err != nil {
		t.Fatalf("store failed: %v", err)
	}
	fetched := store.Fetch(tokenB, time.Time{}, true)
	if len(fetched) != 0 {
		t.Fatalf("expected no envelopes for other token, got %d", len(fetched))
	}
	assert.Equal(t, 1, store.Stats().TotalEnvelopes)
}

func TestFetchOrderIsFIFO(t *testing.T) {
	store := newTestStore()
	// inserted out of timestamp order on purpose
	second := testEnvelope(tokenA, "second", 10*time.Second, time.Hour)
	first := testEnvelope(tokenA, "first", 20*time.Second, time.Hour)
	third := testEnvelope(tokenA, "third", 5*time.Second, time.Hour)
	for _, env := range []*types.Envelope{second, first, third} {
		if err := store.Store(env); err != nil {
			t.Fatalf("store failed: %v", err)
		}
	}

	fetched := store.Fetch(tokenA, time.Time{}, false)
	if len(fetched) != 3 {
		t.Fatalf("expected 3 envelopes, got %d", len(fetched))
	}
	assert.Equal(t, "first", fetched[0].MessageID)
	assert.Equal(t, "second", fetched[1].MessageID)
	assert.Equal(t, "third", fetched[2].MessageID)
}

func TestStoreMailboxCapacity(t *testing.T) {
	store := NewMailboxStore(log.NewNopLogger(), 2, 0)
	if err := store.Store(testEnvelope(tokenA, "m1", 0, time.Hour)); err != nil {
		t.Fatalf("store failed: %v", err)
	}
	if err := store.Store(testEnvelope(tokenA, "m2", 0, time.Hour)); err != nil {
		t.Fatalf("store failed: %v", err)
	}
	err := store.Store(testEnvelope(tokenA, "m3", 0, time.Hour))
	if !errors.Is(err, types.ErrStorageExhausted) {
		t.Fatalf("expected ErrStorageExhausted, got %v", err)
	}
	// a different mailbox is unaffected by the per-token cap
	if err := store.Store(testEnvelope(tokenB, "m4", 0, time.Hour)); err != nil {
		t.Fatalf("store to other token failed: %v", err)
	}
}

func TestStoreTotalCapacity(t *testing.T) {
	store := NewMailboxStore(log.NewNopLogger(), 0, 2)
	if err := store.Store(testEnvelope(tokenA, "m1", 0, time.Hour)); err != nil {
		t.Fatalf("store failed: %v", err)
	}
	if err := store.Store(testEnvelope(tokenB, "m2", 0, time.Hour)); err != nil {
		t.Fatalf("store failed: %v", err)
	}
	err := store.Store(testEnvelope(tokenA, "m3", 0, time.Hour))
	if !errors.Is(err, types.ErrStorageExhausted) {
		t.Fatalf("expected ErrStorageExhausted, got %v", err)
	}

	// consuming frees capacity again
	store.Fetch(tokenB, time.Time{}, true)
	if err := store.Store(testEnvelope(tokenA, "m5", 0, time.Hour)); err != nil {
		t.Fatalf("store after consume failed: %v", err)
	}
}

func TestEvictExpired(t *testing.T) {
	store := newTestStore()
	for i := 0; i < 3; i++ {
		if err := store.Store(testEnvelope(tokenA, fmt.Sprintf("dead%d", i), time.Hour, time.Minute)); err != nil {
			t.Fatalf("store failed: %v", err)
		}
	}
	if err := store.Store(testEnvelope(tokenB, "live", 0, time.Hour)); err != nil {
		t.Fatalf("store failed: %v", err)
	}

	evicted := store.EvictExpired(time.Now())
	assert.Equal(t, 3, evicted)

	stats := store.Stats()
	assert.Equal(t, 1, stats.TotalEnvelopes)
	assert.Equal(t, 1, stats.ActiveMailboxes)

	// second sweep finds nothing left to do
	assert.Equal(t, 0, store.EvictExpired(time.Now()))
}

func TestStats(t *testing.T) {
	store := newTestStore()
	if err := store.Store(testEnvelope(tokenA, "m1", 0, time.Hour)); err != nil {
		t.Fatalf("store failed: %v", err)
	}
	if err := store.Store(testEnvelope(tokenA, "m2", 0, time.Hour)); err != nil {
		t.Fatalf("store failed: %v", err)
	}
	if err := store.Store(testEnvelope(tokenB, "m3", 0, time.Hour)); err != nil {
		t.Fatalf("store failed: %v", err)
	}

	stats := store.Stats()
	assert.Equal(t, 3, stats.TotalEnvelopes)
	assert.Equal(t, 2, stats.ActiveMailboxes)
	assert.True(t, stats.Uptime > 0)
}

func TestEvictorLifecycle(t *testing.T) {
	store := newTestStore()
	if err := store.StartEvictor(time.Minute); err != nil {
		t.Fatalf("start evictor failed: %v", err)
	}
	// starting twice is a no-op, stopping twice is safe
	if err := store.StartEvictor(time.Minute); err != nil {
		t.Fatalf("second start failed: %v", err)
	}
	store.Stop()
	store.Stop()
}

func TestConcurrentStoreAndConsume(t *testing.T) {
	store := newTestStore()
	const writers = 8
	const perWriter = 50

	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			token := fmt.Sprintf("%064d", w)
			for i := 0; i < perWriter; i++ {
				if err := store.Store(testEnvelope(token, fmt.Sprintf("w%d-m%d", w, i), 0, time.Hour)); err != nil {
					t.Errorf("store failed: %v", err)
					return
				}
			}
		}(w)
	}
	wg.Wait()

	total := 0
	for w := 0; w < writers; w++ {
		token := fmt.Sprintf("%064d", w)
		total += len(store.Fetch(token, time.Time{}, true))
	}
	assert.Equal(t, writers*perWriter, total)
	assert.Equal(t, 0, store.Stats().TotalEnvelopes)
}
