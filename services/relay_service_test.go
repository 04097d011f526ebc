package services

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/go-kit/log"
	"github.com/stretchr/testify/assert"

	"github.com/blindrelay/go-blindrelay-server/global"
	"github.com/blindrelay/go-blindrelay-server/security"
	"github.com/blindrelay/go-blindrelay-server/storage"
	"github.com/blindrelay/go-blindrelay-server/types"
)

const testToken = "cccccccccccccccccccccccccccccccccccccccccccccccccccccccccccccccc"

func setTestConf() {
	global.Conf = global.Config{
		Version: "0.1.0",
		Relay: global.RelayConfig{
			DefaultTTLSeconds:       1800,
			MaxTTLSeconds:           86400,
			EvictionIntervalSeconds: 60,
			MaxCiphertextBytes:      1024,
		},
		Security: global.SecurityConfig{
			MaxFailedAttempts:    5,
			BlockDurationSeconds: 300,
		},
	}
}

func newTestRelayService() *RelayService {
	return NewRelayService(storage.NewMailboxStore(log.NewNopLogger(), 0, 0))
}

func sendInput(ttl *int64) *types.SendMessageInput {
	return &types.SendMessageInput{
		Token:           testToken,
		Ciphertext:      strings.Repeat("ab", 48),
		Nonce:           strings.Repeat("cd", 24),
		SenderPublicKey: strings.Repeat("ef", 32),
		TTLSeconds:      ttl,
	}
}

func TestSubmitEnvelopeAssignsServerFields(t *testing.T) {
	setTestConf()
	svc := newTestRelayService()

	before := time.Now()
	env, err := svc.SubmitEnvelope(sendInput(nil))
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}

	assert.Len(t, env.MessageID, 32)
	assert.Equal(t, testToken, env.Token)
	assert.Equal(t, 30*time.Minute, env.TTL)
	if env.ReceivedAt.Before(before) || env.ReceivedAt.After(time.Now()) {
		t.Fatalf("receivedAt %v outside submit window", env.ReceivedAt)
	}
}

func TestSubmitEnvelopeAssignsFreshIDs(t *testing.T) {
	setTestConf()
	svc := newTestRelayService()

	first, err := svc.SubmitEnvelope(sendInput(nil))
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	second, err := svc.SubmitEnvelope(sendInput(nil))
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	// a replayed send becomes a distinct envelope, never an overwrite
	assert.NotEqual(t, first.MessageID, second.MessageID)

	fetched := svc.FetchEnvelopes(&types.PollMessagesInput{Token: testToken}, false)
	assert.Len(t, fetched, 2)
}

func TestSubmitEnvelopeTTL(t *testing.T) {
	setTestConf()
	svc := newTestRelayService()

	ttl := int64(60)
	env, err := svc.SubmitEnvelope(sendInput(&ttl))
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	assert.Equal(t, time.Minute, env.TTL)

	// TTLs above the configured ceiling are clamped, not rejected
	huge := int64(999999999)
	env, err = svc.SubmitEnvelope(sendInput(&huge))
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	assert.Equal(t, 24*time.Hour, env.TTL)
}

func TestSubmitEnvelopeCiphertextCap(t *testing.T) {
	setTestConf()
	global.Conf.Relay.MaxCiphertextBytes = 16
	svc := newTestRelayService()

	input := sendInput(nil)
	input.Ciphertext = strings.Repeat("ab", 64)
	_, err := svc.SubmitEnvelope(input)
	if !errors.Is(err, types.ErrStorageExhausted) {
		t.Fatalf("expected ErrStorageExhausted, got %v", err)
	}
}

func TestFetchEnvelopesSince(t *testing.T) {
	setTestConf()
	svc := newTestRelayService()

	first, err := svc.SubmitEnvelope(sendInput(nil))
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	time.Sleep(5 * time.Millisecond)
	second, err := svc.SubmitEnvelope(sendInput(nil))
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}

	// a point strictly between the two arrivals; float seconds cannot
	// represent nanosecond-exact boundaries
	since := float64(first.ReceivedAt.Add(time.Millisecond).UnixNano()) / float64(time.Second)
	fetched := svc.FetchEnvelopes(&types.PollMessagesInput{Token: testToken, Since: &since}, false)
	if len(fetched) != 1 {
		t.Fatalf("expected 1 envelope after since, got %d", len(fetched))
	}
	assert.Equal(t, second.MessageID, fetched[0].MessageID)
}

func TestStatisticsStatus(t *testing.T) {
	setTestConf()
	store := storage.NewMailboxStore(log.NewNopLogger(), 0, 0)
	gate := security.NewAccessGate(log.NewNopLogger(), security.Config{
		MaxFailedAttempts: 5,
		BlockDuration:     300 * time.Second,
	})
	relay := NewRelayService(store)
	stats := NewStatisticsService(store, gate)

	if _, err := relay.SubmitEnvelope(sendInput(nil)); err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	gate.RecordSuspicious("203.0.113.50")

	out := stats.Status()
	assert.Equal(t, "healthy", out.Status)
	assert.Equal(t, "0.1.0", out.Version)
	assert.Equal(t, 1, out.TotalMessages)
	assert.Equal(t, 1, out.ActiveTokens)
	assert.True(t, out.AutoCleanupEnabled)
	assert.Equal(t, 30, out.DefaultTTLMinutes)
	assert.True(t, out.UptimeSeconds >= 0)
	assert.Equal(t, int64(1), out.SecurityStats.SuspiciousRejected)
	assert.Equal(t, 1, out.SecurityStats.TrackedFailures)
	assert.Equal(t, 5, out.SecurityStats.MaxFailedAttempts)
	assert.Equal(t, 300, out.SecurityStats.BlockDurationSeconds)
}
