package services

import (
	"time"

	"github.com/blindrelay/go-blindrelay-server/global"
	"github.com/blindrelay/go-blindrelay-server/security"
	"github.com/blindrelay/go-blindrelay-server/storage"
	"github.com/blindrelay/go-blindrelay-server/types"
)

// aggregates live counters from the envelope store and the access gate
// for the public status endpoint; nothing here exposes a token or address
type StatisticsService struct {
	store *storage.MailboxStore
	gate  *security.AccessGate
}

func NewStatisticsService(store *storage.MailboxStore, gate *security.AccessGate) *StatisticsService {
	return &StatisticsService{store: store, gate: gate}
}

/**
 * Status assembles the public status payload: uptime and mailbox totals from
 * the store, rejection counters and block state from the gate. All values
 * are aggregates over the whole relay.
 */
func (s *StatisticsService) Status() *types.StatusOutput {
	storeStats := s.store.Stats()
	gateStats := s.gate.Stats()

	return &types.StatusOutput{
		Status:             "healthy",
		Version:            global.Conf.Version,
		UptimeSeconds:      storeStats.Uptime.Seconds(),
		TotalMessages:      storeStats.TotalEnvelopes,
		ActiveTokens:       storeStats.ActiveMailboxes,
		AutoCleanupEnabled: global.Conf.Relay.EvictionIntervalSeconds > 0,
		DefaultTTLMinutes:  int(global.Conf.Relay.DefaultTTLSeconds / 60),
		SecurityStats: types.SecurityStatsOutput{
			BlockedAddresses:     gateStats.BlockedAddresses,
			TrackedFailures:      gateStats.TrackedFailures,
			SuspiciousRejected:   gateStats.SuspiciousRejected,
			RateLimitedRejected:  gateStats.RateLimitedRejected,
			MaxFailedAttempts:    gateStats.MaxFailedAttempts,
			BlockDurationSeconds: int(gateStats.BlockDuration / time.Second),
		},
	}
}
