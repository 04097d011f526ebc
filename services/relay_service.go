package services

import (
	"time"

	"github.com/blindrelay/go-blindrelay-server/crypto"
	"github.com/blindrelay/go-blindrelay-server/global"
	"github.com/blindrelay/go-blindrelay-server/storage"
	"github.com/blindrelay/go-blindrelay-server/types"
)

// RelayService turns validated wire inputs into mailbox operations. It owns
// the server-assigned parts of an envelope: messageId, receivedAt and the
// effective TTL.
type RelayService struct {
	store *storage.MailboxStore
}

func NewRelayService(store *storage.MailboxStore) *RelayService {
	return &RelayService{store: store}
}

// SubmitEnvelope stores the ciphertext under its routing token. The client
// never chooses the message id; a fresh one is assigned here so replayed
// sends become distinct envelopes. A missing TTL falls back to the
// configured default and oversized TTLs are clamped to the configured
// maximum.
func (rs *RelayService) SubmitEnvelope(input *types.SendMessageInput) (*types.Envelope, error) {
	maxBytes := global.Conf.Relay.MaxCiphertextBytes
	if maxBytes > 0 && len(input.Ciphertext)/2 > maxBytes {
		return nil, types.ErrStorageExhausted
	}

	ttlSeconds := global.Conf.Relay.DefaultTTLSeconds
	if input.TTLSeconds != nil {
		ttlSeconds = *input.TTLSeconds
	}
	if max := global.Conf.Relay.MaxTTLSeconds; max > 0 && ttlSeconds > max {
		ttlSeconds = max
	}

	messageID, err := crypto.GenerateMessageID()
	if err != nil {
		return nil, err
	}

	envelope := &types.Envelope{
		MessageID:       messageID,
		Token:           input.Token,
		Ciphertext:      input.Ciphertext,
		Nonce:           input.Nonce,
		SenderPublicKey: input.SenderPublicKey,
		ReceivedAt:      time.Now(),
		TTL:             time.Duration(ttlSeconds) * time.Second,
	}
	if err := rs.store.Store(envelope); err != nil {
		return nil, err
	}
	return envelope, nil
}

// FetchEnvelopes returns the pending envelopes for the token, optionally
// only those received after since (Unix seconds). With destructive set the
// returned envelopes are removed in the same step.
func (rs *RelayService) FetchEnvelopes(input *types.PollMessagesInput, destructive bool) []*types.Envelope {
	var since time.Time
	if input.Since != nil && *input.Since > 0 {
		since = timeFromUnixSeconds(*input.Since)
	}
	return rs.store.Fetch(input.Token, since, destructive)
}

func timeFromUnixSeconds(seconds float64) time.Time {
	return time.Unix(0, int64(seconds*float64(time.Second)))
}
