// Package client implements a Go client for the blind relay HTTP API.
// Encryption and decryption happen entirely inside this package; the relay
// only ever sees sealed envelopes and hashed routing tokens.
package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/blindrelay/go-blindrelay-server/crypto"
	"github.com/blindrelay/go-blindrelay-server/types"
	"github.com/go-resty/resty/v2"
	"github.com/jarcoal/httpmock"
)

// ErrNoIdentity is returned when a mailbox operation runs without keys loaded.
var ErrNoIdentity = errors.New("no identity loaded")

// ReceivedMessage is a successfully decrypted envelope.
type ReceivedMessage struct {
	MessageID       string
	Plaintext       string
	SenderPublicKey string
	Timestamp       float64 // unix seconds, assigned by the relay
}

// RelayClient talks to a single relay on behalf of a single identity. The
// identity may be nil for send-only or status-only use.
type RelayClient struct {
	restyClient *resty.Client
	identity    *Identity
}

// NewRelayClient creates a client for the relay at serverURL. The mock flag
// routes the underlying transport through httpmock for tests.
func NewRelayClient(serverURL string, identity *Identity, mock bool) *RelayClient {
	cl := resty.New().SetBaseURL(strings.TrimRight(serverURL, "/")).SetTimeout(time.Second * 10)
	cl.SetHeader("Content-Type", "application/json")
	cl.SetHeader("Accept", "application/json")
	cl.SetHeader("User-Agent", "go-blindrelay-client/1.0.0")

	if mock {
		httpmock.ActivateNonDefault(cl.GetClient())
	}

	return &RelayClient{
		restyClient: cl,
		identity:    identity,
	}
}

/**
 * Send encrypts text for a recipient and submits the sealed envelope.
 *
 * A fresh ephemeral keypair seals each message, so nothing in the envelope
 * links back to this client's identity.
 *
 * @param recipientPublicKeyHex the recipient's long term public key (hex)
 * @param text plaintext to deliver
 * @param ttlSeconds optional envelope lifetime, nil for the relay default
 */
func (rc *RelayClient) Send(recipientPublicKeyHex string, text string, ttlSeconds *int64) (*types.SendMessageOutput, error) {
	sealed, err := crypto.Encrypt(recipientPublicKeyHex, []byte(text))
	if err != nil {
		return nil, err
	}
	input := &types.SendMessageInput{
		Token:           sealed.Token,
		Ciphertext:      sealed.Ciphertext,
		Nonce:           sealed.Nonce,
		SenderPublicKey: sealed.SenderPublicKey,
		TTLSeconds:      ttlSeconds,
	}
	resp, err := rc.restyClient.R().SetBody(input).Post("/api/v1/send")
	if err != nil {
		return nil, err
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, errorFromResponse("send", resp)
	}
	out := &types.SendMessageOutput{}
	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return nil, err
	}
	return out, nil
}

// Poll returns decrypted messages without removing them from the mailbox.
// Pass since (unix seconds) to only receive envelopes stored strictly after
// that time, or nil for the whole mailbox.
func (rc *RelayClient) Poll(since *float64) ([]ReceivedMessage, error) {
	return rc.fetch("/api/v1/poll", since)
}

// Consume returns decrypted messages and removes them from the mailbox.
func (rc *RelayClient) Consume(since *float64) ([]ReceivedMessage, error) {
	return rc.fetch("/api/v1/consume", since)
}

func (rc *RelayClient) fetch(endpoint string, since *float64) ([]ReceivedMessage, error) {
	if rc.identity == nil {
		return nil, ErrNoIdentity
	}
	input := &types.PollMessagesInput{
		Token: rc.identity.Token,
		Since: since,
	}
	resp, err := rc.restyClient.R().SetBody(input).Post(endpoint)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, errorFromResponse("fetch", resp)
	}
	out := &types.PollMessagesOutput{}
	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return nil, err
	}

	received := make([]ReceivedMessage, 0, len(out.Messages))
	for _, msg := range out.Messages {
		plaintext, decErr := crypto.Decrypt(rc.identity.PrivateKey, msg.SenderPublicKey, msg.Nonce, msg.Ciphertext)
		if decErr != nil {
			// an envelope that fails authentication is dropped rather than
			// surfaced as garbled text
			continue
		}
		received = append(received, ReceivedMessage{
			MessageID:       msg.MessageID,
			Plaintext:       string(plaintext),
			SenderPublicKey: msg.SenderPublicKey,
			Timestamp:       msg.Timestamp,
		})
	}
	return received, nil
}

// Status retrieves the relay's public statistics.
func (rc *RelayClient) Status() (*types.StatusOutput, error) {
	resp, err := rc.restyClient.R().Get("/api/v1/status")
	if err != nil {
		return nil, err
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, errorFromResponse("status", resp)
	}
	out := &types.StatusOutput{}
	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return nil, err
	}
	return out, nil
}

// Health reports whether the relay answers its liveness probe.
func (rc *RelayClient) Health() error {
	resp, err := rc.restyClient.R().Get("/api/v1/health")
	if err != nil {
		return err
	}
	if resp.StatusCode() != http.StatusOK {
		return errorFromResponse("health", resp)
	}
	return nil
}

// errorBody covers both error payload shapes the relay produces: the
// code/message pair from handlers and the bare error field from the
// firewall and the not found handler.
type errorBody struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Error   string `json:"error"`
}

func errorFromResponse(op string, resp *resty.Response) error {
	body := errorBody{}
	_ = json.Unmarshal(resp.Body(), &body)
	msg := body.Message
	if msg == "" {
		msg = body.Error
	}
	if msg == "" {
		msg = resp.Status()
	}
	switch resp.StatusCode() {
	case http.StatusBadRequest:
		return fmt.Errorf("%s: %w: %s", op, types.ErrMalformedInput, msg)
	case http.StatusNotFound:
		return fmt.Errorf("%s: %w: %s", op, types.ErrNotFound, msg)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%s: %w: %s", op, types.ErrRateLimited, msg)
	case http.StatusInsufficientStorage:
		return fmt.Errorf("%s: %w: %s", op, types.ErrStorageExhausted, msg)
	default:
		return fmt.Errorf("%s: unexpected status %d: %s", op, resp.StatusCode(), msg)
	}
}
