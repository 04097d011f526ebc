package types

import "time"

// Envelope is the unit stored and forwarded by the relay. The server never
// sees plaintext: ciphertext is opaque, the token is a one-way hash of the
// recipient's public key and the sender key is ephemeral (one per message).
type Envelope struct {
	MessageID       string        `json:"messageId"`
	Token           string        `json:"token"`
	Ciphertext      string        `json:"ciphertext"`      // hex
	Nonce           string        `json:"nonce"`           // hex, unique per encryption
	SenderPublicKey string        `json:"senderPublicKey"` // hex, ephemeral
	ReceivedAt      time.Time     `json:"-"`               // assigned by the server at storage time
	TTL             time.Duration `json:"-"`               // zero means the relay default applies
}

// Expired reports whether the envelope's TTL has elapsed at the given time.
// Envelopes with no TTL never expire here; the store substitutes the default
// TTL before an envelope is accepted.
func (e *Envelope) Expired(now time.Time) bool {
	if e.TTL <= 0 {
		return false
	}
	return now.Sub(e.ReceivedAt) > e.TTL
}
