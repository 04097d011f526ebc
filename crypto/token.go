package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

// routingSalt is a protocol constant shared by every client and relay. It is
// deliberately not per-installation: any party knowing a recipient's public
// key can compute the same token, which is what makes independent clients
// interoperable, while the hash still prevents the relay from recovering the
// public key. Changing it breaks routing for every existing client.
const routingSalt = "secure_messenger_routing_salt_v1"

// TokenSize is the byte length of a routing token (a SHA-256 digest).
const TokenSize = sha256.Size

// MessageIDSize is the byte length of randomness in a message id.
const MessageIDSize = 16

// DeriveToken computes the routing token for a recipient's public key:
// hex(SHA-256(salt || publicKeyBytes)). Deterministic and one-way.
func DeriveToken(publicKeyHex string) (string, error) {
	raw, err := hex.DecodeString(publicKeyHex)
	if err != nil || len(raw) != KeySize {
		return "", ErrInvalidPublicKey
	}
	h := sha256.New()
	h.Write([]byte(routingSalt))
	h.Write(raw)
	return hex.EncodeToString(h.Sum(nil)), nil
}

// VerifyToken reports whether token was derived from the given public key,
// using a constant-time comparison.
func VerifyToken(publicKeyHex, token string) bool {
	expected, err := DeriveToken(publicKeyHex)
	if err != nil {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(expected), []byte(token)) == 1
}

// GenerateMessageID returns a fresh 128-bit random identifier, hex encoded.
// Collisions at this size are negligible; ids are assigned server-side so a
// sender can never overwrite another sender's envelope.
func GenerateMessageID() (string, error) {
	id := make([]byte, MessageIDSize)
	if _, err := rand.Read(id); err != nil {
		return "", err
	}
	return hex.EncodeToString(id), nil
}
