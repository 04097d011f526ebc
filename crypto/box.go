// Package crypto implements the relay's end-to-end encryption protocol:
// NaCl box (Curve25519 key agreement with XSalsa20-Poly1305) using a fresh
// ephemeral sender keypair per message, and the salted one-way token
// derivation that turns a recipient's public key into a routing token.
// Interoperating clients must reproduce these primitives bit for bit.
package crypto

import (
	"crypto/rand"
	"encoding/hex"

	"golang.org/x/crypto/nacl/box"
)

const (
	// KeySize is the byte length of Curve25519 public and private keys.
	KeySize = 32
	// NonceSize is the byte length of the one-time box nonce.
	NonceSize = 24
	// Overhead is the Poly1305 authentication tag length prepended to the box output.
	Overhead = box.Overhead
)

// KeyPair is a long-term asymmetric identity. The private key never leaves
// the client; persistence (key files) is the caller's concern.
type KeyPair struct {
	PublicKey  string `json:"publicKey"`  // hex
	PrivateKey string `json:"privateKey"` // hex
}

// SealedMessage is the output of Encrypt: everything a client needs to hand
// to the relay's send operation. The server stores these fields verbatim and
// can decrypt none of them.
type SealedMessage struct {
	Token           string `json:"token"`
	Ciphertext      string `json:"ciphertext"`
	Nonce           string `json:"nonce"`
	SenderPublicKey string `json:"senderPublicKey"`
}

// GenerateKeyPair returns a new Curve25519 keypair, hex encoded.
func GenerateKeyPair() (*KeyPair, error) {
	pub, priv, err := box.GenerateKey(rand.Reader)
	if err != nil {
		return nil, err
	}
	return &KeyPair{
		PublicKey:  hex.EncodeToString(pub[:]),
		PrivateKey: hex.EncodeToString(priv[:]),
	}, nil
}

// Encrypt seals plaintext for the holder of recipientPublicKeyHex.
//
// A single-use sender keypair is generated for this message only, so no two
// messages share a sender identity and compromise of one message's key
// reveals nothing about any other. The nonce is drawn fresh from the CSPRNG
// for every call; it is never derived from a counter.
func Encrypt(recipientPublicKeyHex string, plaintext []byte) (*SealedMessage, error) {
	recipientPub, err := decodeKey(recipientPublicKeyHex)
	if err != nil {
		return nil, ErrInvalidPublicKey
	}

	ephemeralPub, ephemeralPriv, err := box.GenerateKey(rand.Reader)
	if err != nil {
		return nil, ErrEncryptionFailed
	}

	var nonce [NonceSize]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return nil, ErrEncryptionFailed
	}

	ciphertext := box.Seal(nil, plaintext, &nonce, recipientPub, ephemeralPriv)

	token, err := DeriveToken(recipientPublicKeyHex)
	if err != nil {
		return nil, err
	}

	return &SealedMessage{
		Token:           token,
		Ciphertext:      hex.EncodeToString(ciphertext),
		Nonce:           hex.EncodeToString(nonce[:]),
		SenderPublicKey: hex.EncodeToString(ephemeralPub[:]),
	}, nil
}

// Decrypt reverses Encrypt using the recipient's private key and the
// envelope's ephemeral sender public key. It fails hard on any tag mismatch;
// a tampered envelope never yields garbled plaintext.
func Decrypt(ownPrivateKeyHex, senderPublicKeyHex, nonceHex, ciphertextHex string) ([]byte, error) {
	priv, err := decodeKey(ownPrivateKeyHex)
	if err != nil {
		return nil, ErrInvalidPrivateKey
	}
	senderPub, err := decodeKey(senderPublicKeyHex)
	if err != nil {
		return nil, ErrInvalidPublicKey
	}

	nonceBytes, err := hex.DecodeString(nonceHex)
	if err != nil || len(nonceBytes) != NonceSize {
		return nil, ErrInvalidNonce
	}
	var nonce [NonceSize]byte
	copy(nonce[:], nonceBytes)

	ciphertext, err := hex.DecodeString(ciphertextHex)
	if err != nil || len(ciphertext) < Overhead {
		return nil, ErrInvalidCiphertext
	}

	plaintext, ok := box.Open(nil, ciphertext, &nonce, senderPub, priv)
	if !ok {
		return nil, ErrDecryptionFailed
	}
	return plaintext, nil
}

func decodeKey(keyHex string) (*[KeySize]byte, error) {
	raw, err := hex.DecodeString(keyHex)
	if err != nil {
		return nil, err
	}
	if len(raw) != KeySize {
		return nil, ErrInvalidPublicKey
	}
	var key [KeySize]byte
	copy(key[:], raw)
	return &key, nil
}
