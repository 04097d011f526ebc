package crypto

import "errors"

var (
	// ErrInvalidPublicKey is returned when a public key is not 32 hex-encoded bytes.
	ErrInvalidPublicKey = errors.New("invalid public key")

	// ErrInvalidPrivateKey is returned when a private key is not 32 hex-encoded bytes.
	ErrInvalidPrivateKey = errors.New("invalid private key")

	// ErrInvalidNonce is returned when a nonce is not 24 hex-encoded bytes.
	ErrInvalidNonce = errors.New("invalid nonce")

	// ErrInvalidCiphertext is returned when a ciphertext is not valid hex or is
	// shorter than the authentication overhead.
	ErrInvalidCiphertext = errors.New("invalid ciphertext")

	// ErrEncryptionFailed is returned when sealing a message fails.
	ErrEncryptionFailed = errors.New("encryption failed")

	// ErrDecryptionFailed is returned when the authentication tag does not
	// verify: tampered ciphertext, wrong key or corrupted nonce. Decryption is
	// all-or-nothing; no partial plaintext is ever produced.
	ErrDecryptionFailed = errors.New("decryption failed")
)
