package client

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/blindrelay/go-blindrelay-server/crypto"
)

const (
	keysFileName      = "keys.json"
	publicKeyFileName = "public_key.txt"
)

// Identity is a client's long term keypair together with the routing token
// derived from the public key. The private key never leaves the machine; the
// public key is what correspondents encrypt to and the token is what the
// relay files envelopes under.
type Identity struct {
	PublicKey  string `json:"publicKey"`  // hex
	PrivateKey string `json:"privateKey"` // hex
	Token      string `json:"token"`      // hex, derived from the public key
}

// NewIdentity generates a fresh keypair and derives its routing token.
func NewIdentity() (*Identity, error) {
	pair, err := crypto.GenerateKeyPair()
	if err != nil {
		return nil, err
	}
	token, err := crypto.DeriveToken(pair.PublicKey)
	if err != nil {
		return nil, err
	}
	return &Identity{
		PublicKey:  pair.PublicKey,
		PrivateKey: pair.PrivateKey,
		Token:      token,
	}, nil
}

// LoadIdentity reads an identity from dir/keys.json. The token is rederived
// from the stored public key, so an edited or stale token field in the file
// cannot route the client to the wrong mailbox.
func LoadIdentity(dir string) (*Identity, error) {
	raw, err := os.ReadFile(filepath.Join(dir, keysFileName))
	if err != nil {
		return nil, err
	}
	identity := &Identity{}
	if err := json.Unmarshal(raw, identity); err != nil {
		return nil, err
	}
	token, err := crypto.DeriveToken(identity.PublicKey)
	if err != nil {
		return nil, err
	}
	identity.Token = token
	return identity, nil
}

// Save writes the identity to dir/keys.json, creating the directory when
// missing. The file is owner readable only since it holds the private key.
func (i *Identity) Save(dir string) error {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return err
	}
	raw, err := json.MarshalIndent(i, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, keysFileName), raw, 0600)
}

// ExportPublicKey writes the bare public key to dir/public_key.txt for
// sharing with correspondents and returns the written path.
func (i *Identity) ExportPublicKey(dir string) (string, error) {
	path := filepath.Join(dir, publicKeyFileName)
	if err := os.WriteFile(path, []byte(i.PublicKey), 0644); err != nil {
		return "", err
	}
	return path, nil
}

// ImportPublicKey reads a correspondent's public key from a file written by
// ExportPublicKey and validates its format.
func ImportPublicKey(path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	key := strings.TrimSpace(string(raw))
	if _, err := crypto.DeriveToken(key); err != nil {
		return "", crypto.ErrInvalidPublicKey
	}
	return key, nil
}
