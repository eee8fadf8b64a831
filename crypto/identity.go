// Copyright (C) 2024-2026, Jax Protocol. All rights reserved.
// See the file LICENSE for licensing terms.

package crypto

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"
)

const identityPEMType = "PRIVATE KEY"

// Identity is a node's long-lived signing keypair. Its public half is the
// peer identity; its secret half also acts as the X25519 scalar for key
// agreement.
type Identity struct {
	priv ed25519.PrivateKey
}

// GenerateIdentity creates a new random identity
func GenerateIdentity() (*Identity, error) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, err
	}
	return &Identity{priv: priv}, nil
}

// NewIdentity wraps an existing ed25519 private key
func NewIdentity(priv ed25519.PrivateKey) (*Identity, error) {
	if len(priv) != ed25519.PrivateKeySize {
		return nil, ErrInvalidKey
	}
	return &Identity{priv: priv}, nil
}

// LoadIdentity reads a PEM encoded PKCS#8 signing key from disk
func LoadIdentity(path string) (*Identity, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	block, _ := pem.Decode(raw)
	if block == nil || block.Type != identityPEMType {
		return nil, fmt.Errorf("%s: no %s block", path, identityPEMType)
	}
	key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parse identity: %w", err)
	}
	priv, ok := key.(ed25519.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("%s: not an ed25519 key", path)
	}
	return &Identity{priv: priv}, nil
}

// Save writes the key to disk as PKCS#8 PEM, readable only by the owner
func (id *Identity) Save(path string) error {
	der, err := x509.MarshalPKCS8PrivateKey(id.priv)
	if err != nil {
		return err
	}
	raw := pem.EncodeToMemory(&pem.Block{Type: identityPEMType, Bytes: der})
	return os.WriteFile(path, raw, 0o600)
}

// Public returns the peer identity
func (id *Identity) Public() PublicKey {
	var pub PublicKey
	copy(pub[:], id.priv.Public().(ed25519.PublicKey))
	return pub
}

// PrivateKey exposes the raw ed25519 key for transport bindings
func (id *Identity) PrivateKey() ed25519.PrivateKey {
	return id.priv
}

// Sign signs msg with the identity key
func (id *Identity) Sign(msg []byte) []byte {
	return ed25519.Sign(id.priv, msg)
}

// Verify reports whether sig is a valid signature of msg under pub
func Verify(pub PublicKey, msg, sig []byte) bool {
	return ed25519.Verify(ed25519.PublicKey(pub[:]), msg, sig)
}
