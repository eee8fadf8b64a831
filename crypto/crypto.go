// Copyright (C) 2024-2026, Jax Protocol. All rights reserved.
// See the file LICENSE for licensing terms.

// Package crypto implements the primitives buckets are built on: ed25519
// signing identities, X25519 key agreement between identities,
// ChaCha20-Poly1305 file encryption, and RFC 3394 key wrapping for
// bucket-secret shares.
package crypto

import (
	"crypto/rand"
	"errors"
	"io"
)

const (
	// KeyLen is the byte length of public keys and symmetric secrets
	KeyLen = 32
	// WrappedLen is the byte length of an RFC 3394 wrapped secret
	WrappedLen = KeyLen + 8
	// ShareLen is the byte length of a wrapped share: an ephemeral public
	// key followed by the wrapped bucket secret
	ShareLen = KeyLen + WrappedLen
)

var (
	ErrInvalidKey        = errors.New("invalid public key")
	ErrInvalidCiphertext = errors.New("invalid ciphertext")
	ErrUnwrapFailed      = errors.New("key unwrap failed")
	ErrInvalidShare      = errors.New("invalid wrapped share")
)

// PublicKey is the public half of an identity keypair. It doubles as the
// peer identity on the wire.
type PublicKey [KeyLen]byte

// Secret is a 256-bit symmetric key
type Secret [KeyLen]byte

// NewSecret returns a fresh random symmetric key
func NewSecret() (Secret, error) {
	var s Secret
	if _, err := io.ReadFull(rand.Reader, s[:]); err != nil {
		return Secret{}, err
	}
	return s, nil
}
