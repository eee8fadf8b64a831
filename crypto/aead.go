// Copyright (C) 2024-2026, Jax Protocol. All rights reserved.
// See the file LICENSE for licensing terms.

package crypto

import (
	"crypto/rand"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
)

const (
	// NonceLen is the byte length of AEAD nonces
	NonceLen = chacha20poly1305.NonceSize
	// TagLen is the byte length of the Poly1305 authentication tag
	TagLen = chacha20poly1305.Overhead
	// EncryptOverhead is the total ciphertext expansion per encryption
	EncryptOverhead = NonceLen + TagLen
)

// Encrypt seals plaintext under secret with ChaCha20-Poly1305. The random
// nonce is prepended: nonce(12) || ciphertext || tag(16). Per-item secrets
// keep random nonces collision-free.
func Encrypt(secret Secret, plaintext []byte) ([]byte, error) {
	aead, err := chacha20poly1305.New(secret[:])
	if err != nil {
		return nil, err
	}
	out := make([]byte, NonceLen, NonceLen+len(plaintext)+TagLen)
	if _, err := io.ReadFull(rand.Reader, out); err != nil {
		return nil, err
	}
	return aead.Seal(out, out[:NonceLen], plaintext, nil), nil
}

// Decrypt opens a nonce-prefixed ciphertext produced by Encrypt
func Decrypt(secret Secret, ciphertext []byte) ([]byte, error) {
	if len(ciphertext) < EncryptOverhead {
		return nil, ErrInvalidCiphertext
	}
	aead, err := chacha20poly1305.New(secret[:])
	if err != nil {
		return nil, err
	}
	plaintext, err := aead.Open(nil, ciphertext[:NonceLen], ciphertext[NonceLen:], nil)
	if err != nil {
		return nil, ErrInvalidCiphertext
	}
	return plaintext, nil
}
