// Copyright (C) 2024-2026, Jax Protocol. All rights reserved.
// See the file LICENSE for licensing terms.

package crypto

import (
	"crypto/aes"
	"crypto/subtle"
	"encoding/binary"
)

// RFC 3394 initial value
var keywrapIV = [8]byte{0xA6, 0xA6, 0xA6, 0xA6, 0xA6, 0xA6, 0xA6, 0xA6}

// Wrap encrypts a 32-byte secret under a 256-bit KEK with AES key wrap
// (RFC 3394), producing WrappedLen bytes.
func Wrap(kek Secret, secret Secret) ([WrappedLen]byte, error) {
	var out [WrappedLen]byte
	block, err := aes.NewCipher(kek[:])
	if err != nil {
		return out, err
	}

	n := KeyLen / 8
	a := keywrapIV
	r := make([][8]byte, n)
	for i := range r {
		copy(r[i][:], secret[i*8:])
	}

	var buf [16]byte
	for j := 0; j < 6; j++ {
		for i := 0; i < n; i++ {
			copy(buf[:8], a[:])
			copy(buf[8:], r[i][:])
			block.Encrypt(buf[:], buf[:])
			t := uint64(n*j + i + 1)
			binary.BigEndian.PutUint64(a[:], binary.BigEndian.Uint64(buf[:8])^t)
			copy(r[i][:], buf[8:])
		}
	}

	copy(out[:8], a[:])
	for i := range r {
		copy(out[8+i*8:], r[i][:])
	}
	return out, nil
}

// Unwrap inverts Wrap, failing with ErrUnwrapFailed if the integrity
// check does not hold.
func Unwrap(kek Secret, wrapped [WrappedLen]byte) (Secret, error) {
	var out Secret
	block, err := aes.NewCipher(kek[:])
	if err != nil {
		return out, err
	}

	n := KeyLen / 8
	var a [8]byte
	copy(a[:], wrapped[:8])
	r := make([][8]byte, n)
	for i := range r {
		copy(r[i][:], wrapped[8+i*8:])
	}

	var buf [16]byte
	for j := 5; j >= 0; j-- {
		for i := n - 1; i >= 0; i-- {
			t := uint64(n*j + i + 1)
			binary.BigEndian.PutUint64(buf[:8], binary.BigEndian.Uint64(a[:])^t)
			copy(buf[8:], r[i][:])
			block.Decrypt(buf[:], buf[:])
			copy(a[:], buf[:8])
			copy(r[i][:], buf[8:])
		}
	}

	if subtle.ConstantTimeCompare(a[:], keywrapIV[:]) != 1 {
		return Secret{}, ErrUnwrapFailed
	}
	for i := range r {
		copy(out[i*8:], r[i][:])
	}
	return out, nil
}
