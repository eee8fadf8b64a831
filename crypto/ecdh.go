// Copyright (C) 2024-2026, Jax Protocol. All rights reserved.
// See the file LICENSE for licensing terms.

package crypto

import (
	"crypto/sha512"

	"filippo.io/edwards25519"
	"golang.org/x/crypto/curve25519"
)

// x25519Scalar derives the Montgomery-form scalar from the ed25519 seed.
// Same derivation ed25519 itself uses for its secret scalar, including the
// clamping.
func (id *Identity) x25519Scalar() [KeyLen]byte {
	h := sha512.Sum512(id.priv.Seed())
	var scalar [KeyLen]byte
	copy(scalar[:], h[:KeyLen])
	scalar[0] &= 248
	scalar[31] &= 127
	scalar[31] |= 64
	return scalar
}

// montgomeryPublic converts an ed25519 public key to its X25519 form
func montgomeryPublic(pub PublicKey) ([KeyLen]byte, error) {
	var mont [KeyLen]byte
	point, err := new(edwards25519.Point).SetBytes(pub[:])
	if err != nil {
		return mont, ErrInvalidKey
	}
	copy(mont[:], point.BytesMontgomery())
	return mont, nil
}

// ECDH computes the shared secret between this identity and a remote
// public key. Both sides of an exchange arrive at the same 32 bytes.
func (id *Identity) ECDH(remote PublicKey) (Secret, error) {
	scalar := id.x25519Scalar()
	mont, err := montgomeryPublic(remote)
	if err != nil {
		return Secret{}, err
	}
	shared, err := curve25519.X25519(scalar[:], mont[:])
	if err != nil {
		return Secret{}, ErrInvalidKey
	}
	var out Secret
	copy(out[:], shared)
	return out, nil
}
