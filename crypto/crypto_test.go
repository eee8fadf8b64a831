// Copyright (C) 2024-2026, Jax Protocol. All rights reserved.
// See the file LICENSE for licensing terms.

package crypto

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	require := require.New(t)

	secret, err := NewSecret()
	require.NoError(err)

	for _, plaintext := range [][]byte{
		nil,
		[]byte("hello"),
		bytes.Repeat([]byte{0xab}, 1<<16),
	} {
		ct, err := Encrypt(secret, plaintext)
		require.NoError(err)
		require.Len(ct, len(plaintext)+EncryptOverhead)

		pt, err := Decrypt(secret, ct)
		require.NoError(err)
		require.True(bytes.Equal(plaintext, pt))
	}
}

func TestDecryptRejectsTamperedCiphertext(t *testing.T) {
	require := require.New(t)

	secret, err := NewSecret()
	require.NoError(err)
	ct, err := Encrypt(secret, []byte("payload"))
	require.NoError(err)

	ct[len(ct)-1] ^= 1
	_, err = Decrypt(secret, ct)
	require.ErrorIs(err, ErrInvalidCiphertext)

	_, err = Decrypt(secret, ct[:EncryptOverhead-1])
	require.ErrorIs(err, ErrInvalidCiphertext)

	other, err := NewSecret()
	require.NoError(err)
	ct[len(ct)-1] ^= 1
	_, err = Decrypt(other, ct)
	require.ErrorIs(err, ErrInvalidCiphertext)
}

func TestEncryptNoncesDiffer(t *testing.T) {
	require := require.New(t)

	secret, err := NewSecret()
	require.NoError(err)
	a, err := Encrypt(secret, []byte("same"))
	require.NoError(err)
	b, err := Encrypt(secret, []byte("same"))
	require.NoError(err)
	require.False(bytes.Equal(a[:NonceLen], b[:NonceLen]))
}

func TestWrapUnwrapRoundTrip(t *testing.T) {
	require := require.New(t)

	kek, err := NewSecret()
	require.NoError(err)
	secret, err := NewSecret()
	require.NoError(err)

	wrapped, err := Wrap(kek, secret)
	require.NoError(err)
	require.Len(wrapped[:], WrappedLen)

	got, err := Unwrap(kek, wrapped)
	require.NoError(err)
	require.Equal(secret, got)
}

func TestUnwrapRejectsWrongKEK(t *testing.T) {
	require := require.New(t)

	kek, err := NewSecret()
	require.NoError(err)
	secret, err := NewSecret()
	require.NoError(err)
	wrapped, err := Wrap(kek, secret)
	require.NoError(err)

	other, err := NewSecret()
	require.NoError(err)
	_, err = Unwrap(other, wrapped)
	require.ErrorIs(err, ErrUnwrapFailed)

	wrapped[0] ^= 1
	_, err = Unwrap(kek, wrapped)
	require.ErrorIs(err, ErrUnwrapFailed)
}

// RFC 3394 section 4.6 test vector: 256-bit KEK wrapping 256-bit key data
func TestWrapRFC3394Vector(t *testing.T) {
	require := require.New(t)

	var kek Secret
	var key Secret
	for i := 0; i < KeyLen; i++ {
		kek[i] = byte(i)
	}
	copy(key[:], []byte{
		0x00, 0x11, 0x22, 0x33, 0x44, 0x55, 0x66, 0x77,
		0x88, 0x99, 0xAA, 0xBB, 0xCC, 0xDD, 0xEE, 0xFF,
		0x00, 0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07,
		0x08, 0x09, 0x0A, 0x0B, 0x0C, 0x0D, 0x0E, 0x0F,
	})

	wrapped, err := Wrap(kek, key)
	require.NoError(err)
	require.Equal([]byte{
		0x28, 0xC9, 0xF4, 0x04, 0xC4, 0xB8, 0x10, 0xF4,
		0xCB, 0xCC, 0xB3, 0x5C, 0xFB, 0x87, 0xF8, 0x26,
		0x3F, 0x57, 0x86, 0xE2, 0xD8, 0x0E, 0xD3, 0x26,
		0xCB, 0xC7, 0xF0, 0xE7, 0x1A, 0x99, 0xF4, 0x3B,
		0xFB, 0x98, 0x8B, 0x9B, 0x7A, 0x02, 0xDD, 0x21,
	}, wrapped[:])
}

func TestECDHAgreement(t *testing.T) {
	require := require.New(t)

	alice, err := GenerateIdentity()
	require.NoError(err)
	bob, err := GenerateIdentity()
	require.NoError(err)

	ab, err := alice.ECDH(bob.Public())
	require.NoError(err)
	ba, err := bob.ECDH(alice.Public())
	require.NoError(err)
	require.Equal(ab, ba)

	carol, err := GenerateIdentity()
	require.NoError(err)
	ac, err := alice.ECDH(carol.Public())
	require.NoError(err)
	require.NotEqual(ab, ac)
}

func TestShareForRecover(t *testing.T) {
	require := require.New(t)

	recipient, err := GenerateIdentity()
	require.NoError(err)
	bucketSecret, err := NewSecret()
	require.NoError(err)

	share, err := ShareFor(recipient.Public(), bucketSecret)
	require.NoError(err)
	require.Len(share, ShareLen)

	got, err := Recover(recipient, share)
	require.NoError(err)
	require.Equal(bucketSecret, got)

	// the wrong identity cannot recover
	stranger, err := GenerateIdentity()
	require.NoError(err)
	_, err = Recover(stranger, share)
	require.ErrorIs(err, ErrUnwrapFailed)

	_, err = Recover(recipient, share[:ShareLen-1])
	require.ErrorIs(err, ErrInvalidShare)
}

func TestSignVerify(t *testing.T) {
	require := require.New(t)

	id, err := GenerateIdentity()
	require.NoError(err)
	msg := []byte("announce")
	sig := id.Sign(msg)
	require.True(Verify(id.Public(), msg, sig))
	require.False(Verify(id.Public(), []byte("announce!"), sig))
}

func TestIdentitySaveLoad(t *testing.T) {
	require := require.New(t)

	id, err := GenerateIdentity()
	require.NoError(err)

	path := filepath.Join(t.TempDir(), "identity.pem")
	require.NoError(id.Save(path))

	loaded, err := LoadIdentity(path)
	require.NoError(err)
	require.Equal(id.Public(), loaded.Public())

	// agreement still works after a round trip through disk
	peerID, err := GenerateIdentity()
	require.NoError(err)
	a, err := loaded.ECDH(peerID.Public())
	require.NoError(err)
	b, err := peerID.ECDH(id.Public())
	require.NoError(err)
	require.Equal(a, b)
}
