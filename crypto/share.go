// Copyright (C) 2024-2026, Jax Protocol. All rights reserved.
// See the file LICENSE for licensing terms.

package crypto

// ShareFor wraps a bucket secret to a recipient identity. An ephemeral
// keypair is generated per share; the KEK is the ECDH agreement between
// the ephemeral secret and the recipient's public key. Output layout:
// ephemeral public key (32) || wrapped secret (40).
func ShareFor(recipient PublicKey, bucketSecret Secret) ([]byte, error) {
	ephem, err := GenerateIdentity()
	if err != nil {
		return nil, err
	}
	kek, err := ephem.ECDH(recipient)
	if err != nil {
		return nil, err
	}
	wrapped, err := Wrap(kek, bucketSecret)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, ShareLen)
	pub := ephem.Public()
	out = append(out, pub[:]...)
	out = append(out, wrapped[:]...)
	return out, nil
}

// Recover unwraps a share produced by ShareFor against the recipient's
// identity.
func Recover(id *Identity, share []byte) (Secret, error) {
	if len(share) != ShareLen {
		return Secret{}, ErrInvalidShare
	}
	var ephemPub PublicKey
	copy(ephemPub[:], share[:KeyLen])
	kek, err := id.ECDH(ephemPub)
	if err != nil {
		return Secret{}, err
	}
	var wrapped [WrappedLen]byte
	copy(wrapped[:], share[KeyLen:])
	return Unwrap(kek, wrapped)
}
