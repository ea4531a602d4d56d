// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package bls

// Signer produces signatures on behalf of a single validator key.
type Signer interface {
	PublicKey() *PublicKey
	Sign(msg []byte) []byte
}

type LocalSigner struct {
	sk *SecretKey
	pk *PublicKey
}

func NewLocalSigner(sk *SecretKey) *LocalSigner {
	return &LocalSigner{
		sk: sk,
		pk: PublicFromSecretKey(sk),
	}
}

func (s *LocalSigner) PublicKey() *PublicKey {
	return s.pk
}

func (s *LocalSigner) Sign(msg []byte) []byte {
	return Sign(s.sk, msg).Compress()
}
