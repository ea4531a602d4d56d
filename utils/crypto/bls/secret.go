// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package bls

import (
	"errors"

	blst "github.com/supranational/blst/bindings/go"
)

var errShortSeed = errors.New("seed must be at least 32 bytes")

type SecretKey = blst.SecretKey

// SecretKeyFromSeed deterministically derives a secret key from [seed].
func SecretKeyFromSeed(seed []byte) (*SecretKey, error) {
	if len(seed) < 32 {
		return nil, errShortSeed
	}
	return blst.KeyGen(seed), nil
}

func PublicFromSecretKey(sk *SecretKey) *PublicKey {
	return new(PublicKey).From(sk)
}
