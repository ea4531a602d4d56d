// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package bls

import blst "github.com/supranational/blst/bindings/go"

const PublicKeyLen = blst.BLST_P1_COMPRESS_BYTES

type PublicKey = blst.P1Affine

// PublicKeyToBytes returns the compressed form of [pk], which is what
// validator sets are keyed and hashed by.
func PublicKeyToBytes(pk *PublicKey) []byte {
	return pk.Compress()
}
