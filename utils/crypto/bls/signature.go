// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package bls

import blst "github.com/supranational/blst/bindings/go"

const SignatureLen = blst.BLST_P2_COMPRESS_BYTES

// Proof of possession ciphersuite over G2.
var ciphersuite = []byte("BLS_SIG_BLS12381G2_XMD:SHA-256_SSWU_RO_POP_")

type Signature = blst.P2Affine

func Sign(sk *SecretKey, msg []byte) *Signature {
	return new(Signature).Sign(sk, msg, ciphersuite)
}

func Verify(pk *PublicKey, sig *Signature, msg []byte) bool {
	return sig.Verify(false, pk, false, msg, ciphersuite)
}

// VerifyBytes reports whether [sigBytes] is a valid signature of [msg] by
// [pk]. Malformed signatures are invalid.
func VerifyBytes(pk *PublicKey, sigBytes []byte, msg []byte) bool {
	if len(sigBytes) != SignatureLen {
		return false
	}
	sig := new(Signature).Uncompress(sigBytes)
	if sig == nil || !sig.SigValidate(false) {
		return false
	}
	return Verify(pk, sig, msg)
}
