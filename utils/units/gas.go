// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package units

// Denominations of gas
const (
	Gas     uint64 = 1
	KiloGas uint64 = 1000 * Gas
	MegaGas uint64 = 1000 * KiloGas
	GigaGas uint64 = 1000 * MegaGas
	TeraGas uint64 = 1000 * GigaGas
	PetaGas uint64 = 1000 * TeraGas
)
