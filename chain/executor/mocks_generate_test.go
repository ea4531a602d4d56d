// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package executor

//go:generate go run go.uber.org/mock/mockgen@v0.4 -package=${GOPACKAGE}mock -source=vm.go -destination=${GOPACKAGE}mock/vm.go -mock_names=VM=VM
