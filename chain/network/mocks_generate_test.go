// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package network

//go:generate go run go.uber.org/mock/mockgen@v0.4 -package=${GOPACKAGE}mock -source=sender.go -destination=${GOPACKAGE}mock/sender.go -mock_names=Sender=Sender
