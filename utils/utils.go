// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package utils

import "sync"

// Zero returns a new instance of a T.
func Zero[T any]() T {
	return *new(T)
}

// Atomic is a value guarded by a read-write lock.
type Atomic[T any] struct {
	lock  sync.RWMutex
	value T
}

func NewAtomic[T any](value T) *Atomic[T] {
	return &Atomic[T]{
		value: value,
	}
}

func (a *Atomic[T]) Get() T {
	a.lock.RLock()
	defer a.lock.RUnlock()

	return a.value
}

func (a *Atomic[T]) Set(value T) {
	a.lock.Lock()
	defer a.lock.Unlock()

	a.value = value
}
