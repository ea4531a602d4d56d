// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package wrappers

import "errors"

// Errs accumulates the first error reported to it.
type Errs struct{ Err error }

func (errs *Errs) Errored() bool {
	return errs.Err != nil
}

// Add stores the first non-nil error in [errors] if no error has been
// stored yet.
func (errs *Errs) Add(errors ...error) {
	if errs.Err == nil {
		for _, err := range errors {
			if err != nil {
				errs.Err = err
				break
			}
		}
	}
}

// Closer runs a sequence of close functions and reports every failure.
type Closer struct {
	closers []func() error
}

func (c *Closer) Add(f func() error) {
	c.closers = append(c.closers, f)
}

// Close calls the registered functions in reverse order of registration.
func (c *Closer) Close() error {
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	c.closers = nil
	return errors.Join(errs...)
}
