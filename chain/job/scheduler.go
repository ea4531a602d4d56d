// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package job holds work back until the things it depends on are resolved.
//
// The chain schedules one job per validated block. The job depends on the
// application of the block's parent and on the assembly of every chunk the
// block references, and it runs as soon as the last of them is resolved.
package job

import "context"

// Job is executed once every dependency it was scheduled with has been
// either fulfilled or abandoned.
type Job[T any] interface {
	Execute(ctx context.Context, fulfilled []T, abandoned []T) error
}

// Func adapts a function to the Job interface.
type Func[T any] func(ctx context.Context, fulfilled []T, abandoned []T) error

func (f Func[T]) Execute(ctx context.Context, fulfilled []T, abandoned []T) error {
	return f(ctx, fulfilled, abandoned)
}

type pending[T comparable] struct {
	unresolved int
	fulfilled  []T
	abandoned  []T
	job        Job[T]
}

// Scheduler is a dependency graph of jobs. It is not safe for concurrent use;
// callers serialize access with their own lock.
type Scheduler[T comparable] struct {
	// blocked maps a dependency to the jobs waiting on it.
	blocked map[T][]*pending[T]
}

func NewScheduler[T comparable]() *Scheduler[T] {
	return &Scheduler[T]{
		blocked: make(map[T][]*pending[T]),
	}
}

// Schedule registers [userJob] to run once all [dependencies] are resolved.
// A job without dependencies runs before Schedule returns.
//
// Every dependency must eventually be fulfilled or abandoned, otherwise the
// job is leaked.
func (s *Scheduler[T]) Schedule(ctx context.Context, userJob Job[T], dependencies ...T) error {
	if len(dependencies) == 0 {
		return userJob.Execute(ctx, nil, nil)
	}

	p := &pending[T]{
		unresolved: len(dependencies),
		job:        userJob,
	}
	for _, d := range dependencies {
		s.blocked[d] = append(s.blocked[d], p)
	}
	return nil
}

// NumDependencies returns the number of distinct dependencies that jobs are
// currently waiting on.
func (s *Scheduler[_]) NumDependencies() int {
	return len(s.blocked)
}

// HasDependents returns true if at least one job waits on [dependency].
func (s *Scheduler[T]) HasDependents(dependency T) bool {
	return len(s.blocked[dependency]) > 0
}

// Dependencies returns every dependency that currently blocks a job, in no
// particular order.
func (s *Scheduler[T]) Dependencies() []T {
	deps := make([]T, 0, len(s.blocked))
	for d := range s.blocked {
		deps = append(deps, d)
	}
	return deps
}

// Fulfill resolves [dependency] successfully. Jobs left without unresolved
// dependencies are executed.
//
// Jobs may call back into the scheduler while executing.
func (s *Scheduler[T]) Fulfill(ctx context.Context, dependency T) error {
	return s.resolve(ctx, dependency, true)
}

// Abandon resolves [dependency] unsuccessfully. Jobs left without unresolved
// dependencies are executed and told which dependencies were abandoned.
//
// Jobs may call back into the scheduler while executing.
func (s *Scheduler[T]) Abandon(ctx context.Context, dependency T) error {
	return s.resolve(ctx, dependency, false)
}

func (s *Scheduler[T]) resolve(ctx context.Context, dependency T, fulfilled bool) error {
	waiting := s.blocked[dependency]
	delete(s.blocked, dependency)

	for _, p := range waiting {
		p.unresolved--
		if fulfilled {
			p.fulfilled = append(p.fulfilled, dependency)
		} else {
			p.abandoned = append(p.abandoned, dependency)
		}
		if p.unresolved > 0 {
			continue
		}
		if err := p.job.Execute(ctx, p.fulfilled, p.abandoned); err != nil {
			return err
		}
	}
	return nil
}
