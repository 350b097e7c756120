// Package pool runs independent units of work over a bounded set of workers.
package pool

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"runtime/debug"
	"time"

	"golang.org/x/sync/errgroup"
)

// ErrTimeout is reported for a unit that exceeded the per-unit timeout.
var ErrTimeout = errors.New("unit timed out")

// Unit is one independent piece of work.
type Unit[T any] func(ctx context.Context) (T, error)

// Outcome is the result of one unit. Index is the unit's position in the input.
type Outcome[T any] struct {
	Index int
	Value T
	Err   error
}

// Progress is reported after every completed unit.
type Progress struct {
	Completed int
	Total     int
}

// Observer receives progress notifications. Calls are serialized.
type Observer interface {
	Observe(Progress)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Progress)

func (f ObserverFunc) Observe(p Progress) { f(p) }

// Nop discards progress.
var Nop Observer = ObserverFunc(func(Progress) {})

// DefaultSize returns the worker count used when none is configured.
// Units are expected to be I/O bound.
func DefaultSize() int {
	return runtime.NumCPU() * 4
}

// Run executes units with at most size in flight and returns their outcomes in
// completion order. A unit that panics or times out yields an error outcome and
// does not affect the others. If ctx is cancelled the run is abandoned and
// ctx.Err() is returned.
func Run[T any](ctx context.Context, size int, timeout time.Duration, units []Unit[T], obs Observer) ([]Outcome[T], error) {
	if size <= 0 {
		size = DefaultSize()
	}
	if obs == nil {
		obs = Nop
	}
	total := len(units)
	if total == 0 {
		return nil, ctx.Err()
	}

	done := make(chan Outcome[T], size)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(size)

	go func() {
		defer close(done)
		for i, u := range units {
			i, u := i, u // per-iteration copies (go directive is 1.21)
			if gctx.Err() != nil {
				break
			}
			g.Go(func() error {
				v, err := invoke(gctx, timeout, u)
				select {
				case done <- Outcome[T]{Index: i, Value: v, Err: err}:
				case <-gctx.Done():
				}
				return nil
			})
		}
		g.Wait()
	}()

	outcomes := make([]Outcome[T], 0, total)
	for o := range done {
		outcomes = append(outcomes, o)
		obs.Observe(Progress{Completed: len(outcomes), Total: total})
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return outcomes, nil
}

// invoke runs u with panic recovery. With a positive timeout the unit runs in
// its own goroutine so a hung unit releases the worker slot.
func invoke[T any](ctx context.Context, timeout time.Duration, u Unit[T]) (T, error) {
	if timeout <= 0 {
		return guarded(ctx, u)
	}
	tctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		v   T
		err error
	}
	ch := make(chan result, 1)
	go func() {
		v, err := guarded(tctx, u)
		ch <- result{v, err}
	}()
	select {
	case r := <-ch:
		return r.v, r.err
	case <-tctx.Done():
		var zero T
		if ctx.Err() != nil {
			return zero, ctx.Err()
		}
		return zero, ErrTimeout
	}
}

func guarded[T any](ctx context.Context, u Unit[T]) (v T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r, Stack: debug.Stack()}
		}
	}()
	return u(ctx)
}

// PanicError wraps a value recovered from a panicking unit.
type PanicError struct {
	Value interface{}
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("unit panicked: %v", e.Value)
}
