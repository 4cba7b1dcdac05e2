// Package ambient provides task-scoped slots carried on context.Context.
//
// A scope holds at most one value per slot. Values are visible to the
// scope that published them and to every scope forked from it afterwards.
// Writes in a forked scope never reach the parent or sibling scopes.
//
// Each published value lives in its own cell. Borrow locks the cell for
// the duration of the callback, so concurrent callers sharing a value
// (for example a database transaction) are serialized instead of having
// to take the value out and put it back.
package ambient

import (
	"context"
	"sync"
	"sync/atomic"
)

// Slot identifies a typed value in a scope.
type Slot[T any] struct {
	key *slotKey
}

type slotKey struct {
	name string
}

// NewSlot creates a slot. Two slots created with the same name are distinct.
func NewSlot[T any](name string) Slot[T] {
	return Slot[T]{key: &slotKey{name: name}}
}

// Name returns the slot name given at creation.
func (s Slot[T]) Name() string {
	return s.key.name
}

// cell holds one published value. The value is never mutated after
// publication; publishing again installs a new cell. A closed cell is
// absent in every scope that shares it.
type cell struct {
	mu     sync.Mutex
	value  any
	closed atomic.Bool
}

type scope struct {
	mu    sync.Mutex
	cells map[*slotKey]*cell
}

type scopeKey struct{}

func scopeFrom(ctx context.Context) *scope {
	if s, ok := ctx.Value(scopeKey{}).(*scope); ok {
		return s
	}
	return nil
}

// NewScope returns a context carrying a fresh scope forked from the scope
// in ctx, if any. Request entry points call it so that concurrent requests
// never share slots.
func NewScope(ctx context.Context) context.Context {
	return Fork(ctx)
}

// Fork returns a child context whose scope starts with a snapshot of the
// parent's slots.
func Fork(ctx context.Context) context.Context {
	child := &scope{cells: make(map[*slotKey]*cell)}
	if parent := scopeFrom(ctx); parent != nil {
		parent.mu.Lock()
		for k, c := range parent.cells {
			child.cells[k] = c
		}
		parent.mu.Unlock()
	}
	return context.WithValue(ctx, scopeKey{}, child)
}

// Publish installs v in the scope of ctx. If ctx carries no scope a new one
// is created; callers must continue with the returned context.
func Publish[T any](ctx context.Context, slot Slot[T], v T) context.Context {
	s := scopeFrom(ctx)
	if s == nil {
		ctx = Fork(ctx)
		s = scopeFrom(ctx)
	}

	s.mu.Lock()
	s.cells[slot.key] = &cell{value: v}
	s.mu.Unlock()

	return ctx
}

// Take removes the value from the scope of ctx and returns it.
func Take[T any](ctx context.Context, slot Slot[T]) (T, bool) {
	var zero T
	s := scopeFrom(ctx)
	if s == nil {
		return zero, false
	}

	s.mu.Lock()
	c, ok := s.cells[slot.key]
	delete(s.cells, slot.key)
	s.mu.Unlock()

	if !ok || c.closed.Load() {
		return zero, false
	}
	return c.value.(T), true
}

// Read returns the value without removing it.
func Read[T any](ctx context.Context, slot Slot[T]) (T, bool) {
	var zero T
	c := lookup(ctx, slot.key)
	if c == nil {
		return zero, false
	}
	return c.value.(T), true
}

// Has reports whether the slot holds a value in the scope of ctx.
func Has[T any](ctx context.Context, slot Slot[T]) bool {
	return lookup(ctx, slot.key) != nil
}

// Borrow runs fn with the slot value while holding the value's lock.
// It reports false without calling fn when the slot is empty.
//
// fn must not call Borrow on the same slot; the lock is not reentrant.
func Borrow[T any](ctx context.Context, slot Slot[T], fn func(v T) error) (bool, error) {
	c := lookup(ctx, slot.key)
	if c == nil {
		return false, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed.Load() {
		return false, nil
	}

	return true, fn(c.value.(T))
}

// Finish is Borrow followed by closing the value: once fn returns, the
// slot reads as empty in ctx and in every scope forked from it, including
// scopes forked before the call.
func Finish[T any](ctx context.Context, slot Slot[T], fn func(v T) error) (bool, error) {
	c := lookup(ctx, slot.key)
	if c == nil {
		return false, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed.Load() {
		return false, nil
	}
	defer c.closed.Store(true)

	return true, fn(c.value.(T))
}

func lookup(ctx context.Context, key *slotKey) *cell {
	s := scopeFrom(ctx)
	if s == nil {
		return nil
	}

	s.mu.Lock()
	c := s.cells[key]
	s.mu.Unlock()
	if c == nil || c.closed.Load() {
		return nil
	}
	return c
}
