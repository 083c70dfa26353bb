// Package state implements the immutable, type-indexed store threaded through
// every stage of a pipeline run.
//
// A State is a value: Set and Update return a new State and never modify the
// one they were given, so earlier versions stay valid for as long as someone
// holds them. Keys are typed handles created once (usually as package-level
// variables) with NewKey. The key's type parameter is the witness that makes
// retrieval type-safe; there is no way to read a slot at a type other than
// the one it was written with.
//
// Reading a key that was never bound is a programming error. Get panics with
// *UnboundKeyError and nothing in the pipeline evaluator or the run loop
// recovers it.
package state

import (
	"fmt"
	"maps"
	"sync/atomic"
)

// keySeq hands out process-unique key identifiers.
var keySeq atomic.Uint64

// Key is an opaque handle to one slot of a State holding a value of type T.
//
// Keys compare by identity: two keys created with the same name are still
// distinct slots.
type Key[T any] struct {
	id   uint64
	name string
}

// NewKey allocates a fresh, unbound key. The name is only used in
// diagnostics.
func NewKey[T any](name string) *Key[T] {
	return &Key[T]{id: keySeq.Add(1), name: name}
}

// Name returns the diagnostic name given at creation.
func (k *Key[T]) Name() string {
	return k.name
}

func (k *Key[T]) String() string {
	return fmt.Sprintf("%s#%d", k.name, k.id)
}

// State is a persistent key-value map. The zero value is an empty state.
type State struct {
	slots map[uint64]any
}

// Empty returns a state with no bound keys.
func Empty() State {
	return State{}
}

// Len returns the number of bound keys.
func (s State) Len() int {
	return len(s.slots)
}

// UnboundKeyError is the panic value raised by Get for a key that has no
// binding in the given state.
type UnboundKeyError struct {
	Key string
}

func (e *UnboundKeyError) Error() string {
	return fmt.Sprintf("state: key %q is not bound", e.Key)
}

// Get returns the value bound to k. It panics with *UnboundKeyError when k is
// unbound.
func Get[T any](s State, k *Key[T]) T {
	v, ok := Lookup(s, k)
	if !ok {
		panic(&UnboundKeyError{Key: k.name})
	}
	return v
}

// Lookup returns the value bound to k and whether it was bound.
func Lookup[T any](s State, k *Key[T]) (T, bool) {
	raw, ok := s.slots[k.id]
	if !ok {
		var zero T
		return zero, false
	}
	// Only Set[T] with this key writes the slot, so the assertion holds.
	return raw.(T), true
}

// IsBound reports whether k has a binding in s.
func IsBound[T any](s State, k *Key[T]) bool {
	_, ok := s.slots[k.id]
	return ok
}

// Set returns a copy of s in which k is bound to v. s itself is unchanged.
func Set[T any](s State, k *Key[T], v T) State {
	next := make(map[uint64]any, len(s.slots)+1)
	maps.Copy(next, s.slots)
	next[k.id] = v
	return State{slots: next}
}

// Update rebinds k to f applied to its current value. Like Get, it panics
// when k is unbound.
func Update[T any](s State, k *Key[T], f func(T) T) State {
	return Set(s, k, f(Get(s, k)))
}

// Unset returns a copy of s without a binding for k.
func Unset[T any](s State, k *Key[T]) State {
	if _, ok := s.slots[k.id]; !ok {
		return s
	}
	next := maps.Clone(s.slots)
	delete(next, k.id)
	return State{slots: next}
}

// IsUnbound reports whether a recovered panic value came from reading an
// unbound key. Recovery points use it to re-panic instead of swallowing the
// failure.
func IsUnbound(r any) bool {
	_, ok := r.(*UnboundKeyError)
	return ok
}
