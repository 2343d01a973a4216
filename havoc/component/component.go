// Copyright 2025 Esteban Alvarez. All Rights Reserved.
//
// Created: October 2025
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package component offers small pieces of state that Havoc models
// commonly need to build realistic scenarios: a named counter and a
// single-owner lock. Both are deliberately not safe for concurrent access
// — they are modelled state, always lent exclusively to one action at a
// time by the checker/sim, never aliased.
package component

// Counter tracks named integer counters, used by scenario actions to count
// how many times each ran, or to coordinate phases between them.
type Counter struct {
	counts map[string]int64
}

// NewCounter returns an empty Counter.
func NewCounter() *Counter {
	return &Counter{counts: make(map[string]int64)}
}

// Inc increments name by 1 and returns the updated value.
func (c *Counter) Inc(name string) int64 {
	return c.Add(name, 1)
}

// Add adds amount to name and returns the updated value. An entry that
// falls back to zero is removed rather than kept around at zero.
func (c *Counter) Add(name string, amount int64) int64 {
	updated := c.counts[name] + amount
	if updated == 0 {
		delete(c.counts, name)
	} else {
		c.counts[name] = updated
	}
	return updated
}

// Reset removes name and returns its prior value (0 if absent).
func (c *Counter) Reset(name string) int64 {
	v := c.counts[name]
	delete(c.counts, name)
	return v
}

// Set assigns value to name, returning the prior value (0 if absent).
// Setting to 0 is equivalent to Reset.
func (c *Counter) Set(name string, value int64) int64 {
	if value == 0 {
		return c.Reset(name)
	}
	prev := c.counts[name]
	c.counts[name] = value
	return prev
}

// Get returns the current value of name (0 if absent).
func (c *Counter) Get(name string) int64 {
	return c.counts[name]
}

// Lock is a single-owner, reentrant-for-the-owner lock. It models mutual
// exclusion for Havoc scenarios (e.g. the classic two-lock deadlock
// fixture); it is not a real synchronization primitive.
type Lock struct {
	owner string
	held  bool
}

// NewLock returns an unheld Lock.
func NewLock() *Lock {
	return &Lock{}
}

// TryLock attempts to acquire the lock for owner. Reentrant: an owner that
// already holds the lock always succeeds. Returns false if another owner
// holds it.
func (l *Lock) TryLock(owner string) bool {
	if !l.held {
		l.owner = owner
		l.held = true
		return true
	}
	return l.owner == owner
}

// Held reports whether owner currently holds the lock.
func (l *Lock) Held(owner string) bool {
	return l.held && l.owner == owner
}

// Unlock releases the lock. It panics if the lock is not held, the same
// precondition failure the original Rust component enforces with
// assert! — a modelling bug, not a runtime condition scenarios should
// recover from.
func (l *Lock) Unlock() {
	if !l.held {
		panic("component: lock not held")
	}
	l.held = false
	l.owner = ""
}
