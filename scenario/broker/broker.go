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

// Package broker provides the append-only, multi-reader log a scenario's
// cohorts publish candidates onto and certifiers read back in order. It
// plays the role spec.md §4.4 assigns a message broker between cohort and
// certifier: any number of publishers appending to one log, and many
// independent readers, each advancing its own cursor monotonically. A Ring
// retains only a bounded window, so a reader that falls behind retention
// resumes at Base() and never sees the evicted messages.
package broker

import "errors"

// ErrClosed is returned by Poll once a Broker has been closed.
var ErrClosed = errors.New("broker: closed")

// Message is one published entry. Offset is assigned by the Broker on
// Publish and is stable for the life of the broker.
type Message struct {
	Offset  int64
	Payload []byte
}

// Broker is the append-only log interface every scenario backend (in-memory
// or Redis-backed) implements. Poll takes the reader's name and cursor; the
// broker stores no per-reader cursor, so each reader keeps its own.
type Broker interface {
	// Publish appends payload and returns its assigned offset.
	Publish(payload []byte) (int64, error)
	// Poll returns messages at or after cursor for reader, up to max
	// entries. An empty slice with a nil error means "nothing new yet".
	Poll(reader string, cursor int64, max int) ([]Message, error)
	// Base reports the lowest offset still retained.
	Base() int64
	// Close releases any resources held by the broker.
	Close() error
}

// Ring is the default, in-memory Broker: a bounded append-only buffer that
// drops its oldest entries once capacity is exceeded. It mirrors the
// teacher's MockPersister in spirit — no external dependency, good enough
// for a single-process scenario harness or Havoc model.
type Ring struct {
	capacity int
	base     int64
	entries  []Message
	closed   bool
}

// NewRing returns a Ring retaining at most capacity messages.
func NewRing(capacity int) *Ring {
	if capacity <= 0 {
		capacity = 1
	}
	return &Ring{capacity: capacity}
}

// Publish appends payload, evicting the oldest retained message if the
// ring is at capacity.
func (r *Ring) Publish(payload []byte) (int64, error) {
	if r.closed {
		return 0, ErrClosed
	}
	offset := r.base + int64(len(r.entries))
	r.entries = append(r.entries, Message{Offset: offset, Payload: payload})
	if len(r.entries) > r.capacity {
		drop := len(r.entries) - r.capacity
		r.entries = r.entries[drop:]
		r.base += int64(drop)
	}
	return offset, nil
}

// Poll returns up to max messages at or after cursor. Offsets below Base()
// are silently skipped forward to Base() rather than erroring, matching a
// reader that fell behind retention and must resynchronize at the new
// floor.
func (r *Ring) Poll(reader string, cursor int64, max int) ([]Message, error) {
	if r.closed {
		return nil, ErrClosed
	}
	if cursor < r.base {
		cursor = r.base
	}
	start := int(cursor - r.base)
	if start >= len(r.entries) {
		return nil, nil
	}
	end := start + max
	if max <= 0 || end > len(r.entries) {
		end = len(r.entries)
	}
	out := make([]Message, end-start)
	copy(out, r.entries[start:end])
	return out, nil
}

// Base reports the lowest retained offset.
func (r *Ring) Base() int64 { return r.base }

// Close marks the Ring closed; subsequent Publish/Poll calls fail.
func (r *Ring) Close() error {
	r.closed = true
	return nil
}
