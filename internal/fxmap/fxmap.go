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

// Package fxmap provides a small string-keyed map tuned for short,
// user-controlled keys on a throughput-sensitive hot path: the certifier's
// conflict index. Lookups hash with xxhash rather than Go's built-in
// (cryptographically hardened) string hash, trading DoS-resistance for
// speed — acceptable here because the certifier is single-writer,
// in-process, and never exposed to untrusted network input directly.
package fxmap

import "github.com/cespare/xxhash/v2"

const initialBuckets = 16

type entry struct {
	key   string
	value uint64
	used  bool
}

// Map is an open-addressed string-to-uint64 map. The zero value is not
// usable; construct with New.
type Map struct {
	buckets []entry
	count   int
}

// New returns an empty Map.
func New() *Map {
	return &Map{buckets: make([]entry, initialBuckets)}
}

func (m *Map) slot(key string) int {
	h := xxhash.Sum64String(key)
	mask := uint64(len(m.buckets) - 1)
	i := h & mask
	for {
		b := &m.buckets[i]
		if !b.used || b.key == key {
			return int(i)
		}
		i = (i + 1) & mask
	}
}

func (m *Map) grow() {
	old := m.buckets
	m.buckets = make([]entry, len(old)*2)
	m.count = 0
	for _, b := range old {
		if b.used {
			m.Set(b.key, b.value)
		}
	}
}

// Set records value at key, overwriting any prior value.
func (m *Map) Set(key string, value uint64) {
	if (m.count+1)*2 > len(m.buckets) {
		m.grow()
	}
	i := m.slot(key)
	if !m.buckets[i].used {
		m.count++
	}
	m.buckets[i] = entry{key: key, value: value, used: true}
}

// Get returns the value at key and whether it was present.
func (m *Map) Get(key string) (uint64, bool) {
	if len(m.buckets) == 0 {
		return 0, false
	}
	i := m.slot(key)
	b := &m.buckets[i]
	if !b.used {
		return 0, false
	}
	return b.value, true
}

// DeleteIf removes key only if its current value equals expected, reporting
// whether a removal happened. A present entry with a different value is
// left untouched and reported as such via the second return value, so
// callers can distinguish "removed", "absent", and "superseded".
func (m *Map) DeleteIf(key string, expected uint64) (removed bool, present bool) {
	if len(m.buckets) == 0 {
		return false, false
	}
	i := m.slot(key)
	b := &m.buckets[i]
	if !b.used {
		return false, false
	}
	if b.value != expected {
		return false, true
	}
	m.deleteSlot(i)
	return true, true
}

// deleteSlot removes the entry at i and repairs the open-addressing probe
// chain by re-inserting every entry in the same cluster that follows it.
func (m *Map) deleteSlot(i int) {
	mask := len(m.buckets) - 1
	m.buckets[i] = entry{}
	m.count--
	j := (i + 1) & mask
	for m.buckets[j].used {
		b := m.buckets[j]
		m.buckets[j] = entry{}
		m.count--
		m.Set(b.key, b.value)
		j = (j + 1) & mask
	}
}

// Len reports the number of live entries.
func (m *Map) Len() int {
	return m.count
}
