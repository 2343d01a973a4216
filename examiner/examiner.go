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

// Package examiner implements the STRIDE certification algorithm: a
// single-writer serialisability oracle that decides, for each candidate
// transaction in version order, whether it may commit (and at what
// safepoint) or must abort.
//
// An Examiner holds only bounded in-memory state — the latest version that
// read or wrote each currently-live key — and is not safe for concurrent
// use. Callers are responsible for serialising Learn/Assess/Discard calls
// in strictly increasing version order, same as the teacher's Store is
// responsible for serialising its own background commit cycle.
package examiner

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"stride/internal/fxmap"
	"stride/sortedvec"
	"stride/suffix"
)

// ErrInvalidVersion is returned when a candidate carries version 0, which
// is reserved to mean "uninitialised".
var ErrInvalidVersion = errors.New("examiner: version 0 is not a valid version")

// ErrUninitialized is returned by Discard when no candidate has ever been
// learned or assessed.
var ErrUninitialized = errors.New("examiner: uninitialized")

// Record is the per-transaction payload the certifier reasons about. Xid is
// the transaction's opaque external identifier (spec.md's "opaque 128-bit
// external identifier"); the certifier never inspects it, only carries it
// through to the Outcome's caller.
type Record struct {
	Xid       uuid.UUID
	Readset   []string
	Writeset  []string
	Readvers  []uint64
	Snapshot  uint64
}

// Candidate is a Record paired with the version assigned to it by the
// external sequencer.
type Candidate struct {
	Rec Record
	Ver uint64
}

// Discord reports the authority level of an Outcome: Assertive outcomes
// must be agreed on by every honest replica; Permissive outcomes may be
// overridden by a more authoritative contradicting outcome for the same
// transaction, should one arrive from a peer with a different retained
// history.
type Discord int

const (
	Permissive Discord = iota
	Assertive
)

func (d Discord) String() string {
	if d == Assertive {
		return "Assertive"
	}
	return "Permissive"
}

// AbortReason explains why a candidate could not commit.
type AbortReason struct {
	// Antidependency is true when the abort is due to a stale read; Write
	// holds the conflicting write version. Otherwise the abort is Staleness
	// and Write is meaningless.
	Antidependency bool
	Write          uint64
}

func (r AbortReason) String() string {
	if r.Antidependency {
		return fmt.Sprintf("Antidependency(%d)", r.Write)
	}
	return "Staleness"
}

// Staleness constructs the Staleness abort reason.
func Staleness() AbortReason { return AbortReason{} }

// Antidependency constructs the Antidependency(w) abort reason.
func Antidependency(w uint64) AbortReason {
	return AbortReason{Antidependency: true, Write: w}
}

// Outcome is the certification verdict for a single candidate.
type Outcome struct {
	Committed bool
	// Safepoint is meaningful only when Committed.
	Safepoint uint64
	// Reason is meaningful only when !Committed.
	Reason  AbortReason
	Discord Discord
}

func (o Outcome) String() string {
	if o.Committed {
		return fmt.Sprintf("Commit(%d, %s)", o.Safepoint, o.Discord)
	}
	return fmt.Sprintf("Abort(%s, %s)", o.Reason, o.Discord)
}

// Examiner is the conflict index over live readsets/writesets. The zero
// value is not usable; construct with New.
type Examiner struct {
	reads  *fxmap.Map
	writes *fxmap.Map
	base   uint64 // 0 means uninitialised
}

// New returns an empty Examiner.
func New() *Examiner {
	return &Examiner{reads: fxmap.New(), writes: fxmap.New()}
}

func (e *Examiner) ensureInitialized(ver uint64) {
	if e.base == 0 {
		e.base = ver
	}
}

// Base reports the lowest version still represented in the conflict index.
// ok is false until the first Learn or Assess call.
func (e *Examiner) Base() (ver uint64, ok bool) {
	if e.base == 0 {
		return 0, false
	}
	return e.base, true
}

// Learn inserts the candidate's reads and writes into the conflict index at
// candidate.Ver, overwriting any earlier entry for the same key. Learn is
// only ever called with a Ver strictly greater than any previously learned
// entry; the caller is responsible for that ordering.
func (e *Examiner) Learn(c Candidate) error {
	if c.Ver == 0 {
		return ErrInvalidVersion
	}
	e.ensureInitialized(c.Ver)
	e.learnUnchecked(c)
	return nil
}

func (e *Examiner) learnUnchecked(c Candidate) {
	for _, r := range c.Rec.Readset {
		e.reads.Set(r, c.Ver)
	}
	for _, w := range c.Rec.Writeset {
		e.writes.Set(w, c.Ver)
	}
}

// updateWritesAndComputeSafepoint absorbs read-write and write-write
// hazards for writeset into the writes index at ver, returning the largest
// conflicting version seen.
func (e *Examiner) updateWritesAndComputeSafepoint(writeset []string, ver uint64) uint64 {
	var safepoint uint64
	for _, w := range writeset {
		if r, ok := e.reads.Get(w); ok && r > safepoint {
			safepoint = r
		}
		if prev, ok := e.writes.Get(w); ok {
			if prev > safepoint {
				safepoint = prev
			}
		}
		e.writes.Set(w, ver)
	}
	return safepoint
}

// Assess applies the four certification rules (spec §4.1.1) in order and
// returns the outcome. Assess always mutates the Examiner so that, once it
// returns, the candidate is known: its reads/writes are reflected in the
// index at candidate.Ver regardless of whether the outcome is commit or
// abort.
func (e *Examiner) Assess(c Candidate) (Outcome, error) {
	if c.Ver == 0 {
		return Outcome{}, ErrInvalidVersion
	}
	e.ensureInitialized(c.Ver)
	safepoint := e.base - 1

	// R1: write-only transactions cannot have an antidependency.
	if len(c.Rec.Readset) == 0 {
		if sp := e.updateWritesAndComputeSafepoint(c.Rec.Writeset, c.Ver); sp > safepoint {
			safepoint = sp
		}
		return Outcome{Committed: true, Safepoint: safepoint, Discord: Assertive}, nil
	}

	// R2: a snapshot older than anything we can still reason about is stale.
	if c.Rec.Snapshot < e.base-1 {
		e.learnUnchecked(c)
		return Outcome{Reason: Staleness(), Discord: Permissive}, nil
	}

	// R3: abort on antidependency — a read of a key written after our
	// snapshot that we did not observe.
	readvers := sortedvec.From(c.Rec.Readvers)
	for _, r := range c.Rec.Readset {
		w, ok := e.writes.Get(r)
		if !ok {
			continue
		}
		if w > c.Rec.Snapshot && !readvers.Contains(w) {
			e.learnUnchecked(c)
			return Outcome{Reason: Antidependency(w), Discord: Assertive}, nil
		}
		if w > safepoint {
			safepoint = w
		}
	}

	// R4: conditional commit.
	if sp := e.updateWritesAndComputeSafepoint(c.Rec.Writeset, c.Ver); sp > safepoint {
		safepoint = sp
	}
	for _, r := range c.Rec.Readset {
		e.reads.Set(r, c.Ver)
	}
	return Outcome{Committed: true, Safepoint: safepoint, Discord: Permissive}, nil
}

// Discard removes entry's readset/writeset from the conflict index, but
// only where the currently-indexed version still equals entry.Ver — a
// higher version that has since overwritten the entry is left alone. It
// advances base to entry.Ver+1. Discard is called when the paired Suffix
// truncates the slot at entry.Ver.
func (e *Examiner) Discard(entry suffix.TruncatedEntry) error {
	if e.base == 0 {
		return ErrUninitialized
	}
	if entry.Ver < e.base {
		return fmt.Errorf("examiner: entry version %d precedes base %d", entry.Ver, e.base)
	}
	removeIf(e.reads, entry.Readset, entry.Ver)
	removeIf(e.writes, entry.Writeset, entry.Ver)
	e.base = entry.Ver + 1
	return nil
}

func removeIf(m *fxmap.Map, keys []string, ver uint64) {
	for _, k := range keys {
		m.DeleteIf(k, ver)
	}
}

// Compress implements the original record-compression step (spec §4.1.3):
// folding the smallest observed readver into snapshot and dropping any
// readver that no longer exceeds the (possibly raised) snapshot. It is
// idempotent and monotonic in snapshot.
func Compress(readvers []uint64, snapshot uint64) ([]uint64, uint64) {
	if len(readvers) == 0 {
		return readvers, snapshot
	}
	m := readvers[0]
	for _, v := range readvers[1:] {
		if v < m {
			m = v
		}
	}
	if m > snapshot {
		snapshot = m
	}
	out := make([]uint64, 0, len(readvers))
	for _, v := range readvers {
		if v > snapshot {
			out = append(out, v)
		}
	}
	return out, snapshot
}
