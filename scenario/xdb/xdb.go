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

// Package xdb implements the scenario-layer cross-replica decision book:
// it deduplicates certifier decisions for the same transaction id (xid)
// across replicas, upgrading a Permissive decision to Assertive when a
// more authoritative one arrives, and flagging a Conflict when two
// Assertive decisions for the same xid disagree.
package xdb

import (
	"errors"
	"fmt"

	"github.com/cespare/xxhash/v2"
	"github.com/dgryski/go-rendezvous"

	"stride/examiner"
)

func xxhashString(s string) uint64 {
	return xxhash.Sum64String(s)
}

// ErrConflict is returned by Record when two Assertive decisions disagree
// on the same xid. It indicates a certifier bug, not a transient scenario
// condition.
var ErrConflict = errors.New("xdb: conflicting assertive decisions")

// Decision is one certifier replica's outcome for a given transaction.
type Decision struct {
	Xid     string
	Outcome examiner.Outcome
}

// XDB is the in-memory decision book. It is not safe for concurrent use by
// multiple goroutines; under Havoc it is driven as ordinary single-stepped
// action state, and a live deployment would shard one XDB per partition
// behind its own owning goroutine.
type XDB struct {
	decisions map[string]examiner.Outcome
}

// New returns an empty XDB.
func New() *XDB {
	return &XDB{decisions: make(map[string]examiner.Outcome)}
}

// Record folds decision into the book. If no decision exists yet for the
// xid, it is recorded as-is and isNew is true — the caller (typically a
// certifier replica) should treat this as the canonical decision and
// publish it onward. If one exists and is Permissive while the incoming one
// is Assertive (or vice versa), the book keeps the Assertive outcome but
// isNew is false: the redaction changed, but the canonical decision for
// other replicas to observe does not. Two Assertive decisions for the same
// xid must agree bit-for-bit (same Commit/Abort kind and the same
// safepoint/reason) or Record returns ErrConflict.
func (x *XDB) Record(d Decision) (isNew bool, err error) {
	existing, ok := x.decisions[d.Xid]
	if !ok {
		x.decisions[d.Xid] = d.Outcome
		return true, nil
	}

	if existing.Discord == examiner.Assertive && d.Outcome.Discord == examiner.Assertive {
		if !sameOutcome(existing, d.Outcome) {
			return false, fmt.Errorf("%w: xid=%s existing=%+v incoming=%+v", ErrConflict, d.Xid, existing, d.Outcome)
		}
		return false, nil
	}

	if d.Outcome.Discord == examiner.Assertive && existing.Discord == examiner.Permissive {
		x.decisions[d.Xid] = d.Outcome
		return false, nil
	}
	// Incoming Permissive never overrides an existing Assertive, and two
	// Permissive decisions simply coexist with the first one kept.
	return false, nil
}

// Get returns the current recorded decision for xid, if any.
func (x *XDB) Get(xid string) (examiner.Outcome, bool) {
	o, ok := x.decisions[xid]
	return o, ok
}

func sameOutcome(a, b examiner.Outcome) bool {
	if a.Committed != b.Committed {
		return false
	}
	if a.Committed {
		return a.Safepoint == b.Safepoint
	}
	return a.Reason == b.Reason
}

// Router assigns xids to replicas via rendezvous (highest random weight)
// hashing: each replica's score for a given key is deterministic, so every
// caller converges on the same owner without a global lock, mirroring the
// teacher's Store.GetOrCreate sharding instinct but across a fixed replica
// set rather than a single process map.
type Router struct {
	rdv      *rendezvous.Rendezvous
	replicas []string
}

// NewRouter returns a Router over the given replica names.
func NewRouter(replicas []string) *Router {
	cp := append([]string(nil), replicas...)
	return &Router{
		rdv:      rendezvous.New(cp, xxhashString),
		replicas: cp,
	}
}

// Owner returns the replica that owns xid.
func (r *Router) Owner(xid string) string {
	return r.rdv.Lookup(xid)
}

// Replicas returns the configured replica set.
func (r *Router) Replicas() []string {
	return r.replicas
}
