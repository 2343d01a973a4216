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

// Package fixture builds end-to-end Havoc models over the scenario
// packages, so the certifier is exercised under realistic cohort/certifier
// traffic rather than only through examiner/suffix unit tests. Two models
// are built out: bank (BuildBankModel — N cohorts transferring funds, the
// invariant being that no replica ever observes a negative balance or a
// drifted total) and monotonic (BuildMonotonicModel — each cohort bumping
// its own register, the invariant being that installed values advance by
// exactly one). The remaining named fixtures of the original integration
// suite (swaps, marbles, roster, blind) follow the same shape — a
// transaction generator plus an install-time invariant over this file's
// shared plumbing — and either built model is the template to port them
// from.
package fixture

import (
	"encoding/json"
	"fmt"

	"stride/examiner"
	"stride/havoc/model"
	"stride/scenario/broker"
	"stride/scenario/xdb"
	"stride/suffix"
)

// change is one item update: install sets Items[Item] to Value outright,
// the same "absolute install" shape the original's Op::Set models when
// restricted to these fixtures (Add/Mpy exist in the original for other
// fixtures but have no caller here).
type change struct {
	Item  int   `json:"item"`
	Value int64 `json:"value"`
}

// envelope is the single message shape multiplexed onto the shared broker:
// a candidate from a cohort, or a commit/abort decision from a certifier.
type envelope struct {
	Kind      string   `json:"kind"` // "candidate", "commit", or "abort"
	Xid       string   `json:"xid"`
	Readset   []string `json:"readset,omitempty"`
	Writeset  []string `json:"writeset,omitempty"`
	Readvers  []uint64 `json:"readvers,omitempty"`
	Snapshot  uint64   `json:"snapshot,omitempty"`
	Ver       uint64   `json:"ver,omitempty"`
	Safepoint uint64   `json:"safepoint,omitempty"`
	Reason    string   `json:"reason,omitempty"`
	Changes   []change `json:"changes,omitempty"`
}

// itemReplica is a cohort's private view of the modelled items, installed
// either out-of-order (as soon as a commit's safepoint has already been
// observed) or serially (strictly in ver order), mirroring the original
// fixtures::Replica.
type itemReplica struct {
	items []int64
	vers  []uint64
	ver   uint64
}

func newItemReplica(values []int64) *itemReplica {
	items := append([]int64(nil), values...)
	return &itemReplica{items: items, vers: make([]uint64, len(values))}
}

func (r *itemReplica) canInstallOOO(changes []change, safepoint, ver uint64) bool {
	if r.ver < safepoint || ver <= r.ver {
		return false
	}
	for _, c := range changes {
		if ver > r.vers[c.Item] {
			return true
		}
	}
	return false
}

func (r *itemReplica) installItems(changes []change, ver uint64) {
	for _, c := range changes {
		if ver > r.vers[c.Item] {
			r.items[c.Item] = c.Value
			r.vers[c.Item] = ver
		}
	}
}

func (r *itemReplica) installOOO(changes []change, safepoint, ver uint64) {
	if r.ver >= safepoint && ver > r.ver {
		r.installItems(changes, ver)
	}
}

func (r *itemReplica) installSer(changes []change, ver uint64) {
	if ver > r.ver {
		r.installItems(changes, ver)
		r.ver = ver
	}
}

// certPipeline is one certifier replica's half of the pipeline: an
// independent cursor into the shared broker, a suffix, and an examiner
// moving in lockstep.
type certPipeline struct {
	cursor   int64
	nextVer  uint64
	extent   int
	suffix   *suffix.Suffix
	examiner *examiner.Examiner
}

func newCertPipeline(extent int) *certPipeline {
	return &certPipeline{extent: extent, suffix: suffix.New(16), examiner: examiner.New()}
}

// certifyAction returns the Havoc action for certifier replica idx over any
// fixture state: consume the next broker message; assess candidates and —
// when this replica's decision is the first recorded in the XDB — publish
// the canonical decision back onto the broker; apply decision messages to
// the local suffix and truncate, releasing keys back to the examiner.
func certifyAction[S any](idx int, parts func(*S) (broker.Broker, *certPipeline, *xdb.XDB)) model.Action[S] {
	return func(s *S, ctx model.Context) model.Result {
		b, cert, book := parts(s)
		msgs, err := b.Poll(fmt.Sprintf("certifier-%d", idx), cert.cursor, 1)
		if err != nil {
			return model.BreachedResult(err.Error())
		}
		if len(msgs) == 0 {
			return model.BlockedResult()
		}
		msg := msgs[0]
		cert.cursor++

		var env envelope
		if err := json.Unmarshal(msg.Payload, &env); err != nil {
			return model.BreachedResult(err.Error())
		}

		switch env.Kind {
		case "candidate":
			// Candidates arrive in the same broker order at every replica,
			// so a per-pipeline counter yields the same dense sequencer
			// order everywhere without coordination. Starting at 1 keeps
			// version 0 reserved.
			cert.nextVer++
			ver := cert.nextVer
			if _, err := cert.suffix.Append(env.Readset, env.Writeset, ver); err != nil {
				return model.BreachedResult(fmt.Sprintf("suffix insertion error: %v", err))
			}
			rec := examiner.Record{
				Readset: env.Readset, Writeset: env.Writeset,
				Readvers: env.Readvers, Snapshot: env.Snapshot,
			}
			outcome, err := cert.examiner.Assess(examiner.Candidate{Rec: rec, Ver: ver})
			if err != nil {
				return model.BreachedResult(err.Error())
			}
			isNew, err := book.Record(xdb.Decision{Xid: env.Xid, Outcome: outcome})
			if err != nil {
				return model.BreachedResult(err.Error())
			}
			if isNew {
				var out envelope
				if outcome.Committed {
					out = envelope{Kind: "commit", Xid: env.Xid, Ver: ver, Safepoint: outcome.Safepoint, Changes: env.Changes}
				} else {
					out = envelope{Kind: "abort", Xid: env.Xid, Ver: ver, Reason: outcome.Reason.String()}
				}
				payload, err := json.Marshal(out)
				if err != nil {
					return model.BreachedResult(err.Error())
				}
				if _, err := b.Publish(payload); err != nil {
					return model.BreachedResult(err.Error())
				}
			}
		case "commit", "abort":
			if _, err := cert.suffix.Decide(env.Ver); err != nil {
				return model.BreachedResult(fmt.Sprintf("suffix decision error: %v", err))
			}
			for _, entry := range cert.suffix.Truncate(cert.extent, cert.extent) {
				_ = cert.examiner.Discard(entry)
			}
		}
		return model.RanResult()
	}
}

// SuffixExtent bounds how far a fixture certifier lets its suffix grow
// before truncating, mirroring the original tests' fixed small extent.
const SuffixExtent = 4
