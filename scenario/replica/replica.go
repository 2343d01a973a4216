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

// Package replica models the certifier side of a scenario: a Replica reads
// candidate transactions off a broker in order, certifies each with its own
// Certifier, and records the outcome in a shared XDB so independently
// certifying replicas can be checked for agreement.
package replica

import (
	"fmt"

	"stride/scenario/certifier"
	"stride/scenario/cohort"
	"stride/scenario/xdb"

	"stride/scenario/broker"
)

// Status is the outcome of one Consume call.
type Status int

const (
	// Advanced means a message was consumed and certified.
	Advanced Status = iota
	// Blocked means no new message is available yet.
	Blocked
	// Done means this replica has consumed every message it expects.
	Done
)

// Replica consumes from a single broker topic and certifies every message
// against its own Certifier, recording each outcome into book.
type Replica struct {
	name   string
	b      broker.Broker
	cursor int64
	total  int
	cert   *certifier.Certifier
	book   *xdb.XDB
}

// New returns a Replica named name, reading from b, expecting exactly total
// messages before it considers itself Done, certifying with cert and
// recording decisions into book.
func New(name string, b broker.Broker, total int, cert *certifier.Certifier, book *xdb.XDB) *Replica {
	return &Replica{name: name, b: b, total: total, cert: cert, book: book}
}

// Name returns the replica's display name.
func (r *Replica) Name() string { return r.name }

// Consume advances the replica by one message, if one is available.
func (r *Replica) Consume() (Status, error) {
	if int(r.cursor) >= r.total {
		return Done, nil
	}
	msgs, err := r.b.Poll(r.name, r.cursor, 1)
	if err != nil {
		return Blocked, fmt.Errorf("replica %s: poll: %w", r.name, err)
	}
	if len(msgs) == 0 {
		return Blocked, nil
	}

	txn, err := cohort.Decode(msgs[0].Payload)
	if err != nil {
		return Blocked, err
	}
	outcome, err := r.cert.Process(txn.Rec, txn.Ver)
	if err != nil {
		return Blocked, fmt.Errorf("replica %s: process xid=%s ver=%d: %w", r.name, txn.Xid, txn.Ver, err)
	}
	if _, err := r.book.Record(xdb.Decision{Xid: txn.Xid, Outcome: outcome}); err != nil {
		return Blocked, err
	}

	r.cursor++
	if int(r.cursor) >= r.total {
		return Done, nil
	}
	return Advanced, nil
}
