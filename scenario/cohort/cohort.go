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

// Package cohort models the client side of a scenario: a fixed sequence of
// candidate transactions published to a broker, one per step, so a Havoc
// model can interleave their arrival with other cohorts and with the
// certifier replicas consuming them.
package cohort

import (
	"encoding/json"
	"fmt"

	"stride/examiner"
	"stride/scenario/broker"
)

// Txn is one candidate transaction a Cohort will publish, paired with the
// transaction id an XDB later keys decisions on.
type Txn struct {
	Xid string
	Rec examiner.Record
	Ver uint64
}

// Message is the wire payload published to the broker: a Txn serialised as
// JSON, the simplest encoding that keeps the broker backend-agnostic
// (works unmodified against both Ring and RedisBroker).
type Message struct {
	Xid      string             `json:"xid"`
	Readset  []string           `json:"readset"`
	Writeset []string           `json:"writeset"`
	Readvers []uint64           `json:"readvers,omitempty"`
	Snapshot uint64             `json:"snapshot"`
	Ver      uint64             `json:"ver"`
}

// Encode renders t as its wire Message.
func (t Txn) Encode() ([]byte, error) {
	return json.Marshal(Message{
		Xid:      t.Xid,
		Readset:  t.Rec.Readset,
		Writeset: t.Rec.Writeset,
		Readvers: t.Rec.Readvers,
		Snapshot: t.Rec.Snapshot,
		Ver:      t.Ver,
	})
}

// Decode parses a wire Message back into a Txn.
func Decode(payload []byte) (Txn, error) {
	var m Message
	if err := json.Unmarshal(payload, &m); err != nil {
		return Txn{}, fmt.Errorf("cohort: decode message: %w", err)
	}
	return Txn{
		Xid: m.Xid,
		Rec: examiner.Record{
			Readset:  m.Readset,
			Writeset: m.Writeset,
			Readvers: m.Readvers,
			Snapshot: m.Snapshot,
		},
		Ver: m.Ver,
	}, nil
}

// Cohort publishes a fixed list of transactions, in order, one per Propose
// call.
type Cohort struct {
	name string
	txns []Txn
	next int
	b    broker.Broker
}

// New returns a Cohort that will publish txns, in order, onto b.
func New(name string, txns []Txn, b broker.Broker) *Cohort {
	return &Cohort{name: name, txns: txns, b: b}
}

// Name returns the cohort's display name.
func (c *Cohort) Name() string { return c.name }

// Len reports how many transactions this cohort will publish in total.
func (c *Cohort) Len() int { return len(c.txns) }

// Propose publishes the next pending transaction. joined is true once every
// transaction has been published; a Havoc action wrapping Propose should
// report Joined in that case rather than calling Propose again.
func (c *Cohort) Propose() (joined bool, err error) {
	if c.next >= len(c.txns) {
		return true, nil
	}
	payload, err := c.txns[c.next].Encode()
	if err != nil {
		return false, err
	}
	if _, err := c.b.Publish(payload); err != nil {
		return false, err
	}
	c.next++
	return c.next >= len(c.txns), nil
}
