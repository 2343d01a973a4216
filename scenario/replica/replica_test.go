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

package replica

import (
	"testing"

	"stride/scenario/broker"
	"stride/scenario/certifier"
	"stride/scenario/cohort"
	"stride/scenario/xdb"
)

func TestConsumeAdvancesAndCertifies(t *testing.T) {
	b := broker.NewRing(10)
	txns := []cohort.Txn{
		{Xid: "t1", Ver: 1},
		{Xid: "t2", Ver: 2},
	}
	c := cohort.New("cohort-a", txns, b)
	c.Propose()
	c.Propose()

	r := New("replica-a", b, 2, certifier.New("replica-a", 16, 2, 4), xdb.New())

	status, err := r.Consume()
	if err != nil || status != Advanced {
		t.Fatalf("expected Advanced, got %v err=%v", status, err)
	}
	status, err = r.Consume()
	if err != nil || status != Done {
		t.Fatalf("expected Done, got %v err=%v", status, err)
	}
}

func TestConsumeBlocksWithNothingPublished(t *testing.T) {
	b := broker.NewRing(10)
	r := New("replica-a", b, 1, certifier.New("replica-a", 16, 2, 4), xdb.New())

	status, err := r.Consume()
	if err != nil || status != Blocked {
		t.Fatalf("expected Blocked, got %v err=%v", status, err)
	}
}

func TestConsumeRecordsIntoSharedXDB(t *testing.T) {
	b := broker.NewRing(10)
	c := cohort.New("cohort-a", []cohort.Txn{{Xid: "t1", Ver: 1}}, b)
	c.Propose()

	book := xdb.New()
	r := New("replica-a", b, 1, certifier.New("replica-a", 16, 2, 4), book)
	if _, err := r.Consume(); err != nil {
		t.Fatalf("consume: %v", err)
	}

	if _, ok := book.Get("t1"); !ok {
		t.Fatalf("expected t1 recorded in the shared xdb")
	}
}
