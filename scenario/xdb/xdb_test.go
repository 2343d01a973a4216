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

package xdb

import (
	"errors"
	"testing"

	"stride/examiner"
)

func TestRecordFirstDecisionIsNew(t *testing.T) {
	x := New()
	isNew, err := x.Record(Decision{Xid: "t1", Outcome: examiner.Outcome{Committed: true, Safepoint: 5, Discord: examiner.Permissive}})
	if err != nil || !isNew {
		t.Fatalf("expected isNew=true err=nil, got isNew=%v err=%v", isNew, err)
	}
	got, ok := x.Get("t1")
	if !ok || got.Safepoint != 5 {
		t.Fatalf("expected recorded decision, got %+v ok=%v", got, ok)
	}
}

func TestRecordAssertiveUpgradesPermissive(t *testing.T) {
	x := New()
	x.Record(Decision{Xid: "t1", Outcome: examiner.Outcome{Committed: true, Safepoint: 5, Discord: examiner.Permissive}})

	isNew, err := x.Record(Decision{Xid: "t1", Outcome: examiner.Outcome{Committed: true, Safepoint: 5, Discord: examiner.Assertive}})
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if isNew {
		t.Fatalf("expected isNew=false for an upgrade of an existing xid")
	}
	got, _ := x.Get("t1")
	if got.Discord != examiner.Assertive {
		t.Fatalf("expected upgraded decision to be Assertive, got %v", got.Discord)
	}
}

func TestRecordTwoMatchingAssertiveIsNotNew(t *testing.T) {
	x := New()
	outcome := examiner.Outcome{Committed: true, Safepoint: 5, Discord: examiner.Assertive}
	x.Record(Decision{Xid: "t1", Outcome: outcome})

	isNew, err := x.Record(Decision{Xid: "t1", Outcome: outcome})
	if err != nil || isNew {
		t.Fatalf("expected isNew=false err=nil for matching assertive decisions, got isNew=%v err=%v", isNew, err)
	}
}

func TestRecordConflictingAssertiveIsError(t *testing.T) {
	x := New()
	x.Record(Decision{Xid: "t1", Outcome: examiner.Outcome{Committed: true, Safepoint: 5, Discord: examiner.Assertive}})

	_, err := x.Record(Decision{Xid: "t1", Outcome: examiner.Outcome{Committed: true, Safepoint: 9, Discord: examiner.Assertive}})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestRecordAssertiveNeverOverriddenByPermissive(t *testing.T) {
	x := New()
	x.Record(Decision{Xid: "t1", Outcome: examiner.Outcome{Committed: true, Safepoint: 5, Discord: examiner.Assertive}})

	isNew, err := x.Record(Decision{Xid: "t1", Outcome: examiner.Outcome{Committed: true, Safepoint: 9, Discord: examiner.Permissive}})
	if err != nil || isNew {
		t.Fatalf("expected isNew=false err=nil, got isNew=%v err=%v", isNew, err)
	}
	got, _ := x.Get("t1")
	if got.Safepoint != 5 || got.Discord != examiner.Assertive {
		t.Fatalf("expected the assertive decision retained unchanged, got %+v", got)
	}
}

func TestRouterOwnerIsStableAcrossCalls(t *testing.T) {
	r := NewRouter([]string{"a", "b", "c"})
	first := r.Owner("xid-123")
	for i := 0; i < 10; i++ {
		if got := r.Owner("xid-123"); got != first {
			t.Fatalf("expected stable owner, got %s then %s", first, got)
		}
	}
}

func TestRouterReplicas(t *testing.T) {
	replicas := []string{"a", "b", "c"}
	r := NewRouter(replicas)
	got := r.Replicas()
	if len(got) != 3 {
		t.Fatalf("expected 3 replicas, got %v", got)
	}
}
