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

package live

import (
	"fmt"
	"testing"

	"stride/examiner"
	"stride/scenario/certifier"
	"stride/scenario/xdb"
)

func writeOnlyCohort(cohort, n int) []Proposal {
	txns := make([]Proposal, n)
	for i := range txns {
		txns[i] = Proposal{
			Xid: fmt.Sprintf("%d-%d", cohort, i),
			Rec: examiner.Record{Writeset: []string{fmt.Sprintf("reg-%d", cohort)}},
		}
	}
	return txns
}

func TestWriteOnlyProposalsAllCommit(t *testing.T) {
	cohorts := [][]Proposal{writeOnlyCohort(0, 10), writeOnlyCohort(1, 10), writeOnlyCohort(2, 10)}
	cert := certifier.New("live", 64, 8, 16)
	book := xdb.New()

	h := New(cohorts, cert, book, 4, nil)
	h.Start()
	result := h.Wait()

	if result.Commits != 30 || result.Aborts != 0 {
		t.Fatalf("expected 30 commits and no aborts, got %+v", result)
	}
	for c := 0; c < 3; c++ {
		for i := 0; i < 10; i++ {
			if _, ok := book.Get(fmt.Sprintf("%d-%d", c, i)); !ok {
				t.Fatalf("expected decision recorded for %d-%d", c, i)
			}
		}
	}
}

func TestEveryProposalGetsExactlyOneDecision(t *testing.T) {
	cohorts := [][]Proposal{writeOnlyCohort(0, 5)}
	cert := certifier.New("live", 16, 2, 4)
	book := xdb.New()

	h := New(cohorts, cert, book, 0, nil)
	h.Start()
	result := h.Wait()

	if result.Commits+result.Aborts != 5 {
		t.Fatalf("expected 5 decisions, got %+v", result)
	}
}
