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

package examiner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stride/suffix"
)

func learn(t *testing.T, e *Examiner, readset, writeset []string, readvers []uint64, snapshot, ver uint64) {
	t.Helper()
	if err := e.Learn(Candidate{Rec: Record{Readset: readset, Writeset: writeset, Readvers: readvers, Snapshot: snapshot}, Ver: ver}); err != nil {
		t.Fatalf("learn ver=%d: %v", ver, err)
	}
}

// TestPaperExample1 is S1 (spec §8): write-only candidate commits via R1,
// its safepoint raised to the largest displaced read version.
func TestPaperExample1(t *testing.T) {
	e := New()
	learn(t, e, []string{"x", "y"}, []string{"x", "y"}, nil, 0, 4)
	learn(t, e, []string{"x", "y"}, nil, []uint64{4}, 0, 5)

	outcome, err := e.Assess(Candidate{Rec: Record{Writeset: []string{"x", "y"}, Snapshot: 4}, Ver: 6})
	require.NoError(t, err)
	assert.Equal(t, Outcome{Committed: true, Safepoint: 5, Discord: Assertive}, outcome)
}

// TestPaperExample2 is S2: a snapshot older than base-1 aborts Staleness.
func TestPaperExample2(t *testing.T) {
	e := New()
	learn(t, e, []string{"x", "y"}, []string{"x", "y"}, nil, 11, 12)
	learn(t, e, []string{"x", "y"}, nil, nil, 12, 13)
	learn(t, e, nil, []string{"x", "y"}, nil, 5, 14)

	outcome, err := e.Assess(Candidate{Rec: Record{Readset: []string{"v", "w"}, Writeset: []string{"z"}, Snapshot: 10}, Ver: 15})
	require.NoError(t, err)
	assert.Equal(t, Outcome{Reason: Staleness(), Discord: Permissive}, outcome)
}

// TestPaperExample3 is S3: a stale read relative to an unobserved newer
// write aborts Antidependency.
func TestPaperExample3(t *testing.T) {
	e := New()
	learn(t, e, []string{"x", "y"}, nil, nil, 19, 24)
	learn(t, e, []string{"x", "y"}, []string{"x", "y"}, nil, 22, 25)
	learn(t, e, nil, []string{"y", "z"}, nil, 25, 26)
	learn(t, e, []string{"v", "w"}, nil, nil, 26, 27)

	outcome, err := e.Assess(Candidate{Rec: Record{
		Readset: []string{"x", "z"}, Writeset: []string{"z"}, Readvers: []uint64{25}, Snapshot: 23,
	}, Ver: 28})
	require.NoError(t, err)
	assert.Equal(t, Outcome{Reason: Antidependency(26), Discord: Assertive}, outcome)
}

// TestPaperExample4 is S4: a candidate with a stale-but-covered read
// commits Permissive.
func TestPaperExample4(t *testing.T) {
	e := New()
	learn(t, e, []string{"x", "y"}, nil, nil, 23, 30)
	learn(t, e, []string{"x", "y"}, []string{"w", "x"}, nil, 24, 31)
	learn(t, e, nil, []string{"y"}, nil, 25, 32)
	learn(t, e, []string{"v", "z"}, []string{"y"}, nil, 26, 33)
	learn(t, e, nil, []string{"w"}, nil, 31, 34)

	outcome, err := e.Assess(Candidate{Rec: Record{
		Readset: []string{"x", "z"}, Writeset: []string{"z"}, Snapshot: 31,
	}, Ver: 35})
	require.NoError(t, err)
	assert.Equal(t, Outcome{Committed: true, Safepoint: 33, Discord: Permissive}, outcome)
}

func TestAssessZeroVersionIsInvalid(t *testing.T) {
	e := New()
	if _, err := e.Assess(Candidate{Ver: 0}); err != ErrInvalidVersion {
		t.Fatalf("expected ErrInvalidVersion, got %v", err)
	}
}

func TestLearnZeroVersionIsInvalid(t *testing.T) {
	e := New()
	if err := e.Learn(Candidate{Ver: 0}); err != ErrInvalidVersion {
		t.Fatalf("expected ErrInvalidVersion, got %v", err)
	}
}

func TestDiscardRequiresInitialization(t *testing.T) {
	e := New()
	entry := suffix.TruncatedEntry{Ver: 1}
	if err := e.Discard(entry); err != ErrUninitialized {
		t.Fatalf("expected ErrUninitialized, got %v", err)
	}
}

func TestBaseAdvancesOnDiscard(t *testing.T) {
	e := New()
	learn(t, e, []string{"x"}, []string{"x"}, nil, 0, 4)
	base, ok := e.Base()
	if !ok || base != 4 {
		t.Fatalf("expected base=4, got %d ok=%v", base, ok)
	}
	entry := suffix.TruncatedEntry{Ver: 4, Entry: suffix.Entry{Readset: []string{"x"}, Writeset: []string{"x"}}}
	if err := e.Discard(entry); err != nil {
		t.Fatalf("discard: %v", err)
	}
	base, ok = e.Base()
	if !ok || base != 5 {
		t.Fatalf("expected base=5 after discard, got %d ok=%v", base, ok)
	}
}

func TestCompressFoldsMinimumReadverIntoSnapshot(t *testing.T) {
	readvers, snapshot := Compress([]uint64{9, 4, 7}, 3)
	if snapshot != 4 {
		t.Fatalf("expected snapshot folded to min readver 4, got %d", snapshot)
	}
	for _, v := range readvers {
		if v <= snapshot {
			t.Fatalf("expected every surviving readver > snapshot, got %d <= %d", v, snapshot)
		}
	}
}

func TestCompressIsIdempotent(t *testing.T) {
	readvers, snapshot := Compress([]uint64{9, 4, 7}, 3)
	readvers2, snapshot2 := Compress(readvers, snapshot)
	if snapshot != snapshot2 {
		t.Fatalf("expected idempotent snapshot, got %d then %d", snapshot, snapshot2)
	}
	if len(readvers) != len(readvers2) {
		t.Fatalf("expected idempotent readvers, got %v then %v", readvers, readvers2)
	}
}
