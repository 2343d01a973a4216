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

package fxmap

import (
	"fmt"
	"testing"
)

func TestSetAndGet(t *testing.T) {
	m := New()
	m.Set("a", 1)
	m.Set("b", 2)

	if v, ok := m.Get("a"); !ok || v != 1 {
		t.Fatalf("expected a=1, got %d ok=%v", v, ok)
	}
	if v, ok := m.Get("b"); !ok || v != 2 {
		t.Fatalf("expected b=2, got %d ok=%v", v, ok)
	}
	if _, ok := m.Get("c"); ok {
		t.Fatalf("expected c to be absent")
	}
}

func TestSetOverwrites(t *testing.T) {
	m := New()
	m.Set("a", 1)
	m.Set("a", 2)
	if v, _ := m.Get("a"); v != 2 {
		t.Fatalf("expected overwritten value 2, got %d", v)
	}
	if m.Len() != 1 {
		t.Fatalf("expected single entry after overwrite, got %d", m.Len())
	}
}

func TestGrowPreservesAllEntries(t *testing.T) {
	m := New()
	const n = 200
	for i := 0; i < n; i++ {
		m.Set(fmt.Sprintf("key-%d", i), uint64(i))
	}
	if m.Len() != n {
		t.Fatalf("expected %d entries, got %d", n, m.Len())
	}
	for i := 0; i < n; i++ {
		key := fmt.Sprintf("key-%d", i)
		v, ok := m.Get(key)
		if !ok || v != uint64(i) {
			t.Fatalf("expected %s=%d, got %d ok=%v", key, i, v, ok)
		}
	}
}

func TestDeleteIfRemovesOnMatch(t *testing.T) {
	m := New()
	m.Set("a", 5)
	removed, present := m.DeleteIf("a", 5)
	if !removed || !present {
		t.Fatalf("expected removed=true present=true, got removed=%v present=%v", removed, present)
	}
	if _, ok := m.Get("a"); ok {
		t.Fatalf("expected a removed")
	}
}

func TestDeleteIfLeavesSupersededEntryAlone(t *testing.T) {
	m := New()
	m.Set("a", 5)
	m.Set("a", 9)
	removed, present := m.DeleteIf("a", 5)
	if removed || !present {
		t.Fatalf("expected removed=false present=true for superseded value, got removed=%v present=%v", removed, present)
	}
	if v, ok := m.Get("a"); !ok || v != 9 {
		t.Fatalf("expected a to still be 9, got %d ok=%v", v, ok)
	}
}

func TestDeleteIfAbsentKey(t *testing.T) {
	m := New()
	removed, present := m.DeleteIf("missing", 0)
	if removed || present {
		t.Fatalf("expected removed=false present=false, got removed=%v present=%v", removed, present)
	}
}

func TestDeleteRepairsProbeChain(t *testing.T) {
	m := New()
	// Force several entries into the same initial bucket's probe chain by
	// inserting enough keys that collisions are all but guaranteed, then
	// delete one from the middle and confirm every surviving key is still
	// reachable.
	const n = 50
	keys := make([]string, n)
	for i := 0; i < n; i++ {
		keys[i] = fmt.Sprintf("k%d", i)
		m.Set(keys[i], uint64(i))
	}
	mid := keys[n/2]
	m.DeleteIf(mid, uint64(n/2))

	for i, key := range keys {
		if key == mid {
			if _, ok := m.Get(key); ok {
				t.Fatalf("expected %s removed", key)
			}
			continue
		}
		v, ok := m.Get(key)
		if !ok || v != uint64(i) {
			t.Fatalf("expected %s=%d to survive deletion of a neighbor, got %d ok=%v", key, i, v, ok)
		}
	}
}
