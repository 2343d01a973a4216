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

// Package sortedvec provides an ordered sequence of comparable values
// supporting binary-search membership, as the examiner uses to test
// readver membership during certification without pulling in a
// general-purpose tree.
package sortedvec

import (
	"cmp"
	"slices"
)

// SortedVec is an ordered slice of T, kept sorted on every Insert. The zero
// value is an empty SortedVec ready to use.
type SortedVec[T cmp.Ordered] struct {
	items []T
}

// New returns an empty SortedVec with the given initial backing capacity.
func New[T cmp.Ordered](capacity int) *SortedVec[T] {
	return &SortedVec[T]{items: make([]T, 0, capacity)}
}

// From builds a SortedVec from an existing slice, sorting a copy of it.
func From[T cmp.Ordered](v []T) *SortedVec[T] {
	items := slices.Clone(v)
	slices.Sort(items)
	return &SortedVec[T]{items: items}
}

// Insert places item at its sorted position, duplicates allowed.
func (s *SortedVec[T]) Insert(item T) {
	pos, _ := slices.BinarySearch(s.items, item)
	s.items = slices.Insert(s.items, pos, item)
}

// Contains reports whether item is present.
func (s *SortedVec[T]) Contains(item T) bool {
	_, found := slices.BinarySearch(s.items, item)
	return found
}

// Len reports the number of elements.
func (s *SortedVec[T]) Len() int {
	return len(s.items)
}

// Items returns the underlying sorted slice. Callers must not mutate it.
func (s *SortedVec[T]) Items() []T {
	return s.items
}
