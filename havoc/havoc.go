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

// Package havoc is the general-purpose concurrency model checker: it
// schedules user-supplied actions (see havoc/model) over shared state,
// either exhaustively (havoc/checker) or by random simulation
// (havoc/sim), checking for deadlock and invariant breaches.
package havoc

// Sublevel controls how much tracing havoc/checker and havoc/sim emit.
// The levels are totally ordered: Finer allows everything Fine allows,
// and Finest allows everything Finer allows.
type Sublevel int

const (
	Off Sublevel = iota
	Fine
	Finer
	Finest
)

// Allows reports whether logging at want is permitted under sublevel s.
func (s Sublevel) Allows(want Sublevel) bool {
	return s >= want
}

func (s Sublevel) String() string {
	switch s {
	case Off:
		return "off"
	case Fine:
		return "fine"
	case Finer:
		return "finer"
	case Finest:
		return "finest"
	default:
		return "unknown"
	}
}
