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

package model

import (
	"fmt"
	"strings"
)

// Call records one executed action: which index ran, and the sequence of
// rand() draws it made. Trace is the canonical representation of an
// executed schedule — concatenating its Calls against a fresh state
// replays the schedule deterministically.
type Call struct {
	Action int
	Rands  []uint64
}

// Trace is an ordered sequence of Calls.
type Trace struct {
	Calls []Call
}

// NewTrace returns an empty Trace.
func NewTrace() *Trace {
	return &Trace{}
}

// Push appends a Call for the given action index.
func (t *Trace) Push(action int) {
	t.Calls = append(t.Calls, Call{Action: action})
}

// Peek returns the most recently pushed Call. It panics if the Trace is
// empty, matching the precondition every caller (an action mid-flight)
// already guarantees.
func (t *Trace) Peek() Call {
	return t.Calls[len(t.Calls)-1]
}

// PushRand appends a rand draw to the most recently pushed Call.
func (t *Trace) PushRand(v uint64) {
	i := len(t.Calls) - 1
	t.Calls[i].Rands = append(t.Calls[i].Rands, v)
}

// Pop discards the most recently pushed Call, used when an action turns
// out to be Blocked after having been tentatively recorded.
func (t *Trace) Pop() {
	t.Calls = t.Calls[:len(t.Calls)-1]
}

// Clone returns a deep copy, so a failing trace can be captured before the
// live Trace is mutated by subsequent schedules.
func (t *Trace) Clone() *Trace {
	calls := make([]Call, len(t.Calls))
	for i, c := range t.Calls {
		calls[i] = Call{Action: c.Action, Rands: append([]uint64(nil), c.Rands...)}
	}
	return &Trace{Calls: calls}
}

// PrettyPrint renders the trace as a human-readable sequence of
// (action_name, rand_values...) entries in execution order.
func (t *Trace) PrettyPrint(names func(int) string) string {
	var b strings.Builder
	for i, c := range t.Calls {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "%d: %s", i, names(c.Action))
		for _, r := range c.Rands {
			fmt.Fprintf(&b, " rand=%d", r)
		}
	}
	return b.String()
}
