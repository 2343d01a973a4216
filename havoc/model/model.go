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

// Package model declares the shape a concurrent design must take to be
// explored by havoc/checker or havoc/sim: a setup function producing a
// fresh state value, and an ordered list of named actions — functions from
// that state (plus a Context) to an ActionResult.
package model

// ActionResult is the outcome of running one action once.
type ActionResult int

const (
	// Ran means the action made progress; the scheduler may continue with
	// it or move on to others.
	Ran ActionResult = iota
	// Blocked means the action is temporarily unable to proceed in this
	// state; the scheduler will not retry it until another action runs.
	Blocked
	// Joined means the action has terminated in this schedule.
	Joined
)

// Breach names the message of a violated invariant. It is not an
// ActionResult and Result does not embed it: a breached Result (built with
// BreachedResult) carries its message directly. A breach is never an error
// in the Go sense — it is the expected mechanism by which a model reports a
// violated invariant, and both Checker and Sim turn a breached Result into
// a Fail result without ever panicking or returning a Go error.
type Breach struct {
	Message string
}

// Result wraps an ActionResult together with an optional Breach. Actions
// return Result rather than a bare ActionResult so a breach can carry its
// message; construct with RanResult, BlockedResult, JoinedResult, or
// BreachedResult.
type Result struct {
	kind     ActionResult
	breach   string
	breached bool
}

func (r Result) Kind() ActionResult { return r.kind }
func (r Result) IsBreach() (string, bool) { return r.breach, r.breached }

// RanResult reports that the action made progress.
func RanResult() Result { return Result{kind: Ran} }

// BlockedResult reports that the action could not proceed.
func BlockedResult() Result { return Result{kind: Blocked} }

// JoinedResult reports that the action has terminated.
func JoinedResult() Result { return Result{kind: Joined} }

// BreachedResult reports an invariant violation with the given message.
func BreachedResult(message string) Result {
	return Result{breach: message, breached: true}
}

// Retention controls whether an action must Join for a schedule to
// complete successfully (Strong) or may remain live forever (Weak).
type Retention int

const (
	Strong Retention = iota
	Weak
)

// Context is handed to an action on every invocation. It exposes the
// action's own name and a source of schedule-deterministic randomness: two
// calls with the same Trace prefix produce the same rand draws, so a
// recorded schedule replays bit-for-bit.
type Context interface {
	Name() string
	Rand(limit uint64) uint64
}

// Action is a single step function over shared state S.
type Action[S any] func(state *S, ctx Context) Result

type actionEntry[S any] struct {
	name      string
	retention Retention
	action    Action[S]
}

// Model owns a setup function producing state S and an ordered list of
// named actions. Models are immutable once built via Action/WithAction and
// are shared (read-only) by every Checker/Sim run over them.
type Model[S any] struct {
	setup   func() S
	actions []actionEntry[S]
	name    string
}

// New returns a Model whose state is produced fresh by setup for every
// schedule.
func New[S any](setup func() S) *Model[S] {
	return &Model[S]{setup: setup}
}

// WithName attaches a display name to the model, for log lines and CLI
// output.
func (m *Model[S]) WithName(name string) *Model[S] {
	m.name = name
	return m
}

// Name returns the model's display name, or "" if unset.
func (m *Model[S]) Name() string {
	return m.name
}

// Action registers a named, retention-tagged action.
func (m *Model[S]) Action(name string, retention Retention, action Action[S]) {
	m.actions = append(m.actions, actionEntry[S]{name: name, retention: retention, action: action})
}

// WithAction is the fluent form of Action, for chained model construction.
func (m *Model[S]) WithAction(name string, retention Retention, action Action[S]) *Model[S] {
	m.Action(name, retention, action)
	return m
}

// Setup produces a fresh state value.
func (m *Model[S]) Setup() S {
	return m.setup()
}

// NumActions reports the number of registered actions.
func (m *Model[S]) NumActions() int {
	return len(m.actions)
}

// ActionName returns the display name of the action at index i.
func (m *Model[S]) ActionName(i int) string {
	return m.actions[i].name
}

// Retention returns the retention of the action at index i.
func (m *Model[S]) Retention(i int) Retention {
	return m.actions[i].retention
}

// Run invokes the action at index i against state with the given Context.
func (m *Model[S]) Run(i int, state *S, ctx Context) Result {
	return m.actions[i].action(state, ctx)
}

// StrongCount reports how many registered actions are Strong.
func (m *Model[S]) StrongCount() int {
	n := 0
	for _, a := range m.actions {
		if a.retention == Strong {
			n++
		}
	}
	return n
}
