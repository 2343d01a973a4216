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

// Package checker implements Havoc's exhaustive depth-first enumeration of
// interleavings over a havoc/model.Model: every distinct choice of action,
// restricted to actions live and not blocked at the corresponding prefix,
// is explored exactly once.
package checker

import (
	"encoding/binary"
	"math"

	"github.com/cespare/xxhash/v2"
	"go.uber.org/zap"

	"stride/havoc"
	"stride/havoc/model"
)

// Stats summarises one Check() run.
type Stats struct {
	Executed  int // how many schedules were executed
	Completed int // how many schedules ran to completion
	Deepest   int // the deepest traversal (number of stack elements)
	Steps     int // total number of steps undertaken (number of actions executed)
}

// Config controls a Checker's search.
type Config struct {
	MaxDepth int
	Sublevel havoc.Sublevel
}

// DefaultConfig returns the Checker default: unbounded depth, Fine tracing.
func DefaultConfig() Config {
	return Config{MaxDepth: math.MaxInt, Sublevel: havoc.Fine}
}

// WithMaxDepth returns a copy of cfg with MaxDepth set.
func (c Config) WithMaxDepth(n int) Config { c.MaxDepth = n; return c }

// WithSublevel returns a copy of cfg with Sublevel set.
func (c Config) WithSublevel(s havoc.Sublevel) Config { c.Sublevel = s; return c }

// FailResult is returned when an action reports a breached invariant.
type FailResult struct {
	Error string
	Trace *model.Trace
}

// DeadlockResult is returned when every live action is simultaneously
// blocked.
type DeadlockResult struct {
	Trace *model.Trace
}

// Kind distinguishes the three shapes a Check() can return.
type Kind int

const (
	Pass Kind = iota
	Fail
	Deadlock
)

// CheckResult is the outcome of a full Check() run.
type CheckResult struct {
	Kind     Kind
	Stats    Stats
	Fail     FailResult
	Deadlock DeadlockResult
}

type frame struct {
	index           int
	liveSnapshot    map[int]struct{}
	blockedSnapshot map[int]struct{}
}

// Checker is a depth-first interleaving enumerator over a fixed Model.
type Checker[S any] struct {
	model  *model.Model[S]
	config Config
	log    *zap.Logger

	stack       []frame
	depth       int
	live        map[int]struct{}
	blocked     map[int]struct{}
	strongCount int
	trace       *model.Trace
	stats       Stats
}

// New returns a Checker over model with default configuration and a no-op
// logger. Use WithConfig/WithLogger to customise either.
func New[S any](m *model.Model[S]) *Checker[S] {
	return &Checker[S]{model: m, config: DefaultConfig(), log: zap.NewNop()}
}

// WithConfig returns the receiver configured with cfg.
func (c *Checker[S]) WithConfig(cfg Config) *Checker[S] {
	c.config = cfg
	return c
}

// WithLogger attaches a structured logger; nil is treated as a no-op
// logger.
func (c *Checker[S]) WithLogger(log *zap.Logger) *Checker[S] {
	if log == nil {
		log = zap.NewNop()
	}
	c.log = log
	return c
}

type checkContext[S any] struct {
	name    string
	checker *Checker[S]
}

func (ctx checkContext[S]) Name() string { return ctx.name }

// Rand hashes the trace so far — every completed call plus the current
// call's prior draws — so the draw is a pure function of the schedule
// prefix: replaying the same prefix in a later schedule yields the same
// values, which the frame-indexed replay depends on. Each draw is appended
// to the current call, making the whole trace self-describing.
func (ctx checkContext[S]) Rand(limit uint64) uint64 {
	if limit == 0 {
		return 0
	}
	d := xxhash.New()
	var buf [8]byte
	for _, call := range ctx.checker.trace.Calls {
		binary.LittleEndian.PutUint64(buf[:], uint64(call.Action))
		d.Write(buf[:])
		for _, r := range call.Rands {
			binary.LittleEndian.PutUint64(buf[:], r)
			d.Write(buf[:])
		}
	}
	v := d.Sum64() % limit
	ctx.checker.trace.PushRand(v)
	return v
}

func (c *Checker[S]) resetRun() {
	if c.config.Sublevel.Allows(havoc.Fine) {
		c.log.Debug("new schedule", zap.Int("schedule", c.stats.Executed))
	}
	c.stats.Executed++
	c.depth = 0
	c.live = make(map[int]struct{}, c.model.NumActions())
	for i := 0; i < c.model.NumActions(); i++ {
		c.live[i] = struct{}{}
	}
	c.blocked = make(map[int]struct{})
	c.strongCount = c.model.StrongCount()
	c.trace = model.NewTrace()
}

func cloneSet(s map[int]struct{}) map[int]struct{} {
	out := make(map[int]struct{}, len(s))
	for k := range s {
		out[k] = struct{}{}
	}
	return out
}

func (c *Checker[S]) captureStats() {
	executed := len(c.trace.Calls)
	if executed > c.stats.Deepest {
		c.stats.Deepest = executed
	}
	c.stats.Steps += executed
}

// unwind pops exhausted frames, advancing each popped frame's index to the
// next choice that was live and unblocked in its snapshot, and returns a
// freshly set-up state for the next schedule — or ok=false once the whole
// search space has been exhausted.
func (c *Checker[S]) unwind() (*S, bool) {
	c.captureStats()
	for {
		top := &c.stack[c.depth]
		for {
			top.index++
			if top.index >= c.model.NumActions() {
				break
			}
			_, wasLive := top.liveSnapshot[top.index]
			_, wasBlocked := top.blockedSnapshot[top.index]
			if wasLive && !wasBlocked {
				break
			}
		}
		if top.index >= c.model.NumActions() {
			c.stack = c.stack[:c.depth]
			if c.depth > 0 {
				c.depth--
			} else {
				return nil, false
			}
		} else {
			break
		}
	}
	c.resetRun()
	s := c.model.Setup()
	return &s, true
}

// Check runs the exhaustive DFS search to completion.
func (c *Checker[S]) Check() CheckResult {
	c.resetRun()
	state := c.model.Setup()

	for {
		if c.depth >= c.config.MaxDepth {
			// The depth bound is hit with no frame at this depth yet, so
			// the unwind starts from the deepest committed choice.
			if c.depth == 0 {
				return CheckResult{Kind: Pass, Stats: c.stats}
			}
			c.depth--
			st, ok := c.unwind()
			if !ok {
				return CheckResult{Kind: Pass, Stats: c.stats}
			}
			state = *st
			continue
		}
		if c.depth == len(c.stack) {
			c.stack = append(c.stack, frame{
				index:           0,
				liveSnapshot:    cloneSet(c.live),
				blockedSnapshot: cloneSet(c.blocked),
			})
		}
		top := &c.stack[c.depth]

		// Skip past joined and blocked indices; a frame with no runnable
		// index left is exhausted at this depth.
		for top.index < c.model.NumActions() {
			_, isLive := c.live[top.index]
			_, isBlocked := c.blocked[top.index]
			if isLive && !isBlocked {
				break
			}
			top.index++
		}
		if top.index >= c.model.NumActions() {
			st, ok := c.unwind()
			if !ok {
				return CheckResult{Kind: Pass, Stats: c.stats}
			}
			state = *st
			continue
		}

		name := c.model.ActionName(top.index)
		c.trace.Push(top.index)
		if c.config.Sublevel.Allows(havoc.Finest) {
			c.log.Debug("step", zap.Int("depth", c.depth), zap.String("action", name))
		}
		result := c.model.Run(top.index, &state, checkContext[S]{name: name, checker: c})

		if msg, breached := result.IsBreach(); breached {
			c.captureStats()
			return CheckResult{Kind: Fail, Stats: c.stats, Fail: FailResult{Error: msg, Trace: c.trace.Clone()}}
		}

		switch result.Kind() {
		case model.Ran:
			c.depth++
			c.blocked = make(map[int]struct{})
		case model.Blocked:
			c.trace.Pop()
			c.blocked[top.index] = struct{}{}
			if len(c.blocked) == len(c.live) {
				c.captureStats()
				return CheckResult{Kind: Deadlock, Stats: c.stats, Deadlock: DeadlockResult{Trace: c.trace.Clone()}}
			}
			top.index++
		case model.Joined:
			delete(c.live, top.index)
			if c.model.Retention(top.index) == model.Strong {
				c.strongCount--
			}
			if c.strongCount == 0 {
				c.stats.Completed++
				st, ok := c.unwind()
				if !ok {
					return CheckResult{Kind: Pass, Stats: c.stats}
				}
				state = *st
			} else {
				c.depth++
			}
			c.blocked = make(map[int]struct{})
		}
	}
}
