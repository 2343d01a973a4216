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

// Package sim implements Havoc's seeded random exploration of a
// havoc/model.Model: rather than enumerate every interleaving, it samples a
// bounded number of schedules, each reproducible from its seed, and reports
// the first deadlock or invariant breach it encounters.
package sim

import (
	"math"
	"math/rand"

	"go.uber.org/zap"

	"stride/havoc"
	"stride/havoc/model"
)

// Stats summarises one Check() call.
type Stats struct {
	Executed  int // number of schedules sampled
	Completed int // number of schedules that ran to completion
	Deepest   int // deepest schedule length seen (number of actions run)
	Steps     int // total number of steps undertaken across all schedules
}

// Config controls a Sim's search.
type Config struct {
	MaxDepth     int
	MaxSchedules int
	Sublevel     havoc.Sublevel
}

// DefaultConfig returns the Sim default: unbounded depth, 1000 schedules,
// Fine tracing.
func DefaultConfig() Config {
	return Config{MaxDepth: math.MaxInt, MaxSchedules: 1000, Sublevel: havoc.Fine}
}

// WithMaxDepth returns a copy of cfg with MaxDepth set.
func (c Config) WithMaxDepth(n int) Config { c.MaxDepth = n; return c }

// WithMaxSchedules returns a copy of cfg with MaxSchedules set.
func (c Config) WithMaxSchedules(n int) Config { c.MaxSchedules = n; return c }

// WithSublevel returns a copy of cfg with Sublevel set.
func (c Config) WithSublevel(s havoc.Sublevel) Config { c.Sublevel = s; return c }

// FailResult is returned when a sampled schedule reports a breached
// invariant.
type FailResult struct {
	Schedule int
	Error    string
	Trace    *model.Trace
}

// DeadlockResult is returned when a sampled schedule reaches a state where
// every live action is simultaneously blocked.
type DeadlockResult struct {
	Schedule int
	Trace    *model.Trace
}

// Kind distinguishes the three shapes a Check() can return.
type Kind int

const (
	Pass Kind = iota
	Fail
	Deadlock
)

// SimResult is the outcome of a full Check().
type SimResult struct {
	Kind     Kind
	Stats    Stats
	Fail     FailResult
	Deadlock DeadlockResult
}

// Sim is a seeded random explorer over a fixed Model.
type Sim[S any] struct {
	model  *model.Model[S]
	config Config
	seed   uint64
	log    *zap.Logger
}

// New returns a Sim over model with default configuration, a zero seed, and
// a no-op logger. Use WithSeed/WithConfig/WithLogger to customise.
func New[S any](m *model.Model[S]) *Sim[S] {
	return &Sim[S]{model: m, config: DefaultConfig(), log: zap.NewNop()}
}

// WithConfig returns the receiver configured with cfg.
func (s *Sim[S]) WithConfig(cfg Config) *Sim[S] {
	s.config = cfg
	return s
}

// WithSeed returns the receiver seeded with seed; each of the
// config.MaxSchedules schedules derives its own PRNG from seed+k, so the
// whole run is reproducible from seed alone.
func (s *Sim[S]) WithSeed(seed uint64) *Sim[S] {
	s.seed = seed
	return s
}

// WithLogger attaches a structured logger; nil is treated as a no-op
// logger.
func (s *Sim[S]) WithLogger(log *zap.Logger) *Sim[S] {
	if log == nil {
		log = zap.NewNop()
	}
	s.log = log
	return s
}

type simContext struct {
	name  string
	rng   *rand.Rand
	trace *model.Trace
}

func (ctx simContext) Name() string { return ctx.name }

func (ctx simContext) Rand(limit uint64) uint64 {
	if limit == 0 {
		ctx.trace.PushRand(0)
		return 0
	}
	v := uint64(ctx.rng.Int63n(int64(limit)))
	ctx.trace.PushRand(v)
	return v
}

// Check samples up to config.MaxSchedules schedules, each seeded
// deterministically from the Sim's seed, and returns the first failure or
// deadlock found, or Pass if none were.
func (s *Sim[S]) Check() SimResult {
	var stats Stats

	for k := 0; k < s.config.MaxSchedules; k++ {
		stats.Executed++
		scheduleSeed := s.seed + uint64(k)
		rng := rand.New(rand.NewSource(int64(scheduleSeed)))

		if s.config.Sublevel.Allows(havoc.Fine) {
			s.log.Debug("new schedule", zap.Int("schedule", k), zap.Uint64("seed", scheduleSeed))
		}

		trace := model.NewTrace()
		state := s.model.Setup()
		live := make(map[int]struct{}, s.model.NumActions())
		for i := 0; i < s.model.NumActions(); i++ {
			live[i] = struct{}{}
		}
		blocked := make(map[int]struct{})
		strongCount := s.model.StrongCount()

		depth := 0
		completed := false
		for depth < s.config.MaxDepth {
			if len(live) == 0 {
				break
			}
			candidates := make([]int, 0, len(live))
			for i := 0; i < s.model.NumActions(); i++ {
				if _, isLive := live[i]; !isLive {
					continue
				}
				if _, isBlocked := blocked[i]; !isBlocked {
					candidates = append(candidates, i)
				}
			}
			if len(candidates) == 0 {
				if stats.Deepest < depth {
					stats.Deepest = depth
				}
				stats.Steps += depth
				return SimResult{Kind: Deadlock, Stats: stats, Deadlock: DeadlockResult{Schedule: k, Trace: trace}}
			}

			choice := candidates[rng.Intn(len(candidates))]
			name := s.model.ActionName(choice)
			trace.Push(choice)
			ctx := simContext{name: name, rng: rng, trace: trace}
			result := s.model.Run(choice, &state, ctx)

			if msg, breached := result.IsBreach(); breached {
				if stats.Deepest < depth+1 {
					stats.Deepest = depth + 1
				}
				stats.Steps += depth + 1
				return SimResult{Kind: Fail, Stats: stats, Fail: FailResult{Schedule: k, Error: msg, Trace: trace}}
			}

			switch result.Kind() {
			case model.Ran:
				depth++
				blocked = make(map[int]struct{})
			case model.Blocked:
				trace.Pop()
				blocked[choice] = struct{}{}
			case model.Joined:
				delete(live, choice)
				if s.model.Retention(choice) == model.Strong {
					strongCount--
				}
				depth++
				blocked = make(map[int]struct{})
				if strongCount == 0 {
					stats.Completed++
					completed = true
				}
			}
			if completed {
				break
			}
		}

		if stats.Deepest < depth {
			stats.Deepest = depth
		}
		stats.Steps += depth
	}

	return SimResult{Kind: Pass, Stats: stats}
}
