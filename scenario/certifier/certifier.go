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

// Package certifier wires an examiner.Examiner to a suffix.Suffix the way a
// real STRIDE replica would: each candidate is compressed, appended to the
// suffix, assessed by the examiner, and the suffix slot is marked decided
// once the outcome is known. Periodic truncation feeds decided entries back
// to the examiner as Discard calls, bounding both structures' memory.
package certifier

import (
	"github.com/prometheus/client_golang/prometheus"

	"stride/examiner"
	"stride/suffix"
)

var (
	commitsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "stride_certifier_commits_total",
		Help: "Total candidates certified as commit, labelled by discord.",
	}, []string{"discord"})
	abortsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "stride_certifier_aborts_total",
		Help: "Total candidates certified as abort, labelled by reason.",
	}, []string{"reason"})
)

func init() {
	prometheus.MustRegister(commitsTotal, abortsTotal)
}

// Certifier is a single replica's certification pipeline: one Examiner, one
// Suffix, moving in lockstep.
type Certifier struct {
	name    string
	ex      *examiner.Examiner
	sfx     *suffix.Suffix
	minExt  int
	maxExt  int
}

// New returns a Certifier named name, with a Suffix of the given initial
// capacity. minExtent/maxExtent bound Truncate the way Config.suffix_extent
// bounds the teacher's background commit cadence.
func New(name string, capacity, minExtent, maxExtent int) *Certifier {
	return &Certifier{
		name:   name,
		ex:     examiner.New(),
		sfx:    suffix.New(capacity),
		minExt: minExtent,
		maxExt: maxExtent,
	}
}

// Process certifies one candidate: compresses its readvers against its
// snapshot (restoring the original's Record.Compress pipeline step),
// appends it to the suffix, assesses it, marks the suffix slot decided,
// and records the outcome in the corresponding Prometheus counter.
func (c *Certifier) Process(rec examiner.Record, ver uint64) (examiner.Outcome, error) {
	rec.Readvers, rec.Snapshot = examiner.Compress(rec.Readvers, rec.Snapshot)

	if _, err := c.sfx.Append(rec.Readset, rec.Writeset, ver); err != nil {
		return examiner.Outcome{}, err
	}

	outcome, err := c.ex.Assess(examiner.Candidate{Rec: rec, Ver: ver})
	if err != nil {
		return examiner.Outcome{}, err
	}

	if _, err := c.sfx.Decide(ver); err != nil {
		return examiner.Outcome{}, err
	}

	if outcome.Committed {
		commitsTotal.WithLabelValues(outcome.Discord.String()).Inc()
	} else {
		abortsTotal.WithLabelValues(outcome.Reason.String()).Inc()
	}
	return outcome, nil
}

// Truncate releases decided suffix entries back to the examiner, bounding
// both structures' memory the way the teacher's eviction worker bounds
// Store's memory.
func (c *Certifier) Truncate() int {
	removed := c.sfx.Truncate(c.minExt, c.maxExt)
	for _, entry := range removed {
		_ = c.ex.Discard(entry)
	}
	return len(removed)
}

// Name returns the certifier's display name.
func (c *Certifier) Name() string { return c.name }

// Base reports the examiner's current base version.
func (c *Certifier) Base() (uint64, bool) { return c.ex.Base() }
