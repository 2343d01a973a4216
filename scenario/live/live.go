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

// Package live drives scenario participants as real goroutines rather than
// Havoc actions: cohorts produce proposals onto a channel, a single
// sequencer/certifier goroutine consumes them in arrival order, assigns
// versions, certifies, and records decisions. The certifier core keeps its
// single-writer contract — only the sequencer goroutine ever touches the
// Examiner, Suffix, or XDB.
package live

import (
	"sync"

	"go.uber.org/zap"

	"stride/examiner"
	"stride/scenario/certifier"
	"stride/scenario/xdb"
)

// Proposal is one transaction a cohort submits for certification.
type Proposal struct {
	Xid string
	Rec examiner.Record
}

// Result summarises a completed run.
type Result struct {
	Commits int
	Aborts  int
}

// Harness owns the cohort producer goroutines and the sequencer goroutine.
// Construct with New, then Start followed by Wait.
type Harness struct {
	cohorts  [][]Proposal
	cert     *certifier.Certifier
	book     *xdb.XDB
	log      *zap.Logger
	interval int

	proposals chan Proposal
	producers sync.WaitGroup
	done      chan struct{}
	result    Result
}

// New returns a Harness certifying every cohort's proposals through cert,
// recording decisions into book. truncateInterval is how many candidates
// the sequencer certifies between Truncate passes; values below 1 disable
// truncation.
func New(cohorts [][]Proposal, cert *certifier.Certifier, book *xdb.XDB, truncateInterval int, log *zap.Logger) *Harness {
	if log == nil {
		log = zap.NewNop()
	}
	return &Harness{
		cohorts:   cohorts,
		cert:      cert,
		book:      book,
		log:       log,
		interval:  truncateInterval,
		proposals: make(chan Proposal, 64),
		done:      make(chan struct{}),
	}
}

// Start launches one producer goroutine per cohort plus the sequencer
// goroutine. The proposal channel is closed once every producer has
// finished, which in turn ends the sequencer.
func (h *Harness) Start() {
	h.producers.Add(len(h.cohorts))
	for i, txns := range h.cohorts {
		go func(i int, txns []Proposal) {
			defer h.producers.Done()
			for _, p := range txns {
				h.proposals <- p
			}
			h.log.Debug("cohort drained", zap.Int("cohort", i), zap.Int("proposals", len(txns)))
		}(i, txns)
	}
	go func() {
		h.producers.Wait()
		close(h.proposals)
	}()
	go h.sequence()
}

// sequence is the single-writer loop: arrival order is the total order.
func (h *Harness) sequence() {
	defer close(h.done)
	var ver uint64
	for p := range h.proposals {
		ver++
		outcome, err := h.cert.Process(p.Rec, ver)
		if err != nil {
			h.log.Error("process failed", zap.String("xid", p.Xid), zap.Uint64("ver", ver), zap.Error(err))
			continue
		}
		if _, err := h.book.Record(xdb.Decision{Xid: p.Xid, Outcome: outcome}); err != nil {
			h.log.Error("decision conflict", zap.String("xid", p.Xid), zap.Error(err))
			continue
		}
		if outcome.Committed {
			h.result.Commits++
		} else {
			h.result.Aborts++
		}
		h.log.Debug("certified", zap.String("xid", p.Xid), zap.Uint64("ver", ver), zap.Stringer("outcome", outcome))
		if h.interval > 0 && ver%uint64(h.interval) == 0 {
			h.cert.Truncate()
		}
	}
}

// Wait blocks until every proposal has been certified and returns the
// commit/abort tallies.
func (h *Harness) Wait() Result {
	<-h.done
	return h.result
}
