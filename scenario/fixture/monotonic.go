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

package fixture

import (
	"encoding/json"
	"fmt"
	"strings"

	"stride/examiner"
	"stride/havoc/model"
	"stride/scenario/broker"
	"stride/scenario/xdb"
)

// monoCohort bumps its own register, one in-flight candidate at a time: a
// new candidate is only proposed once the previous one's decision has come
// back through the replicator.
type monoCohort struct {
	index     int
	replica   *itemReplica
	cursor    int64
	pending   bool
	remaining int
}

// MonotonicSystem is the shared state of one monotonic model run: register
// i belongs to cohort i, and every installed value of it must be exactly
// one greater than the value it replaces.
type MonotonicSystem struct {
	b          broker.Broker
	cohorts    []*monoCohort
	certifiers []*certPipeline
	xdb        *xdb.XDB
}

func monoInitiatorAction(cohortIndex int) model.Action[MonotonicSystem] {
	return func(s *MonotonicSystem, ctx model.Context) model.Result {
		cohort := s.cohorts[cohortIndex]
		if cohort.remaining == 0 {
			return model.JoinedResult()
		}
		if cohort.pending {
			return model.BlockedResult()
		}

		reg := cohort.index
		key := fmt.Sprintf("reg-%d", reg)
		readvers, snapshot := examiner.Compress([]uint64{cohort.replica.vers[reg]}, cohort.replica.ver)
		env := envelope{
			Kind:     "candidate",
			Xid:      fmt.Sprintf("%d-%d", cohortIndex, cohort.remaining),
			Readset:  []string{key},
			Writeset: []string{key},
			Readvers: readvers,
			Snapshot: snapshot,
			Changes:  []change{{Item: reg, Value: cohort.replica.items[reg] + 1}},
		}
		payload, err := json.Marshal(env)
		if err != nil {
			return model.BreachedResult(err.Error())
		}
		if _, err := s.b.Publish(payload); err != nil {
			return model.BreachedResult(err.Error())
		}

		cohort.pending = true
		cohort.remaining--
		return model.RanResult()
	}
}

func monoReplicatorAction(cohortIndex int) model.Action[MonotonicSystem] {
	return func(s *MonotonicSystem, ctx model.Context) model.Result {
		cohort := s.cohorts[cohortIndex]
		for {
			msgs, err := s.b.Poll(fmt.Sprintf("mono-%d-replicator", cohortIndex), cohort.cursor, 1)
			if err != nil {
				return model.BreachedResult(err.Error())
			}
			if len(msgs) == 0 {
				return model.BlockedResult()
			}

			var env envelope
			if err := json.Unmarshal(msgs[0].Payload, &env); err != nil {
				return model.BreachedResult(err.Error())
			}
			cohort.cursor++

			switch env.Kind {
			case "commit":
				for _, c := range env.Changes {
					prior := cohort.replica.items[c.Item]
					if env.Ver > cohort.replica.vers[c.Item] && c.Value != prior+1 {
						return model.BreachedResult(fmt.Sprintf(
							"register %d skipped: installed=%d incoming=%d cohort=%d", c.Item, prior, c.Value, cohortIndex))
					}
				}
				cohort.replica.installSer(env.Changes, env.Ver)
				if strings.HasPrefix(env.Xid, fmt.Sprintf("%d-", cohortIndex)) {
					cohort.pending = false
				}
				return model.RanResult()
			case "abort":
				if strings.HasPrefix(env.Xid, fmt.Sprintf("%d-", cohortIndex)) {
					cohort.pending = false
				}
				return model.RanResult()
			}
			// candidate messages are skipped; loop to the next message
		}
	}
}

func monoSupervisorAction(totalMsgs int) model.Action[MonotonicSystem] {
	return func(s *MonotonicSystem, ctx model.Context) model.Result {
		for _, c := range s.cohorts {
			if c.remaining > 0 || c.pending || c.cursor < int64(totalMsgs) {
				return model.BlockedResult()
			}
		}
		return model.JoinedResult()
	}
}

// BuildMonotonicModel returns the monotonic register model: numCohorts
// cohorts each bump their own register txnsPerCohort times through
// numCertifiers certifier replicas. Every cohort keeps exactly one
// candidate in flight and only writes its own register, so the model
// breaches if any install would move a register by anything other than +1.
func BuildMonotonicModel(numCohorts, txnsPerCohort, numCertifiers int, name string) *model.Model[MonotonicSystem] {
	totalMsgs := numCohorts * txnsPerCohort * 2

	m := model.New(func() MonotonicSystem {
		cohorts := make([]*monoCohort, numCohorts)
		for i := range cohorts {
			cohorts[i] = &monoCohort{
				index:     i,
				replica:   newItemReplica(make([]int64, numCohorts)),
				remaining: txnsPerCohort,
			}
		}
		certifiers := make([]*certPipeline, numCertifiers)
		for j := range certifiers {
			certifiers[j] = newCertPipeline(SuffixExtent)
		}
		return MonotonicSystem{b: broker.NewRing(4096), cohorts: cohorts, certifiers: certifiers, xdb: xdb.New()}
	}).WithName(name)

	for i := 0; i < numCohorts; i++ {
		m.WithAction(fmt.Sprintf("initiator-%d", i), model.Weak, monoInitiatorAction(i))
		m.WithAction(fmt.Sprintf("replicator-%d", i), model.Weak, monoReplicatorAction(i))
	}
	for j := 0; j < numCertifiers; j++ {
		j := j
		m.WithAction(fmt.Sprintf("certifier-%d", j), model.Weak, certifyAction(j, func(s *MonotonicSystem) (broker.Broker, *certPipeline, *xdb.XDB) {
			return s.b, s.certifiers[j], s.xdb
		}))
	}
	m.WithAction("supervisor", model.Strong, monoSupervisorAction(totalMsgs))

	return m
}
