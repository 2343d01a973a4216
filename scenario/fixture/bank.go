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

	"stride/examiner"
	"stride/havoc/model"
	"stride/scenario/broker"
	"stride/scenario/xdb"
)

type bankCohort struct {
	index         int
	replica       *itemReplica
	cursor        int64
	nextRun       int
	txnsPerCohort int
	itemNames     []string
}

// BankSystem is the shared state of one bank model run: a single broker
// multiplexing every cohort's candidates and every certifier's decisions,
// read independently by each cohort and each certifier at its own pace.
type BankSystem struct {
	b            broker.Broker
	cohorts      []*bankCohort
	certifiers   []*certPipeline
	xdb          *xdb.XDB
	expectedTxns int
}

func bankInvariantError(s *BankSystem, cohortIndex int, expectedSum int64) string {
	replica := s.cohorts[cohortIndex].replica
	var sum int64
	for _, v := range replica.items {
		if v < 0 {
			return fmt.Sprintf("account negative: cohort=%d items=%v", cohortIndex, replica.items)
		}
		sum += v
	}
	if sum != expectedSum {
		return fmt.Sprintf("expected=%d computed=%d for cohort=%d items=%v", expectedSum, sum, cohortIndex, replica.items)
	}
	return ""
}

func bankInitiatorAction(cohortIndex int) model.Action[BankSystem] {
	return func(s *BankSystem, ctx model.Context) model.Result {
		cohort := s.cohorts[cohortIndex]
		if cohort.nextRun >= cohort.txnsPerCohort {
			return model.JoinedResult()
		}

		var fromCandidates []int
		for idx, v := range cohort.replica.items {
			if v > 0 {
				fromCandidates = append(fromCandidates, idx)
			}
		}
		if len(fromCandidates) == 0 {
			return model.BlockedResult()
		}
		from := fromCandidates[ctx.Rand(uint64(len(fromCandidates)))]

		var toCandidates []int
		for idx := range cohort.replica.items {
			if idx != from {
				toCandidates = append(toCandidates, idx)
			}
		}
		to := toCandidates[ctx.Rand(uint64(len(toCandidates)))]

		fromVal, toVal := cohort.replica.items[from], cohort.replica.items[to]
		fromVer, toVer := cohort.replica.vers[from], cohort.replica.vers[to]
		xfer := (fromVal + 1) / 2

		readset := []string{cohort.itemNames[from], cohort.itemNames[to]}
		writeset := append([]string(nil), readset...)
		readvers, snapshot := examiner.Compress([]uint64{fromVer, toVer}, cohort.replica.ver)

		env := envelope{
			Kind:     "candidate",
			Xid:      fmt.Sprintf("%d-%d", cohortIndex, cohort.nextRun),
			Readset:  readset,
			Writeset: writeset,
			Readvers: readvers,
			Snapshot: snapshot,
			Changes: []change{
				{Item: from, Value: fromVal - xfer},
				{Item: to, Value: toVal + xfer},
			},
		}
		payload, err := json.Marshal(env)
		if err != nil {
			return model.BreachedResult(err.Error())
		}
		if _, err := s.b.Publish(payload); err != nil {
			return model.BreachedResult(err.Error())
		}

		cohort.nextRun++
		if cohort.nextRun >= cohort.txnsPerCohort {
			return model.JoinedResult()
		}
		return model.RanResult()
	}
}

func bankUpdaterAction(cohortIndex int, expectedSum int64) model.Action[BankSystem] {
	return func(s *BankSystem, ctx model.Context) model.Result {
		cohort := s.cohorts[cohortIndex]
		msgs, err := s.b.Poll(fmt.Sprintf("cohort-%d-updater", cohortIndex), 0, 0)
		if err != nil {
			return model.BreachedResult(err.Error())
		}

		var installable []envelope
		for _, m := range msgs {
			var env envelope
			if err := json.Unmarshal(m.Payload, &env); err != nil {
				return model.BreachedResult(err.Error())
			}
			if env.Kind == "commit" && cohort.replica.canInstallOOO(env.Changes, env.Safepoint, env.Ver) {
				installable = append(installable, env)
			}
		}
		if len(installable) == 0 {
			return model.BlockedResult()
		}

		choice := installable[ctx.Rand(uint64(len(installable)))]
		cohort.replica.installOOO(choice.Changes, choice.Safepoint, choice.Ver)
		if msg := bankInvariantError(s, cohortIndex, expectedSum); msg != "" {
			return model.BreachedResult(msg)
		}
		return model.RanResult()
	}
}

func bankReplicatorAction(cohortIndex int, expectedSum int64) model.Action[BankSystem] {
	return func(s *BankSystem, ctx model.Context) model.Result {
		cohort := s.cohorts[cohortIndex]
		consumedDecision := false
		for {
			msgs, err := s.b.Poll(fmt.Sprintf("cohort-%d-replicator", cohortIndex), cohort.cursor, 1)
			if err != nil {
				return model.BreachedResult(err.Error())
			}
			if len(msgs) == 0 {
				if consumedDecision {
					return model.RanResult()
				}
				return model.BlockedResult()
			}

			var env envelope
			if err := json.Unmarshal(msgs[0].Payload, &env); err != nil {
				return model.BreachedResult(err.Error())
			}
			cohort.cursor++

			switch env.Kind {
			case "commit":
				cohort.replica.installSer(env.Changes, env.Ver)
				if msg := bankInvariantError(s, cohortIndex, expectedSum); msg != "" {
					return model.BreachedResult(msg)
				}
				return model.RanResult()
			case "abort":
				return model.RanResult()
			}
			// candidate messages are skipped; loop to the next message
		}
	}
}

func bankSupervisorAction(expectedTotal int) model.Action[BankSystem] {
	return func(s *BankSystem, ctx model.Context) model.Result {
		finished := 0
		for _, c := range s.cohorts {
			if c.cursor >= int64(expectedTotal*2) {
				finished++
			}
		}
		if finished == len(s.cohorts) {
			return model.JoinedResult()
		}
		return model.BlockedResult()
	}
}

// BuildBankModel returns the bank transfer model: numCohorts cohorts each
// issue txnsPerCohort transfers among len(values) accounts seeded with
// values, certified by numCertifiers independent replicas. The model
// breaches if any cohort's replicated view of the accounts ever shows a
// negative balance or a sum other than the opening total.
func BuildBankModel(values []int64, numCohorts, txnsPerCohort, numCertifiers int, name string) *model.Model[BankSystem] {
	var expectedSum int64
	for _, v := range values {
		expectedSum += v
	}
	expectedTotal := numCohorts * txnsPerCohort

	m := model.New(func() BankSystem {
		itemNames := make([]string, len(values))
		for i := range values {
			itemNames[i] = fmt.Sprintf("item-%d", i)
		}
		b := broker.NewRing(4096)
		cohorts := make([]*bankCohort, numCohorts)
		for i := range cohorts {
			cohorts[i] = &bankCohort{
				index:         i,
				replica:       newItemReplica(values),
				txnsPerCohort: txnsPerCohort,
				itemNames:     itemNames,
			}
		}
		certifiers := make([]*certPipeline, numCertifiers)
		for j := range certifiers {
			certifiers[j] = newCertPipeline(SuffixExtent)
		}
		return BankSystem{b: b, cohorts: cohorts, certifiers: certifiers, xdb: xdb.New(), expectedTxns: expectedTotal}
	}).WithName(name)

	for i := 0; i < numCohorts; i++ {
		m.WithAction(fmt.Sprintf("initiator-%d", i), model.Weak, bankInitiatorAction(i))
		m.WithAction(fmt.Sprintf("updater-%d", i), model.Weak, bankUpdaterAction(i, expectedSum))
		m.WithAction(fmt.Sprintf("replicator-%d", i), model.Weak, bankReplicatorAction(i, expectedSum))
	}
	for j := 0; j < numCertifiers; j++ {
		j := j
		m.WithAction(fmt.Sprintf("certifier-%d", j), model.Weak, certifyAction(j, func(s *BankSystem) (broker.Broker, *certPipeline, *xdb.XDB) {
			return s.b, s.certifiers[j], s.xdb
		}))
	}
	m.WithAction("supervisor", model.Strong, bankSupervisorAction(expectedTotal))

	return m
}
