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

// stride-check builds the bank scenario model and runs it under the
// exhaustive DFS Checker (-mode=dfs) or the seeded random Sim (-mode=sim),
// reporting the resulting CheckResult/SimResult; -mode=live instead runs a
// write-only register workload through the scenario/live goroutine harness
// and reports its commit/abort tallies. It optionally exposes the Prometheus counters the
// scenario/certifier package registers (commits/aborts) on /metrics, the
// same opt-in shape cmd/ratelimiter-api used for its own counters.
package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"stride/examiner"
	"stride/havoc/checker"
	"stride/havoc/sim"
	"stride/scenario/certifier"
	"stride/scenario/fixture"
	"stride/scenario/live"
	"stride/scenario/xdb"
)

func main() {
	mode := flag.String("mode", "dfs", "run mode: dfs (exhaustive), sim (seeded random), or live (real goroutines)")
	cohorts := flag.Int("cohorts", 2, "number of bank cohorts")
	txnsPerCohort := flag.Int("txns", 2, "transactions per cohort")
	certifiers := flag.Int("certifiers", 2, "number of certifier replicas")
	maxSchedules := flag.Int("max_schedules", 1000, "sim: number of random schedules to sample, scaled by SCALE")
	metricsAddr := flag.String("metrics_addr", os.Getenv("STRIDE_METRICS_ADDR"), "if non-empty, serve Prometheus /metrics on this address")
	flag.Parse()

	scale := envInt("SCALE", 1)
	seed := envUint64("SEED", 1)

	if *metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		srv := &http.Server{Addr: *metricsAddr, Handler: mux}
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("stride-check: metrics server: %v", err)
			}
		}()
		defer srv.Close()
	}

	values := []int64{100, 100, 100}
	m := fixture.BuildBankModel(values, *cohorts, *txnsPerCohort, *certifiers, "bank")

	switch *mode {
	case "dfs":
		result := checker.New(m).WithConfig(checker.DefaultConfig()).Check()
		fmt.Printf("stride-check dfs: kind=%v stats=%+v\n", result.Kind, result.Stats)
		if result.Kind == checker.Fail {
			fmt.Println("breach:", result.Fail.Error)
			fmt.Println(result.Fail.Trace.PrettyPrint(m.ActionName))
			os.Exit(1)
		}
		if result.Kind == checker.Deadlock {
			fmt.Println("deadlock")
			fmt.Println(result.Deadlock.Trace.PrettyPrint(m.ActionName))
			os.Exit(1)
		}
	case "sim":
		cfg := sim.DefaultConfig().WithMaxSchedules(*maxSchedules * scale)
		result := sim.New(m).WithSeed(seed).WithConfig(cfg).Check()
		fmt.Printf("stride-check sim: kind=%v stats=%+v\n", result.Kind, result.Stats)
		if result.Kind == sim.Fail {
			fmt.Printf("breach at schedule %d: %s\n", result.Fail.Schedule, result.Fail.Error)
			fmt.Println(result.Fail.Trace.PrettyPrint(m.ActionName))
			os.Exit(1)
		}
		if result.Kind == sim.Deadlock {
			fmt.Printf("deadlock at schedule %d\n", result.Deadlock.Schedule)
			fmt.Println(result.Deadlock.Trace.PrettyPrint(m.ActionName))
			os.Exit(1)
		}
	case "live":
		workload := make([][]live.Proposal, *cohorts)
		for c := range workload {
			txns := make([]live.Proposal, *txnsPerCohort*scale)
			for i := range txns {
				xid := uuid.New()
				txns[i] = live.Proposal{
					Xid: xid.String(),
					Rec: examiner.Record{Xid: xid, Writeset: []string{fmt.Sprintf("reg-%d", c)}},
				}
			}
			workload[c] = txns
		}
		h := live.New(workload, certifier.New("live", 256, 32, 64), xdb.New(), 16, nil)
		h.Start()
		result := h.Wait()
		fmt.Printf("stride-check live: commits=%d aborts=%d\n", result.Commits, result.Aborts)
	default:
		log.Fatalf("stride-check: unknown -mode %q (want dfs, sim, or live)", *mode)
	}
}

func envInt(name string, def int) int {
	v := os.Getenv(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func envUint64(name string, def uint64) uint64 {
	v := os.Getenv(name)
	if v == "" {
		return def
	}
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return def
	}
	return n
}
