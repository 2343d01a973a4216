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
	"testing"

	"stride/havoc/checker"
	"stride/havoc/sim"
)

func TestDFSBank2x1x1(t *testing.T) {
	m := BuildBankModel([]int64{101, 103}, 1, 1, 1, "dfs_bank_2x1x1")
	result := checker.New(m).Check()
	if result.Kind != checker.Pass {
		t.Fatalf("expected Pass, got %v (fail=%+v)", result.Kind, result.Fail)
	}
}

func TestDFSBank2x1x2(t *testing.T) {
	m := BuildBankModel([]int64{101, 103}, 1, 1, 2, "dfs_bank_2x1x2")
	result := checker.New(m).Check()
	if result.Kind != checker.Pass {
		t.Fatalf("expected Pass, got %v (fail=%+v)", result.Kind, result.Fail)
	}
}

func TestSimBank2x1x1(t *testing.T) {
	m := BuildBankModel([]int64{101, 103}, 1, 1, 1, "sim_bank_2x1x1")
	result := sim.New(m).WithSeed(1).WithConfig(sim.DefaultConfig().WithMaxSchedules(100)).Check()
	if result.Kind != sim.Pass {
		t.Fatalf("expected Pass, got %v (fail=%+v)", result.Kind, result.Fail)
	}
}

func TestSimBank3x2x2(t *testing.T) {
	m := BuildBankModel([]int64{50, 75, 90}, 2, 2, 2, "sim_bank_3x2x2")
	result := sim.New(m).WithSeed(11).WithConfig(sim.DefaultConfig().WithMaxSchedules(200)).Check()
	if result.Kind != sim.Pass {
		t.Fatalf("expected Pass, got %v (fail=%+v deadlock=%+v)", result.Kind, result.Fail, result.Deadlock)
	}
}
