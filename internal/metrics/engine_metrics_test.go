// Copyright 2025 Oppie Thunder Contributors
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

package metrics

import (
	"testing"
	"time"
)

func TestEngineMetrics_BasicFlow(t *testing.T) {
	m := NewEngineMetrics()

	snap := m.Snapshot()
	if len(snap.Ops) != 0 {
		t.Errorf("expected no ops for empty metrics, got %+v", snap)
	}
	if snap.NewObjects != 0 || snap.NewBytes != 0 {
		t.Errorf("expected zero counters, got %+v", snap)
	}

	m.ObserveLatency("manifest.flush", 100*time.Microsecond)
	m.ObserveLatency("manifest.flush", 200*time.Microsecond)
	m.ObserveLatency("manifest.flush", 300*time.Microsecond)
	m.ObserveLatency("manifest.flush", 400*time.Microsecond)
	m.ObserveLatency("manifest.flush", 500*time.Microsecond)

	m.AddNewObjects(10)
	m.AddNewBytes(1024)
	m.AddNewObjects(5)
	m.AddNewBytes(512)

	snap = m.Snapshot()

	flush := snap.Ops["manifest.flush"]
	if flush.P50 != 300 {
		t.Errorf("expected P50=300, got %d", flush.P50)
	}
	if flush.P95 != 400 && flush.P95 != 500 {
		t.Errorf("expected P95=400 or 500, got %d", flush.P95)
	}
	if flush.P99 != 400 && flush.P99 != 500 {
		t.Errorf("expected P99=400 or 500, got %d", flush.P99)
	}

	if snap.NewObjects != 15 {
		t.Errorf("expected NewObjects=15, got %d", snap.NewObjects)
	}
	if snap.NewBytes != 1536 {
		t.Errorf("expected NewBytes=1536, got %d", snap.NewBytes)
	}
}

func TestEngineMetrics_SeparatesOperations(t *testing.T) {
	m := NewEngineMetrics()
	m.ObserveLatency("manifest.finalize", 10*time.Microsecond)
	m.ObserveLatency("changelog.build_incremental", 9000*time.Microsecond)

	snap := m.Snapshot()
	if snap.Ops["manifest.finalize"].P50 != 10 {
		t.Errorf("manifest.finalize P50 = %d, want 10", snap.Ops["manifest.finalize"].P50)
	}
	if snap.Ops["changelog.build_incremental"].P50 != 9000 {
		t.Errorf("changelog.build_incremental P50 = %d, want 9000", snap.Ops["changelog.build_incremental"].P50)
	}
}

func TestEngineMetrics_EdgeCases(t *testing.T) {
	m := NewEngineMetrics()

	m.AddNewObjects(0)
	m.AddNewBytes(0)

	snap := m.Snapshot()
	if snap.NewObjects != 0 || snap.NewBytes != 0 {
		t.Errorf("adding zero should be no-op, got %+v", snap)
	}

	m.ObserveLatency("manifest.flush", 42*time.Microsecond)
	snap = m.Snapshot()

	flush := snap.Ops["manifest.flush"]
	if flush.P50 != 42 || flush.P95 != 42 || flush.P99 != 42 {
		t.Errorf("single value should give same percentiles, got %+v", flush)
	}
}

func TestPercentile_VariousSizes(t *testing.T) {
	tests := []struct {
		name   string
		series []int64
		p      float64
		want   int64
	}{
		{name: "empty", series: []int64{}, p: 0.5, want: 0},
		{name: "single", series: []int64{100}, p: 0.5, want: 100},
		{name: "two_p50", series: []int64{100, 200}, p: 0.5, want: 100},
		{name: "odd_count_p50", series: []int64{1, 2, 3, 4, 5}, p: 0.5, want: 3},
		{name: "even_count_p50", series: []int64{1, 2, 3, 4, 5, 6}, p: 0.5, want: 3},
		{name: "p99_small", series: []int64{1, 2, 3, 4, 5}, p: 0.99, want: 4},
		{name: "unsorted", series: []int64{5, 1, 4, 2, 3}, p: 0.5, want: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := percentile(tt.series, tt.p)
			if got != tt.want {
				t.Errorf("percentile(%v, %.2f) = %d, want %d",
					tt.series, tt.p, got, tt.want)
			}
		})
	}
}
