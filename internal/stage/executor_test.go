// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package stage

import (
	"bytes"
	"context"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/goleak"

	"trkeys/internal/observability"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestRunProcessesEveryItemOnce(t *testing.T) {
	exec := NewExecutor(4)

	const total = 1000
	var hits [total]atomic.Int32
	var cancel atomic.Bool

	res := exec.Run(context.Background(), "test", total, &cancel, func(i int) {
		hits[i].Add(1)
	})

	if !res.Completed {
		t.Fatal("stage did not complete")
	}
	if res.Done != total {
		t.Errorf("Done = %d, want %d", res.Done, total)
	}
	for i := range hits {
		if got := hits[i].Load(); got != 1 {
			t.Fatalf("item %d processed %d times, want exactly once", i, got)
		}
	}
}

func TestRunEmptyStage(t *testing.T) {
	exec := NewExecutor(4)
	var cancel atomic.Bool

	res := exec.Run(context.Background(), "test", 0, &cancel, func(i int) {
		t.Error("probe called for empty stage")
	})
	if !res.Completed || res.Done != 0 {
		t.Errorf("empty stage: got %+v, want completed with zero items", res)
	}
}

func TestRunTimeoutReturnsPromptlyAndDrains(t *testing.T) {
	exec := NewExecutor(4)
	exec.Timeout = 50 * time.Millisecond

	var active atomic.Int32
	var cancel atomic.Bool

	const total = 1 << 20
	start := time.Now()
	res := exec.Run(context.Background(), "test", total, &cancel, func(i int) {
		active.Add(1)
		defer active.Add(-1)
		if cancel.Load() {
			return
		}
		time.Sleep(time.Millisecond)
	})
	elapsed := time.Since(start)

	if res.Completed {
		t.Fatal("oversized stage reported completion within 50ms budget")
	}
	if !cancel.Load() {
		t.Error("cancel flag not raised on timeout")
	}
	if res.Done >= total {
		t.Errorf("Done = %d, want partial progress", res.Done)
	}
	// Budget plus one poll interval plus drain slack
	if elapsed > 2*time.Second {
		t.Errorf("timed-out stage took %s to return", elapsed)
	}
	if got := active.Load(); got != 0 {
		t.Errorf("%d probes still running after Run returned", got)
	}
}

func TestRunContextCancellation(t *testing.T) {
	exec := NewExecutor(2)
	exec.Timeout = time.Minute

	ctx, stop := context.WithCancel(context.Background())
	var cancel atomic.Bool

	go func() {
		time.Sleep(20 * time.Millisecond)
		stop()
	}()

	res := exec.Run(ctx, "test", 1<<20, &cancel, func(i int) {
		if cancel.Load() {
			return
		}
		time.Sleep(time.Millisecond)
	})

	if res.Completed {
		t.Error("cancelled stage reported completion")
	}
	if !cancel.Load() {
		t.Error("cancel flag not raised on context cancellation")
	}
}

func TestRunSerialHonorsCancel(t *testing.T) {
	exec := NewExecutor(1)
	var cancel atomic.Bool

	processed := 0
	res := exec.RunSerial("test", 100, &cancel, func(i int) {
		processed++
		if processed == 10 {
			cancel.Store(true)
		}
	})

	if res.Completed {
		t.Error("cancelled serial pass reported completion")
	}
	if processed != 10 {
		t.Errorf("processed %d items, want 10", processed)
	}
}

func TestRunTracesStepsToDebugObserver(t *testing.T) {
	var buf bytes.Buffer
	observer := observability.NewStandardObserver(observability.ObservabilityDebug, &buf)
	observer.DebugObserver = observability.NewDebugObserver(&buf)

	exec := NewExecutor(2)
	exec.Observer = observer
	var cancel atomic.Bool

	res := exec.Run(context.Background(), "combine", 8, &cancel, func(i int) {})
	if !res.Completed {
		t.Fatal("stage did not complete")
	}

	out := buf.String()
	if !strings.Contains(out, "> stage_executor: combine (8 items)") {
		t.Errorf("missing step open in debug output:\n%s", out)
	}
	if !strings.Contains(out, "stage_executor: combine completed") {
		t.Errorf("missing step close in debug output:\n%s", out)
	}

	buf.Reset()
	exec.RunSerial("seed", 3, &cancel, func(i int) {})
	if out := buf.String(); !strings.Contains(out, "stage_executor: seed completed") {
		t.Errorf("missing serial step close in debug output:\n%s", out)
	}
}

func TestDefaultWorkerCount(t *testing.T) {
	exec := NewExecutor(0)
	if exec.Workers <= 0 {
		t.Errorf("Workers = %d, want positive default", exec.Workers)
	}
	if exec.Timeout != DefaultTimeout {
		t.Errorf("Timeout = %s, want %s", exec.Timeout, DefaultTimeout)
	}
}
