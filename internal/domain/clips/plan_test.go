package clips

import (
	"errors"
	"math"
	"testing"

	"github.com/forPelevin/reelcut/internal/domain/timestamps"
	"github.com/forPelevin/reelcut/internal/types"
)

func TestBuild_Scenario(t *testing.T) {
	offsets, err := timestamps.ParseText("00:00:02,000\n00:00:10,000\n00:00:20,000")
	if err != nil {
		t.Fatal(err)
	}
	plan, err := Build(offsets, Params{StartBias: 2, ClipDuration: 2.5}, 25)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	want := [][2]float64{{4, 6.5}, {12, 14.5}, {22, 24.5}}
	if len(plan.Windows) != len(want) {
		t.Fatalf("expected %d windows, got %d", len(want), len(plan.Windows))
	}
	for i, w := range plan.Windows {
		if w.Start != want[i][0] || w.End != want[i][1] {
			t.Fatalf("window %d = [%v,%v), want [%v,%v)", i, w.Start, w.End, want[i][0], want[i][1])
		}
		if w.Index != i {
			t.Fatalf("window %d has index %d", i, w.Index)
		}
	}
}

func TestBuild_ClampsToDuration(t *testing.T) {
	plan, err := Build([]float64{21}, DefaultParams(), 24)
	if err != nil {
		t.Fatal(err)
	}
	w := plan.Windows[0]
	if w.Start != 23 || w.End != 24 {
		t.Fatalf("unexpected window %+v", w)
	}
}

func TestBuild_EndNeverExceedsDuration(t *testing.T) {
	durations := []float64{0.5, 3, 10.25, 60}
	for _, d := range durations {
		for off := 0.0; off < 70; off += 0.75 {
			w, ok := Window(off, DefaultParams(), d)
			if w.End > d {
				t.Fatalf("offset %v duration %v: end %v exceeds duration", off, d, w.End)
			}
			if ok && !(w.Start < w.End) {
				t.Fatalf("offset %v duration %v: kept window is degenerate %+v", off, d, w)
			}
		}
	}
}

func TestBuild_DropPolicy(t *testing.T) {
	plan, err := Build([]float64{5, 30, 1}, Params{StartBias: 2, ClipDuration: 2.5, Policy: PolicyDrop}, 20)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if len(plan.Windows) != 2 || len(plan.Dropped) != 1 {
		t.Fatalf("expected 2 kept and 1 dropped, got %d/%d", len(plan.Windows), len(plan.Dropped))
	}
	if plan.Windows[0].Offset != 5 || plan.Windows[1].Offset != 1 {
		t.Fatalf("kept windows out of input order: %+v", plan.Windows)
	}
	if plan.Windows[1].Index != 2 || plan.Dropped[0].Index != 1 {
		t.Fatalf("indexes should follow the transcript: %+v %+v", plan.Windows, plan.Dropped)
	}
}

func TestBuild_FailPolicy(t *testing.T) {
	_, err := Build([]float64{5, 30}, Params{StartBias: 2, ClipDuration: 2.5, Policy: PolicyFail}, 20)
	if !errors.Is(err, types.ErrWindowOutOfRange) {
		t.Fatalf("expected ErrWindowOutOfRange, got %v", err)
	}
}

func TestBuild_StartAtDurationIsDegenerate(t *testing.T) {
	_, err := Build([]float64{18}, Params{StartBias: 2, ClipDuration: 2.5, Policy: PolicyFail}, 20)
	if !errors.Is(err, types.ErrWindowOutOfRange) {
		t.Fatalf("expected ErrWindowOutOfRange for start == duration, got %v", err)
	}
}

func TestBuild_AllDropped(t *testing.T) {
	plan, err := Build([]float64{100, 200}, DefaultParams(), 20)
	if !errors.Is(err, types.ErrWindowOutOfRange) {
		t.Fatalf("expected ErrWindowOutOfRange, got %v", err)
	}
	if len(plan.Dropped) != 2 {
		t.Fatalf("expected dropped windows to be reported, got %+v", plan)
	}
}

func TestBuild_NegativeBiasClampsStart(t *testing.T) {
	plan, err := Build([]float64{1}, Params{StartBias: -3, ClipDuration: 2.5}, 20)
	if err != nil {
		t.Fatal(err)
	}
	if w := plan.Windows[0]; w.Start != 0 || math.Abs(w.End-2.5) > 1e-9 {
		t.Fatalf("unexpected window %+v", w)
	}
}

func TestParsePolicy(t *testing.T) {
	if p, err := ParsePolicy(""); err != nil || p != PolicyDrop {
		t.Fatalf("empty policy should default to drop, got %q %v", p, err)
	}
	if p, err := ParsePolicy(" FAIL "); err != nil || p != PolicyFail {
		t.Fatalf("expected fail, got %q %v", p, err)
	}
	if _, err := ParsePolicy("skip"); err == nil {
		t.Fatalf("expected error for unknown policy")
	}
}
