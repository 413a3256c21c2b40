package clips

import (
	"fmt"
	"strings"

	"github.com/forPelevin/reelcut/internal/types"
)

const (
	DefaultStartBias    = 2.0
	DefaultClipDuration = 2.5
)

// Policy decides what happens to a window that starts at or after the end
// of the media.
type Policy string

const (
	PolicyDrop Policy = "drop"
	PolicyFail Policy = "fail"
)

func ParsePolicy(s string) (Policy, error) {
	switch Policy(strings.ToLower(strings.TrimSpace(s))) {
	case "", PolicyDrop:
		return PolicyDrop, nil
	case PolicyFail:
		return PolicyFail, nil
	default:
		return "", fmt.Errorf("unknown window policy %q (want drop or fail)", s)
	}
}

type Params struct {
	StartBias    float64
	ClipDuration float64
	Policy       Policy
}

func DefaultParams() Params {
	return Params{StartBias: DefaultStartBias, ClipDuration: DefaultClipDuration, Policy: PolicyDrop}
}

type Plan struct {
	Windows []types.ClipWindow
	Dropped []types.ClipWindow
}

// Window computes the window for one offset. ok is false when the window is
// degenerate (start >= end).
func Window(offset float64, p Params, mediaDuration float64) (types.ClipWindow, bool) {
	start := offset + p.StartBias
	if start < 0 {
		start = 0
	}
	end := start + p.ClipDuration
	if end > mediaDuration {
		end = mediaDuration
	}
	w := types.ClipWindow{Offset: offset, Start: start, End: end}
	return w, start < end
}

// Build plans one window per offset, in offset order. Windows are computed
// independently and may overlap.
func Build(offsets []float64, p Params, mediaDuration float64) (Plan, error) {
	if p.ClipDuration <= 0 {
		return Plan{}, fmt.Errorf("clip duration must be > 0, got %v", p.ClipDuration)
	}
	var plan Plan
	for i, off := range offsets {
		w, ok := Window(off, p, mediaDuration)
		w.Index = i
		if ok {
			plan.Windows = append(plan.Windows, w)
			continue
		}
		if p.Policy == PolicyFail {
			return Plan{}, fmt.Errorf("offset %.3fs starts at %.3fs, media is %.3fs: %w",
				off, w.Start, mediaDuration, types.ErrWindowOutOfRange)
		}
		plan.Dropped = append(plan.Dropped, w)
	}
	if len(plan.Windows) == 0 {
		return plan, fmt.Errorf("all %d windows fall outside %.3fs of media: %w",
			len(offsets), mediaDuration, types.ErrWindowOutOfRange)
	}
	return plan, nil
}
