package transform

import "github.com/forPelevin/reelcut/internal/types"

// Apply resolves the recipe of every window. Clip order and indexes follow
// the windows; speed changes only affect the clip's own output duration.
func Apply(windows []types.ClipWindow, sel Selector) []types.Clip {
	out := make([]types.Clip, 0, len(windows))
	for i, w := range windows {
		r := sel.Select(i, w)
		steps, dur := resolve(r.Steps, w.Length())
		out = append(out, types.Clip{
			Index:    w.Index,
			Window:   w,
			Recipe:   r.Name,
			Steps:    steps,
			Duration: dur,
		})
	}
	return out
}

// OutputDuration is the length of a window after the speed steps.
func OutputDuration(steps []types.Step, length float64) float64 {
	for _, s := range steps {
		if s.Kind == types.StepSpeed && s.Factor > 0 {
			length /= s.Factor
		}
	}
	return length
}

func resolve(steps []types.Step, length float64) ([]types.Step, float64) {
	dur := OutputDuration(steps, length)
	out := make([]types.Step, 0, len(steps))
	for _, s := range steps {
		switch s.Kind {
		case types.StepFadeIn, types.StepFadeOut:
			if s.Duration <= 0 {
				continue
			}
			if s.Duration > dur {
				s.Duration = dur
			}
		case types.StepSpeed:
			if s.Factor == 1 {
				continue
			}
		}
		out = append(out, s)
	}
	return out, dur
}
