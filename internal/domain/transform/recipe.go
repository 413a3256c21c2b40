package transform

import (
	"fmt"
	"sort"
	"strings"

	"github.com/forPelevin/reelcut/internal/types"
)

const (
	RecipeClassic    = "classic"
	RecipeFadeOnly   = "fade-only"
	RecipeMirrorFade = "mirror-fade"
	RecipeSlowmo     = "slowmo"

	DefaultSpeedFactor = 0.5
	DefaultFade        = 0.5
)

type Params struct {
	SpeedFactor float64
	FadeIn      float64
	FadeOut     float64
}

func DefaultParams() Params {
	return Params{SpeedFactor: DefaultSpeedFactor, FadeIn: DefaultFade, FadeOut: DefaultFade}
}

func (p Params) Validate() error {
	if p.SpeedFactor <= 0 {
		return fmt.Errorf("speed factor must be > 0, got %v", p.SpeedFactor)
	}
	if p.FadeIn < 0 || p.FadeOut < 0 {
		return fmt.Errorf("fade durations must be >= 0, got in=%v out=%v", p.FadeIn, p.FadeOut)
	}
	return nil
}

// Recipe is a named, ordered chain of per-clip transforms.
type Recipe struct {
	Name  string
	Steps []types.Step
}

// Catalog returns the built-in recipes keyed by name.
func Catalog(p Params) map[string]Recipe {
	speed := types.Step{Kind: types.StepSpeed, Factor: p.SpeedFactor}
	mirror := types.Step{Kind: types.StepMirror}
	fadeIn := types.Step{Kind: types.StepFadeIn, Duration: p.FadeIn}
	fadeOut := types.Step{Kind: types.StepFadeOut, Duration: p.FadeOut}

	return map[string]Recipe{
		RecipeClassic:    {Name: RecipeClassic, Steps: []types.Step{speed, mirror, fadeIn, fadeOut}},
		RecipeFadeOnly:   {Name: RecipeFadeOnly, Steps: []types.Step{fadeIn, fadeOut}},
		RecipeMirrorFade: {Name: RecipeMirrorFade, Steps: []types.Step{mirror, fadeIn, fadeOut}},
		RecipeSlowmo:     {Name: RecipeSlowmo, Steps: []types.Step{speed}},
	}
}

// Lookup resolves recipe names against the catalog, keeping the given order.
func Lookup(catalog map[string]Recipe, names []string) ([]Recipe, error) {
	out := make([]Recipe, 0, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		r, ok := catalog[n]
		if !ok {
			return nil, fmt.Errorf("unknown recipe %q (known: %s)", n, strings.Join(Names(catalog), ", "))
		}
		out = append(out, r)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no recipes selected")
	}
	return out, nil
}

func Names(catalog map[string]Recipe) []string {
	names := make([]string, 0, len(catalog))
	for n := range catalog {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
