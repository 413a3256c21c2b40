package transform

import (
	"fmt"
	"math/rand"
	"strings"
	"sync"

	"github.com/forPelevin/reelcut/internal/types"
)

// Selector picks the recipe applied to the i-th clip.
type Selector interface {
	Select(i int, w types.ClipWindow) Recipe
}

// Fixed applies one recipe to every clip.
type Fixed struct {
	Recipe Recipe
}

func (f Fixed) Select(int, types.ClipWindow) Recipe { return f.Recipe }

// Cycle walks the recipes in order, wrapping around.
type Cycle struct {
	Recipes []Recipe
}

func (c Cycle) Select(i int, _ types.ClipWindow) Recipe {
	if i < 0 {
		i = -i
	}
	return c.Recipes[i%len(c.Recipes)]
}

// Random draws a recipe per clip from a seeded source, so a given seed
// always yields the same sequence.
type Random struct {
	Recipes []Recipe

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewRandom(recipes []Recipe, seed int64) *Random {
	return &Random{Recipes: recipes, rnd: rand.New(rand.NewSource(seed))}
}

func (r *Random) Select(int, types.ClipWindow) Recipe {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.Recipes[r.rnd.Intn(len(r.Recipes))]
}

const (
	ModeFixed  = "fixed"
	ModeCycle  = "cycle"
	ModeRandom = "random"
)

// NewSelector builds a selector by mode name. Fixed mode uses the first
// recipe in names.
func NewSelector(mode string, catalog map[string]Recipe, names []string, seed int64) (Selector, error) {
	recipes, err := Lookup(catalog, names)
	if err != nil {
		return nil, err
	}
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "", ModeFixed:
		return Fixed{Recipe: recipes[0]}, nil
	case ModeCycle:
		return Cycle{Recipes: recipes}, nil
	case ModeRandom:
		return NewRandom(recipes, seed), nil
	default:
		return nil, fmt.Errorf("unknown selection mode %q (want fixed, cycle or random)", mode)
	}
}
