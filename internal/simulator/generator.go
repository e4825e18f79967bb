package simulator

import (
	"context"
	"sync"
	"time"

	"github.com/rewired-gh/statwatch/internal/models"
)

// Statistic names produced by the generator
const (
	StatCorners    = "Corners"
	StatTotalShots = "Total Shots"
	StatGoals      = "Goals"
)

const (
	// maxBase is where simulated counters stop growing.
	maxBase = 15
	// DefaultStepMinutes is how far the match clock advances per fetch.
	DefaultStepMinutes = 5
	// DefaultCeiling is the full-time minute.
	DefaultCeiling = 90
)

// Generator hands out cumulative, non-decreasing statistics per fixture.
// Every Fetch advances that fixture by one step. Progress is keyed by
// FixtureID so the in-process and HTTP paths share one counter per fixture.
type Generator struct {
	catalog     *Catalog
	stepMinutes int
	ceiling     int

	mu       sync.Mutex
	progress map[models.FixtureID]int
}

// NewGenerator creates a generator. Non-positive step or ceiling use the defaults.
func NewGenerator(catalog *Catalog, stepMinutes, ceiling int) *Generator {
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	if stepMinutes <= 0 {
		stepMinutes = DefaultStepMinutes
	}
	if ceiling <= 0 {
		ceiling = DefaultCeiling
	}
	return &Generator{
		catalog:     catalog,
		stepMinutes: stepMinutes,
		ceiling:     ceiling,
		progress:    make(map[models.FixtureID]int),
	}
}

// Catalog returns the fixtures the generator knows team names for.
func (g *Generator) Catalog() *Catalog {
	return g.catalog
}

// Fetch advances the fixture by one step and returns its snapshot.
func (g *Generator) Fetch(ctx context.Context, fixture models.FixtureID) (models.StatSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return models.StatSnapshot{}, err
	}
	if err := fixture.Validate(); err != nil {
		return models.StatSnapshot{}, err
	}
	return g.Next(fixture), nil
}

// Next advances the fixture by one step.
func (g *Generator) Next(fixture models.FixtureID) models.StatSnapshot {
	g.mu.Lock()
	g.progress[fixture]++
	progress := g.progress[fixture]
	g.mu.Unlock()

	return g.snapshot(fixture, progress)
}

// Progress returns how many steps a fixture has taken.
func (g *Generator) Progress(fixture models.FixtureID) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.progress[fixture]
}

func (g *Generator) snapshot(fixture models.FixtureID, progress int) models.StatSnapshot {
	base := min(progress, maxBase)
	elapsed := min(progress*g.stepMinutes, g.ceiling)
	home, away := g.catalog.Teams(fixture)

	snap := models.StatSnapshot{
		Fixture:   fixture,
		Elapsed:   elapsed,
		FetchedAt: time.Now(),
	}
	snap.Set(home, StatCorners, models.Float(float64(base)))
	snap.Set(home, StatTotalShots, models.Float(float64(base+2)))
	snap.Set(home, StatGoals, models.Float(float64(base/3)))
	snap.Set(away, StatCorners, models.Float(float64(max(0, base-1))))
	snap.Set(away, StatTotalShots, models.Float(float64(base+1)))
	snap.Set(away, StatGoals, models.Float(float64(base/4)))
	return snap
}
