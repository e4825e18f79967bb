// Package simulator produces deterministic, steadily progressing match
// statistics. It backs the --mock mode in-process and the mock-server command,
// which serves the same data in the API-Football response shape.
package simulator

import (
	"fmt"
	"os"
	"sort"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"gopkg.in/yaml.v3"

	"github.com/rewired-gh/statwatch/internal/models"
)

// Fixture is one simulated match
type Fixture struct {
	ID       models.FixtureID `yaml:"id" json:"id"`
	HomeTeam string           `yaml:"home_team" json:"home_team"`
	AwayTeam string           `yaml:"away_team" json:"away_team"`
	League   string           `yaml:"league" json:"league"`
}

// Name renders "Home vs Away".
func (f Fixture) Name() string {
	return f.HomeTeam + " vs " + f.AwayTeam
}

// Default team names for fixtures missing from the catalog.
const (
	DefaultHomeTeam = "Home Team"
	DefaultAwayTeam = "Away Team"
)

var defaultFixtures = []Fixture{
	{ID: 1001, HomeTeam: "Manchester City", AwayTeam: "Liverpool", League: "Premier League"},
	{ID: 1002, HomeTeam: "Real Madrid", AwayTeam: "Barcelona", League: "La Liga"},
	{ID: 1003, HomeTeam: "Bayern Munich", AwayTeam: "Borussia Dortmund", League: "Bundesliga"},
	{ID: 1004, HomeTeam: "Paris Saint-Germain", AwayTeam: "Marseille", League: "Ligue 1"},
	{ID: 1005, HomeTeam: "Juventus", AwayTeam: "AC Milan", League: "Serie A"},
	{ID: 1006, HomeTeam: "Arsenal", AwayTeam: "Chelsea", League: "Premier League"},
}

// Catalog is a read-only set of simulated fixtures
type Catalog struct {
	fixtures map[models.FixtureID]Fixture
}

// DefaultCatalog returns the built-in fixtures 1001-1006.
func DefaultCatalog() *Catalog {
	c, _ := NewCatalog(defaultFixtures)
	return c
}

// NewCatalog validates fixtures and builds a catalog.
func NewCatalog(fixtures []Fixture) (*Catalog, error) {
	c := &Catalog{fixtures: make(map[models.FixtureID]Fixture, len(fixtures))}
	for _, f := range fixtures {
		if err := f.ID.Validate(); err != nil {
			return nil, err
		}
		if f.HomeTeam == "" || f.AwayTeam == "" {
			return nil, fmt.Errorf("fixture %s: both team names are required", f.ID)
		}
		if _, dup := c.fixtures[f.ID]; dup {
			return nil, fmt.Errorf("fixture %s listed twice", f.ID)
		}
		c.fixtures[f.ID] = f
	}
	return c, nil
}

type catalogFile struct {
	Fixtures []Fixture `yaml:"fixtures"`
}

// LoadCatalog reads a YAML catalog of the form:
//
//	fixtures:
//	  - id: 2001
//	    home_team: Ajax
//	    away_team: PSV
//	    league: Eredivisie
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}
	if len(file.Fixtures) == 0 {
		return nil, fmt.Errorf("catalog %s has no fixtures", path)
	}
	return NewCatalog(file.Fixtures)
}

// Lookup returns a fixture by id.
func (c *Catalog) Lookup(id models.FixtureID) (Fixture, bool) {
	f, ok := c.fixtures[id]
	return f, ok
}

// Teams returns home and away team names, falling back to the generic names.
func (c *Catalog) Teams(id models.FixtureID) (home, away string) {
	if f, ok := c.fixtures[id]; ok {
		return f.HomeTeam, f.AwayTeam
	}
	return DefaultHomeTeam, DefaultAwayTeam
}

// Fixtures lists the catalog ordered by id.
func (c *Catalog) Fixtures() []Fixture {
	out := make([]Fixture, 0, len(c.fixtures))
	for _, f := range c.fixtures {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// SuggestTeam checks a team name against the teams of a fixture. It returns
// ok=true when the name is playing; otherwise the closest name, if any.
func (c *Catalog) SuggestTeam(id models.FixtureID, team string) (suggestion string, ok bool) {
	home, away := c.Teams(id)
	candidates := []string{home, away}
	for _, name := range candidates {
		if name == team {
			return "", true
		}
	}

	ranks := fuzzy.RankFindNormalizedFold(team, candidates)
	if len(ranks) == 0 {
		// A user-typed name may carry a suffix, e.g. "Liverpool FC".
		for _, name := range candidates {
			if fuzzy.MatchNormalizedFold(name, team) {
				return name, false
			}
		}
		return "", false
	}
	sort.Sort(ranks)
	return ranks[0].Target, false
}

// AvailableStats lists the statistics the generator produces.
func AvailableStats() []string {
	return []string{StatCorners, StatTotalShots, StatGoals}
}
