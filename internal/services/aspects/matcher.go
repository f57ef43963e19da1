package aspects

import (
	"fmt"
	"math"

	"AstroTransit/internal/domain/models"
	domsvc "AstroTransit/internal/domain/service"
)

// NatalTable is used for transits to a natal chart.
var NatalTable = []models.AspectDef{
	{Name: models.Conjunction, ExactAngle: 0, Orb: 8},
	{Name: models.Sextile, ExactAngle: 60, Orb: 6},
	{Name: models.Square, ExactAngle: 90, Orb: 8},
	{Name: models.Trine, ExactAngle: 120, Orb: 8},
	{Name: models.Opposition, ExactAngle: 180, Orb: 8},
	{Name: models.Quincunx, ExactAngle: 150, Orb: 3},
}

// MundaneTable is the tighter table for planet-to-planet sky aspects.
var MundaneTable = []models.AspectDef{
	{Name: models.Conjunction, ExactAngle: 0, Orb: 8},
	{Name: models.Sextile, ExactAngle: 60, Orb: 4},
	{Name: models.Square, ExactAngle: 90, Orb: 6},
	{Name: models.Trine, ExactAngle: 120, Orb: 6},
	{Name: models.Opposition, ExactAngle: 180, Orb: 8},
	{Name: models.Quincunx, ExactAngle: 150, Orb: 3},
}

// Matcher tests separations against an ordered aspect table. The first entry
// whose window contains the separation wins.
type Matcher struct {
	table []models.AspectDef
}

// NewMatcher copies table; the order is kept as given.
func NewMatcher(table []models.AspectDef) (*Matcher, error) {
	if len(table) == 0 {
		return nil, fmt.Errorf("aspect table is empty")
	}
	t := make([]models.AspectDef, len(table))
	for i, a := range table {
		if a.Name == "" {
			return nil, fmt.Errorf("aspect %d has no name", i)
		}
		if a.ExactAngle < 0 || a.ExactAngle > 180 {
			return nil, fmt.Errorf("aspect %s: angle %.2f outside [0,180]", a.Name, a.ExactAngle)
		}
		if a.Orb < 0 || math.IsNaN(a.Orb) {
			return nil, fmt.Errorf("aspect %s: negative orb", a.Name)
		}
		t[i] = a
	}
	return &Matcher{table: t}, nil
}

// MustMatcher panics on an invalid table; for the package-level tables.
func MustMatcher(table []models.AspectDef) *Matcher {
	m, err := NewMatcher(table)
	if err != nil {
		panic(err)
	}
	return m
}

// Table returns a copy of the table.
func (m *Matcher) Table() []models.AspectDef {
	out := make([]models.AspectDef, len(m.table))
	copy(out, m.table)
	return out
}

// Match returns the first aspect whose orb window contains the separation of a and b.
func (m *Matcher) Match(a, b float64) (models.AspectMatch, bool) {
	sep := Separation(a, b)
	for _, asp := range m.table {
		dev := math.Abs(sep - asp.ExactAngle)
		if dev <= asp.Orb {
			return models.AspectMatch{
				Aspect:     asp.Name,
				ExactAngle: asp.ExactAngle,
				Separation: sep,
				Orb:        dev,
			}, true
		}
	}
	return models.AspectMatch{}, false
}

// Separation is the shortest arc between two longitudes, in [0, 180].
func Separation(a, b float64) float64 {
	diff := math.Mod(math.Abs(a-b), 360)
	if diff > 180 {
		diff = 360 - diff
	}
	return diff
}

var _ domsvc.AspectMatcher = (*Matcher)(nil)
