package compliance

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"sglgb/internal/indicator"
)

// Band is one step of a BBI functionality table: a count of passing
// sub-indicators at or above MinPassed earns Level.
type Band struct {
	Level     string `yaml:"level" json:"level"`
	MinPassed int    `yaml:"min_passed" json:"min_passed"`
}

// DefaultBands applies when a policy names none.
var DefaultBands = []Band{
	{Level: "NON_FUNCTIONAL", MinPassed: 0},
	{Level: "LOW_FUNCTIONAL", MinPassed: 1},
	{Level: "MODERATELY_FUNCTIONAL", MinPassed: 2},
	{Level: "HIGHLY_FUNCTIONAL", MinPassed: 3},
}

const DefaultMaxReworkCycles = 1

// Policy is the yearly, frequently revised business configuration the
// evaluator and the lifecycle consult. It is data, loaded from YAML.
type Policy struct {
	// MinMetAreas is the number of MET governance areas a unit needs. Zero
	// means every area.
	MinMetAreas int `yaml:"min_met_areas"`
	// RequiredAreas must be MET regardless of the count.
	RequiredAreas []indicator.Code `yaml:"required_areas"`
	BBIBands      []Band           `yaml:"bbi_bands"`
	// BBIOverrides replaces the band table for specific BBI indicators.
	BBIOverrides map[indicator.Code][]Band `yaml:"bbi_overrides"`
	// PassingLevel is the lowest band at which a BBI counts as PASS in its
	// parent's roll-up. Empty means the band just above the lowest.
	PassingLevel string `yaml:"passing_level"`
	// Deadlines holds the phase-1 submission deadline per assessment year.
	Deadlines       map[int]time.Time `yaml:"deadlines"`
	MaxReworkCycles int               `yaml:"max_rework_cycles"`
}

// DefaultPolicy requires every area and uses DefaultBands.
func DefaultPolicy() Policy {
	return Policy{BBIBands: append([]Band(nil), DefaultBands...), MaxReworkCycles: DefaultMaxReworkCycles}
}

// Validate normalizes band order and checks the table is usable.
func (p *Policy) Validate() error {
	var errs []error
	if p.MinMetAreas < 0 {
		errs = append(errs, errors.New("min_met_areas must not be negative"))
	}
	if p.MaxReworkCycles <= 0 {
		p.MaxReworkCycles = DefaultMaxReworkCycles
	}
	if len(p.BBIBands) == 0 {
		p.BBIBands = append([]Band(nil), DefaultBands...)
	}
	if err := normalizeBands(p.BBIBands); err != nil {
		errs = append(errs, fmt.Errorf("bbi_bands: %w", err))
	}
	for code, bands := range p.BBIOverrides {
		if err := normalizeBands(bands); err != nil {
			errs = append(errs, fmt.Errorf("bbi_overrides[%s]: %w", code, err))
		}
	}
	if p.PassingLevel != "" && !hasLevel(p.BBIBands, p.PassingLevel) {
		errs = append(errs, fmt.Errorf("passing_level %q is not a band", p.PassingLevel))
	}
	return errors.Join(errs...)
}

func normalizeBands(bands []Band) error {
	if len(bands) == 0 {
		return errors.New("at least one band is required")
	}
	sort.SliceStable(bands, func(i, j int) bool { return bands[i].MinPassed < bands[j].MinPassed })
	for i, b := range bands {
		if b.Level == "" {
			return fmt.Errorf("band %d has no level", i)
		}
		if b.MinPassed < 0 {
			return fmt.Errorf("band %s has negative min_passed", b.Level)
		}
		if i > 0 && bands[i-1].MinPassed == b.MinPassed {
			return fmt.Errorf("bands %s and %s share min_passed %d", bands[i-1].Level, b.Level, b.MinPassed)
		}
	}
	return nil
}

func hasLevel(bands []Band, level string) bool {
	for _, b := range bands {
		if b.Level == level {
			return true
		}
	}
	return false
}

// Deadline returns the phase-1 deadline for year.
func (p Policy) Deadline(year int) (time.Time, bool) {
	d, ok := p.Deadlines[year]
	return d, ok
}

// bandsFor returns an ascending copy of the band table for a BBI indicator.
func (p Policy) bandsFor(code indicator.Code) []Band {
	src := DefaultBands
	if b, ok := p.BBIOverrides[code]; ok && len(b) > 0 {
		src = b
	} else if len(p.BBIBands) > 0 {
		src = p.BBIBands
	}
	out := append([]Band(nil), src...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].MinPassed < out[j].MinPassed })
	return out
}

// SelectBand picks the highest band whose MinPassed the count reaches,
// falling back to the lowest band. bands must be ascending. It is monotonic
// in passed.
func SelectBand(bands []Band, passed int) Band {
	chosen := bands[0]
	if passed <= 0 {
		return chosen
	}
	for _, b := range bands {
		if passed >= b.MinPassed {
			chosen = b
		}
	}
	return chosen
}

// passingThreshold is the MinPassed of the band a BBI must reach to PASS.
func (p Policy) passingThreshold(bands []Band) int {
	if p.PassingLevel != "" {
		for _, b := range bands {
			if b.Level == p.PassingLevel {
				return b.MinPassed
			}
		}
	}
	if len(bands) > 1 {
		return bands[1].MinPassed
	}
	return bands[0].MinPassed
}

// LoadPolicy decodes and validates a YAML policy document.
func LoadPolicy(r io.Reader) (Policy, error) {
	p := DefaultPolicy()
	p.BBIBands = nil
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&p); err != nil && !errors.Is(err, io.EOF) {
		return Policy{}, fmt.Errorf("decode policy: %w", err)
	}
	if err := p.Validate(); err != nil {
		return Policy{}, fmt.Errorf("invalid policy: %w", err)
	}
	return p, nil
}
