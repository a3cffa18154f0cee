package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/destinyclock/destinyclock/pkg/chart"
	"github.com/destinyclock/destinyclock/pkg/ganzhi"
	"github.com/destinyclock/destinyclock/pkg/period"
	"github.com/destinyclock/destinyclock/pkg/scoring"
)

// Scoring modes.
const (
	ModeAdditive   = "additive"
	ModeRelational = "relational"
)

// Period sources.
const (
	PeriodsExplicit = "explicit" // start/end years listed in the profile
	PeriodsAges     = "ages"     // start/end ages listed in the profile
	PeriodsDerive   = "derive"   // computed from the birth chart
)

// Profile describes one subject: birth data, scoring rubric and period
// table. Each subject is configured independently.
type Profile struct {
	ID        string                    `yaml:"id"`
	Name      string                    `yaml:"name"`
	Birth     chart.BirthInput          `yaml:"birth"`
	Mode      string                    `yaml:"mode"`
	Points    PointsConfig              `yaml:"points"`
	Periods   PeriodsConfig             `yaml:"periods"`
	Relations RelationsConfig           `yaml:"relations"`
	Rules     []scoring.Rule            `yaml:"rules"`
	Strength  chart.StrengthRule        `yaml:"strength"`
	Weights   scoring.RelationalWeights `yaml:"weights"`
}

// PointsConfig is the subject's point table keyed by stem and branch glyph.
type PointsConfig struct {
	Stems    map[string]int `yaml:"stems"`
	Branches map[string]int `yaml:"branches"`
}

// PeriodsConfig selects how the major period sequence is obtained.
type PeriodsConfig struct {
	Source  string            `yaml:"source"`
	Entries []period.Entry    `yaml:"entries"`
	Ages    []period.AgeEntry `yaml:"ages"`
}

// RelationsConfig turns on the layer relation bonuses. Unset magnitudes keep
// their defaults.
type RelationsConfig struct {
	Enabled                 bool `yaml:"enabled"`
	scoring.RelationBonuses `yaml:",inline"`
}

// DefaultProfile returns a profile skeleton with the standard strength rule,
// relational weights and relation magnitudes.
func DefaultProfile() Profile {
	return Profile{
		Mode:      ModeAdditive,
		Periods:   PeriodsConfig{Source: PeriodsExplicit},
		Relations: RelationsConfig{RelationBonuses: scoring.DefaultRelationBonuses()},
		Strength:  chart.DefaultStrengthRule(),
		Weights:   scoring.DefaultRelationalWeights(),
	}
}

// ParseProfile decodes a YAML profile over the defaults and validates it.
// Unknown keys are rejected.
func ParseProfile(r io.Reader) (*Profile, error) {
	p, err := decodeProfile(r)
	if err != nil {
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

func decodeProfile(r io.Reader) (*Profile, error) {
	p := DefaultProfile()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&p); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: profile is empty", ganzhi.ErrConfiguration)
		}
		return nil, fmt.Errorf("%w: parsing profile: %v", ganzhi.ErrConfiguration, err)
	}
	return &p, nil
}

// LoadProfile reads and validates a profile file. A profile without an id is
// named after its file.
func LoadProfile(path string) (*Profile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("reading profile: %w", err)
	}
	defer f.Close()

	p, err := decodeProfile(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if p.ID == "" {
		p.ID = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

// LoadProfiles loads every *.yaml and *.yml profile in dir, sorted by id.
// Duplicate ids are a configuration error.
func LoadProfiles(dir string) ([]*Profile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading profile dir: %w", err)
	}
	var out []*Profile
	seen := make(map[string]string)
	for _, e := range entries {
		ext := filepath.Ext(e.Name())
		if e.IsDir() || (ext != ".yaml" && ext != ".yml") {
			continue
		}
		path := filepath.Join(dir, e.Name())
		p, err := LoadProfile(path)
		if err != nil {
			return nil, err
		}
		if prev, ok := seen[p.ID]; ok {
			return nil, fmt.Errorf("%w: subject %q defined in both %s and %s", ganzhi.ErrConfiguration, p.ID, prev, path)
		}
		seen[p.ID] = path
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Validate checks everything that can be checked without an oracle.
func (p *Profile) Validate() error {
	if strings.TrimSpace(p.ID) == "" {
		return fmt.Errorf("%w: profile has no id", ganzhi.ErrConfiguration)
	}
	if err := p.Birth.Validate(); err != nil {
		return fmt.Errorf("%w: birth: %v", ganzhi.ErrConfiguration, err)
	}

	switch p.Mode {
	case ModeAdditive:
		if _, err := p.PointTable(); err != nil {
			return err
		}
		if _, err := scoring.Adjusters(p.Bonuses(), p.Rules); err != nil {
			return err
		}
	case ModeRelational:
	default:
		return fmt.Errorf("%w: unknown mode %q (want %s or %s)", ganzhi.ErrConfiguration, p.Mode, ModeAdditive, ModeRelational)
	}

	if err := p.Strength.Validate(); err != nil {
		return err
	}
	if err := p.Weights.Validate(); err != nil {
		return err
	}

	switch p.Periods.Source {
	case PeriodsExplicit:
		if _, err := period.NewSequence(p.Periods.Entries); err != nil {
			return err
		}
	case PeriodsAges:
		if _, err := period.FromAges(p.Birth.Year, p.Periods.Ages); err != nil {
			return err
		}
	case PeriodsDerive:
	default:
		return fmt.Errorf("%w: unknown period source %q", ganzhi.ErrConfiguration, p.Periods.Source)
	}
	return nil
}

// PointTable builds the subject's point table. Every stem and branch must be
// present.
func (p *Profile) PointTable() (*scoring.PointTable, error) {
	return scoring.ParsePointTable(p.Points.Stems, p.Points.Branches)
}

// Bonuses returns the relation magnitudes, or nil when relations are off.
func (p *Profile) Bonuses() *scoring.RelationBonuses {
	if !p.Relations.Enabled {
		return nil
	}
	b := p.Relations.RelationBonuses
	return &b
}
