package scoring

import (
	"fmt"
	"sort"
	"strings"

	"github.com/destinyclock/destinyclock/pkg/ganzhi"
)

// PointTable maps every stem and branch to a subject-specific point value.
// A table is total by construction.
type PointTable struct {
	stems    [10]int
	branches [12]int
}

// NewPointTable builds a table from explicit arrays indexed by stem and branch.
func NewPointTable(stems [10]int, branches [12]int) *PointTable {
	return &PointTable{stems: stems, branches: branches}
}

// ParsePointTable builds a table from glyph-keyed maps such as a YAML profile
// provides. Missing or unknown labels are configuration errors.
func ParsePointTable(stems, branches map[string]int) (*PointTable, error) {
	t := &PointTable{}
	var problems []string

	seenStems := make(map[ganzhi.Stem]bool)
	for label, v := range stems {
		s, err := ganzhi.ParseStem(strings.TrimSpace(label))
		if err != nil {
			problems = append(problems, err.Error())
			continue
		}
		t.stems[s] = v
		seenStems[s] = true
	}
	for _, s := range ganzhi.Stems {
		if !seenStems[s] {
			problems = append(problems, fmt.Sprintf("missing stem %s", s))
		}
	}

	seenBranches := make(map[ganzhi.Branch]bool)
	for label, v := range branches {
		b, err := ganzhi.ParseBranch(strings.TrimSpace(label))
		if err != nil {
			problems = append(problems, err.Error())
			continue
		}
		t.branches[b] = v
		seenBranches[b] = true
	}
	for _, b := range ganzhi.Branches {
		if !seenBranches[b] {
			problems = append(problems, fmt.Sprintf("missing branch %s", b))
		}
	}

	if len(problems) > 0 {
		sort.Strings(problems)
		return nil, fmt.Errorf("%w: point table: %s", ganzhi.ErrConfiguration, strings.Join(problems, "; "))
	}
	return t, nil
}

func (t *PointTable) Stem(s ganzhi.Stem) int { return t.stems[s] }

func (t *PointTable) Branch(b ganzhi.Branch) int { return t.branches[b] }

// Pillar scores a pillar as the sum of its stem and branch points.
func (t *PointTable) Pillar(p ganzhi.Pillar) int { return t.stems[p.Stem] + t.branches[p.Branch] }

// Maps returns the table as glyph-keyed maps.
func (t *PointTable) Maps() (stems, branches map[string]int) {
	stems = make(map[string]int, 10)
	for _, s := range ganzhi.Stems {
		stems[s.String()] = t.stems[s]
	}
	branches = make(map[string]int, 12)
	for _, b := range ganzhi.Branches {
		branches[b.String()] = t.branches[b]
	}
	return stems, branches
}
