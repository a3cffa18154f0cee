package ganzhi

import (
	"fmt"
	"unicode/utf8"
)

// Stem is one of the ten heavenly stems, 甲 (0) through 癸 (9).
type Stem int

// Branch is one of the twelve earthly branches, 子 (0) through 亥 (11).
type Branch int

var (
	stemGlyphs   = [10]string{"甲", "乙", "丙", "丁", "戊", "己", "庚", "辛", "壬", "癸"}
	branchGlyphs = [12]string{"子", "丑", "寅", "卯", "辰", "巳", "午", "未", "申", "酉", "戌", "亥"}

	branchElements = [12]Element{Water, Earth, Wood, Wood, Earth, Fire, Fire, Earth, Metal, Metal, Earth, Water}
)

// Stems and Branches enumerate the full label sets.
var (
	Stems    [10]Stem
	Branches [12]Branch
)

func init() {
	for i := range Stems {
		Stems[i] = Stem(i)
	}
	for i := range Branches {
		Branches[i] = Branch(i)
	}
}

func (s Stem) Valid() bool { return s >= 0 && s < 10 }

func (s Stem) String() string {
	if !s.Valid() {
		return fmt.Sprintf("Stem(%d)", int(s))
	}
	return stemGlyphs[s]
}

// Element pairs stems two by two: 甲乙 wood, 丙丁 fire, and so on.
func (s Stem) Element() Element { return Element(int(s) / 2) }

func (s Stem) Polarity() Polarity { return Polarity(int(s) % 2) }

func (b Branch) Valid() bool { return b >= 0 && b < 12 }

func (b Branch) String() string {
	if !b.Valid() {
		return fmt.Sprintf("Branch(%d)", int(b))
	}
	return branchGlyphs[b]
}

func (b Branch) Element() Element { return branchElements[b] }

func (b Branch) Polarity() Polarity { return Polarity(int(b) % 2) }

// ParseStem parses a single stem glyph.
func ParseStem(s string) (Stem, error) {
	for i, g := range stemGlyphs {
		if g == s {
			return Stem(i), nil
		}
	}
	return 0, fmt.Errorf("unknown stem %q", s)
}

// ParseBranch parses a single branch glyph.
func ParseBranch(s string) (Branch, error) {
	for i, g := range branchGlyphs {
		if g == s {
			return Branch(i), nil
		}
	}
	return 0, fmt.Errorf("unknown branch %q", s)
}

// Pillar is a stem-branch pair labelling one calendrical unit.
type Pillar struct {
	Stem   Stem
	Branch Branch
}

// NewPillar returns the pillar, rejecting pairs that never occur in the
// sixty-cycle (stem and branch polarity must agree).
func NewPillar(s Stem, b Branch) (Pillar, error) {
	p := Pillar{Stem: s, Branch: b}
	if !p.Valid() {
		return Pillar{}, fmt.Errorf("invalid pillar %s%s", s, b)
	}
	return p, nil
}

// MustPillar is NewPillar for fixed tables and tests.
func MustPillar(label string) Pillar {
	p, err := ParsePillar(label)
	if err != nil {
		panic(err)
	}
	return p
}

// ParsePillar parses a two-glyph label such as "甲子".
func ParsePillar(label string) (Pillar, error) {
	if utf8.RuneCountInString(label) != 2 {
		return Pillar{}, fmt.Errorf("pillar label %q: want two characters", label)
	}
	r, size := utf8.DecodeRuneInString(label)
	s, err := ParseStem(string(r))
	if err != nil {
		return Pillar{}, fmt.Errorf("pillar label %q: %w", label, err)
	}
	b, err := ParseBranch(label[size:])
	if err != nil {
		return Pillar{}, fmt.Errorf("pillar label %q: %w", label, err)
	}
	return NewPillar(s, b)
}

// PillarAt returns the pillar at position i of the sixty-cycle (甲子 = 0).
func PillarAt(i int) Pillar {
	i = ((i % 60) + 60) % 60
	return Pillar{Stem: Stem(i % 10), Branch: Branch(i % 12)}
}

func (p Pillar) Valid() bool {
	return p.Stem.Valid() && p.Branch.Valid() && p.Stem.Polarity() == p.Branch.Polarity()
}

// Index is the position in the sixty-cycle.
func (p Pillar) Index() int {
	for i := int(p.Stem); i < 60; i += 10 {
		if i%12 == int(p.Branch) {
			return i
		}
	}
	return -1
}

// Next and Prev step through the sixty-cycle.
func (p Pillar) Next() Pillar { return PillarAt(p.Index() + 1) }
func (p Pillar) Prev() Pillar { return PillarAt(p.Index() - 1) }

func (p Pillar) String() string { return p.Stem.String() + p.Branch.String() }

func (p Pillar) MarshalText() ([]byte, error) {
	if !p.Valid() {
		return nil, fmt.Errorf("marshal invalid pillar %d/%d", p.Stem, p.Branch)
	}
	return []byte(p.String()), nil
}

func (p *Pillar) UnmarshalText(b []byte) error {
	v, err := ParsePillar(string(b))
	if err != nil {
		return err
	}
	*p = v
	return nil
}
