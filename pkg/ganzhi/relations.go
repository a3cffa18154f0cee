package ganzhi

// RelationKind names a traditional interaction between two labels.
type RelationKind string

const (
	SixCombination  RelationKind = "six_combination"
	ThreeHarmony    RelationKind = "three_harmony" // both branches belong to the same harmony frame
	Clash           RelationKind = "clash"
	Punishment      RelationKind = "punishment"
	Harm            RelationKind = "harm"
	StemCombination RelationKind = "stem_combination"
)

type branchPair [2]Branch

func pairOf(a, b Branch) branchPair {
	if a > b {
		a, b = b, a
	}
	return branchPair{a, b}
}

// RelationTable holds the static relation sets. The zero value is empty; use
// DefaultRelations for the traditional tables.
type RelationTable struct {
	sixCombination map[branchPair]Element
	clash          map[branchPair]bool
	punishment     map[branchPair]bool
	harm           map[branchPair]bool
	harmonyFrames  [][3]Branch
	harmonyElement []Element
	stemCombos     map[[2]Stem]Element
}

// DefaultRelations returns the traditional branch and stem relation tables.
func DefaultRelations() *RelationTable {
	b := func(s string) Branch {
		v, err := ParseBranch(s)
		if err != nil {
			panic(err)
		}
		return v
	}

	t := &RelationTable{
		sixCombination: map[branchPair]Element{
			pairOf(b("子"), b("丑")): Earth,
			pairOf(b("寅"), b("亥")): Wood,
			pairOf(b("卯"), b("戌")): Fire,
			pairOf(b("辰"), b("酉")): Metal,
			pairOf(b("巳"), b("申")): Water,
			pairOf(b("午"), b("未")): Fire,
		},
		clash:      make(map[branchPair]bool),
		punishment: make(map[branchPair]bool),
		harm:       make(map[branchPair]bool),
		harmonyFrames: [][3]Branch{
			{b("申"), b("子"), b("辰")},
			{b("亥"), b("卯"), b("未")},
			{b("寅"), b("午"), b("戌")},
			{b("巳"), b("酉"), b("丑")},
		},
		harmonyElement: []Element{Water, Wood, Fire, Metal},
		stemCombos:     make(map[[2]Stem]Element),
	}

	// Opposite branches clash.
	for i := 0; i < 6; i++ {
		t.clash[pairOf(Branch(i), Branch(i+6))] = true
	}

	for _, p := range [][2]string{
		{"寅", "巳"}, {"巳", "申"}, {"寅", "申"}, // ungrateful
		{"丑", "戌"}, {"戌", "未"}, {"丑", "未"}, // bullying
		{"子", "卯"},                         // rude
		{"辰", "辰"}, {"午", "午"}, {"酉", "酉"}, {"亥", "亥"}, // self
	} {
		t.punishment[pairOf(b(p[0]), b(p[1]))] = true
	}

	for _, p := range [][2]string{
		{"子", "未"}, {"丑", "午"}, {"寅", "巳"}, {"卯", "辰"}, {"申", "亥"}, {"酉", "戌"},
	} {
		t.harm[pairOf(b(p[0]), b(p[1]))] = true
	}

	// 甲己 earth, 乙庚 metal, 丙辛 water, 丁壬 wood, 戊癸 fire.
	for i := 0; i < 5; i++ {
		t.stemCombos[[2]Stem{Stem(i), Stem(i + 5)}] = Element((i + 2) % 5)
	}

	return t
}

// Branches returns every relation kind between a and b, in a fixed order.
func (t *RelationTable) Branches(a, b Branch) []RelationKind {
	if t == nil {
		return nil
	}
	p := pairOf(a, b)
	var kinds []RelationKind
	if _, ok := t.sixCombination[p]; ok {
		kinds = append(kinds, SixCombination)
	}
	if a != b {
		if _, ok := t.HarmonyFrame(a, b); ok {
			kinds = append(kinds, ThreeHarmony)
		}
	}
	if t.clash[p] {
		kinds = append(kinds, Clash)
	}
	if t.punishment[p] {
		kinds = append(kinds, Punishment)
	}
	if t.harm[p] {
		kinds = append(kinds, Harm)
	}
	return kinds
}

// Has reports whether a and b stand in the given branch relation.
func (t *RelationTable) Has(kind RelationKind, a, b Branch) bool {
	for _, k := range t.Branches(a, b) {
		if k == kind {
			return true
		}
	}
	return false
}

// SixCombinationElement returns the element a six-combination transforms into.
func (t *RelationTable) SixCombinationElement(a, b Branch) (Element, bool) {
	if t == nil {
		return 0, false
	}
	e, ok := t.sixCombination[pairOf(a, b)]
	return e, ok
}

// HarmonyFrame returns the element of the three-harmony frame containing both
// branches.
func (t *RelationTable) HarmonyFrame(a, b Branch) (Element, bool) {
	if t == nil {
		return 0, false
	}
	for i, frame := range t.harmonyFrames {
		if contains(frame, a) && contains(frame, b) {
			return t.harmonyElement[i], true
		}
	}
	return 0, false
}

// FullHarmony reports whether the three branches form a complete harmony frame.
func (t *RelationTable) FullHarmony(a, b, c Branch) (Element, bool) {
	if t == nil || a == b || b == c || a == c {
		return 0, false
	}
	for i, frame := range t.harmonyFrames {
		if contains(frame, a) && contains(frame, b) && contains(frame, c) {
			return t.harmonyElement[i], true
		}
	}
	return 0, false
}

// Stems reports whether a and b form a five-combination and which element it yields.
func (t *RelationTable) Stems(a, b Stem) (Element, bool) {
	if t == nil {
		return 0, false
	}
	if a > b {
		a, b = b, a
	}
	e, ok := t.stemCombos[[2]Stem{a, b}]
	return e, ok
}

func contains(frame [3]Branch, b Branch) bool {
	return frame[0] == b || frame[1] == b || frame[2] == b
}
