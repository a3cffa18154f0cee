package ganzhi

// HiddenStem is a stem stored inside a branch with its relative weight.
type HiddenStem struct {
	Stem   Stem
	Weight float64
}

// Main, middle and residual qi, in that order.
var hiddenStems = [12][]HiddenStem{
	{{9, 1.0}},                     // 子: 癸
	{{5, 0.6}, {9, 0.3}, {7, 0.1}}, // 丑: 己癸辛
	{{0, 0.6}, {2, 0.3}, {4, 0.1}}, // 寅: 甲丙戊
	{{1, 1.0}},                     // 卯: 乙
	{{4, 0.6}, {1, 0.3}, {9, 0.1}}, // 辰: 戊乙癸
	{{2, 0.6}, {6, 0.3}, {4, 0.1}}, // 巳: 丙庚戊
	{{3, 0.7}, {5, 0.3}},           // 午: 丁己
	{{5, 0.6}, {3, 0.3}, {1, 0.1}}, // 未: 己丁乙
	{{6, 0.6}, {8, 0.3}, {4, 0.1}}, // 申: 庚壬戊
	{{7, 1.0}},                     // 酉: 辛
	{{4, 0.6}, {7, 0.3}, {3, 0.1}}, // 戌: 戊辛丁
	{{8, 0.7}, {0, 0.3}},           // 亥: 壬甲
}

// HiddenStems returns the branch's hidden stems, main qi first. The slice is a copy.
func (b Branch) HiddenStems() []HiddenStem {
	if !b.Valid() {
		return nil
	}
	out := make([]HiddenStem, len(hiddenStems[b]))
	copy(out, hiddenStems[b])
	return out
}
