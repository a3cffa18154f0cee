package scoring

// Adjusters returns the adjuster chain for a subject: layer relation bonuses
// when configured, then custom rules. With neither, scoring is the pure
// layer sum.
func Adjusters(bonuses *RelationBonuses, rules []Rule) ([]Adjuster, error) {
	var out []Adjuster
	if bonuses != nil {
		out = append(out, NewRelationAdjuster(*bonuses))
	}
	if len(rules) > 0 {
		ra, err := CompileRules(rules)
		if err != nil {
			return nil, err
		}
		out = append(out, ra)
	}
	return out, nil
}

// DemoPointTable is the sample rubric shipped with the example profile.
func DemoPointTable() *PointTable {
	return NewPointTable(
		// 甲 乙 丙 丁 戊 己 庚 辛 壬 癸
		[10]int{1, 4, 2, 3, 8, 5, 9, 7, 10, 6},
		// 子 丑 寅 卯 辰 巳 午 未 申 酉 戌 亥
		[12]int{12, 10, 1, 2, 3, 5, 4, 6, 11, 8, 9, 7},
	)
}
