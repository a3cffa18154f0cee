package scoring

import (
	"fmt"
	"time"

	"github.com/google/cel-go/cel"

	"github.com/destinyclock/destinyclock/pkg/ganzhi"
)

// Rule is a custom adjustment. When is a CEL expression over the record that
// must return a bool; Points are added when it holds.
//
// Variables: date (string, YYYY-MM-DD), weekday (int, Sunday = 0),
// base_score (int), and per layer L in period, year, month, day: L (pillar
// label), L_stem, L_branch, L_stem_element, L_branch_element (strings) and
// L_score (int).
type Rule struct {
	Name   string `yaml:"name" json:"name"`
	When   string `yaml:"when" json:"when"`
	Points int    `yaml:"points" json:"points"`

	program cel.Program
}

// NewRuleEnv returns the CEL environment rules are compiled in.
func NewRuleEnv() (*cel.Env, error) {
	opts := []cel.EnvOption{
		cel.Variable("date", cel.StringType),
		cel.Variable("weekday", cel.IntType),
		cel.Variable("base_score", cel.IntType),
	}
	for _, l := range Layers {
		n := l.String()
		opts = append(opts,
			cel.Variable(n, cel.StringType),
			cel.Variable(n+"_stem", cel.StringType),
			cel.Variable(n+"_branch", cel.StringType),
			cel.Variable(n+"_stem_element", cel.StringType),
			cel.Variable(n+"_branch_element", cel.StringType),
			cel.Variable(n+"_score", cel.IntType),
		)
	}
	return cel.NewEnv(opts...)
}

// Init compiles When into a program.
func (r *Rule) Init(env *cel.Env) error {
	ast, iss := env.Parse(r.When)
	if iss.Err() != nil {
		return iss.Err()
	}
	checked, iss := env.Check(ast)
	if iss.Err() != nil {
		return iss.Err()
	}
	if !checked.OutputType().IsExactType(cel.BoolType) {
		return fmt.Errorf("expression returns %s, want bool", checked.OutputType())
	}
	var err error
	r.program, err = env.Program(checked)
	return err
}

// Eval reports whether the rule holds for the given activation.
func (r *Rule) Eval(vars map[string]any) (bool, error) {
	if r.program == nil {
		return false, fmt.Errorf("rule %q is not initialized", r.Name)
	}
	out, _, err := r.program.Eval(vars)
	if err != nil {
		return false, err
	}
	b, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("rule %q returned %T", r.Name, out.Value())
	}
	return b, nil
}

// RuleAdjuster applies a compiled rule set.
type RuleAdjuster struct {
	rules []Rule
}

// CompileRules compiles every rule. A rule that does not compile is a
// configuration error naming the rule.
func CompileRules(rules []Rule) (*RuleAdjuster, error) {
	env, err := NewRuleEnv()
	if err != nil {
		return nil, fmt.Errorf("creating rule environment: %w", err)
	}
	compiled := make([]Rule, len(rules))
	for i, r := range rules {
		if r.Name == "" {
			r.Name = fmt.Sprintf("rule_%d", i+1)
		}
		if err := r.Init(env); err != nil {
			return nil, fmt.Errorf("%w: rule %q: %v", ganzhi.ErrConfiguration, r.Name, err)
		}
		compiled[i] = r
	}
	return &RuleAdjuster{rules: compiled}, nil
}

func (a *RuleAdjuster) Key() string { return "rules" }

func (a *RuleAdjuster) Len() int { return len(a.rules) }

func (a *RuleAdjuster) Adjust(rec DailyRecord) ([]Adjustment, error) {
	if len(a.rules) == 0 {
		return nil, nil
	}
	vars := Activation(rec)
	var out []Adjustment
	for i := range a.rules {
		r := &a.rules[i]
		ok, err := r.Eval(vars)
		if err != nil {
			return nil, fmt.Errorf("rule %q: %w", r.Name, err)
		}
		if !ok || r.Points == 0 {
			continue
		}
		out = append(out, Adjustment{
			Source:  a.Key(),
			Kind:    r.Name,
			Summary: r.When,
			Points:  r.Points,
		})
	}
	return out, nil
}

// Activation returns the CEL variables for a record.
func Activation(rec DailyRecord) map[string]any {
	vars := map[string]any{
		"date":       rec.Date.Format(time.DateOnly),
		"weekday":    int64(rec.Date.Weekday()),
		"base_score": int64(rec.BaseScore()),
	}
	for _, l := range Layers {
		n := l.String()
		p := rec.Pillar(l)
		vars[n] = p.String()
		vars[n+"_stem"] = p.Stem.String()
		vars[n+"_branch"] = p.Branch.String()
		vars[n+"_stem_element"] = p.Stem.Element().Name()
		vars[n+"_branch_element"] = p.Branch.Element().Name()
		vars[n+"_score"] = int64(rec.LayerScore(l))
	}
	return vars
}
