package territory

import (
	"strings"

	"skyclaim.ai/internal/errs"
	"skyclaim.ai/internal/territory/generator"
)

// Environment names one of the dimensions a territory spans.
type Environment string

const (
	EnvNormal Environment = "NORMAL"
	EnvNether Environment = "NETHER"
	EnvEnd    Environment = "THE_END"
)

func Environments() []Environment { return []Environment{EnvNormal, EnvNether, EnvEnd} }

func ParseEnvironment(s string) (Environment, error) {
	switch e := Environment(strings.ToUpper(strings.TrimSpace(s))); e {
	case EnvNormal, EnvNether, EnvEnd:
		return e, nil
	case "OVERWORLD", "":
		return EnvNormal, nil
	case "END":
		return EnvEnd, nil
	default:
		return "", errs.Validation("parse_environment", "unknown environment %q", s)
	}
}

func (e Environment) valid() bool {
	return e == EnvNormal || e == EnvNether || e == EnvEnd
}

func (t *Territory) table(env Environment) *generator.Table {
	g, ok := t.generators[env]
	if !ok {
		g = generator.New()
		t.generators[env] = g
	}
	return g
}

func (t *Territory) updateGenerator(op string, env Environment, fn func(*generator.Table) error) error {
	return t.mutate(op, func() ([]Delta, error) {
		if !env.valid() {
			return nil, errs.Validation(op, "unknown environment %q", env)
		}
		if err := fn(t.table(env)); err != nil {
			return nil, err
		}
		return t.deltas(DeltaGenerator), nil
	})
}

// SetGeneratorPercentage sets key to roughly pct percent of env's draws.
func (t *Territory) SetGeneratorPercentage(env Environment, key string, pct int) error {
	return t.updateGenerator("set_generator_percentage", env, func(g *generator.Table) error {
		return g.SetPercentage(key, pct)
	})
}

func (t *Territory) SetGeneratorAmount(env Environment, key string, amount int64) error {
	return t.updateGenerator("set_generator_amount", env, func(g *generator.Table) error {
		return g.SetAmount(key, amount)
	})
}

func (t *Territory) ClearGenerator(env Environment) error {
	return t.updateGenerator("clear_generator", env, func(g *generator.Table) error {
		g.Clear()
		return nil
	})
}

func (t *Territory) GeneratorPercentage(env Environment, key string) (int, error) {
	return view(t, "generator_percentage", func() int {
		if g, ok := t.generators[env]; ok {
			return g.Percentage(key)
		}
		return 0
	})
}

func (t *Territory) GeneratorAmount(env Environment, key string) (int64, error) {
	return view(t, "generator_amount", func() int64 {
		if g, ok := t.generators[env]; ok {
			return g.Amount(key)
		}
		return 0
	})
}

func (t *Territory) GeneratorAmounts(env Environment) (map[string]int64, error) {
	return view(t, "generator_amounts", func() map[string]int64 {
		if g, ok := t.generators[env]; ok {
			return g.Amounts()
		}
		return map[string]int64{}
	})
}

func (t *Territory) GeneratorPercentages(env Environment) (map[string]int, error) {
	return view(t, "generator_percentages", func() map[string]int {
		if g, ok := t.generators[env]; ok {
			return g.Percentages()
		}
		return map[string]int{}
	})
}

// GeneratorArray is the flattened table an external generator samples from.
func (t *Territory) GeneratorArray(env Environment) ([]string, error) {
	return view(t, "generator_array", func() []string {
		if g, ok := t.generators[env]; ok {
			return g.Array()
		}
		return nil
	})
}

func (t *Territory) generatorAmounts() map[Environment]map[string]int64 {
	out := make(map[Environment]map[string]int64, len(t.generators))
	for env, g := range t.generators {
		if g.Len() > 0 {
			out[env] = g.Amounts()
		}
	}
	return out
}
