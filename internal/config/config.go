// Package config loads the territory rules from territory.yaml and the
// operational knobs from the environment.
package config

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"skyclaim.ai/internal/territory"
	"skyclaim.ai/internal/territory/identity"
	"skyclaim.ai/internal/territory/keys"
	"skyclaim.ai/internal/territory/ledger"
	"skyclaim.ai/internal/territory/limits"
	"skyclaim.ai/internal/territory/privilege"
)

type Config struct {
	// Policy maps privilege names to the minimum role holding them.
	Policy map[string]string `yaml:"policy"`

	Worth PriceSpec `yaml:"worth"`
	Level PriceSpec `yaml:"level"`

	Limits      LimitsSpec                  `yaml:"limits"`
	Equivalence map[string][]string         `yaml:"equivalence,omitempty"`
	Generators  map[string]map[string]int64 `yaml:"generators,omitempty"`
	Size        int                         `yaml:"size"`

	RecalcTimeout time.Duration `yaml:"recalc_timeout"`
	SaveTimeout   time.Duration `yaml:"save_timeout"`
}

// PriceSpec holds decimal unit values as strings so they load exactly.
type PriceSpec struct {
	Default string            `yaml:"default"`
	Values  map[string]string `yaml:"values,omitempty"`
}

// LimitsSpec uses -1 for no limit.
type LimitsSpec struct {
	Blocks   map[string]int64 `yaml:"blocks,omitempty"`
	Entities map[string]int64 `yaml:"entities,omitempty"`
	Team     int64            `yaml:"team"`
	Warps    int64            `yaml:"warps"`
	Coops    int64            `yaml:"coops"`
}

// Load reads path on top of the defaults. An empty path returns the defaults.
func Load(path string) (Config, error) {
	cfg := Defaults()
	if strings.TrimSpace(path) == "" {
		cfg.Normalize()
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("territory.yaml: %w", err)
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("territory.yaml: %w", err)
	}
	return cfg, nil
}

func Defaults() Config {
	policy := map[string]string{}
	for p, r := range privilege.DefaultPolicy().Table() {
		policy[string(p)] = r.String()
	}
	return Config{
		Policy: policy,
		Worth:  PriceSpec{Default: "0"},
		Level:  PriceSpec{Default: "0"},
		Limits: LimitsSpec{
			Team:  4,
			Warps: 3,
			Coops: 3,
		},
		Size:          50,
		RecalcTimeout: territory.DefaultRecalcTimeout,
		SaveTimeout:   territory.DefaultSaveTimeout,
	}
}

func (c *Config) Normalize() {
	if c == nil {
		return
	}
	c.Policy = normalizeKeys(c.Policy, func(k string) string { return string(privilege.Normalize(k)) })
	for p, r := range c.Policy {
		c.Policy[p] = strings.TrimSpace(r)
	}
	c.Worth.Values = upperKeys(c.Worth.Values)
	c.Level.Values = upperKeys(c.Level.Values)
	c.Limits.Blocks = upperKeys(c.Limits.Blocks)
	c.Limits.Entities = upperKeys(c.Limits.Entities)
	if strings.TrimSpace(c.Worth.Default) == "" {
		c.Worth.Default = "0"
	}
	if strings.TrimSpace(c.Level.Default) == "" {
		c.Level.Default = "0"
	}
	if c.Size <= 0 {
		c.Size = 1
	}
	if c.RecalcTimeout <= 0 {
		c.RecalcTimeout = territory.DefaultRecalcTimeout
	}
	if c.SaveTimeout <= 0 {
		c.SaveTimeout = territory.DefaultSaveTimeout
	}
}

func upperKeys[V any](m map[string]V) map[string]V {
	return normalizeKeys(m, keys.Normalize)
}

// normalizeKeys rewrites keys into canonical form. When two spellings collide
// the non-canonical one wins: defaults are canonical, and yaml merges file
// entries into the default maps.
func normalizeKeys[V any](m map[string]V, canon func(string) string) map[string]V {
	if m == nil {
		return nil
	}
	out := make(map[string]V, len(m))
	for k, v := range m {
		if canon(k) == k {
			out[k] = v
		}
	}
	for k, v := range m {
		if ck := canon(k); ck != k {
			out[ck] = v
		}
	}
	return out
}

func (c Config) Validate() error {
	c.Normalize()
	if len(c.Policy) == 0 {
		return fmt.Errorf("policy must not be empty")
	}
	for p, r := range c.Policy {
		if p == "" {
			return fmt.Errorf("policy has an empty privilege name")
		}
		if _, err := identity.ParseRole(r); err != nil {
			return fmt.Errorf("policy %s: %w", p, err)
		}
	}
	if _, err := c.Worth.table(); err != nil {
		return fmt.Errorf("worth: %w", err)
	}
	if _, err := c.Level.table(); err != nil {
		return fmt.Errorf("level: %w", err)
	}
	for k, n := range c.Limits.Blocks {
		if n < -1 {
			return fmt.Errorf("limits.blocks %s must be >= -1", k)
		}
	}
	for k, n := range c.Limits.Entities {
		if n < -1 {
			return fmt.Errorf("limits.entities %s must be >= -1", k)
		}
	}
	if c.Limits.Team == 0 || c.Limits.Team < -1 {
		return fmt.Errorf("limits.team must be >= 1 or -1")
	}
	if c.Limits.Warps < -1 || c.Limits.Coops < -1 {
		return fmt.Errorf("limits.warps and limits.coops must be >= -1")
	}
	for env, table := range c.Generators {
		if _, err := territory.ParseEnvironment(env); err != nil {
			return fmt.Errorf("generators: %w", err)
		}
		for k, w := range table {
			if w < 0 {
				return fmt.Errorf("generators.%s.%s must be >= 0", env, k)
			}
		}
	}
	return nil
}

func (c Config) RolePolicy() (privilege.Policy, error) {
	table := make(map[privilege.Privilege]identity.Role, len(c.Policy))
	for p, r := range c.Policy {
		role, err := identity.ParseRole(r)
		if err != nil {
			return privilege.Policy{}, fmt.Errorf("policy %s: %w", p, err)
		}
		table[privilege.Privilege(p)] = role
	}
	return privilege.NewPolicy(table), nil
}

func (p PriceSpec) table() (map[string]decimal.Decimal, error) {
	out := make(map[string]decimal.Decimal, len(p.Values))
	for k, v := range p.Values {
		d, err := decimal.NewFromString(strings.TrimSpace(v))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", k, err)
		}
		out[k] = d
	}
	return out, nil
}

func (c Config) Pricing() (ledger.PriceTable, error) {
	worth, err := c.Worth.table()
	if err != nil {
		return ledger.PriceTable{}, fmt.Errorf("worth: %w", err)
	}
	level, err := c.Level.table()
	if err != nil {
		return ledger.PriceTable{}, fmt.Errorf("level: %w", err)
	}
	defWorth, err := decimal.NewFromString(c.Worth.Default)
	if err != nil {
		return ledger.PriceTable{}, fmt.Errorf("worth.default: %w", err)
	}
	defLevel, err := decimal.NewFromString(c.Level.Default)
	if err != nil {
		return ledger.PriceTable{}, fmt.Errorf("level.default: %w", err)
	}
	return ledger.PriceTable{
		WorthByKey:   worth,
		LevelByKey:   level,
		DefaultWorth: defWorth,
		DefaultLevel: defLevel,
	}, nil
}

func (c Config) KeyEquivalence() keys.Equivalence {
	if len(c.Equivalence) == 0 {
		return keys.Exact{}
	}
	return keys.NewGroups(c.Equivalence)
}

func (c Config) LimitDefaults() limits.Defaults {
	return limits.Defaults{
		Blocks:   c.Limits.Blocks,
		Entities: c.Limits.Entities,
		Team:     c.Limits.Team,
		Warps:    c.Limits.Warps,
		Coops:    c.Limits.Coops,
	}
}

func (c Config) GeneratorDefaults() (map[territory.Environment]map[string]int64, error) {
	out := make(map[territory.Environment]map[string]int64, len(c.Generators))
	for name, table := range c.Generators {
		env, err := territory.ParseEnvironment(name)
		if err != nil {
			return nil, err
		}
		out[env] = table
	}
	return out, nil
}

// TerritoryOptions turns the rules into territory options. Collaborators,
// owner and bounds are left for the caller.
func (c Config) TerritoryOptions() (territory.Options, error) {
	policy, err := c.RolePolicy()
	if err != nil {
		return territory.Options{}, err
	}
	pricing, err := c.Pricing()
	if err != nil {
		return territory.Options{}, err
	}
	gens, err := c.GeneratorDefaults()
	if err != nil {
		return territory.Options{}, err
	}
	return territory.Options{
		Policy:        policy,
		Pricing:       pricing,
		Equivalence:   c.KeyEquivalence(),
		Limits:        c.LimitDefaults(),
		Generators:    gens,
		Size:          c.Size,
		RecalcTimeout: c.RecalcTimeout,
		SaveTimeout:   c.SaveTimeout,
	}, nil
}

// PolicyRows lists the policy sorted by privilege, for display.
func (c Config) PolicyRows() [][2]string {
	rows := make([][2]string, 0, len(c.Policy))
	for p, r := range c.Policy {
		rows = append(rows, [2]string{p, r})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i][0] < rows[j][0] })
	return rows
}
