package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skyclaim.ai/internal/territory"
	"skyclaim.ai/internal/territory/identity"
	"skyclaim.ai/internal/territory/keys"
	"skyclaim.ai/internal/territory/privilege"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "territory.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadRepoConfig(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", "configs", "territory.yaml"))
	require.NoError(t, err)

	policy, err := cfg.RolePolicy()
	require.NoError(t, err)
	r, ok := policy.Required(privilege.WithdrawMoney)
	require.True(t, ok)
	assert.Equal(t, identity.RoleCoOwner, r)

	pricing, err := cfg.Pricing()
	require.NoError(t, err)
	assert.True(t, pricing.Worth("DIAMOND_BLOCK").Equal(decimal.NewFromInt(150)))
	assert.True(t, pricing.Level("EMERALD_BLOCK").Equal(decimal.RequireFromString("1.5")))

	assert.Equal(t, 2*time.Minute, cfg.RecalcTimeout)
	assert.Equal(t, 10*time.Second, cfg.SaveTimeout)

	opts, err := cfg.TerritoryOptions()
	require.NoError(t, err)
	assert.Equal(t, int64(80), opts.Generators[territory.EnvNormal]["COBBLESTONE"])
	assert.Equal(t, int64(4), opts.Limits.Team)
	assert.True(t, keys.Matches(opts.Equivalence, "SPAWNER", "SPAWNER:PIG"))
}

func TestLoadEmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
	assert.Equal(t, territory.DefaultRecalcTimeout, cfg.RecalcTimeout)
	assert.Len(t, cfg.Policy, len(privilege.DefaultPolicy().Privileges()))
	_, isExact := cfg.KeyEquivalence().(keys.Exact)
	assert.True(t, isExact)
}

func TestLoadNormalizesKeys(t *testing.T) {
	path := writeConfig(t, `
policy:
  build: moderator
worth:
  values:
    diamond_block: "7.25"
limits:
  blocks:
    hopper: 5
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "moderator", cfg.Policy["BUILD"])
	assert.Equal(t, int64(5), cfg.Limits.Blocks["HOPPER"])

	pricing, err := cfg.Pricing()
	require.NoError(t, err)
	assert.True(t, pricing.Worth("DIAMOND_BLOCK").Equal(decimal.RequireFromString("7.25")))
}

func TestLoadRejectsBadRules(t *testing.T) {
	cases := map[string]string{
		"unknown role":  "policy:\n  BUILD: WIZARD\n",
		"bad decimal":   "worth:\n  values:\n    STONE: abc\n",
		"negative cap":  "limits:\n  blocks:\n    HOPPER: -5\n",
		"zero team":     "limits:\n  team: 0\n",
		"bad env":       "generators:\n  MOON:\n    STONE: 1\n",
		"neg generator": "generators:\n  NORMAL:\n    STONE: -1\n",
		"bad yaml":      "policy: [\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), "territory.yaml")
		})
	}
}

func TestLoadEnv(t *testing.T) {
	t.Setenv("CLAIM_LOG_LEVEL", "debug")
	t.Setenv("CLAIM_DATA_DIR", "/tmp/claims")
	t.Setenv("CLAIM_REDIS_DB", "3")
	t.Setenv("CLAIM_SQLITE_PATH", "")

	e, err := LoadEnv()
	require.NoError(t, err)
	assert.Equal(t, "debug", e.LogLevel)
	assert.Equal(t, 3, e.RedisDB)
	assert.Equal(t, filepath.Join("/tmp/claims", "index", "territories.sqlite"), e.IndexPath())
	assert.Equal(t, filepath.Join("/tmp/claims", "journal"), e.JournalDir())
	assert.Equal(t, "configs/territory.yaml", e.ConfigPath)
}

func TestParseEnvWrapsErrors(t *testing.T) {
	t.Setenv("CLAIM_REDIS_DB", "not-a-number")
	_, err := LoadEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse env")
}
