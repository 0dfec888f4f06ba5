package main

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"skyclaim.ai/internal/config"
	"skyclaim.ai/internal/persistence/journal"
	"skyclaim.ai/internal/persistence/snapshot"
)

var repoConfig = filepath.Join("..", "..", "configs", "territory.yaml")

func testApp(t *testing.T) *app {
	t.Helper()
	return &app{
		env: config.Env{
			LogLevel:   "error",
			ConfigPath: repoConfig,
			SchemaPath: filepath.Join("..", "..", "schemas", "territory.schema.json"),
			DataDir:    t.TempDir(),
		},
		log: zap.NewNop(),
	}
}

func run(t *testing.T, a *app, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd(a)
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestParsePairs(t *testing.T) {
	got, err := parsePairs([]string{"cobblestone=80", " IRON_ORE = 20"})
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"cobblestone": 80, "IRON_ORE": 20}, got)

	for _, bad := range []string{"nokey", "=5", "STONE=x", "STONE=-1"} {
		_, err := parsePairs([]string{bad})
		assert.Error(t, err, bad)
	}
}

func TestGeneratorCmd(t *testing.T) {
	out, err := run(t, testApp(t), "generator", "COBBLESTONE=90", "IRON_ORE=10")
	require.NoError(t, err)
	assert.Contains(t, out, "COBBLESTONE")
	assert.Regexp(t, `COBBLESTONE\s+90\s+90%`, out)
	assert.Regexp(t, `IRON_ORE\s+10\s+10%`, out)

	out, err = run(t, testApp(t), "generator", "COBBLESTONE=1", "--set", "DIAMOND_ORE=100")
	require.NoError(t, err)
	assert.Regexp(t, `DIAMOND_ORE\s+1\s+100%`, out)
	assert.NotContains(t, out, "COBBLESTONE")

	out, err = run(t, testApp(t), "generator", "STONE=2", "COAL_ORE=1", "--array")
	require.NoError(t, err)
	assert.Equal(t, "STONE STONE COAL_ORE\n", out)
}

func TestPolicyCmd(t *testing.T) {
	out, err := run(t, testApp(t), "policy", "--role", "coop")
	require.NoError(t, err)
	assert.Contains(t, out, "INTERACT")
	assert.Contains(t, out, "MONSTER_DAMAGE")
	assert.NotContains(t, out, "DISBAND")
}

func TestDemoWritesSinksAndSnapshot(t *testing.T) {
	a := testApp(t)
	cfg, err := config.Load(repoConfig)
	require.NoError(t, err)
	s, closeSinks, err := openSinks(a, false)
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, runDemo(context.Background(), &out, a, cfg, s))
	closeSinks()

	text := out.String()
	assert.Contains(t, text, "helper may build: true")
	// 12*150 + 40*20 + 3*200 from the rules file, plus 150 left in the bank.
	assert.Contains(t, text, "recalculated worth=3350")
	assert.Contains(t, text, "cow limit reached: false, hopper limit reached: false")

	files, err := filepath.Glob(filepath.Join(a.env.SnapshotDir(), "*", "*.snap.zst"))
	require.NoError(t, err)
	require.Len(t, files, 1)
	v, err := snapshot.LoadValidator(a.env.SchemaPath)
	require.NoError(t, err)
	snap, err := snapshot.Read(files[0], v)
	require.NoError(t, err)

	latest, err := journal.Latest(a.env.JournalDir(), snap.Header.TerritoryID)
	require.NoError(t, err)
	assert.NotEmpty(t, latest)

	listed, err := run(t, a, "journal", "list")
	require.NoError(t, err)
	assert.Contains(t, listed, snap.Header.TerritoryID.String())

	out2, err := run(t, a, "snapshot", "inspect", files[0])
	require.NoError(t, err)
	assert.True(t, strings.Contains(out2, snap.Header.TerritoryID.String()))

	out3, err := run(t, a, "snapshot", "archive", snap.Header.TerritoryID.String())
	require.NoError(t, err)
	assert.Contains(t, out3, "archived seq")
}
