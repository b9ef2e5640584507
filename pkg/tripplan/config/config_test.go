package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/tripplan/pkg/tripplan/config"
)

func TestAccessors(t *testing.T) {
	cfg := config.New(map[string]any{
		"name":    "planner",
		"retries": 3,
		"ratio":   0.5,
		"whole":   2.0,
		"frac":    2.5,
		"enabled": true,
		"timeout": "30s",
		"secs":    5,
		"tags":    []any{"a", "b"},
		"mixed":   []any{"a", 1},
	})

	assert.Equal(t, "planner", cfg.String("name", "x"))
	assert.Equal(t, "x", cfg.String("retries", "x"))
	assert.Equal(t, 3, cfg.Int("retries", 0))
	assert.Equal(t, 2, cfg.Int("whole", 0))
	assert.Equal(t, 9, cfg.Int("frac", 9))
	assert.Equal(t, 0.5, cfg.Float("ratio", 0))
	assert.Equal(t, 3.0, cfg.Float("retries", 0))
	assert.True(t, cfg.Bool("enabled", false))
	assert.Equal(t, 30*time.Second, cfg.Duration("timeout", 0))
	assert.Equal(t, 5*time.Second, cfg.Duration("secs", 0))
	assert.Equal(t, []string{"a", "b"}, cfg.StringSlice("tags", nil))
	assert.Equal(t, []string{"d"}, cfg.StringSlice("mixed", []string{"d"}))
	assert.True(t, cfg.Has("name"))
	assert.False(t, cfg.Has("nope"))
	assert.Equal(t, "dflt", cfg.Any("nope", "dflt"))
}

func TestNilMap(t *testing.T) {
	cfg := config.New(nil)
	assert.NotNil(t, cfg.Raw())
	assert.Equal(t, 7, cfg.Int("anything", 7))
}

func TestDottedPaths(t *testing.T) {
	cfg := config.New(map[string]any{
		"scoring": map[string]any{
			"neutral": 40,
			"weights": map[string]any{"climate": 1, "budget": 0.5, "bad": "x"},
			"climates": map[string]any{
				"cold": []any{"Oslo"},
			},
		},
		"log.level": "debug",
	})

	assert.Equal(t, 40.0, cfg.Float("scoring.neutral", 0))
	assert.Equal(t, map[string]float64{"climate": 1, "budget": 0.5}, cfg.FloatMap("scoring.weights", nil))
	assert.Equal(t, map[string][]string{"cold": {"Oslo"}}, cfg.StringSliceMap("scoring.climates", nil))
	assert.Equal(t, "debug", cfg.String("log.level", "info"))
	assert.Equal(t, "none", cfg.String("scoring.weights.climate.deeper", "none"))

	sub := cfg.Sub("scoring")
	assert.Equal(t, 40, sub.Int("neutral", 0))
	assert.Empty(t, cfg.Sub("missing").Raw())
	assert.Empty(t, cfg.Sub("log.level").Raw())
}

func TestStringMap(t *testing.T) {
	cfg := config.New(map[string]any{
		"labels": map[string]any{"env": "dev", "n": 1},
	})
	assert.Equal(t, map[string]string{"env": "dev"}, cfg.StringMap("labels", nil))
	assert.Equal(t, map[string]string{"d": "v"}, cfg.StringMap("missing", map[string]string{"d": "v"}))
}

func TestFromYAMLAndJSON(t *testing.T) {
	y, err := config.FromYAML([]byte("share_code:\n  length: 8\n"))
	require.NoError(t, err)
	assert.Equal(t, 8, y.Int("share_code.length", 0))

	j, err := config.FromJSON([]byte(`{"share_code": {"length": 8}}`))
	require.NoError(t, err)
	assert.Equal(t, 8, j.Int("share_code.length", 0))

	_, err = config.FromYAML([]byte("a: [unclosed"))
	assert.Error(t, err)
	_, err = config.FromJSON([]byte("{"))
	assert.Error(t, err)
}

func TestFromFile(t *testing.T) {
	dir := t.TempDir()

	yamlPath := filepath.Join(dir, "c.yml")
	require.NoError(t, os.WriteFile(yamlPath, []byte("history:\n  max_size: 5\n"), 0o600))
	cfg, err := config.FromFile(yamlPath)
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Int("history.max_size", 0))

	txtPath := filepath.Join(dir, "c.txt")
	require.NoError(t, os.WriteFile(txtPath, []byte("x"), 0o600))
	_, err = config.FromFile(txtPath)
	assert.ErrorContains(t, err, "unsupported config file extension")

	_, err = config.FromFile(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestFromFile_ExpandsEnvironment(t *testing.T) {
	t.Setenv("TRIPPLAN_TEST_DIR", "/var/lib/tripplan")
	path := filepath.Join(t.TempDir(), "c.yaml")
	require.NoError(t, os.WriteFile(path, []byte("journal:\n  path: ${TRIPPLAN_TEST_DIR}/journal.db\n"), 0o600))

	cfg, err := config.FromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/tripplan/journal.db", cfg.String("journal.path", ""))
}
