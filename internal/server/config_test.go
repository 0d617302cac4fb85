package server

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadSettingsYAML(t *testing.T) {
	path := writeFile(t, "dialogue.yaml", `
dialogue:
  skin: parchment
  characters_per_second: 45
  typewriter: false
  tick_hz: 30
`)
	s, err := loadSettingsFromFile(path, DefaultSettings())
	require.NoError(t, err)
	assert.Equal(t, "parchment", s.Presentation.Skin)
	assert.Equal(t, 45.0, s.Presentation.CharactersPerSecond)
	assert.False(t, s.Presentation.TypewriterEnabled)
	assert.Equal(t, "mouse0", s.Presentation.SkipKey, "unset fields keep defaults")
	assert.Equal(t, 30.0, s.TickHz)
}

func TestLoadSettingsJSON(t *testing.T) {
	path := writeFile(t, "world.json", `{"dialogue": {"skipKey": "space", "revisitChoiceOpacity": 3}}`)
	s, err := loadSettingsFromFile(path, DefaultSettings())
	require.NoError(t, err)
	assert.Equal(t, "space", s.Presentation.SkipKey)
	assert.Equal(t, 1.0, s.Presentation.RevisitChoiceOpacity, "clamped")
}

func TestLoadSettingsMissingAndBroken(t *testing.T) {
	s, err := loadSettingsFromFile(filepath.Join(t.TempDir(), "nope.yaml"), DefaultSettings())
	require.NoError(t, err)
	assert.Equal(t, DefaultSettings(), s)

	path := writeFile(t, "bad.yaml", "dialogue: [1, 2")
	_, err = loadSettingsFromFile(path, DefaultSettings())
	assert.Error(t, err)
}

func TestOverridesWinOverFile(t *testing.T) {
	path := writeFile(t, "dialogue.yaml", "dialogue:\n  skin: parchment\n  tick_hz: 30\n")
	skin := "neon"
	bad := -5.0
	cfg := AppConfig{WorldPath: path, Overrides: Overrides{Skin: &skin, TickHz: &bad}}

	s := ResolveSettings(cfg, quietLogger())
	assert.Equal(t, "neon", s.Presentation.Skin)
	assert.Equal(t, DefaultSettings().TickHz, s.TickHz, "out of range tick rate falls back")
}

func TestDefaultAppConfigFromEnv(t *testing.T) {
	t.Setenv("DIALOGUE_ADDR", ":9999")
	t.Setenv("DIALOGUE_STORE", "sqlite")
	t.Setenv("SQLITE_PATH", "/tmp/x.db")
	t.Setenv("DIALOGUE_SEED", "42")

	cfg := DefaultAppConfig()
	assert.Equal(t, ":9999", cfg.Addr)
	assert.Equal(t, "sqlite", cfg.Store.Backend)
	assert.Equal(t, "/tmp/x.db", cfg.Store.SQLitePath)
	assert.Equal(t, int64(42), cfg.Seed)
	assert.Equal(t, "configs/dialogue.yaml", cfg.WorldPath)
}

func TestLoadDotEnv(t *testing.T) {
	path := writeFile(t, ".env", "DIALOGUE_TEST_DOTENV=loaded\n")
	t.Setenv("DIALOGUE_TEST_DOTENV", "")
	os.Unsetenv("DIALOGUE_TEST_DOTENV")

	LoadDotEnv(quietLogger(), path, filepath.Join(t.TempDir(), "missing.env"))
	assert.Equal(t, "loaded", os.Getenv("DIALOGUE_TEST_DOTENV"))
}
