package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.toml"))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "pebble", cfg.Storage.Driver)
	assert.Equal(t, "gemini-2.5-flash", cfg.LLM.Model)
	assert.InDelta(t, 0.2, cfg.LLM.Temperature, 1e-9)
	assert.Equal(t, 3, cfg.LLM.MemoryConversations)
	assert.Equal(t, "he-IL", cfg.Features.SpeechLocale)
	assert.False(t, cfg.NeedsMySQL())
}

func TestLoadFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[app]
port = 9090

[storage]
driver = "memory"
namespace = "exam"

[llm]
model = "gemini-2.0-flash"
refine_enabled = false

[rabbitmq]
enabled = true
`), 0o600))
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("LLM_MODEL", "gemini-2.5-pro")
	t.Setenv("LLM_TEMPERATURE", "0.5")
	t.Setenv("FEATURE_KEY_PICKER", "true")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:9090", cfg.HTTPAddr())
	assert.Equal(t, "memory", cfg.Storage.Driver)
	assert.Equal(t, "exam", cfg.Storage.Namespace)
	assert.Equal(t, "gemini-2.5-pro", cfg.LLM.Model)
	assert.InDelta(t, 0.5, cfg.LLM.Temperature, 1e-9)
	assert.False(t, cfg.LLM.RefineEnabled)
	assert.True(t, cfg.Features.KeyPicker)
	assert.True(t, cfg.NeedsMySQL())
}

func TestValidate(t *testing.T) {
	cfg := defaultConfig()
	require.NoError(t, cfg.Validate())

	cfg.Storage.Driver = "sqlite"
	assert.Error(t, cfg.Validate())

	cfg = defaultConfig()
	cfg.Storage.Driver = "redis"
	assert.ErrorContains(t, cfg.Validate(), "redis.enabled")

	cfg = defaultConfig()
	cfg.Storage.Namespace = " "
	assert.Error(t, cfg.Validate())
}

func TestMySQLDSN(t *testing.T) {
	cfg := defaultConfig()
	cfg.MySQL.Password = "pw"
	assert.Equal(t, "root:pw@tcp(127.0.0.1:3306)/studymate?parseTime=true&loc=Local&charset=utf8mb4", cfg.MySQLDSN())
}
