package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

// writeConfigFile writes a YAML config fixture and returns its path.
func writeConfigFile(t *testing.T, content map[string]any) string {
	t.Helper()

	data, err := yaml.Marshal(content)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, data, 0644))
	return path
}

func TestLoad(t *testing.T) {
	t.Run("loads a complete config file", func(t *testing.T) {
		path := writeConfigFile(t, map[string]any{
			"logging": map[string]any{
				"level":  "DEBUG",
				"format": "json",
				"output": "stderr",
			},
			"store": map[string]any{
				"type": "memory",
				"memory": map[string]any{
					"max_link_depth":       40,
					"transfer_buffer_size": 4096,
				},
			},
		})

		cfg, err := Load(path)
		require.NoError(t, err)

		assert.Equal(t, "DEBUG", cfg.Logging.Level)
		assert.Equal(t, "json", cfg.Logging.Format)
		assert.Equal(t, "stderr", cfg.Logging.Output)
		assert.Equal(t, "memory", cfg.Store.Type)
		assert.Equal(t, 40, cfg.Store.Memory["max_link_depth"])
	})

	t.Run("missing file falls back to defaults", func(t *testing.T) {
		cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		require.NoError(t, err)

		assert.Equal(t, "INFO", cfg.Logging.Level)
		assert.Equal(t, "text", cfg.Logging.Format)
		assert.Equal(t, "stdout", cfg.Logging.Output)
		assert.Equal(t, "memory", cfg.Store.Type)
	})

	t.Run("lowercase level is normalized", func(t *testing.T) {
		path := writeConfigFile(t, map[string]any{
			"logging": map[string]any{"level": "debug"},
		})

		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, "DEBUG", cfg.Logging.Level)
	})

	t.Run("invalid level is rejected", func(t *testing.T) {
		path := writeConfigFile(t, map[string]any{
			"logging": map[string]any{"level": "LOUD"},
		})

		_, err := Load(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "validation")
	})

	t.Run("invalid store type is rejected", func(t *testing.T) {
		path := writeConfigFile(t, map[string]any{
			"store": map[string]any{"type": "disk"},
		})

		_, err := Load(path)
		require.Error(t, err)
	})

	t.Run("unknown memory option is rejected", func(t *testing.T) {
		path := writeConfigFile(t, map[string]any{
			"store": map[string]any{
				"type":   "memory",
				"memory": map[string]any{"cache_size": 10},
			},
		})

		_, err := Load(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown option")
	})

	t.Run("malformed yaml fails", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte("logging: [unclosed"), 0644))

		_, err := Load(path)
		require.Error(t, err)
	})
}

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	assert.Equal(t, "INFO", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
	assert.Equal(t, "stdout", cfg.Logging.Output)
	assert.Equal(t, "memory", cfg.Store.Type)

	// Explicit values survive.
	cfg = &Config{Logging: LoggingConfig{Level: "warn", Format: "json"}}
	ApplyDefaults(cfg)
	assert.Equal(t, "WARN", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestGetDefaultConfigPath(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/custom/config")
	assert.Equal(t, "/custom/config/memvfs/config.yaml", GetDefaultConfigPath())
}
