package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fullYAML = `
server:
  host: "127.0.0.1"
  port: 8081
  shutdown_timeout: 5s
  max_upload_size_mb: 20
processing:
  task_timeout: 120s
  cache_ttl: 30m
  workers: 8
analysis:
  group_by: week
  wait_threshold: 12h
  top_reactions: 3
  normalize_hours: true
logging:
  level: "debug"
  format: "text"
`

// partialYAML задает только часть полей, остальные должны остаться по умолчанию.
const partialYAML = `
processing:
  workers: 2
`

func createTempConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	err := os.WriteFile(path, []byte(content), 0644)
	require.NoError(t, err)
	return path
}

func TestLoadFromYAML(t *testing.T) {
	t.Run("все секции", func(t *testing.T) {
		cfg := defaultConfig()
		err := loadFromYAML(createTempConfigFile(t, fullYAML), cfg)
		require.NoError(t, err)

		assert.Equal(t, "127.0.0.1:8081", cfg.Address())
		assert.Equal(t, 5*time.Second, cfg.Server.ShutdownTimeout)
		assert.Equal(t, int64(20<<20), cfg.MaxUploadBytes())
		assert.Equal(t, 120*time.Second, cfg.Processing.TaskTimeout)
		assert.Equal(t, 30*time.Minute, cfg.Processing.CacheTTL)
		assert.Equal(t, 8, cfg.Processing.Workers)
		assert.Equal(t, "week", cfg.Analysis.GroupBy)
		assert.Equal(t, 12*time.Hour, cfg.Analysis.WaitThreshold)
		assert.Equal(t, 3, cfg.Analysis.TopReactions)
		assert.True(t, cfg.Analysis.NormalizeHours)
		assert.Equal(t, "debug", cfg.Logging.Level)
		assert.Equal(t, "text", cfg.Logging.Format)
		assert.NoError(t, cfg.Validate())
	})

	t.Run("частичный файл сохраняет значения по умолчанию", func(t *testing.T) {
		cfg := defaultConfig()
		require.NoError(t, loadFromYAML(createTempConfigFile(t, partialYAML), cfg))

		assert.Equal(t, 2, cfg.Processing.Workers)
		assert.Equal(t, DefaultCacheTTL, cfg.Processing.CacheTTL)
		assert.Equal(t, DefaultServerPort, cfg.Server.Port)
		assert.Equal(t, DefaultGroupBy, cfg.Analysis.GroupBy)
	})

	t.Run("отсутствие файла не ошибка", func(t *testing.T) {
		cfg := defaultConfig()
		err := loadFromYAML("non_existent_file.yml", cfg)
		assert.NoError(t, err)
	})

	t.Run("некорректный yaml", func(t *testing.T) {
		cfg := defaultConfig()
		err := loadFromYAML(createTempConfigFile(t, "invalid yaml: {"), cfg)
		assert.Error(t, err)
	})
}

func TestApplyEnv(t *testing.T) {
	t.Run("переменные окружения переопределяют файл", func(t *testing.T) {
		t.Setenv("SERVER_PORT", "9090")
		t.Setenv("WORKERS", "3")
		t.Setenv("WAIT_THRESHOLD", "90m")
		t.Setenv("LOG_LEVEL", "warn")

		cfg := defaultConfig()
		require.NoError(t, applyEnv(cfg))

		assert.Equal(t, 9090, cfg.Server.Port)
		assert.Equal(t, 3, cfg.Processing.Workers)
		assert.Equal(t, 90*time.Minute, cfg.Analysis.WaitThreshold)
		assert.Equal(t, "warn", cfg.Logging.Level)
	})

	t.Run("некорректный порт", func(t *testing.T) {
		t.Setenv("SERVER_PORT", "http")
		assert.Error(t, applyEnv(defaultConfig()))
	})

	t.Run("некорректная длительность", func(t *testing.T) {
		t.Setenv("WAIT_THRESHOLD", "сутки")
		assert.Error(t, applyEnv(defaultConfig()))
	})
}

func TestLoadConfig(t *testing.T) {
	t.Setenv("WORKERS", "6")
	cfg, err := LoadConfig(createTempConfigFile(t, fullYAML))
	require.NoError(t, err)
	assert.Equal(t, 6, cfg.Processing.Workers)
	assert.Equal(t, 8081, cfg.Server.Port)

	_, err = LoadConfig(createTempConfigFile(t, "processing:\n  workers: -1\n"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	testCases := []struct {
		name    string
		mutator func(*Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"invalid port", func(c *Config) { c.Server.Port = 0 }, true},
		{"invalid shutdown timeout", func(c *Config) { c.Server.ShutdownTimeout = 0 }, true},
		{"invalid upload size", func(c *Config) { c.Server.MaxUploadSizeMB = 0 }, true},
		{"invalid cleanup interval", func(c *Config) { c.Server.CleanupInterval = 0 }, true},
		{"invalid task_timeout", func(c *Config) { c.Processing.TaskTimeout = -1 }, true},
		{"unlimited task_timeout", func(c *Config) { c.Processing.TaskTimeout = 0 }, false},
		{"invalid cache_ttl", func(c *Config) { c.Processing.CacheTTL = 0 }, true},
		{"invalid workers", func(c *Config) { c.Processing.Workers = 0 }, true},
		{"invalid group_by", func(c *Config) { c.Analysis.GroupBy = "year" }, true},
		{"negative wait_threshold", func(c *Config) { c.Analysis.WaitThreshold = -time.Second }, true},
		{"disabled wait_threshold", func(c *Config) { c.Analysis.WaitThreshold = 0 }, false},
		{"invalid top_reactions", func(c *Config) { c.Analysis.TopReactions = 0 }, true},
		{"invalid logging level", func(c *Config) { c.Logging.Level = "wrong" }, true},
		{"invalid logging format", func(c *Config) { c.Logging.Format = "xml" }, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := defaultConfig()
			tc.mutator(cfg)
			err := cfg.Validate()
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
