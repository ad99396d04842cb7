package telemetry

import (
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestFromEnv(t *testing.T) {
	env := map[string]string{"LOG_LEVEL": "debug", "LOG_JSON": "false", "LOG_MAX_BACKUPS": "5"}
	get := func(k, d string) string {
		if v, ok := env[k]; ok {
			return v
		}
		return d
	}
	cfg := FromEnv(get)

	assert.Equal(t, "debug", cfg.Level)
	assert.False(t, cfg.JSON)
	assert.Equal(t, 5, cfg.MaxBackups)
	assert.Equal(t, "app.log", cfg.File)
	assert.Equal(t, "bookcover_service", cfg.Service)
}

func TestInitLevel(t *testing.T) {
	file := filepath.Join(t.TempDir(), "test.log")
	cases := []struct {
		level string
		want  zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"warn", zerolog.WarnLevel},
		{"", zerolog.InfoLevel},
		{"loud", zerolog.InfoLevel},
	}
	for _, c := range cases {
		t.Run(c.level, func(t *testing.T) {
			l := Init(Config{Level: c.level, JSON: true, File: file})
			assert.Equal(t, c.want, l.GetLevel())
			assert.Equal(t, c.want, L().GetLevel())
			assert.Equal(t, c.want, Component("test").GetLevel())
		})
	}
}
