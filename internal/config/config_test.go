package config

import (
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{
		"APP_PORT", "DB_DSN", "REDIS_ADDR", "CACHE_TTL", "COVER_MAX_WIDTH", "COVER_QUALITY",
		"COVER_BACKEND", "COVER_WORKERS", "COVER_OCR", "ALLOWED_FILE_EXT", "ALLOWED_MAX_FILE_SIZE",
	} {
		t.Setenv(k, "")
	}
	c := Load()

	assert.Equal(t, "8080", c.AppPort)
	assert.Empty(t, c.DBDSN)
	assert.Empty(t, c.RedisAddr)
	assert.Equal(t, 24*time.Hour, c.CacheTTL)
	assert.Equal(t, 1080, c.CoverMaxWidth)
	assert.Equal(t, 85, c.CoverQuality)
	assert.Equal(t, "go", c.CoverBackend)
	assert.Equal(t, max(runtime.NumCPU(), 1), c.CoverWorkers)
	assert.False(t, c.CoverOCR)
	assert.Equal(t, 10, c.AllowedMaxFileSize)
	assert.Equal(t, []string{".jpg", ".jpeg", ".png", ".webp"}, c.AllowedFileExt)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("COVER_MAX_WIDTH", "720")
	t.Setenv("COVER_WORKERS", "0")
	t.Setenv("COVER_OCR", "true")
	t.Setenv("CACHE_TTL", "90m")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example,")
	c := Load()

	assert.Equal(t, 720, c.CoverMaxWidth)
	assert.Equal(t, 1, c.CoverWorkers)
	assert.True(t, c.CoverOCR)
	assert.Equal(t, 90*time.Minute, c.CacheTTL)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, c.CORSOrigins)
}

func TestGetEnvInt(t *testing.T) {
	cases := []struct {
		val  string
		want int
	}{
		{"", 7},
		{"12", 12},
		{"twelve", 7},
	}
	for _, c := range cases {
		t.Run(c.val, func(t *testing.T) {
			t.Setenv("SOME_INT", c.val)
			assert.Equal(t, c.want, GetEnvInt("SOME_INT", 7))
		})
	}
}
