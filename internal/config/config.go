package config

import (
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	AppEnv, AppPort, BaseURL string
	DBDSN                    string
	RedisAddr                string
	RedisDB                  int
	CacheTTL                 time.Duration
	CORSOrigins              []string

	UploadDir    string
	ProcessedDir string

	CoverMaxWidth int
	CoverQuality  int
	CoverBackend  string
	CoverWorkers  int

	CoverOCR   bool
	OCRLang    string
	OCRRPS     int
	OCRBurst   int
	OCRTimeout time.Duration

	UploadRateMax      int
	AllowedMaxFileSize int
	AllowedFileExt     []string
}

// Load reads the environment, after a best-effort .env load. DB_DSN and
// REDIS_ADDR are optional; an empty value disables that backend.
func Load() *Config {
	_ = godotenv.Load()

	c := &Config{
		AppEnv:             get("APP_ENV", "dev"),
		AppPort:            get("APP_PORT", "8080"),
		BaseURL:            get("APP_BASE_URL", "http://localhost:8080"),
		DBDSN:              get("DB_DSN", ""),
		RedisAddr:          get("REDIS_ADDR", ""),
		RedisDB:            atoi(get("REDIS_DB", "0")),
		CacheTTL:           duration("CACHE_TTL", 24*time.Hour),
		CORSOrigins:        split(get("CORS_ORIGINS", "*")),
		UploadDir:          get("UPLOAD_DIR", "uploads"),
		ProcessedDir:       get("PROCESSED_DIR", "processed"),
		CoverMaxWidth:      GetEnvInt("COVER_MAX_WIDTH", 1080),
		CoverQuality:       GetEnvInt("COVER_QUALITY", 85),
		CoverBackend:       get("COVER_BACKEND", "go"),
		CoverWorkers:       GetEnvInt("COVER_WORKERS", runtime.NumCPU()),
		CoverOCR:           parseBool(get("COVER_OCR", "false")),
		OCRLang:            get("OCR_LANG", "eng"),
		OCRRPS:             GetEnvInt("OCR_RPS", 2),
		OCRBurst:           GetEnvInt("OCR_BURST", 2),
		OCRTimeout:         duration("OCR_TIMEOUT", 30*time.Second),
		UploadRateMax:      GetEnvInt("UPLOAD_RATE_MAX", 30),
		AllowedMaxFileSize: GetEnvInt("ALLOWED_MAX_FILE_SIZE", 10),
		AllowedFileExt:     GetEnvList("ALLOWED_FILE_EXT", []string{".jpg", ".jpeg", ".png", ".webp"}),
	}
	if c.CoverWorkers < 1 {
		c.CoverWorkers = 1
	}
	return c
}

func (c *Config) IsProd() bool { return c.AppEnv == "prod" || c.AppEnv == "production" }

func GetEnvInt(k string, d int) int {
	if v := os.Getenv(k); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return d
}

func GetEnvList(k string, d []string) []string {
	if v := os.Getenv(k); v != "" {
		return split(v)
	}
	return d
}

func get(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}
func atoi(s string) int       { i, _ := strconv.Atoi(s); return i }
func parseBool(s string) bool { b, _ := strconv.ParseBool(s); return b }
func duration(k string, d time.Duration) time.Duration {
	if v, err := time.ParseDuration(os.Getenv(k)); err == nil {
		return v
	}
	return d
}
func split(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func GetEnv(k, d string) string {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	return v
}
