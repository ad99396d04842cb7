package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithParseTime(t *testing.T) {
	cases := []string{
		"user:pass@tcp(127.0.0.1:3306)/covers",
		"user:pass@tcp(127.0.0.1:3306)/covers?charset=utf8mb4",
		"user:pass@tcp(127.0.0.1:3306)/covers?parseTime=false",
	}
	for _, dsn := range cases {
		t.Run(dsn, func(t *testing.T) {
			got, err := withParseTime(dsn)
			require.NoError(t, err)
			assert.Contains(t, got, "parseTime=true")
		})
	}

	_, err := withParseTime("not a dsn")
	assert.Error(t, err)
}

func TestMigrationsEmbedded(t *testing.T) {
	entries, err := fs.ReadDir("migrations")
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}
