package database

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildPostgresDSN(t *testing.T) {
	dsn, err := buildPostgresDSN(Config{User: "waitlist", Name: "waitlist"})
	require.NoError(t, err)
	require.Equal(t, "host=localhost port=5432 user=waitlist dbname=waitlist sslmode=disable", dsn)

	dsn, err = buildPostgresDSN(Config{
		User:     "user",
		Name:     "db",
		Host:     "db.example.com",
		Port:     6543,
		Password: "pass",
		Options:  map[string]string{"sslmode": "require", "search_path": "public"},
	})
	require.NoError(t, err)
	require.Equal(t, "host=db.example.com port=6543 user=user dbname=db password=pass search_path=public sslmode=require", dsn)

	_, err = buildPostgresDSN(Config{})
	require.Error(t, err)

	dsn, err = buildPostgresDSN(Config{DSN: "postgres://override"})
	require.NoError(t, err)
	require.Equal(t, "postgres://override", dsn)
}

func TestBuildMySQLDSN(t *testing.T) {
	dsn, err := buildMySQLDSN(Config{
		User:     "user",
		Password: "secret",
		Name:     "db",
		Host:     "db.example.com",
		Port:     3307,
		Options:  map[string]string{"tls": "skip-verify"},
	})
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(dsn, "user:secret@tcp(db.example.com:3307)/db?"), dsn)
	for _, part := range []string{"parseTime=true", "charset=utf8mb4", "tls=skip-verify"} {
		require.Contains(t, dsn, part)
	}

	dsn, err = buildMySQLDSN(Config{User: "waitlist", Name: "waitlist"})
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(dsn, "waitlist@tcp(127.0.0.1:3306)/waitlist?"), dsn)

	_, err = buildMySQLDSN(Config{Host: "localhost"})
	require.Error(t, err)
}

func TestSQLiteDSN(t *testing.T) {
	dsn, err := sqliteDSN(Config{})
	require.NoError(t, err)
	require.Equal(t, sqliteMemoryDSN, dsn)

	dsn, err = sqliteDSN(Config{Path: ":MEMORY:"})
	require.NoError(t, err)
	require.Equal(t, sqliteMemoryDSN, dsn)

	path := filepath.Join(t.TempDir(), "data", "waitlist.db")
	dsn, err = sqliteDSN(Config{Path: path})
	require.NoError(t, err)
	require.Contains(t, dsn, "_journal_mode=WAL")
	require.Contains(t, dsn, "_busy_timeout=5000")

	info, err := os.Stat(filepath.Dir(path))
	require.NoError(t, err)
	require.True(t, info.IsDir())
}

func TestHostedConfig(t *testing.T) {
	cfg, err := HostedConfig("https://abcd1234.supabase.co", "service-secret")
	require.NoError(t, err)
	require.Equal(t, "postgres", cfg.Driver)
	require.Equal(t, "db.abcd1234.supabase.co", cfg.Host)

	dsn, err := buildPostgresDSN(cfg)
	require.NoError(t, err)
	require.Contains(t, dsn, "host=db.abcd1234.supabase.co")
	require.Contains(t, dsn, "password=service-secret")
	require.Contains(t, dsn, "sslmode=require")

	_, err = HostedConfig("https://example.com", "secret")
	require.Error(t, err)
	_, err = HostedConfig("https://abcd.supabase.co", " ")
	require.Error(t, err)
}

func TestMergeOptionsLeavesInputsUntouched(t *testing.T) {
	defaults := map[string]string{"sslmode": "disable"}
	merged := mergeOptions(defaults, map[string]string{"sslmode": "require"})
	require.Equal(t, "require", merged["sslmode"])
	require.Equal(t, "disable", defaults["sslmode"])
}
