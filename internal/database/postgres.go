package database

import (
	"errors"
	"fmt"
	"maps"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func openPostgres(cfg Config) (*gorm.DB, error) {
	dsn, err := buildPostgresDSN(cfg)
	if err != nil {
		return nil, err
	}
	return gorm.Open(postgres.Open(dsn), gormConfig(cfg))
}

func buildPostgresDSN(cfg Config) (string, error) {
	if cfg.DSN != "" {
		return cfg.DSN, nil
	}
	if err := requireCredentials("postgres", cfg); err != nil {
		return "", err
	}

	host, port := endpoint(cfg, "localhost", 5432)
	parts := []string{
		"host=" + host,
		"port=" + strconv.Itoa(port),
		"user=" + cfg.User,
		"dbname=" + cfg.Name,
	}
	if cfg.Password != "" {
		parts = append(parts, "password="+cfg.Password)
	}

	options := mergeOptions(map[string]string{"sslmode": "disable"}, cfg.Options)
	for _, key := range slices.Sorted(maps.Keys(options)) {
		parts = append(parts, key+"="+options[key])
	}
	return strings.Join(parts, " "), nil
}

// HostedConfig derives a postgres connection for a hosted Supabase project
// from its project URL (https://<ref>.supabase.co) and database credential.
func HostedConfig(projectURL, credential string) (Config, error) {
	u, err := url.Parse(strings.TrimSpace(projectURL))
	if err != nil {
		return Config{}, fmt.Errorf("parse hosted datastore url: %w", err)
	}
	host := u.Hostname()
	ref, _, ok := strings.Cut(host, ".")
	if !ok || ref == "" || !strings.HasSuffix(host, ".supabase.co") {
		return Config{}, fmt.Errorf("unrecognised hosted datastore url %q", projectURL)
	}
	if strings.TrimSpace(credential) == "" {
		return Config{}, errors.New("hosted datastore credential is required")
	}

	return Config{
		Driver:   "postgres",
		Host:     "db." + ref + ".supabase.co",
		Port:     5432,
		Name:     "postgres",
		User:     "postgres",
		Password: credential,
		Options:  map[string]string{"sslmode": "require"},
	}, nil
}
