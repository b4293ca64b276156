package database

import (
	"fmt"
	"maps"
	"strings"
)

func requireCredentials(driver string, cfg Config) error {
	if strings.TrimSpace(cfg.User) == "" || strings.TrimSpace(cfg.Name) == "" {
		return fmt.Errorf("%s configuration requires user and database name", driver)
	}
	return nil
}

func endpoint(cfg Config, defaultHost string, defaultPort int) (string, int) {
	host, port := strings.TrimSpace(cfg.Host), cfg.Port
	if host == "" {
		host = defaultHost
	}
	if port <= 0 {
		port = defaultPort
	}
	return host, port
}

// mergeOptions returns defaults overlaid with overrides. Neither input is modified.
func mergeOptions(defaults, overrides map[string]string) map[string]string {
	merged := make(map[string]string, len(defaults)+len(overrides))
	maps.Copy(merged, defaults)
	maps.Copy(merged, overrides)
	return merged
}
