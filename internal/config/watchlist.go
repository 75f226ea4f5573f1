package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// WatchlistConfig lists symbols added to the watchlist after login.
type WatchlistConfig struct {
	Symbols []string `yaml:"symbols"`
}

// LoadWatchlist reads and validates a watchlist YAML file. Returns an
// os.ErrNotExist-wrapped error if the file is absent (caller silently skips
// in that case). Symbols are upper-cased and de-duplicated.
func LoadWatchlist(path string) (*WatchlistConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("watchlist config: %w", err)
	}
	var raw WatchlistConfig
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("watchlist config: %w", err)
	}

	cfg := &WatchlistConfig{}
	seen := make(map[string]bool, len(raw.Symbols))
	for i, s := range raw.Symbols {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s == "" {
			return nil, fmt.Errorf("watchlist config: symbols[%d] is empty", i)
		}
		if seen[s] {
			continue
		}
		seen[s] = true
		cfg.Symbols = append(cfg.Symbols, s)
	}
	return cfg, nil
}
