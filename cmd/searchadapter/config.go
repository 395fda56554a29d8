package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/danmuck/nerve-search-adapter/internal/adapter"
	"github.com/danmuck/nerve-search-adapter/internal/logging"
	"github.com/danmuck/nerve-search-adapter/internal/search"
)

type fileConfig struct {
	SocketPath         string   `toml:"socket_path"`
	IndexPath          string   `toml:"index_path"`
	ResultLimit        int      `toml:"result_limit"`
	Snippets           bool     `toml:"snippets"`
	Explain            bool     `toml:"explain"`
	Sort               string   `toml:"sort"`
	Domains            []string `toml:"domains"`
	ExcludeDomains     []string `toml:"exclude_domains"`
	MinQuality         float64  `toml:"min_quality"`
	MetricsAddr        string   `toml:"metrics_addr"`
	MaxConnectAttempts int      `toml:"max_connect_attempts"`
	ConnectTimeout     string   `toml:"connect_timeout"`
	WriteTimeout       string   `toml:"write_timeout"`
	LogLevel           string   `toml:"log_level"`
}

// appConfig is the resolved process configuration.
type appConfig struct {
	SocketPath  string
	IndexPath   string
	MetricsAddr string
	LogLevel    string
	Adapter     adapter.Config
}

func defaultAppConfig() appConfig {
	return appConfig{
		SocketPath: "/tmp/nerve.sock",
		IndexPath:  "search_index/index.db",
		Adapter:    adapter.DefaultConfig(),
	}
}

func loadAppConfig(path string) (appConfig, error) {
	cfg := defaultAppConfig()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return appConfig{}, fmt.Errorf("load adapter config: %w", err)
	}

	if meta.IsDefined("socket_path") {
		if v := strings.TrimSpace(raw.SocketPath); v != "" {
			cfg.SocketPath = v
		}
	}

	if meta.IsDefined("index_path") {
		if v := strings.TrimSpace(raw.IndexPath); v != "" {
			cfg.IndexPath = v
		}
	}

	if meta.IsDefined("result_limit") {
		if raw.ResultLimit <= 0 {
			return appConfig{}, fmt.Errorf("result_limit must be positive, got %d", raw.ResultLimit)
		}
		cfg.Adapter.Query.Limit = raw.ResultLimit
	}

	if meta.IsDefined("snippets") {
		cfg.Adapter.Query.Options.Snippets = raw.Snippets
	}

	if meta.IsDefined("explain") {
		cfg.Adapter.Query.Options.Explain = raw.Explain
	}

	if meta.IsDefined("sort") {
		sortBy, ok := search.ParseSortBy(raw.Sort)
		if !ok {
			return appConfig{}, fmt.Errorf("parse sort: unknown order %q", raw.Sort)
		}
		cfg.Adapter.Query.Sort = sortBy
	}

	if meta.IsDefined("domains") {
		cfg.Adapter.Query.Filter.Domains = normalizeDomains(raw.Domains)
	}

	if meta.IsDefined("exclude_domains") {
		cfg.Adapter.Query.Filter.ExcludeDomains = normalizeDomains(raw.ExcludeDomains)
	}

	if meta.IsDefined("min_quality") {
		cfg.Adapter.Query.Filter.MinQuality = raw.MinQuality
	}

	if meta.IsDefined("metrics_addr") {
		cfg.MetricsAddr = strings.TrimSpace(raw.MetricsAddr)
	}

	if meta.IsDefined("max_connect_attempts") {
		cfg.Adapter.Session.MaxConnectAttempts = raw.MaxConnectAttempts
	}

	if meta.IsDefined("connect_timeout") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.ConnectTimeout))
		if err != nil {
			return appConfig{}, fmt.Errorf("parse connect_timeout: %w", err)
		}
		cfg.Adapter.Session.ConnectTimeout = d
	}

	if meta.IsDefined("write_timeout") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.WriteTimeout))
		if err != nil {
			return appConfig{}, fmt.Errorf("parse write_timeout: %w", err)
		}
		cfg.Adapter.Session.WriteTimeout = d
	}

	if meta.IsDefined("log_level") {
		v := strings.TrimSpace(raw.LogLevel)
		if _, ok := logging.ParseLevel(v); !ok {
			return appConfig{}, fmt.Errorf("parse log_level: unknown level %q", raw.LogLevel)
		}
		cfg.LogLevel = v
	}

	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return appConfig{}, fmt.Errorf("unknown config key %q", undecoded[0].String())
	}

	return cfg, nil
}

func normalizeDomains(in []string) []string {
	if len(in) == 0 {
		return []string{}
	}
	out := make([]string, 0, len(in))
	for _, d := range in {
		v := strings.ToLower(strings.TrimSpace(d))
		if v == "" {
			continue
		}
		out = append(out, v)
	}
	return out
}
