package config

import (
	"fmt"
	"os"
	"strconv"
)

type keyType int

const (
	kString keyType = iota
	kInt
	kBool
	kFloat
)

type keySpec struct {
	key     string
	typ     keyType
	env     string
	secret  bool
	apply   func(cfg *Config, v any)
	extract func(cfg Config) any
}

var specs = []keySpec{
	{
		key: "server.port", typ: kInt, env: "JOBSCOUT_SERVER_PORT",
		apply:   func(cfg *Config, v any) { cfg.Server.Port = v.(int) },
		extract: func(cfg Config) any { return cfg.Server.Port },
	},
	{
		key: "llm.base_url", typ: kString, env: "JOBSCOUT_LLM_BASE_URL",
		apply:   func(cfg *Config, v any) { cfg.LLM.BaseURL = v.(string) },
		extract: func(cfg Config) any { return cfg.LLM.BaseURL },
	},
	{
		key: "llm.model", typ: kString, env: "JOBSCOUT_LLM_MODEL",
		apply:   func(cfg *Config, v any) { cfg.LLM.Model = v.(string) },
		extract: func(cfg Config) any { return cfg.LLM.Model },
	},
	{
		key: "llm.api_key", typ: kString, env: "JOBSCOUT_LLM_API_KEY",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.LLM.APIKey = v.(string) },
		extract: func(cfg Config) any { return cfg.LLM.APIKey },
	},
	{
		key: "llm.timeout_seconds", typ: kInt, env: "JOBSCOUT_LLM_TIMEOUT_SECONDS",
		apply:   func(cfg *Config, v any) { cfg.LLM.TimeoutSeconds = v.(int) },
		extract: func(cfg Config) any { return cfg.LLM.TimeoutSeconds },
	},
	{
		key: "storage.data_dir", typ: kString, env: "JOBSCOUT_STORAGE_DATA_DIR",
		apply:   func(cfg *Config, v any) { cfg.Storage.DataDir = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.DataDir },
	},
	{
		key: "agent.preserve_known", typ: kBool, env: "JOBSCOUT_AGENT_PRESERVE_KNOWN",
		apply:   func(cfg *Config, v any) { cfg.Agent.PreserveKnown = v.(bool) },
		extract: func(cfg Config) any { return cfg.Agent.PreserveKnown },
	},
	{
		key: "agent.opening", typ: kString, env: "JOBSCOUT_AGENT_OPENING",
		apply:   func(cfg *Config, v any) { cfg.Agent.Opening = v.(string) },
		extract: func(cfg Config) any { return cfg.Agent.Opening },
	},
	{
		key: "crawler.sources", typ: kString, env: "JOBSCOUT_CRAWLER_SOURCES",
		apply:   func(cfg *Config, v any) { cfg.Crawler.Sources = v.(string) },
		extract: func(cfg Config) any { return cfg.Crawler.Sources },
	},
	{
		key: "crawler.rate_per_second", typ: kFloat, env: "JOBSCOUT_CRAWLER_RATE_PER_SECOND",
		apply:   func(cfg *Config, v any) { cfg.Crawler.RatePerSecond = v.(float64) },
		extract: func(cfg Config) any { return cfg.Crawler.RatePerSecond },
	},
	{
		key: "crawler.refresh_hours", typ: kInt, env: "JOBSCOUT_CRAWLER_REFRESH_HOURS",
		apply:   func(cfg *Config, v any) { cfg.Crawler.RefreshHours = v.(int) },
		extract: func(cfg Config) any { return cfg.Crawler.RefreshHours },
	},
	{
		key: "log.level", typ: kString, env: "JOBSCOUT_LOG_LEVEL",
		apply:   func(cfg *Config, v any) { cfg.Log.Level = v.(string) },
		extract: func(cfg Config) any { return cfg.Log.Level },
	},
}

// applyBackend overlays backend values onto cfg. Bool and float keys are
// stored as strings in the backend.
func applyBackend(cfg *Config, b ConfigBackend) error {
	for _, s := range specs {
		if s.secret {
			continue
		}
		switch s.typ {
		case kInt:
			v, ok, err := b.GetInt(s.key)
			if err != nil {
				return fmt.Errorf("reading config key %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		case kString:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading config key %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		case kBool:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading config key %s: %w", s.key, err)
			}
			if ok {
				parsed, err := strconv.ParseBool(v)
				if err != nil {
					return fmt.Errorf("invalid bool for %s: %w", s.key, err)
				}
				s.apply(cfg, parsed)
			}
		case kFloat:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading config key %s: %w", s.key, err)
			}
			if ok {
				parsed, err := strconv.ParseFloat(v, 64)
				if err != nil {
					return fmt.Errorf("invalid float for %s: %w", s.key, err)
				}
				s.apply(cfg, parsed)
			}
		}
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	for _, s := range specs {
		if s.env == "" {
			continue
		}
		raw := os.Getenv(s.env)
		if raw == "" {
			continue
		}
		switch s.typ {
		case kString:
			s.apply(cfg, raw)
		case kInt:
			if i, err := strconv.Atoi(raw); err == nil {
				s.apply(cfg, i)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse integer from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		case kBool:
			if b, err := strconv.ParseBool(raw); err == nil {
				s.apply(cfg, b)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse bool from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		case kFloat:
			if f, err := strconv.ParseFloat(raw, 64); err == nil {
				s.apply(cfg, f)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse float from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		}
	}
}
