package config

import (
	"fmt"
	"strings"
	"time"
)

type Config struct {
	Server  ServerConfig
	LLM     LLMConfig
	Storage StorageConfig
	Agent   AgentConfig
	Crawler CrawlerConfig
	Log     LogConfig
}

type ServerConfig struct {
	Port int
}

type LLMConfig struct {
	BaseURL        string
	Model          string
	APIKey         string
	TimeoutSeconds int
}

// Timeout bounds one completion round-trip.
func (c LLMConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

type StorageConfig struct {
	DataDir string
}

type AgentConfig struct {
	// PreserveKnown keeps resolved profile values when an extraction
	// explicitly reports them unknown again. Off by default for
	// compatibility with the historical overwrite behavior.
	PreserveKnown bool
	Opening       string
}

type CrawlerConfig struct {
	// Sources is a comma-separated list of careers listing URLs.
	Sources       string
	RatePerSecond float64
	// RefreshHours re-crawls the sources on this interval while the
	// server runs. 0 disables background refresh.
	RefreshHours int
}

// RefreshInterval converts RefreshHours to a duration.
func (c CrawlerConfig) RefreshInterval() time.Duration {
	return time.Duration(c.RefreshHours) * time.Hour
}

// SourceList splits Sources into trimmed URLs.
func (c CrawlerConfig) SourceList() []string {
	var out []string
	for _, s := range strings.Split(c.Sources, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

type LogConfig struct {
	Level string
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Port: 8000,
		},
		LLM: LLMConfig{
			BaseURL:        "https://open.bigmodel.cn/api/paas/v4",
			Model:          "glm-4",
			TimeoutSeconds: 30,
		},
		Storage: StorageConfig{
			DataDir: defaultDataDir(),
		},
		Agent: AgentConfig{
			PreserveKnown: false,
		},
		Crawler: CrawlerConfig{
			Sources:       "https://www.google.com/about/careers/applications/jobs/results/",
			RatePerSecond: 1,
			RefreshHours:  0,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from the platform-native backend, environment
// variables, and the platform secret store.
//
// On macOS the backend is UserDefaults (domain: com.jobscout.app) and the
// LLM API key falls back to macOS Keychain. On Linux the backend is a JSON
// file at $XDG_CONFIG_HOME/jobscout/config.json and the key falls back to
// $XDG_DATA_HOME/jobscout/secrets.json.
//
// Environment variables (JOBSCOUT_*) override backend values on all
// platforms.
func Load() (Config, error) {
	return loadWith(newPlatformBackend(), keychainReader{})
}

// keychain abstracts secret-store access for testing.
type keychain interface {
	Get(service, account string) (string, error)
}

func loadWith(b ConfigBackend, kc keychain) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)

	// Try the platform secret store for the API key if still empty.
	if cfg.LLM.APIKey == "" {
		if key, err := kc.Get("jobscout", "llm_api_key"); err == nil && key != "" {
			cfg.LLM.APIKey = key
		}
	}

	if cfg.LLM.APIKey == "" {
		msg := "missing required config: LLM API key. " +
			"Set it via environment variable JOBSCOUT_LLM_API_KEY" +
			apiKeyHint()
		return Config{}, fmt.Errorf("%s", msg)
	}

	return cfg, nil
}

// keychainReader reads from the platform secret store.
type keychainReader struct{}

func (keychainReader) Get(service, account string) (string, error) {
	return keychainExec(service, account)
}
