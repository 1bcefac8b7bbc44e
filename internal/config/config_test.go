package config

import (
	"errors"
	"strings"
	"testing"
	"time"
)

// --- Fake backend ---

type fakeBackend struct {
	strings map[string]string
	ints    map[string]int
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{strings: map[string]string{}, ints: map[string]int{}}
}

func (b *fakeBackend) GetString(key string) (string, bool, error) {
	v, ok := b.strings[key]
	return v, ok, nil
}

func (b *fakeBackend) GetInt(key string) (int, bool, error) {
	v, ok := b.ints[key]
	return v, ok, nil
}

func (b *fakeBackend) SetString(key, val string) error { b.strings[key] = val; return nil }
func (b *fakeBackend) SetInt(key string, val int) error { b.ints[key] = val; return nil }
func (b *fakeBackend) Delete(key string) error {
	delete(b.strings, key)
	delete(b.ints, key)
	return nil
}

// --- Fake keychain ---

type fakeKeychain struct {
	secrets map[string]string
}

func (k *fakeKeychain) Get(service, account string) (string, error) {
	v, ok := k.secrets[service+"/"+account]
	if !ok {
		return "", errors.New("not found")
	}
	return v, nil
}

// --- Tests ---

func TestLoadWith_Defaults(t *testing.T) {
	t.Setenv("JOBSCOUT_LLM_API_KEY", "sk-test")

	cfg, err := loadWith(newFakeBackend(), &fakeKeychain{})
	if err != nil {
		t.Fatalf("loadWith: %v", err)
	}
	if cfg.Server.Port != 8000 {
		t.Errorf("default port = %d", cfg.Server.Port)
	}
	if cfg.LLM.Model != "glm-4" {
		t.Errorf("default model = %q", cfg.LLM.Model)
	}
	if cfg.LLM.Timeout() != 30*time.Second {
		t.Errorf("default timeout = %v", cfg.LLM.Timeout())
	}
	if cfg.Agent.PreserveKnown {
		t.Error("PreserveKnown must default to off")
	}
	if len(cfg.Crawler.SourceList()) == 0 {
		t.Error("default crawl source missing")
	}
}

func TestLoadWith_MissingAPIKey(t *testing.T) {
	t.Setenv("JOBSCOUT_LLM_API_KEY", "")

	_, err := loadWith(newFakeBackend(), &fakeKeychain{})
	if err == nil {
		t.Fatal("expected error when no API key is available")
	}
	if !strings.Contains(err.Error(), "JOBSCOUT_LLM_API_KEY") {
		t.Errorf("error should name the env var: %v", err)
	}
}

func TestLoadWith_APIKeyFromKeychain(t *testing.T) {
	t.Setenv("JOBSCOUT_LLM_API_KEY", "")

	kc := &fakeKeychain{secrets: map[string]string{"jobscout/llm_api_key": "sk-keychain"}}
	cfg, err := loadWith(newFakeBackend(), kc)
	if err != nil {
		t.Fatalf("loadWith: %v", err)
	}
	if cfg.LLM.APIKey != "sk-keychain" {
		t.Errorf("APIKey = %q", cfg.LLM.APIKey)
	}
}

func TestLoadWith_BackendOverridesDefaults(t *testing.T) {
	t.Setenv("JOBSCOUT_LLM_API_KEY", "sk-test")

	b := newFakeBackend()
	b.ints["server.port"] = 9999
	b.strings["llm.model"] = "glm-4-plus"
	b.strings["agent.preserve_known"] = "true"
	b.strings["crawler.rate_per_second"] = "0.5"

	cfg, err := loadWith(b, &fakeKeychain{})
	if err != nil {
		t.Fatalf("loadWith: %v", err)
	}
	if cfg.Server.Port != 9999 {
		t.Errorf("port = %d", cfg.Server.Port)
	}
	if cfg.LLM.Model != "glm-4-plus" {
		t.Errorf("model = %q", cfg.LLM.Model)
	}
	if !cfg.Agent.PreserveKnown {
		t.Error("bool backend value not applied")
	}
	if cfg.Crawler.RatePerSecond != 0.5 {
		t.Errorf("rate = %v", cfg.Crawler.RatePerSecond)
	}
}

func TestLoadWith_EnvOverridesBackend(t *testing.T) {
	t.Setenv("JOBSCOUT_LLM_API_KEY", "sk-env")
	t.Setenv("JOBSCOUT_SERVER_PORT", "7777")
	t.Setenv("JOBSCOUT_LOG_LEVEL", "debug")

	b := newFakeBackend()
	b.ints["server.port"] = 9999
	b.strings["log.level"] = "info"

	cfg, err := loadWith(b, &fakeKeychain{})
	if err != nil {
		t.Fatalf("loadWith: %v", err)
	}
	if cfg.Server.Port != 7777 {
		t.Errorf("env should beat backend: port = %d", cfg.Server.Port)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("log level = %q", cfg.Log.Level)
	}
	if cfg.LLM.APIKey != "sk-env" {
		t.Errorf("APIKey = %q", cfg.LLM.APIKey)
	}
}

func TestLoadWith_InvalidEnvIntKeepsDefault(t *testing.T) {
	t.Setenv("JOBSCOUT_LLM_API_KEY", "sk-test")
	t.Setenv("JOBSCOUT_SERVER_PORT", "not-a-port")

	cfg, err := loadWith(newFakeBackend(), &fakeKeychain{})
	if err != nil {
		t.Fatalf("loadWith: %v", err)
	}
	if cfg.Server.Port != 8000 {
		t.Errorf("invalid env int should keep the default, got %d", cfg.Server.Port)
	}
}

func TestSourceList(t *testing.T) {
	c := CrawlerConfig{Sources: " https://a.example/ , ,https://b.example/"}
	got := c.SourceList()
	if len(got) != 2 || got[0] != "https://a.example/" || got[1] != "https://b.example/" {
		t.Errorf("SourceList = %v", got)
	}
}

func TestShowAll_OmitsSecrets(t *testing.T) {
	t.Setenv("JOBSCOUT_LLM_API_KEY", "sk-very-secret")

	cfg, err := loadWith(newFakeBackend(), &fakeKeychain{})
	if err != nil {
		t.Fatalf("loadWith: %v", err)
	}

	for _, k := range ShowAll(cfg) {
		if k.Key == "llm.api_key" || strings.Contains(k.Value, "sk-very-secret") {
			t.Errorf("secret leaked through ShowAll: %+v", k)
		}
	}
}

func TestValidKeys_CoverEveryEntry(t *testing.T) {
	keys := ValidKeys()
	want := map[string]bool{
		"server.port":            true,
		"llm.model":              true,
		"agent.preserve_known":   true,
		"crawler.sources":        true,
		"crawler.refresh_hours":  true,
		"log.level":              true,
	}
	have := map[string]bool{}
	for _, k := range keys {
		have[k] = true
	}
	for k := range want {
		if !have[k] {
			t.Errorf("key %q missing from ValidKeys", k)
		}
	}
	if have["llm.api_key"] {
		t.Error("secret keys must not be listed")
	}
}
