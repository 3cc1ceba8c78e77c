package providerfactory

import (
	"testing"
	"time"

	"mercator-hq/themis/pkg/config"
)

func TestNew_MockProvider(t *testing.T) {
	cfg := config.Default()

	p, err := New(cfg)
	if err != nil {
		t.Fatalf("factory failed: %v", err)
	}
	if p.GetType() != "mock" {
		t.Errorf("Expected mock provider, got %s", p.GetType())
	}
}

func TestNew_UndefinedProvider(t *testing.T) {
	cfg := config.Default()
	cfg.Provider = "nope"

	if _, err := New(cfg); err == nil {
		t.Fatal("Expected error for undefined provider")
	}
}

func TestNew_UnknownType(t *testing.T) {
	cfg := config.Default()
	cfg.Provider = "custom"
	cfg.Providers["custom"] = config.ProviderConfig{Type: "grpc"}

	if _, err := New(cfg); err == nil {
		t.Fatal("Expected error for unknown provider type")
	}
}

func TestNew_OpenAIProvider(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg := config.Default()
	cfg.Provider = "openai"
	cfg.Providers["openai"] = config.ProviderConfig{
		Type:      "openai",
		APIKeyEnv: "OPENAI_API_KEY",
		Timeout:   5 * time.Second,
		MaxTokens: 100,
	}

	p, err := New(cfg)
	if err != nil {
		t.Fatalf("factory failed: %v", err)
	}
	if p.GetType() != "openai" {
		t.Errorf("Expected openai provider, got %s", p.GetType())
	}
	p.Close()
}
