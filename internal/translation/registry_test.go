package translation

import (
	"context"
	"testing"
)

type stubProvider struct {
	name string
}

func (p *stubProvider) Translate(_ context.Context, req TranslateRequest) (*TranslateResponse, error) {
	return &TranslateResponse{
		Text:         "[" + req.TargetLang + "] " + req.Text,
		SourceLang:   req.SourceLang,
		TargetLang:   req.TargetLang,
		ProviderName: p.name,
	}, nil
}

func (p *stubProvider) Name() string {
	return p.name
}

func (p *stubProvider) SupportedLanguages() []string {
	return []string{"en", "id"}
}

func TestRegistryResolvesByName(t *testing.T) {
	t.Parallel()

	registry := NewRegistry("alpha")
	if err := registry.Register(&stubProvider{name: "Alpha"}); err != nil {
		t.Fatalf("register provider: %v", err)
	}
	if err := registry.Register(&stubProvider{name: "beta"}); err != nil {
		t.Fatalf("register provider: %v", err)
	}

	provider, err := registry.Provider("BETA")
	if err != nil {
		t.Fatalf("resolve provider: %v", err)
	}
	if provider.Name() != "beta" {
		t.Fatalf("unexpected provider: %q", provider.Name())
	}

	provider, err = registry.Provider("")
	if err != nil {
		t.Fatalf("resolve default provider: %v", err)
	}
	if provider.Name() != "Alpha" {
		t.Fatalf("unexpected default provider: %q", provider.Name())
	}
}

func TestNewDefaultRegistryHonorsConfiguredDefault(t *testing.T) {
	t.Parallel()

	if got := NewDefaultRegistry("Local").DefaultProvider(); got != "local" {
		t.Fatalf("default provider = %q, want %q", got, "local")
	}
	if got := NewDefaultRegistry("").DefaultProvider(); got != DefaultProviderName {
		t.Fatalf("default provider = %q, want %q", got, DefaultProviderName)
	}
	if got := NewDefaultRegistry("unregistered").DefaultProvider(); got != DefaultProviderName {
		t.Fatalf("default provider = %q, want %q", got, DefaultProviderName)
	}
}

func TestRegistryUnknownProvider(t *testing.T) {
	t.Parallel()

	registry := NewRegistry("alpha")
	if err := registry.Register(&stubProvider{name: "alpha"}); err != nil {
		t.Fatalf("register provider: %v", err)
	}

	if _, err := registry.Provider("missing"); err == nil {
		t.Fatalf("expected error for unregistered provider")
	}
}

func TestRegistryRejectsNilProvider(t *testing.T) {
	t.Parallel()

	registry := NewRegistry("")
	if err := registry.Register(nil); err == nil {
		t.Fatalf("expected error when registering nil provider")
	}
}

func TestLanguageOptions(t *testing.T) {
	t.Parallel()

	options := LanguageOptions([]string{"ID", "en", "en", "xx"})
	if len(options) != 3 {
		t.Fatalf("unexpected option count: %d", len(options))
	}
	if options[0].Code != "en" || options[0].Label != "English" {
		t.Fatalf("unexpected first option: %+v", options[0])
	}
	if options[1].Code != "id" || options[1].Label != "Indonesian" {
		t.Fatalf("unexpected second option: %+v", options[1])
	}
	if options[2].Code != "xx" || options[2].Label != "XX" {
		t.Fatalf("unexpected fallback option: %+v", options[2])
	}
}
