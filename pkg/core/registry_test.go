package core

import (
	"errors"
	"testing"
)

type mockProvider struct {
	Unsupported
	cfg ProviderConfig
}

func (m *mockProvider) Platform() Platform { return "test" }
func (m *mockProvider) Source() Source     { return "mock" }

func newMockFactory(built *int) ProviderFactory {
	return func(cfg ProviderConfig) (Provider, error) {
		*built++
		return &mockProvider{Unsupported: Unsupported{Name: "test/mock"}, cfg: cfg}, nil
	}
}

func TestRegistryBasicFunctionality(t *testing.T) {
	// Independent registries must not share factories
	registry1 := NewRegistry()
	registry2 := NewRegistry()

	built := 0
	if err := registry1.RegisterFactory("test", "mock", newMockFactory(&built)); err != nil {
		t.Fatalf("Failed to register factory: %v", err)
	}

	if _, err := registry1.Provider("test", "mock"); err != nil {
		t.Fatalf("Failed to create provider in registry1: %v", err)
	}

	if _, err := registry2.Provider("test", "mock"); err == nil {
		t.Error("Provider should not exist in registry2 - registries should be independent")
	}
}

func TestRegistryDuplicateFactory(t *testing.T) {
	registry := NewRegistry()
	built := 0
	if err := registry.RegisterFactory("test", "mock", newMockFactory(&built)); err != nil {
		t.Fatalf("first registration: %v", err)
	}
	if err := registry.RegisterFactory("test", "mock", newMockFactory(&built)); err == nil {
		t.Fatal("expected error registering the same pair twice")
	}
}

func TestRegistryReusesProviders(t *testing.T) {
	registry := NewRegistry()
	built := 0
	_ = registry.RegisterFactory("test", "mock", newMockFactory(&built))

	p1, err := registry.Provider("test", "mock")
	if err != nil {
		t.Fatalf("Provider: %v", err)
	}
	p2, err := registry.Provider("test", "mock")
	if err != nil {
		t.Fatalf("Provider: %v", err)
	}
	if p1 != p2 {
		t.Error("expected the same provider instance on repeated lookups")
	}
	if built != 1 {
		t.Errorf("factory called %d times, want 1", built)
	}
}

func TestRegistryConfigureRebuilds(t *testing.T) {
	registry := NewRegistry()
	built := 0
	_ = registry.RegisterFactory("test", "mock", newMockFactory(&built))

	if _, err := registry.Provider("test", "mock"); err != nil {
		t.Fatalf("Provider: %v", err)
	}
	if err := registry.Configure("test", "mock", ProviderConfig{APIKey: "secret"}); err != nil {
		t.Fatalf("Configure: %v", err)
	}
	p, err := registry.Provider("test", "mock")
	if err != nil {
		t.Fatalf("Provider: %v", err)
	}
	if got := p.(*mockProvider).cfg.APIKey; got != "secret" {
		t.Errorf("APIKey = %q, want secret", got)
	}
	if built != 2 {
		t.Errorf("factory called %d times, want 2", built)
	}
}

func TestRegistryUnknownProvider(t *testing.T) {
	registry := NewRegistry()

	_, err := registry.Provider("facebook", "crowd_tangle")
	var unknown *UnknownProviderError
	if !errors.As(err, &unknown) {
		t.Fatalf("expected UnknownProviderError, got %v", err)
	}
	if unknown.Platform != "facebook" || unknown.Source != "crowd_tangle" {
		t.Errorf("unexpected error fields: %+v", unknown)
	}

	if err := registry.Configure("facebook", "crowd_tangle", ProviderConfig{}); !errors.As(err, &unknown) {
		t.Errorf("Configure: expected UnknownProviderError, got %v", err)
	}
}

func TestRegistryProviderFor(t *testing.T) {
	registry := NewRegistry()
	built := 0
	_ = registry.RegisterFactory("test", "mock", newMockFactory(&built))

	for _, spec := range []string{"test / mock", "test/mock", "  test /mock "} {
		if _, err := registry.ProviderFor(spec); err != nil {
			t.Errorf("ProviderFor(%q): %v", spec, err)
		}
	}

	for _, spec := range []string{"test", "test / ", "a / b / c", ""} {
		if _, err := registry.ProviderFor(spec); err == nil {
			t.Errorf("ProviderFor(%q): expected error", spec)
		}
	}
}

func TestRegistryAvailable(t *testing.T) {
	registry := NewRegistry()
	built := 0
	_ = registry.RegisterFactory(PlatformTwitter, SourceTwitter, newMockFactory(&built))
	_ = registry.RegisterFactory(PlatformReddit, SourcePushshift, newMockFactory(&built))

	got := registry.Available()
	want := []string{"reddit / pushshift", "twitter / twitter"}
	if len(got) != len(want) {
		t.Fatalf("Available() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Available()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
	if built != 0 {
		t.Errorf("listing should not build providers, built %d", built)
	}
}

func TestFactoryRegistration(t *testing.T) {
	built := 0
	RegisterProviderFactory("test-global", "mock", newMockFactory(&built))

	registry := GetGlobalRegistry()
	if _, err := registry.Provider("test-global", "mock"); err != nil {
		t.Errorf("Failed to create provider with registered factory: %v", err)
	}
}
