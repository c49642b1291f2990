package core

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

type providerKey struct {
	platform Platform
	source   Source
}

func (k providerKey) String() string {
	return string(k.platform) + " / " + string(k.source)
}

// Global registry for provider self-registration
var globalRegistry = NewRegistry()

// Registry maps (platform, source) pairs to provider factories and keeps the
// providers built from them. Providers are built once and reused.
type Registry struct {
	factories map[providerKey]ProviderFactory
	configs   map[providerKey]ProviderConfig
	providers map[providerKey]Provider
	mu        sync.RWMutex
}

func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[providerKey]ProviderFactory),
		configs:   make(map[providerKey]ProviderConfig),
		providers: make(map[providerKey]Provider),
	}
}

// RegisterProviderFactory allows provider packages to register themselves during init()
func RegisterProviderFactory(platform Platform, source Source, factory ProviderFactory) {
	globalRegistry.mu.Lock()
	defer globalRegistry.mu.Unlock()
	globalRegistry.factories[providerKey{platform, source}] = factory
}

// GetGlobalRegistry returns a fresh registry holding every self-registered factory.
func GetGlobalRegistry() *Registry {
	globalRegistry.mu.RLock()
	defer globalRegistry.mu.RUnlock()

	registry := NewRegistry()
	for key, factory := range globalRegistry.factories {
		registry.factories[key] = factory
	}
	return registry
}

func (r *Registry) RegisterFactory(platform Platform, source Source, factory ProviderFactory) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := providerKey{platform, source}
	if _, exists := r.factories[key]; exists {
		return fmt.Errorf("provider %s already registered", key)
	}
	r.factories[key] = factory
	return nil
}

// Configure sets the construction config of a provider. A provider built
// with a previous config is dropped and rebuilt on next use.
func (r *Registry) Configure(platform Platform, source Source, cfg ProviderConfig) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := providerKey{platform, source}
	if _, exists := r.factories[key]; !exists {
		return &UnknownProviderError{Platform: string(platform), Source: string(source)}
	}
	r.configs[key] = cfg
	delete(r.providers, key)
	return nil
}

// ConfigureAll applies the same config builder to every registered pair.
func (r *Registry) ConfigureAll(build func(platform Platform, source Source) ProviderConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for key := range r.factories {
		r.configs[key] = build(key.platform, key.source)
		delete(r.providers, key)
	}
}

// Provider returns the provider for a pair, building it on first use.
func (r *Registry) Provider(platform Platform, source Source) (Provider, error) {
	key := providerKey{platform, source}

	r.mu.RLock()
	provider, exists := r.providers[key]
	r.mu.RUnlock()
	if exists {
		return provider, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if provider, exists := r.providers[key]; exists {
		return provider, nil
	}
	factory, exists := r.factories[key]
	if !exists {
		return nil, &UnknownProviderError{Platform: string(platform), Source: string(source)}
	}
	provider, err := factory(r.configs[key])
	if err != nil {
		return nil, fmt.Errorf("creating provider %s: %w", key, err)
	}
	r.providers[key] = provider
	return provider, nil
}

// ProviderFor resolves a "platform / source" string, as listed by Available.
func (r *Registry) ProviderFor(spec string) (Provider, error) {
	platform, source, err := ParsePlatform(spec)
	if err != nil {
		return nil, err
	}
	return r.Provider(platform, source)
}

// Available lists the registered pairs as sorted "platform / source" strings.
func (r *Registry) Available() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for key := range r.factories {
		names = append(names, key.String())
	}
	sort.Strings(names)
	return names
}

// ParsePlatform splits "platform / source" (spaces optional) into its parts.
func ParsePlatform(spec string) (Platform, Source, error) {
	parts := strings.Split(spec, "/")
	if len(parts) != 2 {
		return "", "", &UnknownProviderError{Platform: strings.TrimSpace(spec)}
	}
	platform := strings.TrimSpace(parts[0])
	source := strings.TrimSpace(parts[1])
	if platform == "" || source == "" {
		return "", "", &UnknownProviderError{Platform: platform, Source: source}
	}
	return Platform(platform), Source(source), nil
}
