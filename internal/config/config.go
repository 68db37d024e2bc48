// Package config handles loading and validation of service configuration.
// Supports both development (env vars) and production (Secret Manager) modes.
package config

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"

	"netneg/internal/model"
	"netneg/internal/negotiation"
	"netneg/internal/registry"
	"netneg/internal/transport"
)

// Config holds all service configuration.
// Environment determines whether the advertisement loads from env vars (development) or Secret Manager (production).
type Config struct {
	// Server settings
	Port        string
	Environment string // "development" or "production"
	LogLevel    string // "debug", "info", "warn", "error"

	// Handshake settings
	ProtocolVersion string // semver of the handshake envelope
	Namespace       string // namespace every local component id must carry

	// Advertisement fetching
	FetchTransport  transport.Kind
	ProfileCacheTTL time.Duration
	FetchTimeout    time.Duration

	// GCP settings (required in production)
	GCPProject          string
	AdvertisementSecret string

	// Local advertisement, loaded from COMPONENTS, the config file or Secret Manager
	Components []model.Component
}

// Load reads configuration from file, environment, or Secret Manager.
// Priority: CONFIG_FILE (if set) → ENV vars / Secret Manager.
// Validates all required fields and returns an error if any are missing.
func Load(ctx context.Context) (*Config, error) {
	if configPath := os.Getenv("CONFIG_FILE"); configPath != "" {
		return loadFromFile(configPath)
	}

	cfg := &Config{
		Port:                envOrDefault("PORT", "8080"),
		Environment:         envOrDefault("ENVIRONMENT", "development"),
		LogLevel:            envOrDefault("LOG_LEVEL", "info"),
		ProtocolVersion:     envOrDefault("PROTOCOL_VERSION", "v1.0.0"),
		Namespace:           os.Getenv("NAMESPACE"),
		FetchTransport:      transport.Kind(envOrDefault("FETCH_TRANSPORT", string(transport.Standard))),
		GCPProject:          os.Getenv("GCP_PROJECT"),
		AdvertisementSecret: os.Getenv("ADVERTISEMENT_SECRET"),
	}

	// Namespace required in all environments
	if cfg.Namespace == "" {
		return nil, fmt.Errorf("NAMESPACE environment variable required")
	}
	if cfg.AdvertisementSecret == "" {
		cfg.AdvertisementSecret = cfg.Namespace + "-advertisement"
	}

	var err error
	if cfg.ProfileCacheTTL, err = envDuration("PROFILE_CACHE_TTL", negotiation.DefaultCacheTTL); err != nil {
		return nil, err
	}
	if cfg.FetchTimeout, err = envDuration("PROFILE_FETCH_TIMEOUT", negotiation.DefaultFetchTimeout); err != nil {
		return nil, err
	}

	// Load advertisement based on environment
	if cfg.Environment == "production" {
		if cfg.GCPProject == "" {
			return nil, fmt.Errorf("GCP_PROJECT required in production environment")
		}
		err = cfg.loadFromSecretManager(ctx)
	} else {
		err = cfg.loadFromEnv()
	}
	if err != nil {
		return nil, fmt.Errorf("loading advertisement: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadFromFile reads all configuration from a JSON file.
// Used for local development to avoid multiple ENV vars.
func loadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var fileConfig struct {
		Port            string            `json:"port"`
		Environment     string            `json:"environment"`
		LogLevel        string            `json:"log_level"`
		ProtocolVersion string            `json:"protocol_version"`
		Namespace       string            `json:"namespace"`
		FetchTransport  string            `json:"fetch_transport"`
		ProfileCacheTTL string            `json:"profile_cache_ttl"`
		FetchTimeout    string            `json:"profile_fetch_timeout"`
		Components      []model.Component `json:"components"`
	}

	if err := json.Unmarshal(data, &fileConfig); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg := &Config{
		Port:            withDefault(fileConfig.Port, "8080"),
		Environment:     withDefault(fileConfig.Environment, "development"),
		LogLevel:        withDefault(fileConfig.LogLevel, "info"),
		ProtocolVersion: withDefault(fileConfig.ProtocolVersion, "v1.0.0"),
		Namespace:       fileConfig.Namespace,
		FetchTransport:  transport.Kind(withDefault(fileConfig.FetchTransport, string(transport.Standard))),
		Components:      fileConfig.Components,
	}

	if cfg.Namespace == "" {
		return nil, fmt.Errorf("namespace is required")
	}
	if cfg.ProfileCacheTTL, err = parseDuration("profile_cache_ttl", fileConfig.ProfileCacheTTL, negotiation.DefaultCacheTTL); err != nil {
		return nil, err
	}
	if cfg.FetchTimeout, err = parseDuration("profile_fetch_timeout", fileConfig.FetchTimeout, negotiation.DefaultFetchTimeout); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// withDefault returns val if non-empty, otherwise defaultVal.
func withDefault(val, defaultVal string) string {
	if val != "" {
		return val
	}
	return defaultVal
}

// loadFromSecretManager fetches the advertisement from GCP Secret Manager.
// Secret name format: projects/{project}/secrets/{advertisement_secret}/versions/latest
// The payload is a JSON array of components.
func (c *Config) loadFromSecretManager(ctx context.Context) error {
	client, err := secretmanager.NewClient(ctx)
	if err != nil {
		return fmt.Errorf("creating secret manager client: %w", err)
	}
	defer client.Close()

	secretName := fmt.Sprintf("projects/%s/secrets/%s/versions/latest",
		c.GCPProject, c.AdvertisementSecret)

	result, err := client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{
		Name: secretName,
	})
	if err != nil {
		return fmt.Errorf("accessing secret %s: %w", secretName, err)
	}

	if err := json.Unmarshal(result.Payload.Data, &c.Components); err != nil {
		return fmt.Errorf("parsing secret JSON: %w", err)
	}

	return nil
}

// loadFromEnv reads the advertisement from the COMPONENTS environment variable.
// Used in development mode for local testing.
func (c *Config) loadFromEnv() error {
	if componentsJSON := os.Getenv("COMPONENTS"); componentsJSON != "" {
		if err := json.Unmarshal([]byte(componentsJSON), &c.Components); err != nil {
			return fmt.Errorf("parsing COMPONENTS JSON: %w", err)
		}
	}
	return nil
}

// validate checks that all required configuration fields are present and
// that the advertisement would be accepted by the registrar.
func (c *Config) validate() error {
	if !negotiation.ValidProtocolVersion(c.ProtocolVersion) {
		return fmt.Errorf("protocol_version %q is not a semantic version", c.ProtocolVersion)
	}
	if !c.FetchTransport.Valid() {
		return fmt.Errorf("fetch_transport %q must be %q or %q", c.FetchTransport, transport.Standard, transport.Chrome)
	}
	if c.ProfileCacheTTL < 0 {
		return fmt.Errorf("profile_cache_ttl must not be negative")
	}
	if _, err := c.BuildAdvertisement(); err != nil {
		return fmt.Errorf("invalid advertisement: %w", err)
	}
	return nil
}

// BuildAdvertisement registers the configured components under Namespace
// and returns them sorted by id.
func (c *Config) BuildAdvertisement() ([]model.Component, error) {
	r := registry.New(c.Namespace)
	for _, comp := range c.Components {
		if err := r.RegisterComponent(comp); err != nil {
			return nil, err
		}
	}
	return r.Components(), nil
}

// envOrDefault returns the environment variable value or the default if not set.
func envOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// envDuration parses a Go duration from the environment.
func envDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	return parseDuration(key, os.Getenv(key), defaultVal)
}

func parseDuration(name, val string, defaultVal time.Duration) (time.Duration, error) {
	if val == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("parsing %s: %w", name, err)
	}
	return d, nil
}
