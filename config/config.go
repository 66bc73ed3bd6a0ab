// Package config provides configuration loading for AgentGuard.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/hupe1980/agentguard/auth"
	"github.com/hupe1980/agentguard/conductor"
	"github.com/hupe1980/agentguard/core"
	"github.com/hupe1980/agentguard/logging"
	"github.com/hupe1980/agentguard/protocol"
)

// DefaultFile is the config file LoadDefault looks for.
const DefaultFile = "agentguard.toml"

// DefaultSecretKeyEnv names the environment variable holding the shared secret.
const DefaultSecretKeyEnv = "AGENTGUARD_SECRET_KEY"

// ErrMissingSecret is returned when the secret key variable is unset or empty.
var ErrMissingSecret = errors.New("secret key not set")

// Config represents the AgentGuard configuration.
type Config struct {
	Auth      AuthConfig      `toml:"auth"`
	Conductor ConductorConfig `toml:"conductor"`
	Protocol  ProtocolConfig  `toml:"protocol"`
	Session   SessionConfig   `toml:"session"`
	Bus       BusConfig       `toml:"bus"`
	Logging   LoggingConfig   `toml:"logging"`
	LLM       LLMConfig       `toml:"llm"`
}

// AuthConfig configures token issuance.
type AuthConfig struct {
	SecretKeyEnv string `toml:"secret_key_env"`
	Algorithm    string `toml:"algorithm"` // hmac-sha256 or blake2b-256
	TokenTTL     int    `toml:"token_ttl"` // seconds
}

// ConductorConfig tunes the oversight checks.
type ConductorConfig struct {
	LoopWindow       int    `toml:"loop_window"`
	OscillationLag   int    `toml:"oscillation_lag"`
	PrivilegedMarker string `toml:"privileged_marker"`
	ProofMarker      string `toml:"proof_marker"`
	StopSentinel     string `toml:"stop_sentinel"`
	MaxTurns         int    `toml:"max_turns"` // 0 means core.DefaultMaxTurns
}

// ProtocolConfig holds the message allow-list.
type ProtocolConfig struct {
	AuthorizedPairs [][]string `toml:"authorized_pairs"`
}

// SessionConfig configures the session store.
type SessionConfig struct {
	TTL int `toml:"ttl"` // idle seconds before a session expires, 0 disables expiry
}

// BusConfig configures the NATS transport.
type BusConfig struct {
	URL           string `toml:"url"`
	SubjectPrefix string `toml:"subject_prefix"`
}

// LoggingConfig configures the logger.
type LoggingConfig struct {
	Level  string `toml:"level"`  // debug|info|warn|error
	Format string `toml:"format"` // json|text
}

// LLMConfig selects a model provider for model-backed agents.
type LLMConfig struct {
	Provider  string `toml:"provider"` // mock|anthropic|openai
	Model     string `toml:"model"`
	APIKeyEnv string `toml:"api_key_env"`
	MaxTokens int    `toml:"max_tokens"`
}

// New creates a new config with defaults.
func New() *Config {
	markers := conductor.DefaultMarkers()
	return &Config{
		Auth: AuthConfig{
			SecretKeyEnv: DefaultSecretKeyEnv,
			Algorithm:    auth.AlgorithmHMACSHA256,
			TokenTTL:     int(auth.DefaultTTL / time.Second),
		},
		Conductor: ConductorConfig{
			LoopWindow:       conductor.DefaultLoopWindow,
			OscillationLag:   conductor.DefaultOscillationLag,
			PrivilegedMarker: markers.Privileged,
			ProofMarker:      markers.Proof,
			StopSentinel:     core.DefaultStopCondition,
			MaxTurns:         core.DefaultMaxTurns,
		},
		Session: SessionConfig{TTL: 1800},
		Bus: BusConfig{
			URL:           "nats://127.0.0.1:4222",
			SubjectPrefix: "agents",
		},
		Logging: LoggingConfig{Level: "info", Format: "json"},
		LLM:     LLMConfig{Provider: "mock", MaxTokens: 1024},
	}
}

// LoadFile loads configuration from a TOML file.
func LoadFile(path string) (*Config, error) {
	cfg := New()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes TOML from a string.
func Parse(data string) (*Config, error) {
	cfg := New()
	if _, err := toml.Decode(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadDefault loads agentguard.toml from the current directory, falling back
// to defaults when the file does not exist.
func LoadDefault() (*Config, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get current directory: %w", err)
	}

	path := filepath.Join(cwd, DefaultFile)
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return New(), nil
	}

	return LoadFile(path)
}

// LoadEnv loads .env files into the process environment. Missing files are
// ignored; variables already set are not overwritten.
func LoadEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if _, err := auth.MACByName(c.Auth.Algorithm); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("invalid config: auth.token_ttl must be > 0")
	}
	if c.Conductor.LoopWindow < 0 || c.Conductor.OscillationLag < 0 {
		return fmt.Errorf("invalid config: conductor loop settings must be >= 0")
	}
	if c.Conductor.MaxTurns < 0 {
		return fmt.Errorf("invalid config: conductor.max_turns must be >= 0")
	}
	if _, err := c.AuthorizedPairs(); err != nil {
		return err
	}
	return nil
}

// SecretKey returns the shared secret from the configured environment variable.
func (c *Config) SecretKey() ([]byte, error) {
	env := c.Auth.SecretKeyEnv
	if env == "" {
		env = DefaultSecretKeyEnv
	}
	v := os.Getenv(env)
	if v == "" {
		return nil, fmt.Errorf("%w: %s", ErrMissingSecret, env)
	}
	return []byte(v), nil
}

// AuthorizedPairs converts the configured allow-list.
func (c *Config) AuthorizedPairs() ([]protocol.Pair, error) {
	pairs := make([]protocol.Pair, 0, len(c.Protocol.AuthorizedPairs))
	for i, p := range c.Protocol.AuthorizedPairs {
		if len(p) != 2 || p[0] == "" || p[1] == "" {
			return nil, fmt.Errorf("invalid config: protocol.authorized_pairs[%d] must be [sender, recipient]", i)
		}
		pairs = append(pairs, protocol.Pair{Sender: p[0], Recipient: p[1]})
	}
	return pairs, nil
}

// TokenTTL returns the token lifetime.
func (c *Config) TokenTTL() time.Duration {
	return time.Duration(c.Auth.TokenTTL) * time.Second
}

// SessionTTL returns the session idle lifetime.
func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.Session.TTL) * time.Second
}

// APIKey returns the API key for the configured LLM provider.
func (c *Config) APIKey() string {
	env := c.LLM.APIKeyEnv
	if env == "" {
		env = DefaultAPIKeyEnv(c.LLM.Provider)
	}
	if env == "" {
		return ""
	}
	return os.Getenv(env)
}

// DefaultAPIKeyEnv returns the default environment variable name for a provider.
func DefaultAPIKeyEnv(provider string) string {
	switch provider {
	case "anthropic":
		return "ANTHROPIC_API_KEY"
	case "openai":
		return "OPENAI_API_KEY"
	default:
		return ""
	}
}

// Logger builds a logger writing to w (stderr when nil).
func (c *Config) Logger(w io.Writer) *logging.GuardLogger {
	cfg := logging.DefaultLoggerConfig()
	cfg.Level = logging.ParseLevel(c.Logging.Level)
	if c.Logging.Format != "" {
		cfg.Format = c.Logging.Format
	}
	if w != nil {
		cfg.Output = w
	}
	return logging.NewLogger(cfg)
}

// AuthOptions returns authenticator options for this config.
func (c *Config) AuthOptions() ([]func(o *auth.Options), error) {
	mac, err := auth.MACByName(c.Auth.Algorithm)
	if err != nil {
		return nil, err
	}
	return []func(o *auth.Options){
		auth.WithMAC(mac),
		auth.WithDefaultTTL(c.TokenTTL()),
	}, nil
}

// ConductorOptions returns conductor options for this config.
func (c *Config) ConductorOptions() []func(o *conductor.Options) {
	return []func(o *conductor.Options){
		conductor.WithLoopWindow(c.Conductor.LoopWindow),
		conductor.WithOscillationLag(c.Conductor.OscillationLag),
		conductor.WithMarkers(conductor.Markers{
			Privileged: c.Conductor.PrivilegedMarker,
			Proof:      c.Conductor.ProofMarker,
		}),
	}
}

// ApplyTaskDefaults fills the spec's unset stop condition and turn limit
// from the conductor section. A conductor max_turns of 0 leaves the spec
// unset, so core.DefaultMaxTurns applies.
func (c *Config) ApplyTaskDefaults(spec core.TaskSpec) core.TaskSpec {
	if spec.StopCondition == "" {
		spec.StopCondition = c.Conductor.StopSentinel
	}
	if spec.MaxTurns == 0 {
		spec.MaxTurns = c.Conductor.MaxTurns
	}
	return spec
}
