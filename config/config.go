// Package config exposes the process-wide configuration singleton: a
// flat struct loaded once from an optional config.toml, an optional
// .env file, and finally the environment (which always wins).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// NetworkParams is the chain-id-selected bundle of stablecoin address,
// EVM chain id and human network name.
type NetworkParams struct {
	StablecoinAddress string
	ChainID            int64
	Name                string
}

var networkParams = map[string]NetworkParams{
	"base-sepolia": {StablecoinAddress: "0x036CbD53842c5426634e7929541eC2318f3dCF7e", ChainID: 84532, Name: "base-sepolia"},
	"base-mainnet": {StablecoinAddress: "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913", ChainID: 8453, Name: "base-mainnet"},
}

// Config holds all application configuration.
type Config struct {
	// Messaging identity
	WalletKey        string // signing material for the agent's own messaging identity
	DBEncryptionKey  string // opaque 32-byte hex key for the secure-messaging store
	NetworkEnv       string // "dev", "production", or "local"

	// Chain
	ChainIDEnv         string // "base-sepolia" or "base-mainnet"
	StablecoinAddress string
	ChainID            int64
	ChainRPCURL        string
	NetworkName        string

	// Custodial wallet provider
	WalletProviderBaseURL string
	WalletProviderAPIKey  string

	// Toss parser
	LLMProviderKey string

	// Persistence
	StoreBackend string // "json" or "postgres"
	DataDir      string // json store root, default ".data"
	DatabaseURL  string
	DatabaseName string

	// NATS
	NATSServers string

	// Chain watcher checkpoint backend
	CheckpointBackend string // "memory" or "redis"
	RedisAddr         string

	// Agent command surface
	CommandPrefix   string
	AllowedCommands []string
	WelcomeMessage  string

	// Tunables
	WatcherPollInterval int // seconds
	MaxStake            float64
	DefaultStake        float64

	// Environment
	Environment string // "development", "production", or "test"
}

var (
	instance *Config
	once     sync.Once
	mu       sync.Mutex // protects instance for test setup
)

// Get returns the global configuration instance.
func Get() *Config {
	mu.Lock()
	defer mu.Unlock()

	if instance != nil {
		return instance
	}

	once.Do(func() {
		var err error
		instance, err = load()
		if err != nil {
			if os.Getenv("GO_TEST") == "1" || os.Getenv("ENVIRONMENT") == "test" {
				instance = NewTestConfig()
			} else {
				panic(fmt.Sprintf("failed to load config: %v", err))
			}
		}
	})
	return instance
}

// tomlConfig mirrors the subset of Config that config.toml may override;
// environment variables always take precedence over these values.
type tomlConfig struct {
	NetworkEnv      string  `toml:"network_env"`
	ChainIDEnv      string  `toml:"chain_id"`
	ChainRPCURL     string  `toml:"chain_rpc_url"`
	StoreBackend    string  `toml:"store_backend"`
	DataDir         string  `toml:"data_dir"`
	CommandPrefix   string  `toml:"command_prefix"`
	AllowedCommands []string `toml:"allowed_commands"`
	WelcomeMessage  string  `toml:"welcome_message"`
	WatcherPollInterval int `toml:"watcher_poll_interval_seconds"`
	MaxStake        float64 `toml:"max_stake"`
	DefaultStake    float64 `toml:"default_stake"`
}

// load loads configuration with the same "defaults → file → env override"
// layering the polymarketbot example uses: godotenv populates the process
// environment from a local .env (if present), an optional config.toml
// supplies the structured chain/network/provider blocks, and named
// environment variables win over both.
func load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		NetworkEnv:          "dev",
		ChainIDEnv:          "base-sepolia",
		StoreBackend:        "json",
		DataDir:             ".data",
		CommandPrefix:       "@toss",
		AllowedCommands:     []string{"help", "status", "join", "close", "balance", "refresh", "monitor"},
		WatcherPollInterval: 30,
		MaxStake:            10,
		DefaultStake:        0.1,
		Environment:         "development",
		CheckpointBackend:   "memory",
	}

	if path := getEnvWithDefault("CONFIG_FILE", "config.toml"); fileExists(path) {
		var tc tomlConfig
		if _, err := toml.DecodeFile(path, &tc); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
		applyTOML(cfg, tc)
	}

	cfg.WalletKey = os.Getenv("WALLET_KEY")
	cfg.DBEncryptionKey = os.Getenv("DB_ENCRYPTION_KEY")
	cfg.NetworkEnv = getEnvWithDefault("NETWORK_ENV", cfg.NetworkEnv)
	cfg.ChainIDEnv = getEnvWithDefault("CHAIN_ID", cfg.ChainIDEnv)
	cfg.ChainRPCURL = os.Getenv("CHAIN_RPC_URL")
	cfg.WalletProviderBaseURL = os.Getenv("WALLET_PROVIDER_BASE_URL")
	cfg.WalletProviderAPIKey = os.Getenv("WALLET_PROVIDER_API_KEY")
	cfg.LLMProviderKey = os.Getenv("LLM_PROVIDER_KEY")
	cfg.StoreBackend = getEnvWithDefault("STORE_BACKEND", cfg.StoreBackend)
	cfg.DataDir = getEnvWithDefault("DATA_DIR", cfg.DataDir)
	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	cfg.DatabaseName = os.Getenv("DATABASE_NAME")
	cfg.NATSServers = getEnvWithDefault("NATS_SERVERS", "nats://nats:4222")
	cfg.CheckpointBackend = getEnvWithDefault("CHECKPOINT_BACKEND", cfg.CheckpointBackend)
	cfg.RedisAddr = getEnvWithDefault("REDIS_ADDR", "localhost:6379")
	cfg.CommandPrefix = getEnvWithDefault("COMMAND_PREFIX", cfg.CommandPrefix)
	cfg.WelcomeMessage = os.Getenv("WELCOME_MESSAGE")
	cfg.Environment = getEnvWithDefault("ENVIRONMENT", cfg.Environment)

	if allowed := os.Getenv("ALLOWED_COMMANDS"); allowed != "" {
		cfg.AllowedCommands = splitAndTrim(allowed)
	}
	if v := os.Getenv("WATCHER_POLL_INTERVAL_SECONDS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.WatcherPollInterval = parsed
		}
	}
	if v := os.Getenv("MAX_STAKE"); v != "" {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.MaxStake = parsed
		}
	}
	if v := os.Getenv("DEFAULT_STAKE"); v != "" {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.DefaultStake = parsed
		}
	}

	params, ok := networkParams[cfg.ChainIDEnv]
	if !ok {
		return nil, fmt.Errorf("unknown chain id %q (valid: base-sepolia, base-mainnet)", cfg.ChainIDEnv)
	}
	cfg.StablecoinAddress = params.StablecoinAddress
	cfg.ChainID = params.ChainID
	cfg.NetworkName = params.Name

	if cfg.Environment != "test" {
		if cfg.WalletKey == "" {
			return nil, fmt.Errorf("WALLET_KEY is required")
		}
		if cfg.StoreBackend == "postgres" && cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required when STORE_BACKEND=postgres")
		}
		if cfg.ChainRPCURL == "" {
			return nil, fmt.Errorf("CHAIN_RPC_URL is required")
		}
	}

	return cfg, nil
}

func applyTOML(cfg *Config, tc tomlConfig) {
	if tc.NetworkEnv != "" {
		cfg.NetworkEnv = tc.NetworkEnv
	}
	if tc.ChainIDEnv != "" {
		cfg.ChainIDEnv = tc.ChainIDEnv
	}
	if tc.ChainRPCURL != "" {
		cfg.ChainRPCURL = tc.ChainRPCURL
	}
	if tc.StoreBackend != "" {
		cfg.StoreBackend = tc.StoreBackend
	}
	if tc.DataDir != "" {
		cfg.DataDir = tc.DataDir
	}
	if tc.CommandPrefix != "" {
		cfg.CommandPrefix = tc.CommandPrefix
	}
	if len(tc.AllowedCommands) > 0 {
		cfg.AllowedCommands = tc.AllowedCommands
	}
	if tc.WelcomeMessage != "" {
		cfg.WelcomeMessage = tc.WelcomeMessage
	}
	if tc.WatcherPollInterval > 0 {
		cfg.WatcherPollInterval = tc.WatcherPollInterval
	}
	if tc.MaxStake > 0 {
		cfg.MaxStake = tc.MaxStake
	}
	if tc.DefaultStake > 0 {
		cfg.DefaultStake = tc.DefaultStake
	}
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// getEnvWithDefault returns the environment variable value or a default
// if not set.
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// Test helpers - only use in tests.

// SetTestConfig overrides the global config instance for testing.
func SetTestConfig(testConfig *Config) {
	mu.Lock()
	defer mu.Unlock()
	instance = testConfig
}

// ResetConfig resets the global config instance and sync.Once for testing.
func ResetConfig() {
	mu.Lock()
	defer mu.Unlock()
	instance = nil
	once = sync.Once{}
}

// NewTestConfig creates a minimal config suitable for unit tests.
func NewTestConfig() *Config {
	params := networkParams["base-sepolia"]
	return &Config{
		Environment:         "test",
		NetworkEnv:          "dev",
		ChainIDEnv:          "base-sepolia",
		StablecoinAddress:  params.StablecoinAddress,
		ChainID:             params.ChainID,
		NetworkName:         params.Name,
		StoreBackend:        "json",
		DataDir:             ".data-test",
		CommandPrefix:       "@toss",
		AllowedCommands:     []string{"help", "status", "join", "close", "balance", "refresh", "monitor"},
		WatcherPollInterval: 30,
		MaxStake:            10,
		DefaultStake:        0.1,
	}
}
