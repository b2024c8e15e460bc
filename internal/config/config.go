package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config application configuration structure
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	JobStore    JobStoreConfig    `yaml:"jobStore"`
	Chain       ChainConfig       `yaml:"chain"`
	Credentials CredentialsConfig `yaml:"credentials"`
	AgentIndex  AgentIndexConfig  `yaml:"agentIndex"`
	NATS        NATSConfig        `yaml:"nats"`
	CORS        CORSConfig        `yaml:"cors"`
	Admin       AdminConfig       `yaml:"admin"`
	Manifest    ManifestConfig    `yaml:"manifest"`
}

// ServerConfig server configuration
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// JobStoreConfig external job store API configuration
type JobStoreConfig struct {
	BaseURL string `yaml:"baseUrl"`
	Timeout int    `yaml:"timeout"` // seconds
}

// ContractsConfig deployed contract addresses
type ContractsConfig struct {
	IdentityRegistry   string `yaml:"identityRegistry"`
	ReputationRegistry string `yaml:"reputationRegistry"`
	Escrow             string `yaml:"escrow"`
	Token              string `yaml:"token"`
}

// ChainConfig blockchain configuration
type ChainConfig struct {
	Name           string          `yaml:"name"`
	ChainID        int64           `yaml:"chainId"`
	RPCEndpoints   []string        `yaml:"rpcEndpoints"`
	Contracts      ContractsConfig `yaml:"contracts"`
	TokenSymbol    string          `yaml:"tokenSymbol"`
	TokenDecimals  uint8           `yaml:"tokenDecimals"`
	PrivateKey     string          `yaml:"privateKey"` // hex, without 0x prefix
	GasLimit       uint64          `yaml:"gasLimit"`
	ConfirmTimeout int             `yaml:"confirmTimeout"` // seconds to wait for a receipt
	PollInterval   int             `yaml:"pollInterval"`   // seconds between receipt polls
	Enabled        bool            `yaml:"enabled"`
}

// CredentialsConfig poster token store configuration
type CredentialsConfig struct {
	Path string `yaml:"path"`
}

// AgentIndexConfig wallet -> agent id reverse index configuration
type AgentIndexConfig struct {
	Enabled      bool   `yaml:"enabled"`
	Path         string `yaml:"path"`         // sqlite file path
	StartBlock   uint64 `yaml:"startBlock"`   // registry deployment block
	SyncInterval int    `yaml:"syncInterval"` // minutes between event replays
}

// NATSConfig lifecycle event publishing configuration
type NATSConfig struct {
	URL           string `yaml:"url"`
	SubjectPrefix string `yaml:"subjectPrefix"`
}

// CORSConfig CORS configuration
type CORSConfig struct {
	AllowedOrigins   []string `yaml:"allowedOrigins"`
	AllowCredentials bool     `yaml:"allowCredentials"`
	MaxAge           int      `yaml:"maxAge"`
}

// AdminConfig admin endpoint access control configuration
type AdminConfig struct {
	AllowedIPs []string `yaml:"allowedIPs"`
}

// ManifestConfig agent discovery manifest content
type ManifestConfig struct {
	Name           string  `yaml:"name"`
	Description    string  `yaml:"description"`
	Version        string  `yaml:"version"`
	BaseURL        string  `yaml:"baseUrl"`
	OperatorName   string  `yaml:"operatorName"`
	OperatorWallet string  `yaml:"operatorWallet"`
	Twitter        string  `yaml:"twitter"`
	Github         string  `yaml:"github"`
	MinJobValue    float64 `yaml:"minJobValue"`
	PlatformFeeBps int     `yaml:"platformFeeBps"`
}

var AppConfig *Config

// LoadConfig loads the configuration file, preferring config.local.yaml when present
func LoadConfig(configPath string) error {
	if configPath == "" {
		configPath = "config.yaml"
		if _, err := os.Stat("config.local.yaml"); err == nil {
			configPath = "config.local.yaml"
		}
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	applyDefaults(&config)
	overrideFromEnv(&config)

	AppConfig = &config
	return nil
}

// applyDefaults fills fields the config file may omit
func applyDefaults(config *Config) {
	if config.Server.Port == 0 {
		config.Server.Port = 8091
	}
	if config.JobStore.Timeout == 0 {
		config.JobStore.Timeout = 15
	}
	if config.Chain.TokenSymbol == "" {
		config.Chain.TokenSymbol = "USDC"
	}
	if config.Chain.TokenDecimals == 0 {
		config.Chain.TokenDecimals = 6
	}
	if config.Chain.GasLimit == 0 {
		config.Chain.GasLimit = 300000
	}
	if config.Chain.ConfirmTimeout == 0 {
		config.Chain.ConfirmTimeout = 180
	}
	if config.Chain.PollInterval == 0 {
		config.Chain.PollInterval = 2
	}
	if config.Credentials.Path == "" {
		config.Credentials.Path = "poster_tokens.json"
	}
	if config.AgentIndex.Path == "" {
		config.AgentIndex.Path = "agent_index.db"
	}
	if config.AgentIndex.SyncInterval == 0 {
		config.AgentIndex.SyncInterval = 3
	}
	if config.Manifest.PlatformFeeBps == 0 {
		config.Manifest.PlatformFeeBps = 200
	}
	if config.Manifest.Version == "" {
		config.Manifest.Version = "2.0.0"
	}
}

// overrideFromEnv overrides configuration from environment variables
func overrideFromEnv(config *Config) {
	if host := os.Getenv("SERVER_HOST"); host != "" {
		config.Server.Host = host
	}
	if port := os.Getenv("SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}

	if jobStore := os.Getenv("JOBSTORE_BASE_URL"); jobStore != "" {
		config.JobStore.BaseURL = jobStore
	}
	if timeout := os.Getenv("JOBSTORE_TIMEOUT"); timeout != "" {
		if t, err := strconv.Atoi(timeout); err == nil {
			config.JobStore.Timeout = t
		}
	}

	if rpcEndpoints := os.Getenv("CHAIN_RPC_ENDPOINTS"); rpcEndpoints != "" {
		endpoints := strings.Split(rpcEndpoints, ",")
		config.Chain.RPCEndpoints = make([]string, 0, len(endpoints))
		for _, e := range endpoints {
			if trimmed := strings.TrimSpace(e); trimmed != "" {
				config.Chain.RPCEndpoints = append(config.Chain.RPCEndpoints, trimmed)
			}
		}
	}
	if chainID := os.Getenv("CHAIN_ID"); chainID != "" {
		if id, err := strconv.ParseInt(chainID, 10, 64); err == nil {
			config.Chain.ChainID = id
		}
	}
	if privateKey := os.Getenv("PRIVATE_KEY"); privateKey != "" {
		config.Chain.PrivateKey = privateKey
	}

	if identity := os.Getenv("IDENTITY_REGISTRY"); identity != "" {
		config.Chain.Contracts.IdentityRegistry = identity
	}
	if reputation := os.Getenv("REPUTATION_REGISTRY"); reputation != "" {
		config.Chain.Contracts.ReputationRegistry = reputation
	}
	if escrow := os.Getenv("ESCROW_CONTRACT"); escrow != "" {
		config.Chain.Contracts.Escrow = escrow
	}
	if token := os.Getenv("TOKEN_CONTRACT"); token != "" {
		config.Chain.Contracts.Token = token
	}

	if tokensPath := os.Getenv("POSTER_TOKENS_PATH"); tokensPath != "" {
		config.Credentials.Path = tokensPath
	}

	if natsURL := os.Getenv("NATS_URL"); natsURL != "" {
		config.NATS.URL = natsURL
	}

	if corsOrigins := os.Getenv("CORS_ALLOWED_ORIGINS"); corsOrigins != "" {
		origins := strings.Split(corsOrigins, ",")
		config.CORS.AllowedOrigins = make([]string, 0, len(origins))
		for _, origin := range origins {
			if trimmed := strings.TrimSpace(origin); trimmed != "" {
				config.CORS.AllowedOrigins = append(config.CORS.AllowedOrigins, trimmed)
			}
		}
	}
}
