package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

var hexAddressPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)

// Config structure represents the application configuration
type Config struct {
	Server struct {
		Port         string `yaml:"port" env:"SERVER_PORT"`
		Mode         string `yaml:"mode" env:"SERVER_MODE"`
		TempPath     string `yaml:"temp_path" env:"SERVER_TEMP_PATH"`
		ReadTimeout  string `yaml:"read_timeout" env:"SERVER_READ_TIMEOUT"`
		WriteTimeout string `yaml:"write_timeout" env:"SERVER_WRITE_TIMEOUT"`
		MaxUploadMB  int    `yaml:"max_upload_mb" env:"SERVER_MAX_UPLOAD_MB"`
	} `yaml:"server"`

	Storage struct {
		Provider     string `yaml:"provider" env:"STORAGE_PROVIDER"`
		PinataAPIURL string `yaml:"pinata_api_url" env:"PINATA_API_URL"`
		PinataJWT    string `yaml:"pinata_jwt" env:"PINATA_JWT"`
		PinataKey    string `yaml:"pinata_api_key" env:"PINATA_API_KEY"`
		PinataSecret string `yaml:"pinata_secret_key" env:"PINATA_SECRET_KEY"`
		GatewayURL   string `yaml:"gateway_url" env:"IPFS_GATEWAY_URL"`
		LocalPath    string `yaml:"local_path" env:"STORAGE_LOCAL_PATH"`
		LocalBaseURL string `yaml:"local_base_url" env:"STORAGE_LOCAL_BASE_URL"`
		Timeout      string `yaml:"timeout" env:"STORAGE_TIMEOUT"`
	} `yaml:"storage"`

	Ledger struct {
		RPCURL          string `yaml:"rpc_url" env:"LEDGER_RPC_URL"`
		PrivateKey      string `yaml:"private_key" env:"PRIVATE_KEY"`
		ContractAddress string `yaml:"contract_address" env:"LEDGER_CONTRACT_ADDRESS"`
		ChainID         int64  `yaml:"chain_id" env:"LEDGER_CHAIN_ID"`
		CallTimeout     string `yaml:"call_timeout" env:"LEDGER_CALL_TIMEOUT"`
		ConfirmTimeout  string `yaml:"confirm_timeout" env:"LEDGER_CONFIRM_TIMEOUT"`
		SettleInterval  string `yaml:"settle_interval" env:"LEDGER_SETTLE_INTERVAL"`
		SettleTimeout   string `yaml:"settle_timeout" env:"LEDGER_SETTLE_TIMEOUT"`
		QueueSize       int    `yaml:"queue_size" env:"LEDGER_QUEUE_SIZE"`
	} `yaml:"ledger"`

	Registry struct {
		ReadsPerSecond  float64 `yaml:"reads_per_second" env:"REGISTRY_READS_PER_SECOND"`
		MetadataTimeout string  `yaml:"metadata_timeout" env:"REGISTRY_METADATA_TIMEOUT"`
	} `yaml:"registry"`

	Auth struct {
		JWTSecret         string `yaml:"jwt_secret" env:"JWT_SECRET"`
		TokenExpiration   string `yaml:"token_expiration" env:"JWT_TOKEN_EXPIRATION"`
		Issuer            string `yaml:"issuer" env:"JWT_ISSUER"`
		AdminUsername     string `yaml:"admin_username" env:"ADMIN_USERNAME"`
		AdminPasswordHash string `yaml:"admin_password_hash" env:"ADMIN_PASSWORD_HASH"`
	} `yaml:"auth"`

	RateLimit struct {
		RequestsPerSecond int `yaml:"requests_per_second" env:"RATE_LIMIT_RPS"`
		Burst             int `yaml:"burst" env:"RATE_LIMIT_BURST"`
	} `yaml:"rate_limit"`

	Database struct {
		Enabled         bool   `yaml:"enabled" env:"DB_ENABLED"`
		Host            string `yaml:"host" env:"DB_HOST"`
		Port            string `yaml:"port" env:"DB_PORT"`
		User            string `yaml:"user" env:"DB_USER"`
		Password        string `yaml:"password" env:"DB_PASSWORD"`
		DBName          string `yaml:"dbname" env:"DB_NAME"`
		SSLMode         string `yaml:"sslmode" env:"DB_SSLMODE"`
		MaxIdleConns    int    `yaml:"max_idle_conns" env:"DB_MAX_IDLE_CONNS"`
		MaxOpenConns    int    `yaml:"max_open_conns" env:"DB_MAX_OPEN_CONNS"`
		ConnMaxLifetime string `yaml:"conn_max_lifetime" env:"DB_CONN_MAX_LIFETIME"`
		MigrationsPath  string `yaml:"migrations_path" env:"DB_MIGRATIONS_PATH"`
	} `yaml:"database"`

	Logging struct {
		Level  string `yaml:"level" env:"LOG_LEVEL"`
		Format string `yaml:"format" env:"LOG_FORMAT"`
	} `yaml:"logging"`

	Tracing struct {
		Enabled      bool    `yaml:"enabled" env:"TRACING_ENABLED"`
		ServiceName  string  `yaml:"service_name" env:"TRACING_SERVICE_NAME"`
		OTLPEndpoint string  `yaml:"otlp_endpoint" env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
		Insecure     bool    `yaml:"insecure" env:"TRACING_INSECURE"`
		SampleRate   float64 `yaml:"sample_rate" env:"TRACING_SAMPLE_RATE"`
		BatchTimeout string  `yaml:"batch_timeout" env:"TRACING_BATCH_TIMEOUT"`
	} `yaml:"tracing"`
}

// LoadConfig loads configuration from a file and environment variables
func LoadConfig(configPath string) (*Config, error) {
	config := &Config{}
	setDefaults(config)

	// The file is optional; environment variables alone are enough in containers
	if _, err := os.Stat(configPath); err == nil {
		file, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		if err := yaml.Unmarshal(file, config); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if err := processStructFields(config); err != nil {
		return nil, fmt.Errorf("failed to load from environment: %w", err)
	}

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// setDefaults sets default values for the configuration
func setDefaults(config *Config) {
	config.Server.Port = "3000"
	config.Server.Mode = "development"
	config.Server.TempPath = "uploads"
	config.Server.ReadTimeout = "30s"
	// Enrollment and minting wait for on-chain confirmation
	config.Server.WriteTimeout = "5m"
	config.Server.MaxUploadMB = 20

	config.Storage.Provider = "pinata"
	config.Storage.PinataAPIURL = "https://api.pinata.cloud"
	config.Storage.GatewayURL = "https://gateway.pinata.cloud"
	config.Storage.LocalPath = "data/ipfs"
	config.Storage.Timeout = "60s"

	config.Ledger.CallTimeout = "30s"
	config.Ledger.ConfirmTimeout = "3m"
	config.Ledger.SettleInterval = "500ms"
	config.Ledger.SettleTimeout = "30s"
	config.Ledger.QueueSize = 64

	config.Registry.ReadsPerSecond = 2
	config.Registry.MetadataTimeout = "10s"

	config.Auth.TokenExpiration = "8h"
	config.Auth.Issuer = "diplomaregistry"
	config.Auth.AdminUsername = "registrar"

	config.RateLimit.RequestsPerSecond = 10
	config.RateLimit.Burst = 20

	config.Database.Enabled = false
	config.Database.Host = "localhost"
	config.Database.Port = "5432"
	config.Database.User = "postgres"
	config.Database.Password = "postgres"
	config.Database.DBName = "diplomaregistry"
	config.Database.SSLMode = "disable"
	config.Database.MaxIdleConns = 2
	config.Database.MaxOpenConns = 10
	config.Database.ConnMaxLifetime = "1h"
	config.Database.MigrationsPath = "migrations"

	config.Logging.Level = "info"
	config.Logging.Format = "json"

	config.Tracing.Enabled = false
	config.Tracing.ServiceName = "diplomaregistry"
	config.Tracing.OTLPEndpoint = "localhost:4317"
	config.Tracing.SampleRate = 1.0
	config.Tracing.BatchTimeout = "5s"
}

// validateConfig ensures that the configuration is valid
func validateConfig(config *Config) error {
	switch config.Storage.Provider {
	case "pinata":
		if config.Storage.PinataJWT == "" && (config.Storage.PinataKey == "" || config.Storage.PinataSecret == "") {
			return fmt.Errorf("pinata provider requires a JWT or an API key/secret pair")
		}
		if config.Storage.GatewayURL == "" {
			return fmt.Errorf("storage gateway URL is required")
		}
	case "local":
		if config.Storage.LocalPath == "" {
			return fmt.Errorf("local storage path is required")
		}
	default:
		return fmt.Errorf("unknown storage provider %q", config.Storage.Provider)
	}

	if config.Ledger.RPCURL == "" {
		return fmt.Errorf("ledger RPC URL is required")
	}
	if config.Ledger.PrivateKey == "" {
		return fmt.Errorf("ledger private key is required")
	}
	if !hexAddressPattern.MatchString(config.Ledger.ContractAddress) {
		return fmt.Errorf("ledger contract address %q is not a 0x-prefixed 20-byte hex address", config.Ledger.ContractAddress)
	}

	if config.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT secret is required")
	}
	if config.Auth.AdminPasswordHash == "" {
		return fmt.Errorf("admin password hash is required")
	}

	for name, value := range map[string]string{
		"server.read_timeout":       config.Server.ReadTimeout,
		"server.write_timeout":      config.Server.WriteTimeout,
		"storage.timeout":           config.Storage.Timeout,
		"ledger.call_timeout":       config.Ledger.CallTimeout,
		"ledger.confirm_timeout":    config.Ledger.ConfirmTimeout,
		"ledger.settle_interval":    config.Ledger.SettleInterval,
		"ledger.settle_timeout":     config.Ledger.SettleTimeout,
		"registry.metadata_timeout": config.Registry.MetadataTimeout,
		"auth.token_expiration":     config.Auth.TokenExpiration,
		"tracing.batch_timeout":     config.Tracing.BatchTimeout,
	} {
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("invalid duration for %s: %w", name, err)
		}
	}

	if config.Registry.ReadsPerSecond <= 0 {
		return fmt.Errorf("registry reads_per_second must be positive")
	}

	if config.Tracing.Enabled && config.Tracing.OTLPEndpoint == "" {
		return fmt.Errorf("tracing requires an OTLP endpoint")
	}
	if config.Tracing.SampleRate < 0 || config.Tracing.SampleRate > 1 {
		return fmt.Errorf("tracing sample_rate must be between 0 and 1")
	}

	return nil
}

// IsProduction reports whether the server runs in release mode
func (c *Config) IsProduction() bool {
	return strings.ToLower(c.Server.Mode) == "production"
}

// GetPostgresConnectionString returns postgres connection string
func (c *Config) GetPostgresConnectionString() string {
	sslMode := c.Database.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}

	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.DBName,
		sslMode,
	)
}
