package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Store backends
const (
	StoreDynamoDB = "dynamodb"
	StoreSQLite   = "sqlite"
	StoreMemory   = "memory"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	ServerAddress string `yaml:"server_address"`
	Environment   string `yaml:"environment"`

	// Storage
	StoreBackend string `yaml:"store_backend"`
	SQLitePath   string `yaml:"sqlite_path"`

	// AWS configuration
	AWSRegion     string `yaml:"aws_region"`
	DynamoDBTable string `yaml:"table_name"`
	IndexName     string `yaml:"index_name"`
	EventBusName  string `yaml:"event_bus_name"`

	// Write coordination and event delivery
	LockLease      time.Duration `yaml:"lock_lease"`
	LockTimeout    time.Duration `yaml:"lock_timeout"`
	OutboxInterval time.Duration `yaml:"outbox_interval"`

	// Lambda configuration
	IsLambda           bool   `yaml:"is_lambda"`
	LambdaFunctionName string `yaml:"-"`

	// WebSocket configuration
	WebSocketEndpoint string `yaml:"websocket_endpoint"`
	ConnectionsTable  string `yaml:"connections_table"`

	// Logging
	LogLevel string `yaml:"log_level"`

	// Authentication
	JWTSecret string `yaml:"jwt_secret"`
	JWTIssuer string `yaml:"jwt_issuer"`

	// Traffic
	AllowedOrigins []string      `yaml:"allowed_origins"`
	RateLimitRPS   float64       `yaml:"rate_limit_rps"`
	RateLimitBurst int           `yaml:"rate_limit_burst"`
	TreeCacheTTL   time.Duration `yaml:"tree_cache_ttl"`

	// Feature flags
	EnableMetrics bool `yaml:"enable_metrics"`
	EnableTracing bool `yaml:"enable_tracing"`
	EnableCORS    bool `yaml:"enable_cors"`

	// LoadedFrom lists the sources applied, lowest priority first
	LoadedFrom []string `yaml:"-"`
}

// DefaultConfig returns the built-in defaults
func DefaultConfig() *Config {
	return &Config{
		ServerAddress:    ":8080",
		Environment:      "development",
		StoreBackend:     StoreMemory,
		SQLitePath:       "familytree.db",
		AWSRegion:        "us-west-2",
		DynamoDBTable:    "familytree",
		IndexName:        "GSI1",
		LockLease:        30 * time.Second,
		LockTimeout:      10 * time.Second,
		OutboxInterval:   5 * time.Second,
		EventBusName:     "familytree-events",
		ConnectionsTable: "familytree-connections",
		LogLevel:         "info",
		JWTIssuer:        "familytree",
		AllowedOrigins:   []string{"*"},
		RateLimitRPS:     50,
		RateLimitBurst:   100,
		TreeCacheTTL:     5 * time.Minute,
		EnableCORS:       true,
	}
}

// LoadConfig loads configuration from defaults, an optional YAML file named
// by CONFIG_FILE, and environment variables, in increasing priority.
func LoadConfig() (*Config, error) {
	cfg := DefaultConfig()
	cfg.LoadedFrom = []string{"defaults"}

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
		cfg.LoadedFrom = append(cfg.LoadedFrom, path)
	}

	cfg.applyEnv()
	cfg.LoadedFrom = append(cfg.LoadedFrom, "environment")

	// Validate required configuration
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Load is an alias for LoadConfig
func Load() (*Config, error) {
	return LoadConfig()
}

func (c *Config) loadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	decoder := yaml.NewDecoder(f)
	decoder.KnownFields(true)
	if err := decoder.Decode(c); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.ServerAddress = getEnv("SERVER_ADDRESS", c.ServerAddress)
	c.Environment = getEnv("ENVIRONMENT", c.Environment)

	c.StoreBackend = strings.ToLower(getEnv("STORE_BACKEND", c.StoreBackend))
	c.SQLitePath = getEnv("SQLITE_PATH", c.SQLitePath)

	c.AWSRegion = getEnv("AWS_REGION", c.AWSRegion)
	c.DynamoDBTable = getEnv("TABLE_NAME", getEnv("DYNAMODB_TABLE", c.DynamoDBTable))
	c.IndexName = getEnv("INDEX_NAME", c.IndexName)
	c.EventBusName = getEnv("EVENT_BUS_NAME", c.EventBusName)

	c.LockLease = getEnvDuration("LOCK_LEASE", c.LockLease)
	c.LockTimeout = getEnvDuration("LOCK_TIMEOUT", c.LockTimeout)
	c.OutboxInterval = getEnvDuration("OUTBOX_INTERVAL", c.OutboxInterval)

	c.LambdaFunctionName = getEnv("AWS_LAMBDA_FUNCTION_NAME", c.LambdaFunctionName)
	c.IsLambda = getEnvBool("IS_LAMBDA", c.IsLambda || c.LambdaFunctionName != "")

	c.WebSocketEndpoint = getEnv("WEBSOCKET_ENDPOINT", c.WebSocketEndpoint)
	c.ConnectionsTable = getEnv("CONNECTIONS_TABLE", c.ConnectionsTable)

	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)

	c.JWTSecret = getEnv("JWT_SECRET", c.JWTSecret)
	c.JWTIssuer = getEnv("JWT_ISSUER", c.JWTIssuer)

	c.AllowedOrigins = getEnvList("ALLOWED_ORIGINS", c.AllowedOrigins)
	c.RateLimitRPS = getEnvFloat("RATE_LIMIT_RPS", c.RateLimitRPS)
	c.RateLimitBurst = getEnvInt("RATE_LIMIT_BURST", c.RateLimitBurst)
	c.TreeCacheTTL = getEnvDuration("TREE_CACHE_TTL", c.TreeCacheTTL)

	c.EnableMetrics = getEnvBool("ENABLE_METRICS", c.EnableMetrics)
	c.EnableTracing = getEnvBool("ENABLE_TRACING", c.EnableTracing)
	c.EnableCORS = getEnvBool("ENABLE_CORS", c.EnableCORS)
}

// Validate checks if all required configuration is present
func (c *Config) Validate() error {
	switch c.StoreBackend {
	case StoreDynamoDB, StoreSQLite, StoreMemory:
	default:
		return fmt.Errorf("STORE_BACKEND must be one of dynamodb, sqlite, memory; got %q", c.StoreBackend)
	}
	if c.StoreBackend == StoreSQLite && c.SQLitePath == "" {
		return fmt.Errorf("SQLITE_PATH is required for the sqlite backend")
	}
	if c.RateLimitRPS < 0 || c.RateLimitBurst < 0 {
		return fmt.Errorf("rate limits cannot be negative")
	}
	if c.TreeCacheTTL < 0 {
		return fmt.Errorf("TREE_CACHE_TTL cannot be negative")
	}

	if c.Environment == "production" {
		if c.JWTSecret == "" {
			return fmt.Errorf("JWT_SECRET is required in production")
		}
		if c.StoreBackend == StoreMemory {
			return fmt.Errorf("the memory store cannot be used in production")
		}
		if c.StoreBackend == StoreDynamoDB && c.DynamoDBTable == "" {
			return fmt.Errorf("TABLE_NAME is required")
		}
		if c.EventBusName == "" {
			return fmt.Errorf("EVENT_BUS_NAME is required")
		}
	}

	return nil
}

// IsDevelopment checks if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction checks if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool gets a boolean environment variable with a default value
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value == "true" || value == "1" || value == "yes"
}

// getEnvInt gets an integer environment variable with a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// getEnvList splits a comma separated variable, dropping blanks
func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
