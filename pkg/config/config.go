package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration, loaded once at startup.
type Config struct {
	// Application
	LogLevel string
	LogFile  string
	HTTPPort string

	// Strategy
	MakerHalfSpread     float64
	TakerEdgeThreshold  float64
	QuoteRefreshTTLMs   int64
	InventorySkewFactor float64
	SigmaFloor          float64
	UseNormalCDF        bool
	MaxInventory        float64
	DefaultQuoteSize    float64
	DefaultTakerSize    float64
	MaxSlippage         float64
	GasCostUSD          float64
	BaseTakerFee        float64
	MakerRebate         float64
	FeeMarketType       string
	ToxicityVolThreshold    float64
	ToxicitySpreadThreshold float64

	// Risk
	MaxNotionalPerMarket float64
	MaxInventoryPerToken float64
	MaxOpenOrdersTotal   int
	MaxOrdersPerMin      int
	MaxDailyLoss         float64
	MaxTakerSlippage     float64
	FeedStaleMs          int64

	// Execution
	DryRun           bool
	PrivateKey       string
	APIKey           string
	APISecret        string
	APIPassphrase    string
	ChainID          int64
	CLOBURL          string
	PriceFeedWSURL   string
	BookFeedWSURL    string

	// General
	DBPath             string
	MarketRegistryPath string
	LoopIntervalMs     int64
	KillSwitch         bool
	KillSwitchFilePath string
	KillSwitchPollMs   int64

	// Storage
	StorageMode  string // "postgres" or "console"
	PostgresHost string
	PostgresPort string
	PostgresUser string
	PostgresPass string
	PostgresDB   string
	PostgresSSL  string
}

// LoadFromEnv loads a .env file if present, then reads every recognized
// environment variable into a validated Config.
func LoadFromEnv() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		LogLevel: getEnvOrDefault("LOG_LEVEL", "info"),
		LogFile:  getEnvOrDefault("LOG_FILE", ""),
		HTTPPort: getEnvOrDefault("HTTP_PORT", "8080"),

		MakerHalfSpread:     getFloat64OrDefault("MAKER_HALF_SPREAD", 0.01),
		TakerEdgeThreshold:  getFloat64OrDefault("TAKER_EDGE_THRESHOLD", 0.03),
		QuoteRefreshTTLMs:   getInt64OrDefault("QUOTE_REFRESH_TTL_MS", 3000),
		InventorySkewFactor: getFloat64OrDefault("INVENTORY_SKEW_FACTOR", 0.0001),
		SigmaFloor:          getFloat64OrDefault("SIGMA_FLOOR", 0.005),
		UseNormalCDF:        getBoolOrDefault("USE_NORMAL_CDF", true),
		MaxInventory:        getFloat64OrDefault("MAX_INVENTORY", 500.0),
		DefaultQuoteSize:    getFloat64OrDefault("DEFAULT_QUOTE_SIZE", 10.0),
		DefaultTakerSize:    getFloat64OrDefault("DEFAULT_TAKER_SIZE", 10.0),
		MaxSlippage:         getFloat64OrDefault("MAX_SLIPPAGE", 0.02),
		GasCostUSD:          getFloat64OrDefault("GAS_COST_USD", 0.01),
		BaseTakerFee:        getFloat64OrDefault("BASE_TAKER_FEE", 0.02),
		MakerRebate:         getFloat64OrDefault("MAKER_REBATE", 0.002),
		FeeMarketType:       getEnvOrDefault("FEE_MARKET_TYPE", "default"),
		ToxicityVolThreshold:    getFloat64OrDefault("TOXICITY_VOL_THRESHOLD", 0.001),
		ToxicitySpreadThreshold: getFloat64OrDefault("TOXICITY_SPREAD_THRESHOLD", 0.05),

		MaxNotionalPerMarket: getFloat64OrDefault("MAX_NOTIONAL_PER_MARKET", 1000.0),
		MaxInventoryPerToken: getFloat64OrDefault("MAX_INVENTORY_PER_TOKEN", 500.0),
		MaxOpenOrdersTotal:   getIntOrDefault("MAX_OPEN_ORDERS_TOTAL", 50),
		MaxOrdersPerMin:      getIntOrDefault("MAX_ORDERS_PER_MIN", 30),
		MaxDailyLoss:         getFloat64OrDefault("MAX_DAILY_LOSS", 100.0),
		MaxTakerSlippage:     getFloat64OrDefault("MAX_TAKER_SLIPPAGE", 0.02),
		FeedStaleMs:          getInt64OrDefault("FEED_STALE_MS", 5000),

		DryRun:        getBoolOrDefault("DRY_RUN", true),
		PrivateKey:    os.Getenv("PRIVATE_KEY"),
		APIKey:        os.Getenv("POLYMARKET_API_KEY"),
		APISecret:     os.Getenv("POLYMARKET_SECRET"),
		APIPassphrase: os.Getenv("POLYMARKET_PASSPHRASE"),
		ChainID:       getInt64OrDefault("CHAIN_ID", 137),
		CLOBURL:       getEnvOrDefault("CLOB_URL", "https://clob.polymarket.com"),
		PriceFeedWSURL: getEnvOrDefault("PRICE_FEED_WS_URL", "wss://ws.kraken.com/"),
		BookFeedWSURL:  getEnvOrDefault("BOOK_FEED_WS_URL", "wss://ws-subscriptions-clob.polymarket.com/ws/market"),

		DBPath:             getEnvOrDefault("DB_PATH", "./engine.db"),
		MarketRegistryPath: getEnvOrDefault("MARKET_REGISTRY_PATH", "./markets.json"),
		LoopIntervalMs:     getInt64OrDefault("LOOP_INTERVAL_MS", 500),
		KillSwitch:         getBoolOrDefault("KILL_SWITCH", false),
		KillSwitchFilePath: getEnvOrDefault("KILL_SWITCH_FILE_PATH", "./KILL_SWITCH"),
		KillSwitchPollMs:   getInt64OrDefault("KILL_SWITCH_POLL_MS", 1000),

		StorageMode:  getEnvOrDefault("STORAGE_MODE", "console"),
		PostgresHost: getEnvOrDefault("POSTGRES_HOST", "localhost"),
		PostgresPort: getEnvOrDefault("POSTGRES_PORT", "5432"),
		PostgresUser: getEnvOrDefault("POSTGRES_USER", "engine"),
		PostgresPass: getEnvOrDefault("POSTGRES_PASSWORD", "engine123"),
		PostgresDB:   getEnvOrDefault("POSTGRES_DB", "binary_engine"),
		PostgresSSL:  getEnvOrDefault("POSTGRES_SSLMODE", "disable"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// Validate checks that configuration values are sane.
func (c *Config) Validate() error {
	if c.HTTPPort == "" {
		return errors.New("HTTP_PORT cannot be empty")
	}
	if c.MaxNotionalPerMarket <= 0 {
		return errors.New("MAX_NOTIONAL_PER_MARKET must be positive")
	}
	if c.MaxInventoryPerToken <= 0 {
		return errors.New("MAX_INVENTORY_PER_TOKEN must be positive")
	}
	if c.MaxOpenOrdersTotal <= 0 {
		return errors.New("MAX_OPEN_ORDERS_TOTAL must be positive")
	}
	if c.MaxOrdersPerMin <= 0 {
		return errors.New("MAX_ORDERS_PER_MIN must be positive")
	}
	if c.MaxDailyLoss <= 0 {
		return errors.New("MAX_DAILY_LOSS must be positive")
	}
	if c.FeedStaleMs <= 0 {
		return errors.New("FEED_STALE_MS must be positive")
	}
	if c.LoopIntervalMs <= 0 {
		return errors.New("LOOP_INTERVAL_MS must be positive")
	}
	if c.TakerEdgeThreshold <= 0 {
		return fmt.Errorf("TAKER_EDGE_THRESHOLD must be positive, got %f", c.TakerEdgeThreshold)
	}
	if c.StorageMode != "postgres" && c.StorageMode != "console" {
		return fmt.Errorf("STORAGE_MODE must be 'postgres' or 'console', got %q", c.StorageMode)
	}
	if !c.DryRun && c.PrivateKey == "" {
		return errors.New("PRIVATE_KEY is required when DRY_RUN is false")
	}
	return nil
}

func getEnvOrDefault(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	intVal, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}

	return intVal
}

func getInt64OrDefault(key string, defaultValue int64) int64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	intVal, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return defaultValue
	}

	return intVal
}

func getFloat64OrDefault(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	floatVal, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}

	return floatVal
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	duration, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}

	return duration
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	boolVal, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}

	return boolVal
}
