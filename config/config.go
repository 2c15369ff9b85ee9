package config

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type Config struct {
	Port        string
	DBHost      string
	DBPort      string
	DBUser      string
	DBPassword  string
	DBName      string
	JWTSecret   string
	Environment string

	// Exchange access
	BybitBaseURL   string
	BybitWSURL     string
	BybitAPIKey    string
	BybitAPISecret string

	// Bot behaviour
	TradeMode       string
	DefaultSymbol   string
	MaxSymbols      int
	ScanIntervalSec int
	Timeframe       string
	DryRun          bool

	// Risk
	MaxDailyLossPct float64
	MaxDailyTrades  int
	KellySizing     bool

	// Storage
	MarketDBPath  string
	MongoURI      string
	MongoDBName   string
	MLWeightsPath string
}

var AppConfig *Config
var DB *gorm.DB

// LoadConfig loads environment variables
func LoadConfig() (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	config := &Config{
		Port:        getEnv("PORT", "8080"),
		DBHost:      getEnv("DB_HOST", "localhost"),
		DBPort:      getEnv("DB_PORT", "5432"),
		DBUser:      getEnv("DB_USER", "postgres"),
		DBPassword:  getEnv("DB_PASSWORD", ""),
		DBName:      getEnv("DB_NAME", "titan_db"),
		JWTSecret:   getEnv("JWT_SECRET", "your-secret-key"),
		Environment: getEnv("ENVIRONMENT", "development"),

		BybitBaseURL:   getEnv("BYBIT_BASE_URL", "https://api.bybit.com"),
		BybitWSURL:     getEnv("BYBIT_WS_URL", "wss://stream.bybit.com/v5/public/linear"),
		BybitAPIKey:    getEnv("BYBIT_API_KEY", ""),
		BybitAPISecret: getEnv("BYBIT_API_SECRET", ""),

		TradeMode:       getEnv("TRADE_MODE", "MODERATE"),
		DefaultSymbol:   getEnv("DEFAULT_SYMBOL", "BTCUSDT"),
		MaxSymbols:      getEnvInt("MAX_SYMBOLS", 20),
		ScanIntervalSec: getEnvInt("SCAN_INTERVAL_SEC", 300),
		Timeframe:       getEnv("TIMEFRAME", "15"),
		DryRun:          getEnvBool("DRY_RUN", true),

		MaxDailyLossPct: getEnvFloat("MAX_DAILY_LOSS_PCT", 5.0),
		MaxDailyTrades:  getEnvInt("MAX_DAILY_TRADES", 30),
		KellySizing:     getEnvBool("KELLY_SIZING", false),

		MarketDBPath:  getEnv("MARKET_DB_PATH", "data/market.db"),
		MongoURI:      getEnv("MONGODB_URI", ""),
		MongoDBName:   getEnv("MONGODB_DATABASE", "titan_features"),
		MLWeightsPath: getEnv("ML_WEIGHTS_PATH", "data/ml_weights.json"),
	}

	AppConfig = config
	return config, nil
}

// InitDB initializes database connection
func InitDB() (*gorm.DB, error) {
	// Log connection info (masked for security)
	log.Printf("Connecting to database: host=%s port=%s user=%s dbname=%s",
		maskHost(AppConfig.DBHost),
		AppConfig.DBPort,
		AppConfig.DBUser,
		AppConfig.DBName,
	)

	dsn := fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=require TimeZone=UTC",
		AppConfig.DBHost,
		AppConfig.DBUser,
		AppConfig.DBPassword,
		AppConfig.DBName,
		AppConfig.DBPort,
	)

	var logLevel logger.LogLevel
	if AppConfig.Environment == "production" {
		logLevel = logger.Error
	} else {
		logLevel = logger.Info
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})

	if err != nil {
		log.Printf("Database connection error: %v", err)
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Verify connection with ping
	sqlDB, err := db.DB()
	if err != nil {
		log.Printf("Failed to get underlying database: %v", err)
		return nil, fmt.Errorf("failed to get database: %w", err)
	}

	if err := sqlDB.Ping(); err != nil {
		log.Printf("Database ping failed: %v", err)
		return nil, fmt.Errorf("database ping failed: %w", err)
	}

	log.Printf("Database connection verified successfully")
	DB = db
	return db, nil
}

// maskHost masks host for logging, preserving domain structure
func maskHost(host string) string {
	if len(host) <= 3 {
		return "***"
	}
	if len(host) <= 15 {
		return host[:3] + "***"
	}
	return host[:8] + "***" + host[len(host)-10:]
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("Invalid integer for %s=%q, using default %d", key, value, defaultValue)
		return defaultValue
	}
	return n
}

func getEnvFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		log.Printf("Invalid number for %s=%q, using default %v", key, value, defaultValue)
		return defaultValue
	}
	return f
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		log.Printf("Invalid boolean for %s=%q, using default %v", key, value, defaultValue)
		return defaultValue
	}
	return b
}
