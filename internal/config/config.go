package config

import (
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config holds application configuration (env + Viper).
type Config struct {
	Env                 string
	Port                string
	DatabaseURL         string
	RedisURL            string
	LogLevel            string
	CustomerDataFile    string // default spreadsheet for customer ingestion
	LoanDataFile        string // default spreadsheet for loan ingestion
	FrontendURLEndsWith string
}

// Load loads config from env and optional .env file.
func Load() (*Config, error) {
	viper.SetConfigFile(".env")
	_ = viper.ReadInConfig()

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	port := viper.GetString("PORT")
	if port == "" {
		port = "8080"
	}
	env := viper.GetString("APP_ENV")
	if env == "" {
		env = "development"
	}

	dbURL := viper.GetString("DATABASE_URL_DEV")
	if env == "production" {
		dbURL = viper.GetString("DATABASE_URL_PROD")
	} else if env == "test" {
		dbURL = viper.GetString("DATABASE_URL_TEST")
	}
	if dbURL == "" {
		dbURL = os.Getenv("DATABASE_URL")
	}

	customerFile := viper.GetString("CUSTOMER_DATA_FILE")
	if customerFile == "" {
		customerFile = "customer_data.xlsx"
	}
	loanFile := viper.GetString("LOAN_DATA_FILE")
	if loanFile == "" {
		loanFile = "loan_data.xlsx"
	}

	return &Config{
		Env:                 env,
		Port:                port,
		DatabaseURL:         dbURL,
		RedisURL:            viper.GetString("REDIS_URL"),
		LogLevel:            viper.GetString("LOG_LEVEL"),
		CustomerDataFile:    customerFile,
		LoanDataFile:        loanFile,
		FrontendURLEndsWith: viper.GetString("FRONTEND_URL_ENDS_WITH"),
	}, nil
}
