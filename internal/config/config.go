package config

import (
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

func LoadConfig() {
	viper.SetConfigName("config")         // name of config file (without extension)
	viper.SetConfigType("yaml")           // REQUIRED if the config file does not have the extension in the name
	viper.AddConfigPath("/etc/openeoct/") // path to look for the config file in
	viper.AddConfigPath(".")              // optionally look for config in the working directory
	SetDefaultConfig()
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			log.Debug().Msg("Config file not found, using defaults")
		} else {
			log.Panic().Err(err).Msg("Fatal error reading config file")
		}
	}
}

func SetDefaultConfig() {
	// Contracts
	viper.SetDefault("spec.directory", "specs")
	viper.SetDefault("spec.pattern", "openeo-api-%s")

	// Navigation
	viper.SetDefault("navigation.proxy", "")
	viper.SetDefault("navigation.insecure", false)

	// Capabilities
	viper.SetDefault("capabilities.timeout", 5)

	// Runner
	viper.SetDefault("runner.timeout", 30)
	viper.SetDefault("runner.concurrency", 4)
	viper.SetDefault("runner.auth_path", "/credentials/basic")

	// Storage
	viper.SetDefault("db.type", "sqlite")
	viper.SetDefault("db.dsn", "")
	viper.SetDefault("db.path", "openeoct.db")

	// API
	viper.SetDefault("api.listen.host", "")
	viper.SetDefault("api.listen.port", 8013)
	viper.SetDefault("api.cors.origins", []string{"*"})
	viper.SetDefault("api.auth.username", "")
	viper.SetDefault("api.auth.password", "")
	viper.SetDefault("api.docs.enabled", false)
	viper.SetDefault("api.docs.path", "/docs")

	// Logging
	viper.SetDefault("logging.file", "")
}

// Seconds reads an integer number of seconds.
func Seconds(key string) time.Duration {
	return time.Duration(viper.GetInt(key)) * time.Second
}
