// config/config.go
package config

import (
	"log"
	"time"

	"github.com/spf13/viper"
)

// Configuration stores all the configurations
type Configuration struct {
	Server        ServerConfiguration
	Redis         RedisConfiguration
	Elasticsearch ElasticsearchConfiguration
	Endpoints     EndpointConfiguration
	Session       SessionConfiguration
	Cache         CacheConfiguration
}

// ServerConfiguration stores the port and other web server settings
type ServerConfiguration struct {
	Port string
}

// RedisConfiguration stores data for the Redis connection (durable cache tier)
type RedisConfiguration struct {
	Addr            string
	DefaultCacheTTL string
}

// ElasticsearchConfiguration stores data for the analytics sink
type ElasticsearchConfiguration struct {
	URL string
}

// EndpointConfiguration stores the base URLs of the remote collaborators
type EndpointConfiguration struct {
	Subscription string
	Training     string
	QMS          string
	Documents    string
	Overview     string
}

// SessionConfiguration stores the idle-monitor timings
type SessionConfiguration struct {
	IdleTimeout      string
	WarningLead      string
	ActivityDebounce string
}

// CacheConfiguration stores the per-profile TTLs
type CacheConfiguration struct {
	FastTTL     string
	StandardTTL string
}

var config *Configuration

func InitConfig() error {
	viper.AddConfigPath("config") // path to look for the config file in
	viper.SetConfigName("config") // name of the config file (without extension)
	viper.SetConfigType("yaml")   // REQUIRED if the config file does not have the extension in the name

	viper.AutomaticEnv() // read in environment variables that match

	// Set default configurations
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.defaultCacheTTL", "24h")
	viper.SetDefault("elasticsearch.url", "http://localhost:9200")
	viper.SetDefault("endpoints.subscription", "http://localhost:9001")
	viper.SetDefault("endpoints.training", "http://localhost:9002")
	viper.SetDefault("endpoints.qms", "http://localhost:9003")
	viper.SetDefault("endpoints.documents", "http://localhost:9004")
	viper.SetDefault("endpoints.overview", "http://localhost:9005")
	viper.SetDefault("session.idleTimeout", "30m")
	viper.SetDefault("session.warningLead", "3m")
	viper.SetDefault("session.activityDebounce", "1s")
	viper.SetDefault("cache.fastTTL", "10m")
	viper.SetDefault("cache.standardTTL", "5m")
	viper.SetDefault("gate.lockoutPath", "/billing/locked")
	viper.SetDefault("gate.allowedPrefixes", []string{"/billing", "/upgrade"})
	viper.SetDefault("ratelimit.requests", 100)
	viper.SetDefault("ratelimit.window", "1m")
	viper.SetDefault("log.dir", "logging")

	// Attempt to read the config file
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			log.Println("No config file found. Using default settings and environment variables.")
		} else {
			return err
		}
	}

	// Unmarshal the configuration into the Configuration struct
	err := viper.Unmarshal(&config)
	if err != nil {
		return err
	}

	return nil
}

// GetConfig returns the loaded configuration
func GetConfig() *Configuration {
	return config
}

// GetString retrieves a string value from the configuration
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt retrieves an integer value from the configuration
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetBool retrieves a boolean value from the configuration
func GetBool(key string) bool {
	return viper.GetBool(key)
}

// GetDuration retrieves a duration value from the configuration
func GetDuration(key string) time.Duration {
	return viper.GetDuration(key)
}

// GetStringSlice retrieves a string slice value from the configuration
func GetStringSlice(key string) []string {
	return viper.GetStringSlice(key)
}
