package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

const keyEnv = "ENV"
const envLocal = "local"

const (
	DriverBolt  = "bolt"
	DriverMongo = "mongo"
)

const (
	defaultPort                = "8080"
	defaultDriver              = DriverBolt
	defaultKVDBPath            = "./.docsearch/docsearch.db"
	defaultMongoDatabase       = "studyshare"
	defaultMongoCollection     = "files"
	defaultResultsPerPage      = 20
	defaultMaxResultsPerPage   = 100
	defaultAnonymousUploader   = "anonymous"
	defaultSuggestionCacheSize = 512
	defaultRateLimitRPS        = 20
	defaultRateLimitBurst      = 40
	defaultRebuildTimeout      = 5 * time.Minute
	defaultLogLevel            = "info"
)

type Config struct {
	config *viper.Viper
}

func Load(env string) (*Config, error) {

	if len(env) == 0 {
		if env = os.Getenv(keyEnv); len(env) == 0 {
			env = envLocal
		}
	}

	configPath, err := getConfigPath(env)

	viperConfig := viper.New()
	if err == nil {
		viperConfig.SetConfigFile(configPath)
		if err := viperConfig.ReadInConfig(); err != nil {
			slog.Warn(fmt.Sprintf("error reading config file, %s", err))
		}
	}
	viperConfig.AutomaticEnv()

	cfg := &Config{
		config: viperConfig,
	}

	return cfg, nil
}

func (c *Config) GetPort() string {
	return c.getString("PORT", "server.port", defaultPort)
}

func (c *Config) GetDatabaseDriver() string {
	return c.getString("DATABASE_DRIVER", "database.driver", defaultDriver)
}

func (c *Config) GetKVDBPath() string {
	return c.getString("KVDB_PATH", "database.kvdb_path", defaultKVDBPath)
}

// GetIndexPath is where the listing index lives on disk. Empty keeps it in memory.
func (c *Config) GetIndexPath() string {
	return c.getString("INDEX_PATH", "database.index_path", "")
}

func (c *Config) GetMongoURI() string {
	return c.getString("MONGO_URI", "mongo.uri", "")
}

func (c *Config) GetMongoDatabase() string {
	return c.getString("MONGO_DATABASE", "mongo.database", defaultMongoDatabase)
}

func (c *Config) GetMongoCollection() string {
	return c.getString("MONGO_COLLECTION", "mongo.collection", defaultMongoCollection)
}

func (c *Config) GetDefaultResultsPerPage() int {
	return c.getInt("SEARCH_DEFAULT_LIMIT", "search.default_limit", defaultResultsPerPage)
}

func (c *Config) GetMaxResultsPerPage() int {
	return c.getInt("SEARCH_MAX_LIMIT", "search.max_limit", defaultMaxResultsPerPage)
}

func (c *Config) GetAnonymousUploader() string {
	return c.getString("SEARCH_ANONYMOUS_UPLOADER", "search.anonymous_uploader", defaultAnonymousUploader)
}

func (c *Config) GetSuggestionCacheSize() int {
	return c.getInt("SEARCH_SUGGESTION_CACHE_SIZE", "search.suggestion_cache_size", defaultSuggestionCacheSize)
}

func (c *Config) GetRateLimitRPS() float64 {
	rps := c.config.GetFloat64("SEARCH_RATE_LIMIT_RPS")
	if rps == 0 {
		rps = c.config.GetFloat64("search.rate_limit_rps")
	}
	if rps == 0 {
		rps = defaultRateLimitRPS
	}

	return rps
}

func (c *Config) GetRateLimitBurst() int {
	return c.getInt("SEARCH_RATE_LIMIT_BURST", "search.rate_limit_burst", defaultRateLimitBurst)
}

func (c *Config) GetRebuildTimeout() time.Duration {
	timeout := c.config.GetDuration("INDEX_REBUILD_TIMEOUT")
	if timeout == 0 {
		timeout = c.config.GetDuration("index.rebuild_timeout")
	}
	if timeout == 0 {
		timeout = defaultRebuildTimeout
	}

	return timeout
}

func (c *Config) GetLogLevel() string {
	return c.getString("LOG_LEVEL", "log.level", defaultLogLevel)
}

// getString prefers the environment variable, then the config file key, then the default.
func (c *Config) getString(envKey string, fileKey string, defaultValue string) string {
	value := c.config.GetString(envKey)
	if len(value) == 0 {
		value = c.config.GetString(fileKey)
	}
	if len(value) == 0 {
		value = defaultValue
	}

	return value
}

func (c *Config) getInt(envKey string, fileKey string, defaultValue int) int {
	value := c.config.GetInt(envKey)
	if value == 0 {
		value = c.config.GetInt(fileKey)
	}
	if value == 0 {
		value = defaultValue
	}

	return value
}

func getProjectRoot() (string, error) {
	currentDir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get current working directory: %w", err)
	}

	for {
		configDir := filepath.Join(currentDir, "config")
		if info, err := os.Stat(configDir); err == nil && info.IsDir() {
			return currentDir, nil
		}

		parent := filepath.Dir(currentDir)

		if parent == currentDir {
			break
		}

		currentDir = parent
	}

	return "", fmt.Errorf("could not find project root (directory containing 'config' folder)")
}

func getConfigPath(env string) (string, error) {
	configFile := fmt.Sprintf("config.%s.yaml", env)

	projectRoot, err := getProjectRoot()
	if err != nil {
		slog.Warn("failed to find project root with config directory, will use environment variables instead", "err", err.Error())
		return "", fmt.Errorf("failed to find project root: %w", err)
	}
	configPath := filepath.Join(projectRoot, "config", configFile)
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		slog.Warn("failed to find config file within config directory, will use environment variables instead", "err", err.Error())
		return "", fmt.Errorf("config file does not exist: %s", configPath)
	}

	return configPath, nil
}
