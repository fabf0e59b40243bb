package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/xaenox/growth-hub/internal/storage"
)

type Config struct {
	Telegram TelegramConfig `mapstructure:"telegram"`
	Provider ProviderConfig `mapstructure:"provider"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Database DatabaseConfig `mapstructure:"database"`
	Usage    UsageConfig    `mapstructure:"usage"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Log      LogConfig      `mapstructure:"log"`
}

type TelegramConfig struct {
	Token         string `mapstructure:"token"`
	Debug         bool   `mapstructure:"debug"`
	UpdateTimeout int    `mapstructure:"update_timeout"`
}

// ProviderConfig seeds the API settings of sessions that have none yet.
type ProviderConfig struct {
	Name    string        `mapstructure:"name"`
	APIKey  string        `mapstructure:"api_key"`
	Model   string        `mapstructure:"model"`
	BaseURL string        `mapstructure:"base_url"`
	Referer string        `mapstructure:"referer"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type StorageConfig struct {
	Driver string `mapstructure:"driver"`
	Path   string `mapstructure:"path"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

type UsageConfig struct {
	Enabled    bool `mapstructure:"enabled"`
	FreeTokens int  `mapstructure:"free_tokens"`
	PaidTokens int  `mapstructure:"paid_tokens"`
}

type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

type LogConfig struct {
	Development bool `mapstructure:"development"`
}

// envOnlyKeys have no default but can still be set from the environment,
// e.g. provider.api_key from PROVIDER_API_KEY.
var envOnlyKeys = []string{
	"telegram.token",
	"telegram.debug",
	"provider.name",
	"provider.api_key",
	"provider.model",
	"provider.base_url",
	"provider.referer",
	"database.password",
	"metrics.addr",
}

// providerKeyEnv maps a provider name to the env variable holding its key.
var providerKeyEnv = map[string]string{
	"openai":     "OPENAI_API_KEY",
	"groq":       "GROQ_API_KEY",
	"openrouter": "OPENROUTER_API_KEY",
}

func parseDatabaseURL(dbURL string) (DatabaseConfig, error) {
	u, err := url.Parse(dbURL)
	if err != nil {
		return DatabaseConfig{}, err
	}
	if u.Scheme != "postgres" && u.Scheme != "postgresql" {
		return DatabaseConfig{}, fmt.Errorf("unsupported scheme %q", u.Scheme)
	}

	password, _ := u.User.Password()
	port := 5432 // default PostgreSQL port
	if u.Port() != "" {
		fmt.Sscanf(u.Port(), "%d", &port)
	}

	sslMode := u.Query().Get("sslmode")
	if sslMode == "" {
		sslMode = "disable"
	}

	return DatabaseConfig{
		Host:     u.Hostname(),
		Port:     port,
		User:     u.User.Username(),
		Password: password,
		DBName:   strings.TrimPrefix(u.Path, "/"),
		SSLMode:  sslMode,
	}, nil
}

// LoadConfig reads path, or ./config.yaml when path is empty and the file
// exists, then applies environment overrides.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()

	// Set default values
	v.SetDefault("telegram.update_timeout", 60)
	v.SetDefault("provider.timeout", 30*time.Second)
	v.SetDefault("storage.driver", storage.DriverBolt)
	v.SetDefault("storage.path", "data/growth-hub.db")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.dbname", "growth_hub")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("usage.enabled", true)
	v.SetDefault("usage.free_tokens", 1000)
	v.SetDefault("usage.paid_tokens", 10000)
	v.SetDefault("log.development", false)

	// Enable environment variable support, e.g. STORAGE_DRIVER
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Keys without a default are unknown to Unmarshal unless bound.
	for _, key := range envOnlyKeys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("failed to bind env for %s: %w", key, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config: %w", err)
			}
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	// Check for DATABASE_URL environment variable
	if dbURL := v.GetString("DATABASE_URL"); dbURL != "" {
		dbConfig, err := parseDatabaseURL(dbURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse DATABASE_URL: %w", err)
		}
		config.Database = dbConfig
		if config.Storage.Driver == storage.DriverBolt {
			config.Storage.Driver = storage.DriverPostgres
		}
	}

	if token := v.GetString("TELEGRAM_TOKEN"); token != "" {
		config.Telegram.Token = token
	}

	config.Provider.Name = strings.ToLower(strings.TrimSpace(config.Provider.Name))
	if config.Provider.APIKey == "" {
		config.applyProviderEnv(v)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// applyProviderEnv fills the provider key from the environment. Without a
// configured provider the first key found wins.
func (c *Config) applyProviderEnv(v *viper.Viper) {
	if c.Provider.Name != "" {
		if env, ok := providerKeyEnv[c.Provider.Name]; ok {
			c.Provider.APIKey = v.GetString(env)
		}
		return
	}
	for _, name := range []string{"groq", "openrouter", "openai"} {
		if key := v.GetString(providerKeyEnv[name]); key != "" {
			c.Provider.Name = name
			c.Provider.APIKey = key
			return
		}
	}
}

func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case storage.DriverMemory:
	case storage.DriverBolt, storage.DriverSQLite:
		if c.Storage.Path == "" {
			return fmt.Errorf("storage.path is required for driver %s", c.Storage.Driver)
		}
	case storage.DriverPostgres:
		if c.Database.DBName == "" {
			return errors.New("database.dbname is required for driver postgres")
		}
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}

	if c.Provider.Name != "" {
		if _, ok := providerKeyEnv[c.Provider.Name]; !ok {
			return fmt.Errorf("unknown provider %q", c.Provider.Name)
		}
	}
	return nil
}

// StorageOptions converts the storage and database sections for storage.New.
func (c *Config) StorageOptions() storage.Options {
	return storage.Options{
		Driver: c.Storage.Driver,
		Path:   c.Storage.Path,
		Database: storage.DatabaseConfig{
			Host:     c.Database.Host,
			Port:     c.Database.Port,
			User:     c.Database.User,
			Password: c.Database.Password,
			DBName:   c.Database.DBName,
			SSLMode:  c.Database.SSLMode,
		},
	}
}
