package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Provider ProviderConfig `yaml:"provider"`
	Update   UpdateConfig   `yaml:"update"`
	Trigger  TriggerConfig  `yaml:"trigger"`
	Cache    CacheConfig    `yaml:"cache"`
	Log      LogConfig      `yaml:"log"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            string        `yaml:"port" default:"8080" validate:"required,numeric"`
	Host            string        `yaml:"host" default:"0.0.0.0"`
	ReadTimeout     time.Duration `yaml:"read_timeout" default:"15s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" default:"15s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"30s"`
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Host          string `yaml:"host" default:"localhost" validate:"required"`
	Port          string `yaml:"port" default:"5432" validate:"required,numeric"`
	User          string `yaml:"user" default:"postgres" validate:"required"`
	Password      string `yaml:"password" default:"postgres"`
	DBName        string `yaml:"dbname" default:"stocksignals" validate:"required"`
	SSLMode       string `yaml:"sslmode" default:"disable" validate:"oneof=disable require verify-ca verify-full"`
	MigrationsDir string `yaml:"migrations_dir" default:"db/migrations"`
	AutoMigrate   bool   `yaml:"auto_migrate" default:"true"`
}

// RedisConfig holds the series cache Redis connection
type RedisConfig struct {
	Addr      string        `yaml:"addr" default:"localhost:6379" validate:"required"`
	Password  string        `yaml:"password"`
	DB        int           `yaml:"db" default:"0" validate:"gte=0"`
	KeyPrefix string        `yaml:"key_prefix" default:"stock-signal:"`
	TTL       time.Duration `yaml:"ttl" default:"0s"`
}

// KafkaConfig holds Kafka configuration. Publishing and consuming are
// both skipped when Enabled is false.
type KafkaConfig struct {
	Enabled       bool     `yaml:"enabled" default:"true"`
	Brokers       []string `yaml:"brokers" validate:"required_if=Enabled true,dive,hostname_port"`
	Topic         string   `yaml:"topic" default:"stock-events" validate:"required_if=Enabled true"`
	SnapshotTopic string   `yaml:"snapshot_topic" default:"stock-snapshots" validate:"required_if=Enabled true"`
	GroupID       string   `yaml:"group_id" default:"stock-signal-service" validate:"required_if=Enabled true"`
}

// ProviderConfig holds the market-data provider client settings
type ProviderConfig struct {
	BaseURL      string        `yaml:"base_url" default:"https://query1.finance.yahoo.com" validate:"required,url"`
	UserAgent    string        `yaml:"user_agent"`
	Timeout      time.Duration `yaml:"timeout" default:"30s" validate:"gt=0"`
	MarketSuffix string        `yaml:"market_suffix" default:".T"`
}

// UpdateConfig tunes the bulk update run
type UpdateConfig struct {
	ChunkSize       int           `yaml:"chunk_size" default:"50" validate:"gte=1,lte=1000"`
	RetryDelay      time.Duration `yaml:"retry_delay" default:"10m" validate:"gt=0"`
	ItemDelay       time.Duration `yaml:"item_delay" default:"500ms" validate:"gte=0"`
	BenchmarkSymbol string        `yaml:"benchmark_symbol" default:"^GSPC" validate:"required"`
}

// TriggerConfig holds the daily trigger schedule
type TriggerConfig struct {
	Enabled  bool   `yaml:"enabled" default:"true"`
	Cutoff   string `yaml:"cutoff" default:"09:30" validate:"datetime=15:04"`
	Location string `yaml:"location" default:"Asia/Tokyo" validate:"timezone"`
}

// CacheConfig selects the series record backend
type CacheConfig struct {
	Backend        string `yaml:"backend" default:"postgres" validate:"oneof=postgres redis"`
	MarketLocation string `yaml:"market_location" default:"Asia/Tokyo" validate:"timezone"`
}

// LogConfig holds logger settings
type LogConfig struct {
	Level      string `yaml:"level" default:"info" validate:"oneof=trace debug info warn error fatal panic"`
	Format     string `yaml:"format" default:"json" validate:"oneof=json console"`
	Output     string `yaml:"output" default:"stdout" validate:"required"`
	TimeFormat string `yaml:"time_format"`
}

// Load builds the configuration from defaults, an optional YAML file and
// environment overrides, in that order, then validates it. An empty path
// skips the file.
func Load(path string) (*Config, error) {
	c := &Config{}
	if err := defaults.Set(c); err != nil {
		return nil, fmt.Errorf("failed to apply defaults: %w", err)
	}
	c.Kafka.Brokers = []string{"localhost:9092"}

	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(b, c); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if err := c.applyEnv(); err != nil {
		return nil, err
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return c, nil
}

func (c *Config) applyEnv() error {
	c.Server.Port = getEnv("SERVER_PORT", c.Server.Port)
	c.Server.Host = getEnv("SERVER_HOST", c.Server.Host)

	c.Database.Host = getEnv("DB_HOST", c.Database.Host)
	c.Database.Port = getEnv("DB_PORT", c.Database.Port)
	c.Database.User = getEnv("DB_USER", c.Database.User)
	c.Database.Password = getEnv("DB_PASSWORD", c.Database.Password)
	c.Database.DBName = getEnv("DB_NAME", c.Database.DBName)
	c.Database.SSLMode = getEnv("DB_SSLMODE", c.Database.SSLMode)
	c.Database.MigrationsDir = getEnv("DB_MIGRATIONS_DIR", c.Database.MigrationsDir)

	c.Redis.Addr = getEnv("REDIS_ADDR", c.Redis.Addr)
	c.Redis.Password = getEnv("REDIS_PASSWORD", c.Redis.Password)

	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = splitList(v)
	}
	c.Kafka.Topic = getEnv("KAFKA_TOPIC", c.Kafka.Topic)
	c.Kafka.SnapshotTopic = getEnv("KAFKA_SNAPSHOT_TOPIC", c.Kafka.SnapshotTopic)
	c.Kafka.GroupID = getEnv("KAFKA_GROUP_ID", c.Kafka.GroupID)

	c.Provider.BaseURL = getEnv("PROVIDER_BASE_URL", c.Provider.BaseURL)
	c.Update.BenchmarkSymbol = getEnv("BENCHMARK_SYMBOL", c.Update.BenchmarkSymbol)
	c.Trigger.Cutoff = getEnv("TRIGGER_CUTOFF", c.Trigger.Cutoff)
	c.Trigger.Location = getEnv("TRIGGER_LOCATION", c.Trigger.Location)
	c.Cache.Backend = getEnv("CACHE_BACKEND", c.Cache.Backend)
	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
	c.Log.Format = getEnv("LOG_FORMAT", c.Log.Format)

	var err error
	if c.Kafka.Enabled, err = getEnvBool("KAFKA_ENABLED", c.Kafka.Enabled); err != nil {
		return err
	}
	if c.Trigger.Enabled, err = getEnvBool("TRIGGER_ENABLED", c.Trigger.Enabled); err != nil {
		return err
	}
	if c.Update.RetryDelay, err = getEnvDuration("UPDATE_RETRY_DELAY", c.Update.RetryDelay); err != nil {
		return err
	}
	if c.Update.ItemDelay, err = getEnvDuration("UPDATE_ITEM_DELAY", c.Update.ItemDelay); err != nil {
		return err
	}
	return nil
}

// Validate checks the struct tags and returns every violation.
func (c *Config) Validate() error {
	err := validator.New().Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
	}
	return errors.New(strings.Join(msgs, "; "))
}

// ConnectionString returns the PostgreSQL connection string
func (d *DatabaseConfig) ConnectionString() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     d.Host + ":" + d.Port,
		Path:     "/" + d.DBName,
		RawQuery: "sslmode=" + d.SSLMode,
	}
	return u.String()
}

// Location loads the cache market timezone.
func (c *CacheConfig) Location() (*time.Location, error) {
	return time.LoadLocation(c.MarketLocation)
}

// LoadLocation loads the trigger timezone.
func (t *TriggerConfig) LoadLocation() (*time.Location, error) {
	return time.LoadLocation(t.Location)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
