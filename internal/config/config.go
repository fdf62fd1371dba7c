package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"hskmaster/internal/validation"
)

// Config holds application configuration
type Config struct {
	DatabaseType   string `json:"database.type" validate:"oneof=sqlite sqlite3 sqlite-pure postgres postgresql mysql"`
	DatabasePath   string `json:"database.path"`
	DatabaseURL    string `json:"database.url" validate:"required_if=DatabaseType postgres,required_if=DatabaseType postgresql,required_if=DatabaseType mysql"`
	MaxOpenConns   int    `json:"database.max_open_conns" validate:"gte=0"`
	CounterBackend string `json:"counters.backend" validate:"oneof=bolt sql memory"`
	CounterPath    string `json:"counters.path" validate:"required_if=CounterBackend bolt"`
	AssetsPath     string `json:"assets.path" validate:"required"`
	LogLevel       string `json:"log.level" validate:"oneof=trace debug info warn warning error fatal panic"`
	LogFormat      string `json:"log.format" validate:"oneof=text json"`
	Timezone       string `json:"timezone"`
	RetentionDays  int    `json:"retention.days" validate:"gte=1"`

	// Location is resolved from Timezone; calendar days are computed in it
	Location *time.Location `json:"-"`
}

// NewViper builds the viper instance: defaults, an optional config.yaml in the
// working directory, a .env file and HSK_* environment variables
func NewViper() (*viper.Viper, error) {
	// .env is optional
	_ = godotenv.Load()

	v := viper.New()
	SetDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.SetEnvPrefix("HSK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	return v, nil
}

// SetDefaults registers the default value of every configuration key
func SetDefaults(v *viper.Viper) {
	v.SetDefault("database.type", "sqlite")
	v.SetDefault("database.path", "./hskmaster.db")
	v.SetDefault("database.url", "")
	v.SetDefault("database.max_open_conns", 0)
	v.SetDefault("counters.backend", "bolt")
	v.SetDefault("counters.path", "./hskmaster-progress.db")
	v.SetDefault("assets.path", "./assets")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("timezone", "Local")
	v.SetDefault("retention.days", 30)
}

// Load reads configuration from the environment, .env and config.yaml
func Load() (*Config, error) {
	v, err := NewViper()
	if err != nil {
		return nil, err
	}
	return FromViper(v)
}

// FromViper builds and validates a Config from an already populated viper
func FromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		DatabaseType:   strings.ToLower(v.GetString("database.type")),
		DatabasePath:   v.GetString("database.path"),
		DatabaseURL:    v.GetString("database.url"),
		MaxOpenConns:   v.GetInt("database.max_open_conns"),
		CounterBackend: strings.ToLower(v.GetString("counters.backend")),
		CounterPath:    v.GetString("counters.path"),
		AssetsPath:     v.GetString("assets.path"),
		LogLevel:       strings.ToLower(v.GetString("log.level")),
		LogFormat:      strings.ToLower(v.GetString("log.format")),
		Timezone:       v.GetString("timezone"),
		RetentionDays:  v.GetInt("retention.days"),
	}

	if err := validation.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	loc, err := loadLocation(cfg.Timezone)
	if err != nil {
		return nil, err
	}
	cfg.Location = loc

	return cfg, nil
}

func loadLocation(name string) (*time.Location, error) {
	if name == "" || strings.EqualFold(name, "local") {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", name, err)
	}
	return loc, nil
}
