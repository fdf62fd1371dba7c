package config

import (
	"fmt"

	"github.com/spf13/pflag"
)

// flagKeys maps command-line flags to configuration keys
var flagKeys = map[string]string{
	"database-type":    "database.type",
	"database-path":    "database.path",
	"database-url":     "database.url",
	"max-open-conns":   "database.max_open_conns",
	"counters-backend": "counters.backend",
	"counters-path":    "counters.path",
	"assets-path":      "assets.path",
	"log-level":        "log.level",
	"log-format":       "log.format",
	"timezone":         "timezone",
	"retention-days":   "retention.days",
}

// RegisterFlags adds the configuration flags to fs. A flag only overrides
// the environment and config file when it is set explicitly.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("database-type", "", "database type: sqlite, sqlite-pure, postgres or mysql")
	fs.String("database-path", "", "SQLite database file")
	fs.String("database-url", "", "PostgreSQL or MySQL connection URL")
	fs.Int("max-open-conns", 0, "connection pool size, 0 for the driver default")
	fs.String("counters-backend", "", "progress counter store: bolt, sql or memory")
	fs.String("counters-path", "", "bolt file for progress counters")
	fs.String("assets-path", "", "directory holding vocabulary and test assets")
	fs.String("log-level", "", "log level")
	fs.String("log-format", "", "log format: text or json")
	fs.String("timezone", "", "IANA timezone used for calendar days")
	fs.Int("retention-days", 0, "days of learning records kept by clear")
}

// LoadWithFlags reads configuration like Load, with explicitly set flags of
// fs taking precedence
func LoadWithFlags(fs *pflag.FlagSet) (*Config, error) {
	v, err := NewViper()
	if err != nil {
		return nil, err
	}
	for name, key := range flagKeys {
		flag := fs.Lookup(name)
		if flag == nil {
			continue
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return nil, fmt.Errorf("failed to bind flag %s: %w", name, err)
		}
	}
	return FromViper(v)
}
