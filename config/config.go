/*
config.go - Application configuration

PURPOSE:
  Loads server configuration from an optional YAML file with environment
  variable overrides (DUES_* prefix). Every field has a sensible default
  so the server runs with no config file at all.

SEE ALSO:
  - cmd/server/main.go: wiring and flag overrides
*/
package config

import (
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	HTTP struct {
		Addr string `mapstructure:"addr"`
		Port int    `mapstructure:"port"`
	} `mapstructure:"http"`

	Store struct {
		// Driver is "sqlite" or "memory".
		Driver string `mapstructure:"driver"`
		Path   string `mapstructure:"path"`
	} `mapstructure:"store"`

	Backup struct {
		// CheckInterval is how often the auto-backup scheduler wakes up,
		// e.g. "10m". The backup frequency itself lives in the database.
		CheckInterval string `mapstructure:"check_interval"`
	} `mapstructure:"backup"`
}

func defaults(v *viper.Viper) {
	v.SetDefault("http.addr", "")
	v.SetDefault("http.port", 8080)
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.path", "dues.db")
	v.SetDefault("backup.check_interval", "10m")
}

// Load reads config from path (optional; "" skips file loading) and the
// environment. Env vars use the DUES_ prefix with underscores for nesting,
// e.g. DUES_HTTP_PORT=9090.
func Load(path string) (Config, error) {
	v := viper.New()
	defaults(v)
	v.SetEnvPrefix("DUES")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var c Config
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return c, err
		}
	}
	if err := v.Unmarshal(&c); err != nil {
		return c, err
	}
	return c, nil
}
