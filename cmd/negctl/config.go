package main

import (
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the settings shared by all commands.
type Config struct {
	Server  string        `mapstructure:"server"`
	Timeout time.Duration `mapstructure:"timeout"`
	NoColor bool          `mapstructure:"no_color"`
	Quiet   bool          `mapstructure:"quiet"`
}

// Defaults contains default values for the client.
var Defaults = struct {
	Server  string
	Timeout time.Duration
}{
	Server:  "http://localhost:8080",
	Timeout: 30 * time.Second,
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server", Defaults.Server)
	v.SetDefault("timeout", Defaults.Timeout)
	v.SetDefault("no_color", false)
	v.SetDefault("quiet", false)
}

// loadConfig layers flags over NEGCTL_* environment variables over defaults.
func loadConfig(v *viper.Viper) {
	setDefaults(v)

	v.SetEnvPrefix("NEGCTL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	// NO_COLOR is honoured regardless of prefix
	if os.Getenv("NO_COLOR") != "" {
		v.Set("no_color", true)
	}
}

func configFrom(v *viper.Viper) Config {
	cfg := Config{
		Server:  strings.TrimRight(v.GetString("server"), "/"),
		Timeout: v.GetDuration("timeout"),
		NoColor: v.GetBool("no_color"),
		Quiet:   v.GetBool("quiet"),
	}
	// NEGCTL_SERVER= or NEGCTL_TIMEOUT=0 fall back to the defaults
	if cfg.Server == "" {
		cfg.Server = Defaults.Server
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = Defaults.Timeout
	}
	return cfg
}
