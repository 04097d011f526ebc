package global

import (
	"errors"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Conf global config
var Conf Config

type Config struct {
	Host       string           `mapstructure:"host"`
	Port       int              `mapstructure:"port"`
	Scheme     string           `mapstructure:"scheme"`
	Mode       string           `mapstructure:"mode"`
	Version    string           `mapstructure:"version"`
	Relay      RelayConfig      `mapstructure:"relay"`
	Security   SecurityConfig   `mapstructure:"security"`
	Prometheus PrometheusConfig `mapstructure:"prometheus"`
	Cors       CorsConfig       `mapstructure:"cors"`
}

type RelayConfig struct {
	DefaultTTLSeconds       int64 `mapstructure:"defaultTtlSeconds"`
	MaxTTLSeconds           int64 `mapstructure:"maxTtlSeconds"`
	EvictionIntervalSeconds int   `mapstructure:"evictionIntervalSeconds"`
	MaxCiphertextBytes      int   `mapstructure:"maxCiphertextBytes"`
	MaxMailboxEnvelopes     int   `mapstructure:"maxMailboxEnvelopes"`
	MaxTotalEnvelopes       int   `mapstructure:"maxTotalEnvelopes"`
}

type SecurityConfig struct {
	MaxFailedAttempts       int `mapstructure:"maxFailedAttempts"`
	BlockDurationSeconds    int `mapstructure:"blockDurationSeconds"`
	RelayRequestsPerMinute  int `mapstructure:"relayRequestsPerMinute"`
	StatusRequestsPerMinute int `mapstructure:"statusRequestsPerMinute"`
	HealthRequestsPerMinute int `mapstructure:"healthRequestsPerMinute"`
}

type PrometheusConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

type CorsConfig struct {
	AllowedOrigins []string `mapstructure:"allowedOrigins"`
}

// LoadConfig reads the yaml configuration at configPath into Conf. A missing
// file is not fatal; defaults apply and BLINDRELAY_* environment variables
// override individual keys (dots become underscores).
func LoadConfig(configPath string) error {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("port", 8000)
	v.SetDefault("scheme", "http")
	v.SetDefault("mode", "debug")
	v.SetDefault("version", "0.1.0")

	v.SetDefault("relay.defaultTtlSeconds", 1800)
	v.SetDefault("relay.maxTtlSeconds", 86400)
	v.SetDefault("relay.evictionIntervalSeconds", 60)
	v.SetDefault("relay.maxCiphertextBytes", 262144)
	v.SetDefault("relay.maxMailboxEnvelopes", 1000)
	v.SetDefault("relay.maxTotalEnvelopes", 100000)

	v.SetDefault("security.maxFailedAttempts", 5)
	v.SetDefault("security.blockDurationSeconds", 300)
	v.SetDefault("security.relayRequestsPerMinute", 100)
	v.SetDefault("security.statusRequestsPerMinute", 60)
	v.SetDefault("security.healthRequestsPerMinute", 120)

	v.SetDefault("prometheus.enabled", false)
	v.SetDefault("prometheus.username", "")
	v.SetDefault("prometheus.password", "")

	v.SetDefault("cors.allowedOrigins", []string{"*"})

	v.SetEnvPrefix("BLINDRELAY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return err
		}
		Logger.Log("msg", "config file not found, using defaults", "path", configPath)
	}

	return v.Unmarshal(&Conf)
}
