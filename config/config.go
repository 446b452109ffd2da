package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Log     LogConfig     `mapstructure:"log"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

type ServerConfig struct {
	TCPAddress   string        `mapstructure:"tcp_address"`
	HTTPAddress  string        `mapstructure:"http_address"`
	RPCAddress   string        `mapstructure:"rpc_address"`
	Heartbeat    time.Duration `mapstructure:"heartbeat"`
	SendBuffer   int           `mapstructure:"send_buffer"`
	MaxLineBytes int           `mapstructure:"max_line_bytes"`
}

// LogConfig 日志配置，File 为空时只输出到标准错误
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

type MetricsConfig struct {
	Namespace string `mapstructure:"namespace"`
}

// Default returns the configuration used when no file or flag overrides it.
func Default() Config {
	return Config{
		Server: ServerConfig{
			TCPAddress:   ":8000",
			HTTPAddress:  ":8080",
			SendBuffer:   256,
			MaxLineBytes: 64 * 1024,
		},
		Log: LogConfig{
			Level:      "info",
			Format:     "console",
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 7,
		},
		Metrics: MetricsConfig{Namespace: "ascension"},
	}
}

func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("server.tcp_address", d.Server.TCPAddress)
	v.SetDefault("server.http_address", d.Server.HTTPAddress)
	v.SetDefault("server.rpc_address", d.Server.RPCAddress)
	v.SetDefault("server.heartbeat", d.Server.Heartbeat)
	v.SetDefault("server.send_buffer", d.Server.SendBuffer)
	v.SetDefault("server.max_line_bytes", d.Server.MaxLineBytes)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("log.file", d.Log.File)
	v.SetDefault("log.max_size_mb", d.Log.MaxSizeMB)
	v.SetDefault("log.max_backups", d.Log.MaxBackups)
	v.SetDefault("log.max_age_days", d.Log.MaxAgeDays)
	v.SetDefault("metrics.namespace", d.Metrics.Namespace)
}

// Flags declares the command line overrides understood by Load.
func Flags() *pflag.FlagSet {
	set := pflag.NewFlagSet("ascension", pflag.ContinueOnError)
	set.String("config", ".", "directory holding config.yaml")
	set.String("tcp", "", "TCP listen address")
	set.String("http", "", "HTTP listen address (websocket, metrics, health)")
	set.String("rpc", "", "admin RPC listen address")
	set.String("log-level", "", "log level")
	set.String("log-file", "", "rolling log file")
	return set
}

var flagKeys = map[string]string{
	"tcp":       "server.tcp_address",
	"http":      "server.http_address",
	"rpc":       "server.rpc_address",
	"log-level": "log.level",
	"log-file":  "log.file",
}

// Load reads .env (if any), config.yaml from the --config directory,
// ASCENSION_* environment variables and finally explicit flags.
func Load(flags *pflag.FlagSet) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	v := viper.New()
	setDefaults(v)

	path := "."
	if flags != nil {
		if p, err := flags.GetString("config"); err == nil && p != "" {
			path = p
		}
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil && f.Changed {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, err
				}
			}
		}
	}

	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.SetEnvPrefix("ascension")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
