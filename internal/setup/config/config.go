package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

var (
	ErrConfigFileNotFound    = errors.New("could not find config file in any config path")
	ErrConfigVersionMissing  = errors.New("config file is missing version field")
	ErrConfigVersionMismatch = errors.New("config file version mismatch")
	ErrMissingNickname       = errors.New("bot config is missing irc.nickname")
	ErrMissingServer         = errors.New("bot config is missing irc.host")
)

// RepositoryVersion is the repository version tag for config file references.
const RepositoryVersion = "v0.1.0"

// Current version of the config files.
const (
	CurrentCommonVersion = 1
	CurrentBotVersion    = 1
)

// Config represents the entire application configuration.
type Config struct {
	Common CommonConfig `koanf:"common"`
	Bot    BotConfig    `koanf:"bot"`
}

// CommonConfig contains configuration shared between the bot and tooling.
type CommonConfig struct {
	// Version of the common config.
	Version  int      `koanf:"version"`
	Debug    Debug    `koanf:"debug"`
	Database Database `koanf:"database"`
	Redis    Redis    `koanf:"redis"`
}

// Debug contains logging configuration.
type Debug struct {
	// Log level (debug, info, warn, error).
	LogLevel string `koanf:"log_level"`
	// Maximum log sessions to keep.
	MaxLogsToKeep int `koanf:"max_logs_to_keep"`
	// Maximum lines per log file.
	MaxLogLines int `koanf:"max_log_lines"`
	// Mirror log output to stderr.
	Console bool `koanf:"console"`
}

// Database contains connection settings for the record store.
type Database struct {
	// Driver is either "sqlite" or "postgres".
	Driver string `koanf:"driver"`
	// SQLite database file path.
	Path string `koanf:"path"`
	// PostgreSQL host address.
	Host string `koanf:"host"`
	// PostgreSQL port number.
	Port int `koanf:"port"`
	// PostgreSQL user.
	User string `koanf:"user"`
	// PostgreSQL password.
	Password string `koanf:"password"`
	// PostgreSQL database name.
	DBName string `koanf:"db_name"`
	// Use TLS for the PostgreSQL connection.
	SSL bool `koanf:"ssl"`
	// Maximum number of open connections.
	MaxOpenConns int `koanf:"max_open_conns"`
	// Maximum number of idle connections.
	MaxIdleConns int `koanf:"max_idle_conns"`
	// Maximum connection lifetime in minutes.
	MaxLifetime int `koanf:"max_lifetime"`
	// Maximum idle time in minutes.
	MaxIdleTime int `koanf:"max_idle_time"`
}

// Redis contains Redis connection configuration.
type Redis struct {
	// Enable the Redis setting cache and worker heartbeats.
	Enabled bool `koanf:"enabled"`
	// Redis host address.
	Host string `koanf:"host"`
	// Redis port number.
	Port int `koanf:"port"`
	// Redis username.
	Username string `koanf:"username"`
	// Redis password.
	Password string `koanf:"password"`
}

// BotConfig contains IRC bot specific configuration.
type BotConfig struct {
	// Version of the bot config.
	Version int `koanf:"version"`
	// IRC connection settings.
	IRC IRC `koanf:"irc"`
	// Hostmask globs of bot administrators.
	Admins []string `koanf:"admins"`
	// Nickname of the channel services bot.
	ChanServ string `koanf:"chanserv"`
	// Seconds between expiry sweeps.
	ExpiryInterval int `koanf:"expiry_interval"`
	// Seconds to wait for a channel join to complete.
	JoinTimeout int `koanf:"join_timeout"`
}

// IRC contains server and identity configuration.
type IRC struct {
	// Server host name.
	Host string `koanf:"host"`
	// Server port.
	Port int `koanf:"port"`
	// Connect using TLS.
	TLS bool `koanf:"tls"`
	// Skip TLS certificate verification.
	TLSSkipVerify bool `koanf:"tls_skip_verify"`
	// Nickname to register with.
	Nickname string `koanf:"nickname"`
	// Username (ident), defaults to the nickname.
	Username string `koanf:"username"`
	// Real name, defaults to the nickname.
	Realname string `koanf:"realname"`
	// Server password.
	Password string `koanf:"password"`
	// SASL PLAIN credentials.
	SASL SASL `koanf:"sasl"`
	// Minimum milliseconds between outgoing lines.
	SendDelay int `koanf:"send_delay"`
}

// SASL contains SASL PLAIN credentials.
type SASL struct {
	Username string `koanf:"username"`
	Password string `koanf:"password"`
}

// Enabled reports whether SASL credentials are configured.
func (s SASL) Enabled() bool {
	return s.Username != "" && s.Password != ""
}

// LoadConfig loads the configuration from the first directory that contains each file.
func LoadConfig() (*Config, string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, "", fmt.Errorf("failed to get home directory: %w", err)
	}

	configPaths := []string{
		".warden",
		homeDir + "/.warden/config",
		"/etc/warden/config",
		"/app/config",
		"config",
		".",
	}

	return LoadConfigFrom(configPaths)
}

// LoadConfigFrom loads common.toml and bot.toml searching the given directories in order.
func LoadConfigFrom(configPaths []string) (*Config, string, error) {
	k := koanf.New(".")

	var usedConfigPath string

	configFiles := []string{"common", "bot"}
	for _, configName := range configFiles {
		configLoaded := false

		for _, path := range configPaths {
			configPath := fmt.Sprintf("%s/%s.toml", path, configName)
			if err := k.Load(file.Provider(configPath), toml.Parser()); err == nil {
				configLoaded = true

				if usedConfigPath == "" {
					usedConfigPath = path
				}

				break
			}
		}

		if !configLoaded {
			return nil, "", fmt.Errorf("%w: %s.toml", ErrConfigFileNotFound, configName)
		}
	}

	var config Config
	if err := k.Unmarshal("", &config); err != nil {
		return nil, "", fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := checkConfigVersion("common", config.Common.Version, CurrentCommonVersion); err != nil {
		return nil, "", err
	}

	if err := checkConfigVersion("bot", config.Bot.Version, CurrentBotVersion); err != nil {
		return nil, "", err
	}

	applyDefaults(&config)

	if config.Bot.IRC.Nickname == "" {
		return nil, "", ErrMissingNickname
	}
	if config.Bot.IRC.Host == "" {
		return nil, "", ErrMissingServer
	}

	return &config, usedConfigPath, nil
}

// applyDefaults fills in zero values that have a sensible default.
func applyDefaults(config *Config) {
	debug := &config.Common.Debug
	if debug.LogLevel == "" {
		debug.LogLevel = "info"
	}
	if debug.MaxLogsToKeep <= 0 {
		debug.MaxLogsToKeep = 10
	}
	if debug.MaxLogLines <= 0 {
		debug.MaxLogLines = 100000
	}

	db := &config.Common.Database
	if db.Driver == "" {
		db.Driver = "sqlite"
	}
	if db.Path == "" {
		db.Path = "warden.db"
	}
	if db.Port == 0 {
		db.Port = 5432
	}
	if db.MaxOpenConns <= 0 {
		db.MaxOpenConns = 10
	}
	if db.MaxIdleConns <= 0 {
		db.MaxIdleConns = 5
	}

	if config.Common.Redis.Port == 0 {
		config.Common.Redis.Port = 6379
	}

	bot := &config.Bot
	if bot.IRC.Port == 0 {
		if bot.IRC.TLS {
			bot.IRC.Port = 6697
		} else {
			bot.IRC.Port = 6667
		}
	}
	if bot.IRC.Username == "" {
		bot.IRC.Username = bot.IRC.Nickname
	}
	if bot.IRC.Realname == "" {
		bot.IRC.Realname = bot.IRC.Nickname
	}
	if bot.ChanServ == "" {
		bot.ChanServ = "ChanServ"
	}
	if bot.ExpiryInterval <= 0 {
		bot.ExpiryInterval = 10
	}
	if bot.JoinTimeout <= 0 {
		bot.JoinTimeout = 5
	}
}

func checkConfigVersion(name string, current, expected int) error {
	if current == 0 {
		return fmt.Errorf("%w: %s.toml", ErrConfigVersionMissing, name)
	}

	if current != expected {
		return fmt.Errorf(
			"%w: %s.toml (got: %d, expected: %d)\n"+
				"Please update your config file from: https://github.com/robalyx/warden/tree/%s/config/%s.toml",
			ErrConfigVersionMismatch,
			name,
			current,
			expected,
			RepositoryVersion,
			name,
		)
	}

	return nil
}
