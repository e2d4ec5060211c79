package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig
	Backend  BackendConfig
	Console  ConsoleConfig
	SQLite   SQLiteConfig
	Probe    ProbeConfig
	Security SecurityConfig
	Logging  LoggingConfig
}

type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  int
	WriteTimeout int
	BodyLimit    int
}

// BackendConfig points the console at the chatbot platform API. AuthToken is
// empty by default, in which case no Authorization header is sent.
type BackendConfig struct {
	BaseURL   string
	AuthToken string
}

type ConsoleConfig struct {
	PollIntervalSec int
	SessionCookie   string
	SecureCookie    bool
}

type SQLiteConfig struct {
	Path string
}

type ProbeConfig struct {
	TimeoutSec     int
	TelegramAPIURL string
	ScrapeURL      string
}

type SecurityConfig struct {
	LoginAttemptsPerMinute int
	IsDevelopment          bool
	AllowedOrigins         []string
}

type LoggingConfig struct {
	Level      string
	Format     string
	OutputPath string
}

func (c ConsoleConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalSec) * time.Second
}

func (c ProbeConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSec) * time.Second
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/rag-console")

	v.SetEnvPrefix("RAG_CONSOLE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if config.Console.PollIntervalSec <= 0 {
		return nil, fmt.Errorf("console.pollIntervalSec must be positive, got %d", config.Console.PollIntervalSec)
	}
	config.Backend.BaseURL = strings.TrimRight(config.Backend.BaseURL, "/")

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 3000)
	v.SetDefault("server.readTimeout", 30)
	v.SetDefault("server.writeTimeout", 30)
	v.SetDefault("server.bodyLimit", 1048576)

	v.SetDefault("backend.baseURL", "http://localhost:8000/api")
	v.SetDefault("backend.authToken", "")

	v.SetDefault("console.pollIntervalSec", 5)
	v.SetDefault("console.sessionCookie", "rag_console_session")
	v.SetDefault("console.secureCookie", false)

	v.SetDefault("sqlite.path", "./data/console.db")

	v.SetDefault("probe.timeoutSec", 10)
	v.SetDefault("probe.telegramAPIURL", "https://api.telegram.org")
	v.SetDefault("probe.scrapeURL", "https://example.com")

	v.SetDefault("security.loginAttemptsPerMinute", 10)
	v.SetDefault("security.isDevelopment", true)
	v.SetDefault("security.allowedOrigins", []string{})

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.outputPath", "stdout")
}
