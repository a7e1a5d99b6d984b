package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Драйверы хранилища
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
	DriverJSON     = "json"
)

type Config struct {
	Server struct {
		Host            string        `yaml:"host"`
		Port            string        `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`
	TelegramBot struct {
		Token  string `yaml:"token"`
		ChatID int64  `yaml:"chat_id"`
	} `yaml:"telegram_bot"`
	Database struct {
		Driver   string `yaml:"driver"`
		Host     string `yaml:"host"`
		Port     string `yaml:"port"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		Name     string `yaml:"dbname"`
		Path     string `yaml:"path"`
		MaxConns int32  `yaml:"max_conns"`
		// SeedGroups группы, которые создаются при старте
		SeedGroups []struct {
			ID   string `yaml:"id"`
			Name string `yaml:"name"`
		} `yaml:"seed_groups"`
	} `yaml:"database"`
	Auth struct {
		JWTSecret string `yaml:"jwt_secret"`
		Issuer    string `yaml:"issuer"`
	} `yaml:"auth"`
	Lifecycle struct {
		OwnerCanRevert *bool         `yaml:"owner_can_revert"`
		CascadeDelete  *bool         `yaml:"cascade_delete"`
		MaxTxRetries   int           `yaml:"max_tx_retries"`
		SweepInterval  time.Duration `yaml:"sweep_interval"`
	} `yaml:"lifecycle"`
	Autosave struct {
		Debounce time.Duration `yaml:"debounce"`
	} `yaml:"autosave"`
	Bulk struct {
		Concurrency int `yaml:"concurrency"`
	} `yaml:"bulk"`
	Import struct {
		OneBasedIndex *bool  `yaml:"one_based_index"`
		MaxRows       int    `yaml:"max_rows"`
		Sheet         string `yaml:"sheet"`
	} `yaml:"import"`
	Report struct {
		// FontPath TTF-шрифт с кириллицей для PDF-отчетов
		FontPath string `yaml:"font_path"`
	} `yaml:"report"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
}

// LoadConfig читает YAML-файл, затем .env и переменные окружения.
// Пустой filename означает только значения по умолчанию и окружение.
func LoadConfig(filename string) (*Config, error) {
	config := &Config{}

	if filename != "" {
		raw, err := os.ReadFile(filename)
		if err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", filename, err)
		}
		if err := yaml.Unmarshal(raw, config); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", filename, err)
		}
	}

	// .env не обязателен
	_ = godotenv.Load()

	if err := config.applyEnv(); err != nil {
		return nil, err
	}
	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Default конфигурация со значениями по умолчанию
func Default() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

func (c *Config) applyEnv() error {
	setString(&c.Database.Host, "DB_HOST")
	setString(&c.Database.Port, "DB_PORT")
	setString(&c.Database.User, "DB_USER")
	setString(&c.Database.Password, "DB_PASSWORD")
	setString(&c.Database.Name, "DB_NAME")
	setString(&c.Database.Driver, "DB_DRIVER")
	setString(&c.Database.Path, "DB_PATH")
	setString(&c.Auth.JWTSecret, "JWT_SECRET")
	setString(&c.TelegramBot.Token, "TELEGRAM_BOT_TOKEN")
	setString(&c.Server.Port, "SERVER_PORT")
	setString(&c.Log.Level, "LOG_LEVEL")
	setString(&c.Report.FontPath, "REPORT_FONT_PATH")

	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		id, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return fmt.Errorf("invalid TELEGRAM_CHAT_ID %q: %w", v, err)
		}
		c.TelegramBot.ChatID = id
	}
	return nil
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func boolPtr(v bool) *bool {
	return &v
}

func (c *Config) applyDefaults() {
	if c.Server.Port == "" {
		c.Server.Port = "8080"
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 10 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 30 * time.Second
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 10 * time.Second
	}

	if c.Database.Driver == "" {
		c.Database.Driver = DriverMemory
	}
	if c.Database.Port == "" {
		c.Database.Port = "5432"
	}
	if c.Database.MaxConns == 0 {
		c.Database.MaxConns = 10
	}
	if c.Database.Path == "" {
		switch c.Database.Driver {
		case DriverSQLite:
			c.Database.Path = "testpoint.db"
		case DriverJSON:
			c.Database.Path = "testpoint.json"
		}
	}

	if c.Auth.Issuer == "" {
		c.Auth.Issuer = "testpoint"
	}

	if c.Lifecycle.OwnerCanRevert == nil {
		c.Lifecycle.OwnerCanRevert = boolPtr(true)
	}
	if c.Lifecycle.CascadeDelete == nil {
		c.Lifecycle.CascadeDelete = boolPtr(true)
	}
	if c.Lifecycle.MaxTxRetries == 0 {
		c.Lifecycle.MaxTxRetries = 5
	}
	if c.Lifecycle.SweepInterval == 0 {
		c.Lifecycle.SweepInterval = 30 * time.Second
	}

	if c.Autosave.Debounce == 0 {
		c.Autosave.Debounce = 1500 * time.Millisecond
	}
	if c.Bulk.Concurrency == 0 {
		c.Bulk.Concurrency = 4
	}

	if c.Import.OneBasedIndex == nil {
		c.Import.OneBasedIndex = boolPtr(true)
	}
	if c.Import.MaxRows == 0 {
		c.Import.MaxRows = 1000
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
}

// Validate проверяет согласованность настроек
func (c *Config) Validate() error {
	var problems []error

	switch c.Database.Driver {
	case DriverPostgres:
		if c.Database.Host == "" || c.Database.Name == "" {
			problems = append(problems, errors.New("database.host and database.dbname are required for postgres"))
		}
	case DriverSQLite, DriverJSON, DriverMemory:
	default:
		problems = append(problems, fmt.Errorf("unknown database.driver %q", c.Database.Driver))
	}
	for i, g := range c.Database.SeedGroups {
		if g.ID == "" || g.Name == "" {
			problems = append(problems, fmt.Errorf("database.seed_groups[%d] needs id and name", i))
		}
	}
	if c.Database.MaxConns < 0 {
		problems = append(problems, errors.New("database.max_conns must not be negative"))
	}
	if c.Auth.JWTSecret == "" {
		problems = append(problems, errors.New("auth.jwt_secret is required"))
	}
	if c.TelegramBot.Token != "" && c.TelegramBot.ChatID == 0 {
		problems = append(problems, errors.New("telegram_bot.chat_id is required when a token is set"))
	}
	if c.Lifecycle.MaxTxRetries < 1 {
		problems = append(problems, errors.New("lifecycle.max_tx_retries must be at least 1"))
	}
	if c.Lifecycle.SweepInterval < time.Second {
		problems = append(problems, errors.New("lifecycle.sweep_interval must be at least 1s"))
	}
	if c.Autosave.Debounce < 0 {
		problems = append(problems, errors.New("autosave.debounce must not be negative"))
	}
	if c.Bulk.Concurrency < 1 {
		problems = append(problems, errors.New("bulk.concurrency must be at least 1"))
	}
	if c.Import.MaxRows < 1 {
		problems = append(problems, errors.New("import.max_rows must be at least 1"))
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		problems = append(problems, fmt.Errorf("unknown log.level %q", c.Log.Level))
	}
	switch c.Log.Format {
	case "json", "text":
	default:
		problems = append(problems, fmt.Errorf("unknown log.format %q", c.Log.Format))
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(problems...))
	}
	return nil
}

// DSN строка подключения к Postgres
func (c *Config) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
	)
}

// Addr адрес HTTP-сервера
func (c *Config) Addr() string {
	return c.Server.Host + ":" + c.Server.Port
}
