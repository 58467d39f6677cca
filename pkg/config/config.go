package config

import "time"

// Config holds the full runtime configuration for the pizzeria bot.
type Config struct {
	AppEnv string `mapstructure:"app_env"`

	Bot      BotConfig      `mapstructure:"bot" validate:"required"`
	Server   ServerConfig   `mapstructure:"server"`
	Redis    RedisConfig    `mapstructure:"redis" validate:"required"`
	Postgres PostgresConfig `mapstructure:"postgres"`
	Commerce CommerceConfig `mapstructure:"commerce" validate:"required"`
	Geocoder GeocoderConfig `mapstructure:"geocoder" validate:"required"`
	Delivery DeliveryConfig `mapstructure:"delivery"`
	Renderer RendererConfig `mapstructure:"renderer"`
	Logger   LoggerConfig   `mapstructure:"logger"`
	Sentry   SentryConfig   `mapstructure:"sentry"`
}

// BotConfig configures the Telegram transport.
type BotConfig struct {
	Token        string        `mapstructure:"token" validate:"required"`
	PaymentToken string        `mapstructure:"payment_token"`
	Currency     string        `mapstructure:"currency"`
	PollTimeout  time.Duration `mapstructure:"poll_timeout"`
	CallTimeout  time.Duration `mapstructure:"call_timeout"`
}

// ServerConfig configures the metrics/health HTTP sidecar.
type ServerConfig struct {
	Port            string        `mapstructure:"port"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// RedisConfig configures the session store and job queue connection.
type RedisConfig struct {
	Addr     string `mapstructure:"addr" validate:"required"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

// PostgresConfig configures the order archive database.
type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
	SSLMode  string `mapstructure:"ssl_mode"`
}

// CommerceConfig configures the commerce backend client.
type CommerceConfig struct {
	BaseURL      string `mapstructure:"base_url" validate:"required,url"`
	ClientID     string `mapstructure:"client_id" validate:"required"`
	ClientSecret string `mapstructure:"client_secret"`
}

// GeocoderConfig configures the address resolution client.
type GeocoderConfig struct {
	BaseURL string `mapstructure:"base_url" validate:"required,url"`
	APIKey  string `mapstructure:"api_key" validate:"required"`
}

// DeliveryConfig holds the distance-to-fee policy and reminder tuning.
type DeliveryConfig struct {
	FreeRadiusKM  float64       `mapstructure:"free_radius_km"`
	MidRadiusKM   float64       `mapstructure:"mid_radius_km"`
	MaxRadiusKM   float64       `mapstructure:"max_radius_km"`
	MidFee        int           `mapstructure:"mid_fee"`
	HighFee       int           `mapstructure:"high_fee"`
	ReminderDelay time.Duration `mapstructure:"reminder_delay"`
}

// RendererConfig configures outbound message templating.
type RendererConfig struct {
	TemplatesDir string `mapstructure:"templates_dir"`
	Watch        bool   `mapstructure:"watch"`
}

// LoggerConfig configures structured logging output.
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

// SentryConfig configures error reporting.
type SentryConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	DSN     string `mapstructure:"dsn"`
}

// DSN returns the PostgreSQL connection string for the order archive.
func (c PostgresConfig) DSN() string {
	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}

	return "host=" + c.Host + " port=" + c.Port + " user=" + c.User +
		" password=" + c.Password + " dbname=" + c.Database + " sslmode=" + sslMode
}

func (c *Config) applyDefaults() {
	if c.Bot.Currency == "" {
		c.Bot.Currency = "RUB"
	}
	if c.Bot.PollTimeout <= 0 {
		c.Bot.PollTimeout = 10 * time.Second
	}
	if c.Bot.CallTimeout <= 0 {
		c.Bot.CallTimeout = 30 * time.Second
	}
	if c.Server.Port == "" {
		c.Server.Port = ":8080"
	}
	if c.Server.ShutdownTimeout <= 0 {
		c.Server.ShutdownTimeout = 10 * time.Second
	}
	if c.Delivery.FreeRadiusKM <= 0 {
		c.Delivery.FreeRadiusKM = 0.5
	}
	if c.Delivery.MidRadiusKM <= 0 {
		c.Delivery.MidRadiusKM = 5
	}
	if c.Delivery.MaxRadiusKM <= 0 {
		c.Delivery.MaxRadiusKM = 20
	}
	if c.Delivery.MidFee <= 0 {
		c.Delivery.MidFee = 100
	}
	if c.Delivery.HighFee <= 0 {
		c.Delivery.HighFee = 300
	}
	if c.Delivery.ReminderDelay <= 0 {
		c.Delivery.ReminderDelay = time.Hour
	}
	if c.Renderer.TemplatesDir == "" {
		c.Renderer.TemplatesDir = "templates"
	}
	if c.Logger.Level == "" {
		c.Logger.Level = "info"
	}
	if c.Logger.Format == "" {
		c.Logger.Format = "json"
	}
}
