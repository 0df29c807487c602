package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	JWT       JWTConfig
	Log       LogConfig
	Telemetry TelemetryConfig
	Email     EmailConfig
	WhatsApp  WhatsAppConfig
	Billing   BillingConfig
	Security  SecurityConfig
	Scheduler SchedulerConfig
	Notify    NotifyConfig
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name     string
	Env      string
	Port     string
	Timezone string // IANA zone every date comparison is pinned to
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	AutoMigrate     bool // apply pending migrations on server start
}

// DSN builds a lib/pq connection URL.
func (d DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   "/" + d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}

// JWTConfig holds staff token settings
type JWTConfig struct {
	Secret     string
	Expiration time.Duration
	Issuer     string
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// TelemetryConfig holds OpenTelemetry configuration
type TelemetryConfig struct {
	Enabled       bool
	Endpoint      string // OTLP/HTTP collector host:port
	SamplingRatio float64
	Insecure      bool
}

// EmailConfig holds SMTP settings. An empty Host leaves email unconfigured
// and every send is skipped.
type EmailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// WhatsAppConfig selects and configures the WhatsApp transport.
type WhatsAppConfig struct {
	Driver             string // cloudapi or linked-device
	APIURL             string
	Token              string
	PhoneID            string
	DefaultCountryCode string
	DataDir            string // linked-device session store
	SendsPerSecond     float64
}

// BillingConfig holds receipt numbering settings
type BillingConfig struct {
	ReceiptPrefix string
}

// SecurityConfig holds shared secrets and limits for the outer surfaces
type SecurityConfig struct {
	DeviceAPIKey       string
	CronSecret         string
	LoginPerMinute     int
	LoginBurst         int
	OwnerEmail         string // bootstrap owner, created when no such user exists
	OwnerPassword      string
	CORSAllowedOrigins []string
}

// SchedulerConfig holds the daily job times, in the gym timezone
type SchedulerConfig struct {
	Enabled        bool
	ReminderHour   int
	ReminderMinute int
	ExpireHour     int
	ExpireMinute   int
	CheckInterval  time.Duration
	Window         time.Duration
}

// NotifyConfig tunes the post-commit notification queue
type NotifyConfig struct {
	QueueSize   int
	SendTimeout time.Duration
}

// Load loads configuration from a .env file, config.yaml and environment
// variables. Priority (highest to lowest):
// 1. Environment variables with GYM_ prefix (e.g. GYM_DATABASE_PASSWORD)
// 2. config.yaml
// 3. Built-in defaults
func Load() (*Config, error) {
	// A missing .env is normal outside development.
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix("GYM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name:     v.GetString("app.name"),
			Env:      v.GetString("app.env"),
			Port:     v.GetString("app.port"),
			Timezone: v.GetString("app.timezone"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetDuration("database.conn_max_lifetime"),
			AutoMigrate:     v.GetBool("database.auto_migrate"),
		},
		JWT: JWTConfig{
			Secret:     v.GetString("jwt.secret"),
			Expiration: v.GetDuration("jwt.expiration"),
			Issuer:     v.GetString("jwt.issuer"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		Telemetry: TelemetryConfig{
			Enabled:       v.GetBool("telemetry.enabled"),
			Endpoint:      v.GetString("telemetry.endpoint"),
			SamplingRatio: v.GetFloat64("telemetry.sampling_ratio"),
			Insecure:      v.GetBool("telemetry.insecure"),
		},
		Email: EmailConfig{
			Host:     v.GetString("email.host"),
			Port:     v.GetInt("email.port"),
			Username: v.GetString("email.username"),
			Password: v.GetString("email.password"),
			From:     v.GetString("email.from"),
		},
		WhatsApp: WhatsAppConfig{
			Driver:             v.GetString("whatsapp.driver"),
			APIURL:             v.GetString("whatsapp.api_url"),
			Token:              v.GetString("whatsapp.token"),
			PhoneID:            v.GetString("whatsapp.phone_id"),
			DefaultCountryCode: v.GetString("whatsapp.default_country_code"),
			DataDir:            v.GetString("whatsapp.data_dir"),
			SendsPerSecond:     v.GetFloat64("whatsapp.sends_per_second"),
		},
		Billing: BillingConfig{
			ReceiptPrefix: v.GetString("billing.receipt_prefix"),
		},
		Security: SecurityConfig{
			DeviceAPIKey:       v.GetString("security.device_api_key"),
			CronSecret:         v.GetString("security.cron_secret"),
			LoginPerMinute:     v.GetInt("security.login_per_minute"),
			LoginBurst:         v.GetInt("security.login_burst"),
			OwnerEmail:         v.GetString("security.owner_email"),
			OwnerPassword:      v.GetString("security.owner_password"),
			CORSAllowedOrigins: v.GetStringSlice("security.cors_allowed_origins"),
		},
		Scheduler: SchedulerConfig{
			Enabled:        v.GetBool("scheduler.enabled"),
			ReminderHour:   v.GetInt("scheduler.reminder_hour"),
			ReminderMinute: v.GetInt("scheduler.reminder_minute"),
			ExpireHour:     v.GetInt("scheduler.expire_hour"),
			ExpireMinute:   v.GetInt("scheduler.expire_minute"),
			CheckInterval:  v.GetDuration("scheduler.check_interval"),
			Window:         v.GetDuration("scheduler.window"),
		},
		Notify: NotifyConfig{
			QueueSize:   v.GetInt("notify.queue_size"),
			SendTimeout: v.GetDuration("notify.send_timeout"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "gymflow")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "4000")
	v.SetDefault("app.timezone", "Asia/Colombo")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "gymflow")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 30*time.Minute)
	v.SetDefault("database.auto_migrate", true)

	v.SetDefault("jwt.expiration", 7*24*time.Hour)
	v.SetDefault("jwt.issuer", "gymflow")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.output", "stdout")

	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.endpoint", "localhost:4318")
	v.SetDefault("telemetry.sampling_ratio", 1.0)
	v.SetDefault("telemetry.insecure", true)

	v.SetDefault("email.port", 587)

	v.SetDefault("whatsapp.driver", "cloudapi")
	v.SetDefault("whatsapp.api_url", "https://graph.facebook.com/v19.0")
	v.SetDefault("whatsapp.default_country_code", "94")
	v.SetDefault("whatsapp.data_dir", "data")
	v.SetDefault("whatsapp.sends_per_second", 5.0)

	v.SetDefault("billing.receipt_prefix", "FF")

	v.SetDefault("security.login_per_minute", 20)
	v.SetDefault("security.login_burst", 5)
	v.SetDefault("security.cors_allowed_origins", []string{"http://localhost:5173"})

	v.SetDefault("scheduler.enabled", true)
	v.SetDefault("scheduler.reminder_hour", 8)
	v.SetDefault("scheduler.reminder_minute", 0)
	v.SetDefault("scheduler.expire_hour", 0)
	v.SetDefault("scheduler.expire_minute", 1)
	v.SetDefault("scheduler.check_interval", time.Minute)
	v.SetDefault("scheduler.window", 10*time.Minute)

	v.SetDefault("notify.queue_size", 256)
	v.SetDefault("notify.send_timeout", 30*time.Second)
}

// Validate rejects configurations the server cannot start with.
func (c *Config) Validate() error {
	if c.IsProduction() && c.JWT.Secret == "" {
		return fmt.Errorf("jwt.secret must be set in production")
	}
	if c.App.Timezone != "" {
		if _, err := time.LoadLocation(c.App.Timezone); err != nil {
			return fmt.Errorf("invalid app.timezone %q: %w", c.App.Timezone, err)
		}
	}
	switch c.WhatsApp.Driver {
	case "cloudapi", "linked-device":
	default:
		return fmt.Errorf("unknown whatsapp.driver %q", c.WhatsApp.Driver)
	}
	if c.Billing.ReceiptPrefix == "" {
		return fmt.Errorf("billing.receipt_prefix must not be empty")
	}
	return nil
}

// IsProduction reports whether the app runs with env=production.
func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
}
