package app

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// EnvPrefix namespaces environment overrides, e.g. SPRYNTR_SERVER_PORT.
const EnvPrefix = "SPRYNTR"

// Config represents the runtime configuration for the waitlist service.
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Waitlist    WaitlistConfig    `mapstructure:"waitlist"`
	Email       EmailConfig       `mapstructure:"email"`
	Community   CommunityConfig   `mapstructure:"community"`
	Site        SiteConfig        `mapstructure:"site"`
	Admin       AdminConfig       `mapstructure:"admin"`
	CMS         CMSConfig         `mapstructure:"cms"`
	Monitoring  MonitoringConfig  `mapstructure:"monitoring"`
	Maintenance MaintenanceConfig `mapstructure:"maintenance"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port            int             `mapstructure:"port"`
	LogLevel        string          `mapstructure:"log_level"`
	LogFormat       string          `mapstructure:"log_format"`
	LogFile         LogFileConfig   `mapstructure:"log_file"`
	ShutdownTimeout time.Duration   `mapstructure:"shutdown_timeout"`
	TrustedProxies  []string        `mapstructure:"trusted_proxies"`
	CORS            CORSConfig      `mapstructure:"cors"`
	RateLimit       RateLimitConfig `mapstructure:"rate_limit"`
}

// LogFileConfig enables the rotating file sink.
type LogFileConfig struct {
	Path       string `mapstructure:"path"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// CORSConfig lists browser origins allowed to call the API.
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// RateLimitConfig throttles requests per client IP and route.
type RateLimitConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Requests int           `mapstructure:"requests"`
	Window   time.Duration `mapstructure:"window"`
	Backend  string        `mapstructure:"backend"` // memory or database
}

// DatabaseConfig describes connection options for the supported databases.
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`
	Path            string        `mapstructure:"path"`
	DSN             string        `mapstructure:"dsn"`
	Postgres        DBAuthConfig  `mapstructure:"postgres"`
	MySQL           DBAuthConfig  `mapstructure:"mysql"`
	Hosted          HostedConfig  `mapstructure:"hosted"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	LogLevel        string        `mapstructure:"log_level"`
}

// DBAuthConfig represents host based database parameters.
type DBAuthConfig struct {
	Enabled  bool              `mapstructure:"enabled"`
	Host     string            `mapstructure:"host"`
	Port     int               `mapstructure:"port"`
	Database string            `mapstructure:"database"`
	Username string            `mapstructure:"username"`
	Password string            `mapstructure:"password"`
	Options  map[string]string `mapstructure:"options"`
}

// HostedConfig points at a hosted Supabase project.
type HostedConfig struct {
	URL         string `mapstructure:"url"`
	ServiceRole string `mapstructure:"service_role"`
}

// Configured reports whether both the project URL and credential are set.
func (h HostedConfig) Configured() bool {
	return strings.TrimSpace(h.URL) != "" && strings.TrimSpace(h.ServiceRole) != ""
}

// WaitlistConfig controls signup intake.
type WaitlistConfig struct {
	Schema          string      `mapstructure:"schema"`           // primary or alternate
	DuplicatePolicy string      `mapstructure:"duplicate_policy"` // upsert or reject
	StrictEmail     bool        `mapstructure:"strict_email"`
	SpamRedirect    string      `mapstructure:"spam_redirect"`
	Source          string      `mapstructure:"source"`
	Spam            SpamConfig  `mapstructure:"spam"`
	Events          EventConfig `mapstructure:"events"`
}

// SpamConfig configures the anti-spam guard.
type SpamConfig struct {
	Enabled          bool          `mapstructure:"enabled"`
	MinFillTime      time.Duration `mapstructure:"min_fill_time"`
	RequireTimestamp bool          `mapstructure:"require_timestamp"`
}

// EventConfig toggles the signup audit trail.
type EventConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// EmailConfig captures outbound email settings.
type EmailConfig struct {
	Provider       string     `mapstructure:"provider"` // resend or smtp
	APIKey         string     `mapstructure:"api_key"`
	From           string     `mapstructure:"from"`
	ReplyTo        string     `mapstructure:"reply_to"`
	AccountEmail   string     `mapstructure:"account_email"`
	SandboxDomain  string     `mapstructure:"sandbox_domain"`
	SandboxSender  string     `mapstructure:"sandbox_sender"`
	VerifiedDomain string     `mapstructure:"verified_domain"`
	SMTP           SMTPConfig `mapstructure:"smtp"`
}

// SMTPConfig defines SMTP dialer settings for sending email.
type SMTPConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Host     string        `mapstructure:"host"`
	Port     int           `mapstructure:"port"`
	Username string        `mapstructure:"username"`
	Password string        `mapstructure:"password"`
	From     string        `mapstructure:"from"`
	UseTLS   bool          `mapstructure:"use_tls"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// CommunityConfig holds the community invite link.
type CommunityConfig struct {
	DiscordInviteURL string `mapstructure:"discord_invite_url"`
}

// SiteConfig holds the public site URL.
type SiteConfig struct {
	URL string `mapstructure:"url"`
}

// AdminConfig guards the operator endpoints.
type AdminConfig struct {
	AccessKey string `mapstructure:"access_key"`
}

// CMSConfig points at the blog content project.
type CMSConfig struct {
	ProjectID  string        `mapstructure:"project_id"`
	Dataset    string        `mapstructure:"dataset"`
	APIVersion string        `mapstructure:"api_version"`
	Token      string        `mapstructure:"token"`
	UseCDN     bool          `mapstructure:"use_cdn"`
	BaseURL    string        `mapstructure:"base_url"`
	CacheTTL   time.Duration `mapstructure:"cache_ttl"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// MonitoringConfig enables health checks and metrics.
type MonitoringConfig struct {
	Prometheus PrometheusConfig `mapstructure:"prometheus"`
	Health     HealthConfig     `mapstructure:"health_check"`
}

// PrometheusConfig toggles metrics endpoints.
type PrometheusConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"`
}

// HealthConfig toggles health endpoints.
type HealthConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// MaintenanceConfig schedules background cleanup.
type MaintenanceConfig struct {
	Enabled            bool   `mapstructure:"enabled"`
	CacheSchedule      string `mapstructure:"cache_schedule"`
	EventSchedule      string `mapstructure:"event_schedule"`
	EventRetentionDays int    `mapstructure:"event_retention_days"`
}

// envAliases maps config keys to the plain environment variable names the
// deployment already uses. Prefixed names keep working alongside them.
var envAliases = map[string][]string{
	"email.api_key":                {"RESEND_API_KEY"},
	"email.from":                   {"FROM_EMAIL"},
	"email.reply_to":               {"REPLY_TO"},
	"email.account_email":          {"ACCOUNT_EMAIL"},
	"community.discord_invite_url": {"DISCORD_INVITE_URL"},
	"site.url":                     {"NEXT_PUBLIC_SITE_URL"},
	"admin.access_key":             {"ADMIN_ACCESS_KEY"},
	"database.hosted.url":          {"SUPABASE_URL"},
	"database.hosted.service_role": {"SUPABASE_SERVICE_ROLE", "SUPABASE_SERVICE_ROLE_KEY"},
	"cms.project_id":               {"NEXT_PUBLIC_SANITY_PROJECT_ID"},
	"cms.dataset":                  {"NEXT_PUBLIC_SANITY_DATASET"},
}

// LoadConfig initialises application configuration using Viper with sensible
// defaults. A .env file in the working directory is loaded first when present;
// variables already set in the environment win.
func LoadConfig(paths ...string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("config: load .env: %w", err)
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.AddConfigPath("./config")
	for _, path := range paths {
		v.AddConfigPath(path)
	}

	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := bindEnvAliases(v); err != nil {
		return nil, err
	}

	if err := v.ReadInConfig(); err != nil {
		var cfgErr viper.ConfigFileNotFoundError
		if !errors.As(err, &cfgErr) {
			return nil, fmt.Errorf("config: read file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config, decodeHook()); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func bindEnvAliases(v *viper.Viper) error {
	for key, names := range envAliases {
		prefixed := EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		args := append([]string{key, prefixed}, names...)
		if err := v.BindEnv(args...); err != nil {
			return fmt.Errorf("config: bind env %s: %w", key, err)
		}
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.log_format", "json")
	v.SetDefault("server.log_file.path", "")
	v.SetDefault("server.log_file.max_size_mb", 50)
	v.SetDefault("server.log_file.max_backups", 7)
	v.SetDefault("server.log_file.max_age_days", 14)
	v.SetDefault("server.log_file.compress", true)
	v.SetDefault("server.shutdown_timeout", "15s")
	v.SetDefault("server.trusted_proxies", []string{})
	v.SetDefault("server.cors.allowed_origins", []string{"*"})
	v.SetDefault("server.rate_limit.enabled", true)
	v.SetDefault("server.rate_limit.requests", 10)
	v.SetDefault("server.rate_limit.window", "1m")
	v.SetDefault("server.rate_limit.backend", "memory")

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "./data/waitlist.sqlite")
	v.SetDefault("database.dsn", "")
	v.SetDefault("database.postgres.enabled", false)
	v.SetDefault("database.postgres.host", "")
	v.SetDefault("database.postgres.port", 5432)
	v.SetDefault("database.postgres.database", "")
	v.SetDefault("database.postgres.username", "")
	v.SetDefault("database.postgres.password", "")
	v.SetDefault("database.mysql.enabled", false)
	v.SetDefault("database.mysql.host", "")
	v.SetDefault("database.mysql.port", 3306)
	v.SetDefault("database.mysql.database", "")
	v.SetDefault("database.mysql.username", "")
	v.SetDefault("database.mysql.password", "")
	v.SetDefault("database.hosted.url", "")
	v.SetDefault("database.hosted.service_role", "")
	v.SetDefault("database.max_open_conns", 0)
	v.SetDefault("database.conn_max_lifetime", "0s")
	v.SetDefault("database.log_level", "silent")

	v.SetDefault("waitlist.schema", "primary")
	v.SetDefault("waitlist.duplicate_policy", "upsert")
	v.SetDefault("waitlist.strict_email", true)
	v.SetDefault("waitlist.spam_redirect", "/thanks")
	v.SetDefault("waitlist.source", "waitlist_modal")
	v.SetDefault("waitlist.spam.enabled", true)
	v.SetDefault("waitlist.spam.min_fill_time", "2s")
	v.SetDefault("waitlist.spam.require_timestamp", false)
	v.SetDefault("waitlist.events.enabled", true)

	v.SetDefault("email.provider", "resend")
	v.SetDefault("email.api_key", "")
	v.SetDefault("email.from", "")
	v.SetDefault("email.reply_to", "vem@spryntr.co")
	v.SetDefault("email.account_email", "vem@spryntr.co")
	v.SetDefault("email.sandbox_domain", "resend.dev")
	v.SetDefault("email.sandbox_sender", "Acme <onboarding@resend.dev>")
	v.SetDefault("email.verified_domain", "")
	v.SetDefault("email.smtp.enabled", false)
	v.SetDefault("email.smtp.host", "")
	v.SetDefault("email.smtp.port", 587)
	v.SetDefault("email.smtp.username", "")
	v.SetDefault("email.smtp.password", "")
	v.SetDefault("email.smtp.from", "")
	v.SetDefault("email.smtp.use_tls", false)
	v.SetDefault("email.smtp.timeout", "10s")

	v.SetDefault("community.discord_invite_url", "")
	v.SetDefault("site.url", "http://localhost:3000")
	v.SetDefault("admin.access_key", "")

	v.SetDefault("cms.project_id", "")
	v.SetDefault("cms.dataset", "production")
	v.SetDefault("cms.api_version", "2023-05-03")
	v.SetDefault("cms.token", "")
	v.SetDefault("cms.use_cdn", false)
	v.SetDefault("cms.base_url", "")
	v.SetDefault("cms.cache_ttl", "5m")
	v.SetDefault("cms.timeout", "10s")

	v.SetDefault("monitoring.prometheus.enabled", true)
	v.SetDefault("monitoring.prometheus.endpoint", "/metrics")
	v.SetDefault("monitoring.health_check.enabled", true)

	v.SetDefault("maintenance.enabled", true)
	v.SetDefault("maintenance.cache_schedule", "@every 15m")
	v.SetDefault("maintenance.event_schedule", "@daily")
	v.SetDefault("maintenance.event_retention_days", 0)
}

// Validate rejects settings that cannot work at runtime.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Waitlist.Schema) {
	case "primary", "alternate":
	default:
		return fmt.Errorf("config: waitlist.schema must be primary or alternate, got %q", c.Waitlist.Schema)
	}
	switch strings.ToLower(c.Waitlist.DuplicatePolicy) {
	case "upsert", "reject":
	default:
		return fmt.Errorf("config: waitlist.duplicate_policy must be upsert or reject, got %q", c.Waitlist.DuplicatePolicy)
	}
	switch strings.ToLower(c.Email.Provider) {
	case "resend", "smtp":
	default:
		return fmt.Errorf("config: email.provider must be resend or smtp, got %q", c.Email.Provider)
	}
	switch strings.ToLower(c.Server.RateLimit.Backend) {
	case "memory", "database":
	default:
		return fmt.Errorf("config: server.rate_limit.backend must be memory or database, got %q", c.Server.RateLimit.Backend)
	}
	if c.Maintenance.EventRetentionDays < 0 {
		return errors.New("config: maintenance.event_retention_days must not be negative")
	}
	return nil
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}
