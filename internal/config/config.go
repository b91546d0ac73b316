package config

import (
	"fmt"
	"net"
	"net/netip"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Auth      AuthConfig
	Whitelist WhitelistConfig
	Notify    NotifyConfig
	Redis     RedisConfig
	CORS      CORSConfig
	RateLimit RateLimitConfig
	Cache     CacheConfig
	App       AppConfig
	Log       LogConfig
	Scheduler SchedulerConfig
	Vault     VaultConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Host         string
	Port         string
	TimeoutRead  time.Duration
	TimeoutWrite time.Duration
	TimeoutIdle  time.Duration

	// Reverse proxies allowed to set X-Forwarded-For, as addresses or CIDRs
	TrustedProxies []string
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	LockTimeout     time.Duration // upper bound for row lock waits inside a review
	TxTimeout       time.Duration
}

// DSN returns the lib/pq keyword/value connection string
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// URL returns the connection string in URL form, as golang-migrate expects it
func (c DatabaseConfig) URL() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     net.JoinHostPort(c.Host, c.Port),
		Path:     "/" + c.Name,
		RawQuery: url.Values{"sslmode": {c.SSLMode}}.Encode(),
	}
	return u.String()
}

// AuthConfig holds session token verification settings
type AuthConfig struct {
	JWTSecret  string
	JWKSURL    string
	Issuer     string
	CookieName string
	StaffIDs   []string
	TokenTTL   time.Duration
}

// WhitelistConfig holds the attempt policy and admission settings
type WhitelistConfig struct {
	MaxAttempts         int
	Cooldown            time.Duration
	RequireGuildMember  bool
	NotesMaxLength      int
	AuditIPSalt         string
	NotificationTimeout time.Duration
}

// NotifyConfig holds Discord bot settings for result announcements and role sync
type NotifyConfig struct {
	BotToken          string
	APIBaseURL        string
	GuildID           string
	ResultChannelID   string
	StaffChannelID    string
	ApprovedRoleID    string
	SuspensionRoleIDs []string // index 0 is the role for the first failed attempt
}

// Enabled reports whether a bot token is configured
func (c NotifyConfig) Enabled() bool {
	return c.BotToken != ""
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// CORSConfig holds CORS-related configuration
type CORSConfig struct {
	AllowedOrigins   []string
	AllowedMethods   []string
	AllowedHeaders   []string
	ExposedHeaders   []string
	AllowCredentials bool
	MaxAge           int
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	Enabled  bool
	Requests int
	Duration time.Duration
}

// CacheConfig holds settings for the reviewed application cache
type CacheConfig struct {
	Size int
	TTL  time.Duration
}

// AppConfig holds general application configuration
type AppConfig struct {
	Env     string
	Name    string
	Version string
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string
	Format string
}

// SchedulerConfig holds scheduler configuration
type SchedulerConfig struct {
	Enabled    bool
	QueueCron  string        // e.g. "@every 1m"
	StaleAfter time.Duration // pending applications older than this are reported
}

// VaultConfig holds Vault-related configuration
type VaultConfig struct {
	Address    string
	Token      string
	KVMount    string
	SecretPath string
	Enabled    bool
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// godotenv doesn't override already-set variables, so order matters
	_ = godotenv.Load(".env")
	_ = godotenv.Load("../.env")

	cfg := &Config{
		Server: ServerConfig{
			Host:           getEnv("SERVER_HOST", "localhost"),
			Port:           getEnv("SERVER_PORT", "4000"),
			TimeoutRead:    getDurationEnv("SERVER_TIMEOUT_READ", 15*time.Second),
			TimeoutWrite:   getDurationEnv("SERVER_TIMEOUT_WRITE", 15*time.Second),
			TimeoutIdle:    getDurationEnv("SERVER_TIMEOUT_IDLE", 60*time.Second),
			TrustedProxies: getSliceEnv("TRUSTED_PROXIES", nil),
		},
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnv("DB_PORT", "5432"),
			User:            getEnv("DB_USER", "wlportal"),
			Password:        getEnv("DB_PASSWORD", ""),
			Name:            getEnv("DB_NAME", "wlportal"),
			SSLMode:         getEnv("DB_SSLMODE", "prefer"),
			MaxOpenConns:    getIntEnv("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getIntEnv("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getDurationEnv("DB_CONN_MAX_LIFETIME", 5*time.Minute),
			LockTimeout:     getDurationEnv("DB_LOCK_TIMEOUT", 5*time.Second),
			TxTimeout:       getDurationEnv("DB_TX_TIMEOUT", 10*time.Second),
		},
		Auth: AuthConfig{
			JWTSecret:  getEnv("JWT_SECRET", ""),
			JWKSURL:    getEnv("AUTH_JWKS_URL", ""),
			Issuer:     getEnv("AUTH_ISSUER", ""),
			CookieName: getEnv("AUTH_COOKIE_NAME", "wl_session"),
			StaffIDs:   getSliceEnv("STAFF_IDS", nil),
			TokenTTL:   getDurationEnv("AUTH_TOKEN_TTL", 24*time.Hour),
		},
		Whitelist: WhitelistConfig{
			MaxAttempts:         getIntEnv("WL_MAX_ATTEMPTS", 3),
			Cooldown:            getDurationEnv("WL_COOLDOWN", 7*24*time.Hour),
			RequireGuildMember:  getBoolEnv("WL_REQUIRE_GUILD_MEMBER", false),
			NotesMaxLength:      getIntEnv("WL_NOTES_MAX_LENGTH", 2000),
			AuditIPSalt:         getEnv("AUDIT_IP_SALT", ""),
			NotificationTimeout: getDurationEnv("WL_NOTIFICATION_TIMEOUT", 10*time.Second),
		},
		Notify: NotifyConfig{
			BotToken:          getEnv("DISCORD_BOT_TOKEN", ""),
			APIBaseURL:        getEnv("DISCORD_API_BASE_URL", "https://discord.com/api/v10"),
			GuildID:           getEnv("DISCORD_GUILD_ID", ""),
			ResultChannelID:   getEnv("DISCORD_RESULT_CHANNEL_ID", ""),
			StaffChannelID:    getEnv("DISCORD_STAFF_CHANNEL_ID", ""),
			ApprovedRoleID:    getEnv("DISCORD_APPROVED_ROLE_ID", ""),
			SuspensionRoleIDs: getSliceEnv("DISCORD_SUSPENSION_ROLE_IDS", nil),
		},
		Redis: RedisConfig{
			URL:          getEnv("REDIS_URL", ""),
			PoolSize:     getIntEnv("REDIS_POOL_SIZE", 10),
			MinIdleConns: getIntEnv("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  getDurationEnv("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getDurationEnv("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getDurationEnv("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		CORS: CORSConfig{
			AllowedOrigins:   getSliceEnv("CORS_ALLOWED_ORIGINS", []string{"http://localhost:5173"}),
			AllowedMethods:   getSliceEnv("CORS_ALLOWED_METHODS", []string{"GET", "POST", "OPTIONS"}),
			AllowedHeaders:   getSliceEnv("CORS_ALLOWED_HEADERS", []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"}),
			ExposedHeaders:   getSliceEnv("CORS_EXPOSED_HEADERS", []string{"Retry-After", "X-Request-ID"}),
			AllowCredentials: getBoolEnv("CORS_ALLOW_CREDENTIALS", true),
			MaxAge:           getIntEnv("CORS_MAX_AGE", 300),
		},
		RateLimit: RateLimitConfig{
			Enabled:  getBoolEnv("RATE_LIMIT_ENABLED", true),
			Requests: getIntEnv("RATE_LIMIT_REQUESTS", 100),
			Duration: getDurationEnv("RATE_LIMIT_DURATION", 1*time.Minute),
		},
		Cache: CacheConfig{
			Size: getIntEnv("CACHE_SIZE", 512),
			TTL:  getDurationEnv("CACHE_TTL", 10*time.Minute),
		},
		App: AppConfig{
			Env:     getEnv("APP_ENV", "development"),
			Name:    getEnv("APP_NAME", "WL Portal"),
			Version: getEnv("APP_VERSION", "1.0.0"),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Scheduler: SchedulerConfig{
			Enabled:    getBoolEnv("SCHEDULER_ENABLED", true),
			QueueCron:  getEnv("SCHEDULER_QUEUE_CRON", "@every 1m"),
			StaleAfter: getDurationEnv("SCHEDULER_STALE_AFTER", 24*time.Hour),
		},
		Vault: VaultConfig{
			Address:    getEnv("VAULT_ADDR", "http://localhost:8200"),
			Token:      getEnv("VAULT_TOKEN", ""),
			KVMount:    getEnv("VAULT_KV_MOUNT", "secret"),
			SecretPath: getEnv("VAULT_SECRET_PATH", "wl-portal"),
			Enabled:    getBoolEnv("VAULT_ENABLED", false),
		},
	}

	// Secrets may still arrive from Vault, so only the static checks run here
	if err := cfg.validateStatic(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// IsStaff reports whether the given identity is on the staff allow-list
func (c *AuthConfig) IsStaff(id string) bool {
	if id == "" {
		return false
	}
	for _, staffID := range c.StaffIDs {
		if staffID == id {
			return true
		}
	}
	return false
}

// TrustedProxyPrefixes parses TrustedProxies. A bare address becomes a
// single-host prefix.
func (c ServerConfig) TrustedProxyPrefixes() ([]netip.Prefix, error) {
	prefixes := make([]netip.Prefix, 0, len(c.TrustedProxies))
	for _, entry := range c.TrustedProxies {
		if strings.Contains(entry, "/") {
			p, err := netip.ParsePrefix(entry)
			if err != nil {
				return nil, fmt.Errorf("invalid TRUSTED_PROXIES entry %q: %w", entry, err)
			}
			prefixes = append(prefixes, p.Masked())
			continue
		}
		addr, err := netip.ParseAddr(entry)
		if err != nil {
			return nil, fmt.Errorf("invalid TRUSTED_PROXIES entry %q: %w", entry, err)
		}
		addr = addr.Unmap()
		prefixes = append(prefixes, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return prefixes, nil
}

func (c *Config) validateStatic() error {
	if _, err := c.Server.TrustedProxyPrefixes(); err != nil {
		return err
	}
	if len(c.Auth.StaffIDs) == 0 {
		return fmt.Errorf("STAFF_IDS is required")
	}
	if c.Whitelist.MaxAttempts < 1 {
		return fmt.Errorf("WL_MAX_ATTEMPTS must be at least 1")
	}
	if c.Whitelist.Cooldown <= 0 {
		return fmt.Errorf("WL_COOLDOWN must be positive")
	}
	if c.Database.LockTimeout <= 0 {
		return fmt.Errorf("DB_LOCK_TIMEOUT must be positive")
	}
	return nil
}

// Validate validates the configuration once all secret sources have been applied
func (c *Config) Validate() error {
	if err := c.validateStatic(); err != nil {
		return err
	}
	if c.Auth.JWTSecret == "" && c.Auth.JWKSURL == "" {
		return fmt.Errorf("either JWT_SECRET or AUTH_JWKS_URL is required")
	}
	if c.Database.Password == "" && c.App.Env == "production" {
		return fmt.Errorf("DB_PASSWORD is required in production")
	}
	return nil
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getSliceEnv(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		var result []string
		for _, v := range parts {
			if trimmed := strings.TrimSpace(v); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return defaultValue
}
