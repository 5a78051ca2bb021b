package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Database     DatabaseConfig     `mapstructure:"database"`
	JWT          JWTConfig          `mapstructure:"jwt"`
	Session      SessionConfig      `mapstructure:"session"`
	OTP          OTPConfig          `mapstructure:"otp"`
	Email        EmailConfig        `mapstructure:"email"`
	Storage      StorageConfig      `mapstructure:"storage"`
	CloudStorage CloudStorageConfig `mapstructure:"cloud_storage"`
	CORS         CORSConfig         `mapstructure:"cors"`
	Logging      LoggingConfig      `mapstructure:"logging"`
}

type ServerConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Mode            string `mapstructure:"mode"`
	ReadTimeout     string `mapstructure:"read_timeout"`
	WriteTimeout    string `mapstructure:"write_timeout"`
	ShutdownTimeout string `mapstructure:"shutdown_timeout"`
}

type DatabaseConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	Name            string `mapstructure:"name"`
	SSLMode         string `mapstructure:"sslmode"`
	Timezone        string `mapstructure:"timezone"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime string `mapstructure:"conn_max_lifetime"`
}

type JWTConfig struct {
	Secret            string `mapstructure:"secret"`
	AccessTokenExpiry string `mapstructure:"access_token_expiry"`
}

// SessionConfig holds the two independent refresh-session bounds: a sliding
// idle window and a hard absolute lifetime. Whichever is hit first ends the
// session.
type SessionConfig struct {
	IdleTimeout      string `mapstructure:"idle_timeout"`
	AbsoluteLifetime string `mapstructure:"absolute_lifetime"`
}

type OTPConfig struct {
	Digits int    `mapstructure:"digits"`
	Expiry string `mapstructure:"expiry"`
}

type EmailConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	SMTPHost string `mapstructure:"smtp_host"`
	SMTPPort int    `mapstructure:"smtp_port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
}

type StorageConfig struct {
	Path          string `mapstructure:"path"`
	MaxFileSizeMB int    `mapstructure:"max_file_size_mb"`
}

type CloudStorageConfig struct {
	Enabled          bool   `mapstructure:"enabled"`
	Provider         string `mapstructure:"provider"` // e.g. "azure"
	Endpoint         string `mapstructure:"endpoint"`
	AccessKey        string `mapstructure:"access_key"`        // Azure: Storage Account Name
	SecretKey        string `mapstructure:"secret_key"`        // Azure: Storage Account Key / SAS
	PublicContainer  string `mapstructure:"public_container"`  // Azure: public container name
	PrivateContainer string `mapstructure:"private_container"` // Azure: private container name
}

type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load loads configuration from file and environment variables
func Load() (*Config, error) {
	v := viper.New()

	// Set config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")

	// Read environment variables
	v.AutomaticEnv()

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Override with environment variables
	if port := os.Getenv("PORT"); port != "" {
		v.Set("server.port", port)
	}
	if dbHost := os.Getenv("DB_HOST"); dbHost != "" {
		cfg.Database.Host = dbHost
	}
	if dbPass := os.Getenv("DB_PASSWORD"); dbPass != "" {
		cfg.Database.Password = dbPass
	}
	if jwtSecret := os.Getenv("JWT_SECRET"); jwtSecret != "" {
		cfg.JWT.Secret = jwtSecret
	}
	if smtpPass := os.Getenv("SMTP_PASSWORD"); smtpPass != "" {
		cfg.Email.Password = smtpPass
	}

	applyDefaults(&cfg)

	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.JWT.AccessTokenExpiry == "" {
		cfg.JWT.AccessTokenExpiry = "5m"
	}
	if cfg.Session.IdleTimeout == "" {
		cfg.Session.IdleTimeout = "15m"
	}
	if cfg.Session.AbsoluteLifetime == "" {
		cfg.Session.AbsoluteLifetime = "7d"
	}
	if cfg.OTP.Digits == 0 {
		cfg.OTP.Digits = 6
	}
	if cfg.OTP.Expiry == "" {
		cfg.OTP.Expiry = "5m"
	}
}

// GetDSN returns PostgreSQL connection string
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s TimeZone=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode, c.Timezone,
	)
}

// GetURL returns the database URL used by golang-migrate.
func (c *DatabaseConfig) GetURL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode,
	)
}

// Helper methods to parse duration strings
func (c *JWTConfig) GetAccessTokenExpiry() (time.Duration, error) {
	return parseDuration(c.AccessTokenExpiry)
}

func (c *SessionConfig) GetIdleTimeout() (time.Duration, error) {
	return parseDuration(c.IdleTimeout)
}

func (c *SessionConfig) GetAbsoluteLifetime() (time.Duration, error) {
	return parseDuration(c.AbsoluteLifetime)
}

func (c *OTPConfig) GetExpiry() (time.Duration, error) {
	return parseDuration(c.Expiry)
}

func (c *ServerConfig) GetReadTimeout() (time.Duration, error) {
	return parseDuration(c.ReadTimeout)
}

func (c *ServerConfig) GetWriteTimeout() (time.Duration, error) {
	return parseDuration(c.WriteTimeout)
}

func (c *ServerConfig) GetShutdownTimeout() (time.Duration, error) {
	return parseDuration(c.ShutdownTimeout)
}

func (c *DatabaseConfig) GetConnMaxLifetime() (time.Duration, error) {
	return parseDuration(c.ConnMaxLifetime)
}

// parseDuration parses duration strings like "7d", "24h", "30m"
func parseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}

	// Handle days (e.g., "7d")
	if len(s) > 1 && s[len(s)-1] == 'd' {
		days := s[:len(s)-1]
		var d int
		_, err := fmt.Sscanf(days, "%d", &d)
		if err != nil {
			return 0, fmt.Errorf("invalid duration format: %s", s)
		}
		return time.Duration(d) * 24 * time.Hour, nil
	}

	// Use standard time.ParseDuration for other formats
	return time.ParseDuration(s)
}
