// Package config resolves runtime settings: defaults, then an optional YAML
// file, then environment overrides.
package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"

	FingerprintUserAgent = "user-agent"
	FingerprintToken     = "token"
)

// Config is the resolved runtime configuration.
type Config struct {
	Env      string
	HTTPPort int

	DBDriver       string
	DBDSN          string
	DBQueryTimeout time.Duration

	JWTSecret  string
	AdminRoles []string

	VPNRange      string
	VPNAPIURL     string
	VPNStatusFile string
	VPNRequired   bool
	VPNTimeout    time.Duration

	FingerprintMode string
	AuthEntryPath   string
	PublicPaths     []string

	RedeemRatePerMinute int
	RedeemBurst         int
	RedisURL            string

	AuditRetention time.Duration

	LogLevel  string
	LogDir    string
	LogMaxAge int
	Timezone  string
}

// IsDevelopment reports whether the loopback VPN escape may be used.
func (c Config) IsDevelopment() bool {
	return c.Env == EnvDevelopment
}

type configFile struct {
	Env    string `yaml:"env"`
	Server struct {
		HTTPPort int `yaml:"http_port"`
	} `yaml:"server"`
	Database struct {
		Driver              string `yaml:"driver"`
		DSN                 string `yaml:"dsn"`
		QueryTimeoutSeconds int    `yaml:"query_timeout_seconds"`
	} `yaml:"database"`
	Admin struct {
		JWTSecret string   `yaml:"jwt_secret"`
		Roles     []string `yaml:"roles"`
	} `yaml:"admin"`
	VPN struct {
		Range      string `yaml:"range"`
		APIURL     string `yaml:"api_url"`
		StatusFile string `yaml:"status_file"`
		Required   *bool  `yaml:"required"`
		TimeoutMS  int    `yaml:"timeout_ms"`
	} `yaml:"vpn"`
	Device struct {
		FingerprintMode string   `yaml:"fingerprint_mode"`
		AuthEntryPath   string   `yaml:"auth_entry_path"`
		PublicPaths     []string `yaml:"public_paths"`
	} `yaml:"device"`
	RateLimit struct {
		RedeemPerMinute int    `yaml:"redeem_per_minute"`
		RedeemBurst     int    `yaml:"redeem_burst"`
		RedisURL        string `yaml:"redis_url"`
	} `yaml:"rate_limit"`
	Audit struct {
		RetentionDays int `yaml:"retention_days"`
	} `yaml:"audit"`
	Log struct {
		Level  string `yaml:"level"`
		Dir    string `yaml:"dir"`
		MaxAge int    `yaml:"max_age_days"`
	} `yaml:"log"`
	Timezone string `yaml:"timezone"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Env:                 EnvProduction,
		HTTPPort:            6368,
		DBDriver:            "sqlite",
		DBDSN:               "./trustgateway.db",
		DBQueryTimeout:      5 * time.Second,
		AdminRoles:          []string{"superadmin"},
		VPNRange:            "10.8.0.0/24",
		VPNStatusFile:       "/var/log/openvpn-status.log",
		VPNTimeout:          2 * time.Second,
		FingerprintMode:     FingerprintUserAgent,
		AuthEntryPath:       "/autenticar",
		RedeemRatePerMinute: 10,
		RedeemBurst:         5,
		AuditRetention:      90 * 24 * time.Hour,
		LogLevel:            "INFO",
		LogDir:              "./logs",
		LogMaxAge:           7,
		Timezone:            "America/Asuncion",
	}
}

// SelfStatusURL is the status service of this process on port, used when
// no VPN_API_URL is configured.
func SelfStatusURL(port int) string {
	return fmt.Sprintf("http://127.0.0.1:%d", port)
}

// Load resolves configuration in priority order: defaults -> file -> env.
// A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := applyFile(&cfg, raw); err != nil {
				return Config{}, err
			}
		case !os.IsNotExist(err):
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}

	applyEnv(&cfg)
	if cfg.VPNAPIURL == "" {
		cfg.VPNAPIURL = SelfStatusURL(cfg.HTTPPort)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyFile(cfg *Config, raw []byte) error {
	var f configFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	if f.Env != "" {
		cfg.Env = f.Env
	}
	if f.Server.HTTPPort > 0 {
		cfg.HTTPPort = f.Server.HTTPPort
	}
	if f.Database.Driver != "" {
		cfg.DBDriver = f.Database.Driver
	}
	if f.Database.DSN != "" {
		cfg.DBDSN = f.Database.DSN
	}
	if f.Database.QueryTimeoutSeconds > 0 {
		cfg.DBQueryTimeout = time.Duration(f.Database.QueryTimeoutSeconds) * time.Second
	}
	if f.Admin.JWTSecret != "" {
		cfg.JWTSecret = f.Admin.JWTSecret
	}
	if len(f.Admin.Roles) > 0 {
		cfg.AdminRoles = f.Admin.Roles
	}
	if f.VPN.Range != "" {
		cfg.VPNRange = f.VPN.Range
	}
	if f.VPN.APIURL != "" {
		cfg.VPNAPIURL = f.VPN.APIURL
	}
	if f.VPN.StatusFile != "" {
		cfg.VPNStatusFile = f.VPN.StatusFile
	}
	if f.VPN.Required != nil {
		cfg.VPNRequired = *f.VPN.Required
	}
	if f.VPN.TimeoutMS > 0 {
		cfg.VPNTimeout = time.Duration(f.VPN.TimeoutMS) * time.Millisecond
	}
	if f.Device.FingerprintMode != "" {
		cfg.FingerprintMode = f.Device.FingerprintMode
	}
	if f.Device.AuthEntryPath != "" {
		cfg.AuthEntryPath = f.Device.AuthEntryPath
	}
	if len(f.Device.PublicPaths) > 0 {
		cfg.PublicPaths = f.Device.PublicPaths
	}
	if f.RateLimit.RedeemPerMinute > 0 {
		cfg.RedeemRatePerMinute = f.RateLimit.RedeemPerMinute
	}
	if f.RateLimit.RedeemBurst > 0 {
		cfg.RedeemBurst = f.RateLimit.RedeemBurst
	}
	if f.RateLimit.RedisURL != "" {
		cfg.RedisURL = f.RateLimit.RedisURL
	}
	if f.Audit.RetentionDays > 0 {
		cfg.AuditRetention = time.Duration(f.Audit.RetentionDays) * 24 * time.Hour
	}
	if f.Log.Level != "" {
		cfg.LogLevel = f.Log.Level
	}
	if f.Log.Dir != "" {
		cfg.LogDir = f.Log.Dir
	}
	if f.Log.MaxAge > 0 {
		cfg.LogMaxAge = f.Log.MaxAge
	}
	if f.Timezone != "" {
		cfg.Timezone = f.Timezone
	}
	return nil
}

func applyEnv(cfg *Config) {
	cfg.Env = strings.ToLower(envOrDefault("APP_ENV", cfg.Env))
	cfg.HTTPPort = envInt("HTTP_PORT", cfg.HTTPPort)
	cfg.DBDriver = strings.ToLower(envOrDefault("DB_DRIVER", cfg.DBDriver))
	cfg.DBDSN = envOrDefault("DB_DSN", cfg.DBDSN)
	cfg.DBQueryTimeout = time.Duration(envInt("DB_QUERY_TIMEOUT_SECONDS", int(cfg.DBQueryTimeout.Seconds()))) * time.Second
	cfg.JWTSecret = envOrDefault("JWT_SECRET", cfg.JWTSecret)
	cfg.AdminRoles = envCSV("ADMIN_ROLES", cfg.AdminRoles)
	cfg.VPNRange = envOrDefault("VPN_RANGE", cfg.VPNRange)
	cfg.VPNAPIURL = envOrDefault("VPN_API_URL", cfg.VPNAPIURL)
	cfg.VPNStatusFile = envOrDefault("VPN_STATUS_FILE", cfg.VPNStatusFile)
	cfg.VPNRequired = envBool("VPN_REQUIRED", cfg.VPNRequired)
	cfg.VPNTimeout = time.Duration(envInt("VPN_TIMEOUT_MS", int(cfg.VPNTimeout.Milliseconds()))) * time.Millisecond
	cfg.FingerprintMode = strings.ToLower(envOrDefault("FINGERPRINT_MODE", cfg.FingerprintMode))
	cfg.RedeemRatePerMinute = envInt("REDEEM_RATE_PER_MINUTE", cfg.RedeemRatePerMinute)
	cfg.RedeemBurst = envInt("REDEEM_BURST", cfg.RedeemBurst)
	cfg.RedisURL = envOrDefault("REDIS_URL", cfg.RedisURL)
	cfg.AuditRetention = time.Duration(envInt("AUDIT_RETENTION_DAYS", int(cfg.AuditRetention.Hours()/24))) * 24 * time.Hour
	cfg.LogLevel = envOrDefault("LOG_LEVEL", cfg.LogLevel)
	cfg.LogDir = envOrDefault("LOG_DIR", cfg.LogDir)
	cfg.Timezone = envOrDefault("TIMEZONE", cfg.Timezone)
}

// Validate checks values that would otherwise fail at request time.
func (c Config) Validate() error {
	switch c.Env {
	case EnvDevelopment, EnvProduction:
	default:
		return fmt.Errorf("invalid APP_ENV %q", c.Env)
	}
	switch c.DBDriver {
	case "sqlite", "mysql":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}
	if c.DBDSN == "" {
		return fmt.Errorf("missing DB_DSN")
	}
	if c.DBQueryTimeout <= 0 {
		return fmt.Errorf("DB_QUERY_TIMEOUT_SECONDS must be positive")
	}
	if _, _, err := net.ParseCIDR(c.VPNRange); err != nil {
		return fmt.Errorf("invalid VPN_RANGE %q: %w", c.VPNRange, err)
	}
	if c.VPNTimeout <= 0 {
		return fmt.Errorf("VPN_TIMEOUT_MS must be positive")
	}
	if c.AuditRetention < 24*time.Hour {
		return fmt.Errorf("AUDIT_RETENTION_DAYS must be at least 1")
	}
	switch c.FingerprintMode {
	case FingerprintUserAgent, FingerprintToken:
	default:
		return fmt.Errorf("invalid FINGERPRINT_MODE %q", c.FingerprintMode)
	}
	if !strings.HasPrefix(c.AuthEntryPath, "/") {
		return fmt.Errorf("auth entry path must start with /")
	}
	if len(c.AdminRoles) == 0 {
		return fmt.Errorf("at least one admin role is required")
	}
	return nil
}

// RequireSigningSecret fails in production when no JWT_SECRET is set. Only
// callers that sign or verify admin tokens need it.
func (c Config) RequireSigningSecret() error {
	if c.Env == EnvProduction && c.JWTSecret == "" {
		return fmt.Errorf("missing JWT_SECRET")
	}
	return nil
}

func envOrDefault(name, fallback string) string {
	if value := os.Getenv(name); value != "" {
		return value
	}
	return fallback
}

func envInt(name string, fallback int) int {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

func envBool(name string, fallback bool) bool {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	switch strings.ToLower(raw) {
	case "1", "true", "yes":
		return true
	case "0", "false", "no":
		return false
	default:
		return fallback
	}
}

func envCSV(name string, fallback []string) []string {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	parts := make([]string, 0)
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	if len(parts) == 0 {
		return fallback
	}
	return parts
}
