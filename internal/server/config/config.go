// Package config handles configuration for the edge server: defaults, an
// optional dotenv file, process environment, an optional JSON file and
// finally command-line flags, each layer overriding the previous one.
package config

import (
	"strings"
	"time"

	"github.com/dmitrijs2005/abateiq-edge/internal/common"
)

// Config holds runtime settings for the edge server. Empty strings mean
// "not configured"; which sinks and auth mode are active is derived from
// these values once at startup.
type Config struct {
	HTTPAddr string
	GRPCAddr string
	LogLevel string

	// Direct database binding (Postgres URL or sqlite3:/file: DSN).
	DatabaseDSN string

	// Session storage. SessionBackend is "database" or "redis".
	SessionBackend string
	RedisURL       string
	SessionTTL     time.Duration

	// Upstream API.
	APIOrigin            string
	UpstreamAPIToken     string
	AuthLoginPath        string
	AuthForgotPath       string
	AuthTrialPath        string
	ContactUpstreamPath  string
	WaitlistUpstreamPath string
	OutboundTimeout      time.Duration

	// Outbound email.
	SMTPAddr         string
	SMTPUser         string
	SMTPPassword     string
	ContactToEmail   string
	ContactFromEmail string

	// CMS OAuth popup.
	GitHubOAuthID     string
	GitHubOAuthSecret string
	GitHubRepoPrivate bool
	StateSecret       string
	PublicHost        string

	DashboardURL string

	// Static assets: local directory unless S3Bucket is set.
	AssetsDir      string
	S3Bucket       string
	S3Region       string
	S3BaseEndpoint string
	S3AccessKey    string
	S3SecretKey    string
}

// LoadDefaults populates Config with development defaults.
func (c *Config) LoadDefaults() {
	c.HTTPAddr = ":8080"
	c.GRPCAddr = ":9090"
	c.LogLevel = "info"
	c.SessionBackend = SessionBackendDatabase
	c.SessionTTL = 12 * time.Hour
	c.AuthLoginPath = "/api/auth/login"
	c.AuthForgotPath = "/api/auth/forgot-password"
	c.AuthTrialPath = "/api/auth/trial"
	c.ContactUpstreamPath = "/marketing/contact"
	c.WaitlistUpstreamPath = "/marketing/waitlist"
	c.OutboundTimeout = 10 * time.Second
	c.DashboardURL = common.DefaultDashboardURL
	c.AssetsDir = "./public"
	c.S3Region = "us-east-1"
}

const (
	SessionBackendDatabase = "database"
	SessionBackendRedis    = "redis"
)

// LoadConfig builds a Config by applying defaults, then overlaying values
// from the dotenv file and environment, an optional JSON file and finally
// command-line flags.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseEnv(cfg)
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}

// ConfiguredAPIOrigin returns the upstream origin, or "" when unset or
// still the sample placeholder.
func (c *Config) ConfiguredAPIOrigin() string {
	origin := strings.TrimSpace(c.APIOrigin)
	if origin == common.PlaceholderAPIOrigin {
		return ""
	}
	return origin
}

func (c *Config) HasUpstream() bool { return c.ConfiguredAPIOrigin() != "" }

func (c *Config) HasDatabase() bool { return strings.TrimSpace(c.DatabaseDSN) != "" }

// HasEmail requires a relay and both addresses.
func (c *Config) HasEmail() bool {
	return c.SMTPAddr != "" && c.ContactToEmail != "" && c.ContactFromEmail != ""
}

// OAuthStateSecret is the HMAC key for OAuth state tokens.
func (c *Config) OAuthStateSecret() string {
	if c.StateSecret != "" {
		return c.StateSecret
	}
	return c.GitHubOAuthSecret
}

// ResolvedDashboardURL falls back to the default dashboard when blank.
func (c *Config) ResolvedDashboardURL() string {
	if u := strings.TrimSpace(c.DashboardURL); u != "" {
		return u
	}
	return common.DefaultDashboardURL
}
