package config

import (
	"os"
	"strconv"
	"time"

	"github.com/dmitrijs2005/abateiq-edge/internal/flagx"
	"github.com/joho/godotenv"
)

// parseEnv overlays process environment variables. If -env names a dotenv
// file it is loaded first; variables already set in the environment win.
// A missing or unreadable dotenv file panics, like an unreadable JSON file.
func parseEnv(config *Config) {
	if file := flagx.EnvFileFlag(); file != "" {
		if err := godotenv.Load(file); err != nil {
			panic(err)
		}
	}

	setString(&config.HTTPAddr, "HTTP_ADDR")
	setString(&config.GRPCAddr, "GRPC_ADDR")
	setString(&config.LogLevel, "LOG_LEVEL")
	setString(&config.DatabaseDSN, "DATABASE_URL")
	setString(&config.SessionBackend, "SESSION_BACKEND")
	setString(&config.RedisURL, "REDIS_URL")
	setDuration(&config.SessionTTL, "SESSION_TTL")
	setString(&config.APIOrigin, "API_ORIGIN")
	setString(&config.UpstreamAPIToken, "UPSTREAM_API_TOKEN")
	setString(&config.AuthLoginPath, "AUTH_LOGIN_PATH")
	setString(&config.AuthForgotPath, "AUTH_FORGOT_PATH")
	setString(&config.AuthTrialPath, "AUTH_TRIAL_PATH")
	setString(&config.ContactUpstreamPath, "CONTACT_UPSTREAM_PATH")
	setString(&config.WaitlistUpstreamPath, "WAITLIST_UPSTREAM_PATH")
	setDuration(&config.OutboundTimeout, "OUTBOUND_TIMEOUT")
	setString(&config.SMTPAddr, "SMTP_ADDR")
	setString(&config.SMTPUser, "SMTP_USER")
	setString(&config.SMTPPassword, "SMTP_PASSWORD")
	setString(&config.ContactToEmail, "CONTACT_TO_EMAIL")
	setString(&config.ContactFromEmail, "CONTACT_FROM_EMAIL")
	setString(&config.GitHubOAuthID, "GITHUB_OAUTH_ID")
	setString(&config.GitHubOAuthSecret, "GITHUB_OAUTH_SECRET")
	if v, ok := os.LookupEnv("GITHUB_REPO_PRIVATE"); ok {
		config.GitHubRepoPrivate = parseTruthy(v)
	}
	setString(&config.StateSecret, "OAUTH_STATE_SECRET")
	setString(&config.PublicHost, "PUBLIC_HOST")
	setString(&config.DashboardURL, "APP_DASHBOARD_URL")
	setString(&config.AssetsDir, "ASSETS_DIR")
	setString(&config.S3Bucket, "S3_BUCKET")
	setString(&config.S3Region, "S3_REGION")
	setString(&config.S3BaseEndpoint, "S3_BASE_ENDPOINT")
	setString(&config.S3AccessKey, "S3_ACCESS_KEY")
	setString(&config.S3SecretKey, "S3_SECRET_KEY")
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// setDuration accepts "90s"-style values or whole seconds.
func setDuration(dst *time.Duration, key string) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	if d, err := time.ParseDuration(v); err == nil {
		*dst = d
		return
	}
	if seconds, err := strconv.Atoi(v); err == nil {
		*dst = time.Duration(seconds) * time.Second
	}
}

// parseTruthy follows the worker convention: anything but "" and "0" is true.
func parseTruthy(v string) bool {
	return v != "" && v != "0"
}
