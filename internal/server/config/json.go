package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/abateiq-edge/internal/flagx"
	"github.com/dmitrijs2005/abateiq-edge/internal/timex"
)

// JsonConfig is the on-disk shape of the optional config file. Pointer
// fields distinguish "absent" from "empty" so a partial file only
// overrides what it names.
type JsonConfig struct {
	HTTPAddr             *string         `json:"http_addr"`
	GRPCAddr             *string         `json:"grpc_addr"`
	LogLevel             *string         `json:"log_level"`
	DatabaseDSN          *string         `json:"database_dsn"`
	SessionBackend       *string         `json:"session_backend"`
	RedisURL             *string         `json:"redis_url"`
	SessionTTL           *timex.Duration `json:"session_ttl"`
	APIOrigin            *string         `json:"api_origin"`
	UpstreamAPIToken     *string         `json:"upstream_api_token"`
	AuthLoginPath        *string         `json:"auth_login_path"`
	AuthForgotPath       *string         `json:"auth_forgot_path"`
	AuthTrialPath        *string         `json:"auth_trial_path"`
	ContactUpstreamPath  *string         `json:"contact_upstream_path"`
	WaitlistUpstreamPath *string         `json:"waitlist_upstream_path"`
	OutboundTimeout      *timex.Duration `json:"outbound_timeout"`
	SMTPAddr             *string         `json:"smtp_addr"`
	SMTPUser             *string         `json:"smtp_user"`
	SMTPPassword         *string         `json:"smtp_password"`
	ContactToEmail       *string         `json:"contact_to_email"`
	ContactFromEmail     *string         `json:"contact_from_email"`
	GitHubOAuthID        *string         `json:"github_oauth_id"`
	GitHubOAuthSecret    *string         `json:"github_oauth_secret"`
	GitHubRepoPrivate    *bool           `json:"github_repo_private"`
	StateSecret          *string         `json:"oauth_state_secret"`
	PublicHost           *string         `json:"public_host"`
	DashboardURL         *string         `json:"app_dashboard_url"`
	AssetsDir            *string         `json:"assets_dir"`
	S3Bucket             *string         `json:"s3_bucket"`
	S3Region             *string         `json:"s3_region"`
	S3BaseEndpoint       *string         `json:"s3_base_endpoint"`
	S3AccessKey          *string         `json:"s3_access_key"`
	S3SecretKey          *string         `json:"s3_secret_key"`
}

// parseJson loads the file named by -c/-config, if any, and copies every
// present field into config. An unreadable file or invalid JSON panics.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	c.apply(config)
}

func (c *JsonConfig) apply(config *Config) {
	copyString(&config.HTTPAddr, c.HTTPAddr)
	copyString(&config.GRPCAddr, c.GRPCAddr)
	copyString(&config.LogLevel, c.LogLevel)
	copyString(&config.DatabaseDSN, c.DatabaseDSN)
	copyString(&config.SessionBackend, c.SessionBackend)
	copyString(&config.RedisURL, c.RedisURL)
	if c.SessionTTL != nil {
		config.SessionTTL = c.SessionTTL.Duration
	}
	copyString(&config.APIOrigin, c.APIOrigin)
	copyString(&config.UpstreamAPIToken, c.UpstreamAPIToken)
	copyString(&config.AuthLoginPath, c.AuthLoginPath)
	copyString(&config.AuthForgotPath, c.AuthForgotPath)
	copyString(&config.AuthTrialPath, c.AuthTrialPath)
	copyString(&config.ContactUpstreamPath, c.ContactUpstreamPath)
	copyString(&config.WaitlistUpstreamPath, c.WaitlistUpstreamPath)
	if c.OutboundTimeout != nil {
		config.OutboundTimeout = c.OutboundTimeout.Duration
	}
	copyString(&config.SMTPAddr, c.SMTPAddr)
	copyString(&config.SMTPUser, c.SMTPUser)
	copyString(&config.SMTPPassword, c.SMTPPassword)
	copyString(&config.ContactToEmail, c.ContactToEmail)
	copyString(&config.ContactFromEmail, c.ContactFromEmail)
	copyString(&config.GitHubOAuthID, c.GitHubOAuthID)
	copyString(&config.GitHubOAuthSecret, c.GitHubOAuthSecret)
	if c.GitHubRepoPrivate != nil {
		config.GitHubRepoPrivate = *c.GitHubRepoPrivate
	}
	copyString(&config.StateSecret, c.StateSecret)
	copyString(&config.PublicHost, c.PublicHost)
	copyString(&config.DashboardURL, c.DashboardURL)
	copyString(&config.AssetsDir, c.AssetsDir)
	copyString(&config.S3Bucket, c.S3Bucket)
	copyString(&config.S3Region, c.S3Region)
	copyString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	copyString(&config.S3AccessKey, c.S3AccessKey)
	copyString(&config.S3SecretKey, c.S3SecretKey)
}

func copyString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}
