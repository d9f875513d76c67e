// Package oauth implements the GitHub popup handshake used by the site's
// CMS login.
package oauth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dmitrijs2005/abateiq-edge/internal/common"
	"github.com/dmitrijs2005/abateiq-edge/internal/logging"
)

const (
	ProviderGitHub = "github"

	DefaultAuthorizeURL = "https://github.com/login/oauth/authorize"
	DefaultTokenURL     = "https://github.com/login/oauth/access_token"

	callbackPath = "/api/cms/callback"
)

type Config struct {
	ClientID     string
	ClientSecret string
	PrivateRepo  bool
	// StateSecret signs the state value. Falls back to ClientSecret.
	StateSecret string
	// PublicHost overrides the request host in the redirect URI.
	PublicHost string
	Timeout    time.Duration
}

type GitHub struct {
	cfg    Config
	signer *StateSigner
	http   *http.Client
	log    logging.Logger

	AuthorizeURL string
	TokenURL     string
}

func NewGitHub(cfg Config, log logging.Logger) *GitHub {
	secret := cfg.StateSecret
	if secret == "" {
		secret = cfg.ClientSecret
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &GitHub{
		cfg:          cfg,
		signer:       NewStateSigner(secret),
		http:         &http.Client{Timeout: timeout},
		log:          log.With("module", "oauth"),
		AuthorizeURL: DefaultAuthorizeURL,
		TokenURL:     DefaultTokenURL,
	}
}

// ResolveProvider lowercases the query value, defaulting to github.
func ResolveProvider(raw string) (string, error) {
	p := strings.ToLower(strings.TrimSpace(raw))
	if p == "" {
		p = ProviderGitHub
	}
	if p != ProviderGitHub {
		return "", common.ErrUnsupportedProvider
	}
	return p, nil
}

// Scope is broader when the content repository is private.
func (g *GitHub) Scope() string {
	if g.cfg.PrivateRepo {
		return "repo,user"
	}
	return "public_repo,user"
}

// RedirectURI is the fixed callback for host, which may carry a port.
func (g *GitHub) RedirectURI(host string) string {
	if g.cfg.PublicHost != "" {
		host = g.cfg.PublicHost
	}
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	return "https://" + host + callbackPath + "?provider=" + ProviderGitHub
}

// AuthorizeRedirect builds the provider URL the popup is sent to.
func (g *GitHub) AuthorizeRedirect(provider, host string) (string, error) {
	p, err := ResolveProvider(provider)
	if err != nil {
		return "", err
	}
	if g.cfg.ClientID == "" {
		return "", fmt.Errorf("%w: github client id", common.ErrMissingConfiguration)
	}

	state, err := g.signer.Issue(p)
	if err != nil {
		return "", err
	}

	u, err := url.Parse(g.AuthorizeURL)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("client_id", g.cfg.ClientID)
	q.Set("redirect_uri", g.RedirectURI(host))
	q.Set("scope", g.Scope())
	q.Set("state", state)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

type tokenResponse struct {
	AccessToken      string `json:"access_token"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// Callback runs the server side of the handshake and always produces a
// Handshake to render, successful or not.
func (g *GitHub) Callback(ctx context.Context, provider, host, code, state string) Handshake {
	if _, err := ResolveProvider(provider); err != nil {
		return failure("Unsupported provider.", "")
	}
	if g.cfg.ClientID == "" || g.cfg.ClientSecret == "" {
		return failure("Missing GITHUB_OAUTH_ID or GITHUB_OAUTH_SECRET.", "")
	}
	if code == "" {
		return failure("Missing OAuth code.", "")
	}
	if err := g.signer.Verify(state, ProviderGitHub); err != nil {
		g.log.Warn(ctx, "rejected oauth state", "error", err)
		return failure("Invalid OAuth state.", "")
	}

	body, err := json.Marshal(map[string]string{
		"client_id":     g.cfg.ClientID,
		"client_secret": g.cfg.ClientSecret,
		"code":          code,
		"redirect_uri":  g.RedirectURI(host),
	})
	if err != nil {
		return failure("Token not returned by GitHub.", "")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.TokenURL, bytes.NewReader(body))
	if err != nil {
		return failure("Token not returned by GitHub.", "")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := g.http.Do(req)
	if err != nil {
		g.log.Error(ctx, "github token exchange failed", "error", err)
		return failure("GitHub token exchange failed.", "")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return failure(fmt.Sprintf("GitHub token exchange failed (%d).", resp.StatusCode), "")
	}

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		g.log.Warn(ctx, "undecodable github token response", "error", err)
	}
	if tr.AccessToken == "" {
		msg := tr.Error
		if msg == "" {
			msg = "Token not returned by GitHub."
		}
		return failure(msg, tr.ErrorDescription)
	}

	g.log.Info(ctx, "cms oauth completed")
	return Handshake{
		Status:  StatusSuccess,
		Payload: successPayload{Token: tr.AccessToken, Provider: ProviderGitHub},
	}
}
