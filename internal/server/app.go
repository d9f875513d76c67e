// Package server wires the edge together: it reads the configuration once,
// chooses the auth mode and submission sinks, and runs the HTTP edge and
// the ops gRPC endpoint until a termination signal arrives.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrijs2005/abateiq-edge/internal/logging"
	"github.com/dmitrijs2005/abateiq-edge/internal/server/assets"
	"github.com/dmitrijs2005/abateiq-edge/internal/server/config"
	"github.com/dmitrijs2005/abateiq-edge/internal/server/delivery"
	"github.com/dmitrijs2005/abateiq-edge/internal/server/httpapi"
	"github.com/dmitrijs2005/abateiq-edge/internal/server/models"
	"github.com/dmitrijs2005/abateiq-edge/internal/server/oauth"
	"github.com/dmitrijs2005/abateiq-edge/internal/server/opsgrpc"
	"github.com/dmitrijs2005/abateiq-edge/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/abateiq-edge/internal/server/services"
	"github.com/dmitrijs2005/abateiq-edge/internal/server/sessions"
	"github.com/dmitrijs2005/abateiq-edge/internal/server/upstream"
	"github.com/redis/go-redis/v9"
)

const (
	startupTimeout  = 10 * time.Second
	shutdownTimeout = 10 * time.Second
)

type App struct {
	config  *config.Config
	logger  logging.Logger
	handler http.Handler
	ops     *opsgrpc.Server

	db    *sql.DB
	redis *redis.Client
}

// NewApp connects the configured backends and builds the handler. Nothing
// is listening yet when it returns.
func NewApp(c *config.Config) (*App, error) {
	logger := logging.NewJSONLogger(os.Stdout, c.LogLevel)
	app := &App{config: c, logger: logger}

	ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	defer cancel()

	deps := httpapi.Deps{
		HasUpstreamAuth: c.HasUpstream(),
		HasDatabase:     c.HasDatabase(),
		Log:             logger,
	}

	var manager *repomanager.SQLRepositoryManager
	if c.HasDatabase() {
		db, m, err := repomanager.Open(ctx, c.DatabaseDSN)
		if err != nil {
			return nil, fmt.Errorf("db init error: %w", err)
		}
		app.db = db
		manager = m

		if err := m.RunMigrations(ctx, db); err != nil {
			app.Close()
			return nil, fmt.Errorf("db migrations error: %w", err)
		}
	}

	var client *upstream.Client
	if c.HasUpstream() {
		client = upstream.New(c.ConfiguredAPIOrigin(), c.UpstreamAPIToken, c.OutboundTimeout, logger)
		deps.AuthProxy = client
		deps.AuthPaths = map[string]string{
			"/api/auth/login":           c.AuthLoginPath,
			"/api/auth/forgot-password": c.AuthForgotPath,
			"/api/auth/trial":           c.AuthTrialPath,
		}
	}

	if manager != nil {
		auth, err := app.newAuthService(ctx, manager)
		if err != nil {
			app.Close()
			return nil, err
		}
		deps.Auth = auth
	}

	contact, waitlist := app.newRouters(client, manager)
	deps.Contact = contact
	deps.Waitlist = waitlist

	deps.OAuth = oauth.NewGitHub(oauth.Config{
		ClientID:     c.GitHubOAuthID,
		ClientSecret: c.GitHubOAuthSecret,
		PrivateRepo:  c.GitHubRepoPrivate,
		StateSecret:  c.OAuthStateSecret(),
		PublicHost:   c.PublicHost,
		Timeout:      c.OutboundTimeout,
	}, logger)

	src, err := app.newAssets(ctx)
	if err != nil {
		app.Close()
		return nil, err
	}
	deps.Assets = src

	app.handler = httpapi.NewHandler(deps).Router()
	app.ops = opsgrpc.New(c.GRPCAddr, contact.Configured() || waitlist.Configured() || deps.Auth != nil || deps.AuthProxy != nil, logger)

	logger.Info(ctx, "edge configured",
		"auth_mode", authMode(deps),
		"contact_sinks", contact.Sinks(),
		"waitlist_sinks", waitlist.Sinks(),
		"assets", src.Kind(),
	)

	return app, nil
}

func authMode(deps httpapi.Deps) string {
	switch {
	case deps.AuthProxy != nil:
		return "upstream"
	case deps.Auth != nil:
		return "direct"
	default:
		return "disabled"
	}
}

func (app *App) newAuthService(ctx context.Context, m *repomanager.SQLRepositoryManager) (*services.AuthService, error) {
	c := app.config

	var store sessions.Store = m.Sessions(app.db)
	sessionsInDB := true

	if c.SessionBackend == config.SessionBackendRedis {
		if c.RedisURL == "" {
			return nil, errors.New("redis session backend selected but no redis URL configured")
		}
		opts, err := redis.ParseURL(c.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("redis url: %w", err)
		}
		client := redis.NewClient(opts)
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("redis ping: %w", err)
		}
		app.redis = client
		store = sessions.NewRedisStore(client)
		sessionsInDB = false
	}

	issuer := sessions.NewIssuer(store, c.SessionTTL, c.ResolvedDashboardURL(), app.logger)
	return services.NewAuthService(app.db, m, issuer, sessionsInDB, app.logger), nil
}

// newRouters builds both submission routers. Sinks are attempted in the
// order upstream, email, database.
func (app *App) newRouters(client *upstream.Client, m *repomanager.SQLRepositoryManager) (*delivery.Router, *delivery.Router) {
	c := app.config

	var contactSinks, waitlistSinks []delivery.Sink
	if client != nil {
		contactSinks = append(contactSinks, delivery.NewUpstreamSink(client, c.ContactUpstreamPath))
		waitlistSinks = append(waitlistSinks, delivery.NewUpstreamSink(client, c.WaitlistUpstreamPath))
	}
	if c.HasEmail() {
		mailer := delivery.NewSMTPMailer(c.SMTPAddr, c.SMTPUser, c.SMTPPassword, c.OutboundTimeout)
		contactSinks = append(contactSinks, delivery.NewEmailSink(mailer, c.ContactFromEmail, c.ContactToEmail))
		waitlistSinks = append(waitlistSinks, delivery.NewEmailSink(mailer, c.ContactFromEmail, c.ContactToEmail))
	}
	if m != nil {
		contactSinks = append(contactSinks, delivery.NewDatabaseSink(m.Submissions(app.db)))
		waitlistSinks = append(waitlistSinks, delivery.NewDatabaseSink(m.Submissions(app.db)))
	}

	return delivery.NewRouter(models.KindContact, app.logger, contactSinks...),
		delivery.NewRouter(models.KindWaitlist, app.logger, waitlistSinks...)
}

func (app *App) newAssets(ctx context.Context) (assets.Source, error) {
	c := app.config
	if c.S3Bucket == "" {
		return assets.NewDirSource(c.AssetsDir), nil
	}
	src, err := assets.NewS3Source(ctx, assets.S3Config{
		Bucket:       c.S3Bucket,
		Region:       c.S3Region,
		BaseEndpoint: c.S3BaseEndpoint,
		AccessKey:    c.S3AccessKey,
		SecretKey:    c.S3SecretKey,
	}, app.logger)
	if err != nil {
		return nil, fmt.Errorf("assets init error: %w", err)
	}
	return src, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	srv := &http.Server{
		Addr:              app.config.HTTPAddr,
		Handler:           app.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		app.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			app.logger.Error(ctx, "http shutdown", "error", err)
		}
	}()

	app.logger.Info(ctx, "Starting HTTP server", "address", app.config.HTTPAddr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {
	if err := app.ops.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// Run serves until ctx is cancelled, a termination signal arrives or one
// of the listeners fails, then releases the backends.
func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	if app.config.GRPCAddr != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			app.startGRPCServer(ctx, cancelFunc)
		}()
	}

	wg.Wait()
	app.Close()
}

// Close releases the database and Redis connections.
func (app *App) Close() {
	if app.redis != nil {
		if err := app.redis.Close(); err != nil {
			app.logger.Warn(context.Background(), "redis close", "error", err)
		}
		app.redis = nil
	}
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Warn(context.Background(), "db close", "error", err)
		}
		app.db = nil
	}
}

// Handler exposes the HTTP handler for in-process tests.
func (app *App) Handler() http.Handler {
	return app.handler
}
