package app

import (
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/tisu1989/auth-project/internal/auth"
	"github.com/tisu1989/auth-project/internal/config"
	"github.com/tisu1989/auth-project/internal/db"
	"github.com/tisu1989/auth-project/internal/middleware"
	"github.com/tisu1989/auth-project/internal/repository"
	"github.com/tisu1989/auth-project/internal/service"
)

type App struct {
	Cfg               *config.Config
	DB                *sqlx.DB
	Tokens            *auth.TokenIssuer
	CredentialService *service.CredentialService
	PostService       *service.PostService
	AuthRateLimiter   *middleware.RateLimiter

	stop chan struct{}
}

type Option func(*options)

type options struct {
	mailer service.Mailer
}

// WithMailer replaces the mailer chosen from configuration.
func WithMailer(m service.Mailer) Option {
	return func(o *options) {
		o.mailer = m
	}
}

func New(cfg *config.Config, opts ...Option) (*App, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	security := cfg.Security().WithDefaults()
	err := security.Validate()
	if err != nil {
		return nil, fmt.Errorf("invalid security configuration: %w", err)
	}

	// Initialize database
	database, err := db.Init(cfg.DBDriver, cfg.DBConnection)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	// Run database migrations
	err = db.RunMigrations(database.DB, cfg.DBDriver)
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	// Repositories
	accountRepository := repository.NewAccountRepository(database)
	postRepository := repository.NewPostRepository(database)

	// Services
	mailer := o.mailer
	if mailer == nil {
		mailer = service.NewMailer(cfg.ResendAPIKey, cfg.EmailFrom, cfg.IsDevelopment())
	}

	tokens := auth.NewTokenIssuer(security.SigningKey, security.SessionExpiry)
	credentialService := service.NewCredentialService(accountRepository, mailer, tokens, security, cfg.AppName)
	postService := service.NewPostService(postRepository)

	stop := make(chan struct{})
	limit := cfg.AuthRateLimit
	if limit <= 0 {
		limit = 10
	}
	window := cfg.AuthRateWindow
	if window <= 0 {
		window = 15 * time.Minute
	}

	return &App{
		Cfg:               cfg,
		DB:                database,
		Tokens:            tokens,
		CredentialService: credentialService,
		PostService:       postService,
		AuthRateLimiter:   middleware.NewRateLimiter(limit, window, cfg.TrustProxy, stop),
		stop:              stop,
	}, nil
}

func (a *App) Close() error {
	if a.stop != nil {
		close(a.stop)
		a.stop = nil
	}
	return db.Close(a.DB)
}
