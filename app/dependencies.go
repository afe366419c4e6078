package app

import (
	"context"
	"fmt"

	"github.com/upb/tenant-gateway/config"
	"github.com/upb/tenant-gateway/middleware"
	"github.com/upb/tenant-gateway/repositories"
	"github.com/upb/tenant-gateway/repositories/postgres"
	"github.com/upb/tenant-gateway/services/ratelimit"
	"github.com/upb/tenant-gateway/token"
	"go.uber.org/zap"
)

// Dependencies holds all application dependencies.
// This is the central wiring point for dependency injection.
type Dependencies struct {
	// Infrastructure
	Config *config.Config
	DB     *postgres.DB
	Logger *zap.Logger

	// Repository Factory
	RepoFactory *postgres.RepositoryFactory

	// Repositories
	Recommendations repositories.RecommendationRepository
	TxManager       repositories.TransactionManager

	// Rate limiting
	Limiter *ratelimit.Service

	// Request pipeline middleware
	AuthMiddleware      *middleware.AuthMiddleware
	RateLimitMiddleware *middleware.RateLimitMiddleware
}

// NewDependencies creates and wires up all application dependencies
func NewDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	if err := deps.initDatabase(ctx, cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	deps.initRepositories()
	deps.initRateLimiter(cfg)

	if err := deps.initAuth(cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize auth: %w", err)
	}

	logger.Info("all dependencies initialized successfully")
	return deps, nil
}

// initDatabase initializes the PostgreSQL connection and factory
func (d *Dependencies) initDatabase(ctx context.Context, cfg *config.Config) error {
	factory, err := postgres.NewRepositoryFactory(cfg, d.Logger)
	if err != nil {
		return fmt.Errorf("failed to create repository factory: %w", err)
	}

	d.RepoFactory = factory
	d.DB = factory.GetDB()

	if err := d.DB.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	if err := d.DB.InitSchema(ctx); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	return nil
}

// initRepositories initializes all repository instances
func (d *Dependencies) initRepositories() {
	repos := d.RepoFactory.NewRepositories()

	d.Recommendations = repos.Recommendations
	d.TxManager = d.RepoFactory.GetTransactionManager()

	d.Logger.Info("repositories initialized")
}

// initRateLimiter initializes the limiter and its middleware
func (d *Dependencies) initRateLimiter(cfg *config.Config) {
	d.Limiter = ratelimit.NewService(cfg.RateLimit.Window, d.Logger)

	d.RateLimitMiddleware = middleware.NewRateLimitMiddleware(d.Limiter, middleware.RateLimitConfig{
		AuthenticatedLimit:   cfg.RateLimit.RequestsPerMinute,
		UnauthenticatedLimit: cfg.RateLimit.UnauthenticatedRequestsPerMinute,
		ExemptPaths:          []string{"/healthz", "/readyz"},
	}, d.Logger)

	d.Logger.Info("rate limiter initialized",
		zap.Int("requests_per_minute", cfg.RateLimit.RequestsPerMinute),
		zap.Int("unauthenticated_requests_per_minute", cfg.RateLimit.UnauthenticatedRequestsPerMinute),
		zap.Duration("window", cfg.RateLimit.Window))
}

// initAuth initializes token validation and the auth middleware. With no
// secret configured the gateway still serves traffic, but every request is
// treated as anonymous.
func (d *Dependencies) initAuth(cfg *config.Config) error {
	if cfg.Auth.Secret == "" {
		d.Logger.Warn("auth secret not configured, all requests will be anonymous")
		d.AuthMiddleware = middleware.NewAuthMiddleware(&disabledValidator{}, d.Logger)
		return nil
	}

	validator, err := token.NewValidator(token.Config{
		Secret: cfg.Auth.Secret,
		Issuer: cfg.Auth.Issuer,
	})
	if err != nil {
		return err
	}

	d.AuthMiddleware = middleware.NewAuthMiddleware(&tokenValidatorAdapter{validator: validator}, d.Logger)
	d.Logger.Info("token validator initialized", zap.String("issuer", cfg.Auth.Issuer))
	return nil
}

// tokenValidatorAdapter adapts token.Validator to middleware.TokenValidator
type tokenValidatorAdapter struct {
	validator *token.Validator
}

func (a *tokenValidatorAdapter) ValidateToken(ctx context.Context, tokenString string) (*middleware.Identity, error) {
	parsed, err := a.validator.ValidateToken(ctx, tokenString)
	if err != nil {
		return nil, err
	}
	return &middleware.Identity{
		TenantID: parsed.TenantID,
		UserID:   parsed.Subject,
		Roles:    parsed.Roles,
	}, nil
}

// disabledValidator fails every token (used when no secret is configured)
type disabledValidator struct{}

func (*disabledValidator) ValidateToken(context.Context, string) (*middleware.Identity, error) {
	return nil, fmt.Errorf("authentication not configured")
}

// Close gracefully shuts down all dependencies
func (d *Dependencies) Close(ctx context.Context) error {
	d.Logger.Info("shutting down dependencies")

	var errs []error

	if d.RepoFactory != nil {
		if err := d.RepoFactory.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		} else {
			d.Logger.Info("database connection closed")
		}
	}

	if d.Logger != nil {
		_ = d.Logger.Sync()
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors during shutdown: %v", errs)
	}

	return nil
}
