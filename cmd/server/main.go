// Command server runs the QualityBytes license and subscription
// storefront API.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/samosalabs/licenseserver/modules/admin"
	"github.com/samosalabs/licenseserver/modules/auth"
	"github.com/samosalabs/licenseserver/modules/billing"
	"github.com/samosalabs/licenseserver/modules/license"
	"github.com/samosalabs/licenseserver/pkg/config"
	"github.com/samosalabs/licenseserver/pkg/email"
	"github.com/samosalabs/licenseserver/pkg/httpserver"
	"github.com/samosalabs/licenseserver/pkg/logger"
	"github.com/samosalabs/licenseserver/pkg/pg"
	"github.com/samosalabs/licenseserver/pkg/ratelimit"
	"github.com/samosalabs/licenseserver/pkg/redis"
	"github.com/samosalabs/licenseserver/pkg/response"
)

type appConfig struct {
	Environment string `env:"APP_ENV" envDefault:"development"`
	ServiceName string `env:"APP_NAME" envDefault:"licenseserver"`

	// The public validation endpoint is limited per client IP.
	ValidateLimit  int           `env:"VALIDATE_RATE_LIMIT" envDefault:"60"`
	ValidateWindow time.Duration `env:"VALIDATE_RATE_WINDOW" envDefault:"1m"`
}

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	ctx := context.Background()

	var appCfg appConfig
	config.MustLoad(&appCfg)

	log := logger.New(logger.WithEnvironment(appCfg.Environment, appCfg.ServiceName))
	logger.SetAsDefault(log)

	isDev := appCfg.Environment != "production" && appCfg.Environment != "staging"

	// Database.
	var pgCfg pg.Config
	config.MustLoad(&pgCfg)

	pool, err := pg.Connect(ctx, pgCfg)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pool.Close()

	if err := pg.Migrate(ctx, pool, pgCfg, log); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}

	// Rate limit store: Redis when configured, in-memory otherwise.
	var limitStore ratelimit.Store
	var redisCfg redis.Config
	config.MustLoad(&redisCfg)
	if redisCfg.ConnectionURL != "" {
		client, err := redis.Connect(ctx, redisCfg)
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		defer client.Close()
		limitStore = ratelimit.NewRedisStore(client, "validate")
	} else {
		memStore := ratelimit.NewMemoryStore()
		defer memStore.Close()
		limitStore = memStore
		log.Info("redis not configured, using in-memory rate limiting")
	}

	validateLimiter, err := ratelimit.NewSlidingWindow(limitStore, appCfg.ValidateLimit, appCfg.ValidateWindow)
	if err != nil {
		return fmt.Errorf("build rate limiter: %w", err)
	}

	// Email.
	var emailCfg email.Config
	config.MustLoad(&emailCfg)

	var sender email.Sender
	if emailCfg.PostmarkServerToken != "" {
		sender, err = email.NewPostmarkSender(emailCfg)
		if err != nil {
			return fmt.Errorf("build email sender: %w", err)
		}
	} else if isDev {
		sender = email.DevSender{Log: log}
		log.Warn("postmark not configured, emails will be logged only")
	} else {
		return fmt.Errorf("postmark credentials are required outside development")
	}

	// Billing provider.
	var paddleCfg billing.PaddleConfig
	config.MustLoad(&paddleCfg)

	var provider billing.BillingProvider
	if paddleCfg.APIKey != "" {
		provider, err = billing.NewPaddleProvider(paddleCfg)
		if err != nil {
			return fmt.Errorf("build paddle provider: %w", err)
		}
	} else if isDev {
		provider = billing.DevProvider{Log: log}
		log.Warn("paddle not configured, using dev billing provider")
	} else {
		return fmt.Errorf("paddle credentials are required outside development")
	}

	// Services.
	var billingCfg billing.Config
	config.MustLoad(&billingCfg)
	billingSvc := billing.NewService(billing.NewPgStore(pool), provider, billingCfg,
		billing.WithLogger(log))

	authSvc := auth.NewService(auth.NewPgStorage(pool),
		auth.WithLogger(log),
		auth.WithAfterRegister(func(ctx context.Context, user *auth.User) error {
			_, err := billingSvc.StartTrial(ctx, user.ID)
			return err
		}),
	)

	registry := license.NewRegistry(license.NewPgStore(pool), billingSvc,
		license.WithLogger(log),
		license.WithEmailSender(sender),
		license.WithUserSource(authSvc))

	adminSvc := admin.NewService(admin.NewPgStore(pool), admin.WithLogger(log))

	// Router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := pg.Healthcheck(pool)(r.Context()); err != nil {
			response.Error(w, response.ErrInternalServerError)
			return
		}
		response.JSON(w, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		auth.NewHandler(authSvc).Routes(r)
		billing.NewHandler(billingSvc, authSvc).Routes(r)
		license.NewHandler(registry, authSvc,
			license.WithValidateMiddleware(ratelimit.Middleware(validateLimiter, ratelimit.ClientIP)),
		).Routes(r)
		admin.NewHandler(adminSvc, authSvc).Routes(r)
	})

	var httpCfg httpserver.Config
	config.MustLoad(&httpCfg)

	return httpserver.New(httpCfg, log).Run(ctx, r)
}
