package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/authkit/modules/account"
	"github.com/dmitrymomot/authkit/pkg/auth"
	"github.com/dmitrymomot/authkit/pkg/config"
	"github.com/dmitrymomot/authkit/pkg/email"
	"github.com/dmitrymomot/authkit/pkg/httpserver"
	"github.com/dmitrymomot/authkit/pkg/logger"
	"github.com/dmitrymomot/authkit/pkg/nonce"
	"github.com/dmitrymomot/authkit/pkg/pg"
	"github.com/dmitrymomot/authkit/pkg/pgstore"
	"github.com/dmitrymomot/authkit/pkg/ratelimit"
	"github.com/dmitrymomot/authkit/pkg/redis"
	"github.com/dmitrymomot/authkit/pkg/wallet"
)

type appConfig struct {
	// SigningKey signs session tokens. Rotating it invalidates every
	// outstanding session.
	SigningKey string `env:"JWT_SIGNING_KEY,required"`

	AccessTokenTTL  time.Duration `env:"ACCESS_TOKEN_TTL" envDefault:"168h"`
	RefreshTokenTTL time.Duration `env:"REFRESH_TOKEN_TTL" envDefault:"720h"`

	// RedisEnabled switches the rate limiter to the Redis backend so
	// limits hold across replicas.
	RedisEnabled bool `env:"REDIS_ENABLED" envDefault:"false"`

	// TokenPurgeInterval is how often expired nonce, verification and
	// reset rows are swept from storage.
	TokenPurgeInterval time.Duration `env:"TOKEN_PURGE_INTERVAL" envDefault:"1h"`
}

func main() {
	if err := run(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	var (
		appCfg    appConfig
		logCfg    logger.Config
		httpCfg   httpserver.Config
		pgCfg     pg.Config
		redisCfg  redis.Config
		emailCfg  email.Config
		googleCfg auth.GoogleConfig
		acctCfg   account.Config
	)
	if err := errors.Join(
		config.Load(&appCfg),
		config.Load(&logCfg),
		config.Load(&httpCfg),
		config.Load(&pgCfg),
		config.Load(&redisCfg),
		config.Load(&emailCfg),
		config.Load(&googleCfg),
		config.Load(&acctCfg),
	); err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := logger.NewFromConfig(logCfg)

	pool, err := pg.Connect(ctx, pgCfg)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pool.Close()

	if err := pgstore.Migrate(ctx, pool, pgCfg, log); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	store := pgstore.New(pool)

	readiness := []httpserver.HealthCheckFunc{pg.Healthcheck(pool)}

	var limiterStore ratelimit.Store
	if appCfg.RedisEnabled {
		client, err := redis.Connect(ctx, redisCfg)
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		defer client.Close()
		limiterStore = ratelimit.NewRedisStore(client)
		readiness = append(readiness, redis.Healthcheck(client))
	} else {
		memStore := ratelimit.NewMemoryStore()
		defer memStore.Close()
		limiterStore = memStore
	}

	limiter, err := ratelimit.NewSlidingWindow(limiterStore, acctCfg.AuthRateLimit, acctCfg.AuthRateWindow)
	if err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	tokens, err := auth.NewTokenService(appCfg.SigningKey,
		auth.WithAccessTokenTTL(appCfg.AccessTokenTTL),
		auth.WithRefreshTokenTTL(appCfg.RefreshTokenTTL))
	if err != nil {
		return fmt.Errorf("token service: %w", err)
	}

	nonces := nonce.NewService(store)
	wallets := auth.NewWalletService(store, nonces, wallet.NewVerifier(nonces), auth.WithWalletLogger(log))
	passwords := auth.NewPasswordService(store, store, auth.WithPasswordLogger(log))
	federated := auth.NewFederatedService(store, auth.WithFederatedLogger(log))

	sender, err := email.NewSender(emailCfg)
	if err != nil {
		return fmt.Errorf("email sender: %w", err)
	}
	mailer := email.NewAccountEmails(sender, acctCfg.BaseURL)

	google, err := auth.NewGoogleAdapter(googleCfg)
	if err != nil && !errors.Is(err, auth.ErrProviderNotConfigured) {
		return fmt.Errorf("google adapter: %w", err)
	}

	r := chi.NewRouter()
	r.Get("/health", httpserver.LivenessHandler())
	r.Get("/ready", httpserver.ReadinessHandler(readiness...))
	r.Mount("/", account.Router(account.Deps{
		Config:    acctCfg,
		Users:     store,
		Tokens:    tokens,
		Wallets:   wallets,
		Passwords: passwords,
		Federated: federated,
		Google:    google,
		States:    nonces,
		Mailer:    mailer,
		Limiter:   limiter,
		Logger:    log,
	}))

	// Stop the background sweep once the server loop returns.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go purgeExpiredTokens(ctx, store, appCfg.TokenPurgeInterval, log)

	srv := httpserver.New(httpCfg, r, httpserver.WithLogger(log))
	log.Info("starting server",
		slog.String("addr", httpCfg.Addr),
		slog.Bool("redis", appCfg.RedisEnabled),
		slog.Bool("google", google != nil))
	return srv.Run(ctx)
}

// purgeExpiredTokens sweeps expired nonce, verification and reset rows on
// a fixed interval until ctx is cancelled. Failures are logged and retried
// on the next tick.
func purgeExpiredTokens(ctx context.Context, store *pgstore.Store, interval time.Duration, log *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := store.PurgeExpiredTokens(ctx)
			if err != nil {
				log.Warn("failed to purge expired tokens", "error", err)
				continue
			}
			if removed > 0 {
				log.Debug("purged expired tokens", slog.Int64("removed", removed))
			}
		}
	}
}
