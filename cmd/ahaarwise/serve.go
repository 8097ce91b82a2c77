package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	adapthttp "ahaarwise/internal/adapter/http"
	"ahaarwise/internal/adapter/memory"
	"ahaarwise/internal/adapter/postgres"
	"ahaarwise/internal/adapter/redis"
	"ahaarwise/internal/app"
	"ahaarwise/internal/config"
	"ahaarwise/internal/domain"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

const (
	shutdownTimeout = 10 * time.Second
	kvSweepInterval = 10 * time.Minute
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := setup()
		if err != nil {
			return err
		}
		defer func() { _ = log.Sync() }()

		if err := serve(cmd.Context(), cfg, log); err != nil {
			log.Error("server stopped", zap.Error(err))
			return err
		}
		return nil
	},
}

// repository is the persistence the services need.
type repository interface {
	domain.UserRepository
	domain.PatientRepository
}

// stores opens the repository and key-value store selected by cfg. The
// returned func releases them.
func stores(ctx context.Context, cfg config.Config, log *zap.Logger) (repository, domain.KeyValueStore, func(), error) {
	var (
		repo    repository
		kv      domain.KeyValueStore
		pg      *postgres.DB
		closers []func()
	)
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	if cfg.DatabaseURL != "" {
		db, err := postgres.Open(cfg.DatabaseURL)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("db open: %w", err)
		}
		closers = append(closers, func() { _ = db.Close() })
		repo, pg = db, db
	} else {
		log.Warn("DATABASE_URL not set, users and patients are kept in memory")
		repo = memory.New()
	}

	switch {
	case cfg.RedisURL != "":
		client, err := redis.Connect(ctx, cfg.RedisURL)
		if err != nil {
			closeAll()
			return nil, nil, nil, err
		}
		store := redis.New(client)
		closers = append(closers, func() { _ = store.Close() })
		kv = store
	case pg != nil:
		store := postgres.NewKVStore(pg)
		go sweepExpired(ctx, store, log)
		kv = store
	default:
		kv = memory.NewStore()
	}

	return repo, kv, closeAll, nil
}

func sweepExpired(ctx context.Context, store *postgres.KVStore, log *zap.Logger) {
	ticker := time.NewTicker(kvSweepInterval)
	defer ticker.Stop()
	for {
		if err := store.DeleteExpired(ctx); err != nil && ctx.Err() == nil {
			log.Warn("sweeping expired kv entries failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func oidcConfig(ctx context.Context, cfg config.OIDC) (adapthttp.OIDCConfig, error) {
	if !cfg.Enabled() {
		return adapthttp.OIDCConfig{}, nil
	}
	provider, err := oidc.NewProvider(ctx, cfg.IssuerURL)
	if err != nil {
		return adapthttp.OIDCConfig{}, fmt.Errorf("oidc provider: %w", err)
	}
	return adapthttp.OIDCConfig{
		Enabled:  true,
		Provider: provider,
		OAuth2Config: oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint:     provider.Endpoint(),
			Scopes:       []string{oidc.ScopeOpenID, "profile", "email"},
		},
	}, nil
}

func serve(ctx context.Context, cfg config.Config, log *zap.Logger) error {
	repo, kv, closeStores, err := stores(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStores()

	codec, err := app.NewSessionCodec([]byte(cfg.SessionSecret), cfg.SessionTTL)
	if err != nil {
		return err
	}
	oidcCfg, err := oidcConfig(ctx, cfg.OIDC)
	if err != nil {
		return err
	}

	creds := app.NewCredentialService(repo)
	auth := app.NewAuthService(creds, codec, kv, log)
	h := adapthttp.New(auth, creds, app.NewPatientService(repo), app.NewNutritionService(repo), log, adapthttp.Config{
		WebDir:             cfg.WebDir,
		CookieSecure:       cfg.CookieSecure,
		LoginRatePerMinute: cfg.LoginRatePerMinute,
		OIDC:               oidcCfg,
	}).Handler()

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", zap.String("addr", cfg.Addr), zap.Bool("sso", oidcCfg.Enabled))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
