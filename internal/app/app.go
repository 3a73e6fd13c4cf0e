// Package app builds the services a command or the HTTP server needs from a
// loaded configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/cleared-dev/recibo/internal/accounts"
	"github.com/cleared-dev/recibo/internal/auditlog"
	"github.com/cleared-dev/recibo/internal/collect"
	"github.com/cleared-dev/recibo/internal/config"
	"github.com/cleared-dev/recibo/internal/directory"
	"github.com/cleared-dev/recibo/internal/model"
	"github.com/cleared-dev/recibo/internal/render"
	"github.com/cleared-dev/recibo/internal/sos"
)

// App holds the wired services for one configuration.
type App struct {
	Config    *config.Config
	API       *sos.Client
	Directory *directory.Cache
	Accounts  *accounts.Service
	Renderer  *render.Renderer
	Audit     *auditlog.Log
	Receipts  *collect.Service
	Logger    *slog.Logger

	rdb *redis.Client
}

// New wires cfg. A configured Redis that cannot be reached is logged and the
// in-memory snapshot store is used instead.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	acct, err := loadAccounts(cfg)
	if err != nil {
		return nil, err
	}

	a := &App{Config: cfg, Accounts: acct, Logger: logger}

	a.API = sos.New(sos.Options{
		BaseURL:       cfg.API.BaseURL,
		Token:         cfg.API.Token,
		ListTimeout:   cfg.API.ListTimeout,
		SubmitTimeout: cfg.API.SubmitTimeout,
		Logger:        logger,
	})

	var store directory.Store
	if cfg.Cache.RedisAddr != "" {
		dialCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		rdb, err := directory.DialRedis(dialCtx, cfg.Cache.RedisAddr)
		cancel()
		if err != nil {
			logger.Warn("redis unavailable, caching directory in memory", "error", err)
		} else {
			a.rdb = rdb
			store = directory.NewRedisStore(rdb, cfg.Cache.TTL)
		}
	}
	a.Directory = directory.NewCache(a.API, directory.Options{
		TTL:       cfg.Cache.TTL,
		PageSize:  cfg.API.PageSize,
		PagePause: cfg.API.PagePause,
		Store:     store,
		Logger:    logger,
	})

	org := render.Organization{
		Name:         cfg.Organization.Name,
		AddressLines: cfg.Organization.AddressLines,
	}
	if cfg.Organization.LogoPath != "" {
		logo, typ, err := render.LoadLogo(cfg.Organization.LogoPath)
		if err != nil {
			logger.Warn("logo not loaded, printing organization name", "error", err)
		} else {
			org.Logo, org.LogoType = logo, typ
		}
	}
	a.Renderer = render.New(org)

	a.Audit = auditlog.New(cfg.Audit.Path)

	a.Receipts = collect.NewService(collect.Deps{
		Accounts:  a.Accounts,
		Submitter: a.API,
		Resolver:  a.API,
		Renderer:  a.Renderer,
		Audit:     a.Audit,
		Endpoint:  cfg.API.CollectionEndpoint,
		Logger:    logger,
	})

	return a, nil
}

// Close releases the Redis connection, if any.
func (a *App) Close() error {
	if a.rdb == nil {
		return nil
	}
	return a.rdb.Close()
}

// CheckSigner rejects a signer outside the configured list.
func (a *App) CheckSigner(name string) error {
	name = strings.TrimSpace(name)
	if !a.Config.SignerAllowed(name) {
		return fmt.Errorf("%w: %q", collect.ErrSignerNotAllowed, name)
	}
	return nil
}

func loadAccounts(cfg *config.Config) (*accounts.Service, error) {
	accts := cfg.Accounts
	if cfg.AccountsFile != "" {
		fromFile, err := accounts.LoadFile(cfg.AccountsFile)
		if err != nil {
			return nil, fmt.Errorf("loading accounts: %w", err)
		}
		// Inline accounts win over file rows of the same name.
		accts = append(append([]model.Account(nil), accts...), fromFile.All()...)
	}
	svc := accounts.NewService(accts)
	if len(svc.All()) == 0 {
		return nil, errors.New("no payment accounts configured")
	}
	return svc, nil
}
