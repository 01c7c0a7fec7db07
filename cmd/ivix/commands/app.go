package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/ivix/internal/contracts"
	"github.com/wonny/ivix/internal/marketdata"
	"github.com/wonny/ivix/internal/methodology"
	"github.com/wonny/ivix/internal/vix"
	"github.com/wonny/ivix/pkg/config"
	"github.com/wonny/ivix/pkg/database"
	"github.com/wonny/ivix/pkg/logger"
	"github.com/wonny/ivix/pkg/redis"
)

// app holds the dependencies shared by commands
type app struct {
	cfg    *config.Config
	log    *logger.Logger
	method *methodology.Config
	calc   *vix.Calculator

	db    *database.DB
	redis *redis.Client
}

func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if verbose {
		cfg.LogLevel = "debug"
	}
	log := logger.New(cfg)

	path := methodologyFile
	if path == "" {
		path = cfg.VIX.MethodologyFile
	}
	method, err := methodology.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load methodology: %w", err)
	}

	return &app{
		cfg:    cfg,
		log:    log,
		method: method,
		calc:   vix.NewCalculator(method, log),
	}, nil
}

// openDB connects lazily; repeated calls reuse the pool
func (a *app) openDB(ctx context.Context) (*database.DB, error) {
	if a.db != nil {
		return a.db, nil
	}
	db, err := database.New(ctx, a.cfg)
	if err != nil {
		return nil, err
	}
	a.db = db
	return db, nil
}

// openCache returns nil when Redis is disabled
func (a *app) openCache(ctx context.Context) (*redis.Cache, error) {
	if !a.cfg.Redis.Enabled {
		return nil, nil
	}
	client, err := redis.New(ctx, a.cfg)
	if err != nil {
		return nil, err
	}
	a.redis = client
	return redis.NewCache(client, "ivix"), nil
}

func (a *app) Close() {
	if a.db != nil {
		a.db.Close()
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
}

// sources picks CSV files when given, the database otherwise
func (a *app) sources(ctx context.Context, optionsCSV, ratesCSV string) (contracts.OptionSource, contracts.RateSource, error) {
	if optionsCSV != "" {
		loader := marketdata.NewCSVLoader(optionsCSV, ratesCSV, a.log)
		return loader, loader, nil
	}

	db, err := a.openDB(ctx)
	if err != nil {
		return nil, nil, err
	}
	store := marketdata.NewPostgresStore(db.Pool, a.log)
	if ratesCSV != "" {
		return store, marketdata.NewCSVLoader("", ratesCSV, a.log), nil
	}
	return store, store, nil
}

// parseBound parses an optional date flag
func parseBound(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return marketdata.ParseDate(s)
}
