// Package quizbuilder wires the trainer from configuration.
package quizbuilder

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/park285/opening-quiz/internal/adapter/quizpresenter"
	"github.com/park285/opening-quiz/internal/config"
	"github.com/park285/opening-quiz/internal/msgcat"
	"github.com/park285/opening-quiz/internal/render"
	"github.com/park285/opening-quiz/internal/savedquiz"
	"github.com/park285/opening-quiz/internal/service/trainer"
)

type Deps struct {
	Store     savedquiz.Store
	Service   *trainer.Service
	Catalog   *msgcat.Catalog
	Presenter *quizpresenter.Presenter
}

// Close releases the service and then the store.
func (d *Deps) Close() error {
	if d == nil {
		return nil
	}
	var first error
	if d.Service != nil {
		first = d.Service.Close()
	}
	if d.Store != nil {
		if err := d.Store.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func New(ctx context.Context, cfg *config.AppConfig, logger *zap.Logger) (*Deps, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	cat, err := msgcat.New(cfg.MessagesDir)
	if err != nil {
		return nil, fmt.Errorf("load messages: %w", err)
	}

	store, err := NewStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	logger.Info("saved_quiz_store_ready", zap.String("backend", cfg.StoreBackend))

	svc, err := trainer.NewService(store, trainer.Config{
		AutoPlayDelay:     cfg.AutoPlayDelay,
		DefaultSquareSize: cfg.DefaultSquareSize,
		MaxSessions:       cfg.MaxSessions,
		IdleTTL:           cfg.SessionIdleTTL,
	},
		trainer.WithRenderer(render.New()),
		trainer.WithLogger(logger.Named("trainer")),
	)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	return &Deps{
		Store:     store,
		Service:   svc,
		Catalog:   cat,
		Presenter: quizpresenter.New(cat, time.Local),
	}, nil
}

// NewStore opens the saved-quiz store selected by cfg.StoreBackend.
func NewStore(ctx context.Context, cfg *config.AppConfig) (savedquiz.Store, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	switch cfg.StoreBackend {
	case config.StoreMemory, "":
		return savedquiz.NewMemoryStore(), nil
	case config.StoreRedis:
		s, err := savedquiz.NewRedisStoreFromURL(ctx, cfg.RedisURL, cfg.QuizStoreKey)
		if err != nil {
			return nil, fmt.Errorf("init redis store: %w", err)
		}
		return s, nil
	case config.StorePostgres:
		s, err := savedquiz.NewPostgresStore(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("init postgres store: %w", err)
		}
		return s, nil
	}
	return nil, fmt.Errorf("unsupported store backend %q", cfg.StoreBackend)
}
