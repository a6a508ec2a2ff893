// Package app holds the core lecture, chat and study logic behind the HTTP
// layer.
package app

import (
	"context"
	"fmt"
	"io"
	"time"

	"godsaeng/internal/aiclient"
	"godsaeng/pkg/storage"
	"godsaeng/pkg/store"
	"godsaeng/pkg/token"
)

// AIService is the slice of the AI client the application depends on.
type AIService interface {
	Dispatch(ctx context.Context, req aiclient.DispatchRequest) error
	Upload(ctx context.Context, lectureID, filename string, r io.Reader) (string, error)
	GetResult(ctx context.Context, taskID string) (aiclient.Result, error)
	Chat(ctx context.Context, req aiclient.ChatRequest) (string, error)
	RequestStudyPlan(ctx context.Context, email, lectureID string, remainingDays int) error
	GetStudyRecommendation(ctx context.Context, email, lectureID string, remainingDays int) (string, error)
}

// Dispatcher hands lecture processing jobs to background workers.
type Dispatcher interface {
	Enqueue(ctx context.Context, lectureID string) error
}

// Config holds runtime configuration for the core application.
type Config struct {
	DatabaseURL string
	Store       store.Store

	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool
	Archive        storage.MediaArchive

	AIServiceURL    string
	CallbackBaseURL string
	AI              AIService

	Dispatch Dispatcher

	Tokens *token.Issuer
}

// App is the core application service wiring together storage, the AI
// service and domain logic.
type App struct {
	store         store.Store
	archive       storage.MediaArchive
	ai            AIService
	dispatch      Dispatcher
	tokens        *token.Issuer
	presignExpiry time.Duration
}

// New constructs the application. Store, Archive, AI and Dispatch may be
// injected for tests; otherwise they are built from the config values.
func New(cfg Config) (*App, error) {
	if cfg.Tokens == nil {
		return nil, fmt.Errorf("token issuer required")
	}

	dataStore := cfg.Store
	if dataStore == nil {
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("database URL required")
		}
		var err error
		dataStore, err = store.NewGormStore(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("init postgres store: %w", err)
		}
	}

	archive := cfg.Archive
	if archive == nil {
		var err error
		archive, err = storage.NewMinioArchive(cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL)
		if err != nil {
			return nil, fmt.Errorf("init media archive: %w", err)
		}
	}

	ai := cfg.AI
	if ai == nil {
		if cfg.AIServiceURL == "" {
			return nil, fmt.Errorf("ai service URL required")
		}
		if cfg.CallbackBaseURL == "" {
			return nil, fmt.Errorf("callback base URL required")
		}
		ai = aiclient.New(cfg.AIServiceURL, cfg.CallbackBaseURL, nil)
	}

	return &App{
		store:         dataStore,
		archive:       archive,
		ai:            ai,
		dispatch:      cfg.Dispatch,
		tokens:        cfg.Tokens,
		presignExpiry: 15 * time.Minute,
	}, nil
}
