// Package service реализует игровую логику гейммастера: инициализацию сессии,
// пайплайн обработки хода и жизненный цикл сохранений.
package service

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"gamemaster-server/internal/model"
)

// InferenceGateway - шлюз к inference API (chat completion и изображения).
type InferenceGateway interface {
	// CompleteChat генерирует повествование по полному транскрипту.
	CompleteChat(ctx context.Context, messages []model.ChatMessage) (string, error)
	// Classify выполняет запрос классификации/сводки при нулевой температуре.
	Classify(ctx context.Context, system, user string) (string, error)
	// GenerateImage возвращает URL сгенерированного изображения.
	GenerateImage(ctx context.Context, prompt, size string) (string, error)
	// ChatModel возвращает имя chat-модели для подсчета токенов.
	ChatModel() string
}

// GameRepository - персистентное хранилище игровых сессий.
type GameRepository interface {
	Save(ctx context.Context, s *model.GameState, prior *model.GameState) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.GameState, error)
	List(ctx context.Context) ([]model.GameState, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// ImageStore - blob-хранилище пар изображений сессии.
type ImageStore interface {
	SavePair(ctx context.Context, id uuid.UUID, portrait, backdrop []byte) error
	FetchPair(ctx context.Context, id uuid.UUID) ([]byte, []byte, error)
	DeletePair(ctx context.Context, id uuid.UUID) error
}

// SessionCache - кэш активных сессий поверх хранилища.
type SessionCache interface {
	Get(ctx context.Context, id uuid.UUID) (*model.GameState, error)
	Set(ctx context.Context, state *model.GameState) error
	Invalidate(ctx context.Context, id uuid.UUID) error
}

// ImagesConfig управляет генерацией изображений.
// В debug-режиме провайдер не вызывается вовсе - берутся плейсхолдеры.
type ImagesConfig struct {
	Debug                  bool
	PlaceholderPortraitURL string
	PlaceholderBackdropURL string
}

// GameService реализует бизнес-логику гейммастера.
type GameService struct {
	repo       GameRepository
	images     ImageStore
	cache      SessionCache
	ai         InferenceGateway
	httpClient *http.Client
	imagesCfg  ImagesConfig
	logger     zerolog.Logger
}

// NewGameService создает новый экземпляр сервиса.
func NewGameService(
	repo GameRepository,
	images ImageStore,
	cache SessionCache,
	ai InferenceGateway,
	imagesCfg ImagesConfig,
	logger zerolog.Logger,
) *GameService {
	return &GameService{
		repo:       repo,
		images:     images,
		cache:      cache,
		ai:         ai,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		imagesCfg:  imagesCfg,
		logger:     logger.With().Str("component", "game_service").Logger(),
	}
}

// loadSession ищет сессию сперва в кэше, затем в хранилище.
// Промах кэша не ошибка; попадание из хранилища прогревает кэш best-effort.
func (s *GameService) loadSession(ctx context.Context, id uuid.UUID) (*model.GameState, error) {
	state, err := s.cache.Get(ctx, id)
	if err == nil {
		return state, nil
	}

	state, err = s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if cacheErr := s.cache.Set(ctx, state); cacheErr != nil {
		s.logger.Warn().Err(cacheErr).Str("sessionID", id.String()).Msg("failed to warm session cache")
	}
	return state, nil
}
