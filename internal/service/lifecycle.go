package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"gamemaster-server/internal/model"
	"gamemaster-server/internal/prompt"
	"gamemaster-server/pkg/ai"
)

// InitializeResult - созданная сессия вместе с байтами ее изображений.
type InitializeResult struct {
	State    *model.GameState
	Portrait []byte
	Backdrop []byte
}

// LoadResult - восстановленная сессия вместе с байтами ее изображений.
type LoadResult struct {
	State    *model.GameState
	Portrait []byte
	Backdrop []byte
}

// Initialize создает новую игровую сессию: рендерит системный промпт,
// сохраняет состояние (первое сохранение назначает идентификатор, от которого
// производны ключи изображений), затем параллельно получает портрет и пейзаж.
// Сбой генерации любого изображения маскируется плейсхолдером и никогда
// не прерывает инициализацию.
func (s *GameService) Initialize(ctx context.Context, playerName, playerDescription, worldTheme string) (*InitializeResult, error) {
	initPrompt, err := prompt.Initialization(playerName, playerDescription, worldTheme)
	if err != nil {
		return nil, err
	}

	state, err := model.NewGameState(playerName, playerDescription, worldTheme, initPrompt)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Save(ctx, state, nil); err != nil {
		return nil, err
	}

	portraitPrompt, err := prompt.Portrait(state)
	if err != nil {
		return nil, err
	}
	backdropPrompt, err := prompt.Backdrop(state)
	if err != nil {
		return nil, err
	}

	var portrait, backdrop []byte
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		url := s.imageURL(gctx, portraitPrompt, ai.SizePortrait, s.imagesCfg.PlaceholderPortraitURL)
		var fetchErr error
		portrait, fetchErr = s.fetchImageBytes(gctx, url)
		return fetchErr
	})
	g.Go(func() error {
		url := s.imageURL(gctx, backdropPrompt, ai.SizeBackdrop, s.imagesCfg.PlaceholderBackdropURL)
		var fetchErr error
		backdrop, fetchErr = s.fetchImageBytes(gctx, url)
		return fetchErr
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("ошибка загрузки изображений сессии: %w", err)
	}

	if err := s.images.SavePair(ctx, state.ID, portrait, backdrop); err != nil {
		return nil, err
	}

	if err := s.cache.Set(ctx, state); err != nil {
		s.logger.Warn().Err(err).Str("sessionID", state.ID.String()).Msg("failed to cache new session")
	}

	s.logger.Info().
		Str("sessionID", state.ID.String()).
		Str("playerName", playerName).
		Msg("new game session initialized")

	return &InitializeResult{State: state, Portrait: portrait, Backdrop: backdrop}, nil
}

// LoadGame восстанавливает сохраненную сессию и прогревает ею кэш.
func (s *GameService) LoadGame(ctx context.Context, id uuid.UUID) (*LoadResult, error) {
	state, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	portrait, backdrop, err := s.images.FetchPair(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.cache.Set(ctx, state); err != nil {
		s.logger.Warn().Err(err).Str("sessionID", id.String()).Msg("failed to cache loaded session")
	}

	return &LoadResult{State: state, Portrait: portrait, Backdrop: backdrop}, nil
}

// DeleteGame удаляет сессию вместе с ее изображениями и записью в кэше.
// Отсутствие сессии - model.ErrNotFound, тихого успеха нет.
func (s *GameService) DeleteGame(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	if err := s.images.DeletePair(ctx, id); err != nil {
		return err
	}
	if err := s.cache.Invalidate(ctx, id); err != nil {
		s.logger.Warn().Err(err).Str("sessionID", id.String()).Msg("failed to invalidate session cache")
	}
	return nil
}

// ListGames возвращает все сохраненные сессии.
func (s *GameService) ListGames(ctx context.Context) ([]model.GameState, error) {
	return s.repo.List(ctx)
}
