// Package http - HTTP-слой поверх игрового сервиса: маршруты, DTO и
// отображение доменных ошибок в коды ответов.
package http

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"gamemaster-server/internal/model"
	"gamemaster-server/internal/service"
)

// GameService - интерфейс игрового сервиса, используемый обработчиками.
type GameService interface {
	Initialize(ctx context.Context, playerName, playerDescription, worldTheme string) (*service.InitializeResult, error)
	ProcessTurn(ctx context.Context, sessionID uuid.UUID, content string) (*service.TurnResult, error)
	LoadGame(ctx context.Context, id uuid.UUID) (*service.LoadResult, error)
	DeleteGame(ctx context.Context, id uuid.UUID) error
	ListGames(ctx context.Context) ([]model.GameState, error)
}

// Handler представляет HTTP обработчик API гейммастера.
type Handler struct {
	service GameService
	logger  zerolog.Logger
}

// New создает новый экземпляр обработчика.
func New(service GameService, logger zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger.With().Str("component", "http_handler").Logger(),
	}
}

// RegisterRoutes регистрирует маршруты API.
func (h *Handler) RegisterRoutes(api *gin.RouterGroup) {
	api.POST("/initialize", h.initialize)
	api.POST("/response", h.response)
	api.GET("/existing_games", h.existingGames)
	api.POST("/load_game", h.loadGame)
	api.POST("/delete_game", h.deleteGame)
}

type initializeRequest struct {
	PlayerName        string `json:"playerName" binding:"required"`
	PlayerDescription string `json:"playerDescription" binding:"required"`
	WorldTheme        string `json:"worldTheme" binding:"required"`
}

func (h *Handler) initialize(c *gin.Context) {
	var req initializeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn().Err(err).Msg("invalid initialize request")
		respondError(c, http.StatusBadRequest, "playerName, playerDescription and worldTheme are required")
		return
	}

	result, err := h.service.Initialize(c.Request.Context(), req.PlayerName, req.PlayerDescription, req.WorldTheme)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"sender":           model.SenderSystem,
		"sessionID":        result.State.ID.String(),
		"systemPrompt":     result.State.InitializationPrompt,
		"portraitSrc":      dataURL(result.Portrait),
		"worldBackdropSrc": dataURL(result.Backdrop),
		"hitPoints":        result.State.HitPoints,
	})
}

type responseRequest struct {
	SessionID string `json:"sessionID" binding:"required"`
	Content   string `json:"content" binding:"required"`
}

func (h *Handler) response(c *gin.Context) {
	var req responseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn().Err(err).Msg("invalid response request")
		respondError(c, http.StatusBadRequest, "sessionID and content are required")
		return
	}

	sessionID, err := uuid.Parse(req.SessionID)
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid sessionID format")
		return
	}

	result, err := h.service.ProcessTurn(c.Request.Context(), sessionID, req.Content)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	payload := gin.H{
		"sender":    result.Sender,
		"content":   result.Content,
		"hitPoints": result.HitPoints,
	}
	if result.GameOver {
		payload["gameOverSummary"] = result.GameOverSummary
	}
	c.JSON(http.StatusOK, payload)
}

// gameSummary - элемент каталога сохранений: метаданные плюс полный транскрипт.
type gameSummary struct {
	PlayerName        string              `json:"playerName"`
	PlayerDescription string              `json:"playerDescription"`
	WorldTheme        string              `json:"worldTheme"`
	GameOverSummary   string              `json:"gameOverSummary"`
	GameOver          bool                `json:"gameOver"`
	HitPoints         int                 `json:"hitPoints"`
	CreatedAt         string              `json:"createdAt"`
	UpdatedAt         string              `json:"updatedAt"`
	ObjectIDString    string              `json:"objectIDString"`
	ChatHistory       []model.ChatMessage `json:"chatHistory"`
}

func (h *Handler) existingGames(c *gin.Context) {
	states, err := h.service.ListGames(c.Request.Context())
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	results := make([]gameSummary, 0, len(states))
	for _, s := range states {
		results = append(results, gameSummary{
			PlayerName:        s.PlayerName,
			PlayerDescription: s.PlayerDescription,
			WorldTheme:        s.WorldTheme,
			GameOverSummary:   s.GameOverSummary,
			GameOver:          s.GameOver,
			HitPoints:         s.HitPoints,
			CreatedAt:         s.CreatedAt.Format(time.RFC3339),
			UpdatedAt:         s.UpdatedAt.Format(time.RFC3339),
			ObjectIDString:    s.ID.String(),
			ChatHistory:       s.ChatHistory,
		})
	}

	c.JSON(http.StatusOK, gin.H{"results": results})
}

type saveIDRequest struct {
	ObjectIDString string `json:"objectIDString" binding:"required"`
}

func (h *Handler) loadGame(c *gin.Context) {
	var req saveIDRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Can not load a game without a valid objectIDString!")
		return
	}

	id, err := uuid.Parse(req.ObjectIDString)
	if err != nil {
		respondError(c, http.StatusBadRequest, "Provided save ID "+req.ObjectIDString+" is not valid.")
		return
	}

	result, err := h.service.LoadGame(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			respondError(c, http.StatusBadRequest, "Provided save ID "+req.ObjectIDString+" is not valid.")
			return
		}
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"sender":           model.SenderSystem,
		"content":          "Game state successfully loaded.",
		"sessionID":        result.State.ID.String(),
		"portraitSrc":      dataURL(result.Portrait),
		"worldBackdropSrc": dataURL(result.Backdrop),
		"hitPoints":        result.State.HitPoints,
	})
}

func (h *Handler) deleteGame(c *gin.Context) {
	var req saveIDRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Can not delete a game without a valid objectIDString!")
		return
	}

	id, err := uuid.Parse(req.ObjectIDString)
	if err != nil {
		respondError(c, http.StatusBadRequest, "Provided save ID "+req.ObjectIDString+" is not valid.")
		return
	}

	if err := h.service.DeleteGame(c.Request.Context(), id); err != nil {
		if errors.Is(err, model.ErrNotFound) {
			respondError(c, http.StatusBadRequest, "Provided save ID "+req.ObjectIDString+" is not valid.")
			return
		}
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"sender":  model.SenderSystem,
		"content": "Game successfully deleted.",
	})
}

// handleServiceError отображает доменные ошибки в ответы клиенту.
// Отклонения гейтинга - клиентские ошибки с фиксированными текстами,
// остальное - серверные.
func (h *Handler) handleServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, model.ErrNotRelevant):
		respondError(c, http.StatusBadRequest, "Your message is not relevant to the game story.")
	case errors.Is(err, model.ErrNotRealistic):
		respondError(c, http.StatusBadRequest, "Your message does not respect the realism of the game story.")
	case errors.Is(err, model.ErrEmptyReply):
		respondError(c, http.StatusInternalServerError, "Gamemaster failed to generate a response.")
	case errors.Is(err, model.ErrNotFound):
		respondError(c, http.StatusBadRequest, "Requested game session does not exist.")
	case errors.Is(err, model.ErrInvalidState):
		respondError(c, http.StatusBadRequest, err.Error())
	default:
		h.logger.Error().Err(err).Str("path", c.FullPath()).Msg("unhandled service error")
		respondError(c, http.StatusInternalServerError, "internal server error")
	}
}

func respondError(c *gin.Context, code int, content string) {
	c.AbortWithStatusJSON(code, gin.H{
		"sender":  model.SenderError,
		"content": content,
	})
}

// dataURL кодирует байты изображения для передачи клиенту инлайном.
func dataURL(image []byte) string {
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(image)
}
