package http_test

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	delivery "gamemaster-server/internal/delivery/http"
	"gamemaster-server/internal/model"
	"gamemaster-server/internal/service"
)

// Mock GameService
type gameServiceMock struct {
	mock.Mock
}

func (m *gameServiceMock) Initialize(ctx context.Context, playerName, playerDescription, worldTheme string) (*service.InitializeResult, error) {
	args := m.Called(ctx, playerName, playerDescription, worldTheme)
	result, _ := args.Get(0).(*service.InitializeResult)
	return result, args.Error(1)
}

func (m *gameServiceMock) ProcessTurn(ctx context.Context, sessionID uuid.UUID, content string) (*service.TurnResult, error) {
	args := m.Called(ctx, sessionID, content)
	result, _ := args.Get(0).(*service.TurnResult)
	return result, args.Error(1)
}

func (m *gameServiceMock) LoadGame(ctx context.Context, id uuid.UUID) (*service.LoadResult, error) {
	args := m.Called(ctx, id)
	result, _ := args.Get(0).(*service.LoadResult)
	return result, args.Error(1)
}

func (m *gameServiceMock) DeleteGame(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *gameServiceMock) ListGames(ctx context.Context) ([]model.GameState, error) {
	args := m.Called(ctx)
	states, _ := args.Get(0).([]model.GameState)
	return states, args.Error(1)
}

func setupRouter(svc *gameServiceMock) *gin.Engine {
	gin.SetMode(gin.TestMode)
	app := gin.New()
	handler := delivery.New(svc, zerolog.Nop())
	handler.RegisterRoutes(app.Group("/api"))
	return app
}

func doJSON(t *testing.T, app *gin.Engine, method, path string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	app.ServeHTTP(w, req)

	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
	return w, payload
}

func newTestState(t *testing.T) *model.GameState {
	t.Helper()
	state, err := model.NewGameState("Alice", "A brave knight", "Dark fantasy", "You are the gamemaster.")
	require.NoError(t, err)
	state.ID = uuid.New()
	return state
}

func TestInitializeEndpoint(t *testing.T) {
	t.Run("Successful initialization returns session with inline images", func(t *testing.T) {
		svc := new(gameServiceMock)
		state := newTestState(t)
		svc.On("Initialize", mock.Anything, "Alice", "A brave knight", "Dark fantasy").Return(&service.InitializeResult{
			State:    state,
			Portrait: []byte("portrait-bytes"),
			Backdrop: []byte("backdrop-bytes"),
		}, nil).Once()
		app := setupRouter(svc)

		w, payload := doJSON(t, app, http.MethodPost, "/api/initialize", gin.H{
			"playerName":        "Alice",
			"playerDescription": "A brave knight",
			"worldTheme":        "Dark fantasy",
		})

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "system", payload["sender"])
		assert.Equal(t, state.ID.String(), payload["sessionID"])
		assert.Equal(t, state.InitializationPrompt, payload["systemPrompt"])
		assert.Equal(t, float64(model.MaxHitPoints), payload["hitPoints"])
		expected := "data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte("portrait-bytes"))
		assert.Equal(t, expected, payload["portraitSrc"])
		svc.AssertExpectations(t)
	})

	t.Run("Missing fields are rejected", func(t *testing.T) {
		svc := new(gameServiceMock)
		app := setupRouter(svc)

		w, payload := doJSON(t, app, http.MethodPost, "/api/initialize", gin.H{
			"playerName": "Alice",
		})

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "error", payload["sender"])
		svc.AssertNotCalled(t, "Initialize", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestResponseEndpoint(t *testing.T) {
	sessionID := uuid.New()

	t.Run("Successful turn returns gamemaster reply", func(t *testing.T) {
		svc := new(gameServiceMock)
		svc.On("ProcessTurn", mock.Anything, sessionID, "I open the door").Return(&service.TurnResult{
			Sender:    model.SenderGamemaster,
			Content:   "The door creaks open.",
			HitPoints: 4,
		}, nil).Once()
		app := setupRouter(svc)

		w, payload := doJSON(t, app, http.MethodPost, "/api/response", gin.H{
			"sessionID": sessionID.String(),
			"content":   "I open the door",
		})

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "gamemaster", payload["sender"])
		assert.Equal(t, "The door creaks open.", payload["content"])
		assert.Equal(t, float64(4), payload["hitPoints"])
		_, hasSummary := payload["gameOverSummary"]
		assert.False(t, hasSummary)
	})

	t.Run("Death turn includes the game over summary", func(t *testing.T) {
		svc := new(gameServiceMock)
		svc.On("ProcessTurn", mock.Anything, sessionID, "I charge the ogre").Return(&service.TurnResult{
			Sender:          model.SenderSystem,
			Content:         service.DeathNotice,
			HitPoints:       0,
			GameOver:        true,
			GameOverSummary: "Alice fought bravely and fell.",
		}, nil).Once()
		app := setupRouter(svc)

		w, payload := doJSON(t, app, http.MethodPost, "/api/response", gin.H{
			"sessionID": sessionID.String(),
			"content":   "I charge the ogre",
		})

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "system", payload["sender"])
		assert.Equal(t, service.DeathNotice, payload["content"])
		assert.Equal(t, "Alice fought bravely and fell.", payload["gameOverSummary"])
	})

	t.Run("Irrelevant message maps to a client error", func(t *testing.T) {
		svc := new(gameServiceMock)
		svc.On("ProcessTurn", mock.Anything, sessionID, mock.Anything).Return(nil, model.ErrNotRelevant).Once()
		app := setupRouter(svc)

		w, payload := doJSON(t, app, http.MethodPost, "/api/response", gin.H{
			"sessionID": sessionID.String(),
			"content":   "What is the weather today?",
		})

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "error", payload["sender"])
		assert.Equal(t, "Your message is not relevant to the game story.", payload["content"])
	})

	t.Run("Unrealistic message maps to a client error", func(t *testing.T) {
		svc := new(gameServiceMock)
		svc.On("ProcessTurn", mock.Anything, sessionID, mock.Anything).Return(nil, model.ErrNotRealistic).Once()
		app := setupRouter(svc)

		w, payload := doJSON(t, app, http.MethodPost, "/api/response", gin.H{
			"sessionID": sessionID.String(),
			"content":   "I lift the castle",
		})

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "Your message does not respect the realism of the game story.", payload["content"])
	})

	t.Run("Empty gamemaster reply maps to a server error", func(t *testing.T) {
		svc := new(gameServiceMock)
		svc.On("ProcessTurn", mock.Anything, sessionID, mock.Anything).Return(nil, model.ErrEmptyReply).Once()
		app := setupRouter(svc)

		w, payload := doJSON(t, app, http.MethodPost, "/api/response", gin.H{
			"sessionID": sessionID.String(),
			"content":   "I wait",
		})

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Equal(t, "Gamemaster failed to generate a response.", payload["content"])
	})

	t.Run("Malformed session ID is rejected before the service", func(t *testing.T) {
		svc := new(gameServiceMock)
		app := setupRouter(svc)

		w, payload := doJSON(t, app, http.MethodPost, "/api/response", gin.H{
			"sessionID": "not-a-uuid",
			"content":   "hello",
		})

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "error", payload["sender"])
		svc.AssertNotCalled(t, "ProcessTurn", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestExistingGamesEndpoint(t *testing.T) {
	t.Run("Returns saved sessions newest first", func(t *testing.T) {
		svc := new(gameServiceMock)
		state := newTestState(t)
		state.GameOver = true
		state.GameOverSummary = "The end."
		svc.On("ListGames", mock.Anything).Return([]model.GameState{*state}, nil).Once()
		app := setupRouter(svc)

		w, payload := doJSON(t, app, http.MethodGet, "/api/existing_games", nil)

		assert.Equal(t, http.StatusOK, w.Code)
		results, ok := payload["results"].([]interface{})
		require.True(t, ok)
		require.Len(t, results, 1)
		entry := results[0].(map[string]interface{})
		assert.Equal(t, "Alice", entry["playerName"])
		assert.Equal(t, state.ID.String(), entry["objectIDString"])
		assert.Equal(t, true, entry["gameOver"])
		assert.Equal(t, "The end.", entry["gameOverSummary"])
	})

	t.Run("Empty catalog returns an empty list", func(t *testing.T) {
		svc := new(gameServiceMock)
		svc.On("ListGames", mock.Anything).Return([]model.GameState{}, nil).Once()
		app := setupRouter(svc)

		w, payload := doJSON(t, app, http.MethodGet, "/api/existing_games", nil)

		assert.Equal(t, http.StatusOK, w.Code)
		results, ok := payload["results"].([]interface{})
		require.True(t, ok)
		assert.Empty(t, results)
	})
}

func TestLoadGameEndpoint(t *testing.T) {
	t.Run("Successful load returns session and images", func(t *testing.T) {
		svc := new(gameServiceMock)
		state := newTestState(t)
		svc.On("LoadGame", mock.Anything, state.ID).Return(&service.LoadResult{
			State:    state,
			Portrait: []byte("p"),
			Backdrop: []byte("b"),
		}, nil).Once()
		app := setupRouter(svc)

		w, payload := doJSON(t, app, http.MethodPost, "/api/load_game", gin.H{
			"objectIDString": state.ID.String(),
		})

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "Game state successfully loaded.", payload["content"])
		assert.Equal(t, state.ID.String(), payload["sessionID"])
		assert.Equal(t, float64(model.MaxHitPoints), payload["hitPoints"])
	})

	t.Run("Unknown save ID is a client error", func(t *testing.T) {
		svc := new(gameServiceMock)
		id := uuid.New()
		svc.On("LoadGame", mock.Anything, id).Return(nil, model.ErrNotFound).Once()
		app := setupRouter(svc)

		w, payload := doJSON(t, app, http.MethodPost, "/api/load_game", gin.H{
			"objectIDString": id.String(),
		})

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "error", payload["sender"])
		assert.Contains(t, payload["content"], id.String())
	})

	t.Run("Malformed save ID is rejected before the service", func(t *testing.T) {
		svc := new(gameServiceMock)
		app := setupRouter(svc)

		w, _ := doJSON(t, app, http.MethodPost, "/api/load_game", gin.H{
			"objectIDString": "garbage",
		})

		assert.Equal(t, http.StatusBadRequest, w.Code)
		svc.AssertNotCalled(t, "LoadGame", mock.Anything, mock.Anything)
	})
}

func TestDeleteGameEndpoint(t *testing.T) {
	t.Run("Successful delete", func(t *testing.T) {
		svc := new(gameServiceMock)
		id := uuid.New()
		svc.On("DeleteGame", mock.Anything, id).Return(nil).Once()
		app := setupRouter(svc)

		w, payload := doJSON(t, app, http.MethodPost, "/api/delete_game", gin.H{
			"objectIDString": id.String(),
		})

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "Game successfully deleted.", payload["content"])
	})

	t.Run("Unknown save ID is a client error", func(t *testing.T) {
		svc := new(gameServiceMock)
		id := uuid.New()
		svc.On("DeleteGame", mock.Anything, id).Return(model.ErrNotFound).Once()
		app := setupRouter(svc)

		w, payload := doJSON(t, app, http.MethodPost, "/api/delete_game", gin.H{
			"objectIDString": id.String(),
		})

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "error", payload["sender"])
	})
}
