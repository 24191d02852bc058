package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"gamemaster-server/internal/model"
)

// Mock InferenceGateway
type InferenceGateway struct {
	mock.Mock
}

func (m *InferenceGateway) CompleteChat(ctx context.Context, messages []model.ChatMessage) (string, error) {
	args := m.Called(ctx, messages)
	return args.String(0), args.Error(1)
}

func (m *InferenceGateway) Classify(ctx context.Context, system, user string) (string, error) {
	args := m.Called(ctx, system, user)
	return args.String(0), args.Error(1)
}

func (m *InferenceGateway) GenerateImage(ctx context.Context, prompt, size string) (string, error) {
	args := m.Called(ctx, prompt, size)
	return args.String(0), args.Error(1)
}

func (m *InferenceGateway) ChatModel() string {
	args := m.Called()
	return args.String(0)
}

// Mock GameRepository
type GameRepository struct {
	mock.Mock
}

func (m *GameRepository) Save(ctx context.Context, s, prior *model.GameState) error {
	args := m.Called(ctx, s, prior)
	return args.Error(0)
}

func (m *GameRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.GameState, error) {
	args := m.Called(ctx, id)
	state, _ := args.Get(0).(*model.GameState)
	return state, args.Error(1)
}

func (m *GameRepository) List(ctx context.Context) ([]model.GameState, error) {
	args := m.Called(ctx)
	states, _ := args.Get(0).([]model.GameState)
	return states, args.Error(1)
}

func (m *GameRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// Mock ImageStore
type ImageStore struct {
	mock.Mock
}

func (m *ImageStore) SavePair(ctx context.Context, id uuid.UUID, portrait, backdrop []byte) error {
	args := m.Called(ctx, id, portrait, backdrop)
	return args.Error(0)
}

func (m *ImageStore) FetchPair(ctx context.Context, id uuid.UUID) ([]byte, []byte, error) {
	args := m.Called(ctx, id)
	portrait, _ := args.Get(0).([]byte)
	backdrop, _ := args.Get(1).([]byte)
	return portrait, backdrop, args.Error(2)
}

func (m *ImageStore) DeletePair(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// Mock SessionCache
type SessionCache struct {
	mock.Mock
}

func (m *SessionCache) Get(ctx context.Context, id uuid.UUID) (*model.GameState, error) {
	args := m.Called(ctx, id)
	state, _ := args.Get(0).(*model.GameState)
	return state, args.Error(1)
}

func (m *SessionCache) Set(ctx context.Context, s *model.GameState) error {
	args := m.Called(ctx, s)
	return args.Error(0)
}

func (m *SessionCache) Invalidate(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}
