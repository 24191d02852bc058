package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
	"github.com/testcontainers/testcontainers-go/wait"

	"gamemaster-server/internal/database"
	"gamemaster-server/internal/model"
	"gamemaster-server/internal/repository"
)

// IntegrationTestSuite поднимает реальные PostgreSQL и Redis в контейнерах
// и проверяет репозиторий сессий и кэш против них.
type IntegrationTestSuite struct {
	suite.Suite
	ctx         context.Context
	pgContainer *postgres.PostgresContainer
	rdContainer *tcredis.RedisContainer
	pgPool      *pgxpool.Pool
	redisClient *redis.Client
	repo        *repository.GameRepository
	cache       *repository.SessionCache
}

// SetupSuite выполняется один раз перед всеми тестами в наборе
func (s *IntegrationTestSuite) SetupSuite() {
	s.ctx = context.Background()
	var err error

	// Запускаем контейнер PostgreSQL
	s.pgContainer, err = postgres.Run(s.ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("test_db"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(5*time.Minute),
		),
	)
	require.NoError(s.T(), err, "Failed to start postgres container")

	pgConnStr, err := s.pgContainer.ConnectionString(s.ctx, "sslmode=disable")
	require.NoError(s.T(), err, "Failed to get postgres connection string")

	s.pgPool, err = pgxpool.New(s.ctx, pgConnStr)
	require.NoError(s.T(), err, "Failed to connect to test postgres")

	// Применяем миграции
	require.NoError(s.T(), database.ApplyMigrations(s.pgPool), "Failed to run migrations")

	// Запускаем контейнер Redis
	s.rdContainer, err = tcredis.Run(s.ctx,
		"docker.io/redis:7-alpine",
		testcontainers.WithWaitStrategy(
			wait.ForLog("* Ready to accept connections").
				WithOccurrence(1).
				WithStartupTimeout(1*time.Minute),
		),
	)
	require.NoError(s.T(), err, "Failed to start redis container")

	redisURI, err := s.rdContainer.ConnectionString(s.ctx)
	require.NoError(s.T(), err, "Failed to get redis connection string")
	opts, err := redis.ParseURL(redisURI)
	require.NoError(s.T(), err, "Failed to parse redis connection string")
	s.redisClient = redis.NewClient(opts)

	s.repo = repository.NewGameRepository(s.pgPool)
	s.cache = repository.NewSessionCache(s.redisClient, time.Minute, zerolog.Nop())
}

// TearDownSuite выполняется один раз после всех тестов
func (s *IntegrationTestSuite) TearDownSuite() {
	if s.pgPool != nil {
		s.pgPool.Close()
	}
	if s.redisClient != nil {
		_ = s.redisClient.Close()
	}
	if s.pgContainer != nil {
		_ = s.pgContainer.Terminate(s.ctx)
	}
	if s.rdContainer != nil {
		_ = s.rdContainer.Terminate(s.ctx)
	}
}

func (s *IntegrationTestSuite) newState() *model.GameState {
	state, err := model.NewGameState("Alice", "A brave knight", "Dark fantasy", "You are the gamemaster.")
	s.Require().NoError(err)
	return state
}

func (s *IntegrationTestSuite) TestInsertAssignsIdentity() {
	state := s.newState()

	err := s.repo.Save(s.ctx, state, nil)
	s.Require().NoError(err)
	s.NotEqual(uuid.Nil, state.ID)
	s.False(state.CreatedAt.IsZero())

	loaded, err := s.repo.GetByID(s.ctx, state.ID)
	s.Require().NoError(err)
	s.Equal(state.PlayerName, loaded.PlayerName)
	s.Equal(model.MaxHitPoints, loaded.HitPoints)
	s.Require().Len(loaded.ChatHistory, 1)
	s.Equal(model.RoleSystem, loaded.ChatHistory[0].Role)
}

func (s *IntegrationTestSuite) TestDiffUpdatePersistsChangedColumns() {
	state := s.newState()
	s.Require().NoError(s.repo.Save(s.ctx, state, nil))

	prior := state.Clone()
	state.AppendTurn("I open the door", "The door creaks open.")
	state.HitPoints = 3

	s.Require().NoError(s.repo.Save(s.ctx, state, prior))

	loaded, err := s.repo.GetByID(s.ctx, state.ID)
	s.Require().NoError(err)
	s.Equal(3, loaded.HitPoints)
	s.Require().Len(loaded.ChatHistory, 3)
	s.Equal("I open the door", loaded.ChatHistory[1].Content)
	s.True(loaded.UpdatedAt.After(loaded.CreatedAt))
}

func (s *IntegrationTestSuite) TestUnchangedStateStillTouchesUpdatedAt() {
	state := s.newState()
	s.Require().NoError(s.repo.Save(s.ctx, state, nil))

	prior := state.Clone()
	s.Require().NoError(s.repo.Save(s.ctx, state, prior))

	_, err := s.repo.GetByID(s.ctx, state.ID)
	s.Require().NoError(err)
}

func (s *IntegrationTestSuite) TestGameOverRoundTrip() {
	state := s.newState()
	s.Require().NoError(s.repo.Save(s.ctx, state, nil))

	prior := state.Clone()
	state.ApplyDamage(model.MaxHitPoints)
	state.Finish("Alice fell in battle.")
	state.AppendUserMessage("I charge the ogre")
	s.Require().NoError(s.repo.Save(s.ctx, state, prior))

	loaded, err := s.repo.GetByID(s.ctx, state.ID)
	s.Require().NoError(err)
	s.True(loaded.GameOver)
	s.Equal("Alice fell in battle.", loaded.GameOverSummary)
	s.Equal(model.MinHitPoints, loaded.HitPoints)
	// На смертельном ходу сохраняется только сообщение игрока
	s.Require().Len(loaded.ChatHistory, 2)
	s.Equal(model.RoleUser, loaded.ChatHistory[1].Role)
}

func (s *IntegrationTestSuite) TestUpdateMissingRowReturnsNotFound() {
	state := s.newState()
	state.ID = uuid.New()
	prior := state.Clone()
	state.HitPoints = 1

	err := s.repo.Save(s.ctx, state, prior)
	s.ErrorIs(err, model.ErrNotFound)
}

func (s *IntegrationTestSuite) TestGetMissingRowReturnsNotFound() {
	_, err := s.repo.GetByID(s.ctx, uuid.New())
	s.ErrorIs(err, model.ErrNotFound)
}

func (s *IntegrationTestSuite) TestListOrdersByRecency() {
	first := s.newState()
	s.Require().NoError(s.repo.Save(s.ctx, first, nil))
	second := s.newState()
	second.PlayerName = "Bob"
	s.Require().NoError(s.repo.Save(s.ctx, second, nil))

	// Обновляем первую сессию - она должна всплыть наверх
	prior := first.Clone()
	first.AppendTurn("hello", "world")
	s.Require().NoError(s.repo.Save(s.ctx, first, prior))

	states, err := s.repo.List(s.ctx)
	s.Require().NoError(err)
	s.Require().GreaterOrEqual(len(states), 2)
	s.Equal(first.ID, states[0].ID)
}

func (s *IntegrationTestSuite) TestDelete() {
	state := s.newState()
	s.Require().NoError(s.repo.Save(s.ctx, state, nil))

	s.Require().NoError(s.repo.Delete(s.ctx, state.ID))

	_, err := s.repo.GetByID(s.ctx, state.ID)
	s.ErrorIs(err, model.ErrNotFound)

	s.ErrorIs(s.repo.Delete(s.ctx, state.ID), model.ErrNotFound)
}

func (s *IntegrationTestSuite) TestSessionCacheRoundTrip() {
	state := s.newState()
	state.ID = uuid.New()

	s.Require().NoError(s.cache.Set(s.ctx, state))

	cached, err := s.cache.Get(s.ctx, state.ID)
	s.Require().NoError(err)
	s.Equal(state.PlayerName, cached.PlayerName)
	s.Equal(state.HitPoints, cached.HitPoints)

	s.Require().NoError(s.cache.Invalidate(s.ctx, state.ID))
	_, err = s.cache.Get(s.ctx, state.ID)
	s.ErrorIs(err, model.ErrNotFound)
}

func (s *IntegrationTestSuite) TestSessionCacheMiss() {
	_, err := s.cache.Get(s.ctx, uuid.New())
	s.ErrorIs(err, model.ErrNotFound)
}

func (s *IntegrationTestSuite) TestSessionCacheEvictsCorruptEntry() {
	id := uuid.New()
	key := "game_session:" + id.String()
	s.Require().NoError(s.redisClient.Set(s.ctx, key, "{not json", time.Minute).Err())

	_, err := s.cache.Get(s.ctx, id)
	s.ErrorIs(err, model.ErrNotFound)

	exists, err := s.redisClient.Exists(s.ctx, key).Result()
	s.Require().NoError(err)
	s.EqualValues(0, exists)
}

func TestIntegrationSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration tests in short mode")
	}
	suite.Run(t, new(IntegrationTestSuite))
}
