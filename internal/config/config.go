// Package config загружает конфигурацию сервера из переменных окружения.
package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config содержит всю конфигурацию сервера гейммастера.
type Config struct {
	// Настройки сервера
	Port           string   `envconfig:"SERVER_PORT" default:"8080"`
	LogLevel       string   `envconfig:"LOG_LEVEL" default:"info"`
	Env            string   `envconfig:"ENV" default:"development"`
	AllowedOrigins []string `envconfig:"CORS_ALLOWED_ORIGINS"`

	// Настройки PostgreSQL
	DBHost     string `envconfig:"DB_HOST" default:"localhost"`
	DBPort     string `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER" default:"postgres"`
	DBPassword string `envconfig:"DB_PASSWORD" required:"true"`
	DBName     string `envconfig:"DB_NAME" default:"gamemaster"`
	DBSSLMode  string `envconfig:"DB_SSL_MODE" default:"disable"`
	DBMaxConns int    `envconfig:"DB_MAX_CONNECTIONS" default:"10"`

	// Настройки Redis (кеш игровых сессий)
	RedisAddr       string        `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	RedisPassword   string        `envconfig:"REDIS_PASSWORD"`
	SessionCacheTTL time.Duration `envconfig:"SESSION_CACHE_TTL" default:"24h"`

	// Настройки S3-хранилища изображений
	S3Endpoint  string `envconfig:"S3_ENDPOINT"`
	S3Region    string `envconfig:"S3_REGION" default:"us-east-1"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY" required:"true"`
	S3SecretKey string `envconfig:"S3_SECRET_KEY" required:"true"`
	S3Bucket    string `envconfig:"S3_BUCKET" default:"gamemaster-images"`

	// Настройки AI-провайдера
	AIAPIKey     string `envconfig:"AI_API_KEY" required:"true"`
	AIBaseURL    string `envconfig:"AI_BASE_URL"`
	AIChatModel  string `envconfig:"AI_CHAT_MODEL"`
	AIImageModel string `envconfig:"AI_IMAGE_MODEL"`
	AITimeout    int    `envconfig:"AI_TIMEOUT" default:"120"`

	// Режим отладки: вместо генерации изображений используются заглушки
	DebugImages            bool   `envconfig:"DEBUG_IMAGES" default:"false"`
	PlaceholderPortraitURL string `envconfig:"PLACEHOLDER_PORTRAIT_URL" default:"https://upload.wikimedia.org/wikipedia/commons/thumb/6/65/Baby_Face.JPG/1024px-Baby_Face.JPG"`
	PlaceholderBackdropURL string `envconfig:"PLACEHOLDER_BACKDROP_URL" default:"https://upload.wikimedia.org/wikipedia/commons/thumb/4/4e/Macro_Photography_of_a_Water_Droplet.jpg/1280px-Macro_Photography_of_a_Water_Droplet.jpg"`
}

// GetDSN возвращает строку подключения (DSN) для PostgreSQL.
func (c *Config) GetDSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode)
}

// LoadConfig загружает конфигурацию из переменных окружения.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("ошибка загрузки конфигурации: %w", err)
	}
	return &cfg, nil
}
