package repository

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"

	"gamemaster-server/internal/model"
)

const imageContentType = "image/png"

// ImageStore хранит пары изображений сессии (портрет и пейзаж) в S3-совместимом
// бакете. Ключи производны от идентификатора сессии, поэтому изображения можно
// сохранить только после первого сохранения состояния.
type ImageStore struct {
	client *s3.Client
	bucket string
}

// NewImageStore создает новое хранилище изображений поверх S3 клиента.
func NewImageStore(client *s3.Client, bucket string) *ImageStore {
	return &ImageStore{client: client, bucket: bucket}
}

// PortraitKey возвращает ключ портрета для сессии.
func PortraitKey(id uuid.UUID) string {
	return fmt.Sprintf("%s_portrait", id)
}

// BackdropKey возвращает ключ пейзажа для сессии.
func BackdropKey(id uuid.UUID) string {
	return fmt.Sprintf("%s_backdrop", id)
}

// SavePair сохраняет оба изображения сессии. Изображения неизменяемы:
// пара пишется один раз сразу после назначения идентификатора состояния.
func (s *ImageStore) SavePair(ctx context.Context, id uuid.UUID, portrait, backdrop []byte) error {
	if err := s.put(ctx, PortraitKey(id), portrait); err != nil {
		return err
	}
	return s.put(ctx, BackdropKey(id), backdrop)
}

// FetchPair возвращает байты портрета и пейзажа сессии.
// Отсутствие любого из ключей - model.ErrNotFound.
func (s *ImageStore) FetchPair(ctx context.Context, id uuid.UUID) ([]byte, []byte, error) {
	portrait, err := s.get(ctx, PortraitKey(id))
	if err != nil {
		return nil, nil, err
	}
	backdrop, err := s.get(ctx, BackdropKey(id))
	if err != nil {
		return nil, nil, err
	}
	return portrait, backdrop, nil
}

// DeletePair удаляет оба изображения сессии. Удаление в S3 идемпотентно,
// поэтому отсутствие ключа ошибкой не считается.
func (s *ImageStore) DeletePair(ctx context.Context, id uuid.UUID) error {
	for _, key := range []string{PortraitKey(id), BackdropKey(id)} {
		_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(key),
		})
		if err != nil {
			return fmt.Errorf("ошибка удаления изображения %s: %w", key, err)
		}
	}
	return nil
}

func (s *ImageStore) put(ctx context.Context, key string, data []byte) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(imageContentType),
	})
	if err != nil {
		return fmt.Errorf("ошибка сохранения изображения %s: %w", key, err)
	}
	return nil
}

func (s *ImageStore) get(ctx context.Context, key string) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			return nil, fmt.Errorf("изображение %s: %w", key, model.ErrNotFound)
		}
		return nil, fmt.Errorf("ошибка чтения изображения %s: %w", key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения тела изображения %s: %w", key, err)
	}
	return data, nil
}
