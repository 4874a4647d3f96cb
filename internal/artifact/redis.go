package artifact

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// DefaultRedisKeyPrefix namespaces artifact keys.
const DefaultRedisKeyPrefix = "report:artifact:"

// RedisStore keeps artifacts as Redis string values.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
	logger *slog.Logger
}

// NewRedisStore returns a store writing under prefix. A zero ttl keeps artifacts forever.
func NewRedisStore(client redis.UniversalClient, prefix string, ttl time.Duration, logger *slog.Logger) *RedisStore {
	if prefix == "" {
		prefix = DefaultRedisKeyPrefix
	}
	return &RedisStore{
		client: client,
		prefix: prefix,
		ttl:    ttl,
		logger: logger,
	}
}

func (s *RedisStore) Save(ctx context.Context, jobID uuid.UUID, data []byte) (string, error) {
	key := s.prefix + jobID.String()

	if err := s.client.Set(ctx, key, data, s.ttl).Err(); err != nil {
		return "", fmt.Errorf("failed to save artifact to redis: %w", err)
	}

	s.logger.Debug("Artifact saved",
		slog.String("job_id", jobID.String()),
		slog.String("locator", key),
		slog.Int("size", len(data)),
	)

	return key, nil
}

func (s *RedisStore) Open(ctx context.Context, locator string) (io.ReadCloser, error) {
	if !strings.HasPrefix(locator, s.prefix) {
		return nil, fmt.Errorf("%w: %q", ErrArtifactNotFound, locator)
	}

	data, err := s.client.Get(ctx, locator).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %q", ErrArtifactNotFound, locator)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read artifact from redis: %w", err)
	}

	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *RedisStore) Delete(ctx context.Context, locator string) error {
	if !strings.HasPrefix(locator, s.prefix) {
		return nil
	}
	if err := s.client.Del(ctx, locator).Err(); err != nil {
		return fmt.Errorf("failed to delete artifact from redis: %w", err)
	}
	return nil
}
