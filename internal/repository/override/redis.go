package override

import (
	"context"
	"errors"
	"io"
	"log"
	"time"

	"localcart/internal/domain"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "locality:override:"

type redisRepo struct {
	client *redis.Client
	ttl    time.Duration
	logger *log.Logger
}

// NewRedis returns a Repository that stores overrides with SET ... EX ttl so a
// typed-in ZIP expires like a session. The client lifecycle belongs to the caller.
func NewRedis(client *redis.Client, ttl time.Duration, logger *log.Logger) Repository {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &redisRepo{client: client, ttl: ttl, logger: logger}
}

func (r *redisRepo) Get(ctx context.Context, requesterKey string) (string, error) {
	zip, err := r.client.Get(ctx, keyPrefix+requesterKey).Result()
	if errors.Is(err, redis.Nil) {
		return "", domain.ErrNotFound
	}
	if err != nil {
		r.logger.Printf("override repo: get key=%s error=%v", requesterKey, err)
		return "", err
	}
	return zip, nil
}

func (r *redisRepo) Set(ctx context.Context, requesterKey, zip string) error {
	if err := r.client.Set(ctx, keyPrefix+requesterKey, zip, r.ttl).Err(); err != nil {
		r.logger.Printf("override repo: set key=%s error=%v", requesterKey, err)
		return err
	}
	return nil
}

func (r *redisRepo) Delete(ctx context.Context, requesterKey string) error {
	return r.client.Del(ctx, keyPrefix+requesterKey).Err()
}
