package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/klwxsrx/go-app-shell/pkg/auth"
)

type Redis struct {
	client redis.UniversalClient
	key    string
	ttl    time.Duration
}

// NewRedis stores the state under key. A zero ttl keeps it until Clear.
func NewRedis(client redis.UniversalClient, key string, ttl time.Duration) *Redis {
	return &Redis{
		client: client,
		key:    key,
		ttl:    ttl,
	}
}

func (r *Redis) Save(ctx context.Context, state auth.State) error {
	data, err := encodeState(state)
	if err != nil {
		return err
	}

	err = r.client.Set(ctx, r.key, data, r.ttl).Err()
	if err != nil {
		return fmt.Errorf("redis set %s: %w", r.key, err)
	}

	return nil
}

func (r *Redis) Load(ctx context.Context) (*auth.State, error) {
	data, err := r.client.Get(ctx, r.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", r.key, err)
	}

	return decodeState(data)
}

func (r *Redis) Clear(ctx context.Context) error {
	err := r.client.Del(ctx, r.key).Err()
	if err != nil {
		return fmt.Errorf("redis del %s: %w", r.key, err)
	}

	return nil
}
