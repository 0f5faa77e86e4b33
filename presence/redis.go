package presence

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig holds Redis connection configuration.
type RedisConfig struct {
	Address  string
	Password string
	DB       int
}

// redisStore keeps presence shared across server instances.
//
// Redis key patterns:
//   presence:doctors                 SET<doctor_id>  - doctors with >=1 connection
//   presence:doctor:{id}:conns       STRING<int>     - live connection count
type redisStore struct {
	client *redis.Client
}

func NewRedisStore(cfg RedisConfig) (Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &redisStore{client: client}, nil
}

const doctorsKey = "presence:doctors"

func connsKey(doctorID string) string {
	return fmt.Sprintf("presence:doctor:%s:conns", doctorID)
}

func (s *redisStore) MarkOnline(ctx context.Context, doctorID string) (bool, error) {
	n, err := s.client.Incr(ctx, connsKey(doctorID)).Result()
	if err != nil {
		return false, err
	}
	if n == 1 {
		if err := s.client.SAdd(ctx, doctorsKey, doctorID).Err(); err != nil {
			return false, err
		}
		return true, nil
	}
	return false, nil
}

func (s *redisStore) MarkOffline(ctx context.Context, doctorID string) (bool, error) {
	n, err := s.client.Decr(ctx, connsKey(doctorID)).Result()
	if err != nil {
		return false, err
	}
	if n > 0 {
		return false, nil
	}

	pipe := s.client.TxPipeline()
	pipe.Del(ctx, connsKey(doctorID))
	pipe.SRem(ctx, doctorsKey, doctorID)
	_, err = pipe.Exec(ctx)
	return true, err
}

func (s *redisStore) IsOnline(ctx context.Context, doctorID string) (bool, error) {
	return s.client.SIsMember(ctx, doctorsKey, doctorID).Result()
}

func (s *redisStore) OnlineDoctors(ctx context.Context) ([]string, error) {
	return s.client.SMembers(ctx, doctorsKey).Result()
}

func (s *redisStore) Close() error {
	return s.client.Close()
}
