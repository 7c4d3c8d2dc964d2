package redis

import (
	"context"
	"fmt"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type IRedis interface {
	Publish(ctx context.Context, channel string, payload any) error
	Ping(ctx context.Context) error
	Close() error
}

type Options struct {
	Address  string
	Password string
	DB       int
}

type redisClient struct {
	client *redis.Client
	log    *logrus.Logger
}

// New connects lazily; a failed initial ping is logged, not fatal.
func New(log *logrus.Logger, opts Options) IRedis {
	log.Info(fmt.Sprintf("Connecting to Redis at %s...", opts.Address))

	client := redis.NewClient(&redis.Options{
		Addr:     opts.Address,
		Password: opts.Password,
		DB:       opts.DB,
	})

	r := &redisClient{client: client, log: log}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := r.Ping(ctx); err != nil {
		log.Error(fmt.Sprintf("Failed to connect to Redis: %v", err))
	} else {
		log.Info("Successfully connected to Redis")
	}

	return r
}

func (r *redisClient) Publish(ctx context.Context, channel string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode payload for %s: %w", channel, err)
	}

	receivers, err := r.client.Publish(ctx, channel, body).Result()
	if err != nil {
		r.log.Error(fmt.Sprintf("Error publishing to %s: %v", channel, err))
		return err
	}

	r.log.Debug(fmt.Sprintf("Published %d bytes to %s (%d receivers)", len(body), channel, receivers))
	return nil
}

func (r *redisClient) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *redisClient) Close() error {
	return r.client.Close()
}
