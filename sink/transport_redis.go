package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/avast/retry-go"
	"github.com/go-redis/redis/v7"
	"go.uber.org/zap"

	"github.com/crashhook/sdk-go/event"
)

const (
	RedisPayloadKey = "p"

	EnvRedisHost = "REDIS_HOST"
	EnvRedisPort = "REDIS_PORT"

	DefaultRedisStream = "crashhook:events"
	DefaultRedisMaxLen = 10000
)

var DefaultRedisOpts = redis.Options{
	MinIdleConns:       1,
	PoolSize:           2,
	PoolTimeout:        30 * time.Second,
	MaxRetries:         3,
	MinRetryBackoff:    100 * time.Millisecond,
	MaxRetryBackoff:    1 * time.Second,
	DialTimeout:        5 * time.Second,
	ReadTimeout:        5 * time.Second,
	WriteTimeout:       5 * time.Second,
	IdleCheckFrequency: 30 * time.Second,
	MaxConnAge:         2 * time.Minute,
}

// RedisTransport appends events to a Redis stream. Each entry carries the
// JSON encoded event under RedisPayloadKey; attachment bodies are not sent.
type RedisTransport struct {
	client *redis.Client
	stream string
	maxLen int64
	log    *zap.SugaredLogger
	retry  []retry.Option
}

var _ Transport = (*RedisTransport)(nil)

// NewRedisTransport connects to the Redis instance named by REDIS_HOST and
// REDIS_PORT.
func NewRedisTransport(ctx context.Context, stream string, logger *zap.Logger) (*RedisTransport, error) {
	log := logger.Sugar()
	client, err := redisClient(ctx, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create redis client: %w", err)
	}
	return NewRedisTransportWithClient(client, stream, logger), nil
}

func NewRedisTransportWithClient(client *redis.Client, stream string, logger *zap.Logger) *RedisTransport {
	if stream == "" {
		stream = DefaultRedisStream
	}
	return &RedisTransport{
		client: client,
		stream: stream,
		maxLen: DefaultRedisMaxLen,
		log:    logger.Sugar(),
		retry: []retry.Option{
			retry.Attempts(3),
			retry.Delay(200 * time.Millisecond),
			retry.DelayType(retry.BackOffDelay),
		},
	}
}

func (t *RedisTransport) Send(ev *event.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	args := &redis.XAddArgs{
		Stream:       t.stream,
		MaxLenApprox: t.maxLen,
		ID:           "*",
		Values:       map[string]interface{}{RedisPayloadKey: payload},
	}
	return retry.Do(func() error {
		return t.client.XAdd(args).Err()
	}, append(t.retry, retry.OnRetry(func(n uint, err error) {
		t.log.Debugw("retrying redis XADD", "stream", t.stream, "attempt", n, "error", err)
	}))...)
}

func (t *RedisTransport) Close() error {
	return t.client.Close()
}

// redisAddr returns the address of the Redis instance configured in this
// process' environment.
func redisAddr() (string, error) {
	var (
		port = 6379
		host = os.Getenv(EnvRedisHost)
		err  error
	)

	if host == "" {
		host = "localhost"
	}
	if portStr := os.Getenv(EnvRedisPort); portStr != "" {
		port, err = strconv.Atoi(portStr)
		if err != nil {
			return "", fmt.Errorf("failed to parse port '%q': %w", portStr, err)
		}
	}
	return fmt.Sprintf("%s:%d", host, port), nil
}

func redisClient(ctx context.Context, log *zap.SugaredLogger) (*redis.Client, error) {
	addr, err := redisAddr()
	if err != nil {
		return nil, err
	}

	log.Debugw("trying redis host", "addr", addr)

	opts := DefaultRedisOpts
	opts.Addr = addr
	client := redis.NewClient(&opts).WithContext(ctx)

	if err := client.Ping().Err(); err != nil {
		_ = client.Close()
		log.Errorw("failed to ping redis host", "addr", addr, "error", err)
		return nil, err
	}

	log.Debugw("redis ping OK", "addr", addr)
	return client, nil
}
