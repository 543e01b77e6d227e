package hooks

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/ivlev/audiogram/internal/config"
	"github.com/ivlev/audiogram/internal/log"
)

const (
	redisKeyPrefix = "audiogram:job:"
	// StatusChannel receives a JSON Event on every status change.
	StatusChannel = "audiogram:status"
	redisTTL      = 24 * time.Hour
)

// Event is the payload published on StatusChannel.
type Event struct {
	ID      string `json:"id"`
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`
	Export  string `json:"export,omitempty"`
	At      int64  `json:"at"`
}

// RedisStatus mirrors job status into a hash per job and publishes every
// change, so that other processes can follow renders.
type RedisStatus struct {
	client *redis.Client
	logger zerolog.Logger
	now    func() time.Time
}

func NewRedisStatus(ctx context.Context, cfg config.RedisConfig) (*RedisStatus, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	logger := log.WithComponent("hooks")
	logger.Info().Str("addr", cfg.Addr).Int("db", cfg.DB).Msg("connected to Redis status store")
	return newRedisStatus(client, logger), nil
}

func newRedisStatus(client *redis.Client, logger zerolog.Logger) *RedisStatus {
	return &RedisStatus{client: client, logger: logger, now: time.Now}
}

func (r *RedisStatus) Close() error { return r.client.Close() }

func (r *RedisStatus) UpdateStatus(ctx context.Context, id string, status Status) error {
	return r.publish(ctx, Event{ID: id, Status: status})
}

func (r *RedisStatus) ReportError(ctx context.Context, id, message string) error {
	return r.publish(ctx, Event{ID: id, Status: StatusError, Message: message})
}

func (r *RedisStatus) Deliver(ctx context.Context, id, path string) error {
	return r.publish(ctx, Event{ID: id, Status: StatusFinished, Export: path})
}

// Get returns the last mirrored state of a job. ok is false for unknown ids.
func (r *RedisStatus) Get(ctx context.Context, id string) (Event, bool, error) {
	vals, err := r.client.HGetAll(ctx, redisKeyPrefix+id).Result()
	if err != nil {
		return Event{}, false, err
	}
	if len(vals) == 0 {
		return Event{}, false, nil
	}
	ev := Event{ID: id, Status: Status(vals["status"]), Message: vals["message"], Export: vals["export"]}
	ev.At, _ = strconv.ParseInt(vals["at"], 10, 64)
	return ev, true, nil
}

func (r *RedisStatus) publish(ctx context.Context, ev Event) error {
	ev.At = r.now().Unix()
	fields := map[string]any{"status": string(ev.Status), "at": ev.At}
	if ev.Message != "" {
		fields["message"] = ev.Message
	}
	if ev.Export != "" {
		fields["export"] = ev.Export
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	key := redisKeyPrefix + ev.ID
	_, err = r.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HSet(ctx, key, fields)
		p.Expire(ctx, key, redisTTL)
		p.Publish(ctx, StatusChannel, payload)
		return nil
	})
	if err != nil {
		r.logger.Warn().Err(err).Str("job_id", ev.ID).Msg("redis status update failed")
		return fmt.Errorf("redis status: %w", err)
	}
	return nil
}
