package bus

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// evidenceStream is the Redis Stream evidence notifications land on.
const evidenceStream = "forensight:evidence"

// RedisBus publishes evidence notifications to Redis Streams.
type RedisBus struct {
	client *redis.Client
	logger *log.Logger
}

// NewRedisBus creates a Redis bus and verifies connectivity.
func NewRedisBus(redisURL string, logger *log.Logger) (*RedisBus, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	if logger == nil {
		logger = log.New(log.Writer(), "[RedisBus] ", log.LstdFlags)
	}

	return &RedisBus{client: client, logger: logger}, nil
}

// PublishEvidence publishes an ingested-evidence notification to the
// evidence stream.
func (rb *RedisBus) PublishEvidence(ctx context.Context, msg EvidenceMessage) error {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.Timestamp == 0 {
		msg.Timestamp = time.Now().Unix()
	}

	fields := map[string]interface{}{
		"id":        msg.ID,
		"case_id":   strconv.FormatInt(msg.CaseID, 10),
		"record_id": strconv.FormatInt(msg.RecordID, 10),
		"module":    msg.Module,
		"target":    msg.Target,
		"verdict":   msg.Verdict,
		"score":     msg.Score,
		"timestamp": msg.Timestamp,
	}

	result := rb.client.XAdd(ctx, &redis.XAddArgs{
		Stream: evidenceStream,
		Values: fields,
	})
	if err := result.Err(); err != nil {
		return fmt.Errorf("failed to publish evidence notification: %w", err)
	}

	rb.logger.Printf("Published evidence %d for case %d to %s", msg.RecordID, msg.CaseID, evidenceStream)
	return nil
}

// HealthCheck pings Redis.
func (rb *RedisBus) HealthCheck(ctx context.Context) error {
	if err := rb.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis health check failed: %w", err)
	}
	return nil
}

// Close closes the Redis connection.
func (rb *RedisBus) Close() error {
	return rb.client.Close()
}
