// Package stream publishes committed schedule changes to a Redis stream for live calendars.
package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"print-scheduler/internal/models"
)

const DefaultStream = "schedule:changes"

// Adder is the subset of *redis.Client the publisher needs
type Adder interface {
	XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd
}

type Publisher struct {
	rdb    Adder
	stream string
	maxLen int64
}

// NewPublisher writes to stream, trimming it to roughly maxLen entries when maxLen > 0
func NewPublisher(rdb Adder, stream string, maxLen int64) *Publisher {
	if stream == "" {
		stream = DefaultStream
	}
	return &Publisher{rdb: rdb, stream: stream, maxLen: maxLen}
}

// Publish appends one entry per change and returns the first failure
func (p *Publisher) Publish(ctx context.Context, changes []models.EventChange) error {
	for _, c := range changes {
		b, err := json.Marshal(c)
		if err != nil {
			return fmt.Errorf("failed to encode change for event %s: %w", c.Event.ID, err)
		}
		args := &redis.XAddArgs{
			Stream: p.stream,
			ID:     "*",
			Values: map[string]any{
				"op":     string(c.Op),
				"job_id": c.Event.JobID,
				"data":   string(b),
			},
		}
		if p.maxLen > 0 {
			args.MaxLen = p.maxLen
			args.Approx = true
		}
		if err := p.rdb.XAdd(ctx, args).Err(); err != nil {
			return fmt.Errorf("failed to publish change for event %s: %w", c.Event.ID, err)
		}
	}
	return nil
}

type Config struct {
	Addr     string
	Password string
	DB       int
}

// NewClientWithBackoff dials Redis, retrying with capped exponential backoff until ctx ends
func NewClientWithBackoff(ctx context.Context, cfg Config) (*redis.Client, error) {
	backoff := 200 * time.Millisecond
	max := 5 * time.Second

	for {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			rdb.Close()
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
			if backoff < max {
				backoff *= 2
				if backoff > max {
					backoff = max
				}
			}
			continue
		}
		return rdb, nil
	}
}
