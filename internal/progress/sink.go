// Package progress pushes live job updates to subscribers. The API tier and
// any websocket bridge listen on the per-job Redis channel.
package progress

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Update is one progress event for a verification job.
type Update struct {
	JobID        string  `json:"job_id"`
	Status       string  `json:"status"`
	Progress     float64 `json:"progress"`
	CurrentIndex int     `json:"current_index"`
	Total        int     `json:"total"`
	Message      string  `json:"message,omitempty"`
}

type Sink interface {
	Publish(ctx context.Context, update Update) error
}

func channelFor(jobID string) string {
	return "verification_progress_" + jobID
}

// RedisSink publishes updates to a per-job pub/sub channel. Publishing is
// fire-and-forget from the pipeline's point of view; a down Redis must never
// fail a job.
type RedisSink struct {
	client *redis.Client
}

func NewRedisSink(client *redis.Client) *RedisSink {
	return &RedisSink{client: client}
}

func (s *RedisSink) Publish(ctx context.Context, update Update) error {
	payload, err := json.Marshal(update)
	if err != nil {
		return fmt.Errorf("marshal progress update: %w", err)
	}
	if err := s.client.Publish(ctx, channelFor(update.JobID), payload).Err(); err != nil {
		return fmt.Errorf("publish progress update: %w", err)
	}
	return nil
}

// LogSink writes updates to the logger. Used when no Redis URL is configured.
type LogSink struct {
	log *zap.Logger
}

func NewLogSink(log *zap.Logger) *LogSink {
	return &LogSink{log: log}
}

func (s *LogSink) Publish(ctx context.Context, update Update) error {
	_ = ctx
	s.log.Info("job progress",
		zap.String("job_id", update.JobID),
		zap.String("status", update.Status),
		zap.Float64("progress", update.Progress),
		zap.Int("current", update.CurrentIndex),
		zap.Int("total", update.Total),
	)
	return nil
}

// NewSink picks Redis when a URL is configured and falls back to logging.
func NewSink(redisURL string, log *zap.Logger) (Sink, error) {
	if redisURL == "" {
		return NewLogSink(log), nil
	}
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return NewRedisSink(redis.NewClient(opts)), nil
}
