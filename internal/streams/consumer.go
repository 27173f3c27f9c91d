package streams

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// BuildConsumer consumes image build requests from Redis Streams
type BuildConsumer struct {
	rdb          *redis.Client
	groupName    string
	consumerName string
}

// NewBuildConsumer creates a new BuildConsumer instance
func NewBuildConsumer(redisURL, consumerName string) (*BuildConsumer, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	// Read timeout must exceed the XReadGroup Block duration (5s)
	// to avoid spurious i/o timeout errors on idle streams.
	opts.ReadTimeout = 10 * time.Second

	client := redis.NewClient(opts)

	// Create consumer group on image:builds stream
	// Start ID "0" means read from beginning if group is new
	err = client.XGroupCreateMkStream(context.Background(), StreamImageBuilds, GroupImageWorkers, "0").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return nil, fmt.Errorf("failed to create consumer group: %w", err)
	}
	// Ignore BUSYGROUP error - group already exists

	return &BuildConsumer{
		rdb:          client,
		groupName:    GroupImageWorkers,
		consumerName: consumerName,
	}, nil
}

// ConsumeBuilds runs a blocking loop consuming build requests from the stream
func (c *BuildConsumer) ConsumeBuilds(ctx context.Context, handler func(context.Context, ImageBuildRequest) error) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		// Read from stream with consumer group
		streams, err := c.rdb.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    c.groupName,
			Consumer: c.consumerName,
			Streams:  []string{StreamImageBuilds, ">"},
			Count:    10,
			Block:    5 * time.Second,
		}).Result()

		if err == redis.Nil {
			// No messages available, continue loop
			continue
		}

		if err != nil {
			// Blocking reads return a timeout when no messages arrive
			// within the Block duration — this is normal, not an error.
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue
			}
			slog.Error("Failed to read from stream", "error", err)
			continue
		}

		// Process messages
		for _, stream := range streams {
			for _, message := range stream.Messages {
				// Extract payload from message values
				payloadStr, ok := message.Values["payload"].(string)
				if !ok {
					slog.Error("Invalid message payload", "message_id", message.ID)
					continue
				}

				// Unmarshal request
				var req ImageBuildRequest
				if err := json.Unmarshal([]byte(payloadStr), &req); err != nil {
					slog.Error("Failed to unmarshal build request", "error", err, "message_id", message.ID)
					continue
				}

				// Call handler
				if err := handler(ctx, req); err != nil {
					slog.Error("Handler failed", "error", err, "post_id", req.PostID)
					// Message stays in PEL for retry, don't ACK
					continue
				}

				// ACK successful processing
				if err := c.rdb.XAck(ctx, StreamImageBuilds, c.groupName, message.ID).Err(); err != nil {
					slog.Error("Failed to ACK message", "error", err, "message_id", message.ID)
				}
			}
		}
	}
}

// Close closes the Redis client connection
func (c *BuildConsumer) Close() error {
	return c.rdb.Close()
}

// StartBuildConsumer is a convenience function that starts the build consumer
// in a background goroutine and returns a stop function
func StartBuildConsumer(redisURL string, renderer ImageRenderer, sink ImageSink) (stop func(), err error) {
	consumer, err := NewBuildConsumer(redisURL, "image-worker-1")
	if err != nil {
		return nil, fmt.Errorf("failed to create build consumer: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	// Start consumer in background goroutine
	go func() {
		if err := consumer.ConsumeBuilds(ctx, HandleImageBuild(renderer, sink)); err != nil {
			if err != context.Canceled {
				slog.Error("Build consumer stopped with error", "error", err)
			}
		}
	}()

	slog.Info("Image build consumer started")

	// Return stop function that cancels context and closes consumer
	return func() {
		cancel()
		consumer.Close()
	}, nil
}
