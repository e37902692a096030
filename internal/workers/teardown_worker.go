package workers

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/kreangsak-project-sharing/realtime-booking-zoom-meeting/internal/providers/zoom"
)

// RedisTeardownQueue enqueues replaced or cancelled meeting ids onto a
// Redis stream for the teardown pool. Implements services.TeardownQueue.
type RedisTeardownQueue struct {
	Redis  *redis.Client
	Stream string
}

func (q *RedisTeardownQueue) Enqueue(ctx context.Context, meetingID string) error {
	stream := q.Stream
	if stream == "" {
		stream = "zoom:teardown"
	}
	return q.Redis.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		Values: map[string]any{
			"meeting_id":  meetingID,
			"enqueued_at": time.Now().UTC().Format(time.RFC3339),
		},
	}).Err()
}

type TeardownWorkerPool struct {
	Redis      *redis.Client
	Provider   zoom.Provider
	NumWorkers int

	Logger *logrus.Logger

	Stream         string
	Group          string
	ConsumerPrefix string
}

func (p *TeardownWorkerPool) Start(ctx context.Context) error {
	if p.Redis == nil || p.Provider == nil {
		return errors.New("TeardownWorkerPool missing dependency: Redis/Provider must be set")
	}
	if p.Stream == "" {
		p.Stream = "zoom:teardown"
	}
	if p.Group == "" {
		p.Group = "teardown-workers"
	}
	if p.ConsumerPrefix == "" {
		p.ConsumerPrefix = "c"
	}
	if p.NumWorkers <= 0 {
		p.NumWorkers = 2
	}
	if p.Logger == nil {
		p.Logger = logrus.New()
	}

	_ = p.Redis.XGroupCreateMkStream(ctx, p.Stream, p.Group, "0").Err() // ignore BUSYGROUP

	for i := 0; i < p.NumWorkers; i++ {
		consumer := p.ConsumerPrefix + "-" + strconv.Itoa(i+1)
		go p.runConsumer(ctx, consumer)
	}
	return nil
}

func (p *TeardownWorkerPool) runConsumer(ctx context.Context, consumer string) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		res, err := p.Redis.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    p.Group,
			Consumer: consumer,
			Streams:  []string{p.Stream, ">"},
			Count:    10,
			Block:    5 * time.Second,
		}).Result()

		if err != nil {
			if err == redis.Nil {
				continue
			}
			time.Sleep(500 * time.Millisecond)
			continue
		}

		for _, stream := range res {
			for _, msg := range stream.Messages {
				p.handleMsg(ctx, msg)
				_ = p.Redis.XAck(ctx, p.Stream, p.Group, msg.ID).Err()
			}
		}
	}
}

func (p *TeardownWorkerPool) handleMsg(ctx context.Context, msg redis.XMessage) {
	meetingID, _ := msg.Values["meeting_id"].(string)
	if meetingID == "" {
		return
	}

	log := p.Logger.WithFields(logrus.Fields{
		"redis_id":        msg.ID,
		"zoom_meeting_id": meetingID,
	})

	// Delete treats an already-gone meeting as success, so failures here
	// are transient provider errors. Log and ack either way; the stream is
	// fire-and-forget.
	if err := p.Provider.Delete(ctx, meetingID); err != nil {
		log.WithError(err).Warn("meeting teardown failed")
		return
	}
	log.Info("meeting torn down")
}
