package scheduler

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"pulseai/internal/digest"
	"pulseai/internal/repository"
	"pulseai/pkg/common"
	"pulseai/pkg/logger"
	"pulseai/pkg/telegram"
	"pulseai/pkg/utils"

	"github.com/redis/go-redis/v9"
)

const (
	dispatchStreamMaxLen = 1000
	dispatchReadBlock    = 5 * time.Second
	dispatchTaskTimeout  = 2 * time.Minute
)

// DispatchTask is the payload queued for one user delivery.
type DispatchTask struct {
	UserID   int64  `json:"user_id"`
	Category string `json:"category"`
}

// Dispatcher queues digest deliveries for users at their preferred hour and
// consumes the queue, generating and sending the digests.
type Dispatcher struct {
	redisClient *redis.Client
	prefRepo    repository.UserPreferenceRepository
	composer    *digest.Composer
	notifier    telegram.Notifier
	logger      *logger.Logger
	stopChan    chan struct{}
	wg          sync.WaitGroup
}

// NewDispatcher creates a digest dispatcher.
func NewDispatcher(
	redisClient *redis.Client,
	prefRepo repository.UserPreferenceRepository,
	composer *digest.Composer,
	notifier telegram.Notifier,
	log *logger.Logger,
) *Dispatcher {
	return &Dispatcher{
		redisClient: redisClient,
		prefRepo:    prefRepo,
		composer:    composer,
		notifier:    notifier,
		logger:      log,
		stopChan:    make(chan struct{}),
	}
}

// EnqueueDueUsers publishes a dispatch task for every user whose preferred
// notification hour matches the current UTC hour.
func (d *Dispatcher) EnqueueDueUsers(ctx context.Context) error {
	hour := time.Now().UTC().Hour()
	prefs, err := d.prefRepo.FindByNotificationHour(ctx, hour)
	if err != nil {
		return err
	}

	for _, pref := range prefs {
		payload, err := json.Marshal(DispatchTask{UserID: pref.UserID, Category: "all"})
		if err != nil {
			d.logger.Error("Failed to marshal dispatch task", logger.ErrorField(err))
			continue
		}
		if err := d.redisClient.XAdd(ctx, &redis.XAddArgs{
			Stream: common.RedisStreamDigestDispatch,
			Values: map[string]interface{}{"payload": payload},
			MaxLen: dispatchStreamMaxLen,
		}).Err(); err != nil {
			d.logger.Error("Failed to enqueue dispatch task",
				logger.IntField("user_id", int(pref.UserID)),
				logger.ErrorField(err),
			)
			continue
		}
	}

	d.logger.Info("Dispatch tasks enqueued",
		logger.IntField("hour", hour),
		logger.IntField("users", len(prefs)),
	)
	return nil
}

// Start launches the consumer loop reading dispatch tasks from the stream.
func (d *Dispatcher) Start(ctx context.Context) {
	if err := d.redisClient.XGroupCreateMkStream(ctx, common.RedisStreamDigestDispatch, common.RedisStreamGroup, "0").Err(); err != nil &&
		!strings.Contains(err.Error(), "BUSYGROUP") {
		d.logger.Error("Failed to create consumer group", logger.ErrorField(err))
	}

	d.logger.Info("Digest dispatcher started")
	d.wg.Add(1)
	utils.GoSafe(func() {
		defer d.wg.Done()
		for {
			select {
			case <-ctx.Done():
				d.logger.Info("Digest dispatcher stopping due to context cancellation")
				return
			case <-d.stopChan:
				d.logger.Info("Digest dispatcher stopping")
				return
			default:
				d.consumeOnce(ctx)
			}
		}
	})
}

func (d *Dispatcher) consumeOnce(ctx context.Context) {
	streams, err := d.redisClient.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    common.RedisStreamGroup,
		Consumer: common.RedisStreamConsumer,
		Streams:  []string{common.RedisStreamDigestDispatch, ">"},
		Count:    1,
		Block:    dispatchReadBlock,
	}).Result()
	if err != nil {
		if err != redis.Nil && ctx.Err() == nil {
			d.logger.Error("Failed to read dispatch stream", logger.ErrorField(err))
			time.Sleep(time.Second)
		}
		return
	}

	for _, stream := range streams {
		for _, msg := range stream.Messages {
			d.processMessage(ctx, msg)
			if err := d.redisClient.XAck(ctx, common.RedisStreamDigestDispatch, common.RedisStreamGroup, msg.ID).Err(); err != nil {
				d.logger.Error("Failed to ack dispatch message",
					logger.StringField("message_id", msg.ID),
					logger.ErrorField(err),
				)
			}
		}
	}
}

func (d *Dispatcher) processMessage(ctx context.Context, msg redis.XMessage) {
	payload, ok := msg.Values["payload"].(string)
	if !ok {
		d.logger.Error("Dispatch message has no payload", logger.StringField("message_id", msg.ID))
		return
	}

	var task DispatchTask
	if err := json.Unmarshal([]byte(payload), &task); err != nil {
		d.logger.Error("Failed to unmarshal dispatch task",
			logger.StringField("message_id", msg.ID),
			logger.ErrorField(err),
		)
		return
	}

	taskCtx, cancel := context.WithTimeout(ctx, dispatchTaskTimeout)
	defer cancel()

	generated, err := d.composer.Generate(taskCtx, digest.Request{
		UserID:             task.UserID,
		Category:           task.Category,
		UseUserPreferences: true,
	})
	if err != nil {
		d.logger.Warn("Failed to generate scheduled digest",
			logger.IntField("user_id", int(task.UserID)),
			logger.ErrorField(err),
		)
		return
	}

	for _, part := range telegram.SplitDigestMessage(generated.Category, generated.Summary) {
		if err := d.notifier.SendMessageTo(task.UserID, part); err != nil {
			d.logger.Error("Failed to deliver digest",
				logger.IntField("user_id", int(task.UserID)),
				logger.ErrorField(err),
			)
			return
		}
	}

	d.logger.Info("Digest delivered",
		logger.IntField("user_id", int(task.UserID)),
		logger.IntField("digest_id", int(generated.ID)),
	)
}

// Stop gracefully shuts down the consumer loop.
func (d *Dispatcher) Stop() {
	close(d.stopChan)
	d.wg.Wait()
	d.logger.Info("Digest dispatcher stopped")
}
