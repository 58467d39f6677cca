package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/ovenlight/pizzeria-bot/pkg/metrics"
)

// Scheduler enqueues one-shot deferred tasks. It is the external scheduler
// capability the conversation core hands `{delay, payload}` requests to.
type Scheduler struct {
	client *asynq.Client
	delay  time.Duration
	log    *slog.Logger
}

// NewScheduler builds a Scheduler that fires reminders after the given delay.
func NewScheduler(redisOpt asynq.RedisConnOpt, delay time.Duration, log *slog.Logger) *Scheduler {
	if log == nil {
		log = slog.Default()
	}

	return &Scheduler{
		client: asynq.NewClient(redisOpt),
		delay:  delay,
		log:    log,
	}
}

// ScheduleReminder enqueues the post-payment reminder for a chat.
func (s *Scheduler) ScheduleReminder(ctx context.Context, chatID int64) error {
	task, err := NewOrderReminderTask(chatID)
	if err != nil {
		return err
	}

	info, err := s.client.EnqueueContext(ctx, task, asynq.ProcessIn(s.delay))
	if err != nil {
		return err
	}

	metrics.RecordReminderScheduled()
	s.log.Info("order reminder scheduled",
		"chat_id", chatID, "task_id", info.ID, "delay", s.delay)

	return nil
}

// Close releases the underlying asynq client.
func (s *Scheduler) Close() error {
	return s.client.Close()
}
