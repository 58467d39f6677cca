// Package jobs delivers the deferred post-payment reminder through asynq.
package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

// TaskTypeOrderReminder is the one-shot reminder sent after a paid delivery order.
const TaskTypeOrderReminder = "order:reminder"

const (
	QueueDefault = "default"
	QueueLow     = "low"
)

// OrderReminderPayload identifies the conversation to remind.
type OrderReminderPayload struct {
	ChatID int64 `json:"chat_id"`
}

// NewOrderReminderTask builds the reminder task for a chat.
func NewOrderReminderTask(chatID int64) (*asynq.Task, error) {
	payload, err := json.Marshal(OrderReminderPayload{ChatID: chatID})
	if err != nil {
		return nil, err
	}

	return asynq.NewTask(TaskTypeOrderReminder, payload, asynq.Queue(QueueDefault)), nil
}
