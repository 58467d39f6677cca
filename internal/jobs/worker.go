package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/ovenlight/pizzeria-bot/internal/transport"
)

// Worker processes deferred tasks. Reminder delivery goes straight to the
// transport and never touches the session's durable state.
type Worker struct {
	server   *asynq.Server
	mux      *asynq.ServeMux
	log      *slog.Logger
	sender   transport.Transport
	renderer Renderer
}

// Renderer is the template surface the worker needs for reminder text.
type Renderer interface {
	Render(name string, data any) (string, error)
}

// NewWorker constructs a Worker backed by an asynq server.
func NewWorker(redisOpt asynq.RedisConnOpt, sender transport.Transport, renderer Renderer, log *slog.Logger) *Worker {
	if log == nil {
		log = slog.Default()
	}

	server := asynq.NewServer(redisOpt, asynq.Config{
		Queues:      map[string]int{QueueDefault: 6, QueueLow: 1},
		Concurrency: 10,
	})

	w := &Worker{
		server:   server,
		mux:      asynq.NewServeMux(),
		log:      log,
		sender:   sender,
		renderer: renderer,
	}
	w.mux.HandleFunc(TaskTypeOrderReminder, w.handleOrderReminder)

	return w
}

// Run starts processing tasks until Shutdown is called.
func (w *Worker) Run() error {
	w.log.Info("jobs worker: starting processing loop")
	return w.server.Run(w.mux)
}

// Shutdown gracefully stops the worker.
func (w *Worker) Shutdown() {
	w.log.Info("jobs worker: shutting down")
	w.server.Shutdown()
}

func (w *Worker) handleOrderReminder(ctx context.Context, task *asynq.Task) error {
	var payload OrderReminderPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("decode reminder payload: %w", err)
	}

	text, err := w.renderer.Render("order_reminder.tmpl", nil)
	if err != nil {
		return err
	}

	if _, err := w.sender.SendText(ctx, payload.ChatID, text, nil); err != nil {
		return fmt.Errorf("send order reminder: %w", err)
	}

	w.log.Info("order reminder delivered", "chat_id", payload.ChatID)
	return nil
}
