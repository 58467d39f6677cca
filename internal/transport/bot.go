package transport

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	telebot "gopkg.in/telebot.v3"

	"github.com/ovenlight/pizzeria-bot/internal/apperrors"
	"github.com/ovenlight/pizzeria-bot/internal/commerce"
	"github.com/ovenlight/pizzeria-bot/internal/engine"
	"github.com/ovenlight/pizzeria-bot/internal/event"
	"github.com/ovenlight/pizzeria-bot/pkg/config"
	"github.com/ovenlight/pizzeria-bot/pkg/logger"
	"github.com/ovenlight/pizzeria-bot/pkg/metrics"
)

// EventHandler consumes one inbound event to completion.
type EventHandler interface {
	HandleEvent(ctx context.Context, ev event.Event) error
}

// Bot receives Telegram updates over long polling, maps them to events and
// feeds them to the handler. Update handlers run on telebot's goroutines, so
// each update gets its own deadline and correlation id.
type Bot struct {
	tb          *telebot.Bot
	handler     EventHandler
	errs        *apperrors.Handler
	log         *slog.Logger
	callTimeout time.Duration
}

// NewBot connects to the Telegram API and registers the update handlers.
// The event handler is attached later with Bind, once the outbound side of
// the pipeline has been assembled around the same telebot instance.
func NewBot(cfg config.BotConfig, errs *apperrors.Handler, log *slog.Logger) (*Bot, error) {
	tb, err := telebot.NewBot(telebot.Settings{
		Token:  cfg.Token,
		Poller: &telebot.LongPoller{Timeout: cfg.PollTimeout},
	})
	if err != nil {
		return nil, err
	}

	if log == nil {
		log = slog.Default()
	}

	b := &Bot{
		tb:          tb,
		errs:        errs,
		log:         log,
		callTimeout: cfg.CallTimeout,
	}
	b.registerHandlers()

	return b, nil
}

// Bind attaches the event handler. Must be called before Start.
func (b *Bot) Bind(handler EventHandler) {
	b.handler = handler
}

// Telebot exposes the underlying client so the outbound Sender can share the
// same connection.
func (b *Bot) Telebot() *telebot.Bot {
	return b.tb
}

// Start begins long polling. It blocks until Stop is called.
func (b *Bot) Start() {
	if b.handler == nil {
		panic("transport: Start called before Bind")
	}

	b.log.Info("bot started", slog.String("username", b.tb.Me.Username))
	b.tb.Start()
}

// Stop terminates long polling.
func (b *Bot) Stop() {
	b.tb.Stop()
	b.log.Info("bot stopped")
}

func (b *Bot) registerHandlers() {
	b.tb.Handle(telebot.OnText, func(c telebot.Context) error {
		msg := c.Message()
		ev := event.Event{
			Kind:   event.KindText,
			ChatID: msg.Chat.ID,
			Text:   msg.Text,
		}
		if strings.HasPrefix(msg.Text, "/") {
			ev.Kind = event.KindCommand
			ev.Command = msg.Text
		}

		b.dispatch(ev)
		return nil
	})

	b.tb.Handle(telebot.OnCallback, func(c telebot.Context) error {
		ev, ok := callbackEvent(c.Callback())
		if !ok {
			return nil
		}
		b.dispatch(ev)
		return nil
	})

	b.tb.Handle(telebot.OnLocation, func(c telebot.Context) error {
		msg := c.Message()
		b.dispatch(event.Event{
			Kind:   event.KindLocation,
			ChatID: msg.Chat.ID,
			Lon:    float64(msg.Location.Lng),
			Lat:    float64(msg.Location.Lat),
		})
		return nil
	})

	b.tb.Handle(telebot.OnCheckout, func(c telebot.Context) error {
		query := c.PreCheckoutQuery()
		b.dispatch(event.Event{
			Kind:           event.KindPreCheckout,
			ChatID:         query.Sender.ID,
			PreCheckoutID:  query.ID,
			InvoicePayload: query.Payload,
			TotalAmount:    query.Total,
		})
		return nil
	})

	b.tb.Handle(telebot.OnPayment, func(c telebot.Context) error {
		msg := c.Message()
		b.dispatch(event.Event{
			Kind:           event.KindPayment,
			ChatID:         msg.Chat.ID,
			InvoicePayload: msg.Payment.Payload,
			TotalAmount:    msg.Payment.Total,
		})
		return nil
	})
}

// callbackEvent translates a button press into a dispatchable event.
// Inline-mode callbacks carry no message and are not routed.
func callbackEvent(cb *telebot.Callback) (event.Event, bool) {
	if cb.Message == nil {
		return event.Event{}, false
	}

	return event.Event{
		Kind:       event.KindCallback,
		ChatID:     cb.Message.Chat.ID,
		Callback:   strings.TrimPrefix(strings.TrimSpace(cb.Data), "\f"),
		CallbackID: cb.ID,
	}, true
}

// dispatch routes one event through the engine with a deadline, recovery and
// error reporting. Telebot must never see a panic from our handlers.
func (b *Bot) dispatch(ev event.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), b.callTimeout)
	defer cancel()

	ctx, correlationID := logger.WithCorrelationID(ctx)
	start := time.Now()
	status := "ok"

	defer func() {
		if r := recover(); r != nil {
			status = "panic"
			b.log.Error("panic while handling event",
				slog.String("kind", string(ev.Kind)),
				slog.Int64("chat_id", ev.ChatID),
				slog.String("correlation_id", correlationID),
				slog.Any("panic", r))
		}
		metrics.RecordEvent(string(ev.Kind), status, time.Since(start))
	}()

	if err := b.handler.HandleEvent(ctx, ev); err != nil {
		status = "error"
		b.report(ctx, ev, err)
	}
}

// report classifies the failure, logs it and notifies the user when the error
// carries a user-visible message.
func (b *Bot) report(ctx context.Context, ev event.Event, err error) {
	msg, notify := b.errs.Handle(ctx, classify(err))
	if !notify || ev.ChatID == 0 {
		return
	}

	if _, sendErr := b.tb.Send(telebot.ChatID(ev.ChatID), msg); sendErr != nil {
		b.log.Error("failed to deliver error notice",
			slog.Int64("chat_id", ev.ChatID), slog.Any("error", sendErr))
	}
}

func classify(err error) error {
	switch {
	case errors.Is(err, engine.ErrSessionNotFound):
		return apperrors.NewSessionError("no session to dispatch on", err)
	case errors.Is(err, engine.ErrSnapshotCorrupt):
		return apperrors.NewSessionError("unreadable session snapshot", err)
	}

	var apiErr *commerce.APIError
	if errors.As(err, &apiErr) {
		return apperrors.NewCommerceError(err)
	}

	return err
}
