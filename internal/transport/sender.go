package transport

import (
	"context"
	"strconv"
	"strings"

	telebot "gopkg.in/telebot.v3"

	"github.com/ovenlight/pizzeria-bot/internal/keyboard"
)

// Sender implements Transport on top of a telebot.Bot.
type Sender struct {
	tb           *telebot.Bot
	paymentToken string
	currency     string
}

var _ Transport = (*Sender)(nil)

// NewSender wraps a telebot instance as a Transport.
func NewSender(tb *telebot.Bot, paymentToken, currency string) *Sender {
	return &Sender{
		tb:           tb,
		paymentToken: paymentToken,
		currency:     currency,
	}
}

// SendText sends an HTML-formatted text message with an optional inline keyboard.
func (s *Sender) SendText(ctx context.Context, chatID int64, text string, kb *keyboard.Inline) (MessageRef, error) {
	msg, err := s.tb.Send(telebot.ChatID(chatID), text, &telebot.SendOptions{
		ParseMode:   telebot.ModeHTML,
		ReplyMarkup: toMarkup(kb),
	})
	if err != nil {
		return MessageRef{}, err
	}

	return messageRef(msg), nil
}

// SendPhoto sends a photo by URL with an HTML caption and optional keyboard.
func (s *Sender) SendPhoto(ctx context.Context, chatID int64, imageURL, caption string, kb *keyboard.Inline) (MessageRef, error) {
	photo := &telebot.Photo{
		File:    telebot.FromURL(imageURL),
		Caption: caption,
	}

	msg, err := s.tb.Send(telebot.ChatID(chatID), photo, &telebot.SendOptions{
		ParseMode:   telebot.ModeHTML,
		ReplyMarkup: toMarkup(kb),
	})
	if err != nil {
		return MessageRef{}, err
	}

	return messageRef(msg), nil
}

// SendInvoice sends a payment invoice carrying the given opaque payload.
func (s *Sender) SendInvoice(ctx context.Context, chatID int64, title, description, payload string, prices []LabeledPrice) (MessageRef, error) {
	invoice := telebot.Invoice{
		Title:       title,
		Description: description,
		Payload:     payload,
		Currency:    s.currency,
		Token:       s.paymentToken,
	}
	for _, price := range prices {
		invoice.Prices = append(invoice.Prices, telebot.Price{
			Label:  price.Label,
			Amount: price.Amount,
		})
	}

	msg, err := s.tb.Send(telebot.ChatID(chatID), &invoice)
	if err != nil {
		return MessageRef{}, err
	}

	return messageRef(msg), nil
}

// SendLocation shares a point on the map.
func (s *Sender) SendLocation(ctx context.Context, chatID int64, lon, lat float64) error {
	_, err := s.tb.Send(telebot.ChatID(chatID), &telebot.Location{
		Lat: float32(lat),
		Lng: float32(lon),
	})
	return err
}

// ClearMarkup strips the inline keyboard from an earlier message.
func (s *Sender) ClearMarkup(ctx context.Context, ref MessageRef) error {
	_, err := s.tb.EditReplyMarkup(stored(ref), nil)
	return normalizeGone(err)
}

// DeleteMessage removes an earlier message.
func (s *Sender) DeleteMessage(ctx context.Context, ref MessageRef) error {
	return normalizeGone(s.tb.Delete(stored(ref)))
}

// AnswerCallback acknowledges a button press, optionally with a toast text.
func (s *Sender) AnswerCallback(ctx context.Context, callbackID, text string) error {
	return s.tb.Respond(&telebot.Callback{ID: callbackID}, &telebot.CallbackResponse{Text: text})
}

// AnswerPreCheckout confirms or rejects a pre-checkout query.
func (s *Sender) AnswerPreCheckout(ctx context.Context, queryID string, ok bool, errorText string) error {
	query := &telebot.PreCheckoutQuery{ID: queryID}
	if ok {
		return s.tb.Accept(query)
	}
	return s.tb.Accept(query, errorText)
}

func messageRef(msg *telebot.Message) MessageRef {
	return MessageRef{ChatID: msg.Chat.ID, MessageID: msg.ID}
}

func stored(ref MessageRef) telebot.Editable {
	return telebot.StoredMessage{
		MessageID: strconv.Itoa(ref.MessageID),
		ChatID:    ref.ChatID,
	}
}

func toMarkup(kb *keyboard.Inline) *telebot.ReplyMarkup {
	if kb == nil || len(kb.Rows) == 0 {
		return nil
	}

	markup := &telebot.ReplyMarkup{
		InlineKeyboard: make([][]telebot.InlineButton, len(kb.Rows)),
	}
	for i, row := range kb.Rows {
		markup.InlineKeyboard[i] = make([]telebot.InlineButton, len(row))
		for j, btn := range row {
			markup.InlineKeyboard[i][j] = telebot.InlineButton{
				Text: btn.Text,
				Data: btn.Data,
			}
		}
	}

	return markup
}

// normalizeGone maps platform "already gone" responses to ErrMessageGone so
// cleanup can treat them as a no-op.
func normalizeGone(err error) error {
	if err == nil {
		return nil
	}

	desc := strings.ToLower(err.Error())
	for _, marker := range []string{
		"message to delete not found",
		"message to edit not found",
		"message can't be deleted",
		"message is not modified",
	} {
		if strings.Contains(desc, marker) {
			return ErrMessageGone
		}
	}

	return err
}
