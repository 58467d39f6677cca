package transport

import (
	"errors"
	"testing"

	"github.com/ovenlight/pizzeria-bot/internal/keyboard"
)

func TestNormalizeGone(t *testing.T) {
	platformErr := errors.New("telegram: some other failure (400)")

	testCases := []struct {
		name     string
		err      error
		wantGone bool
	}{
		{name: "nil", err: nil, wantGone: false},
		{name: "delete target missing", err: errors.New("telegram: Bad Request: message to delete not found (400)"), wantGone: true},
		{name: "edit target missing", err: errors.New("telegram: Bad Request: message to edit not found (400)"), wantGone: true},
		{name: "not deletable", err: errors.New("telegram: Bad Request: message can't be deleted (400)"), wantGone: true},
		{name: "markup unchanged", err: errors.New("telegram: Bad Request: message is not modified (400)"), wantGone: true},
		{name: "unrelated error", err: platformErr, wantGone: false},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			got := normalizeGone(tc.err)

			if tc.wantGone {
				if !errors.Is(got, ErrMessageGone) {
					t.Fatalf("got %v, want ErrMessageGone", got)
				}
				return
			}

			if tc.err == nil {
				if got != nil {
					t.Fatalf("got %v, want nil", got)
				}
				return
			}
			if !errors.Is(got, tc.err) {
				t.Fatalf("got %v, want the original error", got)
			}
		})
	}
}

func TestToMarkup(t *testing.T) {
	if toMarkup(nil) != nil {
		t.Fatal("nil keyboard must produce nil markup")
	}
	if toMarkup(&keyboard.Inline{}) != nil {
		t.Fatal("empty keyboard must produce nil markup")
	}

	kb := &keyboard.Inline{Rows: [][]keyboard.Button{
		{{Text: "A", Data: "a"}, {Text: "B", Data: "b"}},
		{{Text: "C", Data: "c"}},
	}}

	markup := toMarkup(kb)
	if len(markup.InlineKeyboard) != 2 {
		t.Fatalf("rows = %d, want 2", len(markup.InlineKeyboard))
	}
	if markup.InlineKeyboard[0][1].Text != "B" || markup.InlineKeyboard[0][1].Data != "b" {
		t.Fatalf("button = %+v", markup.InlineKeyboard[0][1])
	}
	if markup.InlineKeyboard[1][0].Data != "c" {
		t.Fatalf("button = %+v", markup.InlineKeyboard[1][0])
	}
}

func TestStored(t *testing.T) {
	ref := MessageRef{ChatID: 42, MessageID: 7}

	messageID, chatID := stored(ref).MessageSig()
	if messageID != "7" || chatID != 42 {
		t.Fatalf("stored sig = %q, %d", messageID, chatID)
	}
}

func TestMessageRefZero(t *testing.T) {
	if !(MessageRef{}).Zero() {
		t.Fatal("empty ref must be zero")
	}
	if (MessageRef{ChatID: 1, MessageID: 2}).Zero() {
		t.Fatal("populated ref must not be zero")
	}
}
