// Package notify sends operator alerts about terminal payment states to a
// Telegram chat. It is optional: with no bot token configured the portal
// runs without it.
package notify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/sokonet/hotspot-portal/internal/payment"
)

// Telegram delivers alerts to a single admin chat.
type Telegram struct {
	bot    *bot.Bot
	chatID int64
	log    *slog.Logger
}

// NewTelegram creates the alert sender.
func NewTelegram(token string, chatID int64, log *slog.Logger) (*Telegram, error) {
	b, err := bot.New(token)
	if err != nil {
		return nil, fmt.Errorf("create bot: %w", err)
	}

	return &Telegram{bot: b, chatID: chatID, log: log}, nil
}

// PaymentOutcome reports a terminal session state. Delivery failures are
// logged, never propagated: alerting must not affect the payment flow.
func (t *Telegram) PaymentOutcome(ctx context.Context, phone string, snap payment.Snapshot) {
	var text string
	switch snap.State {
	case payment.StateActive:
		plan := ""
		if snap.Result != nil {
			plan = snap.Result.PlanName
		}
		text = fmt.Sprintf("✅ <b>Payment active</b>\nPhone: %s\nPlan: %s\nAttempts: %d",
			phone, plan, snap.Attempt)
	case payment.StateFailed:
		text = fmt.Sprintf("❌ <b>Payment failed</b>\nPhone: %s\nReason: %s",
			phone, snap.Detail)
	case payment.StateTimedOut:
		text = fmt.Sprintf("⏱ <b>Payment timed out</b>\nPhone: %s\nAttempts: %d\n%s",
			phone, snap.Attempt, snap.Detail)
	default:
		return
	}

	_, err := t.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    t.chatID,
		Text:      text,
		ParseMode: models.ParseModeHTML,
	})
	if err != nil {
		t.log.Error("send payment alert", "error", err)
	}
}
