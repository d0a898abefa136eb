// Package bot maps Telegram updates onto the report and ledger services.
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"gopkg.in/telegram-bot-api.v4"

	"stripbot/internal/amqp"
	"stripbot/internal/core"
	"stripbot/internal/services"
)

// Sender is the part of the Telegram API the handler talks to.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	AnswerCallbackQuery(config tgbotapi.CallbackConfig) (tgbotapi.APIResponse, error)
}

// IngestPublisher queues forwarded messages for the ingest consumer.
type IngestPublisher interface {
	PublishIngest(ctx context.Context, msg *amqp.IngestMessage) error
}

// Handler serves one bot. Updates must be passed in arrival order so a
// user's messages are collected in the order they were sent.
type Handler struct {
	sender  Sender
	reports *services.ReportService
	ledger  *services.LedgerService
	ingest  IngestPublisher
	pending *pendingIngest
}

// NewHandler wires the handler. ingest may be nil, in which case messages
// are collected inline.
func NewHandler(sender Sender, reports *services.ReportService, ledger *services.LedgerService, ingest IngestPublisher) *Handler {
	return &Handler{
		sender:  sender,
		reports: reports,
		ledger:  ledger,
		ingest:  ingest,
		pending: newPendingIngest(ingestWaitTimeout),
	}
}

// Run long-polls Telegram until ctx is cancelled.
func Run(ctx context.Context, api *tgbotapi.BotAPI, h *Handler) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates, err := api.GetUpdatesChan(u)
	if err != nil {
		return fmt.Errorf("get updates channel: %w", err)
	}
	slog.InfoContext(ctx, "Telegram polling started", "bot", api.Self.UserName)

	for {
		select {
		case <-ctx.Done():
			api.StopReceivingUpdates()
			slog.InfoContext(ctx, "Telegram polling stopped")
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			h.HandleUpdate(ctx, update)
		}
	}
}

// HandleUpdate dispatches one update.
func (h *Handler) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.CallbackQuery != nil:
		h.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil && update.Message.From != nil:
		h.handleMessage(ctx, update.Message)
	}
}

func (h *Handler) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	userID := int64(msg.From.ID)
	chatID := msg.Chat.ID

	if !msg.IsCommand() {
		h.collect(ctx, userID, chatID, msg)
		return
	}

	cmd := msg.Command()
	slog.DebugContext(ctx, "Command received", "user_id", userID, "command", cmd)

	switch cmd {
	case "start", "process", "clear", "stats", "export_csv", "export_json":
		if !h.settled(ctx, userID, chatID) {
			return
		}
	}

	switch cmd {
	case "start":
		h.cmdStart(ctx, userID, chatID, msg.From.UserName)
	case "help":
		h.reply(ctx, chatID, helpText(h.reports.Threshold()))
	case "process":
		h.cmdProcess(ctx, userID, chatID)
	case "clear":
		h.reports.Clear(ctx, userID)
		h.reply(ctx, chatID, "✅ Your collection has been cleared. You can start forwarding new messages now.")
	case "stats":
		h.cmdStats(ctx, userID, chatID)
	case "settings":
		h.cmdSettings(ctx, userID, chatID)
	case "export_csv":
		h.cmdExport(ctx, userID, chatID, exportColumnsCSV)
	case "export_json":
		h.cmdExport(ctx, userID, chatID, exportColumnsJSON)
	case "banks":
		h.cmdBanks(ctx, userID, chatID)
	case "addbank":
		h.cmdAddBank(ctx, userID, chatID, msg.CommandArguments())
	case "deposit":
		h.cmdDeposit(ctx, userID, chatID, msg.CommandArguments())
	case "limit":
		h.cmdLimit(ctx, userID, chatID, msg.CommandArguments())
	case "ledger":
		h.cmdLedger(ctx, userID, chatID, msg.CommandArguments())
	case "export_ledger":
		h.cmdExportLedger(ctx, userID, chatID, msg.CommandArguments())
	default:
		h.reply(ctx, chatID, "❓ Unknown command. Use /help to see what I can do.")
	}
}

// collect queues the message when AMQP is configured and falls back to
// collecting inline when publishing fails.
func (h *Handler) collect(ctx context.Context, userID, chatID int64, msg *tgbotapi.Message) {
	text := msg.Text
	if text == "" {
		text = msg.Caption
	}
	if text == "" {
		h.reply(ctx, chatID, "Please forward me a text message.")
		return
	}

	if h.ingest != nil {
		h.pending.add(userID, msg.MessageID)
		err := h.ingest.PublishIngest(ctx, amqp.NewIngestMessage(userID, chatID, msg.MessageID, text))
		if err == nil {
			return
		}
		h.pending.remove(userID, msg.MessageID)
		slog.ErrorContext(ctx, "Failed to publish ingest message, collecting inline",
			"user_id", userID, "error", err)
		// Earlier messages may still be queued.
		if !h.pending.wait(ctx, userID) {
			slog.WarnContext(ctx, "Queued messages not collected in time, order may differ",
				"user_id", userID)
		}
	}

	h.collectText(ctx, userID, chatID, core.RawMessage{
		Text:       text,
		MessageID:  msg.MessageID,
		ReceivedAt: time.Unix(int64(msg.Date), 0),
	})
}

// HandleIngest collects a message taken from the ingest queue.
func (h *Handler) HandleIngest(ctx context.Context, msg *amqp.IngestMessage) error {
	h.collectText(ctx, msg.UserID, msg.ChatID, core.RawMessage{
		Text:       msg.Text,
		MessageID:  msg.MessageID,
		ReceivedAt: msg.Timestamp,
	})
	h.pending.remove(msg.UserID, msg.MessageID)
	return nil
}

// settled waits until the user's queued messages are collected, so a report
// never sees a partial batch.
func (h *Handler) settled(ctx context.Context, userID, chatID int64) bool {
	if h.pending.wait(ctx, userID) {
		return true
	}
	h.reply(ctx, chatID, "⏳ Some of your messages are still being collected. Please try again in a moment.")
	return false
}

func (h *Handler) collectText(ctx context.Context, userID, chatID int64, raw core.RawMessage) {
	res, err := h.reports.Collect(ctx, userID, raw)
	if err != nil {
		h.replyError(ctx, chatID, err)
		return
	}
	if res.Preferences.SilentCollection {
		return
	}
	h.reply(ctx, chatID, collectPreview(res))
}

func (h *Handler) reply(ctx context.Context, chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	h.send(ctx, msg)
}

func (h *Handler) send(ctx context.Context, c tgbotapi.Chattable) {
	if _, err := h.sender.Send(c); err != nil {
		slog.ErrorContext(ctx, "Failed to send Telegram message", "error", err)
	}
}
