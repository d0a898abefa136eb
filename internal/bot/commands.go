package bot

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"gopkg.in/telegram-bot-api.v4"

	"stripbot/internal/core"
	"stripbot/internal/export"
	"stripbot/internal/services"
	"stripbot/internal/session"
)

const (
	exportColumnsCSV  = export.FormatColumns
	exportColumnsJSON = export.FormatColumnsJSON

	cbToggleCurrency = "toggle_currency"
	cbFormatSimple   = "set_format_simple"
	cbFormatDetailed = "set_format_detailed"
	cbToggleSilent   = "toggle_silent"
	cbBankPrefix     = "bank:"
	cbBankOther      = "bank:other"
)

const noMessagesText = "❗ No messages collected yet. Forward some messages first."

func (h *Handler) cmdStart(ctx context.Context, userID, chatID int64, username string) {
	h.reports.Start(ctx, userID)
	if username == "" {
		username = "there"
	}
	h.reply(ctx, chatID, welcomeText(username, h.reports.Threshold()))
}

func (h *Handler) cmdProcess(ctx context.Context, userID, chatID int64) {
	r, err := h.reports.Process(ctx, userID)
	if err != nil {
		h.replyError(ctx, chatID, err)
		return
	}
	h.reply(ctx, chatID, reportText(r, h.reports.Threshold()))
}

func (h *Handler) cmdStats(ctx context.Context, userID, chatID int64) {
	r, err := h.reports.Stats(ctx, userID)
	if err != nil {
		h.replyError(ctx, chatID, err)
		return
	}
	h.reply(ctx, chatID, statsText(r, h.reports.Threshold()))
}

func (h *Handler) cmdSettings(ctx context.Context, userID, chatID int64) {
	prefs := h.reports.Preferences(userID)
	msg := tgbotapi.NewMessage(chatID, settingsText(prefs))
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = settingsKeyboard(prefs)
	h.send(ctx, msg)
}

func (h *Handler) cmdExport(ctx context.Context, userID, chatID int64, f export.Format) {
	r, err := h.reports.Stats(ctx, userID)
	if err != nil {
		h.replyError(ctx, chatID, err)
		return
	}
	if len(r.Batch) == 0 {
		h.reply(ctx, chatID, "❗ I couldn't find any numbers in your collected messages.")
		return
	}

	var buf bytes.Buffer
	name, err := h.reports.Export(ctx, userID, f, h.ledger.Today(), &buf)
	if err != nil {
		h.replyError(ctx, chatID, err)
		return
	}

	doc := tgbotapi.NewDocumentUpload(chatID, tgbotapi.FileBytes{Name: name, Bytes: buf.Bytes()})
	doc.Caption = exportCaption(f, r.Summary)
	h.send(ctx, doc)
}

func (h *Handler) cmdBanks(ctx context.Context, userID, chatID int64) {
	msg := tgbotapi.NewMessage(chatID, "🏦 Please select a bank for deposit:")
	msg.ReplyMarkup = bankKeyboard(h.ledger.Banks(userID))
	h.send(ctx, msg)
}

func (h *Handler) cmdAddBank(ctx context.Context, userID, chatID int64, args string) {
	name, err := h.ledger.AddCustomBank(ctx, userID, args)
	if err != nil {
		h.reply(ctx, chatID, "Usage: /addbank <bank name>")
		return
	}
	h.reply(ctx, chatID, fmt.Sprintf("✅ Bank <b>%s</b> is available for deposits.", escape(name)))
}

// cmdDeposit handles "/deposit bank; amount[; YYYY-MM-DD]".
func (h *Handler) cmdDeposit(ctx context.Context, userID, chatID int64, args string) {
	if strings.TrimSpace(args) == "" {
		h.cmdBanks(ctx, userID, chatID)
		return
	}
	bank, amount, day, err := parseLedgerArgs(args)
	if err != nil {
		h.reply(ctx, chatID, "Usage: /deposit <bank>; <amount>[; YYYY-MM-DD]")
		return
	}
	entry, err := h.ledger.RecordDeposit(ctx, userID, bank, amount, day)
	if err != nil {
		h.replyError(ctx, chatID, err)
		return
	}
	h.reply(ctx, chatID, "✅ Deposit recorded.\n\n"+entryText(entry))
}

// cmdLimit handles "/limit bank; amount[; YYYY-MM-DD]".
func (h *Handler) cmdLimit(ctx context.Context, userID, chatID int64, args string) {
	bank, amount, day, err := parseLedgerArgs(args)
	if err != nil {
		h.reply(ctx, chatID, "Usage: /limit <bank>; <amount>[; YYYY-MM-DD]")
		return
	}
	entry, err := h.ledger.SetLimit(ctx, userID, bank, amount, day)
	if err != nil {
		h.replyError(ctx, chatID, err)
		return
	}
	h.reply(ctx, chatID, "✅ Limit set.\n\n"+entryText(entry))
}

func (h *Handler) cmdLedger(ctx context.Context, userID, chatID int64, args string) {
	day, err := parseOptionalDay(args)
	if err != nil {
		h.reply(ctx, chatID, "Usage: /ledger [YYYY-MM-DD]")
		return
	}
	if day.IsZero() {
		day = h.ledger.Today()
	}
	entries, err := h.ledger.Ledger(ctx, userID, day)
	if err != nil {
		h.replyError(ctx, chatID, err)
		return
	}
	h.reply(ctx, chatID, ledgerText(day, entries))
}

func (h *Handler) cmdExportLedger(ctx context.Context, userID, chatID int64, args string) {
	day, err := parseOptionalDay(args)
	if err != nil {
		h.reply(ctx, chatID, "Usage: /export_ledger [YYYY-MM-DD]")
		return
	}
	if day.IsZero() {
		day = h.ledger.Today()
	}
	entries, err := h.ledger.Ledger(ctx, userID, day)
	if err != nil {
		h.replyError(ctx, chatID, err)
		return
	}
	if len(entries) == 0 {
		h.reply(ctx, chatID, "No ledger entries for "+day.String()+".")
		return
	}

	var buf bytes.Buffer
	if err := export.WriteLedger(&buf, export.FormatCSV, core.LedgerRows(entries)); err != nil {
		h.replyError(ctx, chatID, err)
		return
	}
	name := fmt.Sprintf("stripbot_ledger_%d_%s.csv", userID, day.Format("20060102"))
	doc := tgbotapi.NewDocumentUpload(chatID, tgbotapi.FileBytes{Name: name, Bytes: buf.Bytes()})
	doc.Caption = fmt.Sprintf("🏦 Ledger for %s with %d banks.", day, len(entries))
	h.send(ctx, doc)
}

func (h *Handler) handleCallback(ctx context.Context, q *tgbotapi.CallbackQuery) {
	if q.From == nil || q.Message == nil {
		return
	}
	userID := int64(q.From.ID)
	chatID := q.Message.Chat.ID

	var answer string
	switch data := q.Data; {
	case data == cbToggleCurrency || data == cbFormatSimple || data == cbFormatDetailed || data == cbToggleSilent:
		prefs := h.reports.SetPreferences(ctx, userID, func(p *session.Preferences) {
			switch data {
			case cbToggleCurrency:
				p.IncludeCurrency = !p.IncludeCurrency
			case cbFormatSimple:
				p.OutputFormat = session.FormatSimple
			case cbFormatDetailed:
				p.OutputFormat = session.FormatDetailed
			case cbToggleSilent:
				p.SilentCollection = !p.SilentCollection
			}
		})
		edit := tgbotapi.NewEditMessageText(chatID, q.Message.MessageID, settingsText(prefs))
		edit.ParseMode = tgbotapi.ModeHTML
		kb := settingsKeyboard(prefs)
		edit.ReplyMarkup = &kb
		h.send(ctx, edit)
		answer = "Setting updated: " + data

	case data == cbBankOther:
		h.send(ctx, tgbotapi.NewEditMessageText(chatID, q.Message.MessageID,
			"🏦 Add your bank with /addbank <bank name>, then record deposits with /deposit."))

	case strings.HasPrefix(data, cbBankPrefix):
		banks := h.ledger.Banks(userID)
		i, err := strconv.Atoi(strings.TrimPrefix(data, cbBankPrefix))
		if err != nil || i < 0 || i >= len(banks) {
			answer = "Unknown bank"
			break
		}
		edit := tgbotapi.NewEditMessageText(chatID, q.Message.MessageID,
			fmt.Sprintf("🏦 <b>%s</b> selected.\nSend: /deposit %s; &lt;amount&gt;", escape(banks[i]), escape(banks[i])))
		edit.ParseMode = tgbotapi.ModeHTML
		h.send(ctx, edit)

	default:
		slog.WarnContext(ctx, "Unknown callback data", "user_id", userID, "data", data)
	}

	if _, err := h.sender.AnswerCallbackQuery(tgbotapi.NewCallback(q.ID, answer)); err != nil {
		slog.ErrorContext(ctx, "Failed to answer callback query", "error", err)
	}
}

func (h *Handler) replyError(ctx context.Context, chatID int64, err error) {
	var verr *core.ValidationError
	switch {
	case errors.Is(err, session.ErrNoMessages):
		h.reply(ctx, chatID, noMessagesText)
	case errors.Is(err, services.ErrEmptyMessage):
		h.reply(ctx, chatID, "Please forward me a text message.")
	case errors.Is(err, core.ErrUnknownBank):
		h.reply(ctx, chatID, "❗ Unknown bank. Use /banks to see the list or /addbank to add yours.")
	case errors.As(err, &verr):
		h.reply(ctx, chatID, "❗ "+escape(verr.Error()))
	default:
		slog.ErrorContext(ctx, "Command failed", "chat_id", chatID, "error", err)
		h.reply(ctx, chatID, "❗ Something went wrong. Please try again.")
	}
}

// parseLedgerArgs splits "bank; amount[; date]". The amount stays text so
// the ledger service validates it with the shared number rules.
func parseLedgerArgs(args string) (bank, amount string, day core.Date, err error) {
	parts := strings.Split(args, ";")
	if len(parts) < 2 || len(parts) > 3 {
		return "", "", core.Date{}, fmt.Errorf("expected bank; amount[; date]")
	}
	bank = strings.TrimSpace(parts[0])
	amount = strings.TrimSpace(parts[1])
	if bank == "" || amount == "" {
		return "", "", core.Date{}, fmt.Errorf("bank and amount are required")
	}
	if len(parts) == 3 {
		day, err = parseOptionalDay(parts[2])
		if err != nil {
			return "", "", core.Date{}, err
		}
	}
	return bank, amount, day, nil
}

func parseOptionalDay(s string) (core.Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return core.Date{}, nil
	}
	return core.ParseDate(s)
}
