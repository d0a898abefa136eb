package bot

import (
	"fmt"
	"html"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"gopkg.in/telegram-bot-api.v4"

	"stripbot/internal/core"
	"stripbot/internal/export"
	"stripbot/internal/services"
	"stripbot/internal/session"
)

// maxMessageRunes keeps replies under Telegram's 4096 character limit.
const maxMessageRunes = 4000

func escape(s string) string {
	return html.EscapeString(s)
}

func welcomeText(username string, threshold decimal.Decimal) string {
	t := threshold.String()
	return fmt.Sprintf("Hi %s! I'm a Decimal Stripper Bot that can separate amounts and charges.\n\n"+
		"Forward me messages containing numbers. I'll automatically categorize:\n"+
		"- Amounts (values &gt; %s): decimal parts will be stripped\n"+
		"- Charges (values ≤ %s): kept exactly as they are\n\n"+
		"When you're ready, use /process to see the separated results.\n\n"+
		"Use /settings to customize how I process your numbers.\n"+
		"Use /deposit to track bank deposits against a daily limit.\n"+
		"Use /clear to start a new collection.\n"+
		"Use /help for more information.",
		escape(username), t, t)
}

func helpText(threshold decimal.Decimal) string {
	t := threshold.String()
	return "Here's how to use this bot:\n\n" +
		"📝 <b>Basic Commands</b>:\n" +
		"/start - Begin collecting messages\n" +
		"/help - Show this help message\n" +
		"/process - Process all collected messages and separate amounts and charges\n" +
		"/clear - Start over with a new collection\n" +
		"/settings - Customize your number processing preferences\n" +
		"/stats - View statistics about your collected messages\n\n" +
		"📊 <b>Export Options</b>:\n" +
		"/export_csv - Export results as a CSV file with row-by-row sums\n" +
		"/export_json - Export results as a JSON file\n\n" +
		"🏦 <b>Bank Ledger</b>:\n" +
		"/banks - Pick a bank for a deposit\n" +
		"/addbank &lt;name&gt; - Add a bank that is not listed\n" +
		"/deposit &lt;bank&gt;; &lt;amount&gt;[; YYYY-MM-DD] - Record a deposit\n" +
		"/limit &lt;bank&gt;; &lt;amount&gt;[; YYYY-MM-DD] - Set the deposit limit\n" +
		"/ledger [YYYY-MM-DD] - Show the ledger of a day\n" +
		"/export_ledger [YYYY-MM-DD] - Export the ledger as CSV\n\n" +
		"💡 <b>How It Works</b>:\n" +
		"- Values &gt; " + t + " are considered 'Amounts' and decimal parts are stripped\n" +
		"- Values ≤ " + t + " are considered 'Charges' and kept as they are\n" +
		"- Use /process when you're done collecting messages\n\n" +
		"🔎 <b>Supported Number Formats</b>:\n" +
		"- Whole numbers (123)\n" +
		"- Standard decimal (123.45)\n" +
		"- Comma separator (123,45)\n" +
		"- Thousands separators (1,234.56 or 1.234,56)\n" +
		"- With currency symbols ($123.45, €123,45)\n" +
		"- Negative values (-123.45)"
}

func collectPreview(res services.CollectResult) string {
	if len(res.Values) == 0 {
		return fmt.Sprintf("✅ Message collected! (No numbers found)\n"+
			"📝 You now have %d messages in your collection.", res.MessageCount)
	}
	preview := make([]string, len(res.Values))
	for i, v := range res.Values {
		preview[i] = escape(v.DisplayText(res.Preferences.IncludeCurrency))
	}
	return fmt.Sprintf("✅ Message collected! Found these numbers: %s\n"+
		"📝 You now have %d messages in your collection.",
		strings.Join(preview, ", "), res.MessageCount)
}

func reportText(r services.Report, threshold decimal.Decimal) string {
	if len(r.Batch) == 0 {
		return "❗ I couldn't find any numbers in your collected messages."
	}
	if r.Preferences.OutputFormat == session.FormatDetailed {
		return detailedReport(r, threshold)
	}
	return simpleReport(r, threshold)
}

func simpleReport(r services.Report, threshold decimal.Decimal) string {
	cur := r.Preferences.IncludeCurrency
	text := fmt.Sprintf("📊 <b>Processed Results</b>\n\n"+
		"<b>Amounts (&gt;%s):</b> [decimal parts stripped]\n%s\n\n"+
		"<b>Charges (≤%s):</b> [kept exactly as found]\n%s\n\n"+
		"%s\n"+
		"Use /export_csv or /export_json for detailed outputs.",
		threshold, valueLines(r.Batch.Amounts(), cur),
		threshold, valueLines(r.Batch.Charges(), cur),
		foundLine(r))
	if utf8.RuneCountInString(text) > maxMessageRunes {
		return truncatedReport(r)
	}
	return text
}

func detailedReport(r services.Report, threshold decimal.Decimal) string {
	cur := r.Preferences.IncludeCurrency
	var amounts, charges []string
	for i, v := range r.Batch {
		line := fmt.Sprintf("%d. Original: %s → Processed: %s", i+1, escape(v.RawText), escape(v.DisplayText(cur)))
		if v.Kind == core.KindAmount {
			amounts = append(amounts, line)
		} else {
			charges = append(charges, line)
		}
	}
	text := fmt.Sprintf("📊 <b>Detailed Results</b>\n\n"+
		"<b>Amounts (&gt;%s):</b> [decimal parts stripped]\n%s\n\n"+
		"<b>Charges (≤%s):</b> [kept exactly as found]\n%s\n\n"+
		"%s",
		threshold, joinOrNone(amounts), threshold, joinOrNone(charges), foundLine(r))
	if utf8.RuneCountInString(text) > maxMessageRunes {
		return truncatedReport(r)
	}
	return text
}

func truncatedReport(r services.Report) string {
	return fmt.Sprintf("📊 <b>Results (Truncated)</b>\n\n"+
		"<b>Amounts Count:</b> %d\n"+
		"<b>Charges Count:</b> %d\n\n"+
		"The full output is too long to display. Please use /export_csv or /export_json for the complete results.",
		r.Summary.AmountCount, r.Summary.ChargeCount)
}

func foundLine(r services.Report) string {
	return fmt.Sprintf("Found %d numbers (%d amounts, %d charges) from %d messages.",
		r.Summary.TotalCount, r.Summary.AmountCount, r.Summary.ChargeCount, r.Messages)
}

func valueLines(b core.Batch, includeCurrency bool) string {
	lines := make([]string, len(b))
	for i, v := range b {
		lines[i] = escape(v.DisplayText(includeCurrency))
	}
	return joinOrNone(lines)
}

func joinOrNone(lines []string) string {
	if len(lines) == 0 {
		return "None found"
	}
	return strings.Join(lines, "\n")
}

func statsText(r services.Report, threshold decimal.Decimal) string {
	s := r.Summary
	return fmt.Sprintf("📊 <b>Collection Statistics</b>\n\n"+
		"📱 Total Messages: %d\n"+
		"🔢 Total Numbers Found: %d\n"+
		"💰 Amounts (&gt;%s): %d - decimal parts stripped\n"+
		"💸 Charges (≤%s): %d - kept exactly as found\n\n"+
		"🔍 Numbers with Decimal Part: %d\n"+
		"🔍 Whole Numbers: %d\n\n"+
		"Use /process to see the actual values.",
		r.Messages, s.TotalCount, threshold, s.AmountCount, threshold, s.ChargeCount,
		s.DecimalCount, s.WholeCount)
}

func onOff(b bool) string {
	if b {
		return "ON ✅"
	}
	return "OFF ❌"
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

func settingsText(p session.Preferences) string {
	format := string(p.OutputFormat)
	if format != "" {
		format = strings.ToUpper(format[:1]) + format[1:]
	}
	return fmt.Sprintf("⚙️ <b>Current Settings</b>\n\n"+
		"💱 Include Currency: %s\n"+
		"📋 Output Format: %s\n"+
		"🔕 Silent Collection: %s\n\n"+
		"Click below to change settings:",
		yesNo(p.IncludeCurrency), format, yesNo(p.SilentCollection))
}

func settingsKeyboard(p session.Preferences) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Currency: "+onOff(p.IncludeCurrency), cbToggleCurrency),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Format: Simple", cbFormatSimple),
			tgbotapi.NewInlineKeyboardButtonData("Format: Detailed", cbFormatDetailed),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Silent collection: "+onOff(p.SilentCollection), cbToggleSilent),
		),
	)
}

// bankKeyboard lays banks out two per row with a final row for banks that
// are not listed. Callback data carries the index into banks.
func bankKeyboard(banks []string) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for i := 0; i < len(banks); i += 2 {
		row := tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(banks[i], fmt.Sprintf("%s%d", cbBankPrefix, i)),
		)
		if i+1 < len(banks) {
			row = append(row, tgbotapi.NewInlineKeyboardButtonData(banks[i+1], fmt.Sprintf("%s%d", cbBankPrefix, i+1)))
		}
		rows = append(rows, row)
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("Enter a different bank name", cbBankOther),
	))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func exportCaption(f export.Format, s core.Summary) string {
	if f == export.FormatColumnsJSON {
		return fmt.Sprintf("📊 JSON export with %d amounts, %d charges, and their sum.", s.AmountCount, s.ChargeCount)
	}
	return fmt.Sprintf("📊 CSV export with %d amounts, %d charges, and row-by-row sums.", s.AmountCount, s.ChargeCount)
}

func entryText(e core.BankLedgerEntry) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🏦 <b>%s</b> (%s)\n", escape(e.BankName), e.Date)
	fmt.Fprintf(&b, "Opening balance: %s\n", e.OpeningBalance)
	fmt.Fprintf(&b, "Deposits today: %s\n", e.DepositsToday)
	if !e.Limit.Valid {
		b.WriteString("Limit: not set")
		return b.String()
	}
	fmt.Fprintf(&b, "Limit: %s\n", e.Limit.Decimal)
	fmt.Fprintf(&b, "Remaining: %s", e.Remaining.Decimal)
	if e.OverLimit() {
		b.WriteString(" ⚠️ over limit")
	}
	return b.String()
}

func ledgerText(day core.Date, entries []core.BankLedgerEntry) string {
	if len(entries) == 0 {
		return fmt.Sprintf("No ledger entries for %s. Record one with /deposit.", day)
	}
	parts := make([]string, len(entries))
	for i, e := range entries {
		parts[i] = entryText(e)
	}
	text := fmt.Sprintf("📒 <b>Ledger for %s</b>\n\n%s", day, strings.Join(parts, "\n\n"))
	if utf8.RuneCountInString(text) > maxMessageRunes {
		return fmt.Sprintf("📒 <b>Ledger for %s</b>\n\n%d banks. Use /export_ledger for the full ledger.", day, len(entries))
	}
	return text
}
