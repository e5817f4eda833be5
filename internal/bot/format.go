package bot

import (
	"fmt"
	"html"
	"regexp"
	"strings"
	"time"
	"unicode"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"taskly/internal/classifier"
	"taskly/internal/i18n"
	"taskly/internal/model"
)

const (
	iconDefault   = "🟢"
	iconDue       = "⏳"
	iconOverdue   = "⚠️"
	iconUrgent    = "🔥"
	iconASAP      = "⚡"
	iconDone      = "✅"
	iconRecurring = "♻️"
)

var boldPattern = regexp.MustCompile(`\*\*(.+?)\*\*`)

// renderMarkdown escapes model output for Telegram HTML and turns **bold**
// spans into <b> tags.
func renderMarkdown(s string) string {
	return boldPattern.ReplaceAllString(escape(s), "<b>$1</b>")
}

func escape(s string) string {
	return html.EscapeString(s)
}

func formatTask(task model.Task, lang string, now time.Time) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("%s <code>%s</code> %s", taskIcon(task, now), task.ShortID(), escape(normalizeTitle(task.Title))))
	if task.IsRecurring {
		b.WriteString(" " + iconRecurring)
	}
	b.WriteByte('\n')

	switch task.DueDateType {
	case model.DueDate:
		if task.DueDate != nil {
			d := task.DueDate.In(now.Location()).Format("2006-01-02")
			if classifier.IsOverdue(task, now) {
				b.WriteString(fmt.Sprintf("   ⏰ %s · <b>%s</b>\n", d, i18n.T(lang, i18n.Overdue)))
			} else {
				b.WriteString(fmt.Sprintf("   ⏰ %s\n", d))
			}
		}
	case model.DueUrgent:
		b.WriteString(fmt.Sprintf("   %s\n", i18n.T(lang, i18n.DueLabelUrgent)))
	case model.DueASAP:
		b.WriteString(fmt.Sprintf("   %s\n", i18n.T(lang, i18n.DueLabelASAP)))
	}
	if task.Status != model.StatusPending {
		b.WriteString(fmt.Sprintf("   • %s\n", statusLabel(task.Status, lang)))
	}
	if task.Description != "" {
		b.WriteString(fmt.Sprintf("   📝 %s\n", escape(task.Description)))
	}
	b.WriteByte('\n')
	return b.String()
}

func taskIcon(task model.Task, now time.Time) string {
	switch {
	case task.IsCompleted():
		return iconDone
	case task.DueDateType == model.DueUrgent:
		return iconUrgent
	case task.DueDateType == model.DueASAP:
		return iconASAP
	case classifier.IsOverdue(task, now):
		return iconOverdue
	case classifier.IsDueToday(task, now):
		return iconDue
	default:
		return iconDefault
	}
}

func statusLabel(status model.Status, lang string) string {
	switch status {
	case model.StatusInProgress:
		return i18n.T(lang, i18n.StatusInProgress)
	case model.StatusCompleted:
		return i18n.T(lang, i18n.StatusCompleted)
	default:
		return i18n.T(lang, i18n.StatusPending)
	}
}

func shortTitle(title string, maxLen int) string {
	clean := strings.TrimSpace(strings.ReplaceAll(title, "\n", " "))
	clean = normalizeTitle(clean)
	runes := []rune(clean)
	if len(runes) <= maxLen {
		return clean
	}
	if maxLen <= 1 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-1]) + "…"
}

func normalizeTitle(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return value
	}
	runes := []rune(value)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

// isLabel reports whether text matches key in any supported language.
func isLabel(text, key string) bool {
	value := strings.TrimSpace(strings.ToLower(text))
	if value == "" {
		return false
	}
	for _, lang := range []string{"he", "en"} {
		if value == strings.ToLower(i18n.T(lang, key)) {
			return true
		}
	}
	return false
}

func isSkipInput(text string) bool {
	value := strings.TrimSpace(strings.ToLower(text))
	return value == "-" || value == "skip" || value == "דלג" || isLabel(text, i18n.BtnSkip)
}

func isYesInput(text string) bool {
	value := strings.TrimSpace(strings.ToLower(text))
	return value == "y" || value == "yes" || isLabel(text, i18n.BtnYes)
}

func isNoInput(text string) bool {
	value := strings.TrimSpace(strings.ToLower(text))
	return value == "n" || value == "no" || value == "-" || isLabel(text, i18n.BtnNo)
}

func keyboard(rows ...[]tgbotapi.KeyboardButton) tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(rows...)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = true
	return kb
}

func button(lang, key string) tgbotapi.KeyboardButton {
	return tgbotapi.NewKeyboardButton(i18n.T(lang, key))
}

func mainMenuKeyboard(lang string) tgbotapi.ReplyKeyboardMarkup {
	kb := keyboard(
		tgbotapi.NewKeyboardButtonRow(button(lang, i18n.MenuNewTask), button(lang, i18n.MenuTasks)),
		tgbotapi.NewKeyboardButtonRow(button(lang, i18n.MenuRecommend), button(lang, i18n.MenuAssistant)),
	)
	kb.OneTimeKeyboard = false
	return kb
}

func confirmKeyboard(lang string) tgbotapi.ReplyKeyboardMarkup {
	return keyboard(tgbotapi.NewKeyboardButtonRow(button(lang, i18n.BtnConfirm), button(lang, i18n.BtnCancel)))
}

func cancelKeyboard(lang string) tgbotapi.ReplyKeyboardMarkup {
	return keyboard(tgbotapi.NewKeyboardButtonRow(button(lang, i18n.BtnCancelDialog)))
}

func skipKeyboard(lang string) tgbotapi.ReplyKeyboardMarkup {
	return keyboard(
		tgbotapi.NewKeyboardButtonRow(button(lang, i18n.BtnSkip)),
		tgbotapi.NewKeyboardButtonRow(button(lang, i18n.BtnCancelDialog)),
	)
}

func yesNoKeyboard(lang string) tgbotapi.ReplyKeyboardMarkup {
	return keyboard(tgbotapi.NewKeyboardButtonRow(
		button(lang, i18n.BtnYes), button(lang, i18n.BtnNo), button(lang, i18n.BtnCancelDialog),
	))
}

func dueTypeKeyboard(lang string) tgbotapi.ReplyKeyboardMarkup {
	return keyboard(
		tgbotapi.NewKeyboardButtonRow(button(lang, i18n.DueLabelDate), button(lang, i18n.DueLabelUnknown)),
		tgbotapi.NewKeyboardButtonRow(button(lang, i18n.DueLabelUrgent), button(lang, i18n.DueLabelASAP)),
		tgbotapi.NewKeyboardButtonRow(button(lang, i18n.BtnCancelDialog)),
	)
}

func patternKeyboard(lang string) tgbotapi.ReplyKeyboardMarkup {
	return keyboard(
		tgbotapi.NewKeyboardButtonRow(button(lang, i18n.RecurDaily), button(lang, i18n.RecurWeekly), button(lang, i18n.RecurMonthly)),
		tgbotapi.NewKeyboardButtonRow(button(lang, i18n.BtnCancelDialog)),
	)
}
