package bot

import (
	"context"
	"log"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"taskly/internal/i18n"
	"taskly/internal/model"
	"taskly/internal/service"
)

type conversationStage int

const (
	stageNone conversationStage = iota
	stageTitle
	stageDescription
	stageDueType
	stageDueDate
	stageRecurring
	stageRecurringPattern
)

type conversationState struct {
	stage conversationStage
	input service.TaskInput
}

func (b *Bot) startNewTaskConversation(cu *chatUser) error {
	log.Printf("[info] start new task conversation user=%d", cu.tgID)
	b.setConversation(cu.tgID, &conversationState{stage: stageTitle})
	return b.sendWithReplyMarkup(cu.chatID, i18n.T(cu.lang, i18n.AskTitle), cancelKeyboard(cu.lang))
}

func (b *Bot) handleConversation(ctx context.Context, cu *chatUser, raw string) error {
	state := b.getConversation(cu.tgID)
	if state == nil {
		return nil
	}

	text := strings.TrimSpace(raw)
	switch state.stage {
	case stageTitle:
		if text == "" {
			return b.sendWithReplyMarkup(cu.chatID, i18n.T(cu.lang, i18n.ErrTitleRequired), cancelKeyboard(cu.lang))
		}
		state.input.Title = text
		state.stage = stageDescription
		return b.sendWithReplyMarkup(cu.chatID, i18n.T(cu.lang, i18n.AskDescription), skipKeyboard(cu.lang))
	case stageDescription:
		if !isSkipInput(text) {
			state.input.Description = text
		}
		state.stage = stageDueType
		return b.sendWithReplyMarkup(cu.chatID, i18n.T(cu.lang, i18n.AskDueType), dueTypeKeyboard(cu.lang))
	case stageDueType:
		dueType, ok := parseDueType(text)
		if !ok {
			return b.sendWithReplyMarkup(cu.chatID, i18n.T(cu.lang, i18n.AskDueType), dueTypeKeyboard(cu.lang))
		}
		state.input.DueDateType = dueType
		if dueType == model.DueDate {
			state.stage = stageDueDate
			return b.sendWithReplyMarkup(cu.chatID, i18n.T(cu.lang, i18n.AskDate), cancelKeyboard(cu.lang))
		}
		state.stage = stageRecurring
		return b.sendWithReplyMarkup(cu.chatID, i18n.T(cu.lang, i18n.AskRecurring), yesNoKeyboard(cu.lang))
	case stageDueDate:
		parsed, err := time.ParseInLocation("2006-01-02", text, time.Local)
		if err != nil {
			return b.sendWithReplyMarkup(cu.chatID, i18n.T(cu.lang, i18n.BadDate), cancelKeyboard(cu.lang))
		}
		state.input.DueDate = &parsed
		state.stage = stageRecurring
		return b.sendWithReplyMarkup(cu.chatID, i18n.T(cu.lang, i18n.AskRecurring), yesNoKeyboard(cu.lang))
	case stageRecurring:
		switch {
		case isYesInput(text):
			state.input.IsRecurring = true
			state.stage = stageRecurringPattern
			return b.sendWithReplyMarkup(cu.chatID, i18n.T(cu.lang, i18n.AskPattern), patternKeyboard(cu.lang))
		case isNoInput(text):
			state.input.IsRecurring = false
			err := b.finishTaskCreation(ctx, cu, state.input)
			b.clearConversation(cu.tgID)
			return err
		default:
			return b.sendWithReplyMarkup(cu.chatID, i18n.T(cu.lang, i18n.AskRecurring), yesNoKeyboard(cu.lang))
		}
	case stageRecurringPattern:
		pattern, ok := parsePattern(text)
		if !ok {
			return b.sendWithReplyMarkup(cu.chatID, i18n.T(cu.lang, i18n.AskPattern), patternKeyboard(cu.lang))
		}
		state.input.RecurrencePattern = pattern
		err := b.finishTaskCreation(ctx, cu, state.input)
		b.clearConversation(cu.tgID)
		return err
	default:
		b.clearConversation(cu.tgID)
		return b.sendMenu(cu, i18n.T(cu.lang, i18n.DialogCancelled))
	}
}

func (b *Bot) finishTaskCreation(ctx context.Context, cu *chatUser, input service.TaskInput) error {
	task, err := b.tasks.Create(ctx, cu.user.ID, input)
	if err != nil {
		return b.failure(cu, err)
	}

	log.Printf("[info] task created id=%s user=%s recurring=%t", task.ID, cu.user.ID, task.IsRecurring)

	msg := tgbotapi.NewMessage(cu.chatID, i18n.T(cu.lang, i18n.TaskCreated, escape(task.Title)))
	msg.ReplyMarkup = mainMenuKeyboard(cu.lang)
	msg.ParseMode = tgbotapi.ModeHTML
	if _, err := b.sender.Send(msg); err != nil {
		return err
	}
	return b.sendTaskList(ctx, cu, "")
}

func parseDueType(text string) (model.DueDateType, bool) {
	switch {
	case isLabel(text, i18n.DueLabelDate) || strings.EqualFold(text, string(model.DueDate)):
		return model.DueDate, true
	case isLabel(text, i18n.DueLabelUnknown) || strings.EqualFold(text, string(model.DueUnknown)) || isSkipInput(text):
		return model.DueUnknown, true
	case isLabel(text, i18n.DueLabelUrgent) || strings.EqualFold(text, string(model.DueUrgent)):
		return model.DueUrgent, true
	case isLabel(text, i18n.DueLabelASAP) || strings.EqualFold(text, string(model.DueASAP)):
		return model.DueASAP, true
	default:
		return "", false
	}
}

func parsePattern(text string) (model.Recurrence, bool) {
	switch {
	case isLabel(text, i18n.RecurDaily) || strings.EqualFold(text, string(model.RecurDaily)):
		return model.RecurDaily, true
	case isLabel(text, i18n.RecurWeekly) || strings.EqualFold(text, string(model.RecurWeekly)):
		return model.RecurWeekly, true
	case isLabel(text, i18n.RecurMonthly) || strings.EqualFold(text, string(model.RecurMonthly)):
		return model.RecurMonthly, true
	default:
		return "", false
	}
}
