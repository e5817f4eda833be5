package bot

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"taskly/internal/i18n"
	"taskly/internal/model"
	"taskly/internal/service"
)

const (
	cbCompletePrefix = "complete:"
	cbArchivePrefix  = "archive:"
	cbRestorePrefix  = "restore:"
)

type confirmationAction int

const (
	actionComplete confirmationAction = iota
	actionArchive
)

type confirmationRequest struct {
	taskID string
	action confirmationAction
}

func (b *Bot) sendTaskList(ctx context.Context, cu *chatUser, status model.Status) error {
	tasks, err := b.tasks.ListByStatus(ctx, cu.user.ID, status)
	if err != nil {
		return b.failure(cu, err)
	}
	if status == "" {
		tasks = openOnly(tasks)
	}
	if len(tasks) == 0 {
		return b.sendText(cu.chatID, i18n.T(cu.lang, i18n.TasksEmpty))
	}

	now := time.Now()
	var builder strings.Builder
	builder.WriteString(i18n.T(cu.lang, i18n.TasksHeader))
	builder.WriteString("\n\n")

	var buttons [][]tgbotapi.InlineKeyboardButton
	for _, task := range tasks {
		builder.WriteString(formatTask(task, cu.lang, now))
		var row []tgbotapi.InlineKeyboardButton
		if !task.IsCompleted() {
			row = append(row, tgbotapi.NewInlineKeyboardButtonData(
				fmt.Sprintf("%s %s", i18n.T(cu.lang, i18n.BtnComplete), shortTitle(task.Title, 24)),
				cbCompletePrefix+task.ID))
		}
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(i18n.T(cu.lang, i18n.BtnArchive), cbArchivePrefix+task.ID))
		buttons = append(buttons, row)
	}

	msg := tgbotapi.NewMessage(cu.chatID, strings.TrimSpace(builder.String()))
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(buttons...)
	msg.ParseMode = tgbotapi.ModeHTML
	_, err = b.sender.Send(msg)
	return err
}

func (b *Bot) sendArchive(ctx context.Context, cu *chatUser, query string) error {
	tasks, err := b.tasks.ListArchived(ctx, cu.user.ID, "", query)
	if err != nil {
		return b.failure(cu, err)
	}
	if len(tasks) == 0 {
		return b.sendText(cu.chatID, i18n.T(cu.lang, i18n.ArchiveEmpty))
	}

	now := time.Now()
	var builder strings.Builder
	builder.WriteString(i18n.T(cu.lang, i18n.ArchiveHeader))
	builder.WriteString("\n\n")

	var buttons [][]tgbotapi.InlineKeyboardButton
	for _, task := range tasks {
		builder.WriteString(formatTask(task, cu.lang, now))
		buttons = append(buttons, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(
				fmt.Sprintf("%s · %s", i18n.T(cu.lang, i18n.BtnRestore), shortTitle(task.Title, 20)),
				cbRestorePrefix+task.ID),
		))
	}

	msg := tgbotapi.NewMessage(cu.chatID, strings.TrimSpace(builder.String()))
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(buttons...)
	msg.ParseMode = tgbotapi.ModeHTML
	_, err = b.sender.Send(msg)
	return err
}

func (b *Bot) handleComplete(ctx context.Context, cu *chatUser, args string) error {
	if args == "" {
		return b.sendText(cu.chatID, i18n.T(cu.lang, i18n.Usage, "/complete &lt;id&gt;"))
	}
	task, err := b.tasks.Resolve(ctx, cu.user.ID, args)
	if err != nil {
		return b.failure(cu, err)
	}
	return b.completeTask(ctx, cu, task.ID, false)
}

func (b *Bot) handleStatus(ctx context.Context, cu *chatUser, args string) error {
	fields := strings.Fields(args)
	if len(fields) != 2 {
		return b.sendText(cu.chatID, i18n.T(cu.lang, i18n.Usage, "/status &lt;id&gt; &lt;pending|in_progress|completed&gt;"))
	}
	task, err := b.tasks.Resolve(ctx, cu.user.ID, fields[0])
	if err != nil {
		return b.failure(cu, err)
	}
	task, err = b.tasks.SetStatus(ctx, cu.user.ID, task.ID, model.Status(strings.ToLower(fields[1])))
	if err != nil {
		return b.failure(cu, err)
	}
	log.Printf("[info] task status id=%s user=%s status=%s", task.ID, cu.user.ID, task.Status)
	return b.sendText(cu.chatID, i18n.T(cu.lang, i18n.TaskStatusChanged, escape(task.Title), statusLabel(task.Status, cu.lang)))
}

func (b *Bot) handleEdit(ctx context.Context, cu *chatUser, args string) error {
	ref, title, _ := strings.Cut(args, " ")
	if ref == "" || strings.TrimSpace(title) == "" {
		return b.sendText(cu.chatID, i18n.T(cu.lang, i18n.Usage, "/edit &lt;id&gt; &lt;title&gt;"))
	}
	task, err := b.tasks.Resolve(ctx, cu.user.ID, ref)
	if err != nil {
		return b.failure(cu, err)
	}
	input := service.InputFrom(task)
	input.Title = title
	task, err = b.tasks.Edit(ctx, cu.user.ID, task.ID, input)
	if err != nil {
		return b.failure(cu, err)
	}
	return b.sendText(cu.chatID, i18n.T(cu.lang, i18n.TaskRenamed, escape(task.Title)))
}

// handleDelete removes a task completely, recurring ones included.
func (b *Bot) handleDelete(ctx context.Context, cu *chatUser, args string) error {
	if args == "" {
		return b.sendText(cu.chatID, i18n.T(cu.lang, i18n.Usage, "/delete &lt;id&gt;"))
	}
	task, err := b.tasks.Resolve(ctx, cu.user.ID, args)
	if err != nil {
		return b.failure(cu, err)
	}
	if _, err := b.tasks.Delete(ctx, cu.user.ID, task.ID); err != nil {
		return b.failure(cu, err)
	}
	log.Printf("[info] task deleted id=%s user=%s", task.ID, cu.user.ID)
	return b.sendText(cu.chatID, i18n.T(cu.lang, i18n.TaskDeleted, escape(task.Title)))
}

func (b *Bot) handleRestore(ctx context.Context, cu *chatUser, args string) error {
	if args == "" {
		return b.sendText(cu.chatID, i18n.T(cu.lang, i18n.Usage, "/restore &lt;id&gt;"))
	}
	task, err := b.tasks.Resolve(ctx, cu.user.ID, args)
	if err != nil {
		return b.failure(cu, err)
	}
	return b.restoreTask(ctx, cu, task.ID)
}

func (b *Bot) handleRecommend(ctx context.Context, cu *chatUser) error {
	recs, err := b.recs.Regenerate(ctx, cu.user.ID)
	if err != nil {
		return b.failure(cu, err)
	}

	var builder strings.Builder
	builder.WriteString(i18n.T(cu.lang, i18n.RecsHeader))
	builder.WriteByte('\n')
	for _, rec := range recs {
		builder.WriteString(fmt.Sprintf("\n%s %s", service.Icon(rec.Type), renderMarkdown(rec.Content)))
	}
	return b.sendText(cu.chatID, builder.String())
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) error {
	if cb == nil || cb.From == nil || cb.Message == nil {
		return nil
	}
	b.ack(cb)

	cu, err := b.resolve(ctx, cb.From, cb.Message.Chat.ID)
	if err != nil {
		return err
	}

	data := cb.Data
	switch {
	case strings.HasPrefix(data, cbCompletePrefix):
		log.Printf("[info] callback complete request user=%d task=%s", cb.From.ID, strings.TrimPrefix(data, cbCompletePrefix))
		return b.askConfirmation(ctx, cu, strings.TrimPrefix(data, cbCompletePrefix), actionComplete)
	case strings.HasPrefix(data, cbArchivePrefix):
		log.Printf("[info] callback archive request user=%d task=%s", cb.From.ID, strings.TrimPrefix(data, cbArchivePrefix))
		return b.askConfirmation(ctx, cu, strings.TrimPrefix(data, cbArchivePrefix), actionArchive)
	case strings.HasPrefix(data, cbRestorePrefix):
		log.Printf("[info] callback restore user=%d task=%s", cb.From.ID, strings.TrimPrefix(data, cbRestorePrefix))
		return b.restoreTask(ctx, cu, strings.TrimPrefix(data, cbRestorePrefix))
	default:
		return nil
	}
}

func (b *Bot) askConfirmation(ctx context.Context, cu *chatUser, taskID string, action confirmationAction) error {
	task, err := b.tasks.Get(ctx, cu.user.ID, taskID)
	if err != nil {
		return b.failure(cu, err)
	}
	if action == actionComplete && task.IsCompleted() {
		return b.sendText(cu.chatID, i18n.T(cu.lang, i18n.TaskAlreadyDone))
	}

	key := i18n.ConfirmComplete
	if action == actionArchive {
		key = i18n.ConfirmArchive
	}
	b.setConfirmation(cu.tgID, confirmationRequest{taskID: task.ID, action: action})
	return b.sendWithReplyMarkup(cu.chatID, i18n.T(cu.lang, key, escape(task.Title)), confirmKeyboard(cu.lang))
}

func (b *Bot) handleConfirmationResponse(ctx context.Context, cu *chatUser, text string, req confirmationRequest) error {
	switch {
	case isLabel(text, i18n.BtnConfirm) || isYesInput(text):
		b.clearConfirmation(cu.tgID)
		if req.action == actionArchive {
			return b.archiveTask(ctx, cu, req.taskID)
		}
		return b.completeTask(ctx, cu, req.taskID, true)
	case isLabel(text, i18n.BtnCancel) || isNoInput(text):
		b.clearConfirmation(cu.tgID)
		return b.sendMenu(cu, i18n.T(cu.lang, i18n.Cancelled))
	default:
		return b.sendWithReplyMarkup(cu.chatID, i18n.T(cu.lang, i18n.ConfirmPrompt), confirmKeyboard(cu.lang))
	}
}

func (b *Bot) completeTask(ctx context.Context, cu *chatUser, taskID string, refresh bool) error {
	task, err := b.tasks.Get(ctx, cu.user.ID, taskID)
	if err != nil {
		return b.failure(cu, err)
	}
	if task.IsCompleted() {
		return b.sendMenu(cu, i18n.T(cu.lang, i18n.TaskAlreadyDone))
	}

	task, err = b.tasks.Complete(ctx, cu.user.ID, taskID)
	if err != nil {
		return b.failure(cu, err)
	}

	var info string
	if task.IsRecurring && task.DueDate != nil {
		info = i18n.T(cu.lang, i18n.TaskRecurringDone, escape(task.Title), task.DueDate.Format("2006-01-02"))
	} else {
		info = i18n.T(cu.lang, i18n.TaskCompleted, escape(task.Title))
	}
	log.Printf("[info] task completed id=%s user=%s recurring=%t", task.ID, cu.user.ID, task.IsRecurring)
	if err := b.sendMenu(cu, info); err != nil {
		return err
	}
	if !refresh {
		return nil
	}
	return b.sendTaskList(ctx, cu, "")
}

func (b *Bot) archiveTask(ctx context.Context, cu *chatUser, taskID string) error {
	task, err := b.tasks.Archive(ctx, cu.user.ID, taskID)
	if err != nil {
		return b.failure(cu, err)
	}
	log.Printf("[info] task archived id=%s user=%s", task.ID, cu.user.ID)
	return b.sendMenu(cu, i18n.T(cu.lang, i18n.TaskArchived, escape(task.Title)))
}

func (b *Bot) restoreTask(ctx context.Context, cu *chatUser, taskID string) error {
	task, err := b.tasks.Restore(ctx, cu.user.ID, taskID)
	if err != nil {
		return b.failure(cu, err)
	}
	log.Printf("[info] task restored id=%s user=%s", task.ID, cu.user.ID)
	return b.sendText(cu.chatID, i18n.T(cu.lang, i18n.TaskRestored, escape(task.Title)))
}

func openOnly(tasks []model.Task) []model.Task {
	open := make([]model.Task, 0, len(tasks))
	for _, task := range tasks {
		if !task.IsCompleted() {
			open = append(open, task)
		}
	}
	return open
}
