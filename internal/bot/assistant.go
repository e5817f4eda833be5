package bot

import (
	"context"
	"errors"
	"log"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"taskly/internal/assistant"
	"taskly/internal/i18n"
	"taskly/internal/llm"
	"taskly/internal/model"
)

func (b *Bot) openAssistant(ctx context.Context, cu *chatUser) error {
	if session := b.getSession(cu.tgID); session != nil && session.Phase() != assistant.Uninitialized {
		return b.sendMessages(cu.chatID, session.Messages())
	}

	if !b.settings.ModelsEnabled(ctx, cu.user.ID) {
		return b.sendText(cu.chatID, i18n.T(cu.lang, i18n.ErrNoModel))
	}
	completer, err := b.settings.CompleterFor(ctx, cu.user.ID)
	if err != nil {
		log.Printf("[warn] assistant for %s: %v", cu.user.ID, err)
		return b.sendText(cu.chatID, i18n.T(cu.lang, i18n.ErrNoModel))
	}

	ownerID := cu.user.ID
	session := assistant.NewSession(completer, func(ctx context.Context) ([]model.Task, error) {
		return b.tasks.ListActive(ctx, ownerID)
	}, b.settings.Profile(ownerID))

	b.typing(cu.chatID)
	msgs, err := session.Open(ctx)
	if err != nil {
		log.Printf("[warn] open assistant for %s: %v", cu.user.ID, err)
		return b.sendText(cu.chatID, i18n.T(cu.lang, i18n.ErrAssistant))
	}
	b.setSession(cu.tgID, session)
	log.Printf("[info] assistant opened user=%s phase=%s", cu.user.ID, session.Phase())
	return b.sendMessages(cu.chatID, msgs)
}

// replyInBackground answers outside the update loop so a slow model call
// does not block other chats. A second message sent meanwhile is refused by
// the session. Start waits for pending replies before returning.
func (b *Bot) replyInBackground(ctx context.Context, cu *chatUser, session *assistant.Session, text string) {
	b.replies.Add(1)
	go func() {
		defer b.replies.Done()
		b.replyAssistant(ctx, cu, session, text)
	}()
}

func (b *Bot) replyAssistant(ctx context.Context, cu *chatUser, session *assistant.Session, text string) {
	b.typing(cu.chatID)
	reply, err := session.Send(ctx, text)
	var out string
	switch {
	case err == nil:
		out = renderMarkdown(reply.Content)
	case errors.Is(err, assistant.ErrBusy):
		out = i18n.T(cu.lang, i18n.ErrAssistantBusy)
	case errors.Is(err, assistant.ErrNotOpen):
		out = i18n.T(cu.lang, i18n.AssistantClosed)
	default:
		log.Printf("[warn] assistant reply for %s: %v", cu.user.ID, err)
		out = i18n.T(cu.lang, i18n.ErrAssistant)
	}
	if err := b.sendText(cu.chatID, out); err != nil {
		log.Printf("[warn] send assistant reply: %v", err)
	}
}

func (b *Bot) closeAssistant(cu *chatUser) error {
	if session := b.takeSession(cu.tgID); session != nil {
		session.Close()
	}
	return b.sendMenu(cu, i18n.T(cu.lang, i18n.AssistantClosed))
}

// handleAsk is a one-off question outside the assistant session.
func (b *Bot) handleAsk(ctx context.Context, cu *chatUser, args string) error {
	kind, prompt := parseAsk(args)
	if prompt == "" {
		return b.sendText(cu.chatID, i18n.T(cu.lang, i18n.Usage, "/ask [prioritize|split|motivate] &lt;text&gt;"))
	}

	if !b.settings.ModelsEnabled(ctx, cu.user.ID) {
		return b.sendText(cu.chatID, i18n.T(cu.lang, i18n.ErrNoModel))
	}
	completer, err := b.settings.CompleterFor(ctx, cu.user.ID)
	if err != nil {
		log.Printf("[warn] ask for %s: %v", cu.user.ID, err)
		return b.sendText(cu.chatID, i18n.T(cu.lang, i18n.ErrNoModel))
	}
	tasks, err := b.tasks.ListActive(ctx, cu.user.ID)
	if err != nil {
		return b.failure(cu, err)
	}
	taskCtx, err := llm.TaskContext(tasks)
	if err != nil {
		return b.failure(cu, err)
	}

	b.typing(cu.chatID)
	answer, err := completer.Complete(ctx, llm.Request{System: llm.SystemPrompt(kind), Prompt: prompt, Context: taskCtx})
	if err != nil {
		log.Printf("[warn] ask for %s: %v", cu.user.ID, err)
		return b.sendText(cu.chatID, i18n.T(cu.lang, i18n.ErrAssistant))
	}
	return b.sendText(cu.chatID, renderMarkdown(answer))
}

func (b *Bot) sendMessages(chatID int64, msgs []assistant.Message) error {
	for _, m := range msgs {
		if m.Role != assistant.RoleAssistant {
			continue
		}
		if err := b.sendText(chatID, renderMarkdown(m.Content)); err != nil {
			return err
		}
	}
	return nil
}

func (b *Bot) typing(chatID int64) {
	if _, err := b.sender.Request(tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping)); err != nil {
		log.Printf("[warn] chat action: %v", err)
	}
}

// parseAsk splits "/ask split plan the trip" into a prompt kind and text.
// Without a known kind the whole text is a general question.
func parseAsk(args string) (llm.Kind, string) {
	args = strings.TrimSpace(args)
	first, rest, _ := strings.Cut(args, " ")
	switch kind := llm.Kind(strings.ToLower(first)); kind {
	case llm.KindPrioritize, llm.KindSplit, llm.KindMotivate, llm.KindGeneral:
		return kind, strings.TrimSpace(rest)
	default:
		return llm.KindGeneral, args
	}
}
