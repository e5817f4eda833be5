package bot

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"gorm.io/gorm"

	"taskly/internal/assistant"
	"taskly/internal/i18n"
	"taskly/internal/model"
	"taskly/internal/repository"
	"taskly/internal/service"
)

// Sender is the part of the Telegram API the bot uses.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Bot aggregates Telegram API with services.
type Bot struct {
	api      *tgbotapi.BotAPI
	sender   Sender
	users    *repository.UserRepository
	tasks    *service.TaskService
	settings *service.SettingsService
	recs     service.Regenerator

	mu            sync.Mutex
	conversations map[int64]*conversationState
	confirmations map[int64]confirmationRequest
	sessions      map[int64]*assistant.Session

	replies sync.WaitGroup
}

func New(token string, users *repository.UserRepository, tasks *service.TaskService, settings *service.SettingsService, recs service.Regenerator) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}

	log.Printf("[info] bot authorized on account %s", api.Self.UserName)

	b := newBot(api, users, tasks, settings, recs)
	b.api = api
	return b, nil
}

func newBot(sender Sender, users *repository.UserRepository, tasks *service.TaskService, settings *service.SettingsService, recs service.Regenerator) *Bot {
	return &Bot{
		sender:        sender,
		users:         users,
		tasks:         tasks,
		settings:      settings,
		recs:          recs,
		conversations: make(map[int64]*conversationState),
		confirmations: make(map[int64]confirmationRequest),
		sessions:      make(map[int64]*assistant.Session),
	}
}

// Start begins polling updates until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := b.api.GetUpdatesChan(updateConfig)

	log.Println("[info] start polling updates")

	go func() {
		<-ctx.Done()
		b.api.StopReceivingUpdates()
	}()

	for update := range updates {
		b.dispatch(ctx, update)
	}

	b.replies.Wait()
	return nil
}

func (b *Bot) dispatch(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.CallbackQuery != nil:
		if err := b.handleCallback(ctx, update.CallbackQuery); err != nil {
			log.Printf("[warn] handle callback: %v", err)
		}
	case update.Message != nil:
		if update.Message.Chat == nil || !update.Message.Chat.IsPrivate() {
			return
		}
		if err := b.handleMessage(ctx, update.Message); err != nil {
			log.Printf("[warn] handle message: %v", err)
		}
	}
}

// chatUser is the resolved sender of an update.
type chatUser struct {
	user   *model.User
	lang   string
	chatID int64
	tgID   int64
}

func (b *Bot) resolve(ctx context.Context, from *tgbotapi.User, chatID int64) (*chatUser, error) {
	user, err := b.users.UpsertFromTelegram(ctx, from.ID, from.FirstName, from.LastName, from.UserName)
	if err != nil {
		return nil, err
	}
	lang := "he"
	if settings, err := b.settings.Get(ctx, user.ID); err == nil {
		lang = settings.Language
	} else {
		log.Printf("[warn] load settings for %s: %v", user.ID, err)
	}
	return &chatUser{user: user, lang: lang, chatID: chatID, tgID: from.ID}, nil
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) error {
	if msg.From == nil {
		return nil
	}

	cu, err := b.resolve(ctx, msg.From, msg.Chat.ID)
	if err != nil {
		return err
	}

	if !msg.IsCommand() && isLabel(msg.Text, i18n.BtnCancelDialog) {
		b.clearConversation(cu.tgID)
		b.clearConfirmation(cu.tgID)
		return b.sendMenu(cu, i18n.T(cu.lang, i18n.DialogCancelled))
	}

	if msg.IsCommand() {
		log.Printf("[info] command from %d: /%s %s", msg.From.ID, msg.Command(), msg.CommandArguments())
		return b.handleCommand(ctx, cu, msg)
	}

	if pending, ok := b.getConfirmation(cu.tgID); ok {
		return b.handleConfirmationResponse(ctx, cu, msg.Text, pending)
	}

	if b.hasConversation(cu.tgID) {
		log.Printf("[info] conversation step %d from %d", b.getConversation(cu.tgID).stage, msg.From.ID)
		return b.handleConversation(ctx, cu, msg.Text)
	}

	if handled, err := b.handleMenuAlias(ctx, cu, msg.Text); handled {
		return err
	}

	if session := b.getSession(cu.tgID); session != nil {
		b.replyInBackground(ctx, cu, session, msg.Text)
		return nil
	}

	return b.sendText(cu.chatID, i18n.T(cu.lang, i18n.UnknownMessage))
}

func (b *Bot) handleCommand(ctx context.Context, cu *chatUser, msg *tgbotapi.Message) error {
	args := strings.TrimSpace(msg.CommandArguments())
	switch msg.Command() {
	case "start":
		return b.handleStart(cu, msg.From)
	case "help":
		return b.sendMenu(cu, i18n.T(cu.lang, i18n.Help))
	case "newtask":
		return b.startNewTaskConversation(cu)
	case "tasks":
		return b.sendTaskList(ctx, cu, model.Status(args))
	case "archive":
		return b.sendArchive(ctx, cu, args)
	case "complete":
		return b.handleComplete(ctx, cu, args)
	case "status":
		return b.handleStatus(ctx, cu, args)
	case "edit":
		return b.handleEdit(ctx, cu, args)
	case "delete":
		return b.handleDelete(ctx, cu, args)
	case "restore":
		return b.handleRestore(ctx, cu, args)
	case "recommend":
		return b.handleRecommend(ctx, cu)
	case "assistant":
		return b.openAssistant(ctx, cu)
	case "close":
		return b.closeAssistant(cu)
	case "ask":
		return b.handleAsk(ctx, cu, args)
	case "settings":
		return b.handleSettings(ctx, cu)
	case "language":
		return b.handleLanguage(ctx, cu, args)
	case "theme":
		return b.handleTheme(ctx, cu, args)
	case "notifications":
		return b.handleNotifications(ctx, cu, args)
	case "apikey":
		return b.handleAPIKey(ctx, cu, msg, args)
	case "cancel":
		b.clearConversation(cu.tgID)
		b.clearConfirmation(cu.tgID)
		return b.sendMenu(cu, i18n.T(cu.lang, i18n.DialogCancelled))
	default:
		return b.sendText(cu.chatID, i18n.T(cu.lang, i18n.UnknownCommand))
	}
}

func (b *Bot) handleStart(cu *chatUser, from *tgbotapi.User) error {
	name := strings.TrimSpace(from.FirstName)
	if name == "" {
		name = "👋"
	}
	return b.sendMenu(cu, i18n.T(cu.lang, i18n.Start, escape(name)))
}

func (b *Bot) handleMenuAlias(ctx context.Context, cu *chatUser, text string) (bool, error) {
	switch {
	case isLabel(text, i18n.MenuNewTask):
		return true, b.startNewTaskConversation(cu)
	case isLabel(text, i18n.MenuTasks):
		return true, b.sendTaskList(ctx, cu, "")
	case isLabel(text, i18n.MenuRecommend):
		return true, b.handleRecommend(ctx, cu)
	case isLabel(text, i18n.MenuAssistant):
		return true, b.openAssistant(ctx, cu)
	default:
		return false, nil
	}
}

// Notify delivers a digest to the user's Telegram chat.
func (b *Bot) Notify(_ context.Context, user model.User, title, body string) error {
	if user.TelegramID == nil {
		return fmt.Errorf("user %s has no telegram chat", user.ID)
	}
	text := fmt.Sprintf("<b>%s</b>\n\n%s", escape(title), renderMarkdown(body))
	return b.sendText(*user.TelegramID, text)
}

// failure reports an error from a task operation in the user's language.
func (b *Bot) failure(cu *chatUser, err error) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return b.sendText(cu.chatID, i18n.T(cu.lang, i18n.ErrTaskNotFound))
	case errors.Is(err, repository.ErrAmbiguousID):
		return b.sendText(cu.chatID, i18n.T(cu.lang, i18n.ErrAmbiguousID))
	case errors.Is(err, service.ErrInvalidTask):
		return b.sendText(cu.chatID, i18n.T(cu.lang, i18n.ErrInvalidInput, escape(err.Error())))
	default:
		log.Printf("[warn] chat %d: %v", cu.chatID, err)
		return b.sendText(cu.chatID, i18n.T(cu.lang, i18n.ErrGeneric))
	}
}

func (b *Bot) sendText(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	_, err := b.sender.Send(msg)
	return err
}

func (b *Bot) sendMenu(cu *chatUser, text string) error {
	return b.sendWithReplyMarkup(cu.chatID, text, mainMenuKeyboard(cu.lang))
}

func (b *Bot) sendWithReplyMarkup(chatID int64, text string, markup interface{}) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = markup
	_, err := b.sender.Send(msg)
	return err
}

func (b *Bot) ack(cb *tgbotapi.CallbackQuery) {
	if _, err := b.sender.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
		log.Printf("[warn] callback ack: %v", err)
	}
}

func (b *Bot) getConfirmation(userID int64) (confirmationRequest, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	req, ok := b.confirmations[userID]
	return req, ok
}

func (b *Bot) setConfirmation(userID int64, req confirmationRequest) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.confirmations[userID] = req
}

func (b *Bot) clearConfirmation(userID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.confirmations, userID)
}

func (b *Bot) setConversation(userID int64, state *conversationState) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.conversations[userID] = state
}

func (b *Bot) getConversation(userID int64) *conversationState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.conversations[userID]
}

func (b *Bot) hasConversation(userID int64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.conversations[userID]
	return ok
}

func (b *Bot) clearConversation(userID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.conversations, userID)
}

func (b *Bot) getSession(userID int64) *assistant.Session {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sessions[userID]
}

func (b *Bot) setSession(userID int64, s *assistant.Session) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sessions[userID] = s
}

func (b *Bot) takeSession(userID int64) *assistant.Session {
	b.mu.Lock()
	defer b.mu.Unlock()
	s := b.sessions[userID]
	delete(b.sessions, userID)
	return s
}
