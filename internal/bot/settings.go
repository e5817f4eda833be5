package bot

import (
	"context"
	"errors"
	"log"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"taskly/internal/i18n"
	"taskly/internal/service"
)

func (b *Bot) handleSettings(ctx context.Context, cu *chatUser) error {
	s, err := b.settings.Get(ctx, cu.user.ID)
	if err != nil {
		return b.failure(cu, err)
	}
	notifications := i18n.T(cu.lang, i18n.Off)
	if s.Notifications {
		notifications = i18n.T(cu.lang, i18n.On)
	}
	key := i18n.T(cu.lang, i18n.KeyNotSet)
	if s.OpenAIAPIKey != "" {
		key = i18n.T(cu.lang, i18n.KeySet)
	}
	return b.sendText(cu.chatID, i18n.T(cu.lang, i18n.SettingsHeader, s.Language, s.Theme, notifications, key))
}

func (b *Bot) handleLanguage(ctx context.Context, cu *chatUser, args string) error {
	lang := strings.ToLower(strings.TrimSpace(args))
	if lang == "" {
		return b.sendText(cu.chatID, i18n.T(cu.lang, i18n.Usage, "/language he|en"))
	}
	if _, err := b.settings.Update(ctx, cu.user.ID, service.SettingsUpdate{Language: &lang}); err != nil {
		return b.settingsFailure(cu, err)
	}
	cu.lang = lang
	return b.sendMenu(cu, i18n.T(lang, i18n.LanguageSaved))
}

func (b *Bot) handleTheme(ctx context.Context, cu *chatUser, args string) error {
	theme := strings.ToLower(strings.TrimSpace(args))
	if theme == "" {
		return b.sendText(cu.chatID, i18n.T(cu.lang, i18n.Usage, "/theme light|dark"))
	}
	if _, err := b.settings.Update(ctx, cu.user.ID, service.SettingsUpdate{Theme: &theme}); err != nil {
		return b.settingsFailure(cu, err)
	}
	return b.sendText(cu.chatID, i18n.T(cu.lang, i18n.SettingsSaved))
}

func (b *Bot) handleNotifications(ctx context.Context, cu *chatUser, args string) error {
	enabled, ok := parseToggle(args)
	if !ok {
		return b.sendText(cu.chatID, i18n.T(cu.lang, i18n.Usage, "/notifications on|off"))
	}
	if _, err := b.settings.Update(ctx, cu.user.ID, service.SettingsUpdate{Notifications: &enabled}); err != nil {
		return b.settingsFailure(cu, err)
	}
	return b.sendText(cu.chatID, i18n.T(cu.lang, i18n.SettingsSaved))
}

// handleAPIKey stores a personal key. The message carrying the key is
// deleted from the chat once handled.
func (b *Bot) handleAPIKey(ctx context.Context, cu *chatUser, msg *tgbotapi.Message, key string) error {
	if key == "" {
		return b.sendText(cu.chatID, i18n.T(cu.lang, i18n.Usage, "/apikey &lt;key|off&gt;"))
	}
	if _, err := b.sender.Request(tgbotapi.NewDeleteMessage(cu.chatID, msg.MessageID)); err != nil {
		log.Printf("[warn] delete api key message: %v", err)
	}
	if strings.EqualFold(key, "off") || strings.EqualFold(key, "clear") {
		key = ""
	}
	if err := b.settings.SetAPIKey(ctx, cu.user.ID, key); err != nil {
		return b.settingsFailure(cu, err)
	}
	return b.sendText(cu.chatID, i18n.T(cu.lang, i18n.KeySaved))
}

func (b *Bot) settingsFailure(cu *chatUser, err error) error {
	switch {
	case errors.Is(err, service.ErrInvalidAPIKey):
		return b.sendText(cu.chatID, i18n.T(cu.lang, i18n.ErrKeyInvalid))
	case errors.Is(err, service.ErrInvalidSettings):
		return b.sendText(cu.chatID, i18n.T(cu.lang, i18n.ErrInvalidInput, escape(err.Error())))
	default:
		return b.failure(cu, err)
	}
}

func parseToggle(text string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "on", "true", "1", "yes":
		return true, true
	case "off", "false", "0", "no":
		return false, true
	}
	switch {
	case isLabel(text, i18n.On) || isYesInput(text):
		return true, true
	case isLabel(text, i18n.Off) || isNoInput(text):
		return false, true
	default:
		return false, false
	}
}
