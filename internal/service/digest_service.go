package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"taskly/internal/i18n"
	"taskly/internal/model"
	"taskly/internal/repository"
)

// Notifier delivers a digest to a user.
type Notifier interface {
	Notify(ctx context.Context, user model.User, title, body string) error
}

// Regenerator rebuilds an owner's recommendation set.
type Regenerator interface {
	Regenerate(ctx context.Context, ownerID string) ([]model.Recommendation, error)
}

// DigestService regenerates recommendations for every reachable user and
// pushes them as a short digest.
type DigestService struct {
	users    *repository.UserRepository
	settings *repository.SettingsRepository
	recs     Regenerator
	notifier Notifier
	now      func() time.Time
}

func NewDigestService(users *repository.UserRepository, settings *repository.SettingsRepository, recs Regenerator, notifier Notifier) *DigestService {
	return &DigestService{users: users, settings: settings, recs: recs, notifier: notifier, now: time.Now}
}

// SendAll runs one digest round. Failures for one user are logged and do not
// stop the others; the number of delivered digests is returned.
func (s *DigestService) SendAll(ctx context.Context) (int, error) {
	users, err := s.users.ListTelegram(ctx)
	if err != nil {
		return 0, fmt.Errorf("list users: %w", err)
	}

	sent := 0
	for _, user := range users {
		if err := ctx.Err(); err != nil {
			return sent, err
		}
		if err := s.Send(ctx, user); err != nil {
			log.Printf("[warn] digest for %s: %v", user.ID, err)
			continue
		}
		sent++
	}
	return sent, nil
}

// Send regenerates and delivers one user's digest. Users who turned
// notifications off are skipped silently.
func (s *DigestService) Send(ctx context.Context, user model.User) error {
	settings, err := s.settings.GetOrCreate(ctx, user.ID)
	if err != nil {
		return err
	}
	if !settings.Notifications {
		return nil
	}

	recs, err := s.recs.Regenerate(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("regenerate: %w", err)
	}

	title, body := Compose(settings.Language, recs, s.now())
	return s.notifier.Notify(ctx, user, title, body)
}

// Compose renders a recommendation set as a plain-text digest.
func Compose(lang string, recs []model.Recommendation, now time.Time) (string, string) {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("🗓 %s\n", now.Format("02.01.2006")))
	for _, rec := range recs {
		b.WriteString(fmt.Sprintf("\n%s %s", Icon(rec.Type), strings.TrimSpace(rec.Content)))
	}
	return i18n.T(lang, i18n.DigestTitle), b.String()
}

// Icon returns the marker shown before a recommendation.
func Icon(t model.RecommendationType) string {
	switch t {
	case model.RecUrgent:
		return "🔥"
	case model.RecOverdue:
		return "⚠️"
	case model.RecTaskAnalysis:
		return "⏳"
	default:
		return "💪"
	}
}
