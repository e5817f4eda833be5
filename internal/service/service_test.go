package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"taskly/internal/llm"
	"taskly/internal/model"
	"taskly/internal/repository"
)

var fixedNow = time.Date(2026, 10, 17, 9, 30, 0, 0, time.UTC)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := repository.NewDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = repository.Close(db) })
	return db
}

// flakyStore fails the first List calls and counts writes.
type flakyStore struct {
	*repository.TaskRepository
	failures  int
	listCalls int
	creates   int
}

func (f *flakyStore) List(ctx context.Context, ownerID string, filter repository.TaskFilter) ([]model.Task, error) {
	f.listCalls++
	if f.failures > 0 {
		f.failures--
		return nil, errors.New("connection reset")
	}
	return f.TaskRepository.List(ctx, ownerID, filter)
}

func (f *flakyStore) Create(ctx context.Context, task *model.Task) error {
	f.creates++
	return f.TaskRepository.Create(ctx, task)
}

func newTaskService(t *testing.T) (*TaskService, *flakyStore) {
	t.Helper()
	store := &flakyStore{TaskRepository: repository.NewTaskRepository(newTestDB(t))}
	svc := NewTaskService(store, 0)
	svc.now = func() time.Time { return fixedNow }
	return svc, store
}

func TestTaskService_CreateValidation(t *testing.T) {
	ctx := context.Background()
	svc, store := newTaskService(t)

	tests := []struct {
		name  string
		input TaskInput
	}{
		{"blank title", TaskInput{Title: "   "}},
		{"date type without date", TaskInput{Title: "a", DueDateType: model.DueDate}},
		{"unknown due type", TaskInput{Title: "a", DueDateType: "someday"}},
		{"recurring without pattern", TaskInput{Title: "a", IsRecurring: true}},
		{"bad pattern", TaskInput{Title: "a", IsRecurring: true, RecurrencePattern: "yearly"}},
		{"bad status", TaskInput{Title: "a", Status: "blocked"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(ctx, "u1", tt.input)
			assert.ErrorIs(t, err, ErrInvalidTask)
		})
	}
	assert.Zero(t, store.creates, "invalid input never reaches the store")
}

func TestTaskService_CreateNormalizes(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTaskService(t)

	due := fixedNow.AddDate(0, 0, 2)
	task, err := svc.Create(ctx, "u1", TaskInput{
		Title:             "  report ",
		DueDateType:       model.DueUrgent,
		DueDate:           &due,
		RecurrencePattern: model.RecurDaily,
	})
	require.NoError(t, err)
	assert.Equal(t, "report", task.Title)
	assert.Equal(t, model.StatusPending, task.Status)
	assert.Nil(t, task.DueDate, "only date-typed tasks keep a date")
	assert.Empty(t, task.RecurrencePattern)

	task, err = svc.Create(ctx, "u1", TaskInput{Title: "b"})
	require.NoError(t, err)
	assert.Equal(t, model.DueUnknown, task.DueDateType)
}

func TestTaskService_CompleteOneOff(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTaskService(t)

	task, err := svc.Create(ctx, "u1", TaskInput{Title: "a"})
	require.NoError(t, err)

	done, err := svc.Complete(ctx, "u1", task.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, done.Status)
	require.NotNil(t, done.LastCompletedAt)

	got, err := svc.Get(ctx, "u1", task.ID)
	require.NoError(t, err)
	assert.True(t, got.IsCompleted())
}

func TestTaskService_CompleteRecurringRollsForward(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTaskService(t)

	due := time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC)
	task, err := svc.Create(ctx, "u1", TaskInput{
		Title:             "gym",
		DueDateType:       model.DueDate,
		DueDate:           &due,
		IsRecurring:       true,
		RecurrencePattern: model.RecurWeekly,
	})
	require.NoError(t, err)

	done, err := svc.Complete(ctx, "u1", task.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, done.Status)
	require.NotNil(t, done.DueDate)
	assert.True(t, done.DueDate.Equal(due.AddDate(0, 0, 7)))
	require.NotNil(t, done.LastCompletedAt)
}

func TestTaskService_EditToCompletedRollsRecurringForward(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTaskService(t)

	due := fixedNow.Add(-time.Hour)
	task, err := svc.Create(ctx, "u1", TaskInput{
		Title:             "water plants",
		DueDateType:       model.DueDate,
		DueDate:           &due,
		IsRecurring:       true,
		RecurrencePattern: model.RecurDaily,
	})
	require.NoError(t, err)

	input := InputFrom(task)
	input.Status = model.StatusCompleted
	edited, err := svc.Edit(ctx, "u1", task.ID, input)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, edited.Status)
	require.NotNil(t, edited.DueDate)
	assert.True(t, edited.DueDate.Equal(due.AddDate(0, 0, 1)))
	require.NotNil(t, edited.LastCompletedAt)

	got, err := svc.Get(ctx, "u1", task.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, got.Status)
}

func TestTaskService_CreateCompletedRecurringStaysOpen(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTaskService(t)

	due := fixedNow.Add(-time.Hour)
	task, err := svc.Create(ctx, "u1", TaskInput{
		Title:             "water plants",
		DueDateType:       model.DueDate,
		DueDate:           &due,
		Status:            model.StatusCompleted,
		IsRecurring:       true,
		RecurrencePattern: model.RecurDaily,
	})
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, task.Status)
	assert.True(t, task.DueDate.Equal(due.AddDate(0, 0, 1)))
}

func TestTaskService_SetStatus(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTaskService(t)

	task, err := svc.Create(ctx, "u1", TaskInput{Title: "a"})
	require.NoError(t, err)

	got, err := svc.SetStatus(ctx, "u1", task.ID, model.StatusInProgress)
	require.NoError(t, err)
	assert.Equal(t, model.StatusInProgress, got.Status)

	_, err = svc.SetStatus(ctx, "u1", task.ID, "blocked")
	assert.ErrorIs(t, err, ErrInvalidTask)

	_, err = svc.SetStatus(ctx, "u2", task.ID, model.StatusPending)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestNextOccurrence(t *testing.T) {
	assert.Equal(t, time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC), NextOccurrence(nil, model.RecurDaily, fixedNow))

	old := time.Date(2026, 1, 17, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 11, 17, 0, 0, 0, 0, time.UTC), NextOccurrence(&old, model.RecurMonthly, fixedNow))

	future := time.Date(2026, 12, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 12, 8, 0, 0, 0, 0, time.UTC), NextOccurrence(&future, model.RecurWeekly, fixedNow))
}

func TestTaskService_ListActiveRetriesOnce(t *testing.T) {
	ctx := context.Background()
	svc, store := newTaskService(t)

	_, err := svc.Create(ctx, "u1", TaskInput{Title: "a"})
	require.NoError(t, err)

	store.failures = 1
	tasks, err := svc.ListActive(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, tasks, 1)
	assert.Equal(t, 2, store.listCalls)

	store.listCalls = 0
	store.failures = 5
	_, err = svc.ListActive(ctx, "u1")
	assert.ErrorContains(t, err, "connection reset")
	assert.Equal(t, 2, store.listCalls, "exactly two attempts")
}

func TestTaskService_ArchiveRestoreDelete(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTaskService(t)

	task, err := svc.Create(ctx, "u1", TaskInput{Title: "a"})
	require.NoError(t, err)

	archived, err := svc.Archive(ctx, "u1", task.ID)
	require.NoError(t, err)
	assert.True(t, archived.IsArchived)

	active, err := svc.ListActive(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, active)

	restored, err := svc.Restore(ctx, "u1", task.ID)
	require.NoError(t, err)
	assert.False(t, restored.IsArchived)

	resolved, err := svc.Resolve(ctx, "u1", task.ShortID())
	require.NoError(t, err)
	assert.Equal(t, task.ID, resolved.ID)

	deleted, err := svc.Delete(ctx, "u1", task.ID)
	require.NoError(t, err)
	assert.Equal(t, "a", deleted.Title)

	_, err = svc.Delete(ctx, "u1", task.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestTaskService_ListArchivedSearch(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTaskService(t)

	for _, in := range []TaskInput{
		{Title: "Quarterly", Description: "send the REPORT"},
		{Title: "report draft", Status: model.StatusCompleted},
		{Title: "groceries"},
	} {
		task, err := svc.Create(ctx, "u1", in)
		require.NoError(t, err)
		_, err = svc.Archive(ctx, "u1", task.ID)
		require.NoError(t, err)
	}

	all, err := svc.ListArchived(ctx, "u1", "", "")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	found, err := svc.ListArchived(ctx, "u1", "", "Report")
	require.NoError(t, err)
	assert.Len(t, found, 2)

	found, err = svc.ListArchived(ctx, "u1", model.StatusCompleted, "report")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "report draft", found[0].Title)

	_, err = svc.ListArchived(ctx, "u1", "blocked", "")
	assert.ErrorIs(t, err, ErrInvalidTask)
}

type stubKeys struct{ ok bool }

func (s stubKeys) Validate(context.Context, string) (bool, error) { return s.ok, nil }

type echoModel struct{}

func (echoModel) Complete(context.Context, llm.Request) (string, error) { return "hi", nil }

func newSettingsService(t *testing.T, keys KeyChecker, models *llm.Factory) *SettingsService {
	db := newTestDB(t)
	return NewSettingsService(repository.NewSettingsRepository(db), repository.NewUserRepository(db), models, keys)
}

func TestSettingsService_Update(t *testing.T) {
	ctx := context.Background()
	svc := newSettingsService(t, stubKeys{ok: true}, llm.NewFactory(llm.Config{}))

	lang, off := "en", false
	s, err := svc.Update(ctx, "u1", SettingsUpdate{Language: &lang, Notifications: &off})
	require.NoError(t, err)
	assert.Equal(t, "en", s.Language)
	assert.Equal(t, "light", s.Theme)
	assert.False(t, s.Notifications)

	bad := "fr"
	_, err = svc.Update(ctx, "u1", SettingsUpdate{Language: &bad})
	assert.ErrorIs(t, err, ErrInvalidSettings)

	got, err := svc.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "en", got.Language)
}

func TestSettingsService_SetAPIKey(t *testing.T) {
	ctx := context.Background()

	rejecting := newSettingsService(t, stubKeys{ok: false}, llm.NewFactory(llm.Config{}))
	assert.ErrorIs(t, rejecting.SetAPIKey(ctx, "u1", "sk-bad"), ErrInvalidAPIKey)
	assert.False(t, rejecting.ModelsEnabled(ctx, "u1"))

	svc := newSettingsService(t, stubKeys{ok: true}, llm.NewFactory(llm.Config{}))
	require.NoError(t, svc.SetAPIKey(ctx, "u1", " sk-good "))
	s, err := svc.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "sk-good", s.OpenAIAPIKey)
	assert.True(t, svc.ModelsEnabled(ctx, "u1"))

	require.NoError(t, svc.SetAPIKey(ctx, "u1", ""))
	s, err = svc.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, s.OpenAIAPIKey)
}

func TestSettingsService_CompleterFor(t *testing.T) {
	ctx := context.Background()

	svc := newSettingsService(t, nil, llm.NewFactory(llm.Config{}))
	_, err := svc.CompleterFor(ctx, "u1")
	assert.Error(t, err, "no shared model and no personal key")

	svc = newSettingsService(t, nil, llm.NewStaticFactory(echoModel{}))
	c, err := svc.CompleterFor(ctx, "u1")
	require.NoError(t, err)
	reply, err := c.Complete(ctx, llm.Request{})
	require.NoError(t, err)
	assert.Equal(t, "hi", reply)
}

func TestProfile_CachesAssistantName(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	users := repository.NewUserRepository(db)
	svc := NewSettingsService(repository.NewSettingsRepository(db), users, llm.NewFactory(llm.Config{}), nil)

	profile := svc.Profile("missing")
	name, err := profile.CachedName(ctx)
	require.NoError(t, err)
	assert.Empty(t, name)

	u, err := users.UpsertFromTelegram(ctx, 7, "Dana", "", "")
	require.NoError(t, err)
	profile = svc.Profile(u.ID)
	require.NoError(t, profile.CacheName(ctx, "דנה"))
	name, err = profile.CachedName(ctx)
	require.NoError(t, err)
	assert.Equal(t, "דנה", name)
}
