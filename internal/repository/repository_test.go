package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"taskly/internal/model"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := NewDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = Close(db) })
	return db
}

func TestTaskRepository_ListScopesByOwnerAndArchive(t *testing.T) {
	ctx := context.Background()
	repo := NewTaskRepository(newTestDB(t))

	due := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, repo.Create(ctx, &model.Task{OwnerID: "u1", Title: "later", DueDateType: model.DueDate, DueDate: &due}))
	require.NoError(t, repo.Create(ctx, &model.Task{OwnerID: "u1", Title: "unscheduled"}))
	require.NoError(t, repo.Create(ctx, &model.Task{OwnerID: "u1", Title: "old", IsArchived: true}))
	require.NoError(t, repo.Create(ctx, &model.Task{OwnerID: "u2", Title: "foreign"}))

	active, err := repo.List(ctx, "u1", TaskFilter{})
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, "later", active[0].Title, "dated tasks sort before unscheduled ones")
	assert.Equal(t, model.StatusPending, active[1].Status)
	assert.Equal(t, model.DueUnknown, active[1].DueDateType)

	archived, err := repo.List(ctx, "u1", TaskFilter{Archived: true})
	require.NoError(t, err)
	require.Len(t, archived, 1)
	assert.Equal(t, "old", archived[0].Title)
}

func TestTaskRepository_StatusFilter(t *testing.T) {
	ctx := context.Background()
	repo := NewTaskRepository(newTestDB(t))

	require.NoError(t, repo.Create(ctx, &model.Task{OwnerID: "u1", Title: "a"}))
	require.NoError(t, repo.Create(ctx, &model.Task{OwnerID: "u1", Title: "b", Status: model.StatusCompleted}))

	done, err := repo.List(ctx, "u1", TaskFilter{Status: model.StatusCompleted})
	require.NoError(t, err)
	require.Len(t, done, 1)
	assert.Equal(t, "b", done[0].Title)
}

func TestTaskRepository_FindByPrefix(t *testing.T) {
	ctx := context.Background()
	repo := NewTaskRepository(newTestDB(t))

	task := &model.Task{OwnerID: "u1", Title: "a"}
	require.NoError(t, repo.Create(ctx, task))

	got, err := repo.FindByPrefix(ctx, "u1", task.ShortID())
	require.NoError(t, err)
	assert.Equal(t, task.ID, got.ID)

	got, err = repo.FindByPrefix(ctx, "u1", task.ID)
	require.NoError(t, err)
	assert.Equal(t, task.ID, got.ID)

	_, err = repo.FindByPrefix(ctx, "u2", task.ShortID())
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	require.NoError(t, repo.Create(ctx, &model.Task{ID: "abc-1", OwnerID: "u1", Title: "x"}))
	require.NoError(t, repo.Create(ctx, &model.Task{ID: "abc-2", OwnerID: "u1", Title: "y"}))
	_, err = repo.FindByPrefix(ctx, "u1", "abc")
	assert.ErrorIs(t, err, ErrAmbiguousID)
}

func TestTaskRepository_ArchiveAndDelete(t *testing.T) {
	ctx := context.Background()
	repo := NewTaskRepository(newTestDB(t))

	task := &model.Task{OwnerID: "u1", Title: "a"}
	require.NoError(t, repo.Create(ctx, task))

	require.NoError(t, repo.SetArchived(ctx, "u1", task.ID, true))
	got, err := repo.FindByID(ctx, "u1", task.ID)
	require.NoError(t, err)
	assert.True(t, got.IsArchived)

	assert.ErrorIs(t, repo.SetArchived(ctx, "u2", task.ID, false), gorm.ErrRecordNotFound)

	require.NoError(t, repo.Delete(ctx, "u1", task.ID))
	assert.ErrorIs(t, repo.Delete(ctx, "u1", task.ID), gorm.ErrRecordNotFound)
}

func TestRecommendationRepository_ReplaceSet(t *testing.T) {
	ctx := context.Background()
	repo := NewRecommendationRepository(newTestDB(t))

	require.NoError(t, repo.InsertBatch(ctx, []model.Recommendation{
		{OwnerID: "u1", Content: "first", Type: model.RecUrgent},
		{OwnerID: "u1", Content: "second", Type: model.RecMotivation},
		{OwnerID: "u2", Content: "other", Type: model.RecMotivation},
	}))
	require.NoError(t, repo.InsertBatch(ctx, nil))

	recs, err := repo.ListByOwner(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "first", recs[0].Content)
	assert.NotEmpty(t, recs[0].ID)

	require.NoError(t, repo.DeleteByOwner(ctx, "u1"))
	recs, err = repo.ListByOwner(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, recs)

	recs, err = repo.ListByOwner(ctx, "u2")
	require.NoError(t, err)
	assert.Len(t, recs, 1)
}

func TestSettingsRepository_Defaults(t *testing.T) {
	ctx := context.Background()
	repo := NewSettingsRepository(newTestDB(t))

	s, err := repo.GetOrCreate(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "he", s.Language)
	assert.True(t, s.Notifications)

	s.Notifications = false
	s.Language = "en"
	require.NoError(t, repo.Save(ctx, s))

	again, err := repo.GetOrCreate(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, again.Notifications)
	assert.Equal(t, "en", again.Language)
}

func TestSettingsRepository_RegisterDevice(t *testing.T) {
	ctx := context.Background()
	repo := NewSettingsRepository(newTestDB(t))

	_, err := repo.RegisterDevice(ctx, "u1", "tok")
	require.NoError(t, err)
	_, err = repo.RegisterDevice(ctx, "u1", "tok")
	require.NoError(t, err)

	devices, err := repo.ListDevices(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, devices, 1)

	_, err = repo.RegisterDevice(ctx, "u2", "tok")
	require.NoError(t, err)
	devices, err = repo.ListDevices(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, devices)
}

func TestUserRepository_TelegramAndAssistantName(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository(newTestDB(t))

	u, err := repo.UpsertFromTelegram(ctx, 42, "Dana", "", "dana")
	require.NoError(t, err)
	again, err := repo.UpsertFromTelegram(ctx, 42, "Dana", "Levi", "dana")
	require.NoError(t, err)
	assert.Equal(t, u.ID, again.ID)

	require.NoError(t, repo.SetAssistantName(ctx, u.ID, "דנה"))
	got, err := repo.FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "דנה", got.AssistantName)

	api, err := repo.EnsureByID(ctx, "sub-1")
	require.NoError(t, err)
	assert.Equal(t, "sub-1", api.ID)

	users, err := repo.ListTelegram(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, u.ID, users[0].ID)
}
