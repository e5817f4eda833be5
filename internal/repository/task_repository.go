package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"taskly/internal/model"
)

// ErrAmbiguousID is returned when a short id matches more than one task.
var ErrAmbiguousID = errors.New("ambiguous task id")

// TaskFilter narrows task listings. The zero value lists active tasks.
type TaskFilter struct {
	Archived bool
	Status   model.Status
}

// TaskRepository handles CRUD for tasks. Every query is scoped to an owner.
type TaskRepository struct {
	db *gorm.DB
}

func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

func (r *TaskRepository) Create(ctx context.Context, task *model.Task) error {
	if err := r.db.WithContext(ctx).Create(task).Error; err != nil {
		return fmt.Errorf("create task: %w", err)
	}
	return nil
}

// Save writes every field of an existing task.
func (r *TaskRepository) Save(ctx context.Context, task *model.Task) error {
	if err := r.db.WithContext(ctx).Save(task).Error; err != nil {
		return fmt.Errorf("save task: %w", err)
	}
	return nil
}

// List returns the owner's tasks ordered by due date, unscheduled last.
func (r *TaskRepository) List(ctx context.Context, ownerID string, filter TaskFilter) ([]model.Task, error) {
	var tasks []model.Task
	q := r.db.WithContext(ctx).Where("owner_id = ? AND is_archived = ?", ownerID, filter.Archived)
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if err := q.Order("due_date NULLS LAST, created_at DESC").Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

func (r *TaskRepository) FindByID(ctx context.Context, ownerID, taskID string) (*model.Task, error) {
	var task model.Task
	if err := r.db.WithContext(ctx).Where("owner_id = ? AND id = ?", ownerID, taskID).First(&task).Error; err != nil {
		return nil, err
	}
	return &task, nil
}

// FindByPrefix resolves the short ids shown in chat. A full id is looked up
// directly.
func (r *TaskRepository) FindByPrefix(ctx context.Context, ownerID, prefix string) (*model.Task, error) {
	if len(prefix) >= 36 {
		return r.FindByID(ctx, ownerID, prefix)
	}
	var tasks []model.Task
	if err := r.db.WithContext(ctx).Where("owner_id = ? AND id LIKE ?", ownerID, prefix+"%").
		Limit(2).Find(&tasks).Error; err != nil {
		return nil, err
	}
	switch len(tasks) {
	case 0:
		return nil, gorm.ErrRecordNotFound
	case 1:
		return &tasks[0], nil
	default:
		return nil, ErrAmbiguousID
	}
}

func (r *TaskRepository) SetArchived(ctx context.Context, ownerID, taskID string, archived bool) error {
	res := r.db.WithContext(ctx).Model(&model.Task{}).
		Where("owner_id = ? AND id = ?", ownerID, taskID).
		Update("is_archived", archived)
	if res.Error != nil {
		return fmt.Errorf("archive task: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Delete removes a task for the given owner, archived or not.
func (r *TaskRepository) Delete(ctx context.Context, ownerID, taskID string) error {
	res := r.db.WithContext(ctx).Where("owner_id = ? AND id = ?", ownerID, taskID).Delete(&model.Task{})
	if res.Error != nil {
		return fmt.Errorf("delete task: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
