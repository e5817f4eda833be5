package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/text/cases"

	"taskly/internal/model"
	"taskly/internal/repository"
)

// ErrInvalidTask is returned before any store call when task input fails
// validation.
var ErrInvalidTask = errors.New("invalid task")

const fetchAttempts = 2

var validate = validator.New()

// TaskStore is the persistence the task service needs.
type TaskStore interface {
	Create(ctx context.Context, task *model.Task) error
	Save(ctx context.Context, task *model.Task) error
	List(ctx context.Context, ownerID string, filter repository.TaskFilter) ([]model.Task, error)
	FindByID(ctx context.Context, ownerID, taskID string) (*model.Task, error)
	FindByPrefix(ctx context.Context, ownerID, prefix string) (*model.Task, error)
	SetArchived(ctx context.Context, ownerID, taskID string, archived bool) error
	Delete(ctx context.Context, ownerID, taskID string) error
}

// TaskInput represents the editable fields of a task.
type TaskInput struct {
	Title             string            `json:"title" validate:"required,max=200"`
	Description       string            `json:"description" validate:"max=2000"`
	DueDateType       model.DueDateType `json:"due_date_type" validate:"omitempty,oneof=date unknown urgent asap"`
	DueDate           *time.Time        `json:"due_date" validate:"required_if=DueDateType date"`
	Status            model.Status      `json:"status" validate:"omitempty,oneof=pending in_progress completed"`
	IsRecurring       bool              `json:"is_recurring"`
	RecurrencePattern model.Recurrence  `json:"recurrence_pattern" validate:"omitempty,oneof=daily weekly monthly"`
}

// InputFrom returns the editable fields of an existing task, so partial
// updates can be decoded on top of it.
func InputFrom(task *model.Task) TaskInput {
	return TaskInput{
		Title:             task.Title,
		Description:       task.Description,
		DueDateType:       task.DueDateType,
		DueDate:           task.DueDate,
		Status:            task.Status,
		IsRecurring:       task.IsRecurring,
		RecurrencePattern: task.RecurrencePattern,
	}
}

func (in *TaskInput) normalize() error {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	if in.DueDateType == "" {
		in.DueDateType = model.DueUnknown
	}
	if in.Status == "" {
		in.Status = model.StatusPending
	}
	if err := validate.Struct(in); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s (%s)", fe.Field(), fe.Tag()))
			}
			return fmt.Errorf("%w: %s", ErrInvalidTask, strings.Join(fields, ", "))
		}
		return fmt.Errorf("%w: %v", ErrInvalidTask, err)
	}
	if in.IsRecurring && in.RecurrencePattern == "" {
		return fmt.Errorf("%w: RecurrencePattern (required)", ErrInvalidTask)
	}
	if !in.IsRecurring {
		in.RecurrencePattern = ""
	}
	if in.DueDateType != model.DueDate {
		in.DueDate = nil
	}
	return nil
}

// TaskService wraps task-related business logic.
type TaskService struct {
	tasks      TaskStore
	retryDelay time.Duration
	now        func() time.Time
}

func NewTaskService(tasks TaskStore, retryDelay time.Duration) *TaskService {
	return &TaskService{tasks: tasks, retryDelay: retryDelay, now: time.Now}
}

func (s *TaskService) Create(ctx context.Context, ownerID string, input TaskInput) (*model.Task, error) {
	if err := input.normalize(); err != nil {
		return nil, err
	}

	task := model.Task{OwnerID: ownerID}
	apply(&task, input)
	if task.IsCompleted() {
		s.markCompleted(&task)
	}

	if err := s.tasks.Create(ctx, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// Edit replaces the editable fields of a task.
func (s *TaskService) Edit(ctx context.Context, ownerID, taskID string, input TaskInput) (*model.Task, error) {
	if err := input.normalize(); err != nil {
		return nil, err
	}

	task, err := s.tasks.FindByID(ctx, ownerID, taskID)
	if err != nil {
		return nil, err
	}
	wasDone := task.IsCompleted()
	apply(task, input)
	if task.IsCompleted() && !wasDone {
		s.markCompleted(task)
	}

	if err := s.tasks.Save(ctx, task); err != nil {
		return nil, err
	}
	return task, nil
}

func (s *TaskService) Get(ctx context.Context, ownerID, taskID string) (*model.Task, error) {
	return s.tasks.FindByID(ctx, ownerID, taskID)
}

// Resolve finds a task by the short id shown in chat or by its full id.
func (s *TaskService) Resolve(ctx context.Context, ownerID, ref string) (*model.Task, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, fmt.Errorf("%w: empty id", ErrInvalidTask)
	}
	return s.tasks.FindByPrefix(ctx, ownerID, ref)
}

// SetStatus moves a task to the given status. Completing a recurring task
// goes through Complete.
func (s *TaskService) SetStatus(ctx context.Context, ownerID, taskID string, status model.Status) (*model.Task, error) {
	if err := validate.Var(status, "required,oneof=pending in_progress completed"); err != nil {
		return nil, fmt.Errorf("%w: status %q", ErrInvalidTask, status)
	}
	if status == model.StatusCompleted {
		return s.Complete(ctx, ownerID, taskID)
	}

	task, err := s.tasks.FindByID(ctx, ownerID, taskID)
	if err != nil {
		return nil, err
	}
	task.Status = status
	if err := s.tasks.Save(ctx, task); err != nil {
		return nil, err
	}
	return task, nil
}

// Complete marks a task as done. A recurring task stays open and its due
// date moves to the next occurrence after now.
func (s *TaskService) Complete(ctx context.Context, ownerID, taskID string) (*model.Task, error) {
	task, err := s.tasks.FindByID(ctx, ownerID, taskID)
	if err != nil {
		return nil, err
	}

	s.markCompleted(task)
	if err := s.tasks.Save(ctx, task); err != nil {
		return nil, err
	}
	return task, nil
}

// markCompleted records a completion on task. A recurring task stays
// pending with its due date moved to the next occurrence after now.
func (s *TaskService) markCompleted(task *model.Task) {
	now := s.now()
	task.LastCompletedAt = &now
	if task.IsRecurring && task.RecurrencePattern != "" {
		next := NextOccurrence(task.DueDate, task.RecurrencePattern, now)
		task.DueDate = &next
		task.DueDateType = model.DueDate
		task.Status = model.StatusPending
		return
	}
	task.Status = model.StatusCompleted
}

func (s *TaskService) Archive(ctx context.Context, ownerID, taskID string) (*model.Task, error) {
	return s.setArchived(ctx, ownerID, taskID, true)
}

func (s *TaskService) Restore(ctx context.Context, ownerID, taskID string) (*model.Task, error) {
	return s.setArchived(ctx, ownerID, taskID, false)
}

func (s *TaskService) setArchived(ctx context.Context, ownerID, taskID string, archived bool) (*model.Task, error) {
	task, err := s.tasks.FindByID(ctx, ownerID, taskID)
	if err != nil {
		return nil, err
	}
	if err := s.tasks.SetArchived(ctx, ownerID, taskID, archived); err != nil {
		return nil, err
	}
	task.IsArchived = archived
	return task, nil
}

// Delete removes a task completely, archived or not.
func (s *TaskService) Delete(ctx context.Context, ownerID, taskID string) (*model.Task, error) {
	task, err := s.tasks.FindByID(ctx, ownerID, taskID)
	if err != nil {
		return nil, err
	}
	if err := s.tasks.Delete(ctx, ownerID, taskID); err != nil {
		return nil, err
	}
	return task, nil
}

// ListActive returns the owner's non-archived tasks, completed ones
// included. A failed fetch is retried once after the configured delay.
func (s *TaskService) ListActive(ctx context.Context, ownerID string) ([]model.Task, error) {
	var lastErr error
	for attempt := 1; attempt <= fetchAttempts; attempt++ {
		tasks, err := s.tasks.List(ctx, ownerID, repository.TaskFilter{})
		if err == nil {
			return tasks, nil
		}
		lastErr = err
		if attempt == fetchAttempts {
			break
		}
		log.Printf("[warn] list tasks for %s failed, retrying in %s: %v", ownerID, s.retryDelay, err)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(s.retryDelay):
		}
	}
	return nil, lastErr
}

// ListByStatus returns non-archived tasks with the given status.
func (s *TaskService) ListByStatus(ctx context.Context, ownerID string, status model.Status) ([]model.Task, error) {
	if status == "" {
		return s.ListActive(ctx, ownerID)
	}
	if err := validate.Var(status, "oneof=pending in_progress completed"); err != nil {
		return nil, fmt.Errorf("%w: status %q", ErrInvalidTask, status)
	}
	return s.tasks.List(ctx, ownerID, repository.TaskFilter{Status: status})
}

// ListArchived returns archived tasks, optionally narrowed by status and by
// a case-insensitive search over title and description.
func (s *TaskService) ListArchived(ctx context.Context, ownerID string, status model.Status, query string) ([]model.Task, error) {
	if status != "" {
		if err := validate.Var(status, "oneof=pending in_progress completed"); err != nil {
			return nil, fmt.Errorf("%w: status %q", ErrInvalidTask, status)
		}
	}
	tasks, err := s.tasks.List(ctx, ownerID, repository.TaskFilter{Archived: true, Status: status})
	if err != nil {
		return nil, err
	}

	query = strings.TrimSpace(query)
	if query == "" {
		return tasks, nil
	}
	fold := cases.Fold()
	needle := fold.String(query)
	matched := tasks[:0]
	for _, task := range tasks {
		if strings.Contains(fold.String(task.Title), needle) || strings.Contains(fold.String(task.Description), needle) {
			matched = append(matched, task)
		}
	}
	return matched, nil
}

// NextOccurrence returns the first date after now reached by stepping from
// the current due date by the pattern. Tasks without a due date step from
// the start of today.
func NextOccurrence(due *time.Time, pattern model.Recurrence, now time.Time) time.Time {
	base := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	if due != nil {
		base = *due
	}
	next := step(base, pattern)
	for !next.After(now) {
		next = step(next, pattern)
	}
	return next
}

func step(t time.Time, pattern model.Recurrence) time.Time {
	switch pattern {
	case model.RecurWeekly:
		return t.AddDate(0, 0, 7)
	case model.RecurMonthly:
		return t.AddDate(0, 1, 0)
	default:
		return t.AddDate(0, 0, 1)
	}
}

func apply(task *model.Task, in TaskInput) {
	task.Title = in.Title
	task.Description = in.Description
	task.DueDateType = in.DueDateType
	task.DueDate = in.DueDate
	task.Status = in.Status
	task.IsRecurring = in.IsRecurring
	task.RecurrencePattern = in.RecurrencePattern
}

