// Package classifier partitions a user's tasks into the categories the
// recommendation generator and the task lists work from.
package classifier

import (
	"time"

	"taskly/internal/model"
)

// Classification holds category memberships. Urgent, DueToday and Overdue
// never contain completed tasks; DueToday and Overdue are disjoint.
type Classification struct {
	Urgent    []model.Task
	DueToday  []model.Task
	Overdue   []model.Task
	Completed []model.Task
	// Open is every non-completed task in input order.
	Open []model.Task
}

// Classify partitions tasks relative to now. Archived tasks are skipped.
func Classify(tasks []model.Task, now time.Time) Classification {
	var c Classification
	for _, task := range tasks {
		if task.IsArchived {
			continue
		}
		if task.IsCompleted() {
			c.Completed = append(c.Completed, task)
			continue
		}
		c.Open = append(c.Open, task)
		switch {
		case IsUrgent(task):
			c.Urgent = append(c.Urgent, task)
		case IsOverdue(task, now):
			c.Overdue = append(c.Overdue, task)
		case IsDueToday(task, now):
			c.DueToday = append(c.DueToday, task)
		}
	}
	return c
}

// IsUrgent reports whether the task is urgent by its due-date type. The date
// itself is never consulted.
func IsUrgent(task model.Task) bool {
	if task.IsCompleted() {
		return false
	}
	return task.DueDateType == model.DueUrgent || task.DueDateType == model.DueASAP
}

// IsDueToday reports whether a dated task falls on now's calendar day.
func IsDueToday(task model.Task, now time.Time) bool {
	day, ok := dueDay(task, now.Location())
	if !ok {
		return false
	}
	return day.Equal(startOfDay(now))
}

// IsOverdue reports whether a dated task's calendar day is before today.
func IsOverdue(task model.Task, now time.Time) bool {
	day, ok := dueDay(task, now.Location())
	if !ok {
		return false
	}
	return day.Before(startOfDay(now))
}

// dueDay returns the start of the due date's day in loc, for open dated
// tasks only. Tasks typed "date" without a date are unscheduled.
func dueDay(task model.Task, loc *time.Location) (time.Time, bool) {
	if task.IsCompleted() || task.DueDateType != model.DueDate || task.DueDate == nil {
		return time.Time{}, false
	}
	return startOfDay(task.DueDate.In(loc)), true
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
