// Package recommend derives the recommendation set shown next to a user's
// tasks and replaces the stored set on every run.
package recommend

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"taskly/internal/classifier"
	"taskly/internal/llm"
	"taskly/internal/model"
)

// TaskLoader returns an owner's non-archived tasks, completed ones included.
type TaskLoader interface {
	ListActive(ctx context.Context, ownerID string) ([]model.Task, error)
}

// Store persists the recommendation set.
type Store interface {
	DeleteByOwner(ctx context.Context, ownerID string) error
	InsertBatch(ctx context.Context, recs []model.Recommendation) error
}

// ModelSource resolves the completer used to phrase an owner's
// recommendations.
type ModelSource interface {
	CompleterFor(ctx context.Context, ownerID string) (llm.Completer, error)
}

// Generator builds and stores recommendations.
type Generator struct {
	tasks  TaskLoader
	store  Store
	models ModelSource
	now    func() time.Time
}

type Option func(*Generator)

// WithModel phrases non-empty task lists through a language model instead
// of the built-in rules.
func WithModel(src ModelSource) Option {
	return func(g *Generator) { g.models = src }
}

// WithClock overrides the time used for due-date comparisons.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) { g.now = now }
}

func NewGenerator(tasks TaskLoader, store Store, opts ...Option) *Generator {
	g := &Generator{tasks: tasks, store: store, now: time.Now}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Regenerate rebuilds the owner's recommendations. The new set is computed
// before anything is deleted; deletion completes before insertion starts.
func (g *Generator) Regenerate(ctx context.Context, ownerID string) ([]model.Recommendation, error) {
	tasks, err := g.tasks.ListActive(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("load tasks: %w", err)
	}

	c := classifier.Classify(tasks, g.now())

	var recs []model.Recommendation
	if g.models != nil && len(c.Open) > 0 {
		rec, err := g.fromModel(ctx, ownerID, c)
		if err != nil {
			return nil, err
		}
		recs = []model.Recommendation{rec}
	} else {
		recs = Build(c)
	}

	now := g.now().UTC()
	for i := range recs {
		recs[i].OwnerID = ownerID
		recs[i].CreatedAt = now
	}

	if err := g.store.DeleteByOwner(ctx, ownerID); err != nil {
		return nil, err
	}
	if err := g.store.InsertBatch(ctx, recs); err != nil {
		return nil, err
	}

	log.Printf("[info] recommendations regenerated owner=%s count=%d", ownerID, len(recs))
	return recs, nil
}

func (g *Generator) fromModel(ctx context.Context, ownerID string, c classifier.Classification) (model.Recommendation, error) {
	completer, err := g.models.CompleterFor(ctx, ownerID)
	if err != nil {
		return model.Recommendation{}, err
	}
	taskCtx, err := llm.TaskContext(c.Open)
	if err != nil {
		return model.Recommendation{}, err
	}

	text, err := completer.Complete(ctx, llm.Request{
		System:  llm.RecommendationPrompt,
		Prompt:  llm.RecommendationRequest,
		Context: taskCtx,
	})
	if err != nil {
		return model.Recommendation{}, fmt.Errorf("phrase recommendation: %w", err)
	}

	recType := model.RecMotivation
	if len(c.Urgent) > 0 {
		recType = model.RecUrgent
	}
	return model.Recommendation{Content: text, Type: recType, Reasoning: reasonModel}, nil
}

// Build turns a classification into rule-based recommendations, one record
// per triggering task: urgent first, then overdue, then due today.
func Build(c classifier.Classification) []model.Recommendation {
	if len(c.Open) == 0 {
		content := contentNoOpen
		if n := len(c.Completed); n > 0 {
			content = fmt.Sprintf("%s (השלמת כבר %d משימות)", contentNoOpen, n)
		}
		return []model.Recommendation{{Content: content, Type: model.RecMotivation, Reasoning: reasonNoOpen}}
	}

	var recs []model.Recommendation
	for _, t := range c.Urgent {
		reason := reasonUrgent
		if t.DueDateType == model.DueASAP {
			reason = reasonASAP
		}
		recs = append(recs, model.Recommendation{
			Content:   fmt.Sprintf("המשימה \"%s\" דחופה ודורשת טיפול מיידי", t.Title),
			Type:      model.RecUrgent,
			Reasoning: reason,
		})
	}
	for _, t := range c.Overdue {
		recs = append(recs, model.Recommendation{
			Content:   fmt.Sprintf("המשימה \"%s\" עברה את תאריך היעד (%s)", t.Title, t.DueDate.Format("02.01.2006")),
			Type:      model.RecOverdue,
			Reasoning: reasonOverdue,
		})
	}
	for _, t := range c.DueToday {
		recs = append(recs, model.Recommendation{
			Content:   fmt.Sprintf("המשימה \"%s\" מתוכננת להיום", t.Title),
			Type:      model.RecTaskAnalysis,
			Reasoning: reasonDueToday,
		})
	}

	if len(recs) == 0 {
		titles := make([]string, 0, len(c.Open))
		for _, t := range c.Open {
			titles = append(titles, t.Title)
		}
		recs = append(recs, model.Recommendation{
			Content:   fmt.Sprintf("יש לך %d משימות פתוחות: %s. בחר אחת והתחל!", len(c.Open), strings.Join(titles, ", ")),
			Type:      model.RecMotivation,
			Reasoning: reasonNothingPressing,
		})
	}

	if n := len(c.Completed); n > 0 {
		recs = append(recs, model.Recommendation{
			Content:   fmt.Sprintf("כל הכבוד! השלמת כבר %d משימות", n),
			Type:      model.RecMotivation,
			Reasoning: reasonCompleted,
		})
	}
	return recs
}

const (
	contentNoOpen         = "אין לך משימות פתוחות, זה הזמן ליצור משימות חדשות"
	reasonNoOpen          = "אין משימות פתוחות"
	reasonUrgent          = "משימה מסומנת כדחופה"
	reasonASAP            = "משימה מסומנת לביצוע בהקדם האפשרי"
	reasonOverdue         = "תאריך היעד עבר"
	reasonDueToday        = "תאריך היעד הוא היום"
	reasonNothingPressing = "אין משימות דחופות או באיחור"
	reasonCompleted       = "עידוד על השלמת משימות"
	reasonModel           = "ניתוח של המשימות הפתוחות"
)
