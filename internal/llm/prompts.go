package llm

import (
	"encoding/json"
	"fmt"

	"taskly/internal/model"
)

// Kind selects the persona of a free-form assistant call.
type Kind string

const (
	KindPrioritize Kind = "prioritize"
	KindSplit      Kind = "split"
	KindMotivate   Kind = "motivate"
	KindGeneral    Kind = "general"
)

// SystemPrompt returns the instruction for kind. Unknown kinds fall back to
// the general assistant.
func SystemPrompt(kind Kind) string {
	switch kind {
	case KindPrioritize:
		return "You are a helpful task management assistant. Analyze the following tasks and suggest priorities based on due dates and status. Respond in Hebrew."
	case KindSplit:
		return "You are a task breakdown specialist. Break down the following task into smaller, actionable steps. Respond in Hebrew."
	case KindMotivate:
		return "You are an encouraging assistant. Provide a motivational message in Hebrew for completing a task."
	default:
		return "You are a helpful task management assistant. Answer questions about tasks and provide guidance in Hebrew."
	}
}

// RecommendationPrompt asks for a single short prioritisation hint.
const RecommendationPrompt = "You are a personal task prioritisation assistant. Read the user's open tasks " +
	"(JSON) and write one short recommendation in Hebrew, at most two sentences. " +
	"Address urgent and ASAP items first, then overdue ones."

// RecommendationRequest is the user message paired with RecommendationPrompt.
const RecommendationRequest = "What should I focus on now?"

// IntroPrompt opens an assistant session when the user's name is unknown.
const IntroPrompt = "You are a friendly personal task assistant. Introduce yourself in one or two " +
	"sentences and ask the user for their name. Respond in Hebrew."

// IntroRequest is the synthetic user turn sent with IntroPrompt.
const IntroRequest = "שלום"

// ChatPrompt is the task-aware chat instruction for a known user.
func ChatPrompt(name string) string {
	return fmt.Sprintf("%s The user's name is %s; address them by name. "+
		"Their current task list follows as JSON. Use **bold** for task titles.",
		SystemPrompt(KindGeneral), name)
}

// TaskSummary is the part of a task sent to a model.
type TaskSummary struct {
	Title       string            `json:"title"`
	Description string            `json:"description,omitempty"`
	DueDate     string            `json:"due_date,omitempty"`
	DueDateType model.DueDateType `json:"due_date_type"`
	Status      model.Status      `json:"status"`
}

// Summarize keeps only the fields a model needs.
func Summarize(tasks []model.Task) []TaskSummary {
	out := make([]TaskSummary, 0, len(tasks))
	for _, t := range tasks {
		s := TaskSummary{
			Title:       t.Title,
			Description: t.Description,
			DueDateType: t.DueDateType,
			Status:      t.Status,
		}
		if t.DueDateType == model.DueDate && t.DueDate != nil {
			s.DueDate = t.DueDate.Format("2006-01-02")
		}
		out = append(out, s)
	}
	return out
}

// TaskContext encodes task summaries for Request.Context.
func TaskContext(tasks []model.Task) (json.RawMessage, error) {
	b, err := json.Marshal(Summarize(tasks))
	if err != nil {
		return nil, fmt.Errorf("encode task context: %w", err)
	}
	return b, nil
}
