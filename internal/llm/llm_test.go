package llm

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	taskmodel "taskly/internal/model"
)

type recordingChat struct {
	got   []*schema.Message
	reply string
	err   error
}

func (r *recordingChat) Generate(_ context.Context, input []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	r.got = input
	if r.err != nil {
		return nil, r.err
	}
	return schema.AssistantMessage(r.reply, nil), nil
}

func (r *recordingChat) Stream(context.Context, []*schema.Message, ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("not supported")
}

func TestClient_CompleteWithContext(t *testing.T) {
	chat := &recordingChat{reply: "  תשובה  "}
	c := NewClient(chat)

	out, err := c.Complete(context.Background(), Request{
		System:  "sys",
		Prompt:  "hi",
		Context: []byte(`[{"title":"A"}]`),
	})
	require.NoError(t, err)
	assert.Equal(t, "תשובה", out)

	require.Len(t, chat.got, 3)
	assert.Equal(t, schema.System, chat.got[0].Role)
	assert.Equal(t, "sys", chat.got[0].Content)
	assert.Equal(t, schema.User, chat.got[1].Role)
	assert.Equal(t, `[{"title":"A"}]`, chat.got[2].Content)
}

func TestClient_CompleteWithoutContext(t *testing.T) {
	chat := &recordingChat{reply: "ok"}
	_, err := NewClient(chat).Complete(context.Background(), Request{System: "s", Prompt: "p"})
	require.NoError(t, err)
	assert.Len(t, chat.got, 2)
}

func TestClient_CompleteError(t *testing.T) {
	chat := &recordingChat{err: errors.New("upstream 429")}
	_, err := NewClient(chat).Complete(context.Background(), Request{System: "s", Prompt: "p"})
	assert.ErrorContains(t, err, "upstream 429")
}

func TestSummarize_OnlyDatedTasksCarryDate(t *testing.T) {
	due := time.Date(2026, 10, 20, 9, 0, 0, 0, time.UTC)
	tasks := []taskmodel.Task{
		{ID: "secret", OwnerID: "owner", Title: "A", DueDateType: taskmodel.DueDate, DueDate: &due, Status: taskmodel.StatusPending},
		{Title: "B", DueDateType: taskmodel.DueUrgent, DueDate: &due},
	}

	raw, err := TaskContext(tasks)
	require.NoError(t, err)
	assert.JSONEq(t, `[
		{"title":"A","due_date":"2026-10-20","due_date_type":"date","status":"pending"},
		{"title":"B","due_date_type":"urgent","status":""}
	]`, string(raw))
	assert.NotContains(t, string(raw), "secret")
}

func TestSystemPrompt_FallsBackToGeneral(t *testing.T) {
	assert.Equal(t, SystemPrompt(KindGeneral), SystemPrompt("whatever"))
	assert.Contains(t, SystemPrompt(KindSplit), "Break down")
}

func TestFactory_ForKey(t *testing.T) {
	var built []Config
	f := NewFactory(Config{Provider: ProviderOllama, Model: "llama3.2"})
	f.build = func(_ context.Context, cfg Config) (Completer, error) {
		built = append(built, cfg)
		return NewClient(&recordingChat{}), nil
	}

	shared1, err := f.ForKey(context.Background(), "")
	require.NoError(t, err)
	shared2, err := f.ForKey(context.Background(), "  ")
	require.NoError(t, err)
	assert.Same(t, shared1, shared2)

	_, err = f.ForKey(context.Background(), "sk-user")
	require.NoError(t, err)

	require.Len(t, built, 2)
	assert.Equal(t, ProviderOllama, built[0].Provider)
	assert.Equal(t, Config{Provider: ProviderOpenAI, APIKey: "sk-user"}, built[1])
}

func TestFactory_DisabledWithoutKey(t *testing.T) {
	f := NewFactory(Config{Provider: ProviderOpenAI})
	assert.False(t, f.Enabled())
	_, err := f.ForKey(context.Background(), "")
	assert.Error(t, err)
}

func TestValidateProvider(t *testing.T) {
	p, err := ValidateProvider("anthropic")
	require.NoError(t, err)
	assert.Equal(t, ProviderAnthropic, p)

	_, err = ValidateProvider("bard")
	assert.Error(t, err)
}

func TestKeyValidator(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models", r.URL.Path)
		if r.Header.Get("Authorization") == "Bearer good" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	v := &KeyValidator{BaseURL: srv.URL, HTTP: srv.Client()}

	ok, err := v.Validate(context.Background(), "good")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = v.Validate(context.Background(), "bad")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = v.Validate(context.Background(), "")
	assert.Error(t, err)
}
