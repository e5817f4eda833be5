package assistant

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskly/internal/llm"
	"taskly/internal/model"
)

type scriptedModel struct {
	replies []string
	err     error
	calls   []llm.Request
	block   chan struct{}
	started chan struct{}
}

func (m *scriptedModel) Complete(_ context.Context, req llm.Request) (string, error) {
	m.calls = append(m.calls, req)
	if m.started != nil {
		close(m.started)
	}
	if m.block != nil {
		<-m.block
	}
	if m.err != nil {
		return "", m.err
	}
	if len(m.replies) == 0 {
		return "ok", nil
	}
	r := m.replies[0]
	m.replies = m.replies[1:]
	return r, nil
}

func taskList(tasks ...model.Task) TaskLister {
	return func(context.Context) ([]model.Task, error) { return tasks, nil }
}

func TestExtractName(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"קוראים לי דנה!!", "קוראים לי דנה", true},
		{"123!!", "", false},
		{"  Dana   Levi. ", "Dana Levi", true},
		{"R2D2", "RD", true},
		{"😀 ???", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := ExtractName(tt.in)
		assert.Equal(t, tt.want, got, tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
	}
}

func TestTransition(t *testing.T) {
	assert.Equal(t, AwaitingName, transition(Uninitialized, evIntroduced))
	assert.Equal(t, Chatting, transition(Uninitialized, evNameKnown))
	assert.Equal(t, Chatting, transition(AwaitingName, evNameAccepted))
	assert.Equal(t, Chatting, transition(Chatting, evIntroduced), "chatting is terminal")
	assert.Equal(t, Uninitialized, transition(Chatting, evClosed))
	assert.Equal(t, Uninitialized, transition(Uninitialized, evNameAccepted))
}

func TestSession_NameCaptureFlow(t *testing.T) {
	ctx := context.Background()
	m := &scriptedModel{replies: []string{"שלום! איך קוראים לך?", "יש לך משימה דחופה"}}
	profile := &MemoryProfile{}
	s := NewSession(m, taskList(model.Task{Title: "A", DueDateType: model.DueUrgent}), profile)

	msgs, err := s.Open(ctx)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, AwaitingName, s.Phase())
	assert.Equal(t, llm.IntroPrompt, m.calls[0].System)

	reply, err := s.Send(ctx, "קוראים לי דנה!!")
	require.NoError(t, err)
	assert.Equal(t, RoleAssistant, reply.Role)
	assert.Contains(t, reply.Content, "קוראים לי דנה")
	assert.Equal(t, Chatting, s.Phase())
	assert.Len(t, m.calls, 1, "accepting a name needs no model call")

	cached, _ := profile.CachedName(ctx)
	assert.Equal(t, "קוראים לי דנה", cached)

	reply, err = s.Send(ctx, "מה דחוף?")
	require.NoError(t, err)
	assert.Equal(t, "יש לך משימה דחופה", reply.Content)
	require.Len(t, m.calls, 2)
	assert.Contains(t, m.calls[1].System, "קוראים לי דנה")
	assert.Contains(t, string(m.calls[1].Context), `"title":"A"`)
	assert.Equal(t, "מה דחוף?", m.calls[1].Prompt)

	assert.Len(t, s.Messages(), 5)
}

func TestSession_NonNameFallsThroughToChat(t *testing.T) {
	ctx := context.Background()
	m := &scriptedModel{replies: []string{"intro", "answer"}}
	profile := &MemoryProfile{}
	s := NewSession(m, taskList(), profile)

	_, err := s.Open(ctx)
	require.NoError(t, err)

	reply, err := s.Send(ctx, "123!!")
	require.NoError(t, err)
	assert.Equal(t, "answer", reply.Content)
	assert.Len(t, m.calls, 2)
	assert.Equal(t, AwaitingName, s.Phase())

	cached, _ := profile.CachedName(ctx)
	assert.Empty(t, cached)
}

func TestSession_CachedNameSkipsIntro(t *testing.T) {
	ctx := context.Background()
	m := &scriptedModel{}
	profile := &MemoryProfile{}
	require.NoError(t, profile.CacheName(ctx, "Dana"))

	s := NewSession(m, taskList(), profile)
	msgs, err := s.Open(ctx)
	require.NoError(t, err)
	assert.Equal(t, Chatting, s.Phase())
	assert.Empty(t, m.calls)
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0].Content, "Dana")

	_, err = s.Send(ctx, "Dana")
	require.NoError(t, err)
	assert.Len(t, m.calls, 1, "in chat phase every message goes to the model")
}

func TestSession_ModelErrorKeepsUserMessage(t *testing.T) {
	ctx := context.Background()
	profile := &MemoryProfile{}
	require.NoError(t, profile.CacheName(ctx, "Dana"))
	m := &scriptedModel{err: errors.New("upstream")}

	s := NewSession(m, taskList(), profile)
	_, err := s.Open(ctx)
	require.NoError(t, err)

	_, err = s.Send(ctx, "hello")
	require.Error(t, err)

	msgs := s.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, RoleUser, msgs[1].Role)
	assert.Equal(t, Chatting, s.Phase())
}

func TestSession_IntroFailureStaysUninitialized(t *testing.T) {
	s := NewSession(&scriptedModel{err: errors.New("down")}, taskList(), &MemoryProfile{})
	_, err := s.Open(context.Background())
	require.Error(t, err)
	assert.Equal(t, Uninitialized, s.Phase())
	assert.Empty(t, s.Messages())
}

func TestSession_SingleFlight(t *testing.T) {
	ctx := context.Background()
	profile := &MemoryProfile{}
	require.NoError(t, profile.CacheName(ctx, "Dana"))
	m := &scriptedModel{block: make(chan struct{}), started: make(chan struct{})}

	s := NewSession(m, taskList(), profile)
	_, err := s.Open(ctx)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := s.Send(ctx, "first")
		done <- err
	}()
	<-m.started

	_, err = s.Send(ctx, "second")
	assert.ErrorIs(t, err, ErrBusy)

	close(m.block)
	require.NoError(t, <-done)

	msgs := s.Messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, "first", msgs[1].Content)
}

func TestSession_CloseResets(t *testing.T) {
	ctx := context.Background()
	s := NewSession(&scriptedModel{}, taskList(), &MemoryProfile{})
	_, err := s.Open(ctx)
	require.NoError(t, err)

	s.Close()
	assert.Equal(t, Uninitialized, s.Phase())
	assert.Empty(t, s.Messages())
}

func TestSession_SendBeforeOpen(t *testing.T) {
	m := &scriptedModel{}
	s := NewSession(m, taskList(), &MemoryProfile{})

	_, err := s.Send(context.Background(), "hello")
	assert.ErrorIs(t, err, ErrNotOpen)
	assert.Empty(t, m.calls)
	assert.Empty(t, s.Messages())
	assert.Equal(t, Uninitialized, s.Phase())

	_, err = s.Open(context.Background())
	require.NoError(t, err)
	s.Close()
	_, err = s.Send(context.Background(), "again")
	assert.ErrorIs(t, err, ErrNotOpen, "a closed session needs reopening")
}
