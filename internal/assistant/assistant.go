// Package assistant runs the two-phase assistant dialogue: learn the user's
// name once, then answer task-aware questions through a language model.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"unicode"

	"taskly/internal/llm"
	"taskly/internal/model"
)

var (
	// ErrBusy is returned while another call on the same session is in flight.
	ErrBusy = errors.New("assistant is busy")
	// ErrNotOpen is returned by Send before Open has succeeded.
	ErrNotOpen = errors.New("session not open")
)

// Phase is the dialogue state of a session.
type Phase int

const (
	Uninitialized Phase = iota
	AwaitingName
	Chatting
)

func (p Phase) String() string {
	switch p {
	case Uninitialized:
		return "uninitialized"
	case AwaitingName:
		return "awaiting_name"
	case Chatting:
		return "chatting"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

type event int

const (
	evNameKnown event = iota
	evIntroduced
	evNameAccepted
	evClosed
)

// transition is the whole state machine. Events that do not apply to the
// current phase leave it unchanged.
func transition(p Phase, ev event) Phase {
	switch {
	case ev == evClosed:
		return Uninitialized
	case p == Uninitialized && ev == evNameKnown:
		return Chatting
	case p == Uninitialized && ev == evIntroduced:
		return AwaitingName
	case p == AwaitingName && ev == evNameAccepted:
		return Chatting
	default:
		return p
	}
}

// Role is the author of a chat message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one chat turn. It is never persisted.
type Message struct {
	Role    Role
	Content string
}

// ProfileStore holds the name the assistant learned. It outlives sessions.
type ProfileStore interface {
	CachedName(ctx context.Context) (string, error)
	CacheName(ctx context.Context, name string) error
}

// TaskLister returns the tasks attached to each chat turn.
type TaskLister func(ctx context.Context) ([]model.Task, error)

// Session is one assistant conversation. Calls are single-flight: a call
// made while another is outstanding fails with ErrBusy.
type Session struct {
	model   llm.Completer
	tasks   TaskLister
	profile ProfileStore

	inflight sync.Mutex

	mu       sync.Mutex
	phase    Phase
	name     string
	messages []Message
}

func NewSession(completer llm.Completer, tasks TaskLister, profile ProfileStore) *Session {
	return &Session{model: completer, tasks: tasks, profile: profile}
}

// Open starts the dialogue. With a cached name the session goes straight to
// chatting; otherwise the model introduces itself and asks for the name.
// Opening an already opened session is a no-op.
func (s *Session) Open(ctx context.Context) ([]Message, error) {
	if !s.inflight.TryLock() {
		return nil, ErrBusy
	}
	defer s.inflight.Unlock()

	if s.Phase() != Uninitialized {
		return s.Messages(), nil
	}

	name, err := s.profile.CachedName(ctx)
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}
	if name = strings.TrimSpace(name); name != "" {
		s.mu.Lock()
		s.name = name
		s.messages = append(s.messages, Message{Role: RoleAssistant, Content: greeting(name)})
		s.phase = transition(s.phase, evNameKnown)
		s.mu.Unlock()
		return s.Messages(), nil
	}

	intro, err := s.model.Complete(ctx, llm.Request{System: llm.IntroPrompt, Prompt: llm.IntroRequest})
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.messages = append(s.messages, Message{Role: RoleAssistant, Content: intro})
	s.phase = transition(s.phase, evIntroduced)
	s.mu.Unlock()
	return s.Messages(), nil
}

// Send appends the user's message and returns the assistant's reply. On a
// model error the user's message stays and no reply is added.
func (s *Session) Send(ctx context.Context, text string) (Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Message{}, errors.New("empty message")
	}
	if !s.inflight.TryLock() {
		return Message{}, ErrBusy
	}
	defer s.inflight.Unlock()

	s.mu.Lock()
	phase := s.phase
	if phase == Uninitialized {
		s.mu.Unlock()
		return Message{}, ErrNotOpen
	}
	s.messages = append(s.messages, Message{Role: RoleUser, Content: text})
	s.mu.Unlock()

	if phase == AwaitingName {
		if name, ok := ExtractName(text); ok {
			if err := s.profile.CacheName(ctx, name); err != nil {
				return Message{}, fmt.Errorf("save profile: %w", err)
			}
			reply := Message{Role: RoleAssistant, Content: acknowledgement(name)}
			s.mu.Lock()
			s.name = name
			s.messages = append(s.messages, reply)
			s.phase = transition(s.phase, evNameAccepted)
			s.mu.Unlock()
			return reply, nil
		}
	}

	return s.chat(ctx, text)
}

func (s *Session) chat(ctx context.Context, text string) (Message, error) {
	tasks, err := s.tasks(ctx)
	if err != nil {
		return Message{}, fmt.Errorf("load tasks: %w", err)
	}
	taskCtx, err := llm.TaskContext(tasks)
	if err != nil {
		return Message{}, err
	}

	s.mu.Lock()
	name := s.name
	s.mu.Unlock()

	answer, err := s.model.Complete(ctx, llm.Request{
		System:  llm.ChatPrompt(name),
		Prompt:  text,
		Context: taskCtx,
	})
	if err != nil {
		return Message{}, err
	}

	reply := Message{Role: RoleAssistant, Content: answer}
	s.mu.Lock()
	s.messages = append(s.messages, reply)
	s.mu.Unlock()
	return reply, nil
}

// Close discards the conversation. The cached name is kept by the profile.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = nil
	s.name = ""
	s.phase = transition(s.phase, evClosed)
}

func (s *Session) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// Messages returns a copy of the conversation so far.
func (s *Session) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// ExtractName keeps the Hebrew and Latin letters of input, with single
// spaces between words. ok is false when no letters remain.
func ExtractName(input string) (string, bool) {
	var b strings.Builder
	for _, r := range input {
		switch {
		case unicode.In(r, unicode.Hebrew, unicode.Latin) && unicode.IsLetter(r):
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		}
	}
	name := strings.Join(strings.Fields(b.String()), " ")
	return name, name != ""
}

func greeting(name string) string {
	return fmt.Sprintf("שלום %s! במה אוכל לעזור לך עם המשימות שלך?", name)
}

func acknowledgement(name string) string {
	return fmt.Sprintf("נעים להכיר, %s! אפשר לשאול אותי כל דבר על המשימות שלך.", name)
}

// MemoryProfile is a ProfileStore kept in process memory.
type MemoryProfile struct {
	mu   sync.Mutex
	name string
}

func (p *MemoryProfile) CachedName(context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.name, nil
}

func (p *MemoryProfile) CacheName(_ context.Context, name string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.name = name
	return nil
}
