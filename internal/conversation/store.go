// Package conversation owns conversation state and the submit/advise/append
// orchestration around it.
package conversation

import (
	"sync"
	"time"

	"github.com/ashureev/kalnadai-care/internal/domain"
	"github.com/ashureev/kalnadai-care/internal/shared"
)

// EventType categorizes store changes.
type EventType string

const (
	EventMessage  EventType = "message"
	EventLoading  EventType = "loading"
	EventCleared  EventType = "cleared"
	EventLanguage EventType = "language"
)

// Event is published after every store mutation.
type Event struct {
	Type     EventType       `json:"type"`
	Message  *domain.Message `json:"message,omitempty"`
	Loading  bool            `json:"loading"`
	Language domain.Language `json:"language"`
}

// State is a point-in-time copy of the conversation.
type State struct {
	Messages  []domain.Message `json:"messages"`
	IsLoading bool             `json:"is_loading"`
	Language  domain.Language  `json:"language"`
}

// Ticket identifies an accepted request. Generation ties the request to the
// log it was submitted against; Language is the language at submission.
type Ticket struct {
	Generation uint64
	Language   domain.Language
}

// Store is the single owner of one conversation's state. All mutations go
// through its methods.
type Store struct {
	mu         sync.Mutex
	messages   []domain.Message
	loading    bool
	language   domain.Language
	generation uint64
	lastActive time.Time
	now        func() time.Time
	listeners  shared.Listeners[Event]
}

// NewStore creates an empty conversation in lang.
func NewStore(lang domain.Language) *Store {
	if !lang.Valid() {
		lang = domain.DefaultLanguage
	}
	s := &Store{language: lang, now: time.Now}
	s.lastActive = s.now()
	return s
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	msgs := make([]domain.Message, len(s.messages))
	copy(msgs, s.messages)
	return State{Messages: msgs, IsLoading: s.loading, Language: s.language}
}

// Language returns the selected language.
func (s *Store) Language() domain.Language {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.language
}

// IsLoading returns true while an advisory request is outstanding.
func (s *Store) IsLoading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// Len returns the number of messages.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messages)
}

// LastActive returns the time of the last mutation.
func (s *Store) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

// Touch marks the conversation as active without changing it.
func (s *Store) Touch() {
	s.mu.Lock()
	s.lastActive = s.now()
	s.mu.Unlock()
}

// Subscribe registers fn for every event. fn runs on the mutating goroutine
// and must not block.
func (s *Store) Subscribe(fn func(Event)) (remove func()) {
	return s.listeners.Add(fn)
}

// Begin appends the user message and raises the loading flag in one step.
// It reports false, changing nothing, if a request is already outstanding.
func (s *Store) Begin(msg domain.Message) (Ticket, bool) {
	s.mu.Lock()
	if s.loading {
		s.mu.Unlock()
		return Ticket{}, false
	}
	s.messages = append(s.messages, msg)
	s.loading = true
	s.lastActive = s.now()
	t := Ticket{Generation: s.generation, Language: s.language}
	lang := s.language
	s.mu.Unlock()

	s.listeners.Notify(Event{Type: EventMessage, Message: &msg, Loading: true, Language: lang})
	s.listeners.Notify(Event{Type: EventLoading, Loading: true, Language: lang})
	return t, true
}

// Finish appends reply (if non-nil) and lowers the loading flag. A reply for
// a generation that has since been cleared is discarded; Finish reports
// whether reply was appended.
func (s *Store) Finish(t Ticket, reply *domain.Message) bool {
	s.mu.Lock()
	appended := false
	if reply != nil && t.Generation == s.generation {
		s.messages = append(s.messages, *reply)
		appended = true
	}
	s.loading = false
	s.lastActive = s.now()
	lang := s.language
	s.mu.Unlock()

	if appended {
		msg := *reply
		s.listeners.Notify(Event{Type: EventMessage, Message: &msg, Loading: false, Language: lang})
	}
	s.listeners.Notify(Event{Type: EventLoading, Loading: false, Language: lang})
	return appended
}

// Clear discards the whole log. The language and the loading flag are left
// alone; a reply still in flight will be dropped when it arrives.
func (s *Store) Clear() {
	s.mu.Lock()
	s.messages = nil
	s.generation++
	s.lastActive = s.now()
	loading, lang := s.loading, s.language
	s.mu.Unlock()

	s.listeners.Notify(Event{Type: EventCleared, Loading: loading, Language: lang})
}

// ToggleLanguage switches between English and Tamil and returns the new
// language. Existing messages are untouched.
func (s *Store) ToggleLanguage() domain.Language {
	s.mu.Lock()
	s.language = s.language.Toggle()
	s.lastActive = s.now()
	loading, lang := s.loading, s.language
	s.mu.Unlock()

	s.listeners.Notify(Event{Type: EventLanguage, Loading: loading, Language: lang})
	return lang
}
