package capture

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/ashureev/kalnadai-care/internal/shared"
)

// SpeechState is the recognizer state.
type SpeechState string

const (
	SpeechIdle      SpeechState = "idle"
	SpeechListening SpeechState = "listening"
)

// SpeechEvent drives the state machine.
type SpeechEvent string

const (
	SpeechStart      SpeechEvent = "start"
	SpeechTranscript SpeechEvent = "transcript"
	SpeechError      SpeechEvent = "error"
	SpeechStop       SpeechEvent = "stop"
)

var (
	// ErrAlreadyListening is returned by Start while a recognition is running.
	ErrAlreadyListening = errors.New("already listening")
	// ErrUnknownSpeechEvent is returned for events the machine does not know.
	ErrUnknownSpeechEvent = errors.New("unknown speech event")
)

// ParseSpeechEvent maps a transport event name to a SpeechEvent. The browser
// names "result" and "end" are accepted as aliases.
func ParseSpeechEvent(s string) (SpeechEvent, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "start":
		return SpeechStart, nil
	case "transcript", "result":
		return SpeechTranscript, nil
	case "error":
		return SpeechError, nil
	case "stop", "end":
		return SpeechStop, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownSpeechEvent, s)
	}
}

// Transition describes one state change.
type Transition struct {
	From       SpeechState `json:"from"`
	To         SpeechState `json:"to"`
	Event      SpeechEvent `json:"event"`
	Transcript string      `json:"transcript,omitempty"`
	Locale     string      `json:"locale"`
}

// Speech is the two-state recognizer machine. A listening session ends with
// at most one transcript; errors and stops end it silently.
type Speech struct {
	mu        sync.Mutex
	state     SpeechState
	locale    string
	listeners shared.Listeners[Transition]
}

// NewSpeech creates an idle machine that listens in locale.
func NewSpeech(locale string) *Speech {
	return &Speech{state: SpeechIdle, locale: locale}
}

// State returns the current state.
func (s *Speech) State() SpeechState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Locale returns the recognition locale.
func (s *Speech) Locale() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.locale
}

// SetLocale changes the locale used by the next recognition.
func (s *Speech) SetLocale(locale string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.locale = locale
}

// Subscribe registers fn to receive every transition.
func (s *Speech) Subscribe(fn func(Transition)) (remove func()) {
	return s.listeners.Add(fn)
}

// Start begins listening for a single utterance.
func (s *Speech) Start() error {
	if !s.move(SpeechIdle, SpeechListening, SpeechStart, "") {
		return ErrAlreadyListening
	}
	return nil
}

// Toggle starts listening when idle and stops it otherwise.
func (s *Speech) Toggle() {
	if s.State() == SpeechListening {
		s.Stop()
		return
	}
	_ = s.Start()
}

// TranscriptReady delivers the recognized text and returns to idle. A
// transcript that arrives while idle is dropped.
func (s *Speech) TranscriptReady(text string) {
	s.move(SpeechListening, SpeechIdle, SpeechTranscript, strings.TrimSpace(text))
}

// Fail ends listening without a transcript.
func (s *Speech) Fail() {
	s.move(SpeechListening, SpeechIdle, SpeechError, "")
}

// Stop ends listening without a transcript.
func (s *Speech) Stop() {
	s.move(SpeechListening, SpeechIdle, SpeechStop, "")
}

// Handle applies an event received from the client.
func (s *Speech) Handle(event SpeechEvent, text string) error {
	switch event {
	case SpeechStart:
		return s.Start()
	case SpeechTranscript:
		s.TranscriptReady(text)
	case SpeechError:
		s.Fail()
	case SpeechStop:
		s.Stop()
	default:
		return fmt.Errorf("%w: %q", ErrUnknownSpeechEvent, event)
	}
	return nil
}

func (s *Speech) move(from, to SpeechState, event SpeechEvent, transcript string) bool {
	s.mu.Lock()
	if s.state != from {
		s.mu.Unlock()
		return false
	}
	s.state = to
	tr := Transition{From: from, To: to, Event: event, Transcript: transcript, Locale: s.locale}
	s.mu.Unlock()

	s.listeners.Notify(tr)
	return true
}
