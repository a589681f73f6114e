package conversation

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/ashureev/kalnadai-care/internal/advisory"
	"github.com/ashureev/kalnadai-care/internal/capture"
	"github.com/ashureev/kalnadai-care/internal/domain"
	"github.com/ashureev/kalnadai-care/internal/i18n"
)

// Session bundles the per-device conversation with its input capture.
type Session struct {
	DeviceID string
	Store    *Store
	Service  *Service
	Composer *capture.Composer
	Speech   *capture.Speech

	unwire []func()
}

func newSession(deviceID string, lang domain.Language, advisor advisory.Advisor, cfg RegistryConfig) *Session {
	store := NewStore(lang)
	sess := &Session{
		DeviceID: deviceID,
		Store:    store,
		Service: NewService(store, advisor, ServiceConfig{
			DeviceID: deviceID,
			Timeout:  cfg.Timeout,
			Log:      cfg.Log,
			Logger:   cfg.Logger,
		}),
		Composer: capture.NewComposer(),
		Speech:   capture.NewSpeech(i18n.SpeechLocale(store.Language())),
	}

	sess.unwire = append(sess.unwire,
		sess.Speech.Subscribe(func(tr capture.Transition) {
			if tr.Event == capture.SpeechTranscript && tr.Transcript != "" {
				sess.Composer.AppendTranscript(tr.Transcript)
			}
		}),
		store.Subscribe(func(ev Event) {
			if ev.Type == EventLanguage {
				sess.Speech.SetLocale(i18n.SpeechLocale(ev.Language))
			}
		}),
	)
	return sess
}

// SubmitDraft sends the composer's draft and clears the composer once the
// submission is accepted for sending. A draft taken by a submission that
// loses the race to another request is put back.
func (s *Session) SubmitDraft(ctx context.Context) (Exchange, error) {
	if !s.Composer.CanSubmit(s.Store.IsLoading()) {
		if s.Composer.Draft().Empty() {
			return Exchange{}, ErrEmptyInput
		}
		return Exchange{}, ErrRequestInFlight
	}
	draft := s.Composer.Take()
	ex, err := s.Service.Submit(ctx, Input{Text: draft.Text, Image: draft.Image})
	if errors.Is(err, ErrRequestInFlight) {
		s.Composer.Restore(draft)
	}
	return ex, err
}

func (s *Session) close() {
	for _, fn := range s.unwire {
		fn()
	}
	s.Speech.Stop()
}

// RegistryConfig is shared by every session the registry creates.
type RegistryConfig struct {
	Advisor advisory.Advisor
	Timeout time.Duration
	Log     ConversationLogger
	Logger  *slog.Logger
}

// Registry holds one Session per device.
type Registry struct {
	cfg RegistryConfig

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewRegistry creates an empty registry.
func NewRegistry(cfg RegistryConfig) *Registry {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Registry{cfg: cfg, sessions: make(map[string]*Session)}
}

// Get returns the device's session, creating it in lang if needed. The
// language of an existing session is left alone.
func (r *Registry) Get(deviceID string, lang domain.Language) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	if sess, ok := r.sessions[deviceID]; ok {
		sess.Store.Touch()
		return sess
	}
	sess := newSession(deviceID, lang, r.cfg.Advisor, r.cfg)
	r.sessions[deviceID] = sess
	r.cfg.Logger.Debug("Conversation session created", "device_id", deviceID, "language", sess.Store.Language())
	return sess
}

// Lookup returns the device's session if it exists.
func (r *Registry) Lookup(deviceID string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sess, ok := r.sessions[deviceID]
	return sess, ok
}

// Evict drops sessions idle for longer than idle. Sessions with a request in
// flight are kept. It returns the evicted device IDs.
func (r *Registry) Evict(idle time.Duration, now time.Time) []string {
	r.mu.Lock()
	var evicted []*Session
	for id, sess := range r.sessions {
		if sess.Store.IsLoading() {
			continue
		}
		if now.Sub(sess.Store.LastActive()) > idle {
			delete(r.sessions, id)
			evicted = append(evicted, sess)
		}
	}
	r.mu.Unlock()

	ids := make([]string, 0, len(evicted))
	for _, sess := range evicted {
		sess.close()
		ids = append(ids, sess.DeviceID)
	}
	return ids
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
