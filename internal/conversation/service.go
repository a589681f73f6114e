package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ashureev/kalnadai-care/internal/advisory"
	"github.com/ashureev/kalnadai-care/internal/datauri"
	"github.com/ashureev/kalnadai-care/internal/domain"
	"github.com/ashureev/kalnadai-care/internal/i18n"
	"github.com/google/uuid"
)

var (
	// ErrEmptyInput is returned when there is neither text nor an image.
	ErrEmptyInput = errors.New("empty input")
	// ErrRequestInFlight is returned while another submission is outstanding.
	ErrRequestInFlight = errors.New("request already in flight")
)

// Input is one submission from the composer.
type Input struct {
	Text  string `json:"text"`
	Image string `json:"image,omitempty"` // data URI
}

// Exchange is the result of an accepted submission.
type Exchange struct {
	Request domain.Message  `json:"request"`
	Reply   *domain.Message `json:"reply,omitempty"` // nil when the log was cleared mid-flight
	Failed  bool            `json:"failed"`
}

// ServiceConfig tunes a Service.
type ServiceConfig struct {
	DeviceID string
	// Timeout bounds one advisory call. Zero means no bound beyond the
	// advisor's own.
	Timeout time.Duration
	Log     ConversationLogger
	Logger  *slog.Logger
}

// Service runs submissions against one Store.
type Service struct {
	store    *Store
	advisor  advisory.Advisor
	deviceID string
	timeout  time.Duration
	log      ConversationLogger
	logger   *slog.Logger
	now      func() time.Time
	newID    func() string
}

// NewService creates a Service for store.
func NewService(store *Store, advisor advisory.Advisor, cfg ServiceConfig) *Service {
	if cfg.Log == nil {
		cfg.Log = noopConversationLogger{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Service{
		store:    store,
		advisor:  advisor,
		deviceID: cfg.DeviceID,
		timeout:  cfg.Timeout,
		log:      cfg.Log,
		logger:   cfg.Logger,
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// Submit appends the user's message, asks the advisor once and appends the
// reply or the localized apology. The loading flag is lowered on every path.
func (s *Service) Submit(ctx context.Context, in Input) (Exchange, error) {
	if strings.TrimSpace(in.Text) == "" && in.Image == "" {
		return Exchange{}, ErrEmptyInput
	}

	userMsg := domain.Message{
		ID:        s.newID(),
		Role:      domain.RoleUser,
		Text:      in.Text,
		Image:     in.Image,
		Timestamp: s.now(),
	}

	ticket, ok := s.store.Begin(userMsg)
	if !ok {
		return Exchange{}, ErrRequestInFlight
	}

	finished := false
	defer func() {
		if !finished {
			s.store.Finish(ticket, nil)
		}
	}()

	s.logEvent("user_message", ticket.Language, userMsg, nil)

	text, err := s.advise(ctx, ticket.Language, in)
	failed := err != nil
	if failed {
		text = i18n.ErrorMessage(ticket.Language)
	}

	reply := domain.Message{
		ID:        s.newID(),
		Role:      domain.RoleModel,
		Text:      text,
		Timestamp: s.now(),
	}
	appended := s.store.Finish(ticket, &reply)
	finished = true

	s.logEvent("model_message", ticket.Language, reply, map[string]any{
		"failed":   failed,
		"appended": appended,
	})

	ex := Exchange{Request: userMsg, Failed: failed}
	if appended {
		ex.Reply = &reply
	} else {
		s.logger.Info("Discarded reply for cleared conversation", "device_id", s.deviceID)
	}
	return ex, nil
}

// AskAbout submits the starter question for a catalog animal in the current
// language.
func (s *Service) AskAbout(ctx context.Context, animalID string) (Exchange, error) {
	animal, err := i18n.Animal(animalID)
	if err != nil {
		return Exchange{}, fmt.Errorf("ask about %q: %w", animalID, err)
	}
	return s.Submit(ctx, Input{Text: i18n.AnimalPrompt(animal, s.store.Language())})
}

// Clear empties the conversation.
func (s *Service) Clear() {
	s.store.Clear()
	s.logEvent("cleared", s.store.Language(), domain.Message{}, nil)
}

// ToggleLanguage flips the language used for rendering and the next request.
func (s *Service) ToggleLanguage() domain.Language {
	return s.store.ToggleLanguage()
}

func (s *Service) advise(ctx context.Context, lang domain.Language, in Input) (string, error) {
	req := advisory.Request{Prompt: in.Text, Language: lang}
	if img := decodeImage(in.Image); img != nil {
		req.Image = img
	} else if in.Image != "" {
		s.logger.Warn("Ignoring malformed image data", "device_id", s.deviceID, "length", len(in.Image))
	}

	// In-flight advice is never cancelled by the caller going away.
	callCtx := context.WithoutCancel(ctx)
	if s.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(callCtx, s.timeout)
		defer cancel()
	}

	return s.advisor.Advise(callCtx, req)
}

func decodeImage(uri string) *advisory.Image {
	if uri == "" {
		return nil
	}
	img, ok := datauri.Decode(uri)
	if !ok {
		return nil
	}
	data, err := img.Bytes()
	if err != nil {
		return nil
	}
	return &advisory.Image{Data: data, MIMEType: img.MIMEType}
}

func (s *Service) logEvent(eventType string, lang domain.Language, msg domain.Message, meta map[string]any) {
	s.log.Log(ConversationLogEvent{
		Timestamp:  s.now().UTC().Format(time.RFC3339Nano),
		DeviceID:   s.deviceID,
		EventType:  eventType,
		Role:       string(msg.Role),
		Language:   string(lang),
		ContentRaw: msg.Text,
		Content:    cleanForReadability(msg.Text),
		HasImage:   msg.HasImage(),
		Meta:       meta,
	})
}
