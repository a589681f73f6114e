// Package advisory adapts the remote generative model into a single
// veterinary advice call.
package advisory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ashureev/kalnadai-care/internal/domain"
)

// ErrAdviceFailure covers every way an advisory call can fail. Callers get no
// finer classification.
var ErrAdviceFailure = errors.New("advice failure")

// Image is raw image data with its mime type.
type Image struct {
	Data     []byte
	MIMEType string
}

// Request is one advisory question.
type Request struct {
	Prompt   string
	Image    *Image
	Language domain.Language
}

// Advisor answers a single advisory request.
type Advisor interface {
	Advise(ctx context.Context, req Request) (string, error)
}

// Completer is the remote model capability. It returns the completion text,
// which may be empty.
type Completer interface {
	Complete(ctx context.Context, payload Payload) (string, error)
}

// Service turns requests into payloads and makes exactly one remote call.
type Service struct {
	completer Completer
	logger    *slog.Logger
}

// Ensure Service implements Advisor.
var _ Advisor = (*Service)(nil)

// NewService creates an advisory service backed by completer.
func NewService(completer Completer, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{completer: completer, logger: logger}
}

// Advise builds the payload for req and invokes the remote model once.
func (s *Service) Advise(ctx context.Context, req Request) (string, error) {
	payload := BuildPayload(req)

	text, err := s.completer.Complete(ctx, payload)
	if err != nil {
		s.logger.Warn("Advisory call failed",
			"language", req.Language,
			"has_image", req.Image != nil,
			"error", err,
		)
		return "", fmt.Errorf("%w: %v", ErrAdviceFailure, err)
	}

	if text == "" {
		s.logger.Info("Advisory call returned no text", "language", req.Language)
		return NoResponseText, nil
	}
	return text, nil
}
