package api

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/ashureev/kalnadai-care/internal/capture"
	"github.com/ashureev/kalnadai-care/internal/conversation"
	"github.com/ashureev/kalnadai-care/internal/datauri"
	"github.com/ashureev/kalnadai-care/internal/domain"
	"github.com/ashureev/kalnadai-care/internal/i18n"
	"github.com/go-chi/chi/v5"
)

// ConversationHandler serves the conversation JSON API.
type ConversationHandler struct {
	*Handler
}

// NewConversationHandler creates a conversation handler.
func NewConversationHandler(base *Handler) *ConversationHandler {
	return &ConversationHandler{Handler: base}
}

// RegisterRoutes registers conversation routes.
func (h *ConversationHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Get("/state", h.GetState)
		r.Get("/translations", h.GetTranslations)
		r.Get("/catalog", h.GetCatalog)
		r.Post("/submit", h.Submit)
		r.Post("/animals/{id}/ask", h.AskAnimal)
		r.Post("/clear", h.Clear)
		r.Post("/language/toggle", h.ToggleLanguage)
		r.Get("/draft", h.GetDraft)
		r.Post("/draft", h.UpdateDraft)
		r.Post("/speech", h.Speech)
	})
}

type submitRequest struct {
	Text  string `json:"text"`
	Image string `json:"image,omitempty"`
}

type submitResponse struct {
	Accepted bool             `json:"accepted"`
	Reason   string           `json:"reason,omitempty"`
	Failed   bool             `json:"failed,omitempty"`
	Reply    *domain.Message  `json:"reply,omitempty"`
	Messages []domain.Message `json:"messages"`
	Loading  bool             `json:"is_loading"`
	Language domain.Language  `json:"language"`
}

type draftRequest struct {
	Text       *string `json:"text,omitempty"`
	Image      *string `json:"image,omitempty"`
	ClearImage bool    `json:"clear_image,omitempty"`
}

type speechRequest struct {
	Event string `json:"event"`
	Text  string `json:"text,omitempty"`
}

type speechResponse struct {
	State  capture.SpeechState `json:"state"`
	Locale string              `json:"locale"`
	Draft  capture.Draft       `json:"draft"`
}

// GetState returns the conversation transcript, loading flag and language.
func (h *ConversationHandler) GetState(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, h.Session(r).Store.Snapshot())
}

// GetTranslations returns the localized UI strings for the current language.
func (h *ConversationHandler) GetTranslations(w http.ResponseWriter, r *http.Request) {
	lang := h.Session(r).Store.Language()
	JSON(w, http.StatusOK, map[string]interface{}{
		"language":      lang,
		"speech_locale": i18n.SpeechLocale(lang),
		"strings":       i18n.For(lang),
	})
}

// GetCatalog returns the animal catalog in the current language.
func (h *ConversationHandler) GetCatalog(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, i18n.Catalog(h.Session(r).Store.Language()))
}

// Submit sends a question. With an empty body the device's server-side
// draft is submitted instead.
func (h *ConversationHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := decodeJSON(w, r, h.maxBody, &req); err != nil && !errors.Is(err, io.EOF) {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sess := h.Session(r)
	var (
		ex  conversation.Exchange
		err error
	)
	if req.Text == "" && req.Image == "" {
		ex, err = sess.SubmitDraft(r.Context())
	} else {
		ex, err = sess.Service.Submit(r.Context(), conversation.Input{Text: req.Text, Image: req.Image})
	}
	h.writeSubmit(w, sess, ex, err)
}

// AskAnimal submits the starter question for a catalog animal.
func (h *ConversationHandler) AskAnimal(w http.ResponseWriter, r *http.Request) {
	sess := h.Session(r)
	ex, err := sess.Service.AskAbout(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, i18n.ErrUnknownAnimal) {
		Error(w, http.StatusNotFound, "unknown animal")
		return
	}
	h.writeSubmit(w, sess, ex, err)
}

func (h *ConversationHandler) writeSubmit(w http.ResponseWriter, sess *conversation.Session, ex conversation.Exchange, err error) {
	resp := submitResponse{Accepted: err == nil}
	switch {
	case err == nil:
		resp.Failed = ex.Failed
		resp.Reply = ex.Reply
	case errors.Is(err, conversation.ErrEmptyInput):
		resp.Reason = "empty"
	case errors.Is(err, conversation.ErrRequestInFlight):
		resp.Reason = "busy"
	default:
		slog.Error("Submission failed", "device_id", sess.DeviceID, "error", err)
		Error(w, http.StatusInternalServerError, "submission failed")
		return
	}

	state := sess.Store.Snapshot()
	resp.Messages = state.Messages
	resp.Loading = state.IsLoading
	resp.Language = state.Language
	JSON(w, http.StatusOK, resp)
}

// Clear empties the conversation.
func (h *ConversationHandler) Clear(w http.ResponseWriter, r *http.Request) {
	sess := h.Session(r)
	sess.Service.Clear()
	JSON(w, http.StatusOK, sess.Store.Snapshot())
}

// ToggleLanguage flips between Tamil and English and remembers the choice.
func (h *ConversationHandler) ToggleLanguage(w http.ResponseWriter, r *http.Request) {
	sess := h.Session(r)
	lang := sess.Service.ToggleLanguage()
	h.PersistLanguage(r.Context(), sess.DeviceID, lang)

	JSON(w, http.StatusOK, map[string]interface{}{
		"language":      lang,
		"speech_locale": i18n.SpeechLocale(lang),
		"strings":       i18n.For(lang),
	})
}

// GetDraft returns the composer draft.
func (h *ConversationHandler) GetDraft(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, h.Session(r).Composer.Draft())
}

// UpdateDraft edits the composer draft. Images must be image data URIs.
func (h *ConversationHandler) UpdateDraft(w http.ResponseWriter, r *http.Request) {
	var req draftRequest
	if err := decodeJSON(w, r, h.maxBody, &req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sess := h.Session(r)
	if req.Image != nil && *req.Image != "" {
		if !datauri.IsImageURI(*req.Image) {
			Error(w, http.StatusBadRequest, "image must be an image data URI")
			return
		}
	}
	if req.Text != nil {
		sess.Composer.SetText(*req.Text)
	}
	switch {
	case req.ClearImage:
		sess.Composer.ClearImage()
	case req.Image != nil:
		sess.Composer.SetImage(*req.Image)
	}
	JSON(w, http.StatusOK, sess.Composer.Draft())
}

// Speech applies a recognizer event reported by the browser.
func (h *ConversationHandler) Speech(w http.ResponseWriter, r *http.Request) {
	var req speechRequest
	if err := decodeJSON(w, r, h.maxBody, &req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	event, err := capture.ParseSpeechEvent(req.Event)
	if err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}

	sess := h.Session(r)
	if err := sess.Speech.Handle(event, req.Text); err != nil {
		if errors.Is(err, capture.ErrAlreadyListening) {
			Error(w, http.StatusConflict, "already listening")
			return
		}
		Error(w, http.StatusBadRequest, err.Error())
		return
	}

	JSON(w, http.StatusOK, speechResponse{
		State:  sess.Speech.State(),
		Locale: sess.Speech.Locale(),
		Draft:  sess.Composer.Draft(),
	})
}
