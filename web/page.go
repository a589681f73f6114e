package web

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/ashureev/kalnadai-care/internal/api"
	"github.com/ashureev/kalnadai-care/internal/conversation"
	"github.com/ashureev/kalnadai-care/internal/datauri"
	"github.com/ashureev/kalnadai-care/internal/domain"
	"github.com/ashureev/kalnadai-care/internal/i18n"
	"github.com/go-chi/chi/v5"
)

const timeLayout = "15:04"

var errNotImage = errors.New("uploaded file is not an image")

// PageHandler renders the chat page and handles its form posts.
type PageHandler struct {
	*api.Handler
	tmpl     *template.Template
	renderer *Renderer
}

// NewPageHandler creates a page handler.
func NewPageHandler(base *api.Handler) *PageHandler {
	return &PageHandler{
		Handler:  base,
		tmpl:     parseTemplates(),
		renderer: NewRenderer(),
	}
}

// RegisterRoutes registers the page routes. Static assets are served by
// StaticHandler and need no device.
func (h *PageHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.Index)
	r.Post("/submit", h.Submit)
	r.Post("/clear", h.Clear)
	r.Post("/language", h.ToggleLanguage)
	r.Post("/animals/{id}", h.AskAnimal)
}

type messageView struct {
	Role  domain.Role
	Text  string
	HTML  template.HTML
	Image template.URL
	Time  string
}

type pageView struct {
	Lang         domain.Language
	T            i18n.Translation
	SpeechLocale string
	Messages     []messageView
	Loading      bool
	Catalog      []i18n.LocalizedAnimal
	Draft        string
	HasDraftImg  bool
	Notice       string
}

func isUser(role domain.Role) bool {
	return role == domain.RoleUser
}

// Index renders the page for the device's conversation.
func (h *PageHandler) Index(w http.ResponseWriter, r *http.Request) {
	sess := h.Session(r)
	state := sess.Store.Snapshot()
	view := h.buildView(state, sess.Composer.Draft().Text, sess.Composer.Draft().Image != "")

	switch r.URL.Query().Get("notice") {
	case "busy":
		view.Notice = view.T.Loading
	case "image":
		view.Notice = view.T.ErrorGeneric
	}

	var buf bytes.Buffer
	if err := h.tmpl.ExecuteTemplate(&buf, "index.html", view); err != nil {
		slog.Error("Failed to render page", "error", err)
		http.Error(w, "failed to render page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

func (h *PageHandler) buildView(state conversation.State, draft string, hasImage bool) pageView {
	view := pageView{
		Lang:         state.Language,
		T:            i18n.For(state.Language),
		SpeechLocale: i18n.SpeechLocale(state.Language),
		Loading:      state.IsLoading,
		Draft:        draft,
		HasDraftImg:  hasImage,
	}
	for _, m := range state.Messages {
		mv := messageView{
			Role: m.Role,
			Text: m.Text,
			Time: m.Timestamp.Format(timeLayout),
		}
		if m.Role == domain.RoleModel {
			mv.HTML = h.renderer.Render(m.Text)
		}
		if img, ok := datauri.Decode(m.Image); ok && datauri.IsImage(img.MIMEType) {
			mv.Image = template.URL(m.Image) //nolint:gosec // validated image data URI
		}
		view.Messages = append(view.Messages, mv)
	}
	if len(view.Messages) == 0 {
		view.Catalog = i18n.Catalog(state.Language)
	}
	return view
}

// Submit handles the composer form. The text field and optional image file
// replace the draft, which is then submitted.
func (h *PageHandler) Submit(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.MaxBody())
	if err := r.ParseMultipartForm(h.MaxBody()); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		slog.Warn("Failed to parse submission", "error", err)
		http.Error(w, "invalid submission", http.StatusBadRequest)
		return
	}

	sess := h.Session(r)
	image, err := readImage(r, h.MaxBody())
	if err != nil {
		slog.Warn("Rejected upload", "device_id", sess.DeviceID, "error", err)
		redirect(w, r, "image")
		return
	}

	if text, ok := r.Form["text"]; ok {
		sess.Composer.SetText(strings.Join(text, " "))
	}
	if image != "" {
		sess.Composer.SetImage(image)
	}

	_, err = sess.SubmitDraft(r.Context())
	switch {
	case err == nil, errors.Is(err, conversation.ErrEmptyInput):
		redirect(w, r, "")
	case errors.Is(err, conversation.ErrRequestInFlight):
		redirect(w, r, "busy")
	default:
		slog.Error("Submission failed", "device_id", sess.DeviceID, "error", err)
		http.Error(w, "submission failed", http.StatusInternalServerError)
	}
}

// readImage returns the uploaded "image" file as a data URI, or "" when no
// file was sent.
func readImage(r *http.Request, limit int64) (string, error) {
	file, header, err := r.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read upload: %w", err)
	}
	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(io.LimitReader(file, limit))
	if err != nil {
		return "", fmt.Errorf("read upload: %w", err)
	}
	if len(data) == 0 {
		return "", nil
	}

	mimeType := http.DetectContentType(data)
	if !datauri.IsImage(mimeType) {
		return "", fmt.Errorf("%w: %s (%s)", errNotImage, header.Filename, mimeType)
	}
	return datauri.Encode(mimeType, data), nil
}

// AskAnimal submits the starter question for the selected animal.
func (h *PageHandler) AskAnimal(w http.ResponseWriter, r *http.Request) {
	sess := h.Session(r)
	_, err := sess.Service.AskAbout(r.Context(), chi.URLParam(r, "id"))
	switch {
	case err == nil:
		redirect(w, r, "")
	case errors.Is(err, i18n.ErrUnknownAnimal):
		http.NotFound(w, r)
	case errors.Is(err, conversation.ErrRequestInFlight):
		redirect(w, r, "busy")
	default:
		slog.Error("Animal question failed", "device_id", sess.DeviceID, "error", err)
		http.Error(w, "submission failed", http.StatusInternalServerError)
	}
}

// Clear empties the conversation.
func (h *PageHandler) Clear(w http.ResponseWriter, r *http.Request) {
	h.Session(r).Service.Clear()
	redirect(w, r, "")
}

// ToggleLanguage switches the page language and remembers it.
func (h *PageHandler) ToggleLanguage(w http.ResponseWriter, r *http.Request) {
	sess := h.Session(r)
	lang := sess.Service.ToggleLanguage()
	h.PersistLanguage(r.Context(), sess.DeviceID, lang)
	redirect(w, r, "")
}

func redirect(w http.ResponseWriter, r *http.Request, notice string) {
	target := "/"
	if notice != "" {
		target += "?notice=" + notice
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}
