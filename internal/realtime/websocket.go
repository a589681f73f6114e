package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/ashureev/kalnadai-care/internal/capture"
	"github.com/ashureev/kalnadai-care/internal/conversation"
	"github.com/ashureev/kalnadai-care/internal/datauri"
	"github.com/ashureev/kalnadai-care/internal/domain"
	"github.com/ashureev/kalnadai-care/internal/identity"
	"github.com/coder/websocket"
)

const (
	outboundQueueSize = 64
	writeTimeout      = 10 * time.Second
)

// Outbound event types.
const (
	TypeState    = "state"
	TypeMessage  = "message"
	TypeLoading  = "loading"
	TypeCleared  = "cleared"
	TypeLanguage = "language"
	TypeSpeech   = "speech"
	TypeDraft    = "draft"
	TypePong     = "pong"
	TypeError    = "error"
)

// ServerMessage is one event pushed to the browser.
type ServerMessage struct {
	Type     string              `json:"type"`
	Message  *domain.Message     `json:"message,omitempty"`
	Loading  *bool               `json:"loading,omitempty"`
	Language domain.Language     `json:"language,omitempty"`
	State    *conversation.State `json:"state,omitempty"`
	Speech   *capture.Transition `json:"speech,omitempty"`
	Draft    *capture.Draft      `json:"draft,omitempty"`
	Error    string              `json:"error,omitempty"`
}

// ClientMessage is one event sent by the browser.
type ClientMessage struct {
	Type  string `json:"type"`
	Event string `json:"event,omitempty"` // speech event name
	Text  string `json:"text,omitempty"`
	Image string `json:"image,omitempty"`
}

// Handler upgrades requests to websockets streaming the device's
// conversation events.
type Handler struct {
	registry      *conversation.Registry
	hub           *Hub
	allowedOrigin string
	isDev         bool
	readLimit     int64
}

// NewHandler creates a new websocket handler. maxImageBytes bounds the decoded
// size of an image sent in a draft message; zero keeps the library default
// read limit.
func NewHandler(registry *conversation.Registry, hub *Hub, allowedOrigin string, isDev bool, maxImageBytes int64) *Handler {
	var readLimit int64
	if maxImageBytes > 0 {
		// base64 plus the JSON envelope and draft text
		readLimit = maxImageBytes*4/3 + 64<<10
	}
	return &Handler{
		registry:      registry,
		hub:           hub,
		allowedOrigin: allowedOrigin,
		isDev:         isDev,
		readLimit:     readLimit,
	}
}

// ServeHTTP implements http.Handler for the websocket upgrade.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	deviceID := identity.DeviceIDFromContext(r.Context())
	if deviceID == "" {
		http.Error(w, "unknown device", http.StatusUnauthorized)
		return
	}
	if !h.checkOrigin(r) {
		http.Error(w, "origin not allowed", http.StatusForbidden)
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("Failed to accept WebSocket", "error", err, "device_id", deviceID)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "session ended"); closeErr != nil {
			slog.Debug("Failed to close websocket", "error", closeErr, "device_id", deviceID)
		}
	}()

	if h.readLimit > 0 {
		ws.SetReadLimit(h.readLimit)
	}

	h.hub.Register(deviceID, ws)
	defer h.hub.Unregister(deviceID, ws)

	sess := h.registry.Get(deviceID, identity.LanguageFromContext(r.Context()))

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	out := make(chan ServerMessage, outboundQueueSize)
	push := func(msg ServerMessage) {
		select {
		case out <- msg:
		default:
			// A reader this far behind is dropped; the page reloads state on reconnect.
			slog.Warn("Realtime queue full, closing connection", "device_id", deviceID)
			cancel()
		}
	}

	for _, remove := range subscribe(sess, push) {
		defer remove()
	}

	state := sess.Store.Snapshot()
	push(ServerMessage{Type: TypeState, State: &state, Language: state.Language})

	done := make(chan struct{})
	go func() {
		defer close(done)
		defer cancel()
		h.writeLoop(ctx, ws, out, deviceID)
	}()

	h.readLoop(ctx, ws, sess, push)
	cancel()
	<-done
	slog.Debug("Realtime session ended", "device_id", deviceID)
}

func subscribe(sess *conversation.Session, push func(ServerMessage)) []func() {
	return []func(){
		sess.Store.Subscribe(func(ev conversation.Event) {
			loading := ev.Loading
			msg := ServerMessage{Language: ev.Language, Loading: &loading}
			switch ev.Type {
			case conversation.EventMessage:
				msg.Type = TypeMessage
				msg.Message = ev.Message
			case conversation.EventLoading:
				msg.Type = TypeLoading
			case conversation.EventCleared:
				msg.Type = TypeCleared
			case conversation.EventLanguage:
				msg.Type = TypeLanguage
			default:
				return
			}
			push(msg)
		}),
		sess.Speech.Subscribe(func(tr capture.Transition) {
			push(ServerMessage{Type: TypeSpeech, Speech: &tr})
		}),
		sess.Composer.OnChange(func(d capture.Draft) {
			push(ServerMessage{Type: TypeDraft, Draft: &d})
		}),
	}
}

func (h *Handler) checkOrigin(r *http.Request) bool {
	if h.isDev {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" || h.allowedOrigin == "*" {
		return true
	}
	if origin == h.allowedOrigin {
		return true
	}
	slog.Warn("WebSocket origin rejected", "origin", origin, "allowed", h.allowedOrigin)
	return false
}

func (h *Handler) readLoop(ctx context.Context, ws *websocket.Conn, sess *conversation.Session, push func(ServerMessage)) {
	for {
		_, data, err := ws.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != -1 || ctx.Err() != nil {
				slog.Debug("WebSocket closed", "device_id", sess.DeviceID)
			} else {
				slog.Warn("WebSocket read error", "error", err, "device_id", sess.DeviceID)
			}
			return
		}

		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			push(ServerMessage{Type: TypeError, Error: "invalid message"})
			continue
		}

		switch msg.Type {
		case "ping":
			push(ServerMessage{Type: TypePong})
		case "speech":
			event, err := capture.ParseSpeechEvent(msg.Event)
			if err == nil {
				err = sess.Speech.Handle(event, msg.Text)
			}
			if err != nil {
				push(ServerMessage{Type: TypeError, Error: err.Error()})
			}
		case "draft":
			if msg.Image != "" && !datauri.IsImageURI(msg.Image) {
				push(ServerMessage{Type: TypeError, Error: "image must be an image data URI"})
				continue
			}
			sess.Composer.SetText(msg.Text)
			if msg.Image != "" {
				sess.Composer.SetImage(msg.Image)
			}
		default:
			push(ServerMessage{Type: TypeError, Error: "unknown message type"})
		}
	}
}

func (h *Handler) writeLoop(ctx context.Context, ws *websocket.Conn, out <-chan ServerMessage, deviceID string) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-out:
			if err := writeJSON(ctx, ws, msg); err != nil {
				if ctx.Err() == nil {
					slog.Debug("WebSocket write error", "error", err, "device_id", deviceID)
				}
				return
			}
		}
	}
}

func writeJSON(ctx context.Context, ws *websocket.Conn, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return ws.Write(ctx, websocket.MessageText, data)
}
