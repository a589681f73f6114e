package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/ashureev/kalnadai-care/internal/capture"
	"github.com/ashureev/kalnadai-care/internal/conversation"
	"github.com/ashureev/kalnadai-care/internal/domain"
	"github.com/ashureev/kalnadai-care/internal/i18n"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode[T any](t *testing.T, body []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(body, &v))
	return v
}

func TestSubmitFlow(t *testing.T) {
	env := newTestEnv(t, domain.LanguageEnglish)

	rec := env.do(t, http.MethodPost, "/api/submit", `{"text":"Cow not eating"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[submitResponse](t, rec.Body.Bytes())
	assert.True(t, resp.Accepted)
	assert.False(t, resp.Failed)
	require.Len(t, resp.Messages, 2)
	assert.Equal(t, domain.RoleUser, resp.Messages[0].Role)
	assert.Equal(t, "Give the cow fresh water.", resp.Messages[1].Text)
	assert.False(t, resp.Loading)

	rec = env.do(t, http.MethodGet, "/api/state", "")
	state := decode[conversation.State](t, rec.Body.Bytes())
	assert.Len(t, state.Messages, 2)
	assert.Equal(t, domain.LanguageEnglish, state.Language)
}

func TestSubmitEmptyIsNotAccepted(t *testing.T) {
	env := newTestEnv(t, domain.LanguageEnglish)

	for _, body := range []string{"", `{}`, `{"text":"   "}`} {
		rec := env.do(t, http.MethodPost, "/api/submit", body)
		require.Equal(t, http.StatusOK, rec.Code, "body %q", body)
		resp := decode[submitResponse](t, rec.Body.Bytes())
		assert.False(t, resp.Accepted)
		assert.Equal(t, "empty", resp.Reason)
		assert.Empty(t, resp.Messages)
	}
	assert.Equal(t, 0, env.advisor.calls())
}

func TestSubmitBusyIsNotAccepted(t *testing.T) {
	env := newTestEnv(t, domain.LanguageEnglish)
	sess := env.registry.Get(testDeviceID, domain.LanguageEnglish)
	ticket, ok := sess.Store.Begin(domain.Message{ID: "1", Role: domain.RoleUser, Text: "pending"})
	require.True(t, ok)
	defer sess.Store.Finish(ticket, nil)

	rec := env.do(t, http.MethodPost, "/api/submit", `{"text":"second"}`)
	resp := decode[submitResponse](t, rec.Body.Bytes())
	assert.False(t, resp.Accepted)
	assert.Equal(t, "busy", resp.Reason)
	assert.True(t, resp.Loading)
	assert.Equal(t, 0, env.advisor.calls())
}

func TestSubmitFailureShowsLocalizedError(t *testing.T) {
	env := newTestEnv(t, domain.LanguageTamil)
	env.advisor.err = errors.New("quota exceeded")

	rec := env.do(t, http.MethodPost, "/api/submit", `{"text":"பசு"}`)
	resp := decode[submitResponse](t, rec.Body.Bytes())
	assert.True(t, resp.Accepted)
	assert.True(t, resp.Failed)
	require.Len(t, resp.Messages, 2)
	assert.Equal(t, i18n.ErrorMessage(domain.LanguageTamil), resp.Messages[1].Text)
}

func TestSubmitDraft(t *testing.T) {
	env := newTestEnv(t, domain.LanguageEnglish)

	rec := env.do(t, http.MethodPost, "/api/draft", `{"text":"Goat limping"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/submit", "")
	resp := decode[submitResponse](t, rec.Body.Bytes())
	assert.True(t, resp.Accepted)
	assert.Equal(t, "Goat limping", resp.Messages[0].Text)

	rec = env.do(t, http.MethodGet, "/api/draft", "")
	assert.True(t, decode[capture.Draft](t, rec.Body.Bytes()).Empty())
}

func TestUpdateDraftRejectsNonImage(t *testing.T) {
	env := newTestEnv(t, domain.LanguageEnglish)

	rec := env.do(t, http.MethodPost, "/api/draft", `{"image":"data:text/plain;base64,aGk="}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/draft", `{"image":"data:image/png;base64,iVBORw0K"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "data:image/png;base64,iVBORw0K", decode[capture.Draft](t, rec.Body.Bytes()).Image)

	rec = env.do(t, http.MethodPost, "/api/draft", `{"clear_image":true}`)
	assert.Empty(t, decode[capture.Draft](t, rec.Body.Bytes()).Image)
}

func TestAskAnimal(t *testing.T) {
	env := newTestEnv(t, domain.LanguageEnglish)

	rec := env.do(t, http.MethodPost, "/api/animals/goat/ask", "")
	resp := decode[submitResponse](t, rec.Body.Bytes())
	assert.True(t, resp.Accepted)
	assert.Equal(t, "Tell me general health tips for Goat.", resp.Messages[0].Text)

	rec = env.do(t, http.MethodPost, "/api/animals/unicorn/ask", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestClearAndToggle(t *testing.T) {
	env := newTestEnv(t, domain.LanguageTamil)
	env.do(t, http.MethodPost, "/api/submit", `{"text":"q"}`)

	rec := env.do(t, http.MethodPost, "/api/language/toggle", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[map[string]any](t, rec.Body.Bytes())
	assert.Equal(t, "en", body["language"])
	assert.Equal(t, "en-IN", body["speech_locale"])

	state := decode[conversation.State](t, env.do(t, http.MethodGet, "/api/state", "").Body.Bytes())
	assert.Len(t, state.Messages, 2, "toggle keeps messages")

	rec = env.do(t, http.MethodPost, "/api/clear", "")
	state = decode[conversation.State](t, rec.Body.Bytes())
	assert.Empty(t, state.Messages)
	assert.Equal(t, domain.LanguageEnglish, state.Language)
}

func TestSpeechEndpoint(t *testing.T) {
	env := newTestEnv(t, domain.LanguageTamil)

	rec := env.do(t, http.MethodPost, "/api/speech", `{"event":"start"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[speechResponse](t, rec.Body.Bytes())
	assert.Equal(t, capture.SpeechListening, resp.State)
	assert.Equal(t, "ta-IN", resp.Locale)

	rec = env.do(t, http.MethodPost, "/api/speech", `{"event":"start"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/speech", `{"event":"result","text":"மாடு இருமல்"}`)
	resp = decode[speechResponse](t, rec.Body.Bytes())
	assert.Equal(t, capture.SpeechIdle, resp.State)
	assert.Equal(t, "மாடு இருமல்", resp.Draft.Text)

	rec = env.do(t, http.MethodPost, "/api/speech", `{"event":"dance"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTranslationsAndCatalog(t *testing.T) {
	env := newTestEnv(t, domain.LanguageTamil)

	rec := env.do(t, http.MethodGet, "/api/translations", "")
	body := decode[map[string]any](t, rec.Body.Bytes())
	assert.Equal(t, "ta", body["language"])

	rec = env.do(t, http.MethodGet, "/api/catalog", "")
	catalog := decode[[]i18n.LocalizedAnimal](t, rec.Body.Bytes())
	assert.Len(t, catalog, 5)
}
