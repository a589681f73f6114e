// Package i18n holds the localization table and the livestock catalog.
package i18n

import (
	"fmt"

	"github.com/ashureev/kalnadai-care/internal/domain"
	"golang.org/x/text/language"
)

// Translation is the full set of user-facing strings for one language.
type Translation struct {
	Title             string   `json:"title"`
	Subtitle          string   `json:"subtitle"`
	SearchPlaceholder string   `json:"search_placeholder"`
	UploadPhoto       string   `json:"upload_photo"`
	StartSpeaking     string   `json:"start_speaking"`
	StopSpeaking      string   `json:"stop_speaking"`
	Loading           string   `json:"loading"`
	Animals           string   `json:"animals"`
	AskAI             string   `json:"ask_ai"`
	LanguageName      string   `json:"language_name"`
	ErrorGeneric      string   `json:"error_generic"`
	Consultation      string   `json:"consultation"`
	ClearChat         string   `json:"clear_chat"`
	SuggestedTopics   []string `json:"suggested_topics"`
}

var translations = map[domain.Language]Translation{
	domain.LanguageEnglish: {
		Title:             "Kalnadai Care",
		Subtitle:          "Livestock Management Assistant",
		SearchPlaceholder: "Ask about health issues...",
		UploadPhoto:       "Upload Photo",
		StartSpeaking:     "Tap to Speak",
		StopSpeaking:      "Listening...",
		Loading:           "Consulting AI Veterinarian...",
		Animals:           "Livestock",
		AskAI:             "Ask AI Expert",
		LanguageName:      "தமிழ்",
		ErrorGeneric:      "Something went wrong. Please try again.",
		Consultation:      "Consultation",
		ClearChat:         "New Chat",
		SuggestedTopics:   []string{"Cow not eating", "Chicken flu symptoms", "Goat vaccination schedule"},
	},
	domain.LanguageTamil: {
		Title:             "கால்நடை காப்பகம்",
		Subtitle:          "கால்நடை பராமரிப்பு உதவியாளர்",
		SearchPlaceholder: "சுகாதாரப் பிரச்சினைகளைக் கேளுங்கள்...",
		UploadPhoto:       "புகைப்படம்",
		StartSpeaking:     "பேசவும்",
		StopSpeaking:      "கேட்கிறது...",
		Loading:           "AI மருத்துவரை கலந்தாலோசிக்கிறது...",
		Animals:           "கால்நடைகள்",
		AskAI:             "AI நிபுணரிடம் கேளுங்கள்",
		LanguageName:      "English",
		ErrorGeneric:      "ஏதோ தவறு நடந்துள்ளது. மீண்டும் முயற்சிக்கவும்.",
		Consultation:      "ஆலோசனை",
		ClearChat:         "புதிய கேள்வி",
		SuggestedTopics:   []string{"பசு சாப்பிடவில்லை", "கோழி காய்ச்சல் அறிகுறிகள்", "ஆடு தடுப்பூசி அட்டவணை"},
	},
}

// For returns the translation for lang. Unknown languages fall back to the
// default language.
func For(lang domain.Language) Translation {
	if t, ok := translations[lang]; ok {
		return t
	}
	return translations[domain.DefaultLanguage]
}

// ErrorMessage returns the localized apology shown when advice could not be
// produced.
func ErrorMessage(lang domain.Language) string {
	return For(lang).ErrorGeneric
}

// AnimalPrompt returns the starter question submitted when a catalog entry is
// selected.
func AnimalPrompt(a domain.Animal, lang domain.Language) string {
	if lang == domain.LanguageTamil {
		return fmt.Sprintf("%s பற்றி எனக்கு பொதுவான சுகாதார குறிப்புகளை சொல்லுங்கள்.", a.NameTa)
	}
	return fmt.Sprintf("Tell me general health tips for %s.", a.NameEn)
}

var (
	supportedTags = []language.Tag{language.Tamil, language.English}
	matcher       = language.NewMatcher(supportedTags)

	speechLocales = map[domain.Language]language.Tag{
		domain.LanguageTamil:   language.MustParse("ta-IN"),
		domain.LanguageEnglish: language.MustParse("en-IN"),
	}
)

// Negotiate picks a supported language from an Accept-Language header value.
// It returns fallback when the header is empty, malformed or matches nothing.
func Negotiate(acceptLanguage string, fallback domain.Language) domain.Language {
	if acceptLanguage == "" {
		return fallback
	}
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return fallback
	}
	_, idx, conf := matcher.Match(tags...)
	if conf == language.No {
		return fallback
	}
	if supportedTags[idx] == language.English {
		return domain.LanguageEnglish
	}
	return domain.LanguageTamil
}

// SpeechLocale returns the BCP 47 locale the speech recognizer should listen
// in for lang.
func SpeechLocale(lang domain.Language) string {
	if tag, ok := speechLocales[lang]; ok {
		return tag.String()
	}
	return speechLocales[domain.DefaultLanguage].String()
}
