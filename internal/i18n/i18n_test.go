package i18n

import (
	"testing"

	"github.com/ashureev/kalnadai-care/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestForReturnsBothLanguages(t *testing.T) {
	en := For(domain.LanguageEnglish)
	ta := For(domain.LanguageTamil)

	assert.Equal(t, "Something went wrong. Please try again.", en.ErrorGeneric)
	assert.Equal(t, "ஏதோ தவறு நடந்துள்ளது. மீண்டும் முயற்சிக்கவும்.", ta.ErrorGeneric)
	assert.Len(t, en.SuggestedTopics, 3)
	assert.Len(t, ta.SuggestedTopics, 3)
	assert.Equal(t, "தமிழ்", en.LanguageName, "the toggle label names the other language")
}

func TestForUnknownLanguageFallsBack(t *testing.T) {
	assert.Equal(t, For(domain.DefaultLanguage), For(domain.Language("fr")))
}

func TestAnimalLookup(t *testing.T) {
	cow, err := Animal("cow")
	require.NoError(t, err)
	assert.Equal(t, "Cow", cow.NameEn)

	_, err = Animal("llama")
	assert.ErrorIs(t, err, ErrUnknownAnimal)
}

func TestAnimalsReturnsCopy(t *testing.T) {
	a := Animals()
	require.Len(t, a, 5)
	a[0].NameEn = "changed"

	again := Animals()
	assert.Equal(t, "Cow", again[0].NameEn)
}

func TestCatalogLocalized(t *testing.T) {
	ta := Catalog(domain.LanguageTamil)
	require.Len(t, ta, 5)
	assert.Equal(t, "பசு (Cow)", ta[0].Name)

	en := Catalog(domain.LanguageEnglish)
	assert.Equal(t, "Sheep", en[4].Name)
	assert.Equal(t, "Primarily for wool and meat. Needs grazing lands.", en[4].Description)
}

func TestAnimalPrompt(t *testing.T) {
	cow, err := Animal("cow")
	require.NoError(t, err)

	assert.Equal(t, "Tell me general health tips for Cow.", AnimalPrompt(cow, domain.LanguageEnglish))
	assert.Equal(t, "பசு (Cow) பற்றி எனக்கு பொதுவான சுகாதார குறிப்புகளை சொல்லுங்கள்.", AnimalPrompt(cow, domain.LanguageTamil))
}

func TestNegotiate(t *testing.T) {
	tests := []struct {
		name     string
		header   string
		fallback domain.Language
		want     domain.Language
	}{
		{"empty", "", domain.LanguageTamil, domain.LanguageTamil},
		{"english", "en-US,en;q=0.9", domain.LanguageTamil, domain.LanguageEnglish},
		{"tamil", "ta-IN,ta;q=0.9,en;q=0.5", domain.LanguageEnglish, domain.LanguageTamil},
		{"unsupported", "fr-FR", domain.LanguageTamil, domain.LanguageTamil},
		{"malformed", "%%%", domain.LanguageEnglish, domain.LanguageEnglish},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Negotiate(tt.header, tt.fallback))
		})
	}
}

func TestSpeechLocale(t *testing.T) {
	assert.Equal(t, "ta-IN", SpeechLocale(domain.LanguageTamil))
	assert.Equal(t, "en-IN", SpeechLocale(domain.LanguageEnglish))
	assert.Equal(t, "ta-IN", SpeechLocale(domain.Language("xx")))
}
