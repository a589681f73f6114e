// Package domain contains core domain types for the Kalnadai Care application.
package domain

import "strings"

// Language is a supported interface and reply language.
type Language string

const (
	// LanguageEnglish selects English strings and English replies.
	LanguageEnglish Language = "en"
	// LanguageTamil selects Tamil strings and Tamil replies.
	LanguageTamil Language = "ta"
)

// DefaultLanguage is used when nothing better is known about a device.
const DefaultLanguage = LanguageTamil

// ParseLanguage normalizes a language code. It reports false for anything
// other than "en" or "ta".
func ParseLanguage(s string) (Language, bool) {
	switch Language(strings.ToLower(strings.TrimSpace(s))) {
	case LanguageEnglish:
		return LanguageEnglish, true
	case LanguageTamil:
		return LanguageTamil, true
	default:
		return "", false
	}
}

// Valid returns true if l is one of the supported languages.
func (l Language) Valid() bool {
	return l == LanguageEnglish || l == LanguageTamil
}

// Toggle returns the other supported language.
func (l Language) Toggle() Language {
	if l == LanguageEnglish {
		return LanguageTamil
	}
	return LanguageEnglish
}
