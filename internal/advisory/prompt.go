package advisory

import (
	"github.com/ashureev/kalnadai-care/internal/domain"
)

// SystemInstruction is the fixed veterinary role given to the model.
const SystemInstruction = `
You are an expert Veterinary AI Assistant for farmers in Tamil Nadu, India.
Your goal is to help with "Kalnadai Paramarippu" (Livestock Management).

RULES:
1. Identify the animal if an image is provided.
2. If the user describes a symptom or shows a sick animal, provide:
   - Possible Diagnosis (Disease name).
   - Immediate First Aid.
   - Traditional Home Remedies (Paati Vaithiyam) using common herbs like turmeric, neem, etc.
   - Modern Medical Advice (suggest consulting a vet for serious issues).
3. If the user asks about diet, suggest local feed options (fodder, oil cakes, etc.).
4. Language Output:
   - If the input is Tamil, reply in Tamil.
   - If the input is English, reply in English.
   - If unsure, default to the language requested in the prompt configuration.
5. Keep the tone empathetic, practical, and simple for farmers.
`

const (
	directiveTamil   = "Reply strictly in Tamil language."
	directiveEnglish = "Reply strictly in English language."

	// ImageFallbackPrompt is sent with an image when the user typed nothing.
	ImageFallbackPrompt = "Analyze this animal's condition and suggest remedies."

	// NoResponseText is returned when the model produced no text.
	NoResponseText = "No response generated."

	// Temperature keeps advice conservative.
	Temperature float32 = 0.4

	// MaxOutputTokens bounds the length of one answer.
	MaxOutputTokens = 800
)

// LanguageDirective returns the instruction that forces the reply language.
func LanguageDirective(lang domain.Language) string {
	if lang == domain.LanguageTamil {
		return directiveTamil
	}
	return directiveEnglish
}

// SystemInstructionFor builds the per-call system instruction.
func SystemInstructionFor(lang domain.Language) string {
	return SystemInstruction + "\n" + LanguageDirective(lang)
}

// Part is one piece of the user turn: either inline image data or text.
type Part struct {
	Text  string
	Image *Image
}

// Payload is everything sent to the remote model for a single call.
type Payload struct {
	SystemInstruction string
	Parts             []Part
	Temperature       float32
	MaxOutputTokens   int
}

// BuildPayload normalizes a request into the payload sent upstream. With an
// image the parts are [image, text]; without one a single text part carries
// the prompt verbatim, even when it is empty.
func BuildPayload(req Request) Payload {
	p := Payload{
		SystemInstruction: SystemInstructionFor(req.Language),
		Temperature:       Temperature,
		MaxOutputTokens:   MaxOutputTokens,
	}

	if req.Image != nil {
		text := req.Prompt
		if text == "" {
			text = ImageFallbackPrompt
		}
		img := *req.Image
		p.Parts = []Part{{Image: &img}, {Text: text}}
		return p
	}

	p.Parts = []Part{{Text: req.Prompt}}
	return p
}
