package i18n

import (
	"errors"

	"github.com/ashureev/kalnadai-care/internal/domain"
)

// ErrUnknownAnimal is returned when a catalog id does not exist.
var ErrUnknownAnimal = errors.New("unknown animal")

var catalog = []domain.Animal{
	{
		ID:            "cow",
		NameEn:        "Cow",
		NameTa:        "பசு (Cow)",
		ImageURL:      "https://images.unsplash.com/photo-1546445317-29f4545e9d53?q=80&w=800&auto=format&fit=crop",
		DescriptionEn: "Essential for milk and agriculture. Requires regular vaccination.",
		DescriptionTa: "பால் மற்றும் விவசாயத்திற்கு அவசியம். வழக்கமான தடுப்பூசி தேவை.",
	},
	{
		ID:            "goat",
		NameEn:        "Goat",
		NameTa:        "வெள்ளாடு (Goat)",
		ImageURL:      "https://images.unsplash.com/photo-1524024973431-2ad916746881?q=80&w=800&auto=format&fit=crop",
		DescriptionEn: "Known as the poor man's cow. Adaptable to various climates.",
		DescriptionTa: "ஏழைகளின் பசு என்று அழைக்கப்படுகிறது. பல்வேறு காலநிலைகளுக்கு ஏற்றது.",
	},
	{
		ID:            "chicken",
		NameEn:        "Chicken",
		NameTa:        "கோழி (Chicken)",
		ImageURL:      "https://images.unsplash.com/photo-1548550023-2bdb3c5beed7?q=80&w=800&auto=format&fit=crop",
		DescriptionEn: "Raised for eggs and meat. Requires clean coop environment.",
		DescriptionTa: "முட்டை மற்றும் இறைச்சிக்காக வளர்க்கப்படுகிறது. சுத்தமான கூண்டு சூழல் தேவை.",
	},
	{
		ID:            "buffalo",
		NameEn:        "Buffalo",
		NameTa:        "எருமை (Buffalo)",
		ImageURL:      "https://images.unsplash.com/photo-1504204267155-aaad8e81290d?q=80&w=800&auto=format&fit=crop",
		DescriptionEn: "Produces high-fat milk. Resilient to diseases.",
		DescriptionTa: "அதிக கொழுப்புள்ள பால் தருகிறது. நோய்களுக்கு எதிர்ப்பு சக்தி கொண்டது.",
	},
	{
		ID:            "sheep",
		NameEn:        "Sheep",
		NameTa:        "செம்மறி ஆடு (Sheep)",
		ImageURL:      "https://images.unsplash.com/photo-1484557985045-6f550bf43735?q=80&w=800&auto=format&fit=crop",
		DescriptionEn: "Primarily for wool and meat. Needs grazing lands.",
		DescriptionTa: "முதன்மையாக கம்பளி மற்றும் இறைச்சிக்காக. மேய்ச்சல் நிலங்கள் தேவை.",
	},
}

// Animals returns a copy of the catalog in display order.
func Animals() []domain.Animal {
	out := make([]domain.Animal, len(catalog))
	copy(out, catalog)
	return out
}

// Animal looks up a catalog entry by id.
func Animal(id string) (domain.Animal, error) {
	for _, a := range catalog {
		if a.ID == id {
			return a, nil
		}
	}
	return domain.Animal{}, ErrUnknownAnimal
}

// LocalizedAnimal is a catalog entry flattened for one language.
type LocalizedAnimal struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Image       string `json:"image"`
}

// Catalog returns the catalog rendered for lang.
func Catalog(lang domain.Language) []LocalizedAnimal {
	out := make([]LocalizedAnimal, 0, len(catalog))
	for _, a := range catalog {
		out = append(out, LocalizedAnimal{
			ID:          a.ID,
			Name:        a.Name(lang),
			Description: a.Description(lang),
			Image:       a.ImageURL,
		})
	}
	return out
}
