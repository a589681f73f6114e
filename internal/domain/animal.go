package domain

// Animal is a static livestock catalog entry.
type Animal struct {
	ID            string `json:"id"`
	NameEn        string `json:"name_en"`
	NameTa        string `json:"name_ta"`
	DescriptionEn string `json:"description_en"`
	DescriptionTa string `json:"description_ta"`
	ImageURL      string `json:"image"`
}

// Name returns the animal name in the given language.
func (a Animal) Name(lang Language) string {
	if lang == LanguageEnglish {
		return a.NameEn
	}
	return a.NameTa
}

// Description returns the animal description in the given language.
func (a Animal) Description(lang Language) string {
	if lang == LanguageEnglish {
		return a.DescriptionEn
	}
	return a.DescriptionTa
}
