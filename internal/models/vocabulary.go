package models

// Word is one HSK vocabulary entry in the rich asset shape
type Word struct {
	Simplified string   `json:"simplified" validate:"required"`
	Radical    string   `json:"radical,omitempty"`
	Frequency  *int     `json:"frequency,omitempty"`
	POS        []string `json:"pos,omitempty"`
	Forms      []Form   `json:"forms" validate:"dive"`
}

// Form is one written form of a word with its readings and meanings
type Form struct {
	Traditional    string         `json:"traditional"`
	Transcriptions Transcriptions `json:"transcriptions"`
	Meanings       []string       `json:"meanings,omitempty"`
	Classifiers    []string       `json:"classifiers,omitempty"`
}

// Transcriptions holds the romanisations of a form
type Transcriptions struct {
	Pinyin    string `json:"pinyin"`
	Numeric   string `json:"numeric,omitempty"`
	WadeGiles string `json:"wadegiles,omitempty"`
	Bopomofo  string `json:"bopomofo,omitempty"`
	Romatzyh  string `json:"romatzyh,omitempty"`
}

// Pinyin returns the pinyin of the first form, or "" if there is none
func (w *Word) Pinyin() string {
	if len(w.Forms) == 0 {
		return ""
	}
	return w.Forms[0].Transcriptions.Pinyin
}

// Meaning returns the first meaning of the first form, or ""
func (w *Word) Meaning() string {
	if len(w.Forms) == 0 || len(w.Forms[0].Meanings) == 0 {
		return ""
	}
	return w.Forms[0].Meanings[0]
}

// SimpleWord is the flat vocabulary shape used by some asset files
type SimpleWord struct {
	ID      int    `json:"id"`
	Chinese string `json:"chinese" validate:"required"`
	Pinyin  string `json:"pinyin"`
	English string `json:"english"`
}

// ToWord converts a flat entry to the rich shape with a single form
func (s SimpleWord) ToWord() Word {
	w := Word{Simplified: s.Chinese}
	form := Form{
		Traditional:    s.Chinese,
		Transcriptions: Transcriptions{Pinyin: s.Pinyin},
	}
	if s.English != "" {
		form.Meanings = []string{s.English}
	}
	w.Forms = []Form{form}
	return w
}
