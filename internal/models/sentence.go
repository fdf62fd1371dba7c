package models

// Sentence is a sentence-builder item: a full sentence plus its tokens
type Sentence struct {
	ID      int            `json:"id"`
	Chinese string         `json:"chinese" validate:"required"`
	Pinyin  string         `json:"pinyin"`
	English string         `json:"english"`
	Words   []SentenceWord `json:"words" validate:"min=1,dive"`
}

// SentenceWord is one token of a sentence with its original position
type SentenceWord struct {
	Chinese  string `json:"chinese" validate:"required"`
	Pinyin   string `json:"pinyin"`
	Position int    `json:"position" validate:"gte=0"`
}

// ClozeQuestion is a fill-in-the-blank item
type ClozeQuestion struct {
	ID                int      `json:"id"`
	SentenceWithBlank string   `json:"sentenceWithBlank" validate:"required"`
	FullSentence      string   `json:"fullSentence"`
	Pinyin            string   `json:"pinyin"`
	English           string   `json:"english"`
	CorrectAnswer     string   `json:"correctAnswer" validate:"required"`
	CorrectPinyin     string   `json:"correctPinyin"`
	Options           []string `json:"options" validate:"min=2"`
}

// HasCorrectOption reports whether the correct answer is among the options
func (c *ClozeQuestion) HasCorrectOption() bool {
	for _, opt := range c.Options {
		if opt == c.CorrectAnswer {
			return true
		}
	}
	return false
}
