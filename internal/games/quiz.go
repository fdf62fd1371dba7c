// Package games builds the rounds of the practice games from vocabulary.
package games

import (
	"fmt"
	"math/rand"

	"hskmaster/internal/models"
)

// QuestionType is what a quiz question shows and what it asks for
type QuestionType string

const (
	CharacterToPinyin  QuestionType = "CHARACTER_TO_PINYIN"
	CharacterToMeaning QuestionType = "CHARACTER_TO_MEANING"
	PinyinToCharacter  QuestionType = "PINYIN_TO_CHARACTER"
	PinyinToMeaning    QuestionType = "PINYIN_TO_MEANING"
	MeaningToCharacter QuestionType = "MEANING_TO_CHARACTER"
	MeaningToPinyin    QuestionType = "MEANING_TO_PINYIN"
)

// QuestionTypes lists every quiz question type
var QuestionTypes = []QuestionType{
	CharacterToPinyin,
	CharacterToMeaning,
	PinyinToCharacter,
	PinyinToMeaning,
	MeaningToCharacter,
	MeaningToPinyin,
}

// OptionCount is the number of choices offered per question
const OptionCount = 4

// Label is the instruction shown above a question
func (t QuestionType) Label() string {
	switch t {
	case CharacterToPinyin, MeaningToPinyin:
		return "Select the correct pinyin"
	case CharacterToMeaning, PinyinToMeaning:
		return "Select the correct meaning"
	default:
		return "Select the correct character"
	}
}

// QuizQuestion is one multiple-choice question about a word
type QuizQuestion struct {
	Word          models.Word
	Type          QuestionType
	Prompt        string
	CorrectAnswer string
	Options       []string
}

// IsCorrect reports whether answer is the expected option
func (q *QuizQuestion) IsCorrect(answer string) bool {
	return answer == q.CorrectAnswer
}

// GenerateQuiz builds count questions. Words are drawn from a shuffled pool of
// at most count*3 words, reused in order when the pool is smaller than count,
// and each question gets a random type. An empty vocabulary yields no questions.
func GenerateQuiz(vocabulary []models.Word, count int, rng *rand.Rand) []QuizQuestion {
	if len(vocabulary) == 0 || count <= 0 {
		return []QuizQuestion{}
	}

	pool := shuffled(vocabulary, rng)
	if size := count * 3; size < len(pool) {
		pool = pool[:size]
	}

	questions := make([]QuizQuestion, 0, count)
	for i := 0; i < count; i++ {
		word := pool[i%len(pool)]
		questionType := QuestionTypes[rng.Intn(len(QuestionTypes))]
		questions = append(questions, newQuestion(word, questionType, pool, rng))
	}
	return questions
}

func newQuestion(word models.Word, questionType QuestionType, pool []models.Word, rng *rand.Rand) QuizQuestion {
	q := QuizQuestion{Word: word, Type: questionType}

	switch questionType {
	case CharacterToPinyin, CharacterToMeaning:
		q.Prompt = word.Simplified
	case PinyinToCharacter, PinyinToMeaning:
		q.Prompt = word.Pinyin()
	default:
		q.Prompt = word.Meaning()
	}

	switch questionType {
	case CharacterToPinyin, MeaningToPinyin:
		q.CorrectAnswer = word.Pinyin()
		q.Options = pinyinOptions(word, pool, rng)
	case CharacterToMeaning, PinyinToMeaning:
		q.CorrectAnswer = word.Meaning()
		q.Options = meaningOptions(word, pool, rng)
	default:
		q.CorrectAnswer = word.Simplified
		q.Options = characterOptions(word, pool, rng)
	}
	return q
}

// optionSet keeps distinct options in insertion order
type optionSet []string

func (s *optionSet) add(option string) {
	for _, existing := range *s {
		if existing == option {
			return
		}
	}
	*s = append(*s, option)
}

func (s *optionSet) fill(filler func(n int) string) {
	for n := len(*s); len(*s) < OptionCount; n++ {
		s.add(filler(n))
	}
}

func characterOptions(correct models.Word, pool []models.Word, rng *rand.Rand) []string {
	options := optionSet{correct.Simplified}
	for _, w := range shuffled(pool, rng) {
		if len(options) >= OptionCount {
			break
		}
		if w.Simplified != correct.Simplified {
			options.add(w.Simplified)
		}
	}
	options.fill(func(n int) string { return fmt.Sprintf("无%d", n) })
	return shuffled([]string(options), rng)
}

func pinyinOptions(correct models.Word, pool []models.Word, rng *rand.Rand) []string {
	options := optionSet{correct.Pinyin()}
	for _, w := range shuffled(pool, rng) {
		if len(options) >= OptionCount {
			break
		}
		if len(w.Forms) > 0 && w.Pinyin() != correct.Pinyin() {
			options.add(w.Pinyin())
		}
	}
	options.fill(func(n int) string { return fmt.Sprintf("wú%d", n) })
	return shuffled([]string(options), rng)
}

func meaningOptions(correct models.Word, pool []models.Word, rng *rand.Rand) []string {
	options := optionSet{correct.Meaning()}
	for _, w := range shuffled(pool, rng) {
		if len(options) >= OptionCount {
			break
		}
		if w.Simplified == correct.Simplified {
			continue
		}
		if meaning := w.Meaning(); meaning != "" && meaning != correct.Meaning() {
			options.add(meaning)
		}
	}
	options.fill(func(n int) string { return fmt.Sprintf("Unknown meaning %d", n) })
	return shuffled([]string(options), rng)
}

// shuffled returns a shuffled copy of items
func shuffled[T any](items []T, rng *rand.Rand) []T {
	out := make([]T, len(items))
	copy(out, items)
	rng.Shuffle(len(out), func(i, j int) {
		out[i], out[j] = out[j], out[i]
	})
	return out
}
