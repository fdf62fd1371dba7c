package games

import (
	"math/rand"
	"time"

	"hskmaster/internal/models"
)

// DefaultMatchingPairs is the number of word pairs in a matching round
const DefaultMatchingPairs = 6

// SpeedChallengeDuration is the length of a speed challenge round
const SpeedChallengeDuration = 60 * time.Second

// CardKind tells which side of a pair a matching card shows
type CardKind string

const (
	CardCharacter CardKind = "character"
	CardPinyin    CardKind = "pinyin"
)

// MatchingCard is one face-down card of a matching round
type MatchingCard struct {
	ID      string
	Content string
	Kind    CardKind
	WordID  string
	Word    models.Word
}

// Matches reports whether two distinct cards belong to the same word
func (c MatchingCard) Matches(other MatchingCard) bool {
	return c.ID != other.ID && c.WordID == other.WordID && c.Kind != other.Kind
}

// MatchingRound deals a character card and a pinyin card for each of up to
// pairs random words, shuffled together
func MatchingRound(vocabulary []models.Word, pairs int, rng *rand.Rand) []MatchingCard {
	words := shuffled(vocabulary, rng)
	if pairs < len(words) {
		words = words[:pairs]
	}

	cards := make([]MatchingCard, 0, len(words)*2)
	for _, w := range words {
		cards = append(cards,
			MatchingCard{ID: w.Simplified + "_char", Content: w.Simplified, Kind: CardCharacter, WordID: w.Simplified, Word: w},
			MatchingCard{ID: w.Simplified + "_pinyin", Content: w.Pinyin(), Kind: CardPinyin, WordID: w.Simplified, Word: w},
		)
	}
	return shuffled(cards, rng)
}

// SpeedDirection is the direction of a speed challenge question
type SpeedDirection string

const (
	ChineseToEnglish SpeedDirection = "CHINESE_TO_ENGLISH"
	EnglishToChinese SpeedDirection = "ENGLISH_TO_CHINESE"
)

// SpeedQuestion is one question of a speed challenge
type SpeedQuestion struct {
	Word         models.SimpleWord
	Direction    SpeedDirection
	Options      []string
	CorrectIndex int
}

// SpeedRound builds one question per word in random order, each with up to
// three wrong options taken from other words
func SpeedRound(vocabulary []models.SimpleWord, rng *rand.Rand) []SpeedQuestion {
	words := shuffled(vocabulary, rng)
	questions := make([]SpeedQuestion, 0, len(words))

	for _, word := range words {
		direction := EnglishToChinese
		if rng.Float64() > 0.5 {
			direction = ChineseToEnglish
		}

		var others []models.SimpleWord
		for _, w := range shuffled(words, rng) {
			if len(others) == 3 {
				break
			}
			if w.Chinese != word.Chinese {
				others = append(others, w)
			}
		}

		answer := word.Chinese
		if direction == ChineseToEnglish {
			answer = word.English
		}

		options := make([]string, 0, len(others)+1)
		for _, w := range others {
			if direction == ChineseToEnglish {
				options = append(options, w.English)
			} else {
				options = append(options, w.Chinese)
			}
		}
		options = shuffled(append(options, answer), rng)

		correct := 0
		for i, opt := range options {
			if opt == answer {
				correct = i
				break
			}
		}

		questions = append(questions, SpeedQuestion{
			Word:         word,
			Direction:    direction,
			Options:      options,
			CorrectIndex: correct,
		})
	}
	return questions
}

// ShuffleTokens returns the sentence's tokens in a random order that differs
// from the sentence order when it can, giving up after ten tries
func ShuffleTokens(tokens []models.SentenceWord, rng *rand.Rand) []models.SentenceWord {
	out := shuffled(tokens, rng)
	for tries := 0; tries < 10 && len(tokens) > 1 && inSentenceOrder(out); tries++ {
		out = shuffled(tokens, rng)
	}
	return out
}

func inSentenceOrder(tokens []models.SentenceWord) bool {
	for i := 1; i < len(tokens); i++ {
		if tokens[i].Position < tokens[i-1].Position {
			return false
		}
	}
	return true
}

// CheckOrder grades an arrangement of tokens: token i is right when its
// position is i. It returns the per-token results and whether all are right.
// An arrangement of the wrong length is never correct.
func CheckOrder(sentence models.Sentence, arrangement []models.SentenceWord) ([]bool, bool) {
	if len(arrangement) != len(sentence.Words) {
		return nil, false
	}

	results := make([]bool, len(arrangement))
	all := true
	for i, token := range arrangement {
		results[i] = token.Position == i
		all = all && results[i]
	}
	return results, all
}

// ClozeOptions returns the question's options in random order
func ClozeOptions(q models.ClozeQuestion, rng *rand.Rand) []string {
	return shuffled(q.Options, rng)
}

// Pick returns up to n random items, for choosing the sentences or cloze
// questions of a session
func Pick[T any](items []T, n int, rng *rand.Rand) []T {
	out := shuffled(items, rng)
	if n < len(out) {
		out = out[:n]
	}
	return out
}
