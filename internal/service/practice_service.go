package service

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"

	"hskmaster/internal/games"
	"hskmaster/internal/models"
	"hskmaster/internal/repository"
)

const (
	// unseenWeight is the pick weight of a word that was never practiced
	unseenWeight = 0.7

	// StrugglingMinAttempts is how many attempts a word needs before it can
	// count as struggling
	StrugglingMinAttempts = 2

	// StrugglingMastery is the mastery percentage below which a word is
	// struggling
	StrugglingMastery = 60.0
)

// PracticeService picks the words of a practice round, favouring the ones
// the learner gets wrong
type PracticeService struct {
	records repository.RecordStore

	mu  sync.Mutex
	rng *rand.Rand
}

// NewPracticeService creates a new practice service. A nil rng is seeded
// from the clock.
func NewPracticeService(records repository.RecordStore, rng *rand.Rand) *PracticeService {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &PracticeService{records: records, rng: rng}
}

// SelectWords picks up to count words without replacement. Words with lower
// success rates have a higher probability of being selected.
func (s *PracticeService) SelectWords(ctx context.Context, words []models.Word, count int) ([]models.Word, error) {
	if count >= len(words) {
		return words, nil
	}

	progress, err := s.records.CharacterProgress(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get word performance: %w", err)
	}
	performance := make(map[string]models.CharacterProgress, len(progress))
	for _, p := range progress {
		performance[p.Character] = p
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return selectWeightedWords(words, performance, count, s.rng), nil
}

// wordWeight maps a word's history to its pick weight: 0.7 when never
// attempted, otherwise from 1.0 at 0% success down to 0.1 at 100%
func wordWeight(perf models.CharacterProgress, seen bool) float64 {
	if !seen || perf.TotalAttempts == 0 {
		return unseenWeight
	}
	successRate := float64(perf.CorrectCount) / float64(perf.TotalAttempts)
	return 1.0 - successRate*0.9
}

func selectWeightedWords(words []models.Word, performance map[string]models.CharacterProgress, count int, rng *rand.Rand) []models.Word {
	type weightedWord struct {
		word   models.Word
		weight float64
	}

	remaining := make([]weightedWord, len(words))
	for i, word := range words {
		perf, seen := performance[word.Simplified]
		remaining[i] = weightedWord{word: word, weight: wordWeight(perf, seen)}
	}

	selected := make([]models.Word, 0, count)
	for i := 0; i < count && len(remaining) > 0; i++ {
		totalWeight := 0.0
		for _, ww := range remaining {
			totalWeight += ww.weight
		}

		r := rng.Float64() * totalWeight

		cumWeight := 0.0
		selectedIdx := len(remaining) - 1
		for idx, ww := range remaining {
			cumWeight += ww.weight
			if r <= cumWeight {
				selectedIdx = idx
				break
			}
		}

		selected = append(selected, remaining[selectedIdx].word)
		remaining = append(remaining[:selectedIdx], remaining[selectedIdx+1:]...)
	}

	return selected
}

// Quiz builds a quiz of count questions over a weighted pick of words
func (s *PracticeService) Quiz(ctx context.Context, words []models.Word, count int) ([]games.QuizQuestion, error) {
	pool, err := s.SelectWords(ctx, words, count*3)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return games.GenerateQuiz(pool, count, s.rng), nil
}

// Matching deals a matching round over a weighted pick of words
func (s *PracticeService) Matching(ctx context.Context, words []models.Word, pairs int) ([]games.MatchingCard, error) {
	pool, err := s.SelectWords(ctx, words, pairs)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return games.MatchingRound(pool, pairs, s.rng), nil
}

// StrugglingWords returns practiced items with enough attempts and a mastery
// below StrugglingMastery, weakest first, at most limit of them when limit
// is positive
func (s *PracticeService) StrugglingWords(ctx context.Context, limit int) ([]models.CharacterProgress, error) {
	progress, err := s.records.CharacterProgress(ctx)
	if err != nil {
		return nil, err
	}

	struggling := []models.CharacterProgress{}
	for _, p := range progress {
		if p.TotalAttempts >= StrugglingMinAttempts && p.Mastery < StrugglingMastery {
			struggling = append(struggling, p)
		}
	}
	sort.SliceStable(struggling, func(i, j int) bool {
		return struggling[i].Mastery < struggling[j].Mastery
	})

	if limit > 0 && len(struggling) > limit {
		struggling = struggling[:limit]
	}
	return struggling, nil
}
