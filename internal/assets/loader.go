// Package assets reads the bundled vocabulary, sentence, cloze and test
// documents.
package assets

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"

	"hskmaster/internal/models"
	"hskmaster/internal/validation"
)

// ErrUnknownShape is returned for a vocabulary file that is neither the rich
// nor the flat shape
var ErrUnknownShape = errors.New("unrecognised vocabulary shape")

// Loader reads documents from an asset tree laid out as:
//
//	hsk{n}.json
//	sentences/hsk{n}_sentences.json
//	cloze/hsk{n}_cloze.json
//	Hsk{n}Tests/*.json
type Loader struct {
	fsys      fs.FS
	validator *validation.Validator
	log       logrus.FieldLogger
}

// NewLoader creates a loader over fsys
func NewLoader(fsys fs.FS, log logrus.FieldLogger) *Loader {
	return &Loader{
		fsys:      fsys,
		validator: validation.New(),
		log:       log.WithField("component", "assets"),
	}
}

func vocabularyPath(level int) string { return fmt.Sprintf("hsk%d.json", level) }
func sentencesPath(level int) string { return fmt.Sprintf("sentences/hsk%d_sentences.json", level) }
func clozePath(level int) string { return fmt.Sprintf("cloze/hsk%d_cloze.json", level) }
func testsDir(level int) string { return fmt.Sprintf("Hsk%dTests", level) }

// LoadVocabulary reads the word list of a level. Both the rich shape
// (simplified/forms) and the flat shape (chinese/pinyin/english) are accepted.
func (l *Loader) LoadVocabulary(level int) ([]models.Word, error) {
	if err := validation.ValidateLevel(level); err != nil {
		return nil, err
	}

	data, err := fs.ReadFile(l.fsys, vocabularyPath(level))
	if err != nil {
		return nil, err
	}
	if !gjson.ValidBytes(data) || !gjson.ParseBytes(data).IsArray() {
		return nil, fmt.Errorf("%s: expected a json array", vocabularyPath(level))
	}

	first := gjson.GetBytes(data, "0")
	switch {
	case !first.Exists():
		return []models.Word{}, nil
	case first.Get("simplified").Exists():
		var words []models.Word
		if err := json.Unmarshal(data, &words); err != nil {
			return nil, fmt.Errorf("%s: %w", vocabularyPath(level), err)
		}
		return keepValid(l, vocabularyPath(level), words), nil
	case first.Get("chinese").Exists():
		var flat []models.SimpleWord
		if err := json.Unmarshal(data, &flat); err != nil {
			return nil, fmt.Errorf("%s: %w", vocabularyPath(level), err)
		}
		flat = keepValid(l, vocabularyPath(level), flat)
		words := make([]models.Word, len(flat))
		for i, w := range flat {
			words[i] = w.ToWord()
		}
		return words, nil
	default:
		return nil, fmt.Errorf("%s: %w", vocabularyPath(level), ErrUnknownShape)
	}
}

// LoadSentences reads the sentence-builder items of a level
func (l *Loader) LoadSentences(level int) ([]models.Sentence, error) {
	return loadList[models.Sentence](l, level, sentencesPath(level))
}

// LoadCloze reads the fill-in-the-blank items of a level
func (l *Loader) LoadCloze(level int) ([]models.ClozeQuestion, error) {
	questions, err := loadList[models.ClozeQuestion](l, level, clozePath(level))
	if err != nil {
		return nil, err
	}

	valid := questions[:0]
	for _, q := range questions {
		if !q.HasCorrectOption() {
			l.log.WithField("id", q.ID).Warn("cloze question without its answer among the options skipped")
			continue
		}
		valid = append(valid, q)
	}
	return valid, nil
}

// LoadTest reads one test paper by its path inside the asset tree
func (l *Loader) LoadTest(name string) (*models.Test, error) {
	data, err := fs.ReadFile(l.fsys, name)
	if err != nil {
		return nil, err
	}

	var test models.Test
	if err := json.Unmarshal(data, &test); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	if err := l.validator.Struct(&test); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	if dups := test.DuplicateQuestionNumbers(); len(dups) > 0 {
		l.log.WithFields(logrus.Fields{"test": test.TestID, "numbers": dups}).
			Warn("duplicate question numbers; answers to them are shared")
	}
	return &test, nil
}

// LoadAvailableTests lists the test papers of a level, sorted by name
func (l *Loader) LoadAvailableTests(level int) ([]string, error) {
	if err := validation.ValidateLevel(level); err != nil {
		return nil, err
	}

	entries, err := fs.ReadDir(l.fsys, testsDir(level))
	if err != nil {
		return nil, err
	}

	tests := []string{}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		tests = append(tests, path.Join(testsDir(level), entry.Name()))
	}
	return tests, nil
}

// Vocabulary is LoadVocabulary with failures logged and reported as empty
func (l *Loader) Vocabulary(level int) []models.Word {
	words, err := l.LoadVocabulary(level)
	if err != nil {
		l.log.WithError(err).WithField("level", level).Warn("vocabulary unavailable")
		return []models.Word{}
	}
	return words
}

// Sentences is LoadSentences with failures logged and reported as empty
func (l *Loader) Sentences(level int) []models.Sentence {
	sentences, err := l.LoadSentences(level)
	if err != nil {
		l.log.WithError(err).WithField("level", level).Warn("sentences unavailable")
		return []models.Sentence{}
	}
	return sentences
}

// Cloze is LoadCloze with failures logged and reported as empty
func (l *Loader) Cloze(level int) []models.ClozeQuestion {
	questions, err := l.LoadCloze(level)
	if err != nil {
		l.log.WithError(err).WithField("level", level).Warn("cloze questions unavailable")
		return []models.ClozeQuestion{}
	}
	return questions
}

// Test is LoadTest with failures logged and reported as nil
func (l *Loader) Test(name string) *models.Test {
	test, err := l.LoadTest(name)
	if err != nil {
		l.log.WithError(err).WithField("test", name).Warn("test unavailable")
		return nil
	}
	return test
}

// AvailableTests is LoadAvailableTests with failures logged and reported as empty
func (l *Loader) AvailableTests(level int) []string {
	tests, err := l.LoadAvailableTests(level)
	if err != nil {
		l.log.WithError(err).WithField("level", level).Debug("no tests for level")
		return []string{}
	}
	return tests
}

// AvailableLevels returns the levels in 1..7 that have a vocabulary file
func (l *Loader) AvailableLevels() []int {
	levels := []int{}
	for level := validation.MinHSKLevel; level <= validation.MaxHSKLevel; level++ {
		if _, err := fs.Stat(l.fsys, vocabularyPath(level)); err == nil {
			levels = append(levels, level)
		}
	}
	return levels
}

func loadList[T any](l *Loader, level int, name string) ([]T, error) {
	if err := validation.ValidateLevel(level); err != nil {
		return nil, err
	}

	data, err := fs.ReadFile(l.fsys, name)
	if err != nil {
		return nil, err
	}

	var items []T
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return keepValid(l, name, items), nil
}

// keepValid drops entries that fail struct validation
func keepValid[T any](l *Loader, name string, items []T) []T {
	valid := make([]T, 0, len(items))
	for i := range items {
		if err := l.validator.Struct(&items[i]); err != nil {
			l.log.WithError(err).WithFields(logrus.Fields{"file": name, "index": i}).Warn("invalid entry skipped")
			continue
		}
		valid = append(valid, items[i])
	}
	return valid
}
