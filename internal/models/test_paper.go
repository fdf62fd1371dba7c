package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/tidwall/gjson"
)

// Test is a bundled practice exam with a listening and a reading section
type Test struct {
	TestID   string       `json:"testId" validate:"required"`
	Level    string       `json:"level" validate:"required"`
	Title    string       `json:"title"`
	Sections TestSections `json:"sections"`
}

// TestSections holds the two sections of a test
type TestSections struct {
	Listening TestSection `json:"listening"`
	Reading   TestSection `json:"reading"`
}

// TestSection holds named parts in document order. In JSON the parts are an
// object keyed by part name.
type TestSection struct {
	Title string     `json:"title"`
	Parts []TestPart `json:"parts" validate:"dive"`
}

// TestPart is a group of questions sharing instructions and, optionally,
// a shared option set
type TestPart struct {
	Name         string            `json:"-"`
	Title        string            `json:"title"`
	Instructions string            `json:"instructions"`
	Questions    []TestQuestion    `json:"questions" validate:"dive"`
	Options      map[string]string `json:"options,omitempty"`
}

// TestQuestion is one question with its canonical answer
type TestQuestion struct {
	QuestionNumber int             `json:"questionNumber" validate:"gte=1"`
	Type           string          `json:"type" validate:"required"`
	AudioScript    string          `json:"audioScript,omitempty"`
	Prompt         string          `json:"prompt,omitempty"`
	ImagePath      string          `json:"imagePath,omitempty"`
	Options        QuestionOptions `json:"options"`
	Answer         string          `json:"answer" validate:"required"`
}

// UnmarshalJSON decodes the parts object keeping the order of its keys
func (s *TestSection) UnmarshalJSON(data []byte) error {
	if !gjson.ValidBytes(data) {
		return fmt.Errorf("invalid test section json")
	}
	res := gjson.ParseBytes(data)
	if !res.IsObject() {
		return fmt.Errorf("test section must be an object")
	}

	s.Title = res.Get("title").String()
	s.Parts = nil

	parts := res.Get("parts")
	if !parts.Exists() || parts.Type == gjson.Null {
		return nil
	}
	if !parts.IsObject() {
		return fmt.Errorf("test section parts must be an object")
	}

	var err error
	parts.ForEach(func(key, value gjson.Result) bool {
		var part TestPart
		if err = json.Unmarshal([]byte(value.Raw), &part); err != nil {
			err = fmt.Errorf("part %q: %w", key.String(), err)
			return false
		}
		part.Name = key.String()
		s.Parts = append(s.Parts, part)
		return true
	})
	return err
}

// MarshalJSON writes the parts back as an object in their original order
func (s TestSection) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	title, err := json.Marshal(s.Title)
	if err != nil {
		return nil, err
	}
	buf.WriteString(`{"title":`)
	buf.Write(title)
	buf.WriteString(`,"parts":{`)
	for i, part := range s.Parts {
		if i > 0 {
			buf.WriteByte(',')
		}
		name, err := json.Marshal(part.Name)
		if err != nil {
			return nil, err
		}
		body, err := json.Marshal(part)
		if err != nil {
			return nil, err
		}
		buf.Write(name)
		buf.WriteByte(':')
		buf.Write(body)
	}
	buf.WriteString("}}")
	return buf.Bytes(), nil
}

// QuestionCount returns the number of questions in both sections
func (t *Test) QuestionCount() int {
	count := 0
	for _, section := range []TestSection{t.Sections.Listening, t.Sections.Reading} {
		for _, part := range section.Parts {
			count += len(part.Questions)
		}
	}
	return count
}

// DuplicateQuestionNumbers returns question numbers used more than once,
// in ascending order
func (t *Test) DuplicateQuestionNumbers() []int {
	seen := make(map[int]int)
	for _, section := range []TestSection{t.Sections.Listening, t.Sections.Reading} {
		for _, part := range section.Parts {
			for _, q := range part.Questions {
				seen[q.QuestionNumber]++
			}
		}
	}

	var dups []int
	for number, count := range seen {
		if count > 1 {
			dups = append(dups, number)
		}
	}
	sort.Ints(dups)
	return dups
}

// QuestionOptions holds a question's free-form options: either a plain list
// or a keyed map such as {"A": "...", "B": "..."}
type QuestionOptions struct {
	List  []string
	Keyed map[string]string
	Keys  []string // key order of Keyed as it appeared in the document
}

// UnmarshalJSON accepts null, an array or an object
func (o *QuestionOptions) UnmarshalJSON(data []byte) error {
	*o = QuestionOptions{}
	res := gjson.ParseBytes(data)

	switch {
	case res.Type == gjson.Null:
		return nil
	case res.IsArray():
		for _, item := range res.Array() {
			o.List = append(o.List, item.String())
		}
		return nil
	case res.IsObject():
		o.Keyed = make(map[string]string)
		res.ForEach(func(key, value gjson.Result) bool {
			o.Keys = append(o.Keys, key.String())
			o.Keyed[key.String()] = value.String()
			return true
		})
		return nil
	default:
		return fmt.Errorf("question options must be a list or an object, got %s", res.Type)
	}
}

// MarshalJSON writes the options in the shape they were read in
func (o QuestionOptions) MarshalJSON() ([]byte, error) {
	switch {
	case o.Keyed != nil:
		var buf bytes.Buffer
		buf.WriteByte('{')
		for i, key := range o.Keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			k, _ := json.Marshal(key)
			v, _ := json.Marshal(o.Keyed[key])
			buf.Write(k)
			buf.WriteByte(':')
			buf.Write(v)
		}
		buf.WriteByte('}')
		return buf.Bytes(), nil
	case o.List != nil:
		return json.Marshal(o.List)
	default:
		return []byte("null"), nil
	}
}

// Empty reports whether the question carries no options of its own
func (o QuestionOptions) Empty() bool {
	return len(o.List) == 0 && len(o.Keyed) == 0
}

// Choices returns the selectable answers: the list entries, or the keys of
// a keyed option map
func (o QuestionOptions) Choices() []string {
	if len(o.Keyed) > 0 {
		return append([]string(nil), o.Keys...)
	}
	return append([]string(nil), o.List...)
}
