package validation

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

// MinHSKLevel and MaxHSKLevel bound the HSK levels that have asset sets
const (
	MinHSKLevel = 1
	MaxHSKLevel = 7
)

// ValidationError represents a single invalid field
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// FieldsError collects every invalid field of one struct
type FieldsError struct {
	Errors []ValidationError
}

func (f *FieldsError) Error() string {
	parts := make([]string, len(f.Errors))
	for i, e := range f.Errors {
		parts[i] = e.Error()
	}
	return strings.Join(parts, "; ")
}

// Validator checks decoded asset documents and configuration structs
type Validator struct {
	validate *validator.Validate
	trans    ut.Translator
}

// New creates a validator with English messages and json field names
func New() *Validator {
	validate := validator.New(validator.WithRequiredStructEnabled())

	english := en.New()
	uni := ut.New(english, english)
	trans, _ := uni.GetTranslator("en")
	_ = en_translations.RegisterDefaultTranslations(validate, trans)

	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})

	return &Validator{
		validate: validate,
		trans:    trans,
	}
}

// Struct validates s and returns a *FieldsError listing every failed field
func (v *Validator) Struct(s interface{}) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var errs validator.ValidationErrors
	if !errors.As(err, &errs) {
		return err
	}

	fields := make([]ValidationError, 0, len(errs))
	for _, e := range errs {
		fields = append(fields, ValidationError{
			Field:   trimRoot(e.Namespace()),
			Message: e.Translate(v.trans),
		})
	}
	sort.Slice(fields, func(i, j int) bool { return fields[i].Field < fields[j].Field })

	return &FieldsError{Errors: fields}
}

// trimRoot drops the top-level struct name from a validator namespace
func trimRoot(namespace string) string {
	if idx := strings.Index(namespace, "."); idx >= 0 {
		return namespace[idx+1:]
	}
	return namespace
}

// ValidateLevel checks that an HSK level is within 1..7
func ValidateLevel(level int) error {
	if level < MinHSKLevel || level > MaxHSKLevel {
		return ValidationError{
			Field:   "level",
			Message: fmt.Sprintf("level must be between %d and %d", MinHSKLevel, MaxHSKLevel),
		}
	}
	return nil
}
