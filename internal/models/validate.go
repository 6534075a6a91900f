package models

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/desertthunder/encore/internal/shared"
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

var (
	validate   *validator.Validate
	translator ut.Translator
)

// enumTags maps custom validation tags to the enum they check. The same tag works on typed enum fields
// and on raw string form fields.
var enumTags = map[string]struct {
	valid func(string) bool
	noun  string
}{
	"role":              {func(s string) bool { return Role(s).Valid() }, "role"},
	"instrument":        {func(s string) bool { return Instrument(s).Valid() }, "instrument"},
	"grade":             {func(s string) bool { return Grade(s).Valid() }, "grade"},
	"batch":             {func(s string) bool { return Batch(s).Valid() }, "batch"},
	"timing":            {func(s string) bool { return Timing(s).Valid() }, "class timing"},
	"attendance_status": {func(s string) bool { return AttendanceStatus(s).Valid() }, "attendance status"},
	"payment_status":    {func(s string) bool { return PaymentStatus(s).Valid() }, "payment status"},
	"payment_method":    {func(s string) bool { return PaymentMethod(s).Valid() }, "payment method"},
	"expense_category":  {func(s string) bool { return ExpenseCategory(s).Valid() }, "expense category"},
	"expense_status":    {func(s string) bool { return ExpenseStatus(s).Valid() }, "expense status"},
}

const notBlankTag = "notblank"

func init() {
	validate = validator.New()

	english := en.New()
	uni := ut.New(english, english)
	translator, _ = uni.GetTranslator("en")
	_ = en_translations.RegisterDefaultTranslations(validate, translator)

	validate.RegisterTagNameFunc(fieldName)

	_ = validate.RegisterValidation(notBlankTag, func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})

	for tag, e := range enumTags {
		check := e.valid
		_ = validate.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
			return check(fl.Field().String())
		})
	}

	registerCustomTranslations()
}

// fieldName reports form field names in errors, falling back to json names and then the Go field name.
func fieldName(fld reflect.StructField) string {
	for _, key := range []string{"form", "json"} {
		name := strings.SplitN(fld.Tag.Get(key), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name != "" {
			return name
		}
	}
	return strings.ToLower(fld.Name)
}

// registerCustomTranslations registers messages for custom tags.
// A [validator.RegisterTranslationsFunc] is required by the API, but the messages are produced directly
// by the translation func, so a noop registration is passed.
func registerCustomTranslations() {
	noop := func(ut.Translator) error { return nil }

	_ = validate.RegisterTranslation(notBlankTag, translator, noop, func(_ ut.Translator, fe validator.FieldError) string {
		return fmt.Sprintf("%s cannot be blank", fe.Field())
	})

	for tag, e := range enumTags {
		noun := e.noun
		_ = validate.RegisterTranslation(tag, translator, noop, func(_ ut.Translator, fe validator.FieldError) string {
			return fmt.Sprintf("%s must be a valid %s", fe.Field(), noun)
		})
	}
}

// ValidationError holds per-field validation messages keyed by form field name.
type ValidationError struct {
	Fields map[string]string
}

// NewValidationError builds a [ValidationError] for a single field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: message}}
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	msgs := make([]string, 0, len(keys))
	for _, k := range keys {
		msgs = append(msgs, e.Fields[k])
	}
	return fmt.Sprintf("%v: %s", shared.ErrInvalidInput, strings.Join(msgs, "; "))
}

// Unwrap lets callers match validation failures with errors.Is(err, shared.ErrInvalidInput).
func (e *ValidationError) Unwrap() error {
	return shared.ErrInvalidInput
}

// Add records a message for field, keeping the first message when one already exists.
func (e *ValidationError) Add(field, message string) {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	if _, exists := e.Fields[field]; !exists {
		e.Fields[field] = message
	}
}

// Validate runs struct tag validation on v and translates failures into a [ValidationError].
func Validate(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}

	out := &ValidationError{Fields: make(map[string]string, len(verrs))}
	for _, fe := range verrs {
		out.Add(fe.Field(), fe.Translate(translator))
	}
	return out
}
