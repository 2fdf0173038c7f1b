// Package validation holds the rule checks every entity passes before it is
// written. Checks are pure: they read the candidate (and the existing
// collection where conflicts matter) and report every reason it is rejected.
package validation

import (
	"errors"
	"reflect"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"

	"github.com/athlete-hub/athlete-hub/internal/domain/session"
	"github.com/athlete-hub/athlete-hub/internal/domain/shared"
	"github.com/athlete-hub/athlete-hub/pkg/timeutil"
)

var (
	// custom validation tags & texts
	notBlankTag  = "notblank"
	notBlankText = "{0} is required"

	calendarDateTag  = "calendardate"
	calendarDateText = "{0} must be a valid date"

	clockTimeTag   = "clocktime"
	clockTimeText  = "{0} must be a time in HH:MM format"
	clockTimeRegex = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)

	requiredTag   = "required"
	requiredIfTag = "required_if"
	requiredText  = "{0} is required"
)

// Result is the outcome of a rule check.
type Result struct {
	IsValid bool     `json:"isValid"`
	Errors  []string `json:"errors"`
}

// Err converts an invalid result into a *shared.ValidationError.
func (r Result) Err(domain, op string) error {
	if r.IsValid {
		return nil
	}
	return shared.NewValidationError(domain, op, r.Errors)
}

func newResult(errs []string) Result {
	return Result{IsValid: len(errs) == 0, Errors: errs}
}

// Validator runs struct tag rules plus the cross-field and collection rules.
type Validator struct {
	validate        *validator.Validate
	translator      ut.Translator
	defaultDuration time.Duration
}

// Option configures a Validator.
type Option func(*Validator)

// WithDefaultSessionDuration sets the length assumed for sessions without one
// when checking for conflicts.
func WithDefaultSessionDuration(d time.Duration) Option {
	return func(v *Validator) {
		if d > 0 {
			v.defaultDuration = d
		}
	}
}

// New instantiates the validator for use.
func New(opts ...Option) *Validator {
	validate := validator.New()

	// Register the english error messages for validation errors.
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	_ = en_translations.RegisterDefaultTranslations(validate, translator)

	// Use JSON tag names for errors instead of Go struct names.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	v := &Validator{
		validate:        validate,
		translator:      translator,
		defaultDuration: session.DefaultDuration,
	}

	// register custom validators
	_ = validate.RegisterValidation(notBlankTag, notBlankValidation)
	v.registerTranslation(notBlankTag, notBlankText)

	_ = validate.RegisterValidation(calendarDateTag, calendarDateValidation)
	v.registerTranslation(calendarDateTag, calendarDateText)

	_ = validate.RegisterValidation(clockTimeTag, clockTimeValidation)
	v.registerTranslation(clockTimeTag, clockTimeText)

	v.registerTranslation(requiredTag, requiredText, true)
	v.registerTranslation(requiredIfTag, requiredText, true)

	for _, opt := range opts {
		opt(v)
	}
	return v
}

// registerTranslation registers a custom translation for the specified validation tag.
func (v *Validator) registerTranslation(tag, text string, override ...bool) {
	var ovrd bool
	if len(override) > 0 {
		ovrd = override[0]
	}
	_ = v.validate.RegisterTranslation(
		tag, v.translator,
		func(t ut.Translator) error { return t.Add(tag, text, ovrd) },
		func(t ut.Translator, fe validator.FieldError) string {
			s, _ := t.T(tag, fe.Field())
			return s
		},
	)
}

// structErrors runs tag rules and returns translated messages in field order.
func (v *Validator) structErrors(s any) []string {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return []string{err.Error()}
	}

	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, fe.Translate(v.translator))
	}
	return msgs
}

// Custom Global Validators

// notBlankValidation rejects empty and whitespace-only strings.
func notBlankValidation(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}

// calendarDateValidation accepts any date format the hub parses.
func calendarDateValidation(fl validator.FieldLevel) bool {
	return timeutil.IsParseable(fl.Field().String())
}

// clockTimeValidation accepts 24-hour HH:MM.
func clockTimeValidation(fl validator.FieldLevel) bool {
	return clockTimeRegex.MatchString(fl.Field().String())
}

var (
	defaultOnce      sync.Once
	defaultValidator *Validator
)

// Default returns a shared Validator with default options.
func Default() *Validator {
	defaultOnce.Do(func() {
		defaultValidator = New()
	})
	return defaultValidator
}
