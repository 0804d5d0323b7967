package service

import (
	"errors"
	"reflect"
	"strings"
	"unicode"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"

	"github.com/noah-isme/dlool-api/internal/models"
	appErrors "github.com/noah-isme/dlool-api/pkg/errors"
)

const (
	passwordPolicyTag  = "password_policy"
	passwordPolicyText = "{0} must be at least 8 characters long and contain a lowercase letter, an uppercase letter, a digit and a special character"

	passwordBytesTag  = "password_bytes"
	passwordBytesText = "{0} must be at most 72 bytes long"

	noSpaceTag  = "nospace"
	noSpaceText = "{0} must not contain whitespace"

	timezoneOffsetTag  = "timezone_offset"
	timezoneOffsetText = "{0} must be a valid UTC offset"

	passwordMinLength = 8
	passwordMaxBytes  = 72 // bcrypt limit
	specialCharacters = "!@#$%^&*()_-[]{}?/\\|,.<>~`'\""
)

// Validator checks request payloads and reports every failing field at once.
type Validator struct {
	validate   *validator.Validate
	translator ut.Translator
}

// NewValidator builds a validator with English messages and the custom rules
// used by the API payloads.
func NewValidator() *Validator {
	validate := validator.New()

	english := en.New()
	uni := ut.New(english, english)
	translator, _ := uni.GetTranslator("en")
	_ = en_translations.RegisterDefaultTranslations(validate, translator)

	// report JSON names rather than Go field names
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	v := &Validator{validate: validate, translator: translator}
	v.register(passwordPolicyTag, passwordPolicyText, func(fl validator.FieldLevel) bool {
		return PasswordMeetsPolicy(fl.Field().String())
	})
	v.register(passwordBytesTag, passwordBytesText, func(fl validator.FieldLevel) bool {
		return PasswordFitsHash(fl.Field().String())
	})
	v.register(noSpaceTag, noSpaceText, func(fl validator.FieldLevel) bool {
		return !strings.ContainsFunc(fl.Field().String(), unicode.IsSpace)
	})
	v.register(timezoneOffsetTag, timezoneOffsetText, func(fl validator.FieldLevel) bool {
		return models.ValidTimezoneOffset(fl.Field().Float())
	})
	return v
}

func (v *Validator) register(tag, text string, fn validator.Func) {
	_ = v.validate.RegisterValidation(tag, fn)
	_ = v.validate.RegisterTranslation(
		tag, v.translator,
		func(t ut.Translator) error { return t.Add(tag, text, false) },
		func(t ut.Translator, fe validator.FieldError) string {
			s, _ := t.T(tag, fe.Field())
			return s
		},
	)
}

// Struct validates payload and returns a VALIDATION_ERROR listing every
// violated field, or nil.
func (v *Validator) Struct(payload interface{}, message string) error {
	err := v.validate.Struct(payload)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, message)
	}
	details := make([]appErrors.FieldError, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		details = append(details, appErrors.FieldError{Field: fe.Field(), Message: fe.Translate(v.translator)})
	}
	return appErrors.Validation(message, details)
}

// PasswordFitsHash reports whether plain is short enough to be hashed.
func PasswordFitsHash(plain string) bool {
	return len(plain) <= passwordMaxBytes
}

// PasswordMeetsPolicy reports whether plain is at least 8 characters long and
// mixes lowercase, uppercase, digits and special characters.
func PasswordMeetsPolicy(plain string) bool {
	if len([]rune(plain)) < passwordMinLength {
		return false
	}
	var lower, upper, digit, special bool
	for _, r := range plain {
		switch {
		case unicode.IsLower(r):
			lower = true
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		case strings.ContainsRune(specialCharacters, r):
			special = true
		}
	}
	return lower && upper && digit && special
}
