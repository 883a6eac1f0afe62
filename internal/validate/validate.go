// Package validate checks parameter structs against their declared
// constraints before a request leaves the SDK.
package validate

import (
	"reflect"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	entranslations "github.com/go-playground/validator/v10/translations/en"
)

var (
	check      *validator.Validate
	translator ut.Translator
)

func init() {
	check = validator.New()

	var ok bool
	translator, ok = ut.New(en.New(), en.New()).GetTranslator("en")
	if !ok {
		panic("validate: en translator not found")
	}

	if err := entranslations.RegisterDefaultTranslations(check, translator); err != nil {
		panic(err)
	}

	// Report wire names (json tags), not Go field names.
	check.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}

		return name
	})
}

// Struct validates val against its validate tags.
// A non-nil result is a FieldErrors listing every failed field.
func Struct(val any) error {
	err := check.Struct(val)
	if err == nil {
		return nil
	}

	verrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}

	fields := make(FieldErrors, 0, len(verrors))
	for _, ve := range verrors {
		fields = append(fields, FieldError{
			Field: ve.Field(),
			Err:   ve.Translate(translator),
		})
	}

	return fields
}

// FieldError describes a single failed field.
type FieldError struct {
	Field string `json:"field"`
	Err   string `json:"error"`
}

// FieldErrors collects the failed fields of one value.
type FieldErrors []FieldError

// Error returns a human-readable summary of all field errors.
func (fe FieldErrors) Error() string {
	parts := make([]string, len(fe))
	for i, f := range fe {
		parts[i] = f.Field + ": " + f.Err
	}

	return strings.Join(parts, "; ")
}
