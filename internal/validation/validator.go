// Package validation validates caller input using the validator/v10 library.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"golang.org/x/text/unicode/norm"

	domainerrors "github.com/openbookapp/openbook-library/internal/errors"
)

// List name bounds, counted in runes after NFC normalisation.
const (
	ListNameMin = 2
	ListNameMax = 50
)

// CreateListRequest is the user-supplied shape of a new custom list.
type CreateListRequest struct {
	Name  string `json:"name" validate:"listname"`
	Icon  string `json:"icon,omitempty" validate:"max=16"`
	Color string `json:"color,omitempty" validate:"omitempty,hexcolor"`
}

// UpdateListRequest carries optional list attribute changes.
type UpdateListRequest struct {
	Name  *string `json:"name,omitempty" validate:"omitnil,listname"`
	Icon  *string `json:"icon,omitempty" validate:"omitnil,max=16"`
	Color *string `json:"color,omitempty" validate:"omitnil,hexcolor"`
}

// PagesRequest sets page tracking on a book.
type PagesRequest struct {
	TotalPages  int `json:"total_pages" validate:"gte=1"`
	CurrentPage int `json:"current_page" validate:"gte=0,ltefield=TotalPages"`
}

// Validator wraps go-playground/validator with domain error conversion.
type Validator struct {
	v *validator.Validate
}

// New creates a validator configured for our domain.
func New() *Validator {
	v := validator.New()

	// Use JSON tag names in error messages
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})

	// Registration only fails for empty tags or nil funcs.
	_ = v.RegisterValidation("listname", func(fl validator.FieldLevel) bool {
		n := utf8.RuneCountInString(NormalizeName(fl.Field().String()))
		return n >= ListNameMin && n <= ListNameMax
	})

	return &Validator{v: v}
}

// Validate validates a struct and returns a domain error.
func (v *Validator) Validate(s any) error {
	if err := v.v.Struct(s); err != nil {
		return v.formatError(err)
	}
	return nil
}

// NormalizeName trims surrounding whitespace and applies NFC so that visually
// identical names compare and count the same.
func NormalizeName(name string) string {
	return norm.NFC.String(strings.TrimSpace(name))
}

func (v *Validator) formatError(err error) error {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return err
	}

	fieldErrors := make(map[string]string, len(validationErrs))
	for _, e := range validationErrs {
		fieldErrors[e.Field()] = friendlyMessage(e)
	}

	return domainerrors.ValidationWithDetails("validation failed", fieldErrors)
}

func friendlyMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "listname":
		return fmt.Sprintf("must be between %d and %d characters", ListNameMin, ListNameMax)
	case "min":
		return fmt.Sprintf("must be at least %s characters", e.Param())
	case "max":
		return fmt.Sprintf("must not exceed %s characters", e.Param())
	case "url":
		return "must be a valid URL"
	case "hexcolor":
		return "must be a hex color such as #607D8B"
	case "gte":
		return "must be greater than or equal to " + e.Param()
	case "lte":
		return "must be less than or equal to " + e.Param()
	case "ltefield":
		return "must be less than or equal to " + e.Param()
	default:
		return "is invalid"
	}
}
