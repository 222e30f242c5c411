package catalog

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

// GetItemInput identifies a single item.
type GetItemInput struct {
	ID int64 `json:"id" validate:"gt=0"`
}

// AddItemInput carries a new item and the raw bytes of its image.
type AddItemInput struct {
	Name     string `json:"name" validate:"required"`
	Category string `json:"category" validate:"required"`
	Image    []byte `json:"image" validate:"required,min=1"`
}

// SearchInput carries a name substring to search for.
type SearchInput struct {
	Keyword string `json:"keyword" validate:"required,min=1"`
}

// FetchImageInput names a stored image.
type FetchImageInput struct {
	Name string `json:"image_name" validate:"required,endswith=.jpg"`
}

// ParseItemID converts a raw path or query value into a GetItemInput.
// Non-numeric and non-positive ids are malformed input.
func ParseItemID(raw string) (GetItemInput, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return GetItemInput{}, &FieldError{Field: "id", Reason: "must be a positive integer"}
	}
	return GetItemInput{ID: id}, nil
}

func newValidator() *validator.Validate {
	v := validator.New()
	// Report fields by their json names so errors match the request fields.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

// validateInput runs struct validation and converts the first failure into
// a *FieldError.
func validateInput(v *validator.Validate, input any) error {
	err := v.Struct(input)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return &FieldError{Field: fe.Field(), Reason: reasonFor(fe)}
	}
	return fmt.Errorf("%w: %v", ErrMalformedInput, err)
}

func reasonFor(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return "must not be empty"
	case "gt":
		return "must be a positive integer"
	case "endswith":
		return "must end with " + fe.Param()
	default:
		return "is invalid"
	}
}
