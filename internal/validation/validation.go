package validation

import (
	"fmt"
	"html"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
)

var (
	validate  = validator.New(validator.WithRequiredStructEnabled())
	sanitizer = bluemonday.StrictPolicy()
)

// Struct validates v against its `validate` tags and returns a readable error.
func Struct(v any) error {
	if err := validate.Struct(v); err != nil {
		return fmt.Errorf("%s", FormatError(err))
	}
	return nil
}

// FormatError joins validator field errors into one message.
func FormatError(err error) string {
	fieldErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return err.Error()
	}
	messages := make([]string, 0, len(fieldErrors))
	for _, fe := range fieldErrors {
		messages = append(messages, fieldMessage(fe))
	}
	return strings.Join(messages, "; ")
}

func fieldMessage(fe validator.FieldError) string {
	field := fieldName(fe.Field())
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return field + " must be a valid email"
	case "min":
		if fe.Kind().String() == "string" {
			return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		if fe.Kind().String() == "string" {
			return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fe.Param())
	default:
		return field + " is invalid"
	}
}

func fieldName(field string) string {
	names := map[string]string{
		"Text":         "text",
		"TargetUserID": "target_user_id",
		"ToUserID":     "to_user_id",
		"DisplayName":  "display_name",
		"Email":        "email",
		"Password":     "password",
		"Emoji":        "emoji",
		"Gender":       "gender",
	}
	if name, ok := names[field]; ok {
		return name
	}
	return strings.ToLower(field)
}

// Sanitize strips markup from user text. Entities escaped by the policy are
// decoded again since clients render plain text.
func Sanitize(s string) string {
	return strings.TrimSpace(html.UnescapeString(sanitizer.Sanitize(s)))
}
