package validator

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	once     sync.Once
	validate *validator.Validate

	usernamePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)
	repoNamePattern = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)
)

// ValidationError represents a single field validation failure.
type ValidationError struct {
	Field string `json:"field"`
	Tag   string `json:"tag"`
	Param string `json:"param,omitempty"`
}

// Message renders the failure as a sentence suitable for API clients.
func (e ValidationError) Message() string {
	field := "field"
	if e.Field != "" {
		field = strings.ToLower(strings.ReplaceAll(e.Field, "_", " "))
	}

	switch e.Tag {
	case "required", "notblank":
		return field + " is required"
	case "oneof":
		return fmt.Sprintf("%s must be one of %s", field, strings.Join(strings.Fields(e.Param), ", "))
	case "url", "http_url":
		return field + " must be a valid URL"
	case "email":
		return field + " must be a valid email address"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, e.Param)
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, e.Param)
	case "uuid4":
		return field + " must be a valid UUID"
	case "username":
		return field + " may only contain letters, digits, dots, dashes and underscores"
	case "reponame":
		return field + " is not a valid GitHub name"
	}
	if e.Param != "" {
		return fmt.Sprintf("%s failed validation: %s=%s", field, e.Tag, e.Param)
	}
	return fmt.Sprintf("%s failed validation: %s", field, e.Tag)
}

// ValidationErrors collects multiple validation failures.
type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return "invalid request payload"
	}
	parts := make([]string, len(v))
	for i, err := range v {
		parts[i] = err.Message()
	}
	return strings.Join(parts, "; ")
}

// ValidateStruct validates a struct using registered rules.
func ValidateStruct(s any) error {
	err := getValidator().Struct(s)
	if err == nil {
		return nil
	}

	ve, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}
	failures := make(ValidationErrors, 0, len(ve))
	for _, fe := range ve {
		failures = append(failures, ValidationError{
			Field: fe.Field(),
			Tag:   fe.Tag(),
			Param: fe.Param(),
		})
	}
	return failures
}

// RegisterValidation exposes underlying validator custom rules.
func RegisterValidation(tag string, fn validator.Func) error {
	return getValidator().RegisterValidation(tag, fn)
}

func stringField(fl validator.FieldLevel) (string, bool) {
	field := fl.Field()
	if field.Kind() == reflect.Ptr {
		if field.IsNil() {
			return "", false
		}
		field = field.Elem()
	}
	if field.Kind() != reflect.String {
		return "", false
	}
	return field.String(), true
}

// notBlank rejects strings made only of whitespace; non-string fields pass.
func notBlank(fl validator.FieldLevel) bool {
	value, ok := stringField(fl)
	return !ok || strings.TrimSpace(value) != ""
}

func username(fl validator.FieldLevel) bool {
	value, ok := stringField(fl)
	return !ok || usernamePattern.MatchString(value)
}

// repoName accepts GitHub owner and repository names. "." and ".." are reserved.
func repoName(fl validator.FieldLevel) bool {
	value, ok := stringField(fl)
	if !ok {
		return true
	}
	value = strings.TrimSpace(value)
	return value != "." && value != ".." && repoNamePattern.MatchString(value)
}

func jsonFieldName(fld reflect.StructField) string {
	name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
	if name == "" || name == "-" {
		return fld.Name
	}
	return name
}

func getValidator() *validator.Validate {
	once.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		_ = validate.RegisterValidation("notblank", notBlank)
		_ = validate.RegisterValidation("username", username)
		_ = validate.RegisterValidation("reponame", repoName)
		validate.RegisterTagNameFunc(jsonFieldName)
	})
	return validate
}
