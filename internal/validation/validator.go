// Package validation validates request payloads with go-playground/validator and
// checks that required backing services are reachable at startup.
package validation

import (
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	apierrors "github.com/zfogg/biolink/internal/errors"
	"github.com/zfogg/biolink/internal/models"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

var slugPattern = regexp.MustCompile(`^[a-z0-9-]+$`)

// Get returns the shared validator with the custom rules registered
func Get() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(jsonFieldName)

		_ = validate.RegisterValidation("httpurl", isHTTPURL)
		_ = validate.RegisterValidation("slug", isSlug)
		_ = validate.RegisterValidation("platform", isPlatform)
	})
	return validate
}

// jsonFieldName reports fields by their JSON name so messages match the request body
func jsonFieldName(fld reflect.StructField) string {
	name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	if name == "-" || name == "" {
		return fld.Name
	}
	return name
}

func isHTTPURL(fl validator.FieldLevel) bool {
	u, err := url.Parse(fl.Field().String())
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func isSlug(fl validator.FieldLevel) bool {
	return slugPattern.MatchString(fl.Field().String())
}

func isPlatform(fl validator.FieldLevel) bool {
	_, ok := models.PlatformLogo(fl.Field().String())
	return ok
}

// Struct validates s and returns a 400 APIError describing the first violation
func Struct(s interface{}) error {
	err := Get().Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return apierrors.BadRequest("Invalid input")
	}
	first := fieldErrs[0]
	return apierrors.ValidationError(first.Field(), translateError(first))
}

// FirstMessage returns the human-readable message of a validation failure
func FirstMessage(err error) string {
	if err == nil {
		return ""
	}
	if apiErr, ok := apierrors.As(err); ok {
		return apiErr.Message
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		return translateError(fieldErrs[0])
	}
	return "Invalid input"
}

// fieldMessages overrides the generic templates for specific field/tag pairs
var fieldMessages = map[string]string{
	"title.required":   "Title is required",
	"title.min":        "Title is required",
	"name.required":    "Name is required",
	"name.min":         "Name is required",
	"message.required": "Message is required",
	"message.min":      "Message is required",
	"email.email":      "Invalid email address",
	"userId.required":  "Invalid user ID",
	"order.min":        "Order must be non-negative",
	"slug.slug":        "Slug can only contain lowercase letters, numbers and hyphens",
	"slug.min":         "Slug must be at least 3 characters",
	"slug.max":         "Slug must be at most 30 characters",
}

// errorMessageTemplates maps validation tags to message templates
var errorMessageTemplates = map[string]string{
	"required": "%s is required",
	"url":      "Invalid URL",
	"httpurl":  "URL must start with http:// or https://",
	"email":    "%s must be a valid email address",
	"platform": "Unsupported platform",
}

// errorMessageWithParam maps validation tags to templates that include the param
var errorMessageWithParam = map[string]string{
	"oneof": "%s must be one of: %s",
	"min":   "%s must be at least %s",
	"max":   "%s must be at most %s",
	"gte":   "%s must be greater than or equal to %s",
	"lte":   "%s must be less than or equal to %s",
}

func translateError(fe validator.FieldError) string {
	if msg, ok := fieldMessages[fe.Field()+"."+fe.Tag()]; ok {
		return msg
	}
	if tmpl, ok := errorMessageTemplates[fe.Tag()]; ok {
		if strings.Contains(tmpl, "%s") {
			return fmt.Sprintf(tmpl, fe.Field())
		}
		return tmpl
	}
	if tmpl, ok := errorMessageWithParam[fe.Tag()]; ok {
		return fmt.Sprintf(tmpl, fe.Field(), fe.Param())
	}
	return fmt.Sprintf("%s is invalid", fe.Field())
}
