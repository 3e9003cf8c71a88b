package validation

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	apierrors "github.com/zfogg/biolink/internal/errors"
)

type linkInput struct {
	URL   string `json:"url" validate:"required,url,httpurl"`
	Title string `json:"title" validate:"required,min=1,max=100"`
	Order *int   `json:"order" validate:"omitempty,min=0"`
}

type profileInput struct {
	Slug     *string `json:"slug" validate:"omitempty,min=3,max=30,slug"`
	Platform string  `json:"platform" validate:"omitempty,platform"`
	Theme    string  `json:"theme" validate:"omitempty,oneof=system light dark"`
}

func TestStruct_FirstViolationMessage(t *testing.T) {
	negative := -1
	tests := []struct {
		name    string
		input   interface{}
		field   string
		message string
	}{
		{"missing url", linkInput{Title: "x"}, "url", "url is required"},
		{"not a url", linkInput{URL: "nope", Title: "x"}, "url", "Invalid URL"},
		{"ftp url", linkInput{URL: "ftp://example.com", Title: "x"}, "url", "URL must start with http:// or https://"},
		{"missing title", linkInput{URL: "https://example.com"}, "title", "Title is required"},
		{"negative order", linkInput{URL: "https://example.com", Title: "x", Order: &negative}, "order", "Order must be non-negative"},
		{"unknown platform", profileInput{Platform: "myspace"}, "platform", "Unsupported platform"},
		{"bad theme", profileInput{Theme: "neon"}, "theme", "theme must be one of: system light dark"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Struct(tt.input)
			require.Error(t, err)

			apiErr, ok := apierrors.As(err)
			require.True(t, ok)
			assert.Equal(t, apierrors.ErrValidation, apiErr.Code)
			assert.Equal(t, tt.field, apiErr.Field)
			assert.Equal(t, tt.message, apiErr.Message)
			assert.Equal(t, tt.message, FirstMessage(err))
		})
	}
}

func TestStruct_Slug(t *testing.T) {
	for _, slug := range []string{"abc", "my-name-1", "a23456789012345678901234567890"} {
		s := slug
		assert.NoError(t, Struct(profileInput{Slug: &s}), slug)
	}
	for _, slug := range []string{"ab", "Upper", "with space", "under_score"} {
		s := slug
		assert.Error(t, Struct(profileInput{Slug: &s}), slug)
	}
}

func TestStruct_Valid(t *testing.T) {
	zero := 0
	assert.NoError(t, Struct(linkInput{URL: "http://example.com/a", Title: "A", Order: &zero}))
	assert.NoError(t, Struct(profileInput{}))
}

func TestServiceValidator(t *testing.T) {
	t.Setenv("BIOLINK_REQUIRE_REDIS", "true")
	t.Setenv("BIOLINK_REQUIRE_S3", "")

	sv := NewServiceValidator(map[string]ServiceCheck{
		"redis": func(ctx context.Context) error { return errors.New("connection refused") },
		"s3":    func(ctx context.Context) error { t.Fatal("s3 is not required"); return nil },
	})
	assert.Equal(t, []string{"redis"}, sv.Required())

	err := sv.ValidateServices(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}
