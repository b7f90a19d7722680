package validation

import (
	"errors"
	"strings"
	"testing"

	"bolify/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Title  string   `json:"title" validate:"required,min=5,max=120"`
	Mobile string   `json:"mobileNumber" validate:"omitempty,mobile"`
	Email  string   `json:"email" validate:"omitempty,email"`
	Status string   `json:"status" validate:"omitempty,oneof=draft published"`
	Tags   []string `json:"tags" validate:"omitempty,dive,notblank"`
	Image  string   `json:"profileImage" validate:"omitempty,httpurl"`
	Owner  string   `json:"owner" validate:"omitempty,objectid"`
}

func fieldsOf(t *testing.T, err error) map[string]string {
	t.Helper()
	require.Error(t, err)
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %T", err)
	assert.Equal(t, models.CodeValidation, appErr.Code)
	assert.Equal(t, 422, appErr.HTTPStatus())
	return appErr.Fields
}

func TestStruct_Valid(t *testing.T) {
	t.Parallel()
	err := Struct(sample{
		Title:  "Hello",
		Mobile: "0123456789",
		Email:  "a@b.co",
		Status: "draft",
		Tags:   []string{"go"},
		Image:  "https://cdn.example.com/a.png",
		Owner:  models.NewID(),
	})
	assert.NoError(t, err)
}

func TestStruct_TitleBoundaries(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		title   string
		wantErr bool
	}{
		{"Empty", "", true},
		{"Four Chars", "abcd", true},
		{"Five Chars", "abcde", false},
		{"Max Length", strings.Repeat("a", 120), false},
		{"Too Long", strings.Repeat("a", 121), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Struct(sample{Title: tt.title})
			if tt.wantErr {
				fields := fieldsOf(t, err)
				assert.Contains(t, fields, "title")
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestStruct_FieldMessages(t *testing.T) {
	t.Parallel()
	fields := fieldsOf(t, Struct(sample{
		Title:  "Valid title",
		Mobile: "12345",
		Email:  "nope",
		Status: "archived",
		Tags:   []string{"ok", "  "},
		Image:  "ftp://x",
		Owner:  "xyz",
	}))

	assert.Equal(t, "mobileNumber must be a 10-digit number", fields["mobileNumber"])
	assert.Equal(t, "email must be a valid email address", fields["email"])
	assert.Equal(t, "status must be one of: draft, published", fields["status"])
	assert.Equal(t, "tags[1] is required", fields["tags[1]"])
	assert.Equal(t, "profileImage must be an http(s) URL", fields["profileImage"])
	assert.Equal(t, "owner is not a valid id", fields["owner"])
}

func TestVar(t *testing.T) {
	t.Parallel()
	assert.NoError(t, Var("text", "hello", "notblank,max=10"))

	fields := fieldsOf(t, Var("text", strings.Repeat("x", 11), "notblank,max=10"))
	assert.Equal(t, "text must be at most 10 characters", fields["text"])
}

func TestVar_BcryptLenCountsBytes(t *testing.T) {
	t.Parallel()
	assert.NoError(t, Var("password", strings.Repeat("a", BcryptMaxBytes), "bcryptlen"))
	assert.NoError(t, Var("password", strings.Repeat("é", BcryptMaxBytes/2), "bcryptlen"))

	fields := fieldsOf(t, Var("password", strings.Repeat("é", 40), "bcryptlen"))
	assert.Equal(t, "password must be at most 72 bytes", fields["password"])
}
