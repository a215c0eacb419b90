package apperr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliamunaev/users-api/internal/store"
	"github.com/iliamunaev/users-api/internal/validate"
)

func TestClassifyReturnsApplicationErrorUnchanged(t *testing.T) {
	t.Parallel()

	in := NotFound(WithCode("USER_NOT_FOUND"))
	assert.Same(t, in, Classify(in))
	assert.Same(t, in, Classify(fmt.Errorf("service: %w", in)))
}

func TestClassifyIsIdempotent(t *testing.T) {
	t.Parallel()

	inputs := []any{
		nil,
		"string value",
		42,
		errors.New("plain"),
		context.DeadlineExceeded,
		&store.Error{Code: store.CodeUniqueViolation, Meta: map[string]any{store.MetaTarget: []string{"email"}}},
		&store.Error{Code: "XX999"},
		&validate.Error{Violations: []validate.Violation{{Path: "a", Message: "b"}}},
		BadRequest(),
	}

	for _, in := range inputs {
		once := Classify(in)
		twice := Classify(once)
		assert.Same(t, once, twice, "input %v", in)
	}
}

func TestClassifyIsDeterministic(t *testing.T) {
	t.Parallel()

	in := &store.Error{Code: store.CodeUniqueViolation, Meta: map[string]any{store.MetaTarget: []string{"email"}}}
	a, b := Classify(in), Classify(in)
	assert.Equal(t, a.Code(), b.Code())
	assert.Equal(t, a.Message(), b.Message())
	assert.Equal(t, a.Details(), b.Details())
}

func TestClassifyStoreErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		in          *store.Error
		status      int
		code        string
		operational bool
	}{
		{
			name:        "unique",
			in:          &store.Error{Code: store.CodeUniqueViolation, Meta: map[string]any{store.MetaTarget: []string{"email"}}},
			status:      http.StatusConflict,
			code:        "DATABASE_UNIQUE_CONSTRAINT",
			operational: true,
		},
		{
			name:        "no_rows",
			in:          &store.Error{Code: store.CodeNoRows},
			status:      http.StatusNotFound,
			code:        "RESOURCE_NOT_FOUND",
			operational: true,
		},
		{
			name:        "foreign_key",
			in:          &store.Error{Code: store.CodeForeignKeyViolation},
			status:      http.StatusConflict,
			code:        "DATABASE_FOREIGN_KEY_CONSTRAINT",
			operational: true,
		},
		{
			name:        "invalid_text",
			in:          &store.Error{Code: store.CodeInvalidText},
			status:      http.StatusBadRequest,
			code:        "DATABASE_INVALID_INPUT",
			operational: true,
		},
		{
			name:        "unknown",
			in:          &store.Error{Code: "XX999", Meta: map[string]any{"hint": "x"}},
			status:      http.StatusInternalServerError,
			code:        "DATABASE_ERROR_XX999",
			operational: false,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := Classify(fmt.Errorf("repo: %w", tt.in))
			assert.Equal(t, tt.status, got.StatusCode())
			assert.Equal(t, tt.code, got.Code())
			assert.Equal(t, tt.operational, got.Operational())
			assert.ErrorIs(t, got, tt.in)
		})
	}
}

func TestClassifyUniqueCarriesTarget(t *testing.T) {
	t.Parallel()

	got := Classify(&store.Error{Code: store.CodeUniqueViolation, Meta: map[string]any{
		store.MetaTarget:     []string{"email"},
		store.MetaConstraint: "users_email_key",
	}})
	assert.Equal(t, []string{"email"}, got.Detail("target"))
	assert.Equal(t, "users_email_key", got.Detail("constraint"))
}

func TestClassifyUnknownStoreCodeCarriesMeta(t *testing.T) {
	t.Parallel()

	got := Classify(&store.Error{Code: "XX999", Meta: map[string]any{"hint": "x"}})
	assert.Equal(t, "XX999", got.Detail("code"))
	assert.Equal(t, map[string]any{"hint": "x"}, got.Detail("meta"))
}

func TestClassifyValidation(t *testing.T) {
	t.Parallel()

	in := &validate.Error{Source: "body", Violations: []validate.Violation{
		{Path: "email", Message: "Invalid email address"},
		{Path: "firstName", Message: "firstName is required"},
	}}
	got := Classify(in)

	assert.Equal(t, http.StatusUnprocessableEntity, got.StatusCode())
	assert.Equal(t, "VALIDATION_ERROR", got.Code())
	assert.True(t, got.Operational())
	assert.Equal(t, "body", got.Detail("source"))

	violations, ok := got.Detail("errors").([]validate.Violation)
	require.True(t, ok)
	assert.Equal(t, in.Violations, violations)
}

func TestClassifyGenericError(t *testing.T) {
	t.Parallel()

	in := errors.New("disk on fire")
	got := Classify(in)

	assert.Equal(t, KindInternal, got.Kind())
	assert.Equal(t, http.StatusInternalServerError, got.StatusCode())
	assert.Equal(t, "disk on fire", got.Message())
	assert.False(t, got.Operational())
	assert.ErrorIs(t, got, in)
}

func TestClassifyNonErrorValues(t *testing.T) {
	t.Parallel()

	var typedNil *Error
	inputs := []any{nil, "oops", 7, struct{ A int }{1}, typedNil}

	for _, in := range inputs {
		require.NotPanics(t, func() { Classify(in) })
		got := Classify(in)
		assert.Equal(t, http.StatusInternalServerError, got.StatusCode(), "input %#v", in)
		assert.False(t, got.Operational(), "input %#v", in)
		assert.NotEmpty(t, got.Message(), "input %#v", in)
	}
}
