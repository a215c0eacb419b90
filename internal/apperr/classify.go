package apperr

import (
	"errors"
	"fmt"

	"github.com/iliamunaev/users-api/internal/store"
	"github.com/iliamunaev/users-api/internal/validate"
)

// storeRule maps a known store code onto the taxonomy.
type storeRule struct {
	kind    Kind
	code    string
	message string
}

var storeRules = map[string]storeRule{
	store.CodeUniqueViolation:     {KindConflict, "DATABASE_UNIQUE_CONSTRAINT", "Unique constraint violation"},
	store.CodeForeignKeyViolation: {KindConflict, "DATABASE_FOREIGN_KEY_CONSTRAINT", "Foreign key constraint violation"},
	store.CodeNotNullViolation:    {KindBadRequest, "DATABASE_NULL_CONSTRAINT", "Required value missing"},
	store.CodeInvalidText:         {KindBadRequest, "DATABASE_INVALID_INPUT", "Invalid input value"},
	store.CodeNoRows:              {KindNotFound, "RESOURCE_NOT_FOUND", "Record to update not found"},
}

// Classify maps any value to an application error. It never panics and
// depends only on the shape of v. Checks run in a fixed order:
//
//  1. an *Error (or an error wrapping one) is returned unchanged;
//  2. a *store.Error is mapped by its store code;
//  3. a *validate.Error becomes a Validation error listing every violation;
//  4. any other error becomes a non-operational Internal error;
//  5. nil or a non-error value becomes a non-operational Internal error.
func Classify(v any) *Error {
	err, ok := v.(error)
	if !ok || err == nil {
		return fromValue(v)
	}

	if e, ok := As(err); ok {
		return e
	}

	var se *store.Error
	if errors.As(err, &se) && se != nil {
		return fromStore(se)
	}

	var ve *validate.Error
	if errors.As(err, &ve) && ve != nil {
		return fromViolations(ve)
	}

	return Internal(WithMessage(err.Error()), WithCause(err))
}

func fromStore(se *store.Error) *Error {
	rule, known := storeRules[se.Code]
	if !known {
		return Internal(
			WithCode("DATABASE_ERROR_"+se.Code),
			WithMessage("Database error"),
			WithDetails(map[string]any{"code": se.Code, "meta": cloneMap(se.Meta)}),
			WithCause(se),
		)
	}

	details := map[string]any{}
	if t := se.Target(); len(t) > 0 {
		details["target"] = t
	}
	if c, ok := se.Meta[store.MetaConstraint]; ok {
		details["constraint"] = c
	}
	return New(rule.kind,
		WithCode(rule.code),
		WithMessage(rule.message),
		WithDetails(details),
		WithCause(se),
	)
}

func fromViolations(ve *validate.Error) *Error {
	violations := make([]validate.Violation, len(ve.Violations))
	copy(violations, ve.Violations)

	opts := []Option{WithDetail("errors", violations), WithCause(ve)}
	if ve.Source != "" {
		opts = append(opts, WithDetail("source", ve.Source))
	}
	return Validation(opts...)
}

func fromValue(v any) *Error {
	if v == nil {
		return Internal(
			WithMessage("Unexpected nil failure"),
			WithCause(errors.New("nil value")),
		)
	}
	return Internal(
		WithMessage(fmt.Sprintf("Unexpected non-error value of type %T", v)),
		WithCause(fmt.Errorf("non-error value: %v", v)),
	)
}
