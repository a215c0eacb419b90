// Package validate is the shape checker used in front of controllers.
//
// A Schema parses one section of a request (a JSON body or a string map of
// query/path parameters) into a typed, normalized value, or fails with an
// *Error listing every violation by field path.
package validate

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/schema"
)

// Violation is one failed constraint.
type Violation struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// Error is a shape-check failure.
type Error struct {
	// Source names the request section that failed ("body", "query", "params").
	Source     string
	Violations []Violation
}

func (e *Error) Error() string {
	if e == nil || len(e.Violations) == 0 {
		return "validation failed"
	}
	parts := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		if v.Path == "" {
			parts = append(parts, v.Message)
			continue
		}
		parts = append(parts, v.Path+": "+v.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Schema parses and validates raw request data.
type Schema interface {
	Parse(data any) (any, error)
}

// Defaulter is implemented by targets that need default values before decoding.
type Defaulter interface {
	SetDefaults()
}

// Struct is a Schema that decodes into T and checks its `validate` tags.
// Field paths use the `json` tag names.
type Struct[T any] struct {
	messages map[string]string
}

// Option configures a Struct schema.
type Option func(*config)

type config struct {
	messages map[string]string
}

// WithMessages overrides reported messages. Keys are either a field path,
// matching any failed rule, or "path:rule" for a single rule.
func WithMessages(m map[string]string) Option {
	return func(c *config) { c.messages = m }
}

// New returns a Schema for T.
func New[T any](opts ...Option) *Struct[T] {
	var c config
	for _, o := range opts {
		o(&c)
	}
	return &Struct[T]{messages: c.messages}
}

// Parse decodes data into T, applies defaults and validates the result.
// It returns the T value on success.
func (s *Struct[T]) Parse(data any) (any, error) {
	var dst T
	if d, ok := any(&dst).(Defaulter); ok {
		d.SetDefaults()
	}

	if err := decodeInto(&dst, data); err != nil {
		return nil, err
	}

	if err := checker.Struct(&dst); err != nil {
		var ves validator.ValidationErrors
		if !errors.As(err, &ves) {
			return nil, fmt.Errorf("validate: %w", err)
		}
		out := &Error{Violations: make([]Violation, 0, len(ves))}
		for _, fe := range ves {
			path := fieldPath(fe)
			msg, ok := s.messages[path+":"+fe.Tag()]
			if !ok {
				msg, ok = s.messages[path]
			}
			if !ok {
				msg = message(fe)
			}
			out.Violations = append(out.Violations, Violation{Path: path, Message: msg})
		}
		return nil, out
	}
	return dst, nil
}

func decodeInto(dst any, data any) error {
	switch v := data.(type) {
	case nil:
		return nil
	case json.RawMessage:
		return decodeJSON(dst, v)
	case []byte:
		return decodeJSON(dst, v)
	case map[string]string:
		return decodeStrings(dst, v)
	default:
		rv := reflect.ValueOf(dst).Elem()
		if in := reflect.ValueOf(data); in.Type().AssignableTo(rv.Type()) {
			rv.Set(in)
			return nil
		}
		b, err := json.Marshal(data)
		if err != nil {
			return &Error{Violations: []Violation{{Message: "unsupported payload"}}}
		}
		return decodeJSON(dst, b)
	}
}

func decodeJSON(dst any, b []byte) error {
	if len(strings.TrimSpace(string(b))) == 0 {
		return nil
	}
	err := json.Unmarshal(b, dst)
	if err == nil {
		return nil
	}
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return &Error{Violations: []Violation{{
			Path:    typeErr.Field,
			Message: "Expected " + jsonKind(typeErr.Type) + ", received " + typeErr.Value,
		}}}
	}
	return &Error{Violations: []Violation{{Message: "Malformed JSON payload"}}}
}

func decodeStrings(dst any, in map[string]string) error {
	values := make(map[string][]string, len(in))
	for k, v := range in {
		values[k] = []string{v}
	}
	err := decoder.Decode(dst, values)
	if err == nil {
		return nil
	}
	var multi schema.MultiError
	if !errors.As(err, &multi) {
		return &Error{Violations: []Violation{{Message: err.Error()}}}
	}
	out := &Error{Violations: make([]Violation, 0, len(multi))}
	for key, e := range multi {
		msg := "Invalid value"
		var conv schema.ConversionError
		if errors.As(e, &conv) {
			msg = "Expected " + jsonKind(conv.Type) + ", received " + fmt.Sprintf("%q", in[key])
		}
		out.Violations = append(out.Violations, Violation{Path: key, Message: msg})
	}
	sortViolations(out.Violations)
	return out
}

func sortViolations(vs []Violation) {
	sort.Slice(vs, func(i, j int) bool { return vs[i].Path < vs[j].Path })
}

func jsonKind(t reflect.Type) string {
	if t == nil {
		return "value"
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.Bool:
		return "boolean"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return "number"
	case reflect.String:
		return "string"
	case reflect.Slice, reflect.Array:
		return "array"
	default:
		return "object"
	}
}

// fieldPath drops the root struct name from the validator namespace.
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}
