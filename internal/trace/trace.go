// Package trace scopes a correlation id to a request context.
//
// The id travels in the context.Context, so every goroutine started with that
// context observes the same id and concurrent requests never see each
// other's ids. The context also carries a zerolog logger bound to the id;
// code logs through zerolog.Ctx(ctx).
package trace

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Header is the default HTTP header carrying the id.
const Header = "X-Trace-ID"

// LogField is the log field holding the id.
const LogField = "trace_id"

type ctxKey struct{}

// MaxIDLen bounds an inbound id.
const MaxIDLen = 128

// Begin opens a trace scope. An inbound id made of up to MaxIDLen letters,
// digits, '.', '_' or '-' is reused, so UUIDs, W3C trace ids and ULIDs from
// upstream services keep correlating. Anything else is replaced by a fresh
// random UUID.
func Begin(ctx context.Context, inbound string) (context.Context, string) {
	id := inbound
	if !Valid(inbound) {
		id = uuid.NewString()
	}
	ctx = context.WithValue(ctx, ctxKey{}, id)

	l := zerolog.Ctx(ctx).With().Str(LogField, id).Logger()
	return l.WithContext(ctx), id
}

// Current returns the id of the enclosing scope.
func Current(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	id, ok := ctx.Value(ctxKey{}).(string)
	return id, ok && id != ""
}

// ID returns the current id, or "" outside a scope.
func ID(ctx context.Context) string {
	id, _ := Current(ctx)
	return id
}

// Valid reports whether id may be reused as a trace id.
func Valid(id string) bool {
	if id == "" || len(id) > MaxIDLen {
		return false
	}
	for i := 0; i < len(id); i++ {
		switch c := id[i]; {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		case c == '.', c == '_', c == '-':
		default:
			return false
		}
	}
	return true
}
