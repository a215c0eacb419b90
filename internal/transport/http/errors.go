package httptransport

import (
	"net/http"
	"runtime/debug"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/grpc/status"

	"github.com/iliamunaev/users-api/internal/apperr"
	"github.com/iliamunaev/users-api/internal/trace"
)

// Generic values used for non-operational errors in production.
const (
	internalCode    = "INTERNAL_ERROR"
	internalMessage = "Internal Server Error"
)

// ErrorHandler is the only writer of failure responses.
type ErrorHandler struct {
	production  bool
	traceHeader string
	now         func() time.Time
}

// NewErrorHandler returns a handler. In production, non-operational errors
// are answered with a generic message and no details.
func NewErrorHandler(production bool, traceHeader string) *ErrorHandler {
	if traceHeader == "" {
		traceHeader = trace.Header
	}
	return &ErrorHandler{
		production:  production,
		traceHeader: traceHeader,
		now:         time.Now,
	}
}

// Handle logs e and writes its envelope with e's status code.
func (h *ErrorHandler) Handle(w http.ResponseWriter, r *http.Request, e *apperr.Error) {
	h.respond(w, r, e)
}

// respond is Handle returning the written body, for the post-response hook.
func (h *ErrorHandler) respond(w http.ResponseWriter, r *http.Request, e *apperr.Error) []byte {
	if e == nil {
		e = apperr.Classify(nil)
	}
	ctx := r.Context()
	h.log(zerolog.Ctx(ctx), r, e)

	id := trace.ID(ctx)
	if id != "" && w.Header().Get(h.traceHeader) == "" {
		w.Header().Set(h.traceHeader, id)
	}

	env := errorEnvelope{
		Error:     h.body(e),
		Timestamp: timestamp(h.now()),
		Path:      r.URL.Path,
		TraceID:   id,
	}
	b, err := encode(env)
	if err != nil {
		// Details that cannot be encoded are dropped rather than failing the response.
		env.Error.Details = nil
		b, _ = encode(env)
	}
	writeJSON(w, e.StatusCode(), b)
	return b
}

func (h *ErrorHandler) body(e *apperr.Error) errorBody {
	if !e.Operational() && h.production {
		return errorBody{Code: internalCode, Message: internalMessage}
	}
	out := errorBody{Code: e.Code(), Message: e.Message(), Details: e.Details()}
	if !e.Operational() && e.Cause() != nil {
		if out.Details == nil {
			out.Details = map[string]any{}
		}
		out.Details["originalError"] = e.Cause().Error()
	}
	return out
}

func (h *ErrorHandler) log(l *zerolog.Logger, r *http.Request, e *apperr.Error) {
	if e.Operational() {
		l.Warn().
			Str("error_code", e.Code()).
			Int("status", e.StatusCode()).
			Stringer("grpc_code", status.Code(e)).
			Interface("details", e.Details()).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Msg(e.Message())
		return
	}

	stack := e.Stack()
	if stack == nil {
		stack = debug.Stack()
	}
	l.Error().
		Err(e.Cause()).
		Str("error_code", e.Code()).
		Int("status", e.StatusCode()).
		Stringer("grpc_code", status.Code(e)).
		Interface("details", e.Details()).
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Str("stack", string(stack)).
		Msg(e.Message())
}
