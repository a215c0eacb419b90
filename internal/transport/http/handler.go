// Package httptransport adapts neutral controllers to net/http.
package httptransport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/iliamunaev/users-api/internal/apperr"
	"github.com/iliamunaev/users-api/internal/service/pool"
	"github.com/iliamunaev/users-api/internal/service/tracker"
	"github.com/iliamunaev/users-api/internal/trace"
	"github.com/iliamunaev/users-api/internal/transport"
)

// MaxBodyBytes bounds the request body read by the adapter.
const MaxBodyBytes = 1 << 20

// Record describes a finished response.
type Record struct {
	Method   string
	Path     string
	Status   int
	Body     []byte
	Duration time.Duration
	// Err is set when the response is an error envelope.
	Err *apperr.Error
}

// Hook runs after a response body has been written.
type Hook func(ctx context.Context, rec Record)

// LogBody is the default Hook. It logs the response body at debug level.
func LogBody(ctx context.Context, rec Record) {
	ev := zerolog.Ctx(ctx).Debug()
	if !ev.Enabled() {
		return
	}
	ev.Int("status", rec.Status).
		Dur("duration", rec.Duration).
		RawJSON("body", bytes.TrimSpace(rec.Body)).
		Msg("response body")
}

// Options configures an Adapter. Zero values select defaults.
type Options struct {
	Pool           *pool.Pool
	Tracker        *tracker.Tracker
	RequestTimeout time.Duration
	TraceHeader    string
	Hook           Hook
	// Crash, when set, is called with the value of a recovered controller
	// panic after the error response has been written.
	Crash func(v any)
}

// Adapter turns Controllers into http.Handlers.
type Adapter struct {
	errors         *ErrorHandler
	pool           *pool.Pool
	tracker        *tracker.Tracker
	requestTimeout time.Duration
	traceHeader    string
	hook           Hook
	crash          func(v any)
	now            func() time.Time
}

// NewAdapter returns an Adapter that reports failures through errors.
//
// It panics if errors is nil. If the request timeout is non-positive,
// a default timeout is applied.
func NewAdapter(errors *ErrorHandler, opts Options) *Adapter {
	if errors == nil {
		panic("httptransport.NewAdapter: nil error handler")
	}
	if opts.Pool == nil {
		opts.Pool = pool.New(pool.MaxSize)
	}
	if opts.Tracker == nil {
		opts.Tracker = &tracker.Tracker{}
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 10 * time.Second
	}
	if opts.TraceHeader == "" {
		opts.TraceHeader = trace.Header
	}
	if opts.Hook == nil {
		opts.Hook = LogBody
	}
	return &Adapter{
		errors:         errors,
		pool:           opts.Pool,
		tracker:        opts.Tracker,
		requestTimeout: opts.RequestTimeout,
		traceHeader:    opts.TraceHeader,
		hook:           opts.Hook,
		crash:          opts.Crash,
		now:            time.Now,
	}
}

// Handle returns an http.Handler running ctrl.
func (a *Adapter) Handle(ctrl transport.Controller) http.Handler {
	if ctrl == nil {
		panic("httptransport.Handle: nil controller")
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		a.serve(w, r, ctrl)
	})
}

type panicked struct {
	value any
	stack []byte
}

func (a *Adapter) serve(w http.ResponseWriter, r *http.Request, ctrl transport.Controller) {
	start := a.now()
	defer a.tracker.Track()()

	ctx := r.Context()
	if _, ok := trace.Current(ctx); !ok {
		var id string
		ctx, id = trace.Begin(ctx, r.Header.Get(a.traceHeader))
		w.Header().Set(a.traceHeader, id)
		r = r.WithContext(ctx)
	}

	req, err := buildRequest(r)
	if err != nil {
		a.fail(w, r, apperr.Classify(err), start)
		return
	}

	resp, p, err := a.invoke(ctx, ctrl, req)
	if p != nil {
		a.fail(w, r, apperr.Classify(p.value).WithStack(p.stack), start)
		if a.crash != nil {
			a.crash(p.value)
		}
		return
	}
	if err != nil {
		a.fail(w, r, apperr.Classify(err), start)
		return
	}
	a.succeed(w, r, resp, start)
}

// invoke runs ctrl under the request deadline while holding a pool lease.
// A panic inside ctrl is recovered and returned with its stack.
func (a *Adapter) invoke(ctx context.Context, ctrl transport.Controller, req transport.Request) (resp transport.Response, p *panicked, err error) {
	ctx, cancel := context.WithTimeout(ctx, a.requestTimeout)
	defer cancel()

	lease, err := a.pool.Acquire(ctx)
	if err != nil {
		return transport.Response{}, nil, fmt.Errorf("acquire request lease: %w", err)
	}
	defer lease.Release()

	defer func() {
		if v := recover(); v != nil {
			resp, err = transport.Response{}, nil
			p = &panicked{value: v, stack: debug.Stack()}
		}
	}()

	resp, err = ctrl(ctx, req)
	return resp, nil, err
}

func (a *Adapter) succeed(w http.ResponseWriter, r *http.Request, resp transport.Response, start time.Time) {
	ctx := r.Context()
	status := resp.Status
	if status == 0 {
		status = http.StatusOK
	}

	var payload any = successEnvelope{
		Success:    true,
		Data:       resp.Body,
		Timestamp:  timestamp(a.now()),
		TraceID:    trace.ID(ctx),
		Pagination: resp.Pagination,
	}
	if resp.Raw {
		payload = resp.Body
	}
	body, err := encode(payload)
	if err != nil {
		a.fail(w, r, apperr.Classify(fmt.Errorf("encode response: %w", err)), start)
		return
	}

	for k, v := range resp.Headers {
		w.Header().Set(k, v)
	}
	writeJSON(w, status, body)

	a.hook(ctx, Record{
		Method:   r.Method,
		Path:     r.URL.Path,
		Status:   status,
		Body:     body,
		Duration: a.now().Sub(start),
	})
}

func (a *Adapter) fail(w http.ResponseWriter, r *http.Request, e *apperr.Error, start time.Time) {
	body := a.errors.respond(w, r, e)
	a.hook(r.Context(), Record{
		Method:   r.Method,
		Path:     r.URL.Path,
		Status:   e.StatusCode(),
		Body:     body,
		Duration: a.now().Sub(start),
		Err:      e,
	})
}

func buildRequest(r *http.Request) (transport.Request, error) {
	body, err := readBody(r)
	if err != nil {
		return transport.Request{}, err
	}
	return transport.Request{
		Method:  r.Method,
		Path:    r.URL.Path,
		Body:    body,
		Query:   firstValues(r.URL.Query()),
		Params:  copyVars(mux.Vars(r)),
		Headers: firstValues(r.Header),
	}, nil
}

func readBody(r *http.Request) (json.RawMessage, error) {
	if r.Body == nil || r.Body == http.NoBody {
		return nil, nil
	}
	b, err := io.ReadAll(io.LimitReader(r.Body, MaxBodyBytes+1))
	if err != nil {
		return nil, apperr.BadRequest(
			apperr.WithCode("INVALID_BODY"),
			apperr.WithMessage("Request body could not be read"),
			apperr.WithCause(err),
		)
	}
	if len(b) > MaxBodyBytes {
		return nil, apperr.BadRequest(
			apperr.WithCode("PAYLOAD_TOO_LARGE"),
			apperr.WithMessage(fmt.Sprintf("Request body exceeds %d bytes", MaxBodyBytes)),
		)
	}
	if strings.TrimSpace(string(b)) == "" {
		return nil, nil
	}
	if !json.Valid(b) {
		return nil, apperr.BadRequest(
			apperr.WithCode("INVALID_JSON"),
			apperr.WithMessage("Request body is not valid JSON"),
		)
	}
	return json.RawMessage(b), nil
}

func firstValues(in map[string][]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, vs := range in {
		if len(vs) > 0 {
			out[k] = vs[0]
		}
	}
	return out
}

func copyVars(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
