// Package transport defines the framework-neutral controller contract.
//
// A Controller receives an immutable Request snapshot and either returns one
// Response or fails with one error. It never sees HTTP types, so business
// logic can be unit tested without a server.
package transport

import (
	"context"
	"fmt"
	"math"
	"net/http"

	"github.com/iliamunaev/users-api/internal/apperr"
)

// Source names a section of a Request.
type Source string

const (
	SourceBody   Source = "body"
	SourceQuery  Source = "query"
	SourceParams Source = "params"
)

// Controller implements one endpoint.
type Controller func(ctx context.Context, req Request) (Response, error)

// Request is a snapshot of an inbound call. Body holds the raw JSON payload
// until a validation gate replaces it with the parsed value.
type Request struct {
	Method  string
	Path    string
	Body    any
	Query   map[string]string
	Params  map[string]string
	Headers map[string]string

	parsed map[Source]any
}

// Header returns the value of a header, matched case-insensitively.
func (r Request) Header(name string) string {
	return r.Headers[http.CanonicalHeaderKey(name)]
}

// Section returns the data a gate for src consumes. Once a gate has
// normalized src, that value replaces the raw section; Query and Params keep
// the raw strings for logging.
func (r Request) Section(src Source) any {
	if v, ok := r.parsed[src]; ok {
		return v
	}
	switch src {
	case SourceBody:
		return r.Body
	case SourceQuery:
		return r.Query
	case SourceParams:
		return r.Params
	default:
		return nil
	}
}

// With returns a copy of r where src is replaced by its parsed value.
// The receiver is left untouched.
func (r Request) With(src Source, v any) Request {
	parsed := make(map[Source]any, len(r.parsed)+1)
	for k, pv := range r.parsed {
		parsed[k] = pv
	}
	parsed[src] = v
	r.parsed = parsed
	if src == SourceBody {
		r.Body = v
	}
	return r
}

// Value returns the parsed value of src as T. It fails with an internal error
// when no gate produced a T for that section.
func Value[T any](r Request, src Source) (T, error) {
	var zero T
	v, ok := r.parsed[src]
	if !ok {
		return zero, apperr.Internal(apperr.WithMessage(fmt.Sprintf("request %s was not validated", src)))
	}
	t, ok := v.(T)
	if !ok {
		return zero, apperr.Internal(apperr.WithMessage(fmt.Sprintf("request %s has type %T, want %T", src, v, zero)))
	}
	return t, nil
}

// Response is what a Controller produces on success.
type Response struct {
	Status     int
	Body       any
	Headers    map[string]string
	Pagination *Pagination
	// Raw writes Body as-is instead of wrapping it in the success envelope.
	Raw bool
}

// Pagination describes one page of a list.
type Pagination struct {
	Total      int `json:"total"`
	Page       int `json:"page"`
	PageSize   int `json:"pageSize"`
	TotalPages int `json:"totalPages"`
}

// NewPagination computes TotalPages as ceil(total/pageSize).
func NewPagination(total, page, pageSize int) *Pagination {
	pages := 0
	if pageSize > 0 {
		pages = int(math.Ceil(float64(total) / float64(pageSize)))
	}
	return &Pagination{Total: total, Page: page, PageSize: pageSize, TotalPages: pages}
}

// OK is a 200 response.
func OK(data any) Response { return Response{Status: http.StatusOK, Body: data} }

// Created is a 201 response.
func Created(data any) Response { return Response{Status: http.StatusCreated, Body: data} }

// Paginated is a 200 response carrying pagination metadata.
func Paginated(data any, total, page, pageSize int) Response {
	return Response{Status: http.StatusOK, Body: data, Pagination: NewPagination(total, page, pageSize)}
}

// Raw is a response written without the success envelope.
func Raw(status int, body any) Response { return Response{Status: status, Body: body, Raw: true} }
