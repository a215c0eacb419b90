package transport

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliamunaev/users-api/internal/apperr"
	"github.com/iliamunaev/users-api/internal/validate"
)

type payload struct {
	Name string `json:"name" validate:"required"`
}

type filter struct {
	Active *bool `json:"active"`
	Page   int   `json:"page" validate:"gte=1"`
}

func (f *filter) SetDefaults() { f.Page = 1 }

func TestNewPagination(t *testing.T) {
	t.Parallel()

	tests := []struct {
		total, size, want int
	}{
		{total: 0, size: 10, want: 0},
		{total: 1, size: 10, want: 1},
		{total: 10, size: 10, want: 1},
		{total: 11, size: 10, want: 2},
		{total: 25, size: 5, want: 5},
		{total: 5, size: 0, want: 0},
	}

	for _, tt := range tests {
		if got := NewPagination(tt.total, 1, tt.size).TotalPages; got != tt.want {
			t.Fatalf("total=%d size=%d: expected %d pages, got %d", tt.total, tt.size, tt.want, got)
		}
	}
}

func TestResponseHelpers(t *testing.T) {
	t.Parallel()

	assert.Equal(t, http.StatusOK, OK("x").Status)
	assert.Equal(t, http.StatusCreated, Created("x").Status)
	assert.True(t, Raw(http.StatusOK, "x").Raw)

	p := Paginated([]int{1}, 3, 1, 2)
	require.NotNil(t, p.Pagination)
	assert.Equal(t, 2, p.Pagination.TotalPages)
}

func TestWithDoesNotMutateReceiver(t *testing.T) {
	t.Parallel()

	orig := Request{Body: json.RawMessage(`{}`)}
	next := orig.With(SourceBody, payload{Name: "x"})

	assert.Equal(t, json.RawMessage(`{}`), orig.Body)
	assert.Equal(t, payload{Name: "x"}, next.Body)

	_, err := Value[payload](orig, SourceBody)
	assert.Error(t, err)
	got, err := Value[payload](next, SourceBody)
	require.NoError(t, err)
	assert.Equal(t, "x", got.Name)
}

func TestValueWrongType(t *testing.T) {
	t.Parallel()

	req := Request{}.With(SourceQuery, 42)
	_, err := Value[string](req, SourceQuery)
	assert.True(t, apperr.IsKind(err, apperr.KindInternal))
}

func TestValidateReplacesSection(t *testing.T) {
	t.Parallel()

	var seen Request
	ctrl := Validate(SourceQuery, validate.New[filter](), func(_ context.Context, req Request) (Response, error) {
		seen = req
		return OK(nil), nil
	})

	in := Request{Query: map[string]string{"active": "true"}}
	_, err := ctrl(context.Background(), in)
	require.NoError(t, err)

	f, err := Value[filter](seen, SourceQuery)
	require.NoError(t, err)
	require.NotNil(t, f.Active)
	assert.True(t, *f.Active)
	assert.Equal(t, 1, f.Page)
	assert.Equal(t, "true", seen.Query["active"], "raw strings stay available")
	assert.Equal(t, f, seen.Section(SourceQuery))
	assert.Equal(t, map[string]string{"active": "true"}, in.Section(SourceQuery), "input request is untouched")
}

func TestSectionAfterWith(t *testing.T) {
	t.Parallel()

	raw := Request{
		Body:   json.RawMessage(`{"a":1}`),
		Query:  map[string]string{"q": "x"},
		Params: map[string]string{"id": "7"},
	}
	tests := []struct {
		src Source
		v   any
	}{
		{SourceBody, payload{Name: "n"}},
		{SourceQuery, filter{Page: 2}},
		{SourceParams, 7},
	}
	for _, tc := range tests {
		t.Run(string(tc.src), func(t *testing.T) {
			t.Parallel()
			got := raw.With(tc.src, tc.v)
			assert.Equal(t, tc.v, got.Section(tc.src))
			assert.NotEqual(t, tc.v, raw.Section(tc.src))
		})
	}
}

func TestValidateFailureSkipsController(t *testing.T) {
	t.Parallel()

	called := false
	ctrl := Validate(SourceBody, validate.New[payload](), func(context.Context, Request) (Response, error) {
		called = true
		return OK(nil), nil
	})

	_, err := ctrl(context.Background(), Request{Body: json.RawMessage(`{}`)})
	require.Error(t, err)
	assert.False(t, called)

	var ve *validate.Error
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "body", ve.Source)
	require.Len(t, ve.Violations, 1)
	assert.Equal(t, "name", ve.Violations[0].Path)

	classified := apperr.Classify(err)
	assert.Equal(t, http.StatusUnprocessableEntity, classified.StatusCode())
}

func TestValidateChainsGates(t *testing.T) {
	t.Parallel()

	type id struct {
		ID string `json:"id" validate:"required"`
	}

	ctrl := Validate(SourceParams, validate.New[id](),
		Validate(SourceBody, validate.New[payload](), func(_ context.Context, req Request) (Response, error) {
			p, err := Value[id](req, SourceParams)
			if err != nil {
				return Response{}, err
			}
			b, err := Value[payload](req, SourceBody)
			if err != nil {
				return Response{}, err
			}
			return OK(p.ID + ":" + b.Name), nil
		}))

	resp, err := ctrl(context.Background(), Request{
		Params: map[string]string{"id": "7"},
		Body:   json.RawMessage(`{"name":"ann"}`),
	})
	require.NoError(t, err)
	assert.Equal(t, "7:ann", resp.Body)
}

func TestRequestHeaderIsCaseInsensitive(t *testing.T) {
	t.Parallel()

	req := Request{Headers: map[string]string{"X-Trace-Id": "abc"}}
	assert.Equal(t, "abc", req.Header("x-trace-id"))
}
