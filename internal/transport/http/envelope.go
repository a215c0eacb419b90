package httptransport

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/iliamunaev/users-api/internal/transport"
)

// timeLayout is ISO-8601 in UTC with millisecond precision.
const timeLayout = "2006-01-02T15:04:05.000Z07:00"

type successEnvelope struct {
	Success    bool                  `json:"success"`
	Data       any                   `json:"data"`
	Timestamp  string                `json:"timestamp"`
	TraceID    string                `json:"traceId,omitempty"`
	Pagination *transport.Pagination `json:"pagination,omitempty"`
}

type errorEnvelope struct {
	Success   bool      `json:"success"`
	Error     errorBody `json:"error"`
	Timestamp string    `json:"timestamp"`
	Path      string    `json:"path"`
	TraceID   string    `json:"traceId,omitempty"`
}

type errorBody struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

func timestamp(now time.Time) string { return now.UTC().Format(timeLayout) }

// writeJSON writes an encoded body with the given status code.
// Headers are set before the status line, the body after it.
func writeJSON(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func encode(v any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return append(b, '\n'), nil
}
