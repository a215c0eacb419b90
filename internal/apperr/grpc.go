package apperr

import (
	"encoding/json"
	"fmt"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/iliamunaev/users-api/internal/validate"
)

// Domain is the ErrorInfo domain reported in gRPC statuses.
const Domain = "users-api"

var grpcCodes = map[Kind]codes.Code{
	KindInternal:        codes.Internal,
	KindBadRequest:      codes.InvalidArgument,
	KindUnauthorized:    codes.Unauthenticated,
	KindForbidden:       codes.PermissionDenied,
	KindNotFound:        codes.NotFound,
	KindConflict:        codes.AlreadyExists,
	KindValidation:      codes.InvalidArgument,
	KindTooManyRequests: codes.ResourceExhausted,
}

// GRPCCode returns the gRPC status code for the kind.
func (k Kind) GRPCCode() codes.Code {
	if c, ok := grpcCodes[k]; ok {
		return c
	}
	return codes.Internal
}

// GRPCStatus projects e onto a gRPC status, so status.FromError recognizes
// application errors. The status carries an ErrorInfo with the wire code and,
// for validation errors, a BadRequest listing the field violations.
func (e *Error) GRPCStatus() *status.Status {
	st := status.New(e.kind.GRPCCode(), e.message)
	info := &errdetails.ErrorInfo{
		Reason:   e.code,
		Domain:   Domain,
		Metadata: flatten(e.details),
	}

	violations, _ := e.details["errors"].([]validate.Violation)
	if len(violations) == 0 {
		if with, err := st.WithDetails(info); err == nil {
			return with
		}
		return st
	}

	br := &errdetails.BadRequest{}
	for _, v := range violations {
		br.FieldViolations = append(br.FieldViolations, &errdetails.BadRequest_FieldViolation{
			Field:       v.Path,
			Description: v.Message,
		})
	}
	if with, err := st.WithDetails(info, br); err == nil {
		return with
	}
	return st
}

// flatten renders details as strings. Violations travel in BadRequest instead.
func flatten(details map[string]any) map[string]string {
	if len(details) == 0 {
		return nil
	}
	out := make(map[string]string, len(details))
	for k, v := range details {
		if k == "errors" {
			continue
		}
		switch tv := v.(type) {
		case string:
			out[k] = tv
		case fmt.Stringer:
			out[k] = tv.String()
		default:
			b, err := json.Marshal(v)
			if err != nil {
				out[k] = fmt.Sprint(v)
				continue
			}
			out[k] = string(b)
		}
	}
	return out
}
