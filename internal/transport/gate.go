package transport

import (
	"context"
	"errors"

	"github.com/iliamunaev/users-api/internal/validate"
)

// Validate guards next with a shape check of one request section. On success
// next receives a copy of the request with that section replaced by the
// parsed value. On failure next is never called and the violations are
// returned tagged with src.
func Validate(src Source, schema validate.Schema, next Controller) Controller {
	if schema == nil || next == nil {
		panic("transport.Validate: nil schema or controller")
	}
	return func(ctx context.Context, req Request) (Response, error) {
		v, err := schema.Parse(req.Section(src))
		if err != nil {
			var ve *validate.Error
			if errors.As(err, &ve) {
				tagged := *ve
				tagged.Source = string(src)
				return Response{}, &tagged
			}
			return Response{}, err
		}
		return next(ctx, req.With(src, v))
	}
}
