package users

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/iliamunaev/users-api/internal/transport"
	httptransport "github.com/iliamunaev/users-api/internal/transport/http"
)

// Register mounts the user routes on r, which is expected to be the
// /users subrouter.
func Register(r *mux.Router, a *httptransport.Adapter, c *Controllers) {
	r.Handle("", a.Handle(
		transport.Validate(transport.SourceQuery, userQuerySchema, c.List),
	)).Methods(http.MethodGet)

	r.Handle("", a.Handle(
		transport.Validate(transport.SourceBody, createUserSchema, c.Create),
	)).Methods(http.MethodPost)

	r.Handle("/{id}", a.Handle(
		transport.Validate(transport.SourceParams, userParamsSchema, c.Find),
	)).Methods(http.MethodGet)

	r.Handle("/{id}", a.Handle(
		transport.Validate(transport.SourceParams, userParamsSchema,
			transport.Validate(transport.SourceBody, updateUserSchema, c.Update)),
	)).Methods(http.MethodPatch)
}
