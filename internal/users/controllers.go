package users

import (
	"context"

	"github.com/iliamunaev/users-api/internal/transport"
)

// Controllers exposes the Service through the neutral transport contract.
// Each controller expects its request sections to have passed a validation gate.
type Controllers struct {
	svc *Service
}

func NewControllers(svc *Service) *Controllers {
	if svc == nil {
		panic("users.NewControllers: nil service")
	}
	return &Controllers{svc: svc}
}

func (c *Controllers) Create(ctx context.Context, req transport.Request) (transport.Response, error) {
	body, err := transport.Value[CreateUserBody](req, transport.SourceBody)
	if err != nil {
		return transport.Response{}, err
	}
	u, err := c.svc.Create(ctx, CreateInput{
		Email:     body.Email,
		Password:  body.Password,
		FirstName: body.FirstName,
		LastName:  body.LastName,
		Role:      body.Role,
	})
	if err != nil {
		return transport.Response{}, err
	}
	resp := transport.Created(u)
	resp.Headers = map[string]string{"Location": "/api/v1/users/" + u.ID}
	return resp, nil
}

func (c *Controllers) Find(ctx context.Context, req transport.Request) (transport.Response, error) {
	p, err := transport.Value[UserParams](req, transport.SourceParams)
	if err != nil {
		return transport.Response{}, err
	}
	u, err := c.svc.Find(ctx, p.ID)
	if err != nil {
		return transport.Response{}, err
	}
	return transport.OK(u), nil
}

func (c *Controllers) Update(ctx context.Context, req transport.Request) (transport.Response, error) {
	p, err := transport.Value[UserParams](req, transport.SourceParams)
	if err != nil {
		return transport.Response{}, err
	}
	body, err := transport.Value[UpdateUserBody](req, transport.SourceBody)
	if err != nil {
		return transport.Response{}, err
	}
	u, err := c.svc.Update(ctx, p.ID, body.Patch())
	if err != nil {
		return transport.Response{}, err
	}
	return transport.OK(u), nil
}

func (c *Controllers) List(ctx context.Context, req transport.Request) (transport.Response, error) {
	q, err := transport.Value[UserQuery](req, transport.SourceQuery)
	if err != nil {
		return transport.Response{}, err
	}
	users, total, err := c.svc.List(ctx, q.List())
	if err != nil {
		return transport.Response{}, err
	}
	return transport.Paginated(users, total, q.Page, q.PageSize), nil
}
