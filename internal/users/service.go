// Package users implements the user endpoints.
package users

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/errgroup"

	"github.com/iliamunaev/users-api/internal/apperr"
	"github.com/iliamunaev/users-api/internal/model"
	"github.com/iliamunaev/users-api/internal/store"
)

// Hasher turns a plaintext password into a storable hash.
type Hasher interface {
	Hash(password string) (string, error)
}

// BcryptHasher hashes with bcrypt at the given cost.
type BcryptHasher struct {
	Cost int
}

func (h BcryptHasher) Hash(password string) (string, error) {
	cost := h.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	b, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(b), nil
}

// Service holds the user business rules.
type Service struct {
	store  store.UserStore
	hasher Hasher
}

// NewService returns a Service. It panics if either collaborator is nil.
func NewService(s store.UserStore, h Hasher) *Service {
	if s == nil || h == nil {
		panic("users.NewService: nil store or hasher")
	}
	return &Service{store: s, hasher: h}
}

// CreateInput is a validated creation request.
type CreateInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Role      model.Role
}

// Create stores a new user. An existing email fails with USER_EMAIL_EXISTS
// before anything is written.
func (s *Service) Create(ctx context.Context, in CreateInput) (model.PublicUser, error) {
	_, found, err := s.store.FindUnique(ctx, store.Unique{Email: in.Email})
	if err != nil {
		return model.PublicUser{}, err
	}
	if found {
		return model.PublicUser{}, emailExists(in.Email, nil)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return model.PublicUser{}, err
	}

	role := in.Role
	if role == "" {
		role = model.RoleUser
	}
	u, err := s.store.Create(ctx, model.User{
		Email:     in.Email,
		Password:  hash,
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Role:      role,
		IsActive:  true,
	})
	if err != nil {
		// Another request may have taken the email since the lookup.
		var se *store.Error
		if errors.As(err, &se) && se.Code == store.CodeUniqueViolation && slices.Contains(se.Target(), "email") {
			return model.PublicUser{}, emailExists(in.Email, err)
		}
		return model.PublicUser{}, err
	}

	zerolog.Ctx(ctx).Info().Str("user_id", u.ID).Msg("user created")
	return u.Public(), nil
}

// Find returns one user by id.
func (s *Service) Find(ctx context.Context, id string) (model.PublicUser, error) {
	u, found, err := s.store.FindUnique(ctx, store.Unique{ID: id})
	if err != nil {
		return model.PublicUser{}, err
	}
	if !found {
		return model.PublicUser{}, userNotFound(id)
	}
	return u.Public(), nil
}

// Update applies patch to an existing user.
func (s *Service) Update(ctx context.Context, id string, patch model.UserPatch) (model.PublicUser, error) {
	if patch.Empty() {
		return model.PublicUser{}, apperr.BadRequest(
			apperr.WithCode("NO_FIELDS_TO_UPDATE"),
			apperr.WithMessage("At least one field must be provided"),
		)
	}
	if _, err := s.Find(ctx, id); err != nil {
		return model.PublicUser{}, err
	}

	u, err := s.store.Update(ctx, id, patch)
	if err != nil {
		return model.PublicUser{}, err
	}
	zerolog.Ctx(ctx).Info().Str("user_id", u.ID).Msg("user updated")
	return u.Public(), nil
}

// ListQuery selects a page of users.
type ListQuery struct {
	Filter model.UserFilter
	Page   model.Page
}

// List returns one page of users and the total number of matches.
// The page and the count are fetched concurrently.
func (s *Service) List(ctx context.Context, q ListQuery) ([]model.PublicUser, int, error) {
	var (
		users []model.User
		total int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		users, err = s.store.FindMany(gctx, q.Filter, q.Page)
		return err
	})
	g.Go(func() error {
		var err error
		total, err = s.store.Count(gctx, q.Filter)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}
	return model.PublicUsers(users), total, nil
}

func emailExists(email string, cause error) *apperr.Error {
	return apperr.Conflict(
		apperr.WithCode("USER_EMAIL_EXISTS"),
		apperr.WithMessage("User with this email already exists"),
		apperr.WithDetail("field", "email"),
		apperr.WithDetail("value", email),
		apperr.WithCause(cause),
	)
}

func userNotFound(id string) *apperr.Error {
	return apperr.NotFound(
		apperr.WithCode("USER_NOT_FOUND"),
		apperr.WithMessage("User not found"),
		apperr.WithDetail("id", id),
	)
}
