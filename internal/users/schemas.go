package users

import (
	"github.com/iliamunaev/users-api/internal/model"
	"github.com/iliamunaev/users-api/internal/validate"
)

// CreateUserBody is the body of POST /users.
type CreateUserBody struct {
	Email     string     `json:"email" validate:"required,email"`
	Password  string     `json:"password" validate:"required,min=8,password"`
	FirstName string     `json:"firstName" validate:"required"`
	LastName  string     `json:"lastName" validate:"required"`
	Role      model.Role `json:"role" validate:"required,oneof=USER ADMIN MODERATOR"`
}

// UpdateUserBody is the body of PATCH /users/{id}. Absent fields are left unchanged.
type UpdateUserBody struct {
	FirstName *string     `json:"firstName" validate:"omitnil,min=1"`
	LastName  *string     `json:"lastName" validate:"omitnil,min=1"`
	Role      *model.Role `json:"role" validate:"omitnil,oneof=USER ADMIN MODERATOR"`
	IsActive  *bool       `json:"isActive"`
}

func (b UpdateUserBody) Patch() model.UserPatch {
	return model.UserPatch{
		FirstName: b.FirstName,
		LastName:  b.LastName,
		Role:      b.Role,
		IsActive:  b.IsActive,
	}
}

// UserParams are the path parameters of /users/{id}.
type UserParams struct {
	ID string `json:"id" validate:"required,uuid"`
}

// UserQuery is the query of GET /users.
type UserQuery struct {
	Search    string          `json:"search"`
	Role      model.Role      `json:"role" validate:"omitempty,oneof=USER ADMIN MODERATOR"`
	IsActive  *bool           `json:"isActive"`
	Page      int             `json:"page" validate:"gte=1,lte=1000000"`
	PageSize  int             `json:"pageSize" validate:"gte=1,lte=100"`
	SortBy    string          `json:"sortBy" validate:"oneof=createdAt updatedAt email firstName lastName"`
	SortOrder model.SortOrder `json:"sortOrder" validate:"oneof=asc desc"`
}

func (q *UserQuery) SetDefaults() {
	q.Page = 1
	q.PageSize = 10
	q.SortBy = "createdAt"
	q.SortOrder = model.SortDesc
}

// List converts the query into a service call.
func (q UserQuery) List() ListQuery {
	f := model.UserFilter{Search: q.Search, IsActive: q.IsActive}
	if q.Role != "" {
		role := q.Role
		f.Role = &role
	}
	return ListQuery{
		Filter: f,
		Page: model.Page{
			Number:    q.Page,
			Size:      q.PageSize,
			SortBy:    q.SortBy,
			SortOrder: q.SortOrder,
		},
	}
}

const invalidRole = "Invalid user role"

var (
	createUserSchema = validate.New[CreateUserBody](validate.WithMessages(map[string]string{
		"email":             "Invalid email address",
		"password:required": "Password is required",
		"password:min":      "Password must be at least 8 characters",
		"password:password": "Password must include uppercase, lowercase, number and special character",
		"firstName":         "First name is required",
		"lastName":          "Last name is required",
		"role":              invalidRole,
	}))

	updateUserSchema = validate.New[UpdateUserBody](validate.WithMessages(map[string]string{
		"firstName": "First name is required",
		"lastName":  "Last name is required",
		"role":      invalidRole,
	}))

	userParamsSchema = validate.New[UserParams](validate.WithMessages(map[string]string{
		"id": "Invalid user ID format",
	}))

	userQuerySchema = validate.New[UserQuery](validate.WithMessages(map[string]string{
		"role": invalidRole,
	}))
)
