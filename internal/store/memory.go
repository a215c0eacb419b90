package store

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/iliamunaev/users-api/internal/model"
)

// Memory is a concurrency-safe in-memory UserStore. Users are kept in a map
// keyed by ID with a separate slice preserving insertion order.
type Memory struct {
	mu      sync.RWMutex
	users   map[string]*model.User
	byEmail map[string]string
	order   []string
	now     func() time.Time
}

// NewMemory returns an empty store.
func NewMemory() *Memory {
	return &Memory{
		users:   make(map[string]*model.User),
		byEmail: make(map[string]string),
		order:   make([]string, 0),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (m *Memory) FindUnique(ctx context.Context, by Unique) (model.User, bool, error) {
	if err := ctx.Err(); err != nil {
		return model.User{}, false, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	id := by.ID
	if id == "" && by.Email != "" {
		id = m.byEmail[strings.ToLower(by.Email)]
	}
	u, ok := m.users[id]
	if !ok {
		return model.User{}, false, nil
	}
	return *u, true, nil
}

func (m *Memory) Create(ctx context.Context, u model.User) (model.User, error) {
	if err := ctx.Err(); err != nil {
		return model.User{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if _, exists := m.users[u.ID]; exists {
		return model.User{}, uniqueViolation("users_pkey", "id")
	}
	key := strings.ToLower(u.Email)
	if _, exists := m.byEmail[key]; exists {
		return model.User{}, uniqueViolation("users_email_key", "email")
	}

	now := m.now()
	u.CreatedAt, u.UpdatedAt = now, now
	m.users[u.ID] = &u
	m.byEmail[key] = u.ID
	m.order = append(m.order, u.ID)
	return u, nil
}

func (m *Memory) Update(ctx context.Context, id string, patch model.UserPatch) (model.User, error) {
	if err := ctx.Err(); err != nil {
		return model.User{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok {
		return model.User{}, &Error{
			Code: CodeNoRows,
			Meta: map[string]any{MetaTable: "users"},
			Err:  errors.New("no rows in result set"),
		}
	}
	patch.Apply(u)
	u.UpdatedAt = m.now()
	return *u, nil
}

func (m *Memory) Count(ctx context.Context, f model.UserFilter) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	n := 0
	for _, id := range m.order {
		if matches(m.users[id], f) {
			n++
		}
	}
	return n, nil
}

func (m *Memory) FindMany(ctx context.Context, f model.UserFilter, p model.Page) ([]model.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	out := make([]model.User, 0)
	for _, id := range m.order {
		if u := m.users[id]; matches(u, f) {
			out = append(out, *u)
		}
	}
	m.mu.RUnlock()

	less := lessFunc(p.SortBy)
	sort.SliceStable(out, func(i, j int) bool {
		if p.SortOrder == model.SortAsc {
			return less(out[i], out[j])
		}
		return less(out[j], out[i])
	})

	start := p.Offset()
	if start < 0 || start >= len(out) {
		return []model.User{}, nil
	}
	end := len(out)
	if p.Size > 0 && p.Size < end-start {
		end = start + p.Size
	}
	return out[start:end], nil
}

// Close is a no-op.
func (m *Memory) Close() error { return nil }

func uniqueViolation(constraint string, cols ...string) *Error {
	return &Error{
		Code: CodeUniqueViolation,
		Meta: map[string]any{
			MetaTarget:     cols,
			MetaConstraint: constraint,
			MetaTable:      "users",
		},
		Err: errors.New("duplicate key value violates unique constraint \"" + constraint + "\""),
	}
}

func matches(u *model.User, f model.UserFilter) bool {
	if f.Role != nil && u.Role != *f.Role {
		return false
	}
	if f.IsActive != nil && u.IsActive != *f.IsActive {
		return false
	}
	if f.Search != "" {
		q := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(u.FirstName), q) &&
			!strings.Contains(strings.ToLower(u.LastName), q) &&
			!strings.Contains(strings.ToLower(u.Email), q) {
			return false
		}
	}
	return true
}

func lessFunc(sortBy string) func(a, b model.User) bool {
	switch sortBy {
	case "updatedAt":
		return func(a, b model.User) bool { return a.UpdatedAt.Before(b.UpdatedAt) }
	case "email":
		return func(a, b model.User) bool { return a.Email < b.Email }
	case "firstName":
		return func(a, b model.User) bool { return a.FirstName < b.FirstName }
	case "lastName":
		return func(a, b model.User) bool { return a.LastName < b.LastName }
	default:
		return func(a, b model.User) bool { return a.CreatedAt.Before(b.CreatedAt) }
	}
}
