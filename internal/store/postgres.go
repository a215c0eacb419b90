package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/rs/zerolog"

	"github.com/iliamunaev/users-api/internal/model"
)

// Schema creates the users table. It is safe to run more than once.
// Emails are unique regardless of case, as in the memory store.
const Schema = `
CREATE TABLE IF NOT EXISTS users (
    id             UUID PRIMARY KEY,
    email          VARCHAR(320) NOT NULL,
    password       TEXT NOT NULL,
    first_name     VARCHAR(200) NOT NULL,
    last_name      VARCHAR(200) NOT NULL,
    role           VARCHAR(20) NOT NULL DEFAULT 'USER',
    is_active      BOOLEAN NOT NULL DEFAULT TRUE,
    last_login_at  TIMESTAMPTZ,
    refresh_token  TEXT,
    token_expiry   TIMESTAMPTZ,
    created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE UNIQUE INDEX IF NOT EXISTS users_email_key ON users (lower(email));
`

const userColumns = `id, email, password, first_name, last_name, role, is_active,
last_login_at, refresh_token, token_expiry, created_at, updated_at`

// queryTimeout bounds a single statement.
const queryTimeout = 3 * time.Second

// constraintTargets names the API fields behind unique indexes whose
// violation detail shows an expression instead of a column.
var constraintTargets = map[string][]string{
	"users_email_key": {"email"},
}

// sortColumns whitelists the sortable API fields.
var sortColumns = map[string]string{
	"createdAt": "created_at",
	"updatedAt": "updated_at",
	"email":     "email",
	"firstName": "first_name",
	"lastName":  "last_name",
}

// Postgres is a UserStore backed by PostgreSQL through the pgx database/sql driver.
type Postgres struct {
	db *sql.DB
}

// NewPostgres wraps an open database handle.
func NewPostgres(db *sql.DB) *Postgres {
	if db == nil {
		panic("store.NewPostgres: nil db")
	}
	return &Postgres{db: db}
}

// OpenPostgres opens a pooled connection, verifies it and applies Schema.
func OpenPostgres(ctx context.Context, dsn string, maxConns int) (*Postgres, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if maxConns > 0 {
		db.SetMaxOpenConns(maxConns)
		db.SetMaxIdleConns(maxConns)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := db.ExecContext(pingCtx, Schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", translate(err))
	}
	return NewPostgres(db), nil
}

func (p *Postgres) FindUnique(ctx context.Context, by Unique) (model.User, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	q, arg := uniqueQuery(by)
	u, err := scanUser(p.db.QueryRowContext(ctx, q, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, false, nil
	}
	if err != nil {
		return model.User{}, false, p.fail(ctx, "users.findUnique", err)
	}
	return u, true, nil
}

func (p *Postgres) Create(ctx context.Context, u model.User) (model.User, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	const q = `INSERT INTO users (id, email, password, first_name, last_name, role, is_active)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING ` + userColumns

	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	out, err := scanUser(p.db.QueryRowContext(ctx, q,
		u.ID, u.Email, u.Password, u.FirstName, u.LastName, string(u.Role), u.IsActive))
	if err != nil {
		return model.User{}, p.fail(ctx, "users.create", err)
	}
	return out, nil
}

func (p *Postgres) Update(ctx context.Context, id string, patch model.UserPatch) (model.User, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	sets := []string{"updated_at = NOW()"}
	args := []any{id}
	add := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if patch.FirstName != nil {
		add("first_name", *patch.FirstName)
	}
	if patch.LastName != nil {
		add("last_name", *patch.LastName)
	}
	if patch.Role != nil {
		add("role", string(*patch.Role))
	}
	if patch.IsActive != nil {
		add("is_active", *patch.IsActive)
	}

	q := `UPDATE users SET ` + strings.Join(sets, ", ") + ` WHERE id = $1 RETURNING ` + userColumns
	out, err := scanUser(p.db.QueryRowContext(ctx, q, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, &Error{Code: CodeNoRows, Meta: map[string]any{MetaTable: "users"}, Err: err}
	}
	if err != nil {
		return model.User{}, p.fail(ctx, "users.update", err)
	}
	return out, nil
}

func (p *Postgres) Count(ctx context.Context, f model.UserFilter) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	where, args := whereClause(f)
	var n int
	if err := p.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`+where, args...).Scan(&n); err != nil {
		return 0, p.fail(ctx, "users.count", err)
	}
	return n, nil
}

func (p *Postgres) FindMany(ctx context.Context, f model.UserFilter, pg model.Page) ([]model.User, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	where, args := whereClause(f)
	col, ok := sortColumns[pg.SortBy]
	if !ok {
		col = "created_at"
	}
	dir := "DESC"
	if pg.SortOrder == model.SortAsc {
		dir = "ASC"
	}
	args = append(args, pg.Size, pg.Offset())
	q := fmt.Sprintf(`SELECT %s FROM users%s ORDER BY %s %s LIMIT $%d OFFSET $%d`,
		userColumns, where, col, dir, len(args)-1, len(args))

	rows, err := p.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, p.fail(ctx, "users.findMany", err)
	}
	defer rows.Close()

	out := make([]model.User, 0, pg.Size)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, p.fail(ctx, "users.findMany", err)
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, p.fail(ctx, "users.findMany", err)
	}
	return out, nil
}

// Close releases the connection pool.
func (p *Postgres) Close() error { return p.db.Close() }

// fail logs the failed statement and translates driver errors.
func (p *Postgres) fail(ctx context.Context, op string, err error) error {
	err = translate(err)
	zerolog.Ctx(ctx).Debug().Err(err).Str("operation", op).Msg("query failed")
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (model.User, error) {
	var (
		u            model.User
		role         string
		lastLoginAt  sql.NullTime
		refreshToken sql.NullString
		tokenExpiry  sql.NullTime
	)
	if err := row.Scan(&u.ID, &u.Email, &u.Password, &u.FirstName, &u.LastName, &role, &u.IsActive,
		&lastLoginAt, &refreshToken, &tokenExpiry, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return model.User{}, err
	}
	u.Role = model.Role(role)
	if lastLoginAt.Valid {
		u.LastLoginAt = &lastLoginAt.Time
	}
	if refreshToken.Valid {
		u.RefreshToken = &refreshToken.String
	}
	if tokenExpiry.Valid {
		u.TokenExpiry = &tokenExpiry.Time
	}
	return u, nil
}

func uniqueQuery(by Unique) (string, any) {
	if by.ID != "" {
		return `SELECT ` + userColumns + ` FROM users WHERE id = $1 LIMIT 1`, by.ID
	}
	return `SELECT ` + userColumns + ` FROM users WHERE lower(email) = lower($1) LIMIT 1`, by.Email
}

func whereClause(f model.UserFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if f.Role != nil {
		args = append(args, string(*f.Role))
		conds = append(conds, fmt.Sprintf("role = $%d", len(args)))
	}
	if f.IsActive != nil {
		args = append(args, *f.IsActive)
		conds = append(conds, fmt.Sprintf("is_active = $%d", len(args)))
	}
	if f.Search != "" {
		args = append(args, "%"+f.Search+"%")
		n := len(args)
		conds = append(conds, fmt.Sprintf("(first_name ILIKE $%d OR last_name ILIKE $%d OR email ILIKE $%d)", n, n, n))
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// keyDetail matches the column list in messages like
// `Key (email)=(a@b.c) already exists.`
var keyDetail = regexp.MustCompile(`^Key \(([^)]+)\)=`)

// translate converts a driver error into *Error. Errors that did not come
// from the server are returned unchanged.
func translate(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	meta := map[string]any{}
	if pgErr.ConstraintName != "" {
		meta[MetaConstraint] = pgErr.ConstraintName
	}
	if pgErr.TableName != "" {
		meta[MetaTable] = pgErr.TableName
	}
	if cols := targetColumns(pgErr); len(cols) > 0 {
		meta[MetaTarget] = cols
	}
	return &Error{Code: pgErr.Code, Meta: meta, Err: err}
}

func targetColumns(pgErr *pgconn.PgError) []string {
	if pgErr.ColumnName != "" {
		return []string{pgErr.ColumnName}
	}
	if cols, ok := constraintTargets[pgErr.ConstraintName]; ok {
		return cols
	}
	m := keyDetail.FindStringSubmatch(pgErr.Detail)
	if m == nil {
		return nil
	}
	parts := strings.Split(m[1], ",")
	cols := make([]string, 0, len(parts))
	for _, p := range parts {
		cols = append(cols, strings.TrimSpace(p))
	}
	return cols
}
