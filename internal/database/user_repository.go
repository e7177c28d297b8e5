package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"

	"github.com/intisor/AnnounceHub/internal/domain"
)

// uniqueViolation is the PostgreSQL error code for unique constraint violations.
const uniqueViolation = "23505"

// userColumns must match the Scan order in scanUser.
const userColumns = `id, username, password_hash, roles, joined`

// UserRepo implements domain.UserRepository backed by PostgreSQL.
type UserRepo struct {
	pool  *pgxpool.Pool
	clock clockwork.Clock
}

// NewUserRepo creates a UserRepo from the shared pool.
func NewUserRepo(pool *pgxpool.Pool, clock clockwork.Clock) *UserRepo {
	return &UserRepo{pool: pool, clock: clock}
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var user domain.User
	err := row.Scan(&user.ID, &user.Username, &user.PasswordHash, &user.Roles, &user.Joined)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Create inserts a new role-less user. Returns domain.ErrUsernameTaken when
// the username already exists.
func (r *UserRepo) Create(ctx context.Context, username, passwordHash string) (*domain.User, error) {
	user := &domain.User{
		ID:           uuid.New(),
		Username:     username,
		PasswordHash: passwordHash,
		Roles:        []string{},
		Joined:       r.clock.Now().UTC(),
	}

	query := `INSERT INTO users (id, username, password_hash, roles, joined) VALUES ($1, $2, $3, $4, $5)`
	_, err := r.pool.Exec(ctx, query, user.ID, user.Username, user.PasswordHash, user.Roles, user.Joined)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, domain.ErrUsernameTaken
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return user, nil
}

// FindByUsername returns domain.ErrUserNotFound when no such user exists.
func (r *UserRepo) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username = $1`
	user, err := scanUser(r.pool.QueryRow(ctx, query, username))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return user, nil
}

// EnsureAdmin creates the seed admin account if absent and guarantees it
// holds the Admin role. Idempotent across restarts; an existing user's
// password is left untouched.
func (r *UserRepo) EnsureAdmin(ctx context.Context, username, passwordHash string) error {
	insert := `INSERT INTO users (id, username, password_hash, roles, joined)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (username) DO NOTHING`
	_, err := r.pool.Exec(ctx, insert, uuid.New(), username, passwordHash, []string{domain.RoleAdmin}, r.clock.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to seed admin user: %w", err)
	}

	grant := `UPDATE users SET roles = array_append(roles, $2)
		WHERE username = $1 AND NOT ($2 = ANY(roles))`
	if _, err := r.pool.Exec(ctx, grant, username, domain.RoleAdmin); err != nil {
		return fmt.Errorf("failed to grant admin role: %w", err)
	}

	return nil
}

var _ domain.UserRepository = (*UserRepo)(nil)
