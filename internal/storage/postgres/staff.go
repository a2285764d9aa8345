package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/combo-store/internal/domain/staff"
)

const (
	staffColumns = `id, name, email, role, key_hash, active, created_at`

	insertStaffSQL = `INSERT INTO staff (` + staffColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7)`

	listStaffSQL = `SELECT ` + staffColumns + ` FROM staff ORDER BY created_at, id`

	getStaffByHashSQL = `SELECT ` + staffColumns + ` FROM staff WHERE key_hash = $1 AND active = TRUE`

	updateStaffRoleSQL = `UPDATE staff SET role = $2 WHERE id = $1`

	deactivateStaffSQL = `UPDATE staff SET active = FALSE WHERE id = $1`
)

const uniqueViolation = "23505"

var _ staff.Repository = (*StaffRepository)(nil)

// StaffRepository provides staff accounts backed by PostgreSQL.
type StaffRepository struct {
	pool *pgxpool.Pool
}

// NewStaffRepository returns a StaffRepository that uses the given pool.
func NewStaffRepository(pool *pgxpool.Pool) *StaffRepository {
	return &StaffRepository{pool: pool}
}

// Create inserts a member. A taken email yields staff.ErrDuplicateEmail.
func (r *StaffRepository) Create(ctx context.Context, m *staff.Member) error {
	_, err := r.pool.Exec(ctx, insertStaffSQL,
		m.ID, m.Name, m.Email, m.Role, m.KeyHash, m.Active, m.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation && pgErr.ConstraintName == "staff_email_key" {
			return staff.ErrDuplicateEmail
		}
		return fmt.Errorf("creating staff member %q: %w", m.Email, err)
	}
	return nil
}

// List returns every member, oldest first.
func (r *StaffRepository) List(ctx context.Context) ([]staff.Member, error) {
	rows, err := r.pool.Query(ctx, listStaffSQL)
	if err != nil {
		return nil, fmt.Errorf("listing staff: %w", err)
	}
	return pgx.CollectRows(rows, scanMember)
}

// FindByHash looks up an active member by the HMAC-SHA256 hash of their key.
func (r *StaffRepository) FindByHash(ctx context.Context, hash string) (*staff.Member, error) {
	rows, err := r.pool.Query(ctx, getStaffByHashSQL, hash)
	if err != nil {
		return nil, fmt.Errorf("finding staff by key hash: %w", err)
	}
	m, err := pgx.CollectExactlyOneRow(rows, scanMember)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, staff.ErrNotFound
		}
		return nil, fmt.Errorf("finding staff by key hash: %w", err)
	}
	return &m, nil
}

// UpdateRole changes a member's role.
func (r *StaffRepository) UpdateRole(ctx context.Context, id string, role staff.Role) error {
	return r.exec(ctx, updateStaffRoleSQL, id, role)
}

// Deactivate marks a member inactive so their key stops working.
func (r *StaffRepository) Deactivate(ctx context.Context, id string) error {
	return r.exec(ctx, deactivateStaffSQL, id)
}

func (r *StaffRepository) exec(ctx context.Context, sql, id string, args ...any) error {
	tag, err := r.pool.Exec(ctx, sql, append([]any{id}, args...)...)
	if err != nil {
		return fmt.Errorf("updating staff member %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return staff.ErrNotFound
	}
	return nil
}

func scanMember(row pgx.CollectableRow) (staff.Member, error) {
	var m staff.Member
	err := row.Scan(&m.ID, &m.Name, &m.Email, &m.Role, &m.KeyHash, &m.Active, &m.CreatedAt)
	return m, err
}
