// Package staff manages console users and authenticates them by API key.
package staff

import (
	"context"
	"time"

	"github.com/go-faster/errors"
)

var (
	// ErrNotFound is returned when a staff member does not exist.
	ErrNotFound = errors.New("staff member not found")
	// ErrDuplicateEmail is returned when creating a member with an email
	// already in use.
	ErrDuplicateEmail = errors.New("staff email already registered")
	// ErrUnauthorized is returned for a missing, unknown or inactive API key.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden is returned when an authenticated member lacks the role
	// an operation needs.
	ErrForbidden = errors.New("forbidden")
)

// Role grants console permissions.
type Role string

const (
	// RoleAdmin can do everything, including managing staff.
	RoleAdmin Role = "admin"
	// RoleStaff can manage orders and products and run the POS.
	RoleStaff Role = "staff"
	// RoleUser has no console access.
	RoleUser Role = "user"
)

var roleRank = map[Role]int{RoleUser: 0, RoleStaff: 1, RoleAdmin: 2}

// ParseRole validates s against the known roles.
func ParseRole(s string) (Role, error) {
	if _, ok := roleRank[Role(s)]; !ok {
		return "", errors.Errorf("unknown role %q", s)
	}
	return Role(s), nil
}

// Allows reports whether r grants at least the permissions of need.
func (r Role) Allows(need Role) bool {
	have, ok := roleRank[r]
	if !ok {
		return false
	}
	return have >= roleRank[need]
}

// Member is a staff account.
type Member struct {
	ID        string
	Name      string
	Email     string
	Role      Role
	KeyHash   string
	Active    bool
	CreatedAt time.Time
}

// Repository defines persistence operations for staff accounts.
type Repository interface {
	Create(ctx context.Context, m *Member) error
	List(ctx context.Context) ([]Member, error)
	// FindByHash looks up an active member by the HMAC-SHA256 hash of their key.
	FindByHash(ctx context.Context, hash string) (*Member, error)
	UpdateRole(ctx context.Context, id string, role Role) error
	Deactivate(ctx context.Context, id string) error
}

type memberKey struct{}

// WithMember returns a context carrying the authenticated member.
func WithMember(ctx context.Context, m *Member) context.Context {
	return context.WithValue(ctx, memberKey{}, m)
}

// FromContext returns the authenticated member, if any.
func FromContext(ctx context.Context) (*Member, bool) {
	m, ok := ctx.Value(memberKey{}).(*Member)
	return m, ok
}
