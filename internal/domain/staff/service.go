package staff

import (
	"context"
	"net/mail"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
)

// InvalidMemberError indicates a staff field failed validation.
type InvalidMemberError struct {
	Field  string
	Reason string
}

func (e *InvalidMemberError) Error() string {
	return "invalid staff " + e.Field + ": " + e.Reason
}

// Service manages staff accounts.
type Service struct {
	members Repository
	hasher  *Hasher
	now     func() time.Time
}

// NewService creates a staff Service hashing keys with pepper.
func NewService(members Repository, pepper []byte) *Service {
	return &Service{members: members, hasher: NewHasher(pepper), now: time.Now}
}

// Create registers a member and returns the plaintext API key. The key is
// not stored and cannot be recovered later.
func (s *Service) Create(ctx context.Context, name, email string, role Role) (*Member, string, error) {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)
	if len(name) < 2 {
		return nil, "", &InvalidMemberError{Field: "name", Reason: "must be at least 2 characters"}
	}
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		return nil, "", &InvalidMemberError{Field: "email", Reason: "must be a valid email address"}
	}
	if _, err := ParseRole(string(role)); err != nil {
		return nil, "", &InvalidMemberError{Field: "role", Reason: err.Error()}
	}

	key, err := GenerateKey()
	if err != nil {
		return nil, "", errors.Wrap(err, "generate api key")
	}

	m := &Member{
		ID:        uuid.New().String(),
		Name:      name,
		Email:     strings.ToLower(email),
		Role:      role,
		KeyHash:   s.hasher.Hex(key),
		Active:    true,
		CreatedAt: s.now().UTC(),
	}
	if err := s.members.Create(ctx, m); err != nil {
		if errors.Is(err, ErrDuplicateEmail) {
			return nil, "", err
		}
		return nil, "", errors.Wrap(err, "create staff member")
	}
	return m, key, nil
}

// List returns every staff account.
func (s *Service) List(ctx context.Context) ([]Member, error) {
	members, err := s.members.List(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list staff")
	}
	return members, nil
}

// UpdateRole changes a member's role.
func (s *Service) UpdateRole(ctx context.Context, id string, role Role) error {
	if _, err := ParseRole(string(role)); err != nil {
		return &InvalidMemberError{Field: "role", Reason: err.Error()}
	}
	return s.members.UpdateRole(ctx, id, role)
}

// Deactivate revokes a member's key.
func (s *Service) Deactivate(ctx context.Context, id string) error {
	return s.members.Deactivate(ctx, id)
}

// Authenticate resolves an API key to its active member. Every failure is
// reported as ErrUnauthorized.
func (s *Service) Authenticate(ctx context.Context, key string) (*Member, error) {
	if key == "" {
		return nil, ErrUnauthorized
	}
	m, err := s.members.FindByHash(ctx, s.hasher.Hex(key))
	if err != nil || !m.Active {
		return nil, ErrUnauthorized
	}
	if !s.hasher.Equal(key, m.KeyHash) {
		return nil, ErrUnauthorized
	}
	return m, nil
}

// Authorize checks that m holds at least the need role.
func Authorize(m *Member, need Role) error {
	if m == nil {
		return ErrUnauthorized
	}
	if !m.Role.Allows(need) {
		return ErrForbidden
	}
	return nil
}
