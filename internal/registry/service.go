package registry

import (
	"context"
	"sync"

	"github.com/veritrace/veritrace-backend/pkg/enums"
	pkgerrors "github.com/veritrace/veritrace-backend/pkg/errors"
	"github.com/veritrace/veritrace-backend/pkg/types"
)

// Service holds the role membership tables gating every ledger mutation.
// Membership is add-only; there is no revocation.
type Service interface {
	Authorize(ctx context.Context, caller types.Principal, role enums.Role, principal types.Principal) error
	IsAuthorized(ctx context.Context, role enums.Role, principal types.Principal) bool
	Grants(ctx context.Context, principal types.Principal) []enums.Role
	Owner() types.Principal
}

type service struct {
	mu      sync.RWMutex
	owner   types.Principal
	members map[enums.Role]map[types.Principal]struct{}
}

// NewService constructs the registry around the single owner principal.
// The owner is implicitly authorized as a manufacturer.
func NewService(owner types.Principal) (Service, error) {
	if owner.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "owner principal is required")
	}

	members := make(map[enums.Role]map[types.Principal]struct{}, len(enums.Roles()))
	for _, role := range enums.Roles() {
		members[role] = make(map[types.Principal]struct{})
	}
	members[enums.RoleManufacturer][owner] = struct{}{}

	return &service{
		owner:   owner,
		members: members,
	}, nil
}

func (s *service) Authorize(_ context.Context, caller types.Principal, role enums.Role, principal types.Principal) error {
	if caller != s.owner {
		return pkgerrors.New(pkgerrors.CodeForbidden, "only the owner may grant roles")
	}
	if !role.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "unknown role").
			WithDetails(map[string]string{"role": role.String()})
	}
	if principal.IsZero() {
		return pkgerrors.New(pkgerrors.CodeValidation, "principal is required")
	}

	// Re-granting an existing membership is a no-op success.
	s.mu.Lock()
	defer s.mu.Unlock()
	s.members[role][principal] = struct{}{}
	return nil
}

func (s *service) IsAuthorized(_ context.Context, role enums.Role, principal types.Principal) bool {
	if !role.IsValid() || principal.IsZero() {
		return false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.members[role][principal]
	return ok
}

func (s *service) Grants(_ context.Context, principal types.Principal) []enums.Role {
	if principal.IsZero() {
		return nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var grants []enums.Role
	for _, role := range enums.Roles() {
		if _, ok := s.members[role][principal]; ok {
			grants = append(grants, role)
		}
	}
	return grants
}

func (s *service) Owner() types.Principal {
	return s.owner
}
