package repositories

import (
	"context"

	"github.com/asakaida/skillperm/internal/entities"
)

// PermissionRepository defines the interface for permission grant data access
type PermissionRepository interface {
	// GetCapability returns the capability granted to a member on a skill.
	// A missing grant is reported as CapabilityNone, not as an error.
	GetCapability(ctx context.Context, memberID string, skillID string) (entities.Capability, error)

	// SetCapability creates or replaces the grant. Setting CapabilityNone removes it.
	SetCapability(ctx context.Context, perm *entities.Permission) error

	// Delete removes the grant for a member on a skill
	Delete(ctx context.Context, memberID string, skillID string) error

	// ListBySkill retrieves all grants on a skill
	ListBySkill(ctx context.Context, skillID string) ([]*entities.Permission, error)

	// ListByMember retrieves all grants held by a member
	ListByMember(ctx context.Context, memberID string) ([]*entities.Permission, error)
}
