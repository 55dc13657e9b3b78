package repositories

import (
	"context"

	"github.com/asakaida/skillperm/internal/entities"
)

// MemberRepository defines the interface for member data access
type MemberRepository interface {
	// Create stores a new member
	Create(ctx context.Context, member *entities.Member) error

	// Get retrieves a member by ID
	Get(ctx context.Context, id string) (*entities.Member, error)

	// ListByOrganization retrieves all members of an organization ordered by display name
	ListByOrganization(ctx context.Context, organizationID string) ([]*entities.Member, error)
}
