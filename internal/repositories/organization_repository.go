package repositories

import (
	"context"

	"github.com/asakaida/skillperm/internal/entities"
)

// OrganizationRepository defines the interface for organization data access
type OrganizationRepository interface {
	// Create stores a new organization
	Create(ctx context.Context, org *entities.Organization) error

	// Get retrieves an organization by ID
	Get(ctx context.Context, id string) (*entities.Organization, error)
}
