package repositories

import (
	"context"

	"github.com/asakaida/skillperm/internal/entities"
)

// SkillRepository defines the interface for skill data access
type SkillRepository interface {
	// Create stores a new skill; the name must be unique within the organization
	Create(ctx context.Context, skill *entities.Skill) error

	// Get retrieves a skill by ID
	Get(ctx context.Context, id string) (*entities.Skill, error)

	// GetByName retrieves a skill by its name within an organization
	GetByName(ctx context.Context, organizationID string, name string) (*entities.Skill, error)

	// SetRestricted updates the restricted flag of a skill
	SetRestricted(ctx context.Context, id string, restricted bool) error
}
