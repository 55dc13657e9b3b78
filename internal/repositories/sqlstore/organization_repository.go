package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/asakaida/skillperm/internal/entities"
	"github.com/asakaida/skillperm/internal/repositories"
)

// OrganizationRepository implements repositories.OrganizationRepository over database/sql
type OrganizationRepository struct {
	db *sql.DB
}

// NewOrganizationRepository creates a new SQL organization repository
func NewOrganizationRepository(db *sql.DB) repositories.OrganizationRepository {
	return &OrganizationRepository{db: db}
}

// Create stores a new organization
func (r *OrganizationRepository) Create(ctx context.Context, org *entities.Organization) error {
	if err := org.Validate(); err != nil {
		return fmt.Errorf("invalid organization: %w", err)
	}
	if org.CreatedAt.IsZero() {
		org.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO organizations (id, name, platform_id, created_at)
		VALUES ($1, $2, $3, $4)
	`
	_, err := conn(ctx, r.db).ExecContext(ctx, query, org.ID, org.Name, org.PlatformID, org.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("organization %s: %w", org.ID, repositories.ErrAlreadyExists)
		}
		return fmt.Errorf("failed to create organization: %w", err)
	}

	return nil
}

// Get retrieves an organization by ID
func (r *OrganizationRepository) Get(ctx context.Context, id string) (*entities.Organization, error) {
	query := `
		SELECT id, name, platform_id, created_at
		FROM organizations
		WHERE id = $1
	`
	org := &entities.Organization{}
	err := conn(ctx, r.db).QueryRowContext(ctx, query, id).Scan(&org.ID, &org.Name, &org.PlatformID, &org.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("organization %s: %w", id, repositories.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get organization: %w", err)
	}

	return org, nil
}
