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

// PermissionRepository implements repositories.PermissionRepository over database/sql.
// Capabilities are stored by canonical name.
type PermissionRepository struct {
	db *sql.DB
}

// NewPermissionRepository creates a new SQL permission repository
func NewPermissionRepository(db *sql.DB) repositories.PermissionRepository {
	return &PermissionRepository{db: db}
}

// GetCapability returns the granted capability, or None when no grant exists
func (r *PermissionRepository) GetCapability(ctx context.Context, memberID string, skillID string) (entities.Capability, error) {
	query := `
		SELECT capability
		FROM permissions
		WHERE member_id = $1 AND skill_id = $2
	`
	var name string
	err := conn(ctx, r.db).QueryRowContext(ctx, query, memberID, skillID).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return entities.CapabilityNone, nil
	}
	if err != nil {
		return entities.CapabilityNone, fmt.Errorf("failed to get permission: %w", err)
	}

	capability, err := entities.ParseCapability(name)
	if err != nil {
		return entities.CapabilityNone, fmt.Errorf("failed to decode permission: %w", err)
	}

	return capability, nil
}

// SetCapability creates or replaces a grant; CapabilityNone removes it
func (r *PermissionRepository) SetCapability(ctx context.Context, perm *entities.Permission) error {
	if err := perm.Validate(); err != nil {
		return fmt.Errorf("invalid permission: %w", err)
	}

	if perm.Capability == entities.CapabilityNone {
		return r.Delete(ctx, perm.MemberID, perm.SkillID)
	}

	query := `
		INSERT INTO permissions (member_id, skill_id, capability, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (member_id, skill_id)
		DO UPDATE SET capability = EXCLUDED.capability, updated_at = EXCLUDED.updated_at
	`
	now := time.Now().UTC()
	_, err := conn(ctx, r.db).ExecContext(ctx, query, perm.MemberID, perm.SkillID, perm.Capability.String(), now, now)
	if err != nil {
		return fmt.Errorf("failed to write permission: %w", err)
	}

	return nil
}

// Delete removes the grant for a member on a skill; a missing grant is not an error
func (r *PermissionRepository) Delete(ctx context.Context, memberID string, skillID string) error {
	query := `
		DELETE FROM permissions
		WHERE member_id = $1 AND skill_id = $2
	`
	_, err := conn(ctx, r.db).ExecContext(ctx, query, memberID, skillID)
	if err != nil {
		return fmt.Errorf("failed to delete permission: %w", err)
	}

	return nil
}

// ListBySkill retrieves all grants on a skill ordered by member
func (r *PermissionRepository) ListBySkill(ctx context.Context, skillID string) ([]*entities.Permission, error) {
	query := `
		SELECT member_id, skill_id, capability, created_at, updated_at
		FROM permissions
		WHERE skill_id = $1
		ORDER BY member_id
	`
	return r.list(ctx, query, skillID)
}

// ListByMember retrieves all grants held by a member ordered by skill
func (r *PermissionRepository) ListByMember(ctx context.Context, memberID string) ([]*entities.Permission, error) {
	query := `
		SELECT member_id, skill_id, capability, created_at, updated_at
		FROM permissions
		WHERE member_id = $1
		ORDER BY skill_id
	`
	return r.list(ctx, query, memberID)
}

func (r *PermissionRepository) list(ctx context.Context, query string, arg string) ([]*entities.Permission, error) {
	rows, err := conn(ctx, r.db).QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to read permissions: %w", err)
	}
	defer rows.Close()

	var permissions []*entities.Permission
	for rows.Next() {
		var name string
		perm := &entities.Permission{}
		if err := rows.Scan(&perm.MemberID, &perm.SkillID, &name, &perm.CreatedAt, &perm.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan permission: %w", err)
		}
		if perm.Capability, err = entities.ParseCapability(name); err != nil {
			return nil, fmt.Errorf("failed to decode permission: %w", err)
		}
		permissions = append(permissions, perm)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating permissions: %w", err)
	}

	return permissions, nil
}
