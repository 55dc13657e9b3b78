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

// SkillRepository implements repositories.SkillRepository over database/sql
type SkillRepository struct {
	db *sql.DB
}

// NewSkillRepository creates a new SQL skill repository
func NewSkillRepository(db *sql.DB) repositories.SkillRepository {
	return &SkillRepository{db: db}
}

const selectSkill = `
	SELECT id, organization_id, name, restricted, created_at, updated_at
	FROM skills
`

// Create stores a new skill
func (r *SkillRepository) Create(ctx context.Context, skill *entities.Skill) error {
	if err := skill.Validate(); err != nil {
		return fmt.Errorf("invalid skill: %w", err)
	}
	now := time.Now().UTC()
	if skill.CreatedAt.IsZero() {
		skill.CreatedAt = now
	}
	skill.UpdatedAt = skill.CreatedAt

	query := `
		INSERT INTO skills (id, organization_id, name, restricted, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := conn(ctx, r.db).ExecContext(ctx, query,
		skill.ID, skill.OrganizationID, skill.Name, skill.Restricted, skill.CreatedAt, skill.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("skill %s: %w", skill.Name, repositories.ErrAlreadyExists)
		}
		return fmt.Errorf("failed to create skill: %w", err)
	}

	return nil
}

// Get retrieves a skill by ID
func (r *SkillRepository) Get(ctx context.Context, id string) (*entities.Skill, error) {
	row := conn(ctx, r.db).QueryRowContext(ctx, selectSkill+` WHERE id = $1`, id)
	skill, err := scanSkill(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("skill %s: %w", id, repositories.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get skill: %w", err)
	}

	return skill, nil
}

// GetByName retrieves a skill by its name within an organization
func (r *SkillRepository) GetByName(ctx context.Context, organizationID string, name string) (*entities.Skill, error) {
	row := conn(ctx, r.db).QueryRowContext(ctx, selectSkill+` WHERE organization_id = $1 AND name = $2`, organizationID, name)
	skill, err := scanSkill(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("skill %s: %w", name, repositories.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get skill: %w", err)
	}

	return skill, nil
}

// SetRestricted updates the restricted flag of a skill
func (r *SkillRepository) SetRestricted(ctx context.Context, id string, restricted bool) error {
	query := `
		UPDATE skills
		SET restricted = $1, updated_at = $2
		WHERE id = $3
	`
	result, err := conn(ctx, r.db).ExecContext(ctx, query, restricted, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to update skill: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("skill %s: %w", id, repositories.ErrNotFound)
	}

	return nil
}

func scanSkill(row *sql.Row) (*entities.Skill, error) {
	skill := &entities.Skill{}
	err := row.Scan(
		&skill.ID, &skill.OrganizationID, &skill.Name, &skill.Restricted, &skill.CreatedAt, &skill.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return skill, nil
}
