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

// MemberRepository implements repositories.MemberRepository over database/sql
type MemberRepository struct {
	db *sql.DB
}

// NewMemberRepository creates a new SQL member repository
func NewMemberRepository(db *sql.DB) repositories.MemberRepository {
	return &MemberRepository{db: db}
}

// Create stores a new member
func (r *MemberRepository) Create(ctx context.Context, member *entities.Member) error {
	if err := member.Validate(); err != nil {
		return fmt.Errorf("invalid member: %w", err)
	}
	if member.CreatedAt.IsZero() {
		member.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO members (id, organization_id, display_name, created_at)
		VALUES ($1, $2, $3, $4)
	`
	_, err := conn(ctx, r.db).ExecContext(ctx, query, member.ID, member.OrganizationID, member.DisplayName, member.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("member %s: %w", member.ID, repositories.ErrAlreadyExists)
		}
		return fmt.Errorf("failed to create member: %w", err)
	}

	return nil
}

// Get retrieves a member by ID
func (r *MemberRepository) Get(ctx context.Context, id string) (*entities.Member, error) {
	query := `
		SELECT id, organization_id, display_name, created_at
		FROM members
		WHERE id = $1
	`
	member := &entities.Member{}
	err := conn(ctx, r.db).QueryRowContext(ctx, query, id).Scan(
		&member.ID, &member.OrganizationID, &member.DisplayName, &member.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("member %s: %w", id, repositories.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get member: %w", err)
	}

	return member, nil
}

// ListByOrganization retrieves all members of an organization ordered by display name
func (r *MemberRepository) ListByOrganization(ctx context.Context, organizationID string) ([]*entities.Member, error) {
	query := `
		SELECT id, organization_id, display_name, created_at
		FROM members
		WHERE organization_id = $1
		ORDER BY display_name, id
	`
	rows, err := conn(ctx, r.db).QueryContext(ctx, query, organizationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	defer rows.Close()

	var members []*entities.Member
	for rows.Next() {
		member := &entities.Member{}
		if err := rows.Scan(&member.ID, &member.OrganizationID, &member.DisplayName, &member.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		members = append(members, member)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating members: %w", err)
	}

	return members, nil
}
