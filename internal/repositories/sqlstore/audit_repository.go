package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/asakaida/skillperm/internal/entities"
	"github.com/asakaida/skillperm/internal/repositories"
	"github.com/google/uuid"
)

// AuditRepository implements repositories.AuditRepository over database/sql
type AuditRepository struct {
	db *sql.DB
}

// NewAuditRepository creates a new SQL audit repository
func NewAuditRepository(db *sql.DB) repositories.AuditRepository {
	return &AuditRepository{db: db}
}

// Write stores an audit event, assigning an ID and timestamp when missing
func (r *AuditRepository) Write(ctx context.Context, event *entities.AuditEvent) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	if err := event.Validate(); err != nil {
		return fmt.Errorf("invalid audit event: %w", err)
	}

	query := `
		INSERT INTO audit_events (id, organization_id, actor_id, skill_id, description, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := conn(ctx, r.db).ExecContext(ctx, query,
		event.ID, event.OrganizationID, event.ActorID, event.SkillID, event.Description, event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to write audit event: %w", err)
	}

	return nil
}

// ListBySkill retrieves the most recent events for a skill, newest first
func (r *AuditRepository) ListBySkill(ctx context.Context, skillID string, limit int) ([]*entities.AuditEvent, error) {
	query := `
		SELECT id, organization_id, actor_id, skill_id, description, created_at
		FROM audit_events
		WHERE skill_id = $1
		ORDER BY created_at DESC, id DESC
	`
	args := []interface{}{skillID}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := conn(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to read audit events: %w", err)
	}
	defer rows.Close()

	var events []*entities.AuditEvent
	for rows.Next() {
		event := &entities.AuditEvent{}
		if err := rows.Scan(
			&event.ID, &event.OrganizationID, &event.ActorID, &event.SkillID, &event.Description, &event.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan audit event: %w", err)
		}
		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating audit events: %w", err)
	}

	return events, nil
}
