package repositories

import (
	"context"

	"github.com/asakaida/skillperm/internal/entities"
)

// AuditRepository defines the interface for audit event storage
type AuditRepository interface {
	// Write stores an audit event
	Write(ctx context.Context, event *entities.AuditEvent) error

	// ListBySkill retrieves the most recent events for a skill, newest first.
	// A limit of zero or less returns every event.
	ListBySkill(ctx context.Context, skillID string, limit int) ([]*entities.AuditEvent, error)
}
