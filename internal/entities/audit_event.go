package entities

import (
	"fmt"
	"time"
)

// AuditEvent records a change made by a member to a skill's access settings
type AuditEvent struct {
	ID             string
	OrganizationID string
	ActorID        string // Member who made the change
	SkillID        string
	Description    string // Human readable message
	CreatedAt      time.Time
}

// Validate checks if the audit event is valid
func (e *AuditEvent) Validate() error {
	if e.ID == "" {
		return fmt.Errorf("audit event ID is required")
	}
	if e.OrganizationID == "" {
		return fmt.Errorf("organization ID is required")
	}
	if e.ActorID == "" {
		return fmt.Errorf("actor ID is required")
	}
	if e.Description == "" {
		return fmt.Errorf("description is required")
	}
	return nil
}
