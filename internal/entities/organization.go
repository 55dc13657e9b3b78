package entities

import (
	"fmt"
	"time"
)

// Organization owns members and skills
type Organization struct {
	ID         string // Organization ID
	Name       string // Display name (e.g., "Acme Corp")
	PlatformID string // Chat platform workspace ID (e.g., "T0123ABCD")
	CreatedAt  time.Time
}

// Validate checks if the organization is valid
func (o *Organization) Validate() error {
	if o.ID == "" {
		return fmt.Errorf("organization ID is required")
	}
	if o.Name == "" {
		return fmt.Errorf("organization name is required")
	}
	if o.PlatformID == "" {
		return fmt.Errorf("platform ID is required")
	}
	return nil
}
