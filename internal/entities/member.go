package entities

import (
	"fmt"
	"time"
)

// Member is a user of an organization and the subject of permission grants
type Member struct {
	ID             string // Member ID
	OrganizationID string // Owning organization
	DisplayName    string // Name shown in audit messages (e.g., "alice")
	CreatedAt      time.Time
}

// Validate checks if the member is valid
func (m *Member) Validate() error {
	if m.ID == "" {
		return fmt.Errorf("member ID is required")
	}
	if m.OrganizationID == "" {
		return fmt.Errorf("organization ID is required")
	}
	if m.DisplayName == "" {
		return fmt.Errorf("display name is required")
	}
	return nil
}
