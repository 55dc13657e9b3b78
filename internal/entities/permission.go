package entities

import (
	"fmt"
	"time"
)

// Permission is a stored grant of a capability on a skill to a member
// Example: member alice holds Edit on skill deploy
type Permission struct {
	MemberID   string     // Subject of the grant
	SkillID    string     // Resource of the grant
	Capability Capability // Granted tier
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// String returns a string representation of the grant
// Format: skill:skill_id#capability@member:member_id
func (p *Permission) String() string {
	return fmt.Sprintf("skill:%s#%s@member:%s", p.SkillID, p.Capability, p.MemberID)
}

// Validate checks if the permission is valid
func (p *Permission) Validate() error {
	if p.MemberID == "" {
		return fmt.Errorf("member ID is required")
	}
	if p.SkillID == "" {
		return fmt.Errorf("skill ID is required")
	}
	if !p.Capability.Valid() {
		return fmt.Errorf("%w: %d", ErrUnknownCapability, int(p.Capability))
	}
	return nil
}
