package authorization

import (
	"context"
	"fmt"

	"github.com/asakaida/skillperm/internal/entities"
)

// GrantLookup returns the stored capability of a member on a skill,
// CapabilityNone when there is no grant
type GrantLookup interface {
	GetCapability(ctx context.Context, memberID string, skillID string) (entities.Capability, error)
}

// Decision holds every answer for one member and skill
type Decision struct {
	Capability    entities.Capability // Stored grant, None for other organizations
	CanRun        bool
	CanEdit       bool
	CanAdminister bool
}

// Decide is the capability rule itself, given the grant already looked up.
// Grants are ignored when member and skill belong to different organizations.
func Decide(member *entities.Member, skill *entities.Skill, grant entities.Capability) Decision {
	if skill == nil {
		return Decision{}
	}

	sameOrg := skill.SameOrganization(member)
	if !sameOrg {
		grant = entities.CapabilityNone
	}

	return Decision{
		Capability:    grant,
		CanRun:        !skill.Restricted || grant.Includes(entities.CapabilityUse),
		CanEdit:       sameOrg && (!skill.Restricted || grant.Includes(entities.CapabilityEdit)),
		CanAdminister: sameOrg && grant.Includes(entities.CapabilityAdmin),
	}
}

// ResolverInterface defines the interface for capability checks
type ResolverInterface interface {
	CanRun(ctx context.Context, member *entities.Member, skill *entities.Skill) (bool, error)
	CanEdit(ctx context.Context, member *entities.Member, skill *entities.Skill) (bool, error)
	CanAdminister(ctx context.Context, member *entities.Member, skill *entities.Skill) (bool, error)
	Authorize(ctx context.Context, member *entities.Member, skill *entities.Skill, action Action) (bool, error)
	Capabilities(ctx context.Context, member *entities.Member, skill *entities.Skill) (Decision, error)
}

// Resolver answers Run / Edit / Administer questions for members on skills
type Resolver struct {
	grants   GrantLookup
	observer DecisionObserver
}

// DecisionObserver receives the outcome of every Authorize call
type DecisionObserver interface {
	RecordDecision(action string, allowed bool)
}

// NewResolver creates a new Resolver backed by a grant lookup
func NewResolver(grants GrantLookup) *Resolver {
	return &Resolver{grants: grants}
}

// SetObserver sets the observer notified of Authorize outcomes
func (r *Resolver) SetObserver(observer DecisionObserver) {
	r.observer = observer
}

// CanRun reports whether the member may run the skill.
// Unrestricted skills can be run by anyone.
func (r *Resolver) CanRun(ctx context.Context, member *entities.Member, skill *entities.Skill) (bool, error) {
	if skill == nil {
		return false, nil
	}
	if !skill.Restricted {
		return true, nil
	}
	return r.hasAtLeast(ctx, member, skill, entities.CapabilityUse)
}

// CanEdit reports whether the member may edit the skill.
// Members of other organizations never can, even for unrestricted skills.
func (r *Resolver) CanEdit(ctx context.Context, member *entities.Member, skill *entities.Skill) (bool, error) {
	if !skill.SameOrganization(member) {
		return false, nil
	}
	if !skill.Restricted {
		return true, nil
	}
	return r.hasAtLeast(ctx, member, skill, entities.CapabilityEdit)
}

// CanAdminister reports whether the member may manage the skill's permissions.
// Requires an Admin grant whether or not the skill is restricted.
func (r *Resolver) CanAdminister(ctx context.Context, member *entities.Member, skill *entities.Skill) (bool, error) {
	return r.hasAtLeast(ctx, member, skill, entities.CapabilityAdmin)
}

// Authorize dispatches to CanRun, CanEdit or CanAdminister
func (r *Resolver) Authorize(ctx context.Context, member *entities.Member, skill *entities.Skill, action Action) (bool, error) {
	var (
		allowed bool
		err     error
	)
	switch action {
	case ActionRun:
		allowed, err = r.CanRun(ctx, member, skill)
	case ActionEdit:
		allowed, err = r.CanEdit(ctx, member, skill)
	case ActionAdminister:
		allowed, err = r.CanAdminister(ctx, member, skill)
	default:
		return false, fmt.Errorf("%w: %q", ErrUnknownAction, string(action))
	}
	if err != nil {
		return false, err
	}

	if r.observer != nil {
		r.observer.RecordDecision(string(action), allowed)
	}
	return allowed, nil
}

// Capabilities answers all three questions with at most one grant lookup
func (r *Resolver) Capabilities(ctx context.Context, member *entities.Member, skill *entities.Skill) (Decision, error) {
	grant, err := r.grant(ctx, member, skill)
	if err != nil {
		return Decision{}, err
	}
	return Decide(member, skill, grant), nil
}

func (r *Resolver) hasAtLeast(ctx context.Context, member *entities.Member, skill *entities.Skill, required entities.Capability) (bool, error) {
	grant, err := r.grant(ctx, member, skill)
	if err != nil {
		return false, err
	}
	return grant.Includes(required), nil
}

// grant loads the stored capability; other organizations always get None
func (r *Resolver) grant(ctx context.Context, member *entities.Member, skill *entities.Skill) (entities.Capability, error) {
	if !skill.SameOrganization(member) {
		return entities.CapabilityNone, nil
	}

	capability, err := r.grants.GetCapability(ctx, member.ID, skill.ID)
	if err != nil {
		return entities.CapabilityNone, fmt.Errorf("failed to look up grant for member %s on skill %s: %w", member.ID, skill.ID, err)
	}
	return capability, nil
}
