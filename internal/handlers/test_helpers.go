package handlers

import (
	"context"
	"fmt"

	"github.com/asakaida/skillperm/internal/entities"
	"github.com/asakaida/skillperm/internal/repositories"
	"github.com/asakaida/skillperm/internal/services/authorization"
)

// Mock Resolver - implements authorization.ResolverInterface
type mockResolver struct {
	authorizeFunc    func(ctx context.Context, member *entities.Member, skill *entities.Skill, action authorization.Action) (bool, error)
	capabilitiesFunc func(ctx context.Context, member *entities.Member, skill *entities.Skill) (authorization.Decision, error)
}

func (m *mockResolver) CanRun(ctx context.Context, member *entities.Member, skill *entities.Skill) (bool, error) {
	return m.Authorize(ctx, member, skill, authorization.ActionRun)
}

func (m *mockResolver) CanEdit(ctx context.Context, member *entities.Member, skill *entities.Skill) (bool, error) {
	return m.Authorize(ctx, member, skill, authorization.ActionEdit)
}

func (m *mockResolver) CanAdminister(ctx context.Context, member *entities.Member, skill *entities.Skill) (bool, error) {
	return m.Authorize(ctx, member, skill, authorization.ActionAdminister)
}

func (m *mockResolver) Authorize(ctx context.Context, member *entities.Member, skill *entities.Skill, action authorization.Action) (bool, error) {
	if m.authorizeFunc != nil {
		return m.authorizeFunc(ctx, member, skill, action)
	}
	return false, nil
}

func (m *mockResolver) Capabilities(ctx context.Context, member *entities.Member, skill *entities.Skill) (authorization.Decision, error) {
	if m.capabilitiesFunc != nil {
		return m.capabilitiesFunc(ctx, member, skill)
	}
	return authorization.Decision{}, nil
}

// Mock PermissionService - implements services.PermissionServiceInterface
type mockPermissionService struct {
	setPermissionFunc   func(ctx context.Context, actorID, memberID, skillID string, capability entities.Capability) error
	setRestrictedFunc   func(ctx context.Context, actorID, skillID string, restricted bool) error
	listPermissionsFunc func(ctx context.Context, skillID string) ([]*entities.Permission, error)
	auditLogFunc        func(ctx context.Context, skillID string, limit int) ([]*entities.AuditEvent, error)
}

func (m *mockPermissionService) SetPermission(ctx context.Context, actorID string, memberID string, skillID string, capability entities.Capability) error {
	if m.setPermissionFunc != nil {
		return m.setPermissionFunc(ctx, actorID, memberID, skillID, capability)
	}
	return nil
}

func (m *mockPermissionService) SetRestricted(ctx context.Context, actorID string, skillID string, restricted bool) error {
	if m.setRestrictedFunc != nil {
		return m.setRestrictedFunc(ctx, actorID, skillID, restricted)
	}
	return nil
}

func (m *mockPermissionService) ListPermissions(ctx context.Context, skillID string) ([]*entities.Permission, error) {
	if m.listPermissionsFunc != nil {
		return m.listPermissionsFunc(ctx, skillID)
	}
	return nil, nil
}

func (m *mockPermissionService) AuditLog(ctx context.Context, skillID string, limit int) ([]*entities.AuditEvent, error) {
	if m.auditLogFunc != nil {
		return m.auditLogFunc(ctx, skillID, limit)
	}
	return nil, nil
}

// Mock MemberRepository backed by a map
type mockMemberRepository struct {
	members map[string]*entities.Member
	getErr  error
}

func (m *mockMemberRepository) Create(ctx context.Context, member *entities.Member) error {
	if m.members == nil {
		m.members = map[string]*entities.Member{}
	}
	m.members[member.ID] = member
	return nil
}

func (m *mockMemberRepository) Get(ctx context.Context, id string) (*entities.Member, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	member, ok := m.members[id]
	if !ok {
		return nil, fmt.Errorf("member %s: %w", id, repositories.ErrNotFound)
	}
	return member, nil
}

func (m *mockMemberRepository) ListByOrganization(ctx context.Context, organizationID string) ([]*entities.Member, error) {
	var out []*entities.Member
	for _, member := range m.members {
		if member.OrganizationID == organizationID {
			out = append(out, member)
		}
	}
	return out, nil
}

// Mock SkillRepository backed by a map
type mockSkillRepository struct {
	skills map[string]*entities.Skill
}

func (m *mockSkillRepository) Create(ctx context.Context, skill *entities.Skill) error {
	if m.skills == nil {
		m.skills = map[string]*entities.Skill{}
	}
	m.skills[skill.ID] = skill
	return nil
}

func (m *mockSkillRepository) Get(ctx context.Context, id string) (*entities.Skill, error) {
	skill, ok := m.skills[id]
	if !ok {
		return nil, fmt.Errorf("skill %s: %w", id, repositories.ErrNotFound)
	}
	return skill, nil
}

func (m *mockSkillRepository) GetByName(ctx context.Context, organizationID string, name string) (*entities.Skill, error) {
	for _, skill := range m.skills {
		if skill.OrganizationID == organizationID && skill.Name == name {
			return skill, nil
		}
	}
	return nil, fmt.Errorf("skill %s: %w", name, repositories.ErrNotFound)
}

func (m *mockSkillRepository) SetRestricted(ctx context.Context, id string, restricted bool) error {
	skill, ok := m.skills[id]
	if !ok {
		return fmt.Errorf("skill %s: %w", id, repositories.ErrNotFound)
	}
	skill.Restricted = restricted
	return nil
}

// newTestHandler returns a handler over one organization with member alice
// and the restricted skill deploy
func newTestHandler(resolver *mockResolver, permissionService *mockPermissionService) *CapabilityHandler {
	members := &mockMemberRepository{members: map[string]*entities.Member{
		"alice": {ID: "alice", OrganizationID: "acme", DisplayName: "Alice"},
	}}
	skills := &mockSkillRepository{skills: map[string]*entities.Skill{
		"deploy": {ID: "deploy", OrganizationID: "acme", Name: "deploy", Restricted: true},
	}}
	if resolver == nil {
		resolver = &mockResolver{}
	}
	if permissionService == nil {
		permissionService = &mockPermissionService{}
	}
	return NewCapabilityHandler(resolver, permissionService, members, skills)
}
