package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/asakaida/skillperm/internal/entities"
	"github.com/asakaida/skillperm/internal/repositories"
)

var (
	// ErrCrossOrganization is returned when a grant would span two organizations
	ErrCrossOrganization = errors.New("member and skill belong to different organizations")
	// ErrInvalidArgument is returned for missing identifiers
	ErrInvalidArgument = errors.New("invalid argument")
)

// PermissionServiceInterface defines the interface for permission management operations
type PermissionServiceInterface interface {
	SetPermission(ctx context.Context, actorID string, memberID string, skillID string, capability entities.Capability) error
	SetRestricted(ctx context.Context, actorID string, skillID string, restricted bool) error
	ListPermissions(ctx context.Context, skillID string) ([]*entities.Permission, error)
	AuditLog(ctx context.Context, skillID string, limit int) ([]*entities.AuditEvent, error)
}

// PermissionService manages grants and the restricted flag of skills,
// recording an audit event for every effective change in the same transaction
type PermissionService struct {
	memberRepo     repositories.MemberRepository
	skillRepo      repositories.SkillRepository
	permissionRepo repositories.PermissionRepository
	auditRepo      repositories.AuditRepository
	txManager      repositories.TxManager
}

// NewPermissionService creates a new PermissionService
func NewPermissionService(
	memberRepo repositories.MemberRepository,
	skillRepo repositories.SkillRepository,
	permissionRepo repositories.PermissionRepository,
	auditRepo repositories.AuditRepository,
	txManager repositories.TxManager,
) *PermissionService {
	return &PermissionService{
		memberRepo:     memberRepo,
		skillRepo:      skillRepo,
		permissionRepo: permissionRepo,
		auditRepo:      auditRepo,
		txManager:      txManager,
	}
}

// SetPermission stores the capability of a member on a skill.
// CapabilityNone removes the grant. Setting the current value is a no-op.
func (s *PermissionService) SetPermission(ctx context.Context, actorID string, memberID string, skillID string, capability entities.Capability) error {
	if actorID == "" {
		return fmt.Errorf("%w: actor ID is required", ErrInvalidArgument)
	}
	if memberID == "" {
		return fmt.Errorf("%w: member ID is required", ErrInvalidArgument)
	}
	if skillID == "" {
		return fmt.Errorf("%w: skill ID is required", ErrInvalidArgument)
	}
	if !capability.Valid() {
		return fmt.Errorf("%w: %d", entities.ErrUnknownCapability, int(capability))
	}

	skill, err := s.skillRepo.Get(ctx, skillID)
	if err != nil {
		return fmt.Errorf("failed to load skill: %w", err)
	}
	member, err := s.memberRepo.Get(ctx, memberID)
	if err != nil {
		return fmt.Errorf("failed to load member: %w", err)
	}
	actor, err := s.loadActor(ctx, actorID, member)
	if err != nil {
		return err
	}
	if !skill.SameOrganization(member) || !skill.SameOrganization(actor) {
		return fmt.Errorf("cannot grant %s on skill %s to member %s: %w", capability, skill.Name, member.DisplayName, ErrCrossOrganization)
	}

	return s.txManager.WithinTx(ctx, func(ctx context.Context) error {
		current, err := s.permissionRepo.GetCapability(ctx, memberID, skillID)
		if err != nil {
			return fmt.Errorf("failed to read current permission: %w", err)
		}
		if current == capability {
			return nil
		}

		err = s.permissionRepo.SetCapability(ctx, &entities.Permission{
			MemberID:   memberID,
			SkillID:    skillID,
			Capability: capability,
		})
		if err != nil {
			return fmt.Errorf("failed to store permission: %w", err)
		}

		return s.writeAudit(ctx, actor, skill, DescribePermissionChange(member, skill, current, capability))
	})
}

// SetRestricted changes whether a skill requires explicit grants
func (s *PermissionService) SetRestricted(ctx context.Context, actorID string, skillID string, restricted bool) error {
	if actorID == "" {
		return fmt.Errorf("%w: actor ID is required", ErrInvalidArgument)
	}
	if skillID == "" {
		return fmt.Errorf("%w: skill ID is required", ErrInvalidArgument)
	}

	skill, err := s.skillRepo.Get(ctx, skillID)
	if err != nil {
		return fmt.Errorf("failed to load skill: %w", err)
	}
	actor, err := s.memberRepo.Get(ctx, actorID)
	if err != nil {
		return fmt.Errorf("failed to load actor: %w", err)
	}
	if !skill.SameOrganization(actor) {
		return fmt.Errorf("cannot change skill %s: %w", skill.Name, ErrCrossOrganization)
	}
	if skill.Restricted == restricted {
		return nil
	}

	return s.txManager.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.skillRepo.SetRestricted(ctx, skillID, restricted); err != nil {
			return fmt.Errorf("failed to update skill: %w", err)
		}
		return s.writeAudit(ctx, actor, skill, DescribeRestrictionChange(skill, restricted))
	})
}

// ListPermissions returns every grant on a skill
func (s *PermissionService) ListPermissions(ctx context.Context, skillID string) ([]*entities.Permission, error) {
	if skillID == "" {
		return nil, fmt.Errorf("%w: skill ID is required", ErrInvalidArgument)
	}
	if _, err := s.skillRepo.Get(ctx, skillID); err != nil {
		return nil, fmt.Errorf("failed to load skill: %w", err)
	}

	perms, err := s.permissionRepo.ListBySkill(ctx, skillID)
	if err != nil {
		return nil, fmt.Errorf("failed to list permissions: %w", err)
	}
	return perms, nil
}

// AuditLog returns the most recent audit events of a skill
func (s *PermissionService) AuditLog(ctx context.Context, skillID string, limit int) ([]*entities.AuditEvent, error) {
	if skillID == "" {
		return nil, fmt.Errorf("%w: skill ID is required", ErrInvalidArgument)
	}

	events, err := s.auditRepo.ListBySkill(ctx, skillID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to read audit log: %w", err)
	}
	return events, nil
}

func (s *PermissionService) loadActor(ctx context.Context, actorID string, member *entities.Member) (*entities.Member, error) {
	if actorID == member.ID {
		return member, nil
	}
	actor, err := s.memberRepo.Get(ctx, actorID)
	if err != nil {
		return nil, fmt.Errorf("failed to load actor: %w", err)
	}
	return actor, nil
}

func (s *PermissionService) writeAudit(ctx context.Context, actor *entities.Member, skill *entities.Skill, description string) error {
	event := &entities.AuditEvent{
		OrganizationID: skill.OrganizationID,
		ActorID:        actor.ID,
		SkillID:        skill.ID,
		Description:    description,
	}
	if err := s.auditRepo.Write(ctx, event); err != nil {
		return fmt.Errorf("failed to write audit event: %w", err)
	}
	return nil
}

// DescribePermissionChange formats the audit message for a grant change
func DescribePermissionChange(member *entities.Member, skill *entities.Skill, from, to entities.Capability) string {
	switch {
	case from == entities.CapabilityNone:
		return fmt.Sprintf("Granted `%s` permission to `%s` for skill `%s`.", to, member.DisplayName, skill.Name)
	case to == entities.CapabilityNone:
		return fmt.Sprintf("Removed `%s` permission from `%s` for skill `%s`.", from, member.DisplayName, skill.Name)
	default:
		return fmt.Sprintf("Changed permission for `%s` on skill `%s` from `%s` to `%s`.", member.DisplayName, skill.Name, from, to)
	}
}

// DescribeRestrictionChange formats the audit message for a restricted flag change
func DescribeRestrictionChange(skill *entities.Skill, restricted bool) string {
	if restricted {
		return fmt.Sprintf("Restricted skill `%s`.", skill.Name)
	}
	return fmt.Sprintf("Unrestricted skill `%s`.", skill.Name)
}
