package handlers

import (
	"context"

	"github.com/asakaida/skillperm/internal/entities"
	"github.com/asakaida/skillperm/internal/repositories"
	"github.com/asakaida/skillperm/internal/services"
	"github.com/asakaida/skillperm/internal/services/authorization"
	pb "github.com/asakaida/skillperm/proto/skillperm/v1"
	"google.golang.org/protobuf/types/known/structpb"
)

// CapabilityHandler handles CapabilityService gRPC requests
type CapabilityHandler struct {
	pb.UnimplementedCapabilityServiceServer
	resolver          authorization.ResolverInterface
	permissionService services.PermissionServiceInterface
	memberRepo        repositories.MemberRepository
	skillRepo         repositories.SkillRepository
}

// NewCapabilityHandler creates a new CapabilityHandler
func NewCapabilityHandler(
	resolver authorization.ResolverInterface,
	permissionService services.PermissionServiceInterface,
	memberRepo repositories.MemberRepository,
	skillRepo repositories.SkillRepository,
) *CapabilityHandler {
	return &CapabilityHandler{
		resolver:          resolver,
		permissionService: permissionService,
		memberRepo:        memberRepo,
		skillRepo:         skillRepo,
	}
}

// Check handles the Check RPC
func (h *CapabilityHandler) Check(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	actionName, err := requiredString(req, "action")
	if err != nil {
		return nil, invalidArgument(err)
	}
	action, err := authorization.ParseAction(actionName)
	if err != nil {
		return nil, invalidArgument(err)
	}

	member, skill, err := h.loadSubjectAndSkill(ctx, req)
	if err != nil {
		return nil, err
	}

	allowed, err := h.resolver.Authorize(ctx, member, skill, action)
	if err != nil {
		return nil, toStatus(err, "check")
	}

	return newResponse(map[string]interface{}{
		"allowed": allowed,
	})
}

// GetCapabilities handles the GetCapabilities RPC
func (h *CapabilityHandler) GetCapabilities(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	member, skill, err := h.loadSubjectAndSkill(ctx, req)
	if err != nil {
		return nil, err
	}

	decision, err := h.resolver.Capabilities(ctx, member, skill)
	if err != nil {
		return nil, toStatus(err, "get capabilities")
	}

	return newResponse(map[string]interface{}{
		"capability":     decision.Capability.String(),
		"can_run":        decision.CanRun,
		"can_edit":       decision.CanEdit,
		"can_administer": decision.CanAdminister,
	})
}

// SetPermission handles the SetPermission RPC
func (h *CapabilityHandler) SetPermission(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	actorID, err := requiredString(req, "actor_id")
	if err != nil {
		return nil, invalidArgument(err)
	}
	memberID, err := requiredString(req, "member_id")
	if err != nil {
		return nil, invalidArgument(err)
	}
	skillID, err := requiredString(req, "skill_id")
	if err != nil {
		return nil, invalidArgument(err)
	}
	// "" is not accepted here; removing a grant is an explicit "None"
	capabilityName, err := requiredString(req, "capability")
	if err != nil {
		return nil, invalidArgument(err)
	}
	capability, err := entities.ParseCapability(capabilityName)
	if err != nil {
		return nil, invalidArgument(err)
	}

	if err := h.permissionService.SetPermission(ctx, actorID, memberID, skillID, capability); err != nil {
		return nil, toStatus(err, "set permission")
	}

	return &structpb.Struct{Fields: map[string]*structpb.Value{}}, nil
}

// ListPermissions handles the ListPermissions RPC
func (h *CapabilityHandler) ListPermissions(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	skillID, err := requiredString(req, "skill_id")
	if err != nil {
		return nil, invalidArgument(err)
	}

	perms, err := h.permissionService.ListPermissions(ctx, skillID)
	if err != nil {
		return nil, toStatus(err, "list permissions")
	}

	return newResponse(map[string]interface{}{
		"permissions": permissionsToValues(perms),
	})
}

// SetRestricted handles the SetRestricted RPC
func (h *CapabilityHandler) SetRestricted(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	actorID, err := requiredString(req, "actor_id")
	if err != nil {
		return nil, invalidArgument(err)
	}
	skillID, err := requiredString(req, "skill_id")
	if err != nil {
		return nil, invalidArgument(err)
	}
	restricted, err := requiredBool(req, "restricted")
	if err != nil {
		return nil, invalidArgument(err)
	}

	if err := h.permissionService.SetRestricted(ctx, actorID, skillID, restricted); err != nil {
		return nil, toStatus(err, "set restricted")
	}

	return &structpb.Struct{Fields: map[string]*structpb.Value{}}, nil
}

// ListAuditEvents handles the ListAuditEvents RPC
func (h *CapabilityHandler) ListAuditEvents(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	skillID, err := requiredString(req, "skill_id")
	if err != nil {
		return nil, invalidArgument(err)
	}
	limit, err := optionalInt(req, "limit")
	if err != nil {
		return nil, invalidArgument(err)
	}

	events, err := h.permissionService.AuditLog(ctx, skillID, limit)
	if err != nil {
		return nil, toStatus(err, "list audit events")
	}

	return newResponse(map[string]interface{}{
		"events": auditEventsToValues(events),
	})
}

// loadSubjectAndSkill resolves member_id and skill_id.
// An empty member_id is an anonymous subject (nil member).
func (h *CapabilityHandler) loadSubjectAndSkill(ctx context.Context, req *structpb.Struct) (*entities.Member, *entities.Skill, error) {
	skillID, err := requiredString(req, "skill_id")
	if err != nil {
		return nil, nil, invalidArgument(err)
	}
	memberID, err := optionalString(req, "member_id")
	if err != nil {
		return nil, nil, invalidArgument(err)
	}

	skill, err := h.skillRepo.Get(ctx, skillID)
	if err != nil {
		return nil, nil, toStatus(err, "load skill")
	}

	if memberID == "" {
		return nil, skill, nil
	}
	member, err := h.memberRepo.Get(ctx, memberID)
	if err != nil {
		return nil, nil, toStatus(err, "load member")
	}

	return member, skill, nil
}
