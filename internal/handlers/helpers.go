package handlers

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/asakaida/skillperm/internal/entities"
	"github.com/asakaida/skillperm/internal/repositories"
	"github.com/asakaida/skillperm/internal/services"
	"github.com/asakaida/skillperm/internal/services/authorization"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// === Shared Helper Functions for all handlers ===

// errMissingField marks a request field that was absent or empty
var errMissingField = errors.New("field is required")

func requiredString(req *structpb.Struct, field string) (string, error) {
	s, err := optionalString(req, field)
	if err != nil {
		return "", err
	}
	if s == "" {
		return "", fmt.Errorf("%s: %w", field, errMissingField)
	}
	return s, nil
}

func optionalString(req *structpb.Struct, field string) (string, error) {
	v, ok := req.GetFields()[field]
	if !ok {
		return "", nil
	}
	switch v.GetKind().(type) {
	case *structpb.Value_StringValue:
		return v.GetStringValue(), nil
	case *structpb.Value_NullValue:
		return "", nil
	default:
		return "", fmt.Errorf("%s must be a string", field)
	}
}

func requiredBool(req *structpb.Struct, field string) (bool, error) {
	v, ok := req.GetFields()[field]
	if !ok {
		return false, fmt.Errorf("%s: %w", field, errMissingField)
	}
	if _, ok := v.GetKind().(*structpb.Value_BoolValue); !ok {
		return false, fmt.Errorf("%s must be a boolean", field)
	}
	return v.GetBoolValue(), nil
}

// optionalInt reads a non-negative integral number; JSON numbers arrive as float64
func optionalInt(req *structpb.Struct, field string) (int, error) {
	v, ok := req.GetFields()[field]
	if !ok {
		return 0, nil
	}
	if _, ok := v.GetKind().(*structpb.Value_NumberValue); !ok {
		return 0, fmt.Errorf("%s must be a number", field)
	}
	n := v.GetNumberValue()
	if n < 0 || n != math.Trunc(n) || n > math.MaxInt32 {
		return 0, fmt.Errorf("%s must be a non-negative integer", field)
	}
	return int(n), nil
}

func newResponse(fields map[string]interface{}) (*structpb.Struct, error) {
	resp, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to build response: %v", err)
	}
	return resp, nil
}

func permissionsToValues(perms []*entities.Permission) []interface{} {
	out := make([]interface{}, 0, len(perms))
	for _, p := range perms {
		out = append(out, map[string]interface{}{
			"member_id":  p.MemberID,
			"capability": p.Capability.String(),
		})
	}
	return out
}

func auditEventsToValues(events []*entities.AuditEvent) []interface{} {
	out := make([]interface{}, 0, len(events))
	for _, e := range events {
		out = append(out, map[string]interface{}{
			"id":          e.ID,
			"actor_id":    e.ActorID,
			"description": e.Description,
			"created_at":  e.CreatedAt.UTC().Format(time.RFC3339Nano),
		})
	}
	return out
}

// toStatus maps domain errors to gRPC status codes
func toStatus(err error, operation string) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}

	code := codes.Internal
	switch {
	case errors.Is(err, context.Canceled):
		code = codes.Canceled
	case errors.Is(err, context.DeadlineExceeded):
		code = codes.DeadlineExceeded
	case errors.Is(err, errMissingField),
		errors.Is(err, entities.ErrUnknownCapability),
		errors.Is(err, authorization.ErrUnknownAction),
		errors.Is(err, services.ErrInvalidArgument):
		code = codes.InvalidArgument
	case errors.Is(err, repositories.ErrNotFound):
		code = codes.NotFound
	case errors.Is(err, services.ErrCrossOrganization):
		code = codes.PermissionDenied
	}
	return status.Errorf(code, "%s failed: %v", operation, err)
}

func invalidArgument(err error) error {
	return status.Error(codes.InvalidArgument, err.Error())
}
