package grpc_control

import (
	"context"
	"encoding/json"

	"gateway-dashboard/src/activity"
	"gateway-dashboard/src/helpers"
	"gateway-dashboard/src/interfaces"
	"gateway-dashboard/src/logger"
	"gateway-dashboard/src/models"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	defaultActivityLimit = 50
	maxMessageLength     = 4000
)

// ControlService implements DashboardControlServer on top of the same feed and
// gateway client the HTTP API uses.
type ControlService struct {
	Config  *models.MConfig
	Feed    interfaces.IActivityFeed
	Gateway interfaces.IGatewayClient
	Logger  *logger.Logger
}

// NewControlService creates a new instance of ControlService
func NewControlService(
	cfg *models.MConfig,
	feed interfaces.IActivityFeed,
	gw interfaces.IGatewayClient,
	log *logger.Logger,
) *ControlService {
	return &ControlService{
		Config:  cfg,
		Feed:    feed,
		Gateway: gw,
		Logger:  log,
	}
}

// -----------------------------------------------------------------------------

func (s *ControlService) Health(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	reply := map[string]interface{}{
		"status":  "ok",
		"poller":  s.Feed.Status(),
		"runtime": helpers.GetRuntimeStats(),
	}

	if raw, err := s.Gateway.Health(ctx); err != nil {
		reply["status"] = "degraded"
		reply["gateway"] = map[string]interface{}{"reachable": false, "kind": helpers.Kind(err), "error": err.Error()}
	} else {
		reply["gateway"] = map[string]interface{}{"reachable": true, "health": raw}
	}
	return toStruct(reply)
}

// -----------------------------------------------------------------------------

func (s *ControlService) ListActivity(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	limit := defaultActivityLimit
	if v, ok := req.GetFields()["limit"]; ok {
		limit = int(v.GetNumberValue())
	}
	if limit < 1 || limit > s.Config.Poller.MaxEntries {
		return nil, status.Errorf(codes.InvalidArgument, "limit must be in [1, %d]", s.Config.Poller.MaxEntries)
	}

	category := models.MActivityCategory(stringField(req, "category"))
	if category != "" && !category.Valid() {
		return nil, status.Errorf(codes.InvalidArgument, "unknown category %q", category)
	}

	entries := s.Feed.Latest(limit, category)
	if entries == nil {
		entries = []models.MActivityEntry{}
	}
	return toStruct(map[string]interface{}{"entries": entries})
}

// -----------------------------------------------------------------------------

func (s *ControlService) RunCron(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	jobID := stringField(req, "job_id")
	if jobID == "" {
		return nil, status.Error(codes.InvalidArgument, "job_id is required")
	}

	result, err := s.Gateway.RunCron(ctx, jobID)
	if err != nil {
		return nil, s.toStatus("RunCron", err)
	}
	return toStruct(map[string]interface{}{"ok": true, "result": result})
}

// -----------------------------------------------------------------------------

func (s *ControlService) ToggleCron(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	jobID := stringField(req, "job_id")
	if jobID == "" {
		return nil, status.Error(codes.InvalidArgument, "job_id is required")
	}
	enabled, ok := req.GetFields()["enabled"]
	if !ok {
		return nil, status.Error(codes.InvalidArgument, "enabled is required")
	}
	if _, isBool := enabled.GetKind().(*structpb.Value_BoolValue); !isBool {
		return nil, status.Error(codes.InvalidArgument, "enabled must be a boolean")
	}

	result, err := s.Gateway.UpdateCronEnabled(ctx, jobID, enabled.GetBoolValue())
	if err != nil {
		return nil, s.toStatus("ToggleCron", err)
	}
	return toStruct(map[string]interface{}{"ok": true, "result": result})
}

// -----------------------------------------------------------------------------

func (s *ControlService) SendAgentMessage(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	message := stringField(req, "message")
	if message == "" || len(message) > maxMessageLength {
		return nil, status.Errorf(codes.InvalidArgument, "message must be 1..%d bytes", maxMessageLength)
	}
	sessionKey := stringField(req, "session_key")

	result, err := s.Gateway.SendAgentMessage(ctx, message, sessionKey)
	if err != nil {
		return nil, s.toStatus("SendAgentMessage", err)
	}

	subject := sessionKey
	if subject == "" {
		subject = "main"
	}
	entry := s.Feed.Record(models.CategoryAgentMessage, subject,
		"Sent to agent: "+activity.Excerpt(message, s.Config.Poller.ExcerptLength))

	s.Logger.Info("gRPC: agent message sent (session %s)", subject)
	return toStruct(map[string]interface{}{"ok": true, "result": result, "entry": entry})
}

// -----------------------------------------------------------------------------
// Helpers
// -----------------------------------------------------------------------------

// toStatus maps the error taxonomy onto gRPC codes.
func (s *ControlService) toStatus(op string, err error) error {
	kind := helpers.Kind(err)
	s.Logger.Warning("gRPC: %s failed (%s): %v", op, kind, err)

	code := codes.Internal
	switch kind {
	case "invalid_request":
		code = codes.InvalidArgument
	case "authentication_failed":
		code = codes.Unauthenticated
	case "timeout":
		code = codes.DeadlineExceeded
	case "remote_error", "transport_error", "upstream_fetch_error":
		code = codes.Unavailable
	case "configuration_error":
		code = codes.FailedPrecondition
	}
	return status.Error(code, err.Error())
}

func stringField(req *structpb.Struct, key string) string {
	return req.GetFields()[key].GetStringValue()
}

// toStruct round-trips v through JSON so struct tags decide the field names.
func toStruct(v interface{}) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode reply: %v", err)
	}
	var m map[string]interface{}
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, status.Errorf(codes.Internal, "encode reply: %v", err)
	}
	out, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode reply: %v", err)
	}
	return out, nil
}
