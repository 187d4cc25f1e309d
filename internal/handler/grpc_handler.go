package handler

import (
	"context"
	"strings"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	approvalsv1 "github.com/pesio-ai/be-wo-approvals/api/approvals/v1"
	"github.com/pesio-ai/be-wo-approvals/internal/auth"
	"github.com/pesio-ai/be-wo-approvals/internal/errors"
	"github.com/pesio-ai/be-wo-approvals/internal/service"
)

// WorkflowServiceName is the fully qualified gRPC service name.
const WorkflowServiceName = approvalsv1.ServiceName

// WorkflowServiceServer is the server API of approvals.v1.WorkflowService.
type WorkflowServiceServer interface {
	StartWorkflow(context.Context, *StartWorkflowRequest) (*WorkflowResponse, error)
	GetWorkflow(context.Context, *GetWorkflowRequest) (*WorkflowResponse, error)
	Approve(context.Context, *StepCommandRequest) (*WorkflowResponse, error)
	Reject(context.Context, *StepCommandRequest) (*WorkflowResponse, error)
	Skip(context.Context, *StepCommandRequest) (*WorkflowResponse, error)
	Reset(context.Context, *ResetRequest) (*WorkflowResponse, error)
}

// GRPCHandler implements the WorkflowService gRPC interface
type GRPCHandler struct {
	service *service.ApprovalService
	logger  zerolog.Logger
}

var _ WorkflowServiceServer = (*GRPCHandler)(nil)

// NewGRPCHandler creates a new gRPC handler
func NewGRPCHandler(service *service.ApprovalService, logger zerolog.Logger) *GRPCHandler {
	return &GRPCHandler{
		service: service,
		logger:  logger.With().Str("handler", "grpc").Logger(),
	}
}

// StartWorkflow starts the approval workflow of a work order
func (h *GRPCHandler) StartWorkflow(ctx context.Context, req *StartWorkflowRequest) (*WorkflowResponse, error) {
	h.logger.Debug().
		Str("work_order_id", req.WorkOrderID).
		Str("category", req.Category).
		Msg("gRPC StartWorkflow called")

	actor, _ := auth.FromContext(ctx)
	view, err := h.service.StartWorkflow(ctx, req.WorkOrderID, req.Category, actor)
	if err != nil {
		return nil, mapErrorToGRPC(err)
	}
	resp := toWorkflowResponse(view)
	return &resp, nil
}

// GetWorkflow returns a workflow with its derived queries
func (h *GRPCHandler) GetWorkflow(ctx context.Context, req *GetWorkflowRequest) (*WorkflowResponse, error) {
	view, err := h.service.GetWorkflow(ctx, req.WorkOrderID)
	if err != nil {
		return nil, mapErrorToGRPC(err)
	}
	resp := toWorkflowResponse(view)
	return &resp, nil
}

// Approve approves one step
func (h *GRPCHandler) Approve(ctx context.Context, req *StepCommandRequest) (*WorkflowResponse, error) {
	return h.stepCommand(ctx, "Approve", req, h.service.Approve)
}

// Reject rejects one step
func (h *GRPCHandler) Reject(ctx context.Context, req *StepCommandRequest) (*WorkflowResponse, error) {
	return h.stepCommand(ctx, "Reject", req, h.service.Reject)
}

// Skip skips one optional step
func (h *GRPCHandler) Skip(ctx context.Context, req *StepCommandRequest) (*WorkflowResponse, error) {
	return h.stepCommand(ctx, "Skip", req, h.service.Skip)
}

// Reset resets every step of a workflow
func (h *GRPCHandler) Reset(ctx context.Context, req *ResetRequest) (*WorkflowResponse, error) {
	h.logger.Debug().Str("work_order_id", req.WorkOrderID).Msg("gRPC Reset called")

	actor, _ := auth.FromContext(ctx)
	view, err := h.service.Reset(ctx, req.WorkOrderID, req.ExpectedVersion, actor)
	if err != nil {
		return nil, mapErrorToGRPC(err)
	}
	resp := toWorkflowResponse(view)
	return &resp, nil
}

func (h *GRPCHandler) stepCommand(ctx context.Context, method string, req *StepCommandRequest, run stepCommandFunc) (*WorkflowResponse, error) {
	h.logger.Debug().
		Str("work_order_id", req.WorkOrderID).
		Str("step_id", req.StepID).
		Msg("gRPC " + method + " called")

	actor, _ := auth.FromContext(ctx)
	view, err := run(ctx, service.CommandRequest{
		WorkOrderID:     req.WorkOrderID,
		StepID:          req.StepID,
		Comment:         req.Comment,
		ExpectedVersion: req.ExpectedVersion,
	}, actor)
	if err != nil {
		return nil, mapErrorToGRPC(err)
	}
	resp := toWorkflowResponse(view)
	return &resp, nil
}

// ActorInterceptor authenticates WorkflowService calls from request metadata
// and stores the actor in the context. Other services (health, reflection)
// pass through untouched.
func ActorInterceptor(authn auth.Authenticator) grpc.UnaryServerInterceptor {
	prefix := "/" + WorkflowServiceName + "/"
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if !strings.HasPrefix(info.FullMethod, prefix) {
			return handler(ctx, req)
		}
		md, _ := metadata.FromIncomingContext(ctx)
		lookup := func(key string) string {
			if values := md.Get(key); len(values) > 0 {
				return values[0]
			}
			return ""
		}
		actor, err := authn.Authenticate(ctx, lookup)
		if err != nil {
			return nil, mapErrorToGRPC(err)
		}
		return handler(auth.WithActor(ctx, actor), req)
	}
}

func mapErrorToGRPC(err error) error {
	if err == nil {
		return nil
	}

	code := errors.CodeOf(err)
	msg := err.Error()
	if appErr, ok := errors.As(err); ok {
		msg = appErr.Message
		if appErr.Reason != "" {
			msg = appErr.Reason + ": " + msg
		}
	}

	switch code {
	case errors.ErrCodeInvalidInput:
		return status.Error(codes.InvalidArgument, msg)
	case errors.ErrCodeNotFound:
		return status.Error(codes.NotFound, msg)
	case errors.ErrCodeConflict:
		return status.Error(codes.FailedPrecondition, msg)
	case errors.ErrCodeUnauthorized:
		return status.Error(codes.Unauthenticated, msg)
	case errors.ErrCodeForbidden:
		return status.Error(codes.PermissionDenied, msg)
	default:
		return status.Error(codes.Internal, "internal error")
	}
}

// ── Service descriptor ────────────────────────────────────────────────────────

// RegisterWorkflowServiceServer registers srv on s.
func RegisterWorkflowServiceServer(s grpc.ServiceRegistrar, srv WorkflowServiceServer) {
	s.RegisterService(&workflowServiceDesc, srv)
}

var workflowServiceDesc = grpc.ServiceDesc{
	ServiceName: WorkflowServiceName,
	HandlerType: (*WorkflowServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryMethod("StartWorkflow", approvalsv1.StartWorkflowRequest, startWorkflowFromProto, WorkflowServiceServer.StartWorkflow),
		unaryMethod("GetWorkflow", approvalsv1.GetWorkflowRequest, getWorkflowFromProto, WorkflowServiceServer.GetWorkflow),
		unaryMethod("Approve", approvalsv1.StepCommandRequest, stepCommandFromProto, WorkflowServiceServer.Approve),
		unaryMethod("Reject", approvalsv1.StepCommandRequest, stepCommandFromProto, WorkflowServiceServer.Reject),
		unaryMethod("Skip", approvalsv1.StepCommandRequest, stepCommandFromProto, WorkflowServiceServer.Skip),
		unaryMethod("Reset", approvalsv1.ResetRequest, resetFromProto, WorkflowServiceServer.Reset),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: approvalsv1.FileName,
}

// unaryMethod decodes the input message into its wire struct, runs call and
// encodes the workflow it returns. Interceptors see the wire struct.
func unaryMethod[Req any](
	name, input string,
	fromProto func(fields) *Req,
	call func(WorkflowServiceServer, context.Context, *Req) (*WorkflowResponse, error),
) grpc.MethodDesc {
	fullMethod := "/" + WorkflowServiceName + "/" + name
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := approvalsv1.New(input)
			if err := dec(in); err != nil {
				return nil, err
			}
			handler := func(ctx context.Context, req any) (any, error) {
				resp, err := call(srv.(WorkflowServiceServer), ctx, req.(*Req))
				if err != nil {
					return nil, err
				}
				return workflowToProto(resp).Interface(), nil
			}
			req := fromProto(fields{m: in})
			if interceptor == nil {
				return handler(ctx, req)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
			return interceptor(ctx, req, info, handler)
		},
	}
}
