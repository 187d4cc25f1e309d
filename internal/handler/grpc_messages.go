package handler

import (
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/known/timestamppb"

	approvalsv1 "github.com/pesio-ai/be-wo-approvals/api/approvals/v1"
	"github.com/pesio-ai/be-wo-approvals/internal/workflow"
)

// Conversions between the wire structs and approvals.v1 messages.

// fields reads and writes message fields by proto name.
type fields struct {
	m protoreflect.Message
}

func newFields(name string) fields { return fields{m: approvalsv1.New(name)} }

func (f fields) field(name string) protoreflect.FieldDescriptor {
	fd := f.m.Descriptor().Fields().ByName(protoreflect.Name(name))
	if fd == nil {
		panic("handler: " + string(f.m.Descriptor().FullName()) + " has no field " + name)
	}
	return fd
}

func (f fields) str(name string) string { return f.m.Get(f.field(name)).String() }
func (f fields) num(name string) int    { return int(f.m.Get(f.field(name)).Int()) }

func (f fields) setStr(name, v string) {
	if v != "" {
		f.m.Set(f.field(name), protoreflect.ValueOfString(v))
	}
}

func (f fields) setNum(name string, v int) {
	if v != 0 {
		f.m.Set(f.field(name), protoreflect.ValueOfInt32(int32(v)))
	}
}

func (f fields) setBool(name string, v bool) {
	if v {
		f.m.Set(f.field(name), protoreflect.ValueOfBool(v))
	}
}

func (f fields) setMsg(name string, v protoreflect.Message) {
	f.m.Set(f.field(name), protoreflect.ValueOfMessage(v))
}

func (f fields) appendMsg(name string, v protoreflect.Message) {
	f.m.Mutable(f.field(name)).List().Append(protoreflect.ValueOfMessage(v))
}

func startWorkflowFromProto(f fields) *StartWorkflowRequest {
	return &StartWorkflowRequest{WorkOrderID: f.str("work_order_id"), Category: f.str("category")}
}

func getWorkflowFromProto(f fields) *GetWorkflowRequest {
	return &GetWorkflowRequest{WorkOrderID: f.str("work_order_id")}
}

func stepCommandFromProto(f fields) *StepCommandRequest {
	return &StepCommandRequest{
		WorkOrderID:     f.str("work_order_id"),
		StepID:          f.str("step_id"),
		Comment:         f.str("comment"),
		ExpectedVersion: f.num("expected_version"),
	}
}

func resetFromProto(f fields) *ResetRequest {
	return &ResetRequest{WorkOrderID: f.str("work_order_id"), ExpectedVersion: f.num("expected_version")}
}

func badgeToProto(b workflow.Badge) protoreflect.Message {
	f := newFields(approvalsv1.Badge)
	f.setStr("label", b.Label)
	f.setStr("tone", b.Tone)
	f.setStr("icon", b.Icon)
	return f.m
}

func stepToProto(s StepResponse) protoreflect.Message {
	f := newFields(approvalsv1.Step)
	f.setStr("id", s.ID)
	f.setStr("name", s.Name)
	f.setStr("description", s.Description)
	f.setStr("approver_role", s.ApproverRole)
	f.setStr("approver_id", s.ApproverID)
	f.setStr("approver_name", s.ApproverName)
	f.setStr("status", s.Status)
	if s.ApprovedAt != nil {
		f.setMsg("approved_at", timestamppb.New(*s.ApprovedAt).ProtoReflect())
	}
	f.setStr("comments", s.Comments)
	f.setBool("is_required", s.IsRequired)
	f.setNum("order", s.Order)
	f.setMsg("badge", badgeToProto(s.Badge))
	return f.m
}

func workflowToProto(w *WorkflowResponse) protoreflect.Message {
	f := newFields(approvalsv1.WorkflowResponse)
	f.setStr("work_order_id", w.WorkOrderID)
	f.setStr("category", w.Category)
	f.setStr("status", w.Status)
	f.setMsg("badge", badgeToProto(w.Badge))
	f.setNum("progress", w.Progress)
	f.setNum("version", w.Version)
	if w.CurrentStep != nil {
		f.setMsg("current_step", stepToProto(*w.CurrentStep))
	}
	for _, s := range w.Steps {
		f.appendMsg("steps", stepToProto(s))
	}
	return f.m
}
