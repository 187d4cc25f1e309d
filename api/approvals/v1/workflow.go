// Package approvalsv1 registers the approvals.v1 protobuf contract described
// in workflow.proto and creates its messages.
//
// The file descriptor is assembled here and registered with the global proto
// registry at init, so server reflection and protojson resolve the service
// and its messages by name. Messages are dynamicpb values.
package approvalsv1

import (
	"fmt"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/reflect/protoregistry"
	"google.golang.org/protobuf/types/descriptorpb"
	"google.golang.org/protobuf/types/dynamicpb"
	"google.golang.org/protobuf/types/known/timestamppb"
)

const (
	// FileName is the registered path of workflow.proto.
	FileName = "approvals/v1/workflow.proto"
	// Package is the proto package.
	Package = "approvals.v1"
	// ServiceName is the fully qualified service name.
	ServiceName = Package + ".WorkflowService"
)

// Message names.
const (
	StartWorkflowRequest = "StartWorkflowRequest"
	GetWorkflowRequest   = "GetWorkflowRequest"
	StepCommandRequest   = "StepCommandRequest"
	ResetRequest         = "ResetRequest"
	Badge                = "Badge"
	Step                 = "Step"
	WorkflowResponse     = "WorkflowResponse"
)

// File is the registered descriptor of workflow.proto.
var File protoreflect.FileDescriptor

func init() {
	fd, err := protodesc.NewFile(fileDescriptorProto(), protoregistry.GlobalFiles)
	if err != nil {
		panic(fmt.Sprintf("approvalsv1: build %s: %v", FileName, err))
	}
	if err := protoregistry.GlobalFiles.RegisterFile(fd); err != nil {
		panic(fmt.Sprintf("approvalsv1: register %s: %v", FileName, err))
	}
	File = fd
}

// Descriptor returns the descriptor of the named approvals.v1 message. It
// panics on an unknown name.
func Descriptor(name string) protoreflect.MessageDescriptor {
	md := File.Messages().ByName(protoreflect.Name(name))
	if md == nil {
		panic("approvalsv1: unknown message " + name)
	}
	return md
}

// New returns an empty message of the named type.
func New(name string) *dynamicpb.Message {
	return dynamicpb.NewMessage(Descriptor(name))
}

func fileDescriptorProto() *descriptorpb.FileDescriptorProto {
	return &descriptorpb.FileDescriptorProto{
		Name:       proto.String(FileName),
		Package:    proto.String(Package),
		Dependency: []string{timestamppb.File_google_protobuf_timestamp_proto.Path()},
		Syntax:     proto.String("proto3"),
		Options: &descriptorpb.FileOptions{
			GoPackage: proto.String("github.com/pesio-ai/be-wo-approvals/api/approvals/v1;approvalsv1"),
		},
		MessageType: []*descriptorpb.DescriptorProto{
			message(StartWorkflowRequest,
				scalar("work_order_id", 1, descriptorpb.FieldDescriptorProto_TYPE_STRING),
				scalar("category", 2, descriptorpb.FieldDescriptorProto_TYPE_STRING),
			),
			message(GetWorkflowRequest,
				scalar("work_order_id", 1, descriptorpb.FieldDescriptorProto_TYPE_STRING),
			),
			message(StepCommandRequest,
				scalar("work_order_id", 1, descriptorpb.FieldDescriptorProto_TYPE_STRING),
				scalar("step_id", 2, descriptorpb.FieldDescriptorProto_TYPE_STRING),
				scalar("comment", 3, descriptorpb.FieldDescriptorProto_TYPE_STRING),
				scalar("expected_version", 4, descriptorpb.FieldDescriptorProto_TYPE_INT32),
			),
			message(ResetRequest,
				scalar("work_order_id", 1, descriptorpb.FieldDescriptorProto_TYPE_STRING),
				scalar("expected_version", 2, descriptorpb.FieldDescriptorProto_TYPE_INT32),
			),
			message(Badge,
				scalar("label", 1, descriptorpb.FieldDescriptorProto_TYPE_STRING),
				scalar("tone", 2, descriptorpb.FieldDescriptorProto_TYPE_STRING),
				scalar("icon", 3, descriptorpb.FieldDescriptorProto_TYPE_STRING),
			),
			message(Step,
				scalar("id", 1, descriptorpb.FieldDescriptorProto_TYPE_STRING),
				scalar("name", 2, descriptorpb.FieldDescriptorProto_TYPE_STRING),
				scalar("description", 3, descriptorpb.FieldDescriptorProto_TYPE_STRING),
				scalar("approver_role", 4, descriptorpb.FieldDescriptorProto_TYPE_STRING),
				scalar("approver_id", 5, descriptorpb.FieldDescriptorProto_TYPE_STRING),
				scalar("approver_name", 6, descriptorpb.FieldDescriptorProto_TYPE_STRING),
				scalar("status", 7, descriptorpb.FieldDescriptorProto_TYPE_STRING),
				nested("approved_at", 8, ".google.protobuf.Timestamp", false),
				scalar("comments", 9, descriptorpb.FieldDescriptorProto_TYPE_STRING),
				scalar("is_required", 10, descriptorpb.FieldDescriptorProto_TYPE_BOOL),
				scalar("order", 11, descriptorpb.FieldDescriptorProto_TYPE_INT32),
				nested("badge", 12, "."+Package+"."+Badge, false),
			),
			message(WorkflowResponse,
				scalar("work_order_id", 1, descriptorpb.FieldDescriptorProto_TYPE_STRING),
				scalar("category", 2, descriptorpb.FieldDescriptorProto_TYPE_STRING),
				scalar("status", 3, descriptorpb.FieldDescriptorProto_TYPE_STRING),
				nested("badge", 4, "."+Package+"."+Badge, false),
				scalar("progress", 5, descriptorpb.FieldDescriptorProto_TYPE_INT32),
				scalar("version", 6, descriptorpb.FieldDescriptorProto_TYPE_INT32),
				nested("current_step", 7, "."+Package+"."+Step, false),
				nested("steps", 8, "."+Package+"."+Step, true),
			),
		},
		Service: []*descriptorpb.ServiceDescriptorProto{{
			Name: proto.String("WorkflowService"),
			Method: []*descriptorpb.MethodDescriptorProto{
				method("StartWorkflow", StartWorkflowRequest),
				method("GetWorkflow", GetWorkflowRequest),
				method("Approve", StepCommandRequest),
				method("Reject", StepCommandRequest),
				method("Skip", StepCommandRequest),
				method("Reset", ResetRequest),
			},
		}},
	}
}

func message(name string, fields ...*descriptorpb.FieldDescriptorProto) *descriptorpb.DescriptorProto {
	return &descriptorpb.DescriptorProto{Name: proto.String(name), Field: fields}
}

func scalar(name string, number int32, typ descriptorpb.FieldDescriptorProto_Type) *descriptorpb.FieldDescriptorProto {
	return &descriptorpb.FieldDescriptorProto{
		Name:   proto.String(name),
		Number: proto.Int32(number),
		Label:  descriptorpb.FieldDescriptorProto_LABEL_OPTIONAL.Enum(),
		Type:   typ.Enum(),
	}
}

func nested(name string, number int32, typeName string, repeated bool) *descriptorpb.FieldDescriptorProto {
	f := scalar(name, number, descriptorpb.FieldDescriptorProto_TYPE_MESSAGE)
	f.TypeName = proto.String(typeName)
	if repeated {
		f.Label = descriptorpb.FieldDescriptorProto_LABEL_REPEATED.Enum()
	}
	return f
}

func method(name, input string) *descriptorpb.MethodDescriptorProto {
	return &descriptorpb.MethodDescriptorProto{
		Name:       proto.String(name),
		InputType:  proto.String("." + Package + "." + input),
		OutputType: proto.String("." + Package + "." + WorkflowResponse),
	}
}
