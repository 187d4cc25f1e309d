package approvalsv1

import (
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/reflect/protoregistry"
)

func TestFileIsRegistered(t *testing.T) {
	fd, err := protoregistry.GlobalFiles.FindFileByPath(FileName)
	require.NoError(t, err)
	assert.Equal(t, protoreflect.FullName(Package), fd.Package())

	d, err := protoregistry.GlobalFiles.FindDescriptorByName(ServiceName)
	require.NoError(t, err)
	sd, ok := d.(protoreflect.ServiceDescriptor)
	require.True(t, ok)

	var methods []string
	for i := 0; i < sd.Methods().Len(); i++ {
		m := sd.Methods().Get(i)
		methods = append(methods, string(m.Name()))
		assert.Equal(t, protoreflect.Name(WorkflowResponse), m.Output().Name())
	}
	assert.Equal(t, []string{"StartWorkflow", "GetWorkflow", "Approve", "Reject", "Skip", "Reset"}, methods)
}

func TestNew(t *testing.T) {
	m := New(StepCommandRequest)
	assert.Equal(t, protoreflect.FullName("approvals.v1.StepCommandRequest"), m.Descriptor().FullName())
	assert.Panics(t, func() { New("Invoice") })
}

// The registered descriptor and the checked-in workflow.proto must describe
// the same contract.
func TestDescriptorMatchesProtoSource(t *testing.T) {
	raw, err := os.ReadFile("workflow.proto")
	require.NoError(t, err)
	src := string(raw)

	assert.Contains(t, src, "package "+Package+";")
	for i := 0; i < File.Messages().Len(); i++ {
		md := File.Messages().Get(i)
		assert.Contains(t, src, "message "+string(md.Name())+" {")
		for j := 0; j < md.Fields().Len(); j++ {
			assert.Contains(t, src, fieldLine(md.Fields().Get(j)), md.Name())
		}
	}

	sd := File.Services().Get(0)
	for i := 0; i < sd.Methods().Len(); i++ {
		m := sd.Methods().Get(i)
		assert.Contains(t, src, fmt.Sprintf("rpc %s(%s) returns (%s);", m.Name(), m.Input().Name(), m.Output().Name()))
	}
}

func fieldLine(fd protoreflect.FieldDescriptor) string {
	typ := fd.Kind().String()
	if fd.Kind() == protoreflect.MessageKind {
		typ = string(fd.Message().FullName())
		typ = strings.TrimPrefix(typ, Package+".")
	}
	if fd.IsList() {
		typ = "repeated " + typ
	}
	return fmt.Sprintf("%s %s = %d;", typ, fd.Name(), fd.Number())
}
