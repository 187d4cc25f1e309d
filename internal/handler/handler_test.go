package handler

import (
	"fmt"
	"testing"

	"github.com/pesio-ai/be-wo-approvals/internal/logger"
	"github.com/pesio-ai/be-wo-approvals/internal/repository"
	"github.com/pesio-ai/be-wo-approvals/internal/service"
	"github.com/pesio-ai/be-wo-approvals/internal/workflow"
)

func newTestService(t *testing.T) *service.ApprovalService {
	t.Helper()
	n := 0
	engine := workflow.NewEngine(workflow.NewStepAuthorizer(nil), workflow.WithIDGenerator(func() string {
		n++
		return fmt.Sprintf("step-%d", n)
	}))
	return service.NewApprovalService(
		repository.NewMemoryRepository(),
		workflow.NewDefaultProvider(),
		engine,
		workflow.NewStepAuthorizer(nil),
		nil,
		nil,
		logger.Nop(),
	)
}
