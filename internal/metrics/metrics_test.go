package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	m := New()

	m.CommandCompleted("approve", OutcomeSuccess)
	m.CommandCompleted("approve", OutcomeSuccess)
	m.CommandCompleted("reject", "invalid_input")
	m.WorkflowOutcome("approved")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.commands.WithLabelValues("approve", OutcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.commands.WithLabelValues("reject", "invalid_input")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.workflowOutcomes.WithLabelValues("approved")))
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.CommandCompleted("skip", OutcomeSuccess)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `workorder_approval_commands_total{command="skip",outcome="success"} 1`), body)
	assert.Contains(t, body, "go_goroutines")
}
