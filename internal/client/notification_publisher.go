package client

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

// DefaultSubjectPrefix is used when no prefix is configured.
const DefaultSubjectPrefix = "notifications.workorders"

// Workflow event types. The subject of each event is <prefix>.<event_type>.
const (
	EventWorkflowStarted  = "workflow_started"
	EventStepApproved     = "step_approved"
	EventStepRejected     = "step_rejected"
	EventStepSkipped      = "step_skipped"
	EventWorkflowReset    = "workflow_reset"
	EventWorkflowApproved = "workflow_approved"
	EventWorkflowRejected = "workflow_rejected"
)

// MsgPublisher is the part of *nats.Conn the publisher needs.
type MsgPublisher interface {
	PublishMsg(msg *nats.Msg) error
}

// NotificationPublisher publishes approval workflow events to NATS for
// consumption by the notifications service.
//
// Publishing is non-fatal: errors are logged and never returned, so a broken
// broker never fails an approval command. A nil connection disables
// publishing.
type NotificationPublisher struct {
	conn   MsgPublisher
	prefix string
	log    zerolog.Logger
	now    func() time.Time
}

// WorkflowEvent is the JSON schema published to NATS.
type WorkflowEvent struct {
	EventID     string    `json:"event_id"`
	EventType   string    `json:"event_type"`
	WorkOrderID string    `json:"work_order_id"`
	Category    string    `json:"category,omitempty"`
	StepID      string    `json:"step_id,omitempty"`
	StepName    string    `json:"step_name,omitempty"`
	StepStatus  string    `json:"step_status,omitempty"`
	Status      string    `json:"status"`
	Progress    int       `json:"progress"`
	ActorID     string    `json:"actor_id"`
	ActorRole   string    `json:"actor_role,omitempty"`
	Comment     string    `json:"comment,omitempty"`
	Version     int       `json:"version"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// NewNotificationPublisher creates a publisher on conn. An empty prefix
// selects DefaultSubjectPrefix.
func NewNotificationPublisher(conn MsgPublisher, prefix string, log zerolog.Logger) *NotificationPublisher {
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	return &NotificationPublisher{
		conn:   conn,
		prefix: prefix,
		log:    log,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Enabled reports whether events are actually sent.
func (p *NotificationPublisher) Enabled() bool {
	return p != nil && p.conn != nil
}

// Subject returns the subject an event type is published on.
func (p *NotificationPublisher) Subject(eventType string) string {
	return p.prefix + "." + eventType
}

// Publish sends event. EventID and OccurredAt are filled when empty; the
// event id doubles as the JetStream de-duplication id.
func (p *NotificationPublisher) Publish(ctx context.Context, event WorkflowEvent) {
	if !p.Enabled() {
		return
	}
	if err := ctx.Err(); err != nil {
		p.log.Warn().Err(err).Str("event_type", event.EventType).Msg("notification: context done, event dropped")
		return
	}

	if event.EventID == "" {
		event.EventID = uuid.NewString()
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = p.now()
	}

	data, err := json.Marshal(event)
	if err != nil {
		p.log.Warn().Err(err).Str("event_type", event.EventType).Msg("notification: failed to marshal event")
		return
	}

	msg := nats.NewMsg(p.Subject(event.EventType))
	msg.Data = data
	msg.Header.Set(nats.MsgIdHdr, event.EventID)
	msg.Header.Set("Content-Type", "application/json")

	if err := p.conn.PublishMsg(msg); err != nil {
		p.log.Warn().Err(err).
			Str("subject", msg.Subject).
			Str("work_order_id", event.WorkOrderID).
			Msg("notification: failed to publish NATS event (non-fatal)")
		return
	}

	p.log.Debug().
		Str("subject", msg.Subject).
		Str("work_order_id", event.WorkOrderID).
		Msg("notification: event published")
}

// Connect dials NATS at url. An empty url returns a nil connection, which
// leaves publishing disabled.
func Connect(url, name string, log zerolog.Logger) (*nats.Conn, error) {
	if url == "" {
		return nil, nil
	}
	return nats.Connect(url,
		nats.Name(name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn().Err(err).Msg("nats disconnected")
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("nats reconnected")
		}),
	)
}

// Drainer is the part of *nats.Conn used at shutdown.
type Drainer interface {
	Drain() error
}

// Drain flushes pending messages and closes conn. A failed drain is logged
// and otherwise ignored.
func Drain(conn Drainer, log zerolog.Logger) {
	if err := conn.Drain(); err != nil {
		log.Warn().Err(err).Msg("nats drain failed")
	}
}
