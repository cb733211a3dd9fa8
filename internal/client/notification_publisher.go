package client

import (
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

// NotificationPublisher publishes diligence lifecycle events to NATS for
// consumption by downstream notification services.
//
// Subject convention: notifications.dd.<event_type>
// Event types: request_submitted, request_approved, request_rejected,
//              request_reopened, stage_unlocked, template_applied
//
// All publish operations are non-fatal — errors are logged but never
// propagated to the caller, so notification failures never interrupt
// portal operations.
type NotificationPublisher struct {
	conn *nats.Conn
	log  zerolog.Logger
}

// NotificationEvent is the JSON schema published to NATS.
type NotificationEvent struct {
	EventType    string                 `json:"event_type"`
	DealID       string                 `json:"deal_id"`
	ActorID      string                 `json:"actor_id"`
	ResourceType string                 `json:"resource_type,omitempty"`
	ResourceID   string                 `json:"resource_id,omitempty"`
	Severity     string                 `json:"severity,omitempty"`
	Category     string                 `json:"category,omitempty"`
	Payload      map[string]interface{} `json:"payload,omitempty"`
}

// NewNotificationPublisher creates a publisher backed by the given NATS
// connection. A nil connection yields a no-op publisher.
func NewNotificationPublisher(conn *nats.Conn, log zerolog.Logger) *NotificationPublisher {
	return &NotificationPublisher{conn: conn, log: log}
}

// PublishRequestEvent publishes a request lifecycle event.
// Subject: notifications.dd.<eventType>
func (p *NotificationPublisher) PublishRequestEvent(eventType, requestID, dealID, actorID string, payload map[string]interface{}) {
	p.publish(eventType, "request", requestID, dealID, actorID, payload)
}

// PublishStageEvent publishes a stage gating event (e.g. stage_unlocked).
func (p *NotificationPublisher) PublishStageEvent(eventType, stageID, dealID, actorID string, payload map[string]interface{}) {
	p.publish(eventType, "stage", stageID, dealID, actorID, payload)
}

// PublishDealEvent publishes a deal-scoped event (e.g. template_applied).
func (p *NotificationPublisher) PublishDealEvent(eventType, dealID, actorID string, payload map[string]interface{}) {
	p.publish(eventType, "deal", dealID, dealID, actorID, payload)
}

func (p *NotificationPublisher) publish(eventType, resourceType, resourceID, dealID, actorID string, payload map[string]interface{}) {
	if p.conn == nil {
		return
	}

	event := &NotificationEvent{
		EventType:    eventType,
		DealID:       dealID,
		ActorID:      actorID,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Severity:     "info",
		Category:     "diligence",
		Payload:      payload,
	}

	data, err := json.Marshal(event)
	if err != nil {
		p.log.Warn().Err(err).Str("event_type", eventType).Msg("notification: failed to marshal event")
		return
	}

	subject := fmt.Sprintf("notifications.dd.%s", eventType)
	if err := p.conn.Publish(subject, data); err != nil {
		p.log.Warn().Err(err).
			Str("subject", subject).
			Str("resource_id", resourceID).
			Msg("notification: failed to publish NATS event (non-fatal)")
		return
	}

	p.log.Debug().
		Str("subject", subject).
		Str("resource_id", resourceID).
		Msg("notification: event published")
}
