package services

import (
	"encoding/json"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"projectwatch/internal/models"
)

// User lifecycle event types.
const (
	EventUserCreated = "user.created"
	EventUserUpdated = "user.updated"
	EventUserDeleted = "user.deleted"
)

// UserEvent is published after a user change has been committed.
type UserEvent struct {
	Type       string    `json:"type"`
	UserID     uint      `json:"user_id"`
	Username   string    `json:"username"`
	OccurredAt time.Time `json:"occurred_at"`
}

func newUserEvent(eventType string, u *models.User) UserEvent {
	return UserEvent{Type: eventType, UserID: u.ID, Username: u.Username, OccurredAt: time.Now().UTC()}
}

// EventPublisher delivers user lifecycle events.
type EventPublisher interface {
	Publish(event UserEvent) error
}

// NoopPublisher drops every event. It is used when no broker is configured.
type NoopPublisher struct{}

func (NoopPublisher) Publish(UserEvent) error { return nil }

// Broker is the transport a BrokerPublisher writes to, e.g. *rabbitmq.Client.
type Broker interface {
	Publish(routingKey string, body []byte) error
}

// BrokerPublisher encodes events as JSON and hands them to a Broker, keyed by
// event type.
type BrokerPublisher struct {
	broker Broker
}

func NewBrokerPublisher(broker Broker) *BrokerPublisher {
	return &BrokerPublisher{broker: broker}
}

func (p *BrokerPublisher) Publish(event UserEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal %s event: %w", event.Type, err)
	}
	return p.broker.Publish(event.Type, body)
}

// publishBestEffort never fails the caller: the change it reports is already
// committed.
func publishBestEffort(p EventPublisher, event UserEvent) {
	if err := p.Publish(event); err != nil {
		log.WithError(err).WithFields(log.Fields{
			"event":   event.Type,
			"user_id": event.UserID,
		}).Warn("Failed to publish user event")
	}
}
