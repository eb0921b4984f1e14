package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Event announces a feedback write after it has been committed.
type Event struct {
	Action     string    `json:"action"` // created, updated, deleted
	SessionID  uint      `json:"sessionId"`
	CaseID     uint      `json:"caseId"`
	FeedbackID uint      `json:"feedbackId"`
	TesterID   uint      `json:"testerId"`
	Result     string    `json:"result,omitempty"`
	CaseStatus string    `json:"caseStatus"`
	At         time.Time `json:"at"`
}

// Publisher delivers feedback events.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
	Close()
}

// FeedbackPublisher publishes events as JSON to <topic>/sessions/<sessionID>.
type FeedbackPublisher struct {
	client Client
	topic  string
}

// NewFeedbackPublisher creates a publisher over a connected client.
func NewFeedbackPublisher(client Client, topic string) *FeedbackPublisher {
	return &FeedbackPublisher{client: client, topic: topic}
}

// Topic returns the topic events for a session are published to.
func (p *FeedbackPublisher) Topic(sessionID uint) string {
	return fmt.Sprintf("%s/sessions/%d", p.topic, sessionID)
}

// Publish encodes and sends ev.
func (p *FeedbackPublisher) Publish(ctx context.Context, ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to encode feedback event: %w", err)
	}
	return p.client.Publish(ctx, p.Topic(ev.SessionID), payload)
}

// Close disconnects the underlying client.
func (p *FeedbackPublisher) Close() {
	p.client.Disconnect()
}

// NopPublisher discards events. It is used when MQTT is disabled.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }

func (NopPublisher) Close() {}
