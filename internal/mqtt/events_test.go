package mqtt

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quicktest-hq/quicktest/internal/errors"
)

type message struct {
	topic   string
	payload []byte
}

type fakeClient struct {
	mu           sync.Mutex
	connected    bool
	messages     []message
	publishErr   error
	disconnected bool
}

func (f *fakeClient) Connect(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connected = true
	return nil
}

func (f *fakeClient) Publish(_ context.Context, topic string, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.publishErr != nil {
		return f.publishErr
	}
	f.messages = append(f.messages, message{topic, payload})
	return nil
}

func (f *fakeClient) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

func (f *fakeClient) Disconnect() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connected = false
	f.disconnected = true
}

func TestFeedbackPublisherEncodesEvent(t *testing.T) {
	t.Parallel()

	fc := &fakeClient{connected: true}
	p := NewFeedbackPublisher(fc, "qa/feedback")

	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	err := p.Publish(context.Background(), Event{
		Action:     "created",
		SessionID:  3,
		CaseID:     7,
		FeedbackID: 42,
		TesterID:   5,
		Result:     "fail",
		CaseStatus: "fail",
		At:         at,
	})
	require.NoError(t, err)

	require.Len(t, fc.messages, 1)
	assert.Equal(t, "qa/feedback/sessions/3", fc.messages[0].topic)

	var decoded Event
	require.NoError(t, json.Unmarshal(fc.messages[0].payload, &decoded))
	assert.Equal(t, uint(42), decoded.FeedbackID)
	assert.Equal(t, "fail", decoded.CaseStatus)
	assert.True(t, at.Equal(decoded.At))

	p.Close()
	assert.True(t, fc.disconnected)
}

func TestFeedbackPublisherPropagatesErrors(t *testing.T) {
	t.Parallel()

	fc := &fakeClient{connected: true, publishErr: errors.NewStd("broker down")}
	p := NewFeedbackPublisher(fc, "qa")

	err := p.Publish(context.Background(), Event{SessionID: 1})
	assert.EqualError(t, err, "broker down")
}

func TestNopPublisher(t *testing.T) {
	t.Parallel()

	var p Publisher = NopPublisher{}
	assert.NoError(t, p.Publish(context.Background(), Event{}))
	p.Close()
}
