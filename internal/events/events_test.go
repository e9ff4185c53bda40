package events

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"testing"
	"time"

	"github.com/streadway/amqp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resumeforge/internal/config"
	"resumeforge/internal/errors"
)

type publishCall struct {
	exchange, key string
	msg           amqp.Publishing
}

type fakeChannel struct {
	calls  []publishCall
	err    error
	closed bool
}

func (f *fakeChannel) Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	if f.err != nil {
		return f.err
	}
	f.calls = append(f.calls, publishCall{exchange: exchange, key: key, msg: msg})
	return nil
}

func (f *fakeChannel) Close() error {
	f.closed = true
	return nil
}

func TestAMQPPublisherPublish(t *testing.T) {
	ch := &fakeChannel{}
	p := newAMQPPublisher(ch, config.EventsConfig{Exchange: "application_events", RoutingKey: "resumeforge"}, errors.NewNopLogger())

	score := 87
	at := time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)
	err := p.Publish(context.Background(), Event{
		Type:          TypeOptimized,
		ApplicationID: "id-1",
		CompanyName:   "Acme",
		Score:         &score,
		OccurredAt:    at,
	})
	require.NoError(t, err)
	require.Len(t, ch.calls, 1)

	call := ch.calls[0]
	assert.Equal(t, "application_events", call.exchange)
	assert.Equal(t, "resumeforge.optimized", call.key)
	assert.Equal(t, "application/json", call.msg.ContentType)
	assert.Equal(t, uint8(amqp.Persistent), call.msg.DeliveryMode)

	var body map[string]any
	require.NoError(t, json.Unmarshal(call.msg.Body, &body))
	assert.Equal(t, "optimized", body["type"])
	assert.Equal(t, "id-1", body["applicationId"])
	assert.Equal(t, float64(87), body["score"])
	assert.Equal(t, "2024-05-01T09:30:00Z", body["occurredAt"])
	assert.NotContains(t, body, "roleTitle")
}

func TestAMQPPublisherDefaults(t *testing.T) {
	ch := &fakeChannel{}
	p := newAMQPPublisher(ch, config.EventsConfig{Exchange: "x"}, errors.NewNopLogger())

	require.NoError(t, p.Publish(context.Background(), Event{Type: TypeUploaded, ApplicationID: "a"}))
	assert.Equal(t, "application.uploaded", ch.calls[0].key)
	assert.False(t, ch.calls[0].msg.Timestamp.IsZero())
}

func TestAMQPPublisherErrors(t *testing.T) {
	ch := &fakeChannel{err: stderrors.New("channel closed")}
	p := newAMQPPublisher(ch, config.EventsConfig{Exchange: "x"}, errors.NewNopLogger())

	err := p.Publish(context.Background(), Event{Type: TypeAnalyzed})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "channel closed")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, p.Publish(ctx, Event{Type: TypeAnalyzed}), context.Canceled)

	require.NoError(t, p.Close())
	assert.True(t, ch.closed)
}

func TestNewDisabled(t *testing.T) {
	p, err := New(config.EventsConfig{}, errors.NewNopLogger())
	require.NoError(t, err)
	assert.NoError(t, p.Publish(context.Background(), Event{Type: TypeUploaded}))
	assert.NoError(t, p.Close())
}
