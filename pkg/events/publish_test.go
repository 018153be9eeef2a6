package events

import (
	"context"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receiveOne(t *testing.T, ch <-chan *message.Message) *message.Message {
	t.Helper()
	select {
	case msg := <-ch:
		msg.Ack()
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("no message received")
		return nil
	}
}

func TestPublisherManagerFanOutAndSequencing(t *testing.T) {
	pubsub := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 16}, watermill.NopLogger{})
	defer func() { _ = pubsub.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch, err := pubsub.Subscribe(ctx, "run-events")
	require.NoError(t, err)

	manager := NewPublisherManager()
	manager.SubscribePublisher("run-events", pubsub)

	meta := EventMetadata{RunID: "run-1"}
	require.NoError(t, manager.PublishEvent(NewTextEvent(meta, "first", "")))
	require.NoError(t, manager.PublishEvent(NewFinishEvent(meta, 0)))

	first := receiveOne(t, ch)
	assert.Equal(t, "0", first.Metadata.Get("sequence_number"))
	assert.Equal(t, string(EventTypeText), first.Metadata.Get("event_type"))

	decoded, err := NewEventFromJSON(first.Payload)
	require.NoError(t, err)
	text, ok := decoded.(*EventText)
	require.True(t, ok)
	assert.Equal(t, "first", text.Text)
	assert.Equal(t, "run-1", text.Metadata().RunID)

	second := receiveOne(t, ch)
	assert.Equal(t, "1", second.Metadata.Get("sequence_number"))
	assert.Equal(t, string(EventTypeFinish), second.Metadata.Get("event_type"))
}

func TestPublishEventToContextFansOutToAllSinks(t *testing.T) {
	var a, b []Event
	ctx := WithEventSinks(context.Background(),
		SinkFunc(func(ev Event) error { a = append(a, ev); return nil }),
		SinkFunc(func(ev Event) error { b = append(b, ev); return nil }),
	)

	ev := NewTextEvent(EventMetadata{}, "hello", "")
	PublishEventToContext(ctx, ev)

	require.Len(t, a, 1)
	require.Len(t, b, 1)
	assert.Same(t, ev, a[0])
}

func TestPublishEventToContextWithoutSinksIsNoOp(t *testing.T) {
	assert.NotPanics(t, func() {
		PublishEventToContext(context.Background(), NewTextEvent(EventMetadata{}, "x", ""))
	})
}
