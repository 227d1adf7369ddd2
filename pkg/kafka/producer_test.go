package kafka

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/InventoryGo/pkg/logger"
)

type recordingWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *recordingWriter) Close() error {
	w.closed = true
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelError}))
}

// --- Event ---

func TestNewEvent_Fields(t *testing.T) {
	type stockData struct {
		ProductID string `json:"product_id"`
		Quantity  int    `json:"quantity"`
	}

	event, err := NewEvent("inventory.stock.changed", "p-1", "stock", "inventory", stockData{"p-1", 30})
	require.NoError(t, err)

	assert.NotEmpty(t, event.EventID)
	assert.Equal(t, "inventory.stock.changed", event.EventType)
	assert.Equal(t, "p-1", event.AggregateID)
	assert.Equal(t, 1, event.Version)
	assert.WithinDuration(t, time.Now().UTC(), event.Timestamp, 2*time.Second)

	var decoded stockData
	require.NoError(t, event.UnmarshalData(&decoded))
	assert.Equal(t, 30, decoded.Quantity)
}

func TestNewEvent_InvalidData(t *testing.T) {
	_, err := NewEvent("x", "a", "t", "s", make(chan int))
	require.Error(t, err)
}

func TestEvent_StampCopiesRequestIdentifiers(t *testing.T) {
	event, err := NewEvent("x", "a", "t", "s", nil)
	require.NoError(t, err)

	ctx := logger.WithActorID(logger.WithCorrelationID(context.Background(), "corr-1"), "user-7")
	same := event.Stamp(ctx)

	assert.Same(t, event, same)
	assert.Equal(t, "corr-1", event.CorrelationID)
	assert.Equal(t, "user-7", event.Metadata[MetaActorID])
}

func TestEvent_StampWithoutRequestLeavesMetadataEmpty(t *testing.T) {
	event, err := NewEvent("x", "a", "t", "s", nil)
	require.NoError(t, err)

	event.Stamp(context.Background())

	assert.Empty(t, event.CorrelationID)
	assert.Nil(t, event.Metadata)
	raw, err := json.Marshal(event)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "metadata")
}

// --- Producer ---

func TestProducer_Publish_KeysByAggregateAndSetsHeaders(t *testing.T) {
	w := &recordingWriter{}
	p := NewProducerWithWriter(w, []string{"localhost:9092"}, testLogger())

	event, err := NewEvent("inventory.stock.low", "p-1", "stock", "inventory", map[string]int{"quantity": 3})
	require.NoError(t, err)
	event.Stamp(logger.WithActorID(logger.WithCorrelationID(context.Background(), "corr-9"), "user-3"))

	require.NoError(t, p.Publish(context.Background(), "inventory.stock.low", event))
	require.Len(t, w.msgs, 1)

	msg := w.msgs[0]
	assert.Equal(t, "inventory.stock.low", msg.Topic)
	assert.Equal(t, []byte("p-1"), msg.Key)

	carrier := headerCarrier{msg: &msg}
	assert.Equal(t, "inventory.stock.low", carrier.Get("event_type"))
	assert.Equal(t, "corr-9", carrier.Get("correlation_id"))
	assert.Equal(t, "user-3", carrier.Get(MetaActorID))

	decoded, err := UnmarshalEvent(msg.Value)
	require.NoError(t, err)
	assert.Equal(t, event.EventID, decoded.EventID)
	assert.Equal(t, "user-3", decoded.Metadata[MetaActorID])
}

func TestProducer_Publish_WriterError(t *testing.T) {
	w := &recordingWriter{err: errors.New("leader not available")}
	p := NewProducerWithWriter(w, nil, testLogger())

	event, err := NewEvent("x", "a", "t", "s", nil)
	require.NoError(t, err)

	err = p.Publish(context.Background(), "topic", event)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "publish event to topic")
}

func TestProducer_PingWithoutBrokers(t *testing.T) {
	p := NewProducerWithWriter(&recordingWriter{}, nil, testLogger())
	assert.Error(t, p.Ping(context.Background()))
}

func TestProducer_Close(t *testing.T) {
	w := &recordingWriter{}
	p := NewProducerWithWriter(w, nil, testLogger())
	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}
