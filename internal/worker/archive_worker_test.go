package worker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"studymate/internal/model"
)

type ackRecorder struct {
	acked   int
	nacked  int
	requeue bool
}

func (a *ackRecorder) Ack(uint64, bool) error { a.acked++; return nil }

func (a *ackRecorder) Nack(_ uint64, _ bool, requeue bool) error {
	a.nacked++
	a.requeue = requeue
	return nil
}

func (a *ackRecorder) Reject(_ uint64, requeue bool) error {
	a.nacked++
	a.requeue = requeue
	return nil
}

type sinkFunc func(ctx context.Context, msg *model.ArchivedMessage) error

func (f sinkFunc) Save(ctx context.Context, msg *model.ArchivedMessage) error { return f(ctx, msg) }

func delivery(t *testing.T, ack amqp.Acknowledger, body any, redelivered bool) amqp.Delivery {
	t.Helper()
	raw, ok := body.([]byte)
	if !ok {
		var err error
		raw, err = json.Marshal(body)
		require.NoError(t, err)
	}
	return amqp.Delivery{Acknowledger: ack, Body: raw, Redelivered: redelivered}
}

func TestHandleStoresAndAcks(t *testing.T) {
	var saved []model.ArchivedMessage
	w := NewArchiveWorker(nil, sinkFunc(func(_ context.Context, msg *model.ArchivedMessage) error {
		saved = append(saved, *msg)
		return nil
	}), "q", zap.NewNop())

	ack := &ackRecorder{}
	ts := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	w.handle(context.Background(), delivery(t, ack, model.ArchivedMessage{
		MessageID: "m1", ConversationID: "c1", OwnerID: "guest", Role: "model", Text: "תשובה", Timestamp: ts,
	}, false))

	assert.Equal(t, 1, ack.acked)
	require.Len(t, saved, 1)
	assert.Equal(t, "תשובה", saved[0].Text)
	assert.True(t, ts.Equal(saved[0].Timestamp))
}

func TestHandleDropsUndecodable(t *testing.T) {
	w := NewArchiveWorker(nil, sinkFunc(func(context.Context, *model.ArchivedMessage) error {
		t.Fatal("sink must not be called")
		return nil
	}), "q", nil)

	ack := &ackRecorder{}
	w.handle(context.Background(), delivery(t, ack, []byte("{not json"), false))
	assert.Equal(t, 1, ack.nacked)
	assert.False(t, ack.requeue)

	ack = &ackRecorder{}
	w.handle(context.Background(), delivery(t, ack, map[string]string{"text": "no id"}, false))
	assert.Equal(t, 1, ack.nacked)
}

func TestHandleRequeuesStoreFailureOnce(t *testing.T) {
	w := NewArchiveWorker(nil, sinkFunc(func(context.Context, *model.ArchivedMessage) error {
		return errors.New("db down")
	}), "q", nil)
	msg := model.ArchivedMessage{MessageID: "m1"}

	ack := &ackRecorder{}
	w.handle(context.Background(), delivery(t, ack, msg, false))
	assert.Equal(t, 1, ack.nacked)
	assert.True(t, ack.requeue)

	ack = &ackRecorder{}
	w.handle(context.Background(), delivery(t, ack, msg, true))
	assert.Equal(t, 1, ack.nacked)
	assert.False(t, ack.requeue)
}
