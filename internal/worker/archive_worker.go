package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"studymate/internal/metrics"
	"studymate/internal/model"
)

// ArchiveSink stores archived messages.
type ArchiveSink interface {
	Save(ctx context.Context, msg *model.ArchivedMessage) error
}

// ArchiveWorker drains the archive queue into the sink.
type ArchiveWorker struct {
	conn   *amqp.Connection
	sink   ArchiveSink
	queue  string
	logger *zap.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewArchiveWorker(conn *amqp.Connection, sink ArchiveSink, queue string, logger *zap.Logger) *ArchiveWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ArchiveWorker{
		conn:   conn,
		sink:   sink,
		queue:  queue,
		logger: logger,
	}
}

func (w *ArchiveWorker) Start(ctx context.Context) error {
	if w.cancel != nil {
		return nil
	}

	ch, err := w.conn.Channel()
	if err != nil {
		return fmt.Errorf("open worker channel failed: %w", err)
	}
	if err := ch.Qos(16, 0, false); err != nil {
		_ = ch.Close()
		return fmt.Errorf("set worker qos failed: %w", err)
	}
	deliveries, err := ch.Consume(
		w.queue,
		"studymate-archive",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		_ = ch.Close()
		return fmt.Errorf("consume queue failed: %w", err)
	}

	workerCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer ch.Close()
		w.logger.Info("archive_worker_started", zap.String("queue", w.queue))

		for {
			select {
			case <-workerCtx.Done():
				return
			case d, ok := <-deliveries:
				if !ok {
					w.logger.Warn("archive_deliveries_closed")
					return
				}
				w.handle(workerCtx, d)
			}
		}
	}()
	return nil
}

// handle acks stored messages. Undecodable payloads are dropped; storage
// failures are requeued once.
func (w *ArchiveWorker) handle(ctx context.Context, d amqp.Delivery) {
	var msg model.ArchivedMessage
	if err := json.Unmarshal(d.Body, &msg); err != nil || msg.MessageID == "" {
		w.logger.Warn("archive_decode_failed", zap.Error(err), zap.String("delivery_id", d.MessageId))
		metrics.ArchivedMessages.WithLabelValues("store", "invalid").Inc()
		_ = d.Nack(false, false)
		return
	}

	saveCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := w.sink.Save(saveCtx, &msg); err != nil {
		w.logger.Error("archive_store_failed",
			zap.String("message", msg.MessageID),
			zap.Bool("redelivered", d.Redelivered),
			zap.Error(err),
		)
		metrics.ArchivedMessages.WithLabelValues("store", "error").Inc()
		_ = d.Nack(false, !d.Redelivered)
		return
	}

	metrics.ArchivedMessages.WithLabelValues("store", "ok").Inc()
	_ = d.Ack(false)
}

func (w *ArchiveWorker) Close() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
	w.logger.Info("archive_worker_stopped")
}
