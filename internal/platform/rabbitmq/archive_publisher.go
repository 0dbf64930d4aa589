package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"studymate/internal/model"
)

// ArchivePublisher sends finalized chat messages to the archive queue.
type ArchivePublisher struct {
	conn  *amqp.Connection
	queue string
}

func NewArchivePublisher(conn *amqp.Connection, queue string) *ArchivePublisher {
	return &ArchivePublisher{conn: conn, queue: queue}
}

func (p *ArchivePublisher) Publish(ctx context.Context, msg model.ArchivedMessage) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal archived message failed: %w", err)
	}

	// channels are not safe for concurrent use; one per publish
	ch, err := p.conn.Channel()
	if err != nil {
		return fmt.Errorf("open rabbitmq channel failed: %w", err)
	}
	defer ch.Close()

	err = ch.PublishWithContext(ctx, "", p.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		MessageId:    msg.MessageID,
		Timestamp:    msg.Timestamp,
		Type:         "chat.message.final",
		Body:         payload,
		DeliveryMode: amqp.Persistent,
	})
	if err != nil {
		return fmt.Errorf("publish archived message failed: %w", err)
	}
	return nil
}
