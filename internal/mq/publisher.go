package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/shaiso/Conductor/internal/domain"
)

// MessageType — тип события в обменнике.
type MessageType string

// Типы событий.
const (
	MessageTypeJobState MessageType = "job.state"
	MessageTypeJobLog   MessageType = "job.log"
)

// Publisher публикует события jobs в RabbitMQ.
type Publisher struct {
	conn   *Connection
	logger *slog.Logger
}

// NewPublisher создаёт новый Publisher.
func NewPublisher(conn *Connection, logger *slog.Logger) *Publisher {
	return &Publisher{
		conn:   conn,
		logger: logger,
	}
}

// Message — событие для публикации.
type Message struct {
	// ID — уникальный идентификатор события.
	ID string `json:"id"`

	// Type — тип события.
	Type MessageType `json:"type"`

	// JobID — job, к которому относится событие.
	JobID string `json:"job_id"`

	// Payload — полезная нагрузка.
	Payload any `json:"payload"`

	// Timestamp — время публикации.
	Timestamp time.Time `json:"timestamp"`
}

// JobStatePayload — payload события перехода состояния.
type JobStatePayload struct {
	State domain.JobState `json:"state"`
}

// JobLogPayload — payload события записи лога.
type JobLogPayload struct {
	Log domain.LogEvent `json:"log"`
}

// Publish публикует событие в обменник с routing key.
func (p *Publisher) Publish(ctx context.Context, routingKey RoutingKey, msg *Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	return p.conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		err := ch.PublishWithContext(
			ctx,
			string(ExchangeEvents), // exchange
			string(routingKey),     // routing key
			false,
			false,
			amqp.Publishing{
				ContentType:  "application/json",
				DeliveryMode: amqp.Persistent,
				MessageId:    msg.ID,
				Timestamp:    msg.Timestamp,
				Body:         body,
			},
		)
		if err != nil {
			return fmt.Errorf("publish to %s/%s: %w", ExchangeEvents, routingKey, err)
		}

		p.logger.Debug("published event",
			"routing_key", routingKey,
			"message_id", msg.ID,
			"job_id", msg.JobID,
			"type", msg.Type,
		)

		return nil
	})
}

// PublishJobState публикует переход состояния job.
func (p *Publisher) PublishJobState(ctx context.Context, jobID string, state domain.JobState) error {
	msg := &Message{
		ID:        uuid.New().String(),
		Type:      MessageTypeJobState,
		JobID:     jobID,
		Payload:   JobStatePayload{State: state},
		Timestamp: time.Now(),
	}

	return p.Publish(ctx, RoutingKeyJobState, msg)
}

// PublishJobLog публикует запись лога job.
func (p *Publisher) PublishJobLog(ctx context.Context, jobID string, ev domain.LogEvent) error {
	msg := &Message{
		ID:        uuid.New().String(),
		Type:      MessageTypeJobLog,
		JobID:     jobID,
		Payload:   JobLogPayload{Log: ev},
		Timestamp: time.Now(),
	}

	return p.Publish(ctx, RoutingKeyJobLog, msg)
}
