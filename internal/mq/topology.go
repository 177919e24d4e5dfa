package mq

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Exchange — тип для имени обменника.
type Exchange string

// RoutingKey — тип для ключа маршрутизации.
type RoutingKey string

// ExchangeEvents — единственный обменник control-plane.
const ExchangeEvents Exchange = "conductor.events"

// Routing keys.
const (
	RoutingKeyJobState RoutingKey = "job.state"
	RoutingKeyJobLog   RoutingKey = "job.log"
)

// SetupTopology объявляет обменник событий.
//
// Очереди не объявляются: сервис не потребляет собственные события,
// каждый потребитель биндит свою очередь к conductor.events сам.
func SetupTopology(ctx context.Context, conn *Connection) error {
	return conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		err := ch.ExchangeDeclare(
			string(ExchangeEvents), // name
			"topic",                // type
			true,                   // durable
			false,                  // auto-deleted
			false,                  // internal
			false,                  // no-wait
			nil,                    // arguments
		)
		if err != nil {
			return fmt.Errorf("declare exchange %s: %w", ExchangeEvents, err)
		}
		return nil
	})
}
