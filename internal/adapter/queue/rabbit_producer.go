package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lavanya11112/SEPROJECT/internal/usecase"
	amqp "github.com/rabbitmq/amqp091-go"
)

const DefaultExchange = "restaurant.events"

// Binding routes one routing key into a durable queue on the exchange.
type Binding struct {
	Queue      string
	RoutingKey string
}

// confirmChannel is the part of *amqp.Channel the publisher uses.
type confirmChannel interface {
	PublishWithDeferredConfirmWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) (*amqp.DeferredConfirmation, error)
}

// RabbitPublisher implements usecase.EventPublisher on a topic exchange with
// publisher confirms.
type RabbitPublisher struct {
	ch       confirmChannel
	exchange string
}

// NewRabbitPublisher sets up the exchange, queues and bindings once at startup.
func NewRabbitPublisher(ch *amqp.Channel, exchange string, bindings ...Binding) (*RabbitPublisher, error) {
	if exchange == "" {
		exchange = DefaultExchange
	}

	// 1. declare exchange (topic type, durable)
	if err := ch.ExchangeDeclare(
		exchange,
		"topic",
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		return nil, fmt.Errorf("declare exchange: %w", err)
	}

	// 2. declare queues and bind them
	for _, b := range bindings {
		q, err := ch.QueueDeclare(b.Queue, true, false, false, false, nil)
		if err != nil {
			return nil, fmt.Errorf("declare queue %s: %w", b.Queue, err)
		}
		if err := ch.QueueBind(q.Name, b.RoutingKey, exchange, false, nil); err != nil {
			return nil, fmt.Errorf("bind queue %s: %w", b.Queue, err)
		}
	}

	// 3. enable publisher confirms
	if err := ch.Confirm(false); err != nil {
		return nil, fmt.Errorf("enable confirm mode: %w", err)
	}

	return &RabbitPublisher{ch: ch, exchange: exchange}, nil
}

// Publish marshals msg to JSON and sends it with routingKey.
func (p *RabbitPublisher) Publish(ctx context.Context, routingKey string, msg any) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	return p.PublishRaw(ctx, routingKey, body)
}

// PublishRaw sends an already encoded JSON body and waits for the broker ack.
func (p *RabbitPublisher) PublishRaw(ctx context.Context, routingKey string, body []byte) error {
	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent, // survive broker restarts
		Body:         body,
	}

	dc, err := p.ch.PublishWithDeferredConfirmWithContext(ctx, p.exchange, routingKey, false, false, pub)
	if err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	if dc == nil {
		return nil // channel not in confirm mode
	}
	acked, err := dc.WaitContext(ctx)
	if err != nil {
		return fmt.Errorf("wait confirm: %w", err)
	}
	if !acked {
		return errors.New("publish nacked by broker")
	}
	return nil
}

var _ usecase.EventPublisher = (*RabbitPublisher)(nil)
