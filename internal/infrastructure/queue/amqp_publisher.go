package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"github.com/assetverse/asset-system/internal/core/ports"
)

const decisionQueueName = "request.decided"

// AMQPPublisher publishes decision events to RabbitMQ. The queue is durable
// and messages are persistent, so notification consumers can replay after a
// broker restart.
type AMQPPublisher struct {
	ch  *amqp.Channel
	log zerolog.Logger
}

// NewAMQPPublisher dials the broker, declares the decision queue, and
// returns a publisher bound to a single channel.
func NewAMQPPublisher(url string, log zerolog.Logger) (*AMQPPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("amqp dial: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("amqp channel: %w", err)
	}

	if _, err := ch.QueueDeclare(
		decisionQueueName,
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,
	); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("amqp queue declare: %w", err)
	}

	return &AMQPPublisher{ch: ch, log: log}, nil
}

type decisionMessage struct {
	RequestID string    `json:"request_id"`
	AssetID   string    `json:"asset_id"`
	AssetName string    `json:"asset_name"`
	UserEmail string    `json:"user_email"`
	HREmail   string    `json:"hr_email"`
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// Publish sends one decision event to the decision queue.
func (p *AMQPPublisher) Publish(ctx context.Context, event ports.DecisionEvent) error {
	body, err := json.Marshal(decisionMessage{
		RequestID: event.RequestID,
		AssetID:   event.AssetID,
		AssetName: event.AssetName,
		UserEmail: event.UserEmail,
		HREmail:   event.HREmail,
		Status:    event.Status,
		Timestamp: event.Timestamp,
	})
	if err != nil {
		return fmt.Errorf("marshal decision event: %w", err)
	}

	return p.ch.PublishWithContext(ctx,
		"",                // default exchange
		decisionQueueName, // routing key = queue name
		false,             // mandatory
		false,             // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    event.Timestamp,
			Body:         body,
		},
	)
}
