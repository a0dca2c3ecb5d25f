package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// NotificationMessage is the JSON body published for each notification
type NotificationMessage struct {
	UserID  uuid.UUID `json:"user_id"`
	Subject string    `json:"subject"`
	Message string    `json:"message"`
	URL     string    `json:"url,omitempty"`
	SentAt  time.Time `json:"sent_at"`
}

// amqpPublisher is the part of *amqp.Channel the sink needs
type amqpPublisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// QueueNotificationSink publishes notifications to a durable RabbitMQ queue
// for out-of-process delivery (email, push)
type QueueNotificationSink struct {
	queue   string
	mu      sync.Mutex
	channel amqpPublisher
	conn    *amqp.Connection
}

// NewQueueNotificationSink dials the broker and declares the queue
func NewQueueNotificationSink(url, queue string) (*QueueNotificationSink, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open rabbitmq channel: %w", err)
	}

	if _, err := ch.QueueDeclare(
		queue, // name
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,   // args
	); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to declare queue %s: %w", queue, err)
	}

	return &QueueNotificationSink{queue: queue, channel: ch, conn: conn}, nil
}

// Notify publishes one persistent message
func (q *QueueNotificationSink) Notify(ctx context.Context, userID uuid.UUID, subject, message, url string) error {
	sentAt := time.Now().UTC()
	body, err := json.Marshal(NotificationMessage{
		UserID:  userID,
		Subject: subject,
		Message: message,
		URL:     url,
		SentAt:  sentAt,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	err = q.channel.PublishWithContext(ctx,
		"",      // default exchange
		q.queue, // routing key = queue name
		false,   // mandatory
		false,   // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    sentAt,
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish notification: %w", err)
	}
	return nil
}

// Close closes the broker connection
func (q *QueueNotificationSink) Close() error {
	if q.conn == nil {
		return nil
	}
	return q.conn.Close()
}
