// Package queue carries processing jobs over RabbitMQ. Every work queue
// has a _retry queue that dead-letters back after a delay and a _dlq for
// messages that keep failing.
package queue

import (
	"fmt"
	"net/url"
	"time"

	"github.com/smartsum/backend/internal/config"

	"github.com/rabbitmq/amqp091-go"
)

// RetryDelay is how long a failed message waits in the retry queue.
const RetryDelay = 10 * time.Second

// Publisher is the publishing side of an AMQP channel.
type Publisher interface {
	Publish(exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
}

// URL builds the AMQP URL from the queue settings.
func URL(cfg config.QueueConfig) string {
	u := url.URL{
		Scheme: "amqp",
		Host:   cfg.Host + ":" + cfg.Port,
		Path:   "/",
	}
	if cfg.User != "" {
		u.User = url.UserPassword(cfg.User, cfg.Password)
	}
	return u.String()
}

// Connect dials RabbitMQ.
func Connect(cfg config.QueueConfig) (*amqp091.Connection, error) {
	conn, err := amqp091.Dial(URL(cfg))
	if err != nil {
		return nil, fmt.Errorf("connect to rabbitmq at %s:%s: %w", cfg.Host, cfg.Port, err)
	}
	return conn, nil
}

// SetupQueues declares every queue in names with its retry and dead-letter
// companions.
func SetupQueues(ch *amqp091.Channel, names ...string) error {
	for _, name := range names {
		if _, err := ch.QueueDeclare(
			name,
			true,  // durable
			false, // autoDelete
			false, // exclusive
			false, // noWait
			nil,   // args
		); err != nil {
			return fmt.Errorf("declare %s: %w", name, err)
		}

		dlqName := DeadLetterQueue(name)
		if _, err := ch.QueueDeclare(dlqName, true, false, false, false, nil); err != nil {
			return fmt.Errorf("declare %s: %w", dlqName, err)
		}

		retryName := RetryQueue(name)
		if _, err := ch.QueueDeclare(
			retryName,
			true,
			false,
			false,
			false,
			amqp091.Table{
				"x-message-ttl":             int32(RetryDelay / time.Millisecond),
				"x-dead-letter-exchange":    "",
				"x-dead-letter-routing-key": name,
			},
		); err != nil {
			return fmt.Errorf("declare %s: %w", retryName, err)
		}
	}
	return nil
}

func RetryQueue(name string) string {
	return name + "_retry"
}

func DeadLetterQueue(name string) string {
	return name + "_dlq"
}

// PublishFIFO publishes a persistent message to queueName on the default
// exchange.
func PublishFIFO(p Publisher, queueName string, data []byte) error {
	return p.Publish(
		"",
		queueName,
		false,
		false,
		amqp091.Publishing{
			ContentType:  "application/json",
			Body:         data,
			DeliveryMode: amqp091.Persistent,
			Timestamp:    time.Now(),
		},
	)
}
