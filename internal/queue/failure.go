package queue

import (
	"errors"

	"github.com/smartsum/backend/pkg/ai"
	"github.com/smartsum/backend/pkg/logger"
	"github.com/smartsum/backend/pkg/notes"

	"github.com/rabbitmq/amqp091-go"
)

// MaxRetries is how often a message is retried before it is dead-lettered.
const MaxRetries = 10

const retriesHeader = "x-retries"

type permanentError struct{ err error }

func (e permanentError) Error() string { return e.err.Error() }
func (e permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return permanentError{err: err}
}

// IsPermanent reports whether retrying err cannot succeed: malformed
// messages, rejected credentials and empty input.
func IsPermanent(err error) bool {
	var p permanentError
	return errors.As(err, &p) || ai.IsFatal(err) || errors.Is(err, notes.ErrEmptyInput)
}

// Retries reads the retry count header of msg.
func Retries(msg amqp091.Delivery) int {
	switch v := msg.Headers[retriesHeader].(type) {
	case int32:
		return int(v)
	case int64:
		return int(v)
	case int:
		return v
	}
	return 0
}

// HandleFailure routes a failed message to the retry queue, or to the
// dead-letter queue when err is permanent or the retries are used up. The
// original delivery is acked once the copy is published and nacked with
// requeue otherwise.
func HandleFailure(p Publisher, msg amqp091.Delivery, queueName string, err error) {
	retries := Retries(msg)

	target := RetryQueue(queueName)
	if IsPermanent(err) || retries >= MaxRetries {
		target = DeadLetterQueue(queueName)
	}

	headers := amqp091.Table{}
	for k, v := range msg.Headers {
		headers[k] = v
	}
	headers[retriesHeader] = int32(retries + 1)
	if err != nil {
		headers["x-last-error"] = err.Error()
	}

	logger.Info("[Queue] Rerouting failed message", "queue", target, "retries", retries)
	pubErr := p.Publish(
		"",
		target,
		false,
		false,
		amqp091.Publishing{
			ContentType:  msg.ContentType,
			Body:         msg.Body,
			Headers:      headers,
			DeliveryMode: amqp091.Persistent,
		},
	)
	if pubErr != nil {
		logger.Error("[Queue] Failed to publish failed message", "queue", target, "err", pubErr)
		_ = msg.Nack(false, true)
		return
	}
	_ = msg.Ack(false)
}
