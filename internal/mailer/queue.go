package mailer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

// Queue publishes messages to a durable RabbitMQ queue for the email worker.
// Send succeeds once the broker has the message, not when it is delivered.
type Queue struct {
	conn  *amqp.Connection
	ch    *amqp.Channel
	Queue string
}

func NewQueue(url, queue string) (*Queue, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	if err := declareQueues(ch, queue); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}
	return &Queue{conn: conn, ch: ch, Queue: queue}, nil
}

// DeadLetterQueue names the queue that receives jobs the worker gave up on.
func DeadLetterQueue(queue string) string { return queue + ".dead" }

// declareQueues declares the durable job queue and its dead-letter queue.
// Publisher and worker must declare them with identical arguments.
func declareQueues(ch *amqp.Channel, queue string) error {
	if _, err := ch.QueueDeclare(DeadLetterQueue(queue), true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare %s: %w", DeadLetterQueue(queue), err)
	}
	args := amqp.Table{
		"x-dead-letter-exchange":    "",
		"x-dead-letter-routing-key": DeadLetterQueue(queue),
	}
	if _, err := ch.QueueDeclare(queue, true, false, false, false, args); err != nil {
		return fmt.Errorf("declare %s: %w", queue, err)
	}
	return nil
}

func (q *Queue) Close() {
	if q == nil {
		return
	}
	if q.ch != nil {
		_ = q.ch.Close()
	}
	if q.conn != nil {
		_ = q.conn.Close()
	}
}

func (q *Queue) Send(ctx context.Context, msg Message) error {
	b, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return q.ch.PublishWithContext(ctx,
		"",      // default exchange
		q.Queue, // routing key = queue
		false,   // mandatory
		false,   // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now().UTC(),
			Body:         b,
		},
	)
}

// Delivery is the subset of amqp.Delivery the consumer acknowledges through.
type Delivery interface {
	Ack(multiple bool) error
	Nack(multiple, requeue bool) error
}

// Handle decodes one queued message and delivers it through sender.
// Malformed payloads are dead-lettered. A failed send is requeued once; a
// failure on a redelivered message is dead-lettered.
func Handle(ctx context.Context, body []byte, redelivered bool, d Delivery, sender Mailer, logger *logrus.Logger) error {
	var msg Message
	if err := json.Unmarshal(body, &msg); err != nil {
		logger.WithError(err).Warn("dropping malformed email job")
		_ = d.Nack(false, false)
		return fmt.Errorf("decode email job: %w", err)
	}
	c, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	if err := sender.Send(c, msg); err != nil {
		entry := logger.WithError(err).WithFields(logrus.Fields{"to": msg.To, "redelivered": redelivered})
		if redelivered {
			entry.Error("email delivery failed, dead-lettering")
			_ = d.Nack(false, false)
			return err
		}
		entry.Warn("email delivery failed, requeueing once")
		_ = d.Nack(false, true)
		return err
	}
	logger.WithField("to", msg.To).Info("email delivered")
	return d.Ack(false)
}

// Consume delivers queued messages until ctx is cancelled or the channel closes.
func Consume(ctx context.Context, url, queue string, sender Mailer, logger *logrus.Logger) error {
	conn, err := amqp.Dial(url)
	if err != nil {
		return fmt.Errorf("amqp dial: %w", err)
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("amqp channel: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(16, 0, false); err != nil {
		return fmt.Errorf("qos: %w", err)
	}
	if err := declareQueues(ch, queue); err != nil {
		return err
	}
	msgs, err := ch.Consume(queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume: %w", err)
	}

	logger.WithField("queue", queue).Info("email worker listening")
	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-msgs:
			if !ok {
				return nil
			}
			_ = Handle(ctx, d.Body, d.Redelivered, d, sender, logger)
		}
	}
}
