// Package queue carries ingestion jobs over RabbitMQ.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Waqasabid99/agiAI/internal/domain"
	amqp "github.com/rabbitmq/amqp091-go"
)

const DefaultQueueName = "agiai.ingest"

// Dial connects to the broker and checks that a channel can be opened.
func Dial(ctx context.Context, url string) (*amqp.Connection, error) {
	conn, err := amqp.DialConfig(url, amqp.Config{
		Heartbeat: 10 * time.Second,
		Dial:      amqp.DefaultDial(5 * time.Second),
	})
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq failed: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open rabbitmq channel failed: %w", err)
	}
	_ = ch.Close()

	if err := ctx.Err(); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return conn, nil
}

func declare(ch *amqp.Channel, name string) error {
	_, err := ch.QueueDeclare(
		name,
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,
	)
	if err != nil {
		return fmt.Errorf("declare queue %s failed: %w", name, err)
	}
	return nil
}

// Publisher sends ingestion jobs as persistent JSON messages.
type Publisher struct {
	conn      *amqp.Connection
	queueName string
}

func NewPublisher(conn *amqp.Connection, queueName string) *Publisher {
	if queueName == "" {
		queueName = DefaultQueueName
	}
	return &Publisher{conn: conn, queueName: queueName}
}

func (p *Publisher) PublishIngestJob(ctx context.Context, job *domain.IngestJob) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal ingest job failed: %w", err)
	}

	ch, err := p.conn.Channel()
	if err != nil {
		return fmt.Errorf("open rabbitmq channel failed: %w", err)
	}
	defer ch.Close()

	if err := declare(ch, p.queueName); err != nil {
		return err
	}

	if err := ch.PublishWithContext(ctx, "", p.queueName, false, false, amqp.Publishing{
		ContentType:  "application/json",
		MessageId:    job.ID,
		Timestamp:    job.CreatedAt,
		Body:         payload,
		DeliveryMode: amqp.Persistent,
	}); err != nil {
		return fmt.Errorf("publish ingest job failed: %w", err)
	}
	return nil
}

// Delivery is one received message that must be acknowledged exactly once.
type Delivery interface {
	Body() []byte
	Ack() error
	Nack(requeue bool) error
}

type amqpDelivery struct {
	d amqp.Delivery
}

func (a amqpDelivery) Body() []byte            { return a.d.Body }
func (a amqpDelivery) Ack() error              { return a.d.Ack(false) }
func (a amqpDelivery) Nack(requeue bool) error { return a.d.Nack(false, requeue) }

// Subscriber consumes the ingestion queue with manual acknowledgement.
type Subscriber struct {
	conn      *amqp.Connection
	queueName string
	prefetch  int
}

func NewSubscriber(conn *amqp.Connection, queueName string, prefetch int) *Subscriber {
	if queueName == "" {
		queueName = DefaultQueueName
	}
	if prefetch <= 0 {
		prefetch = 1
	}
	return &Subscriber{conn: conn, queueName: queueName, prefetch: prefetch}
}

// Subscribe starts consuming. The returned channel is closed when ctx is done or
// the broker closes the consumer.
func (s *Subscriber) Subscribe(ctx context.Context) (<-chan Delivery, error) {
	ch, err := s.conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open consumer channel failed: %w", err)
	}
	if err := declare(ch, s.queueName); err != nil {
		_ = ch.Close()
		return nil, err
	}
	if err := ch.Qos(s.prefetch, 0, false); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("set prefetch failed: %w", err)
	}

	raw, err := ch.Consume(s.queueName, "", false, false, false, false, nil)
	if err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("consume queue failed: %w", err)
	}

	out := make(chan Delivery)
	go func() {
		defer close(out)
		defer ch.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case d, ok := <-raw:
				if !ok {
					return
				}
				select {
				case out <- amqpDelivery{d: d}:
				case <-ctx.Done():
					_ = d.Nack(false, true)
					return
				}
			}
		}
	}()
	return out, nil
}
