package queue

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/streadway/amqp"
	"go.uber.org/zap"
)

const retryHeader = "x-retry-count"

// AMQPQueue publishes events to one durable queue and consumes work from named queues.
type AMQPQueue struct {
	conn        *amqp.Connection
	ch          *amqp.Channel
	mu          sync.Mutex
	eventsQueue string
	maxRetries  int
	logger      *zap.Logger
}

var _ Queue = (*AMQPQueue)(nil)

// DialAMQP connects and declares the events queue.
func DialAMQP(url, eventsQueue string, logger *zap.Logger) (*AMQPQueue, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("connect to amqp: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open amqp channel: %w", err)
	}

	q := &AMQPQueue{conn: conn, ch: ch, eventsQueue: eventsQueue, maxRetries: 3, logger: logger.Named("amqp")}
	if err := q.declare(eventsQueue); err != nil {
		_ = q.Close()
		return nil, err
	}
	return q, nil
}

func (q *AMQPQueue) declare(name string) error {
	_, err := q.ch.QueueDeclare(
		name,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("declare queue %s: %w", name, err)
	}
	return nil
}

// Publish sends payload as JSON to the events queue; the topic travels in the message type.
func (q *AMQPQueue) Publish(topic string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", topic, err)
	}
	return q.publish(q.eventsQueue, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Type:         topic,
		Timestamp:    time.Now(),
		Body:         body,
	})
}

func (q *AMQPQueue) publish(queueName string, msg amqp.Publishing) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if err := q.ch.Publish("", queueName, false, false, msg); err != nil {
		return fmt.Errorf("publish to %s: %w", queueName, err)
	}
	return nil
}

// Subscribe consumes the queue named topic and calls handler with each message body ([]byte).
// A failing message is republished with an incremented retry header and dropped after maxRetries.
func (q *AMQPQueue) Subscribe(topic string, handler func(payload any) error) error {
	if err := q.declare(topic); err != nil {
		return err
	}

	q.mu.Lock()
	msgs, err := q.ch.Consume(
		topic,
		"",
		false, // autoAck = false for reliability
		false,
		false,
		false,
		nil,
	)
	q.mu.Unlock()
	if err != nil {
		return fmt.Errorf("consume %s: %w", topic, err)
	}

	go func() {
		for d := range msgs {
			q.handle(topic, d, handler)
		}
		q.logger.Info("consumer stopped", zap.String("queue", topic))
	}()
	return nil
}

func (q *AMQPQueue) handle(topic string, d amqp.Delivery, handler func(payload any) error) {
	err := handler(d.Body)
	if err == nil {
		_ = d.Ack(false)
		return
	}

	retries := retryCount(d.Headers)
	if retries >= q.maxRetries {
		q.logger.Error("message permanently failed", zap.String("queue", topic), zap.Int("attempts", retries+1), zap.Error(err))
		_ = d.Ack(false)
		return
	}

	headers := amqp.Table{}
	for k, v := range d.Headers {
		headers[k] = v
	}
	headers[retryHeader] = int32(retries + 1)
	q.logger.Warn("message failed, requeueing", zap.String("queue", topic), zap.Int("attempt", retries+1), zap.Error(err))

	if pubErr := q.publish(topic, amqp.Publishing{
		ContentType:  d.ContentType,
		DeliveryMode: amqp.Persistent,
		Type:         d.Type,
		Headers:      headers,
		Body:         d.Body,
	}); pubErr != nil {
		_ = d.Nack(false, true)
		return
	}
	_ = d.Ack(false)
}

func retryCount(headers amqp.Table) int {
	switch v := headers[retryHeader].(type) {
	case int32:
		return int(v)
	case int64:
		return int(v)
	case int:
		return v
	default:
		return 0
	}
}

func (q *AMQPQueue) Close() error {
	if q.ch != nil {
		_ = q.ch.Close()
	}
	return q.conn.Close()
}
