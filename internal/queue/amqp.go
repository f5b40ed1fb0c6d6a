package queue

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/streadway/amqp"
)

// AMQPQueue implements Queue on RabbitMQ with durable queues, manual acks
// and a bounded requeue (x-retry-count header, max 3) for failed handlers.
type AMQPQueue struct {
	conn *amqp.Connection
	ch   *amqp.Channel

	mu       sync.Mutex
	declared map[string]bool
}

func NewAMQPQueue(url string) (*AMQPQueue, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}
	return &AMQPQueue{conn: conn, ch: ch, declared: make(map[string]bool)}, nil
}

func (q *AMQPQueue) Close() {
	q.ch.Close()
	q.conn.Close()
}

func (q *AMQPQueue) declare(topic string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.declared[topic] {
		return nil
	}
	_, err := q.ch.QueueDeclare(
		topic,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return err
	}
	q.declared[topic] = true
	return nil
}

func (q *AMQPQueue) Publish(topic string, payload any) error {
	if err := q.declare(topic); err != nil {
		return err
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return q.publish(topic, body, nil)
}

func (q *AMQPQueue) publish(topic string, body []byte, headers amqp.Table) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.ch.Publish(
		"",
		topic,
		false,
		false,
		amqp.Publishing{
			ContentType: "application/json",
			Headers:     headers,
			Body:        body,
		},
	)
}

func (q *AMQPQueue) Subscribe(topic string, handler func(body []byte) error) error {
	if err := q.declare(topic); err != nil {
		return err
	}
	msgs, err := q.ch.Consume(
		topic,
		"",
		false, // autoAck = false for reliability
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return err
	}

	go func() {
		for d := range msgs {
			if err := handler(d.Body); err != nil {
				log.Printf("⚠️ %s handler failed: %v\n", topic, err)
				attempts := retryCount(d.Headers)
				if attempts < maxHandlerRetries {
					// Nack would redeliver with the old header, so the bound
					// is enforced by republishing with the count incremented.
					if perr := q.publish(topic, d.Body, amqp.Table{retryCountHeader: int32(attempts + 1)}); perr != nil {
						log.Printf("⚠️ failed to requeue %s message: %v\n", topic, perr)
						d.Nack(false, true)
						continue
					}
				} else {
					log.Printf("🚨 %s message dropped after %d failed attempts\n", topic, attempts+1)
				}
			}
			d.Ack(false)
		}
	}()
	return nil
}

const (
	retryCountHeader  = "x-retry-count"
	maxHandlerRetries = 3
)

// retryCount reads the retry header; AMQP tables decode numbers with varying
// widths depending on the publisher.
func retryCount(headers amqp.Table) int {
	switch v := headers[retryCountHeader].(type) {
	case int32:
		return int(v)
	case int64:
		return int(v)
	case int:
		return v
	}
	return 0
}

var _ Queue = (*AMQPQueue)(nil)
