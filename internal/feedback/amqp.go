package feedback

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/maaaruch/memory-tribunal/internal/domain"
)

const publishTimeout = 2 * time.Second

type publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// AMQPPublisher puts every accepted option on a queue as a plain text body.
type AMQPPublisher struct {
	channel      publisher
	queue        string
	channelMutex sync.Mutex
}

func NewAMQPPublisher(ch publisher, queue string) *AMQPPublisher {
	return &AMQPPublisher{
		channel: ch,
		queue:   queue,
	}
}

func (p *AMQPPublisher) Voted(ctx context.Context, o domain.Option, _ domain.Tally) {
	if err := p.publish(ctx, o); err != nil {
		log.Printf("publish vote %s: %v", o, err)
	}
}

func (p *AMQPPublisher) publish(ctx context.Context, o domain.Option) error {
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	p.channelMutex.Lock()
	defer p.channelMutex.Unlock()

	return p.channel.PublishWithContext(ctx,
		"",
		p.queue,
		false,
		false,
		amqp.Publishing{
			ContentType: "text/plain",
			Body:        []byte(o),
		},
	)
}

// DialAMQP connects to url, retrying a few times while the broker starts up.
func DialAMQP(url string, attempts int, backoff time.Duration) (*amqp.Connection, error) {
	var conn *amqp.Connection
	var err error
	for i := 0; i < attempts; i++ {
		if conn, err = amqp.Dial(url); err == nil {
			return conn, nil
		}
		log.Printf("rabbitmq not reachable (attempt %d/%d), retrying in %s", i+1, attempts, backoff)
		time.Sleep(backoff)
	}
	return nil, fmt.Errorf("could not connect to RabbitMQ after %d attempts: %w", attempts, err)
}

// OpenQueue opens a channel on conn and declares a durable queue on it.
func OpenQueue(conn *amqp.Connection, queue string) (*amqp.Channel, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}

	_, err = ch.QueueDeclare(
		queue,
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		ch.Close()
		return nil, fmt.Errorf("declare queue %q: %w", queue, err)
	}
	return ch, nil
}
