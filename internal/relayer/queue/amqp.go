package queue

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/log"
	"github.com/streadway/amqp"

	"github.com/chaincraft-labs/bridge-relayer/internal/relayer/domain"
)

// amqpQueue implements both Publisher and Consumer over one durable,
// named queue, the same declare-then-publish-or-consume shape
// relayer_register_aio_pika.py's _send_message/_consume_message use.
type amqpQueue struct {
	conn      *amqp.Connection
	channel   *amqp.Channel
	queueName string
	log       log.Logger
}

// Dial connects to the broker at cfg.URL() and declares the durable queue,
// matching _connection + declare_queue(durable=True).
func Dial(cfg domain.QueueConfig) (Queue, error) {
	conn, err := amqp.Dial(cfg.URL())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrRegisterEventFailed, err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("%w: %v", domain.ErrRegisterEventFailed, err)
	}
	if _, err := ch.QueueDeclare(cfg.QueueName, true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("%w: %v", domain.ErrRegisterEventFailed, err)
	}
	return &amqpQueue{
		conn:      conn,
		channel:   ch,
		queueName: cfg.QueueName,
		log:       log.New("component", "queue"),
	}, nil
}

// RegisterEvent mirrors _send_message: publish to the default exchange
// keyed by the queue name, so no exchange/binding setup is required.
func (q *amqpQueue) RegisterEvent(ctx context.Context, event []byte) error {
	err := q.channel.Publish("", q.queueName, false, false, amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		ContentType:  "application/octet-stream",
		Body:         event,
	})
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrRegisterEventFailed, err)
	}
	return nil
}

// Run mirrors _consume_message + callback: prefetch one message per
// worker, run handler, ack on success and nack-requeue on failure so an
// unhandled event is retried rather than silently dropped.
func (q *amqpQueue) Run(ctx context.Context, handler Handler) error {
	if err := q.channel.Qos(1, 0, false); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrReadEventFailed, err)
	}
	deliveries, err := q.channel.Consume(q.queueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrReadEventFailed, err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("%w: delivery channel closed", domain.ErrReadEventFailed)
			}
			if err := handler(ctx, d.Body); err != nil {
				q.log.Warn("handler failed, requeueing delivery", "err", err)
				d.Nack(false, true)
				continue
			}
			d.Ack(false)
		}
	}
}

func (q *amqpQueue) Close() error {
	q.channel.Close()
	return q.conn.Close()
}
