// Package queue is the durable at-least-once boundary between the scanner
// and the consumer, grounded on original_source's
// relayer_register_aio_pika.py (an aio_pika/RabbitMQ provider) rewired onto
// streadway/amqp, the closest same-protocol (AMQP-0-9-1) Go client in the
// example pack.
package queue

import "context"

// Publisher registers one event for later consumption, the scanner's only
// dependency on this package.
type Publisher interface {
	RegisterEvent(ctx context.Context, event []byte) error
	Close() error
}

// Handler processes one delivered message; returning an error leaves the
// message unacked so the broker redelivers it.
type Handler func(ctx context.Context, body []byte) error

// Consumer drains registered events, the consumer's only dependency on this
// package. Run blocks until ctx is cancelled or an unrecoverable error
// occurs, mirroring read_events's "await asyncio.Future()" blocking loop.
type Consumer interface {
	Run(ctx context.Context, handler Handler) error
	Close() error
}

// Queue is the full capability set one AMQP connection offers: a binary
// can use it purely as a Publisher (the scanner), purely as a Consumer (the
// consumer's read side), or both (the consumer's --send test producer).
type Queue interface {
	Publisher
	Consumer
}
