package events

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// RabbitMQ holds one connection and channel used for both publishing and
// consuming locality events.
type RabbitMQ struct {
	exchange string
	queue    string
	logger   *log.Logger

	mu     sync.RWMutex
	conn   *amqp.Connection
	ch     *amqp.Channel
	closed bool
}

// DialRabbitMQ connects with a bounded retry loop and declares the exchange
// and reconcile queue.
func DialRabbitMQ(ctx context.Context, url, exchange, queue string, logger *log.Logger) (*RabbitMQ, error) {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	mq := &RabbitMQ{exchange: exchange, queue: queue, logger: logger}

	const maxRetries = 10
	delay := time.Second
	for attempt := 1; ; attempt++ {
		err := mq.connect(url)
		if err == nil {
			break
		}
		logger.Printf("events: rabbitmq connect attempt=%d/%d error=%v", attempt, maxRetries, err)
		if attempt == maxRetries {
			return nil, fmt.Errorf("connect rabbitmq after %d attempts: %w", maxRetries, err)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
		delay = delay * 3 / 2
		if delay > 30*time.Second {
			delay = 30 * time.Second
		}
	}

	if err := mq.setupTopology(); err != nil {
		mq.Close()
		return nil, err
	}
	logger.Printf("events: rabbitmq connected exchange=%s queue=%s", exchange, queue)
	return mq, nil
}

func (mq *RabbitMQ) connect(url string) error {
	conn, err := amqp.Dial(url)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}
	if err := ch.Qos(10, 0, false); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return fmt.Errorf("set qos: %w", err)
	}
	mq.mu.Lock()
	mq.conn = conn
	mq.ch = ch
	mq.mu.Unlock()
	return nil
}

func (mq *RabbitMQ) setupTopology() error {
	ch := mq.channel()
	if ch == nil {
		return fmt.Errorf("rabbitmq channel not available")
	}
	if err := ch.ExchangeDeclare(mq.exchange, "topic", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange %s: %w", mq.exchange, err)
	}
	if _, err := ch.QueueDeclare(mq.queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare queue %s: %w", mq.queue, err)
	}
	if err := ch.QueueBind(mq.queue, RoutingKey, mq.exchange, false, nil); err != nil {
		return fmt.Errorf("bind queue %s: %w", mq.queue, err)
	}
	return nil
}

func (mq *RabbitMQ) channel() *amqp.Channel {
	mq.mu.RLock()
	defer mq.mu.RUnlock()
	return mq.ch
}

// PublishLocalityChanged implements Publisher.
func (mq *RabbitMQ) PublishLocalityChanged(ctx context.Context, evt LocalityChanged) error {
	ch := mq.channel()
	if ch == nil {
		return fmt.Errorf("rabbitmq channel not available")
	}
	body, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	publishCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := ch.PublishWithContext(publishCtx, mq.exchange, RoutingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp.Persistent,
		Timestamp:    evt.OccurredAt,
	}); err != nil {
		mq.logger.Printf("events: publish kind=%s requester=%s error=%v", evt.Kind, evt.Requester().Label(), err)
		return err
	}
	mq.logger.Printf("events: published kind=%s requester=%s", evt.Kind, evt.Requester().Label())
	return nil
}

// Consume delivers queued events to handler until ctx is cancelled.
func (mq *RabbitMQ) Consume(ctx context.Context, consumer string, handler Handler) error {
	ch := mq.channel()
	if ch == nil {
		return fmt.Errorf("rabbitmq channel not available")
	}
	msgs, err := ch.Consume(mq.queue, consumer, false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}
	mq.logger.Printf("events: consuming queue=%s consumer=%s", mq.queue, consumer)

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					mq.logger.Printf("events: consumer stopped queue=%s", mq.queue)
					return
				}
				dispatch(ctx, msg, handler, mq.logger)
			}
		}
	}()
	return nil
}

// dispatch decodes one delivery and settles it: malformed bodies are dropped,
// handler failures are requeued once.
func dispatch(ctx context.Context, msg amqp.Delivery, handler Handler, logger *log.Logger) {
	var evt LocalityChanged
	if err := json.Unmarshal(msg.Body, &evt); err != nil {
		logger.Printf("events: decode delivery error=%v", err)
		_ = msg.Nack(false, false)
		return
	}
	if !evt.Requester().HasIdentity() {
		logger.Printf("events: drop event kind=%s without requester", evt.Kind)
		_ = msg.Ack(false)
		return
	}
	if err := handler(ctx, evt); err != nil {
		logger.Printf("events: handle kind=%s requester=%s redelivered=%t error=%v", evt.Kind, evt.Requester().Label(), msg.Redelivered, err)
		_ = msg.Nack(false, !msg.Redelivered)
		return
	}
	_ = msg.Ack(false)
}

func (mq *RabbitMQ) Close() {
	mq.mu.Lock()
	defer mq.mu.Unlock()
	if mq.closed {
		return
	}
	mq.closed = true
	if mq.ch != nil {
		_ = mq.ch.Close()
	}
	if mq.conn != nil {
		_ = mq.conn.Close()
	}
}
