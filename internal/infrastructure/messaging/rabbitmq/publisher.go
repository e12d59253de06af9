package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	DefaultExchange = "adserve.replay"

	// Durable queue bound to every replay.* routing key. Without it a
	// mandatory publish has nowhere to land: the broker basic.returns the
	// message and still confirm-acks it, and the intent is gone.
	ReplayQueue   = "adserve.replay.q"
	replayBinding = "replay.#"

	// Wait window for Return / Confirm
	publishWait = 150 * time.Millisecond
)

// Publisher hands counter-increment intents that exhausted their in-process
// retries to a durable replay queue. Losing an increment silently would let
// counters drift from the event table with no trace; the queue keeps the
// intent until an operator or a replayer drains it.
type Publisher struct {
	url      string
	exchange string

	mu sync.Mutex

	conn *amqp.Connection
	ch   *amqp.Channel

	confirmCh <-chan amqp.Confirmation
	returnCh  <-chan amqp.Return
}

func NewPublisher(url, exchange string) (*Publisher, error) {
	if exchange == "" {
		exchange = DefaultExchange
	}
	p := &Publisher{url: url, exchange: exchange}
	if err := p.connect(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Publisher) connect() error {
	conn, err := amqp.Dial(p.url)
	if err != nil {
		return err
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return err
	}

	if err := ch.ExchangeDeclare(p.exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return err
	}
	if _, err := ch.QueueDeclare(ReplayQueue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return err
	}
	if err := ch.QueueBind(ReplayQueue, replayBinding, p.exchange, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return err
	}

	// publisher confirms: an unconfirmed replay publish is reported to the
	// caller so it can at least be logged loudly
	if err := ch.Confirm(false); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return err
	}

	p.conn = conn
	p.ch = ch
	p.confirmCh = ch.NotifyPublish(make(chan amqp.Confirmation, 1))
	p.returnCh = ch.NotifyReturn(make(chan amqp.Return, 1))
	return nil
}

func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ch != nil {
		_ = p.ch.Close()
		p.ch = nil
	}
	if p.conn != nil {
		_ = p.conn.Close()
		p.conn = nil
	}
	return nil
}

// Publish sends a JSON payload with a stable messageID (stable across retries
// so consumers can dedupe).
func (p *Publisher) Publish(ctx context.Context, routingKey, messageID string, payload any) error {
	if routingKey == "" {
		return errors.New("missing routingKey")
	}
	if strings.TrimSpace(messageID) == "" {
		return errors.New("missing messageID")
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ch == nil {
		if err := p.connect(); err != nil {
			return err
		}
	}

	err = p.ch.PublishWithContext(ctx, p.exchange, routingKey, true, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    messageID,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	})
	if err != nil {
		return err
	}

	return publishOutcome(ctx, p.confirmCh, p.returnCh, publishWait)
}

// publishOutcome waits for either a Return (NO_ROUTE) or a Confirm. The broker
// acks an unroutable mandatory publish after returning it, so an Ack alone is
// not success: a Return already sitting in the channel still means the message
// was dropped.
func publishOutcome(ctx context.Context, confirms <-chan amqp.Confirmation, returns <-chan amqp.Return, wait time.Duration) error {
	select {
	case ret := <-returns:
		return errors.New("no route for " + ret.RoutingKey + ": " + ret.ReplyText)
	case conf := <-confirms:
		if !conf.Ack {
			return errors.New("broker nacked publish")
		}
		select {
		case ret := <-returns:
			return errors.New("no route for " + ret.RoutingKey + ": " + ret.ReplyText)
		default:
			return nil
		}
	case <-time.After(wait):
		return errors.New("publish confirm timeout")
	case <-ctx.Done():
		return ctx.Err()
	}
}
