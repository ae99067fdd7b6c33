package notifier

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rabbitmq/amqp091-go"
)

// Circuit breaker states.
const (
	StateClosed int32 = iota
	StateOpen
)

// maxFailures is the publish failure threshold that opens the circuit.
const maxFailures = 3

// circuitResetTimeout is how long the circuit stays open before a publish
// is attempted again.
const circuitResetTimeout = 30 * time.Second

// AMQP fans events out to every other running instance through a broker
// exchange. Each client gets its own exclusive auto-delete queue bound to
// a fanout exchange; self-delivery is suppressed by sender id since AMQP
// has no no-local semantics.
type AMQP struct {
	url          string
	exchangeName string
	senderID     string

	conn      *amqp091.Connection
	channel   *amqp091.Channel
	queueName string

	mu      sync.Mutex
	handler Handler

	// Circuit breaker for publishes while the broker is flapping.
	failureCount int64
	state        int32
	openedAt     int64 // unix nanos

	closeOnce sync.Once
}

func NewAMQP(url, exchangeName string) (*AMQP, error) {
	c := &AMQP{
		url:          url,
		exchangeName: exchangeName,
		senderID:     uuid.NewString(),
	}
	if err := c.connect(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *AMQP) connect() error {
	conn, err := amqp091.Dial(c.url)
	if err != nil {
		return fmt.Errorf("dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}

	err = channel.ExchangeDeclare(
		c.exchangeName, // name
		"fanout",       // type
		false,          // durable
		false,          // auto-deleted
		false,          // internal
		false,          // no-wait
		nil,            // arguments
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return fmt.Errorf("declare exchange: %w", err)
	}

	// Server-named exclusive queue: one per instance, dropped on disconnect.
	q, err := channel.QueueDeclare(
		"",    // name
		false, // durable
		true,  // delete when unused
		true,  // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return fmt.Errorf("declare queue: %w", err)
	}

	if err := channel.QueueBind(q.Name, "", c.exchangeName, false, nil); err != nil {
		channel.Close()
		conn.Close()
		return fmt.Errorf("bind queue: %w", err)
	}

	c.conn = conn
	c.channel = channel
	c.queueName = q.Name
	return nil
}

// Publish broadcasts the event to every other instance. Best-effort:
// the caller treats a failure as "sync degraded", not as a fatal error.
func (c *AMQP) Publish(ctx context.Context, ev Event) error {
	if c.isCircuitOpen() {
		return fmt.Errorf("publish %s: circuit open", ev.Kind)
	}

	ev.SenderID = c.senderID
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}
	body, err := ev.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err = c.channel.PublishWithContext(
		ctx,
		c.exchangeName, // exchange
		"",             // routing key (fanout ignores it)
		false,          // mandatory
		false,          // immediate
		amqp091.Publishing{
			ContentType: "application/json",
			Timestamp:   ev.Timestamp,
			Body:        body,
		},
	)
	if err != nil {
		c.recordFailure()
		return fmt.Errorf("publish event: %w", err)
	}
	c.recordSuccess()

	slog.DebugContext(ctx, "Published change event",
		"kind", ev.Kind,
		"exchange", c.exchangeName)
	return nil
}

// Subscribe replaces the active handler.
func (c *AMQP) Subscribe(h Handler) {
	c.mu.Lock()
	c.handler = h
	c.mu.Unlock()
}

// Consume delivers events to the subscribed handler until ctx is done,
// reconnecting with exponential backoff when the broker connection drops.
func (c *AMQP) Consume(ctx context.Context) error {
	attempt := 0
	for {
		err := c.consumeOnce(ctx)
		if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		if !isConnectionError(err) {
			return err
		}

		attempt++
		backoff := exponentialBackoff(attempt)
		slog.WarnContext(ctx, "AMQP connection lost, reconnecting",
			"error", err, "attempt", attempt, "backoff", backoff)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}

		if err := c.connect(); err != nil {
			slog.WarnContext(ctx, "AMQP reconnect failed", "error", err, "attempt", attempt)
			continue
		}
		attempt = 0
	}
}

func (c *AMQP) consumeOnce(ctx context.Context) error {
	msgs, err := c.channel.Consume(
		c.queueName, // queue
		"",          // consumer
		false,       // auto-ack
		false,       // exclusive
		false,       // no-local
		false,       // no-wait
		nil,         // args
	)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	slog.InfoContext(ctx, "Listening for change events", "queue", c.queueName)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case delivery, ok := <-msgs:
			if !ok {
				return fmt.Errorf("message channel closed: connection closed")
			}

			ev, err := EventFromJSON(delivery.Body)
			if err != nil {
				slog.ErrorContext(ctx, "Failed to unmarshal event", "error", err)
				delivery.Nack(false, false) // reject, don't requeue
				continue
			}

			if ev.SenderID == c.senderID {
				// Own broadcast looping back through the exchange.
				delivery.Ack(false)
				continue
			}

			c.mu.Lock()
			h := c.handler
			c.mu.Unlock()
			if h == nil {
				delivery.Ack(false)
				continue
			}

			if err := h(ctx, *ev); err != nil {
				slog.ErrorContext(ctx, "Failed to handle event",
					"error", err, "kind", ev.Kind)
				delivery.Nack(false, true) // requeue for retry
				continue
			}
			delivery.Ack(false)
		}
	}
}

func (c *AMQP) Close() error {
	var err error
	c.closeOnce.Do(func() {
		if c.channel != nil {
			c.channel.Close()
		}
		if c.conn != nil {
			err = c.conn.Close()
		}
	})
	return err
}

func (c *AMQP) isCircuitOpen() bool {
	if atomic.LoadInt32(&c.state) != StateOpen {
		return false
	}
	opened := time.Unix(0, atomic.LoadInt64(&c.openedAt))
	if time.Since(opened) > circuitResetTimeout {
		// Half-open: allow the next publish to probe the broker.
		atomic.StoreInt32(&c.state, StateClosed)
		return false
	}
	return true
}

func (c *AMQP) recordSuccess() {
	atomic.StoreInt64(&c.failureCount, 0)
	atomic.StoreInt32(&c.state, StateClosed)
}

func (c *AMQP) recordFailure() {
	if atomic.AddInt64(&c.failureCount, 1) >= maxFailures {
		atomic.StoreInt32(&c.state, StateOpen)
		atomic.StoreInt64(&c.openedAt, time.Now().UnixNano())
	}
}

// exponentialBackoff doubles the wait per attempt, capped at 30 seconds.
func exponentialBackoff(attempt int) time.Duration {
	if attempt > 5 {
		return 30 * time.Second
	}
	d := time.Second * (1 << attempt)
	if d > 30*time.Second {
		return 30 * time.Second
	}
	return d
}

func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, amqp091.ErrClosed) {
		return true
	}
	msg := err.Error()
	for _, s := range []string{
		"connection refused",
		"connection closed",
		"connection reset",
		"EOF",
		"broken pipe",
		"use of closed network connection",
	} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}
