// Package notifier is the cross-instance change channel: a fire-and-forget
// publish/subscribe primitive that lets one running instance announce
// "data of kind X changed" to every other instance sharing the same store.
// Delivery is best-effort and never reaches the publisher itself.
package notifier

import (
	"context"
	"encoding/json"
	"time"
)

// Event kinds. All instances must agree on these strings out-of-band;
// there is no schema versioning.
const (
	KindTransactions = "transactions_changed"
	KindCategories   = "categories_changed"
	KindAppName      = "app_name_changed"
	KindBroadcast    = "broadcast_message_changed"
	KindTheme        = "theme_changed"
)

// Event is the wire envelope. Payload optionally carries the new value so
// receivers can skip a redundant reload; SenderID suppresses self-delivery.
type Event struct {
	Kind       string          `json:"kind"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	SenderID   string          `json:"senderId"`
	SenderRole string          `json:"senderRole,omitempty"`
	Timestamp  time.Time       `json:"timestamp"`
}

func (e *Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

func EventFromJSON(data []byte) (*Event, error) {
	var ev Event
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, err
	}
	return &ev, nil
}

// Handler processes one delivered event. A non-nil error asks the
// transport to redeliver where it supports that.
type Handler func(ctx context.Context, ev Event) error

// Notifier is the channel a sync coordinator publishes on and listens to.
// Subscribe replaces any previously registered handler; exactly one
// handler is active per instance.
type Notifier interface {
	Publish(ctx context.Context, ev Event) error
	Subscribe(h Handler)
	Close() error
}

// Noop is the degraded mode used when no broker is reachable: publishing
// goes nowhere and nothing is ever delivered. Sync falls back to
// "single instance only" with no user-visible error.
type Noop struct{}

func (Noop) Publish(context.Context, Event) error { return nil }
func (Noop) Subscribe(Handler)                    {}
func (Noop) Close() error                         { return nil }
