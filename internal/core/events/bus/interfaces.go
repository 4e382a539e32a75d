package bus

import "time"

// EventBus is a thread-safe, in-process pub/sub bus used to carry control
// messages (hand disable requests) into the grab system and grab transitions
// out to observers such as the websocket bridge.
//
// Handlers subscribe by topic and Event.Type(). Delivery is synchronous, in
// subscription order, on the publisher's goroutine; handler errors are joined
// and returned from Publish. The default topic is "".
type EventBus interface {
	// Publish delivers event to subscribers of event.Type() on the default topic.
	Publish(event Event) error
	// PublishToTopic delivers event to subscribers of event.Type() on topic.
	PublishToTopic(topic string, event Event) error

	// Subscribe registers handler for eventType on the default topic.
	Subscribe(eventType string, handler EventHandler) (Subscription, error)
	// SubscribeTopic registers handler for eventType on topic.
	SubscribeTopic(topic, eventType string, handler EventHandler) (Subscription, error)
	// Unsubscribe cancels sub. A nil subscription is ignored.
	Unsubscribe(sub Subscription) error

	// AddObserver registers an observer notified after every delivery.
	AddObserver(obs Observer)
	RemoveObserver(obs Observer)
	// Metrics returns a snapshot of the delivery counters.
	Metrics() Metrics
	// Topics lists topics that have or had subscribers, sorted by name.
	Topics() []TopicInfo

	// Close cancels every subscription; later calls return ErrClosed.
	Close() error
}

// Event is an immutable message transported by the EventBus.
type Event interface {
	Type() string
	// Source identifies the publisher; for hand messages it is the session id.
	Source() string
	Timestamp() time.Time
	Data() any
	Metadata() map[string]any
}

type (
	// EventHandler is invoked per delivered event.
	EventHandler func(event Event) error
)

// Subscription is a registered handler bound to a topic and event type.
type Subscription interface {
	ID() string
	Topic() string
	EventType() string
	IsActive() bool
	// Cancel de-registers the handler. Multiple calls are safe.
	Cancel() error
}

// Observer is notified about deliveries. Observers should return quickly.
type Observer interface {
	OnDelivered(topic string, event Event, handlers int, err error, took time.Duration)
}

// Metrics are cumulative delivery counters.
type Metrics struct {
	Published         uint64 `json:"published"`
	DeliveredHandlers uint64 `json:"deliveredHandlers"`
	Errors            uint64 `json:"errors"`
	SubscribersActive uint64 `json:"subscribersActive"`
}

type TopicInfo struct {
	Name       string `json:"name"`
	EventTypes int    `json:"eventTypes"`
	Subs       int    `json:"subs"`
}
