package telemetry

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Event is a notable change in the registry or a script failure.
type Event struct {
	ID        string                 `json:"id"`
	Timestamp time.Time              `json:"timestamp"`
	Type      string                 `json:"type"`
	Source    string                 `json:"source"`
	LoadID    string                 `json:"load_id,omitempty"`
	Profile   string                 `json:"profile,omitempty"`
	Message   string                 `json:"message"`
	Level     string                 `json:"level"`
	Data      map[string]interface{} `json:"data,omitempty"`
}

// Event types.
const (
	EventTypeProfileRegistered = "profile.registered"
	EventTypeProfileRemoved    = "profile.removed"
	EventTypeScriptFailed      = "script.failed"
	EventTypeRegistryReloaded  = "registry.reloaded"
)

// Event levels.
const (
	EventLevelInfo    = "info"
	EventLevelWarning = "warning"
	EventLevelError   = "error"
)

// EventSubscriber handles an event. It runs on the publisher's goroutine.
type EventSubscriber func(event Event)

// EventFilter determines if an event should be delivered.
type EventFilter func(event Event) bool

type subscriberEntry struct {
	subscriber EventSubscriber
	filter     EventFilter
}

// EventBus delivers events synchronously to subscribers. A nil or
// disabled bus drops everything.
type EventBus struct {
	enabled     bool
	mu          sync.RWMutex
	subscribers []subscriberEntry
}

// NewEventBus creates an event bus.
func NewEventBus(cfg EventsConfig) *EventBus {
	return &EventBus{enabled: cfg.Enabled}
}

// Subscribe adds a subscriber. A nil filter accepts every event.
func (b *EventBus) Subscribe(subscriber EventSubscriber, filter EventFilter) {
	if b == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers = append(b.subscribers, subscriberEntry{subscriber: subscriber, filter: filter})
}

// Publish stamps the event and delivers it.
func (b *EventBus) Publish(event Event) {
	if b == nil || !b.enabled {
		return
	}
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	b.mu.RLock()
	subs := append([]subscriberEntry(nil), b.subscribers...)
	b.mu.RUnlock()

	for _, entry := range subs {
		if entry.filter != nil && !entry.filter(event) {
			continue
		}
		entry.subscriber(event)
	}
}

// PublishProfileRegistered announces a newly inserted or replaced profile.
func (b *EventBus) PublishProfileRegistered(loadID, name, source string) {
	b.Publish(Event{
		Type:    EventTypeProfileRegistered,
		Source:  "registry",
		LoadID:  loadID,
		Profile: name,
		Message: fmt.Sprintf("Profile %s registered", name),
		Level:   EventLevelInfo,
		Data:    map[string]interface{}{"location": source},
	})
}

// PublishProfileRemoved announces a removed profile.
func (b *EventBus) PublishProfileRemoved(name string) {
	b.Publish(Event{
		Type:    EventTypeProfileRemoved,
		Source:  "registry",
		Profile: name,
		Message: fmt.Sprintf("Profile %s removed", name),
		Level:   EventLevelInfo,
	})
}

// PublishScriptFailed announces a script that could not be loaded.
func (b *EventBus) PublishScriptFailed(loadID, location string, err error) {
	b.Publish(Event{
		Type:    EventTypeScriptFailed,
		Source:  "registry",
		LoadID:  loadID,
		Message: fmt.Sprintf("Script %s failed: %v", location, err),
		Level:   EventLevelWarning,
		Data:    map[string]interface{}{"location": location},
	})
}

// PublishRegistryReloaded announces a completed reload.
func (b *EventBus) PublishRegistryReloaded(loadID string, loaded, failed int) {
	b.Publish(Event{
		Type:    EventTypeRegistryReloaded,
		Source:  "watcher",
		LoadID:  loadID,
		Message: fmt.Sprintf("Registry reloaded: %d profiles, %d failures", loaded, failed),
		Level:   EventLevelInfo,
		Data:    map[string]interface{}{"loaded": loaded, "failed": failed},
	})
}

// FilterByType accepts only events of the given types.
func FilterByType(types ...string) EventFilter {
	typeSet := make(map[string]bool)
	for _, t := range types {
		typeSet[t] = true
	}
	return func(event Event) bool {
		return typeSet[event.Type]
	}
}

// FilterByLevel accepts events at minLevel or above.
func FilterByLevel(minLevel string) EventFilter {
	levels := map[string]int{
		EventLevelInfo:    0,
		EventLevelWarning: 1,
		EventLevelError:   2,
	}
	minLevelValue := levels[minLevel]
	return func(event Event) bool {
		return levels[event.Level] >= minLevelValue
	}
}
