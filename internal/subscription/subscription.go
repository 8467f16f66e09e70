// Package subscription holds the change-listener registry. Listeners are
// keyed by the exact key path they were registered at; several listeners per
// key path are allowed and fire in registration order.
package subscription

import (
	"fmt"
	"sync"

	"github.com/normano/c5store/pkg/telemetry"
	"github.com/normano/c5store/pkg/value"
)

// ChangeListener receives the key path it was registered at, the key path
// that actually changed, and the value current at dispatch time.
type ChangeListener func(notifyKeyPath string, changedKeyPath string, newValue value.Value)

// DetailedChangeListener additionally receives the value the changed key
// held before the first write of the debounce window, or nil when the key
// was newly inserted.
type DetailedChangeListener func(notifyKeyPath string, changedKeyPath string, newValue value.Value, oldValue *value.Value)

type entry struct {
	plain    ChangeListener
	detailed DetailedChangeListener
}

// Registry is the subscription table. Safe for concurrent use; listener
// invocation happens outside the registry lock and panics in one listener do
// not abort dispatch to its peers.
type Registry struct {
	mu        sync.RWMutex
	listeners map[string][]entry
	logger    telemetry.Logger
}

// NewRegistry returns an empty registry logging listener panics to logger.
func NewRegistry(logger telemetry.Logger) *Registry {
	return &Registry{
		listeners: make(map[string][]entry),
		logger:    logger,
	}
}

// Add registers a listener at exactly keyPath.
func (r *Registry) Add(keyPath string, l ChangeListener) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listeners[keyPath] = append(r.listeners[keyPath], entry{plain: l})
}

// AddDetailed registers a detailed listener at exactly keyPath.
func (r *Registry) AddDetailed(keyPath string, l DetailedChangeListener) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listeners[keyPath] = append(r.listeners[keyPath], entry{detailed: l})
}

// NotifyValueChange invokes every listener registered at notifyKeyPath, in
// registration order.
func (r *Registry) NotifyValueChange(notifyKeyPath, changedKeyPath string, newValue value.Value, oldValue *value.Value) {
	r.mu.RLock()
	entries := make([]entry, len(r.listeners[notifyKeyPath]))
	copy(entries, r.listeners[notifyKeyPath])
	r.mu.RUnlock()

	for _, e := range entries {
		r.invoke(e, notifyKeyPath, changedKeyPath, newValue, oldValue)
	}
}

func (r *Registry) invoke(e entry, notifyKeyPath, changedKeyPath string, newValue value.Value, oldValue *value.Value) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error(fmt.Sprintf("change listener for %q panicked: %v", notifyKeyPath, rec), nil)
		}
	}()

	if e.plain != nil {
		e.plain(notifyKeyPath, changedKeyPath, newValue)
		return
	}
	e.detailed(notifyKeyPath, changedKeyPath, newValue, oldValue)
}
