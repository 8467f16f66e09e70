package c5store

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/juju/clock"

	"github.com/normano/c5store/internal/datastore"
	"github.com/normano/c5store/internal/subscription"
	"github.com/normano/c5store/pkg/value"
)

type pendingChange struct {
	oldValue *value.Value
}

// changeNotifier batches writes into a debounce window and dispatches them
// up each changed key's ancestor chain. The single-shot timer is armed by
// the first enqueue of a window; later enqueues join the pending set without
// resetting it.
type changeNotifier struct {
	clk       clock.Clock
	delay     time.Duration
	dataStore *datastore.Store
	subs      *subscription.Registry

	mu      sync.Mutex
	pending map[string]pendingChange
	armed   bool
}

func newChangeNotifier(clk clock.Clock, delay time.Duration, ds *datastore.Store, subs *subscription.Registry) *changeNotifier {
	return &changeNotifier{
		clk:       clk,
		delay:     delay,
		dataStore: ds,
		subs:      subs,
		pending:   make(map[string]pendingChange),
	}
}

// notifyChanged enqueues a change. Multiple writes to the same key within
// one window keep the earliest old value; the new value is read from the
// store when the window fires.
func (n *changeNotifier) notifyChanged(keyPath string, oldValue *value.Value) {
	n.mu.Lock()
	if _, ok := n.pending[keyPath]; !ok {
		n.pending[keyPath] = pendingChange{oldValue: oldValue}
	}
	arm := !n.armed
	n.armed = true
	n.mu.Unlock()

	if arm {
		n.clk.AfterFunc(n.delay, n.fire)
	}
}

func (n *changeNotifier) fire() {
	n.mu.Lock()
	changes := n.pending
	n.pending = make(map[string]pendingChange)
	n.armed = false
	n.mu.Unlock()

	if len(changes) == 0 {
		return
	}

	changedKeys := make([]string, 0, len(changes))
	for key := range changes {
		changedKeys = append(changedKeys, key)
	}
	sort.Strings(changedKeys)

	for _, changedKey := range changedKeys {
		change := changes[changedKey]

		// The value dispatched is the store's current state, which may
		// already reflect writes from after the window closed.
		newValue, _ := n.dataStore.GetData(changedKey)

		for _, notifyPath := range ancestorChain(changedKey) {
			n.subs.NotifyValueChange(notifyPath, changedKey, newValue, change.oldValue)
		}
	}
}

// ancestorChain returns the ancestor key paths of keyPath root-first,
// including keyPath itself.
func ancestorChain(keyPath string) []string {
	segments := strings.Split(keyPath, ".")
	chain := make([]string, 0, len(segments))
	var b strings.Builder
	for i, seg := range segments {
		if i > 0 {
			b.WriteByte('.')
		}
		b.WriteString(seg)
		chain = append(chain, b.String())
	}
	return chain
}
