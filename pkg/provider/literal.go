package provider

import (
	"fmt"
	"sync"

	"github.com/normano/c5store/pkg/value"
)

// LiteralProvider serves fixed values declared inline in its descriptors.
// Descriptor field: value (any shape). Maps are flattened into dot-path
// leaves on hydration. Mostly useful in tests and as the minimal reference
// implementation of the provider contract.
type LiteralProvider struct {
	mu     sync.RWMutex
	values map[string]value.Value
}

// NewLiteralProvider returns an empty literal provider.
func NewLiteralProvider() *LiteralProvider {
	return &LiteralProvider{values: make(map[string]value.Value)}
}

// Register buffers the descriptor's inline value under its key path.
func (p *LiteralProvider) Register(descriptor value.Value) error {
	m, err := descriptor.AsMap()
	if err != nil {
		return fmt.Errorf("literal descriptor must be a map: %w", err)
	}
	keyPathVal, ok := m[ConfigKeyKeyPath]
	if !ok {
		return fmt.Errorf("literal descriptor missing %s", ConfigKeyKeyPath)
	}
	keyPath, err := keyPathVal.AsString()
	if err != nil {
		return err
	}
	val, ok := m["value"]
	if !ok {
		return fmt.Errorf("literal descriptor at %q missing value field", keyPath)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.values[keyPath] = val
	return nil
}

// Unregister drops the value rooted at keyPath.
func (p *LiteralProvider) Unregister(keyPath string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.values, keyPath)
}

// Hydrate pushes every buffered value into the store.
func (p *LiteralProvider) Hydrate(set SetDataFunc, _ bool, ctx *HydrateContext) {
	p.mu.RLock()
	snapshot := make(map[string]value.Value, len(p.values))
	for k, v := range p.values {
		snapshot[k] = v
	}
	p.mu.RUnlock()

	for keyPath, val := range snapshot {
		ctx.PushValueToDataStore(set, keyPath, val)
	}
}
