// Package provider defines the value-provider abstraction: pluggable
// components that load parts of the configuration on demand and push them
// into the store, either once at startup or on a periodic refresh.
//
// A provider is declared in configuration as a map containing the literal
// key ".provider" naming the implementation, plus provider-specific fields.
// During ingestion such maps are removed from the value tree, annotated with
// their key path, and buffered until the named implementation is registered
// with the store manager.
//
// Implementations must be safe for concurrent use: Hydrate may run on a
// background refresh goroutine while Register/Unregister are called from the
// manager.
package provider

import (
	"github.com/normano/c5store/internal/ingestion"
	"github.com/normano/c5store/pkg/telemetry"
	"github.com/normano/c5store/pkg/value"
)

// Descriptor annotation keys. ConfigKeyProvider appears in source documents;
// the key path and terminal segment are attached during ingestion.
const (
	ConfigKeyProvider = ingestion.ConfigKeyProvider
	ConfigKeyKeyPath  = ingestion.ConfigKeyKeyPath
	ConfigKeyKeyName  = ingestion.ConfigKeyKeyName
)

// SetDataFunc is the writer handed to providers. It runs the store's full
// write protocol, secret unwrapping included, and tags values with the
// provider's source.
type SetDataFunc func(keyPath string, val value.Value)

// ValueProvider loads configuration for the descriptors registered with it.
type ValueProvider interface {
	// Register buffers one provider descriptor. Called once per descriptor
	// before the first Hydrate.
	Register(descriptor value.Value) error

	// Unregister drops the descriptor rooted at keyPath.
	Unregister(keyPath string)

	// Hydrate pushes current values for every registered descriptor through
	// set. force requests a write even if the provider believes nothing
	// changed.
	Hydrate(set SetDataFunc, force bool, ctx *HydrateContext)
}

// HydrateContext carries the capabilities a provider may use during
// hydration.
type HydrateContext struct {
	Logger telemetry.Logger
}

// PushValueToDataStore writes val under keyPath, flattening map values into
// dot-path leaves first so providers can hand back whole submaps.
func (c *HydrateContext) PushValueToDataStore(set SetDataFunc, keyPath string, val value.Value) {
	if val.Kind() == value.KindMap {
		m, _ := val.AsMap()
		flat := make(map[string]value.Value)
		ingestion.FlattenTree(m, keyPath, flat)
		for k, v := range flat {
			set(k, v)
		}
		return
	}
	set(keyPath, val)
}

// DescriptorStrings pulls the named string fields out of a descriptor map.
// Missing keys are simply absent from the result; a present key with a
// non-string value fails the whole extraction.
func DescriptorStrings(descriptor value.Value, keys ...string) (map[string]string, bool) {
	m, err := descriptor.AsMap()
	if err != nil {
		return nil, false
	}
	out := make(map[string]string, len(keys))
	for _, k := range keys {
		v, ok := m[k]
		if !ok {
			continue
		}
		s, err := v.AsString()
		if err != nil {
			return nil, false
		}
		out[k] = s
	}
	return out, true
}
