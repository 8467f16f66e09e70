// Package c5store is a unified configuration and secret store. It merges
// configuration from YAML/TOML files, directories, environment variables,
// and pluggable value providers into one hierarchically addressed, typed
// key-value space, decrypting wrapped secrets on write and notifying
// subscribers of changes through a debounced dispatcher.
package c5store

import (
	"reflect"
	"strings"

	"github.com/mitchellh/mapstructure"

	c5errors "github.com/normano/c5store/errors"
	"github.com/normano/c5store/internal/datastore"
	"github.com/normano/c5store/internal/ingestion"
	"github.com/normano/c5store/internal/subscription"
	"github.com/normano/c5store/pkg/source"
	"github.com/normano/c5store/pkg/value"
)

// ChangeListener receives the key path it subscribed at, the key path that
// changed, and the value current at dispatch time.
type ChangeListener = subscription.ChangeListener

// DetailedChangeListener additionally receives the value held before the
// debounce window's first write, or nil for a fresh insert.
type DetailedChangeListener = subscription.DetailedChangeListener

// C5Store is the read facade over the store. Branches share the root's data;
// every method is safe for concurrent use.
type C5Store interface {
	// Get returns the raw value stored at keyPath.
	Get(keyPath string) (value.Value, bool)

	// GetWithSource returns the value together with its origin tag.
	GetWithSource(keyPath string) (value.Value, source.Source, bool)

	// Typed getters project the stored value; see pkg/value for the
	// projection rules. Absent keys yield a KeyNotFoundError.
	GetString(keyPath string) (string, error)
	GetBytes(keyPath string) ([]byte, error)
	GetBool(keyPath string) (bool, error)
	GetInt64(keyPath string) (int64, error)
	GetUint64(keyPath string) (uint64, error)
	GetFloat64(keyPath string) (float64, error)

	// GetIntoStruct reconstructs a structured value rooted at keyPath into
	// out, whether the data is stored nested or flattened.
	GetIntoStruct(keyPath string, out any) error

	// Exists reports an exact key match.
	Exists(keyPath string) bool

	// PathExists reports an exact match or a strict prefix match.
	PathExists(keyPath string) bool

	// Subscribe registers a listener at keyPath, which may be an ancestor
	// prefix of the keys that actually change.
	Subscribe(keyPath string, listener ChangeListener)
	SubscribeDetailed(keyPath string, listener DetailedChangeListener)

	// Branch returns a view rooted at keyPath; all operations on the branch
	// are prefix-qualified.
	Branch(keyPath string) C5Store

	// KeyPathsWithPrefix lists stored keys under keyPath in natural order.
	// An empty keyPath lists every key.
	KeyPathsWithPrefix(keyPath string) []string

	// CurrentKeyPath returns "" on the root and the accumulated prefix on
	// branches.
	CurrentKeyPath() string

	// GetSource returns the origin tag of the value at keyPath.
	GetSource(keyPath string) (source.Source, bool)
}

// Root is the store facade rooted at the empty key path.
type Root struct {
	dataStore *datastore.Store
	subs      *subscription.Registry
}

var _ C5Store = (*Root)(nil)

func (r *Root) Get(keyPath string) (value.Value, bool) {
	return r.dataStore.GetData(keyPath)
}

func (r *Root) GetWithSource(keyPath string) (value.Value, source.Source, bool) {
	return r.dataStore.GetDataWithSource(keyPath)
}

func (r *Root) GetString(keyPath string) (string, error) {
	v, ok := r.Get(keyPath)
	if !ok {
		return "", &c5errors.KeyNotFoundError{KeyPath: keyPath}
	}
	s, err := v.AsString()
	return s, withKeyPath(err, keyPath)
}

func (r *Root) GetBytes(keyPath string) ([]byte, error) {
	v, ok := r.Get(keyPath)
	if !ok {
		return nil, &c5errors.KeyNotFoundError{KeyPath: keyPath}
	}
	b, err := v.AsBytes()
	return b, withKeyPath(err, keyPath)
}

func (r *Root) GetBool(keyPath string) (bool, error) {
	v, ok := r.Get(keyPath)
	if !ok {
		return false, &c5errors.KeyNotFoundError{KeyPath: keyPath}
	}
	b, err := v.AsBool()
	return b, withKeyPath(err, keyPath)
}

func (r *Root) GetInt64(keyPath string) (int64, error) {
	v, ok := r.Get(keyPath)
	if !ok {
		return 0, &c5errors.KeyNotFoundError{KeyPath: keyPath}
	}
	i, err := v.AsInt64()
	return i, withKeyPath(err, keyPath)
}

func (r *Root) GetUint64(keyPath string) (uint64, error) {
	v, ok := r.Get(keyPath)
	if !ok {
		return 0, &c5errors.KeyNotFoundError{KeyPath: keyPath}
	}
	u, err := v.AsUint64()
	return u, withKeyPath(err, keyPath)
}

func (r *Root) GetFloat64(keyPath string) (float64, error) {
	v, ok := r.Get(keyPath)
	if !ok {
		return 0, &c5errors.KeyNotFoundError{KeyPath: keyPath}
	}
	f, err := v.AsFloat64()
	return f, withKeyPath(err, keyPath)
}

func (r *Root) GetIntoStruct(keyPath string, out any) error {
	var directErr error
	if direct, ok := r.Get(keyPath); ok && !direct.IsNull() {
		normalized := ingestion.NormalizeValue(direct, false)
		err := decodeValue(normalized, out)
		if err == nil {
			return nil
		}
		// A direct value that does not decode may still be completed by
		// flattened children under the same prefix.
		directErr = &c5errors.DeserializationError{KeyPath: keyPath, Err: err}
	}

	reconstructed, ok := r.fetchChildren(keyPath)
	if !ok {
		if directErr != nil {
			return directErr
		}
		return &c5errors.KeyNotFoundError{KeyPath: keyPath}
	}
	if err := decodeValue(reconstructed, out); err != nil {
		return &c5errors.DeserializationError{KeyPath: keyPath, Err: err}
	}
	return nil
}

// fetchChildren synthesizes a nested value from the flattened keys under
// keyPath, applying the array/map inference rules.
func (r *Root) fetchChildren(keyPath string) (value.Value, bool) {
	keys := r.dataStore.KeysWithPrefix(keyPath)

	nested := make(map[string]value.Value)
	found := false
	for _, key := range keys {
		rel := key
		if keyPath != "" {
			if key == keyPath {
				continue
			}
			rel = strings.TrimPrefix(key, keyPath+".")
		}
		v, ok := r.dataStore.GetData(key)
		if !ok {
			continue
		}
		insertNested(nested, strings.Split(rel, "."), v)
		found = true
	}
	if !found {
		return value.Null(), false
	}
	return ingestion.NormalizeValue(value.Map(nested), false), true
}

func insertNested(m map[string]value.Value, segments []string, v value.Value) {
	if len(segments) == 1 {
		m[segments[0]] = v
		return
	}
	child, ok := m[segments[0]]
	var childMap map[string]value.Value
	if ok && child.Kind() == value.KindMap {
		childMap, _ = child.AsMap()
	} else {
		// A scalar can share a dot-prefix with deeper keys; the deeper
		// structure wins during reconstruction.
		childMap = make(map[string]value.Value)
		m[segments[0]] = value.Map(childMap)
	}
	insertNested(childMap, segments[1:], v)
}

func (r *Root) Exists(keyPath string) bool {
	return r.dataStore.Exists(keyPath)
}

func (r *Root) PathExists(keyPath string) bool {
	return r.dataStore.PathExists(keyPath)
}

func (r *Root) Subscribe(keyPath string, listener ChangeListener) {
	r.subs.Add(keyPath, listener)
}

func (r *Root) SubscribeDetailed(keyPath string, listener DetailedChangeListener) {
	r.subs.AddDetailed(keyPath, listener)
}

func (r *Root) Branch(keyPath string) C5Store {
	return &Branch{root: r, keyPath: keyPath}
}

func (r *Root) KeyPathsWithPrefix(keyPath string) []string {
	return r.dataStore.KeysWithPrefix(keyPath)
}

func (r *Root) CurrentKeyPath() string { return "" }

func (r *Root) GetSource(keyPath string) (source.Source, bool) {
	return r.dataStore.GetSource(keyPath)
}

// Branch is a lightweight view of the root at a key prefix.
type Branch struct {
	root    *Root
	keyPath string
}

var _ C5Store = (*Branch)(nil)

func (b *Branch) mergeKeyPath(keyPath string) string {
	if keyPath == "" {
		return b.keyPath
	}
	return b.keyPath + "." + keyPath
}

func (b *Branch) Get(keyPath string) (value.Value, bool) {
	return b.root.Get(b.mergeKeyPath(keyPath))
}

func (b *Branch) GetWithSource(keyPath string) (value.Value, source.Source, bool) {
	return b.root.GetWithSource(b.mergeKeyPath(keyPath))
}

func (b *Branch) GetString(keyPath string) (string, error) {
	return b.root.GetString(b.mergeKeyPath(keyPath))
}

func (b *Branch) GetBytes(keyPath string) ([]byte, error) {
	return b.root.GetBytes(b.mergeKeyPath(keyPath))
}

func (b *Branch) GetBool(keyPath string) (bool, error) {
	return b.root.GetBool(b.mergeKeyPath(keyPath))
}

func (b *Branch) GetInt64(keyPath string) (int64, error) {
	return b.root.GetInt64(b.mergeKeyPath(keyPath))
}

func (b *Branch) GetUint64(keyPath string) (uint64, error) {
	return b.root.GetUint64(b.mergeKeyPath(keyPath))
}

func (b *Branch) GetFloat64(keyPath string) (float64, error) {
	return b.root.GetFloat64(b.mergeKeyPath(keyPath))
}

func (b *Branch) GetIntoStruct(keyPath string, out any) error {
	return b.root.GetIntoStruct(b.mergeKeyPath(keyPath), out)
}

func (b *Branch) Exists(keyPath string) bool {
	return b.root.Exists(b.mergeKeyPath(keyPath))
}

func (b *Branch) PathExists(keyPath string) bool {
	return b.root.PathExists(b.mergeKeyPath(keyPath))
}

func (b *Branch) Subscribe(keyPath string, listener ChangeListener) {
	b.root.Subscribe(b.mergeKeyPath(keyPath), listener)
}

func (b *Branch) SubscribeDetailed(keyPath string, listener DetailedChangeListener) {
	b.root.SubscribeDetailed(b.mergeKeyPath(keyPath), listener)
}

func (b *Branch) Branch(keyPath string) C5Store {
	return &Branch{root: b.root, keyPath: b.mergeKeyPath(keyPath)}
}

func (b *Branch) KeyPathsWithPrefix(keyPath string) []string {
	return b.root.KeyPathsWithPrefix(b.mergeKeyPath(keyPath))
}

func (b *Branch) CurrentKeyPath() string { return b.keyPath }

func (b *Branch) GetSource(keyPath string) (source.Source, bool) {
	return b.root.GetSource(b.mergeKeyPath(keyPath))
}

// GetInto projects the value rooted at keyPath into T using the structural
// decoding rules, covering scalars, slices, maps, and structs alike.
func GetInto[T any](s C5Store, keyPath string) (T, error) {
	var out T
	err := s.GetIntoStruct(keyPath, &out)
	return out, err
}

// withKeyPath stamps the key path onto projection errors, which are built
// below the facade without key context.
func withKeyPath(err error, keyPath string) error {
	switch e := err.(type) {
	case nil:
		return nil
	case *c5errors.TypeMismatchError:
		e.KeyPath = keyPath
	case *c5errors.ConversionError:
		e.KeyPath = keyPath
	}
	return err
}

// decodeValue projects a value into a caller struct. Decoding is
// format-permissive: byte payloads become strings or fixed-width big-endian
// integers where the target field asks for them, and scalar strings convert
// to numbers and booleans.
func decodeValue(v value.Value, out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
		DecodeHook:       bytesProjectionHook,
	})
	if err != nil {
		return err
	}
	return decoder.Decode(v.Interface())
}

// bytesProjectionHook applies the byte-projection rules during struct
// decoding: bytes to string require valid UTF-8, bytes to a fixed-width
// number require an exact-width big-endian payload.
func bytesProjectionHook(from reflect.Type, to reflect.Type, data any) (any, error) {
	b, ok := data.([]byte)
	if !ok {
		return data, nil
	}

	v := value.Bytes(b)
	switch to.Kind() {
	case reflect.String:
		return v.AsString()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return bytesToUint(b, int(to.Size()))
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		u, err := bytesToUint(b, int(to.Size()))
		if err != nil {
			return nil, err
		}
		return int64(u), nil
	case reflect.Float32:
		u, err := bytesToUint(b, 4)
		if err != nil {
			return nil, err
		}
		return float64(mathFloat32frombits(uint32(u))), nil
	case reflect.Float64:
		return value.Bytes(b).AsFloat64()
	}
	return data, nil
}
