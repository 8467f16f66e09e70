// Package datastore implements the flat, concurrent keypath map backing the
// store. Keys are unique, each maps to one (value, source) pair, and the
// write path transparently unwraps encrypted values whose key ends in the
// configured secret suffix.
package datastore

import (
	"crypto/sha256"
	"fmt"
	"strings"
	"sync"

	c5errors "github.com/normano/c5store/errors"
	"github.com/normano/c5store/internal/natsort"
	"github.com/normano/c5store/pkg/secrets"
	"github.com/normano/c5store/pkg/source"
	"github.com/normano/c5store/pkg/telemetry"
	"github.com/normano/c5store/pkg/value"
)

type record struct {
	val value.Value
	src source.Source
}

// SetResult describes the outcome of a write. EffectiveKey differs from the
// written key for secret writes, where the suffix is stripped. Old carries
// the previously stored value at the effective key when one existed.
type SetResult struct {
	EffectiveKey string
	Old          *value.Value
	New          value.Value
	Wrote        bool
}

// Store is the ordered concurrent data store. Reads share a lock, writes are
// serialized; the secret-hash cache makes identical re-hydrations of an
// encrypted value no-ops.
type Store struct {
	mu   sync.RWMutex
	data map[string]record

	secretSegment string
	keyStore      *secrets.SecretKeyStore
	logger        telemetry.Logger
	stats         telemetry.StatsRecorder

	hashMu       sync.Mutex
	secretHashes map[string][sha256.Size]byte
}

// New builds an empty store. secretSegment is the terminal key segment
// marking encrypted wrappers (".c5encval" by default, set by the caller).
func New(logger telemetry.Logger, stats telemetry.StatsRecorder, secretSegment string, keyStore *secrets.SecretKeyStore) *Store {
	return &Store{
		data:          make(map[string]record),
		secretSegment: secretSegment,
		keyStore:      keyStore,
		logger:        logger,
		stats:         stats,
		secretHashes:  make(map[string][sha256.Size]byte),
	}
}

// SecretSegment returns the configured secret wrapper key segment.
func (s *Store) SecretSegment() string { return s.secretSegment }

func (s *Store) secretSuffix() string { return "." + s.secretSegment }

// GetData returns a copy of the value stored at key.
func (s *Store) GetData(key string) (value.Value, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.data[key]
	if !ok {
		return value.Null(), false
	}
	return rec.val, true
}

// GetDataWithSource returns the value and its origin tag.
func (s *Store) GetDataWithSource(key string) (value.Value, source.Source, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.data[key]
	if !ok {
		return value.Null(), source.Source{}, false
	}
	return rec.val, rec.src, true
}

// GetSource returns the origin tag recorded for key.
func (s *Store) GetSource(key string) (source.Source, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.data[key]
	if !ok {
		return source.Source{}, false
	}
	return rec.src, true
}

// Exists reports an exact key match.
func (s *Store) Exists(key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.data[key]
	return ok
}

// PathExists reports an exact match or a strict prefix match against stored
// keys.
func (s *Store) PathExists(key string) bool {
	if key == "" {
		return false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.data[key]; ok {
		return true
	}
	prefix := key + "."
	for k := range s.data {
		if strings.HasPrefix(k, prefix) {
			return true
		}
	}
	return false
}

// KeysWithPrefix returns stored keys equal to keyPath or beginning with
// keyPath + ".", in the store's natural/lexicographic order. An empty
// keyPath returns every key.
func (s *Store) KeysWithPrefix(keyPath string) []string {
	s.mu.RLock()
	keys := make([]string, 0, len(s.data))
	if keyPath == "" {
		for k := range s.data {
			keys = append(keys, k)
		}
	} else {
		prefix := keyPath + "."
		for k := range s.data {
			if k == keyPath || strings.HasPrefix(k, prefix) {
				keys = append(keys, k)
			}
		}
	}
	s.mu.RUnlock()

	natsort.Sort(keys)
	return keys
}

// SetData writes a (value, source) pair. Keys ending in the secret suffix go
// through the decrypt path and land at the stripped key; arrays are scanned
// for embedded secret wrappers. On any secret failure the raw key path is
// never stored and the previous value at the effective key is untouched.
func (s *Store) SetData(key string, val value.Value, src source.Source) (SetResult, error) {
	if strings.HasSuffix(key, s.secretSuffix()) {
		return s.setSecretData(key, val, src)
	}

	if val.Kind() == value.KindArray || val.Kind() == value.KindMap {
		unwrapped, changed, err := s.unwrapEmbedded(key, val)
		if err != nil {
			return SetResult{EffectiveKey: key}, err
		}
		if changed {
			val = unwrapped
		}
	}

	old := s.put(key, val, src)
	return SetResult{EffectiveKey: key, Old: old, New: val, Wrote: true}, nil
}

func (s *Store) put(key string, val value.Value, src source.Source) *value.Value {
	s.mu.Lock()
	defer s.mu.Unlock()
	var old *value.Value
	if prev, ok := s.data[key]; ok {
		prevVal := prev.val
		old = &prevVal
	}
	s.data[key] = record{val: val, src: src}
	return old
}

// setSecretData runs the decrypting write protocol for a key ending in the
// secret suffix.
func (s *Store) setSecretData(key string, val value.Value, src source.Source) (SetResult, error) {
	stripped := strings.TrimSuffix(key, s.secretSuffix())
	res := SetResult{EffectiveKey: stripped}

	algo, keyName, ciphertext, err := s.parseSecretWrapper(key, val)
	if err != nil {
		s.reportSecretError(stripped, err)
		return res, err
	}

	hash := sha256.Sum256([]byte(algo + "/" + keyName + "/" + ciphertext))
	s.hashMu.Lock()
	cached, seen := s.secretHashes[stripped]
	s.hashMu.Unlock()
	if seen && cached == hash {
		// Same ciphertext as the last successful write; skip the decryption.
		return res, nil
	}

	plaintext, err := s.decrypt(stripped, algo, keyName, ciphertext)
	if err != nil {
		s.reportSecretError(stripped, err)
		return res, err
	}

	res.New = value.Bytes(plaintext)
	res.Old = s.put(stripped, res.New, src)
	res.Wrote = true

	// Cache only after a successful write so a failed attempt with the same
	// ciphertext can be retried.
	s.hashMu.Lock()
	s.secretHashes[stripped] = hash
	s.hashMu.Unlock()

	return res, nil
}

func (s *Store) parseSecretWrapper(key string, val value.Value) (algo, keyName, ciphertext string, err error) {
	arr, arrErr := val.AsArray()
	if arrErr != nil || len(arr) != 3 {
		return "", "", "", &c5errors.InvalidSecretFormatError{
			KeyPath: key,
			Message: "expected an array of [algorithm, key-name, base64-ciphertext]",
		}
	}
	parts := make([]string, 3)
	for i, item := range arr {
		str, strErr := item.AsString()
		if strErr != nil {
			return "", "", "", &c5errors.InvalidSecretFormatError{
				KeyPath: key,
				Message: fmt.Sprintf("element %d is %s, expected String", i, item.Kind()),
			}
		}
		parts[i] = str
	}
	return parts[0], parts[1], parts[2], nil
}

func (s *Store) decrypt(keyPath, algo, keyName, ciphertext string) ([]byte, error) {
	decryptor, ok := s.keyStore.GetDecryptor(algo)
	if !ok {
		return nil, &c5errors.UnknownAlgorithmError{Algorithm: algo, KeyPath: keyPath}
	}
	keyBytes, ok := s.keyStore.GetKey(keyName)
	if !ok {
		return nil, &c5errors.SecretKeyNotFoundError{KeyName: keyName, KeyPath: keyPath}
	}
	plaintext, err := decryptor.Decrypt([]byte(ciphertext), keyBytes)
	if err != nil {
		return nil, &c5errors.DecryptionError{KeyPath: keyPath, Err: err}
	}
	return plaintext, nil
}

// unwrapEmbedded walks an array or map value, decrypting every embedded
// secret wrapper (a map containing the secret segment key) in place. The
// first failure aborts the write so raw wrappers never land in the store.
func (s *Store) unwrapEmbedded(key string, val value.Value) (value.Value, bool, error) {
	switch val.Kind() {
	case value.KindMap:
		m, _ := val.AsMap()
		if wrapped, ok := m[s.secretSegment]; ok {
			algo, keyName, ciphertext, err := s.parseSecretWrapper(key, wrapped)
			if err != nil {
				s.reportSecretError(key, err)
				return value.Null(), false, err
			}
			plaintext, err := s.decrypt(key, algo, keyName, ciphertext)
			if err != nil {
				s.reportSecretError(key, err)
				return value.Null(), false, err
			}
			return value.Bytes(plaintext), true, nil
		}

		var out map[string]value.Value
		for k, item := range m {
			unwrapped, changed, err := s.unwrapEmbedded(key, item)
			if err != nil {
				return value.Null(), false, err
			}
			if changed && out == nil {
				out = make(map[string]value.Value, len(m))
				for ck, cv := range m {
					out[ck] = cv
				}
			}
			if changed {
				out[k] = unwrapped
			}
		}
		if out == nil {
			return val, false, nil
		}
		return value.Map(out), true, nil

	case value.KindArray:
		arr, _ := val.AsArray()
		var out []value.Value
		for i, item := range arr {
			unwrapped, changed, err := s.unwrapEmbedded(key, item)
			if err != nil {
				return value.Null(), false, err
			}
			if changed && out == nil {
				out = make([]value.Value, len(arr))
				copy(out, arr)
			}
			if changed {
				out[i] = unwrapped
			}
		}
		if out == nil {
			return val, false, nil
		}
		return value.Array(out), true, nil
	}

	return val, false, nil
}

func (s *Store) reportSecretError(keyPath string, err error) {
	s.logger.Error(fmt.Sprintf("secret write failed for %q", keyPath), err)
	s.stats.RecordCounterIncrement(map[string]string{"key_path": keyPath}, "c5store.secret_write_errors")
}
