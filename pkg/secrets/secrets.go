// Package secrets implements the secret key store: a registry of decryption
// algorithms and named key material consumed by the data store's
// decrypt-on-write path. Key bytes are held in memguard-backed buffers so
// they stay encrypted in memory between uses.
package secrets

import (
	"sync"

	"github.com/normano/c5store/internal/secure"
)

// Decryptor turns ciphertext into plaintext using the named key's material.
// The encrypted value arrives exactly as it appeared in configuration, which
// for the built-in algorithms means base64 text; decryptors own the
// decoding. Implementations must be safe for concurrent use.
type Decryptor interface {
	Decrypt(encrypted []byte, key []byte) ([]byte, error)
}

// SecretKeyStore maps algorithm names to decryptors and key names to key
// material. Both registries accept additions at any time before the write
// that needs them.
type SecretKeyStore struct {
	mu         sync.RWMutex
	decryptors map[string]Decryptor
	keys       map[string]*secure.KeyBuffer
}

// NewSecretKeyStore returns an empty store.
func NewSecretKeyStore() *SecretKeyStore {
	return &SecretKeyStore{
		decryptors: make(map[string]Decryptor),
		keys:       make(map[string]*secure.KeyBuffer),
	}
}

// SetDecryptor registers a decryptor under an algorithm name, replacing any
// previous registration.
func (s *SecretKeyStore) SetDecryptor(name string, d Decryptor) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.decryptors[name] = d
}

// GetDecryptor looks up the decryptor registered for name.
func (s *SecretKeyStore) GetDecryptor(name string) (Decryptor, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.decryptors[name]
	return d, ok
}

// SetKey stores key material under a logical name. The bytes are copied into
// a protected buffer and the caller's key slice is wiped.
func (s *SecretKeyStore) SetKey(name string, key []byte) {
	buf := secure.NewKeyBuffer(key)
	s.mu.Lock()
	old := s.keys[name]
	s.keys[name] = buf
	s.mu.Unlock()
	if old != nil {
		old.Destroy()
	}
}

// GetKey returns a copy of the key material stored under name.
func (s *SecretKeyStore) GetKey(name string) ([]byte, bool) {
	s.mu.RLock()
	buf, ok := s.keys[name]
	s.mu.RUnlock()
	if !ok {
		return nil, false
	}
	key, err := buf.Open()
	if err != nil {
		return nil, false
	}
	return key, true
}
