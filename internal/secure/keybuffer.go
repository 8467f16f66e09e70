// Package secure wraps decryption-key material in memguard enclaves so keys
// sit encrypted in memory and are mlocked against swapping where the
// platform allows it.
package secure

import (
	"errors"
	"sync"

	"github.com/awnumar/memguard"
)

// KeyBuffer holds one decryption key inside a memguard enclave. The enclave
// encrypts the key at rest; Open decrypts it into a short-lived locked
// buffer and hands back an ordinary copy of the bytes.
type KeyBuffer struct {
	enclave *memguard.Enclave

	mu        sync.RWMutex
	destroyed bool
}

// NewKeyBuffer copies data into a protected region; memguard wipes the
// caller's data slice once it has been sealed. Empty key material
// is legal (the base64 decryptor ignores its key) and held without an
// enclave.
func NewKeyBuffer(data []byte) *KeyBuffer {
	if len(data) == 0 {
		return &KeyBuffer{}
	}
	return &KeyBuffer{enclave: memguard.NewEnclave(data)}
}

// Open decrypts the enclave and returns the key bytes. The returned slice is
// a copy; the locked buffer backing the decryption is wiped before Open
// returns.
func (k *KeyBuffer) Open() ([]byte, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()

	if k.destroyed {
		return nil, errors.New("key buffer has been destroyed")
	}
	if k.enclave == nil {
		return []byte{}, nil
	}

	locked, err := k.enclave.Open()
	if err != nil {
		return nil, err
	}
	defer locked.Destroy()

	out := make([]byte, len(locked.Bytes()))
	copy(out, locked.Bytes())
	return out, nil
}

// Destroy marks the buffer unusable. Idempotent.
func (k *KeyBuffer) Destroy() {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.destroyed = true
}
