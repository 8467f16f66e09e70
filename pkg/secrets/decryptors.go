package secrets

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/curve25519"
	"golang.org/x/crypto/hkdf"
)

// AlgoBase64 and AlgoEciesX25519 are the algorithm names of the built-in
// decryptors.
const (
	AlgoBase64      = "base64"
	AlgoEciesX25519 = "ecies_x25519"
)

const eciesInfo = "c5store-ecies-x25519"

// Base64Decryptor decodes the value and returns it verbatim. It exists for
// values that are encoded but not secret at rest, and for tests.
type Base64Decryptor struct{}

func (Base64Decryptor) Decrypt(encrypted []byte, _ []byte) ([]byte, error) {
	out, err := base64.StdEncoding.DecodeString(string(encrypted))
	if err != nil {
		return nil, fmt.Errorf("base64 decode failed: %w", err)
	}
	return out, nil
}

// EciesX25519Decryptor opens ciphertexts produced by EncryptEciesX25519: a
// 32-byte ephemeral X25519 public key followed by a
// ChaCha20-Poly1305 sealed box keyed via HKDF-SHA256 over the shared secret.
// The key material is the recipient's 32-byte static secret.
type EciesX25519Decryptor struct{}

func (EciesX25519Decryptor) Decrypt(encrypted []byte, key []byte) ([]byte, error) {
	decoded, err := base64.StdEncoding.DecodeString(string(encrypted))
	if err != nil {
		return nil, fmt.Errorf("base64 decode failed: %w", err)
	}
	if len(key) != curve25519.ScalarSize {
		return nil, fmt.Errorf("ecies_x25519 key must be %d bytes, got %d", curve25519.ScalarSize, len(key))
	}
	if len(decoded) < curve25519.PointSize+chacha20poly1305.Overhead {
		return nil, errors.New("ciphertext too short")
	}

	ephemeralPub := decoded[:curve25519.PointSize]
	box := decoded[curve25519.PointSize:]

	shared, err := curve25519.X25519(key, ephemeralPub)
	if err != nil {
		return nil, fmt.Errorf("x25519 agreement failed: %w", err)
	}
	recipientPub, err := curve25519.X25519(key, curve25519.Basepoint)
	if err != nil {
		return nil, fmt.Errorf("derive public key failed: %w", err)
	}

	aead, err := chacha20poly1305.New(deriveKey(shared, ephemeralPub, recipientPub))
	if err != nil {
		return nil, err
	}
	plaintext, err := aead.Open(nil, make([]byte, aead.NonceSize()), box, nil)
	if err != nil {
		return nil, errors.New("decryption failed")
	}
	return plaintext, nil
}

// EncryptEciesX25519 seals plaintext for the holder of the secret matching
// recipientPub, producing the raw wire bytes the decryptor expects (callers
// base64-encode them for the configuration wrapper).
func EncryptEciesX25519(plaintext []byte, recipientPub []byte) ([]byte, error) {
	if len(recipientPub) != curve25519.PointSize {
		return nil, fmt.Errorf("recipient public key must be %d bytes, got %d", curve25519.PointSize, len(recipientPub))
	}

	ephemeralSecret := make([]byte, curve25519.ScalarSize)
	if _, err := io.ReadFull(rand.Reader, ephemeralSecret); err != nil {
		return nil, err
	}
	ephemeralPub, err := curve25519.X25519(ephemeralSecret, curve25519.Basepoint)
	if err != nil {
		return nil, err
	}
	shared, err := curve25519.X25519(ephemeralSecret, recipientPub)
	if err != nil {
		return nil, fmt.Errorf("x25519 agreement failed: %w", err)
	}

	aead, err := chacha20poly1305.New(deriveKey(shared, ephemeralPub, recipientPub))
	if err != nil {
		return nil, err
	}
	box := aead.Seal(nil, make([]byte, aead.NonceSize()), plaintext, nil)
	return append(ephemeralPub, box...), nil
}

// X25519PublicKey derives the public key for a 32-byte static secret.
func X25519PublicKey(secret []byte) ([]byte, error) {
	return curve25519.X25519(secret, curve25519.Basepoint)
}

// deriveKey stretches the shared secret into an AEAD key. The ephemeral and
// recipient public keys are folded into the salt so each ciphertext keys its
// AEAD uniquely, which is what makes the fixed zero nonce safe.
func deriveKey(shared, ephemeralPub, recipientPub []byte) []byte {
	salt := make([]byte, 0, len(ephemeralPub)+len(recipientPub))
	salt = append(salt, ephemeralPub...)
	salt = append(salt, recipientPub...)

	key := make([]byte, chacha20poly1305.KeySize)
	kdf := hkdf.New(sha256.New, shared, salt, []byte(eciesInfo))
	if _, err := io.ReadFull(kdf, key); err != nil {
		// SHA-256 HKDF can always produce 32 bytes.
		panic(err)
	}
	return key
}
