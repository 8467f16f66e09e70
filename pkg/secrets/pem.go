package secrets

import (
	"encoding/asn1"
	"encoding/pem"
	"errors"
	"fmt"
)

// oidX25519 is the RFC 8410 algorithm identifier for X25519 keys.
var oidX25519 = asn1.ObjectIdentifier{1, 3, 101, 110}

type pkcs8 struct {
	Version    int
	Algo       pkix
	PrivateKey []byte
}

type pkix struct {
	Algorithm asn1.ObjectIdentifier
}

// ParseX25519PrivateKeyPEM extracts the 32-byte scalar from a PEM-encoded
// PKCS#8 X25519 private key, the format produced by
// `openssl genpkey -algorithm X25519`.
func ParseX25519PrivateKeyPEM(data []byte) ([]byte, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, errors.New("no PEM block found")
	}
	if block.Type != "PRIVATE KEY" {
		return nil, fmt.Errorf("unexpected PEM block type %q", block.Type)
	}

	var key pkcs8
	if _, err := asn1.Unmarshal(block.Bytes, &key); err != nil {
		return nil, fmt.Errorf("malformed PKCS#8 structure: %w", err)
	}
	if !key.Algo.Algorithm.Equal(oidX25519) {
		return nil, fmt.Errorf("key algorithm %v is not X25519", key.Algo.Algorithm)
	}

	// RFC 8410 wraps the scalar in an inner OCTET STRING.
	var scalar []byte
	if _, err := asn1.Unmarshal(key.PrivateKey, &scalar); err != nil {
		return nil, fmt.Errorf("malformed X25519 private key: %w", err)
	}
	if len(scalar) != 32 {
		return nil, fmt.Errorf("X25519 scalar must be 32 bytes, got %d", len(scalar))
	}
	return scalar, nil
}

// MarshalX25519PrivateKeyPEM renders a 32-byte scalar as a PKCS#8 PEM block.
// It is the inverse of ParseX25519PrivateKeyPEM and exists so tests can
// build key fixtures without shelling out to openssl.
func MarshalX25519PrivateKeyPEM(scalar []byte) ([]byte, error) {
	if len(scalar) != 32 {
		return nil, fmt.Errorf("X25519 scalar must be 32 bytes, got %d", len(scalar))
	}

	inner, err := asn1.Marshal(scalar)
	if err != nil {
		return nil, err
	}
	der, err := asn1.Marshal(pkcs8{
		Version:    0,
		Algo:       pkix{Algorithm: oidX25519},
		PrivateKey: inner,
	})
	if err != nil {
		return nil, err
	}
	return pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der}), nil
}
