// Package errors defines the error taxonomy shared by every c5store
// component. Each type carries the contextual fields a caller needs to act on
// the failure (key path, file path, underlying cause) and implements Unwrap
// where a cause exists, so errors.Is/errors.As work as expected.
package errors

import "fmt"

// KeyNotFoundError is returned by typed getters when no value is stored at
// the requested key path.
type KeyNotFoundError struct {
	KeyPath string
}

func (e *KeyNotFoundError) Error() string {
	return fmt.Sprintf("key not found: %s", e.KeyPath)
}

// TypeMismatchError is returned when a stored value's variant is incompatible
// with the requested projection target.
type TypeMismatchError struct {
	KeyPath  string
	Expected string
	Found    string
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("type mismatch for key %q: expected %s, found %s", e.KeyPath, e.Expected, e.Found)
}

// ConversionError is returned when a value is of the right family but out of
// range or in the wrong format for the requested target.
type ConversionError struct {
	KeyPath string
	Message string
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("conversion error for key %q: %s", e.KeyPath, e.Message)
}

// DeserializationError is returned when structural projection into a target
// struct fails.
type DeserializationError struct {
	KeyPath string
	Err     error
}

func (e *DeserializationError) Error() string {
	return fmt.Sprintf("failed to deserialize into target struct for key %q: %v", e.KeyPath, e.Err)
}

func (e *DeserializationError) Unwrap() error { return e.Err }

// IoError wraps a filesystem failure during ingestion with the path that
// triggered it.
type IoError struct {
	Path string
	Err  error
}

func (e *IoError) Error() string {
	return fmt.Sprintf("io error accessing path %q: %v", e.Path, e.Err)
}

func (e *IoError) Unwrap() error { return e.Err }

// YamlParseError identifies the file that failed to parse as YAML.
type YamlParseError struct {
	Path string
	Err  error
}

func (e *YamlParseError) Error() string {
	return fmt.Sprintf("failed to parse YAML file %q: %v", e.Path, e.Err)
}

func (e *YamlParseError) Unwrap() error { return e.Err }

// TomlParseError identifies the file that failed to parse as TOML.
type TomlParseError struct {
	Path string
	Err  error
}

func (e *TomlParseError) Error() string {
	return fmt.Sprintf("failed to parse TOML file %q: %v", e.Path, e.Err)
}

func (e *TomlParseError) Unwrap() error { return e.Err }

// DotEnvLoadError identifies a failure loading the optional environment
// preload file.
type DotEnvLoadError struct {
	Path string
	Err  error
}

func (e *DotEnvLoadError) Error() string {
	return fmt.Sprintf("failed to load env file %q: %v", e.Path, e.Err)
}

func (e *DotEnvLoadError) Unwrap() error { return e.Err }

// SecretKeyNotFoundError is raised by a decrypting write whose key name is
// not present in the secret key store.
type SecretKeyNotFoundError struct {
	KeyName string
	KeyPath string
}

func (e *SecretKeyNotFoundError) Error() string {
	return fmt.Sprintf("secret key %q referenced at %q not found in key store", e.KeyName, e.KeyPath)
}

// UnknownAlgorithmError is raised by a decrypting write whose algorithm name
// has no registered decryptor.
type UnknownAlgorithmError struct {
	Algorithm string
	KeyPath   string
}

func (e *UnknownAlgorithmError) Error() string {
	return fmt.Sprintf("secret algorithm %q referenced at %q has no registered decryptor", e.Algorithm, e.KeyPath)
}

// InvalidSecretFormatError is raised when a secret wrapper does not contain
// the expected [algorithm, key-name, ciphertext] triple.
type InvalidSecretFormatError struct {
	KeyPath string
	Message string
}

func (e *InvalidSecretFormatError) Error() string {
	return fmt.Sprintf("invalid secret value at %q: %s", e.KeyPath, e.Message)
}

// DecryptionError wraps a decryptor failure with the key path being written.
type DecryptionError struct {
	KeyPath string
	Err     error
}

func (e *DecryptionError) Error() string {
	return fmt.Sprintf("decryption failed for %q: %v", e.KeyPath, e.Err)
}

func (e *DecryptionError) Unwrap() error { return e.Err }
