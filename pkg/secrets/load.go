package secrets

import (
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/zalando/go-keyring"

	c5errors "github.com/normano/c5store/errors"
	"github.com/normano/c5store/pkg/telemetry"
)

// KeyFormat describes how key material read from a host credential source is
// encoded.
type KeyFormat string

const (
	// KeyFormatRaw uses the credential bytes verbatim.
	KeyFormatRaw KeyFormat = "raw"
	// KeyFormatPemX25519 parses the credential as a PEM-encoded PKCS#8
	// X25519 private key and stores the extracted 32-byte scalar.
	KeyFormatPemX25519 KeyFormat = "pemx25519"
)

// SystemdCredential names one credential passed by systemd's LoadCredential=
// mechanism and the logical key name it should be stored under.
type SystemdCredential struct {
	CredentialName string
	RefKeyName     string
	Format         KeyFormat
}

// KeyringRef names one entry in the operating system keyring whose
// base64-encoded value should be loaded as key material.
type KeyringRef struct {
	Service    string
	User       string
	RefKeyName string
}

// credentialsDirEnv is the well-known variable systemd sets for services
// started with LoadCredential=.
const credentialsDirEnv = "CREDENTIALS_DIRECTORY"

// LoadKeyFiles reads every regular file in dir into the key store. The file
// stem becomes the key name; a .pem extension triggers X25519 private key
// parsing. A missing directory is tolerated; unreadable or unparseable
// individual files are logged and skipped.
func LoadKeyFiles(dir string, store *SecretKeyStore, logger telemetry.Logger) error {
	if dir == "" {
		return nil
	}

	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		logger.Warn(fmt.Sprintf("secret keys path %q does not exist", dir))
		return nil
	}
	if err != nil {
		return &c5errors.IoError{Path: dir, Err: err}
	}
	if !info.IsDir() {
		return &c5errors.IoError{Path: dir, Err: fmt.Errorf("secret keys path is not a directory")}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return &c5errors.IoError{Path: dir, Err: err}
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		key, err := os.ReadFile(path)
		if err != nil {
			logger.Error(fmt.Sprintf("error reading key file %q", path), err)
			continue
		}

		ext := filepath.Ext(entry.Name())
		name := strings.TrimSuffix(entry.Name(), ext)
		if name == "" {
			logger.Warn(fmt.Sprintf("skipping key file with empty stem: %q", path))
			continue
		}

		if strings.EqualFold(ext, ".pem") {
			key, err = ParseX25519PrivateKeyPEM(key)
			if err != nil {
				logger.Warn(fmt.Sprintf("error parsing PEM key file %q: %v", path, err))
				continue
			}
		}

		logger.Debug(fmt.Sprintf("loading key %q from file %q", name, path))
		store.SetKey(name, key)
	}
	return nil
}

// LoadKeysFromEnv scans the process environment for variables matching
// prefix and stores their base64-decoded values. The key name is the suffix
// after the prefix, lowercased.
func LoadKeysFromEnv(prefix string, store *SecretKeyStore, logger telemetry.Logger) {
	for _, kv := range os.Environ() {
		name, val, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(name, prefix) {
			continue
		}
		keyName := strings.ToLower(strings.TrimPrefix(name, prefix))
		key, err := base64.StdEncoding.DecodeString(val)
		if err != nil {
			logger.Error(fmt.Sprintf("error base64 decoding secret key from env var %q", name), err)
			continue
		}
		logger.Debug(fmt.Sprintf("loading key %q from env var %q", keyName, name))
		store.SetKey(keyName, key)
	}
}

// LoadSystemdCredentials reads declared credentials from the directory named
// by CREDENTIALS_DIRECTORY. A missing directory variable is tolerated; an
// unreadable or unparseable declared credential is fatal.
func LoadSystemdCredentials(creds []SystemdCredential, store *SecretKeyStore, logger telemetry.Logger) error {
	if len(creds) == 0 {
		return nil
	}

	credDir := os.Getenv(credentialsDirEnv)
	if credDir == "" {
		logger.Warn(fmt.Sprintf("%s is not set; skipping systemd credential loading", credentialsDirEnv))
		return nil
	}

	for _, cred := range creds {
		path := filepath.Join(credDir, cred.CredentialName)
		key, err := os.ReadFile(path)
		if err != nil {
			return &c5errors.IoError{Path: path, Err: err}
		}

		switch cred.Format {
		case KeyFormatPemX25519:
			key, err = ParseX25519PrivateKeyPEM(key)
			if err != nil {
				return fmt.Errorf("failed to parse PEM credential %q from %q: %w", cred.CredentialName, path, err)
			}
		case KeyFormatRaw, "":
			// Verbatim.
		default:
			return fmt.Errorf("unknown credential format %q for %q", cred.Format, cred.CredentialName)
		}

		logger.Debug(fmt.Sprintf("loaded systemd credential %q as key %q", cred.CredentialName, cred.RefKeyName))
		store.SetKey(cred.RefKeyName, key)
	}
	return nil
}

// LoadKeyringKeys loads base64-encoded key material from the OS keyring.
// Entries that are missing or malformed are logged and skipped; the keyring
// is an optional convenience source.
func LoadKeyringKeys(refs []KeyringRef, store *SecretKeyStore, logger telemetry.Logger) {
	for _, ref := range refs {
		val, err := keyring.Get(ref.Service, ref.User)
		if err != nil {
			logger.Warn(fmt.Sprintf("keyring entry %s/%s unavailable: %v", ref.Service, ref.User, err))
			continue
		}
		key, err := base64.StdEncoding.DecodeString(val)
		if err != nil {
			logger.Error(fmt.Sprintf("error base64 decoding keyring entry %s/%s", ref.Service, ref.User), err)
			continue
		}
		logger.Debug(fmt.Sprintf("loading key %q from keyring", ref.RefKeyName))
		store.SetKey(ref.RefKeyName, key)
	}
}
