package c5store

import (
	"time"

	"github.com/juju/clock"

	"github.com/normano/c5store/internal/ingestion"
	"github.com/normano/c5store/pkg/secrets"
	"github.com/normano/c5store/pkg/telemetry"
)

// DefaultChangeDelayPeriod is the debounce window applied when the options
// leave ChangeDelayPeriod unset.
const DefaultChangeDelayPeriod = 500 * time.Millisecond

// DefaultSecretKeyPathSegment marks encrypted value wrappers.
const DefaultSecretKeyPathSegment = ".c5encval"

// DefaultEnvVarPrefix selects which environment variables overlay
// configuration.
const DefaultEnvVarPrefix = "C5_"

// DefaultSecretKeyEnvPrefix selects which environment variables contribute
// decryption keys.
const DefaultSecretKeyEnvPrefix = "C5_SECRETKEY_"

// Case selects how environment-variable segments convert into key segments.
type Case = ingestion.Case

const (
	CaseCamel = ingestion.CaseCamel
	CaseSnake = ingestion.CaseSnake
	CaseKebab = ingestion.CaseKebab
	CaseLower = ingestion.CaseLower
)

// SecretOptions configures secret handling: the wrapper segment, decryption
// key sources, and a hook for registering additional algorithms.
type SecretOptions struct {
	// SecretKeyPathSegment overrides the wrapper segment. Defaults to
	// DefaultSecretKeyPathSegment.
	SecretKeyPathSegment string

	// SecretKeysPath names a directory of key files. Each file's stem
	// becomes the key name; .pem files are parsed as X25519 private keys.
	SecretKeysPath string

	// SecretKeyStoreConfigureFn runs before any keys are loaded, letting
	// callers register additional decryptors or keys.
	SecretKeyStoreConfigureFn func(*secrets.SecretKeyStore)

	// LoadSecretKeysFromEnv enables loading base64 keys from environment
	// variables matching SecretKeyEnvPrefix.
	LoadSecretKeysFromEnv bool

	// SecretKeyEnvPrefix overrides the key-loading prefix. Defaults to
	// DefaultSecretKeyEnvPrefix.
	SecretKeyEnvPrefix string

	// SystemdCredentials declares keys passed through systemd's
	// LoadCredential= mechanism.
	SystemdCredentials []secrets.SystemdCredential

	// KeyringKeys declares keys stored base64-encoded in the OS keyring.
	KeyringKeys []secrets.KeyringRef
}

// C5StoreOptions bundles everything NewC5Store needs besides the path list.
// The zero value is usable: a zap production logger, stub stats, camelCase
// env conversion, and the default prefixes and debounce window.
type C5StoreOptions struct {
	// Logger receives store telemetry. Defaults to a zap production logger.
	Logger telemetry.Logger

	// Stats receives counters and timers. Defaults to the stub.
	Stats telemetry.StatsRecorder

	// ChangeDelayPeriod is the notification debounce window.
	ChangeDelayPeriod time.Duration

	SecretOpts SecretOptions

	// EnvCase converts environment variable segments. Defaults to
	// CaseCamel.
	EnvCase Case

	// EnvVarPrefix overrides the configuration overlay prefix. Defaults to
	// DefaultEnvVarPrefix.
	EnvVarPrefix string

	// DotEnvPath optionally names a KEY=VALUE file preloaded into the
	// process environment before ingestion. Process env always wins.
	DotEnvPath string

	// Clock drives the debounce timer and provider refresh schedules.
	// Defaults to the wall clock; tests substitute a test clock.
	Clock clock.Clock
}
