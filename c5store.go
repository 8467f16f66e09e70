package c5store

import (
	"github.com/juju/clock"
	"go.uber.org/zap"

	"github.com/normano/c5store/internal/datastore"
	"github.com/normano/c5store/internal/ingestion"
	"github.com/normano/c5store/internal/subscription"
	"github.com/normano/c5store/pkg/secrets"
	"github.com/normano/c5store/pkg/telemetry"
	"github.com/normano/c5store/pkg/value"
)

// NewC5Store builds the store from the ordered configuration path list
// (files or directories) and returns the read facade together with the
// manager that owns provider lifecycles. Callers must Stop the manager when
// done; the facade itself holds no background work.
func NewC5Store(configPaths []string, opts *C5StoreOptions) (C5Store, *C5StoreMgr, error) {
	if opts == nil {
		opts = &C5StoreOptions{}
	}
	applyDefaults(opts)

	if opts.DotEnvPath != "" {
		if err := ingestion.LoadEnvFile(opts.DotEnvPath); err != nil {
			return nil, nil, err
		}
	}

	keyStore, err := buildSecretKeyStore(&opts.SecretOpts, opts.Logger)
	if err != nil {
		return nil, nil, err
	}

	segment := opts.SecretOpts.SecretKeyPathSegment
	if segment == "" {
		segment = DefaultSecretKeyPathSegment
	}

	dataStore := datastore.New(opts.Logger, opts.Stats, segment, keyStore)
	subs := subscription.NewRegistry(opts.Logger)
	notifier := newChangeNotifier(opts.Clock, opts.ChangeDelayPeriod, dataStore, subs)
	setData := newSetDataFunc(dataStore, notifier)

	providedData := make(map[string][]value.Value)
	err = ingestion.Read(configPaths, dataStore, providedData, ingestion.Options{
		EnvPrefix: opts.EnvVarPrefix,
		EnvCase:   opts.EnvCase,
		Logger:    opts.Logger,
	})
	if err != nil {
		return nil, nil, err
	}

	root := &Root{dataStore: dataStore, subs: subs}
	mgr := newC5StoreMgr(opts.Clock, opts.Logger, opts.Stats, setData, providedData)
	return root, mgr, nil
}

func applyDefaults(opts *C5StoreOptions) {
	if opts.Logger == nil {
		if l, err := zap.NewProduction(); err == nil {
			opts.Logger = telemetry.NewZapLogger(l)
		} else {
			opts.Logger = telemetry.NewNopLogger()
		}
	}
	if opts.Stats == nil {
		opts.Stats = telemetry.StatsRecorderStub{}
	}
	if opts.ChangeDelayPeriod <= 0 {
		opts.ChangeDelayPeriod = DefaultChangeDelayPeriod
	}
	if opts.EnvVarPrefix == "" {
		opts.EnvVarPrefix = DefaultEnvVarPrefix
	}
	if opts.Clock == nil {
		opts.Clock = clock.WallClock
	}
}

// buildSecretKeyStore assembles the key store: built-in decryptors, the
// caller's configure hook, then keys from the directory, environment,
// systemd credentials, and OS keyring sources.
func buildSecretKeyStore(opts *SecretOptions, logger telemetry.Logger) (*secrets.SecretKeyStore, error) {
	keyStore := secrets.NewSecretKeyStore()
	keyStore.SetDecryptor(secrets.AlgoBase64, secrets.Base64Decryptor{})
	keyStore.SetDecryptor(secrets.AlgoEciesX25519, secrets.EciesX25519Decryptor{})

	if opts.SecretKeyStoreConfigureFn != nil {
		opts.SecretKeyStoreConfigureFn(keyStore)
	}

	if err := secrets.LoadKeyFiles(opts.SecretKeysPath, keyStore, logger); err != nil {
		return nil, err
	}

	if opts.LoadSecretKeysFromEnv {
		prefix := opts.SecretKeyEnvPrefix
		if prefix == "" {
			prefix = DefaultSecretKeyEnvPrefix
		}
		secrets.LoadKeysFromEnv(prefix, keyStore, logger)
	}

	if err := secrets.LoadSystemdCredentials(opts.SystemdCredentials, keyStore, logger); err != nil {
		return nil, err
	}

	secrets.LoadKeyringKeys(opts.KeyringKeys, keyStore, logger)

	return keyStore, nil
}
