package datastore

import (
	"encoding/base64"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	c5errors "github.com/normano/c5store/errors"
	"github.com/normano/c5store/pkg/secrets"
	"github.com/normano/c5store/pkg/source"
	"github.com/normano/c5store/pkg/telemetry"
	"github.com/normano/c5store/pkg/value"
)

func newStore(t *testing.T) (*Store, *secrets.SecretKeyStore) {
	t.Helper()
	ks := secrets.NewSecretKeyStore()
	ks.SetDecryptor(secrets.AlgoBase64, secrets.Base64Decryptor{})
	store := New(telemetry.NewNopLogger(), telemetry.StatsRecorderStub{}, ".c5encval", ks)
	return store, ks
}

func secretWrapper(algo, keyName, ciphertext string) value.Value {
	return value.Array([]value.Value{
		value.String(algo), value.String(keyName), value.String(ciphertext),
	})
}

func TestSetGetRoundTrip(t *testing.T) {
	store, _ := newStore(t)

	res, err := store.SetData("bill.barr", value.String("AG"), source.FromFile("a.yaml"))
	require.NoError(t, err)
	assert.True(t, res.Wrote)
	assert.Nil(t, res.Old)

	v, ok := store.GetData("bill.barr")
	require.True(t, ok)
	assert.Equal(t, value.String("AG"), v)

	assert.True(t, store.Exists("bill.barr"))
	assert.False(t, store.Exists("bill"))
	assert.True(t, store.PathExists("bill"))
	assert.True(t, store.PathExists("bill.barr"))
	assert.False(t, store.PathExists("bill.barr."))
}

func TestSourceOverwrittenOnEveryWrite(t *testing.T) {
	store, _ := newStore(t)

	store.SetData("k", value.Uint(1), source.FromFile("a.yaml"))
	store.SetData("k", value.Uint(1), source.FromProvider("p"))

	src, ok := store.GetSource("k")
	require.True(t, ok)
	assert.Equal(t, source.FromProvider("p"), src)

	res, err := store.SetData("k", value.Uint(2), source.Programmatic())
	require.NoError(t, err)
	require.NotNil(t, res.Old)
	assert.Equal(t, value.Uint(1), *res.Old)
}

func TestKeysWithPrefixNaturalOrder(t *testing.T) {
	store, _ := newStore(t)
	for _, k := range []string{"svc.item10", "svc.item2", "svc.item1", "other.x"} {
		store.SetData(k, value.Uint(1), source.Programmatic())
	}

	keys := store.KeysWithPrefix("svc")
	assert.Equal(t, []string{"svc.item1", "svc.item2", "svc.item10"}, keys)

	all := store.KeysWithPrefix("")
	assert.Len(t, all, 4)
}

func TestKeysWithPrefixIncludesExactMatch(t *testing.T) {
	store, _ := newStore(t)
	store.SetData("db", value.String("x"), source.Programmatic())
	store.SetData("db.host", value.String("h"), source.Programmatic())
	store.SetData("dbz", value.String("z"), source.Programmatic())

	keys := store.KeysWithPrefix("db")
	assert.Equal(t, []string{"db", "db.host"}, keys)
}

func TestSecretWriteDecryptsToStrippedKey(t *testing.T) {
	store, ks := newStore(t)
	ks.SetKey("_", nil)

	res, err := store.SetData("a_secret..c5encval", secretWrapper("base64", "_", "YWJjZA=="), source.FromFile("s.yaml"))
	require.NoError(t, err)
	assert.True(t, res.Wrote)
	assert.Equal(t, "a_secret", res.EffectiveKey)

	v, ok := store.GetData("a_secret")
	require.True(t, ok)
	b, err := v.AsBytes()
	require.NoError(t, err)
	assert.Equal(t, []byte{0x61, 0x62, 0x63, 0x64}, b)

	// The raw wrapper key is never visible.
	assert.False(t, store.Exists("a_secret..c5encval"))
	assert.False(t, store.PathExists("a_secret..c5encval"))
	for _, k := range store.KeysWithPrefix("") {
		assert.NotContains(t, k, ".c5encval")
	}
}

func TestSecretRewriteSameCiphertextIsNoOp(t *testing.T) {
	store, ks := newStore(t)
	ks.SetKey("_", nil)

	wrapper := secretWrapper("base64", "_", "YWJjZA==")
	res, err := store.SetData("a_secret..c5encval", wrapper, source.Programmatic())
	require.NoError(t, err)
	assert.True(t, res.Wrote)

	res, err = store.SetData("a_secret..c5encval", wrapper, source.Programmatic())
	require.NoError(t, err)
	assert.False(t, res.Wrote)
}

func TestSecretChangedCiphertextWrites(t *testing.T) {
	store, ks := newStore(t)
	ks.SetKey("_", nil)

	store.SetData("s..c5encval", secretWrapper("base64", "_", "YWJjZA=="), source.Programmatic())
	res, err := store.SetData("s..c5encval", secretWrapper("base64", "_", base64.StdEncoding.EncodeToString([]byte("wxyz"))), source.Programmatic())
	require.NoError(t, err)
	assert.True(t, res.Wrote)
	require.NotNil(t, res.Old)
	assert.Equal(t, value.Bytes([]byte("abcd")), *res.Old)
}

func TestSecretUnknownAlgorithm(t *testing.T) {
	store, ks := newStore(t)
	ks.SetKey("_", nil)

	_, err := store.SetData("s..c5encval", secretWrapper("rot13", "_", "YWJjZA=="), source.Programmatic())
	var algoErr *c5errors.UnknownAlgorithmError
	require.ErrorAs(t, err, &algoErr)
	assert.Equal(t, "rot13", algoErr.Algorithm)

	assert.False(t, store.Exists("s"))
}

func TestSecretMissingKey(t *testing.T) {
	store, _ := newStore(t)

	_, err := store.SetData("s..c5encval", secretWrapper("base64", "nokey", "YWJjZA=="), source.Programmatic())
	var keyErr *c5errors.SecretKeyNotFoundError
	require.ErrorAs(t, err, &keyErr)
	assert.Equal(t, "nokey", keyErr.KeyName)
}

func TestSecretInvalidFormat(t *testing.T) {
	store, _ := newStore(t)

	_, err := store.SetData("s..c5encval", value.String("not a wrapper"), source.Programmatic())
	var formatErr *c5errors.InvalidSecretFormatError
	require.ErrorAs(t, err, &formatErr)

	_, err = store.SetData("s..c5encval", value.Array([]value.Value{value.String("base64")}), source.Programmatic())
	require.ErrorAs(t, err, &formatErr)
}

func TestSecretFailurePreservesPreviousValue(t *testing.T) {
	store, ks := newStore(t)
	ks.SetKey("_", nil)

	store.SetData("s..c5encval", secretWrapper("base64", "_", "YWJjZA=="), source.Programmatic())
	_, err := store.SetData("s..c5encval", secretWrapper("base64", "_", "!!not-base64!!"), source.Programmatic())
	var decErr *c5errors.DecryptionError
	require.ErrorAs(t, err, &decErr)

	v, ok := store.GetData("s")
	require.True(t, ok)
	assert.Equal(t, value.Bytes([]byte("abcd")), v)
}

func TestSecretFailureDoesNotPoisonHashCache(t *testing.T) {
	store, ks := newStore(t)

	wrapper := secretWrapper("base64", "late_key", "YWJjZA==")
	_, err := store.SetData("s..c5encval", wrapper, source.Programmatic())
	require.Error(t, err)

	// The key arrives after the failed write; the same ciphertext must now
	// succeed.
	ks.SetKey("late_key", nil)
	res, err := store.SetData("s..c5encval", wrapper, source.Programmatic())
	require.NoError(t, err)
	assert.True(t, res.Wrote)
}

func TestArrayWithEmbeddedSecretWrappers(t *testing.T) {
	store, ks := newStore(t)
	ks.SetKey("test_key", nil)

	endpoints := value.Array([]value.Value{
		value.Map(map[string]value.Value{
			"name":    value.String("user-service"),
			"api_key": value.String("plain-key-123"),
		}),
		value.Map(map[string]value.Value{
			"name": value.String("auth-service"),
			"api_key": value.Map(map[string]value.Value{
				".c5encval": secretWrapper("base64", "test_key", base64.StdEncoding.EncodeToString([]byte("super-secret-auth-key"))),
			}),
		}),
	})

	res, err := store.SetData("services.endpoints", endpoints, source.Programmatic())
	require.NoError(t, err)
	assert.True(t, res.Wrote)

	v, ok := store.GetData("services.endpoints")
	require.True(t, ok)
	arr, err := v.AsArray()
	require.NoError(t, err)
	require.Len(t, arr, 2)

	second, err := arr[1].AsMap()
	require.NoError(t, err)
	assert.Equal(t, value.Bytes([]byte("super-secret-auth-key")), second["api_key"])
}

func TestArrayEmbeddedSecretFailureAbortsWrite(t *testing.T) {
	store, _ := newStore(t)

	arr := value.Array([]value.Value{
		value.Map(map[string]value.Value{
			".c5encval": secretWrapper("base64", "missing", "YWJjZA=="),
		}),
	})

	_, err := store.SetData("k", arr, source.Programmatic())
	require.Error(t, err)
	assert.False(t, store.Exists("k"))
}

func TestConcurrentReadersAndWriters(t *testing.T) {
	store, _ := newStore(t)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				store.SetData("hot.key", value.Int(int64(i)), source.Programmatic())
			}
		}(g)
		go func(n int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				store.GetData("hot.key")
				store.KeysWithPrefix("hot")
			}
		}(g)
	}
	wg.Wait()

	assert.True(t, store.Exists("hot.key"))
}
