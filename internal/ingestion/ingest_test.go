package ingestion

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/normano/c5store/internal/datastore"
	"github.com/normano/c5store/pkg/secrets"
	"github.com/normano/c5store/pkg/source"
	"github.com/normano/c5store/pkg/telemetry"
	"github.com/normano/c5store/pkg/value"
)

func newTestStore() *datastore.Store {
	return datastore.New(telemetry.NewNopLogger(), telemetry.StatsRecorderStub{}, ".c5encval", secrets.NewSecretKeyStore())
}

func TestReadMergesInOrder(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.yaml", "service:\n  port: 8080\n  name: x\n")
	b := writeFile(t, dir, "b.yaml", "service:\n  port: 9090\n")

	store := newTestStore()
	provided := make(map[string][]value.Value)
	err := Read([]string{a, b}, store, provided, Options{EnvPrefix: "C5TEST_", Logger: telemetry.NewNopLogger()})
	require.NoError(t, err)

	port, ok := store.GetData("service.port")
	require.True(t, ok)
	assert.Equal(t, value.Uint(9090), port)

	name, ok := store.GetData("service.name")
	require.True(t, ok)
	assert.Equal(t, value.String("x"), name)

	src, ok := store.GetSource("service.port")
	require.True(t, ok)
	assert.Equal(t, source.FromFile(b), src)
}

func TestReadEnvOverridesFiles(t *testing.T) {
	t.Setenv("C5TEST_SERVICE__PORT", "12345")

	dir := t.TempDir()
	a := writeFile(t, dir, "a.yaml", "service:\n  port: 8080\n")

	store := newTestStore()
	err := Read([]string{a}, store, make(map[string][]value.Value), Options{EnvPrefix: "C5TEST_", Logger: telemetry.NewNopLogger()})
	require.NoError(t, err)

	port, ok := store.GetData("service.port")
	require.True(t, ok)
	assert.Equal(t, value.Uint(12345), port)

	src, ok := store.GetSource("service.port")
	require.True(t, ok)
	assert.Equal(t, source.FromEnvVar("C5TEST_SERVICE__PORT"), src)
}

func TestReadEnvArrayInference(t *testing.T) {
	t.Setenv("C5TEST_ITEMS__0", "x")
	t.Setenv("C5TEST_ITEMS__1", "y")

	store := newTestStore()
	err := Read(nil, store, make(map[string][]value.Value), Options{EnvPrefix: "C5TEST_", Logger: telemetry.NewNopLogger()})
	require.NoError(t, err)

	items, ok := store.GetData("items")
	require.True(t, ok)
	arr, err := items.AsArray()
	require.NoError(t, err)
	require.Len(t, arr, 2)
	assert.Equal(t, value.String("x"), arr[0])
	assert.Equal(t, value.String("y"), arr[1])

	src, ok := store.GetSource("items")
	require.True(t, ok)
	assert.Equal(t, source.EnvironmentVariable, src.Type)
}

func TestReadEnvNonSequentialStaysFlat(t *testing.T) {
	t.Setenv("C5TEST_ITEMS__A", "x")
	t.Setenv("C5TEST_ITEMS__B", "y")

	store := newTestStore()
	err := Read(nil, store, make(map[string][]value.Value), Options{EnvPrefix: "C5TEST_", Logger: telemetry.NewNopLogger()})
	require.NoError(t, err)

	_, ok := store.GetData("items")
	assert.False(t, ok)

	a, ok := store.GetData("items.a")
	require.True(t, ok)
	assert.Equal(t, value.String("x"), a)
}

func TestReadEnvForcedMap(t *testing.T) {
	t.Setenv("C5TEST_HANDLERS#MAP__0", "on_start")
	t.Setenv("C5TEST_HANDLERS#MAP__1", "on_stop")

	store := newTestStore()
	err := Read(nil, store, make(map[string][]value.Value), Options{EnvPrefix: "C5TEST_", Logger: telemetry.NewNopLogger()})
	require.NoError(t, err)

	handlers, ok := store.GetData("handlers")
	require.True(t, ok)
	m, err := handlers.AsMap()
	require.NoError(t, err)
	assert.Equal(t, value.String("on_start"), m["0"])
	assert.Equal(t, value.String("on_stop"), m["1"])
}

func TestReadBuffersProviderDescriptors(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.yaml", `
milestones:
  .provider: "resources"
  path: "milestones.yaml"
  format: "yaml"
`)

	store := newTestStore()
	provided := make(map[string][]value.Value)
	err := Read([]string{a}, store, provided, Options{EnvPrefix: "C5TEST_", Logger: telemetry.NewNopLogger()})
	require.NoError(t, err)

	assert.False(t, store.PathExists("milestones"))
	require.Len(t, provided["resources"], 1)
}

func TestReadParseErrorIsFatal(t *testing.T) {
	dir := t.TempDir()
	bad := writeFile(t, dir, "bad.yaml", "a: [unclosed\n")

	store := newTestStore()
	err := Read([]string{bad}, store, make(map[string][]value.Value), Options{EnvPrefix: "C5TEST_", Logger: telemetry.NewNopLogger()})
	assert.Error(t, err)
}
