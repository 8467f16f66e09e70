package ingestion

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/normano/c5store/pkg/source"
	"github.com/normano/c5store/pkg/telemetry"
	"github.com/normano/c5store/pkg/value"
)

func TestConvertCase(t *testing.T) {
	tests := []struct {
		segment string
		c       Case
		want    string
	}{
		{"NEW_DASHBOARD", CaseCamel, "newDashboard"},
		{"PORT", CaseCamel, "port"},
		{"NEW_DASHBOARD", CaseSnake, "new_dashboard"},
		{"NEW_DASHBOARD", CaseKebab, "new-dashboard"},
		{"NEW_DASHBOARD", CaseLower, "newdashboard"},
		{"HANDLERS#MAP", CaseCamel, "handlers#map"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ConvertCase(tt.segment, tt.c), tt.segment)
	}
}

func TestParseEnvValue(t *testing.T) {
	assert.Equal(t, value.Bool(true), ParseEnvValue("true"))
	assert.Equal(t, value.Bool(false), ParseEnvValue("off"))
	assert.Equal(t, value.Uint(12345), ParseEnvValue("12345"))
	assert.Equal(t, value.Int(-3), ParseEnvValue("-3"))
	assert.Equal(t, value.Float(1.5), ParseEnvValue("1.5"))
	assert.Equal(t, value.String("localhost"), ParseEnvValue("localhost"))
	// Numeric boolean tokens stay numeric; projection still accepts them as
	// booleans.
	assert.Equal(t, value.Uint(1), ParseEnvValue("1"))
}

func TestOverlayEnv(t *testing.T) {
	t.Setenv("C5_SERVICE__PORT", "12345")
	t.Setenv("C5_SERVICE__NAME", "svc")
	t.Setenv("UNRELATED", "zzz")

	tree := map[string]value.Value{
		"service": value.Map(map[string]value.Value{
			"port": value.Uint(8080),
		}),
	}

	sources := OverlayEnv(tree, "C5_", CaseCamel, telemetry.NewNopLogger())

	svc, err := tree["service"].AsMap()
	require.NoError(t, err)
	assert.Equal(t, value.Uint(12345), svc["port"])
	assert.Equal(t, value.String("svc"), svc["name"])

	assert.Equal(t, source.FromEnvVar("C5_SERVICE__PORT"), sources["service.port"])
	assert.NotContains(t, sources, "unrelated")
}

func TestOverlayEnvMapMarkerSourceKey(t *testing.T) {
	t.Setenv("C5_HANDLERS#MAP__0", "on_start")

	tree := make(map[string]value.Value)
	sources := OverlayEnv(tree, "C5_", CaseCamel, telemetry.NewNopLogger())

	assert.Contains(t, tree, "handlers#map")
	assert.Equal(t, source.FromEnvVar("C5_HANDLERS#MAP__0"), sources["handlers.0"])
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	content := "# comment\nexport FOO_FROM_FILE=bar\nQUOTED=\"say hello\"\nPRESET=file\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	t.Setenv("PRESET", "process")
	// Clear any stale values from previous tests.
	require.NoError(t, os.Unsetenv("FOO_FROM_FILE"))
	require.NoError(t, os.Unsetenv("QUOTED"))
	t.Cleanup(func() {
		os.Unsetenv("FOO_FROM_FILE")
		os.Unsetenv("QUOTED")
	})

	require.NoError(t, LoadEnvFile(path))

	assert.Equal(t, "bar", os.Getenv("FOO_FROM_FILE"))
	assert.Equal(t, "say hello", os.Getenv("QUOTED"))
	// Process environment always wins.
	assert.Equal(t, "process", os.Getenv("PRESET"))
}

func TestLoadEnvFileMissingIsTolerated(t *testing.T) {
	assert.NoError(t, LoadEnvFile(filepath.Join(t.TempDir(), "missing.env")))
}

func TestLoadEnvFileMalformed(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("not an assignment\n"), 0o600))

	err := LoadEnvFile(path)
	assert.Error(t, err)
}
