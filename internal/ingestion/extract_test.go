package ingestion

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/normano/c5store/pkg/telemetry"
	"github.com/normano/c5store/pkg/value"
)

func TestTakeProvidedData(t *testing.T) {
	tree := map[string]value.Value{
		"market": value.Map(map[string]value.Value{
			"regions": value.Map(map[string]value.Value{
				ConfigKeyProvider: value.String("resources"),
				"path":            value.String("data.yaml"),
				"format":          value.String("yaml"),
			}),
		}),
		"plain": value.String("stays"),
	}

	provided := make(map[string][]value.Value)
	TakeProvidedData(tree, provided, telemetry.NewNopLogger())

	// The provider subtree is removed and its now-empty parent pruned.
	assert.NotContains(t, tree, "market")
	assert.Contains(t, tree, "plain")

	require.Len(t, provided["resources"], 1)
	desc, err := provided["resources"][0].AsMap()
	require.NoError(t, err)
	assert.Equal(t, value.String("market.regions"), desc[ConfigKeyKeyPath])
	assert.Equal(t, value.String("regions"), desc[ConfigKeyKeyName])
	assert.Equal(t, value.String("data.yaml"), desc["path"])
}

func TestTakeProvidedDataLeavesSiblings(t *testing.T) {
	tree := map[string]value.Value{
		"mysql": value.Map(map[string]value.Value{
			"db1": value.Map(map[string]value.Value{
				ConfigKeyProvider: value.String("dbprov"),
			}),
			"host": value.String("localhost"),
		}),
	}

	provided := make(map[string][]value.Value)
	TakeProvidedData(tree, provided, telemetry.NewNopLogger())

	mysql, err := tree["mysql"].AsMap()
	require.NoError(t, err)
	assert.Contains(t, mysql, "host")
	assert.NotContains(t, mysql, "db1")
	assert.Len(t, provided["dbprov"], 1)
}

func TestTakeProvidedDataNonStringProviderName(t *testing.T) {
	tree := map[string]value.Value{
		"bad": value.Map(map[string]value.Value{
			ConfigKeyProvider: value.Uint(1),
		}),
	}

	provided := make(map[string][]value.Value)
	TakeProvidedData(tree, provided, telemetry.NewNopLogger())

	assert.Empty(t, provided)
	assert.NotContains(t, tree, "bad")
}
