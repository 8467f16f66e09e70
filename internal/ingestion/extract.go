package ingestion

import (
	"fmt"

	"github.com/normano/c5store/pkg/telemetry"
	"github.com/normano/c5store/pkg/value"
)

// Provider descriptor annotation keys. ConfigKeyProvider marks a map as a
// descriptor in source documents; the other two are attached here before the
// descriptor is buffered for its provider.
const (
	ConfigKeyProvider = ".provider"
	ConfigKeyKeyPath  = ".keyPath"
	ConfigKeyKeyName  = ".key"
)

// TakeProvidedData removes provider descriptors from the tree, buffering
// each under its provider name with the key path and terminal segment
// attached. Maps left empty by the extraction are pruned.
func TakeProvidedData(tree map[string]value.Value, provided map[string][]value.Value, logger telemetry.Logger) {
	takeProvidedData(tree, provided, "", logger)
}

func takeProvidedData(current map[string]value.Value, provided map[string][]value.Value, keyPath string, logger telemetry.Logger) {
	for key, child := range current {
		childMap, err := child.AsMap()
		if err != nil {
			continue
		}

		childPath := key
		if keyPath != "" {
			childPath = keyPath + "." + key
		}

		if providerVal, ok := childMap[ConfigKeyProvider]; ok {
			providerName, err := providerVal.AsString()
			if err != nil {
				logger.Warn(fmt.Sprintf("provider config at %q has non-string value for %s", childPath, ConfigKeyProvider))
				delete(current, key)
				continue
			}
			childMap[ConfigKeyKeyPath] = value.String(childPath)
			childMap[ConfigKeyKeyName] = value.String(key)
			provided[providerName] = append(provided[providerName], value.Map(childMap))
			delete(current, key)
			continue
		}

		takeProvidedData(childMap, provided, childPath, logger)
		if len(childMap) == 0 {
			delete(current, key)
		}
	}
}
