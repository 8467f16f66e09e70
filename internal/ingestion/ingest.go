// Package ingestion implements the startup pipeline: load and merge source
// documents in declared order, overlay environment variables, separate
// provider descriptors, flatten the surviving tree to dot-paths, and write
// each leaf into the data store with its origin tag.
package ingestion

import (
	"sort"
	"strings"

	"github.com/normano/c5store/internal/datastore"
	"github.com/normano/c5store/pkg/source"
	"github.com/normano/c5store/pkg/telemetry"
	"github.com/normano/c5store/pkg/value"
)

// Options carries the pipeline knobs.
type Options struct {
	// EnvPrefix selects which environment variables overlay the tree.
	EnvPrefix string
	// EnvCase converts variable segments into key segments.
	EnvCase Case
	Logger  telemetry.Logger
}

// Read runs the pipeline over the ordered path list, writing flattened
// leaves into store and buffering provider descriptors into provided.
// Ingestion IO and parse failures are fatal; per-write secret failures are
// recorded by the store and do not abort the remaining writes.
func Read(paths []string, store *datastore.Store, provided map[string][]value.Value, opts Options) error {
	files, err := ExpandPaths(paths, opts.Logger)
	if err != nil {
		return err
	}

	tree := make(map[string]value.Value)
	fileSources := make(map[string]string)

	for _, file := range files {
		doc, err := LoadDocument(file)
		if err != nil {
			return err
		}
		if doc == nil {
			continue
		}

		TakeProvidedData(doc, provided, opts.Logger)

		// The last file contributing a leaf wins its attribution, the same
		// way its value wins the merge.
		leaves := make(map[string]value.Value)
		FlattenTree(doc, "", leaves)
		for key := range leaves {
			fileSources[key] = file
		}

		DeepMerge(tree, doc)
	}

	envSources := OverlayEnv(tree, opts.EnvPrefix, opts.EnvCase, opts.Logger)

	flat := make(map[string]value.Value)
	FlattenTree(tree, "", flat)

	// Deterministic write order keeps logs and failure counters stable.
	keys := make([]string, 0, len(flat))
	for key := range flat {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		src := attributeSource(key, envSources, fileSources)
		// Secret failures are logged and counted by the store without
		// aborting the rest of the initial load.
		store.SetData(key, flat[key], src) //nolint:errcheck
	}
	return nil
}

func attributeSource(key string, envSources map[string]source.Source, fileSources map[string]string) source.Source {
	if src, ok := envSources[key]; ok {
		return src
	}

	// A collapsed array or forced map is stored whole at the parent key;
	// attribute it to the first contributing variable.
	childPrefix := key + "."
	var best string
	for envKey := range envSources {
		if !strings.HasPrefix(envKey, childPrefix) {
			continue
		}
		if best == "" || envKey < best {
			best = envKey
		}
	}
	if best != "" {
		return envSources[best]
	}

	// A leaf recorded whole under a parent in its file (an inferred array or
	// forced map) is attributed through the nearest recorded ancestor.
	for k := key; ; k = k[:strings.LastIndex(k, ".")] {
		if path, ok := fileSources[k]; ok {
			return source.FromFile(path)
		}
		if !strings.Contains(k, ".") {
			return source.Source{}
		}
	}
}
