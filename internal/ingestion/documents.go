package ingestion

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	c5errors "github.com/normano/c5store/errors"
	"github.com/normano/c5store/pkg/telemetry"
	"github.com/normano/c5store/pkg/value"
)

var documentExtensions = map[string]bool{
	".yaml": true,
	".yml":  true,
	".toml": true,
}

// ExpandPaths resolves the ordered path list into the ordered file list:
// files pass through, directories contribute their immediate entries with a
// recognized extension, sorted lexicographically and inserted in place.
// Missing paths are logged and skipped; they are routinely optional.
func ExpandPaths(paths []string, logger telemetry.Logger) ([]string, error) {
	var files []string
	for _, path := range paths {
		info, err := os.Stat(path)
		if os.IsNotExist(err) {
			logger.Debug(fmt.Sprintf("optional config path %q not found", path))
			continue
		}
		if err != nil {
			return nil, &c5errors.IoError{Path: path, Err: err}
		}

		if !info.IsDir() {
			files = append(files, path)
			continue
		}

		entries, err := os.ReadDir(path)
		if err != nil {
			return nil, &c5errors.IoError{Path: path, Err: err}
		}
		var names []string
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			if documentExtensions[strings.ToLower(filepath.Ext(entry.Name()))] {
				names = append(names, entry.Name())
			}
		}
		sort.Strings(names)
		for _, name := range names {
			files = append(files, filepath.Join(path, name))
		}
	}
	return files, nil
}

// LoadDocument parses one configuration file according to its extension. An
// empty document is a valid empty map; any other non-map root is rejected.
func LoadDocument(path string) (map[string]value.Value, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, &c5errors.IoError{Path: path, Err: err}
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return loadYAML(path, content)
	case ".toml":
		return loadTOML(path, content)
	}
	return nil, nil
}

func loadYAML(path string, content []byte) (map[string]value.Value, error) {
	var raw any
	if err := yaml.Unmarshal(content, &raw); err != nil {
		return nil, &c5errors.YamlParseError{Path: path, Err: err}
	}
	return documentRoot(path, raw, func(err error) error {
		return &c5errors.YamlParseError{Path: path, Err: err}
	})
}

func loadTOML(path string, content []byte) (map[string]value.Value, error) {
	var raw map[string]any
	if err := toml.Unmarshal(content, &raw); err != nil {
		return nil, &c5errors.TomlParseError{Path: path, Err: err}
	}
	return documentRoot(path, raw, func(err error) error {
		return &c5errors.TomlParseError{Path: path, Err: err}
	})
}

func documentRoot(path string, raw any, wrap func(error) error) (map[string]value.Value, error) {
	if raw == nil {
		return map[string]value.Value{}, nil
	}
	rootVal := value.FromInterface(raw)
	root, err := rootVal.AsMap()
	if err != nil {
		return nil, wrap(fmt.Errorf("document root must be a map, found %s", rootVal.Kind()))
	}
	return root, nil
}
