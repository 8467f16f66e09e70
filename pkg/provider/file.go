package provider

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"

	"github.com/normano/c5store/pkg/value"
)

// fileDescriptorSchema validates file-provider descriptors before they are
// accepted. Unknown formats are allowed here because deserializers are
// extensible; Hydrate reports formats with no registered deserializer.
const fileDescriptorSchema = `{
	"type": "object",
	"required": [".provider", ".keyPath", ".key", "path"],
	"properties": {
		".provider": {"type": "string"},
		".keyPath": {"type": "string"},
		".key": {"type": "string"},
		"path": {"type": "string", "minLength": 1},
		"encoding": {"type": "string"},
		"format": {"type": "string"}
	}
}`

// Deserializer turns raw file bytes into a value for a named format.
type Deserializer func(data []byte) (value.Value, error)

type fileDescriptor struct {
	keyPath  string
	path     string
	encoding string
	format   string
}

// FileProvider serves values from files on disk. Descriptor fields: path
// (relative to the provider root unless absolute), encoding (default utf8),
// format (raw, or any registered deserializer name).
type FileProvider struct {
	basePath string

	mu            sync.RWMutex
	descriptors   map[string]fileDescriptor
	deserializers map[string]Deserializer

	schema *gojsonschema.Schema
}

// NewFileProvider builds a provider rooted at basePath with no registered
// deserializers; only raw descriptors will hydrate.
func NewFileProvider(basePath string) *FileProvider {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(fileDescriptorSchema))
	if err != nil {
		// The schema is a compile-time constant.
		panic(err)
	}
	return &FileProvider{
		basePath:      basePath,
		descriptors:   make(map[string]fileDescriptor),
		deserializers: make(map[string]Deserializer),
		schema:        schema,
	}
}

// DefaultFileProvider builds a provider with json and yaml deserializers
// registered.
func DefaultFileProvider(basePath string) *FileProvider {
	p := NewFileProvider(basePath)
	p.RegisterDeserializer("json", DeserializeJSON)
	p.RegisterDeserializer("yaml", DeserializeYAML)
	return p
}

// RegisterDeserializer adds or replaces the deserializer for a format name.
func (p *FileProvider) RegisterDeserializer(format string, d Deserializer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.deserializers[format] = d
}

// Register validates and buffers a descriptor.
func (p *FileProvider) Register(descriptor value.Value) error {
	doc, err := descriptor.ToJSON()
	if err != nil {
		return fmt.Errorf("descriptor is not representable: %w", err)
	}
	result, err := p.schema.Validate(gojsonschema.NewBytesLoader(doc))
	if err != nil {
		return fmt.Errorf("descriptor validation failed: %w", err)
	}
	if !result.Valid() {
		return fmt.Errorf("invalid file provider descriptor: %v", result.Errors())
	}

	fields, _ := DescriptorStrings(descriptor, ConfigKeyKeyPath, "path", "encoding", "format")
	desc := fileDescriptor{
		keyPath:  fields[ConfigKeyKeyPath],
		path:     fields["path"],
		encoding: fields["encoding"],
		format:   fields["format"],
	}
	if desc.encoding == "" {
		desc.encoding = "utf8"
	}
	if desc.format == "" {
		desc.format = "raw"
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.descriptors[desc.keyPath] = desc
	return nil
}

// Unregister drops the descriptor rooted at keyPath.
func (p *FileProvider) Unregister(keyPath string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.descriptors, keyPath)
}

// Hydrate reads every registered file and pushes its value into the store.
// A missing file writes Null at the key path so stale values do not linger.
func (p *FileProvider) Hydrate(set SetDataFunc, _ bool, ctx *HydrateContext) {
	p.mu.RLock()
	descs := make([]fileDescriptor, 0, len(p.descriptors))
	for _, d := range p.descriptors {
		descs = append(descs, d)
	}
	p.mu.RUnlock()

	for _, desc := range descs {
		path := desc.path
		if !filepath.IsAbs(path) {
			path = filepath.Join(p.basePath, desc.path)
		}

		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				ctx.Logger.Warn(fmt.Sprintf("file for %q does not exist at %q", desc.keyPath, path))
				set(desc.keyPath, value.Null())
				continue
			}
			ctx.Logger.Error(fmt.Sprintf("failed reading file for %q at %q", desc.keyPath, path), err)
			continue
		}

		if desc.format == "raw" {
			set(desc.keyPath, value.Bytes(data))
			continue
		}

		p.mu.RLock()
		deserialize, ok := p.deserializers[desc.format]
		p.mu.RUnlock()
		if !ok {
			ctx.Logger.Warn(fmt.Sprintf("%s cannot be deserialized since deserializer %s does not exist", desc.keyPath, desc.format))
			continue
		}

		val, err := deserialize(data)
		if err != nil {
			ctx.Logger.Error(fmt.Sprintf("failed deserializing %q as %s", desc.keyPath, desc.format), err)
			continue
		}
		set(desc.keyPath, val)
	}
}

// DeserializeJSON parses JSON document bytes into a value. Integer literals
// keep their integer kind rather than becoming floats.
func DeserializeJSON(data []byte) (value.Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return value.Null(), err
	}
	return value.FromInterface(raw), nil
}

// DeserializeYAML parses YAML document bytes into a value.
func DeserializeYAML(data []byte) (value.Value, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return value.Null(), err
	}
	return value.FromInterface(raw), nil
}
