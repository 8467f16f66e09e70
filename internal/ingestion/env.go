package ingestion

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	c5errors "github.com/normano/c5store/errors"
	"github.com/normano/c5store/pkg/source"
	"github.com/normano/c5store/pkg/telemetry"
	"github.com/normano/c5store/pkg/value"
)

// Case selects how environment-variable path segments are converted into
// config key segments.
type Case int

const (
	// CaseCamel converts VAR_NAME to varName. The default; pairs well with
	// camelCase configuration keys.
	CaseCamel Case = iota
	// CaseSnake converts VAR_NAME to var_name.
	CaseSnake
	// CaseKebab converts VAR_NAME to var-name.
	CaseKebab
	// CaseLower converts VAR_NAME to varname.
	CaseLower
)

// envSeparator splits an environment variable name into path segments.
const envSeparator = "__"

// ConvertCase rewrites one environment-variable segment into the configured
// key style.
func ConvertCase(segment string, c Case) string {
	switch c {
	case CaseSnake:
		return strings.ToLower(segment)
	case CaseKebab:
		return strings.ReplaceAll(strings.ToLower(segment), "_", "-")
	case CaseLower:
		return strings.ReplaceAll(strings.ToLower(segment), "_", "")
	}

	words := strings.Split(strings.ToLower(segment), "_")
	var b strings.Builder
	for i, word := range words {
		if i == 0 || word == "" {
			b.WriteString(word)
			continue
		}
		b.WriteString(strings.ToUpper(word[:1]))
		b.WriteString(word[1:])
	}
	return b.String()
}

// ParseEnvValue interprets an environment variable value, attempting in
// order boolean, unsigned integer, signed integer, float, and falling back
// to text.
func ParseEnvValue(raw string) value.Value {
	if b, ok := value.ParseBoolToken(raw); ok && !isNumeric(raw) {
		return value.Bool(b)
	}
	if u, err := strconv.ParseUint(raw, 10, 64); err == nil {
		return value.Uint(u)
	}
	if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return value.Int(i)
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return value.Float(f)
	}
	return value.String(raw)
}

// "0" and "1" are boolean tokens but must stay integers here; the typed
// getters still accept them as booleans on projection.
func isNumeric(raw string) bool {
	_, err := strconv.ParseFloat(raw, 64)
	return err == nil
}

// OverlayEnv scans the process environment for variables matching prefix and
// merges each into the working tree. It returns the flat key → source map
// used for origin attribution.
func OverlayEnv(tree map[string]value.Value, prefix string, envCase Case, logger telemetry.Logger) map[string]source.Source {
	sources := make(map[string]source.Source)

	for _, kv := range os.Environ() {
		name, rawValue, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(name, prefix) {
			continue
		}

		segments := strings.Split(strings.TrimPrefix(name, prefix), envSeparator)
		parts := make([]string, 0, len(segments))
		valid := true
		for _, seg := range segments {
			converted := ConvertCase(seg, envCase)
			if converted == "" {
				valid = false
				break
			}
			parts = append(parts, converted)
		}
		if !valid || len(parts) == 0 {
			logger.Warn(fmt.Sprintf("skipping env var %q due to invalid key format", name))
			continue
		}

		flatKey := strings.Join(parts, ".")
		sources[stripMarkerFromPath(flatKey)] = source.FromEnvVar(name)

		// Build a single-leaf nested map and reuse the document merge rules.
		leaf := ParseEnvValue(rawValue)
		overlay := leaf
		for i := len(parts) - 1; i >= 1; i-- {
			overlay = value.Map(map[string]value.Value{parts[i]: overlay})
		}
		DeepMerge(tree, map[string]value.Value{parts[0]: overlay})
	}

	return sources
}

// stripMarkerFromPath removes #map markers from every segment of a dotted
// key so source attribution lines up with effective keys.
func stripMarkerFromPath(keyPath string) string {
	segments := strings.Split(keyPath, ".")
	for i, seg := range segments {
		segments[i], _ = stripMapMarker(seg)
	}
	return strings.Join(segments, ".")
}

// LoadEnvFile parses a KEY=VALUE file and sets each variable that is not
// already present in the process environment; process env always wins. A
// missing file is tolerated.
func LoadEnvFile(path string) error {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return &c5errors.DotEnvLoadError{Path: path, Err: err}
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimPrefix(line, "export ")

		name, val, ok := strings.Cut(line, "=")
		if !ok {
			return &c5errors.DotEnvLoadError{
				Path: path,
				Err:  fmt.Errorf("line %d is not a KEY=VALUE assignment", lineNo),
			}
		}
		name = strings.TrimSpace(name)
		val = strings.TrimSpace(val)
		if len(val) >= 2 && (val[0] == '"' || val[0] == '\'') && val[len(val)-1] == val[0] {
			val = val[1 : len(val)-1]
		}

		if _, exists := os.LookupEnv(name); !exists {
			if err := os.Setenv(name, val); err != nil {
				return &c5errors.DotEnvLoadError{Path: path, Err: err}
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return &c5errors.DotEnvLoadError{Path: path, Err: err}
	}
	return nil
}
