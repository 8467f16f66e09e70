package ingestion

import (
	"strconv"
	"strings"

	"github.com/normano/c5store/pkg/value"
)

// mapMarker is the literal suffix on a parent key forcing map interpretation
// of all-integer siblings. It is stripped from the effective key.
const mapMarker = "#map"

// DeepMerge merges src into dest in place. When both sides hold maps the
// merge recurses key by key; otherwise the source value replaces the
// destination. Arrays replace, never concatenate. Writing an equal value is
// skipped.
func DeepMerge(dest map[string]value.Value, src map[string]value.Value) {
	for key, srcVal := range src {
		destVal, ok := dest[key]
		if !ok {
			dest[key] = srcVal
			continue
		}
		if destVal.Kind() == value.KindMap && srcVal.Kind() == value.KindMap {
			destMap, _ := destVal.AsMap()
			srcMap, _ := srcVal.AsMap()
			DeepMerge(destMap, srcMap)
			continue
		}
		if destVal.Equal(srcVal) {
			continue
		}
		dest[key] = srcVal
	}
}

// stripMapMarker removes a trailing #map marker, reporting whether one was
// present.
func stripMapMarker(key string) (string, bool) {
	if strings.HasSuffix(key, mapMarker) && len(key) > len(mapMarker) {
		return strings.TrimSuffix(key, mapMarker), true
	}
	return key, false
}

// isIndexSequence reports whether keys are exactly the decimal strings
// "0".."n-1" with no gaps, the condition for array inference.
func isIndexSequence(keys map[string]value.Value) bool {
	if len(keys) == 0 {
		return false
	}
	for i := 0; i < len(keys); i++ {
		if _, ok := keys[strconv.Itoa(i)]; !ok {
			return false
		}
	}
	return true
}

// NormalizeValue applies array/map inference recursively to a value that
// will be stored or projected whole: all-integer-keyed maps collapse into
// arrays unless a #map marker on the parent key forced map interpretation,
// and markers are stripped from effective keys.
func NormalizeValue(v value.Value, forceMap bool) value.Value {
	switch v.Kind() {
	case value.KindMap:
		m, _ := v.AsMap()
		out := make(map[string]value.Value, len(m))
		for k, child := range m {
			stripped, forced := stripMapMarker(k)
			out[stripped] = NormalizeValue(child, forced)
		}
		if !forceMap && isIndexSequence(out) {
			arr := make([]value.Value, len(out))
			for i := range arr {
				arr[i] = out[strconv.Itoa(i)]
			}
			return value.Array(arr)
		}
		return value.Map(out)

	case value.KindArray:
		arr, _ := v.AsArray()
		out := make([]value.Value, len(arr))
		for i, item := range arr {
			out[i] = NormalizeValue(item, false)
		}
		return value.Array(out)
	}
	return v
}

// FlattenTree walks the merged tree and emits keypath → value leaves into
// out. Map keys join with "."; arrays, inferred arrays, and #map-forced maps
// are stored whole.
func FlattenTree(tree map[string]value.Value, prefix string, out map[string]value.Value) {
	for key, child := range tree {
		stripped, forced := stripMapMarker(key)
		path := stripped
		if prefix != "" {
			path = prefix + "." + stripped
		}

		switch child.Kind() {
		case value.KindMap:
			childMap, _ := child.AsMap()
			if forced {
				out[path] = NormalizeValue(child, true)
				continue
			}
			if isIndexSequence(childMap) {
				out[path] = NormalizeValue(child, false)
				continue
			}
			FlattenTree(childMap, path, out)
		case value.KindArray:
			out[path] = NormalizeValue(child, false)
		default:
			out[path] = child
		}
	}
}
