// Package value implements the tagged-union value model used throughout
// c5store. A Value holds exactly one of the supported variants and offers
// fallible projections into Go scalars, slices, and maps.
//
// Projection failures are classified: a TypeMismatchError means the stored
// variant cannot serve the target at all, a ConversionError means the variant
// is the right family but the payload is out of range or malformed.
package value

import (
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"unicode/utf8"

	c5errors "github.com/normano/c5store/errors"
)

// Kind identifies the variant held by a Value.
type Kind int

const (
	KindNull Kind = iota
	KindBytes
	KindBool
	KindInt
	KindUint
	KindFloat
	KindString
	KindArray
	KindMap
)

// String returns the variant name used in error messages.
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "Null"
	case KindBytes:
		return "Bytes"
	case KindBool:
		return "Boolean"
	case KindInt:
		return "Integer"
	case KindUint:
		return "UInteger"
	case KindFloat:
		return "Float"
	case KindString:
		return "String"
	case KindArray:
		return "Array"
	case KindMap:
		return "Map"
	}
	return "Unknown"
}

// Value is a single configuration value. The zero value is Null.
type Value struct {
	kind Kind
	x    any
}

// Null returns the Null value.
func Null() Value { return Value{kind: KindNull} }

// Bytes wraps an octet sequence.
func Bytes(b []byte) Value { return Value{kind: KindBytes, x: b} }

// Bool wraps a boolean.
func Bool(b bool) Value { return Value{kind: KindBool, x: b} }

// Int wraps a signed 64-bit integer.
func Int(i int64) Value { return Value{kind: KindInt, x: i} }

// Uint wraps an unsigned 64-bit integer.
func Uint(u uint64) Value { return Value{kind: KindUint, x: u} }

// Float wraps a binary64 float.
func Float(f float64) Value { return Value{kind: KindFloat, x: f} }

// String wraps a UTF-8 string.
func String(s string) Value { return Value{kind: KindString, x: s} }

// Array wraps an ordered sequence of values.
func Array(vs []Value) Value { return Value{kind: KindArray, x: vs} }

// Map wraps a string-keyed mapping of values.
func Map(m map[string]Value) Value { return Value{kind: KindMap, x: m} }

// Kind reports the variant held by v.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v holds the Null variant.
func (v Value) IsNull() bool { return v.kind == KindNull }

// Equal reports deep equality of variant and payload.
func (v Value) Equal(o Value) bool {
	return v.kind == o.kind && reflect.DeepEqual(v.x, o.x)
}

func mismatch(expected string, found Kind) error {
	return &c5errors.TypeMismatchError{Expected: expected, Found: found.String()}
}

// AsBytes projects v into an octet sequence. Strings yield their UTF-8
// encoding.
func (v Value) AsBytes() ([]byte, error) {
	switch v.kind {
	case KindBytes:
		return v.x.([]byte), nil
	case KindString:
		return []byte(v.x.(string)), nil
	}
	return nil, mismatch("Bytes", v.kind)
}

// AsBool projects v into a boolean. Strings accept true|yes|on|1 and
// false|no|off|0 case-insensitively.
func (v Value) AsBool() (bool, error) {
	switch v.kind {
	case KindBool:
		return v.x.(bool), nil
	case KindString:
		s := v.x.(string)
		if b, ok := ParseBoolToken(s); ok {
			return b, nil
		}
		return false, &c5errors.ConversionError{Message: fmt.Sprintf("%q could not be converted to boolean", s)}
	}
	return false, mismatch("Boolean", v.kind)
}

// AsInt64 projects v into a signed 64-bit integer. UInteger values convert
// when representable; Bytes require exactly 8 big-endian octets; Strings are
// parsed.
func (v Value) AsInt64() (int64, error) {
	switch v.kind {
	case KindInt:
		return v.x.(int64), nil
	case KindUint:
		u := v.x.(uint64)
		if u > math.MaxInt64 {
			return 0, &c5errors.ConversionError{Message: fmt.Sprintf("UInteger value %d out of range for int64", u)}
		}
		return int64(u), nil
	case KindBytes:
		b := v.x.([]byte)
		if len(b) != 8 {
			return 0, &c5errors.ConversionError{Message: fmt.Sprintf("byte length %d does not match int64 width", len(b))}
		}
		return int64(binary.BigEndian.Uint64(b)), nil
	case KindString:
		i, err := strconv.ParseInt(v.x.(string), 10, 64)
		if err != nil {
			return 0, &c5errors.ConversionError{Message: fmt.Sprintf("%q could not be parsed as integer", v.x.(string))}
		}
		return i, nil
	}
	return 0, mismatch("Integer or UInteger", v.kind)
}

// AsUint64 projects v into an unsigned 64-bit integer. Negative Integer
// values fail with a ConversionError.
func (v Value) AsUint64() (uint64, error) {
	switch v.kind {
	case KindUint:
		return v.x.(uint64), nil
	case KindInt:
		i := v.x.(int64)
		if i < 0 {
			return 0, &c5errors.ConversionError{Message: fmt.Sprintf("negative Integer value %d cannot be converted to uint64", i)}
		}
		return uint64(i), nil
	case KindBytes:
		b := v.x.([]byte)
		if len(b) != 8 {
			return 0, &c5errors.ConversionError{Message: fmt.Sprintf("byte length %d does not match uint64 width", len(b))}
		}
		return binary.BigEndian.Uint64(b), nil
	case KindString:
		u, err := strconv.ParseUint(v.x.(string), 10, 64)
		if err != nil {
			return 0, &c5errors.ConversionError{Message: fmt.Sprintf("%q could not be parsed as unsigned integer", v.x.(string))}
		}
		return u, nil
	}
	return 0, mismatch("Integer or UInteger", v.kind)
}

// AsFloat64 projects v into a binary64 float. Bytes require exactly 8
// big-endian octets holding the IEEE-754 bit pattern.
func (v Value) AsFloat64() (float64, error) {
	switch v.kind {
	case KindFloat:
		return v.x.(float64), nil
	case KindInt:
		return float64(v.x.(int64)), nil
	case KindUint:
		return float64(v.x.(uint64)), nil
	case KindBytes:
		b := v.x.([]byte)
		if len(b) != 8 {
			return 0, &c5errors.ConversionError{Message: fmt.Sprintf("byte length %d does not match float64 width", len(b))}
		}
		return math.Float64frombits(binary.BigEndian.Uint64(b)), nil
	case KindString:
		f, err := strconv.ParseFloat(v.x.(string), 64)
		if err != nil {
			return 0, &c5errors.ConversionError{Message: fmt.Sprintf("%q could not be parsed as float", v.x.(string))}
		}
		return f, nil
	}
	return 0, mismatch("Float", v.kind)
}

// AsString projects v into a UTF-8 string. Bytes must be valid UTF-8.
func (v Value) AsString() (string, error) {
	switch v.kind {
	case KindString:
		return v.x.(string), nil
	case KindBytes:
		b := v.x.([]byte)
		if !utf8.Valid(b) {
			return "", &c5errors.ConversionError{Message: "byte sequence is not valid UTF-8"}
		}
		return string(b), nil
	}
	return "", mismatch("String", v.kind)
}

// AsArray projects v into its element slice.
func (v Value) AsArray() ([]Value, error) {
	if v.kind == KindArray {
		return v.x.([]Value), nil
	}
	return nil, mismatch("Array", v.kind)
}

// AsMap projects v into its underlying string-keyed map.
func (v Value) AsMap() (map[string]Value, error) {
	if v.kind == KindMap {
		return v.x.(map[string]Value), nil
	}
	return nil, mismatch("Map", v.kind)
}

// ParseBoolToken recognizes the boolean token sets accepted by projections
// and by environment-variable parsing.
func ParseBoolToken(s string) (val bool, ok bool) {
	switch strings.ToLower(s) {
	case "true", "yes", "on", "1":
		return true, true
	case "false", "no", "off", "0":
		return false, true
	}
	return false, false
}

// FromInterface converts a value produced by a YAML/TOML/JSON decoder into a
// Value. Non-negative integers become UInteger, negative ones Integer. Map
// keys that are not strings are rendered with their canonical string form.
func FromInterface(raw any) Value {
	switch t := raw.(type) {
	case nil:
		return Null()
	case Value:
		return t
	case bool:
		return Bool(t)
	case string:
		return String(t)
	case []byte:
		return Bytes(t)
	case int:
		return fromInt64(int64(t))
	case int8:
		return fromInt64(int64(t))
	case int16:
		return fromInt64(int64(t))
	case int32:
		return fromInt64(int64(t))
	case int64:
		return fromInt64(t)
	case uint:
		return Uint(uint64(t))
	case uint8:
		return Uint(uint64(t))
	case uint16:
		return Uint(uint64(t))
	case uint32:
		return Uint(uint64(t))
	case uint64:
		return Uint(t)
	case float32:
		return Float(float64(t))
	case float64:
		return Float(t)
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return fromInt64(i)
		}
		if u, err := strconv.ParseUint(string(t), 10, 64); err == nil {
			return Uint(u)
		}
		f, _ := t.Float64()
		return Float(f)
	case []any:
		arr := make([]Value, 0, len(t))
		for _, item := range t {
			arr = append(arr, FromInterface(item))
		}
		return Array(arr)
	case map[string]any:
		m := make(map[string]Value, len(t))
		for k, item := range t {
			m[k] = FromInterface(item)
		}
		return Map(m)
	case map[any]any:
		m := make(map[string]Value, len(t))
		for k, item := range t {
			m[stringifyKey(k)] = FromInterface(item)
		}
		return Map(m)
	}
	return String(fmt.Sprintf("%v", raw))
}

func fromInt64(i int64) Value {
	if i >= 0 {
		return Uint(uint64(i))
	}
	return Int(i)
}

func stringifyKey(k any) string {
	switch t := k.(type) {
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case uint64:
		return strconv.FormatUint(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64)
	case nil:
		return "null"
	}
	return fmt.Sprintf("%v", k)
}

// Interface converts v back into plain Go values (map[string]any, []any and
// scalars), the shape structural decoders expect.
func (v Value) Interface() any {
	switch v.kind {
	case KindNull:
		return nil
	case KindBytes:
		return v.x.([]byte)
	case KindBool:
		return v.x.(bool)
	case KindInt:
		return v.x.(int64)
	case KindUint:
		return v.x.(uint64)
	case KindFloat:
		return v.x.(float64)
	case KindString:
		return v.x.(string)
	case KindArray:
		arr := v.x.([]Value)
		out := make([]any, 0, len(arr))
		for _, item := range arr {
			out = append(out, item.Interface())
		}
		return out
	case KindMap:
		m := v.x.(map[string]Value)
		out := make(map[string]any, len(m))
		for k, item := range m {
			out[k] = item.Interface()
		}
		return out
	}
	return nil
}

// ToJSON renders v as JSON. Bytes are encoded as base64 strings since JSON
// has no binary representation.
func (v Value) ToJSON() ([]byte, error) {
	return json.Marshal(jsonify(v))
}

func jsonify(v Value) any {
	switch v.kind {
	case KindBytes:
		return base64.StdEncoding.EncodeToString(v.x.([]byte))
	case KindArray:
		arr := v.x.([]Value)
		out := make([]any, 0, len(arr))
		for _, item := range arr {
			out = append(out, jsonify(item))
		}
		return out
	case KindMap:
		m := v.x.(map[string]Value)
		out := make(map[string]any, len(m))
		for k, item := range m {
			out[k] = jsonify(item)
		}
		return out
	default:
		return v.Interface()
	}
}
