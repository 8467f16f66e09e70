package value

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	c5errors "github.com/normano/c5store/errors"
)

func TestKindNames(t *testing.T) {
	assert.Equal(t, "Null", Null().Kind().String())
	assert.Equal(t, "Bytes", Bytes([]byte{1}).Kind().String())
	assert.Equal(t, "Boolean", Bool(true).Kind().String())
	assert.Equal(t, "Integer", Int(-1).Kind().String())
	assert.Equal(t, "UInteger", Uint(1).Kind().String())
	assert.Equal(t, "Float", Float(1.5).Kind().String())
	assert.Equal(t, "String", String("x").Kind().String())
	assert.Equal(t, "Array", Array(nil).Kind().String())
	assert.Equal(t, "Map", Map(nil).Kind().String())
}

func TestAsString(t *testing.T) {
	s, err := String("hello").AsString()
	require.NoError(t, err)
	assert.Equal(t, "hello", s)

	s, err = Bytes([]byte("abcd")).AsString()
	require.NoError(t, err)
	assert.Equal(t, "abcd", s)

	_, err = Bytes([]byte{0xC3, 0x28}).AsString()
	var convErr *c5errors.ConversionError
	require.ErrorAs(t, err, &convErr)

	_, err = Int(5).AsString()
	var mismatch *c5errors.TypeMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, "Integer", mismatch.Found)
}

func TestAsBool(t *testing.T) {
	for _, token := range []string{"true", "YES", "On", "1"} {
		b, err := String(token).AsBool()
		require.NoError(t, err, token)
		assert.True(t, b, token)
	}
	for _, token := range []string{"false", "No", "OFF", "0"} {
		b, err := String(token).AsBool()
		require.NoError(t, err, token)
		assert.False(t, b, token)
	}

	_, err := String("maybe").AsBool()
	var convErr *c5errors.ConversionError
	require.ErrorAs(t, err, &convErr)
	assert.Contains(t, convErr.Message, "maybe")
}

func TestIntegerConversions(t *testing.T) {
	i, err := Uint(42).AsInt64()
	require.NoError(t, err)
	assert.Equal(t, int64(42), i)

	_, err = Uint(1 << 63).AsInt64()
	var convErr *c5errors.ConversionError
	require.ErrorAs(t, err, &convErr)

	u, err := Int(42).AsUint64()
	require.NoError(t, err)
	assert.Equal(t, uint64(42), u)

	_, err = Int(-1).AsUint64()
	require.ErrorAs(t, err, &convErr)
}

func TestBigEndianByteProjection(t *testing.T) {
	u, err := Bytes([]byte{0, 0, 0, 0, 0, 0, 0, 55}).AsUint64()
	require.NoError(t, err)
	assert.Equal(t, uint64(55), u)

	_, err = Bytes([]byte{1, 2}).AsUint64()
	var convErr *c5errors.ConversionError
	require.ErrorAs(t, err, &convErr)

	f, err := Bytes([]byte{0x40, 0x00, 0, 0, 0, 0, 0, 0}).AsFloat64()
	require.NoError(t, err)
	assert.Equal(t, 2.0, f)
}

func TestStringParsing(t *testing.T) {
	i, err := String("-7").AsInt64()
	require.NoError(t, err)
	assert.Equal(t, int64(-7), i)

	u, err := String("7").AsUint64()
	require.NoError(t, err)
	assert.Equal(t, uint64(7), u)

	f, err := String("2.5").AsFloat64()
	require.NoError(t, err)
	assert.Equal(t, 2.5, f)

	_, err = String("zzz").AsInt64()
	var convErr *c5errors.ConversionError
	require.ErrorAs(t, err, &convErr)
}

func TestFromInterfaceRoundTrip(t *testing.T) {
	raw := map[string]any{
		"name":    "svc",
		"port":    8080,
		"ratio":   0.5,
		"debug":   true,
		"offset":  -3,
		"tags":    []any{"a", "b"},
		"nested":  map[string]any{"x": 1},
		"nothing": nil,
	}
	v := FromInterface(raw)
	require.Equal(t, KindMap, v.Kind())

	m, err := v.AsMap()
	require.NoError(t, err)
	assert.Equal(t, Uint(8080), m["port"])
	assert.Equal(t, Int(-3), m["offset"])
	assert.Equal(t, Float(0.5), m["ratio"])
	assert.Equal(t, Bool(true), m["debug"])
	assert.Equal(t, Null(), m["nothing"])

	back := v.Interface().(map[string]any)
	assert.Equal(t, "svc", back["name"])
	assert.Equal(t, []any{"a", "b"}, back["tags"])
}

func TestFromInterfaceNonStringKeys(t *testing.T) {
	raw := map[any]any{2: "two", 10: "ten"}
	m, err := FromInterface(raw).AsMap()
	require.NoError(t, err)
	assert.Equal(t, String("two"), m["2"])
	assert.Equal(t, String("ten"), m["10"])
}

func TestEqual(t *testing.T) {
	a := Map(map[string]Value{"k": Array([]Value{Uint(1), String("x")})})
	b := Map(map[string]Value{"k": Array([]Value{Uint(1), String("x")})})
	c := Map(map[string]Value{"k": Array([]Value{Uint(2), String("x")})})

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
	assert.False(t, Uint(1).Equal(Int(1)))
}

func TestToJSON(t *testing.T) {
	v := Map(map[string]Value{
		"blob": Bytes([]byte("abcd")),
		"n":    Uint(5),
	})
	data, err := v.ToJSON()
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "YWJjZA==", decoded["blob"])
	assert.Equal(t, float64(5), decoded["n"])
}
