package intent

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiff_KeyPresenceOnly(t *testing.T) {
	original := Extras{
		"dropped": LongValue(1),
		"changed": StringValue("before"),
		"same":    BoolValue(true),
	}
	roundTripped := Extras{
		"changed": StringValue("after"),
		"same":    BoolValue(true),
	}

	got := Diff(original, roundTripped)
	require.Len(t, got, 1)
	assert.True(t, got["dropped"].Equal(LongValue(1)))
	assert.False(t, got.Has("changed"), "altered values are not recovered")
}

func TestDiff_NilMaps(t *testing.T) {
	assert.Empty(t, Diff(nil, nil))
	assert.Len(t, Diff(Extras{"a": IntValue(1)}, nil), 1)
}

func TestReapply_DecodedWins(t *testing.T) {
	decoded := &Intent{Action: ActionSend, Extras: Extras{"k": StringValue("edited")}}
	recovered := Extras{"k": StringValue("recovered"), "other": URIValue("content://x")}

	got := Reapply(decoded, recovered)
	assert.Equal(t, "edited", got.Extras["k"].Str())
	assert.Equal(t, "content://x", got.Extras["other"].Str())

	// decoded itself is untouched
	assert.Len(t, decoded.Extras, 1)
}

func TestReconcile_UnsupportedKindsRecovered(t *testing.T) {
	payload := Extras{
		"list":    ListValue(StringValue("a"), IntValue(2)),
		"uri":     URIValue("content://media/1"),
		"custom":  UnknownValue("android.graphics.Bitmap", "Bitmap@1f"),
		"message": StringValue("hello"),
	}
	x := &Intent{Action: ActionSend, Type: "text/plain", Extras: payload}

	decoded, err := RoundTrip(x)
	require.NoError(t, err)

	recovered := Diff(payload, decoded.Extras)
	restored := Reapply(decoded, recovered)

	for key, want := range payload {
		got, ok := restored.Extras[key]
		require.True(t, ok, "key %q missing", key)
		assert.True(t, want.Equal(got), "key %q: want %v got %v", key, want, got)
	}
}

func TestValue_Display(t *testing.T) {
	tests := []struct {
		v        Value
		typeName string
		display  string
	}{
		{StringValue("bar"), "string", "bar"},
		{LongValue(-5), "long", "-5"},
		{IntValue(42), "int", "42"},
		{BoolValue(false), "boolean", "false"},
		{URIValue("tel:1"), "uri", "tel:1"},
		{ListValue(StringValue("a"), LongValue(3)), "list", "[a, 3]"},
		{UnknownValue("android.os.Parcelable", "Foo{}"), "android.os.Parcelable", "Foo{}"},
		{Value{}, "invalid", "<invalid>"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.typeName, tt.v.TypeName())
		assert.Equal(t, tt.display, tt.v.String())
	}
}

func TestValue_JSON(t *testing.T) {
	in := Extras{
		"s":    StringValue("x"),
		"l":    LongValue(9000000000),
		"i":    IntValue(3),
		"b":    BoolValue(true),
		"u":    URIValue("https://example.com"),
		"list": ListValue(StringValue("a"), BoolValue(false)),
		"odd":  UnknownValue("android.os.Bundle", "Bundle[{}]"),

		// Tags that collide with variant names stay unknown.
		"parcel":   UnknownValue("long", "android.os.Parcel@1"),
		"flag":     UnknownValue("boolean", "yes"),
		"nested":   UnknownValue("list", "[a]"),
		"untagged": UnknownValue("", "?"),
	}
	data, err := json.Marshal(in)
	require.NoError(t, err)

	var out Extras
	require.NoError(t, json.Unmarshal(data, &out))
	require.Len(t, out, len(in))
	for k, v := range in {
		assert.True(t, v.Equal(out[k]), "key %q: %v != %v", k, v, out[k])
		assert.Equal(t, v.TypeName(), out[k].TypeName(), k)
	}
	assert.Equal(t, KindUnknown, out["parcel"].Kind())
}

func TestValue_JSONUnknownWireShape(t *testing.T) {
	data, err := json.Marshal(UnknownValue("long", "android.os.Parcel@1"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"unknown","tag":"long","value":"android.os.Parcel@1"}`, string(data))

	var v Value
	require.NoError(t, json.Unmarshal([]byte(`{"type":"android.os.Bundle","value":"Bundle[{}]"}`), &v))
	assert.Equal(t, KindUnknown, v.Kind())
	assert.Equal(t, "android.os.Bundle", v.TypeName())
}

func TestValue_JSONMalformedEntries(t *testing.T) {
	var out Extras
	err := json.Unmarshal([]byte(`{
		"bad":     {"type": "long", "value": "nope"},
		"overflow":{"type": "int", "value": 3000000000},
		"tagless": {"value": 1},
		"quoted":  {"type": "long", "value": "12"}
	}`), &out)
	require.NoError(t, err)

	assert.Equal(t, KindInvalid, out["bad"].Kind())
	assert.NotEmpty(t, out["bad"].InvalidReason())
	assert.Equal(t, KindInvalid, out["overflow"].Kind())
	assert.Equal(t, KindInvalid, out["tagless"].Kind())
	assert.Equal(t, int64(12), out["quoted"].Int())
}
