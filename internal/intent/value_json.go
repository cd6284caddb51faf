package intent

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// wireValue is the JSON shape of a Value: {"type": "long", "value": 42}.
// Unknown values carry their recorded tag separately:
// {"type": "unknown", "tag": "android.os.Bundle", "value": "Bundle[{}]"}.
type wireValue struct {
	Type  string          `json:"type"`
	Tag   string          `json:"tag,omitempty"`
	Value json.RawMessage `json:"value,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (v Value) MarshalJSON() ([]byte, error) {
	var payload interface{}
	switch v.kind {
	case KindString, KindURI, KindUnknown, KindInvalid:
		payload = v.str
	case KindLong, KindInt:
		payload = v.num
	case KindBool:
		payload = v.flag
	case KindList:
		payload = v.list
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	w := wireValue{Type: v.kind.String(), Value: raw}
	if v.kind == KindUnknown {
		w.Tag = v.tag
	}
	return json.Marshal(w)
}

// UnmarshalJSON implements json.Unmarshaler. Type tags outside the known
// variants become unknown values; a payload that does not fit its tag
// becomes an invalid value instead of failing the whole document.
func (v *Value) UnmarshalJSON(data []byte) error {
	var w wireValue
	if err := json.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("extra value: %w", err)
	}
	*v = decodeWire(w)
	return nil
}

func decodeWire(w wireValue) Value {
	kind, known := ParseKind(w.Type)
	if !known {
		switch w.Type {
		case "":
			return InvalidValue("missing type tag")
		case KindInvalid.String():
			return InvalidValue(rawRepr(w.Value))
		case KindUnknown.String():
			return UnknownValue(w.Tag, rawRepr(w.Value))
		}
		// Hand-written envelopes may put a platform class name in "type".
		return UnknownValue(w.Type, rawRepr(w.Value))
	}

	switch kind {
	case KindString, KindURI:
		var s string
		if err := json.Unmarshal(w.Value, &s); err != nil {
			return InvalidValue(fmt.Sprintf("%s: %v", w.Type, err))
		}
		if kind == KindURI {
			return URIValue(s)
		}
		return StringValue(s)
	case KindLong:
		n, err := parseWireInt(w.Value, 64)
		if err != nil {
			return InvalidValue(fmt.Sprintf("long: %v", err))
		}
		return LongValue(n)
	case KindInt:
		n, err := parseWireInt(w.Value, 32)
		if err != nil {
			return InvalidValue(fmt.Sprintf("int: %v", err))
		}
		return IntValue(int32(n))
	case KindBool:
		var b bool
		if err := json.Unmarshal(w.Value, &b); err != nil {
			return InvalidValue(fmt.Sprintf("boolean: %v", err))
		}
		return BoolValue(b)
	case KindList:
		var items []Value
		if err := json.Unmarshal(w.Value, &items); err != nil {
			return InvalidValue(fmt.Sprintf("list: %v", err))
		}
		return ListValue(items...)
	}
	return InvalidValue("unsupported type " + w.Type)
}

// parseWireInt accepts both JSON numbers and quoted decimal strings.
func parseWireInt(raw json.RawMessage, bits int) (int64, error) {
	var num json.Number
	if err := json.Unmarshal(raw, &num); err == nil {
		return strconv.ParseInt(num.String(), 10, bits)
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, err
	}
	return strconv.ParseInt(s, 10, bits)
}

func rawRepr(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}
