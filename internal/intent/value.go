package intent

import (
	"sort"
	"strconv"
	"strings"
)

// Kind tags the variant held by a Value.
type Kind int

const (
	KindInvalid Kind = iota // entry could not be introspected
	KindString
	KindLong // 64-bit integer
	KindInt  // 32-bit integer
	KindBool
	KindURI
	KindList
	KindUnknown // unsupported kind, kept as a best-effort string
)

var kindNames = map[Kind]string{
	KindInvalid: "invalid",
	KindString:  "string",
	KindLong:    "long",
	KindInt:     "int",
	KindBool:    "boolean",
	KindURI:     "uri",
	KindList:    "list",
	KindUnknown: "unknown",
}

// String returns the variant tag name.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "invalid"
}

// ParseKind maps a tag name back to its Kind.
func ParseKind(name string) (Kind, bool) {
	for k, n := range kindNames {
		if n == name && k != KindInvalid && k != KindUnknown {
			return k, true
		}
	}
	return KindInvalid, false
}

// Value is one extras payload entry. The zero Value is KindInvalid.
type Value struct {
	kind Kind
	str  string // string, uri, unknown repr, invalid reason
	num  int64
	flag bool
	list []Value
	tag  string // recorded type tag for KindUnknown
}

// StringValue wraps a string.
func StringValue(s string) Value { return Value{kind: KindString, str: s} }

// LongValue wraps a 64-bit integer.
func LongValue(n int64) Value { return Value{kind: KindLong, num: n} }

// IntValue wraps a 32-bit integer.
func IntValue(n int32) Value { return Value{kind: KindInt, num: int64(n)} }

// BoolValue wraps a boolean.
func BoolValue(b bool) Value { return Value{kind: KindBool, flag: b} }

// URIValue wraps a URI kept in its textual form.
func URIValue(u string) Value { return Value{kind: KindURI, str: u} }

// ListValue wraps an ordered list of values.
func ListValue(items ...Value) Value {
	cp := make([]Value, len(items))
	copy(cp, items)
	return Value{kind: KindList, list: cp}
}

// UnknownValue records a value of an unsupported kind. typeTag is shown
// in place of a real variant tag.
func UnknownValue(typeTag, repr string) Value {
	return Value{kind: KindUnknown, tag: typeTag, str: repr}
}

// InvalidValue marks an entry that could not be introspected.
func InvalidValue(reason string) Value { return Value{kind: KindInvalid, str: reason} }

func (v Value) Kind() Kind { return v.kind }

// TypeName is the tag displayed next to the entry.
func (v Value) TypeName() string {
	if v.kind == KindUnknown && v.tag != "" {
		return v.tag
	}
	return v.kind.String()
}

// Str returns the payload of string, uri, unknown and invalid values.
func (v Value) Str() string { return v.str }

// Int returns the payload of long and int values.
func (v Value) Int() int64 { return v.num }

// Bool returns the payload of boolean values.
func (v Value) Bool() bool { return v.flag }

// Items returns a copy of a list value's elements.
func (v Value) Items() []Value {
	if v.kind != KindList {
		return nil
	}
	cp := make([]Value, len(v.list))
	copy(cp, v.list)
	return cp
}

// InvalidReason explains why an entry is KindInvalid.
func (v Value) InvalidReason() string {
	if v.kind != KindInvalid {
		return ""
	}
	if v.str == "" {
		return "empty value"
	}
	return v.str
}

// String renders the display form.
func (v Value) String() string {
	switch v.kind {
	case KindString, KindURI, KindUnknown:
		return v.str
	case KindLong, KindInt:
		return strconv.FormatInt(v.num, 10)
	case KindBool:
		return strconv.FormatBool(v.flag)
	case KindList:
		parts := make([]string, len(v.list))
		for i, item := range v.list {
			parts[i] = item.String()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	default:
		return "<invalid>"
	}
}

// Equal reports whether two values hold the same variant and payload.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindString, KindURI, KindInvalid:
		return v.str == o.str
	case KindUnknown:
		return v.tag == o.tag && v.str == o.str
	case KindLong, KindInt:
		return v.num == o.num
	case KindBool:
		return v.flag == o.flag
	case KindList:
		if len(v.list) != len(o.list) {
			return false
		}
		for i := range v.list {
			if !v.list[i].Equal(o.list[i]) {
				return false
			}
		}
		return true
	}
	return false
}

// Extras is the key/value payload map attached to an Intent.
type Extras map[string]Value

// Keys returns the keys in sorted order so renders are deterministic.
func (e Extras) Keys() []string {
	keys := make([]string, 0, len(e))
	for k := range e {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Clone returns a shallow copy; Values are immutable.
func (e Extras) Clone() Extras {
	if e == nil {
		return nil
	}
	cp := make(Extras, len(e))
	for k, v := range e {
		cp[k] = v
	}
	return cp
}

// Has reports whether key is present.
func (e Extras) Has(key string) bool {
	_, ok := e[key]
	return ok
}
