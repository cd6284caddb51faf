package intent

import (
	"errors"
	"fmt"
	"math"
	"net/url"
	"slices"
	"sort"
	"strconv"
	"strings"
)

const (
	uriScheme      = "intent:"
	fragmentPrefix = "#Intent;"
	fragmentEnd    = "end"
)

// ParseError reports text that does not follow the canonical URI grammar.
type ParseError struct {
	Input  string
	Offset int
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid intent uri: %s (offset %d)", e.Reason, e.Offset)
}

// IsParseError reports whether err wraps a *ParseError.
func IsParseError(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}

// =============================================================================
// ENCODE
// =============================================================================

// Encode renders the canonical URI form:
//
//	intent:<data-opaque-part>#Intent;action=...;category=...;type=...;launchFlags=0x..;component=pkg/cls;end
//
// A descriptor carrying only a data URI encodes as that URI. Extras are
// never written.
func Encode(in *Intent) string {
	if in == nil {
		return uriScheme
	}
	if in.IsDataOnly() && !hasIntentFragment(in.Data) {
		if in.Data == "" {
			return uriScheme
		}
		return in.Data
	}

	var b strings.Builder
	b.WriteString(uriScheme)
	scheme, rest, hasScheme := splitScheme(in.Data)
	b.WriteString(rest)
	b.WriteString(fragmentPrefix)

	if hasScheme {
		writeField(&b, "scheme", escape(scheme, ""))
	}
	if in.Action != "" {
		writeField(&b, "action", escape(in.Action, ""))
	}
	for _, c := range sortedCategories(in.Categories) {
		writeField(&b, "category", escape(c, ""))
	}
	if in.Type != "" {
		writeField(&b, "type", escape(in.Type, "/"))
	}
	if in.Flags != 0 {
		writeField(&b, "launchFlags", "0x"+strconv.FormatUint(uint64(in.Flags), 16))
	}
	if in.Package != "" {
		writeField(&b, "package", escape(in.Package, ""))
	}
	if in.Component != nil {
		writeField(&b, "component", escape(in.Component.FlattenToShortString(), "/"))
	}
	b.WriteString(fragmentEnd)
	return b.String()
}

// hasIntentFragment reports whether s would be read back as an intent
// fragment, in which case a data URI cannot be written bare.
func hasIntentFragment(s string) bool {
	hash := strings.LastIndexByte(s, '#')
	return hash >= 0 && strings.HasPrefix(s[hash:], fragmentPrefix)
}

// sortedCategories returns a sorted, deduplicated copy.
func sortedCategories(categories []string) []string {
	out := make([]string, 0, len(categories))
	out = append(out, categories...)
	sort.Strings(out)
	return slices.Compact(out)
}

func writeField(b *strings.Builder, key, value string) {
	b.WriteString(key)
	b.WriteByte('=')
	b.WriteString(value)
	b.WriteByte(';')
}

const upperHex = "0123456789ABCDEF"

// escape percent-encodes everything outside ALPHA DIGIT _-!.~'()* and the
// extra bytes in allow.
func escape(s, allow string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isUnreserved(c) || (allow != "" && strings.IndexByte(allow, c) >= 0) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(upperHex[c>>4])
		b.WriteByte(upperHex[c&0x0f])
	}
	return b.String()
}

func isUnreserved(c byte) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		return true
	}
	return strings.IndexByte("_-!.~'()*", c) >= 0
}

// =============================================================================
// DECODE
// =============================================================================

// Decode parses the canonical URI form back into an Intent. Text without an
// #Intent; fragment is a bare data URI. On error the returned Intent is nil.
func Decode(s string) (*Intent, error) {
	if strings.TrimSpace(s) == "" {
		return nil, &ParseError{Input: s, Reason: "empty intent uri"}
	}

	if !hasIntentFragment(s) {
		return decodeBare(s)
	}
	hash := strings.LastIndexByte(s, '#')

	in := &Intent{}
	var scheme string
	i := hash + len(fragmentPrefix)
	for {
		if s[i:] == fragmentEnd {
			break
		}
		if i >= len(s) {
			return nil, &ParseError{Input: s, Offset: i, Reason: "missing end terminator"}
		}
		semi := strings.IndexByte(s[i:], ';')
		if semi < 0 {
			if strings.HasPrefix(s[i:], fragmentEnd) {
				return nil, &ParseError{Input: s, Offset: i + len(fragmentEnd), Reason: "trailing text after end"}
			}
			return nil, &ParseError{Input: s, Offset: i, Reason: "missing end terminator"}
		}
		segment := s[i : i+semi]
		eq := strings.IndexByte(segment, '=')
		if eq < 0 {
			return nil, &ParseError{Input: s, Offset: i, Reason: fmt.Sprintf("segment %q is not key=value", segment)}
		}
		key := segment[:eq]
		value, err := url.PathUnescape(segment[eq+1:])
		if err != nil {
			return nil, &ParseError{Input: s, Offset: i + eq + 1, Reason: "malformed percent-encoding in " + key}
		}
		if err := applyField(in, &scheme, key, value); err != nil {
			return nil, &ParseError{Input: s, Offset: i, Reason: err.Error()}
		}
		i += semi + 1
	}

	data := strings.TrimPrefix(s[:hash], uriScheme)
	if scheme != "" {
		data = scheme + ":" + data
	}
	if data != "" {
		if _, err := url.Parse(data); err != nil {
			return nil, &ParseError{Input: s, Reason: "invalid data uri: " + err.Error()}
		}
		in.Data = data
	}
	return in, nil
}

func decodeBare(s string) (*Intent, error) {
	if s == uriScheme {
		return &Intent{}, nil
	}
	if _, err := url.Parse(s); err != nil {
		return nil, &ParseError{Input: s, Reason: "invalid data uri: " + err.Error()}
	}
	return &Intent{Data: s}, nil
}

func applyField(in *Intent, scheme *string, key, value string) error {
	switch key {
	case "action":
		in.Action = value
	case "category":
		in.AddCategory(value)
	case "type":
		in.Type = value
	case "scheme":
		*scheme = value
	case "package":
		in.Package = value
	case "launchFlags":
		flags, err := parseLaunchFlags(value)
		if err != nil {
			return err
		}
		in.Flags = flags
	case "component":
		c, err := ParseComponentName(value)
		if err != nil {
			return err
		}
		in.Component = c
	default:
		return applyExtra(in, key, value)
	}
	return nil
}

// applyExtra handles typed extra segments: S.key, B.key, i.key, l.key.
func applyExtra(in *Intent, key, value string) error {
	if len(key) < 3 || key[1] != '.' {
		return fmt.Errorf("unknown key %q", key)
	}
	name, err := url.PathUnescape(key[2:])
	if err != nil {
		return fmt.Errorf("malformed percent-encoding in extra key %q", key)
	}
	switch key[0] {
	case 'S':
		in.PutExtra(name, StringValue(value))
	case 'B':
		in.PutExtra(name, BoolValue(strings.EqualFold(value, "true")))
	case 'i':
		n, err := strconv.ParseInt(value, 10, 32)
		if err != nil {
			return fmt.Errorf("extra %q: %v", name, err)
		}
		in.PutExtra(name, IntValue(int32(n)))
	case 'l':
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return fmt.Errorf("extra %q: %v", name, err)
		}
		in.PutExtra(name, LongValue(n))
	default:
		return fmt.Errorf("unknown extra type %q", key[:1])
	}
	return nil
}

// parseLaunchFlags accepts hex (0x), octal (0) and decimal forms, including
// negative values that denote the high bit.
func parseLaunchFlags(value string) (uint32, error) {
	n, err := strconv.ParseInt(value, 0, 64)
	if err != nil {
		return 0, fmt.Errorf("launchFlags %q is not a number", value)
	}
	if n < math.MinInt32 || n > math.MaxUint32 {
		return 0, fmt.Errorf("launchFlags %q out of range", value)
	}
	return uint32(n), nil
}
