// Package intent models the platform message-dispatch descriptor ("Intent")
// together with its canonical URI text form.
//
// The URI form is lossy: extras payload entries never survive Encode, so
// callers that need them back use Diff at load time and Reapply after every
// Decode (see extras.go).
package intent

import (
	"fmt"
	"sort"
	"strings"
)

// Well-known actions and categories used by defaults and tests.
const (
	ActionMain = "android.intent.action.MAIN"
	ActionView = "android.intent.action.VIEW"
	ActionSend = "android.intent.action.SEND"

	CategoryDefault   = "android.intent.category.DEFAULT"
	CategoryBrowsable = "android.intent.category.BROWSABLE"
	CategoryLauncher  = "android.intent.category.LAUNCHER"

	ExtraText = "android.intent.extra.TEXT"
)

// ComponentName addresses one receiving component explicitly.
type ComponentName struct {
	Package string
	Class   string
}

// FlattenToShortString renders pkg/cls, abbreviating a class that lives in
// the package to pkg/.Suffix.
func (c ComponentName) FlattenToShortString() string {
	cls := c.Class
	if strings.HasPrefix(cls, c.Package+".") {
		cls = cls[len(c.Package):]
	}
	return c.Package + "/" + cls
}

// String implements fmt.Stringer.
func (c ComponentName) String() string { return c.FlattenToShortString() }

// ParseComponentName is the inverse of FlattenToShortString.
func ParseComponentName(s string) (*ComponentName, error) {
	slash := strings.IndexByte(s, '/')
	if slash <= 0 || slash == len(s)-1 {
		return nil, fmt.Errorf("component %q: want <package>/<class>", s)
	}
	pkg, cls := s[:slash], s[slash+1:]
	if strings.HasPrefix(cls, ".") {
		cls = pkg + cls
	}
	return &ComponentName{Package: pkg, Class: cls}, nil
}

// Intent is a structured message descriptor. Empty strings mean "absent".
type Intent struct {
	Action     string
	Data       string
	Type       string
	Categories []string // set semantics, kept sorted
	Flags      uint32
	Package    string
	Component  *ComponentName
	Extras     Extras
}

// New returns an Intent carrying only an action.
func New(action string) *Intent {
	return &Intent{Action: action}
}

// Clone deep-copies the descriptor.
func (in *Intent) Clone() *Intent {
	if in == nil {
		return nil
	}
	cp := *in
	if in.Categories != nil {
		cp.Categories = append([]string(nil), in.Categories...)
	}
	if in.Component != nil {
		c := *in.Component
		cp.Component = &c
	}
	cp.Extras = in.Extras.Clone()
	return &cp
}

// AddCategory inserts a category, keeping the set sorted and unique.
func (in *Intent) AddCategory(category string) {
	i := sort.SearchStrings(in.Categories, category)
	if i < len(in.Categories) && in.Categories[i] == category {
		return
	}
	in.Categories = append(in.Categories, "")
	copy(in.Categories[i+1:], in.Categories[i:])
	in.Categories[i] = category
}

// RemoveCategory drops a category if present.
func (in *Intent) RemoveCategory(category string) {
	i := sort.SearchStrings(in.Categories, category)
	if i < len(in.Categories) && in.Categories[i] == category {
		in.Categories = append(in.Categories[:i], in.Categories[i+1:]...)
	}
	if len(in.Categories) == 0 {
		in.Categories = nil
	}
}

// HasCategory reports whether category is in the set.
func (in *Intent) HasCategory(category string) bool {
	i := sort.SearchStrings(in.Categories, category)
	return i < len(in.Categories) && in.Categories[i] == category
}

// PutExtra sets one payload entry.
func (in *Intent) PutExtra(key string, v Value) {
	if in.Extras == nil {
		in.Extras = make(Extras)
	}
	in.Extras[key] = v
}

// DataScheme returns the scheme of the data URI, or "" when it has none.
func (in *Intent) DataScheme() string {
	scheme, _, ok := splitScheme(in.Data)
	if !ok {
		return ""
	}
	return scheme
}

// IsDataOnly reports whether the descriptor carries nothing but a data URI.
func (in *Intent) IsDataOnly() bool {
	return in.Action == "" && in.Type == "" && len(in.Categories) == 0 &&
		in.Flags == 0 && in.Package == "" && in.Component == nil
}

// splitScheme splits "scheme:rest" when the prefix is a valid URI scheme
// (letters, digits, '.', '-', '+').
func splitScheme(data string) (scheme, rest string, ok bool) {
	for i := 0; i < len(data); i++ {
		c := data[i]
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') ||
			(c >= '0' && c <= '9') || c == '.' || c == '-' || c == '+' {
			continue
		}
		if c == ':' && i > 0 {
			return data[:i], data[i+1:], true
		}
		break
	}
	return "", data, false
}
