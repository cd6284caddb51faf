// Package diff compares two intents field by field using the sergi/go-diff
// line engine. The editor uses it to show what an edit changed relative to
// the intercepted intent.
package diff

import (
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"

	"intercept/internal/intent"
)

// LineType represents the type of diff line
type LineType int

const (
	LineContext LineType = iota // Unchanged field
	LineAdded                   // Present only after the edit
	LineRemoved                 // Present only before the edit
)

func (t LineType) prefix() string {
	switch t {
	case LineAdded:
		return "+ "
	case LineRemoved:
		return "- "
	default:
		return "  "
	}
}

// Line is one field line of the comparison.
type Line struct {
	Content string
	Type    LineType
}

// Result is a field-level comparison of two intents.
type Result struct {
	Lines   []Line
	Added   int
	Removed int
}

// Changed reports whether any field differs.
func (r Result) Changed() bool { return r.Added > 0 || r.Removed > 0 }

// Unified renders every line with a "+ ", "- " or "  " prefix. With
// changesOnly the unchanged fields are left out.
func (r Result) Unified(changesOnly bool) string {
	var b strings.Builder
	for _, l := range r.Lines {
		if changesOnly && l.Type == LineContext {
			continue
		}
		b.WriteString(l.Type.prefix())
		b.WriteString(l.Content)
		b.WriteByte('\n')
	}
	return b.String()
}

// Fields lists the intent one field per line in a stable order, so that
// a line diff of two listings is a field diff.
func Fields(in *intent.Intent) []string {
	if in == nil {
		return nil
	}
	var out []string
	add := func(key, value string) {
		if value != "" {
			out = append(out, key+"="+value)
		}
	}
	add("action", in.Action)
	add("data", in.Data)
	add("type", in.Type)
	for _, c := range in.Categories {
		add("category", c)
	}
	if in.Flags != 0 {
		add("flags", fmt.Sprintf("0x%x", in.Flags))
	}
	add("package", in.Package)
	if in.Component != nil {
		add("component", in.Component.FlattenToShortString())
	}
	for _, key := range in.Extras.Keys() {
		v := in.Extras[key]
		out = append(out, fmt.Sprintf("extra %s (%s)=%s", key, v.TypeName(), v.String()))
	}
	return out
}

// Engine wraps a configured diffmatchpatch instance.
type Engine struct {
	dmp *diffmatchpatch.DiffMatchPatch
}

// NewEngine creates an engine without a time limit; intents are small.
func NewEngine() *Engine {
	dmp := diffmatchpatch.New()
	dmp.DiffTimeout = 0
	return &Engine{dmp: dmp}
}

// DefaultEngine is shared by the package-level helpers.
var DefaultEngine = NewEngine()

// Intents compares before and after field by field.
func (e *Engine) Intents(before, after *intent.Intent) Result {
	return e.lines(Fields(before), Fields(after))
}

// Intents compares with the default engine.
func Intents(before, after *intent.Intent) Result {
	return DefaultEngine.Intents(before, after)
}

func (e *Engine) lines(before, after []string) Result {
	oldText, newText := joinLines(before), joinLines(after)

	// Line-level reduction keeps whole fields together.
	a, b, lineArray := e.dmp.DiffLinesToChars(oldText, newText)
	diffs := e.dmp.DiffMain(a, b, false)
	diffs = e.dmp.DiffCharsToLines(diffs, lineArray)

	var r Result
	for _, d := range diffs {
		typ := LineContext
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			typ = LineAdded
		case diffmatchpatch.DiffDelete:
			typ = LineRemoved
		}
		for _, line := range strings.Split(strings.TrimSuffix(d.Text, "\n"), "\n") {
			if line == "" && d.Text == "" {
				continue
			}
			r.Lines = append(r.Lines, Line{Content: line, Type: typ})
			switch typ {
			case LineAdded:
				r.Added++
			case LineRemoved:
				r.Removed++
			}
		}
	}
	return r
}

func joinLines(lines []string) string {
	if len(lines) == 0 {
		return ""
	}
	return strings.Join(lines, "\n") + "\n"
}

// Segment is a run of text within a single-line comparison.
type Segment struct {
	Text string
	Type LineType
}

// Words compares two single-line strings, such as intent URIs, at the
// character level with semantic cleanup.
func (e *Engine) Words(before, after string) []Segment {
	diffs := e.dmp.DiffMain(before, after, false)
	diffs = e.dmp.DiffCleanupSemantic(diffs)

	out := make([]Segment, 0, len(diffs))
	for _, d := range diffs {
		typ := LineContext
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			typ = LineAdded
		case diffmatchpatch.DiffDelete:
			typ = LineRemoved
		}
		out = append(out, Segment{Text: d.Text, Type: typ})
	}
	return out
}

// Words compares with the default engine.
func Words(before, after string) []Segment {
	return DefaultEngine.Words(before, after)
}
