// Package details renders the human-readable description of an intent:
// canonical URI, fields, flags, extras, matching receivers and the last
// returned result. Markdown feeds the console; Plain is for the clipboard
// and the CLI.
package details

import (
	"fmt"
	"strconv"
	"strings"

	"intercept/internal/diff"
	"intercept/internal/editor"
	"intercept/internal/intent"
	"intercept/internal/logging"
)

// Section titles.
const (
	titleAction     = "Action"
	titleData       = "Data"
	titleType       = "MIME Type"
	titleURI        = "URI"
	titleCategories = "Categories"
	titleFlags      = "Flags"
	titleExtras     = "Extras"
	titleMatches    = "Matching Activities"
	titleResult     = "Last Result"
	titleResultCode = "Result Code"
	titleChanges    = "Changes"
	noItems         = "None"
	extractFailed   = "Error extracting extras"
	segmentRule     = "------------"
)

// ExtrasExtractionError reports one extras entry that could not be
// rendered. The rest of the report is unaffected.
type ExtrasExtractionError struct {
	Key    string
	Reason string
}

func (e *ExtrasExtractionError) Error() string {
	return fmt.Sprintf("extras entry %q: %s", e.Key, e.Reason)
}

// Report is everything the description covers.
type Report struct {
	Intent  *intent.Intent
	Matches editor.Matches
	Result  *editor.Result

	// Initial, when set, is compared against Intent in a changes section.
	Initial *intent.Intent
}

// ForModel snapshots the model's current state.
func ForModel(m *editor.Model, r editor.Resolver, self string) Report {
	rep := Report{
		Intent:  m.Intent(),
		Matches: m.MatchingTargets(r, self),
	}
	if last, ok := m.LastResult(); ok {
		rep.Result = &last
	}
	if m.Dirty() {
		rep.Initial = m.Initial()
	}
	return rep
}

// Plain renders the report as plain text.
func Plain(r Report) string {
	out, _ := Render(r, false)
	return out
}

// Markdown renders the report as markdown.
func Markdown(r Report) string {
	out, _ := Render(r, true)
	return out
}

// Render builds the report and returns every extras entry that failed to
// render alongside the text.
func Render(r Report, markdown bool) (string, []error) {
	b := &builder{md: markdown}
	in := r.Intent
	if in == nil {
		in = &intent.Intent{}
	}

	b.code(intent.Encode(in))
	b.segment()
	b.intent(in, true)
	b.segment()

	if r.Initial != nil {
		if changes := diff.Intents(r.Initial, in); changes.Changed() {
			b.header(titleChanges)
			b.diff(changes.Unified(true))
			b.segment()
		}
	}

	b.header(titleMatches)
	if !r.Matches.CanResend() || len(r.Matches.Candidates) == 0 {
		b.line(noItems)
	} else {
		for _, c := range r.Matches.Candidates {
			b.candidate(c)
		}
	}

	if r.Result != nil {
		b.segment()
		b.header(titleResult)
		code := fmt.Sprintf("%d (%s)", r.Result.Code, editor.ResultCodeName(r.Result.Code))
		b.nameValue(titleResultCode, code)
		if r.Result.Intent != nil {
			b.intent(r.Result.Intent, false)
		}
	}

	for _, err := range b.errs {
		logging.UIDebug("details: %v", err)
	}
	return b.String(), b.errs
}

type builder struct {
	strings.Builder
	md   bool
	errs []error
}

// intent writes the field sections. Result intents omit action and flags.
func (b *builder) intent(in *intent.Intent, detailed bool) {
	if detailed {
		b.nameValue(titleAction, in.Action)
	}
	b.nameValue(titleData, in.Data)
	b.nameValue(titleType, in.Type)
	b.nameValue(titleURI, intent.Encode(in))

	if len(in.Categories) > 0 {
		b.header(titleCategories)
		for _, c := range in.Categories {
			b.line(c)
		}
	}

	if detailed {
		b.header(titleFlags)
		flags := intent.DecodeFlags(in.Flags)
		if len(flags) == 0 {
			b.line(noItems)
		}
		for _, f := range flags {
			b.line(f)
		}
	}

	if len(in.Extras) > 0 {
		b.header(titleExtras)
		for i, key := range in.Extras.Keys() {
			b.extra(i+1, key, in.Extras[key])
		}
	}
}

func (b *builder) extra(index int, key string, v intent.Value) {
	if err := checkValue(key, v); err != nil {
		b.errs = append(b.errs, err)
		b.errorLine(fmt.Sprintf("%d %s: %s", index, extractFailed, key))
		return
	}

	b.bold(strconv.Itoa(index), "Type: "+v.TypeName())
	b.line("Key: " + key)
	if v.Kind() == intent.KindList {
		b.line("List:")
		for _, item := range v.Items() {
			b.line(item.String())
		}
		return
	}
	b.line("Value: " + v.String())
}

func checkValue(key string, v intent.Value) error {
	if v.Kind() == intent.KindInvalid {
		return &ExtrasExtractionError{Key: key, Reason: v.InvalidReason()}
	}
	for _, item := range v.Items() {
		if err := checkValue(key, item); err != nil {
			return err
		}
	}
	return nil
}

// =============================================================================
// FORMATTING
// =============================================================================

var mdEscaper = strings.NewReplacer(
	`\`, `\\`, "*", `\*`, "_", `\_`, "`", "\\`",
	"[", `\[`, "]", `\]`, "#", `\#`, "<", `\<`, ">", `\>`,
)

func (b *builder) text(s string) string {
	if b.md {
		return mdEscaper.Replace(s)
	}
	return s
}

func (b *builder) nameValue(name, value string) {
	if value == "" {
		return
	}
	b.bold(name, value)
}

func (b *builder) bold(label, rest string) {
	if b.md {
		fmt.Fprintf(b, "**%s** %s  \n", b.text(label), b.text(rest))
		return
	}
	fmt.Fprintf(b, "%s: %s\n", label, rest)
}

func (b *builder) header(name string) {
	if b.md {
		fmt.Fprintf(b, "\n**%s**  \n", b.text(name))
		return
	}
	fmt.Fprintf(b, "%s:\n", name)
}

func (b *builder) line(s string) {
	if b.md {
		fmt.Fprintf(b, "%s  \n", b.text(s))
		return
	}
	b.WriteString(s + "\n")
}

func (b *builder) errorLine(s string) {
	if b.md {
		fmt.Fprintf(b, "_%s_  \n", b.text(s))
		return
	}
	b.WriteString("! " + s + "\n")
}

func (b *builder) candidate(c editor.Candidate) {
	if b.md {
		fmt.Fprintf(b, "- **%s** (%s - %s)\n", b.text(c.Label), b.text(c.Package), b.text(c.Component))
		return
	}
	b.WriteString(c.String() + "\n")
}

func (b *builder) code(s string) {
	if b.md {
		fmt.Fprintf(b, "```\n%s\n```\n", s)
		return
	}
	b.WriteString(s + "\n")
}

func (b *builder) diff(unified string) {
	if b.md {
		fmt.Fprintf(b, "```diff\n%s```\n", unified)
		return
	}
	b.WriteString(unified)
}

func (b *builder) segment() {
	if b.md {
		b.WriteString("\n---\n\n")
		return
	}
	b.WriteString(segmentRule + "\n")
}
