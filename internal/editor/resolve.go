package editor

import "intercept/internal/intent"

// Candidate is one component able to receive an intent.
type Candidate struct {
	Label     string
	Package   string
	Component string
}

// String renders "label (package - component)".
func (c Candidate) String() string {
	return c.Label + " (" + c.Package + " - " + c.Component + ")"
}

// Resolver answers which components can handle an intent. Implementations
// live outside the editor (see internal/catalog).
type Resolver interface {
	ResolveCandidates(in *intent.Intent) []Candidate
}

// ResolverFunc adapts a plain function to Resolver.
type ResolverFunc func(in *intent.Intent) []Candidate

// ResolveCandidates implements Resolver.
func (f ResolverFunc) ResolveCandidates(in *intent.Intent) []Candidate { return f(in) }

// Matches summarises resolution for display and resend gating.
type Matches struct {
	// Count excludes exactly one candidate belonging to the host package.
	Count int
	// Candidates lists every candidate outside the host package.
	Candidates []Candidate
}

// CanResend reports whether at least one other receiver exists.
func (m Matches) CanResend() bool { return m.Count >= 1 }

func countMatches(candidates []Candidate, self string) Matches {
	m := Matches{Count: len(candidates), Candidates: make([]Candidate, 0, len(candidates))}
	subtracted := false
	for _, c := range candidates {
		if c.Package == self {
			if !subtracted {
				m.Count--
				subtracted = true
			}
			continue
		}
		m.Candidates = append(m.Candidates, c)
	}
	return m
}
