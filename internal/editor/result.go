package editor

import (
	"fmt"

	"intercept/internal/intent"
)

// Platform result codes.
const (
	ResultCanceled  = 0
	ResultOK        = -1
	ResultFirstUser = 1
)

// ResultCodeName renders a result code the way the platform names it.
func ResultCodeName(code int) string {
	switch {
	case code == ResultOK:
		return "RESULT_OK"
	case code == ResultCanceled:
		return "RESULT_CANCELED"
	case code >= ResultFirstUser:
		return fmt.Sprintf("RESULT_FIRST_USER+%d", code-ResultFirstUser)
	default:
		return fmt.Sprintf("%d", code)
	}
}

// Result is a (code, intent) pair returned by a receiving component.
type Result struct {
	Code   int
	Intent *intent.Intent // may be nil
}

// ResultForwarder holds the most recent returned result.
type ResultForwarder struct {
	last *Result
}

// NewResultForwarder returns an empty holder.
func NewResultForwarder() *ResultForwarder {
	return &ResultForwarder{}
}

// Record replaces the stored result.
func (f *ResultForwarder) Record(code int, in *intent.Intent) {
	f.last = &Result{Code: code, Intent: in.Clone()}
}

// Last returns the stored result, if any.
func (f *ResultForwarder) Last() (Result, bool) {
	if f == nil || f.last == nil {
		return Result{}, false
	}
	return Result{Code: f.last.Code, Intent: f.last.Intent.Clone()}, true
}
