// Package tactile runs external commands on the host with a timeout,
// bounded output capture and a uniform result shape.
package tactile

import (
	"strings"
	"time"
)

// Command describes one process invocation.
type Command struct {
	// Binary is the executable to run (e.g., "adb").
	Binary string `json:"binary"`

	// Arguments are the command-line arguments.
	Arguments []string `json:"arguments"`

	// WorkingDirectory is the directory to execute in.
	WorkingDirectory string `json:"working_directory,omitempty"`

	// Environment variables to add (in KEY=VALUE format).
	Environment []string `json:"environment,omitempty"`

	// Stdin provides input to the command's standard input.
	Stdin string `json:"stdin,omitempty"`

	// Timeout overrides the executor default when positive.
	Timeout time.Duration `json:"timeout,omitempty"`
}

// CommandString returns the full command as a string (for display/logging).
func (c Command) CommandString() string {
	parts := make([]string, 0, len(c.Arguments)+1)
	parts = append(parts, c.Binary)
	for _, arg := range c.Arguments {
		if arg == "" || strings.ContainsAny(arg, " \t\"'") {
			arg = "'" + strings.ReplaceAll(arg, "'", `'\''`) + "'"
		}
		parts = append(parts, arg)
	}
	return strings.Join(parts, " ")
}

// ExecutionResult is the outcome of a command.
type ExecutionResult struct {
	// Success indicates whether the command completed without infrastructure
	// error. A non-zero exit code still has Success=true.
	Success bool `json:"success"`

	// ExitCode is the command's exit code (-1 if not available).
	ExitCode int `json:"exit_code"`

	Stdout string `json:"stdout"`
	Stderr string `json:"stderr"`

	// Combined is stdout followed by stderr.
	Combined string `json:"combined"`

	Duration   time.Duration `json:"duration"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`

	// Killed indicates the command was forcibly terminated.
	Killed     bool   `json:"killed"`
	KillReason string `json:"kill_reason,omitempty"`

	// Truncated indicates output was cut at the size limit.
	Truncated      bool  `json:"truncated"`
	TruncatedBytes int64 `json:"truncated_bytes,omitempty"`

	// Error is set when Success is false.
	Error string `json:"error,omitempty"`
}

// Ok reports a clean zero exit.
func (r *ExecutionResult) Ok() bool {
	return r != nil && r.Success && !r.Killed && r.ExitCode == 0
}

// ExecutorConfig holds executor defaults.
type ExecutorConfig struct {
	DefaultTimeout time.Duration
	MaxOutputBytes int64

	// AllowedEnvironment lists host variables passed through to children.
	AllowedEnvironment []string
}

// DefaultExecutorConfig returns sane defaults for short device commands.
func DefaultExecutorConfig() ExecutorConfig {
	return ExecutorConfig{
		DefaultTimeout:     30 * time.Second,
		MaxOutputBytes:     1 << 20,
		AllowedEnvironment: []string{"PATH", "HOME", "ANDROID_HOME", "ANDROID_SDK_ROOT", "ANDROID_SERIAL", "ADB_SERVER_SOCKET", "TMPDIR"},
	}
}
