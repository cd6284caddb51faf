package dispatch

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"intercept/internal/editor"
	"intercept/internal/intent"
	"intercept/internal/logging"
	"intercept/internal/tactile"
)

// ADB starts activities on a device through `adb shell am start`.
type ADB struct {
	exec    tactile.Executor
	binary  string
	serial  string
	timeout time.Duration
}

var _ Dispatcher = (*ADB)(nil)

// NewADB targets the device with serial, or the only device when empty.
func NewADB(exec tactile.Executor, binary, serial string, timeout time.Duration) *ADB {
	if binary == "" {
		binary = "adb"
	}
	return &ADB{exec: exec, binary: binary, serial: serial, timeout: timeout}
}

// Dispatch runs am start. A clean start is reported as RESULT_OK.
func (a *ADB) Dispatch(ctx context.Context, in *intent.Intent) (*Receipt, error) {
	if in == nil {
		return nil, fmt.Errorf("adb: nil intent")
	}
	var args []string
	if a.serial != "" {
		args = append(args, "-s", a.serial)
	}
	args = append(args, "shell")
	for _, arg := range StartArgs(in) {
		args = append(args, shellQuote(arg))
	}

	cmd := tactile.Command{Binary: a.binary, Arguments: args, Timeout: a.timeout}
	receipt := &Receipt{
		ID:      uuid.NewString(),
		Target:  "adb",
		Command: strings.Join(append([]string{a.binary}, args...), " "),
		SentAt:  time.Now(),
	}
	logging.Dispatch("adb dispatch %s: %s", receipt.ID, receipt.Command)

	res, err := a.exec.Execute(ctx, cmd)
	if err != nil {
		logging.DispatchError("adb: %v", err)
		return nil, fmt.Errorf("adb: %w", err)
	}
	receipt.Output = strings.TrimSpace(res.Combined)

	switch {
	case !res.Success:
		return nil, fmt.Errorf("adb: %s", res.Error)
	case res.Killed:
		return nil, fmt.Errorf("adb: %s", res.KillReason)
	case res.ExitCode != 0:
		return nil, fmt.Errorf("adb: exit %d: %s", res.ExitCode, receipt.Output)
	case amFailed(res.Combined):
		// am reports resolution failures on a zero exit.
		return nil, fmt.Errorf("adb: %s", receipt.Output)
	}

	receipt.Result = &editor.Result{Code: editor.ResultOK}
	logging.DispatchDebug("adb dispatch %s ok: %s", receipt.ID, receipt.Output)
	return receipt, nil
}

func amFailed(output string) bool {
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "Error:") || strings.HasPrefix(line, "Error type") {
			return true
		}
	}
	return false
}

// StartArgs builds the `am start` argument list for in. Extras that am
// cannot express are skipped.
func StartArgs(in *intent.Intent) []string {
	args := []string{"am", "start"}
	if in.Action != "" {
		args = append(args, "-a", in.Action)
	}
	if in.Data != "" {
		args = append(args, "-d", in.Data)
	}
	if in.Type != "" {
		args = append(args, "-t", in.Type)
	}
	for _, c := range in.Categories {
		args = append(args, "-c", c)
	}
	if in.Flags != 0 {
		args = append(args, "-f", fmt.Sprintf("0x%x", in.Flags))
	}
	if in.Component != nil {
		args = append(args, "-n", in.Component.FlattenToShortString())
	} else if in.Package != "" {
		args = append(args, "-p", in.Package)
	}

	for _, key := range in.Extras.Keys() {
		v := in.Extras[key]
		flag, value, ok := extraArg(v)
		if !ok {
			logging.DispatchDebug("adb: skipping %s extra %q", v.TypeName(), key)
			continue
		}
		args = append(args, flag, key, value)
	}
	return args
}

func extraArg(v intent.Value) (flag, value string, ok bool) {
	switch v.Kind() {
	case intent.KindString:
		return "--es", v.Str(), true
	case intent.KindBool:
		return "--ez", strconv.FormatBool(v.Bool()), true
	case intent.KindInt:
		return "--ei", strconv.FormatInt(v.Int(), 10), true
	case intent.KindLong:
		return "--el", strconv.FormatInt(v.Int(), 10), true
	case intent.KindURI:
		return "--eu", v.Str(), true
	case intent.KindList:
		return listArg(v.Items())
	default:
		return "", "", false
	}
}

// listArg maps homogeneous string, int or long lists onto am's array flags.
func listArg(items []intent.Value) (flag, value string, ok bool) {
	if len(items) == 0 {
		return "", "", false
	}
	kind := items[0].Kind()
	parts := make([]string, len(items))
	for i, item := range items {
		if item.Kind() != kind {
			return "", "", false
		}
		parts[i] = item.String()
		if kind == intent.KindString && strings.Contains(parts[i], ",") {
			parts[i] = strings.ReplaceAll(parts[i], ",", `\,`)
		}
	}
	switch kind {
	case intent.KindString:
		return "--esa", strings.Join(parts, ","), true
	case intent.KindInt:
		return "--eia", strings.Join(parts, ","), true
	case intent.KindLong:
		return "--ela", strings.Join(parts, ","), true
	default:
		return "", "", false
	}
}

// shellQuote protects an argument from the device shell, which re-splits
// the joined `adb shell` command line.
func shellQuote(s string) string {
	if s == "" {
		return "''"
	}
	safe := true
	for _, c := range s {
		if !(c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || strings.ContainsRune("-_./:=,@%+", c)) {
			safe = false
			break
		}
	}
	if safe {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
