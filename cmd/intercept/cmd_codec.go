package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"intercept/internal/diff"
	"intercept/internal/intent"
)

type encodeFlags struct {
	action     string
	data       string
	mimeType   string
	categories []string
	flags      string
	pkg        string
	component  string
	extras     []string
}

var encodeOpts encodeFlags

var diffChangesOnly bool

// decodeCmd prints the fields of an intent URI
var decodeCmd = &cobra.Command{
	Use:   "decode <uri>",
	Short: "Decode an intent URI into its fields",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		in, err := intent.Decode(args[0])
		if err != nil {
			return err
		}
		logger.Debug("decoded intent uri")
		printIntent(cmd.OutOrStdout(), in)
		return nil
	},
}

// encodeCmd builds an intent URI from flags
var encodeCmd = &cobra.Command{
	Use:   "encode",
	Short: "Build an intent URI from its fields",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		in, err := intentFromFlags()
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), intent.Encode(in))
		return nil
	},
}

// flagsCmd decodes a launch flag mask, or lists the table
var flagsCmd = &cobra.Command{
	Use:   "flags [hex]",
	Short: "Decode launch flags (lists every known flag without an argument)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		if len(args) == 0 {
			for _, f := range intent.Flags() {
				fmt.Fprintf(out, "0x%08x  %s\n", f.Value, f.Name)
			}
			return nil
		}

		mask, err := parseHexFlags(args[0])
		if err != nil {
			return err
		}
		names := intent.DecodeFlags(mask)
		if len(names) == 0 {
			fmt.Fprintln(out, "None")
		}
		for _, name := range names {
			fmt.Fprintln(out, name)
		}
		if unknown := intent.UnknownFlagBits(mask); unknown != 0 {
			fmt.Fprintf(out, "unknown bits: 0x%x\n", unknown)
		}
		return nil
	},
}

// diffCmd compares two intent URIs field by field
var diffCmd = &cobra.Command{
	Use:   "diff <uri> <uri>",
	Short: "Compare two intent URIs field by field",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		before, err := intent.Decode(args[0])
		if err != nil {
			return fmt.Errorf("first uri: %w", err)
		}
		after, err := intent.Decode(args[1])
		if err != nil {
			return fmt.Errorf("second uri: %w", err)
		}
		r := diff.Intents(before, after)
		fmt.Fprint(cmd.OutOrStdout(), r.Unified(diffChangesOnly))
		if !r.Changed() {
			fmt.Fprintln(cmd.OutOrStdout(), "No differences")
		}
		return nil
	},
}

func parseHexFlags(s string) (uint32, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.TrimPrefix(s, "0x")
	mask, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid flags %q: want a 32-bit hex value", s)
	}
	return uint32(mask), nil
}

func intentFromFlags() (*intent.Intent, error) {
	in := &intent.Intent{
		Action:  encodeOpts.action,
		Data:    encodeOpts.data,
		Type:    encodeOpts.mimeType,
		Package: encodeOpts.pkg,
	}
	for _, c := range encodeOpts.categories {
		in.AddCategory(c)
	}
	if encodeOpts.flags != "" {
		mask, err := parseHexFlags(encodeOpts.flags)
		if err != nil {
			return nil, err
		}
		in.Flags = mask
	}
	if encodeOpts.component != "" {
		cn, err := intent.ParseComponentName(encodeOpts.component)
		if err != nil {
			return nil, err
		}
		in.Component = cn
	}
	for _, spec := range encodeOpts.extras {
		key, v, err := parseExtra(spec)
		if err != nil {
			return nil, err
		}
		in.PutExtra(key, v)
	}
	return in, nil
}

// parseExtra reads key=type:value. A missing type means string.
func parseExtra(spec string) (string, intent.Value, error) {
	key, rest, ok := strings.Cut(spec, "=")
	if !ok || key == "" {
		return "", intent.Value{}, fmt.Errorf("extra %q: want key=type:value", spec)
	}
	tag, raw, typed := strings.Cut(rest, ":")
	if !typed {
		return key, intent.StringValue(rest), nil
	}
	kind, ok := intent.ParseKind(tag)
	if !ok {
		// "http://x" style values without a type.
		return key, intent.StringValue(rest), nil
	}

	switch kind {
	case intent.KindString:
		return key, intent.StringValue(raw), nil
	case intent.KindURI:
		return key, intent.URIValue(raw), nil
	case intent.KindBool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return "", intent.Value{}, fmt.Errorf("extra %q: %w", key, err)
		}
		return key, intent.BoolValue(b), nil
	case intent.KindInt:
		n, err := strconv.ParseInt(raw, 10, 32)
		if err != nil {
			return "", intent.Value{}, fmt.Errorf("extra %q: %w", key, err)
		}
		return key, intent.IntValue(int32(n)), nil
	case intent.KindLong:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return "", intent.Value{}, fmt.Errorf("extra %q: %w", key, err)
		}
		return key, intent.LongValue(n), nil
	default:
		return "", intent.Value{}, fmt.Errorf("extra %q: %s values are not supported here", key, kind)
	}
}

func printIntent(w io.Writer, in *intent.Intent) {
	field := func(name, value string) {
		if value != "" {
			fmt.Fprintf(w, "%-11s %s\n", name+":", value)
		}
	}
	field("uri", intent.Encode(in))
	field("action", in.Action)
	field("data", in.Data)
	field("type", in.Type)
	for _, c := range in.Categories {
		field("category", c)
	}
	if in.Flags != 0 {
		field("flags", fmt.Sprintf("0x%x %s", in.Flags, strings.Join(intent.DecodeFlags(in.Flags), "|")))
	}
	field("package", in.Package)
	if in.Component != nil {
		field("component", in.Component.FlattenToShortString())
	}
	for _, key := range in.Extras.Keys() {
		v := in.Extras[key]
		field("extra", fmt.Sprintf("%s (%s) = %s", key, v.TypeName(), v.String()))
	}
}
