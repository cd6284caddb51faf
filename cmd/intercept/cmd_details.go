package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"intercept/internal/details"
	"intercept/internal/editor"
	"intercept/internal/intent"
)

var detailsMarkdown bool

// detailsCmd prints the same report the editor shows and copies
var detailsCmd = &cobra.Command{
	Use:   "details <uri>",
	Short: "Print the details report for an intent, including matching activities",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		in, err := intent.Decode(args[0])
		if err != nil {
			return err
		}
		model, err := editor.Load(in, nil)
		if err != nil {
			return err
		}
		cat, err := loadCatalog(cmd.Context())
		if err != nil {
			return err
		}

		text, errs := details.Render(details.ForModel(model, cat, cfg.Identity.SelfPackage), detailsMarkdown)
		for _, e := range errs {
			logger.Warn(e.Error())
		}
		fmt.Fprint(cmd.OutOrStdout(), text)
		return nil
	},
}

// catalogCmd lists the components known to resolution
var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "List the components in the catalog",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cat, err := loadCatalog(cmd.Context())
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		entries := cat.Entries()
		for i, e := range entries {
			exported := ""
			if !e.Exported {
				exported = ", not exported"
			}
			fmt.Fprintf(out, "  %d. %s [%s, %d filters%s]\n", i+1, e.Candidate, e.Kind, e.Filters, exported)
		}
		fmt.Fprintf(out, "Total: %d components\n", len(entries))
		return nil
	},
}
