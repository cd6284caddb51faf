package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"intercept/internal/catalog"
	"intercept/internal/config"
	"intercept/internal/journal"
	"intercept/internal/logging"
)

var (
	// Global flags
	verbose    bool
	configPath string

	// Loaded in PersistentPreRunE
	cfg *config.Config

	// Logger
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "intercept",
	Short: "Intent Intercept - inspect, edit and resend Android intents",
	Long: `intercept shows the contents of an Android intent, lets you edit its
action, data, type or whole intent URI, and resends it to whatever can
handle it. Results returned by the receiver are shown and forwarded back to
the original sender.

Run with a URI (or --envelope) to open the interactive editor.`,
	Args:          cobra.MaximumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
		logging.Attach(nil)
		logging.CloseAll()
	},
	RunE: runEdit,
}

// rootPersistentPreRunE is attached in init to avoid an initialization cycle
// (isConsole refers to rootCmd).
func rootPersistentPreRunE(cmd *cobra.Command, args []string) error {
	if err := loadConfig(); err != nil {
		return err
	}

	// The console owns the terminal; no stderr logger there.
	if isConsole(cmd) {
		logger = zap.NewNop()
		return nil
	}

	zcfg := zap.NewProductionConfig()
	if verbose {
		zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	var err error
	logger, err = zcfg.Build()
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	if verbose {
		logging.Attach(logger.Core())
	}
	return nil
}

func init() {
	rootCmd.PersistentPreRunE = rootPersistentPreRunE
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default: ~/.intercept/config.yaml)")

	registerEditFlags(rootCmd)
	registerEditFlags(editCmd)

	encodeCmd.Flags().StringVar(&encodeOpts.action, "action", "", "Intent action")
	encodeCmd.Flags().StringVar(&encodeOpts.data, "data", "", "Data URI")
	encodeCmd.Flags().StringVar(&encodeOpts.mimeType, "type", "", "MIME type")
	encodeCmd.Flags().StringSliceVar(&encodeOpts.categories, "category", nil, "Category (repeatable)")
	encodeCmd.Flags().StringVar(&encodeOpts.flags, "flags", "", "Launch flags as hex (0x10000000)")
	encodeCmd.Flags().StringVar(&encodeOpts.pkg, "package", "", "Target package")
	encodeCmd.Flags().StringVar(&encodeOpts.component, "component", "", "Target component pkg/cls")
	encodeCmd.Flags().StringArrayVar(&encodeOpts.extras, "extra", nil, "Extra as key=type:value (string, int, long, bool, uri)")

	diffCmd.Flags().BoolVar(&diffChangesOnly, "changes", false, "Only print changed fields")
	detailsCmd.Flags().BoolVar(&detailsMarkdown, "markdown", false, "Render markdown instead of plain text")
	watchCmd.Flags().BoolVar(&watchBacklog, "backlog", false, "Also process envelopes already in the inbox")
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Number of entries to show")

	configCmd.AddCommand(configInitCmd)

	// Add commands to root
	rootCmd.AddCommand(editCmd)
	rootCmd.AddCommand(decodeCmd)
	rootCmd.AddCommand(encodeCmd)
	rootCmd.AddCommand(flagsCmd)
	rootCmd.AddCommand(diffCmd)
	rootCmd.AddCommand(detailsCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(sendCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(catalogCmd)
	rootCmd.AddCommand(configCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func resolvedConfigPath() string {
	if configPath != "" {
		return configPath
	}
	return config.DefaultConfigPath()
}

func loadConfig() error {
	path := resolvedConfigPath()
	c, err := config.Load(path)
	if err != nil {
		return err
	}
	if err := c.Validate(); err != nil {
		return fmt.Errorf("invalid config %s: %w", path, err)
	}
	if err := logging.Initialize(c.Logging.Dir, c.Logging.Options()); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	logging.Boot("config loaded from %s (dispatch=%s)", path, c.Dispatch.Mode)
	cfg = c
	return nil
}

func isConsole(cmd *cobra.Command) bool {
	return cmd == rootCmd || cmd == editCmd
}

// loadCatalog reads the component catalog and adds this tool's own
// catch-all receiver.
func loadCatalog(ctx context.Context) (*catalog.Catalog, error) {
	cat, err := catalog.Load(ctx, cfg.Catalog.Dir)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}
	return cat.WithSelf(cfg.Identity.SelfPackage, cfg.Identity.SelfLabel), nil
}

// openJournal returns nil when the journal is disabled.
func openJournal() (*journal.Store, error) {
	if !cfg.Journal.Enabled {
		return nil, nil
	}
	store, err := journal.Open(cfg.Journal.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	return store, nil
}
