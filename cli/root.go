package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"virtual-campus/config"
	"virtual-campus/services"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"

	Driver  string
	DSN     string
	Catalog string
	Scope   string
	Email   string
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command of campusctl.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "campusctl",
		Short: "campusctl - inspect and manage virtual campus badges",
		Long: `Inspect and manage the badge records of the virtual campus.

Works directly against the campus key-value store, so it can fix up a
user's badges or export them without going through the HTTP API.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.Driver, "driver", config.DriverSQLite, "storage driver (memory|sqlite|postgres|redis)")
	cmd.PersistentFlags().StringVar(&opts.DSN, "dsn", "campus.db", "database file, postgres URL or redis address")
	cmd.PersistentFlags().StringVar(&opts.Catalog, "catalog", "campus", "embedded catalog name or YAML file")
	cmd.PersistentFlags().StringVar(&opts.Scope, "scope", defaultScope(), "badge scope as stored (defaults to \"global\" when BADGE_SCOPE=global)")
	cmd.PersistentFlags().StringVar(&opts.Email, "email", "", "derive the scope from a user's email, as the server does at login")

	cmd.AddCommand(NewBadgesCommand(opts))
	cmd.AddCommand(NewCatalogCommand(opts))

	return cmd
}

func defaultScope() string {
	if config.BadgeScopeFromEnv() == config.ScopeGlobal {
		return config.ScopeGlobal
	}
	return ""
}

// resolveScope picks the badge scope: --email maps through the server's
// scope function, otherwise --scope is used as given.
func resolveScope(opts *RootOptions) (string, error) {
	if opts.Email != "" {
		if config.BadgeScopeFromEnv() == config.ScopeGlobal {
			return config.ScopeGlobal, nil
		}
		return services.ScopeForEmail(opts.Email), nil
	}
	if opts.Scope == "" {
		return "", fmt.Errorf("no badge scope: pass --email or --scope")
	}
	return opts.Scope, nil
}

func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
}
