package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"virtual-campus/models"
)

// NewCatalogCommand creates the catalog command group.
func NewCatalogCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect badge catalogs",
	}
	cmd.AddCommand(newCatalogValidateCommand(rootOpts))
	cmd.AddCommand(newCatalogListCommand(rootOpts))
	return cmd
}

type catalogSummary struct {
	Version         string `json:"version"`
	Badges          int    `json:"badges"`
	DefaultUnlocked int    `json:"defaultUnlocked"`
	TotalPoints     int    `json:"totalPoints"`
}

func (s catalogSummary) String() string {
	return fmt.Sprintf("✓ Catalog %s is valid: %d badges (%d unlocked by default), %d points available",
		s.Version, s.Badges, s.DefaultUnlocked, s.TotalPoints)
}

func summarize(c *models.Catalog) catalogSummary {
	s := catalogSummary{Version: c.Version, Badges: c.Len()}
	for _, b := range c.Badges {
		if b.DefaultUnlocked {
			s.DefaultUnlocked++
		}
		s.TotalPoints += b.Points
	}
	return s
}

func newCatalogValidateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <file|name>",
		Short: "Validate a catalog YAML file",
		Long: `Parse and validate a badge catalog.

Checks unknown fields, empty or duplicate ids, categories, rarities and
points. Embedded catalog names are accepted too.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := newFormatter(rootOpts, cmd)
			catalog, err := models.LoadCatalog(args[0])
			if err != nil {
				return f.Fail(ExitFailure, ErrCodeCatalog, "invalid catalog", err)
			}
			return f.Success(summarize(catalog))
		},
	}
}

type catalogNames []string

func (n catalogNames) String() string {
	return strings.Join(n, "\n")
}

func newCatalogListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "list",
		Short:         "List the embedded catalogs",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return newFormatter(rootOpts, cmd).Success(catalogNames(models.EmbeddedCatalogNames()))
		},
	}
}
