package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"virtual-campus/config"
	"virtual-campus/logger"
	"virtual-campus/models"
	"virtual-campus/services"
	"virtual-campus/storage"
	"virtual-campus/utils"
)

// NewBadgesCommand creates the badges command group.
func NewBadgesCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "badges",
		Short: "List, unlock, reset and export the badges of one scope",
	}

	cmd.AddCommand(newBadgesListCommand(rootOpts))
	cmd.AddCommand(newBadgesShowCommand(rootOpts))
	cmd.AddCommand(newBadgesUnlockCommand(rootOpts))
	cmd.AddCommand(newBadgesResetCommand(rootOpts))
	cmd.AddCommand(newBadgesPointsCommand(rootOpts))
	cmd.AddCommand(newBadgesExportCommand(rootOpts))
	return cmd
}

// openStore opens the configured KV backend and loads the scope's badges.
// A failed read is reported in verbose mode and the defaults are served.
func openStore(ctx context.Context, opts *RootOptions, f *OutputFormatter) (*services.BadgeStore, func(), error) {
	cfg := &config.Config{
		StorageDriver: strings.ToLower(opts.Driver),
		DatabaseURL:   opts.DSN,
		RedisAddr:     opts.DSN,
	}

	scope, err := resolveScope(opts)
	if err != nil {
		return nil, nil, f.Fail(ExitCommandError, ErrCodeGeneric, err.Error(), nil)
	}

	catalog, err := models.LoadCatalog(opts.Catalog)
	if err != nil {
		return nil, nil, f.Fail(ExitCommandError, ErrCodeCatalog, "failed to load catalog", err)
	}

	kv, err := storage.Open(ctx, cfg)
	if err != nil {
		return nil, nil, f.Fail(ExitCommandError, ErrCodeStorage, "failed to open storage", err)
	}
	f.VerboseLog("Opened %s storage (%s), catalog %s, scope %s", cfg.StorageDriver, opts.DSN, catalog.Version, scope)

	storeLog := logger.Nop()
	if opts.Verbose {
		storeLog = zerolog.New(zerolog.ConsoleWriter{Out: f.ErrWriter, NoColor: true}).With().Timestamp().Logger()
	}
	store := services.NewBadgeStore(kv, catalog, scope, services.WithLogger(storeLog))
	if _, err := store.Load(ctx); err != nil {
		f.VerboseLog("Warning: %v", err)
	}

	return store, func() { _ = kv.Close() }, nil
}

type badgeTable models.BadgeCollection

func (t badgeTable) String() string {
	if len(t) == 0 {
		return "No badges."
	}
	var b strings.Builder
	for i, badge := range t {
		mark := " "
		if badge.Unlocked {
			mark = "x"
		}
		fmt.Fprintf(&b, "[%s] %-18s %s (%d pts, %s)", mark, badge.ID, badge.Name, badge.Points, badge.Rarity)
		if i < len(t)-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

type badgeDetail models.Badge

func (d badgeDetail) String() string {
	status := "locked"
	if d.Unlocked && d.UnlockedAt != nil {
		status = "unlocked at " + d.UnlockedAt.Format("2006-01-02 15:04:05 MST")
	}
	return fmt.Sprintf("%s %s\n  %s\n  category: %s, rarity: %s, points: %d\n  %s",
		d.ID, d.Name, d.Description, d.Category, d.Rarity, d.Points, status)
}

type unlockResult struct {
	Unlocked    bool         `json:"unlocked"`
	Badge       models.Badge `json:"badge"`
	TotalPoints int          `json:"totalPoints"`
}

func (r unlockResult) String() string {
	if !r.Unlocked {
		return fmt.Sprintf("%s was already unlocked. Total points: %d", r.Badge.ID, r.TotalPoints)
	}
	return fmt.Sprintf("Unlocked %s (+%d). Total points: %d", r.Badge.ID, r.Badge.Points, r.TotalPoints)
}

type pointsView struct {
	TotalPoints int `json:"totalPoints"`
	Progress    int `json:"progress"`
	Unlocked    int `json:"unlocked"`
	Total       int `json:"total"`
}

func (p pointsView) String() string {
	return fmt.Sprintf("%d points, %d/%d badges (%d%%)", p.TotalPoints, p.Unlocked, p.Total, p.Progress)
}

func newPointsView(store *services.BadgeStore) pointsView {
	all := store.GetAll()
	return pointsView{
		TotalPoints: store.GetTotalPoints(),
		Progress:    store.GetProgressPercentage(),
		Unlocked:    len(all.Unlocked()),
		Total:       len(all),
	}
}

func newBadgesListCommand(rootOpts *RootOptions) *cobra.Command {
	var status, category, query string

	cmd := &cobra.Command{
		Use:           "list",
		Short:         "List badges in catalog order",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := newFormatter(rootOpts, cmd)
			if status != "" && status != "unlocked" && status != "locked" {
				return f.Fail(ExitCommandError, ErrCodeInvalidFilter, fmt.Sprintf("invalid status %q", status), nil)
			}
			if category != "" && !models.BadgeCategory(category).Valid() {
				return f.Fail(ExitCommandError, ErrCodeInvalidFilter, fmt.Sprintf("invalid category %q", category), nil)
			}

			store, closeStore, err := openStore(cmd.Context(), rootOpts, f)
			if err != nil {
				return err
			}
			defer closeStore()

			list := store.Search(query).Filter(func(b models.Badge) bool {
				if status == "unlocked" && !b.Unlocked || status == "locked" && b.Unlocked {
					return false
				}
				return category == "" || string(b.Category) == category
			})
			return f.Success(badgeTable(list))
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "only unlocked or locked badges")
	cmd.Flags().StringVar(&category, "category", "", "only badges of this category")
	cmd.Flags().StringVarP(&query, "query", "q", "", "search name and description")
	return cmd
}

func newBadgesShowCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "show <id>",
		Short:         "Show one badge",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := newFormatter(rootOpts, cmd)
			store, closeStore, err := openStore(cmd.Context(), rootOpts, f)
			if err != nil {
				return err
			}
			defer closeStore()

			badge, ok := store.GetByID(args[0])
			if !ok {
				return f.Fail(ExitFailure, ErrCodeNotFound, fmt.Sprintf("badge %q not found", args[0]), nil)
			}
			return f.Success(badgeDetail(badge))
		},
	}
}

func newBadgesUnlockCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "unlock <id>",
		Short:         "Unlock a badge",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := newFormatter(rootOpts, cmd)
			store, closeStore, err := openStore(cmd.Context(), rootOpts, f)
			if err != nil {
				return err
			}
			defer closeStore()

			unlocked, err := store.Unlock(cmd.Context(), args[0])
			if errors.Is(err, services.ErrBadgeNotFound) {
				return f.Fail(ExitFailure, ErrCodeNotFound, fmt.Sprintf("badge %q not found", args[0]), err)
			}
			if err != nil && !unlocked {
				return f.Fail(ExitFailure, ErrCodePersistence, "badges could not be loaded, nothing was written", err)
			}
			if err != nil {
				return f.Fail(ExitFailure, ErrCodePersistence, "badge unlocked but could not be saved", err)
			}

			badge, _ := store.GetByID(args[0])
			return f.Success(unlockResult{Unlocked: unlocked, Badge: badge, TotalPoints: store.GetTotalPoints()})
		},
	}
}

func newBadgesResetCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "reset",
		Short:         "Reset the scope to the catalog defaults",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := newFormatter(rootOpts, cmd)
			store, closeStore, err := openStore(cmd.Context(), rootOpts, f)
			if err != nil {
				return err
			}
			defer closeStore()

			all, err := store.Reset(cmd.Context())
			if err != nil {
				return f.Fail(ExitFailure, ErrCodePersistence, "reset could not be saved", err)
			}
			return f.Success(badgeTable(all))
		},
	}
}

func newBadgesPointsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "points",
		Short:         "Show total points and progress",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := newFormatter(rootOpts, cmd)
			store, closeStore, err := openStore(cmd.Context(), rootOpts, f)
			if err != nil {
				return err
			}
			defer closeStore()

			return f.Success(newPointsView(store))
		},
	}
}

type exportView struct {
	Path   string `json:"path"`
	Badges int    `json:"badges"`
}

func (e exportView) String() string {
	return fmt.Sprintf("Wrote %d badges to %s", e.Badges, e.Path)
}

func newBadgesExportCommand(rootOpts *RootOptions) *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:           "export",
		Short:         "Export the badges as CSV",
		Long:          "Export the badges as CSV. Without --out the CSV is written to stdout.",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := newFormatter(rootOpts, cmd)
			store, closeStore, err := openStore(cmd.Context(), rootOpts, f)
			if err != nil {
				return err
			}
			defer closeStore()

			all := store.GetAll()
			if out == "" {
				return services.ExportCSV(cmd.OutOrStdout(), all)
			}

			var buf bytes.Buffer
			if err := services.ExportCSV(&buf, all); err != nil {
				return f.Fail(ExitFailure, ErrCodeGeneric, "failed to render export", err)
			}
			if err := utils.WriteFile(out, buf.Bytes()); err != nil {
				return f.Fail(ExitFailure, ErrCodeWriteFailed, "failed to write export", err)
			}
			return f.Success(exportView{Path: out, Badges: len(all)})
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "", "output file")
	return cmd
}
