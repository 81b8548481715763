// Command migrate applies the embedded HitchPath schema migrations.
package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/hitchpath/hitchpath/internal/config"
	"github.com/hitchpath/hitchpath/internal/database"
)

// Version is set at compile time via ldflags.
var Version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		cfg *config.Config
		log zerolog.Logger
	)

	root := &cobra.Command{
		Use:          "migrate",
		Short:        "Manage the HitchPath database schema",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = config.Load()
			if err != nil {
				return err
			}
			log = cfg.App.NewLogger("hitchpath-migrate", Version)
			return nil
		},
	}

	withMigrator := func(fn func(m *database.Migrator) error) error {
		m, err := database.NewMigrator(cfg.DB.Database())
		if err != nil {
			return err
		}
		defer func() {
			if err := m.Close(); err != nil {
				log.Warn().Err(err).Msg("closing migrator")
			}
		}()
		return fn(m)
	}

	root.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return withMigrator(func(m *database.Migrator) error {
					if err := m.Up(); err != nil {
						return err
					}
					v, _, err := m.Version()
					if err != nil {
						return err
					}
					log.Info().Uint("version", v).Msg("schema up to date")
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "down [steps]",
			Short: "Roll back migrations (default 1)",
			Args:  cobra.MaximumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				steps := 1
				if len(args) == 1 {
					n, err := strconv.Atoi(args[0])
					if err != nil {
						return fmt.Errorf("invalid steps %q: %w", args[0], err)
					}
					steps = n
				}
				return withMigrator(func(m *database.Migrator) error {
					if err := m.Down(steps); err != nil {
						return err
					}
					log.Info().Int("steps", steps).Msg("rolled back")
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print the current schema version",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return withMigrator(func(m *database.Migrator) error {
					v, dirty, err := m.Version()
					if err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "version %d (dirty: %t)\n", v, dirty)
					return nil
				})
			},
		},
	)

	return root
}
