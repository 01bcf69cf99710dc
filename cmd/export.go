/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/rosterhq/playerapi/config"
	"github.com/rosterhq/playerapi/internal/db"
	"github.com/rosterhq/playerapi/internal/services"
	"github.com/rosterhq/playerapi/internal/storage"
	"github.com/rosterhq/playerapi/internal/store"
	"github.com/rosterhq/playerapi/types"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var exportFlags struct {
	name, title, race, profession string
	after, before                 int64
	banned                        bool
	minExperience, maxExperience  int
	minLevel, maxLevel            int
}

// exportCmd represents the export command.
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export matching players to object storage",
	Long: `Writes every player matching the filter flags as a JSON array to the
configured object storage bucket and prints the object key. Usage:

	roster export --race ELF --min-level 10
`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		filter, err := exportFilter(cmd.Flags())
		if err != nil {
			return err
		}

		return withExportService(cmd.Context(), func(export *services.ExportService, logger *slog.Logger) error {
			key, count, err := export.Export(cmd.Context(), filter)
			if err != nil {
				return err
			}
			logger.Info("export complete", slog.String("key", key), slog.Int("players", count))
			fmt.Fprintln(cmd.OutOrStdout(), key)
			return nil
		})
	},
}

// importCmd represents the import command.
var importCmd = &cobra.Command{
	Use:   "import <key>",
	Short: "Restore players from an export",
	Long: `Reads an export written by "roster export" from object storage and
inserts every player in it as a new record. Usage:

	roster import exports/players-20260301T123000Z.json
`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withExportService(cmd.Context(), func(export *services.ExportService, logger *slog.Logger) error {
			count, err := export.Restore(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "restored %d players\n", count)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)

	flags := exportCmd.Flags()
	flags.StringVar(&exportFlags.name, "name", "", "substring of the player name")
	flags.StringVar(&exportFlags.title, "title", "", "substring of the player title")
	flags.StringVar(&exportFlags.race, "race", "", "exact race, e.g. ELF")
	flags.StringVar(&exportFlags.profession, "profession", "", "exact profession, e.g. WARRIOR")
	flags.Int64Var(&exportFlags.after, "after", 0, "birthday lower bound in epoch milliseconds (inclusive)")
	flags.Int64Var(&exportFlags.before, "before", 0, "birthday upper bound in epoch milliseconds (exclusive)")
	flags.BoolVar(&exportFlags.banned, "banned", false, "banned flag to match")
	flags.IntVar(&exportFlags.minExperience, "min-experience", 0, "minimum experience")
	flags.IntVar(&exportFlags.maxExperience, "max-experience", 0, "maximum experience")
	flags.IntVar(&exportFlags.minLevel, "min-level", 0, "minimum level")
	flags.IntVar(&exportFlags.maxLevel, "max-level", 0, "maximum level")
}

// exportFilter keeps only the flags given on the command line.
func exportFilter(flags *pflag.FlagSet) (types.PlayerFilter, error) {
	var filter types.PlayerFilter
	if flags.Changed("name") {
		filter.Name = &exportFlags.name
	}
	if flags.Changed("title") {
		filter.Title = &exportFlags.title
	}
	if flags.Changed("race") {
		race, ok := types.ParseRace(exportFlags.race)
		if !ok {
			return types.PlayerFilter{}, fmt.Errorf("unknown race %q", exportFlags.race)
		}
		filter.Race = &race
	}
	if flags.Changed("profession") {
		profession, ok := types.ParseProfession(exportFlags.profession)
		if !ok {
			return types.PlayerFilter{}, fmt.Errorf("unknown profession %q", exportFlags.profession)
		}
		filter.Profession = &profession
	}
	if flags.Changed("after") {
		filter.After = &exportFlags.after
	}
	if flags.Changed("before") {
		filter.Before = &exportFlags.before
	}
	if flags.Changed("banned") {
		filter.Banned = &exportFlags.banned
	}
	if flags.Changed("min-experience") {
		filter.MinExperience = &exportFlags.minExperience
	}
	if flags.Changed("max-experience") {
		filter.MaxExperience = &exportFlags.maxExperience
	}
	if flags.Changed("min-level") {
		filter.MinLevel = &exportFlags.minLevel
	}
	if flags.Changed("max-level") {
		filter.MaxLevel = &exportFlags.maxLevel
	}
	return filter, nil
}

func withExportService(ctx context.Context, run func(*services.ExportService, *slog.Logger) error) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg.LogLevel)

	objects, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		return err
	}
	if objects == nil {
		return errors.New("STORAGE_BACKEND is not configured")
	}

	conn, err := db.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		_ = conn.Close()
	}()

	dialect, err := store.DialectFor(cfg.Database.Driver)
	if err != nil {
		return err
	}
	repo := store.NewPlayerRepository(conn, dialect)
	return run(services.NewExportService(repo, objects, logger), logger)
}
