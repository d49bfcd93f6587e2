/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/codestorhub-123/TrendyCart-Backend-sub001/internal/db"
	"github.com/codestorhub-123/TrendyCart-Backend-sub001/internal/events"
	"github.com/codestorhub-123/TrendyCart-Backend-sub001/internal/settings"
)

var (
	settingsOutput string
	settingsInput  string
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Inspect or change runtime settings",
	Long: `Export or apply the runtime settings that drive the live listing.

Examples:
  # Write the current settings to a YAML file
  trendycart settings export -o settings.yaml

  # Apply an edited file
  trendycart settings apply -f settings.yaml
`,
}

var settingsExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write current settings as YAML",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSettingsStore(func(ctx context.Context, store *settings.Store) error {
			path := settingsOutput
			if path == "" {
				path = cfg.SettingsFile
			}
			if path == "" {
				return fmt.Errorf("no output path: pass --output or set TRENDYCART_SETTINGS_FILE")
			}
			if err := store.Export(path); err != nil {
				return err
			}
			logger.Info().Str("path", path).Msg("settings exported")
			return nil
		})
	},
}

var settingsApplyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Apply settings from a YAML file",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSettingsStore(func(ctx context.Context, store *settings.Store) error {
			applied, err := store.Apply(ctx, settingsInput)
			if err != nil {
				return err
			}
			logger.Info().
				Bool("simulated_first", applied.SimulatedFirst).
				Int("fake_viewer_min", applied.FakeViewerMin).
				Int("fake_viewer_max", applied.FakeViewerMax).
				Msg("settings applied")
			return nil
		})
	},
}

func init() {
	settingsExportCmd.Flags().StringVarP(&settingsOutput, "output", "o", "", "Destination file (defaults to the configured settings file)")
	settingsApplyCmd.Flags().StringVarP(&settingsInput, "file", "f", "", "YAML file to apply")
	_ = settingsApplyCmd.MarkFlagRequired("file")

	settingsCmd.AddCommand(settingsExportCmd, settingsApplyCmd)
}

func withSettingsStore(fn func(ctx context.Context, store *settings.Store) error) error {
	if err := loadConfig(); err != nil {
		return err
	}

	database, err := initDatabase()
	if err != nil {
		return err
	}
	defer db.Close(database)

	if err := db.Migrate(database); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	ctx := context.Background()
	store := settings.NewStore(database, events.NewBus(), "", logger)
	if err := store.Reload(ctx); err != nil {
		return fmt.Errorf("load settings: %w", err)
	}
	return fn(ctx, store)
}
