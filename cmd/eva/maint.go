package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"github.com/sandeepkv93/eva/internal/config"
	"github.com/sandeepkv93/eva/internal/docstore"
	"github.com/sandeepkv93/eva/internal/storage"
)

func newMigrateCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Bring the database to a schema version",
		Long: `Every command migrates the database to the latest schema before it runs.
migrate does only that, and with --to it can stop at an earlier version.
Versions cannot be rolled back.`,
		GroupID: "maint",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			target, _ := cmd.Flags().GetInt("to")
			repo, err := storage.OpenSQLite(cmd.Context(), a.cfg.DB.Path)
			if err != nil {
				return err
			}
			defer repo.Close()

			m := docstore.NewMigrator(repo, a.storeOptions())
			from, err := m.CurrentVersion(cmd.Context())
			if err != nil {
				return err
			}
			if err := m.MigrateTo(cmd.Context(), target); err != nil {
				return err
			}
			to, err := m.CurrentVersion(cmd.Context())
			if err != nil {
				return err
			}
			if from == to {
				fmt.Fprintf(cmd.OutOrStdout(), "Schema already at version %d\n", to)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Migrated schema from version %d to %d\n", from, to)
			return nil
		},
	}
	cmd.Flags().Int("to", docstore.LatestVersion, "Target schema version")
	return cmd
}

func newVersionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "version",
		Short:   "Show the schema version of the database",
		GroupID: "maint",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := storage.OpenSQLite(cmd.Context(), a.cfg.DB.Path)
			if err != nil {
				return err
			}
			defer repo.Close()

			current, err := docstore.NewMigrator(repo, a.storeOptions()).CurrentVersion(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "database: %s\nschema:   %d (latest %d)\n",
				a.cfg.DB.Path, current, docstore.LatestVersion)
			return nil
		},
	}
}

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "config",
		Short:   "Write or show the configuration",
		GroupID: "maint",
	}

	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			force, _ := cmd.Flags().GetBool("force")
			if _, err := os.Stat(a.cfgPath); err == nil && !force {
				return fmt.Errorf("%s already exists, use --force to overwrite", a.cfgPath)
			} else if err != nil && !errors.Is(err, fs.ErrNotExist) {
				return err
			}
			if err := config.Save(a.cfgPath, config.DefaultConfig()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", a.cfgPath)
			return nil
		},
	}
	initCmd.Flags().Bool("force", false, "Overwrite an existing file")

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration as TOML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return config.Encode(cmd.OutOrStdout(), a.cfg)
		},
	}

	cmd.AddCommand(initCmd, showCmd)
	return cmd
}
