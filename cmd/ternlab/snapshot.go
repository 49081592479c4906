package main

import (
	"fmt"
	"os"

	"github.com/aretw0/ternlab/internal/config"
	"github.com/aretw0/ternlab/pkg/lab"
	"github.com/aretw0/ternlab/pkg/snapshot"
	"github.com/spf13/cobra"
)

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Manage stored snapshots",
	Long:  `List, inspect, add and remove snapshots in the configured store (file, redis or sqlite).`,
}

var snapshotLsCmd = &cobra.Command{
	Use:     "ls",
	Aliases: []string{"list"},
	Short:   "List stored snapshots",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStoredLab(cmd, func(l *lab.Lab) error {
			ids, err := l.ListSnapshots(cmd.Context())
			if err != nil {
				return fmt.Errorf("listing snapshots: %w", err)
			}
			if len(ids) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No snapshots found.")
				return nil
			}
			for _, id := range ids {
				fmt.Fprintln(cmd.OutOrStdout(), id)
			}
			return nil
		})
	},
}

var snapshotShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Print a stored snapshot as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStoredLab(cmd, func(l *lab.Lab) error {
			snap, err := l.GetSnapshot(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("loading snapshot '%s': %w", args[0], err)
			}
			data, err := snapshot.Encode(snap)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		})
	},
}

var snapshotPutCmd = &cobra.Command{
	Use:   "put <file>",
	Short: "Validate a snapshot file and add it to the store",
	Long:  `Reads a snapshot file (current or legacy shape), validates it and stores it. Prints the snapshot id.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, _ := cmd.Flags().GetString("id")
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("reading snapshot: %w", err)
		}
		doc, err := snapshot.Decode(data)
		if err != nil {
			return err
		}
		return withStoredLab(cmd, func(l *lab.Lab) error {
			if err := l.ImportDocument(cmd.Context(), doc); err != nil {
				return err
			}
			saved, err := l.SaveSnapshot(cmd.Context(), id)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), saved)
			return nil
		})
	},
}

var snapshotRmCmd = &cobra.Command{
	Use:     "rm <id>",
	Aliases: []string{"delete"},
	Short:   "Delete a stored snapshot",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStoredLab(cmd, func(l *lab.Lab) error {
			if err := l.DeleteSnapshot(cmd.Context(), args[0]); err != nil {
				return fmt.Errorf("deleting snapshot '%s': %w", args[0], err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Snapshot '%s' deleted.\n", args[0])
			return nil
		})
	},
}

// withStoredLab opens the configured store and hands fn a lab backed by it.
func withStoredLab(cmd *cobra.Command, fn func(l *lab.Lab) error) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := newLogger(cfg)
	if cfg.Store.Backend == config.BackendMemory {
		logger.Warn("memory store does not persist between invocations; set store.backend to file, redis or sqlite")
	}

	store, closeStore, err := openStore(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	l, err := lab.New(append(cfg.LabOptions(), lab.WithStore(store), lab.WithLogger(logger))...)
	if err != nil {
		return err
	}
	return fn(l)
}

func init() {
	rootCmd.AddCommand(snapshotCmd)
	snapshotCmd.AddCommand(snapshotLsCmd)
	snapshotCmd.AddCommand(snapshotShowCmd)
	snapshotCmd.AddCommand(snapshotPutCmd)
	snapshotCmd.AddCommand(snapshotRmCmd)

	snapshotPutCmd.Flags().String("id", "", "Snapshot id (random UUID when empty)")
}
