package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"skyclaim.ai/internal/persistence/archive"
	"skyclaim.ai/internal/persistence/snapshot"
)

func newSnapshotCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Inspect territory snapshots",
	}
	cmd.AddCommand(
		newSnapshotInspectCmd(a),
		newSnapshotListCmd(a),
		newSnapshotPruneCmd(a),
		newSnapshotArchiveCmd(a),
	)
	return cmd
}

func newSnapshotInspectCmd(a *app) *cobra.Command {
	var (
		noValidate bool
		asJSON     bool
	)
	cmd := &cobra.Command{
		Use:   "inspect FILE",
		Short: "Validate a snapshot and print a summary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var v *snapshot.Validator
			if !noValidate {
				var err error
				if v, err = snapshot.LoadValidator(a.env.SchemaPath); err != nil {
					return err
				}
			}
			snap, err := snapshot.Read(args[0], v)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(snap)
			}

			cfg, err := a.rules()
			if err != nil {
				return err
			}
			opts, err := cfg.TerritoryOptions()
			if err != nil {
				return err
			}
			opts.Logger = a.log
			t, err := snapshot.Load(args[0], nil, opts)
			if err != nil {
				return err
			}
			defer t.Close()
			worth, err := t.Worth()
			if err != nil {
				return err
			}
			level, err := t.Level()
			if err != nil {
				return err
			}

			st := snap.State
			w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintf(w, "territory\t%s\n", snap.Header.TerritoryID)
			fmt.Fprintf(w, "seq\t%d\n", snap.Header.Seq)
			fmt.Fprintf(w, "written\t%s\n", snap.Header.WrittenAt.Format("2006-01-02 15:04:05"))
			fmt.Fprintf(w, "owner\t%s\n", st.Members.Owner)
			fmt.Fprintf(w, "members\t%d\n", len(st.Members.Members))
			fmt.Fprintf(w, "coops\t%d\n", len(st.Members.Coops))
			fmt.Fprintf(w, "banned\t%d\n", len(st.Members.Banned))
			fmt.Fprintf(w, "block kinds\t%d\n", len(st.Ledger.Counts))
			fmt.Fprintf(w, "bank\t%s\n", st.Ledger.Bank)
			fmt.Fprintf(w, "worth\t%s\n", worth)
			fmt.Fprintf(w, "level\t%s\n", level)
			fmt.Fprintf(w, "warps\t%d\n", len(st.Warps))
			fmt.Fprintf(w, "flags\t%v\n", st.Flags)
			return w.Flush()
		},
	}
	cmd.Flags().BoolVar(&noValidate, "no-validate", false, "skip schema validation")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the decoded snapshot as JSON")
	cmd.Flags().StringVar(&a.env.SchemaPath, "schema", a.env.SchemaPath, "snapshot JSON schema")
	return cmd
}

func newSnapshotListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List snapshots under the data directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			files, err := filepath.Glob(filepath.Join(a.env.SnapshotDir(), "*", "*.snap.zst"))
			if err != nil {
				return err
			}
			sort.Strings(files)
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "TERRITORY\tSEQ\tWRITTEN\tPATH")
			for _, f := range files {
				h, err := snapshot.ReadHeader(f)
				if err != nil {
					fmt.Fprintf(os.Stderr, "%s: %v\n", f, err)
					continue
				}
				fmt.Fprintf(w, "%s\t%d\t%s\t%s\n", h.TerritoryID, h.Seq, h.WrittenAt.Format("2006-01-02 15:04:05"), f)
			}
			return w.Flush()
		},
	}
}

func newSnapshotPruneCmd(a *app) *cobra.Command {
	var keep int
	cmd := &cobra.Command{
		Use:   "prune TERRITORY_ID",
		Short: "Delete all but the newest snapshots of a territory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return err
			}
			n, err := archive.Prune(a.env.SnapshotDir(), id, keep)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %d snapshots\n", n)
			return nil
		},
	}
	cmd.Flags().IntVar(&keep, "keep", 3, "snapshots to keep")
	return cmd
}

func newSnapshotArchiveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "archive TERRITORY_ID",
		Short: "Move a disbanded territory's newest snapshot to the archive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return err
			}
			meta, err := archive.Archive(a.env.SnapshotDir(), a.env.ArchiveDir(), id)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "archived seq %d to %s\n", meta.Seq, a.env.ArchiveDir())
			return nil
		},
	}
}
