package main

import (
	"fmt"
	"sort"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"skyclaim.ai/internal/persistence"
	"skyclaim.ai/internal/persistence/indexdb"
	"skyclaim.ai/internal/persistence/journal"
)

func newIndexCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Query the SQLite delta index",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List live territories",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				idx, err := indexdb.OpenSQLite(a.env.IndexPath())
				if err != nil {
					return err
				}
				defer idx.Close()
				ids, err := idx.Territories(cmd.Context())
				if err != nil {
					return err
				}
				for _, id := range ids {
					fmt.Fprintln(cmd.OutOrStdout(), id)
				}
				return nil
			},
		},
		&cobra.Command{
			Use:   "latest TERRITORY_ID",
			Short: "Print the newest delta of each kind",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				id, err := uuid.Parse(args[0])
				if err != nil {
					return err
				}
				idx, err := indexdb.OpenSQLite(a.env.IndexPath())
				if err != nil {
					return err
				}
				defer idx.Close()
				latest, err := idx.Latest(cmd.Context(), id)
				if err != nil {
					return err
				}
				return printRecords(cmd, sortedRecords(latest))
			},
		},
	)
	return cmd
}

func newJournalCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "journal",
		Short: "Read the compressed delta journal",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List territories with a journal and their segment count",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			dir := a.env.JournalDir()
			ids, err := journal.Territories(dir)
			if err != nil {
				return err
			}
			for _, id := range ids {
				files, err := journal.Files(dir, id)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d segments\n", id, len(files))
			}
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "latest TERRITORY_ID",
		Short: "Replay the journal and print the newest delta of each kind",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return err
			}
			latest, err := journal.Latest(a.env.JournalDir(), id)
			if err != nil {
				return err
			}
			return printRecords(cmd, sortedRecords(latest))
		},
	})
	return cmd
}

func sortedRecords[K comparable](m map[K]persistence.Record) []persistence.Record {
	out := make([]persistence.Record, 0, len(m))
	for _, r := range m {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out
}

func printRecords(cmd *cobra.Command, recs []persistence.Record) error {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SEQ\tKIND\tAT\tBYTES")
	for _, r := range recs {
		fmt.Fprintf(w, "%d\t%s\t%s\t%d\n", r.Seq, r.Kind, r.At.Format("2006-01-02 15:04:05.000"), len(r.Payload))
	}
	return w.Flush()
}
