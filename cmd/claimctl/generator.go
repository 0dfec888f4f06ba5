package main

import (
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"skyclaim.ai/internal/territory/generator"
)

func newGeneratorCmd() *cobra.Command {
	var (
		sets  []string
		array bool
	)
	cmd := &cobra.Command{
		Use:   "generator KEY=WEIGHT...",
		Short: "Show generator percentages, optionally after setting some",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			weights, err := parsePairs(args)
			if err != nil {
				return err
			}
			table := generator.FromAmounts(weights)
			for _, s := range sets {
				pct, err := parsePairs([]string{s})
				if err != nil {
					return err
				}
				for k, v := range pct {
					if err := table.SetPercentage(k, int(v)); err != nil {
						return err
					}
				}
			}

			if array {
				fmt.Fprintln(cmd.OutOrStdout(), strings.Join(table.Array(), " "))
				return nil
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "KEY\tWEIGHT\tPERCENT")
			for _, k := range table.Keys() {
				fmt.Fprintf(w, "%s\t%d\t%d%%\n", k, table.Amount(k), table.Percentage(k))
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringArrayVar(&sets, "set", nil, "KEY=PERCENT applied in order")
	cmd.Flags().BoolVar(&array, "array", false, "print the flattened draw array instead")
	return cmd
}

// parsePairs reads KEY=N arguments.
func parsePairs(args []string) (map[string]int64, error) {
	out := make(map[string]int64, len(args))
	for _, a := range args {
		k, v, ok := strings.Cut(a, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("expected KEY=N, got %q", a)
		}
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", k, err)
		}
		if n < 0 {
			return nil, fmt.Errorf("%s: must not be negative", k)
		}
		out[k] = n
	}
	return out, nil
}
