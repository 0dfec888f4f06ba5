package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"skyclaim.ai/internal/territory/identity"
)

func newPolicyCmd(a *app) *cobra.Command {
	var role string
	cmd := &cobra.Command{
		Use:   "policy",
		Short: "Print the privilege policy from the rules file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.rules()
			if err != nil {
				return err
			}
			policy, err := cfg.RolePolicy()
			if err != nil {
				return err
			}
			var filter *identity.Role
			if role != "" {
				r, err := identity.ParseRole(role)
				if err != nil {
					return err
				}
				filter = &r
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "PRIVILEGE\tMIN ROLE")
			for _, p := range policy.Privileges() {
				req, _ := policy.Required(p)
				if filter != nil && !filter.AtLeast(req) {
					continue
				}
				fmt.Fprintf(w, "%s\t%s\n", p, req)
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&role, "role", "", "only list privileges this role holds")
	return cmd
}
