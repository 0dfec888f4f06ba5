// Command claimctl inspects and exercises territory state: the configured
// policy, generator tables, snapshots, the delta index and a scripted demo.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"skyclaim.ai/internal/config"
	"skyclaim.ai/internal/logging"
)

type app struct {
	env config.Env
	log *zap.Logger
}

func main() {
	env, err := config.LoadEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(2)
	}
	a := &app{env: env}
	defer func() {
		if a.log != nil {
			_ = a.log.Sync()
		}
	}()

	if err := newRootCmd(a).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:          "claimctl",
		Short:        "Territory engine tooling",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			log, err := logging.New(a.env.LogDevelopment, a.env.LogLevel)
			if err != nil {
				return err
			}
			a.log = log
			return nil
		},
	}
	root.PersistentFlags().StringVar(&a.env.ConfigPath, "config", a.env.ConfigPath, "territory rules (yaml)")
	root.PersistentFlags().StringVar(&a.env.DataDir, "data", a.env.DataDir, "runtime data directory")
	root.PersistentFlags().StringVar(&a.env.LogLevel, "log-level", a.env.LogLevel, "debug, info, warn or error")

	root.AddCommand(
		newPolicyCmd(a),
		newGeneratorCmd(),
		newSnapshotCmd(a),
		newIndexCmd(a),
		newJournalCmd(a),
		newDemoCmd(a),
	)
	return root
}

func (a *app) rules() (config.Config, error) {
	return config.Load(a.env.ConfigPath)
}
