package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/terrascope/authcore/internal/appconfig"
	"github.com/terrascope/authcore/internal/cli/format"
)

type cliOptions struct {
	cfgFile string
	output  string
	noColor bool

	cfg *appconfig.ServiceConfig
}

func (o *cliOptions) formatter(cmd *cobra.Command) (format.Formatter, error) {
	return format.New(cmd.OutOrStdout(), o.output, !o.noColor)
}

func (o *cliOptions) messages(cmd *cobra.Command) *format.Messages {
	return format.NewMessages(cmd.ErrOrStderr(), !o.noColor)
}

func newRootCmd() *cobra.Command {
	opts := &cliOptions{}

	root := &cobra.Command{
		Use:           "authcore",
		Short:         "Account authentication service",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := appconfig.Load(opts.cfgFile)
			if err != nil {
				return fmt.Errorf("failed to initialize configuration: %w", err)
			}
			opts.cfg = cfg
			return nil
		},
	}

	root.PersistentFlags().StringVar(&opts.cfgFile, "config", "", "config file (YAML); AUTHCORE_* variables override it")
	root.PersistentFlags().StringVarP(&opts.output, "output", "o", "table", "output format (table, json, json-compact, yaml)")
	root.PersistentFlags().BoolVar(&opts.noColor, "no-color", false, "disable colored output")

	root.AddCommand(newServeCmd(opts))
	root.AddCommand(newUsersCmd(opts))
	root.AddCommand(newConfigCmd(opts))

	root.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return fmt.Errorf("%w\n\n%s", err, cmd.UsageString())
	})
	return root
}
