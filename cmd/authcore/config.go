package main

import (
	"github.com/spf13/cobra"
)

func newConfigCmd(opts *cliOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration commands",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration with secrets masked",
		RunE: func(cmd *cobra.Command, args []string) error {
			redacted := opts.cfg.Redacted()
			if opts.output == "table" {
				out, err := redacted.YAML()
				if err != nil {
					return err
				}
				_, err = cmd.OutOrStdout().Write(out)
				return err
			}
			f, err := opts.formatter(cmd)
			if err != nil {
				return err
			}
			return f.Format(redacted)
		},
	})
	return cmd
}
