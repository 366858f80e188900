package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newConfigCmd(a *app) *cobra.Command {
	var validate bool

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Long: `Print the configuration after merging defaults, config files, .env and
FLIGHTARCHIVE_* environment variables. Secrets are never printed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if validate {
				if err := a.cfg.Validate(); err != nil {
					return err
				}
			}

			for _, p := range a.mgr.GetPaths() {
				fmt.Fprintf(a.stdout, "# loaded: %s\n", p)
			}
			data, err := a.mgr.Marshal()
			if err != nil {
				return err
			}
			_, err = a.stdout.Write(data)
			return err
		},
	}

	cmd.Flags().BoolVar(&validate, "validate", false, "Fail when the configuration is invalid")
	return cmd
}
