package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

func newBackendsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "backends",
		Short: "Report which conversion and extraction backends are installed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, services, closeFn, err := opts.setup()
			if err != nil {
				return err
			}
			defer closeFn()

			w := cmd.OutOrStdout()

			office := services.Dispatcher.Office()
			status := "available"
			if err := office.Available(); err != nil {
				status = err.Error()
			}
			fmt.Fprintf(w, "office  %-14s %s\n", office.Name(), status)

			report := services.Pipeline.Registry().Report()
			engines := make([]string, 0, len(report))
			for name := range report {
				engines = append(engines, name)
			}
			sort.Strings(engines)
			for _, name := range engines {
				fmt.Fprintf(w, "engine  %-14s %s\n", name, report[name])
			}
			return nil
		},
	}
}
