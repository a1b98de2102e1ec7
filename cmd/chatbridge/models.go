package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

func newModelsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List the models the configured backend serves",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			prov, err := buildProvider(cfg)
			if err != nil {
				return err
			}
			defer prov.Close()

			models, err := prov.ListModels(cmd.Context())
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tOWNED BY\tCREATED")
			for _, m := range models {
				created := "-"
				if !m.Created.IsZero() {
					created = m.Created.Format(time.DateOnly)
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\n", m.ID, m.OwnedBy, created)
			}
			return tw.Flush()
		},
	}
}
