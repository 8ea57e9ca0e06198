package main

import (
	"fmt"
	"slices"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func (a *app) convertersCmd() *cobra.Command {
	var ocidPrefix string

	c := &cobra.Command{
		Use:   "converters",
		Short: "List converters in fold order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			n := 0
			for _, t := range a.registry(ocidPrefix) {
				if slices.Contains(a.cfg.DisabledConverters, t.ID()) {
					continue
				}
				fmt.Fprintf(tw, "%3d\t%s\t%s\n", n, t.ID(), t.Description())
				n++
			}
			return tw.Flush()
		},
	}
	c.Flags().StringVar(&ocidPrefix, "ocid-prefix", "", "OCID prefix shown for OPP-OCID")
	return c
}
