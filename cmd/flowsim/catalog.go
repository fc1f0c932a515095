package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newCatalogCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "catalog",
		Short: "List the automations available to automated nodes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cat, err := c.newCatalog()
			if err != nil {
				return err
			}
			list, err := cat.Fetch(cmd.Context())
			if err != nil {
				return WrapError(ExitFailure, "failed to fetch catalog", err)
			}
			return render(cmd.OutOrStdout(), c.format, list, func(w io.Writer) error {
				tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tLABEL\tPARAMETERS")
				for _, a := range list {
					names := make([]string, 0, len(a.Params))
					for _, p := range a.Params {
						name := p.Name
						if p.Required {
							name += "*"
						}
						names = append(names, name)
					}
					fmt.Fprintf(tw, "%s\t%s\t%s\n", a.ID, a.Label, strings.Join(names, ", "))
				}
				return tw.Flush()
			})
		},
	}
}
