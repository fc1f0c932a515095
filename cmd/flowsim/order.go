package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dshills/flowsim/graph"
)

type orderOutput struct {
	Order      []orderEntry `json:"order"`
	Unresolved []string     `json:"unresolved,omitempty"`
}

type orderEntry struct {
	ID    string         `json:"id"`
	Type  graph.NodeType `json:"type"`
	Title string         `json:"title"`
}

func newOrderCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "order FILE",
		Short: "Print the execution order of a workflow",
		Long: `Order resolves the topological execution order of a workflow document.
Nodes on a cycle cannot be placed; they are listed as unresolved and the
command exits with status 1.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := loadDocument(args[0])
			if err != nil {
				return err
			}

			nodes, orderErr := graph.ResolveOrder(doc.Nodes, doc.Edges)
			out := orderOutput{Order: make([]orderEntry, 0, len(nodes))}
			for _, n := range nodes {
				out.Order = append(out.Order, orderEntry{ID: n.ID, Type: n.Type, Title: n.Title()})
			}
			var oe *graph.OrderError
			if errors.As(orderErr, &oe) {
				out.Unresolved = oe.Unresolved
			}

			if err := render(cmd.OutOrStdout(), c.format, out, func(w io.Writer) error {
				for i, e := range out.Order {
					fmt.Fprintf(w, "%3d. %-20s %-10s %s\n", i+1, e.ID, e.Type, e.Title)
				}
				if len(out.Unresolved) > 0 {
					fmt.Fprintf(w, "unresolved: %s\n", strings.Join(out.Unresolved, ", "))
				}
				return nil
			}); err != nil {
				return err
			}
			if orderErr != nil {
				return WrapError(ExitFailure, "execution order incomplete", orderErr)
			}
			return nil
		},
	}
}
