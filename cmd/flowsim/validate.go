package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/dshills/flowsim/graph"
	"github.com/dshills/flowsim/graph/codec"
)

func newValidateCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "validate FILE",
		Short: "Check a workflow document for structural problems",
		Long: `Validate runs every structural and per-node check against a workflow
document and reports all errors and warnings.

Exit codes:
  0 - workflow is valid (warnings may be present)
  1 - workflow has errors
  2 - file could not be read or parsed`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := loadDocument(args[0])
			if err != nil {
				return err
			}
			cat, err := c.newCatalog()
			if err != nil {
				return err
			}

			result := graph.Validator{Catalog: cat}.Validate(cmd.Context(), doc.Nodes, doc.Edges)
			if err := render(cmd.OutOrStdout(), c.format, result, func(w io.Writer) error {
				return printValidation(w, result)
			}); err != nil {
				return err
			}
			if !result.IsValid {
				return WrapError(ExitFailure, "workflow is invalid", nil)
			}
			return nil
		},
	}
}

func loadDocument(path string) (codec.Document, error) {
	data, err := readFile(path)
	if err != nil {
		return codec.Document{}, err
	}
	doc, err := codec.Deserialize(data)
	if err != nil {
		return codec.Document{}, WrapError(ExitUsage, path, err)
	}
	return doc, nil
}

func printValidation(w io.Writer, r graph.Result) error {
	if r.IsValid {
		fmt.Fprintln(w, "✓ Workflow is valid")
	} else {
		fmt.Fprintf(w, "✗ Workflow has %d error(s)\n", len(r.Errors))
	}
	for _, issue := range r.Errors {
		fmt.Fprintf(w, "  ERROR   %-24s %s\n", issue.Code, issue.Message)
	}
	for _, issue := range r.Warnings {
		fmt.Fprintf(w, "  WARNING %-24s %s\n", issue.Code, issue.Message)
	}
	return nil
}
