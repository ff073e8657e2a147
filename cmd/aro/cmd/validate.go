package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/arolang/aro/internal/aroerr"
	"github.com/arolang/aro/internal/openapi"
	"github.com/arolang/aro/internal/reporter"
)

func newValidateCmd() *cobra.Command {
	var programPath string

	cmd := &cobra.Command{
		Use:   "validate <openapi-file>",
		Short: "Validate an OpenAPI document against an analyzed program",
		Long: `validate parses an OpenAPI 3.x document and, when --program is given,
cross-checks it against an analyzed program: every operationId must
have a bound handler and every schema reference must resolve.
Operations without an operationId are dropped while the document is
parsed and are not reported.

Without --program, validate only checks that the document itself
parses; its $ref schema references are not resolved.`,
		Args: cobra.ExactArgs(1),
		Example: `  aro validate openapi.yaml
  aro validate openapi.yaml --program analyzed.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd, args[0], programPath)
		},
	}

	cmd.Flags().StringVar(&programPath, "program", "", "Path to the analyzed program JSON to cross-check the contract against")

	return cmd
}

func runValidate(cmd *cobra.Command, openapiPath, programPath string) error {
	raw, err := os.ReadFile(openapiPath)
	if err != nil {
		return fmt.Errorf("read openapi document: %w", err)
	}

	doc, err := openapi.ParseDocument(raw)
	if err != nil {
		return fmt.Errorf("parse openapi document: %w", err)
	}

	var diag []*aroerr.Error
	if programPath != "" {
		program, err := loadProgram(programPath)
		if err != nil {
			return err
		}
		diag = openapi.ValidateContract(doc, program)
	}

	if len(diag) > 0 {
		reporter.New(cmd.ErrOrStderr(), nilLookup).Report(diag)
		return fmt.Errorf("contract validation failed: %d error(s)", len(diag))
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s: %d route(s), openapi %s — valid\n", openapiPath, len(doc.Routes), doc.Version)
	return nil
}
