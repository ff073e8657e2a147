package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/arolang/aro/internal/aroerr"
	"github.com/arolang/aro/internal/ast"
	"github.com/arolang/aro/internal/codegen"
	"github.com/arolang/aro/internal/cycle"
	"github.com/arolang/aro/internal/reporter"
)

func newCompileCmd() *cobra.Command {
	var (
		programPath string
		outputPath  string
		noColor     bool
	)

	cmd := &cobra.Command{
		Use:   "compile",
		Short: "Compile an analyzed program into an LLVM-IR-shaped module",
		Long: `compile reads an analyzed program (the JSON representation of a
feature-set program, already parsed and validated upstream) and lowers
it through the constant folder, code generator, and event-chain
analyzer, printing diagnostics and the generated module.

The event-chain analyzer runs regardless of whether code generation
succeeds: a cycle in the emit graph is reported as a
circular-event-chain diagnostic but does not fail the compile, since
some cycles are intentional.`,
		Example: `  aro compile --program analyzed.json
  aro compile --program analyzed.json --output module.ll`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCompile(cmd, programPath, outputPath, noColor)
		},
	}

	cmd.Flags().StringVar(&programPath, "program", "", "Path to the analyzed program JSON (required)")
	cmd.Flags().StringVar(&outputPath, "output", "-", "Output path for the generated module (\"-\" for stdout)")
	cmd.Flags().BoolVar(&noColor, "no-color", false, "Disable colorized diagnostics")
	_ = cmd.MarkFlagRequired("program")

	return cmd
}

func loadProgram(path string) (ast.Program, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return ast.Program{}, fmt.Errorf("read program file: %w", err)
	}
	var program ast.Program
	if err := json.Unmarshal(raw, &program); err != nil {
		return ast.Program{}, fmt.Errorf("parse analyzed program: %w", err)
	}
	return program, nil
}

func runCompile(cmd *cobra.Command, programPath, outputPath string, noColor bool) error {
	program, err := loadProgram(programPath)
	if err != nil {
		return err
	}

	mod, genErrs := codegen.Generate(program)

	cycles := cycle.Analyze(program)
	var diag []*aroerr.Error
	diag = append(diag, genErrs...)
	for _, c := range cycles {
		diag = append(diag, cycleWarning(c))
	}

	if len(diag) > 0 {
		var rep *reporter.Reporter
		if noColor {
			rep = reporter.NewWithColor(cmd.ErrOrStderr(), nilLookup, false)
		} else {
			rep = reporter.New(cmd.ErrOrStderr(), nilLookup)
		}
		rep.Report(diag)
	}

	if hasFatal(genErrs) {
		return fmt.Errorf("compilation failed: %d error(s)", len(genErrs))
	}

	out := cmd.OutOrStdout()
	if outputPath != "-" && outputPath != "" {
		f, err := os.Create(outputPath)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()
		out = f
	}

	fmt.Fprint(out, mod.String())
	return nil
}

func cycleWarning(c cycle.Cycle) *aroerr.Error {
	return aroerr.Compilation(aroerr.KindCircularEventChain, c.Span,
		fmt.Sprintf("cycle detected in emit graph: %s", strings.Join(c.Path, " -> ")))
}

func hasFatal(errs []*aroerr.Error) bool {
	for _, e := range errs {
		if aroerr.IsFatal(e) {
			return true
		}
	}
	return false
}

func nilLookup(string) []string { return nil }
