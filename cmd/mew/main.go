// Package main provides the mew CLI entry point: a thin demonstration
// harness over pkg/kernel (SPEC_FULL.md §C.2), not the surface grammar
// spec.md §1 scopes out — the YAML shapes `load`/`run` accept are a
// direct 1:1 serialization of the Go AST structs, not a parsed language.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mew-lang/mew/internal/snapshot"
	"github.com/mew-lang/mew/pkg/ast"
	"github.com/mew-lang/mew/pkg/config"
	"github.com/mew-lang/mew/pkg/kernel"
)

var version = "0.1.0"

func main() {
	rootCmd := &cobra.Command{
		Use:   "mew",
		Short: "mew - hypergraph rewriting kernel",
		Long: `mew is a typed higher-order hypergraph rewriting kernel: declared
node/edge types, pattern-matched MATCH/mutation statements, transactional
commit with constraint checking and rule fixpoint execution.

This CLI is a demonstration harness over pkg/kernel, not a parser for any
surface language: "load" and "run" accept a direct YAML serialization of
the kernel's own AST structs.`,
	}

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("mew v%s\n", version)
		},
	})

	loadCmd := &cobra.Command{
		Use:   "load <ontology.yaml>",
		Short: "Compile an ontology and print its declared types, edges, constraints, and rules",
		Args:  cobra.ExactArgs(1),
		RunE:  runLoad,
	}
	rootCmd.AddCommand(loadCmd)

	runCmd := &cobra.Command{
		Use:   "run <ontology.yaml> <script.yaml>",
		Short: "Load an ontology, then replay a YAML-encoded statement script against a fresh kernel",
		Args:  cobra.ExactArgs(2),
		RunE:  runScript,
	}
	rootCmd.AddCommand(runCmd)

	snapshotCmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Save or load a store snapshot",
	}
	saveCmd := &cobra.Command{
		Use:   "save <ontology.yaml> <script.yaml> <dir>",
		Short: "Run a script against a fresh kernel, then snapshot the resulting store into dir",
		Args:  cobra.ExactArgs(3),
		RunE:  runSnapshotSave,
	}
	loadSnapshotCmd := &cobra.Command{
		Use:   "load <ontology.yaml> <dir>",
		Short: "Compile an ontology and rehydrate a store from a snapshot directory",
		Args:  cobra.ExactArgs(2),
		RunE:  runSnapshotLoad,
	}
	snapshotCmd.AddCommand(saveCmd, loadSnapshotCmd)
	rootCmd.AddCommand(snapshotCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func openKernel(ontologyPath string) (*kernel.Kernel, error) {
	ont, err := ast.LoadOntologyYAML(ontologyPath)
	if err != nil {
		return nil, err
	}
	k, err := kernel.Open(ont, config.LoadFromEnv())
	if err != nil {
		return nil, fmt.Errorf("mew: compile %s: %w", ontologyPath, err)
	}
	return k, nil
}

func runLoad(cmd *cobra.Command, args []string) error {
	k, err := openKernel(args[0])
	if err != nil {
		return err
	}
	defer k.Close()

	ctx := cmd.Context()
	for _, stmt := range []ast.StatementAST{
		{Kind: ast.StmtShowTypes},
		{Kind: ast.StmtShowEdges},
		{Kind: ast.StmtShowConstraints},
		{Kind: ast.StmtShowRules},
	} {
		out, err := k.Execute(ctx, stmt, nil)
		if err != nil {
			return fmt.Errorf("mew: %s: %w", stmt.Kind, err)
		}
		fmt.Printf("-- %s --\n", stmt.Kind)
		printQueryResult(out.Result.Query)
		fmt.Println()
	}
	return nil
}

func runScript(cmd *cobra.Command, args []string) error {
	k, err := openKernel(args[0])
	if err != nil {
		return err
	}
	defer k.Close()

	script, err := ast.LoadScriptYAML(args[1])
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	for i, stmt := range script.Statements {
		out, err := k.Execute(ctx, stmt, nil)
		if err != nil {
			fmt.Printf("statement %d (%s): error: %v\n", i, stmt.Kind, err)
			return err
		}
		fmt.Printf("statement %d (%s): %s\n", i, stmt.Kind, out.Result.Kind)
		printResult(out)
	}
	return nil
}

func runSnapshotSave(cmd *cobra.Command, args []string) error {
	k, err := openKernel(args[0])
	if err != nil {
		return err
	}
	defer k.Close()

	script, err := ast.LoadScriptYAML(args[1])
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	for i, stmt := range script.Statements {
		if _, err := k.Execute(ctx, stmt, nil); err != nil {
			return fmt.Errorf("mew: statement %d (%s): %w", i, stmt.Kind, err)
		}
	}

	if err := snapshot.SaveToDir(args[2], k.Store); err != nil {
		return err
	}
	fmt.Printf("snapshot saved to %s\n", args[2])
	return nil
}

func runSnapshotLoad(cmd *cobra.Command, args []string) error {
	k, err := openKernel(args[0])
	if err != nil {
		return err
	}
	defer k.Close()

	if err := snapshot.LoadFromDir(args[1], k.Store, k.Registry); err != nil {
		return err
	}

	stats := k.Stats()
	fmt.Printf("snapshot loaded from %s\n", args[1])
	for typeName, count := range stats.TypeCounts {
		fmt.Printf("  %s: %d\n", typeName, count)
	}
	return nil
}

func printResult(out *kernel.ExecOutcome) {
	switch out.Result.Kind {
	case kernel.ResultQuery:
		printQueryResult(out.Result.Query)
	case kernel.ResultMutation:
		m := out.Result.Mutation
		fmt.Printf("  created=%v killed=%v updated=%v\n", m.Created, m.Killed, m.Updated)
		if m.Returning != nil {
			printQueryResult(m.Returning)
		}
	case kernel.ResultMixed:
		if out.Result.Mutation != nil {
			fmt.Printf("  created=%v killed=%v updated=%v\n", out.Result.Mutation.Created, out.Result.Mutation.Killed, out.Result.Mutation.Updated)
		}
		printQueryResult(out.Result.Query)
	case kernel.ResultTransaction:
		fmt.Printf("  %s\n", out.Result.Transaction)
	}
	for _, w := range out.Warnings {
		fmt.Printf("  warning: %s\n", w.Message)
	}
}

func printQueryResult(q *kernel.QueryResult) {
	if q == nil {
		return
	}
	fmt.Printf("  %v\n", q.Columns)
	for _, row := range q.Rows {
		vals := make([]string, len(row))
		for i, v := range row {
			vals[i] = v.String()
		}
		fmt.Printf("  %v\n", vals)
	}
}
