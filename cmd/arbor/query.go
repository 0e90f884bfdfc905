package main

import (
	"fmt"
	"os"
	"path"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/jward/arbor"
)

var flagDump string

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Navigate an LSIF dump",
	Long:  "Answer go-to-definition, find-references and hover queries from a dump written by 'arbor index'. File paths are relative to the indexed project. All line and column numbers are 0-based.",
}

func init() {
	queryCmd.PersistentFlags().StringVar(&flagDump, "dump", "dump.lsif", "LSIF dump to read")

	queryCmd.AddCommand(definitionCmd)
	queryCmd.AddCommand(referencesCmd)
	queryCmd.AddCommand(hoverCmd)
	queryCmd.AddCommand(documentsCmd)
}

// --- Helpers ---

// openDump loads the dump named by --dump.
func openDump() (*arbor.Dump, error) {
	f, err := os.Open(flagDump)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("dump not found: %s (run 'arbor index' first)", flagDump)
		}
		return nil, err
	}
	defer f.Close()
	return arbor.LoadDump(f)
}

// parseIntArg parses a positional argument as an integer with a clear error.
func parseIntArg(value, name string) (int, error) {
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: must be a non-negative integer", name, value)
	}
	if n < 0 {
		return 0, fmt.Errorf("invalid %s %q: must be non-negative", name, value)
	}
	return n, nil
}

// positionArgs parses <file> <line> <col>.
func positionArgs(args []string) (file string, line, col int, err error) {
	line, err = parseIntArg(args[1], "line")
	if err != nil {
		return "", 0, 0, err
	}
	col, err = parseIntArg(args[2], "col")
	if err != nil {
		return "", 0, 0, err
	}
	return path.Clean(args[0]), line, col, nil
}

// --- definition ---

var definitionCmd = &cobra.Command{
	Use:   "definition <file> <line> <col>",
	Short: "Find the definition of the symbol at a position",
	Args:  cobra.ExactArgs(3),
	RunE:  runDefinition,
}

func runDefinition(cmd *cobra.Command, args []string) error {
	file, line, col, err := positionArgs(args)
	if err != nil {
		return outputError(cmd, "definition", err)
	}
	dump, err := openDump()
	if err != nil {
		return outputError(cmd, "definition", err)
	}
	locs := dump.DefinitionAt(file, line, col)
	return outputResult(cmd, CLIResult{Command: "definition", Results: locationsToCLI(locs)})
}

// --- references ---

var referencesCmd = &cobra.Command{
	Use:   "references <file> <line> <col>",
	Short: "Find every reference to the symbol at a position",
	Args:  cobra.ExactArgs(3),
	RunE:  runReferences,
}

func runReferences(cmd *cobra.Command, args []string) error {
	file, line, col, err := positionArgs(args)
	if err != nil {
		return outputError(cmd, "references", err)
	}
	dump, err := openDump()
	if err != nil {
		return outputError(cmd, "references", err)
	}
	locs := dump.ReferencesTo(file, line, col)
	total := len(locs)
	return outputResult(cmd, CLIResult{Command: "references", Results: locationsToCLI(locs), TotalCount: &total})
}

// --- hover ---

var hoverCmd = &cobra.Command{
	Use:   "hover <file> <line> <col>",
	Short: "Show the hover text of the symbol at a position",
	Args:  cobra.ExactArgs(3),
	RunE:  runHover,
}

func runHover(cmd *cobra.Command, args []string) error {
	file, line, col, err := positionArgs(args)
	if err != nil {
		return outputError(cmd, "hover", err)
	}
	dump, err := openDump()
	if err != nil {
		return outputError(cmd, "hover", err)
	}
	result := CLIResult{Command: "hover"}
	if text, ok := dump.HoverAt(file, line, col); ok {
		result.Results = CLIHover{File: file, Line: line, Col: col, Contents: text}
	}
	return outputResult(cmd, result)
}

// --- documents ---

var documentsCmd = &cobra.Command{
	Use:   "documents",
	Short: "List the documents in a dump",
	Args:  cobra.NoArgs,
	RunE:  runDocuments,
}

func runDocuments(cmd *cobra.Command, args []string) error {
	dump, err := openDump()
	if err != nil {
		return outputError(cmd, "documents", err)
	}
	docs := dump.Documents()
	total := len(docs)
	return outputResult(cmd, CLIResult{Command: "documents", Results: docs, TotalCount: &total})
}
