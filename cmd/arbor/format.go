package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

// outputResult writes result in the --format selected.
func outputResult(cmd *cobra.Command, result CLIResult) error {
	if flagFormat == "text" {
		return outputResultText(cmd.OutOrStdout(), result)
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

// outputError writes an error in the selected format and returns it so RunE
// can propagate it to Cobra. In JSON mode the error is written to stdout as a
// CLIResult envelope. In text mode it goes to stderr.
func outputError(cmd *cobra.Command, command string, err error) error {
	errorHandled = true
	if flagFormat == "text" {
		fmt.Fprintf(cmd.ErrOrStderr(), "Error: %s\n", err)
		return err
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	_ = enc.Encode(CLIResult{Command: command, Error: err.Error()})
	return err
}

func outputSummary(w io.Writer, s CLISummary) error {
	if flagFormat == "text" {
		formatSummaryText(w, s)
		return nil
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(CLIResult{Command: "index", Results: s})
}

func outputResultText(w io.Writer, result CLIResult) error {
	switch v := result.Results.(type) {
	case []CLILocation:
		formatLocationsText(w, v)
	case CLIHover:
		fmt.Fprintln(w, v.Contents)
	case []CLILanguage:
		formatLanguagesText(w, v)
	case []string:
		for _, s := range v {
			fmt.Fprintln(w, s)
		}
	case nil:
		// No output for nil results (e.g., hover with no match).
	default:
		return fmt.Errorf("unsupported result type for text format: %T", v)
	}
	return nil
}

// formatLocationsText formats CLILocation results as "file:line:col" lines,
// marking definitions.
func formatLocationsText(w io.Writer, locs []CLILocation) {
	for _, loc := range locs {
		if loc.Definition {
			fmt.Fprintf(w, "%s:%d:%d (definition)\n", loc.File, loc.StartLine, loc.StartCol)
			continue
		}
		fmt.Fprintf(w, "%s:%d:%d\n", loc.File, loc.StartLine, loc.StartCol)
	}
}

func formatLanguagesText(w io.Writer, langs []CLILanguage) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "LANGUAGE\tEXTENSIONS\tQUERIES")
	for _, l := range langs {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", l.Name, strings.Join(l.Extensions, " "), l.QueryFile)
	}
	tw.Flush()
}

// formatSummaryText formats an index run as readable text.
func formatSummaryText(w io.Writer, s CLISummary) {
	fmt.Fprintf(w, "Indexed %d of %d files in %dms (%d failed, %d cached)\n",
		s.Indexed, s.Files, s.DurationMS, s.Failed, s.Cached)
	fmt.Fprintf(w, "References: %d local, %d cross-file (%d ambiguous), %d unresolved\n",
		s.Local, s.Cross, s.Ambiguous, s.Unresolved)
	fmt.Fprintf(w, "Graph: %d documents, %d vertices, %d edges -> %s\n",
		s.Documents, s.Vertices, s.Edges, s.Output)
	if len(s.Warnings) > 0 {
		fmt.Fprintln(w, "Warnings:")
		for _, warn := range s.Warnings {
			fmt.Fprintf(w, "  %s\n", warn)
		}
	}
}

// validFormats lists accepted values for --format.
var validFormats = []string{"json", "text"}

// validateFormat checks that the --format flag value is recognized.
func validateFormat(format string) error {
	for _, f := range validFormats {
		if format == f {
			return nil
		}
	}
	return fmt.Errorf("invalid format %q: must be %s", format, strings.Join(validFormats, " or "))
}
