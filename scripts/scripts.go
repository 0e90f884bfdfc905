// Package scripts embeds the bundled Risor tie-break policies.
// Select one with --tie-break builtin:<name>.
package scripts

import "embed"

//go:embed policy/*.risor
var FS embed.FS

// PolicyPath returns the path of a bundled policy inside FS.
func PolicyPath(name string) string {
	return "policy/" + name + ".risor"
}
