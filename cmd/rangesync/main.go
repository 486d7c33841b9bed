// Rangesync CLI entry point
//
// Rangesync is a local-first tracker for poker villain profiles.
// Edits land in the local store first and synchronize to the cloud
// opportunistically, so the tool keeps working offline.
package main

import "github.com/feltworks/rangesync/internal/presentation/cli/commands"

func main() {
	commands.Execute()
}
