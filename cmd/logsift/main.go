// Logsift - Multi-Format Log Normalizer
//
// Logsift ingests arbitrary text or JSON log files, auto-detects the
// format of each, and streams out normalized structured records with a
// resolved severity level.
package main

import (
	"os"

	"github.com/logsift/logsift/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
