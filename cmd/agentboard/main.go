// Command agentboard is a terminal client for a multi-agent orchestration
// backend.
package main

import (
	"fmt"
	"os"

	"github.com/Iron-Ham/agentboard/internal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
