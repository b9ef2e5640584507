// Command tripplan ranks destinations, estimates trip budgets and runs a
// scripted planning session against the planner core.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
