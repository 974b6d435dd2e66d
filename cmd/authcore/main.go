// Command authcore serves the authentication API and administers accounts.
package main

import (
	"os"

	"github.com/fatih/color"
	"github.com/terrascope/authcore/internal/cli/format"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		format.NewMessages(os.Stderr, !color.NoColor).Error("%v", err)
		os.Exit(1)
	}
}
