package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var configPath string

func main() {
	root := &cobra.Command{
		Use:   "courier",
		Short: "Natural-language command layer for a chat application",
		Long: `courier validates and executes planner-produced tool chains against
a local conversation store: contact lookup, conversation resolution,
message sending, summarization and retrieval-augmented search.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config file (YAML)")
	root.AddCommand(newServeCmd())
	root.AddCommand(newExecCmd())
	root.AddCommand(newToolsCmd())
	root.AddCommand(newSeedCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
