package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"courier/internal/assistant/ports"
	"courier/internal/chain"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var (
	green  = color.New(color.FgGreen).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	gray   = color.New(color.FgHiBlack).SprintFunc()
	bold   = color.New(color.Bold).SprintFunc()
)

func newExecCmd() *cobra.Command {
	var (
		userID    string
		chainFile string
	)
	cmd := &cobra.Command{
		Use:   "exec",
		Short: "Run a tool chain from a JSON file or stdin against the local store",
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readChain(chainFile)
			if err != nil {
				return err
			}
			steps, err := chain.ParseChain(string(raw))
			if err != nil {
				return fmt.Errorf("parse chain: %w", err)
			}

			a, err := buildApp(configPath)
			if err != nil {
				return err
			}
			defer a.close()

			validation := chain.ValidateChain(steps, a.registry)
			for _, warning := range validation.Warnings {
				fmt.Fprintln(os.Stderr, yellow("warning: "+warning))
			}
			if !validation.Valid {
				for _, e := range validation.Errors {
					fmt.Fprintln(os.Stderr, red("error: "+e))
				}
				return fmt.Errorf("chain is invalid")
			}

			tc := &ports.ToolContext{UserID: userID, RequestID: uuid.NewString()}
			results := a.executor.Execute(cmd.Context(), steps, tc)
			for _, result := range results {
				printResult(result)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&userID, "user", "u", "", "acting user id")
	cmd.Flags().StringVarP(&chainFile, "file", "f", "-", "chain JSON file, - for stdin")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func newToolsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tools",
		Short: "List the registered tools",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp(configPath)
			if err != nil {
				return err
			}
			defer a.close()

			for _, def := range a.registry.List() {
				fmt.Printf("%s\n  %s\n", bold(def.Name), gray(def.Description))
			}
			return nil
		},
	}
}

func readChain(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}

func printResult(result *ports.ToolResult) {
	header := fmt.Sprintf("[%d] %s (%s)", result.Meta.ChainPosition, result.Meta.ToolName, result.Meta.Duration)
	switch {
	case result.NextAction == ports.NextClarification:
		fmt.Println(yellow(header + " needs clarification"))
		fmt.Println("  " + result.Clarification.Question)
		for _, opt := range result.Clarification.Options {
			marker := "  - "
			if opt.ID == result.Clarification.BestOption.ID {
				marker = "  * "
			}
			fmt.Printf("%s%s %s\n", marker, opt.DisplayText, gray(fmt.Sprintf("(%.2f)", opt.Confidence)))
		}
	case result.Success:
		fmt.Println(green(header))
		if len(result.Data) > 0 {
			payload, _ := json.MarshalIndent(result.Data, "  ", "  ")
			fmt.Println("  " + string(payload))
		}
	default:
		fmt.Println(red(header + " failed: " + result.Error))
	}
}
