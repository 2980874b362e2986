// Package cli provides the command-line interface for the persona backend.
package cli

import (
	"github.com/spf13/cobra"
)

// Version is set at build time.
var Version = "0.1.0"

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "persona",
	Short: "Character-chat AI backend",
	Long: `Persona is the AI backend for character group chats: it orchestrates
multiple LLM providers with automatic failover, assembles in-character
prompts from conversation context, and keeps long-term character memory
in a SurrealDB vector index.`,
	Version: Version,
}

// Execute adds all child commands to the root command and runs it.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
