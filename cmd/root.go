package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command for the inboxassist application
var rootCmd = &cobra.Command{
	Use:   "inboxassist",
	Short: "Cached, retrying Gmail and Calendar tools for AI assistants",
	Long: `inboxassist is an MCP (Model Context Protocol) server that lets AI
assistants read and triage Gmail and plan around Google Calendar.

Reads are cached with short TTLs, retried with exponential backoff and,
when Google stays unreachable, answered from the last known data.

It can also run the free-slot finder offline with the slots command.`,
	SilenceUsage: true,
}

// version will be set by main
var version = "dev"

// SetVersion sets the version for the root command
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// Execute is the main entry point for the CLI application
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "inboxassist version %s\n" .Version}}`)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newSlotsCmd())
	rootCmd.AddCommand(newGenerateDocsCmd())
	rootCmd.AddCommand(newVersionCmd())
}
