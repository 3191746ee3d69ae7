package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command for the inboxassist application
var rootCmd = &cobra.Command{
	Use:   "inboxassist",
	Short: "Reads your Gmail inbox and rewrites drafts",
	Long: `inboxassist lists and reads the messages of a connected Gmail inbox
and rewrites text with an OpenAI-compatible chat model.

It can run as:
  - A standalone CLI tool
  - A JSON API and MCP (Model Context Protocol) server for assistants`,
	SilenceUsage: true,
}

// version will be set by main
var version = "dev"

// configPath is the --config flag shared by all subcommands.
var configPath string

// SetVersion sets the version for the root command
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// Execute is the main entry point for the CLI application
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "inboxassist version %s\n" .Version}}`)

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to a YAML config file (default: $INBOXASSIST_CONFIG)")

	rootCmd.AddCommand(newInboxCmd())
	rootCmd.AddCommand(newShowCmd())
	rootCmd.AddCommand(newConnectCmd())
	rootCmd.AddCommand(newStatusCmd())
	rootCmd.AddCommand(newDisconnectCmd())
	rootCmd.AddCommand(newRewriteCmd())
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newGenerateDocsCmd())
	rootCmd.AddCommand(newVersionCmd())
}
