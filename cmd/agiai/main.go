package main

import (
	"fmt"
	"os"

	"github.com/Waqasabid99/agiAI/internal/cli"
	"github.com/Waqasabid99/agiAI/internal/cli/client"
	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:   "agiai",
		Short: "agiai CLI - ask questions about an indexed website",
		Long: `agiai CLI talks to a running agiaid server.

Environment variables:
  AGIAI_API_URL       API base URL (default: http://localhost:8080)
  AGIAI_ADMIN_TOKEN   Admin token for ingest, clear and delete-source`,
		Version:       version,
		Annotations:   map[string]string{cli.EnvAnnotation: "AGIAI_API_URL,AGIAI_ADMIN_TOKEN"},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().Bool("output", false, "Output as JSON")
	rootCmd.PersistentFlags().String("token", "", "Admin token (overrides env and config)")
	rootCmd.PersistentFlags().String("api-url", "", "API base URL (overrides env and config)")
	cli.AddHelpJSONFlag(rootCmd)

	rootCmd.AddCommand(client.AskCmd())
	rootCmd.AddCommand(client.IngestCmd())
	rootCmd.AddCommand(client.StatsCmd())
	rootCmd.AddCommand(client.ClearCmd())
	rootCmd.AddCommand(client.DeleteSourceCmd())
	rootCmd.AddCommand(client.AuthCmd())

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
