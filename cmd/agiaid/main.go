package main

import (
	"fmt"
	"os"

	"github.com/Waqasabid99/agiAI/internal/cli"
	"github.com/Waqasabid99/agiAI/internal/cli/admin"
	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "agiaid",
		Short: "agiai daemon and index tools",
		Long:  "agiai daemon for serving website questions and managing the vector index directly",
		Annotations: map[string]string{
			cli.EnvAnnotation: "AGIAI_INDEX_BACKEND,AGIAI_DATABASE_URL,AGIAI_SQLITE_PATH,AGIAI_OPENAI_API_KEY,AGIAI_GENERATION_API_KEY,AGIAI_SITE_URL",
		},
	}

	cli.AddHelpJSONFlag(rootCmd)
	rootCmd.AddCommand(admin.ServeCmd())
	rootCmd.AddCommand(admin.CrawlCmd())
	rootCmd.AddCommand(admin.IngestURLCmd())
	rootCmd.AddCommand(admin.IngestFileCmd())
	rootCmd.AddCommand(admin.AskCmd())
	rootCmd.AddCommand(admin.StatsCmd())
	rootCmd.AddCommand(admin.ClearCmd())
	rootCmd.AddCommand(admin.DeleteSourceCmd())
	rootCmd.AddCommand(admin.ReindexCmd())

	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
