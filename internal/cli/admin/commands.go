package admin

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/Waqasabid99/agiAI/internal/config"
	"github.com/Waqasabid99/agiAI/internal/domain"
	"github.com/Waqasabid99/agiAI/internal/service"
	"github.com/spf13/cobra"
)

// withApp loads config, builds the service for a one-shot command and closes
// it afterwards.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	a, err := buildApp(ctx, cfg, appOptions{})
	if err != nil {
		return err
	}
	defer a.close()

	return fn(ctx, a)
}

func jsonOutput(cmd *cobra.Command) bool {
	v, _ := cmd.Flags().GetBool("json")
	return v
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// CrawlCmd returns the crawl command
func CrawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl <url>",
		Short: "Crawl a site and index its pages",
		Long:  "Crawl same-host pages breadth first from <url> and replace each page's records in the index",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			maxPages, _ := cmd.Flags().GetInt("max-pages")
			return withApp(cmd, func(ctx context.Context, a *app) error {
				result, err := a.svc.CrawlSite(ctx, args[0], maxPages)
				if err != nil {
					return err
				}
				if jsonOutput(cmd) {
					return printJSON(cmd.OutOrStdout(), result)
				}
				out := cmd.OutOrStdout()
				for _, p := range result.Pages {
					if p.Error != "" {
						fmt.Fprintf(out, "  FAIL %s: %s\n", p.URL, p.Error)
						continue
					}
					fmt.Fprintf(out, "  ok   %s (%d chunks)\n", p.URL, p.ChunksStored)
				}
				fmt.Fprintf(out, "Indexed %d/%d pages, %d chunks\n", result.PagesIndexed, result.PagesCrawled, result.ChunksStored)
				return nil
			})
		},
	}
	cmd.Flags().Int("max-pages", 0, "Maximum pages to visit (default AGIAI_CRAWL_MAX_PAGES)")
	cmd.Flags().Bool("json", false, "Output as JSON")
	return cmd
}

// IngestURLCmd returns the ingest-url command
func IngestURLCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest-url <url>",
		Short: "Scrape one page and index it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				result, err := a.svc.IngestURL(ctx, args[0], false)
				return printIngestResult(cmd, result, err)
			})
		},
	}
	cmd.Flags().Bool("json", false, "Output as JSON")
	return cmd
}

// IngestFileCmd returns the ingest-file command
func IngestFileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest-file <path>",
		Short: "Index a local text file under a source URL",
		Long:  "Index a local text file (or - for stdin) as the content of --url, replacing earlier records of that source",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sourceURL, _ := cmd.Flags().GetString("url")
			title, _ := cmd.Flags().GetString("title")

			text, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}

			return withApp(cmd, func(ctx context.Context, a *app) error {
				result, err := a.svc.Ingest(ctx, service.IngestInput{
					SourceURL:   sourceURL,
					SourceTitle: title,
					Text:        text,
					Replace:     true,
				})
				return printIngestResult(cmd, result, err)
			})
		},
	}
	cmd.Flags().String("url", "", "Source URL the text belongs to (required)")
	cmd.Flags().String("title", "", "Source title")
	cmd.Flags().Bool("json", false, "Output as JSON")
	_ = cmd.MarkFlagRequired("url")
	return cmd
}

func readInput(cmd *cobra.Command, path string) (string, error) {
	if path == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}
	return string(data), nil
}

func printIngestResult(cmd *cobra.Command, result *service.IngestResult, err error) error {
	if err != nil {
		if result != nil {
			return fmt.Errorf("%w (stored %d of %d chunks)", err, result.ChunksStored, result.ChunksTotal)
		}
		return err
	}
	if jsonOutput(cmd) {
		return printJSON(cmd.OutOrStdout(), result)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Indexed %s: %d chunks\n", result.SourceURL, result.ChunksStored)
	return nil
}

// AskCmd returns the ask command
func AskCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Answer a question from the indexed content",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			question := strings.Join(args, " ")
			return withApp(cmd, func(ctx context.Context, a *app) error {
				result, err := a.svc.Answer(ctx, service.AskInput{Question: question})
				if err != nil {
					return err
				}
				if jsonOutput(cmd) {
					return printJSON(cmd.OutOrStdout(), result)
				}
				printAnswer(cmd.OutOrStdout(), result)
				return nil
			})
		},
	}
	cmd.Flags().Bool("json", false, "Output as JSON")
	return cmd
}

func printAnswer(w io.Writer, result *domain.QueryResult) {
	fmt.Fprintln(w, result.Answer)
	if len(result.Sources) == 0 {
		return
	}
	fmt.Fprintln(w, "\nSources:")
	for _, s := range result.Sources {
		fmt.Fprintf(w, "  [%d] %s (%.3f)\n", s.Index, s.SourceURL, s.Score)
	}
}

// StatsCmd returns the stats command
func StatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show the number of indexed records",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				stats, err := a.svc.Stats(ctx)
				if err != nil {
					return err
				}
				if jsonOutput(cmd) {
					return printJSON(cmd.OutOrStdout(), stats)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Backend: %s\nRecords: %d\n", stats.Backend, stats.RecordCount)
				return nil
			})
		},
	}
	cmd.Flags().Bool("json", false, "Output as JSON")
	return cmd
}

// ClearCmd returns the clear command
func ClearCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Drop every indexed record",
		RunE: func(cmd *cobra.Command, args []string) error {
			yes, _ := cmd.Flags().GetBool("yes")
			if !yes {
				return fmt.Errorf("refusing to clear the index without --yes")
			}
			return withApp(cmd, func(ctx context.Context, a *app) error {
				if err := a.svc.ClearAll(ctx); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Index cleared")
				return nil
			})
		},
	}
	cmd.Flags().Bool("yes", false, "Confirm dropping the index")
	return cmd
}

// DeleteSourceCmd returns the delete-source command
func DeleteSourceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete-source <url>",
		Short: "Remove every record scraped from a URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				if err := a.svc.DeleteSource(ctx, args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted records of %s\n", args[0])
				return nil
			})
		},
	}
}

// ReindexCmd returns the reindex command
func ReindexCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reindex <url>",
		Short: "Re-chunk and re-embed an archived page",
		Long:  "Rebuild a page's records from its archived copy in S3 without scraping it again",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				result, err := a.svc.Reindex(ctx, args[0])
				return printIngestResult(cmd, result, err)
			})
		},
	}
	cmd.Flags().Bool("json", false, "Output as JSON")
	return cmd
}
