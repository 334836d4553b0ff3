package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/spf13/cobra"
)

// Source is one cited chunk in an answer.
type Source struct {
	Index       int     `json:"index"`
	Excerpt     string  `json:"excerpt"`
	SourceURL   string  `json:"source_url"`
	SourceTitle string  `json:"source_title"`
	Score       float32 `json:"score"`
}

// AnswerResponse mirrors the /query response.
type AnswerResponse struct {
	Answer   string   `json:"answer"`
	Sources  []Source `json:"sources"`
	Fallback bool     `json:"fallback"`
}

// IngestResponse mirrors the /ingest/url response.
type IngestResponse struct {
	SourceURL    string `json:"source_url"`
	ChunksStored int    `json:"chunks_stored"`
	ChunksTotal  int    `json:"chunks_total"`
}

// CrawlResponse mirrors the /crawl response.
type CrawlResponse struct {
	StartURL     string `json:"start_url"`
	PagesCrawled int    `json:"pages_crawled"`
	PagesIndexed int    `json:"pages_indexed"`
	ChunksStored int    `json:"chunks_stored"`
	Pages        []struct {
		URL          string `json:"url"`
		ChunksStored int    `json:"chunks_stored"`
		Error        string `json:"error,omitempty"`
	} `json:"pages"`
}

// JobResponse mirrors an accepted async ingestion.
type JobResponse struct {
	JobID  string `json:"job_id"`
	Kind   string `json:"kind"`
	URL    string `json:"url"`
	Status string `json:"status"`
}

// StatsResponse mirrors the /stats response.
type StatsResponse struct {
	RecordCount int    `json:"record_count"`
	Backend     string `json:"backend"`
	Queries     *struct {
		Total       int     `json:"total"`
		Fallbacks   int     `json:"fallbacks"`
		CacheHits   int     `json:"cache_hits"`
		AvgDuration float64 `json:"avg_duration_ms"`
	} `json:"queries,omitempty"`
}

func outputJSON(cmd *cobra.Command) bool {
	v, _ := cmd.Flags().GetBool("output")
	return v
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func printRaw(out io.Writer, data json.RawMessage) error {
	var v interface{}
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	formatted, _ := json.MarshalIndent(v, "", "  ")
	fmt.Fprintln(out, string(formatted))
	return nil
}

// AskCmd creates the ask command.
func AskCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask a question about the indexed site",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClient(cmd)
			if err != nil {
				return err
			}

			resp, err := api.Post(commandContext(cmd), "/query", map[string]string{
				"question": strings.Join(args, " "),
			})
			if err != nil {
				return fmt.Errorf("ask failed: %w", err)
			}

			out := cmd.OutOrStdout()
			if outputJSON(cmd) {
				return printRaw(out, resp.Data)
			}

			var answer AnswerResponse
			if err := json.Unmarshal(resp.Data, &answer); err != nil {
				return fmt.Errorf("failed to parse answer: %w", err)
			}
			fmt.Fprintln(out, answer.Answer)
			if len(answer.Sources) > 0 {
				fmt.Fprintln(out, "\nSources:")
				for _, s := range answer.Sources {
					fmt.Fprintf(out, "  [%d] %s (%.2f)\n", s.Index, s.SourceURL, s.Score)
				}
			}
			return nil
		},
	}
}

// IngestCmd creates the ingest command.
func IngestCmd() *cobra.Command {
	var (
		crawl    bool
		async    bool
		render   bool
		maxPages int
	)

	cmd := &cobra.Command{
		Use:   "ingest <url>",
		Short: "Scrape and index a page or a whole site",
		Long:  "Scrapes one page (or, with --crawl, same-host pages from <url>) and replaces its records in the index.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClient(cmd)
			if err != nil {
				return err
			}

			path := "/ingest/url"
			body := map[string]interface{}{"url": args[0], "async": async, "render_dynamic": render}
			if crawl {
				path = "/crawl"
				body = map[string]interface{}{"url": args[0], "async": async, "max_pages": maxPages}
			}

			resp, err := api.Post(commandContext(cmd), path, body)
			if err != nil {
				return fmt.Errorf("ingest failed: %w", err)
			}

			out := cmd.OutOrStdout()
			if outputJSON(cmd) {
				return printRaw(out, resp.Data)
			}
			return printIngest(out, resp.Data, crawl, async)
		},
	}

	cmd.Flags().BoolVar(&crawl, "crawl", false, "Crawl same-host links from the URL")
	cmd.Flags().BoolVar(&async, "async", false, "Queue the job instead of waiting for it")
	cmd.Flags().BoolVar(&render, "render", false, "Render client-side scripts before extracting text")
	cmd.Flags().IntVar(&maxPages, "max-pages", 0, "Maximum pages to crawl (server default when 0)")

	return cmd
}

func printIngest(out io.Writer, data json.RawMessage, crawl, async bool) error {
	switch {
	case async:
		var job JobResponse
		if err := json.Unmarshal(data, &job); err != nil {
			return fmt.Errorf("failed to parse job: %w", err)
		}
		fmt.Fprintf(out, "Queued %s job %s for %s\n", job.Kind, job.JobID, job.URL)
	case crawl:
		var result CrawlResponse
		if err := json.Unmarshal(data, &result); err != nil {
			return fmt.Errorf("failed to parse crawl result: %w", err)
		}
		for _, p := range result.Pages {
			if p.Error != "" {
				fmt.Fprintf(out, "  FAIL %s: %s\n", p.URL, p.Error)
				continue
			}
			fmt.Fprintf(out, "  ok   %s (%d chunks)\n", p.URL, p.ChunksStored)
		}
		fmt.Fprintf(out, "Indexed %d/%d pages, %d chunks\n", result.PagesIndexed, result.PagesCrawled, result.ChunksStored)
	default:
		var result IngestResponse
		if err := json.Unmarshal(data, &result); err != nil {
			return fmt.Errorf("failed to parse ingest result: %w", err)
		}
		fmt.Fprintf(out, "Indexed %s: %d chunks\n", result.SourceURL, result.ChunksStored)
	}
	return nil
}

// StatsCmd creates the stats command.
func StatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show index statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClient(cmd)
			if err != nil {
				return err
			}

			resp, err := api.Get(commandContext(cmd), "/stats")
			if err != nil {
				return fmt.Errorf("stats failed: %w", err)
			}

			out := cmd.OutOrStdout()
			if outputJSON(cmd) {
				return printRaw(out, resp.Data)
			}

			var stats StatsResponse
			if err := json.Unmarshal(resp.Data, &stats); err != nil {
				return fmt.Errorf("failed to parse stats: %w", err)
			}
			fmt.Fprintf(out, "Backend: %s\nRecords: %d\n", stats.Backend, stats.RecordCount)
			if q := stats.Queries; q != nil {
				fmt.Fprintf(out, "Queries (24h): %d (%d fallback, %d cached, avg %.0fms)\n",
					q.Total, q.Fallbacks, q.CacheHits, q.AvgDuration)
			}
			return nil
		},
	}
}

// ClearCmd creates the clear command.
func ClearCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Drop every indexed record",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("refusing to clear the index without --yes")
			}

			api, err := NewAPIClient(cmd)
			if err != nil {
				return err
			}
			if _, err := api.Delete(commandContext(cmd), "/index", nil); err != nil {
				return fmt.Errorf("clear failed: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Index cleared")
			return nil
		},
	}

	cmd.Flags().BoolVar(&yes, "yes", false, "Confirm dropping the index")
	return cmd
}

// DeleteSourceCmd creates the delete-source command.
func DeleteSourceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete-source <url>",
		Short: "Remove every record scraped from a URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClient(cmd)
			if err != nil {
				return err
			}
			if _, err := api.Delete(commandContext(cmd), "/sources", url.Values{"url": {args[0]}}); err != nil {
				return fmt.Errorf("delete failed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted records of %s\n", args[0])
			return nil
		},
	}
}
