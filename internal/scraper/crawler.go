package scraper

import (
	"context"
	"log"
	"net/url"
	"path"
	"strings"

	"github.com/Waqasabid99/agiAI/internal/domain"
)

const (
	DefaultMaxPages     = 20
	DefaultMinTextChars = 100
)

// skipExtensions are links that are never HTML pages.
var skipExtensions = map[string]bool{
	".pdf": true, ".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".svg": true,
	".webp": true, ".ico": true, ".css": true, ".js": true, ".zip": true, ".gz": true,
	".mp3": true, ".mp4": true, ".webm": true, ".xml": true, ".json": true, ".woff": true,
	".woff2": true, ".ttf": true,
}

// PageFetcher is satisfied by *Scraper.
type PageFetcher interface {
	Scrape(ctx context.Context, url string, renderDynamic bool) (*domain.Page, error)
}

// Crawler walks a site breadth-first, staying on the start URL's host.
type Crawler struct {
	fetcher      PageFetcher
	minTextChars int
}

func NewCrawler(fetcher PageFetcher, minTextChars int) *Crawler {
	if minTextChars <= 0 {
		minTextChars = DefaultMinTextChars
	}
	return &Crawler{fetcher: fetcher, minTextChars: minTextChars}
}

// Crawl visits at most maxPages URLs and returns the pages whose text is longer
// than the minimum. Pages that fail to load are logged and skipped; links of
// short pages are still followed.
func (c *Crawler) Crawl(ctx context.Context, startURL string, maxPages int) ([]*domain.Page, error) {
	start, err := url.Parse(strings.TrimSpace(startURL))
	if err != nil || start.Host == "" {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid start url", domain.ErrInvalidURL)
	}
	if maxPages <= 0 {
		maxPages = DefaultMaxPages
	}
	start.Fragment = ""
	start.RawFragment = ""

	queue := []string{start.String()}
	visited := make(map[string]bool, maxPages)
	pages := make([]*domain.Page, 0, maxPages)

	for len(queue) > 0 && len(visited) < maxPages {
		if err := ctx.Err(); err != nil {
			return pages, err
		}

		current := queue[0]
		queue = queue[1:]
		if visited[current] {
			continue
		}
		visited[current] = true

		page, err := c.fetcher.Scrape(ctx, current, false)
		if err != nil {
			log.Printf("crawl: skipping %s: %v", current, err)
			continue
		}

		if len([]rune(page.Text)) > c.minTextChars {
			pages = append(pages, page)
		}

		for _, link := range page.Links {
			if !visited[link] && sameSite(start, link) {
				queue = append(queue, link)
			}
		}
	}

	return pages, nil
}

func sameSite(start *url.URL, link string) bool {
	u, err := url.Parse(link)
	if err != nil {
		return false
	}
	if !strings.EqualFold(u.Host, start.Host) {
		return false
	}
	return !skipExtensions[strings.ToLower(path.Ext(u.Path))]
}
