// Package scraper fetches web pages and flattens them to readable text.
package scraper

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Waqasabid99/agiAI/internal/domain"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const (
	DefaultTimeout      = 10 * time.Second
	DefaultUserAgent    = "Mozilla/5.0 (compatible; agiai-bot/1.0)"
	DefaultMaxBodyBytes = 5 * 1024 * 1024
)

// Renderer returns the HTML of a page after client-side scripts have run.
type Renderer interface {
	Render(ctx context.Context, url string) (string, error)
}

type Config struct {
	Timeout      time.Duration
	UserAgent    string
	MaxBodyBytes int64
}

// Scraper downloads a page and extracts its title, visible text and links.
type Scraper struct {
	client       *http.Client
	userAgent    string
	maxBodyBytes int64
	renderer     Renderer
}

func New(cfg Config) *Scraper {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultMaxBodyBytes
	}
	return &Scraper{
		client:       &http.Client{Timeout: cfg.Timeout},
		userAgent:    cfg.UserAgent,
		maxBodyBytes: cfg.MaxBodyBytes,
	}
}

// WithRenderer enables renderDynamic scrapes.
func (s *Scraper) WithRenderer(r Renderer) *Scraper {
	s.renderer = r
	return s
}

// Scrape fetches rawURL. With renderDynamic the page is rendered by the
// configured Renderer; without one the call fails.
func (s *Scraper) Scrape(ctx context.Context, rawURL string, renderDynamic bool) (*domain.Page, error) {
	base, err := url.Parse(rawURL)
	if err != nil {
		return nil, scrapeError(rawURL, err)
	}

	var body string
	if renderDynamic {
		if s.renderer == nil {
			return nil, scrapeError(rawURL, fmt.Errorf("dynamic rendering is not configured"))
		}
		body, err = s.renderer.Render(ctx, rawURL)
		if err != nil {
			return nil, scrapeError(rawURL, err)
		}
	} else {
		body, base, err = s.fetch(ctx, base)
		if err != nil {
			return nil, scrapeError(rawURL, err)
		}
	}

	page, err := Extract(body, base)
	if err != nil {
		return nil, scrapeError(rawURL, err)
	}
	page.URL = rawURL
	page.FetchedAt = time.Now().UTC()
	return page, nil
}

// fetch returns the body and the final URL after redirects.
func (s *Scraper) fetch(ctx context.Context, u *url.URL) (string, *url.URL, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", nil, err
	}
	req.Header.Set("User-Agent", s.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,text/plain;q=0.8")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	if ct := resp.Header.Get("Content-Type"); ct != "" {
		mediaType, _, err := mime.ParseMediaType(ct)
		if err == nil && mediaType != "text/html" && mediaType != "application/xhtml+xml" && mediaType != "text/plain" {
			return "", nil, fmt.Errorf("unsupported content type %q", mediaType)
		}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, s.maxBodyBytes))
	if err != nil {
		return "", nil, fmt.Errorf("failed to read body: %w", err)
	}

	final := u
	if resp.Request != nil && resp.Request.URL != nil {
		final = resp.Request.URL
	}
	return string(data), final, nil
}

func scrapeError(rawURL string, err error) error {
	return domain.NewDomainErrorWithCause(domain.ErrCodeScrapeFailed, "failed to scrape "+rawURL, err)
}

// skipped elements contribute neither text nor title
var skipped = map[atom.Atom]bool{
	atom.Script:   true,
	atom.Style:    true,
	atom.Noscript: true,
	atom.Nav:      true,
	atom.Footer:   true,
	atom.Header:   true,
	atom.Svg:      true,
	atom.Iframe:   true,
	atom.Template: true,
}

var blocks = map[atom.Atom]bool{
	atom.P: true, atom.Div: true, atom.Br: true, atom.Hr: true, atom.Li: true,
	atom.H1: true, atom.H2: true, atom.H3: true, atom.H4: true, atom.H5: true, atom.H6: true,
	atom.Tr: true, atom.Td: true, atom.Th: true, atom.Table: true, atom.Section: true,
	atom.Article: true, atom.Main: true, atom.Blockquote: true, atom.Pre: true,
	atom.Ul: true, atom.Ol: true, atom.Dd: true, atom.Dt: true, atom.Figcaption: true,
}

// Extract parses an HTML document into a Page. Links are resolved against base,
// stripped of fragments and limited to http(s).
func Extract(document string, base *url.URL) (*domain.Page, error) {
	root, err := html.Parse(strings.NewReader(document))
	if err != nil {
		return nil, fmt.Errorf("failed to parse html: %w", err)
	}

	var (
		title string
		text  strings.Builder
		links []string
		seen  = map[string]bool{}
	)

	var walk func(n *html.Node, visible bool)
	walk = func(n *html.Node, visible bool) {
		if n.Type == html.ElementNode {
			switch {
			case n.DataAtom == atom.Title:
				if title == "" {
					title = collapse(nodeText(n))
				}
				return
			case n.DataAtom == atom.Head:
				visible = false
			case skipped[n.DataAtom]:
				visible = false
			case n.DataAtom == atom.A:
				if link := resolveLink(base, attr(n, "href")); link != "" && !seen[link] {
					seen[link] = true
					links = append(links, link)
				}
			}
			if visible && blocks[n.DataAtom] {
				text.WriteByte('\n')
			}
		}
		if n.Type == html.TextNode && visible {
			if t := collapse(n.Data); t != "" {
				text.WriteString(t)
				text.WriteByte(' ')
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c, visible)
		}
		if n.Type == html.ElementNode && visible && blocks[n.DataAtom] {
			text.WriteByte('\n')
		}
	}
	walk(root, true)

	return &domain.Page{
		Title: title,
		Text:  normalizeLines(text.String()),
		Links: links,
	}, nil
}

func nodeText(n *html.Node) string {
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
		}
	}
	return b.String()
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func resolveLink(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") || base == nil {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	abs := base.ResolveReference(ref)
	if abs.Scheme != "http" && abs.Scheme != "https" {
		return ""
	}
	abs.Fragment = ""
	abs.RawFragment = ""
	return abs.String()
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// normalizeLines collapses whitespace within lines and drops blank lines.
func normalizeLines(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if line = collapse(line); line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}
