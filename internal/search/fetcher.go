package search

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/psokolov/verdex/internal/model"
	"github.com/psokolov/verdex/internal/worker"
	"golang.org/x/net/html"
)

// Fetcher retrieves evidence pages and reduces each to its most relevant
// snippet. Fetches respect robots.txt and per-domain rate limits. A failed
// fetch returns ok=false; the retriever skips that source and moves on.
type Fetcher struct {
	httpClient *http.Client
	userAgent  string
	maxBytes   int64
	robots     *RobotsChecker
	limiter    *worker.Limiter
	verbose    bool
}

// NewFetcher creates a fetcher with the given HTTP and concurrency settings
func NewFetcher(httpCfg model.HTTPConfig, concCfg model.ConcurrencyConfig, verbose bool) *Fetcher {
	return &Fetcher{
		httpClient: &http.Client{
			Timeout: httpCfg.Timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return fmt.Errorf("stopped after 3 redirects")
				}
				return nil
			},
		},
		userAgent: httpCfg.UserAgent,
		maxBytes:  httpCfg.MaxBodyBytes,
		robots:    NewRobotsChecker(httpCfg.UserAgent, httpCfg.Timeout),
		limiter:   worker.NewLimiter(concCfg.RequestsPerSecond, concCfg.Burst),
		verbose:   verbose,
	}
}

// Snippet fetches the page at rawURL and returns the passage most relevant
// to the claim text, or ok=false when the source should be skipped.
func (f *Fetcher) Snippet(ctx context.Context, rawURL, claimText string) (string, bool) {
	allowed, crawlDelay, err := f.robots.CanFetch(ctx, rawURL)
	if err == nil && !allowed {
		f.warn("robots.txt disallows %s", rawURL)
		return "", false
	}

	if err := f.limiter.Wait(ctx, rawURL); err != nil {
		return "", false
	}
	if crawlDelay > 0 {
		select {
		case <-time.After(crawlDelay):
		case <-ctx.Done():
			return "", false
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		f.warn("create request for %s: %v", rawURL, err)
		return "", false
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		f.warn("fetch %s: %v", rawURL, err)
		return "", false
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		f.warn("fetch %s: status %d", rawURL, resp.StatusCode)
		return "", false
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes))
	if err != nil {
		f.warn("read %s: %v", rawURL, err)
		return "", false
	}

	snippet := BestSnippet(string(body), claimText)
	if snippet == "" {
		return "", false
	}
	return snippet, true
}

func (f *Fetcher) warn(format string, args ...interface{}) {
	if f.verbose {
		fmt.Fprintf(os.Stderr, "Warning: "+format+"\n", args...)
	}
}

// BestSnippet extracts visible text from HTML and returns the window of
// sentences with the highest term overlap against the claim text.
func BestSnippet(htmlContent, claimText string) string {
	doc, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		return ""
	}

	text := extractVisibleText(doc)
	sentences := splitIntoSentences(text)
	if len(sentences) == 0 {
		return ""
	}

	claimTerms := termSet(claimText)

	type scored struct {
		idx   int
		score int
	}
	var best scored
	for i := range sentences {
		// Score a 2-sentence window so context survives the reduction
		window := sentences[i]
		if i+1 < len(sentences) {
			window += " " + sentences[i+1]
		}
		score := overlap(claimTerms, termSet(window))
		if score > best.score {
			best = scored{idx: i, score: score}
		}
	}

	if best.score == 0 {
		// No overlap at all; fall back to the opening sentences
		best.idx = 0
	}

	snippet := sentences[best.idx]
	if best.idx+1 < len(sentences) {
		snippet += " " + sentences[best.idx+1]
	}
	if len(snippet) > 600 {
		snippet = snippet[:600]
	}
	return strings.TrimSpace(snippet)
}

// extractVisibleText extracts text nodes from HTML, skipping scripts/styles
func extractVisibleText(n *html.Node) string {
	var buf strings.Builder

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript", "iframe", "nav", "footer":
				return
			}
		}

		if n.Type == html.TextNode {
			text := strings.TrimSpace(n.Data)
			if text != "" {
				buf.WriteString(text)
				buf.WriteString(" ")
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	walk(n)
	return buf.String()
}

func splitIntoSentences(text string) []string {
	text = strings.ReplaceAll(text, "\n", " ")

	var sentences []string
	var current strings.Builder

	for i, r := range text {
		current.WriteRune(r)
		if r == '.' || r == '!' || r == '?' {
			if i+1 < len(text) && (text[i+1] == ' ' || text[i+1] == '\t') {
				s := strings.TrimSpace(current.String())
				if len(s) >= 20 && len(s) <= 500 {
					sentences = append(sentences, s)
				}
				current.Reset()
			}
		}
	}
	if s := strings.TrimSpace(current.String()); len(s) >= 20 && len(s) <= 500 {
		sentences = append(sentences, s)
	}

	return sentences
}

func termSet(text string) map[string]bool {
	terms := make(map[string]bool)
	for _, w := range strings.Fields(strings.ToLower(text)) {
		w = strings.Trim(w, ".,;:!?\"'()")
		if len(w) > 3 { // Skip stopword-length tokens
			terms[w] = true
		}
	}
	return terms
}

func overlap(a, b map[string]bool) int {
	// Iterate the smaller set
	if len(b) < len(a) {
		a, b = b, a
	}
	count := 0
	for w := range a {
		if b[w] {
			count++
		}
	}
	return count
}
