package search

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"veritas/pkg/errors"
)

const wikipediaSearchURL = "https://en.wikipedia.org/w/api.php"

// Document is one retrieved reference text used by the external analysis pass.
type Document struct {
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
	URL     string `json:"url"`
	Source  string `json:"source"`
}

// Searcher retrieves reference documents for a claim text.
type Searcher interface {
	Search(ctx context.Context, query string, limit int) ([]Document, error)
}

// WikipediaSearcher queries the MediaWiki search API for encyclopedic context.
type WikipediaSearcher struct {
	client    *http.Client
	limiter   *rate.Limiter
	userAgent string
}

// NewWikipediaSearcher creates a Wikipedia document searcher. The MediaWiki
// API asks clients to identify themselves and stay under a handful of
// requests per second.
func NewWikipediaSearcher(timeout time.Duration, userAgent string) *WikipediaSearcher {
	return &WikipediaSearcher{
		client:    &http.Client{Timeout: timeout},
		limiter:   rate.NewLimiter(rate.Limit(2), 2),
		userAgent: userAgent,
	}
}

type wikiSearchResponse struct {
	Query struct {
		Search []struct {
			Title   string `json:"title"`
			Snippet string `json:"snippet"`
			PageID  int    `json:"pageid"`
		} `json:"search"`
	} `json:"query"`
}

// Search runs a full-text search and returns the top matching pages.
func (s *WikipediaSearcher) Search(ctx context.Context, query string, limit int) ([]Document, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, errors.Wrap(errors.ErrRateLimitExceeded, err.Error())
	}

	params := url.Values{}
	params.Set("action", "query")
	params.Set("list", "search")
	params.Set("srsearch", query)
	params.Set("srlimit", fmt.Sprintf("%d", limit))
	params.Set("format", "json")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		wikipediaSearchURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, errors.Wrap(err, "create request")
	}
	req.Header.Set("User-Agent", s.userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(errors.ErrSourceUnavailable, err.Error())
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Wrapf(errors.ErrSourceUnavailable, "wikipedia status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, errors.Wrap(err, "read body")
	}

	var parsed wikiSearchResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, errors.Wrap(err, "unmarshal search response")
	}

	docs := make([]Document, 0, len(parsed.Query.Search))
	for _, hit := range parsed.Query.Search {
		docs = append(docs, Document{
			Title:   hit.Title,
			Snippet: hit.Snippet,
			URL:     fmt.Sprintf("https://en.wikipedia.org/?curid=%d", hit.PageID),
			Source:  "wikipedia",
		})
	}

	return docs, nil
}
