package readwise

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	defaultBaseURL = "https://readwise.io/api/v2"

	defaultTimeout = 30 * time.Second

	// highlightsPageSize is sent only on the first highlights request;
	// follow-up requests use the API-provided next URL as is.
	highlightsPageSize = 1000

	// tutorialBookTitle is Readwise platform boilerplate, not user content.
	tutorialBookTitle = "how to use readwise"
)

// Client interfaces with the Readwise REST API
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// NewClient creates a new Readwise API client
func NewClient() *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
		baseURL: defaultBaseURL,
	}
}

// NewClientWithBaseURL creates a client pointed at a custom API root (used in tests)
func NewClientWithBaseURL(baseURL string) *Client {
	c := NewClient()
	c.baseURL = strings.TrimRight(baseURL, "/")
	return c
}

// BookMeta is the catalog metadata joined onto highlights for display
type BookMeta struct {
	Title  string `json:"title"`
	Author string `json:"author"`
}

// Highlight is a single highlight as returned by the Readwise API.
// Updated is kept as the raw ISO-8601 string: timestamps are fixed-width
// UTC, so lexicographic comparison equals chronological comparison.
type Highlight struct {
	ID      int    `json:"id"`
	Text    string `json:"text"`
	BookID  int    `json:"book_id"`
	Updated string `json:"updated"`
}

type booksPage struct {
	Results []bookResult `json:"results"`
	Next    *string      `json:"next"`
}

type bookResult struct {
	ID     int    `json:"id"`
	Title  string `json:"title"`
	Author string `json:"author"`
}

type highlightsPage struct {
	Results []Highlight `json:"results"`
	Next    *string     `json:"next"`
}

// FetchAllBooks retrieves the full book catalog keyed by book ID.
// The Readwise tutorial book is excluded. Any page failure aborts the
// whole fetch: an incomplete catalog would silently orphan highlights.
func (c *Client) FetchAllBooks(ctx context.Context, token string) (map[int]BookMeta, error) {
	books := make(map[int]BookMeta)
	nextURL := c.baseURL + "/books/"

	for nextURL != "" {
		var page booksPage
		if err := c.getJSON(ctx, nextURL, token, "books", &page); err != nil {
			return nil, err
		}

		for _, book := range page.Results {
			title := book.Title
			if title == "" {
				title = "Untitled"
			}
			author := book.Author
			if author == "" {
				author = "Unknown"
			}

			if strings.ToLower(strings.TrimSpace(title)) == tutorialBookTitle {
				continue
			}

			books[book.ID] = BookMeta{Title: title, Author: author}
		}

		nextURL = pageURL(page.Next)
	}

	log.Printf("Readwise: fetched %d books", len(books))
	return books, nil
}

// FetchHighlightsSince retrieves all highlights updated strictly after the
// given watermark (ISO-8601 string comparison). Source order is preserved.
func (c *Client) FetchHighlightsSince(ctx context.Context, token, since string) ([]Highlight, error) {
	var highlights []Highlight

	first, err := url.Parse(c.baseURL + "/highlights/")
	if err != nil {
		return nil, &FetchError{Endpoint: "highlights", Err: err}
	}
	q := first.Query()
	q.Set("page_size", fmt.Sprint(highlightsPageSize))
	first.RawQuery = q.Encode()

	nextURL := first.String()
	for nextURL != "" {
		var page highlightsPage
		if err := c.getJSON(ctx, nextURL, token, "highlights", &page); err != nil {
			return nil, err
		}

		for _, h := range page.Results {
			if h.Updated != "" && h.Updated > since {
				highlights = append(highlights, h)
			}
		}

		nextURL = pageURL(page.Next)
	}

	log.Printf("Readwise: fetched %d new highlights since %s", len(highlights), since)
	return highlights, nil
}

func (c *Client) getJSON(ctx context.Context, rawURL, token, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return &FetchError{Endpoint: endpoint, Err: err}
	}

	req.Header.Set("Authorization", "Token "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &FetchError{Endpoint: endpoint, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return &FetchError{Endpoint: endpoint, StatusCode: resp.StatusCode, Err: ErrInvalidToken}
	}
	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return &FetchError{Endpoint: endpoint, StatusCode: resp.StatusCode}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &FetchError{Endpoint: endpoint, Err: fmt.Errorf("failed to decode response: %w", err)}
	}
	return nil
}

func pageURL(next *string) string {
	if next == nil {
		return ""
	}
	return *next
}
