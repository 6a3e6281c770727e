package destinations

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/jordankuhns/readwise-twos-sync/internal/readwise"
)

const (
	twosAPIURL = "https://www.twosapp.com/apiV2/user/addToToday"

	// Twos displays dates like "Mon Jun 02, 2024".
	twosDateLayout = "Mon Jan 02, 2006"
)

// TwosClient posts highlights to a user's Twos "today" list.
// Twos authenticates with the token and user ID in the request body.
type TwosClient struct {
	httpClient *http.Client
	apiURL     string
	userID     string
	token      string
}

// NewTwosClient creates a Twos destination client.
func NewTwosClient(userID, token string) *TwosClient {
	return &TwosClient{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		apiURL:     twosAPIURL,
		userID:     userID,
		token:      token,
	}
}

// NewTwosClientWithURL creates a client pointed at a custom endpoint (used in tests).
func NewTwosClientWithURL(userID, token, apiURL string) *TwosClient {
	c := NewTwosClient(userID, token)
	c.apiURL = apiURL
	return c
}

func (c *TwosClient) Name() string {
	return "twos"
}

type twosPayload struct {
	Text   string `json:"text"`
	Title  string `json:"title"`
	Token  string `json:"token"`
	UserID string `json:"user_id"`
}

// PostHighlights posts one Twos entry per highlight. Each post is an
// independent call: failures are counted and logged, never abort the batch.
// Highlights whose book is missing from the catalog are skipped.
func (c *TwosClient) PostHighlights(ctx context.Context, highlights []readwise.Highlight, books map[int]readwise.BookMeta) (Delivery, error) {
	todayTitle := time.Now().Format(twosDateLayout)

	if len(highlights) == 0 {
		if err := c.post(ctx, twosPayload{
			Text:   "No new highlights found.",
			Title:  todayTitle,
			Token:  c.token,
			UserID: c.userID,
		}); err != nil {
			log.Printf("Twos: failed to post no-highlights message: %v", err)
			return Delivery{Failed: 1}, nil
		}
		log.Printf("Twos: posted 'no highlights' message")
		return Delivery{Posted: 1}, nil
	}

	var delivery Delivery
	for _, h := range highlights {
		meta, ok := books[h.BookID]
		if !ok {
			log.Printf("Twos: warning - no book metadata found for book ID %d, skipping highlight", h.BookID)
			continue
		}

		noteText := strings.TrimSpace(fmt.Sprintf("%s, %s: %s", meta.Title, meta.Author, h.Text))
		err := c.post(ctx, twosPayload{
			Text:   noteText,
			Title:  todayTitle,
			Token:  c.token,
			UserID: c.userID,
		})
		if err != nil {
			log.Printf("Twos: failed to post highlight: %v", err)
			delivery.Failed++
			continue
		}
		delivery.Posted++
	}

	log.Printf("Twos: posted %d highlights", delivery.Posted)
	if delivery.Failed > 0 {
		log.Printf("Twos: warning - failed to post %d highlights", delivery.Failed)
	}
	return delivery, nil
}

func (c *TwosClient) post(ctx context.Context, payload twosPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}
