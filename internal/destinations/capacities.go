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

const capacitiesBaseURL = "https://api.capacities.io"

// CapacitiesClient posts highlights to today's daily note in a Capacities
// space. Capacities authenticates with a bearer token and delivers the
// whole batch as one markdown block.
type CapacitiesClient struct {
	httpClient *http.Client
	baseURL    string
	token      string
	spaceID    string

	// Structure metadata, either supplied up front or resolved once per
	// client from the space-info endpoint.
	structureID    string
	textPropertyID string
	fieldMap       map[string]string
	resolved       bool
}

// NewCapacitiesClient creates a Capacities destination client. structureID
// and textPropertyID may be empty, in which case they are resolved from
// the space schema on first use.
func NewCapacitiesClient(token, spaceID, structureID, textPropertyID string) *CapacitiesClient {
	return &CapacitiesClient{
		httpClient:     &http.Client{Timeout: 30 * time.Second},
		baseURL:        capacitiesBaseURL,
		token:          token,
		spaceID:        spaceID,
		structureID:    structureID,
		textPropertyID: textPropertyID,
		resolved:       structureID != "" && textPropertyID != "",
	}
}

// NewCapacitiesClientWithURL creates a client pointed at a custom API root (used in tests).
func NewCapacitiesClientWithURL(token, spaceID, structureID, textPropertyID, baseURL string) *CapacitiesClient {
	c := NewCapacitiesClient(token, spaceID, structureID, textPropertyID)
	c.baseURL = strings.TrimRight(baseURL, "/")
	return c
}

func (c *CapacitiesClient) Name() string {
	return "capacities"
}

type capacitiesPayload struct {
	SpaceID     string            `json:"spaceId"`
	MdText      string            `json:"mdText"`
	StructureID string            `json:"structureId,omitempty"`
	Properties  map[string]string `json:"properties,omitempty"`
}

type spaceInfoResponse struct {
	Structures []struct {
		ID                  string `json:"id"`
		Title               string `json:"title"`
		PropertyDefinitions []struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"propertyDefinitions"`
	} `json:"structures"`
}

// PostHighlights posts the batch as a single markdown daily-note entry.
// Highlights whose book is missing from the catalog are skipped; an empty
// batch still posts a "no new highlights" line.
func (c *CapacitiesClient) PostHighlights(ctx context.Context, highlights []readwise.Highlight, books map[int]readwise.BookMeta) (Delivery, error) {
	today := time.Now().Format("2006-01-02")

	var mdText string
	if len(highlights) == 0 {
		mdText = fmt.Sprintf("No new highlights for %s", today)
	} else {
		var lines []string
		for _, h := range highlights {
			meta, ok := books[h.BookID]
			if !ok {
				log.Printf("Capacities: warning - no book metadata found for book ID %d, skipping highlight", h.BookID)
				continue
			}
			lines = append(lines, fmt.Sprintf("- %s — %s, %s", h.Text, meta.Title, meta.Author))
		}
		if len(lines) == 0 {
			mdText = fmt.Sprintf("No new highlights for %s", today)
		} else {
			mdText = strings.Join(lines, "\n")
		}
	}

	if err := c.resolveStructure(ctx); err != nil {
		log.Printf("Capacities: warning - structure resolution failed, posting without structure metadata: %v", err)
	}

	payload := capacitiesPayload{
		SpaceID:     c.spaceID,
		MdText:      mdText,
		StructureID: c.structureID,
	}
	if c.textPropertyID != "" {
		payload.Properties = map[string]string{c.textPropertyID: mdText}
	}

	if err := c.post(ctx, payload); err != nil {
		log.Printf("Capacities: failed to post highlights: %v", err)
		return Delivery{Failed: 1}, nil
	}

	log.Printf("Capacities: posted highlights to daily note")
	return Delivery{Posted: 1}, nil
}

// resolveStructure looks up the space schema once and picks a default
// structure: a daily-note structure by name if present, else the first one.
// The result is kept on the client so repeat posts skip the extra call.
func (c *CapacitiesClient) resolveStructure(ctx context.Context) error {
	if c.resolved {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/space-info?spaceid="+c.spaceID, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var info spaceInfoResponse
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return fmt.Errorf("failed to decode space info: %w", err)
	}
	if len(info.Structures) == 0 {
		return fmt.Errorf("space %s has no structures", c.spaceID)
	}

	chosen := info.Structures[0]
	for _, s := range info.Structures {
		name := strings.ToLower(strings.ReplaceAll(s.Title, " ", ""))
		if name == "dailynote" {
			chosen = s
			break
		}
	}

	c.structureID = chosen.ID
	c.fieldMap = make(map[string]string)
	for _, prop := range chosen.PropertyDefinitions {
		switch strings.ToLower(prop.Name) {
		case "text", "title", "author":
			c.fieldMap[strings.ToLower(prop.Name)] = prop.ID
		}
	}
	if c.textPropertyID == "" {
		c.textPropertyID = c.fieldMap["text"]
	}
	c.resolved = true

	log.Printf("Capacities: resolved structure %s (%s) with %d mapped properties",
		chosen.ID, chosen.Title, len(c.fieldMap))
	return nil
}

func (c *CapacitiesClient) post(ctx context.Context, payload capacitiesPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/save-to-daily-note", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
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
