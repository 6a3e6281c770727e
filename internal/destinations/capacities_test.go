package destinations

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jordankuhns/readwise-twos-sync/internal/readwise"
)

func TestCapacitiesClient_PostsMarkdown(t *testing.T) {
	var payloads []capacitiesPayload

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/save-to-daily-note" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer cap-token" {
			t.Errorf("expected bearer auth, got %q", auth)
		}
		var p capacitiesPayload
		json.NewDecoder(r.Body).Decode(&p)
		payloads = append(payloads, p)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewCapacitiesClientWithURL("cap-token", "space-1", "struct-1", "prop-1", server.URL)

	highlights := []readwise.Highlight{{ID: 1, Text: "Quote", BookID: 1}}
	books := map[int]readwise.BookMeta{1: {Title: "Book", Author: "Author"}}

	delivery, err := client.PostHighlights(context.Background(), highlights, books)
	if err != nil {
		t.Fatalf("PostHighlights failed: %v", err)
	}

	if delivery.Posted != 1 {
		t.Errorf("expected 1 posted, got %d", delivery.Posted)
	}
	if len(payloads) != 1 {
		t.Fatalf("expected 1 post, got %d", len(payloads))
	}
	if payloads[0].SpaceID != "space-1" {
		t.Errorf("expected spaceId space-1, got %q", payloads[0].SpaceID)
	}
	if payloads[0].MdText != "- Quote — Book, Author" {
		t.Errorf("unexpected markdown: %q", payloads[0].MdText)
	}
	if payloads[0].StructureID != "struct-1" {
		t.Errorf("expected configured structure ID, got %q", payloads[0].StructureID)
	}
	if payloads[0].Properties["prop-1"] != payloads[0].MdText {
		t.Errorf("expected text mapped to prop-1, got %v", payloads[0].Properties)
	}
}

func TestCapacitiesClient_HeartbeatOnEmpty(t *testing.T) {
	var payloads []capacitiesPayload

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var p capacitiesPayload
		json.NewDecoder(r.Body).Decode(&p)
		payloads = append(payloads, p)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewCapacitiesClientWithURL("cap-token", "space-1", "struct-1", "prop-1", server.URL)

	delivery, err := client.PostHighlights(context.Background(), nil, nil)
	if err != nil {
		t.Fatalf("PostHighlights failed: %v", err)
	}

	if len(payloads) != 1 {
		t.Fatalf("expected exactly 1 heartbeat post, got %d", len(payloads))
	}
	want := fmt.Sprintf("No new highlights for %s", time.Now().Format("2006-01-02"))
	if payloads[0].MdText != want {
		t.Errorf("expected %q, got %q", want, payloads[0].MdText)
	}
	if delivery.Posted != 1 {
		t.Errorf("expected 1 posted, got %d", delivery.Posted)
	}
}

func TestCapacitiesClient_ResolvesStructureOnce(t *testing.T) {
	spaceInfoCalls := 0
	var payloads []capacitiesPayload

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/space-info":
			spaceInfoCalls++
			fmt.Fprint(w, `{
				"structures": [
					{"id": "other", "title": "Weblink", "propertyDefinitions": []},
					{"id": "daily", "title": "Daily Note", "propertyDefinitions": [
						{"id": "p-text", "name": "Text"},
						{"id": "p-title", "name": "Title"},
						{"id": "p-author", "name": "Author"},
						{"id": "p-misc", "name": "Misc"}
					]}
				]
			}`)
		case "/save-to-daily-note":
			var p capacitiesPayload
			json.NewDecoder(r.Body).Decode(&p)
			payloads = append(payloads, p)
			w.WriteHeader(http.StatusOK)
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer server.Close()

	client := NewCapacitiesClientWithURL("cap-token", "space-1", "", "", server.URL)

	highlights := []readwise.Highlight{{ID: 1, Text: "Quote", BookID: 1}}
	books := map[int]readwise.BookMeta{1: {Title: "Book", Author: "Author"}}

	for i := 0; i < 2; i++ {
		if _, err := client.PostHighlights(context.Background(), highlights, books); err != nil {
			t.Fatalf("PostHighlights %d failed: %v", i, err)
		}
	}

	if spaceInfoCalls != 1 {
		t.Errorf("expected 1 space-info lookup, got %d", spaceInfoCalls)
	}
	if len(payloads) != 2 {
		t.Fatalf("expected 2 posts, got %d", len(payloads))
	}
	if payloads[0].StructureID != "daily" {
		t.Errorf("expected daily-note structure selected by name, got %q", payloads[0].StructureID)
	}
	if payloads[0].Properties["p-text"] == "" {
		t.Errorf("expected resolved text property in payload, got %v", payloads[0].Properties)
	}
}

func TestCapacitiesClient_OrphanOnlyBatchPostsHeartbeat(t *testing.T) {
	var payloads []capacitiesPayload

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var p capacitiesPayload
		json.NewDecoder(r.Body).Decode(&p)
		payloads = append(payloads, p)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewCapacitiesClientWithURL("cap-token", "space-1", "struct-1", "prop-1", server.URL)

	highlights := []readwise.Highlight{{ID: 1, Text: "Orphan", BookID: 404}}
	delivery, err := client.PostHighlights(context.Background(), highlights, map[int]readwise.BookMeta{})
	if err != nil {
		t.Fatalf("PostHighlights failed: %v", err)
	}

	if delivery.Posted != 1 {
		t.Errorf("expected 1 posted, got %d", delivery.Posted)
	}
	want := fmt.Sprintf("No new highlights for %s", time.Now().Format("2006-01-02"))
	if payloads[0].MdText != want {
		t.Errorf("expected heartbeat text %q, got %q", want, payloads[0].MdText)
	}
}
