package snapshot

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"pulso/internal/news"
)

func TestFetchSnapshot(t *testing.T) {
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if r.URL.Path != "/news/snapshot" {
			t.Errorf("path = %s", r.URL.Path)
		}
		gotBody, _ = io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"categories": {"brazil": [{"id": "x1", "title": "Item", "timestamp": 1700000000000, "category": "brazil"}]},
			"checkpoints": {"brazil": 1700000000000}
		}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	resp, err := c.FetchSnapshot(context.Background(),
		[]news.Category{news.CategoryBrazil},
		map[news.Category]int64{news.CategoryBrazil: 1690000000000},
	)
	if err != nil {
		t.Fatalf("FetchSnapshot failed: %v", err)
	}

	var req Request
	if err := json.Unmarshal(gotBody, &req); err != nil {
		t.Fatalf("request body not JSON: %v", err)
	}
	if len(req.Categories) != 1 || req.Categories[0] != news.CategoryBrazil {
		t.Errorf("request categories wrong: %v", req.Categories)
	}
	if req.SinceByCategory[news.CategoryBrazil] != 1690000000000 {
		t.Errorf("request watermark wrong: %v", req.SinceByCategory)
	}

	items := resp.Categories[news.CategoryBrazil]
	if len(items) != 1 || items[0].ID != "x1" {
		t.Errorf("items wrong: %v", items)
	}
	if resp.Checkpoints[news.CategoryBrazil] != 1700000000000 {
		t.Errorf("checkpoints wrong: %v", resp.Checkpoints)
	}
}

func TestFetchSnapshotNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	if _, err := c.FetchSnapshot(context.Background(), []news.Category{news.CategoryTech}, nil); err == nil {
		t.Error("expected error for 503 response")
	}
}

func TestFetchSnapshotTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 20*time.Millisecond)
	if _, err := c.FetchSnapshot(context.Background(), []news.Category{news.CategoryTech}, nil); err == nil {
		t.Error("expected timeout error")
	}
}

func TestFetchSnapshotNoEndpoint(t *testing.T) {
	c := NewClient("", time.Second)
	if _, err := c.FetchSnapshot(context.Background(), nil, nil); err == nil {
		t.Error("expected error for unconfigured endpoint")
	}
}

func TestNextCheckpoint(t *testing.T) {
	items := []news.Item{
		{ID: "a", Timestamp: 100},
		{ID: "b", Timestamp: 300},
		{ID: "c", Timestamp: 200},
	}

	if got := NextCheckpoint(500, items); got != 500 {
		t.Errorf("declared checkpoint ignored: %d", got)
	}
	if got := NextCheckpoint(0, items); got != 300 {
		t.Errorf("inferred checkpoint = %d, want 300", got)
	}
	if got := NextCheckpoint(-1, items); got != 300 {
		t.Errorf("negative declared must fall back: %d", got)
	}
	if got := NextCheckpoint(0, nil); got != 0 {
		t.Errorf("empty merge must yield zero: %d", got)
	}
}
