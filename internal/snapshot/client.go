// Package snapshot talks to the remote edge aggregator. The aggregator
// answers a single batched request with only the items newer than the
// supplied per-category watermarks, so a refresh can often skip direct
// per-source fetching entirely.
package snapshot

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	jsoniter "github.com/json-iterator/go"

	"pulso/internal/news"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// DefaultTimeout is deliberately short. The snapshot path exists to be
// fast; when the aggregator is slow the direct path is the better bet.
const DefaultTimeout = 5 * time.Second

// Request is the POST /news/snapshot body.
type Request struct {
	Categories      []news.Category         `json:"categories"`
	SinceByCategory map[news.Category]int64 `json:"sinceByCategory"`
}

// Response carries per-category item batches and the server's declared
// checkpoints. Either map may be absent.
type Response struct {
	Categories  map[news.Category][]news.Item `json:"categories,omitempty"`
	Checkpoints map[news.Category]int64       `json:"checkpoints,omitempty"`
}

// Client fetches delta snapshots from an edge aggregator.
type Client struct {
	endpoint string
	http     *http.Client
}

// NewClient creates a snapshot client for the given endpoint. A zero
// timeout falls back to DefaultTimeout.
func NewClient(endpoint string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		endpoint: endpoint,
		http:     &http.Client{Timeout: timeout},
	}
}

// FetchSnapshot asks the aggregator for items newer than the supplied
// watermarks. Any failure (transport, timeout, non-2xx, bad payload) is
// returned as an error; callers treat it as soft and fall back to
// direct fetching.
func (c *Client) FetchSnapshot(ctx context.Context, categories []news.Category, sinceByCategory map[news.Category]int64) (*Response, error) {
	if c.endpoint == "" {
		return nil, fmt.Errorf("snapshot endpoint not configured")
	}
	if sinceByCategory == nil {
		sinceByCategory = map[news.Category]int64{}
	}

	body, err := json.Marshal(Request{Categories: categories, SinceByCategory: sinceByCategory})
	if err != nil {
		return nil, fmt.Errorf("encode snapshot request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/news/snapshot", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build snapshot request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("snapshot request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("snapshot request: status %d", resp.StatusCode)
	}

	var out Response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode snapshot response: %w", err)
	}
	return &out, nil
}

// NextCheckpoint picks the checkpoint for a category after a merge: the
// server-declared value when present and positive, otherwise the newest
// merged item's timestamp. Zero means no checkpoint could be derived.
func NextCheckpoint(declared int64, merged []news.Item) int64 {
	if declared > 0 {
		return declared
	}
	var newest int64
	for _, item := range merged {
		if item.Timestamp > newest {
			newest = item.Timestamp
		}
	}
	return newest
}
