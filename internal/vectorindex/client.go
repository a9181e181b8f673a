// Package vectorindex is a thin REST client for a Qdrant-style vector index.
// The rest of the system only goes through the narrow surface here: collection
// setup, point upsert, fetch by id, filtered scroll, similarity query, and
// payload patch.
package vectorindex

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

type Client struct {
	baseURL string
	apiKey  string
	httpc   *http.Client
}

func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpc:   &http.Client{Timeout: timeout},
	}
}

// Point is a stored vector with its JSON payload.
type Point struct {
	ID      string         `json:"id"`
	Vector  []float32      `json:"vector,omitempty"`
	Payload map[string]any `json:"payload,omitempty"`
}

// Record is a point as returned by fetch, scroll, and query. Score is only
// meaningful for query results.
type Record struct {
	ID      string         `json:"id"`
	Score   float64        `json:"score,omitempty"`
	Payload map[string]any `json:"payload"`
}

// EnsureCollection creates the collection with cosine distance if it does not
// exist yet.
func (c *Client) EnsureCollection(ctx context.Context, name string, size int) error {
	var listing struct {
		Result struct {
			Collections []struct {
				Name string `json:"name"`
			} `json:"collections"`
		} `json:"result"`
	}
	if err := c.do(ctx, http.MethodGet, "/collections", nil, &listing); err != nil {
		return err
	}
	for _, col := range listing.Result.Collections {
		if col.Name == name {
			return nil
		}
	}

	body := map[string]any{
		"vectors": map[string]any{
			"size":     size,
			"distance": "Cosine",
		},
	}
	return c.do(ctx, http.MethodPut, "/collections/"+name, body, nil)
}

// CreateFieldIndex creates a payload index used by filtered scrolls.
func (c *Client) CreateFieldIndex(ctx context.Context, collection, field, schema string) error {
	body := map[string]any{
		"field_name":   field,
		"field_schema": schema,
	}
	return c.do(ctx, http.MethodPut, "/collections/"+collection+"/index", body, nil)
}

// Upsert writes points, waiting for the operation to be applied.
func (c *Client) Upsert(ctx context.Context, collection string, points []Point) error {
	body := map[string]any{"points": points}
	return c.do(ctx, http.MethodPut, "/collections/"+collection+"/points?wait=true", body, nil)
}

// Fetch returns the payloads of the given point ids. Missing ids are simply
// absent from the result.
func (c *Client) Fetch(ctx context.Context, collection string, ids []string) ([]Record, error) {
	body := map[string]any{
		"ids":          ids,
		"with_payload": true,
	}
	var resp struct {
		Result []Record `json:"result"`
	}
	if err := c.do(ctx, http.MethodPost, "/collections/"+collection+"/points", body, &resp); err != nil {
		return nil, err
	}
	return resp.Result, nil
}

// Query runs a similarity search and returns ranked records.
func (c *Client) Query(ctx context.Context, collection string, vector []float32, filter *Filter, limit int) ([]Record, error) {
	body := map[string]any{
		"vector":       vector,
		"limit":        limit,
		"with_payload": true,
	}
	if filter != nil {
		body["filter"] = filter
	}
	var resp struct {
		Result []Record `json:"result"`
	}
	if err := c.do(ctx, http.MethodPost, "/collections/"+collection+"/points/search", body, &resp); err != nil {
		return nil, err
	}
	return resp.Result, nil
}

// Scroll returns points matching the filter in storage order.
func (c *Client) Scroll(ctx context.Context, collection string, filter *Filter, limit int) ([]Record, error) {
	body := map[string]any{
		"limit":        limit,
		"with_payload": true,
		"with_vector":  false,
	}
	if filter != nil {
		body["filter"] = filter
	}
	var resp struct {
		Result struct {
			Points []Record `json:"points"`
		} `json:"result"`
	}
	if err := c.do(ctx, http.MethodPost, "/collections/"+collection+"/points/scroll", body, &resp); err != nil {
		return nil, err
	}
	return resp.Result.Points, nil
}

// Patch merges the given payload keys into the point's payload, leaving the
// vector and other keys untouched.
func (c *Client) Patch(ctx context.Context, collection, id string, payload map[string]any) error {
	body := map[string]any{
		"payload": payload,
		"points":  []string{id},
	}
	return c.do(ctx, http.MethodPost, "/collections/"+collection+"/points/payload?wait=true", body, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("api-key", c.apiKey)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("index request %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("index %s %s: status %d: %s", method, path, resp.StatusCode, detail)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode index response: %w", err)
	}
	return nil
}
