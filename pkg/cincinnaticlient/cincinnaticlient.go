// Package cincinnaticlient is a minimal HTTP client for fetching a
// graph from an upstream Cincinnati-compatible server, used by the
// cincinnati-graph-fetch plugin to seed or merge with the graph built
// locally.
package cincinnaticlient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
)

// contentType is the Accept header value an upstream Cincinnati server
// requires to return a graph.
const contentType = "application/vnd.redhat.cincinnati.v1+json"

// Node is one node in an upstream-fetched graph.
type Node struct {
	Version  string            `json:"version"`
	Payload  string            `json:"payload,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Graph is the wire shape an upstream Cincinnati server returns.
type Graph struct {
	Nodes []Node   `json:"nodes"`
	Edges [][2]int `json:"edges"`
}

// Client fetches graphs from upstream Cincinnati servers.
type Client struct {
	HTTPClient *http.Client
}

// New returns a Client using the default HTTP client.
func New() *Client {
	return &Client{HTTPClient: http.DefaultClient}
}

// FetchGraph fetches the graph for channel from the server at
// baseURL's /v1/graph endpoint.
func (c *Client) FetchGraph(ctx context.Context, baseURL, channel string) (*Graph, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("cincinnaticlient: parsing %q: %w", baseURL, err)
	}
	u.Path = "/v1/graph"
	q := u.Query()
	q.Set("channel", channel)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("cincinnaticlient: building request: %w", err)
	}
	req.Header.Set("Accept", contentType)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("cincinnaticlient: fetching %s: %w", u, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("cincinnaticlient: fetching %s: unexpected status %d", u, resp.StatusCode)
	}

	var g Graph
	if err := json.NewDecoder(resp.Body).Decode(&g); err != nil {
		return nil, fmt.Errorf("cincinnaticlient: decoding response from %s: %w", u, err)
	}
	return &g, nil
}
