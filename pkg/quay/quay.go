// Package quay is a minimal client for Quay's labels REST API, used as
// a side-channel metadata source by the quay-metadata-fetch plugin.
package quay

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// DefaultBaseURL is Quay's public API host.
const DefaultBaseURL = "https://quay.io"

// Client queries a Quay-compatible registry's manifest labels API.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// New returns a Client pointed at Quay's public API.
func New() *Client {
	return &Client{
		BaseURL:    DefaultBaseURL,
		HTTPClient: http.DefaultClient,
	}
}

type labelsResponse struct {
	Labels []struct {
		Key   string `json:"key"`
		Value string `json:"value"`
	} `json:"labels"`
}

// Labels fetches the manifest labels attached to repo at digest.
func (c *Client) Labels(ctx context.Context, repo, digest string) (map[string]string, error) {
	url := fmt.Sprintf("%s/api/v1/repository/%s/manifest/%s/labels", c.BaseURL, repo, digest)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("quay: building request: %w", err)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("quay: fetching labels for %s@%s: %w", repo, digest, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("quay: labels for %s@%s: unexpected status %d", repo, digest, resp.StatusCode)
	}

	var parsed labelsResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("quay: decoding labels for %s@%s: %w", repo, digest, err)
	}

	out := make(map[string]string, len(parsed.Labels))
	for _, l := range parsed.Labels {
		out[l.Key] = l.Value
	}
	return out, nil
}
