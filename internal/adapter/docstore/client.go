// Package docstore provides a read-only client for the document store.
package docstore

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client fetches document text by id.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new document store client.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type documentResponse struct {
	DocID string `json:"doc_id"`
	Text  string `json:"text"`
}

// GetDocument retrieves the full text of a stored document.
func (c *Client) GetDocument(ctx context.Context, docID string) (string, error) {
	endpoint := c.baseURL + "/v1/documents/" + url.PathEscape(docID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("document store request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return "", fmt.Errorf("document %q not found", docID)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("document store returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	var doc documentResponse
	if err := json.Unmarshal(body, &doc); err != nil {
		return "", fmt.Errorf("failed to decode document: %w", err)
	}
	return doc.Text, nil
}
