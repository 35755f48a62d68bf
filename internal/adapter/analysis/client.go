package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/lexigraph/reviewd/internal/domain"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Client is the HTTP client for a remote analysis backend.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client

	classifySchema *jsonschema.Schema
	assessSchema   *jsonschema.Schema
	proposalSchema *jsonschema.Schema
}

// Ensure Client implements Backend.
var _ Backend = (*Client)(nil)

// NewClient creates a new analysis backend client.
func NewClient(baseURL, apiKey string, timeout time.Duration) (*Client, error) {
	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}

	var err error
	if c.classifySchema, err = compileSchema("classify.schema.json", classifyResponseSchema); err != nil {
		return nil, err
	}
	if c.assessSchema, err = compileSchema("assess.schema.json", assessResponseSchema); err != nil {
		return nil, err
	}
	if c.proposalSchema, err = compileSchema("proposal.schema.json", proposalResponseSchema); err != nil {
		return nil, err
	}
	return c, nil
}

// Mode identifies this backend as the real remote one.
func (c *Client) Mode() string { return ModeRemote }

// Classify runs full-document classification.
func (c *Client) Classify(ctx context.Context, doc Document, policy PolicyContext) (*ClassifyResult, error) {
	body := map[string]interface{}{
		"document": doc,
		"policy":   policy,
	}
	var result ClassifyResult
	if err := c.post(ctx, "/v1/classify", body, c.classifySchema, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// AssessClause re-assesses a single clause.
func (c *Client) AssessClause(ctx context.Context, clauseText, prompt string, policy PolicyContext) (*AssessResult, error) {
	body := map[string]interface{}{
		"clause_text": clauseText,
		"policy":      policy,
	}
	if prompt != "" {
		body["prompt"] = prompt
	}
	var result AssessResult
	if err := c.post(ctx, "/v1/assess", body, c.assessSchema, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// DraftProposal drafts a redline proposal for an assessed clause.
func (c *Client) DraftProposal(ctx context.Context, assessment domain.ClauseAssessment) (*ProposalResult, error) {
	body := map[string]interface{}{
		"assessment": assessment,
	}
	var result ProposalResult
	if err := c.post(ctx, "/v1/draft", body, c.proposalSchema, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// post sends a JSON request and decodes the response after validating it
// against the endpoint's schema. An invalid payload is rejected rather than
// stored half-broken.
func (c *Client) post(ctx context.Context, path string, body interface{}, schema *jsonschema.Schema, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("analysis backend request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("analysis backend returned status %d: %s", resp.StatusCode, truncate(string(raw), 200))
	}

	var decoded interface{}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return fmt.Errorf("analysis backend returned invalid JSON: %w", err)
	}
	if err := schema.Validate(decoded); err != nil {
		return fmt.Errorf("analysis backend response failed schema validation: %w", err)
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func compileSchema(name, content string) (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, strings.NewReader(content)); err != nil {
		return nil, fmt.Errorf("failed to add schema %s: %w", name, err)
	}
	schema, err := compiler.Compile(name)
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema %s: %w", name, err)
	}
	return schema, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
