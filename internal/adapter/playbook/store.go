// Package playbook provides read-only access to policy rule sets.
// Playbooks are owned and versioned outside this engine; this adapter only
// fetches them, either from a remote store or from a local rules directory.
package playbook

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Playbook is a named policy rule set.
type Playbook struct {
	ID    string `json:"id" yaml:"id"`
	Name  string `json:"name" yaml:"name"`
	Rules []Rule `json:"rules" yaml:"rules"`
}

// Rule is one policy rule inside a playbook.
type Rule struct {
	ID          string `json:"id" yaml:"id"`
	Title       string `json:"title" yaml:"title"`
	Guidance    string `json:"guidance" yaml:"guidance"`
	DefaultRisk string `json:"default_risk" yaml:"default_risk"`
}

// Store fetches playbooks by id.
type Store interface {
	GetPlaybook(ctx context.Context, playbookID string) (*Playbook, error)
}

// HTTPStore fetches playbooks from a remote playbook service.
type HTTPStore struct {
	baseURL    string
	httpClient *http.Client
}

var _ Store = (*HTTPStore)(nil)

// NewHTTPStore creates a remote playbook store client.
func NewHTTPStore(baseURL string, timeout time.Duration) *HTTPStore {
	return &HTTPStore{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// GetPlaybook retrieves a playbook by id.
func (s *HTTPStore) GetPlaybook(ctx context.Context, playbookID string) (*Playbook, error) {
	endpoint := s.baseURL + "/v1/playbooks/" + url.PathEscape(playbookID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("playbook store request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("playbook %q not found", playbookID)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("playbook store returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var pb Playbook
	if err := json.Unmarshal(body, &pb); err != nil {
		return nil, fmt.Errorf("failed to decode playbook: %w", err)
	}
	return &pb, nil
}

// DirStore loads playbooks from `<dir>/<id>.yaml` rule files.
type DirStore struct {
	dir string
}

var _ Store = (*DirStore)(nil)

// NewDirStore creates a local playbook store over a rules directory.
func NewDirStore(dir string) *DirStore {
	return &DirStore{dir: dir}
}

// GetPlaybook loads one playbook rule file.
func (s *DirStore) GetPlaybook(ctx context.Context, playbookID string) (*Playbook, error) {
	if strings.ContainsAny(playbookID, `/\`) {
		return nil, fmt.Errorf("invalid playbook id %q", playbookID)
	}

	path := filepath.Join(s.dir, playbookID+".yaml")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("playbook %q not found", playbookID)
		}
		return nil, fmt.Errorf("failed to read playbook file: %w", err)
	}

	var pb Playbook
	if err := yaml.Unmarshal(data, &pb); err != nil {
		return nil, fmt.Errorf("failed to parse playbook %s: %w", path, err)
	}
	if pb.ID == "" {
		pb.ID = playbookID
	}
	return &pb, nil
}
