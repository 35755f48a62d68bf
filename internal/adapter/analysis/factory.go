package analysis

import (
	"fmt"
	"time"
)

// NewBackend selects the backend implementation by mode. "simulated" must be
// chosen explicitly; anything else requires a reachable remote URL.
func NewBackend(mode, baseURL, apiKey string, timeout time.Duration) (Backend, error) {
	switch mode {
	case ModeSimulated:
		return NewSimulated(), nil
	case ModeRemote, "":
		if baseURL == "" {
			return nil, fmt.Errorf("analysis backend URL is required in remote mode")
		}
		return NewClient(baseURL, apiKey, timeout)
	}
	return nil, fmt.Errorf("unknown analysis backend mode %q", mode)
}
