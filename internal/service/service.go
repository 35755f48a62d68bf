// Package service implements the review engine: pipeline driving, trace
// recording, the risk gate, replay, and read-only queries.
package service

import (
	"context"

	"github.com/lexigraph/reviewd/internal/adapter/analysis"
	"github.com/lexigraph/reviewd/internal/adapter/playbook"
	"github.com/lexigraph/reviewd/internal/config"
	store "github.com/lexigraph/reviewd/internal/repository"
	"github.com/lexigraph/reviewd/policy"
)

// DocumentStore is the read-only document collaborator.
type DocumentStore interface {
	GetDocument(ctx context.Context, docID string) (string, error)
}

type Service struct {
	store        store.Store
	backend      analysis.Backend
	docs         DocumentStore
	playbooks    playbook.Store
	config       *config.Config
	policyEngine *policy.Engine
}

func New(store store.Store, backend analysis.Backend, docs DocumentStore, playbooks playbook.Store, cfg *config.Config, policyEngine *policy.Engine) *Service {
	return &Service{
		store:        store,
		backend:      backend,
		docs:         docs,
		playbooks:    playbooks,
		config:       cfg,
		policyEngine: policyEngine,
	}
}
