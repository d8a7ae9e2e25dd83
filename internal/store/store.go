// Package store supplies the static inputs a run needs: flow graphs and
// backend configs. The engine itself persists nothing; these stores
// exist so callers (and the CLI) can load what they feed it.
package store

import (
	"context"
	"errors"

	"github.com/graflow/graflow/pkg/api"
)

var (
	// ErrFlowNotFound is returned when a flow graph is not found.
	ErrFlowNotFound = errors.New("flow not found")

	// ErrConfigNotFound is returned when a backend config is not found.
	ErrConfigNotFound = errors.New("backend config not found")

	// ErrNoActiveConfig is returned when no backend config is marked active.
	ErrNoActiveConfig = errors.New("no active backend config")
)

// FlowStore handles storage of flow graphs keyed by id.
type FlowStore interface {
	SaveFlow(ctx context.Context, id string, graph api.Graph) error
	GetFlow(ctx context.Context, id string) (api.Graph, error)
	ListFlows(ctx context.Context) ([]string, error)
	DeleteFlow(ctx context.Context, id string) error
}

// ConfigStore handles storage of backend configs. At most one config is
// active at a time; activating one deactivates the previous.
type ConfigStore interface {
	SaveConfig(ctx context.Context, cfg api.BackendConfig) error
	GetConfig(ctx context.Context, id string) (api.BackendConfig, error)
	// ActiveConfig returns the config marked active, or ErrNoActiveConfig.
	ActiveConfig(ctx context.Context) (api.BackendConfig, error)
	SetActive(ctx context.Context, id string) error
	ListConfigs(ctx context.Context) ([]string, error)
}
