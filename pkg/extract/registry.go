package extract

import (
	"errors"
	"fmt"

	"github.com/onlhub/boardscope/pkg/domain"
)

// ErrNoStrategy is returned when a source references an unregistered strategy
var ErrNoStrategy = errors.New("no extraction strategy registered")

// Strategy extracts candidate post fragments from a fetched document.
// One strategy is registered per markup family; sources reference it by id.
// Adding a new site means registering a new strategy, never editing shared code.
type Strategy interface {
	Extract(content string, src domain.Source) ([]domain.RawFragment, error)
}

// Registry holds extraction strategies keyed by strategy id
type Registry struct {
	strategies map[string]Strategy
}

// NewRegistry creates an empty strategy registry
func NewRegistry() *Registry {
	return &Registry{strategies: make(map[string]Strategy)}
}

// DefaultRegistry creates a registry with the built-in strategies
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register("board-list", &SelectorStrategy{})
	r.Register("rss", NewRSSStrategy())
	return r
}

// Register adds a strategy under the given id, replacing any previous one
func (r *Registry) Register(id string, s Strategy) {
	r.strategies[id] = s
}

// Get returns the strategy registered under id
func (r *Registry) Get(id string) (Strategy, error) {
	s, ok := r.strategies[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNoStrategy, id)
	}
	return s, nil
}

// Extract runs the strategy referenced by the source on the fetched content
func (r *Registry) Extract(content string, src domain.Source) ([]domain.RawFragment, error) {
	s, err := r.Get(src.Strategy)
	if err != nil {
		return nil, err
	}
	return s.Extract(content, src)
}
