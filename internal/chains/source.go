// Package chains implements the per-chain crawl sources. Each source knows
// how to discover, download and parse one retail chain's daily price
// publication and returns the result in the canonical model.
package chains

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/kosarica/price-crawler/internal/model"
)

// Source produces the Stores-with-Products of one chain for a given date.
//
// A source owns its own HTTP fetching policy, including retries and
// timeouts. Errors never escape the crawl boundary as partial data: a
// failed fetch returns an error and no stores, and the driver treats that
// as an empty result for the chain.
type Source interface {
	// Slug returns the chain's lowercase identifier.
	Slug() string

	// Fetch returns all stores with their product observations for date.
	Fetch(ctx context.Context, date time.Time) ([]model.Store, error)
}

// Registry holds the chain sources registered for a run. It is built once
// at startup and read-only thereafter.
type Registry struct {
	sources map[string]Source
}

// NewRegistry creates a registry from the given sources. Duplicate or
// ill-formed slugs are a programming error.
func NewRegistry(sources ...Source) (*Registry, error) {
	r := &Registry{sources: make(map[string]Source, len(sources))}
	for _, s := range sources {
		slug := s.Slug()
		if !model.ValidSlug(slug) {
			return nil, fmt.Errorf("invalid chain slug: %q", slug)
		}
		if _, ok := r.sources[slug]; ok {
			return nil, fmt.Errorf("duplicate chain slug: %q", slug)
		}
		r.sources[slug] = s
	}
	return r, nil
}

// Default builds the registry of all implemented chain sources.
func Default() *Registry {
	r, err := NewRegistry(
		NewKonzumSource(),
		NewPlodineSource(),
		NewDmSource(),
		NewPortalSource(ktcConfig),
		NewPortalSource(trgocentarConfig),
		NewPortalSource(eurospinConfig),
	)
	if err != nil {
		panic(err)
	}
	return r
}

// Get returns the source registered under slug.
func (r *Registry) Get(slug string) (Source, bool) {
	s, ok := r.sources[slug]
	return s, ok
}

// Slugs returns the registered chain slugs in sorted order.
func (r *Registry) Slugs() []string {
	slugs := make([]string, 0, len(r.sources))
	for slug := range r.sources {
		slugs = append(slugs, slug)
	}
	sort.Strings(slugs)
	return slugs
}
