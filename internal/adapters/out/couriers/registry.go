package couriers

import (
	"sort"

	"dispatch/internal/core/ports"
	"dispatch/internal/pkg/errs"
)

// Registry is the static provider registry built once at startup from
// configuration. Resolution is a plain map lookup; the registry is never
// mutated after construction, so it is safe for concurrent use.
type Registry struct {
	providers map[string]ports.CourierAPIProvider
}

// NewRegistry creates a registry from the given adapters, keyed by their
// ProviderID. Registering two adapters with the same identifier is a
// configuration bug and fails loudly.
func NewRegistry(adapters ...ports.CourierAPIProvider) (*Registry, error) {
	providers := make(map[string]ports.CourierAPIProvider, len(adapters))
	for _, adapter := range adapters {
		id := adapter.ProviderID()
		if id == "" {
			return nil, errs.NewValueIsRequiredError("provider id")
		}
		if _, exists := providers[id]; exists {
			return nil, errs.NewValueIsInvalidError("duplicate provider id: " + id)
		}
		providers[id] = adapter
	}

	return &Registry{providers: providers}, nil
}

// Resolve returns the adapter for the provider identifier.
func (r *Registry) Resolve(providerID string) (ports.CourierAPIProvider, error) {
	adapter, ok := r.providers[providerID]
	if !ok {
		return nil, errs.NewProviderNotSupportedError(providerID)
	}
	return adapter, nil
}

// IDs returns the identifiers of every registered provider, sorted for
// stable output in logs and API responses.
func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.providers))
	for id := range r.providers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
