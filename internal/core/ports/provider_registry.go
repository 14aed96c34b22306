package ports

// ProviderRegistry resolves a provider identifier to its courier adapter.
// The registry is built once at startup from configuration; handlers and
// jobs depend only on this capability, never on concrete adapters.
type ProviderRegistry interface {
	// Resolve returns the adapter for the provider identifier, or an
	// errs.ProviderNotSupportedError if the identifier is unknown.
	Resolve(providerID string) (CourierAPIProvider, error)

	// IDs returns the identifiers of every registered provider.
	IDs() []string
}
