package adapter

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/tvgelderen/dbbridge/pkg/dbcapabilities"
)

// Registry manages available database adapters.
type Registry struct {
	mu       sync.RWMutex
	adapters map[dbcapabilities.DatabaseID]DatabaseAdapter
}

// NewRegistry creates a new adapter registry.
func NewRegistry() *Registry {
	return &Registry{
		adapters: make(map[dbcapabilities.DatabaseID]DatabaseAdapter),
	}
}

// Register adds an adapter to the registry. Registering the same type
// twice replaces the earlier adapter.
func (r *Registry) Register(a DatabaseAdapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters[a.Type()] = a
}

// Get retrieves an adapter by database type.
func (r *Registry) Get(dbType dbcapabilities.DatabaseID) (DatabaseAdapter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.adapters[dbType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrAdapterNotFound, dbType)
	}
	return a, nil
}

// Registered reports whether an adapter exists for the database type.
func (r *Registry) Registered(dbType dbcapabilities.DatabaseID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.adapters[dbType]
	return ok
}

// List returns the registered database types in sorted order.
func (r *Registry) List() []dbcapabilities.DatabaseID {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]dbcapabilities.DatabaseID, 0, len(r.adapters))
	for t := range r.adapters {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}

// GetCapabilities returns the capability metadata of a registered
// adapter. It fails when no adapter is registered for the type.
func (r *Registry) GetCapabilities(dbType dbcapabilities.DatabaseID) (dbcapabilities.Capability, error) {
	a, err := r.Get(dbType)
	if err != nil {
		return dbcapabilities.Capability{}, err
	}
	return a.Capabilities(), nil
}

// HasCapability reports whether a registered adapter supports the
// capability. It never fails: unknown types and unknown capabilities
// both report false.
func (r *Registry) HasCapability(dbType dbcapabilities.DatabaseID, capID dbcapabilities.CapabilityID) bool {
	a, err := r.Get(dbType)
	if err != nil {
		return false
	}
	return a.Capabilities().Supports(capID)
}

// Connect validates the configuration, looks up the adapter for its
// database type and establishes a connection.
func (r *Registry) Connect(ctx context.Context, config ConnectionConfig) (Connection, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	a, err := r.Get(config.DatabaseType)
	if err != nil {
		return nil, err
	}
	return a.Connect(ctx, config)
}

// globalRegistry is the default registry used by package-level functions.
var globalRegistry = NewRegistry()

// Register adds an adapter to the global registry.
// Adapter packages call this from init().
func Register(a DatabaseAdapter) {
	globalRegistry.Register(a)
}

// Get retrieves an adapter from the global registry.
func Get(dbType dbcapabilities.DatabaseID) (DatabaseAdapter, error) {
	return globalRegistry.Get(dbType)
}

// Registered reports whether the global registry has an adapter for the type.
func Registered(dbType dbcapabilities.DatabaseID) bool {
	return globalRegistry.Registered(dbType)
}

// List returns the database types registered globally.
func List() []dbcapabilities.DatabaseID {
	return globalRegistry.List()
}

// GetCapabilities returns capability metadata from the global registry.
func GetCapabilities(dbType dbcapabilities.DatabaseID) (dbcapabilities.Capability, error) {
	return globalRegistry.GetCapabilities(dbType)
}

// HasCapability consults the global registry and never fails.
func HasCapability(dbType dbcapabilities.DatabaseID, capID dbcapabilities.CapabilityID) bool {
	return globalRegistry.HasCapability(dbType, capID)
}

// Connect establishes a connection using the global registry.
func Connect(ctx context.Context, config ConnectionConfig) (Connection, error) {
	return globalRegistry.Connect(ctx, config)
}

// DefaultRegistry returns the global registry.
func DefaultRegistry() *Registry {
	return globalRegistry
}
