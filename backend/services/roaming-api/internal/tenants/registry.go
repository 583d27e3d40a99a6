// Package tenants maps request hostnames to the roaming networks served for
// them. Networks of a hostname are created lazily on first use.
package tenants

import (
	"errors"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/OpenChargingCloud/OpenChargingCloudAPI-sub000/backend/services/roaming-api/internal/ids"
	"github.com/OpenChargingCloud/OpenChargingCloudAPI-sub000/backend/services/roaming-api/internal/network"
)

// AnyHost is the wildcard hostname used when no exact hostname is registered.
const AnyHost = "*"

var (
	ErrNetworkExists  = errors.New("tenants: roaming network already exists")
	ErrUnknownNetwork = errors.New("tenants: unknown roaming network")
)

// Factory builds a new, empty roaming network.
type Factory func(id ids.RoamingNetworkID, name, description string) *network.RoamingNetwork

// Registry owns the per-hostname network maps. All mutation goes through its
// methods, so get-or-create is atomic.
type Registry struct {
	mu      sync.RWMutex
	hosts   map[string]map[ids.RoamingNetworkID]*network.RoamingNetwork
	factory Factory
	logger  *zap.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(factory Factory, logger *zap.Logger) *Registry {
	if factory == nil {
		factory = func(id ids.RoamingNetworkID, name, description string) *network.RoamingNetwork {
			return network.New(id, network.Options{Name: name, Description: description})
		}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		hosts:   make(map[string]map[ids.RoamingNetworkID]*network.RoamingNetwork),
		factory: factory,
		logger:  logger,
	}
}

// hostKey picks the registered host entry for hostname, falling back to AnyHost.
// Caller holds r.mu.
func (r *Registry) hostKey(hostname string) string {
	if _, ok := r.hosts[hostname]; ok {
		return hostname
	}
	return AnyHost
}

// Get returns the network id for hostname.
func (r *Registry) Get(hostname string, id ids.RoamingNetworkID) (*network.RoamingNetwork, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n, ok := r.hosts[r.hostKey(hostname)][id]
	return n, ok
}

// List returns the networks of hostname ordered by id.
func (r *Registry) List(hostname string) []*network.RoamingNetwork {
	r.mu.RLock()
	networks := r.hosts[r.hostKey(hostname)]
	out := make([]*network.RoamingNetwork, 0, len(networks))
	for _, n := range networks {
		out = append(out, n)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Create adds a new network under hostname. It fails with ErrNetworkExists
// if the id is taken.
func (r *Registry) Create(hostname string, id ids.RoamingNetworkID, name, description string) (*network.RoamingNetwork, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	networks, ok := r.hosts[hostname]
	if !ok {
		networks = make(map[ids.RoamingNetworkID]*network.RoamingNetwork)
		r.hosts[hostname] = networks
	}
	if _, exists := networks[id]; exists {
		return nil, ErrNetworkExists
	}
	n := r.factory(id, name, description)
	networks[id] = n
	r.logger.Info("roaming network created", zap.String("host", hostname), zap.String("network_id", id.String()))
	return n, nil
}

// GetOrCreate returns the existing network or creates it.
func (r *Registry) GetOrCreate(hostname string, id ids.RoamingNetworkID, name, description string) (*network.RoamingNetwork, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	networks, ok := r.hosts[hostname]
	if !ok {
		networks = make(map[ids.RoamingNetworkID]*network.RoamingNetwork)
		r.hosts[hostname] = networks
	}
	if n, exists := networks[id]; exists {
		return n, false
	}
	n := r.factory(id, name, description)
	networks[id] = n
	return n, true
}

// Remove deletes a network.
func (r *Registry) Remove(hostname string, id ids.RoamingNetworkID) (*network.RoamingNetwork, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	networks := r.hosts[r.hostKey(hostname)]
	n, ok := networks[id]
	if !ok {
		return nil, ErrUnknownNetwork
	}
	delete(networks, id)
	r.logger.Info("roaming network removed", zap.String("host", hostname), zap.String("network_id", id.String()))
	return n, nil
}
