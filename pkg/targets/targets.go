// Package targets discovers the targets a session can reach and filters
// them client-side.
package targets

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/jnury/regis/pkg/boundary"
	regiserr "github.com/jnury/regis/pkg/errors"
	"github.com/jnury/regis/pkg/logger"
)

// Service lists targets through a boundary client and caches the last
// result per server so filtering never re-queries the controller.
type Service struct {
	mu    sync.RWMutex
	cache map[string][]boundary.Target
}

// NewService creates a target discovery service.
func NewService() *Service {
	return &Service{cache: make(map[string][]boundary.Target)}
}

// Discover lists the targets visible to the token, sorted by name. An empty
// result is a valid outcome, not an error. The result replaces the server's
// cached listing.
func (s *Service) Discover(ctx context.Context, client boundary.Client, serverID, token, scopeID string) ([]boundary.Target, error) {
	listed, err := client.ListTargets(ctx, token, scopeID)
	if err != nil {
		return nil, regiserr.NewTargetDiscoveryError("failed to list targets", err).WithServer(serverID)
	}

	targets := append([]boundary.Target(nil), listed...)
	sort.Slice(targets, func(i, j int) bool {
		if targets[i].Name != targets[j].Name {
			return targets[i].Name < targets[j].Name
		}
		return targets[i].ID < targets[j].ID
	})

	s.mu.Lock()
	s.cache[serverID] = targets
	s.mu.Unlock()

	logger.Debugw("targets discovered", "server", serverID, "count", len(targets))
	return targets, nil
}

// Filter narrows the server's cached listing to targets whose name,
// description, ID, or address contains the query, case-insensitively. An
// empty query returns the full cached listing. Filter never queries the
// controller.
func (s *Service) Filter(serverID, query string) []boundary.Target {
	s.mu.RLock()
	cached := s.cache[serverID]
	s.mu.RUnlock()

	if query == "" {
		return append([]boundary.Target{}, cached...)
	}

	needle := strings.ToLower(query)
	matched := make([]boundary.Target, 0, len(cached))
	for _, target := range cached {
		if matchesTarget(target, needle) {
			matched = append(matched, target)
		}
	}
	return matched
}

func matchesTarget(target boundary.Target, needle string) bool {
	for _, field := range []string{target.Name, target.Description, target.ID, target.Address} {
		if strings.Contains(strings.ToLower(field), needle) {
			return true
		}
	}
	return false
}
