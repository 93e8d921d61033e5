// Package registry holds the validated list of configured remote-access
// servers. Servers come from a system file shipped with the installation and
// an optional user file; the two lists merge additively.
package registry

import (
	"fmt"
	"net/url"
	"os"
	"sort"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"

	"github.com/jnury/regis/pkg/errors"
	"github.com/jnury/regis/pkg/logger"
)

// Server describes one remote-access endpoint. Entries are immutable once
// loaded.
type Server struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	URL         string `yaml:"url"`
	Description string `yaml:"description,omitempty"`
	Environment string `yaml:"environment,omitempty"`
	Region      string `yaml:"region,omitempty"`

	// CLIPath optionally overrides the global boundary CLI path for this
	// server.
	CLIPath string `yaml:"cli_path,omitempty"`

	// OIDCIssuer optionally hints the expected OIDC issuer for this server,
	// used to resolve issuer metadata when the controller does not report one.
	OIDCIssuer string `yaml:"oidc_issuer,omitempty"`
}

type serverFile struct {
	Servers []Server `yaml:"servers"`
}

// Registry is the validated, read-only set of configured servers.
type Registry struct {
	servers []Server
	byID    map[string]Server
}

// userServersPath generates the user servers file path, replaceable in tests.
var userServersPath = func() (string, error) {
	return xdg.ConfigFile("regis/servers.yaml")
}

// Load reads servers from the given system file and the user servers file,
// merging additively. A missing user file is fine; a missing system file is
// only an error when systemPath is non-empty. Invalid entries are dropped
// with a warning rather than failing the whole registry.
func Load(systemPath string) (*Registry, error) {
	var all []Server

	if systemPath != "" {
		servers, err := readServerFile(systemPath)
		if err != nil {
			return nil, errors.NewConfigError(fmt.Sprintf("failed to load server list %s", systemPath), err)
		}
		all = append(all, servers...)
	}

	if userPath, err := userServersPath(); err == nil {
		servers, err := readServerFile(userPath)
		if err != nil {
			if !os.IsNotExist(err) {
				logger.Warnw("skipping unreadable user servers file", "path", userPath, "error", err)
			}
		} else {
			all = append(all, servers...)
		}
	}

	return New(all), nil
}

// New builds a registry from a server list, dropping invalid entries.
func New(servers []Server) *Registry {
	r := &Registry{byID: make(map[string]Server)}

	for _, s := range servers {
		if err := validate(s); err != nil {
			// Fatal to this server only.
			logger.Warnw("dropping invalid server entry", "id", s.ID, "error", err)
			continue
		}
		if _, exists := r.byID[s.ID]; exists {
			logger.Warnw("dropping duplicate server entry", "id", s.ID)
			continue
		}
		r.byID[s.ID] = s
		r.servers = append(r.servers, s)
	}

	sort.Slice(r.servers, func(i, j int) bool { return r.servers[i].Name < r.servers[j].Name })
	return r
}

func readServerFile(path string) ([]Server, error) {
	data, err := os.ReadFile(path) //nolint:gosec // paths come from config/xdg
	if err != nil {
		return nil, err
	}
	var f serverFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return f.Servers, nil
}

func validate(s Server) error {
	if s.ID == "" {
		return fmt.Errorf("server id must not be empty")
	}
	if s.Name == "" {
		return fmt.Errorf("server name must not be empty")
	}
	if s.URL == "" {
		return fmt.Errorf("server url must not be empty")
	}
	u, err := url.Parse(s.URL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("server url %q is not a valid absolute URL", s.URL)
	}
	return nil
}

// Get returns the server with the given id.
func (r *Registry) Get(id string) (Server, error) {
	s, ok := r.byID[id]
	if !ok {
		return Server{}, errors.NewConfigError(fmt.Sprintf("server %q not found", id), nil).WithServer(id)
	}
	return s, nil
}

// List returns all servers ordered by name.
func (r *Registry) List() []Server {
	out := make([]Server, len(r.servers))
	copy(out, r.servers)
	return out
}

// Len returns the number of registered servers.
func (r *Registry) Len() int {
	return len(r.servers)
}
