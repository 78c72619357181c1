package connectors

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"sync"
)

type Registry struct {
	mu         sync.RWMutex
	connectors map[string]Connector
	hosts      map[string]string
}

type Descriptor struct {
	Key          string       `json:"key"`
	Name         string       `json:"name"`
	Kind         string       `json:"kind"`
	Hosts        []string     `json:"hosts,omitempty"`
	Capabilities Capabilities `json:"capabilities"`
}

type HealthStatus struct {
	Key     string `json:"key"`
	Name    string `json:"name"`
	Kind    string `json:"kind"`
	Healthy bool   `json:"healthy"`
	Error   string `json:"error,omitempty"`
}

func NewRegistry() *Registry {
	return &Registry{connectors: map[string]Connector{}, hosts: map[string]string{}}
}

func (r *Registry) Register(connector Connector) error {
	if connector == nil {
		return fmt.Errorf("connector is nil")
	}

	key := strings.ToLower(strings.TrimSpace(connector.Key()))
	if key == "" {
		return fmt.Errorf("connector key is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.connectors[key]; exists {
		return fmt.Errorf("connector %q already registered", key)
	}
	for _, host := range connector.Hosts() {
		host = canonicalHost(host)
		if owner, taken := r.hosts[host]; taken && host != "" {
			return fmt.Errorf("host %q of connector %q already served by %q", host, key, owner)
		}
	}

	r.connectors[key] = connector
	for _, host := range connector.Hosts() {
		if host = canonicalHost(host); host != "" {
			r.hosts[host] = key
		}
	}
	return nil
}

// Get accepts a connector key, a host name or a full URL on one of the
// connector's hosts.
func (r *Registry) Get(keyOrURL string) (Connector, bool) {
	needle := strings.ToLower(strings.TrimSpace(keyOrURL))
	if needle == "" {
		return nil, false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if connector, ok := r.connectors[needle]; ok {
		return connector, true
	}

	host := canonicalHost(hostOf(needle))
	if host == "" {
		return nil, false
	}
	if key, ok := r.hosts[host]; ok {
		return r.connectors[key], true
	}
	if label, _, found := strings.Cut(host, "."); found {
		if connector, ok := r.connectors[label]; ok {
			return connector, true
		}
	}
	return nil, false
}

func hostOf(value string) string {
	if strings.Contains(value, "://") {
		parsed, err := url.Parse(value)
		if err != nil {
			return ""
		}
		return parsed.Hostname()
	}
	host, _, _ := strings.Cut(value, "/")
	if name, _, found := strings.Cut(host, ":"); found {
		host = name
	}
	return host
}

func canonicalHost(host string) string {
	host = strings.ToLower(strings.TrimSpace(host))
	if strings.Contains(host, "://") {
		host = hostOf(host)
	}
	for _, prefix := range []string{"www.", "m."} {
		host = strings.TrimPrefix(host, prefix)
	}
	return host
}

func (r *Registry) All() []Connector {
	r.mu.RLock()
	defer r.mu.RUnlock()

	list := make([]Connector, 0, len(r.connectors))
	for _, connector := range r.connectors {
		list = append(list, connector)
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].Key() < list[j].Key()
	})
	return list
}

func (r *Registry) List() []Descriptor {
	all := r.All()
	items := make([]Descriptor, 0, len(all))
	for _, connector := range all {
		items = append(items, Describe(connector))
	}
	return items
}

func Describe(connector Connector) Descriptor {
	return Descriptor{
		Key:          connector.Key(),
		Name:         connector.Name(),
		Kind:         connector.Kind(),
		Hosts:        connector.Hosts(),
		Capabilities: connector.Capabilities(),
	}
}

func (r *Registry) Health(ctx context.Context) []HealthStatus {
	list := r.All()

	statuses := make([]HealthStatus, len(list))
	var wg sync.WaitGroup
	for i, connector := range list {
		wg.Add(1)
		go func(i int, connector Connector) {
			defer wg.Done()
			err := connector.HealthCheck(ctx)
			status := HealthStatus{
				Key:     connector.Key(),
				Name:    connector.Name(),
				Kind:    connector.Kind(),
				Healthy: err == nil,
			}
			if err != nil {
				status.Error = err.Error()
			}
			statuses[i] = status
		}(i, connector)
	}
	wg.Wait()

	return statuses
}
