// Package profile ships the built-in deployment profiles as configuration
// providers. A profile is a YAML document of defaults for one deployment
// shape; the operator picks one by name and layers overrides on top.
package profile

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// The built-in profiles. Test keeps everything in process, development adds
// the web fetcher with relaxed limits, production selects the durable
// backends.
const (
	Test        = "test"
	Development = "development"
	Production  = "production"
)

var documents = map[string]string{
	Test: `
engine:
  providers:
    cache: memory
    state_store: memory
    data_store: memory
    tasks: immediate
api:
  enabled: false
`,
	Development: `
engine:
  providers:
    cache: memory
    state_store: memory
    data_store: memory
    tasks: immediate
api:
  enabled: true
  listen: 127.0.0.1:8080
fetchers:
  web:
    user_agent: magpie-engine/dev
`,
	Production: `
engine:
  providers:
    cache: memory
    state_store: postgres
    data_store: postgres
    tasks: pubsub
api:
  enabled: true
  listen: :8080
state_store:
  postgres:
    table: magpie_state
    max_conns: 8
data_store:
  postgres:
    table: content_items
tasks:
  pubsub:
    topic: magpie-tasks
    subscription: magpie-tasks-worker
`,
}

// Provider is the ConfigurationProvider for one named profile.
type Provider struct {
	name     string
	defaults map[string]any
}

// New parses the named profile. Unknown names are an error so a typo in
// --profile fails at startup, not silently.
func New(name string) (*Provider, error) {
	doc, ok := documents[name]
	if !ok {
		return nil, fmt.Errorf("unknown profile %q", name)
	}
	defaults := map[string]any{}
	if err := yaml.Unmarshal([]byte(doc), &defaults); err != nil {
		return nil, fmt.Errorf("parse profile %q: %w", name, err)
	}
	return &Provider{name: name, defaults: defaults}, nil
}

// Names lists the built-in profile names.
func Names() []string {
	return []string{Test, Development, Production}
}

func (p *Provider) ConfigurationID() string { return "profile." + p.name }

func (p *Provider) DefaultConfiguration() map[string]any { return p.defaults }
