package streams

import "fmt"

const (
	// EventScrapeRequested asks a worker to crawl and index one site.
	EventScrapeRequested = "site.scrape.requested"
	VersionV1            = "v1"
)

// Definition is one schema entry for the registry.
type Definition struct {
	EventType string
	Version   string
	Schema    []byte
}

var baseDefinitions = []Definition{
	{
		EventType: EventScrapeRequested,
		Version:   VersionV1,
		Schema: []byte(`{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["site_id", "url", "requested_at", "source"],
  "properties": {
    "site_id": {"type": "integer", "minimum": 1},
    "url": {"type": "string", "minLength": 1},
    "requested_at": {"type": "string", "format": "date-time"},
    "source": {"type": "string", "enum": ["api", "scheduler", "cli"]}
  },
  "additionalProperties": false
}`),
	},
}

// BaseDefinitions returns a copy of the built-in schemas.
func BaseDefinitions() []Definition {
	out := make([]Definition, len(baseDefinitions))
	copy(out, baseDefinitions)
	return out
}

// RegisterBaseSchemas loads every built-in schema into reg.
func RegisterBaseSchemas(reg *SchemaRegistry) error {
	for _, def := range baseDefinitions {
		if err := reg.Register(def.EventType, def.Version, def.Schema); err != nil {
			return fmt.Errorf("register %s %s: %w", def.EventType, def.Version, err)
		}
	}
	return nil
}

// NewBaseRegistry is a registry with the built-in schemas already loaded.
func NewBaseRegistry() (*SchemaRegistry, error) {
	reg := NewSchemaRegistry()
	if err := RegisterBaseSchemas(reg); err != nil {
		return nil, err
	}
	return reg, nil
}
