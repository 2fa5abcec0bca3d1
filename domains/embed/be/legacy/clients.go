// Package legacy loads the static client to workflow table used by embed
// dashboards that were configured before dashboards lived in the database.
package legacy

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	"github.com/flowlyst-io/agents/platform/go/persistence"
)

// DefaultTitle is shown in the dashboard header when a client sets none.
const DefaultTitle = "Agents"

const schemaURL = "memory://legacy/clients.schema.json"

//go:embed clients.schema.json
var schemaDocument []byte

//go:embed default_clients.yaml
var defaultClientsYAML []byte

// Client is one legacy dashboard: a public slug and the workflows it lists.
type Client struct {
	Slug        string   `yaml:"slug"`
	Title       string   `yaml:"title,omitempty"`
	WorkflowIDs []string `yaml:"workflowIds"`
}

// Clients is the parsed legacy table keyed by slug.
type Clients struct {
	title  string
	bySlug map[string]Client
	order  []string
}

type document struct {
	Title   string   `yaml:"title,omitempty"`
	Clients []Client `yaml:"clients"`
}

// Default returns the built-in client table.
func Default() (*Clients, error) {
	return Parse(defaultClientsYAML)
}

// Load reads the client table from path. An empty path yields the built-in
// table.
func Load(path string) (*Clients, error) {
	if strings.TrimSpace(path) == "" {
		return Default()
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read legacy clients %s: %w", path, err)
	}

	clients, err := Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("legacy clients %s: %w", path, err)
	}
	return clients, nil
}

// Parse validates raw YAML against the embedded schema and builds the table.
func Parse(raw []byte) (*Clients, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, errors.New("legacy clients document is empty")
	}

	if err := validate(raw); err != nil {
		return nil, err
	}

	var doc document
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode legacy clients: %w", err)
	}

	clients := &Clients{
		title:  doc.Title,
		bySlug: make(map[string]Client, len(doc.Clients)),
		order:  make([]string, 0, len(doc.Clients)),
	}
	if clients.title == "" {
		clients.title = DefaultTitle
	}

	for i, client := range doc.Clients {
		slug, err := persistence.ValidateSlug(client.Slug)
		if err != nil {
			return nil, fmt.Errorf("clients[%d]: %w", i, err)
		}
		if _, exists := clients.bySlug[slug]; exists {
			return nil, fmt.Errorf("clients[%d]: duplicate slug %q", i, slug)
		}
		client.Slug = slug
		clients.bySlug[slug] = client
		clients.order = append(clients.order, slug)
	}

	return clients, nil
}

// Lookup returns the client registered under slug.
func (c *Clients) Lookup(slug string) (Client, bool) {
	client, ok := c.bySlug[slug]
	return client, ok
}

// Title returns the header title for client.
func (c *Clients) Title(client Client) string {
	if client.Title != "" {
		return client.Title
	}
	return c.title
}

// Slugs lists the configured slugs in file order.
func (c *Clients) Slugs() []string {
	return append([]string(nil), c.order...)
}

// Contains reports whether workflowID is listed for client.
func (c Client) Contains(workflowID string) bool {
	for _, id := range c.WorkflowIDs {
		if id == workflowID {
			return true
		}
	}
	return false
}

func validate(raw []byte) error {
	var generic any
	if err := yaml.Unmarshal(raw, &generic); err != nil {
		return fmt.Errorf("decode legacy clients: %w", err)
	}

	// Round-trip through JSON so the validator sees JSON-native types.
	asJSON, err := json.Marshal(generic)
	if err != nil {
		return fmt.Errorf("encode legacy clients: %w", err)
	}
	var payload any
	if err := json.Unmarshal(asJSON, &payload); err != nil {
		return fmt.Errorf("decode legacy clients: %w", err)
	}

	schema, err := compileSchema()
	if err != nil {
		return err
	}
	if err := schema.Validate(payload); err != nil {
		return fmt.Errorf("schema validation: %w", err)
	}
	return nil
}

func compileSchema() (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(schemaURL, bytes.NewReader(schemaDocument)); err != nil {
		return nil, fmt.Errorf("register legacy clients schema: %w", err)
	}
	schema, err := compiler.Compile(schemaURL)
	if err != nil {
		return nil, fmt.Errorf("compile legacy clients schema: %w", err)
	}
	return schema, nil
}
