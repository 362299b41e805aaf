package catalog

import (
	"sort"
	"strings"

	"github.com/brahmanddb/cyphercompiler/cgerrors"
)

// relKeySeparator joins the composite edge key TYPE::FROM::TO
// (spec.md §3.2, "Composite edge key").
const relKeySeparator = "::"

// CompositeRelKey builds the TYPE::FROM::TO key for an overloaded edge
// schema.
func CompositeRelKey(typ, from, to string) string {
	return typ + relKeySeparator + from + relKeySeparator + to
}

// baseRelType extracts TYPE from either a simple key ("FOLLOWS") or a
// composite key ("AUTHORED::User::Post").
func baseRelType(key string) string {
	if i := strings.Index(key, relKeySeparator); i >= 0 {
		return key[:i]
	}
	return key
}

// GraphSchema is the registered catalog for one compilation: nodes and
// relationships keyed by label/type, plus the base-type -> composite-keys
// index spec.md §9 insists be queried together ("Polymorphic edge keys").
type GraphSchema struct {
	Version  int
	Database string

	Nodes         map[string]*NodeSchema
	Relationships map[string]*RelationshipSchema

	// typeIndex maps a base relationship type name to every composite key
	// beginning with it, including the simple (non-composite) key if one
	// was registered under that exact name.
	typeIndex map[string][]string

	ids *idEncoder
}

// NewGraphSchema builds an empty schema for RegisterNode and
// RegisterRelationship to populate. GraphSchema has no internal locking:
// registration must be complete before the schema is shared with
// concurrent compilations (spec.md §5).
func NewGraphSchema(database string) *GraphSchema {
	return &GraphSchema{
		Database:      database,
		Nodes:         map[string]*NodeSchema{},
		Relationships: map[string]*RelationshipSchema{},
		typeIndex:     map[string][]string{},
		ids:           newIDEncoder(),
	}
}

// RegisterNode adds a node schema under label, enforcing the invariant
// that every label appears at most once (spec.md §3.2).
func (g *GraphSchema) RegisterNode(label string, schema *NodeSchema) error {
	if _, exists := g.Nodes[label]; exists {
		return cgerrors.ErrSchemaNotFound.New("duplicate node label " + label)
	}
	g.Nodes[label] = schema
	g.ids.registerLabel(label)
	return nil
}

// RegisterRelationship adds a relationship schema under key, which is
// either a simple type name or a TYPE::FROM::TO composite key
// (spec.md §3.2).
func (g *GraphSchema) RegisterRelationship(key string, schema *RelationshipSchema) error {
	base := baseRelType(key)
	if schema.TypeColumn == "" {
		// TypeColumn defaults to the base type name when the schema
		// doesn't carry a separate discriminator column; this keeps the
		// "type_name consistent with its from/to" invariant checkable.
		schema.TypeColumn = base
	}
	g.Relationships[key] = schema
	g.typeIndex[base] = append(g.typeIndex[base], key)
	sort.Strings(g.typeIndex[base])
	return nil
}

// LookupNode returns the node schema for label.
func (g *GraphSchema) LookupNode(label string) (*NodeSchema, bool) {
	s, ok := g.Nodes[label]
	return s, ok
}

// LookupRelationship returns the relationship schema for an exact key
// (simple or composite).
func (g *GraphSchema) LookupRelationship(key string) (*RelationshipSchema, bool) {
	s, ok := g.Relationships[key]
	return s, ok
}

// RelationshipsOfType returns every schema registered under base type
// name typ, across all (from, to) overloads. Querying via this index
// rather than looking up endpoints independently is required by
// spec.md §9 ("do not infer endpoints independently or valid combinations
// will leak").
func (g *GraphSchema) RelationshipsOfType(typ string) []*RelationshipSchema {
	keys := g.typeIndex[typ]
	out := make([]*RelationshipSchema, 0, len(keys))
	for _, k := range keys {
		out = append(out, g.Relationships[k])
	}
	return out
}

// AllRelationshipTypes returns every distinct base relationship type name
// registered in the schema, sorted for deterministic iteration (keeps the
// order in which Unified Type Inference checks relationship types stable).
func (g *GraphSchema) AllRelationshipTypes() []string {
	out := make([]string, 0, len(g.typeIndex))
	for t := range g.typeIndex {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// AllNodeLabels returns every registered node label, sorted.
func (g *GraphSchema) AllNodeLabels() []string {
	out := make([]string, 0, len(g.Nodes))
	for l := range g.Nodes {
		out = append(out, l)
	}
	sort.Strings(out)
	return out
}

// Encode delegates to the schema's id encoder (spec.md §3.2).
func (g *GraphSchema) Encode(label string, rowID uint64) (int64, error) {
	return g.ids.encode(label, rowID)
}

// Decode delegates to the schema's id encoder.
func (g *GraphSchema) Decode(id int64) (label string, rowID uint64, err error) {
	return g.ids.decode(id)
}
