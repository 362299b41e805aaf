// Package catalog implements the C3 component: registered node and
// relationship schemas, property->column mappings, and the node/edge id
// encoding that lets id() predicates be decoded back to (label, row_id).
package catalog

// PropertyValue describes one property -> physical column mapping.
type PropertyValue struct {
	Column string
	DType  string
}

// NodeSchema is a registered node label's physical shape (spec.md §3.2).
type NodeSchema struct {
	Database   string
	TableName  string
	Columns    []string
	PrimaryKey []string
	NodeIDColumn string
	NodeIDDType  string

	PropertyMappings map[string]PropertyValue

	ViewParameters []string
	Engine         string
	UseFinal       bool

	IsDenormalized           bool
	FromProperties           []string
	ToProperties             []string
	DenormalizedSourceTable  string

	// SchemaVersion is a stable fingerprint of this schema's canonical
	// shape (SPEC_FULL.md §3, "Catalog identifiers"), used by the driver
	// to cheaply notice a catalog reload without deep-equality.
	SchemaVersion string
}

// RelEndpointAny is the `$any` sentinel for a polymorphic edge endpoint
// (spec.md §3.2).
const RelEndpointAny = "$any"

// RelationshipSchema is a registered relationship type (possibly
// overloaded per (from, to) pair) (spec.md §3.2).
type RelationshipSchema struct {
	Database  string
	TableName string
	Columns   []string

	FromNode   string
	ToNode     string
	FromID     string
	ToID       string
	PrimaryKey []string

	FromNodeIDDType string
	ToNodeIDDType   string

	PropertyMappings map[string]PropertyValue

	EdgeIDColumn      string
	TypeColumn        string
	FromLabelColumn   string
	ToLabelColumn     string
	FromNodeProperties []string
	ToNodeProperties   []string

	SchemaVersion string
}

// IsPolymorphic reports whether either endpoint of this relationship
// schema is the `$any` wildcard.
func (r *RelationshipSchema) IsPolymorphic() bool {
	return r.FromNode == RelEndpointAny || r.ToNode == RelEndpointAny
}

// Property looks up a property by name, returning ok=false if this schema
// (node or relationship) doesn't have it — the caller is expected to raise
// cgerrors.ErrPropertyNotFound in that case (spec.md §3.2 invariant).
func (n *NodeSchema) Property(name string) (PropertyValue, bool) {
	pv, ok := n.PropertyMappings[name]
	return pv, ok
}

func (r *RelationshipSchema) Property(name string) (PropertyValue, bool) {
	pv, ok := r.PropertyMappings[name]
	return pv, ok
}

// SchemaMutation is the DDL result handed back to the caller after a
// successful CREATE NODE/REL TABLE compile (spec.md §6.1): the caller must
// install it into its own catalog after the returned SQL succeeds.
type SchemaMutation struct {
	Node         *NodeSchema
	Relationship *RelationshipSchema
}
