package catalog

import (
	"encoding/json"

	uuid "github.com/satori/go.uuid"

	"github.com/brahmanddb/cyphercompiler/ast"
	"github.com/brahmanddb/cyphercompiler/cgerrors"
)

// validNodeIDDTypes are the only column types a NODE ID column may declare
// (spec.md §6.3).
var validNodeIDDTypes = map[string]bool{"Int64": true, "UInt64": true}

// BuildNodeSchemaFromDDL validates and builds a NodeSchema from a parsed
// CREATE NODE TABLE statement, enforcing the invariants in spec.md §6.3:
// non-empty PRIMARY KEY, exactly one NODE ID column of dtype Int64/UInt64,
// NODE ID implicitly appended to the primary key if absent.
func BuildNodeSchemaFromDDL(database string, t *ast.CreateNodeTable) (*NodeSchema, error) {
	if t.NodeID == "" {
		return nil, cgerrors.ErrMissingNodeId.New(t.Label)
	}
	var nodeIDDType string
	columnNames := make([]string, 0, len(t.Columns))
	seen := map[string]bool{}
	for _, c := range t.Columns {
		if seen[c.Name] {
			return nil, cgerrors.ErrInvalidNodeId.New(c.Name, t.Label)
		}
		seen[c.Name] = true
		columnNames = append(columnNames, c.Name)
		if c.Name == t.NodeID {
			nodeIDDType = c.DType
		}
	}
	if nodeIDDType == "" {
		return nil, cgerrors.ErrInvalidNodeId.New(t.NodeID, t.Label)
	}
	if !validNodeIDDTypes[nodeIDDType] {
		return nil, cgerrors.ErrInvalidNodeIdDType.New(t.Label, t.NodeID, nodeIDDType)
	}

	pk := t.PrimaryKey
	if len(pk) == 0 {
		return nil, cgerrors.ErrMissingPrimaryKey.New(t.Label)
	}
	if !containsStr(pk, t.NodeID) {
		pk = append(append([]string{}, pk...), t.NodeID)
	}

	props := map[string]PropertyValue{}
	for _, c := range t.Columns {
		props[c.Name] = PropertyValue{Column: c.Name, DType: c.DType}
	}

	schema := &NodeSchema{
		Database:     database,
		TableName:    t.Label,
		Columns:      columnNames,
		PrimaryKey:   pk,
		NodeIDColumn: t.NodeID,
		NodeIDDType:  nodeIDDType,
		PropertyMappings: props,
	}
	schema.SchemaVersion = fingerprint(schema)
	return schema, nil
}

// BuildRelationshipSchemaFromDDL validates and builds a RelationshipSchema
// from a parsed CREATE REL TABLE statement against an already-populated
// schema (so FROM/TO labels can be checked), per spec.md §6.3: FROM and TO
// must reference existing node labels, the edge table always carries
// from_<A>/to_<B> columns typed by the referenced labels' NODE ID dtypes,
// PK defaults to (from_A, to_B) with user columns prepended.
func BuildRelationshipSchemaFromDDL(database string, schema *GraphSchema, t *ast.CreateRelTable) (*RelationshipSchema, error) {
	fromSchema, ok := schema.LookupNode(t.From)
	if !ok {
		return nil, cgerrors.ErrUnknownFromTableInRel.New(t.Type, t.From)
	}
	toSchema, ok := schema.LookupNode(t.To)
	if !ok {
		return nil, cgerrors.ErrUnknownToTableInRel.New(t.Type, t.To)
	}

	fromIDCol := "from_" + t.From
	toIDCol := "to_" + t.To

	columnNames := []string{fromIDCol, toIDCol}
	props := map[string]PropertyValue{}
	for _, c := range t.Columns {
		columnNames = append(columnNames, c.Name)
		props[c.Name] = PropertyValue{Column: c.Name, DType: c.DType}
	}

	pk := append([]string{}, t.PrimaryKey...)
	for _, c := range []string{fromIDCol, toIDCol} {
		if !containsStr(pk, c) {
			pk = append(pk, c)
		}
	}

	rel := &RelationshipSchema{
		Database:         database,
		TableName:        t.Type,
		Columns:          columnNames,
		FromNode:         t.From,
		ToNode:           t.To,
		FromID:           fromIDCol,
		ToID:             toIDCol,
		PrimaryKey:       pk,
		FromNodeIDDType:  fromSchema.NodeIDDType,
		ToNodeIDDType:    toSchema.NodeIDDType,
		PropertyMappings: props,
		TypeColumn:       t.Type,
	}
	rel.SchemaVersion = fingerprint(rel)
	return rel, nil
}

func containsStr(ss []string, s string) bool {
	for _, x := range ss {
		if x == s {
			return true
		}
	}
	return false
}

// fingerprint computes a stable, UUIDv5 (name-based) token over a schema's
// canonical JSON encoding. json.Marshal serializes Go map keys in sorted
// order, so two logically-equal schemas always fingerprint the same way.
// UUIDv5 rather than a random UUIDv4 is what makes this deterministic,
// which is what the driver needs to detect "did the catalog I'm holding
// change" without deep equality (SPEC_FULL.md §3).
func fingerprint(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return uuid.NewV5(uuid.NamespaceOID, string(data)).String()
}
