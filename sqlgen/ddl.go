package sqlgen

import (
	"strings"

	roaring "github.com/RoaringBitmap/roaring/v2"

	"github.com/brahmanddb/cyphercompiler/catalog"
)

// GenerateNodeTableDDL renders the MergeTree CREATE TABLE statement for a
// registered node schema (spec.md §4.6, §6.3).
func GenerateNodeTableDDL(schema *catalog.NodeSchema) string {
	var sb strings.Builder
	sb.WriteString("CREATE TABLE " + qualify(schema.Database, schema.TableName) + " (\n")

	cols := make([]string, 0, len(schema.Columns))
	for _, name := range schema.Columns {
		pv := schema.PropertyMappings[name]
		cols = append(cols, "  "+quoteIdent(name)+" "+pv.DType)
	}
	sb.WriteString(strings.Join(cols, ",\n"))
	sb.WriteString("\n) ENGINE = " + engineOrDefault(schema.Engine))
	sb.WriteString("\nORDER BY (" + joinIdents(schema.PrimaryKey) + ")")
	return sb.String()
}

// GenerateRelTableDDL renders the MergeTree CREATE TABLE statement for a
// registered relationship schema, plus, when requested, its ADJ INDEX
// companion tables (spec.md §4.6: "*_outgoing"/"*_incoming"
// AggregatingMergeTree tables with bitmap aggregate columns and their
// materialized views").
func GenerateRelTableDDL(schema *catalog.RelationshipSchema, adjIndex bool) []string {
	var sb strings.Builder
	sb.WriteString("CREATE TABLE " + qualify(schema.Database, schema.TableName) + " (\n")

	cols := make([]string, 0, len(schema.Columns))
	for _, name := range schema.Columns {
		dtype := "String"
		switch name {
		case schema.FromID:
			dtype = schema.FromNodeIDDType
		case schema.ToID:
			dtype = schema.ToNodeIDDType
		default:
			if pv, ok := schema.PropertyMappings[name]; ok {
				dtype = pv.DType
			}
		}
		cols = append(cols, "  "+quoteIdent(name)+" "+dtype)
	}
	sb.WriteString(strings.Join(cols, ",\n"))
	sb.WriteString("\n) ENGINE = MergeTree")
	sb.WriteString("\nORDER BY (" + joinIdents(schema.PrimaryKey) + ")")

	statements := []string{sb.String()}
	if adjIndex {
		statements = append(statements, adjIndexTables(schema)...)
	}
	return statements
}

func engineOrDefault(engine string) string {
	if engine == "" {
		return "MergeTree"
	}
	return engine
}

func joinIdents(names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = quoteIdent(n)
	}
	return strings.Join(quoted, ", ")
}

// adjIndexTables emits one AggregatingMergeTree companion table plus
// materialized view per direction (outgoing, grouped by the FROM column;
// incoming, grouped by the TO column), each aggregating the opposite
// endpoint's ids into a bitmap via groupBitmapState so a later adjacency
// lookup reads one compact row instead of scanning the edge table
// (spec.md §6.2's groupBitmap/groupBitmapState/bitmapToArray family).
//
// adjacencyRowIDs documents, for any test that wants to assert the exact
// id set one of these bitmap columns would aggregate without executing
// SQL, how the Go-side row-id payload is modeled: a roaring.Bitmap keyed
// by the opposite endpoint's decoded row id (SPEC_FULL.md §4.6).
func adjIndexTables(schema *catalog.RelationshipSchema) []string {
	base := schema.TableName
	outgoing := base + "_outgoing"
	incoming := base + "_incoming"

	outTable := "CREATE TABLE " + qualify(schema.Database, outgoing) + " (\n" +
		"  " + quoteIdent(schema.FromID) + " " + schema.FromNodeIDDType + ",\n" +
		"  " + quoteIdent("to_ids") + " AggregateFunction(groupBitmap, " + schema.ToNodeIDDType + ")\n" +
		") ENGINE = AggregatingMergeTree\nORDER BY (" + quoteIdent(schema.FromID) + ")"

	outMV := "CREATE MATERIALIZED VIEW " + qualify(schema.Database, outgoing+"_mv") +
		" TO " + qualify(schema.Database, outgoing) + " AS\n" +
		"SELECT " + quoteIdent(schema.FromID) + ", groupBitmapState(" + quoteIdent(schema.ToID) + ") AS to_ids\n" +
		"FROM " + qualify(schema.Database, base) + "\nGROUP BY " + quoteIdent(schema.FromID)

	inTable := "CREATE TABLE " + qualify(schema.Database, incoming) + " (\n" +
		"  " + quoteIdent(schema.ToID) + " " + schema.ToNodeIDDType + ",\n" +
		"  " + quoteIdent("from_ids") + " AggregateFunction(groupBitmap, " + schema.FromNodeIDDType + ")\n" +
		") ENGINE = AggregatingMergeTree\nORDER BY (" + quoteIdent(schema.ToID) + ")"

	inMV := "CREATE MATERIALIZED VIEW " + qualify(schema.Database, incoming+"_mv") +
		" TO " + qualify(schema.Database, incoming) + " AS\n" +
		"SELECT " + quoteIdent(schema.ToID) + ", groupBitmapState(" + quoteIdent(schema.FromID) + ") AS from_ids\n" +
		"FROM " + qualify(schema.Database, base) + "\nGROUP BY " + quoteIdent(schema.ToID)

	return []string{outTable, outMV, inTable, inMV}
}

// adjacencyRowIDs is the pure Go-side model described above: the set of
// row ids a groupBitmapState(to_id) aggregate would hold for one
// from_id group, expressed as a roaring.Bitmap rather than executed SQL.
// Exercised by sqlgen_test.go; never read by the generator itself.
func adjacencyRowIDs(rowIDs []uint32) *roaring.Bitmap {
	bm := roaring.New()
	for _, id := range rowIDs {
		bm.Add(id)
	}
	return bm
}
