package query

import (
	"github.com/apache/arrow/go/v17/arrow"
	"github.com/flarco/g"
	"github.com/slingdata-io/sling-federation/core/dbio"
	"github.com/slingdata-io/sling-federation/core/dbio/constraint"
)

// Scope is the effective FROM target of a query
type Scope struct {
	Catalog   string
	Schema    string
	Table     string
	Partition string // rendered with core.table_partition when set
}

// Dialect is the capability record of a SQL flavor. The generic builder
// consults it for everything that varies between databases.
type Dialect struct {
	Type          dbio.Type
	Template      dbio.Template
	QuoteChar     string
	SupportsLimit bool

	// PartitionKeys are the split properties the dialect understands
	PartitionKeys []string

	// ProjectField renders one projected column. charColumns holds the
	// CHAR typed columns when the dialect uses a side lookup.
	ProjectField func(d Dialect, field arrow.Field, charColumns map[string]bool) string

	// PartitionConjuncts returns WHERE fragments scoping the query to a split
	PartitionConjuncts func(d Dialect, split constraint.Split) []string

	// PartitionScope adjusts the FROM target for a split
	PartitionScope func(d Dialect, scope Scope, split constraint.Split) Scope

	// UsesCharLookup is true when ProjectField needs CHAR column names
	UsesCharLookup bool
}

// NewDialect loads the template of the type and wires the capability
// functions registered for it.
func NewDialect(t dbio.Type) (d Dialect, err error) {
	template, err := t.Template()
	if err != nil {
		return d, g.Error(err, "could not load template for %s", t)
	}

	d = Dialect{
		Type:               t,
		Template:           template,
		QuoteChar:          template.QuoteChar(),
		SupportsLimit:      template.SupportsLimit(),
		ProjectField:       projectQuoted,
		PartitionConjuncts: noPartitionConjuncts,
		PartitionScope:     samePartitionScope,
	}

	switch t {
	case dbio.TypeDbPostgres:
		d.ProjectField = projectCharTrimmed
		d.UsesCharLookup = true
		d.PartitionKeys = []string{KeyPartitionSchemaName, KeyPartitionName}
		d.PartitionScope = postgresPartitionScope
	case dbio.TypeDbRedshift:
		d.ProjectField = projectCharTrimmed
		d.UsesCharLookup = true
	case dbio.TypeDbSapHana:
		d.ProjectField = projectSpatial
		d.PartitionKeys = []string{KeyPartID}
		d.PartitionScope = namedPartitionScope(KeyPartID)
	case dbio.TypeDbOracle:
		d.PartitionKeys = []string{KeyPartitionNameUpper}
		d.PartitionScope = namedPartitionScope(KeyPartitionNameUpper)
	case dbio.TypeDbMySQL:
		d.PartitionKeys = []string{KeyPartitionName}
		d.PartitionScope = namedPartitionScope(KeyPartitionName)
	case dbio.TypeDbImpala, dbio.TypeDbHive:
		d.PartitionKeys = []string{KeyPartition}
		d.PartitionConjuncts = literalPartitionConjuncts
	case dbio.TypeDbSQLServer:
		d.PartitionKeys = []string{KeyPartitionFunction, KeyPartitioningColumn, KeyPartitionNumber}
		d.PartitionConjuncts = sqlServerPartitionConjuncts
	case dbio.TypeDbSynapse:
		d.PartitionKeys = []string{KeyPartitionColumn, KeyPartitionBoundaryFrom, KeyPartitionBoundaryTo}
		d.PartitionConjuncts = synapsePartitionConjuncts
	case dbio.TypeDbDB2:
		d.PartitionKeys = []string{KeyPartitioningColumn, KeyPartitionNumber}
		d.PartitionConjuncts = db2PartitionConjuncts
	}

	return d, nil
}

// Quote quotes an identifier the dialect way
func (d Dialect) Quote(field string) string {
	return d.Type.Quote(field)
}

// Core returns the core SQL template at key
func (d Dialect) Core(key string) string {
	return d.Template.Core[key]
}

// AllPartitions is the split value meaning "no partition filter"
func (d Dialect) AllPartitions() string {
	return d.Template.Variable["all_partitions"]
}

// SQLType returns the dialect SQL type for an arrow type, used by casts
func (d Dialect) SQLType(t arrow.DataType) (string, bool) {
	if t == nil {
		return "", false
	}
	name := t.Name()
	if t.ID() == arrow.DECIMAL128 || t.ID() == arrow.DECIMAL256 {
		name = "decimal"
	}
	sqlType, ok := d.Template.GeneralTypeMap[name]
	return sqlType, ok && sqlType != ""
}
