package query

import (
	"github.com/flarco/g"
	"github.com/slingdata-io/sling-federation/core/dbio/constraint"
)

// split property keys
const (
	KeyPartition             = "partition"
	KeyPartitionName         = "partition_name"
	KeyPartitionSchemaName   = "partition_schema_name"
	KeyPartitionNameUpper    = "PARTITION_NAME"
	KeyPartID                = "PART_ID"
	KeyPartitionFunction     = "PARTITION_FUNCTION"
	KeyPartitioningColumn    = "PARTITIONING_COLUMN"
	KeyPartitionNumber       = "PARTITION_NUMBER"
	KeyPartitionColumn       = "PARTITION_COLUMN"
	KeyPartitionBoundaryFrom = "PARTITION_BOUNDARY_FROM"
	KeyPartitionBoundaryTo   = "PARTITION_BOUNDARY_TO"
)

func noPartitionConjuncts(d Dialect, split constraint.Split) []string { return nil }

func samePartitionScope(d Dialect, scope Scope, split constraint.Split) Scope { return scope }

// literalPartitionConjuncts uses the partition property as a raw predicate
func literalPartitionConjuncts(d Dialect, split constraint.Split) []string {
	partition := split.Property(KeyPartition)
	if partition == "" || partition == d.AllPartitions() {
		return nil
	}
	return []string{partition}
}

func sqlServerPartitionConjuncts(d Dialect, split constraint.Split) []string {
	function := split.Property(KeyPartitionFunction)
	column := split.Property(KeyPartitioningColumn)
	number := split.Property(KeyPartitionNumber)
	if function == "" || column == "" || number == "" || number == d.AllPartitions() {
		return nil
	}
	return []string{g.F(" $PARTITION.%s(%s) = %s", function, column, number)}
}

// synapsePartitionConjuncts scopes by a range partition boundary, (from, to]
func synapsePartitionConjuncts(d Dialect, split constraint.Split) []string {
	column := split.Property(KeyPartitionColumn)
	from := split.Property(KeyPartitionBoundaryFrom)
	to := split.Property(KeyPartitionBoundaryTo)
	if column == "" {
		return nil
	}

	switch {
	case from != "" && to != "":
		return []string{g.F("%s > %s and %s <= %s", column, from, column, to)}
	case to != "":
		return []string{g.F("%s <= %s", column, to)}
	case from != "":
		return []string{g.F("%s > %s", column, from)}
	}
	return nil
}

// db2PartitionConjuncts keeps the leading space; conjuncts are trimmed on join
func db2PartitionConjuncts(d Dialect, split constraint.Split) []string {
	column := split.Property(KeyPartitioningColumn)
	number := split.Property(KeyPartitionNumber)
	if column == "" || number == "" {
		return nil
	}
	return []string{g.F(" DATAPARTITIONNUM(%s) = %s", column, number)}
}

// namedPartitionScope reads a partition name from the split key and selects
// from that partition only
func namedPartitionScope(key string) func(d Dialect, scope Scope, split constraint.Split) Scope {
	return func(d Dialect, scope Scope, split constraint.Split) Scope {
		partition := split.Property(key)
		if partition == "" || partition == d.AllPartitions() {
			return scope
		}
		scope.Partition = partition
		return scope
	}
}

// postgresPartitionScope reads a child table directly
func postgresPartitionScope(d Dialect, scope Scope, split constraint.Split) Scope {
	name := split.Property(KeyPartitionName)
	if name == "" || name == d.AllPartitions() {
		return scope
	}
	if schema := split.Property(KeyPartitionSchemaName); schema != "" {
		scope.Schema = schema
	}
	scope.Table = name
	return scope
}
