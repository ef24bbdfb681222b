package query

import (
	"strings"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/flarco/g"
	"github.com/samber/lo"
	"github.com/slingdata-io/sling-federation/core/dbio/constraint"
	"github.com/spf13/cast"
)

// ColumnLookup finds the fixed width CHAR columns of a table
type ColumnLookup interface {
	CharColumns(schema, table string) ([]string, error)
}

// QueryBuilder assembles a SELECT statement. It is an immutable value:
// every With method returns a new builder and leaves the receiver as is.
type QueryBuilder struct {
	dialect Dialect
	lookup  ColumnLookup

	scope         Scope
	hasTable      bool
	split         constraint.Split
	projection    []string
	hasProjection bool
	conjuncts     []string
	params        []constraint.TypeAndValue
	orderBy       string
	limit         string
}

// Dialect returns the dialect the builder renders for
func (q QueryBuilder) Dialect() Dialect { return q.dialect }

// WithCatalog sets the outermost FROM qualifier, omitted when empty
func (q QueryBuilder) WithCatalog(catalog string) QueryBuilder {
	q.scope.Catalog = catalog
	return q
}

// WithTableName sets the schema and table, already case resolved
func (q QueryBuilder) WithTableName(table constraint.TableName) QueryBuilder {
	q.scope.Schema = table.Schema
	q.scope.Table = table.Name
	q.hasTable = true
	return q
}

// WithProjection renders the columns of schema, leaving out any field named
// by a split property.
func (q QueryBuilder) WithProjection(schema *arrow.Schema, split constraint.Split) QueryBuilder {
	fields := []arrow.Field{}
	if schema != nil {
		fields = lo.Filter(schema.Fields(), func(f arrow.Field, i int) bool {
			return !split.Has(f.Name)
		})
	}

	charColumns := map[string]bool{}
	if q.dialect.UsesCharLookup && q.lookup != nil && len(fields) > 0 {
		charColumns = q.charColumns()
	}

	q.split = split
	q.projection = lo.Map(fields, func(f arrow.Field, i int) string {
		return q.dialect.ProjectField(q.dialect, f, charColumns)
	})
	q.hasProjection = true
	return q
}

// charColumns degrades to no CHAR columns when the lookup fails
func (q QueryBuilder) charColumns() map[string]bool {
	columns, err := q.lookup.CharColumns(q.scope.Schema, q.scope.Table)
	if err != nil {
		g.Warn("could not look up CHAR columns of %s.%s, projecting as is: %s", q.scope.Schema, q.scope.Table, err.Error())
		return map[string]bool{}
	}
	g.Trace("CHAR columns of %s.%s: %s", q.scope.Schema, q.scope.Table, g.Marshal(columns))
	return lo.SliceToMap(columns, func(c string) (string, bool) { return c, true })
}

// WithConjuncts builds the WHERE conjuncts: column predicates first, then
// federation expressions, then partition clauses of the split.
func (q QueryBuilder) WithConjuncts(schema *arrow.Schema, constraints constraint.Constraints, split constraint.Split) (QueryBuilder, error) {
	pb := newPredicateBuilder(q.dialect)

	conjuncts, err := pb.Conjuncts(schema, constraints, split)
	if err != nil {
		return q, g.Error(err, "could not build predicates")
	}

	expressions, err := pb.ExpressionConjuncts(constraints.Expressions())
	if err != nil {
		return q, g.Error(err, "could not build expression predicates")
	}
	conjuncts = append(conjuncts, expressions...)
	conjuncts = append(conjuncts, q.dialect.PartitionConjuncts(q.dialect, split)...)

	q.conjuncts = conjuncts
	q.params = pb.Params()
	q.split = split
	return q, nil
}

// WithOrderByClause renders ORDER BY in the given field order. Dialects
// without NULLS FIRST/LAST sort on a null indicator first, ordered by null_order.
func (q QueryBuilder) WithOrderByClause(constraints constraint.Constraints) QueryBuilder {
	orderBy := constraints.OrderBy()
	if len(orderBy) == 0 {
		q.orderBy = ""
		return q
	}

	fields := lo.Map(orderBy, func(f constraint.OrderByField, i int) string {
		return g.R(
			q.dialect.Core("order_by_field"),
			"field", q.dialect.Quote(f.ColumnName),
			"direction", lo.Ternary(f.Direction.IsAscending(), "ASC", "DESC"),
			"nulls", lo.Ternary(f.Direction.IsNullsFirst(), "NULLS FIRST", "NULLS LAST"),
			"null_order", lo.Ternary(f.Direction.IsNullsFirst(), "DESC", "ASC"),
		)
	})
	q.orderBy = g.R(q.dialect.Core("order_by"), "fields", strings.Join(fields, ", "))
	return q
}

// WithLimitClause renders the row limit, never for dialects without LIMIT
func (q QueryBuilder) WithLimitClause(constraints constraint.Constraints) QueryBuilder {
	q.limit = ""
	if constraints.HasLimit() && q.dialect.SupportsLimit {
		q.limit = g.R(q.dialect.Core("limit"), "limit", cast.ToString(constraints.Limit()))
	}
	return q
}

// Scope returns the effective FROM target, after partition overrides
func (q QueryBuilder) Scope() Scope {
	return q.dialect.PartitionScope(q.dialect, q.scope, q.split)
}

// Params returns a copy of the bind parameters in placeholder order
func (q QueryBuilder) Params() []constraint.TypeAndValue {
	return append([]constraint.TypeAndValue{}, q.params...)
}

// Build renders the statement. Table name and projection are required.
func (q QueryBuilder) Build() (sql string, params []constraint.TypeAndValue, err error) {
	if !q.hasTable {
		return "", nil, g.Error("table name must be set before building the query")
	} else if !q.hasProjection {
		return "", nil, g.Error("projection must be set before building the query")
	}

	fields := q.dialect.Core("null_projection")
	if len(q.projection) > 0 {
		fields = strings.Join(q.projection, ", ")
	}

	where := ""
	if len(q.conjuncts) > 0 {
		conditions := lo.Map(q.conjuncts, func(c string, i int) string { return strings.TrimSpace(c) })
		where = g.R(q.dialect.Core("where"), "conditions", strings.Join(conditions, " AND "))
	}

	sql = g.R(
		q.dialect.Core("select"),
		"fields", fields,
		"table", q.fromClause(),
		"where", where,
		"order_by", q.orderBy,
		"limit", q.limit,
	)
	g.Trace("built %s query: %s", q.dialect.Type, sql)

	return sql, q.Params(), nil
}

func (q QueryBuilder) fromClause() string {
	scope := q.Scope()
	parts := []string{}
	if scope.Catalog != "" {
		parts = append(parts, q.dialect.Quote(scope.Catalog))
	}
	if scope.Schema != "" {
		parts = append(parts, q.dialect.Quote(scope.Schema))
	}
	parts = append(parts, q.dialect.Quote(scope.Table))

	table := strings.Join(parts, ".")
	if scope.Partition != "" {
		table = g.R(q.dialect.Core("table_partition"), "table", table, "partition", scope.Partition)
	}
	return table
}
