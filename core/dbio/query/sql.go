package query

import (
	"strings"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/flarco/g"
	"github.com/slingdata-io/sling-federation/core/dbio/constraint"
)

// Input is everything needed to render the query of one split
type Input struct {
	Catalog     string
	Table       constraint.TableName
	Schema      *arrow.Schema
	Constraints constraint.Constraints
	Split       constraint.Split
}

// BuildSQL renders the SELECT statement of a split and its bind parameters,
// or returns the passthrough query as is.
func BuildSQL(q QueryBuilder, input Input) (sql string, params []constraint.TypeAndValue, err error) {
	if input.Constraints.IsQueryPassthrough() {
		return PassthroughSQL(input.Constraints)
	}

	q = q.WithCatalog(input.Catalog).
		WithTableName(input.Table).
		WithProjection(input.Schema, input.Split)

	q, err = q.WithConjuncts(input.Schema, input.Constraints, input.Split)
	if err != nil {
		return "", nil, g.Error(err, "could not build conjuncts for %s", input.Table)
	}

	q = q.WithOrderByClause(input.Constraints).WithLimitClause(input.Constraints)

	sql, params, err = q.Build()
	if err != nil {
		return "", nil, g.Error(err, "could not build query for %s", input.Table)
	}

	g.Debug("%s split query: %s (%d params)", q.Dialect().Type, sql, len(params))
	return sql, params, nil
}

// PassthroughSQL returns the native query supplied with the constraints
func PassthroughSQL(constraints constraint.Constraints) (string, []constraint.TypeAndValue, error) {
	args := constraints.QueryPassthroughArgs()
	sql := args[constraint.PassthroughQuery]
	if strings.TrimSpace(sql) == "" {
		return "", nil, g.Error("query passthrough requires a %s argument", constraint.PassthroughQuery)
	}

	if function := args[constraint.PassthroughSchemaFunction]; function != "" {
		g.Debug("query passthrough through %s", function)
	}
	return sql, nil, nil
}
