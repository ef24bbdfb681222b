package query

import (
	"strings"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/flarco/g"
	"github.com/slingdata-io/sling-federation/core/dbio/constraint"
)

// predicateBuilder turns column value sets into WHERE conjuncts, collecting
// the bind parameters in placeholder order.
type predicateBuilder struct {
	dialect Dialect
	params  []constraint.TypeAndValue
}

func newPredicateBuilder(d Dialect) *predicateBuilder {
	return &predicateBuilder{dialect: d}
}

// Conjuncts returns one conjunct per constrained column of the schema, in
// schema order. Columns named by split properties are skipped.
func (pb *predicateBuilder) Conjuncts(schema *arrow.Schema, constraints constraint.Constraints, split constraint.Split) (conjuncts []string, err error) {
	if schema == nil {
		return nil, nil
	}

	for _, field := range schema.Fields() {
		if split.Has(field.Name) {
			continue
		}

		valueSet, ok := constraints.ValueSet(field.Name)
		if !ok {
			continue
		}

		predicate, err := pb.toPredicate(field, valueSet)
		if err != nil {
			return nil, g.Error(err, "could not build predicate for column %s", field.Name)
		} else if predicate != "" {
			conjuncts = append(conjuncts, predicate)
		}
	}

	return conjuncts, nil
}

// Params returns the collected bind parameters
func (pb *predicateBuilder) Params() []constraint.TypeAndValue {
	return pb.params
}

func (pb *predicateBuilder) toPredicate(field arrow.Field, valueSet constraint.ValueSet) (string, error) {
	column := pb.dialect.Quote(field.Name)

	switch vs := valueSet.(type) {
	case *constraint.SortedRangeSet:
		return pb.rangeSetPredicate(column, field.Type, vs)
	case *constraint.AllOrNoneValueSet:
		switch {
		case vs.AcceptsAllValues() && vs.IsNullAllowed():
			return "", nil
		case vs.AcceptsAllValues():
			return pb.isNotNull(column), nil
		case vs.IsNullAllowed():
			return pb.isNull(column), nil
		}
		return "", g.Error("value set accepts no values: %s", vs)
	}

	return "", g.Error("unsupported value set type %T", valueSet)
}

func (pb *predicateBuilder) rangeSetPredicate(column string, typ arrow.DataType, vs *constraint.SortedRangeSet) (string, error) {
	if vs.IsNone() && vs.IsNullAllowed() {
		return pb.isNull(column), nil
	} else if vs.IsAll() {
		return "", nil
	}

	disjuncts := []string{}
	if vs.IsNullAllowed() {
		disjuncts = append(disjuncts, pb.isNull(column))
	}

	span, err := vs.Span()
	if err != nil {
		return "", g.Error(err, "value set accepts no values")
	}

	ranges := vs.Ranges()
	if !vs.IsNullAllowed() && len(ranges) == 1 && span.IsAll() {
		return pb.isNotNull(column), nil
	}

	singles := []any{}
	for _, r := range ranges {
		if r.IsSingleValue() {
			singles = append(singles, r.Low.Value)
			continue
		}

		rangeConjuncts := []string{}
		if !r.Low.IsLowerUnbounded() {
			switch r.Low.Bound {
			case constraint.BoundAbove:
				rangeConjuncts = append(rangeConjuncts, pb.compare(column, ">", typ, r.Low.Value))
			case constraint.BoundExactly:
				rangeConjuncts = append(rangeConjuncts, pb.compare(column, ">=", typ, r.Low.Value))
			default:
				return "", g.Error("low marker should never use BELOW bound: %s", r)
			}
		}
		if !r.High.IsUpperUnbounded() {
			switch r.High.Bound {
			case constraint.BoundExactly:
				rangeConjuncts = append(rangeConjuncts, pb.compare(column, "<=", typ, r.High.Value))
			case constraint.BoundBelow:
				rangeConjuncts = append(rangeConjuncts, pb.compare(column, "<", typ, r.High.Value))
			default:
				return "", g.Error("high marker should never use ABOVE bound: %s", r)
			}
		}

		if len(rangeConjuncts) == 0 {
			return "", g.Error("range without bounds in constrained value set: %s", r)
		}
		disjuncts = append(disjuncts, g.R(
			pb.dialect.Core("range"),
			"conditions", strings.Join(rangeConjuncts, " AND "),
		))
	}

	switch {
	case len(singles) == 1:
		disjuncts = append(disjuncts, pb.compare(column, "=", typ, singles[0]))
	case len(singles) > 1:
		binds := make([]string, len(singles))
		for i, value := range singles {
			binds[i] = pb.bind(typ, value)
		}
		disjuncts = append(disjuncts, g.R(
			pb.dialect.Core("in_list"),
			"field", column,
			"binds", strings.Join(binds, ","),
		))
	}

	return g.R(
		pb.dialect.Core("disjunction"),
		"conditions", strings.Join(disjuncts, " OR "),
	), nil
}

func (pb *predicateBuilder) isNull(column string) string {
	return g.R(pb.dialect.Core("is_null"), "field", column)
}

func (pb *predicateBuilder) isNotNull(column string) string {
	return g.R(pb.dialect.Core("is_not_null"), "field", column)
}

// compare renders one comparison, timestamps through the dialect date fragment
func (pb *predicateBuilder) compare(column, operator string, typ arrow.DataType, value any) string {
	key := "compare"
	if isTemporal(typ) {
		key = "compare_timestamp"
	}
	return g.R(
		pb.dialect.Core(key),
		"field", column,
		"operator", operator,
		"bind", pb.bind(typ, value),
	)
}

// bind appends the parameter and returns its placeholder
func (pb *predicateBuilder) bind(typ arrow.DataType, value any) string {
	pb.params = append(pb.params, constraint.TypeAndValue{Type: typ, Value: value})
	return pb.dialect.Template.Variable["bind_char"]
}

func isTemporal(typ arrow.DataType) bool {
	if typ == nil {
		return false
	}
	switch typ.ID() {
	case arrow.DATE64, arrow.TIMESTAMP:
		return true
	}
	return false
}
