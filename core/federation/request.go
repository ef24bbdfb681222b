package federation

import (
	"os"
	"strings"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/flarco/g"
	"github.com/samber/lo"
	"github.com/slingdata-io/sling-federation/core/dbio"
	"github.com/slingdata-io/sling-federation/core/dbio/constraint"
	"github.com/slingdata-io/sling-federation/core/dbio/query"
	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"
)

// Request describes the read of one split, as found in a request file
type Request struct {
	Dialect     string          `json:"dialect" yaml:"dialect"`
	Catalog     string          `json:"catalog,omitempty" yaml:"catalog,omitempty"`
	Schema      string          `json:"schema,omitempty" yaml:"schema,omitempty"`
	Table       string          `json:"table" yaml:"table"`
	Fields      []Field         `json:"fields" yaml:"fields"`
	Split       map[string]any  `json:"split,omitempty" yaml:"split,omitempty"`
	Constraints ConstraintsSpec `json:"constraints,omitempty" yaml:"constraints,omitempty"`
	Throttle    map[string]any  `json:"throttle,omitempty" yaml:"throttle,omitempty"`
}

// Field is a projected column and its arrow type name
type Field struct {
	Name     string  `json:"name" yaml:"name"`
	Type     string  `json:"type" yaml:"type"`
	Children []Field `json:"children,omitempty" yaml:"children,omitempty"`
}

type ConstraintsSpec struct {
	Columns     map[string]ValueSetSpec `json:"columns,omitempty" yaml:"columns,omitempty"`
	OrderBy     []OrderBySpec           `json:"order_by,omitempty" yaml:"order_by,omitempty"`
	Limit       int64                   `json:"limit,omitempty" yaml:"limit,omitempty"`
	Passthrough map[string]string       `json:"passthrough,omitempty" yaml:"passthrough,omitempty"`
	Expressions []ExpressionSpec        `json:"expressions,omitempty" yaml:"expressions,omitempty"`
}

// ValueSetSpec is the accepted values of one column. All and None describe
// the all-or-none sets; otherwise Values and Ranges are merged.
type ValueSetSpec struct {
	NullAllowed bool        `json:"null_allowed,omitempty" yaml:"null_allowed,omitempty"`
	All         bool        `json:"all,omitempty" yaml:"all,omitempty"`
	None        bool        `json:"none,omitempty" yaml:"none,omitempty"`
	Values      []any       `json:"values,omitempty" yaml:"values,omitempty"`
	Ranges      []RangeSpec `json:"ranges,omitempty" yaml:"ranges,omitempty"`
}

// RangeSpec bounds a range, a missing side is unbounded
type RangeSpec struct {
	GreaterThan        any `json:"gt,omitempty" yaml:"gt,omitempty"`
	GreaterThanOrEqual any `json:"gte,omitempty" yaml:"gte,omitempty"`
	LessThan           any `json:"lt,omitempty" yaml:"lt,omitempty"`
	LessThanOrEqual    any `json:"lte,omitempty" yaml:"lte,omitempty"`
}

type OrderBySpec struct {
	Column    string `json:"column" yaml:"column"`
	Direction string `json:"direction,omitempty" yaml:"direction,omitempty"`
}

// LoadRequestFromFile reads a YAML or JSON request file
func LoadRequestFromFile(path string) (req *Request, err error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, g.Error(err, "could not read request file: %s", path)
	}

	req, err = LoadRequest(string(content))
	if err != nil {
		return nil, g.Error(err, "could not load request file: %s", path)
	}
	return req, nil
}

// LoadRequest parses YAML or JSON content, expanding environment variables
func LoadRequest(content string) (req *Request, err error) {
	req = &Request{}
	err = yaml.Unmarshal([]byte(os.ExpandEnv(content)), req)
	if err != nil {
		return nil, g.Error(err, "Error parsing yaml content")
	}
	return req, nil
}

// Type returns the dialect of the request
func (r *Request) Type() (dbio.Type, error) {
	t, ok := dbio.ValidateType(strings.ToLower(strings.TrimSpace(r.Dialect)))
	if !ok {
		return dbio.TypeUnknown, g.Error("unsupported dialect: %s", r.Dialect)
	}
	return t, nil
}

// ThrottleConfig returns the throttle settings as a config map
func (r *Request) ThrottleConfig() map[string]string {
	return lo.MapValues(r.Throttle, func(v any, _ string) string { return cast.ToString(v) })
}

// Parse converts the request into the input of a split query
func (r *Request) Parse() (t dbio.Type, input query.Input, err error) {
	if t, err = r.Type(); err != nil {
		return
	}

	if strings.TrimSpace(r.Table) == "" {
		return t, input, g.Error("request has no table")
	}

	schema, err := r.ArrowSchema()
	if err != nil {
		return t, input, g.Error(err, "invalid fields")
	}

	constraints, err := r.Constraints.parse(schema)
	if err != nil {
		return t, input, g.Error(err, "invalid constraints")
	}

	input = query.Input{
		Catalog:     r.Catalog,
		Table:       constraint.TableName{Schema: r.Schema, Name: r.Table},
		Schema:      schema,
		Constraints: constraints,
		Split:       constraint.NewSplit(lo.MapValues(r.Split, func(v any, _ string) string { return cast.ToString(v) })),
	}
	return t, input, nil
}

// ArrowSchema builds the schema of the projected fields
func (r *Request) ArrowSchema() (*arrow.Schema, error) {
	fields, err := toArrowFields(r.Fields)
	if err != nil {
		return nil, err
	}
	return arrow.NewSchema(fields, nil), nil
}

func toArrowFields(specs []Field) (fields []arrow.Field, err error) {
	fields = make([]arrow.Field, len(specs))
	for i, spec := range specs {
		if spec.Name == "" {
			return nil, g.Error("field %d has no name", i+1)
		}

		children, err := toArrowFields(spec.Children)
		if err != nil {
			return nil, g.Error(err, "invalid children of %s", spec.Name)
		}

		typ, err := ParseArrowType(spec.Type, children...)
		if err != nil {
			return nil, g.Error(err, "invalid type of %s", spec.Name)
		}
		fields[i] = arrow.Field{Name: spec.Name, Type: typ, Nullable: true}
	}
	return fields, nil
}

func (cs ConstraintsSpec) parse(schema *arrow.Schema) (c constraint.Constraints, err error) {
	summary := map[string]constraint.ValueSet{}
	for column, spec := range cs.Columns {
		field, ok := lookupField(schema, column)
		if !ok {
			return c, g.Error("constraint on unknown column: %s", column)
		}

		summary[column], err = spec.valueSet(field.Type)
		if err != nil {
			return c, g.Error(err, "invalid value set of %s", column)
		}
	}

	orderBy := make([]constraint.OrderByField, len(cs.OrderBy))
	for i, ob := range cs.OrderBy {
		direction, err := constraint.ParseDirection(ob.Direction)
		if err != nil {
			return c, g.Error(err, "invalid order by of %s", ob.Column)
		}
		orderBy[i] = constraint.OrderByField{ColumnName: ob.Column, Direction: direction}
	}

	expressions := make([]constraint.Expression, len(cs.Expressions))
	for i, spec := range cs.Expressions {
		if expressions[i], err = spec.expression(schema); err != nil {
			return c, g.Error(err, "invalid expression %d", i+1)
		}
	}

	options := []constraint.ConstraintsOption{
		constraint.WithOrderBy(orderBy...),
		constraint.WithExpressions(expressions...),
		constraint.WithQueryPassthrough(cs.Passthrough),
	}
	if cs.Limit > 0 {
		options = append(options, constraint.WithLimit(cs.Limit))
	}

	return constraint.NewConstraints(summary, options...), nil
}

func (vs ValueSetSpec) valueSet(typ arrow.DataType) (constraint.ValueSet, error) {
	if vs.All && vs.None {
		return nil, g.Error("value set cannot be both all and none")
	}
	if vs.All || vs.None {
		return constraint.NewAllOrNoneValueSet(typ, vs.All, vs.NullAllowed), nil
	}

	values, err := CoerceValues(typ, vs.Values)
	if err != nil {
		return nil, err
	}
	ranges := lo.Map(values, func(v any, _ int) constraint.Range { return constraint.Equal(v) })

	for _, rs := range vs.Ranges {
		r, err := rs.toRange(typ)
		if err != nil {
			return nil, err
		}
		ranges = append(ranges, r)
	}

	return constraint.NewSortedRangeSet(typ, vs.NullAllowed, ranges...)
}

func (rs RangeSpec) toRange(typ arrow.DataType) (r constraint.Range, err error) {
	if rs.GreaterThan != nil && rs.GreaterThanOrEqual != nil {
		return r, g.Error("range cannot have both gt and gte")
	}
	if rs.LessThan != nil && rs.LessThanOrEqual != nil {
		return r, g.Error("range cannot have both lt and lte")
	}

	marker := func(val any, bound func(any) constraint.Marker) (constraint.Marker, error) {
		v, err := CoerceValue(typ, val)
		if err != nil {
			return constraint.Marker{}, err
		}
		return bound(v), nil
	}

	low, high := constraint.LowerUnbounded(), constraint.UpperUnbounded()
	switch {
	case rs.GreaterThan != nil:
		low, err = marker(rs.GreaterThan, constraint.Above)
	case rs.GreaterThanOrEqual != nil:
		low, err = marker(rs.GreaterThanOrEqual, constraint.Exactly)
	}
	if err != nil {
		return r, err
	}

	switch {
	case rs.LessThan != nil:
		high, err = marker(rs.LessThan, constraint.Below)
	case rs.LessThanOrEqual != nil:
		high, err = marker(rs.LessThanOrEqual, constraint.Exactly)
	}
	if err != nil {
		return r, err
	}

	return constraint.NewRange(low, high)
}

func lookupField(schema *arrow.Schema, name string) (arrow.Field, bool) {
	indices := schema.FieldIndices(name)
	if len(indices) == 0 {
		return arrow.Field{}, false
	}
	return schema.Field(indices[0]), true
}
