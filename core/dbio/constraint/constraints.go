package constraint

import (
	"sort"
	"strings"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/flarco/g"
	"github.com/samber/lo"
)

// NoLimit is the limit sentinel meaning "no row limit"
const NoLimit int64 = -1

// query passthrough argument keys
const (
	PassthroughQuery          = "QUERY"
	PassthroughSchemaFunction = "SCHEMA_FUNCTION_NAME"
)

// Direction encodes ASC/DESC and NULLS FIRST/LAST
type Direction string

const (
	AscNullsFirst  Direction = "ASC_NULLS_FIRST"
	AscNullsLast   Direction = "ASC_NULLS_LAST"
	DescNullsFirst Direction = "DESC_NULLS_FIRST"
	DescNullsLast  Direction = "DESC_NULLS_LAST"
)

// ParseDirection accepts ASC_NULLS_FIRST style names, or a bare ASC / DESC
// which default to NULLS LAST and NULLS FIRST respectively
func ParseDirection(s string) (Direction, error) {
	d := Direction(strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(s), " ", "_")))
	switch d {
	case AscNullsFirst, AscNullsLast, DescNullsFirst, DescNullsLast:
		return d, nil
	case "ASC", "":
		return AscNullsLast, nil
	case "DESC":
		return DescNullsFirst, nil
	}
	return AscNullsLast, g.Error("invalid order direction: %s", s)
}

func (d Direction) IsAscending() bool { return strings.HasPrefix(string(d), "ASC") }

func (d Direction) IsNullsFirst() bool { return strings.HasSuffix(string(d), "NULLS_FIRST") }

// OrderByField is one ORDER BY item
type OrderByField struct {
	ColumnName string    `json:"column" yaml:"column"`
	Direction  Direction `json:"direction" yaml:"direction"`
}

// Constraints is an immutable snapshot of the pushed-down query shape
type Constraints struct {
	summary     map[string]ValueSet
	expressions []Expression
	orderBy     []OrderByField
	limit       int64
	passthrough map[string]string
}

type ConstraintsOption func(*Constraints)

func WithOrderBy(fields ...OrderByField) ConstraintsOption {
	return func(c *Constraints) { c.orderBy = append([]OrderByField{}, fields...) }
}

func WithLimit(limit int64) ConstraintsOption {
	return func(c *Constraints) { c.limit = limit }
}

func WithExpressions(exprs ...Expression) ConstraintsOption {
	return func(c *Constraints) { c.expressions = append([]Expression{}, exprs...) }
}

func WithQueryPassthrough(args map[string]string) ConstraintsOption {
	return func(c *Constraints) {
		c.passthrough = map[string]string{}
		for k, v := range args {
			c.passthrough[k] = v
		}
	}
}

// NewConstraints copies the summary so later changes by the caller are not seen
func NewConstraints(summary map[string]ValueSet, options ...ConstraintsOption) Constraints {
	c := Constraints{summary: map[string]ValueSet{}, limit: NoLimit}
	for k, v := range summary {
		c.summary[k] = v
	}
	for _, option := range options {
		option(&c)
	}
	return c
}

// ValueSet returns the value set for the column, if any
func (c Constraints) ValueSet(column string) (ValueSet, bool) {
	vs, ok := c.summary[column]
	return vs, ok && vs != nil
}

// Columns returns the constrained column names, sorted
func (c Constraints) Columns() []string {
	cols := lo.Keys(c.summary)
	sort.Strings(cols)
	return cols
}

func (c Constraints) Expressions() []Expression { return append([]Expression{}, c.expressions...) }

func (c Constraints) OrderBy() []OrderByField { return append([]OrderByField{}, c.orderBy...) }

func (c Constraints) Limit() int64 { return c.limit }

// HasLimit is false for the NoLimit sentinel (or any non-positive limit)
func (c Constraints) HasLimit() bool { return c.limit > 0 }

func (c Constraints) IsQueryPassthrough() bool { return len(c.passthrough) > 0 }

func (c Constraints) QueryPassthroughArgs() map[string]string {
	args := map[string]string{}
	for k, v := range c.passthrough {
		args[k] = v
	}
	return args
}

// Split is a partition descriptor: an opaque map of string properties
type Split struct {
	properties map[string]string
}

func NewSplit(properties map[string]string) Split {
	s := Split{properties: map[string]string{}}
	for k, v := range properties {
		s.properties[k] = v
	}
	return s
}

// Property returns the property value, empty if absent
func (s Split) Property(key string) string { return s.properties[key] }

func (s Split) Lookup(key string) (string, bool) {
	val, ok := s.properties[key]
	return val, ok
}

func (s Split) Has(key string) bool {
	_, ok := s.properties[key]
	return ok
}

func (s Split) Properties() map[string]string {
	props := map[string]string{}
	for k, v := range s.properties {
		props[k] = v
	}
	return props
}

// TableName is a schema + table identity, case already resolved
type TableName struct {
	Schema string `json:"schema" yaml:"schema"`
	Name   string `json:"name" yaml:"name"`
}

func (t TableName) String() string {
	if t.Schema == "" {
		return t.Name
	}
	return t.Schema + "." + t.Name
}

// TypeAndValue is one positional parameter binding
type TypeAndValue struct {
	Type  arrow.DataType
	Value any
}

func (tv TypeAndValue) String() string {
	if tv.Type == nil {
		return g.F("%v", tv.Value)
	}
	return g.F("%s=%v", tv.Type, tv.Value)
}
