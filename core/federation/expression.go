package federation

import (
	"github.com/apache/arrow/go/v17/arrow"
	"github.com/flarco/g"
	"github.com/slingdata-io/sling-federation/core/dbio/constraint"
)

// ExpressionSpec is one node of a federation expression. A node with a
// Function is a call, one with a Column a variable, anything else a constant.
type ExpressionSpec struct {
	Function  string           `json:"function,omitempty" yaml:"function,omitempty"`
	Column    string           `json:"column,omitempty" yaml:"column,omitempty"`
	Type      string           `json:"type,omitempty" yaml:"type,omitempty"`
	Values    []any            `json:"values,omitempty" yaml:"values,omitempty"`
	Arguments []ExpressionSpec `json:"arguments,omitempty" yaml:"arguments,omitempty"`
}

func (es ExpressionSpec) expression(schema *arrow.Schema) (constraint.Expression, error) {
	switch {
	case es.Function != "":
		function, err := constraint.ParseFunctionName(es.Function)
		if err != nil {
			return nil, err
		}

		typ, err := es.dataType(arrow.FixedWidthTypes.Boolean)
		if err != nil {
			return nil, err
		}

		args := make([]constraint.Expression, len(es.Arguments))
		for i, argSpec := range es.Arguments {
			if args[i], err = argSpec.expression(schema); err != nil {
				return nil, g.Error(err, "invalid argument %d of %s", i+1, function)
			}
		}
		return constraint.Call(typ, function, args...), nil

	case es.Column != "":
		field, ok := lookupField(schema, es.Column)
		if !ok {
			typ, err := es.dataType(nil)
			if err != nil || typ == nil {
				return nil, g.Error("expression on unknown column: %s", es.Column)
			}
			return constraint.Variable(es.Column, typ), nil
		}
		return constraint.Variable(es.Column, field.Type), nil
	}

	typ, err := es.dataType(nil)
	if err != nil {
		return nil, err
	} else if typ == nil {
		return nil, g.Error("constant expression needs a type")
	}

	values, err := CoerceValues(typ, es.Values)
	if err != nil {
		return nil, err
	} else if len(values) == 0 {
		return nil, g.Error("constant expression has no values")
	}
	return constraint.Constant(typ, values...), nil
}

func (es ExpressionSpec) dataType(fallback arrow.DataType) (arrow.DataType, error) {
	if es.Type == "" {
		return fallback, nil
	}
	return ParseArrowType(es.Type)
}
