package constraint

import (
	"strings"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/flarco/g"
	"github.com/samber/lo"
)

// FunctionName is a standard federation function name
type FunctionName string

const (
	FuncAdd                FunctionName = "$add"
	FuncSubtract           FunctionName = "$subtract"
	FuncMultiply           FunctionName = "$multiply"
	FuncDivide             FunctionName = "$divide"
	FuncModulus            FunctionName = "$modulus"
	FuncNegate             FunctionName = "$negate"
	FuncEqual              FunctionName = "$equal"
	FuncNotEqual           FunctionName = "$not_equal"
	FuncLessThan           FunctionName = "$less_than"
	FuncLessThanOrEqual    FunctionName = "$less_than_or_equal"
	FuncGreaterThan        FunctionName = "$greater_than"
	FuncGreaterThanOrEqual FunctionName = "$greater_than_or_equal"
	FuncAnd                FunctionName = "$and"
	FuncOr                 FunctionName = "$or"
	FuncNot                FunctionName = "$not"
	FuncIsNull             FunctionName = "$is_null"
	FuncLikePattern        FunctionName = "$like_pattern"
	FuncIn                 FunctionName = "$in"
	FuncArrayConstructor   FunctionName = "$array_constructor"
	FuncIsDistinctFrom     FunctionName = "$is_distinct_from"
	FuncNullIf             FunctionName = "$nullif"
	FuncCast               FunctionName = "$cast"
)

// FunctionNames lists every standard function name
var FunctionNames = []FunctionName{
	FuncAdd, FuncSubtract, FuncMultiply, FuncDivide, FuncModulus, FuncNegate,
	FuncEqual, FuncNotEqual, FuncLessThan, FuncLessThanOrEqual, FuncGreaterThan,
	FuncGreaterThanOrEqual, FuncAnd, FuncOr, FuncNot, FuncIsNull, FuncLikePattern,
	FuncIn, FuncArrayConstructor, FuncIsDistinctFrom, FuncNullIf, FuncCast,
}

// ParseFunctionName accepts names with or without the leading `$`
func ParseFunctionName(s string) (FunctionName, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	if !strings.HasPrefix(name, "$") {
		name = "$" + name
	}
	if lo.Contains(FunctionNames, FunctionName(name)) {
		return FunctionName(name), nil
	}
	return "", g.Error("unknown federation function: %s", s)
}

// Expression is a node of a federation expression tree
type Expression interface {
	DataType() arrow.DataType
	String() string
}

// ConstantExpression holds one value, or several for IN lists and arrays
type ConstantExpression struct {
	Type   arrow.DataType
	Values []any
}

func Constant(typ arrow.DataType, values ...any) *ConstantExpression {
	return &ConstantExpression{Type: typ, Values: values}
}

func (e *ConstantExpression) DataType() arrow.DataType { return e.Type }

func (e *ConstantExpression) String() string {
	vals := lo.Map(e.Values, func(v any, i int) string { return g.F("%v", v) })
	return g.F("constant(%s)", strings.Join(vals, ","))
}

// VariableExpression references a column
type VariableExpression struct {
	Column string
	Type   arrow.DataType
}

func Variable(column string, typ arrow.DataType) *VariableExpression {
	return &VariableExpression{Column: column, Type: typ}
}

func (e *VariableExpression) DataType() arrow.DataType { return e.Type }

func (e *VariableExpression) String() string { return e.Column }

// FunctionCallExpression applies a standard function to its arguments
type FunctionCallExpression struct {
	Type      arrow.DataType
	Function  FunctionName
	Arguments []Expression
}

func Call(typ arrow.DataType, function FunctionName, args ...Expression) *FunctionCallExpression {
	return &FunctionCallExpression{Type: typ, Function: function, Arguments: args}
}

func (e *FunctionCallExpression) DataType() arrow.DataType { return e.Type }

func (e *FunctionCallExpression) String() string {
	args := lo.Map(e.Arguments, func(a Expression, i int) string { return a.String() })
	return g.F("%s(%s)", e.Function, strings.Join(args, ", "))
}
