package query

import (
	"strings"

	"github.com/flarco/g"
	"github.com/samber/lo"
	"github.com/slingdata-io/sling-federation/core/dbio/constraint"
)

var binaryOperators = map[constraint.FunctionName]string{
	constraint.FuncAdd:                "+",
	constraint.FuncSubtract:           "-",
	constraint.FuncMultiply:           "*",
	constraint.FuncDivide:             "/",
	constraint.FuncModulus:            "%",
	constraint.FuncEqual:              "=",
	constraint.FuncNotEqual:           "<>",
	constraint.FuncLessThan:           "<",
	constraint.FuncLessThanOrEqual:    "<=",
	constraint.FuncGreaterThan:        ">",
	constraint.FuncGreaterThanOrEqual: ">=",
	constraint.FuncLikePattern:        "LIKE",
	constraint.FuncIsDistinctFrom:     "IS DISTINCT FROM",
}

// ExpressionConjuncts translates federation expressions into WHERE
// conjuncts, appending constants as bind parameters left to right.
func (pb *predicateBuilder) ExpressionConjuncts(exprs []constraint.Expression) (conjuncts []string, err error) {
	for _, expr := range exprs {
		sql, err := pb.expression(expr)
		if err != nil {
			return nil, g.Error(err, "could not translate expression %s", expr)
		}
		conjuncts = append(conjuncts, sql)
	}
	return
}

func (pb *predicateBuilder) expression(expr constraint.Expression) (string, error) {
	switch e := expr.(type) {
	case *constraint.ConstantExpression:
		if len(e.Values) == 0 {
			return "", g.Error("constant without value")
		}
		binds := lo.Map(e.Values, func(v any, i int) string { return pb.bind(e.Type, v) })
		return strings.Join(binds, ","), nil
	case *constraint.VariableExpression:
		return pb.dialect.Quote(e.Column), nil
	case *constraint.FunctionCallExpression:
		return pb.functionCall(e)
	case nil:
		return "", g.Error("nil expression")
	}
	return "", g.Error("unsupported expression type %T", expr)
}

func (pb *predicateBuilder) functionCall(call *constraint.FunctionCallExpression) (string, error) {
	args, err := pb.arguments(call)
	if err != nil {
		return "", err
	}

	argCount := func(n int) error {
		if len(args) != n {
			return g.Error("%s expects %d arguments, got %d", call.Function, n, len(args))
		}
		return nil
	}

	if operator, ok := binaryOperators[call.Function]; ok {
		if err = argCount(2); err != nil {
			return "", err
		}
		return g.F("(%s %s %s)", args[0], operator, args[1]), nil
	}

	switch call.Function {
	case constraint.FuncAnd, constraint.FuncOr:
		if len(args) < 2 {
			return "", g.Error("%s expects at least 2 arguments, got %d", call.Function, len(args))
		}
		operator := lo.Ternary(call.Function == constraint.FuncAnd, " AND ", " OR ")
		return "(" + strings.Join(args, operator) + ")", nil
	case constraint.FuncNegate:
		if err = argCount(1); err != nil {
			return "", err
		}
		return g.F("(-%s)", args[0]), nil
	case constraint.FuncNot:
		if err = argCount(1); err != nil {
			return "", err
		}
		return g.F("(NOT %s)", args[0]), nil
	case constraint.FuncIsNull:
		if err = argCount(1); err != nil {
			return "", err
		}
		return g.F("(%s IS NULL)", args[0]), nil
	case constraint.FuncNullIf:
		if err = argCount(2); err != nil {
			return "", err
		}
		return g.F("(NULLIF(%s, %s))", args[0], args[1]), nil
	case constraint.FuncArrayConstructor:
		return "(" + strings.Join(args, ", ") + ")", nil
	case constraint.FuncIn:
		if err = argCount(2); err != nil {
			return "", err
		}
		list := args[1]
		if !strings.HasPrefix(list, "(") {
			list = "(" + list + ")"
		}
		return g.F("(%s IN %s)", args[0], list), nil
	case constraint.FuncCast:
		if err = argCount(1); err != nil {
			return "", err
		}
		sqlType, ok := pb.dialect.SQLType(call.Type)
		if !ok {
			return "", g.Error("no %s type mapping for %s", pb.dialect.Type, call.Type)
		}
		return "(" + g.R(pb.dialect.Core("cast"), "expr", args[0], "type", sqlType) + ")", nil
	}

	return "", g.Error("unsupported federation function: %s", call.Function)
}

func (pb *predicateBuilder) arguments(call *constraint.FunctionCallExpression) (args []string, err error) {
	for _, arg := range call.Arguments {
		sql, err := pb.expression(arg)
		if err != nil {
			return nil, err
		}
		args = append(args, sql)
	}
	return
}
