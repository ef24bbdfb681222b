package federation

import (
	"regexp"
	"strings"
	"time"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/flarco/g"
	"github.com/shopspring/decimal"
	"github.com/spf13/cast"
)

var decimalTypeRegex = regexp.MustCompile(`^decimal\s*\(\s*(\d+)\s*(?:,\s*(\d+)\s*)?\)$`)

var arrowTypeNames = map[string]arrow.DataType{
	"bool":      arrow.FixedWidthTypes.Boolean,
	"boolean":   arrow.FixedWidthTypes.Boolean,
	"int8":      arrow.PrimitiveTypes.Int8,
	"int16":     arrow.PrimitiveTypes.Int16,
	"int32":     arrow.PrimitiveTypes.Int32,
	"int64":     arrow.PrimitiveTypes.Int64,
	"uint8":     arrow.PrimitiveTypes.Uint8,
	"uint16":    arrow.PrimitiveTypes.Uint16,
	"uint32":    arrow.PrimitiveTypes.Uint32,
	"uint64":    arrow.PrimitiveTypes.Uint64,
	"float32":   arrow.PrimitiveTypes.Float32,
	"float64":   arrow.PrimitiveTypes.Float64,
	"utf8":      arrow.BinaryTypes.String,
	"string":    arrow.BinaryTypes.String,
	"binary":    arrow.BinaryTypes.Binary,
	"date32":    arrow.FixedWidthTypes.Date32,
	"date64":    arrow.FixedWidthTypes.Date64,
	"timestamp": arrow.FixedWidthTypes.Timestamp_ms,
	"decimal":   &arrow.Decimal128Type{Precision: 38, Scale: 0},
}

// ParseArrowType resolves a type name such as `int64` or `decimal(10,2)`.
// A `struct` is built from its children.
func ParseArrowType(name string, children ...arrow.Field) (arrow.DataType, error) {
	name = strings.ToLower(strings.TrimSpace(name))

	if name == "struct" {
		return arrow.StructOf(children...), nil
	}

	if matches := decimalTypeRegex.FindStringSubmatch(name); matches != nil {
		precision, scale := cast.ToInt32(matches[1]), cast.ToInt32(matches[2])
		if precision < 1 || precision > 38 || scale > precision {
			return nil, g.Error("invalid decimal type: %s", name)
		}
		return &arrow.Decimal128Type{Precision: precision, Scale: scale}, nil
	}

	if t, ok := arrowTypeNames[name]; ok {
		return t, nil
	}
	return nil, g.Error("unsupported type: %s", name)
}

// CoerceValue converts a decoded request value to the Go value the
// constraint model compares for the arrow type.
func CoerceValue(typ arrow.DataType, val any) (v any, err error) {
	if val == nil {
		return nil, nil
	}

	switch typ.ID() {
	case arrow.BOOL:
		v, err = cast.ToBoolE(val)
	case arrow.INT8, arrow.INT16, arrow.INT32, arrow.INT64:
		v, err = cast.ToInt64E(val)
	case arrow.UINT8, arrow.UINT16, arrow.UINT32, arrow.UINT64:
		v, err = cast.ToUint64E(val)
	case arrow.FLOAT32, arrow.FLOAT64:
		v, err = cast.ToFloat64E(val)
	case arrow.DECIMAL128, arrow.DECIMAL256:
		v, err = decimal.NewFromString(cast.ToString(val))
	case arrow.STRING, arrow.LARGE_STRING:
		v, err = cast.ToStringE(val)
	case arrow.DATE32, arrow.DATE64, arrow.TIMESTAMP:
		var t time.Time
		t, err = cast.ToTimeE(val)
		v = t.UTC()
	default:
		return nil, g.Error("cannot use values of type %s in constraints", typ)
	}

	if err != nil {
		return nil, g.Error(err, "invalid %s value: %v", typ, val)
	}
	return v, nil
}

// CoerceValues converts each value in order. Nulls are rejected, a value set
// accepts null through null_allowed.
func CoerceValues(typ arrow.DataType, vals []any) (values []any, err error) {
	values = make([]any, len(vals))
	for i, val := range vals {
		if val == nil {
			return nil, g.Error("value %d is null, use null_allowed to match nulls", i+1)
		}
		if values[i], err = CoerceValue(typ, val); err != nil {
			return nil, err
		}
	}
	return values, nil
}
