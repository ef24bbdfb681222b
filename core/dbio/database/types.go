package database

import (
	"database/sql"
	"regexp"
	"strings"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/flarco/g"
	"github.com/samber/lo"
)

const (
	defaultDecimalPrecision = 38
	maxDecimalPrecision     = 38
)

var typeArgsRegex = regexp.MustCompile(`\s*\([^)]*\)`)

var nativeTypeMap = map[string]arrow.DataType{
	"BOOLEAN": arrow.FixedWidthTypes.Boolean,
	"BOOL":    arrow.FixedWidthTypes.Boolean,
	"BIT":     arrow.FixedWidthTypes.Boolean,

	"TINYINT":   arrow.PrimitiveTypes.Int8,
	"SMALLINT":  arrow.PrimitiveTypes.Int16,
	"INT2":      arrow.PrimitiveTypes.Int16,
	"MEDIUMINT": arrow.PrimitiveTypes.Int32,
	"INT":       arrow.PrimitiveTypes.Int32,
	"INTEGER":   arrow.PrimitiveTypes.Int32,
	"INT4":      arrow.PrimitiveTypes.Int32,
	"BIGINT":    arrow.PrimitiveTypes.Int64,
	"INT8":      arrow.PrimitiveTypes.Int64,
	"SERIAL":    arrow.PrimitiveTypes.Int32,
	"BIGSERIAL": arrow.PrimitiveTypes.Int64,

	"REAL":             arrow.PrimitiveTypes.Float32,
	"FLOAT4":           arrow.PrimitiveTypes.Float32,
	"BINARY_FLOAT":     arrow.PrimitiveTypes.Float32,
	"FLOAT":            arrow.PrimitiveTypes.Float64,
	"FLOAT8":           arrow.PrimitiveTypes.Float64,
	"DOUBLE":           arrow.PrimitiveTypes.Float64,
	"DOUBLE PRECISION": arrow.PrimitiveTypes.Float64,
	"BINARY_DOUBLE":    arrow.PrimitiveTypes.Float64,

	"CHAR":      arrow.BinaryTypes.String,
	"CHARACTER": arrow.BinaryTypes.String,
	"BPCHAR":    arrow.BinaryTypes.String,
	"NCHAR":     arrow.BinaryTypes.String,
	"VARCHAR":   arrow.BinaryTypes.String,
	"VARCHAR2":  arrow.BinaryTypes.String,
	"NVARCHAR":  arrow.BinaryTypes.String,
	"NVARCHAR2": arrow.BinaryTypes.String,
	"TEXT":      arrow.BinaryTypes.String,
	"NTEXT":     arrow.BinaryTypes.String,
	"STRING":    arrow.BinaryTypes.String,
	"CLOB":      arrow.BinaryTypes.String,
	"NCLOB":     arrow.BinaryTypes.String,
	"UUID":      arrow.BinaryTypes.String,
	"JSON":      arrow.BinaryTypes.String,
	"JSONB":     arrow.BinaryTypes.String,

	"CHARACTER VARYING": arrow.BinaryTypes.String,
	"UNIQUEIDENTIFIER":  arrow.BinaryTypes.String,

	"BINARY":    arrow.BinaryTypes.Binary,
	"VARBINARY": arrow.BinaryTypes.Binary,
	"BLOB":      arrow.BinaryTypes.Binary,
	"BYTEA":     arrow.BinaryTypes.Binary,
	"RAW":       arrow.BinaryTypes.Binary,

	"DATE": arrow.FixedWidthTypes.Date32,

	"TIMESTAMP":                   arrow.FixedWidthTypes.Timestamp_ms,
	"TIMESTAMP WITHOUT TIME ZONE": arrow.FixedWidthTypes.Timestamp_ms,
	"DATETIME":                    arrow.FixedWidthTypes.Timestamp_ms,
	"DATETIME2":                   arrow.FixedWidthTypes.Timestamp_ms,
	"SMALLDATETIME":               arrow.FixedWidthTypes.Timestamp_ms,
	"TIMESTAMP_NTZ":               arrow.FixedWidthTypes.Timestamp_ms,

	// zoned timestamps are read as millisecond dates
	"TIMESTAMPTZ":              arrow.FixedWidthTypes.Date64,
	"TIMESTAMP WITH TIME ZONE": arrow.FixedWidthTypes.Date64,
	"TIMESTAMP_TZ":             arrow.FixedWidthTypes.Date64,
	"DATETIMEOFFSET":           arrow.FixedWidthTypes.Date64,
}

// ToArrowType maps a database type name to an arrow type. Unknown names
// return false and leave the fallback to the caller.
func ToArrowType(dbType string, precision, scale int) (arrow.DataType, bool) {
	name := strings.ToUpper(strings.TrimSpace(typeArgsRegex.ReplaceAllString(dbType, "")))
	name = strings.Join(strings.Fields(name), " ")

	switch name {
	case "DECIMAL", "NUMERIC", "NUMBER", "MONEY", "DEC":
		if precision <= 0 || precision > maxDecimalPrecision {
			precision = defaultDecimalPrecision
		}
		if scale < 0 || scale > precision {
			scale = 0
		}
		return &arrow.Decimal128Type{Precision: int32(precision), Scale: int32(scale)}, true
	}

	t, ok := nativeTypeMap[name]
	return t, ok
}

// ColumnType is what a driver reports about a result column
type ColumnType struct {
	Name         string
	DatabaseType string
	Precision    int
	Scale        int
}

func columnTypesOf(rows *sql.Rows) ([]ColumnType, error) {
	columnTypes, err := rows.ColumnTypes()
	if err != nil {
		return nil, err
	}
	return lo.Map(columnTypes, func(ct *sql.ColumnType, i int) ColumnType {
		precision, scale, _ := ct.DecimalSize()
		return ColumnType{
			Name:         ct.Name(),
			DatabaseType: ct.DatabaseTypeName(),
			Precision:    int(precision),
			Scale:        int(scale),
		}
	}), nil
}

// MismatchedColumns lists the result columns whose database type maps to a
// different kind of arrow type than the projected field. Columns with an
// unknown database type or without a projected field are skipped.
func MismatchedColumns(schema *arrow.Schema, columns []ColumnType) (mismatched []string) {
	if schema == nil {
		return nil
	}

	for _, column := range columns {
		fields, ok := schema.FieldsByName(column.Name)
		if !ok || len(fields) == 0 || column.DatabaseType == "" {
			continue
		}

		native, ok := ToArrowType(column.DatabaseType, column.Precision, column.Scale)
		if !ok {
			continue
		}

		if typeKind(native) != typeKind(fields[0].Type) {
			mismatched = append(mismatched, g.F("%s (%s, projected as %s)", column.Name, column.DatabaseType, fields[0].Type))
		}
	}
	return mismatched
}

// typeKind groups arrow types which read into compatible Go values
func typeKind(t arrow.DataType) string {
	switch t.ID() {
	case arrow.BOOL:
		return "bool"
	case arrow.INT8, arrow.INT16, arrow.INT32, arrow.INT64,
		arrow.UINT8, arrow.UINT16, arrow.UINT32, arrow.UINT64:
		return "integer"
	case arrow.FLOAT16, arrow.FLOAT32, arrow.FLOAT64, arrow.DECIMAL128, arrow.DECIMAL256:
		return "number"
	case arrow.STRING, arrow.LARGE_STRING:
		return "string"
	case arrow.BINARY, arrow.LARGE_BINARY:
		return "binary"
	case arrow.DATE32, arrow.DATE64, arrow.TIMESTAMP:
		return "temporal"
	}
	return t.ID().String()
}
