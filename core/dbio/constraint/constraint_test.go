package constraint

import (
	"testing"
	"time"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestCompareValues(t *testing.T) {
	now := time.Now()
	type testCase struct {
		a, b    any
		want    int
		wantErr bool
	}
	cases := []testCase{
		{a: 1, b: 2, want: -1},
		{a: int64(5), b: int32(5), want: 0},
		{a: uint64(10), b: 3, want: 1},
		{a: 1.5, b: 1, want: 1},
		{a: decimal.RequireFromString("1.10"), b: 1.1, want: 0},
		{a: decimal.RequireFromString("2"), b: int64(3), want: -1},
		{a: "a", b: "b", want: -1},
		{a: false, b: true, want: -1},
		{a: now, b: now.Add(time.Second), want: -1},
		{a: arrow.Date32(19000), b: arrow.Date32(18000), want: 1},
		{a: arrow.Date64(86400000), b: time.Date(1970, 1, 2, 0, 0, 0, 0, time.UTC), want: 0},
		{a: arrow.Timestamp(5), b: arrow.Timestamp(7), want: -1},
		{a: arrow.Timestamp(5), b: int64(5), wantErr: true},
		{a: "a", b: 1, wantErr: true},
		{a: nil, b: 1, wantErr: true},
		{a: 1, b: struct{}{}, wantErr: true},
	}

	for _, c := range cases {
		got, err := CompareValues(c.a, c.b)
		if c.wantErr {
			assert.Error(t, err, "%v vs %v", c.a, c.b)
			continue
		}
		if assert.NoError(t, err, "%v vs %v", c.a, c.b) {
			assert.Equal(t, c.want, got, "%v vs %v", c.a, c.b)
		}
	}
}

func TestMarkerCompare(t *testing.T) {
	ordered := []Marker{
		LowerUnbounded(),
		Below(1),
		Exactly(1),
		Above(1),
		Exactly(2),
		UpperUnbounded(),
	}

	for i := range ordered {
		for j := range ordered {
			c, err := ordered[i].Compare(ordered[j])
			if !assert.NoError(t, err) {
				return
			}
			switch {
			case i < j:
				assert.Equal(t, -1, c, "%s vs %s", ordered[i], ordered[j])
			case i > j:
				assert.Equal(t, 1, c, "%s vs %s", ordered[i], ordered[j])
			default:
				assert.Equal(t, 0, c, "%s vs %s", ordered[i], ordered[j])
			}
		}
	}

	assert.True(t, Exactly(2).IsAdjacent(Above(2)))
	assert.True(t, Below(2).IsAdjacent(Exactly(2)))
	assert.False(t, Below(2).IsAdjacent(Above(2)))
	assert.False(t, UpperUnbounded().IsAdjacent(Exactly(2)))
}

func TestParseBound(t *testing.T) {
	b, err := ParseBound("above")
	assert.NoError(t, err)
	assert.Equal(t, BoundAbove, b)

	b, err = ParseBound("")
	assert.NoError(t, err)
	assert.Equal(t, BoundExactly, b)

	_, err = ParseBound("sideways")
	assert.Error(t, err)
}

func TestNewRange(t *testing.T) {
	_, err := NewRange(Below(1), Exactly(3))
	assert.Error(t, err)

	_, err = NewRange(Exactly(1), Above(3))
	assert.Error(t, err)

	_, err = NewRange(Exactly(5), Exactly(3))
	assert.Error(t, err)

	r, err := NewRange(Above(1), Below(3))
	if assert.NoError(t, err) {
		assert.False(t, r.IsSingleValue())
		assert.Equal(t, "(1, 3)", r.String())
	}

	assert.True(t, Equal(4).IsSingleValue())
	assert.Equal(t, "[4]", Equal(4).String())
	assert.True(t, RangeAll().IsAll())
	assert.Equal(t, "(<min>, 10]", LessThanOrEqual(10).String())
}

func TestRangeOverlapsAndSpan(t *testing.T) {
	overlaps, err := Between(1, 5).Overlaps(Between(5, 8))
	assert.NoError(t, err)
	assert.True(t, overlaps)

	overlaps, err = Between(1, 5).Overlaps(GreaterThan(5))
	assert.NoError(t, err)
	assert.False(t, overlaps)

	span, err := Between(1, 5).Span(GreaterThan(7))
	if assert.NoError(t, err) {
		assert.Equal(t, Exactly(1), span.Low)
		assert.True(t, span.High.IsUpperUnbounded())
	}
}

func TestSortedRangeSet(t *testing.T) {
	set, err := NewSortedRangeSet(
		arrow.PrimitiveTypes.Int64, false,
		Between(10, 20),
		Equal(1),
		Between(15, 30),
		GreaterThan(30),
	)
	if !assert.NoError(t, err) {
		return
	}

	ranges := set.Ranges()
	if assert.Len(t, ranges, 2) {
		assert.True(t, ranges[0].IsSingleValue())
		assert.Equal(t, Exactly(10), ranges[1].Low)
		assert.True(t, ranges[1].High.IsUpperUnbounded())
	}
	assert.False(t, set.IsNone())
	assert.False(t, set.IsAll())

	span, err := set.Span()
	if assert.NoError(t, err) {
		assert.Equal(t, Exactly(1), span.Low)
	}

	_, err = NoValues(arrow.PrimitiveTypes.Int64).Span()
	assert.Error(t, err)

	_, err = NewSortedRangeSet(arrow.PrimitiveTypes.Int64, false, Equal(1), Equal("a"))
	assert.Error(t, err)

	_, err = NewSortedRangeSet(arrow.PrimitiveTypes.Int64, false, Range{Low: Below(1), High: Exactly(2)})
	assert.Error(t, err)

	values, err := ValuesOf(arrow.BinaryTypes.String, true, "b", "a", "b")
	if assert.NoError(t, err) {
		assert.Len(t, values.Ranges(), 2)
		assert.Equal(t, "{[a], [b], NULL}", values.String())
	}

	stamps, err := NewSortedRangeSet(
		arrow.FixedWidthTypes.Timestamp_ms, false,
		GreaterThan(arrow.Timestamp(2000)),
		Between(arrow.Timestamp(100), arrow.Timestamp(500)),
	)
	if assert.NoError(t, err) && assert.Len(t, stamps.Ranges(), 2) {
		assert.Equal(t, Exactly(arrow.Timestamp(100)), stamps.Ranges()[0].Low)
	}

	days, err := ValuesOf(arrow.FixedWidthTypes.Date32, false, arrow.Date32(3), arrow.Date32(1), arrow.Date32(3))
	if assert.NoError(t, err) {
		assert.Len(t, days.Ranges(), 2)
	}

	assert.True(t, AllValues(arrow.BinaryTypes.String).IsAll())
	assert.False(t, NotNull(arrow.BinaryTypes.String).IsAll())
	assert.True(t, OnlyNull(arrow.BinaryTypes.String).IsNone())
	assert.True(t, OnlyNull(arrow.BinaryTypes.String).IsNullAllowed())
}

func TestAllOrNoneValueSet(t *testing.T) {
	vs := NewAllOrNoneValueSet(arrow.PrimitiveTypes.Int32, true, true)
	assert.True(t, vs.IsAll())
	assert.False(t, vs.IsNone())

	vs = NewAllOrNoneValueSet(arrow.PrimitiveTypes.Int32, false, true)
	assert.True(t, vs.IsNone())
	assert.False(t, vs.IsAll())
	assert.False(t, vs.AcceptsAllValues())
}

func TestConstraints(t *testing.T) {
	summary := map[string]ValueSet{"id": NotNull(arrow.PrimitiveTypes.Int64)}
	c := NewConstraints(summary)
	summary["name"] = OnlyNull(arrow.BinaryTypes.String)

	assert.Equal(t, []string{"id"}, c.Columns())
	assert.Equal(t, NoLimit, c.Limit())
	assert.False(t, c.HasLimit())
	assert.False(t, c.IsQueryPassthrough())

	_, ok := c.ValueSet("name")
	assert.False(t, ok)

	c = NewConstraints(
		nil,
		WithLimit(5),
		WithOrderBy(OrderByField{ColumnName: "id", Direction: DescNullsLast}),
		WithQueryPassthrough(map[string]string{PassthroughQuery: "select 1"}),
	)
	assert.True(t, c.HasLimit())
	assert.Len(t, c.OrderBy(), 1)
	assert.True(t, c.IsQueryPassthrough())
	assert.Equal(t, "select 1", c.QueryPassthroughArgs()[PassthroughQuery])
}

func TestParseDirection(t *testing.T) {
	cases := map[string]Direction{
		"asc":             AscNullsLast,
		"DESC":            DescNullsFirst,
		"asc nulls first": AscNullsFirst,
		"DESC_NULLS_LAST": DescNullsLast,
		"":                AscNullsLast,
	}
	for input, want := range cases {
		d, err := ParseDirection(input)
		assert.NoError(t, err, input)
		assert.Equal(t, want, d, input)
	}

	_, err := ParseDirection("up")
	assert.Error(t, err)

	assert.True(t, AscNullsFirst.IsAscending())
	assert.True(t, AscNullsFirst.IsNullsFirst())
	assert.False(t, DescNullsLast.IsAscending())
	assert.False(t, DescNullsLast.IsNullsFirst())
}

func TestSplit(t *testing.T) {
	props := map[string]string{"partition": "*"}
	split := NewSplit(props)
	props["other"] = "x"

	assert.True(t, split.Has("partition"))
	assert.False(t, split.Has("other"))
	assert.Equal(t, "*", split.Property("partition"))
	assert.Equal(t, "", split.Property("missing"))

	_, ok := split.Lookup("missing")
	assert.False(t, ok)
}

func TestExpressions(t *testing.T) {
	name, err := ParseFunctionName("add")
	assert.NoError(t, err)
	assert.Equal(t, FuncAdd, name)

	_, err = ParseFunctionName("$frobnicate")
	assert.Error(t, err)

	expr := Call(
		arrow.FixedWidthTypes.Boolean, FuncEqual,
		Variable("id", arrow.PrimitiveTypes.Int64),
		Constant(arrow.PrimitiveTypes.Int64, 10),
	)
	assert.Equal(t, "$equal(id, constant(10))", expr.String())
	assert.Equal(t, arrow.FixedWidthTypes.Boolean, expr.DataType())
}
