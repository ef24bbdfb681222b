package constraint

import (
	"math"
	"strings"
	"time"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/flarco/g"
	"github.com/shopspring/decimal"
	"github.com/spf13/cast"
)

// Bound is the inclusivity kind of a Marker
type Bound int

const (
	BoundBelow Bound = iota
	BoundExactly
	BoundAbove
)

func (b Bound) String() string {
	switch b {
	case BoundBelow:
		return "BELOW"
	case BoundExactly:
		return "EXACTLY"
	case BoundAbove:
		return "ABOVE"
	}
	return g.F("Bound(%d)", int(b))
}

// ParseBound parses BELOW, EXACTLY or ABOVE (case-insensitive)
func ParseBound(s string) (Bound, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "BELOW":
		return BoundBelow, nil
	case "EXACTLY", "":
		return BoundExactly, nil
	case "ABOVE":
		return BoundAbove, nil
	}
	return BoundExactly, g.Error("invalid bound: %s", s)
}

// Marker is a range endpoint: a value with an inclusivity kind, or an
// unbounded end of the domain.
// A lower unbounded marker carries BoundAbove, an upper unbounded marker BoundBelow.
type Marker struct {
	Value     any
	Bound     Bound
	unbounded bool
}

func Exactly(value any) Marker { return Marker{Value: value, Bound: BoundExactly} }

func Above(value any) Marker { return Marker{Value: value, Bound: BoundAbove} }

func Below(value any) Marker { return Marker{Value: value, Bound: BoundBelow} }

func LowerUnbounded() Marker { return Marker{Bound: BoundAbove, unbounded: true} }

func UpperUnbounded() Marker { return Marker{Bound: BoundBelow, unbounded: true} }

func (m Marker) IsUnbounded() bool { return m.unbounded }

func (m Marker) IsLowerUnbounded() bool { return m.unbounded && m.Bound == BoundAbove }

func (m Marker) IsUpperUnbounded() bool { return m.unbounded && m.Bound == BoundBelow }

// Compare orders markers: lower unbounded first, upper unbounded last,
// otherwise by value then by bound (BELOW < EXACTLY < ABOVE).
func (m Marker) Compare(other Marker) (int, error) {
	switch {
	case m.IsUpperUnbounded():
		if other.IsUpperUnbounded() {
			return 0, nil
		}
		return 1, nil
	case m.IsLowerUnbounded():
		if other.IsLowerUnbounded() {
			return 0, nil
		}
		return -1, nil
	case other.IsUpperUnbounded():
		return -1, nil
	case other.IsLowerUnbounded():
		return 1, nil
	}

	c, err := CompareValues(m.Value, other.Value)
	if err != nil {
		return 0, err
	} else if c != 0 {
		return c, nil
	}

	switch {
	case m.Bound < other.Bound:
		return -1, nil
	case m.Bound > other.Bound:
		return 1, nil
	}
	return 0, nil
}

// IsAdjacent is true when both markers hold the same value and exactly one
// of them is inclusive, e.g. the high of [1, 2] and the low of (2, 3].
func (m Marker) IsAdjacent(other Marker) bool {
	if m.unbounded || other.unbounded {
		return false
	}
	c, err := CompareValues(m.Value, other.Value)
	if err != nil || c != 0 {
		return false
	}
	return (m.Bound == BoundExactly) != (other.Bound == BoundExactly)
}

func (m Marker) String() string {
	switch {
	case m.IsLowerUnbounded():
		return "<min>"
	case m.IsUpperUnbounded():
		return "<max>"
	}
	return g.F("%v:%s", m.Value, m.Bound)
}

// CompareValues compares two bound values of the same kind.
// Numbers of different Go types compare numerically, arrow dates as times.
func CompareValues(a, b any) (int, error) {
	a, b = dateAsTime(a), dateAsTime(b)

	switch av := a.(type) {
	case arrow.Timestamp:
		// the unit lives on the type, both sides share it
		bv, ok := b.(arrow.Timestamp)
		if !ok {
			return 0, g.Error("cannot compare timestamp with %T", b)
		}
		switch {
		case av < bv:
			return -1, nil
		case av > bv:
			return 1, nil
		}
		return 0, nil
	case nil:
		return 0, g.Error("cannot compare nil value")
	case string:
		bv, ok := b.(string)
		if !ok {
			return 0, g.Error("cannot compare string with %T", b)
		}
		return strings.Compare(av, bv), nil
	case bool:
		bv, ok := b.(bool)
		if !ok {
			return 0, g.Error("cannot compare bool with %T", b)
		}
		switch {
		case av == bv:
			return 0, nil
		case !av:
			return -1, nil
		}
		return 1, nil
	case time.Time:
		bv, ok := b.(time.Time)
		if !ok {
			return 0, g.Error("cannot compare time with %T", b)
		}
		return av.Compare(bv), nil
	}

	if !isNumber(a) || !isNumber(b) {
		return 0, g.Error("cannot compare %T with %T", a, b)
	}

	_, aDec := a.(decimal.Decimal)
	_, bDec := b.(decimal.Decimal)
	if (isFloat(a) || isFloat(b)) && !aDec && !bDec {
		af, bf := cast.ToFloat64(a), cast.ToFloat64(b)
		if math.IsNaN(af) || math.IsNaN(bf) {
			return 0, g.Error("cannot compare NaN")
		}
		switch {
		case af < bf:
			return -1, nil
		case af > bf:
			return 1, nil
		}
		return 0, nil
	}

	ad, err := toDecimal(a)
	if err != nil {
		return 0, err
	}
	bd, err := toDecimal(b)
	if err != nil {
		return 0, err
	}
	return ad.Cmp(bd), nil
}

func dateAsTime(v any) any {
	switch dv := v.(type) {
	case arrow.Date32:
		return dv.ToTime()
	case arrow.Date64:
		return dv.ToTime()
	}
	return v
}

func isNumber(v any) bool {
	switch v.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64, decimal.Decimal:
		return true
	}
	return false
}

func isFloat(v any) bool {
	switch v.(type) {
	case float32, float64:
		return true
	}
	return false
}

func toDecimal(v any) (decimal.Decimal, error) {
	switch vv := v.(type) {
	case decimal.Decimal:
		return vv, nil
	case uint, uint64:
		return decimal.NewFromString(cast.ToString(vv))
	case int, int8, int16, int32, int64, uint8, uint16, uint32:
		return decimal.NewFromInt(cast.ToInt64(vv)), nil
	case float32, float64:
		f := cast.ToFloat64(vv)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return decimal.Zero, g.Error("cannot convert %v to decimal", f)
		}
		return decimal.NewFromFloat(f), nil
	}
	return decimal.Zero, g.Error("cannot convert %T to decimal", v)
}
