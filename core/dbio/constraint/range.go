package constraint

import (
	"github.com/flarco/g"
)

// Range is a contiguous interval of values between two markers
type Range struct {
	Low  Marker
	High Marker
}

// NewRange validates the bounds: a low marker is never BELOW, a high marker
// is never ABOVE, and low does not exceed high.
func NewRange(low, high Marker) (r Range, err error) {
	if low.Bound == BoundBelow {
		return r, g.Error("low bound must be EXACTLY or ABOVE")
	}
	if high.Bound == BoundAbove {
		return r, g.Error("high bound must be EXACTLY or BELOW")
	}

	c, err := low.Compare(high)
	if err != nil {
		return r, g.Error(err, "could not compare range bounds")
	} else if c > 0 {
		return r, g.Error("low must be less than or equal to high: %s > %s", low, high)
	}

	return Range{Low: low, High: high}, nil
}

func RangeAll() Range { return Range{Low: LowerUnbounded(), High: UpperUnbounded()} }

func Equal(value any) Range { return Range{Low: Exactly(value), High: Exactly(value)} }

func GreaterThan(value any) Range { return Range{Low: Above(value), High: UpperUnbounded()} }

func GreaterThanOrEqual(value any) Range {
	return Range{Low: Exactly(value), High: UpperUnbounded()}
}

func LessThan(value any) Range { return Range{Low: LowerUnbounded(), High: Below(value)} }

func LessThanOrEqual(value any) Range {
	return Range{Low: LowerUnbounded(), High: Exactly(value)}
}

// Between is the closed interval [low, high]
func Between(low, high any) Range { return Range{Low: Exactly(low), High: Exactly(high)} }

// IsSingleValue is true for the degenerate range [v, v]
func (r Range) IsSingleValue() bool {
	if r.Low.Bound != BoundExactly || r.High.Bound != BoundExactly {
		return false
	} else if r.Low.unbounded || r.High.unbounded {
		return false
	}
	c, err := CompareValues(r.Low.Value, r.High.Value)
	return err == nil && c == 0
}

// IsAll is true when both ends are unbounded
func (r Range) IsAll() bool {
	return r.Low.IsLowerUnbounded() && r.High.IsUpperUnbounded()
}

// Overlaps is true when the two ranges share at least one value
func (r Range) Overlaps(other Range) (bool, error) {
	c1, err := r.Low.Compare(other.High)
	if err != nil {
		return false, err
	}
	c2, err := other.Low.Compare(r.High)
	if err != nil {
		return false, err
	}
	return c1 <= 0 && c2 <= 0, nil
}

// Span returns the smallest range containing both ranges
func (r Range) Span(other Range) (Range, error) {
	low, high := r.Low, r.High
	if c, err := other.Low.Compare(low); err != nil {
		return r, err
	} else if c < 0 {
		low = other.Low
	}
	if c, err := other.High.Compare(high); err != nil {
		return r, err
	} else if c > 0 {
		high = other.High
	}
	return Range{Low: low, High: high}, nil
}

func (r Range) String() string {
	if r.IsSingleValue() {
		return g.F("[%v]", r.Low.Value)
	}

	left, right := "(", ")"
	if r.Low.Bound == BoundExactly {
		left = "["
	}
	if r.High.Bound == BoundExactly {
		right = "]"
	}

	low, high := "<min>", "<max>"
	if !r.Low.unbounded {
		low = g.F("%v", r.Low.Value)
	}
	if !r.High.unbounded {
		high = g.F("%v", r.High.Value)
	}
	return g.F("%s%s, %s%s", left, low, high, right)
}
