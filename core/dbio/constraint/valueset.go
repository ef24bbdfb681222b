package constraint

import (
	"sort"
	"strings"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/flarco/g"
	"github.com/samber/lo"
)

// ValueSet is the set of acceptable values for one column
type ValueSet interface {
	Type() arrow.DataType
	IsNullAllowed() bool
	// IsNone is true when no non-null value is accepted
	IsNone() bool
	// IsAll is true when every value, null included, is accepted
	IsAll() bool
	String() string
}

// SortedRangeSet is an ordered union of non-overlapping ranges plus a
// null-allowance flag.
type SortedRangeSet struct {
	typ         arrow.DataType
	nullAllowed bool
	ranges      []Range
}

// NewSortedRangeSet validates, sorts and merges the provided ranges.
// Overlapping or adjacent ranges are folded into their span.
func NewSortedRangeSet(typ arrow.DataType, nullAllowed bool, ranges ...Range) (*SortedRangeSet, error) {
	validated := make([]Range, 0, len(ranges))
	for _, r := range ranges {
		vr, err := NewRange(r.Low, r.High)
		if err != nil {
			return nil, g.Error(err, "invalid range %s", r)
		}
		validated = append(validated, vr)
	}

	var sortErr error
	sort.SliceStable(validated, func(i, j int) bool {
		c, err := validated[i].Low.Compare(validated[j].Low)
		if err != nil && sortErr == nil {
			sortErr = err
		}
		return c < 0
	})
	if sortErr != nil {
		return nil, g.Error(sortErr, "could not sort ranges")
	}

	merged := make([]Range, 0, len(validated))
	for _, r := range validated {
		if len(merged) == 0 {
			merged = append(merged, r)
			continue
		}

		last := merged[len(merged)-1]
		overlaps, err := last.Overlaps(r)
		if err != nil {
			return nil, g.Error(err, "could not merge ranges")
		}

		if overlaps || last.High.IsAdjacent(r.Low) {
			span, err := last.Span(r)
			if err != nil {
				return nil, g.Error(err, "could not merge ranges")
			}
			merged[len(merged)-1] = span
		} else {
			merged = append(merged, r)
		}
	}

	return &SortedRangeSet{typ: typ, nullAllowed: nullAllowed, ranges: merged}, nil
}

// OfRanges builds a set from ranges already sorted and non-overlapping.
// No validation is done; the predicate builder rejects illegal bounds.
func OfRanges(typ arrow.DataType, nullAllowed bool, ranges ...Range) *SortedRangeSet {
	return &SortedRangeSet{typ: typ, nullAllowed: nullAllowed, ranges: append([]Range{}, ranges...)}
}

// ValuesOf accepts exactly the provided values
func ValuesOf(typ arrow.DataType, nullAllowed bool, values ...any) (*SortedRangeSet, error) {
	ranges := lo.Map(values, func(v any, i int) Range { return Equal(v) })
	return NewSortedRangeSet(typ, nullAllowed, ranges...)
}

// AllValues accepts every value including null
func AllValues(typ arrow.DataType) *SortedRangeSet { return OfRanges(typ, true, RangeAll()) }

// NotNull accepts every non-null value
func NotNull(typ arrow.DataType) *SortedRangeSet { return OfRanges(typ, false, RangeAll()) }

// OnlyNull accepts null only
func OnlyNull(typ arrow.DataType) *SortedRangeSet { return OfRanges(typ, true) }

// NoValues accepts nothing
func NoValues(typ arrow.DataType) *SortedRangeSet { return OfRanges(typ, false) }

func (s *SortedRangeSet) Type() arrow.DataType { return s.typ }

func (s *SortedRangeSet) IsNullAllowed() bool { return s.nullAllowed }

func (s *SortedRangeSet) IsNone() bool { return len(s.ranges) == 0 }

func (s *SortedRangeSet) IsAll() bool {
	return s.nullAllowed && len(s.ranges) == 1 && s.ranges[0].IsAll()
}

// Ranges returns the ordered ranges
func (s *SortedRangeSet) Ranges() []Range { return append([]Range{}, s.ranges...) }

// Span is the range from the lowest low to the highest high
func (s *SortedRangeSet) Span() (Range, error) {
	if len(s.ranges) == 0 {
		return Range{}, g.Error("cannot get span if no ranges exist")
	}
	return Range{Low: s.ranges[0].Low, High: s.ranges[len(s.ranges)-1].High}, nil
}

func (s *SortedRangeSet) String() string {
	parts := lo.Map(s.ranges, func(r Range, i int) string { return r.String() })
	if s.nullAllowed {
		parts = append(parts, "NULL")
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// AllOrNoneValueSet accepts either every non-null value or none of them
type AllOrNoneValueSet struct {
	typ         arrow.DataType
	all         bool
	nullAllowed bool
}

func NewAllOrNoneValueSet(typ arrow.DataType, all, nullAllowed bool) *AllOrNoneValueSet {
	return &AllOrNoneValueSet{typ: typ, all: all, nullAllowed: nullAllowed}
}

func (s *AllOrNoneValueSet) Type() arrow.DataType { return s.typ }

func (s *AllOrNoneValueSet) IsNullAllowed() bool { return s.nullAllowed }

func (s *AllOrNoneValueSet) IsNone() bool { return !s.all }

func (s *AllOrNoneValueSet) IsAll() bool { return s.all && s.nullAllowed }

// AcceptsAllValues is true when every non-null value is accepted
func (s *AllOrNoneValueSet) AcceptsAllValues() bool { return s.all }

func (s *AllOrNoneValueSet) String() string {
	return g.F("{all=%t, null=%t}", s.all, s.nullAllowed)
}
