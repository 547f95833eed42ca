/*
Package penalty implements late-submission penalty schedules.

PURPOSE:
  A task's late policy is configured as a whitespace-separated list of
  per-day penalty fractions, e.g. "0.1 0.1 0.2 0.2 0.4". The list is
  parsed once into a run-length encoded Schedule of Segments, and the
  Schedule is evaluated for any number of late days.

KEY CONCEPTS IN THIS FILE (types.go):
  - Segment: a contiguous run of days sharing the same per-day rate
  - Schedule: the ordered, immutable list of segments

ENCODING:
  Position i in the list is the penalty for late day i+1. Once the list
  is exhausted its last value repeats for every following day. Parsing
  stops as soon as the accumulated penalty reaches 1.0 (100% of the
  mark), or when the repeating tail is zero.

    "0.3 0.3 0.3"  ->  days 1-3: 30%/day; day 4: 10%/day
    "0 0"          ->  day 1+: 0%/day

PRECISION:
  Rates are decimal.Decimal so that "0.1" ten times is exactly 1.0.

SEE ALSO:
  - parse.go: Parse and the accumulation state machine
  - evaluate.go: Penalty evaluation
  - errors.go: ParseError
*/
package penalty

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SEGMENT - A run of days with one per-day rate
// =============================================================================

// Segment covers days [FromDay, ToDay]. ToDay and Days are nil for an
// open-ended segment, which only the last segment of a schedule can be.
type Segment struct {
	FromDay       int
	ToDay         *int
	Days          *int
	PenaltyPerDay decimal.Decimal
}

func finiteSegment(fromDay, days int, rate decimal.Decimal) Segment {
	toDay := fromDay + days - 1
	n := days
	return Segment{FromDay: fromDay, ToDay: &toDay, Days: &n, PenaltyPerDay: rate}
}

func openSegment(fromDay int, rate decimal.Decimal) Segment {
	return Segment{FromDay: fromDay, PenaltyPerDay: rate}
}

// IsOpenEnded reports whether the segment applies to every day from FromDay on.
func (s Segment) IsOpenEnded() bool { return s.Days == nil }

// Total returns PenaltyPerDay * Days, or zero for an open-ended segment.
func (s Segment) Total() decimal.Decimal {
	if s.IsOpenEnded() {
		return decimal.Zero
	}
	return s.PenaltyPerDay.Mul(decimal.NewFromInt(int64(*s.Days)))
}

// RateFloat returns the per-day rate as a float64, for display.
func (s Segment) RateFloat() float64 {
	f, _ := s.PenaltyPerDay.Float64()
	return f
}

func (s Segment) String() string {
	rate := s.PenaltyPerDay.Mul(hundred).Round(2).String() + "%/day"
	switch {
	case s.IsOpenEnded():
		return fmt.Sprintf("day %d+: %s", s.FromDay, rate)
	case *s.Days == 1:
		return fmt.Sprintf("day %d: %s", s.FromDay, rate)
	default:
		return fmt.Sprintf("days %d-%d: %s", s.FromDay, *s.ToDay, rate)
	}
}

func (s Segment) clone() Segment {
	c := Segment{FromDay: s.FromDay, PenaltyPerDay: s.PenaltyPerDay}
	if s.ToDay != nil {
		to := *s.ToDay
		c.ToDay = &to
	}
	if s.Days != nil {
		n := *s.Days
		c.Days = &n
	}
	return c
}

// =============================================================================
// SCHEDULE - Immutable ordered segments
// =============================================================================

// Schedule is produced by Parse and never modified afterwards, so a single
// value can be shared between goroutines.
type Schedule struct {
	segments []Segment
}

// Segments returns a copy of the schedule's segments.
func (s *Schedule) Segments() []Segment {
	if s == nil {
		return nil
	}
	out := make([]Segment, len(s.segments))
	for i, seg := range s.segments {
		out[i] = seg.clone()
	}
	return out
}

// Len returns the number of segments. A nil schedule has none.
func (s *Schedule) Len() int {
	if s == nil {
		return 0
	}
	return len(s.segments)
}

// IsOpenEnded reports whether the last segment has no upper day bound.
func (s *Schedule) IsOpenEnded() bool {
	if s.Len() == 0 {
		return false
	}
	return s.segments[len(s.segments)-1].IsOpenEnded()
}

// TotalDays returns the number of days covered by finite segments. The
// second result is false when the schedule ends with an open-ended segment.
func (s *Schedule) TotalDays() (int, bool) {
	total := 0
	for _, seg := range s.segmentsOrNil() {
		if seg.IsOpenEnded() {
			return total, false
		}
		total += *seg.Days
	}
	return total, true
}

// MaxPenalty is the sum of all finite segment totals. For a schedule whose
// last segment is finite this is 1.0.
func (s *Schedule) MaxPenalty() decimal.Decimal {
	total := decimal.Zero
	for _, seg := range s.segmentsOrNil() {
		total = total.Add(seg.Total())
	}
	return total
}

func (s *Schedule) String() string {
	if s.Len() == 0 {
		return "no late penalty"
	}
	parts := make([]string, len(s.segments))
	for i, seg := range s.segments {
		parts[i] = seg.String()
	}
	return strings.Join(parts, "; ")
}

func (s *Schedule) segmentsOrNil() []Segment {
	if s == nil {
		return nil
	}
	return s.segments
}

var hundred = decimal.NewFromInt(100)
