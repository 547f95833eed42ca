package penalty

import "github.com/shopspring/decimal"

// =============================================================================
// EVALUATION
// =============================================================================

// Penalty returns the fraction of the mark deducted for a submission that
// is daysLate days late, clamped to [0, 1].
//
// The second result is false when no penalty applies at all: daysLate is
// zero or negative, or there is no schedule. A schedule that evaluates to
// zero still returns true.
//
// Days beyond the last finite segment accrue nothing further.
func (s *Schedule) Penalty(daysLate int) (decimal.Decimal, bool) {
	if daysLate <= 0 || s.Len() == 0 {
		return decimal.Zero, false
	}

	total := decimal.Zero
	remaining := daysLate
	for _, seg := range s.segments {
		if remaining == 0 {
			break
		}
		n := remaining
		if !seg.IsOpenEnded() && *seg.Days < n {
			n = *seg.Days
		}
		total = total.Add(seg.PenaltyPerDay.Mul(decimal.NewFromInt(int64(n))))
		remaining -= n
	}

	return decimal.Min(total, one), true
}

// PenaltyFloat is Penalty as a float64.
func (s *Schedule) PenaltyFloat(daysLate int) (float64, bool) {
	p, ok := s.Penalty(daysLate)
	f, _ := p.Float64()
	return f, ok
}

// DayPenalty is the cumulative penalty after a given late day.
type DayPenalty struct {
	Day        int
	Cumulative decimal.Decimal
}

// Table lists the cumulative penalty for days 1..maxDays. It stops early
// once the penalty reaches 1.0, or past the last finite segment.
func (s *Schedule) Table(maxDays int) []DayPenalty {
	var rows []DayPenalty
	covered, finite := s.TotalDays()
	for day := 1; day <= maxDays; day++ {
		if finite && day > covered {
			break
		}
		p, ok := s.Penalty(day)
		if !ok {
			break
		}
		rows = append(rows, DayPenalty{Day: day, Cumulative: p})
		if p.GreaterThanOrEqual(one) {
			break
		}
	}
	return rows
}
