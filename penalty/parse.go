package penalty

import (
	"strings"

	"github.com/shopspring/decimal"
)

// MaxScheduleDays bounds how many late days Parse will walk when the
// repeating tail rate is positive but too small to reach 1.0 in practice.
// It only applies once every listed rate has been used.
const MaxScheduleDays = 3650

var (
	one       = decimal.NewFromInt(1)
	tolerance = decimal.New(1, -6)
)

// =============================================================================
// PARSE
// =============================================================================

// Parse reads a whitespace-separated list of per-day penalty fractions.
//
// An empty or blank input returns (nil, nil): the task has no late penalty.
// Any token that is not a non-negative number returns a *ParseError.
func Parse(input string) (*Schedule, error) {
	fields := strings.Fields(input)
	if len(fields) == 0 {
		return nil, nil
	}

	rates := make([]decimal.Decimal, len(fields))
	for i, tok := range fields {
		d, err := decimal.NewFromString(tok)
		if err != nil {
			return nil, &ParseError{Token: tok, Position: i, Reason: "not a number"}
		}
		if d.IsNegative() {
			return nil, &ParseError{Token: tok, Position: i, Reason: "negative penalty"}
		}
		rates[i] = d
	}

	b := newBuilder(rates)
	st := stateAccumulating
	for st == stateAccumulating {
		st = b.step()
	}
	b.finish(st)

	return &Schedule{segments: b.segments}, nil
}

// MustParse is like Parse but panics on a malformed input.
func MustParse(input string) *Schedule {
	s, err := Parse(input)
	if err != nil {
		panic(err)
	}
	return s
}

// =============================================================================
// ACCUMULATION STATE MACHINE
// =============================================================================

// state is where the day-by-day walk over the rate list ended up.
//
//	accumulating -> complete   accumulated penalty reached 1.0 (within 1e-6)
//	accumulating -> clipped    accumulated penalty passed 1.0
//	accumulating -> zeroTail   list exhausted and the repeating rate is 0
//	accumulating -> exhausted  on the last rate with MaxScheduleDays walked
type state int

const (
	stateAccumulating state = iota
	stateComplete
	stateClipped
	stateZeroTail
	stateExhausted
)

func (s state) String() string {
	switch s {
	case stateAccumulating:
		return "accumulating"
	case stateComplete:
		return "complete"
	case stateClipped:
		return "clipped"
	case stateZeroTail:
		return "zero-tail"
	case stateExhausted:
		return "exhausted"
	default:
		return "unknown"
	}
}

type builder struct {
	rates    []decimal.Decimal
	segments []Segment

	accumulated decimal.Decimal
	runRate     decimal.Decimal
	runFrom     int
	runDays     int // 0 until the first day is seen

	day   int
	index int
}

func newBuilder(rates []decimal.Decimal) *builder {
	return &builder{
		rates:       rates,
		accumulated: decimal.Zero,
		runFrom:     1,
		day:         1,
	}
}

// step applies the rate for the current day and reports the next state.
func (b *builder) step() state {
	rate := b.rates[b.index]
	b.accumulated = b.accumulated.Add(rate)

	if b.runDays > 0 && rate.Equal(b.runRate) {
		b.runDays++
	} else {
		b.closeRun()
		b.runFrom = b.day
		b.runRate = rate
		b.runDays = 1
	}

	switch {
	case b.accumulated.Sub(one).Abs().LessThanOrEqual(tolerance):
		return stateComplete
	case b.accumulated.GreaterThan(one):
		return stateClipped
	case b.index == len(b.rates)-1 && rate.IsZero():
		return stateZeroTail
	case b.index == len(b.rates)-1 && b.day >= MaxScheduleDays:
		return stateExhausted
	}

	b.day++
	if b.index < len(b.rates)-1 {
		b.index++
	}
	return stateAccumulating
}

// finish flushes the current run according to the terminal state.
func (b *builder) finish(st state) {
	switch st {
	case stateComplete:
		b.closeRun()
	case stateClipped:
		// Every day of the run but today contributed its full rate.
		if b.runDays > 1 {
			b.segments = append(b.segments, finiteSegment(b.runFrom, b.runDays-1, b.runRate))
		}
		excess := b.accumulated.Sub(one)
		b.segments = append(b.segments, finiteSegment(b.day, 1, b.runRate.Sub(excess)))
		b.runDays = 0
	case stateZeroTail, stateExhausted:
		b.segments = append(b.segments, openSegment(b.runFrom, b.runRate))
		b.runDays = 0
	}
}

func (b *builder) closeRun() {
	if b.runDays == 0 {
		return
	}
	b.segments = append(b.segments, finiteSegment(b.runFrom, b.runDays, b.runRate))
	b.runDays = 0
}
