package coursework

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/coursework/penalty"
)

const day = 24 * time.Hour

// DaysLate returns how many days after dueAt the submission arrived. Any
// part of a day counts as a whole day; on-time submissions are 0 days late.
func DaysLate(submittedAt, dueAt time.Time) int {
	elapsed := submittedAt.Sub(dueAt)
	if elapsed <= 0 {
		return 0
	}
	return int(math.Ceil(float64(elapsed) / float64(day)))
}

// Assess evaluates the task's late penalty for one submission.
//
// A malformed late penalty returns a *TaskConfigError; it is never treated
// as "no penalty".
func Assess(task Task, sub Submission) (Assessment, error) {
	schedule, err := task.Schedule()
	if err != nil {
		return Assessment{}, err
	}
	return AssessWith(schedule, task, sub), nil
}

// AssessWith is Assess with an already parsed schedule, so listings parse
// the task configuration once.
func AssessWith(schedule *penalty.Schedule, task Task, sub Submission) Assessment {
	a := Assessment{
		SubmissionID: sub.ID,
		DaysLate:     DaysLate(sub.SubmittedAt, task.DueAt),
		Penalty:      decimal.Zero,
		Deduction:    decimal.Zero,
		Mark:         sub.Mark,
	}

	a.Penalty, a.Applies = schedule.Penalty(a.DaysLate)
	if a.Applies {
		a.Deduction = a.Penalty.Mul(task.MaxMark)
	}

	if sub.Mark != nil {
		adjusted := decimal.Max(sub.Mark.Sub(a.Deduction), decimal.Zero)
		a.AdjustedMark = &adjusted
	}
	return a
}
