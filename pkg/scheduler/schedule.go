package scheduler

import (
	"fmt"
	"strings"
	"time"

	"github.com/adhocore/gronx"
)

// Schedule determines when a job should run next.
type Schedule interface {
	// Next returns the first run time strictly after from, or the zero
	// time when there is none.
	Next(from time.Time) time.Time
	String() string
}

// intervalSchedule runs at fixed intervals
type intervalSchedule struct {
	every time.Duration
}

func (s intervalSchedule) Next(from time.Time) time.Time {
	return from.Add(s.every)
}

func (s intervalSchedule) String() string {
	return fmt.Sprintf("every %v", s.every)
}

// Every creates a schedule that runs every d. It panics when d is not positive.
func Every(d time.Duration) Schedule {
	if d <= 0 {
		panic("scheduler: interval must be positive")
	}
	return intervalSchedule{every: d}
}

// cronSchedule follows a cron expression. Six fields put seconds first.
type cronSchedule struct {
	expr string
}

func (s cronSchedule) Next(from time.Time) time.Time {
	next, err := gronx.NextTickAfter(s.expr, from, false)
	if err != nil {
		return time.Time{}
	}
	return next
}

func (s cronSchedule) String() string {
	return "cron " + s.expr
}

// Cron parses a cron expression.
func Cron(expr string) (Schedule, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" || !gronx.IsValid(expr) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSchedule, expr)
	}
	return cronSchedule{expr: expr}, nil
}
