package scheduler

import "errors"

var (
	ErrInvalidSchedule        = errors.New("scheduler: invalid schedule")
	ErrJobAlreadyRegistered   = errors.New("scheduler: job already registered")
	ErrJobNil                 = errors.New("scheduler: job is nil")
	ErrSchedulerNotConfigured = errors.New("scheduler: no jobs registered")
)
