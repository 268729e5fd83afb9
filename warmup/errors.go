package warmup

import (
	"github.com/KOMKZ/tickerdesk/errcode"
)

// ModuleCode warmup module code
const ModuleCode = 76

var (
	// ErrConfig invalid warmup section
	ErrConfig = errcode.Register(errcode.New(ModuleCode, 1, "warmup", "error.warmup.config",
		"invalid warmup configuration"))

	// ErrSchedule a job could not be scheduled
	ErrSchedule = errcode.Register(errcode.New(ModuleCode, 2, "warmup", "error.warmup.schedule",
		"warmup job could not be scheduled"))

	// ErrJobsFailed the last run had failing jobs
	ErrJobsFailed = errcode.Register(errcode.New(ModuleCode, 3, "warmup", "error.warmup.jobs_failed",
		"warmup jobs failed").WithClass(errcode.ClassProvider))
)
