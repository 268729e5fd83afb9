package report

import (
	"net/http"

	"github.com/KOMKZ/tickerdesk/errcode"
)

// ModuleCode report module
const ModuleCode = 74

var (
	// ErrValidation malformed report parameters; raised before any provider call
	ErrValidation = errcode.Register(errcode.New(ModuleCode, 1, "report", "error.report.validation",
		"invalid report parameters", http.StatusBadRequest).WithClass(errcode.ClassValidation))

	// ErrUnknownReport no report registered under mode/type
	ErrUnknownReport = errcode.Register(errcode.New(ModuleCode, 2, "report", "error.report.unknown",
		"unknown report", http.StatusNotFound).WithClass(errcode.ClassValidation))

	// ErrRender a fetched frame could not be rendered
	ErrRender = errcode.Register(errcode.New(ModuleCode, 3, "report", "error.report.render",
		"report could not be rendered"))

	// ErrDuplicate report registered twice
	ErrDuplicate = errcode.Register(errcode.New(ModuleCode, 4, "report", "error.report.duplicate",
		"report already registered").WithClass(errcode.ClassContract))
)
